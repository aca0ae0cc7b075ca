package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/GTDGit/gtd_dashboard/internal/cache"
	"github.com/GTDGit/gtd_dashboard/internal/utils"
)

// MaxDraftBytes caps the size of one stored draft.
const MaxDraftBytes = 256 << 10

type draftStore interface {
	Save(ctx context.Context, businessID, userID int, kind cache.DraftKind, data json.RawMessage) (*cache.Draft, error)
	Load(ctx context.Context, businessID, userID int, kind cache.DraftKind) (*cache.Draft, error)
	Clear(ctx context.Context, businessID, userID int, kind cache.DraftKind) error
}

// DraftService persists in-progress forms per user and business.
type DraftService struct {
	drafts draftStore
}

// NewDraftService constructs a DraftService.
func NewDraftService(drafts draftStore) *DraftService {
	return &DraftService{drafts: drafts}
}

// Save stores the draft of kind.
func (s *DraftService) Save(ctx context.Context, businessID, userID int, kind string, data json.RawMessage) (*cache.Draft, error) {
	k, err := cache.ParseDraftKind(kind)
	if err != nil {
		return nil, err
	}
	if len(data) > MaxDraftBytes {
		return nil, fmt.Errorf("draft exceeds %d bytes: %w", MaxDraftBytes, utils.ErrInvalidInput)
	}
	return s.drafts.Save(ctx, businessID, userID, k, data)
}

// Load returns the draft of kind.
func (s *DraftService) Load(ctx context.Context, businessID, userID int, kind string) (*cache.Draft, error) {
	k, err := cache.ParseDraftKind(kind)
	if err != nil {
		return nil, err
	}
	return s.drafts.Load(ctx, businessID, userID, k)
}

// Clear removes the draft of kind.
func (s *DraftService) Clear(ctx context.Context, businessID, userID int, kind string) error {
	k, err := cache.ParseDraftKind(kind)
	if err != nil {
		return err
	}
	return s.drafts.Clear(ctx, businessID, userID, k)
}
