package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/GTDGit/gtd_dashboard/internal/utils"
)

// DraftKind names a persisted piece of in-progress dashboard state.
type DraftKind string

const (
	DraftInvoice          DraftKind = "invoice_draft"
	DraftProduct          DraftKind = "product_draft"
	DraftSelectedCustomer DraftKind = "selected_customer"
	DraftCart             DraftKind = "cart"
)

// DraftTTL is how long an untouched draft survives.
const DraftTTL = 7 * 24 * time.Hour

// ParseDraftKind validates a kind received from a request path.
func ParseDraftKind(raw string) (DraftKind, error) {
	switch k := DraftKind(raw); k {
	case DraftInvoice, DraftProduct, DraftSelectedCustomer, DraftCart:
		return k, nil
	default:
		return "", fmt.Errorf("unknown draft kind %q: %w", raw, utils.ErrInvalidInput)
	}
}

// Draft is a stored JSON blob with its save time.
type Draft struct {
	Kind    DraftKind       `json:"kind"`
	Data    json.RawMessage `json:"data"`
	SavedAt time.Time       `json:"savedAt"`
}

// DraftCache stores per-user drafts scoped to a business.
type DraftCache struct {
	redis *RedisClient
	ttl   time.Duration
}

// NewDraftCache creates a new DraftCache.
func NewDraftCache(redis *RedisClient) *DraftCache {
	return &DraftCache{redis: redis, ttl: DraftTTL}
}

func (c *DraftCache) key(businessID, userID int, kind DraftKind) string {
	return fmt.Sprintf("draft:%d:%d:%s", businessID, userID, kind)
}

// Save stores data for kind, replacing any previous draft and resetting its TTL.
func (c *DraftCache) Save(ctx context.Context, businessID, userID int, kind DraftKind, data json.RawMessage) (*Draft, error) {
	if _, err := ParseDraftKind(string(kind)); err != nil {
		return nil, err
	}
	if !json.Valid(data) {
		return nil, fmt.Errorf("draft body is not valid JSON: %w", utils.ErrInvalidInput)
	}

	d := &Draft{Kind: kind, Data: data, SavedAt: time.Now().UTC()}
	raw, err := json.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal draft: %w", err)
	}
	if err := c.redis.Set(ctx, c.key(businessID, userID, kind), string(raw), c.ttl); err != nil {
		return nil, fmt.Errorf("failed to store draft: %w", err)
	}
	return d, nil
}

// Load returns the stored draft or utils.ErrNotFound.
func (c *DraftCache) Load(ctx context.Context, businessID, userID int, kind DraftKind) (*Draft, error) {
	if _, err := ParseDraftKind(string(kind)); err != nil {
		return nil, err
	}
	raw, err := c.redis.Get(ctx, c.key(businessID, userID, kind))
	if errors.Is(err, ErrCacheMiss) {
		return nil, fmt.Errorf("draft %s: %w", kind, utils.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load draft: %w", err)
	}

	var d Draft
	if err := json.Unmarshal([]byte(raw), &d); err != nil {
		return nil, fmt.Errorf("failed to unmarshal draft: %w", err)
	}
	return &d, nil
}

// Clear removes a draft. Clearing a missing draft is not an error.
func (c *DraftCache) Clear(ctx context.Context, businessID, userID int, kind DraftKind) error {
	if _, err := ParseDraftKind(string(kind)); err != nil {
		return err
	}
	return c.redis.Delete(ctx, c.key(businessID, userID, kind))
}
