package service

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GTDGit/gtd_dashboard/internal/cache"
	"github.com/GTDGit/gtd_dashboard/internal/utils"
)

func newDraftService(t *testing.T) *DraftService {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewDraftService(cache.NewDraftCache(cache.WrapRedisClient(client)))
}

func TestDraftService_RoundTrip(t *testing.T) {
	svc := newDraftService(t)
	ctx := context.Background()

	_, err := svc.Save(ctx, 1, 2, "invoice_draft", json.RawMessage(`{"customerId":5}`))
	require.NoError(t, err)

	d, err := svc.Load(ctx, 1, 2, "invoice_draft")
	require.NoError(t, err)
	assert.JSONEq(t, `{"customerId":5}`, string(d.Data))

	require.NoError(t, svc.Clear(ctx, 1, 2, "invoice_draft"))
	_, err = svc.Load(ctx, 1, 2, "invoice_draft")
	assert.ErrorIs(t, err, utils.ErrNotFound)
}

func TestDraftService_RejectsUnknownKindAndOversize(t *testing.T) {
	svc := newDraftService(t)
	ctx := context.Background()

	_, err := svc.Save(ctx, 1, 2, "passwords", json.RawMessage(`{}`))
	assert.ErrorIs(t, err, utils.ErrInvalidInput)

	big := json.RawMessage(`"` + strings.Repeat("a", MaxDraftBytes) + `"`)
	_, err = svc.Save(ctx, 1, 2, "cart", big)
	assert.ErrorIs(t, err, utils.ErrInvalidInput)
}
