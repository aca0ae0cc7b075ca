package cache

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GTDGit/gtd_dashboard/internal/utils"
)

func setupTestRedis(t *testing.T) (*RedisClient, *miniredis.Miniredis) {
	mr, err := miniredis.Run()
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		client.Close()
		mr.Close()
	})
	return WrapRedisClient(client), mr
}

func TestParseDraftKind(t *testing.T) {
	for _, k := range []string{"invoice_draft", "product_draft", "selected_customer", "cart"} {
		kind, err := ParseDraftKind(k)
		require.NoError(t, err)
		assert.Equal(t, DraftKind(k), kind)
	}

	_, err := ParseDraftKind("profile")
	assert.ErrorIs(t, err, utils.ErrInvalidInput)
}

func TestDraftCache_RoundTrip(t *testing.T) {
	rc, mr := setupTestRedis(t)
	drafts := NewDraftCache(rc)
	ctx := context.Background()

	body := json.RawMessage(`{"customerId":7,"items":[{"description":"Consulting","quantity":2}]}`)
	saved, err := drafts.Save(ctx, 3, 11, DraftInvoice, body)
	require.NoError(t, err)
	assert.Equal(t, DraftInvoice, saved.Kind)

	assert.True(t, mr.Exists("draft:3:11:invoice_draft"))
	assert.Equal(t, DraftTTL, mr.TTL("draft:3:11:invoice_draft"))

	loaded, err := drafts.Load(ctx, 3, 11, DraftInvoice)
	require.NoError(t, err)
	assert.JSONEq(t, string(body), string(loaded.Data))
}

func TestDraftCache_ScopedPerUserAndBusiness(t *testing.T) {
	rc, _ := setupTestRedis(t)
	drafts := NewDraftCache(rc)
	ctx := context.Background()

	_, err := drafts.Save(ctx, 1, 1, DraftCart, json.RawMessage(`[1,2]`))
	require.NoError(t, err)

	_, err = drafts.Load(ctx, 2, 1, DraftCart)
	assert.ErrorIs(t, err, utils.ErrNotFound)
	_, err = drafts.Load(ctx, 1, 2, DraftCart)
	assert.ErrorIs(t, err, utils.ErrNotFound)
}

func TestDraftCache_Clear(t *testing.T) {
	rc, _ := setupTestRedis(t)
	drafts := NewDraftCache(rc)
	ctx := context.Background()

	_, err := drafts.Save(ctx, 1, 1, DraftProduct, json.RawMessage(`{"name":"Mug"}`))
	require.NoError(t, err)
	require.NoError(t, drafts.Clear(ctx, 1, 1, DraftProduct))
	require.NoError(t, drafts.Clear(ctx, 1, 1, DraftProduct))

	_, err = drafts.Load(ctx, 1, 1, DraftProduct)
	assert.ErrorIs(t, err, utils.ErrNotFound)
}

func TestDraftCache_RejectsBadInput(t *testing.T) {
	rc, _ := setupTestRedis(t)
	drafts := NewDraftCache(rc)
	ctx := context.Background()

	_, err := drafts.Save(ctx, 1, 1, DraftKind("theme"), json.RawMessage(`{}`))
	assert.ErrorIs(t, err, utils.ErrInvalidInput)

	_, err = drafts.Save(ctx, 1, 1, DraftCart, json.RawMessage(`{not json`))
	assert.ErrorIs(t, err, utils.ErrInvalidInput)
}

func TestDraftCache_Expires(t *testing.T) {
	rc, mr := setupTestRedis(t)
	drafts := NewDraftCache(rc)
	ctx := context.Background()

	_, err := drafts.Save(ctx, 1, 1, DraftSelectedCustomer, json.RawMessage(`{"id":4}`))
	require.NoError(t, err)

	mr.FastForward(DraftTTL + time.Second)

	_, err = drafts.Load(ctx, 1, 1, DraftSelectedCustomer)
	assert.ErrorIs(t, err, utils.ErrNotFound)
}

func TestRedisClient_IncrWindow(t *testing.T) {
	rc, mr := setupTestRedis(t)
	ctx := context.Background()

	n, err := rc.IncrWindow(ctx, "login:a@b.c", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = rc.IncrWindow(ctx, "login:a@b.c", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.Equal(t, time.Minute, mr.TTL("login:a@b.c"))

	mr.FastForward(time.Minute + time.Second)
	n, err = rc.IncrWindow(ctx, "login:a@b.c", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}
