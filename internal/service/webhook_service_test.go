package service

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GTDGit/gtd_dashboard/internal/models"
	"github.com/GTDGit/gtd_dashboard/internal/utils"
)

var webhookNow = time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

func newWebhookFixture(callbackURL string) (*WebhookService, *fakeWebhookStore) {
	businesses := newFakeBusinesses(&models.Business{ID: 1, CallbackURL: callbackURL, WebhookSecret: "gd_secret_test"})
	store := &fakeWebhookStore{}
	svc := NewWebhookService(businesses, store)
	svc.now = func() time.Time { return webhookNow }
	return svc, store
}

func TestWebhookService_DispatchQueuesDelivery(t *testing.T) {
	svc, store := newWebhookFixture("https://shop.example.com/hooks")

	err := svc.Dispatch(context.Background(), 1, models.EventInvoicePaid, map[string]int{"id": 7})
	require.NoError(t, err)

	require.Len(t, store.created, 1)
	d := store.created[0]
	assert.Equal(t, models.EventInvoicePaid, d.Event)
	assert.Equal(t, 0, d.Attempt)
	require.NotNil(t, d.NextRetryAt)
	assert.Equal(t, webhookNow, *d.NextRetryAt)

	var payload struct {
		Event string         `json:"event"`
		Data  map[string]int `json:"data"`
	}
	require.NoError(t, json.Unmarshal(d.Payload, &payload))
	assert.Equal(t, models.EventInvoicePaid, payload.Event)
	assert.Equal(t, 7, payload.Data["id"])
}

func TestWebhookService_DispatchSkipsWithoutCallback(t *testing.T) {
	svc, store := newWebhookFixture("")
	require.NoError(t, svc.Dispatch(context.Background(), 1, models.EventInvoicePaid, nil))
	assert.Empty(t, store.created)
}

func TestWebhookService_DeliverPendingSignsPayload(t *testing.T) {
	var gotSig, gotEvent string
	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSig = r.Header.Get(utils.SignatureHeader)
		gotEvent = r.Header.Get("X-Webhook-Event")
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	svc, store := newWebhookFixture(srv.URL)
	payload := []byte(`{"event":"payment.successful"}`)
	store.pending = []models.WebhookDelivery{{ID: 11, BusinessID: 1, Event: models.EventPaymentSuccessful, Payload: payload}}

	n, err := svc.DeliverPending(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	assert.Equal(t, utils.SignWebhook(payload, "gd_secret_test", webhookNow), gotSig)
	assert.NoError(t, utils.VerifyWebhook(payload, gotSig, "gd_secret_test", time.Minute, webhookNow))
	assert.Equal(t, models.EventPaymentSuccessful, gotEvent)
	assert.Equal(t, payload, gotBody)

	require.Len(t, store.updated, 1)
	d := store.updated[0]
	assert.True(t, d.IsDelivered)
	assert.Equal(t, 1, d.Attempt)
	assert.Nil(t, d.NextRetryAt)
	require.NotNil(t, d.HTTPStatus)
	assert.Equal(t, http.StatusNoContent, *d.HTTPStatus)
}

func TestWebhookService_DeliverPendingSchedulesRetry(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down for maintenance", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	svc, store := newWebhookFixture(srv.URL)
	store.pending = []models.WebhookDelivery{{ID: 12, BusinessID: 1, Event: models.EventInvoicePaid, Payload: []byte(`{}`), Attempt: 2}}

	n, err := svc.DeliverPending(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	d := store.updated[0]
	assert.False(t, d.IsDelivered)
	assert.Equal(t, 3, d.Attempt)
	require.NotNil(t, d.NextRetryAt)
	assert.Equal(t, webhookNow.Add(5*time.Minute), *d.NextRetryAt)
	require.NotNil(t, d.ResponseBody)
	assert.True(t, strings.HasPrefix(*d.ResponseBody, "down for maintenance"))
}

func TestWebhookService_LastAttemptStopsRetrying(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	svc, store := newWebhookFixture(srv.URL)
	store.pending = []models.WebhookDelivery{{ID: 13, BusinessID: 1, Payload: []byte(`{}`), Attempt: MaxWebhookAttempts - 1}}

	_, err := svc.DeliverPending(context.Background())
	require.NoError(t, err)
	assert.Equal(t, MaxWebhookAttempts, store.updated[0].Attempt)
	assert.Nil(t, store.updated[0].NextRetryAt)
}

func TestWebhookService_NextRetryTime(t *testing.T) {
	svc, _ := newWebhookFixture("")
	want := []time.Duration{30 * time.Second, time.Minute, 5 * time.Minute, 30 * time.Minute, 2 * time.Hour}
	for i, d := range want {
		assert.Equal(t, webhookNow.Add(d), svc.nextRetryTime(i+1))
	}
	assert.True(t, svc.nextRetryTime(0).IsZero())
	assert.True(t, svc.nextRetryTime(len(want)+1).IsZero())
}
