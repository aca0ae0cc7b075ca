package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envelope(w http.ResponseWriter, status int, data interface{}, meta map[string]interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	body := map[string]interface{}{"success": status < 400, "code": status, "message": "ok", "data": data, "meta": meta}
	if status >= 400 {
		body["error"] = map[string]string{"code": "NOT_FOUND", "message": "not found"}
	}
	json.NewEncoder(w).Encode(body)
}

func fakeAPI(t *testing.T) *httptest.Server {
	t.Helper()
	var draft json.RawMessage
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/customers", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		assert.Equal(t, "3", r.Header.Get("X-Business-Id"))
		envelope(w, http.StatusOK, []map[string]interface{}{
			{"id": 1, "firstName": "Ada", "lastName": "Lovelace", "email": "ada@example.com"},
		}, map[string]interface{}{"pagination": map[string]int{"page": 1, "limit": 20, "totalItems": 1, "totalPages": 1}})
	})
	mux.HandleFunc("/v1/chats", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("page") == "1" {
			envelope(w, http.StatusOK, []map[string]interface{}{
				{"id": 1, "name": "Ada", "lastMessageAt": "2026-03-01T10:00:00Z"},
				{"id": 2, "name": "Team", "isGroup": true, "lastMessageAt": "2026-03-01T09:00:00Z"},
			}, map[string]interface{}{"pagination": map[string]int{"page": 1, "limit": 2, "totalItems": 3, "totalPages": 2}})
			return
		}
		envelope(w, http.StatusOK, []map[string]interface{}{
			{"id": 2, "name": "Team", "isGroup": true, "lastMessageAt": "2026-03-01T11:00:00Z"},
			{"id": 3, "name": "Grace", "lastMessageAt": "2026-03-01T08:00:00Z"},
		}, map[string]interface{}{"pagination": map[string]int{"page": 2, "limit": 2, "totalItems": 3, "totalPages": 2}})
	})
	mux.HandleFunc("/v1/drafts/cart", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPut:
			draft, _ = io.ReadAll(r.Body)
			envelope(w, http.StatusOK, map[string]interface{}{"kind": "cart", "data": draft, "savedAt": "2026-03-01T10:00:00Z"}, nil)
		case http.MethodGet:
			if draft == nil {
				envelope(w, http.StatusNotFound, nil, nil)
				return
			}
			envelope(w, http.StatusOK, map[string]interface{}{"kind": "cart", "data": draft}, nil)
		}
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	var out bytes.Buffer
	cmd := newRootCommand(&out)
	cmd.SetArgs(args)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetErr(io.Discard)
	err := cmd.Execute()
	return out.String(), err
}

func TestCustomersList(t *testing.T) {
	srv := fakeAPI(t)
	out, err := run(t, "", "customers", "list", "--url", srv.URL, "--token", "tok", "--business", "3")
	require.NoError(t, err)
	assert.Contains(t, out, "Ada Lovelace")
	assert.Contains(t, out, "ada@example.com")
	assert.Contains(t, out, "page 1/1, 1 customers")
}

func TestMissingToken(t *testing.T) {
	_, err := run(t, "", "customers", "list", "--url", "http://127.0.0.1:1", "--business", "3")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "token is required")
}

func TestEnvironmentSettings(t *testing.T) {
	srv := fakeAPI(t)
	t.Setenv("DASHCTL_URL", srv.URL)
	t.Setenv("DASHCTL_TOKEN", "tok")
	t.Setenv("DASHCTL_BUSINESS", "3")

	out, err := run(t, "", "customers", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "ada@example.com")
}

func TestChatsListMergesPages(t *testing.T) {
	srv := fakeAPI(t)
	out, err := run(t, "", "chats", "list", "--limit", "2", "--url", srv.URL, "--token", "tok", "--business", "3")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 4)
	assert.True(t, strings.HasPrefix(lines[1], "2 "), lines[1])
	assert.True(t, strings.HasPrefix(lines[2], "1 "), lines[2])
	assert.True(t, strings.HasPrefix(lines[3], "3 "), lines[3])
}

func TestDraftsWithProfile(t *testing.T) {
	srv := fakeAPI(t)
	profile := filepath.Join(t.TempDir(), "profile.yaml")
	require.NoError(t, os.WriteFile(profile, []byte(fmt.Sprintf("url: %s\ntoken: tok\nbusiness: 3\n", srv.URL)), 0o600))

	_, err := run(t, "", "drafts", "get", "cart", "--config", profile)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "NOT_FOUND")

	out, err := run(t, `{"items":[{"productId":4,"qty":2}]}`, "drafts", "put", "cart", "-", "--config", profile)
	require.NoError(t, err)
	assert.Contains(t, out, "saved cart")

	out, err = run(t, "", "drafts", "get", "cart", "--config", profile)
	require.NoError(t, err)
	assert.Contains(t, out, `"productId": 4`)

	_, err = run(t, "not json", "drafts", "put", "cart", "-", "--config", profile)
	require.Error(t, err)
}

func TestMissingProfileFile(t *testing.T) {
	_, err := run(t, "", "drafts", "get", "cart", "--config", filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config")
}
