package service

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GTDGit/gtd_dashboard/internal/config"
)

func testS3Config(endpoint string) *config.S3Config {
	return &config.S3Config{
		Region:          "ap-southeast-3",
		Bucket:          "dash-exports",
		Endpoint:        endpoint,
		AccessKeyID:     "AKIDEXAMPLE",
		SecretAccessKey: "secret",
		PresignTTL:      15 * time.Minute,
	}
}

func TestNewS3Service_RequiresBucket(t *testing.T) {
	_, err := NewS3Service(context.Background(), &config.S3Config{Region: "us-east-1"})
	assert.Error(t, err)
}

func TestS3Service_PresignGet(t *testing.T) {
	svc, err := NewS3Service(context.Background(), testS3Config("http://minio.local:9000"))
	require.NoError(t, err)

	url, expires, err := svc.PresignGet(context.Background(), "exports/4/customers-1.csv")
	require.NoError(t, err)
	assert.Contains(t, url, "http://minio.local:9000/dash-exports/exports/4/customers-1.csv")
	assert.Contains(t, url, "X-Amz-Expires=900")
	assert.WithinDuration(t, time.Now().Add(15*time.Minute), expires, 5*time.Second)
}

func TestS3Service_Put(t *testing.T) {
	var gotPath, gotBody, gotType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotType = r.Header.Get("Content-Type")
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	svc, err := NewS3Service(context.Background(), testS3Config(srv.URL))
	require.NoError(t, err)

	require.NoError(t, svc.Put(context.Background(), "exports/1/c.csv", "text/csv", []byte("email\na@b.co\n")))
	assert.Equal(t, "/dash-exports/exports/1/c.csv", gotPath)
	assert.Equal(t, "text/csv", gotType)
	assert.Contains(t, gotBody, "a@b.co")
}
