package backend

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"alarmsync/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(baseURL string, routes Routes) *HTTPClient {
	logger := zerolog.New(io.Discard)
	return NewHTTPClient(baseURL, routes, time.Second, 0, 0, &logger)
}

func testOp(kind string) models.Operation {
	return models.Operation{ID: "op-1", Kind: kind, Payload: []byte(`{"hour":7}`)}
}

func TestDeliverSuccess(t *testing.T) {
	var gotPath, gotID, gotKind string
	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotID = r.Header.Get("X-Operation-Id")
		gotKind = r.Header.Get("X-Operation-Kind")
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := newTestClient(srv.URL, Routes{"alarm_create": "/api/v1/alarms"})
	err := client.Deliver(context.Background(), testOp("alarm_create"))
	require.NoError(t, err)

	assert.Equal(t, "/api/v1/alarms", gotPath)
	assert.Equal(t, "op-1", gotID)
	assert.Equal(t, "alarm_create", gotKind)
	assert.Equal(t, `{"hour":7}`, string(gotBody))
}

func TestDeliverDefaultRoute(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	client := newTestClient(srv.URL, Routes{})
	err := client.Deliver(context.Background(), testOp("unmapped_kind"))
	require.NoError(t, err)
	assert.Equal(t, defaultPath, gotPath)
}

func TestDeliverClassification(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		transient bool
		permanent bool
	}{
		{"ServerError", http.StatusInternalServerError, true, false},
		{"BadGateway", http.StatusBadGateway, true, false},
		{"TooManyRequests", http.StatusTooManyRequests, true, false},
		{"BadRequest", http.StatusBadRequest, false, true},
		{"Conflict", http.StatusConflict, false, true},
		{"NotFound", http.StatusNotFound, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer srv.Close()

			client := newTestClient(srv.URL, nil)
			err := client.Deliver(context.Background(), testOp("alarm_create"))
			require.Error(t, err)
			assert.Equal(t, tt.transient, models.IsTransient(err))
			assert.Equal(t, tt.permanent, models.IsPermanent(err))
		})
	}
}

func TestDeliverConnectionFailureIsTransient(t *testing.T) {
	client := newTestClient("http://127.0.0.1:1", nil)
	err := client.Deliver(context.Background(), testOp("alarm_create"))
	require.Error(t, err)
	assert.True(t, models.IsTransient(err))
}

func TestLoadRoutes(t *testing.T) {
	t.Run("ValidFile", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "routes.yaml")
		content := "routes:\n  alarm_create: /api/v1/alarms\n  voice_setting: /api/v1/voice\n"
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

		routes, err := LoadRoutes(path)
		require.NoError(t, err)
		assert.Equal(t, "/api/v1/alarms", routes["alarm_create"])
		assert.Equal(t, "/api/v1/voice", routes["voice_setting"])
	})

	t.Run("MissingFileIsEmpty", func(t *testing.T) {
		routes, err := LoadRoutes(filepath.Join(t.TempDir(), "nope.yaml"))
		require.NoError(t, err)
		assert.Empty(t, routes)
	})

	t.Run("RelativePathRejected", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "routes.yaml")
		require.NoError(t, os.WriteFile(path, []byte("routes:\n  x: api/no-slash\n"), 0o644))
		_, err := LoadRoutes(path)
		assert.Error(t, err)
	})
}
