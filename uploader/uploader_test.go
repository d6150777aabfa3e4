package uploader

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withAPI(t *testing.T, handler http.HandlerFunc) {
	srv := httptest.NewServer(handler)
	old := apiBaseURL
	apiBaseURL = srv.URL
	t.Cleanup(func() {
		apiBaseURL = old
		srv.Close()
	})
}

func writeICS(t *testing.T) string {
	path := filepath.Join(t.TempDir(), "timetable.ics")
	require.NoError(t, os.WriteFile(path, []byte("BEGIN:VCALENDAR\r\nEND:VCALENDAR\r\n"), 0o644))
	return path
}

func TestUploadToGitHub(t *testing.T) {
	tests := []struct {
		name    string
		sha     string
		wantSHA string
	}{
		{name: "new file", sha: "", wantSHA: ""},
		{name: "replace file", sha: "abc123", wantSHA: "abc123"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var got GitHubUploadRequest
			withAPI(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/repos/me/cal/contents/ics/timetable.ics", r.URL.Path)
				assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
				switch r.Method {
				case http.MethodGet:
					if tc.sha == "" {
						w.WriteHeader(http.StatusNotFound)
						return
					}
					_ = json.NewEncoder(w).Encode(contentsResponse{SHA: tc.sha})
				case http.MethodPut:
					assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
					w.WriteHeader(http.StatusCreated)
				}
			})

			err := UploadToGitHub(context.Background(), "tok", "me/cal", "ics/timetable.ics", writeICS(t))
			require.NoError(t, err)

			assert.Equal(t, tc.wantSHA, got.SHA)
			content, err := base64.StdEncoding.DecodeString(got.Content)
			require.NoError(t, err)
			assert.Contains(t, string(content), "BEGIN:VCALENDAR")
		})
	}
}

func TestUploadToGitHubFailure(t *testing.T) {
	withAPI(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		http.Error(w, "bad credentials", http.StatusUnauthorized)
	})

	err := UploadToGitHub(context.Background(), "tok", "me/cal", "timetable.ics", writeICS(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}
