package uploader

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/pkg/errors"
)

var apiBaseURL = "https://api.github.com" // mockable

type GitHubUploadRequest struct {
	Message string `json:"message"`
	Content string `json:"content"`
	SHA     string `json:"sha,omitempty"`
}

type contentsResponse struct {
	SHA string `json:"sha"`
}

var client = &http.Client{Timeout: 30 * time.Second}

// UploadToGitHub publishes filename to path in repo through the contents
// API, replacing the file when it already exists.
func UploadToGitHub(ctx context.Context, token, repo, path, filename string) error {
	fileContent, err := os.ReadFile(filename)
	if err != nil {
		return errors.Wrap(err, "read upload file")
	}

	uploadURL := fmt.Sprintf("%s/repos/%s/contents/%s", apiBaseURL, repo, path)
	sha, err := existingSHA(ctx, token, uploadURL)
	if err != nil {
		return err
	}

	bodyJSON, err := json.Marshal(GitHubUploadRequest{
		Message: "Update " + path,
		Content: base64.StdEncoding.EncodeToString(fileContent),
		SHA:     sha,
	})
	if err != nil {
		return errors.Wrap(err, "encode upload request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, uploadURL, bytes.NewReader(bodyJSON))
	if err != nil {
		return errors.Wrap(err, "create upload request")
	}
	setHeaders(req, token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return errors.Wrap(err, "upload to github")
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		respBody, _ := io.ReadAll(resp.Body)
		return errors.Errorf("github upload failed with status %d: %s", resp.StatusCode, respBody)
	}
	return nil
}

// existingSHA returns the blob sha of the current file, or "" when there is none.
func existingSHA(ctx context.Context, token, contentsURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, contentsURL, nil)
	if err != nil {
		return "", errors.Wrap(err, "create contents request")
	}
	setHeaders(req, token)

	resp, err := client.Do(req)
	if err != nil {
		return "", errors.Wrap(err, "query github contents")
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return "", nil
	case resp.StatusCode >= 400:
		respBody, _ := io.ReadAll(resp.Body)
		return "", errors.Errorf("github contents lookup failed with status %d: %s", resp.StatusCode, respBody)
	}
	var c contentsResponse
	if err := json.NewDecoder(resp.Body).Decode(&c); err != nil {
		return "", errors.Wrap(err, "decode github contents")
	}
	return c.SHA, nil
}

func setHeaders(req *http.Request, token string) {
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/vnd.github+json")
}
