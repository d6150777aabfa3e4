package scraper

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/pkg/errors"
)

// Authenticator performs a request on behalf of a logged-in user and returns
// the response body. Implementations log in transparently when needed and
// fail on transport errors and non-2xx responses.
type Authenticator interface {
	Authenticate(ctx context.Context, req *http.Request) ([]byte, error)
}

// AuthenticatorFunc adapts a function to Authenticator.
type AuthenticatorFunc func(ctx context.Context, req *http.Request) ([]byte, error)

func (f AuthenticatorFunc) Authenticate(ctx context.Context, req *http.Request) ([]byte, error) {
	return f(ctx, req)
}

const userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"

func newGetRequest(ctx context.Context, rawURL string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, errors.Wrapf(err, "build GET %s", rawURL)
	}
	addBrowserHeaders(req)
	return req, nil
}

func newFormRequest(ctx context.Context, rawURL string, form url.Values) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, rawURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, errors.Wrapf(err, "build POST %s", rawURL)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	addBrowserHeaders(req)
	return req, nil
}

// some portals answer 403 to clients that do not look like a browser
func addBrowserHeaders(req *http.Request) {
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/json;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "zh-CN,zh;q=0.9,en;q=0.5")
}
