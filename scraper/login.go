package scraper

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/pkg/errors"

	"campus-timetable/logger"
)

const DefaultLoginURL = "https://uis.fudan.edu.cn/authserver/login"

var ErrLoginFailed = errors.New("login failed, check username and password")

// StatusError is returned for non-2xx responses.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s returned status %d", e.URL, e.StatusCode)
}

// PortalAuthenticator keeps a cookie session with the institutional login
// page and logs in lazily before the first request.
type PortalAuthenticator struct {
	client   *http.Client
	loginURL string
	username string
	password string
	logger   logger.Logger

	mu       sync.Mutex
	loggedIn bool
	// generation counts successful logins; requests remember the one they were sent under.
	generation uint64
}

var _ Authenticator = (*PortalAuthenticator)(nil)

func NewPortalAuthenticator(loginURL, username, password string, log logger.Logger) (*PortalAuthenticator, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, errors.Wrap(err, "cookiejar.New")
	}
	if log == nil {
		log = logger.Discard
	}
	client := &http.Client{
		Jar:     jar,
		Timeout: 30 * time.Second,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= 10 {
				return errors.New("stopped after 10 redirects")
			}
			req.Header.Set("User-Agent", userAgent)
			return nil
		},
	}
	return &PortalAuthenticator{
		client:   client,
		loginURL: loginURL,
		username: username,
		password: password,
		logger:   log,
	}, nil
}

// Login fetches the login page for its cookies and hidden fields, then
// posts the credentials to the form action.
func (a *PortalAuthenticator) Login(ctx context.Context) error {
	page, err := newGetRequest(ctx, a.loginURL)
	if err != nil {
		return err
	}
	body, finalURL, err := a.do(page)
	if err != nil {
		return errors.Wrap(err, "fetch login page")
	}

	form, action, err := parseLoginForm(body, finalURL)
	if err != nil {
		return err
	}
	form.Set("username", a.username)
	form.Set("password", a.password)

	post, err := newFormRequest(ctx, action, form)
	if err != nil {
		return err
	}
	post.Header.Set("Referer", finalURL.String())
	result, _, err := a.do(post)
	if err != nil {
		return errors.Wrap(err, "submit login form")
	}

	// the portal answers a failed login with the login form again
	if hasPasswordField(result) {
		return ErrLoginFailed
	}
	a.logger.Info("logged in", map[string]interface{}{"user": a.username})
	return nil
}

func (a *PortalAuthenticator) ensureLogin(ctx context.Context) (uint64, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.loggedIn {
		return a.generation, nil
	}
	return a.loginLocked(ctx)
}

// relogin logs in again unless another request already did so after the
// session seen was established.
func (a *PortalAuthenticator) relogin(ctx context.Context, seen uint64) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.loggedIn && a.generation != seen {
		return nil
	}
	_, err := a.loginLocked(ctx)
	return err
}

func (a *PortalAuthenticator) loginLocked(ctx context.Context) (uint64, error) {
	a.loggedIn = false
	if err := a.Login(ctx); err != nil {
		return 0, err
	}
	a.loggedIn = true
	a.generation++
	return a.generation, nil
}

// Authenticate performs req with the logged-in session. If the session has
// expired and the portal serves the login page instead, it logs in again
// and replays req once.
func (a *PortalAuthenticator) Authenticate(ctx context.Context, req *http.Request) ([]byte, error) {
	seen, err := a.ensureLogin(ctx)
	if err != nil {
		return nil, err
	}
	body, finalURL, err := a.do(req.WithContext(ctx))
	if err != nil {
		return nil, err
	}
	if !a.isLoginPage(finalURL, body) {
		return body, nil
	}

	a.logger.Debug("session expired, logging in again", map[string]interface{}{"url": req.URL.String()})
	if err := a.relogin(ctx, seen); err != nil {
		return nil, err
	}
	replay, err := cloneRequest(ctx, req)
	if err != nil {
		return nil, err
	}
	body, _, err = a.do(replay)
	return body, err
}

func (a *PortalAuthenticator) isLoginPage(finalURL *url.URL, body []byte) bool {
	login, err := url.Parse(a.loginURL)
	if err != nil || finalURL == nil {
		return false
	}
	return finalURL.Host == login.Host && finalURL.Path == login.Path && hasPasswordField(body)
}

func (a *PortalAuthenticator) do(req *http.Request) ([]byte, *url.URL, error) {
	resp, err := a.client.Do(req)
	if err != nil {
		return nil, nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "read %s", req.URL)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, nil, &StatusError{URL: req.URL.String(), StatusCode: resp.StatusCode}
	}
	return body, resp.Request.URL, nil
}

func cloneRequest(ctx context.Context, req *http.Request) (*http.Request, error) {
	clone := req.Clone(ctx)
	if req.Body == nil || req.GetBody == nil {
		return clone, nil
	}
	body, err := req.GetBody()
	if err != nil {
		return nil, errors.Wrap(err, "replay request body")
	}
	clone.Body = body
	return clone, nil
}

// parseLoginForm returns the hidden inputs of the first form on the page
// and its action resolved against base.
func parseLoginForm(body []byte, base *url.URL) (url.Values, string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, "", errors.Wrap(err, "parse login page")
	}
	form := doc.Find("form").First()
	if form.Length() == 0 {
		return nil, "", errors.New("login page has no form")
	}

	values := url.Values{}
	form.Find(`input[type="hidden"]`).Each(func(_ int, s *goquery.Selection) {
		if name, ok := s.Attr("name"); ok && name != "" {
			values.Set(name, s.AttrOr("value", ""))
		}
	})

	action := base
	if raw, ok := form.Attr("action"); ok && raw != "" {
		ref, err := url.Parse(raw)
		if err != nil {
			return nil, "", errors.Wrapf(err, "login form action %q", raw)
		}
		action = base.ResolveReference(ref)
	}
	return values, action.String(), nil
}

func hasPasswordField(body []byte) bool {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return false
	}
	return doc.Find(`input[type="password"]`).Length() > 0
}
