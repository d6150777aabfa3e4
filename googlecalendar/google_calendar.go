package googlecalendar

import (
	"context"
	"encoding/json"
	"os"

	"github.com/pkg/errors"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"campus-timetable/config"
	"campus-timetable/logger"
)

// AuthCodeFunc shows authURL to the user and returns the code they paste back.
type AuthCodeFunc func(authURL string) (string, error)

func getConfig(cfg config.Google) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		RedirectURL:  cfg.RedirectURI,
		Scopes:       []string{calendar.CalendarEventsScope},
		Endpoint:     google.Endpoint,
	}
}

// getToken returns the cached token, asking for a new authorization when
// there is none.
func getToken(ctx context.Context, oauthConfig *oauth2.Config, tokenFile string, getAuthCode AuthCodeFunc, log logger.Logger) (*oauth2.Token, error) {
	tok, err := tokenFromFile(tokenFile)
	if err == nil {
		return tok, nil
	}
	if !os.IsNotExist(errors.Cause(err)) {
		log.Warn("ignoring unreadable oauth token", err, map[string]interface{}{"path": tokenFile})
	}

	authURL := oauthConfig.AuthCodeURL("state-token", oauth2.AccessTypeOffline)
	code, err := getAuthCode(authURL)
	if err != nil {
		return nil, errors.Wrap(err, "get authorization code")
	}
	tok, err = oauthConfig.Exchange(ctx, code)
	if err != nil {
		return nil, errors.Wrap(err, "exchange authorization code")
	}
	if err := saveToken(tokenFile, tok); err != nil {
		return nil, err
	}
	log.Info("saved oauth token", map[string]interface{}{"path": tokenFile})
	return tok, nil
}

func tokenFromFile(file string) (*oauth2.Token, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	defer f.Close()
	tok := &oauth2.Token{}
	if err := json.NewDecoder(f).Decode(tok); err != nil {
		return nil, errors.Wrapf(err, "decode %s", file)
	}
	return tok, nil
}

func saveToken(path string, token *oauth2.Token) error {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return errors.Wrap(err, "cache oauth token")
	}
	defer f.Close()
	return errors.Wrap(json.NewEncoder(f).Encode(token), "encode oauth token")
}

// GetCalendarService builds an authorized Calendar client. Refreshed tokens
// are handled by the oauth2 token source.
func GetCalendarService(ctx context.Context, cfg config.Google, getAuthCode AuthCodeFunc, log logger.Logger) (*calendar.Service, error) {
	if log == nil {
		log = logger.Discard
	}
	oauthConfig := getConfig(cfg)
	tok, err := getToken(ctx, oauthConfig, cfg.TokenFile, getAuthCode, log)
	if err != nil {
		return nil, err
	}
	srv, err := calendar.NewService(ctx, option.WithTokenSource(oauthConfig.TokenSource(ctx, tok)))
	if err != nil {
		return nil, errors.Wrap(err, "create calendar client")
	}
	return srv, nil
}
