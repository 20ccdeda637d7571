package auth

import (
	"context"
	"errors"
	"io/fs"
	"net/http"
	"os"
	"sync"

	"github.com/sdejongh/drivesync/pkg/models"
	"golang.org/x/oauth2"
)

// Client returns an HTTP client authorized for Drive. An existing token file
// is used and kept up to date on refresh; without one, the interactive login
// runs against credentialsPath and its result is saved to tokenPath.
// An expired token that cannot be refreshed is reported as *models.AuthError.
func Client(ctx context.Context, tokenPath, credentialsPath string, opts LoginOptions) (*http.Client, error) {
	st, err := LoadToken(tokenPath)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
		if st, err = Bootstrap(ctx, tokenPath, credentialsPath, opts); err != nil {
			return nil, err
		}
	}

	cfg := st.Config()
	source := &savingSource{
		base: oauth2.ReuseTokenSource(st.OAuth2Token(), cfg.TokenSource(ctx, st.OAuth2Token())),
		cfg:  cfg,
		path: tokenPath,
		last: st.Token,
	}

	// Refresh now so a revoked grant fails before any listing starts
	if _, err := source.Token(); err != nil {
		return nil, err
	}
	return oauth2.NewClient(ctx, source), nil
}

// Bootstrap runs the interactive login and saves the resulting token
func Bootstrap(ctx context.Context, tokenPath, credentialsPath string, opts LoginOptions) (*StoredToken, error) {
	if credentialsPath == "" {
		return nil, &models.AuthError{Op: "login", Path: tokenPath, Err: ErrNoCredentials}
	}
	if _, err := os.Stat(credentialsPath); err != nil {
		return nil, &models.AuthError{Op: "credentials", Path: credentialsPath, Err: err}
	}

	cfg, err := ConfigFromCredentials(credentialsPath)
	if err != nil {
		return nil, err
	}

	tok, err := Login(ctx, cfg, opts)
	if err != nil {
		return nil, err
	}

	st := NewStoredToken(cfg, tok)
	if err := SaveToken(tokenPath, st); err != nil {
		return nil, err
	}
	return st, nil
}

// savingSource writes refreshed tokens back to the token file
type savingSource struct {
	mu   sync.Mutex
	base oauth2.TokenSource
	cfg  *oauth2.Config
	path string
	last string
}

func (s *savingSource) Token() (*oauth2.Token, error) {
	tok, err := s.base.Token()
	if err != nil {
		return nil, &models.AuthError{Op: "refresh", Path: s.path, Err: err}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if tok.AccessToken != s.last {
		s.last = tok.AccessToken
		// A failed save only costs a refresh on the next run
		_ = SaveToken(s.path, NewStoredToken(s.cfg, tok))
	}
	return tok, nil
}
