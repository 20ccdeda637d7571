// Package auth loads, refreshes and bootstraps the OAuth credentials used
// to reach Google Drive.
package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sdejongh/drivesync/pkg/models"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// DriveReadonlyScope is the only scope a mirror needs
const DriveReadonlyScope = "https://www.googleapis.com/auth/drive.readonly"

// ErrNoCredentials is returned when no token exists and no client secrets
// file was given to create one
var ErrNoCredentials = errors.New("no token found; a credentials file is needed for the first login")

// expiryLayouts accepts RFC 3339 and the zone-less form written by
// google-auth ("2024-05-01T10:00:00.123456Z")
var expiryLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999Z",
	"2006-01-02T15:04:05.999999",
}

// StoredToken is the authorized-user document kept in token.json.
// The layout is shared with google-auth so existing token files keep working.
type StoredToken struct {
	Token        string   `json:"token"`
	RefreshToken string   `json:"refresh_token"`
	TokenURI     string   `json:"token_uri"`
	ClientID     string   `json:"client_id"`
	ClientSecret string   `json:"client_secret"`
	Scopes       []string `json:"scopes,omitempty"`
	Expiry       string   `json:"expiry,omitempty"`
}

// LoadToken reads a token file
func LoadToken(path string) (*StoredToken, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &models.AuthError{Op: "load", Path: path, Err: err}
	}

	var st StoredToken
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, &models.AuthError{Op: "load", Path: path, Err: fmt.Errorf("failed to parse token: %w", err)}
	}
	if st.RefreshToken == "" && st.Token == "" {
		return nil, &models.AuthError{Op: "load", Path: path, Err: errors.New("token file holds neither an access nor a refresh token")}
	}
	if st.RefreshToken != "" && st.ClientID == "" {
		return nil, &models.AuthError{Op: "load", Path: path, Err: errors.New("refresh token without client_id")}
	}
	return &st, nil
}

// SaveToken writes a token file readable only by the owner
func SaveToken(path string, st *StoredToken) error {
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return &models.AuthError{Op: "save", Path: path, Err: err}
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return &models.AuthError{Op: "save", Path: path, Err: err}
		}
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return &models.AuthError{Op: "save", Path: path, Err: err}
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return &models.AuthError{Op: "save", Path: path, Err: err}
	}
	return nil
}

// NewStoredToken captures a token together with the client it belongs to
func NewStoredToken(cfg *oauth2.Config, tok *oauth2.Token) *StoredToken {
	st := &StoredToken{
		Token:        tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		TokenURI:     cfg.Endpoint.TokenURL,
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Scopes:       cfg.Scopes,
	}
	if !tok.Expiry.IsZero() {
		st.Expiry = tok.Expiry.UTC().Format(time.RFC3339)
	}
	return st
}

// Config rebuilds the OAuth client the token was issued to
func (st *StoredToken) Config() *oauth2.Config {
	endpoint := google.Endpoint
	if st.TokenURI != "" {
		endpoint.TokenURL = st.TokenURI
	}
	scopes := st.Scopes
	if len(scopes) == 0 {
		scopes = []string{DriveReadonlyScope}
	}
	return &oauth2.Config{
		ClientID:     st.ClientID,
		ClientSecret: st.ClientSecret,
		Endpoint:     endpoint,
		Scopes:       scopes,
	}
}

// OAuth2Token converts the stored document into an oauth2 token.
// An unparseable expiry is treated as expired so the token gets refreshed.
func (st *StoredToken) OAuth2Token() *oauth2.Token {
	tok := &oauth2.Token{
		AccessToken:  st.Token,
		RefreshToken: st.RefreshToken,
		TokenType:    "Bearer",
	}
	if st.Expiry == "" {
		return tok
	}

	tok.Expiry = time.Unix(1, 0)
	for _, layout := range expiryLayouts {
		if t, err := time.Parse(layout, strings.TrimSpace(st.Expiry)); err == nil {
			tok.Expiry = t
			break
		}
	}
	return tok
}
