package auth

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/sdejongh/drivesync/pkg/models"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// LoginOptions controls the interactive first-run flow
type LoginOptions struct {
	// Out receives the consent URL and instructions
	Out io.Writer
	// OpenURL is called with the consent URL, e.g. to launch a browser.
	// A failure is not fatal: the user can still open the printed URL.
	OpenURL func(url string) error
	// Timeout bounds the wait for the browser redirect (default 5 minutes)
	Timeout time.Duration
}

// ConfigFromCredentials reads an OAuth client secrets file (credentials.json)
func ConfigFromCredentials(path string) (*oauth2.Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &models.AuthError{Op: "credentials", Path: path, Err: err}
	}

	cfg, err := google.ConfigFromJSON(data, DriveReadonlyScope)
	if err != nil {
		return nil, &models.AuthError{Op: "credentials", Path: path, Err: err}
	}
	return cfg, nil
}

type callbackResult struct {
	code string
	err  error
}

// Login runs the installed-app flow: a loopback listener on an ephemeral
// port receives the authorization code, which is exchanged with PKCE.
func Login(ctx context.Context, cfg *oauth2.Config, opts LoginOptions) (*oauth2.Token, error) {
	if opts.Out == nil {
		opts.Out = os.Stderr
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 5 * time.Minute
	}

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, &models.AuthError{Op: "login", Err: fmt.Errorf("failed to start callback listener: %w", err)}
	}
	defer listener.Close()

	flowCfg := *cfg
	flowCfg.RedirectURL = fmt.Sprintf("http://%s/", listener.Addr().String())

	state := uuid.NewString()
	verifier := oauth2.GenerateVerifier()
	authURL := flowCfg.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.S256ChallengeOption(verifier))

	results := make(chan callbackResult, 1)
	server := &http.Server{
		Handler:           callbackHandler(state, results),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go server.Serve(listener)
	defer server.Close()

	fmt.Fprintf(opts.Out, "Open this URL in a browser to authorize read-only Drive access:\n\n  %s\n\n", authURL)
	if opts.OpenURL != nil {
		if err := opts.OpenURL(authURL); err != nil {
			fmt.Fprintf(opts.Out, "Could not open a browser automatically: %v\n", err)
		}
	}

	waitCtx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()

	var result callbackResult
	select {
	case result = <-results:
	case <-waitCtx.Done():
		return nil, &models.AuthError{Op: "login", Err: fmt.Errorf("waiting for authorization: %w", waitCtx.Err())}
	}
	if result.err != nil {
		return nil, &models.AuthError{Op: "login", Err: result.err}
	}

	tok, err := flowCfg.Exchange(ctx, result.code, oauth2.VerifierOption(verifier))
	if err != nil {
		return nil, &models.AuthError{Op: "exchange", Err: err}
	}
	return tok, nil
}

func callbackHandler(state string, results chan<- callbackResult) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()

		var res callbackResult
		switch {
		case q.Get("state") != state:
			http.Error(w, "state mismatch", http.StatusBadRequest)
			return
		case q.Get("error") != "":
			res.err = fmt.Errorf("authorization denied: %s", q.Get("error"))
		case q.Get("code") == "":
			res.err = errors.New("authorization response carried no code")
		default:
			res.code = q.Get("code")
		}

		if res.err != nil {
			http.Error(w, res.err.Error(), http.StatusBadRequest)
		} else {
			fmt.Fprintln(w, "Authorization complete. You can close this window.")
		}

		select {
		case results <- res:
		default:
		}
	})
}
