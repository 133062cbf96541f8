package mail

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sync"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/gmail/v1"
)

var ErrNotAuthorized = errors.New("gmail is not authorized")

// NewOAuthClient returns an HTTP client authorized with the client secrets in
// credentialsPath and the token stored at tokenPath. Refreshed tokens are
// written back to tokenPath. Obtaining the first token is left to the
// operator.
func NewOAuthClient(ctx context.Context, credentialsPath, tokenPath string) (*http.Client, error) {
	secrets, err := os.ReadFile(credentialsPath)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read credentials: %v", ErrNotAuthorized, err)
	}

	config, err := google.ConfigFromJSON(secrets, gmail.GmailReadonlyScope)
	if err != nil {
		return nil, fmt.Errorf("failed to parse credentials: %w", err)
	}

	token, err := readToken(tokenPath)
	if err != nil {
		return nil, err
	}

	source := &persistingTokenSource{
		base: config.TokenSource(ctx, token),
		path: tokenPath,
		last: token.AccessToken,
	}

	return oauth2.NewClient(ctx, oauth2.ReuseTokenSource(token, source)), nil
}

func readToken(path string) (*oauth2.Token, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read token: %v", ErrNotAuthorized, err)
	}

	var token oauth2.Token
	if err := json.Unmarshal(data, &token); err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}
	if token.AccessToken == "" && token.RefreshToken == "" {
		return nil, fmt.Errorf("%w: token file %s holds no token", ErrNotAuthorized, path)
	}

	return &token, nil
}

func writeToken(path string, token *oauth2.Token) error {
	data, err := json.Marshal(token)
	if err != nil {
		return fmt.Errorf("failed to encode token: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write token: %w", err)
	}
	return nil
}

type persistingTokenSource struct {
	base oauth2.TokenSource
	path string

	mu   sync.Mutex
	last string
}

func (s *persistingTokenSource) Token() (*oauth2.Token, error) {
	token, err := s.base.Token()
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if token.AccessToken != s.last {
		if err := writeToken(s.path, token); err != nil {
			slog.Warn("Failed to persist refreshed gmail token", "path", s.path, "error", err)
		} else {
			slog.Debug("Gmail token refreshed", "expiry", token.Expiry)
		}
		s.last = token.AccessToken
	}

	return token, nil
}
