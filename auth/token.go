package auth

import (
	"context"
	"errors"
	"fmt"
	"os"

	"ai-scorecard/config"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// Scope required to read the Admin Reports audit feed.
const reportsScope = "https://www.googleapis.com/auth/admin.reports.audit.readonly"

var (
	ErrNoCredentials = errors.New("no service account credentials configured")
	ErrNoSubject     = errors.New("no delegation subject configured")
)

// TokenProvider supplies bearer tokens for the reporting API. The rest of
// the system treats authentication as this single opaque operation.
type TokenProvider interface {
	Token(ctx context.Context) (string, error)
}

// ServiceAccount obtains tokens from a Google service-account key with
// domain-wide delegation to a workspace admin.
type ServiceAccount struct {
	source oauth2.TokenSource
}

// NewServiceAccount loads the key from inline JSON when present, falling
// back to the key file on disk.
func NewServiceAccount(cfg config.GoogleConfig) (*ServiceAccount, error) {
	if cfg.Subject == "" {
		return nil, ErrNoSubject
	}

	data := []byte(cfg.CredentialsJSON)
	if len(data) == 0 {
		if cfg.CredentialsFile == "" {
			return nil, ErrNoCredentials
		}
		var err error
		data, err = os.ReadFile(cfg.CredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("reading service account key: %w", err)
		}
	}

	jwtCfg, err := google.JWTConfigFromJSON(data, reportsScope)
	if err != nil {
		return nil, fmt.Errorf("parsing service account key: %w", err)
	}
	// The reports feed is only readable when impersonating an admin.
	jwtCfg.Subject = cfg.Subject

	return &ServiceAccount{source: jwtCfg.TokenSource(context.Background())}, nil
}

// Token returns a valid access token, refreshing it when expired.
func (s *ServiceAccount) Token(ctx context.Context) (string, error) {
	tok, err := s.source.Token()
	if err != nil {
		return "", fmt.Errorf("refreshing access token: %w", err)
	}
	return tok.AccessToken, nil
}

// StaticToken is a fixed-token provider for tests and local development
// against a mock feed.
type StaticToken string

func (s StaticToken) Token(ctx context.Context) (string, error) {
	return string(s), nil
}
