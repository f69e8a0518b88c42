package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/erudika/para-client-go/pkg/paraclient"
	"github.com/spf13/afero"
	"go.uber.org/zap"
)

var _ paraclient.TokenStore = (*TokenRepository)(nil)

// TokenRepository keeps the JWT of one app in a file so that the CLI stays
// signed in between runs.
type TokenRepository struct {
	store *jsonFileStore
	name  string
}

// NewTokenRepository stores the token of accessKey under dir
func NewTokenRepository(fs afero.Fs, dir, accessKey string, logger *zap.Logger) *TokenRepository {
	return &TokenRepository{
		store: newJSONFileStore(fs, dir, logger),
		name:  tokenFilename(accessKey),
	}
}

// Load returns the stored token or nil if there is none
func (r *TokenRepository) Load(ctx context.Context) (*paraclient.Token, error) {
	var token paraclient.Token
	if err := r.store.read(ctx, r.name, &token); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	if token.AccessToken == "" {
		return nil, nil
	}
	return &token, nil
}

// Save replaces the stored token. A nil token clears it.
func (r *TokenRepository) Save(ctx context.Context, token *paraclient.Token) error {
	if token == nil {
		return r.Clear(ctx)
	}
	return r.store.write(ctx, r.name, token, time.Now())
}

func (r *TokenRepository) Clear(ctx context.Context) error {
	return r.store.remove(ctx, r.name)
}

// tokenFilename maps an access key such as "app:myapp" to a safe file name
func tokenFilename(accessKey string) string {
	key := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '.':
			return r
		default:
			return '_'
		}
	}, strings.TrimSpace(accessKey))
	if key == "" {
		key = "default"
	}
	return "token-" + key + ".json"
}
