package service

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"io"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/nacl/secretbox"

	"github.com/forgo/modhub/internal/model"
)

const nonceSize = 24

// TokenVault seals and opens per-user GitHub tokens with a shared secret key.
// Sealed values are base64(nonce || secretbox).
type TokenVault struct {
	key [32]byte
}

// NewTokenVault creates a vault from a hex-encoded 32 byte key
func NewTokenVault(hexKey string) (*TokenVault, error) {
	raw, err := hex.DecodeString(hexKey)
	if err != nil || len(raw) != 32 {
		return nil, ErrInvalidVaultKey
	}
	v := &TokenVault{}
	copy(v.key[:], raw)
	return v, nil
}

// Seal encrypts token
func (v *TokenVault) Seal(token string) (string, error) {
	var nonce [nonceSize]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}
	box := secretbox.Seal(nonce[:], []byte(token), &nonce, &v.key)
	return base64.StdEncoding.EncodeToString(box), nil
}

// Open decrypts a value produced by Seal
func (v *TokenVault) Open(sealed string) (string, error) {
	box, err := base64.StdEncoding.DecodeString(sealed)
	if err != nil || len(box) < nonceSize+secretbox.Overhead {
		return "", ErrSealedToken
	}
	var nonce [nonceSize]byte
	copy(nonce[:], box[:nonceSize])

	plain, ok := secretbox.Open(nil, box[nonceSize:], &nonce, &v.key)
	if !ok {
		return "", ErrSealedToken
	}
	return string(plain), nil
}

// UserTokenRepository reads sealed per-user tokens
type UserTokenRepository interface {
	GetByUserID(ctx context.Context, userID string) (*model.UserGitHubToken, error)
}

// TokenSource picks the GitHub token used on behalf of a job's actor
type TokenSource interface {
	Token(ctx context.Context, actor string) string
}

// TokenResolverConfig holds dependencies for TokenResolver
type TokenResolverConfig struct {
	Repo UserTokenRepository

	// Vault may be nil, in which case per-user tokens are never used
	Vault *TokenVault

	// Fallback is used for SYSTEM jobs and users without a stored token
	Fallback string

	Logger logrus.FieldLogger
}

// TokenResolver prefers the actor's own token over the process-wide one
type TokenResolver struct {
	repo     UserTokenRepository
	vault    *TokenVault
	fallback string
	log      logrus.FieldLogger
}

// NewTokenResolver creates a new token resolver
func NewTokenResolver(cfg TokenResolverConfig) *TokenResolver {
	log := cfg.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &TokenResolver{
		repo:     cfg.Repo,
		vault:    cfg.Vault,
		fallback: cfg.Fallback,
		log:      log,
	}
}

// Token returns the token for actor. An empty result means unauthenticated requests.
func (r *TokenResolver) Token(ctx context.Context, actor string) string {
	if actor == "" || actor == model.SystemActor || r.repo == nil || r.vault == nil {
		return r.fallback
	}

	stored, err := r.repo.GetByUserID(ctx, actor)
	if err != nil {
		r.log.WithField("user_id", actor).WithError(err).Warn("failed to load user github token")
		return r.fallback
	}
	if stored == nil || stored.SealedToken == "" {
		return r.fallback
	}

	token, err := r.vault.Open(stored.SealedToken)
	if err != nil {
		r.log.WithField("user_id", actor).WithError(err).Warn("failed to open user github token")
		return r.fallback
	}
	return token
}

// StaticToken is a TokenSource that always returns the same token
type StaticToken string

// Token implements TokenSource
func (s StaticToken) Token(context.Context, string) string { return string(s) }
