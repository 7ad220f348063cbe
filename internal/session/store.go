package session

import (
	"crypto/sha256"
	"fmt"
	"io"
	"net/http"
	"time"

	apperrors "github.com/jrsteele09/funeral-coordinator/internal/errors"
	"github.com/jrsteele09/funeral-coordinator/internal/signedcookie"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/hkdf"
)

// Options configures a session store.
type Options struct {
	Secret string        // CANVA_SESSION_SECRET; an empty secret disables the store
	TTL    time.Duration // Cookie Max-Age; zero uses the store default
	Secure bool          // Set the Secure attribute (production)
}

// Store persists a value of type T in one signed cookie.
type Store[T any] struct {
	name   string
	key    []byte
	ttl    time.Duration
	secure bool
	accept func(*T) bool
}

// NewPkceStore returns the store for the handshake cookie. Sessions older
// than the TTL are rejected on load even if the browser still sends them.
func NewPkceStore(opts Options) *Store[PkceSession] {
	s := newStore[PkceSession](PkceCookieName, opts, PkceTTL)
	s.accept = func(p *PkceSession) bool {
		return !p.IsStale(s.ttl)
	}
	return s
}

// NewTokenStore returns the store for the credentials cookie.
func NewTokenStore(opts Options) *Store[TokenSession] {
	s := newStore[TokenSession](TokenCookieName, opts, TokenTTL)
	s.accept = func(t *TokenSession) bool {
		return t.AccessToken != ""
	}
	return s
}

func newStore[T any](name string, opts Options, defaultTTL time.Duration) *Store[T] {
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &Store[T]{
		name:   name,
		key:    deriveKey(opts.Secret, name),
		ttl:    ttl,
		secure: opts.Secure,
	}
}

func (s *Store[T]) Name() string {
	return s.name
}

func (s *Store[T]) TTL() time.Duration {
	return s.ttl
}

// Save signs v and writes it to the jar, replacing any previous value.
func (s *Store[T]) Save(jar Jar, v *T) error {
	if s.key == nil {
		return apperrors.Wrapf(apperrors.ErrNotConfigured, "[Store.Save] %s", s.name)
	}
	value, err := signedcookie.Encode(v, s.key)
	if err != nil {
		return fmt.Errorf("[Store.Save] %s: %w", s.name, err)
	}
	jar.Set(&http.Cookie{
		Name:     s.name,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(s.ttl.Seconds()),
	})
	return nil
}

// Load returns the stored value, or nil when the cookie is absent, fails
// verification, or the store has no secret.
func (s *Store[T]) Load(jar Jar) *T {
	if s.key == nil {
		return nil
	}
	raw, ok := jar.Get(s.name)
	if !ok {
		return nil
	}
	v, ok := signedcookie.Decode[T](raw, s.key)
	if !ok {
		log.Debug().Str("cookie", s.name).Msg("Ignoring cookie that failed verification")
		return nil
	}
	if s.accept != nil && !s.accept(v) {
		log.Debug().Str("cookie", s.name).Msg("Ignoring rejected session cookie")
		return nil
	}
	return v
}

// Clear expires the cookie. Clearing an absent cookie is harmless.
func (s *Store[T]) Clear(jar Jar) {
	jar.Delete(s.name)
}

// deriveKey gives each cookie its own MAC key so one cookie's value can never
// verify as another's.
func deriveKey(secret, name string) []byte {
	if secret == "" {
		return nil
	}
	key := make([]byte, sha256.Size)
	if _, err := io.ReadFull(hkdf.New(sha256.New, []byte(secret), nil, []byte(name)), key); err != nil {
		return nil
	}
	return key
}
