// internal/session/store.go
//
// Signed, encrypted cookie codec.
//
// Context
//   Every session in the storefront lives entirely in the browser.  A Store
//   serialises a record to JSON, encrypts it with AES-256, signs it with
//   HMAC-SHA256 (gorilla/securecookie), and renders the `Set-Cookie` value.
//   Keys are derived per secret with HKDF so operators can supply any
//   passphrase.
//
//   Secrets are ordered newest first.  Encoding always uses the first one;
//   decoding accepts any, which is what makes rotation painless.
//
// Failure model
//   Decode never returns an error.  A missing, expired, tampered, or
//   foreign-key cookie reports ok == false and the caller falls back to its
//   zero record.
//
// Style
//   Two-space sentence spacing, Oxford comma, terse inline notes.
//
//------------------------------------------------------------------------------

package session

import (
	"crypto/sha256"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gorilla/securecookie"
	"go.uber.org/zap"
	"golang.org/x/crypto/hkdf"

	"github.com/yanizio/storefront/internal/metrics"
)

// ErrNoSecrets is returned by NewStore when the secret list is empty.
var ErrNoSecrets = errors.New("session: at least one secret is required")

// CookieOptions describes the cookie a Store emits.
type CookieOptions struct {
	Name     string
	Path     string
	HTTPOnly bool
	Secure   bool
	SameSite http.SameSite
	MaxAge   int // seconds; 0 means a browser-session cookie
}

// Store is safe for concurrent use.  Zero value is invalid.
type Store struct {
	opts   CookieOptions
	codecs []securecookie.Codec
}

// NewStore builds a codec per secret.  secrets[0] signs new cookies.
func NewStore(opts CookieOptions, secrets []string) (*Store, error) {
	if len(secrets) == 0 {
		return nil, ErrNoSecrets
	}
	if opts.Path == "" {
		opts.Path = "/"
	}

	codecs := make([]securecookie.Codec, 0, len(secrets))
	for _, sec := range secrets {
		if sec == "" {
			continue
		}
		hashKey, blockKey, err := deriveKeys(sec, opts.Name)
		if err != nil {
			return nil, err
		}
		sc := securecookie.New(hashKey, blockKey)
		sc.SetSerializer(securecookie.JSONEncoder{})
		sc.MaxAge(opts.MaxAge)
		codecs = append(codecs, sc)
	}
	if len(codecs) == 0 {
		return nil, ErrNoSecrets
	}
	return &Store{opts: opts, codecs: codecs}, nil
}

// Name returns the cookie name.
func (s *Store) Name() string { return s.opts.Name }

// Decode reads the store's cookie out of a raw `Cookie` header into dst.
func (s *Store) Decode(cookieHeader string, dst any) bool {
	if cookieHeader == "" {
		return false
	}
	// A throwaway request reuses net/http's lenient cookie parser.
	r := http.Request{Header: http.Header{"Cookie": {cookieHeader}}}
	c, err := r.Cookie(s.opts.Name)
	if err != nil || c.Value == "" {
		return false
	}
	if err := securecookie.DecodeMulti(s.opts.Name, c.Value, dst, s.codecs...); err != nil {
		metrics.SessionDecodeFailuresTotal.WithLabelValues(s.opts.Name).Inc()
		zap.L().Debug("session cookie rejected",
			zap.String("cookie", s.opts.Name),
			zap.Error(err))
		return false
	}
	return true
}

// Encode signs v with the newest secret and returns a `Set-Cookie` value.
func (s *Store) Encode(v any) (string, error) {
	val, err := s.codecs[0].Encode(s.opts.Name, v)
	if err != nil {
		return "", err
	}
	c := s.cookie(val)
	c.MaxAge = s.opts.MaxAge
	return c.String(), nil
}

// Clear returns a `Set-Cookie` value that deletes the cookie.
func (s *Store) Clear() string {
	c := s.cookie("")
	c.MaxAge = -1
	c.Expires = time.Unix(0, 0)
	return c.String()
}

func (s *Store) cookie(value string) *http.Cookie {
	return &http.Cookie{
		Name:     s.opts.Name,
		Value:    value,
		Path:     s.opts.Path,
		HttpOnly: s.opts.HTTPOnly,
		Secure:   s.opts.Secure,
		SameSite: s.opts.SameSite,
	}
}

// deriveKeys expands secret into a 64-byte HMAC key and a 32-byte AES key.
// The cookie name is mixed in so two stores never share keys.
func deriveKeys(secret, name string) (hashKey, blockKey []byte, err error) {
	r := hkdf.New(sha256.New, []byte(secret), nil, []byte("storefront-session:"+name))
	hashKey = make([]byte, 64)
	blockKey = make([]byte, 32)
	if _, err = io.ReadFull(r, hashKey); err != nil {
		return nil, nil, err
	}
	if _, err = io.ReadFull(r, blockKey); err != nil {
		return nil, nil, err
	}
	return hashKey, blockKey, nil
}
