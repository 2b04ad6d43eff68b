// internal/form/csrf.go
//
// Stateless CSRF tokens for HTML forms.
//
// Context
//   The selection page embeds a hidden `csrf_token` input generated at
//   render time.  The server verifies it on POST.  The
//   token is bound to the session id, so a token lifted from one browser is
//   useless in another:
//
//      base64url( nonce | unixMicro | HMAC_SHA256(secret, sid+nonce+unixMicro) )
//
//   •  nonce – 16 random bytes.
//   •  unixMicro – microseconds since Unix epoch, 8 bytes, big-endian.
//
//   Verification checks the signature and that the timestamp is within
//   MaxAge.  Nothing is stored server-side.
//
//------------------------------------------------------------------------------

package form

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"time"
)

// FieldName is the hidden input carrying the token.
const FieldName = "csrf_token"

// MaxAge is the token validity window.
const MaxAge = 2 * time.Hour

const tokenBytes = 16 + 8 + sha256.Size // nonce + ts + sig

// ErrShortSecret is returned for secrets under 32 bytes.
var ErrShortSecret = errors.New("form: csrf secret must be at least 32 bytes")

// CSRF issues and verifies tokens with one secret.
type CSRF struct {
	secret []byte
	now    func() time.Time
}

// NewCSRF returns a CSRF keyed by secret.
func NewCSRF(secret []byte) (*CSRF, error) {
	if len(secret) < 32 {
		return nil, ErrShortSecret
	}
	return &CSRF{secret: secret, now: time.Now}, nil
}

// Generate creates a token for session sid.  Call once per form render.
func (c *CSRF) Generate(sid string) (string, error) {
	nonce := make([]byte, 16)
	if _, err := rand.Read(nonce); err != nil {
		return "", err
	}
	ts := make([]byte, 8)
	binary.BigEndian.PutUint64(ts, uint64(c.now().UnixMicro()))

	buf := make([]byte, 0, tokenBytes)
	buf = append(buf, nonce...)
	buf = append(buf, ts...)
	buf = append(buf, c.mac(sid, nonce, ts)...)
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// Verify reports whether tok was issued for sid and is still fresh.
func (c *CSRF) Verify(sid, tok string) bool {
	raw, err := base64.RawURLEncoding.DecodeString(tok)
	if err != nil || len(raw) != tokenBytes {
		return false
	}
	nonce, ts, sig := raw[:16], raw[16:24], raw[24:]

	issued := time.UnixMicro(int64(binary.BigEndian.Uint64(ts)))
	now := c.now()
	if now.Sub(issued) > MaxAge || issued.Sub(now) > time.Minute {
		return false
	}
	return hmac.Equal(sig, c.mac(sid, nonce, ts))
}

func (c *CSRF) mac(sid string, nonce, ts []byte) []byte {
	m := hmac.New(sha256.New, c.secret)
	m.Write([]byte(sid))
	m.Write(nonce)
	m.Write(ts)
	return m.Sum(nil)
}
