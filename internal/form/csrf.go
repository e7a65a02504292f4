// internal/form/csrf.go
//
// Serenity – Forms subsystem: stateless CSRF token utilities.
//
// Context
//   Pages embed a hidden `csrf_token` input generated at render time, and
//   the JSON API expects the same token in the X-CSRF-Token header.  The
//   server verifies it on every state-changing request.  We implement a
//   *stateless* token bound to the visitor's form session:
//
//      base64url( nonce | unixMicro | HMAC_SHA256(secret, nonce+unixMicro+sid) )
//
//   •  nonce – 16 random bytes.
//   •  unixMicro – microseconds since Unix epoch, 8 bytes, big-endian.
//   •  sid – the form session ID from the cookie.  Not stored in the token;
//      a token minted for one session fails for every other.
//
//   Validation checks the signature and ensures the timestamp is within
//   MaxAge.  No server-side state is required.
//
// Workflow
//   •  SetKey(cfg.Contact.CSRFKey) once at startup.
//   •  GenerateToken(sid)      → token string for renderer.
//   •  VerifyToken(tok, sid)   → constant-time verify; false on any failure.
//
//------------------------------------------------------------------------------

package form

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	tokenBytes = 16 + 8 + sha256.Size // nonce + ts + sig
	minKeyLen  = 32
)

// MaxAge bounds how long a rendered form stays submittable.
const MaxAge = 2 * time.Hour

var (
	secretMu      sync.RWMutex
	secretKey     []byte
	ephemeralOnce sync.Once
)

// SetKey installs the HMAC key.  key is base64url (padding optional) and
// must decode to at least 32 bytes.  An empty key installs a random one
// that dies with the process, which is fine for a single instance in
// development and wrong for anything behind a load balancer.
func SetKey(key string) error {
	var b []byte
	if key == "" {
		b = make([]byte, minKeyLen)
		if _, err := rand.Read(b); err != nil {
			return err
		}
		zap.S().Warnw("contact.csrf_key not set, using an ephemeral key")
	} else {
		var err error
		b, err = base64.RawURLEncoding.DecodeString(trimPad(key))
		if err != nil {
			return fmt.Errorf("csrf key: %w", err)
		}
		if len(b) < minKeyLen {
			return fmt.Errorf("csrf key: %d bytes, want at least %d", len(b), minKeyLen)
		}
	}

	secretMu.Lock()
	secretKey = b
	secretMu.Unlock()
	return nil
}

// GenerateToken creates a new CSRF token for sid.  Call once per render.
func GenerateToken(sid string) (string, error) {
	return generateAt(sid, time.Now())
}

func generateAt(sid string, now time.Time) (string, error) {
	nonce := make([]byte, 16)
	if _, err := rand.Read(nonce); err != nil {
		return "", err
	}

	ts := make([]byte, 8)
	binary.BigEndian.PutUint64(ts, uint64(now.UnixMicro()))

	buf := make([]byte, 0, tokenBytes)
	buf = append(buf, nonce...)
	buf = append(buf, ts...)
	buf = append(buf, sign(nonce, ts, sid)...)

	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// VerifyToken returns true if tok was minted for sid and passes the age
// check.
func VerifyToken(tok, sid string) bool {
	if tok == "" || sid == "" {
		return false
	}
	raw, err := base64.RawURLEncoding.DecodeString(tok)
	if err != nil || len(raw) != tokenBytes {
		return false
	}

	nonce := raw[:16]
	tsBytes := raw[16:24]
	sig := raw[24:]

	// Timestamp window check.
	issued := time.UnixMicro(int64(binary.BigEndian.Uint64(tsBytes)))
	if time.Since(issued) > MaxAge || time.Until(issued) > time.Minute {
		// Future timestamp (clock skew) or older than MaxAge.
		return false
	}

	return hmac.Equal(sig, sign(nonce, tsBytes, sid))
}

func sign(nonce, ts []byte, sid string) []byte {
	secretMu.RLock()
	key := secretKey
	secretMu.RUnlock()
	if key == nil {
		// SetKey was never called; tests and tools get an ephemeral key.
		ephemeralOnce.Do(func() { _ = SetKey("") })
		secretMu.RLock()
		key = secretKey
		secretMu.RUnlock()
	}

	mac := hmac.New(sha256.New, key)
	mac.Write(nonce)
	mac.Write(ts)
	mac.Write([]byte(sid))
	return mac.Sum(nil)
}

func trimPad(s string) string {
	for len(s) > 0 && s[len(s)-1] == '=' {
		s = s[:len(s)-1]
	}
	return s
}
