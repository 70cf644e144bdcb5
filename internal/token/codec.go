// Package token mints and verifies opaque view tokens and derives the salted
// one-way hashes stored alongside them. Nothing here performs I/O.
package token

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"strings"
	"unicode/utf8"
)

const (
	SignatureLength   = 48
	HashLength        = 24
	FingerprintMaxLen = 128

	separator = "."
)

var ErrMissingSalt = errors.New("token: VIEW_SALT is not configured")

type Codec struct {
	salt []byte
}

func NewCodec(salt string) (*Codec, error) {
	if strings.TrimSpace(salt) == "" {
		return nil, ErrMissingSalt
	}
	return &Codec{salt: []byte(salt)}, nil
}

func (c *Codec) mac(value string) string {
	h := hmac.New(sha256.New, c.salt)
	h.Write([]byte(value))
	return hex.EncodeToString(h.Sum(nil))
}

// SignTokenID returns the truncated HMAC-SHA256 signature of id.
func (c *Codec) SignTokenID(id string) string {
	return c.mac(id)[:SignatureLength]
}

func (c *Codec) BuildViewTokenValue(id string) string {
	return id + separator + c.SignTokenID(id)
}

// ParseViewToken returns the token id when the signature checks out.
// Malformed input runs the same HMAC and comparison as a wrong signature.
func (c *Codec) ParseViewToken(value string) (string, bool) {
	id, sig, found := strings.Cut(value, separator)

	expected := c.SignTokenID(id)

	var given [SignatureLength]byte
	copy(given[:], sig)

	sameLen := subtle.ConstantTimeEq(int32(len(sig)), SignatureLength)
	sameSig := subtle.ConstantTimeCompare(given[:], []byte(expected))

	wellFormed := 0
	if found && id != "" && !strings.Contains(sig, separator) {
		wellFormed = 1
	}

	if sameLen&sameSig&wellFormed != 1 {
		return "", false
	}
	return id, true
}

// ComputeIPHash returns a salted one-way hash of ip, or "" when ip is blank.
func (c *Codec) ComputeIPHash(ip string) string {
	return c.hashWithPrefix("ip:", ip)
}

// ComputeUAHash returns a salted one-way hash of ua, or "" when ua is blank.
func (c *Codec) ComputeUAHash(ua string) string {
	return c.hashWithPrefix("ua:", ua)
}

func (c *Codec) hashWithPrefix(prefix, value string) string {
	if strings.TrimSpace(value) == "" {
		return ""
	}
	return c.mac(prefix + value)[:HashLength]
}

// NormalizeFingerprint trims fp and caps it at FingerprintMaxLen characters.
func NormalizeFingerprint(fp string) string {
	fp = strings.TrimSpace(fp)
	if utf8.RuneCountInString(fp) <= FingerprintMaxLen {
		return fp
	}
	return string([]rune(fp)[:FingerprintMaxLen])
}
