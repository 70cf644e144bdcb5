// Package keys builds every keyed-store key used by viewguard. Callers never
// concatenate key strings themselves.
package keys

import (
	"strconv"
	"strings"
	"time"
)

type Key string

func (k Key) String() string { return string(k) }

const (
	prefixViewToken = "viewtoken"
	prefixDedup     = "dedup:view"
	prefixAuth      = "view:auth"
	prefixGuest     = "view:guest"
	prefixIssue     = "issue:view"
	prefixFraud     = "fraud"

	unknownAnchor = "unknown"
)

func join(parts ...string) Key {
	return Key(strings.Join(parts, ":"))
}

func ViewToken(tokenID string) Key {
	return join(prefixViewToken, tokenID)
}

func Dedup(tokenID string) Key {
	return join(prefixDedup, tokenID)
}

func AuthPerPrompt(userID, promptID string) Key {
	return join(prefixAuth, userID, promptID)
}

func AuthGlobal(userID string, bucket int64) Key {
	return join(prefixAuth, "global", userID, strconv.FormatInt(bucket, 10))
}

func GuestFingerprint(fp, promptID string) Key {
	return join(prefixGuest, "fp", fp, promptID)
}

func GuestIPUA(ipHash, uaHash, promptID string) Key {
	return join(prefixGuest, "ipua", ipHash, uaHash, promptID)
}

func GuestIP(ipHash, promptID string) Key {
	return join(prefixGuest, "ip", ipHash, promptID)
}

func GuestGlobal(anchor string, bucket int64) Key {
	return join(prefixGuest, "global", anchor, strconv.FormatInt(bucket, 10))
}

func IssueAuth(userID string, bucket int64) Key {
	return join(prefixIssue, "auth", userID, strconv.FormatInt(bucket, 10))
}

func IssueGuest(anchor string, bucket int64) Key {
	return join(prefixIssue, "guest", anchor, strconv.FormatInt(bucket, 10))
}

func FraudIPMinute(ipHash string, bucket int64) Key {
	return join(prefixFraud, "ip", "m", ipHash, strconv.FormatInt(bucket, 10))
}

func FraudIPHour(ipHash string, bucket int64) Key {
	return join(prefixFraud, "ip", "h", ipHash, strconv.FormatInt(bucket, 10))
}

func FraudUserHour(userID string, bucket int64) Key {
	return join(prefixFraud, "user", "h", userID, strconv.FormatInt(bucket, 10))
}

func FraudPattern(ipHash, uaHash string, bucket int64) Key {
	return join(prefixFraud, "pattern", ipHash, uaHash, strconv.FormatInt(bucket, 10))
}

// Bucket returns the index of the fixed window of the given size containing t.
func Bucket(t time.Time, window time.Duration) int64 {
	if window <= 0 {
		return t.UnixMilli()
	}
	return t.UnixMilli() / window.Milliseconds()
}

// Anchor picks the guest identity used for global and issuance limits:
// fingerprint, then ip hash, then ua hash.
func Anchor(fp, ipHash, uaHash string) string {
	switch {
	case fp != "":
		return fp
	case ipHash != "":
		return ipHash
	case uaHash != "":
		return uaHash
	default:
		return unknownAnchor
	}
}
