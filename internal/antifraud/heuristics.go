package antifraud

import (
	"context"
	"net/netip"
	"strings"
	"time"
	"unicode/utf8"
	"viewguard/internal/keys"
	"viewguard/internal/structures"
)

const (
	fingerprintMinLen      = 10
	fingerprintMaxLen      = 200
	fingerprintMinDistinct = 5
	acceptLanguageMinLen   = 2
	acceptLanguageMaxLen   = 100

	absentSignalConfidence = 0.2
)

// botSignatures are matched case-insensitively as substrings of the user agent.
var botSignatures = []string{
	"headlesschrome",
	"phantomjs",
	"selenium",
	"puppeteer",
	"playwright",
	"webdriver",
	"slimerjs",
	"bot",
	"crawler",
	"spider",
	"scraper",
	"curl",
	"wget",
	"python-requests",
	"python-urllib",
	"aiohttp",
	"httpx",
	"go-http-client",
	"java/",
	"okhttp",
	"apache-httpclient",
	"libwww-perl",
	"scrapy",
	"axios",
	"node-fetch",
	"undici",
	"postman",
	"insomnia",
}

var suspiciousReferrerPrefixes = []string{"data:", "javascript:", "about:blank"}

type heuristics struct {
	conf    structures.AntifraudConfig
	counter Counter
	hasher  Hasher
}

func (h *heuristics) checks() []Check {
	return []Check{
		{Name: "user_agent", Run: h.checkUserAgent},
		{Name: "rate_limit", Run: h.checkRateLimit},
		{Name: "suspicious_pattern", Run: h.checkPattern},
		{Name: "geolocation", Run: h.checkGeolocation},
		{Name: "fingerprint", Run: h.checkFingerprint},
		{Name: "referrer", Run: h.checkReferrer},
		{Name: "accept_language", Run: h.checkAcceptLanguage},
	}
}

func (h *heuristics) checkUserAgent(_ context.Context, req *Request) (CheckResult, error) {
	ua := strings.TrimSpace(req.UserAgent)
	if ua == "" {
		return CheckResult{Reason: ReasonMissingUserAgent, Confidence: 0.9}, nil
	}

	lower := strings.ToLower(ua)
	for _, sig := range botSignatures {
		if strings.Contains(lower, sig) {
			return CheckResult{
				Reason:     ReasonBotUserAgent,
				Confidence: 0.95,
				Metadata:   map[string]interface{}{"botSignature": sig},
			}, nil
		}
	}
	return CheckResult{Allowed: true, Confidence: 0.05}, nil
}

// checkRateLimit bumps every per-IP and per-user window on each call, whatever
// the final verdict.
func (h *heuristics) checkRateLimit(ctx context.Context, req *Request) (CheckResult, error) {
	meta := map[string]interface{}{}
	var worst float64
	exceeded := false

	bump := func(key keys.Key, window time.Duration, limit int64, label string) error {
		count, err := h.counter.IncrWindow(ctx, key, window)
		if err != nil {
			return err
		}
		meta[label] = count
		if count > limit {
			exceeded = true
		}
		if ratio := float64(count) / float64(limit); ratio > worst {
			worst = ratio
		}
		return nil
	}

	if ipHash := h.hasher.ComputeIPHash(req.IP); ipHash != "" {
		if err := bump(keys.FraudIPMinute(ipHash, keys.Bucket(req.Timestamp, time.Minute)), time.Minute, h.conf.IPPerMinute, "ipPerMinute"); err != nil {
			return CheckResult{}, err
		}
		if err := bump(keys.FraudIPHour(ipHash, keys.Bucket(req.Timestamp, time.Hour)), time.Hour, h.conf.IPPerHour, "ipPerHour"); err != nil {
			return CheckResult{}, err
		}
	}
	if req.UserID != "" {
		if err := bump(keys.FraudUserHour(req.UserID, keys.Bucket(req.Timestamp, time.Hour)), time.Hour, h.conf.UserPerHour, "userPerHour"); err != nil {
			return CheckResult{}, err
		}
	}

	if exceeded {
		return CheckResult{Reason: ReasonSuspiciousRate, Confidence: 0.8, Metadata: meta}, nil
	}
	return CheckResult{Allowed: true, Confidence: min(worst, 1) * 0.5, Metadata: meta}, nil
}

func (h *heuristics) checkPattern(ctx context.Context, req *Request) (CheckResult, error) {
	ipHash := h.hasher.ComputeIPHash(req.IP)
	uaHash := h.hasher.ComputeUAHash(req.UserAgent)
	if ipHash == "" || uaHash == "" {
		return CheckResult{Allowed: true, Confidence: absentSignalConfidence}, nil
	}

	window := h.conf.PatternWindow
	count, err := h.counter.IncrWindow(ctx, keys.FraudPattern(ipHash, uaHash, keys.Bucket(req.Timestamp, window)), window)
	if err != nil {
		return CheckResult{}, err
	}

	meta := map[string]interface{}{"patternCount": count}
	if count > h.conf.PatternLimit {
		return CheckResult{Reason: ReasonSuspiciousPattern, Confidence: 0.7, Metadata: meta}, nil
	}
	return CheckResult{Allowed: true, Confidence: 0, Metadata: meta}, nil
}

// checkGeolocation only classifies the address. Private and loopback ranges
// are a weak signal since real clients never reach us from them.
func (h *heuristics) checkGeolocation(_ context.Context, req *Request) (CheckResult, error) {
	raw := strings.TrimSpace(req.IP)
	if raw == "" {
		return CheckResult{Allowed: true, Confidence: absentSignalConfidence}, nil
	}

	addr, err := netip.ParseAddr(raw)
	if err != nil {
		return CheckResult{
			Reason:     ReasonSuspiciousIP,
			Confidence: 0.3,
			Metadata:   map[string]interface{}{"ipClass": "invalid"},
		}, nil
	}

	class := ClassifyIP(addr)
	meta := map[string]interface{}{"ipClass": class}
	if class != "public" {
		return CheckResult{Reason: ReasonSuspiciousIP, Confidence: 0.3, Metadata: meta}, nil
	}
	return CheckResult{Allowed: true, Confidence: 0, Metadata: meta}, nil
}

func (h *heuristics) checkFingerprint(_ context.Context, req *Request) (CheckResult, error) {
	fp := req.Fingerprint
	if fp == "" {
		return CheckResult{Allowed: true, Confidence: absentSignalConfidence}, nil
	}

	length := utf8.RuneCountInString(fp)
	distinct := distinctRunes(fp)
	meta := map[string]interface{}{"fingerprintLength": length, "fingerprintDistinct": distinct}

	if length < fingerprintMinLen || length > fingerprintMaxLen || distinct < fingerprintMinDistinct {
		return CheckResult{Reason: ReasonSuspiciousFP, Confidence: 0.6, Metadata: meta}, nil
	}
	return CheckResult{Allowed: true, Confidence: 0, Metadata: meta}, nil
}

func (h *heuristics) checkReferrer(_ context.Context, req *Request) (CheckResult, error) {
	ref := strings.ToLower(strings.TrimSpace(req.Referrer))
	if ref == "" {
		return CheckResult{Reason: ReasonSuspiciousReferrer, Confidence: 0.5, Metadata: map[string]interface{}{"referrer": "empty"}}, nil
	}
	for _, prefix := range suspiciousReferrerPrefixes {
		if strings.HasPrefix(ref, prefix) {
			return CheckResult{Reason: ReasonSuspiciousReferrer, Confidence: 0.5, Metadata: map[string]interface{}{"referrer": prefix}}, nil
		}
	}
	return CheckResult{Allowed: true, Confidence: 0}, nil
}

func (h *heuristics) checkAcceptLanguage(_ context.Context, req *Request) (CheckResult, error) {
	n := len(strings.TrimSpace(req.AcceptLanguage))
	if n < acceptLanguageMinLen || n > acceptLanguageMaxLen {
		return CheckResult{Reason: ReasonSuspiciousLanguage, Confidence: 0.5, Metadata: map[string]interface{}{"acceptLanguageLength": n}}, nil
	}
	return CheckResult{Allowed: true, Confidence: 0}, nil
}

// ClassifyIP returns "public", "private", "loopback", "link-local" or "unspecified".
func ClassifyIP(addr netip.Addr) string {
	addr = addr.Unmap()
	switch {
	case addr.IsLoopback():
		return "loopback"
	case addr.IsPrivate():
		return "private"
	case addr.IsLinkLocalUnicast(), addr.IsLinkLocalMulticast():
		return "link-local"
	case addr.IsUnspecified():
		return "unspecified"
	case cgnat.Contains(addr):
		return "private"
	default:
		return "public"
	}
}

var cgnat = netip.MustParsePrefix("100.64.0.0/10")

func distinctRunes(s string) int {
	seen := make(map[rune]struct{}, len(s))
	for _, r := range s {
		seen[r] = struct{}{}
	}
	return len(seen)
}
