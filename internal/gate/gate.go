// Package gate implements API key validation for the public /v1 surface:
// key format and activation checks, per-key usage quotas, optional domain
// allow-listing, and usage accounting against a KeyStore.
package gate

import (
	"errors"
	"fmt"
	"log"
	"net/url"
	"strings"
	"time"
)

// KeyPrefix is the issued-key prefix. Validation checks only the prefix,
// not the hex body; issued keys are always prefix + 64 lowercase hex chars
// but older integrations may rely on the lax check.
const KeyPrefix = "nr_live_"

// ErrKeyNotFound is returned by KeyStore.FindByKey when no record has the
// given key value.
var ErrKeyNotFound = errors.New("api key not found")

// KeyRecord is the view of a persisted API key that validation needs.
type KeyRecord struct {
	ID         uint
	ClientID   uint
	Key        string
	Active     bool
	Domains    []string
	UsageCount int64
	UsageLimit *int64
	LastUsedAt *time.Time
}

// KeyStore is the persistence contract the gate depends on. FindByKey
// queries by exact key value and returns ErrKeyNotFound for missing rows;
// UpdateUsage persists the usage counter and last-used timestamp.
type KeyStore interface {
	FindByKey(key string) (*KeyRecord, error)
	UpdateUsage(id uint, usageCount int64, lastUsedAt time.Time) error
}

// FailureKind identifies why a validation was rejected.
type FailureKind string

const (
	MissingKey       FailureKind = "missing_key"
	InvalidFormat    FailureKind = "invalid_format"
	NotFound         FailureKind = "not_found"
	Deactivated      FailureKind = "deactivated"
	QuotaExceeded    FailureKind = "quota_exceeded"
	OriginRequired   FailureKind = "origin_required"
	DomainNotAllowed FailureKind = "domain_not_allowed"
)

// FailureError is the typed rejection returned in Result.Err.
type FailureError struct {
	Kind    FailureKind
	Message string
}

func (e *FailureError) Error() string { return e.Message }

func failure(kind FailureKind, msg string) Result {
	return Result{Err: &FailureError{Kind: kind, Message: msg}}
}

// Result is the outcome of one Validate call. On success Valid is true and
// ClientID/KeyID identify the authorized tenant and key; on failure Err
// holds a *FailureError.
type Result struct {
	Valid    bool
	ClientID uint
	KeyID    uint
	Err      error
}

// Gate validates API keys against a KeyStore. Construct one per process
// (or per test) with New and share it across requests; it holds no mutable
// state of its own.
type Gate struct {
	store KeyStore
	now   func() time.Time
}

func New(store KeyStore) *Gate {
	return &Gate{store: store, now: time.Now}
}

// Validate decides whether a request carrying apiKey and origin may
// proceed. Empty strings mean the corresponding header was absent.
//
// Checks run in a fixed order and short-circuit on the first failure:
// presence, prefix format, store lookup, active flag, usage quota, then
// the domain allow-list. Only a fully authorized call touches the store's
// usage counter, so rejected calls never consume quota. The usage write
// itself is best-effort: a failed write is logged but never turns an
// authorized request into a rejection.
func (g *Gate) Validate(apiKey, origin string) Result {
	if apiKey == "" {
		return failure(MissingKey, "missing API key")
	}
	if !strings.HasPrefix(apiKey, KeyPrefix) {
		return failure(InvalidFormat, "invalid API key format")
	}

	rec, err := g.store.FindByKey(apiKey)
	if err != nil {
		// Lookup failures and unknown keys are deliberately
		// indistinguishable to the caller.
		if !errors.Is(err, ErrKeyNotFound) {
			log.Printf("gate: key lookup failed: %v", err)
		}
		return failure(NotFound, "invalid API key")
	}

	if !rec.Active {
		return failure(Deactivated, "API key is deactivated")
	}

	if rec.UsageLimit != nil && rec.UsageCount >= *rec.UsageLimit {
		return failure(QuotaExceeded, "API key usage limit reached")
	}

	if len(rec.Domains) > 0 {
		if origin == "" {
			return failure(OriginRequired, "origin required for this API key")
		}
		host := ExtractHostname(origin)
		if !hostAllowed(host, rec.Domains) {
			return failure(DomainNotAllowed, fmt.Sprintf("domain %q is not allowed for this API key", host))
		}
	}

	now := g.now()
	if err := g.store.UpdateUsage(rec.ID, rec.UsageCount+1, now); err != nil {
		log.Printf("gate: usage update failed for key %d: %v", rec.ID, err)
	}

	return Result{Valid: true, ClientID: rec.ClientID, KeyID: rec.ID}
}

// ExtractHostname pulls the hostname out of an Origin header value. The
// value is usually scheme://host[:port] but embeds in the wild send bare
// hostnames and occasionally garbage, so URL parsing falls back to manual
// scheme stripping and truncation at the first ':' or '/'.
func ExtractHostname(origin string) string {
	if u, err := url.Parse(origin); err == nil && u.Hostname() != "" {
		return u.Hostname()
	}

	host := strings.TrimPrefix(origin, "https://")
	host = strings.TrimPrefix(host, "http://")
	if i := strings.IndexAny(host, ":/"); i >= 0 {
		host = host[:i]
	}
	return host
}

// hostAllowed reports whether host matches an allow-list entry exactly or
// as a strict subdomain of one ("app.example.com" matches "example.com",
// never the other way around). Matching is case-sensitive.
func hostAllowed(host string, domains []string) bool {
	for _, d := range domains {
		if host == d || strings.HasSuffix(host, "."+d) {
			return true
		}
	}
	return false
}
