package auth

import (
	"context"
	"time"

	"github.com/mesbahtanvir/docuchan/backend/internal/query"
	"github.com/mesbahtanvir/docuchan/backend/internal/store"
)

// blocklistCollection is the store collection revoked token fingerprints
// are kept in — an ordinary collection through the same Adapter every
// other document lives behind, per spec.md §4.3's "Revocation" note that
// this is just a store-backed record with an expiresAt.
const blocklistCollection = "_auth_token_blocklist"

// Blocklist tracks revoked token fingerprints. Lookups are time-bounded
// and fail secure: a timeout or store error is treated as "revoked"
// rather than "not revoked" (spec.md §4.3, "Verification").
type Blocklist struct {
	store         store.Adapter
	lookupTimeout time.Duration
}

// NewBlocklist builds a Blocklist over an existing store.Adapter.
func NewBlocklist(s store.Adapter, lookupTimeout time.Duration) *Blocklist {
	if lookupTimeout <= 0 {
		lookupTimeout = time.Second
	}
	return &Blocklist{store: s, lookupTimeout: lookupTimeout}
}

// Revoke records tokenString as revoked until expiresAt.
func (b *Blocklist) Revoke(ctx context.Context, tokenString string, expiresAt time.Time) error {
	fp := Fingerprint(tokenString)
	_, err := b.store.Update(ctx, blocklistCollection, fp, map[string]interface{}{
		"expiresAt": expiresAt,
	})
	return err
}

// IsRevoked reports whether tokenString is on the blocklist. A lookup
// that does not complete within the configured timeout, or that errors,
// fails secure by reporting the token as revoked.
func (b *Blocklist) IsRevoked(ctx context.Context, tokenString string) (bool, error) {
	lookupCtx, cancel := context.WithTimeout(ctx, b.lookupTimeout)
	defer cancel()

	fp := Fingerprint(tokenString)
	doc, err := b.store.Get(lookupCtx, blocklistCollection, fp)
	if err != nil {
		return true, nil
	}
	if doc == nil {
		return false, nil
	}

	expiresAt, ok := doc["expiresAt"].(time.Time)
	if ok && time.Now().After(expiresAt) {
		// Lazy eviction: the entry outlived its purpose, so the token is
		// no longer treated as revoked.
		_, _ = b.store.Delete(ctx, blocklistCollection, fp)
		return false, nil
	}
	return true, nil
}

// Sweep deletes every blocklist entry whose expiresAt has passed,
// returning the number of entries removed. Intended to run on a
// schedule (spec.md §4.3, "a periodic sweep ... removes entries whose
// expiresAt has passed").
func (b *Blocklist) Sweep(ctx context.Context) (int, error) {
	q, err := query.New().Where("expiresAt", query.Lt, time.Now())
	if err != nil {
		return 0, err
	}
	tr := query.Translate(q)

	expired, err := b.store.Query(ctx, blocklistCollection, tr.Filter, tr.Sort, tr.Skip, tr.Limit)
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, doc := range expired {
		id, _ := doc["id"].(string)
		if id == "" {
			continue
		}
		if ok, _ := b.store.Delete(ctx, blocklistCollection, id); ok {
			removed++
		}
	}
	return removed, nil
}
