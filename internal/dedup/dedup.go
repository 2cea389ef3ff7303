// Package dedup suppresses repeat captures of the same fault inside a short
// window, keyed by fingerprint. State lives in the owning pipeline instance;
// two pipelines never share a window.
package dedup

import (
	"sync"
	"time"

	"faultline/internal/constants"
)

type Deduplicator struct {
	mu             sync.Mutex
	entries        map[string]time.Time
	ttl            time.Duration
	sweepThreshold int
	now            func() time.Time
}

func New(ttl time.Duration) *Deduplicator {
	if ttl <= 0 {
		ttl = constants.DedupTTL
	}
	return &Deduplicator{
		entries:        make(map[string]time.Time),
		ttl:            ttl,
		sweepThreshold: constants.DedupSweepThreshold,
		now:            time.Now,
	}
}

// IsDuplicate reports whether fingerprint was seen within the TTL. A miss
// records the fingerprint; a hit does not refresh its expiry, so a steady
// stream of the same fault surfaces once per TTL.
func (d *Deduplicator) IsDuplicate(fingerprint string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()

	if len(d.entries) > d.sweepThreshold {
		d.sweepLocked(now)
	}

	if expiry, ok := d.entries[fingerprint]; ok && expiry.After(now) {
		return true
	}

	d.entries[fingerprint] = now.Add(d.ttl)
	return false
}

// sweepLocked removes entries whose expiry has passed. An expiry equal to
// now counts as passed.
func (d *Deduplicator) sweepLocked(now time.Time) {
	for fingerprint, expiry := range d.entries {
		if !expiry.After(now) {
			delete(d.entries, fingerprint)
		}
	}
}

func (d *Deduplicator) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.entries)
}
