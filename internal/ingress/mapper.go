// Package ingress provides a demo command producer standing in for a
// real upstream feed: something has to generate the lob.Command values
// an Engine consumes, and spec §3 leaves that entirely to producers. It
// paces itself with a token bucket, trips a circuit breaker under
// sustained backpressure, and maps external string order ids to the
// stable uint64 OrderID the engine requires.
package ingress

import (
	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	"time"

	"github.com/cedrichaddad/flash-lob/pkg/lob"
)

// IDMapper assigns a stable lob.OrderID to each external string id it
// sees, taking the next value of a per-mapper counter on first sight
// and returning the same value thereafter for the TTL of the cache
// entry. Ids are unique for the life of the mapper, including after an
// entry expires; no hash of the external id is involved. This is the "producers map foreign identifiers...
// themselves" contract named in pkg/lob's doc comment.
type IDMapper struct {
	seen *cache.Cache
	next uint64
}

// NewIDMapper builds a mapper whose entries expire after ttl, with
// cleanup sweeps every cleanupInterval.
func NewIDMapper(ttl, cleanupInterval time.Duration) *IDMapper {
	return &IDMapper{seen: cache.New(ttl, cleanupInterval)}
}

// Map returns the lob.OrderID assigned to externalID, assigning and
// caching a new one if this is the first time externalID is seen.
func (m *IDMapper) Map(externalID string) lob.OrderID {
	if v, ok := m.seen.Get(externalID); ok {
		return v.(lob.OrderID)
	}
	m.next++
	id := lob.OrderID(m.next)
	m.seen.SetDefault(externalID, id)
	return id
}

// NewExternalID mints a fresh synthetic external order id, the way a
// real upstream client would generate one before ever talking to the
// engine.
func NewExternalID() string {
	return uuid.NewString()
}
