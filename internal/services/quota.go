// Package services – quota policy
//
// The free-tier gate is a single shared policy so that every entry point that
// creates a record (the add-watch form and, when enabled, swipe-accept)
// applies identical rules. The upstream product gated only the add-watch
// path; whether swipe-accept should be gated too is unconfirmed, so that
// behavior sits behind an explicit flag instead of being hard-coded either
// way.
package services

// QuotaPolicy decides whether a user may create another record.
type QuotaPolicy struct {
	// FreeQuota is the number of records a non-entitled user may hold.
	FreeQuota int
	// EnforceOnSwipe applies the gate to the swipe-accept path as well.
	EnforceOnSwipe bool
}

// Allow reports whether a user with ownedCount records and the given
// entitlement state may create one more.
func (q QuotaPolicy) Allow(ownedCount int64, entitled bool) bool {
	return ownedCount < int64(q.FreeQuota) || entitled
}
