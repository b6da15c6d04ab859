// Package shared provides a reference-counted handle over an immutable byte
// region that several record views point into.
//
// # Ownership
//
// Each view holds exactly one reference. The release function passed to New
// runs once, when the last reference is dropped; afterwards Bytes returns nil
// so a stale view cannot reach freed memory. Which view is the designated
// owner is bookkeeping for callers; the count alone decides when memory goes.
package shared
