// Package allocation provides the domain model for seat pool entitlements:
// bounded batches of seats an organization purchases to grant its members
// access to a scoped set of learning resources.
package allocation

import (
	"strconv"
	"time"
)

// ScopeType describes what kind of catalog scope a pool covers.
type ScopeType string

const (
	// ScopeTypeItem scopes a pool to specific catalog items.
	ScopeTypeItem ScopeType = "item"
	// ScopeTypeCategory scopes a pool to every item in the given categories.
	ScopeTypeCategory ScopeType = "category"
	// ScopeTypeBundle scopes a pool to the items of the given bundles.
	ScopeTypeBundle ScopeType = "bundle"
)

// IsValid checks if the scope type is valid
func (st ScopeType) IsValid() bool {
	switch st {
	case ScopeTypeItem, ScopeTypeCategory, ScopeTypeBundle:
		return true
	default:
		return false
	}
}

// String returns the string representation of the scope type
func (st ScopeType) String() string {
	return string(st)
}

// PoolStatus represents the lifecycle status of a seat pool.
type PoolStatus string

const (
	// PoolStatusActive means the pool accepts new consumption.
	PoolStatusActive PoolStatus = "active"
	// PoolStatusExpired means the pool blocks new consumption. Access granted
	// before expiry is not revoked.
	PoolStatusExpired PoolStatus = "expired"
)

// IsValid checks if the pool status is valid
func (ps PoolStatus) IsValid() bool {
	switch ps {
	case PoolStatusActive, PoolStatusExpired:
		return true
	default:
		return false
	}
}

// String returns the string representation of the pool status
func (ps PoolStatus) String() string {
	return string(ps)
}

// EventType classifies a seat ledger entry.
type EventType string

const (
	EventTypeConsume EventType = "consume"
	EventTypeRelease EventType = "release"
	EventTypeExpire  EventType = "expire"
	EventTypeAdjust  EventType = "adjust"
	EventTypeInvite  EventType = "invite"
	EventTypeAssign  EventType = "assign"
)

// IsValid checks if the event type is valid
func (et EventType) IsValid() bool {
	switch et {
	case EventTypeConsume, EventTypeRelease, EventTypeExpire,
		EventTypeAdjust, EventTypeInvite, EventTypeAssign:
		return true
	default:
		return false
	}
}

// String returns the string representation of the event type
func (et EventType) String() string {
	return string(et)
}

// EventSource identifies what triggered a ledger entry.
type EventSource string

const (
	// EventSourceAdmin marks entries written on the synchronous request path.
	EventSourceAdmin EventSource = "admin"
	// EventSourceCronResync marks entries written by the reconciliation job.
	EventSourceCronResync EventSource = "cron_resync"
)

// IsValid checks if the event source is valid
func (es EventSource) IsValid() bool {
	switch es {
	case EventSourceAdmin, EventSourceCronResync:
		return true
	default:
		return false
	}
}

// String returns the string representation of the event source
func (es EventSource) String() string {
	return string(es)
}

// WarningLead is a fixed lead time before pool expiry at which a warning is
// sent exactly once.
type WarningLead time.Duration

// Default warning leads, largest first so a pool entering several windows in
// one tick is warned for the most urgent threshold last.
var DefaultWarningLeads = []WarningLead{
	WarningLead(15 * 24 * time.Hour),
	WarningLead(7 * 24 * time.Hour),
	WarningLead(24 * time.Hour),
}

// Duration returns the lead as a time.Duration.
func (wl WarningLead) Duration() time.Duration {
	return time.Duration(wl)
}

// Days returns the lead in whole days.
func (wl WarningLead) Days() int {
	return int(time.Duration(wl).Hours() / 24)
}

// Bucket returns the stable dedup bucket name for this lead, e.g. "15d".
// Combined with the pool ID it forms the warning dedup key.
func (wl WarningLead) Bucket() string {
	return warningBucket(wl.Days())
}

func warningBucket(days int) string {
	// Stable text form; never derived from the remaining time so repeated
	// runs inside the same window hit the same key.
	if days < 0 {
		days = 0
	}
	return strconv.Itoa(days) + "d"
}
