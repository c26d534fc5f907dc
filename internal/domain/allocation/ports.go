package allocation

import "context"

// ScopeResolver expands a pool's scope descriptor into concrete resource IDs.
// Pure from the engine's viewpoint; resolution is never cached on the pool
// because category and bundle membership changes over time. An empty result
// means "nothing to grant", not an error.
type ScopeResolver interface {
	Resolve(ctx context.Context, scopeType ScopeType, scopeIDs []uint) ([]uint, error)
}

// EnrollmentPort grants and inspects a user's access to a resource.
// Grant is idempotent: granting to an already-enrolled user must not error.
type EnrollmentPort interface {
	Grant(ctx context.Context, userID, resourceID uint) error
	IsGranted(ctx context.Context, userID, resourceID uint) (bool, error)
}

// NotifierPort delivers a message to a recipient. Fire-and-forget from the
// engine's perspective; delivery failures are logged, not retried here.
type NotifierPort interface {
	Send(ctx context.Context, recipient, subject, body string) error
}

// MembershipPort exposes the organization membership the engine needs.
// ListEligible returns members in a stable, deterministic order (join order)
// so repeated reconciliation runs converge rather than thrash.
type MembershipPort interface {
	ListEligible(ctx context.Context, orgID uint, teamID *uint) ([]uint, error)
	ListOrgContacts(ctx context.Context, orgID uint) ([]string, error)
}

// WarningDeduplicator suppresses duplicate expiry warnings. Implementations
// back it with a short-lived store whose entries outlive the tick interval
// slightly, guaranteeing at most one warning per pool per lead bucket.
type WarningDeduplicator interface {
	// TryAcquire atomically claims the (poolID, bucket) key. True means the
	// caller owns the warning and must send it.
	TryAcquire(ctx context.Context, poolID uint, bucket string) (bool, error)

	// Release gives a claim back. Called when the claimed warning could not
	// be delivered at all, so a later run may retry instead of waiting out
	// the key's lifetime.
	Release(ctx context.Context, poolID uint, bucket string) error
}
