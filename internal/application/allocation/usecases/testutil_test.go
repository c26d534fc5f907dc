package usecases

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"seatpool/internal/domain/allocation"
	"seatpool/internal/domain/shared/events"
	"seatpool/internal/shared/logger"
)

// In-memory fakes mirroring the repository CAS contracts. The conditional
// operations take the same lock, so race tests exercise the same "exactly one
// winner" behavior the SQL implementations provide.

type fakePoolRepo struct {
	mu     sync.Mutex
	nextID uint
	pools  map[uint]*allocation.PoolReconstructParams
}

func newFakePoolRepo() *fakePoolRepo {
	return &fakePoolRepo{pools: make(map[uint]*allocation.PoolReconstructParams)}
}

func paramsFromPool(pool *allocation.Pool) allocation.PoolReconstructParams {
	return allocation.PoolReconstructParams{
		ID:           pool.ID(),
		SID:          pool.SID(),
		OrgID:        pool.OrgID(),
		TeamID:       pool.TeamID(),
		ScopeType:    pool.ScopeType(),
		ScopeIDs:     pool.ScopeIDs(),
		SeatsTotal:   pool.SeatsTotal(),
		SeatsUsed:    pool.SeatsUsed(),
		ExpiresAt:    pool.ExpiresAt(),
		AutoEnroll:   pool.AutoEnroll(),
		AllowReplace: pool.AllowReplace(),
		OrderRef:     pool.OrderRef(),
		Status:       pool.Status(),
		CreatedAt:    pool.CreatedAt(),
		UpdatedAt:    pool.UpdatedAt(),
		Version:      pool.Version(),
	}
}

func (r *fakePoolRepo) Create(_ context.Context, pool *allocation.Pool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	if err := pool.SetID(r.nextID); err != nil {
		return err
	}
	p := paramsFromPool(pool)
	r.pools[p.ID] = &p
	return nil
}

func (r *fakePoolRepo) Update(_ context.Context, pool *allocation.Pool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.pools[pool.ID()]
	if !ok {
		return allocation.ErrPoolNotFound
	}
	p := paramsFromPool(pool)
	// Counters and capacity belong to the conditional operations, not Update.
	p.SeatsUsed = stored.SeatsUsed
	p.SeatsTotal = stored.SeatsTotal
	r.pools[p.ID] = &p
	return nil
}

func (r *fakePoolRepo) Delete(_ context.Context, poolID uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.pools[poolID]; !ok {
		return allocation.ErrPoolNotFound
	}
	delete(r.pools, poolID)
	return nil
}

func (r *fakePoolRepo) GetByID(_ context.Context, poolID uint) (*allocation.Pool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.pools[poolID]
	if !ok {
		return nil, allocation.ErrPoolNotFound
	}
	return allocation.ReconstructPool(*p)
}

func (r *fakePoolRepo) GetBySID(_ context.Context, sid string) (*allocation.Pool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.pools {
		if p.SID == sid {
			return allocation.ReconstructPool(*p)
		}
	}
	return nil, allocation.ErrPoolNotFound
}

func (r *fakePoolRepo) ListByOrg(_ context.Context, orgID uint) ([]*allocation.Pool, error) {
	return r.list(func(p *allocation.PoolReconstructParams) bool {
		return p.OrgID == orgID
	})
}

func (r *fakePoolRepo) ListActiveByOrg(_ context.Context, orgID uint) ([]*allocation.Pool, error) {
	return r.list(func(p *allocation.PoolReconstructParams) bool {
		return p.OrgID == orgID && p.Status == allocation.PoolStatusActive
	})
}

func (r *fakePoolRepo) ListOrgIDsWithActivePools(_ context.Context) ([]uint, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	seen := make(map[uint]bool)
	var orgIDs []uint
	for _, p := range r.pools {
		if p.Status == allocation.PoolStatusActive && !seen[p.OrgID] {
			seen[p.OrgID] = true
			orgIDs = append(orgIDs, p.OrgID)
		}
	}
	sort.Slice(orgIDs, func(i, j int) bool { return orgIDs[i] < orgIDs[j] })
	return orgIDs, nil
}

func (r *fakePoolRepo) ListDueForExpiry(_ context.Context, now time.Time) ([]*allocation.Pool, error) {
	return r.list(func(p *allocation.PoolReconstructParams) bool {
		return p.Status == allocation.PoolStatusActive &&
			p.ExpiresAt != nil && now.After(*p.ExpiresAt)
	})
}

func (r *fakePoolRepo) ListExpiringWithin(_ context.Context, now, until time.Time) ([]*allocation.Pool, error) {
	return r.list(func(p *allocation.PoolReconstructParams) bool {
		return p.Status == allocation.PoolStatusActive &&
			p.ExpiresAt != nil && p.ExpiresAt.After(now) && !p.ExpiresAt.After(until)
	})
}

func (r *fakePoolRepo) list(match func(*allocation.PoolReconstructParams) bool) ([]*allocation.Pool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var ids []uint
	for id, p := range r.pools {
		if match(p) {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	pools := make([]*allocation.Pool, 0, len(ids))
	for _, id := range ids {
		pool, err := allocation.ReconstructPool(*r.pools[id])
		if err != nil {
			return nil, err
		}
		pools = append(pools, pool)
	}
	return pools, nil
}

func (r *fakePoolRepo) ConsumeSeat(_ context.Context, poolID uint) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.pools[poolID]
	if !ok {
		return false, allocation.ErrPoolNotFound
	}
	if p.Status != allocation.PoolStatusActive || p.SeatsUsed >= p.SeatsTotal {
		return false, nil
	}
	p.SeatsUsed++
	return true, nil
}

func (r *fakePoolRepo) ReleaseSeat(_ context.Context, poolID uint) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.pools[poolID]
	if !ok {
		return false, allocation.ErrPoolNotFound
	}
	if p.SeatsUsed <= 0 {
		return false, nil
	}
	p.SeatsUsed--
	return true, nil
}

func (r *fakePoolRepo) AdjustSeatsTotal(_ context.Context, poolID uint, newTotal int) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.pools[poolID]
	if !ok {
		return false, allocation.ErrPoolNotFound
	}
	if p.SeatsUsed > newTotal {
		return false, nil
	}
	p.SeatsTotal = newTotal
	return true, nil
}

func (r *fakePoolRepo) OverrideSeatsUsed(_ context.Context, poolID uint, expected, observed int) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.pools[poolID]
	if !ok {
		return false, allocation.ErrPoolNotFound
	}
	if p.SeatsUsed != expected {
		return false, nil
	}
	p.SeatsUsed = observed
	return true, nil
}

func (r *fakePoolRepo) MarkExpired(_ context.Context, poolID uint) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.pools[poolID]
	if !ok {
		return false, allocation.ErrPoolNotFound
	}
	if p.Status == allocation.PoolStatusExpired {
		return false, nil
	}
	p.Status = allocation.PoolStatusExpired
	return true, nil
}

func (r *fakePoolRepo) seatsUsed(poolID uint) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pools[poolID].SeatsUsed
}

type fakeEventRepo struct {
	mu     sync.Mutex
	nextID uint
	events []*allocation.SeatEvent
}

func newFakeEventRepo() *fakeEventRepo {
	return &fakeEventRepo{}
}

func (r *fakeEventRepo) Append(_ context.Context, event *allocation.SeatEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	if err := event.SetID(r.nextID); err != nil {
		return err
	}
	r.events = append(r.events, event)
	return nil
}

func (r *fakeEventRepo) QueryByPool(_ context.Context, poolID uint, limit int) ([]*allocation.SeatEvent, error) {
	return r.query(limit, func(e *allocation.SeatEvent) bool {
		return e.PoolID() == poolID
	})
}

func (r *fakeEventRepo) QueryByType(_ context.Context, poolID uint, eventType allocation.EventType, limit int) ([]*allocation.SeatEvent, error) {
	return r.query(limit, func(e *allocation.SeatEvent) bool {
		return e.PoolID() == poolID && e.Type() == eventType
	})
}

func (r *fakeEventRepo) QueryRecent(_ context.Context, orgID uint, limit int) ([]*allocation.SeatEvent, error) {
	// The fakes keep no org index; tests wire one org per repo.
	return r.query(limit, func(e *allocation.SeatEvent) bool { return true })
}

func (r *fakeEventRepo) query(limit int, match func(*allocation.SeatEvent) bool) ([]*allocation.SeatEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*allocation.SeatEvent
	for i := len(r.events) - 1; i >= 0 && len(out) < limit; i-- {
		if match(r.events[i]) {
			out = append(out, r.events[i])
		}
	}
	return out, nil
}

func (r *fakeEventRepo) HasActiveConsumption(_ context.Context, poolID, userID uint) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	holds := 0
	for _, e := range r.events {
		if e.PoolID() != poolID || e.UserID() == nil || *e.UserID() != userID {
			continue
		}
		switch e.Type() {
		case allocation.EventTypeConsume, allocation.EventTypeAssign:
			holds++
		case allocation.EventTypeRelease:
			holds--
		}
	}
	return holds > 0, nil
}

func (r *fakeEventRepo) DeleteByPool(_ context.Context, poolID uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	kept := r.events[:0]
	for _, e := range r.events {
		if e.PoolID() != poolID {
			kept = append(kept, e)
		}
	}
	r.events = kept
	return nil
}

func (r *fakeEventRepo) countByType(poolID uint, eventType allocation.EventType) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.events {
		if e.PoolID() == poolID && e.Type() == eventType {
			n++
		}
	}
	return n
}

type fakeResolver struct {
	resources []uint
	err       error
}

func (f *fakeResolver) Resolve(_ context.Context, _ allocation.ScopeType, _ []uint) ([]uint, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.resources, nil
}

type grantKey struct{ userID, resourceID uint }

type fakeEnrollment struct {
	mu          sync.Mutex
	granted     map[grantKey]bool
	grantErr    error
	grantErrFor map[uint]error // per-resource failures
}

func newFakeEnrollment() *fakeEnrollment {
	return &fakeEnrollment{
		granted:     make(map[grantKey]bool),
		grantErrFor: make(map[uint]error),
	}
}

func (f *fakeEnrollment) Grant(_ context.Context, userID, resourceID uint) error {
	if f.grantErr != nil {
		return f.grantErr
	}
	if err := f.grantErrFor[resourceID]; err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.granted[grantKey{userID, resourceID}] = true
	return nil
}

func (f *fakeEnrollment) IsGranted(_ context.Context, userID, resourceID uint) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.granted[grantKey{userID, resourceID}], nil
}

func (f *fakeEnrollment) grantDirect(userID, resourceID uint) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.granted[grantKey{userID, resourceID}] = true
}

func (f *fakeEnrollment) grantCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.granted)
}

type fakeMembership struct {
	members  map[uint][]uint
	contacts map[uint][]string
}

func newFakeMembership() *fakeMembership {
	return &fakeMembership{
		members:  make(map[uint][]uint),
		contacts: make(map[uint][]string),
	}
}

func (f *fakeMembership) ListEligible(_ context.Context, orgID uint, _ *uint) ([]uint, error) {
	return append([]uint(nil), f.members[orgID]...), nil
}

func (f *fakeMembership) ListOrgContacts(_ context.Context, orgID uint) ([]string, error) {
	return append([]string(nil), f.contacts[orgID]...), nil
}

type sentMessage struct {
	recipient string
	subject   string
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []sentMessage
	err  error
}

func (f *fakeNotifier) Send(_ context.Context, recipient, subject, _ string) error {
	if f.err != nil {
		return f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentMessage{recipient: recipient, subject: subject})
	return nil
}

func (f *fakeNotifier) sentCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

type fakeDedup struct {
	mu   sync.Mutex
	keys map[string]bool
}

func newFakeDedup() *fakeDedup {
	return &fakeDedup{keys: make(map[string]bool)}
}

func (f *fakeDedup) TryAcquire(_ context.Context, poolID uint, bucket string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := fmt.Sprintf("%d:%s", poolID, bucket)
	if f.keys[key] {
		return false, nil
	}
	f.keys[key] = true
	return true, nil
}

func (f *fakeDedup) Release(_ context.Context, poolID uint, bucket string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.keys, fmt.Sprintf("%d:%s", poolID, bucket))
	return nil
}

type capturePublisher struct {
	mu        sync.Mutex
	published []events.DomainEvent
}

func (p *capturePublisher) Publish(_ context.Context, event events.DomainEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.published = append(p.published, event)
	return nil
}

func testLogger() logger.Interface {
	return logger.NewLogger()
}

func seedPool(repo *fakePoolRepo, orgID uint, seatsTotal int, opts ...func(*poolSpec)) uint {
	spec := &poolSpec{
		scopeType:    allocation.ScopeTypeItem,
		scopeIDs:     []uint{101},
		allowReplace: true,
	}
	for _, opt := range opts {
		opt(spec)
	}
	pool, err := allocation.NewPool(orgID, spec.teamID, spec.scopeType, spec.scopeIDs,
		seatsTotal, spec.expiresAt, spec.autoEnroll, spec.allowReplace, "")
	if err != nil {
		panic(err)
	}
	if err := repo.Create(context.Background(), pool); err != nil {
		panic(err)
	}
	return pool.ID()
}

type poolSpec struct {
	teamID       *uint
	scopeType    allocation.ScopeType
	scopeIDs     []uint
	expiresAt    *time.Time
	autoEnroll   bool
	allowReplace bool
}

func withExpiry(t time.Time) func(*poolSpec) {
	return func(s *poolSpec) { s.expiresAt = &t }
}

func withAutoEnroll() func(*poolSpec) {
	return func(s *poolSpec) { s.autoEnroll = true }
}

func withNoReplace() func(*poolSpec) {
	return func(s *poolSpec) { s.allowReplace = false }
}

func withScope(scopeType allocation.ScopeType, scopeIDs ...uint) func(*poolSpec) {
	return func(s *poolSpec) {
		s.scopeType = scopeType
		s.scopeIDs = scopeIDs
	}
}
