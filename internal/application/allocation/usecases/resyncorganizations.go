package usecases

import (
	"context"
	"fmt"
	"time"

	"seatpool/internal/application/allocation/dto"
	"seatpool/internal/domain/allocation"
	"seatpool/internal/domain/shared/events"
	"seatpool/internal/shared/logger"
)

// ResyncOrganizationsUseCase is the reconciliation core. For every
// organization with active pools it observes actual resource access through
// the ports, corrects seats_used drift, and auto-enrolls eligible members
// into auto_enroll pools until capacity runs out.
//
// The run is designed to converge: the same input state twice in a row yields
// no second correction. Members covered by several overlapping pools are
// attributed to exactly one pool per run (lowest pool ID first), so overlap
// never double-counts a person.
type ResyncOrganizationsUseCase struct {
	poolRepo    allocation.PoolRepository
	eventRepo   allocation.EventRepository
	resolver    allocation.ScopeResolver
	enrollment  allocation.EnrollmentPort
	membership  allocation.MembershipPort
	publisher   events.Publisher
	portTimeout time.Duration
	logger      logger.Interface
}

// NewResyncOrganizationsUseCase creates a new ResyncOrganizationsUseCase
func NewResyncOrganizationsUseCase(
	poolRepo allocation.PoolRepository,
	eventRepo allocation.EventRepository,
	resolver allocation.ScopeResolver,
	enrollment allocation.EnrollmentPort,
	membership allocation.MembershipPort,
	publisher events.Publisher,
	portTimeout time.Duration,
	logger logger.Interface,
) *ResyncOrganizationsUseCase {
	if portTimeout <= 0 {
		portTimeout = 10 * time.Second
	}
	return &ResyncOrganizationsUseCase{
		poolRepo:    poolRepo,
		eventRepo:   eventRepo,
		resolver:    resolver,
		enrollment:  enrollment,
		membership:  membership,
		publisher:   publisher,
		portTimeout: portTimeout,
		logger:      logger,
	}
}

// Execute runs one full reconciliation pass. Per-pool failures are recorded
// in the summary and never abort the run; only context cancellation stops it.
func (uc *ResyncOrganizationsUseCase) Execute(ctx context.Context) (*dto.ResyncSummary, error) {
	started := time.Now()
	summary := &dto.ResyncSummary{}

	orgIDs, err := uc.poolRepo.ListOrgIDsWithActivePools(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list organizations: %w", err)
	}

	for _, orgID := range orgIDs {
		if err := ctx.Err(); err != nil {
			uc.logger.Warnw("resync interrupted", "orgs_processed", summary.OrgsProcessed)
			return summary, err
		}
		uc.resyncOrg(ctx, orgID, summary)
		summary.OrgsProcessed++
	}

	uc.logger.Infow("resync run completed",
		"orgs_processed", summary.OrgsProcessed,
		"pools_processed", summary.PoolsProcessed,
		"drift_corrected", summary.DriftCorrected,
		"auto_enrolled", summary.AutoEnrolled,
		"errors", len(summary.Errors),
		"duration", time.Since(started),
	)
	return summary, nil
}

func (uc *ResyncOrganizationsUseCase) resyncOrg(ctx context.Context, orgID uint, summary *dto.ResyncSummary) {
	pools, err := uc.poolRepo.ListActiveByOrg(ctx, orgID)
	if err != nil {
		uc.recordError(summary, "org %d: list pools: %v", orgID, err)
		return
	}

	// One attribution per member per run. Pools come back oldest first, so
	// overlap resolves deterministically to the oldest covering pool.
	attributed := make(map[uint]uint)
	now := time.Now().UTC()

	for _, pool := range pools {
		if err := ctx.Err(); err != nil {
			return
		}
		if pool.IsExpired(now) {
			// The expiry sweep owns this transition; skip rather than race it.
			continue
		}
		uc.resyncPool(ctx, pool, attributed, summary)
		summary.PoolsProcessed++
	}
}

func (uc *ResyncOrganizationsUseCase) resyncPool(ctx context.Context, pool *allocation.Pool, attributed map[uint]uint, summary *dto.ResyncSummary) {
	poolID := pool.ID()

	resourceIDs, err := uc.resolveScope(ctx, pool)
	if err != nil {
		uc.recordError(summary, "pool %d: resolve scope: %v", poolID, err)
		return
	}
	if len(resourceIDs) == 0 {
		uc.logger.Debugw("pool scope resolves to no resources, skipping", "pool_id", poolID)
		return
	}

	members, err := uc.listEligible(ctx, pool)
	if err != nil {
		uc.recordError(summary, "pool %d: list members: %v", poolID, err)
		return
	}

	// Access to any resource in the resolved scope marks a member as holding
	// a seat; observed access, not the counter, is the ground truth.
	var holders []uint
	var unenrolled []uint
	for _, member := range members {
		if _, taken := attributed[member]; taken {
			continue
		}
		granted, err := uc.hasAnyAccess(ctx, member, resourceIDs)
		if err != nil {
			uc.recordError(summary, "pool %d: check access for user %d: %v", poolID, member, err)
			return
		}
		if granted {
			holders = append(holders, member)
			attributed[member] = poolID
		} else {
			unenrolled = append(unenrolled, member)
		}
	}

	used := pool.SeatsUsed()
	observed := len(holders)
	if observed > pool.SeatsTotal() {
		// More people hold access than the pool can seat, e.g. after a
		// capacity shrink elsewhere. Clamp; access is never revoked here.
		observed = pool.SeatsTotal()
	}

	if observed != used {
		ok, err := uc.poolRepo.OverrideSeatsUsed(ctx, poolID, used, observed)
		if err != nil {
			uc.recordError(summary, "pool %d: override seats_used: %v", poolID, err)
			return
		}
		if !ok {
			// Someone consumed or released concurrently since we loaded the
			// pool. Do not fight it; the next tick re-observes.
			uc.logger.Debugw("drift correction skipped, counter moved concurrently",
				"pool_id", poolID,
				"expected", used,
				"observed", observed,
			)
			return
		}

		event, err := allocation.NewSeatEvent(poolID, nil, allocation.EventTypeAdjust,
			allocation.EventSourceCronResync, allocation.AdjustMeta{
				OldSeatsTotal: pool.SeatsTotal(),
				NewSeatsTotal: pool.SeatsTotal(),
				OldSeatsUsed:  used,
				NewSeatsUsed:  observed,
			})
		if err == nil {
			err = uc.eventRepo.Append(ctx, event)
		}
		if err != nil {
			uc.recordError(summary, "pool %d: append drift event: %v", poolID, err)
		}

		uc.logger.Infow("drift corrected",
			"pool_id", poolID,
			"pool_sid", pool.SID(),
			"was", used,
			"now", observed,
		)
		summary.DriftCorrected++
		used = observed
	}

	if pool.AutoEnroll() {
		uc.autoEnroll(ctx, pool, resourceIDs, unenrolled, used, attributed, summary)
	}
}

// autoEnroll grants access and consumes seats for unenrolled eligible members
// until the pool is full. Returns the updated local seats_used estimate.
func (uc *ResyncOrganizationsUseCase) autoEnroll(
	ctx context.Context,
	pool *allocation.Pool,
	resourceIDs []uint,
	candidates []uint,
	used int,
	attributed map[uint]uint,
	summary *dto.ResyncSummary,
) int {
	poolID := pool.ID()

	for _, member := range candidates {
		if used >= pool.SeatsTotal() {
			break
		}
		if err := ctx.Err(); err != nil {
			return used
		}

		granted, grantErr := uc.grantScope(ctx, member, resourceIDs)
		if granted == 0 {
			// Grant failed entirely; skip this tick, retry next tick.
			uc.recordError(summary, "pool %d: auto-enroll user %d: %v", poolID, member, grantErr)
			continue
		}
		if grantErr != nil {
			uc.recordError(summary, "pool %d: auto-enroll user %d: granted %d of %d resources: %v",
				poolID, member, granted, len(resourceIDs), grantErr)
		}

		ok, err := uc.poolRepo.ConsumeSeat(ctx, poolID)
		if err != nil {
			uc.recordError(summary, "pool %d: consume seat for user %d: %v", poolID, member, err)
			return used
		}
		if !ok {
			// Pool filled up under us; the grants stand and the next run
			// attributes this member as an observed holder.
			uc.logger.Debugw("auto-enroll stopped, pool is full", "pool_id", poolID)
			return used
		}
		used++
		attributed[member] = poolID

		event, err := allocation.NewSeatEvent(poolID, &member, allocation.EventTypeConsume,
			allocation.EventSourceCronResync, allocation.ConsumeMeta{SeatsUsedAfter: used})
		if err == nil {
			err = uc.eventRepo.Append(ctx, event)
		}
		if err != nil {
			uc.recordError(summary, "pool %d: append auto-enroll event: %v", poolID, err)
		}

		if err := uc.publisher.Publish(ctx, allocation.NewSeatConsumedEvent(pool, member, used)); err != nil {
			uc.logger.Warnw("failed to publish seat consumed event",
				"pool_id", poolID,
				"user_id", member,
				"error", err,
			)
		}

		uc.logger.Infow("member auto-enrolled",
			"pool_id", poolID,
			"pool_sid", pool.SID(),
			"user_id", member,
			"seats_used", used,
		)
		summary.AutoEnrolled++
	}
	return used
}

func (uc *ResyncOrganizationsUseCase) resolveScope(ctx context.Context, pool *allocation.Pool) ([]uint, error) {
	ctx, cancel := context.WithTimeout(ctx, uc.portTimeout)
	defer cancel()
	return uc.resolver.Resolve(ctx, pool.ScopeType(), pool.ScopeIDs())
}

func (uc *ResyncOrganizationsUseCase) listEligible(ctx context.Context, pool *allocation.Pool) ([]uint, error) {
	ctx, cancel := context.WithTimeout(ctx, uc.portTimeout)
	defer cancel()
	return uc.membership.ListEligible(ctx, pool.OrgID(), pool.TeamID())
}

// hasAnyAccess reports whether the user holds access to at least one resource
// in the resolved scope. One enrollment anywhere in the scope occupies the
// seat; requiring the full scope would miss partially-enrolled holders.
func (uc *ResyncOrganizationsUseCase) hasAnyAccess(ctx context.Context, userID uint, resourceIDs []uint) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, uc.portTimeout)
	defer cancel()
	for _, resourceID := range resourceIDs {
		granted, err := uc.enrollment.IsGranted(ctx, userID, resourceID)
		if err != nil {
			return false, err
		}
		if granted {
			return true, nil
		}
	}
	return false, nil
}

// grantScope grants every resource in the scope to the user and returns how
// many grants succeeded alongside the first failure. The member occupies a
// seat once at least one grant went through; only a total failure skips them.
func (uc *ResyncOrganizationsUseCase) grantScope(ctx context.Context, userID uint, resourceIDs []uint) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, uc.portTimeout)
	defer cancel()
	granted := 0
	var firstErr error
	for _, resourceID := range resourceIDs {
		if err := uc.enrollment.Grant(ctx, userID, resourceID); err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("grant resource %d: %w", resourceID, err)
			}
			continue
		}
		granted++
	}
	return granted, firstErr
}

func (uc *ResyncOrganizationsUseCase) recordError(summary *dto.ResyncSummary, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	uc.logger.Warnw("resync step failed", "error", msg)
	summary.Errors = append(summary.Errors, msg)
}
