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

// ExpirePoolsUseCase is the expiration sweep. Pools past their expiry are
// transitioned to expired, which blocks new consumption. Access already
// granted is left alone; expiry is a gate, not a revocation.
type ExpirePoolsUseCase struct {
	poolRepo   allocation.PoolRepository
	eventRepo  allocation.EventRepository
	membership allocation.MembershipPort
	notifier   allocation.NotifierPort
	publisher  events.Publisher
	logger     logger.Interface
}

// NewExpirePoolsUseCase creates a new ExpirePoolsUseCase
func NewExpirePoolsUseCase(
	poolRepo allocation.PoolRepository,
	eventRepo allocation.EventRepository,
	membership allocation.MembershipPort,
	notifier allocation.NotifierPort,
	publisher events.Publisher,
	logger logger.Interface,
) *ExpirePoolsUseCase {
	return &ExpirePoolsUseCase{
		poolRepo:   poolRepo,
		eventRepo:  eventRepo,
		membership: membership,
		notifier:   notifier,
		publisher:  publisher,
		logger:     logger,
	}
}

// Execute expires every active pool whose expiry has passed. The status
// transition is a conditional update, so concurrent sweeps expire each pool
// exactly once.
func (uc *ExpirePoolsUseCase) Execute(ctx context.Context) (*dto.ResyncSummary, error) {
	summary := &dto.ResyncSummary{}
	now := time.Now().UTC()

	pools, err := uc.poolRepo.ListDueForExpiry(ctx, now)
	if err != nil {
		return nil, fmt.Errorf("failed to list pools due for expiry: %w", err)
	}

	for _, pool := range pools {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		uc.expirePool(ctx, pool, summary)
	}

	if summary.PoolsExpired > 0 || len(summary.Errors) > 0 {
		uc.logger.Infow("expiry sweep completed",
			"pools_expired", summary.PoolsExpired,
			"errors", len(summary.Errors),
		)
	}
	return summary, nil
}

func (uc *ExpirePoolsUseCase) expirePool(ctx context.Context, pool *allocation.Pool, summary *dto.ResyncSummary) {
	poolID := pool.ID()

	ok, err := uc.poolRepo.MarkExpired(ctx, poolID)
	if err != nil {
		msg := fmt.Sprintf("pool %d: mark expired: %v", poolID, err)
		uc.logger.Warnw("expiry step failed", "error", msg)
		summary.Errors = append(summary.Errors, msg)
		return
	}
	if !ok {
		// Another instance got there first.
		return
	}

	event, err := allocation.NewSeatEvent(poolID, nil, allocation.EventTypeExpire,
		allocation.EventSourceCronResync, allocation.ExpireMeta{
			FinalSeatsTotal: pool.SeatsTotal(),
			FinalSeatsUsed:  pool.SeatsUsed(),
		})
	if err == nil {
		err = uc.eventRepo.Append(ctx, event)
	}
	if err != nil {
		msg := fmt.Sprintf("pool %d: append expire event: %v", poolID, err)
		uc.logger.Warnw("expiry step failed", "error", msg)
		summary.Errors = append(summary.Errors, msg)
	}

	if err := uc.publisher.Publish(ctx, allocation.NewPoolExpiredEvent(pool)); err != nil {
		uc.logger.Warnw("failed to publish pool expired event",
			"pool_id", poolID,
			"error", err,
		)
	}

	uc.notifyContacts(ctx, pool)

	uc.logger.Infow("pool expired",
		"pool_id", poolID,
		"pool_sid", pool.SID(),
		"org_id", pool.OrgID(),
		"seats_used", pool.SeatsUsed(),
		"seats_total", pool.SeatsTotal(),
	)
	summary.PoolsExpired++
}

func (uc *ExpirePoolsUseCase) notifyContacts(ctx context.Context, pool *allocation.Pool) {
	contacts, err := uc.membership.ListOrgContacts(ctx, pool.OrgID())
	if err != nil {
		uc.logger.Warnw("failed to list org contacts for expiry notice",
			"pool_id", pool.ID(),
			"org_id", pool.OrgID(),
			"error", err,
		)
		return
	}

	subject := fmt.Sprintf("Seat pool %s has expired", pool.SID())
	body := fmt.Sprintf(
		"Seat pool %s expired with %d of %d seats in use. Existing access remains; new seats can no longer be assigned.",
		pool.SID(), pool.SeatsUsed(), pool.SeatsTotal(),
	)
	for _, contact := range contacts {
		if err := uc.notifier.Send(ctx, contact, subject, body); err != nil {
			uc.logger.Warnw("failed to send expiry notice",
				"pool_id", pool.ID(),
				"recipient", contact,
				"error", err,
			)
		}
	}
}
