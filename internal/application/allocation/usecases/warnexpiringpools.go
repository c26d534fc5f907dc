package usecases

import (
	"context"
	"fmt"
	"time"

	"seatpool/internal/application/allocation/dto"
	"seatpool/internal/domain/allocation"
	"seatpool/internal/shared/logger"
)

// WarnExpiringPoolsUseCase sends at most one expiry warning per pool per lead
// threshold. The dedup store, not the tick cadence, enforces the "at most
// once" rule, so the job can run as often as it likes.
type WarnExpiringPoolsUseCase struct {
	poolRepo   allocation.PoolRepository
	membership allocation.MembershipPort
	notifier   allocation.NotifierPort
	dedup      allocation.WarningDeduplicator
	leads      []allocation.WarningLead
	logger     logger.Interface
}

// NewWarnExpiringPoolsUseCase creates a new WarnExpiringPoolsUseCase. A nil
// or empty leads slice falls back to the default thresholds.
func NewWarnExpiringPoolsUseCase(
	poolRepo allocation.PoolRepository,
	membership allocation.MembershipPort,
	notifier allocation.NotifierPort,
	dedup allocation.WarningDeduplicator,
	leads []allocation.WarningLead,
	logger logger.Interface,
) *WarnExpiringPoolsUseCase {
	if len(leads) == 0 {
		leads = allocation.DefaultWarningLeads
	}
	return &WarnExpiringPoolsUseCase{
		poolRepo:   poolRepo,
		membership: membership,
		notifier:   notifier,
		dedup:      dedup,
		leads:      leads,
		logger:     logger,
	}
}

// Execute scans each lead window and warns org contacts once per threshold.
func (uc *WarnExpiringPoolsUseCase) Execute(ctx context.Context) (*dto.ResyncSummary, error) {
	summary := &dto.ResyncSummary{}
	now := time.Now().UTC()

	for _, lead := range uc.leads {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		pools, err := uc.poolRepo.ListExpiringWithin(ctx, now, now.Add(lead.Duration()))
		if err != nil {
			msg := fmt.Sprintf("lead %s: list expiring pools: %v", lead.Bucket(), err)
			uc.logger.Warnw("warning scan failed", "error", msg)
			summary.Errors = append(summary.Errors, msg)
			continue
		}

		for _, pool := range pools {
			if !pool.InWarningWindow(now, lead) {
				continue
			}
			uc.warnPool(ctx, pool, lead, now, summary)
		}
	}

	if summary.WarningsSent > 0 || len(summary.Errors) > 0 {
		uc.logger.Infow("warning scan completed",
			"warnings_sent", summary.WarningsSent,
			"errors", len(summary.Errors),
		)
	}
	return summary, nil
}

func (uc *WarnExpiringPoolsUseCase) warnPool(ctx context.Context, pool *allocation.Pool, lead allocation.WarningLead, now time.Time, summary *dto.ResyncSummary) {
	poolID := pool.ID()
	bucket := lead.Bucket()

	acquired, err := uc.dedup.TryAcquire(ctx, poolID, bucket)
	if err != nil {
		// When the dedup store is unreachable, skip rather than risk a storm
		// of duplicate warnings.
		msg := fmt.Sprintf("pool %d: acquire warning key %s: %v", poolID, bucket, err)
		uc.logger.Warnw("warning dedup unavailable, skipping", "error", msg)
		summary.Errors = append(summary.Errors, msg)
		return
	}
	if !acquired {
		return
	}

	contacts, err := uc.membership.ListOrgContacts(ctx, pool.OrgID())
	if err != nil {
		msg := fmt.Sprintf("pool %d: list org contacts: %v", poolID, err)
		uc.logger.Warnw("warning step failed", "error", msg)
		summary.Errors = append(summary.Errors, msg)
		uc.releaseClaim(ctx, poolID, bucket)
		return
	}

	// The pool may be much closer to expiry than the lead that picked it up,
	// e.g. when a 15d scan first sees a pool created 2 days before expiry.
	daysLeft := daysUntil(now, *pool.ExpiresAt())
	subject := fmt.Sprintf("Seat pool %s expires in %d days", pool.SID(), daysLeft)
	body := fmt.Sprintf(
		"Seat pool %s expires on %s. %d of %d seats are in use. Renew the pool to keep assigning seats.",
		pool.SID(), pool.ExpiresAt().Format("2006-01-02"), pool.SeatsUsed(), pool.SeatsTotal(),
	)

	sent := false
	for _, contact := range contacts {
		if err := uc.notifier.Send(ctx, contact, subject, body); err != nil {
			uc.logger.Warnw("failed to send expiry warning",
				"pool_id", poolID,
				"recipient", contact,
				"error", err,
			)
			continue
		}
		sent = true
	}

	if !sent {
		// Nothing was delivered. The claim must not stand, or the warning
		// would stay suppressed for the key's whole lifetime.
		uc.releaseClaim(ctx, poolID, bucket)
		if len(contacts) > 0 {
			msg := fmt.Sprintf("pool %d: no expiry warning delivered for %s", poolID, bucket)
			summary.Errors = append(summary.Errors, msg)
		}
		return
	}

	uc.logger.Infow("expiry warning sent",
		"pool_id", poolID,
		"pool_sid", pool.SID(),
		"lead", bucket,
		"days_left", daysLeft,
		"recipients", len(contacts),
	)
	summary.WarningsSent++
}

func (uc *WarnExpiringPoolsUseCase) releaseClaim(ctx context.Context, poolID uint, bucket string) {
	if err := uc.dedup.Release(ctx, poolID, bucket); err != nil {
		uc.logger.Warnw("failed to release warning key",
			"pool_id", poolID,
			"bucket", bucket,
			"error", err,
		)
	}
}

// daysUntil counts whole days from now to expiry, rounding up so a pool 36
// hours from expiry reads as 2 days out.
func daysUntil(now, expiry time.Time) int {
	d := expiry.Sub(now)
	if d <= 0 {
		return 0
	}
	days := int(d / (24 * time.Hour))
	if d%(24*time.Hour) > 0 {
		days++
	}
	return days
}
