package sched

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"telegram-topup-bot/internal/domain/model"
	"telegram-topup-bot/internal/domain/ports/adapter"
	"telegram-topup-bot/internal/domain/ports/repository"
	"telegram-topup-bot/internal/usecase"
)

// DepositReconciler periodically scans for stale pending deposits and asks the
// gateway for their current state. This covers cases where the confirmation
// webhook was lost or the process crashed before settling.
type DepositReconciler struct {
	confirm    usecase.ConfirmUseCase
	deposits   repository.DepositRepository
	gateway    adapter.DepositGateway
	interval   time.Duration // how often to scan
	staleAfter time.Duration // how old a pending deposit must be to retry
	log        *zerolog.Logger
}

func NewDepositReconciler(
	confirm usecase.ConfirmUseCase,
	deposits repository.DepositRepository,
	gateway adapter.DepositGateway,
	interval, staleAfter time.Duration,
	logger *zerolog.Logger,
) *DepositReconciler {
	if interval <= 0 {
		interval = time.Minute
	}
	if staleAfter <= 0 {
		staleAfter = 10 * time.Minute
	}
	return &DepositReconciler{
		confirm:    confirm,
		deposits:   deposits,
		gateway:    gateway,
		interval:   interval,
		staleAfter: staleAfter,
		log:        logger,
	}
}

func (w *DepositReconciler) Start(ctx context.Context) {
	t := time.NewTicker(w.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			w.tick(ctx)
		}
	}
}

func (w *DepositReconciler) tick(ctx context.Context) {
	cutoff := time.Now().Add(-w.staleAfter)
	pending, err := w.deposits.ListPendingOlderThan(ctx, cutoff, 200)
	if err != nil {
		w.log.Error().Err(err).Msg("deposit-reconciler: list pending failed")
		return
	}
	for _, d := range pending {
		if d.DepositID == "" {
			continue
		}
		record, err := w.gateway.CheckStatus(ctx, d.DepositID)
		if err != nil || record == nil {
			w.log.Warn().Err(err).Str("deposit_id", d.DepositID).Msg("deposit-reconciler: status check failed")
			continue
		}
		if record.Status == model.DepositStatusPending {
			continue
		}
		// Settle through the same path the webhook takes; it is idempotent.
		if err := w.confirm.Confirm(ctx, usecase.WebhookEvent{
			ReferenceID: d.ReferenceID,
			DepositID:   d.DepositID,
			Status:      record.Status,
			Nominal:     record.Nominal,
		}); err != nil {
			w.log.Error().Err(err).Str("reference_id", d.ReferenceID).Msg("deposit-reconciler: settle failed")
			continue
		}
		w.log.Info().Str("reference_id", d.ReferenceID).Str("status", record.Status).Msg("deposit-reconciler: reconciled")
	}
}
