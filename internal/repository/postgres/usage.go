package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/vendorgraph/vendorgraph/internal/domain/usage"
	ierr "github.com/vendorgraph/vendorgraph/internal/errors"
	"github.com/vendorgraph/vendorgraph/internal/logger"
	"github.com/vendorgraph/vendorgraph/internal/postgres"
	"github.com/vendorgraph/vendorgraph/internal/types"
)

type usageRepository struct {
	client postgres.IClient
	logger *logger.Logger
}

func NewUsageRepository(client postgres.IClient, logger *logger.Logger) usage.Repository {
	return &usageRepository{
		client: client,
		logger: logger,
	}
}

const usageColumns = `id, resource, quantity, dedup_key, recorded_at, period_start, period_end,
	tenant_id, status, created_at, updated_at, created_by, updated_by`

const usageInsertQuery = `INSERT INTO usage_records (` + usageColumns + `) VALUES (
	:id, :resource, :quantity, :dedup_key, :recorded_at, :period_start, :period_end,
	:tenant_id, :status, :created_at, :updated_at, :created_by, :updated_by)
	ON CONFLICT (tenant_id, resource, dedup_key) DO NOTHING`

// Record appends a usage record. The unique index on
// (tenant_id, resource, dedup_key) plus ON CONFLICT DO NOTHING makes
// duplicate recording a silent no-op.
func (r *usageRepository) Record(ctx context.Context, rec *usage.UsageRecord) error {
	res, err := r.client.Querier(ctx).NamedExecContext(ctx, usageInsertQuery, rec)
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to record usage").
			Mark(ierr.ErrDatabase)
	}

	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		r.logger.Debugw("duplicate usage record skipped",
			"tenant_id", rec.TenantID,
			"resource", rec.Resource,
			"dedup_key", rec.DedupKey,
		)
	}
	return nil
}

// RecordWithinLimit runs the gate's read-then-write inside a transaction
// holding an advisory lock keyed on (tenant, resource, period), so the
// headroom check and the append are one critical section at the storage
// layer regardless of how many processes serve the gate.
func (r *usageRepository) RecordWithinLimit(ctx context.Context, rec *usage.UsageRecord, limit int64, periodStart, periodEnd time.Time) (*usage.ConsumeOutcome, error) {
	outcome := &usage.ConsumeOutcome{}

	err := r.client.WithTx(ctx, func(txCtx context.Context) error {
		q := r.client.Querier(txCtx)

		lockKey := fmt.Sprintf("%s:%s:%d", rec.TenantID, rec.Resource, periodStart.Unix())
		if _, err := q.ExecContext(txCtx, `SELECT pg_advisory_xact_lock(hashtext($1))`, lockKey); err != nil {
			return ierr.WithError(err).
				WithHint("Failed to lock the usage ledger").
				Mark(ierr.ErrDatabase)
		}

		total, err := r.Total(txCtx, rec.TenantID, rec.Resource, periodStart, periodEnd)
		if err != nil {
			return err
		}
		outcome.Total = total

		if limit != types.UnlimitedLimit && total+rec.Quantity > limit {
			return nil
		}

		res, err := q.NamedExecContext(txCtx, usageInsertQuery, rec)
		if err != nil {
			return ierr.WithError(err).
				WithHint("Failed to record usage").
				Mark(ierr.ErrDatabase)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return ierr.WithError(err).
				WithHint("Failed to record usage").
				Mark(ierr.ErrDatabase)
		}
		if affected == 0 {
			outcome.Deduped = true
			return nil
		}
		outcome.Inserted = true
		outcome.Total = total + rec.Quantity
		return nil
	})
	if err != nil {
		return nil, err
	}
	return outcome, nil
}

func (r *usageRepository) Total(ctx context.Context, tenantID string, resource types.MeteredResource, periodStart, periodEnd time.Time) (int64, error) {
	// Aggregate by period overlap, a record belongs to the billing period
	// stamped on it even when the write landed late
	query := `SELECT COALESCE(SUM(quantity), 0) FROM usage_records
		WHERE tenant_id = $1 AND resource = $2
		AND period_start < $3 AND period_end > $4
		AND status != $5`

	var total int64
	err := r.client.Querier(ctx).GetContext(ctx, &total, query, tenantID, resource, periodEnd, periodStart, types.StatusDeleted)
	if err != nil {
		return 0, ierr.WithError(err).
			WithHint("Failed to compute usage total").
			Mark(ierr.ErrDatabase)
	}
	return total, nil
}

func (r *usageRepository) List(ctx context.Context, filter *types.UsageFilter) ([]*usage.UsageRecord, error) {
	if filter == nil {
		filter = types.NewUsageFilter()
	}
	query, args := r.buildListQuery(ctx, filter, false)

	var records []*usage.UsageRecord
	if err := r.client.Querier(ctx).SelectContext(ctx, &records, query, args...); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to list usage records").
			Mark(ierr.ErrDatabase)
	}
	return records, nil
}

func (r *usageRepository) Count(ctx context.Context, filter *types.UsageFilter) (int, error) {
	if filter == nil {
		filter = types.NewUsageFilter()
	}
	query, args := r.buildListQuery(ctx, filter, true)

	var count int
	if err := r.client.Querier(ctx).GetContext(ctx, &count, query, args...); err != nil {
		return 0, ierr.WithError(err).
			WithHint("Failed to count usage records").
			Mark(ierr.ErrDatabase)
	}
	return count, nil
}

func (r *usageRepository) buildListQuery(ctx context.Context, filter *types.UsageFilter, count bool) (string, []interface{}) {
	var (
		conds []string
		args  []interface{}
	)

	add := func(cond string, arg interface{}) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	add("status != $%d", types.StatusDeleted)
	add("tenant_id = $%d", types.GetTenantID(ctx))

	if filter.Resource != nil {
		add("resource = $%d", *filter.Resource)
	}
	if filter.PeriodStart != nil {
		add("period_end > $%d", *filter.PeriodStart)
	}
	if filter.PeriodEnd != nil {
		add("period_start < $%d", *filter.PeriodEnd)
	}

	if count {
		return "SELECT COUNT(*) FROM usage_records WHERE " + strings.Join(conds, " AND "), args
	}

	query := "SELECT " + usageColumns + " FROM usage_records WHERE " + strings.Join(conds, " AND ")
	query += fmt.Sprintf(" ORDER BY %s %s", sanitizeSortColumn(filter.GetSort()), sanitizeOrder(filter.GetOrder()))
	if !filter.IsUnlimited() {
		args = append(args, filter.GetLimit())
		query += fmt.Sprintf(" LIMIT $%d", len(args))
		args = append(args, filter.GetOffset())
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}
	return query, args
}
