package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/vendorgraph/vendorgraph/internal/domain/subscription"
	ierr "github.com/vendorgraph/vendorgraph/internal/errors"
	"github.com/vendorgraph/vendorgraph/internal/logger"
	"github.com/vendorgraph/vendorgraph/internal/postgres"
	"github.com/vendorgraph/vendorgraph/internal/types"
)

type subscriptionRepository struct {
	client postgres.IClient
	logger *logger.Logger
}

func NewSubscriptionRepository(client postgres.IClient, logger *logger.Logger) subscription.Repository {
	return &subscriptionRepository{
		client: client,
		logger: logger,
	}
}

const subscriptionColumns = `id, plan_id, subscription_status, cadence,
	current_period_start, current_period_end, trial_end, canceled_at, cancel_at_period_end,
	processor_customer_id, processor_subscription_id, last_event_at,
	tenant_id, status, created_at, updated_at, created_by, updated_by`

func (r *subscriptionRepository) Create(ctx context.Context, sub *subscription.Subscription) error {
	r.logger.Debugw("creating subscription",
		"subscription_id", sub.ID,
		"tenant_id", sub.TenantID,
		"plan_id", sub.PlanID,
	)

	query := `INSERT INTO subscriptions (` + subscriptionColumns + `) VALUES (
		:id, :plan_id, :subscription_status, :cadence,
		:current_period_start, :current_period_end, :trial_end, :canceled_at, :cancel_at_period_end,
		:processor_customer_id, :processor_subscription_id, :last_event_at,
		:tenant_id, :status, :created_at, :updated_at, :created_by, :updated_by)`

	_, err := r.client.Querier(ctx).NamedExecContext(ctx, query, sub)
	if err != nil {
		if isUniqueViolation(err) {
			return ierr.WithError(err).
				WithHint("A subscription with this id already exists").
				WithReportableDetails(map[string]any{"subscription_id": sub.ID}).
				Mark(ierr.ErrAlreadyExists)
		}
		return ierr.WithError(err).
			WithHint("Failed to create subscription").
			Mark(ierr.ErrDatabase)
	}
	return nil
}

func (r *subscriptionRepository) Get(ctx context.Context, id string) (*subscription.Subscription, error) {
	query := `SELECT ` + subscriptionColumns + ` FROM subscriptions
		WHERE id = $1 AND tenant_id = $2 AND status != $3`

	var sub subscription.Subscription
	err := r.client.Querier(ctx).GetContext(ctx, &sub, query, id, types.GetTenantID(ctx), types.StatusDeleted)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ierr.NewError("subscription not found").
				WithHint("Subscription does not exist").
				WithReportableDetails(map[string]any{"subscription_id": id}).
				Mark(ierr.ErrNotFound)
		}
		return nil, ierr.WithError(err).
			WithHint("Failed to get subscription").
			Mark(ierr.ErrDatabase)
	}
	return &sub, nil
}

func (r *subscriptionRepository) GetByProcessorSubscriptionID(ctx context.Context, ref string) (*subscription.Subscription, error) {
	// Reconciler lookup, webhook events carry no tenant context
	query := `SELECT ` + subscriptionColumns + ` FROM subscriptions
		WHERE processor_subscription_id = $1 AND status != $2`

	var sub subscription.Subscription
	err := r.client.Querier(ctx).GetContext(ctx, &sub, query, ref, types.StatusDeleted)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ierr.NewError("subscription not found").
				WithHint("No subscription maps to this processor reference").
				WithReportableDetails(map[string]any{"processor_subscription_id": ref}).
				Mark(ierr.ErrNotFound)
		}
		return nil, ierr.WithError(err).
			WithHint("Failed to get subscription").
			Mark(ierr.ErrDatabase)
	}
	return &sub, nil
}

func (r *subscriptionRepository) GetCurrentForTenant(ctx context.Context, tenantID string) (*subscription.Subscription, error) {
	query := `SELECT ` + subscriptionColumns + ` FROM subscriptions
		WHERE tenant_id = $1 AND status != $2 AND subscription_status != $3
		ORDER BY created_at DESC LIMIT 1`

	var sub subscription.Subscription
	err := r.client.Querier(ctx).GetContext(ctx, &sub, query, tenantID, types.StatusDeleted, types.SubscriptionStatusCanceled)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ierr.NewError("no current subscription").
				WithHint("Tenant has no active subscription").
				WithReportableDetails(map[string]any{"tenant_id": tenantID}).
				Mark(ierr.ErrNotFound)
		}
		return nil, ierr.WithError(err).
			WithHint("Failed to get current subscription").
			Mark(ierr.ErrDatabase)
	}
	return &sub, nil
}

func (r *subscriptionRepository) List(ctx context.Context, filter *types.SubscriptionFilter) ([]*subscription.Subscription, error) {
	if filter == nil {
		filter = types.NewSubscriptionFilter()
	}
	query, args := r.buildListQuery(ctx, filter, false)

	var subs []*subscription.Subscription
	if err := r.client.Querier(ctx).SelectContext(ctx, &subs, query, args...); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to list subscriptions").
			Mark(ierr.ErrDatabase)
	}
	return subs, nil
}

func (r *subscriptionRepository) Count(ctx context.Context, filter *types.SubscriptionFilter) (int, error) {
	if filter == nil {
		filter = types.NewSubscriptionFilter()
	}
	query, args := r.buildListQuery(ctx, filter, true)

	var count int
	if err := r.client.Querier(ctx).GetContext(ctx, &count, query, args...); err != nil {
		return 0, ierr.WithError(err).
			WithHint("Failed to count subscriptions").
			Mark(ierr.ErrDatabase)
	}
	return count, nil
}

func (r *subscriptionRepository) Update(ctx context.Context, sub *subscription.Subscription) error {
	r.logger.Debugw("updating subscription",
		"subscription_id", sub.ID,
		"tenant_id", sub.TenantID,
		"subscription_status", sub.SubscriptionStatus,
	)

	query := `UPDATE subscriptions SET
		plan_id = :plan_id,
		subscription_status = :subscription_status,
		cadence = :cadence,
		current_period_start = :current_period_start,
		current_period_end = :current_period_end,
		trial_end = :trial_end,
		canceled_at = :canceled_at,
		cancel_at_period_end = :cancel_at_period_end,
		processor_customer_id = :processor_customer_id,
		processor_subscription_id = :processor_subscription_id,
		last_event_at = :last_event_at,
		status = :status,
		updated_at = :updated_at,
		updated_by = :updated_by
		WHERE id = :id AND tenant_id = :tenant_id`

	res, err := r.client.Querier(ctx).NamedExecContext(ctx, query, sub)
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to update subscription").
			Mark(ierr.ErrDatabase)
	}
	affected, err := res.RowsAffected()
	if err == nil && affected == 0 {
		return ierr.NewError("subscription not found").
			WithHint("Subscription does not exist").
			WithReportableDetails(map[string]any{"subscription_id": sub.ID}).
			Mark(ierr.ErrNotFound)
	}
	return nil
}

// UpdateFromEvent applies reconciler state behind a conditional predicate
// on the ordering watermark. Two concurrently delivered events both read
// the same stored row; the predicate makes the stale one a no-op instead
// of the last writer.
func (r *subscriptionRepository) UpdateFromEvent(ctx context.Context, sub *subscription.Subscription) (bool, error) {
	r.logger.Debugw("applying event update to subscription",
		"subscription_id", sub.ID,
		"subscription_status", sub.SubscriptionStatus,
		"last_event_at", sub.LastEventAt,
	)

	query := `UPDATE subscriptions SET
		plan_id = :plan_id,
		subscription_status = :subscription_status,
		cadence = :cadence,
		current_period_start = :current_period_start,
		current_period_end = :current_period_end,
		trial_end = :trial_end,
		canceled_at = :canceled_at,
		cancel_at_period_end = :cancel_at_period_end,
		processor_customer_id = :processor_customer_id,
		processor_subscription_id = :processor_subscription_id,
		last_event_at = :last_event_at,
		status = :status,
		updated_at = :updated_at,
		updated_by = :updated_by
		WHERE id = :id AND tenant_id = :tenant_id
		AND last_event_at <= :last_event_at
		AND subscription_status != '` + string(types.SubscriptionStatusCanceled) + `'`

	res, err := r.client.Querier(ctx).NamedExecContext(ctx, query, sub)
	if err != nil {
		return false, ierr.WithError(err).
			WithHint("Failed to update subscription").
			Mark(ierr.ErrDatabase)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, ierr.WithError(err).
			WithHint("Failed to update subscription").
			Mark(ierr.ErrDatabase)
	}
	if affected == 0 {
		r.logger.Infow("subscription event update skipped, newer state already stored",
			"subscription_id", sub.ID,
			"last_event_at", sub.LastEventAt,
		)
		return false, nil
	}
	return true, nil
}

func (r *subscriptionRepository) buildListQuery(ctx context.Context, filter *types.SubscriptionFilter, count bool) (string, []interface{}) {
	var (
		conds []string
		args  []interface{}
	)

	add := func(cond string, arg interface{}) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	add("status != $%d", types.StatusDeleted)

	if tenantID := types.GetTenantID(ctx); tenantID != "" {
		add("tenant_id = $%d", tenantID)
	}
	if filter != nil {
		if len(filter.TenantIDs) > 0 {
			placeholders := make([]string, len(filter.TenantIDs))
			for i, id := range filter.TenantIDs {
				args = append(args, id)
				placeholders[i] = fmt.Sprintf("$%d", len(args))
			}
			conds = append(conds, "tenant_id IN ("+strings.Join(placeholders, ", ")+")")
		}
		if len(filter.PlanIDs) > 0 {
			placeholders := make([]string, len(filter.PlanIDs))
			for i, id := range filter.PlanIDs {
				args = append(args, id)
				placeholders[i] = fmt.Sprintf("$%d", len(args))
			}
			conds = append(conds, "plan_id IN ("+strings.Join(placeholders, ", ")+")")
		}
		if len(filter.SubscriptionStatus) > 0 {
			placeholders := make([]string, len(filter.SubscriptionStatus))
			for i, s := range filter.SubscriptionStatus {
				args = append(args, s)
				placeholders[i] = fmt.Sprintf("$%d", len(args))
			}
			conds = append(conds, "subscription_status IN ("+strings.Join(placeholders, ", ")+")")
		}
	}

	if count {
		return "SELECT COUNT(*) FROM subscriptions WHERE " + strings.Join(conds, " AND "), args
	}

	query := "SELECT " + subscriptionColumns + " FROM subscriptions WHERE " + strings.Join(conds, " AND ")
	query += fmt.Sprintf(" ORDER BY %s %s", sanitizeSortColumn(filter.GetSort()), sanitizeOrder(filter.GetOrder()))
	if !filter.IsUnlimited() {
		args = append(args, filter.GetLimit())
		query += fmt.Sprintf(" LIMIT $%d", len(args))
		args = append(args, filter.GetOffset())
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}
	return query, args
}
