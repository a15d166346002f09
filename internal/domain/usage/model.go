package usage

import (
	"time"

	ierr "github.com/vendorgraph/vendorgraph/internal/errors"
	"github.com/vendorgraph/vendorgraph/internal/types"
)

// UsageRecord is one append-only ledger entry for a metered resource.
// Records are never updated or deleted, the period total is a sum.
type UsageRecord struct {
	ID       string                `db:"id" json:"id"`
	Resource types.MeteredResource `db:"resource" json:"resource"`
	Quantity int64                 `db:"quantity" json:"quantity"`

	// DedupKey makes recording idempotent per (tenant, resource).
	// Re-recording the same key is a silent no-op.
	DedupKey string `db:"dedup_key" json:"dedup_key"`

	RecordedAt time.Time `db:"recorded_at" json:"recorded_at"`

	// PeriodStart/PeriodEnd pin the record to the billing period it was
	// consumed in. Totals aggregate by period overlap, not by RecordedAt,
	// so a retried write landing after the period rolled over still counts
	// against the right period.
	PeriodStart time.Time `db:"period_start" json:"period_start"`
	PeriodEnd   time.Time `db:"period_end" json:"period_end"`

	types.BaseModel
}

// Validate checks the record before it is appended to the ledger
func (r *UsageRecord) Validate() error {
	if err := r.Resource.Validate(); err != nil {
		return err
	}
	if r.Quantity <= 0 {
		return ierr.NewError("usage quantity must be positive").
			WithHint("Usage is recorded in positive increments only").
			WithReportableDetails(map[string]any{
				"resource": r.Resource,
				"quantity": r.Quantity,
			}).
			Mark(ierr.ErrValidation)
	}
	if r.DedupKey == "" {
		return ierr.NewError("dedup key is required").
			WithHint("Every usage record needs a deduplication key").
			Mark(ierr.ErrValidation)
	}
	return nil
}
