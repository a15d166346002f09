package usage

import (
	"context"
	"time"

	"github.com/vendorgraph/vendorgraph/internal/types"
)

// Repository defines the interface for the append-only usage ledger
type Repository interface {
	// Record appends a usage record. Recording a dedup key that already
	// exists for the (tenant, resource) pair is a no-op, not an error.
	Record(ctx context.Context, rec *UsageRecord) error

	// RecordWithinLimit appends rec only while the period total stays
	// within limit, holding a storage-level lock over the read-then-write
	// so two concurrent writers cannot both pass the headroom check.
	// limit == types.UnlimitedLimit skips the check and always appends.
	RecordWithinLimit(ctx context.Context, rec *UsageRecord, limit int64, periodStart, periodEnd time.Time) (*ConsumeOutcome, error)

	// Total sums the quantity recorded for a resource across all records
	// whose billing period overlaps the query window
	Total(ctx context.Context, tenantID string, resource types.MeteredResource, periodStart, periodEnd time.Time) (int64, error)

	List(ctx context.Context, filter *types.UsageFilter) ([]*UsageRecord, error)
	Count(ctx context.Context, filter *types.UsageFilter) (int, error)
}

// ConsumeOutcome reports what a gated append did to the ledger
type ConsumeOutcome struct {
	// Inserted is true when a new row was written
	Inserted bool
	// Deduped is true when the dedup key was already present and the
	// write was a no-op
	Deduped bool
	// Total is the period total after the attempt
	Total int64
}
