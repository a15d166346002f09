package plan

import (
	"sort"

	"github.com/samber/lo"
	"github.com/spf13/viper"
	"github.com/vendorgraph/vendorgraph/internal/config"
	ierr "github.com/vendorgraph/vendorgraph/internal/errors"
	"github.com/vendorgraph/vendorgraph/internal/logger"
	"github.com/vendorgraph/vendorgraph/internal/types"
)

// Catalog is the in-memory plan registry. It is loaded once at startup,
// fully validated, and immutable afterwards. Entitlement resolution reads
// the pre-resolved plans so inheritance is paid for only at load time.
type Catalog struct {
	plans    map[string]*Plan
	resolved map[string]*Plan
	byLookup map[string]*Plan
	byPrice  map[string]*Plan
	ordered  []*Plan
	fallback *Plan
	logger   *logger.Logger
}

type catalogFile struct {
	Plans []*Plan `mapstructure:"plans"`
}

// NewCatalog loads and validates the plan catalog from the configured file.
// Any integrity problem is fatal, the server must not start on a broken catalog.
func NewCatalog(cfg *config.Configuration, log *logger.Logger) (*Catalog, error) {
	v := viper.New()
	v.SetConfigFile(cfg.Catalog.Path)

	if err := v.ReadInConfig(); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Plan catalog file could not be read").
			WithReportableDetails(map[string]any{"path": cfg.Catalog.Path}).
			Mark(ierr.ErrCatalogIntegrity)
	}

	var file catalogFile
	if err := v.Unmarshal(&file); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Plan catalog file could not be parsed").
			WithReportableDetails(map[string]any{"path": cfg.Catalog.Path}).
			Mark(ierr.ErrCatalogIntegrity)
	}

	catalog, err := NewCatalogFromPlans(file.Plans, log)
	if err != nil {
		return nil, err
	}

	log.Infow("plan catalog loaded",
		"path", cfg.Catalog.Path,
		"plans", len(catalog.ordered),
	)
	return catalog, nil
}

// NewCatalogFromPlans builds a catalog from already-parsed plans
func NewCatalogFromPlans(plans []*Plan, log *logger.Logger) (*Catalog, error) {
	c := &Catalog{
		plans:    make(map[string]*Plan, len(plans)),
		resolved: make(map[string]*Plan, len(plans)),
		byLookup: make(map[string]*Plan, len(plans)),
		byPrice:  make(map[string]*Plan, len(plans)),
		logger:   log,
	}

	for _, p := range plans {
		if p.Status == "" {
			p.Status = types.StatusPublished
		}
		if err := p.Validate(); err != nil {
			return nil, ierr.WithError(err).
				WithHint("Plan catalog contains an invalid plan").
				Mark(ierr.ErrCatalogIntegrity)
		}
		if _, exists := c.plans[p.ID]; exists {
			return nil, ierr.NewError("duplicate plan id in catalog").
				WithHint("Every plan id must be unique").
				WithReportableDetails(map[string]any{"plan_id": p.ID}).
				Mark(ierr.ErrCatalogIntegrity)
		}
		for resource, price := range p.OveragePrices {
			// An explicit zero price silently gives away unmetered overage,
			// treat it as a configuration mistake. Absent means not billable.
			if price <= 0 {
				return nil, ierr.NewError("overage price must be positive").
					WithHint("Remove the overage price entry to make overage non-billable").
					WithReportableDetails(map[string]any{
						"plan_id":  p.ID,
						"resource": resource,
						"price":    price,
					}).
					Mark(ierr.ErrCatalogIntegrity)
			}
			if limit, ok := p.Limits[resource]; ok && limit == types.UnlimitedLimit {
				return nil, ierr.NewError("overage price configured for unlimited resource").
					WithHint("Unlimited resources cannot bill overage").
					WithReportableDetails(map[string]any{
						"plan_id":  p.ID,
						"resource": resource,
					}).
					Mark(ierr.ErrCatalogIntegrity)
			}
		}
		c.plans[p.ID] = p
	}

	for _, p := range c.plans {
		if p.InheritsFrom == "" {
			continue
		}
		if _, ok := c.plans[p.InheritsFrom]; !ok {
			return nil, ierr.NewError("plan inherits from unknown plan").
				WithHint("inherits_from must reference an existing plan id").
				WithReportableDetails(map[string]any{
					"plan_id":       p.ID,
					"inherits_from": p.InheritsFrom,
				}).
				Mark(ierr.ErrCatalogIntegrity)
		}
	}

	if err := c.detectCycles(); err != nil {
		return nil, err
	}

	for id := range c.plans {
		c.resolved[id] = c.resolve(id)
	}

	for _, p := range c.resolved {
		if p.LookupKey != "" {
			if _, exists := c.byLookup[p.LookupKey]; exists {
				return nil, ierr.NewError("duplicate plan lookup key in catalog").
					WithHint("Every plan lookup key must be unique").
					WithReportableDetails(map[string]any{"lookup_key": p.LookupKey}).
					Mark(ierr.ErrCatalogIntegrity)
			}
			c.byLookup[p.LookupKey] = p
		}
		if p.StripePriceID != "" {
			c.byPrice[p.StripePriceID] = p
		}
		c.ordered = append(c.ordered, p)
	}
	sort.Slice(c.ordered, func(i, j int) bool {
		if c.ordered[i].PriceAmount != c.ordered[j].PriceAmount {
			return c.ordered[i].PriceAmount < c.ordered[j].PriceAmount
		}
		return c.ordered[i].ID < c.ordered[j].ID
	})

	c.fallback = c.pickFallback()

	return c, nil
}

// detectCycles walks every inheritance chain and fails on the first loop
func (c *Catalog) detectCycles() error {
	for id := range c.plans {
		seen := map[string]bool{}
		current := id
		for current != "" {
			if seen[current] {
				return ierr.NewError("plan inheritance cycle detected").
					WithHint("Plan inheritance must form a tree").
					WithReportableDetails(map[string]any{"plan_id": id}).
					Mark(ierr.ErrCatalogIntegrity)
			}
			seen[current] = true
			current = c.plans[current].InheritsFrom
		}
	}
	return nil
}

// resolve flattens a plan's inheritance chain into a single effective plan.
// Features and compliance tags accumulate, limits and overage prices are
// overridden per key with the child winning.
func (c *Catalog) resolve(id string) *Plan {
	// Build root-to-leaf chain
	var chain []*Plan
	for current := id; current != ""; current = c.plans[current].InheritsFrom {
		chain = append([]*Plan{c.plans[current]}, chain...)
	}

	leaf := chain[len(chain)-1]
	out := *leaf
	out.Features = nil
	out.ComplianceTags = nil
	out.Limits = make(map[string]int64)
	out.OveragePrices = make(map[string]int64)

	featureSet := map[string]bool{}
	tagSet := map[string]bool{}
	for _, p := range chain {
		for _, f := range p.Features {
			if !featureSet[f] {
				featureSet[f] = true
				out.Features = append(out.Features, f)
			}
		}
		for _, t := range p.ComplianceTags {
			if !tagSet[t] {
				tagSet[t] = true
				out.ComplianceTags = append(out.ComplianceTags, t)
			}
		}
		for k, v := range p.Limits {
			out.Limits[k] = v
		}
		for k, v := range p.OveragePrices {
			out.OveragePrices[k] = v
		}
		out.AllFeatures = out.AllFeatures || p.AllFeatures
	}

	// Inheritance can pair a parent's overage price with a child's
	// unlimited override, the price is meaningless then
	for k, v := range out.Limits {
		if v == types.UnlimitedLimit {
			delete(out.OveragePrices, k)
		}
	}

	sort.Strings(out.Features)
	sort.Strings(out.ComplianceTags)

	return &out
}

// pickFallback selects the cheapest published main plan. It backs the
// entitlement resolution for subscriptions referencing unknown plan ids,
// restricting access rather than failing open.
func (c *Catalog) pickFallback() *Plan {
	for _, p := range c.ordered {
		if p.Type == types.PlanTypeMain && p.Status == types.StatusPublished {
			return p
		}
	}
	return nil
}

// Get returns the resolved plan for the given id
func (c *Catalog) Get(id string) (*Plan, error) {
	if p, ok := c.resolved[id]; ok {
		return p, nil
	}
	return nil, ierr.NewError("plan not found").
		WithHint("Plan does not exist in the catalog").
		WithReportableDetails(map[string]any{"plan_id": id}).
		Mark(ierr.ErrNotFound)
}

// GetByLookupKey returns the resolved plan for the given lookup key
func (c *Catalog) GetByLookupKey(lookupKey string) (*Plan, error) {
	if p, ok := c.byLookup[lookupKey]; ok {
		return p, nil
	}
	return nil, ierr.NewError("plan not found").
		WithHint("Plan does not exist in the catalog").
		WithReportableDetails(map[string]any{"lookup_key": lookupKey}).
		Mark(ierr.ErrNotFound)
}

// GetByStripePriceID returns the plan mapped to a processor price id
func (c *Catalog) GetByStripePriceID(priceID string) (*Plan, error) {
	if p, ok := c.byPrice[priceID]; ok {
		return p, nil
	}
	return nil, ierr.NewError("plan not found for price").
		WithHint("No catalog plan maps to this price").
		WithReportableDetails(map[string]any{"stripe_price_id": priceID}).
		Mark(ierr.ErrNotFound)
}

// List returns resolved plans matching the filter, ordered by price ascending
func (c *Catalog) List(filter *types.PlanFilter) []*Plan {
	var out []*Plan
	for _, p := range c.ordered {
		if filter != nil {
			if filter.GetStatus() != "" && string(p.Status) != filter.GetStatus() {
				continue
			}
			if filter.Type != nil && p.Type != *filter.Type {
				continue
			}
			if filter.Cadence != nil && p.Cadence != *filter.Cadence {
				continue
			}
			if len(filter.PlanIDs) > 0 && !lo.Contains(filter.PlanIDs, p.ID) {
				continue
			}
		}
		out = append(out, p)
	}
	return out
}

// Fallback returns the plan used for subscriptions with unknown plan ids.
// May be nil when the catalog has no published main plan.
func (c *Catalog) Fallback() *Plan {
	return c.fallback
}
