package models

// Tier is a probability bucket of prizes sharing a selection weight. Weight is
// static metadata in [0,1]; it is normalized against the other non-depleted
// tiers at draw time, never derived from the counters.
type Tier struct {
	Tier      int     `json:"tier"`
	Name      string  `json:"name"`
	Weight    float64 `json:"weight"`
	Total     int     `json:"total_prizes"`
	Remaining int     `json:"remaining_prizes"`
}

// Depleted reports whether the tier has no prize units left.
func (t *Tier) Depleted() bool {
	return t.Remaining <= 0
}

// Prize is one concrete prize within a tier.
type Prize struct {
	ID          string `json:"id"`
	Tier        int    `json:"tier"`
	Name        string `json:"name"`
	Description string `json:"description"`
	ImageURL    string `json:"image_url,omitempty"`
	Total       int    `json:"total_quantity"`
	Remaining   int    `json:"remaining_quantity"`
	Active      bool   `json:"is_active"`
}

// Available reports whether the prize may be the result of a draw.
func (p *Prize) Available() bool {
	return p.Remaining > 0 && p.Active
}

// TierSnapshot is the point-in-time view of one tier and its eligible prizes
// that the allocator decides on. The snapshot is advisory: the store-level
// conditional decrement re-checks the counters at commit time.
type TierSnapshot struct {
	Tier   Tier
	Prizes []Prize
}

// TierStats is the per-tier aggregation served by the stats projections.
type TierStats struct {
	Tier      int    `json:"tier"`
	Name      string `json:"name"`
	Total     int    `json:"total_prizes"`
	Remaining int    `json:"remaining_prizes"`
	Awarded   int    `json:"awarded_prizes"`
}
