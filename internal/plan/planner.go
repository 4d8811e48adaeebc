package plan

import (
	"fmt"
	"sort"

	"github.com/google/uuid"

	"loadplan/internal/model"
)

// Failure reasons surfaced on shipments that never found a home.
const (
	FailTimeConstraint  = "Time Constraint"
	FailNoViableCarrier = "No Viable Carrier"
)

// Planner runs one synchronous batch planning pass. It owns all mutable
// run state; concurrent runs must each use their own Planner.
type Planner struct {
	cfg          Config
	depot        string
	oracle       Oracle
	rates        DurationTable
	restrictions map[string]model.Restriction

	// Notify, when set, receives lifecycle events for streaming/metrics.
	Notify func(event string, data map[string]any)
}

// New builds a Planner around the run's collaborators.
func New(cfg Config, depot string, oracle Oracle, rates DurationTable, restrictions []model.Restriction) *Planner {
	rm := make(map[string]model.Restriction, len(restrictions))
	for _, r := range restrictions {
		rm[r.Store] = r
	}
	return &Planner{cfg: cfg, depot: depot, oracle: oracle, rates: rates, restrictions: rm}
}

// Stats summarizes one run for logging and metrics.
type Stats struct {
	Shipments          int            `json:"shipments"`
	RoutesBuilt        int            `json:"routesBuilt"`
	PullForwardRoutes  int            `json:"pullForwardRoutes"`
	RebalanceMerges    int            `json:"rebalanceMerges"`
	RebalanceSwaps     int            `json:"rebalanceSwaps"`
	OverspillShipments int            `json:"overspillShipments"`
	UnplannedShipments int            `json:"unplannedShipments"`
	Rejections         map[string]int `json:"rejections,omitempty"`
}

// Result is the outcome of one planning run. Every input shipment appears
// exactly once across Routes, Overspill, and Unplanned.
type Result struct {
	Routes    []model.Route          `json:"routes"`
	Overspill []model.Route          `json:"overspill,omitempty"`
	Unplanned []model.UnplannedGroup `json:"unplanned,omitempty"`
	TotalCost float64                `json:"totalCost"`
	Stats     Stats                  `json:"stats"`
}

// Plan assigns shipments to carrier time slots, sequences stops, and
// validates the outcome. Inputs are copied; the caller's slices are never
// mutated. Structurally malformed shipments and stores with no depot
// distance abort the run: both indicate an upstream contract violation.
func (p *Planner) Plan(shipments []model.Shipment, carriers []model.Carrier) (*Result, error) {
	if err := p.validateInput(shipments); err != nil {
		return nil, err
	}

	pool := make([]*model.Shipment, len(shipments))
	for i := range shipments {
		s := shipments[i]
		s.Attempts, s.InsertFailures, s.FailureReason = 0, 0, ""
		pool[i] = &s
	}
	fleet := cloneCarriers(carriers)

	stats := Stats{Shipments: len(shipments), Rejections: map[string]int{}}
	p.emit("plan.started", map[string]any{"shipments": len(shipments), "carriers": len(fleet)})

	routes, pool := p.buildRoutes(pool, fleet, &stats)
	stats.RoutesBuilt = len(routes)

	routes, merges, swaps := p.rebalance(routes, fleet)
	stats.RebalanceMerges, stats.RebalanceSwaps = merges, swaps

	extra, pool := p.pullForward(pool, fleet, &stats)
	stats.PullForwardRoutes = len(extra)
	routes = append(routes, extra...)

	overspill, groups := p.overflow(pool, &stats)

	res := &Result{Stats: stats}
	for _, r := range routes {
		out := p.render(r)
		res.Routes = append(res.Routes, out)
		res.TotalCost += out.Cost
		p.emit("plan.route.committed", map[string]any{"routeId": out.ID, "carrier": out.Carrier, "pallets": out.Pallets})
	}
	for _, r := range overspill {
		res.Overspill = append(res.Overspill, p.render(r))
	}
	res.Unplanned = groups

	if err := checkConservation(len(shipments), res); err != nil {
		return nil, err
	}
	p.emit("plan.completed", map[string]any{
		"routes": len(res.Routes), "overspill": len(res.Overspill), "cost": res.TotalCost,
	})
	return res, nil
}

// validateInput enforces the ingestion contract: well-formed shipments and
// a known depot distance for every store. A store unreachable from the
// depot cannot even carry a single-stop route; planning around it would
// hide bad upstream data.
func (p *Planner) validateInput(shipments []model.Shipment) error {
	seen := map[string]bool{}
	for i, s := range shipments {
		if s.Store == "" {
			return fmt.Errorf("plan: shipment %d has no store id", i)
		}
		if s.Pallets <= 0 {
			return fmt.Errorf("plan: shipment %d (store %s) has non-positive pallets %.2f", i, s.Store, s.Pallets)
		}
		if seen[s.Store] {
			continue
		}
		seen[s.Store] = true
		if _, ok := p.oracle.Lookup(p.depot, s.Store); !ok {
			return fmt.Errorf("plan: no distance between depot %q and store %q", p.depot, s.Store)
		}
	}
	return nil
}

// buildRoutes is the seed/grow/commit loop. It terminates when no
// unassigned shipment is still eligible to seed.
func (p *Planner) buildRoutes(pool []*model.Shipment, fleet []*model.Carrier, stats *Stats) ([]*route, []*model.Shipment) {
	var routes []*route
	for {
		sortPool(pool)
		seed := pickSeed(pool, p.cfg.MaxAttempts)
		if seed == nil {
			break
		}
		seed.Attempts++

		carrier, slot, ok := p.cheapestSlot(seed, fleet, stats)
		if !ok {
			if !windowUnrestricted(p.windowFor(seed)) {
				seed.FailureReason = FailTimeConstraint
			} else {
				seed.FailureReason = FailNoViableCarrier
			}
			continue
		}

		r := newRoute(carrier, slot.Label)
		r.add(seed)
		seed.InsertFailures = 0
		pool = removeShipment(pool, seed)
		pool = p.grow(r, seed, pool, stats)

		min := p.cfg.MinPalletsPerRoute
		if seed.Attempts > p.cfg.RelaxedMinAttempts {
			min = p.cfg.relaxedMinPallets()
		}
		if r.pallets < min {
			// Disband: every stop goes back to the pool with a bumped
			// failure counter, feeding later relaxation.
			for _, s := range r.stops {
				s.InsertFailures++
				pool = append(pool, s)
			}
			continue
		}

		slot.Used++
		r.id = uuid.New().String()
		routes = append(routes, r)
	}
	return routes, pool
}

// cheapestSlot scores the seed alone against every carrier/slot with spare
// capacity and returns the cheapest viable pair.
func (p *Planner) cheapestSlot(seed *model.Shipment, fleet []*model.Carrier, stats *Stats) (*model.Carrier, *model.TimeSlot, bool) {
	var bestCarrier *model.Carrier
	var bestSlot *model.TimeSlot
	bestScore := 0.0
	for _, c := range fleet {
		for i := range c.Slots {
			slot := &c.Slots[i]
			if slot.Used >= slot.Capacity {
				continue
			}
			score, rej := p.score(seed, newRoute(c, slot.Label))
			if rej != rejNone {
				stats.Rejections[rej.String()]++
				continue
			}
			if bestSlot == nil || score < bestScore {
				bestCarrier, bestSlot, bestScore = c, slot, score
			}
		}
	}
	return bestCarrier, bestSlot, bestSlot != nil
}

// grow repeatedly inserts the lowest-scoring eligible candidate until no
// insertion remains. Candidates outside the route's cluster are skipped
// until their failure counter crosses the relaxation threshold, which
// drops as the seed accumulates retries.
func (p *Planner) grow(r *route, seed *model.Shipment, pool []*model.Shipment, stats *Stats) []*model.Shipment {
	for {
		var best *model.Shipment
		bestScore := 0.0
		for _, s := range pool {
			if s.FailureReason != "" {
				continue
			}
			if !p.clusterEligible(r, seed, s) {
				continue
			}
			score, rej := p.score(s, r)
			if rej != rejNone {
				stats.Rejections[rej.String()]++
				s.InsertFailures++
				continue
			}
			if best == nil || score < bestScore {
				best, bestScore = s, score
			}
		}
		if best == nil {
			return pool
		}
		r.add(best)
		best.InsertFailures = 0
		pool = removeShipment(pool, best)
	}
}

// clusterEligible gates growth candidates to the route's geographic
// cluster. Relaxation escalates with seed retries: the failure-count
// threshold shrinks by one per extra attempt, floored at one.
func (p *Planner) clusterEligible(r *route, seed, s *model.Shipment) bool {
	if r.cluster == "" || s.Cluster == "" || s.Cluster == r.cluster {
		return true
	}
	threshold := p.cfg.ClusterRelaxFailures - (seed.Attempts - 1)
	if threshold < 1 {
		threshold = 1
	}
	return s.InsertFailures >= threshold
}

// pickSeed returns the first pool shipment below the attempt cap with no
// terminal failure, or nil. The pool is already sorted by descending
// pallets.
func pickSeed(pool []*model.Shipment, maxAttempts int) *model.Shipment {
	for _, s := range pool {
		if s.FailureReason == "" && s.Attempts < maxAttempts {
			return s
		}
	}
	return nil
}

// sortPool orders by descending pallets with a stable store/zone
// tie-break so identical inputs always replay identically.
func sortPool(pool []*model.Shipment) {
	sort.SliceStable(pool, func(i, j int) bool {
		if pool[i].Pallets != pool[j].Pallets {
			return pool[i].Pallets > pool[j].Pallets
		}
		if pool[i].Store != pool[j].Store {
			return pool[i].Store < pool[j].Store
		}
		return pool[i].Zone < pool[j].Zone
	})
}

func removeShipment(pool []*model.Shipment, s *model.Shipment) []*model.Shipment {
	for i, c := range pool {
		if c == s {
			return append(pool[:i], pool[i+1:]...)
		}
	}
	return pool
}

// cloneCarriers deep-copies the fleet so slot usage stays owned by the run.
func cloneCarriers(carriers []model.Carrier) []*model.Carrier {
	out := make([]*model.Carrier, len(carriers))
	for i := range carriers {
		c := carriers[i]
		c.Slots = append([]model.TimeSlot(nil), carriers[i].Slots...)
		caps := make(map[int]float64, len(carriers[i].Capacity))
		for k, v := range carriers[i].Capacity {
			caps[k] = v
		}
		c.Capacity = caps
		out[i] = &c
	}
	return out
}

// RestoreSlotUsage rebuilds slot usage counters from an already-committed
// plan so a subset can be re-planned against the remaining capacity.
func RestoreSlotUsage(carriers []model.Carrier, committed []model.Route) []model.Carrier {
	for ci := range carriers {
		for si := range carriers[ci].Slots {
			carriers[ci].Slots[si].Used = 0
		}
	}
	for _, r := range committed {
		for ci := range carriers {
			if carriers[ci].Name != r.Carrier {
				continue
			}
			for si := range carriers[ci].Slots {
				if carriers[ci].Slots[si].Label == r.TimeSlot {
					carriers[ci].Slots[si].Used++
					break
				}
			}
			break
		}
	}
	return carriers
}

func (p *Planner) emit(event string, data map[string]any) {
	if p.Notify != nil {
		p.Notify(event, data)
	}
}

// checkConservation verifies no shipment was dropped or duplicated.
func checkConservation(input int, res *Result) error {
	total := 0
	for _, r := range res.Routes {
		total += len(r.Stops)
	}
	for _, r := range res.Overspill {
		total += len(r.Stops)
	}
	for _, g := range res.Unplanned {
		total += len(g.Shipments)
	}
	if total != input {
		return fmt.Errorf("plan: shipment conservation broken: %d in, %d out", input, total)
	}
	return nil
}

// render flattens an internal route into the output contract.
func (p *Planner) render(r *route) model.Route {
	seq := SequenceStops(r.stops, p.depot, p.oracle)
	lg, haveLegs := legs(p.oracle, p.depot, seq)
	duty, _ := SimulateDuty(seq, r.byStore(), p.depot, p.oracle, p.rates, p.cfg)

	class := p.requiredTrailer(r.slot, r.stops)
	capacity := r.carrier.CapacityFor(class)
	util := 0.0
	if capacity > 0 {
		util = r.pallets / capacity * 100
	}
	restricted := false
	byStore := r.byStore()
	stops := make([]model.RouteStop, 0, len(r.stops))
	for _, store := range seq {
		if _, ok := p.restrictions[store]; ok {
			restricted = true
		}
		for _, s := range byStore[store] {
			stops = append(stops, model.RouteStop{Store: s.Store, Zone: s.Zone, Pallets: s.Pallets, ProductType: s.ProductType})
		}
	}
	mileage := "OK"
	if duty.TotalMiles > p.cfg.MaxRouteMiles {
		mileage = "OVER"
	}
	detail := ""
	if haveLegs {
		detail = legDetail(p.depot, seq, lg)
	}
	cost := 0.0
	if len(r.stops) > 0 {
		cost = duty.TotalMiles*r.carrier.CostPerMile + r.carrier.CostPerRoute
	}
	return model.Route{
		ID:            r.id,
		Carrier:       r.carrier.Name,
		TimeSlot:      r.slot,
		Cluster:       r.cluster,
		StopCount:     r.storeCount(),
		Stops:         stops,
		LegDetail:     detail,
		Miles:         duty.TotalMiles,
		Restricted:    restricted,
		TrailerSize:   class,
		Pallets:       r.pallets,
		Utilization:   util,
		TravelMinutes: duty.TravelMinutes,
		StopMinutes:   duty.StopMinutes,
		TotalMinutes:  duty.TotalMinutes,
		DutyStatus:    duty.Status,
		Cost:          cost,
		MileageStatus: mileage,
		Note:          r.note,
	}
}
