package plan

import (
	"strings"

	"loadplan/internal/model"
)

// rejectReason labels why the scorer said no. Every rejection is an
// ordinary outcome, not an error; the labels feed metrics.
type rejectReason int

const (
	rejNone rejectReason = iota
	rejStops
	rejTemperature
	rejWindow
	rejCapacity
	rejUnknownDistance
	rejLegCap
	rejMileage
	rejDuty
)

func (r rejectReason) String() string {
	switch r {
	case rejNone:
		return "none"
	case rejStops:
		return "stop_count"
	case rejTemperature:
		return "temperature"
	case rejWindow:
		return "time_window"
	case rejCapacity:
		return "capacity"
	case rejUnknownDistance:
		return "unknown_distance"
	case rejLegCap:
		return "leg_distance"
	case rejMileage:
		return "route_mileage"
	case rejDuty:
		return "duty_hours"
	}
	return "unknown"
}

// score decides whether a shipment may join a route and, if allowed, the
// marginal cost of inserting it. Lower is better. Checks run in order and
// short-circuit on the first failure; all rejections look the same to the
// caller.
func (p *Planner) score(s *model.Shipment, r *route) (float64, rejectReason) {
	return p.scoreWith(p.cfg, s, r)
}

func (p *Planner) scoreWith(cfg Config, s *model.Shipment, r *route) (float64, rejectReason) {
	// 1. Unique-store count. A store never counts twice even when it
	// ships several temperature categories.
	stores := map[string]bool{s.Store: true}
	for _, st := range r.stops {
		stores[st.Store] = true
	}
	if len(stores) > cfg.MaxStopsPerRoute {
		return 0, rejStops
	}

	// 2. Temperature compatibility.
	proposed := r.clone()
	proposed.add(s)
	if !zonesCompatible(proposed.stops, cfg) {
		return 0, rejTemperature
	}

	// 3. Delivery window vs. the route's departure slot.
	if !slotFitsWindow(r.slot, p.windowFor(s)) {
		return 0, rejWindow
	}

	// 4. Trailer-class capacity with the overplan allowance.
	class := p.requiredTrailer(r.slot, proposed.stops)
	capacity := r.carrier.CapacityFor(class)
	if capacity <= 0 || proposed.pallets > capacity*cfg.OverplanFactor {
		return 0, rejCapacity
	}

	// 5. Sequence both shapes and resolve every leg. A single missing
	// distance rejects; a guessed distance is worse than no route.
	newSeq := SequenceStops(proposed.stops, p.depot, p.oracle)
	newLegs, ok := legs(p.oracle, p.depot, newSeq)
	if !ok {
		return 0, rejUnknownDistance
	}
	var oldLegs []Edge
	if len(r.stops) > 0 {
		oldSeq := SequenceStops(r.stops, p.depot, p.oracle)
		oldLegs, ok = legs(p.oracle, p.depot, oldSeq)
		if !ok {
			return 0, rejUnknownDistance
		}
	}

	// 6. Hard per-leg cap.
	if maxLegMiles(newLegs) > cfg.HardMaxLegMiles {
		return 0, rejLegCap
	}

	// 7. Duty-cycle simulation: mileage cap and compliance.
	duty, err := SimulateDuty(newSeq, proposed.byStore(), p.depot, p.oracle, p.rates, cfg)
	if err != nil {
		return 0, rejUnknownDistance
	}
	if duty.TotalMiles > cfg.MaxRouteMiles {
		return 0, rejMileage
	}
	if duty.Status != model.DutyOK && !cfg.relaxDuty {
		return 0, rejDuty
	}

	// 8. Marginal monetary cost plus the long-leg penalty delta.
	newCost := duty.TotalMiles*r.carrier.CostPerMile + r.carrier.CostPerRoute
	oldCost := 0.0
	if len(r.stops) > 0 {
		oldCost = totalMiles(oldLegs)*r.carrier.CostPerMile + r.carrier.CostPerRoute
	}
	delta := newCost - oldCost
	delta += legPenalty(newLegs, cfg.PreferredMaxLegMiles) - legPenalty(oldLegs, cfg.PreferredMaxLegMiles)
	return delta, rejNone
}

// windowFor resolves the effective delivery window for a shipment: its own
// window first, then the store restriction's.
func (p *Planner) windowFor(s *model.Shipment) string {
	if !windowUnrestricted(s.Window) {
		return s.Window
	}
	if r, ok := p.restrictions[s.Store]; ok {
		return r.Window
	}
	return ""
}

// zonesCompatible applies the co-loading rules. Freezer freight rides
// alone. Chiller may mix with ambient/produce only when the mixed-zone
// override is on and, per store, either no chiller is present or the
// ambient+produce total stays under the small-quantity threshold.
func zonesCompatible(stops []*model.Shipment, cfg Config) bool {
	has := map[model.TempZone]bool{}
	chiller := map[string]float64{}
	ambientProduce := map[string]float64{}
	for _, s := range stops {
		has[s.Zone] = true
		switch s.Zone {
		case model.ZoneChiller:
			chiller[s.Store] += s.Pallets
		case model.ZoneAmbient, model.ZoneProduce:
			ambientProduce[s.Store] += s.Pallets
		}
	}
	if has[model.ZoneFreezer] && (has[model.ZoneChiller] || has[model.ZoneAmbient] || has[model.ZoneProduce]) {
		return false
	}
	if has[model.ZoneChiller] && (has[model.ZoneAmbient] || has[model.ZoneProduce]) {
		if !cfg.AllowMixedZones {
			return false
		}
		for store, ap := range ambientProduce {
			if chiller[store] > 0 && ap >= cfg.SmallAmbientPallets {
				return false
			}
		}
	}
	return true
}

// requiredTrailer inspects every unique store's equipment restriction for
// the route's departure time. A "36" or "48" requirement escalates the
// required class downward; the default is the largest class.
func (p *Planner) requiredTrailer(slot string, stops []*model.Shipment) int {
	class := model.Trailer53
	night := false
	if minute, ok := parseClock(slot); ok {
		night = p.cfg.night(minute)
	}
	seen := map[string]bool{}
	for _, s := range stops {
		if seen[s.Store] {
			continue
		}
		seen[s.Store] = true
		r, ok := p.restrictions[s.Store]
		if !ok {
			continue
		}
		eq := r.EquipmentDay
		if night {
			eq = r.EquipmentNight
		}
		switch {
		case strings.Contains(eq, "36"):
			class = model.Trailer36
		case strings.Contains(eq, "48") && class > model.Trailer48:
			class = model.Trailer48
		}
	}
	return class
}

// validRoute is the standalone validation used after rebalancing moves:
// stop count, temperature, capacity, mileage, and duty compliance must all
// hold independently of how the route was built.
func (p *Planner) validRoute(r *route) bool {
	if r.storeCount() > p.cfg.MaxStopsPerRoute {
		return false
	}
	if !zonesCompatible(r.stops, p.cfg) {
		return false
	}
	class := p.requiredTrailer(r.slot, r.stops)
	capacity := r.carrier.CapacityFor(class)
	if capacity <= 0 || r.pallets > capacity*p.cfg.OverplanFactor {
		return false
	}
	seq := SequenceStops(r.stops, p.depot, p.oracle)
	duty, err := SimulateDuty(seq, r.byStore(), p.depot, p.oracle, p.rates, p.cfg)
	if err != nil {
		return false
	}
	return duty.TotalMiles <= p.cfg.MaxRouteMiles && duty.Status == model.DutyOK
}
