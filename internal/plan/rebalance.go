package plan

import (
	"math"

	"loadplan/internal/model"
)

// Rebalancer scoring weights. The utilization term biases hard toward full
// trailers; the mileage term kicks in past 85% of the route cap.
const (
	utilizationPenaltyScale = 500.0
	mileageOveragePenalty   = 2.0
	multiClusterPenalty     = 250.0
	mileageSoftFraction     = 0.85
	scoreEpsilon            = 1e-6
)

// rebalance runs the post-construction local search over committed routes:
// a consolidation pass that merges whole routes, then a swap pass over
// stop pairs. Only routes sharing a carrier and time slot are touched.
// A round with no change ends the loop before the round cap.
func (p *Planner) rebalance(routes []*route, fleet []*model.Carrier) ([]*route, int, int) {
	merges, swaps := 0, 0
	for round := 0; round < p.cfg.RebalanceRounds; round++ {
		changed := false
		routes, merges, changed = p.consolidate(routes, fleet, merges, changed)
		swaps, changed = p.swapStops(routes, swaps, changed)
		if !changed {
			break
		}
	}
	return routes, merges, swaps
}

// consolidate tries to fold each route wholly into another. Sources scan
// back-to-front so removal is safe; a merged source frees its slot unit.
func (p *Planner) consolidate(routes []*route, fleet []*model.Carrier, merges int, changed bool) ([]*route, int, bool) {
	for i := len(routes) - 1; i >= 0; i-- {
		src := routes[i]
		for j := range routes {
			if j == i || routes[j].carrier.Name != src.carrier.Name || routes[j].slot != src.slot {
				continue
			}
			merged := p.tryMerge(src, routes[j])
			if merged == nil {
				continue
			}
			routes[j] = merged
			releaseSlot(fleet, src.carrier.Name, src.slot)
			routes = append(routes[:i], routes[i+1:]...)
			merges++
			changed = true
			break
		}
	}
	return routes, merges, changed
}

// tryMerge simulates inserting every source stop into a clone of the
// target. All insertions must pass the scorer and the merged route must
// validate on its own; otherwise the clone is discarded.
func (p *Planner) tryMerge(src, dst *route) *route {
	merged := dst.clone()
	for _, s := range src.stops {
		if _, rej := p.score(s, merged); rej != rejNone {
			return nil
		}
		merged.add(s)
	}
	if !p.validRoute(merged) {
		return nil
	}
	return merged
}

// swapStops tries every single-stop exchange between route pairs on the
// same carrier and slot. Mutation is speculative: both routes are cloned,
// swapped, and kept only when the summed standalone score improves and
// both still validate.
func (p *Planner) swapStops(routes []*route, swaps int, changed bool) (int, bool) {
	for a := 0; a < len(routes); a++ {
		for b := a + 1; b < len(routes); b++ {
			if routes[a].carrier.Name != routes[b].carrier.Name || routes[a].slot != routes[b].slot {
				continue
			}
			for ia := 0; ia < len(routes[a].stops); ia++ {
				for ib := 0; ib < len(routes[b].stops); ib++ {
					ca, cb := routes[a].clone(), routes[b].clone()
					ca.stops[ia], cb.stops[ib] = cb.stops[ib], ca.stops[ia]
					ca.recalc()
					cb.recalc()
					if !p.validRoute(ca) || !p.validRoute(cb) {
						continue
					}
					before := p.routeScore(routes[a]) + p.routeScore(routes[b])
					after := p.routeScore(ca) + p.routeScore(cb)
					if after+scoreEpsilon >= before {
						continue
					}
					routes[a], routes[b] = ca, cb
					swaps++
					changed = true
				}
			}
		}
	}
	return swaps, changed
}

// routeScore is the standalone figure the swap pass minimizes: monetary
// cost, a squared empty-capacity penalty, a squared overage past the soft
// mileage threshold, and a flat penalty for spanning clusters. Distinct
// from the scorer's marginal-cost return.
func (p *Planner) routeScore(r *route) float64 {
	seq := SequenceStops(r.stops, p.depot, p.oracle)
	duty, err := SimulateDuty(seq, r.byStore(), p.depot, p.oracle, p.rates, p.cfg)
	if err != nil {
		return math.Inf(1)
	}
	score := duty.TotalMiles*r.carrier.CostPerMile + r.carrier.CostPerRoute

	capacity := r.carrier.CapacityFor(p.requiredTrailer(r.slot, r.stops))
	if capacity > 0 {
		util := r.pallets / capacity
		if util > 1 {
			util = 1
		}
		score += utilizationPenaltyScale * (1 - util) * (1 - util)
	}
	soft := mileageSoftFraction * p.cfg.MaxRouteMiles
	if over := duty.TotalMiles - soft; over > 0 {
		score += mileageOveragePenalty * over * over
	}
	if r.clusterCount() > 1 {
		score += multiClusterPenalty
	}
	return score
}

func releaseSlot(fleet []*model.Carrier, carrier, label string) {
	for _, c := range fleet {
		if c.Name != carrier {
			continue
		}
		for i := range c.Slots {
			if c.Slots[i].Label == label && c.Slots[i].Used > 0 {
				c.Slots[i].Used--
				return
			}
		}
		return
	}
}
