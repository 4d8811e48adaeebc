package plan

import (
	"math"

	"github.com/google/uuid"

	"loadplan/internal/model"
)

// pullForward fills leftover carrier slot units from the unassigned pool.
// Each spare unit accumulates shipments greedily until the relaxed minimum
// pallet threshold is met; accumulations that fall short are rolled back,
// returning their stops to the pool unchanged.
func (p *Planner) pullForward(pool []*model.Shipment, fleet []*model.Carrier, stats *Stats) ([]*route, []*model.Shipment) {
	var made []*route
	target := p.cfg.relaxedMinPallets()
	for _, c := range fleet {
		for si := range c.Slots {
			slot := &c.Slots[si]
			for slot.Used < slot.Capacity {
				r := newRoute(c, slot.Label)
				for r.pallets < target {
					sortPool(pool)
					var best *model.Shipment
					bestScore := 0.0
					for _, s := range pool {
						if s.FailureReason != "" {
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
						break
					}
					r.add(best)
					pool = removeShipment(pool, best)
				}
				if r.pallets < target {
					// Not enough freight for this slot; put the stops back
					// untouched and stop probing the slot.
					pool = append(pool, r.stops...)
					break
				}
				slot.Used++
				for _, s := range r.stops {
					s.InsertFailures = 0
				}
				r.id = uuid.New().String()
				made = append(made, r)
			}
		}
	}
	return made, pool
}

// overflow accounts for everything still unassigned. Terminal failures go
// to manual-review groups; the rest is packed first-fit into overspill
// routes against an uncapacitated, zero-cost pseudo-carrier. Overspill is
// unscheduled freight awaiting manual carrier assignment, so the mileage
// and duty hard limits do not bind it.
func (p *Planner) overflow(pool []*model.Shipment, stats *Stats) ([]*route, []model.UnplannedGroup) {
	var timeFailed, otherFailed, leftovers []*model.Shipment
	for _, s := range pool {
		switch s.FailureReason {
		case "":
			leftovers = append(leftovers, s)
		case FailTimeConstraint:
			timeFailed = append(timeFailed, s)
		default:
			otherFailed = append(otherFailed, s)
		}
	}

	pseudo := &model.Carrier{
		Name:     "UNASSIGNED",
		Capacity: map[int]float64{model.Trailer53: math.MaxFloat64},
	}
	relaxed := p.cfg
	relaxed.HardMaxLegMiles = math.MaxFloat64
	relaxed.MaxRouteMiles = math.MaxFloat64
	relaxed.relaxDuty = true

	sortPool(leftovers)
	var spill []*route
	for _, s := range leftovers {
		placed := false
		for _, r := range spill {
			if _, rej := p.scoreWith(relaxed, s, r); rej == rejNone {
				r.add(s)
				placed = true
				break
			}
		}
		if placed {
			continue
		}
		r := newRoute(pseudo, "")
		if _, rej := p.scoreWith(relaxed, s, r); rej != rejNone {
			stats.Rejections[rej.String()]++
			otherFailed = append(otherFailed, s)
			continue
		}
		r.add(s)
		r.id = uuid.New().String()
		r.note = "unscheduled freight: assign carrier manually"
		spill = append(spill, r)
	}

	var groups []model.UnplannedGroup
	if len(timeFailed) > 0 {
		groups = append(groups, model.UnplannedGroup{Reason: FailTimeConstraint, Shipments: detach(timeFailed)})
	}
	if len(otherFailed) > 0 {
		groups = append(groups, model.UnplannedGroup{Reason: "Other", Shipments: detach(otherFailed)})
	}
	for _, r := range spill {
		stats.OverspillShipments += len(r.stops)
	}
	for _, g := range groups {
		stats.UnplannedShipments += len(g.Shipments)
	}
	return spill, groups
}

func detach(ss []*model.Shipment) []model.Shipment {
	out := make([]model.Shipment, len(ss))
	for i, s := range ss {
		out[i] = *s
	}
	return out
}
