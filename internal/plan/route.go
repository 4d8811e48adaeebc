package plan

import (
	"fmt"
	"strings"

	"loadplan/internal/model"
)

// route is the planner's working representation of one vehicle dispatch.
// It is mutated freely during construction; the Rebalancer relies on clone
// for its speculative swap-then-revert passes.
type route struct {
	carrier *model.Carrier
	slot    string
	stops   []*model.Shipment
	pallets float64
	cluster string
	id      string
	note    string
}

func newRoute(c *model.Carrier, slot string) *route {
	return &route{carrier: c, slot: slot}
}

func (r *route) add(s *model.Shipment) {
	r.stops = append(r.stops, s)
	r.pallets += s.Pallets
	if r.cluster == "" {
		r.cluster = s.Cluster
	}
}

// clone copies the route with a fresh stop slice so a caller can mutate
// speculatively and throw the copy away.
func (r *route) clone() *route {
	cp := *r
	cp.stops = append([]*model.Shipment(nil), r.stops...)
	return &cp
}

// byStore groups stops by store id.
func (r *route) byStore() map[string][]*model.Shipment {
	m := make(map[string][]*model.Shipment, len(r.stops))
	for _, s := range r.stops {
		m[s.Store] = append(m[s.Store], s)
	}
	return m
}

// storeCount is the number of unique stores. A store carrying several
// temperature categories still counts once against the stop limit.
func (r *route) storeCount() int {
	seen := map[string]bool{}
	for _, s := range r.stops {
		seen[s.Store] = true
	}
	return len(seen)
}

// clusterCount is the number of distinct non-empty cluster tags on board.
func (r *route) clusterCount() int {
	seen := map[string]bool{}
	for _, s := range r.stops {
		if s.Cluster != "" {
			seen[s.Cluster] = true
		}
	}
	return len(seen)
}

// recalc rebuilds the running pallet total and cluster tag after direct
// stop mutation.
func (r *route) recalc() {
	r.pallets = 0
	r.cluster = ""
	for _, s := range r.stops {
		r.pallets += s.Pallets
		if r.cluster == "" {
			r.cluster = s.Cluster
		}
	}
}

// legDetail renders the per-leg breakdown for the output contract.
func legDetail(depot string, seq []string, lg []Edge) string {
	if len(seq) == 0 || len(lg) != len(seq)+1 {
		return ""
	}
	var b strings.Builder
	cur := depot
	for i, stop := range seq {
		fmt.Fprintf(&b, "%s->%s %.1fmi; ", cur, stop, lg[i].Miles)
		cur = stop
	}
	fmt.Fprintf(&b, "%s->%s %.1fmi", cur, depot, lg[len(lg)-1].Miles)
	return b.String()
}
