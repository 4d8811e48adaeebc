package plan

import (
	"math"

	"loadplan/internal/model"
)

// SequenceStops orders the unique stores of a candidate route. Ambient-only
// stores come first, nearest-neighbor from the depot; stores with cold-chain
// freight follow, nearest-neighbor from the last ambient stop. The split
// mirrors physical unloading: ambient freight comes off before refrigerated
// compartments are opened.
//
// Deterministic for a fixed input order; ties and unknown distances break
// by first occurrence.
func SequenceStops(stops []*model.Shipment, depot string, oracle Oracle) []string {
	var order []string
	cold := map[string]bool{}
	seen := map[string]bool{}
	for _, s := range stops {
		if !seen[s.Store] {
			seen[s.Store] = true
			order = append(order, s.Store)
		}
		if s.Zone.ColdChain() {
			cold[s.Store] = true
		}
	}

	var ambient, chilled []string
	for _, st := range order {
		if cold[st] {
			chilled = append(chilled, st)
		} else {
			ambient = append(ambient, st)
		}
	}

	seq := nearestNeighbor(depot, ambient, oracle)
	start := depot
	if len(seq) > 0 {
		start = seq[len(seq)-1]
	}
	return append(seq, nearestNeighbor(start, chilled, oracle)...)
}

// nearestNeighbor repeatedly visits the closest remaining location.
// Unknown distances are treated as infinite; when nothing remaining is
// reachable, the rest is appended in its existing order.
func nearestNeighbor(from string, locations []string, oracle Oracle) []string {
	remaining := append([]string(nil), locations...)
	out := make([]string, 0, len(remaining))
	cur := from
	for len(remaining) > 0 {
		best := -1
		bestMiles := math.Inf(1)
		for i, loc := range remaining {
			e, ok := oracle.Lookup(cur, loc)
			if !ok {
				continue
			}
			if e.Miles < bestMiles {
				bestMiles = e.Miles
				best = i
			}
		}
		if best < 0 {
			out = append(out, remaining...)
			break
		}
		cur = remaining[best]
		out = append(out, cur)
		remaining = append(remaining[:best], remaining[best+1:]...)
	}
	return out
}
