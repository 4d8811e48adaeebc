package plan

import "loadplan/internal/model"

// Edge is a directed travel segment: distance in miles, duration in minutes.
type Edge struct {
	Miles   float64
	Minutes float64
}

// Oracle answers distance/duration lookups between location identifiers.
// A lookup may be missing; callers must treat absence as "unknown", never
// as zero.
type Oracle interface {
	Lookup(from, to string) (Edge, bool)
}

// MatrixOracle is a map-backed Oracle with reverse-direction fallback.
type MatrixOracle struct {
	edges map[[2]string]Edge
}

// NewMatrixOracle builds an oracle from distance edges. Later duplicates
// overwrite earlier ones.
func NewMatrixOracle(edges []model.DistanceEdge) *MatrixOracle {
	m := &MatrixOracle{edges: make(map[[2]string]Edge, len(edges))}
	for _, e := range edges {
		m.edges[[2]string{e.From, e.To}] = Edge{Miles: e.Miles, Minutes: e.Minutes}
	}
	return m
}

// Add inserts a single directed edge.
func (m *MatrixOracle) Add(from, to string, miles, minutes float64) {
	if m.edges == nil {
		m.edges = map[[2]string]Edge{}
	}
	m.edges[[2]string{from, to}] = Edge{Miles: miles, Minutes: minutes}
}

// Lookup returns the edge from->to, falling back to to->from.
func (m *MatrixOracle) Lookup(from, to string) (Edge, bool) {
	if e, ok := m.edges[[2]string{from, to}]; ok {
		return e, true
	}
	e, ok := m.edges[[2]string{to, from}]
	return e, ok
}

// legs resolves the full depot->stops->depot leg chain for an ordered stop
// sequence. It fails closed: any missing edge returns ok=false.
func legs(oracle Oracle, depot string, seq []string) ([]Edge, bool) {
	if len(seq) == 0 {
		return nil, true
	}
	out := make([]Edge, 0, len(seq)+1)
	cur := depot
	for _, stop := range seq {
		e, ok := oracle.Lookup(cur, stop)
		if !ok {
			return nil, false
		}
		out = append(out, e)
		cur = stop
	}
	back, ok := oracle.Lookup(cur, depot)
	if !ok {
		return nil, false
	}
	out = append(out, back)
	return out, true
}

// totalMiles sums leg distances. This is the single canonical route
// distance: the mileage cap and the cost term both read it.
func totalMiles(lg []Edge) float64 {
	t := 0.0
	for _, e := range lg {
		t += e.Miles
	}
	return t
}

// maxLegMiles returns the longest single leg.
func maxLegMiles(lg []Edge) float64 {
	m := 0.0
	for _, e := range lg {
		if e.Miles > m {
			m = e.Miles
		}
	}
	return m
}

// legPenalty is the squared overage of each leg beyond the preferred
// threshold, summed over all legs.
func legPenalty(lg []Edge, preferred float64) float64 {
	p := 0.0
	for _, e := range lg {
		if over := e.Miles - preferred; over > 0 {
			p += over * over
		}
	}
	return p
}
