package plan

import (
	"testing"

	"github.com/stretchr/testify/require"

	"loadplan/internal/model"
)

func TestRebalanceConsolidatesSameSlotRoutes(t *testing.T) {
	p := New(DefaultConfig(), "DEPOT", testOracle(), NewRateTable(nil), nil)
	c := testCarrier()
	c.Slots[0].Used = 2
	fleet := []*model.Carrier{c}

	r1 := newRoute(c, "08:00")
	r1.add(&model.Shipment{Store: "A", Zone: model.ZoneAmbient, Pallets: 5})
	r2 := newRoute(c, "08:00")
	r2.add(&model.Shipment{Store: "B", Zone: model.ZoneAmbient, Pallets: 5})

	routes, merges, swaps := p.rebalance([]*route{r1, r2}, fleet)
	require.Len(t, routes, 1)
	require.Equal(t, 1, merges)
	require.Zero(t, swaps)
	require.InDelta(t, 10.0, routes[0].pallets, 1e-9)
	// The folded route hands its slot unit back.
	require.Equal(t, 1, c.Slots[0].Used)
}

func TestRebalanceSwapsCrossedClusters(t *testing.T) {
	oracle := &MatrixOracle{}
	oracle.Add("DEPOT", "A", 10, 10)
	oracle.Add("DEPOT", "B", 10, 10)
	oracle.Add("DEPOT", "C", 10, 10)
	oracle.Add("DEPOT", "D", 10, 10)
	oracle.Add("A", "D", 2, 2)
	oracle.Add("B", "C", 2, 2)
	oracle.Add("A", "B", 20, 20)
	oracle.Add("A", "C", 20, 20)
	oracle.Add("B", "D", 20, 20)
	oracle.Add("C", "D", 20, 20)

	p := New(DefaultConfig(), "DEPOT", oracle, NewRateTable(nil), nil)
	c := testCarrier()
	c.Slots[0].Used = 2
	fleet := []*model.Carrier{c}

	// Heavy enough that a full merge busts capacity, so the only way to
	// untangle the clusters is a stop swap.
	r1 := newRoute(c, "08:00")
	r1.add(&model.Shipment{Store: "A", Zone: model.ZoneAmbient, Pallets: 9, Cluster: "west"})
	r1.add(&model.Shipment{Store: "B", Zone: model.ZoneAmbient, Pallets: 9, Cluster: "east"})
	r2 := newRoute(c, "08:00")
	r2.add(&model.Shipment{Store: "C", Zone: model.ZoneAmbient, Pallets: 9, Cluster: "east"})
	r2.add(&model.Shipment{Store: "D", Zone: model.ZoneAmbient, Pallets: 9, Cluster: "west"})

	routes, merges, swaps := p.rebalance([]*route{r1, r2}, fleet)
	require.Len(t, routes, 2)
	require.Zero(t, merges)
	require.GreaterOrEqual(t, swaps, 1)
	for _, r := range routes {
		require.Equal(t, 1, r.clusterCount())
		// The route tag follows the surviving stops.
		require.Equal(t, r.stops[0].Cluster, r.cluster)
	}
}

func TestRebalanceLeavesDisjointSlotsAlone(t *testing.T) {
	p := New(DefaultConfig(), "DEPOT", testOracle(), NewRateTable(nil), nil)
	c := testCarrier()
	c.Slots = append(c.Slots, model.TimeSlot{Label: "14:00", Capacity: 1, Used: 1})
	c.Slots[0].Used = 1
	fleet := []*model.Carrier{c}

	r1 := newRoute(c, "08:00")
	r1.add(&model.Shipment{Store: "A", Zone: model.ZoneAmbient, Pallets: 5})
	r2 := newRoute(c, "14:00")
	r2.add(&model.Shipment{Store: "B", Zone: model.ZoneAmbient, Pallets: 5})

	routes, merges, swaps := p.rebalance([]*route{r1, r2}, fleet)
	require.Len(t, routes, 2)
	require.Zero(t, merges)
	require.Zero(t, swaps)
}
