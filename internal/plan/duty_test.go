package plan

import (
	"testing"

	"github.com/stretchr/testify/require"

	"loadplan/internal/model"
)

func shipmentsByStore(ss ...*model.Shipment) map[string][]*model.Shipment {
	m := map[string][]*model.Shipment{}
	for _, s := range ss {
		m[s.Store] = append(m[s.Store], s)
	}
	return m
}

func TestSimulateDutyMonotonicAppend(t *testing.T) {
	oracle := &MatrixOracle{}
	oracle.Add("DEPOT", "A", 25, 30)
	oracle.Add("A", "B", 10, 12)
	oracle.Add("B", "DEPOT", 30, 36)
	cfg := DefaultConfig()

	byStore := shipmentsByStore(
		&model.Shipment{Store: "A", Zone: model.ZoneAmbient, Pallets: 8},
		&model.Shipment{Store: "B", Zone: model.ZoneAmbient, Pallets: 8},
	)
	one, err := SimulateDuty([]string{"A"}, byStore, "DEPOT", oracle, NewRateTable(nil), cfg)
	require.NoError(t, err)
	two, err := SimulateDuty([]string{"A", "B"}, byStore, "DEPOT", oracle, NewRateTable(nil), cfg)
	require.NoError(t, err)

	// Appending a stop never shrinks travel, miles, or on-duty time.
	require.GreaterOrEqual(t, two.TravelMinutes, one.TravelMinutes)
	require.GreaterOrEqual(t, two.TotalMiles, one.TotalMiles)
	require.GreaterOrEqual(t, two.TotalMinutes, one.TotalMinutes)
	require.GreaterOrEqual(t, two.StopMinutes, one.StopMinutes)
}

func TestSimulateDutyAccumulates(t *testing.T) {
	oracle := &MatrixOracle{}
	oracle.Add("DEPOT", "A", 25, 30)
	oracle.Add("A", "DEPOT", 25, 30)
	rates := NewRateTable([]model.DurationEntry{
		{Store: "A", ProductType: "grocery", LoadMinPerUnit: 2, UnloadMinPerUnit: 3},
	})
	cfg := DefaultConfig()

	sh := &model.Shipment{Store: "A", Zone: model.ZoneAmbient, Pallets: 26, ProductType: "grocery"}
	sum, err := SimulateDuty([]string{"A"}, shipmentsByStore(sh), "DEPOT", oracle, rates, cfg)
	require.NoError(t, err)

	// 26 pallets is one load unit: 2 minutes loading, 3 unloading.
	require.InDelta(t, 60.0, sum.TravelMinutes, 1e-9)
	require.InDelta(t, 5.0, sum.StopMinutes, 1e-9)
	require.InDelta(t, 65.0, sum.TotalMinutes, 1e-9)
	require.InDelta(t, 50.0, sum.TotalMiles, 1e-9)
	require.Equal(t, 0, sum.Breaks)
	require.Equal(t, model.DutyOK, sum.Status)
}

func TestSimulateDutyUnloadFallback(t *testing.T) {
	oracle := &MatrixOracle{}
	oracle.Add("DEPOT", "A", 25, 30)
	cfg := DefaultConfig()

	// No rate entry: no depot loading, one flat fallback unload per stop.
	sh1 := &model.Shipment{Store: "A", Zone: model.ZoneAmbient, Pallets: 10}
	sh2 := &model.Shipment{Store: "A", Zone: model.ZoneProduce, Pallets: 4}
	sum, err := SimulateDuty([]string{"A"}, shipmentsByStore(sh1, sh2), "DEPOT", oracle, NewRateTable(nil), cfg)
	require.NoError(t, err)
	require.InDelta(t, cfg.DefaultUnloadMin, sum.StopMinutes, 1e-9)
}

func TestSimulateDutyBreakBeforeBoundaryCrossing(t *testing.T) {
	// The outbound leg stays inside the first 8 hours; the return leg
	// would cross the boundary, so a break lands before it.
	oracle := &MatrixOracle{}
	oracle.Add("DEPOT", "A", 300, 470)
	oracle.Add("A", "DEPOT", 300, 470)
	cfg := DefaultConfig()

	sh := &model.Shipment{Store: "A", Zone: model.ZoneAmbient, Pallets: 10}
	sum, err := SimulateDuty([]string{"A"}, shipmentsByStore(sh), "DEPOT", oracle, NewRateTable(nil), cfg)
	require.NoError(t, err)
	require.Equal(t, 1, sum.Breaks)
	// 470 travel + 30 unload + 30 break + 470 travel
	require.InDelta(t, 1000.0, sum.TotalMinutes, 1e-9)
	// 940 driving exceeds 11h and 1000 on-duty exceeds 14h; the on-duty
	// verdict wins.
	require.Equal(t, model.DutyOnDutyViolation, sum.Status)
}

func TestSimulateDutyDrivingViolation(t *testing.T) {
	oracle := &MatrixOracle{}
	oracle.Add("DEPOT", "A", 200, 335)
	oracle.Add("A", "DEPOT", 200, 335)
	cfg := DefaultConfig()

	sh := &model.Shipment{Store: "A", Zone: model.ZoneAmbient, Pallets: 10}
	sum, err := SimulateDuty([]string{"A"}, shipmentsByStore(sh), "DEPOT", oracle, NewRateTable(nil), cfg)
	require.NoError(t, err)
	// 670 driving breaks the 11h cap while 730 on-duty stays under 14h.
	require.InDelta(t, 670.0, sum.TravelMinutes, 1e-9)
	require.Equal(t, 1, sum.Breaks)
	require.Equal(t, model.DutyDrivingViolation, sum.Status)
}

func TestSimulateDutyNoBreakInsideFirstBlock(t *testing.T) {
	// Legs that stay inside the first 8-hour block never pick up a
	// break, and a later leg starting past the boundary only breaks
	// when it would cross the next one.
	oracle := &MatrixOracle{}
	oracle.Add("DEPOT", "A", 100, 479)
	oracle.Add("A", "DEPOT", 10, 20)
	cfg := DefaultConfig()

	sh := &model.Shipment{Store: "A", Zone: model.ZoneAmbient, Pallets: 10}
	sum, err := SimulateDuty([]string{"A"}, shipmentsByStore(sh), "DEPOT", oracle, NewRateTable(nil), cfg)
	require.NoError(t, err)
	// Outbound ends at 479, the unload pushes on-duty to 509, and the
	// 20-minute return stays inside the second block.
	require.Equal(t, 0, sum.Breaks)
}

func TestSimulateDutyMissingEdge(t *testing.T) {
	oracle := &MatrixOracle{}
	oracle.Add("DEPOT", "A", 25, 30)
	cfg := DefaultConfig()

	sh := &model.Shipment{Store: "B", Zone: model.ZoneAmbient, Pallets: 10}
	_, err := SimulateDuty([]string{"B"}, shipmentsByStore(sh), "DEPOT", oracle, NewRateTable(nil), cfg)
	require.Error(t, err)
}

func TestRateTableLookup(t *testing.T) {
	rates := NewRateTable([]model.DurationEntry{
		{Store: "A", ProductType: "grocery", LoadMinPerUnit: 2, UnloadMinPerUnit: 3},
	})
	load, unload, ok := rates.Rates("A", "grocery")
	require.True(t, ok)
	require.Equal(t, 2.0, load)
	require.Equal(t, 3.0, unload)
	_, _, ok = rates.Rates("A", "frozen")
	require.False(t, ok)
}
