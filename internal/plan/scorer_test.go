package plan

import (
	"testing"

	"github.com/stretchr/testify/require"

	"loadplan/internal/model"
)

func testCarrier() *model.Carrier {
	return &model.Carrier{
		Name:         "X",
		CostPerMile:  2,
		CostPerRoute: 100,
		Capacity: map[int]float64{
			model.Trailer36: 18,
			model.Trailer48: 24,
			model.Trailer53: 30,
		},
		Slots: []model.TimeSlot{{Label: "08:00", Capacity: 2}},
	}
}

func testOracle() *MatrixOracle {
	m := &MatrixOracle{}
	m.Add("DEPOT", "A", 25, 30)
	m.Add("DEPOT", "B", 30, 36)
	m.Add("A", "B", 10, 12)
	return m
}

func TestScoreEmptyRouteMarginalCost(t *testing.T) {
	p := New(DefaultConfig(), "DEPOT", testOracle(), NewRateTable(nil), nil)
	s := &model.Shipment{Store: "A", Zone: model.ZoneAmbient, Pallets: 10}

	cost, rej := p.score(s, newRoute(testCarrier(), "08:00"))
	require.Equal(t, rejNone, rej)
	// 50 round-trip miles at 2/mile plus the fixed route cost.
	require.InDelta(t, 200.0, cost, 1e-9)
}

func TestScoreMarginalCostOnExistingRoute(t *testing.T) {
	p := New(DefaultConfig(), "DEPOT", testOracle(), NewRateTable(nil), nil)
	r := newRoute(testCarrier(), "08:00")
	r.add(&model.Shipment{Store: "A", Zone: model.ZoneAmbient, Pallets: 10})

	cost, rej := p.score(&model.Shipment{Store: "B", Zone: model.ZoneAmbient, Pallets: 8}, r)
	require.Equal(t, rejNone, rej)
	// Old: DEPOT-A-DEPOT = 50mi. New: DEPOT-A-B-DEPOT = 65mi. The fixed
	// cost cancels; only the 15 marginal miles are charged.
	require.InDelta(t, 30.0, cost, 1e-9)
}

func TestScoreStopCountCap(t *testing.T) {
	oracle := testOracle()
	for _, st := range []string{"C", "D", "E"} {
		oracle.Add("DEPOT", st, 5, 6)
		oracle.Add("A", st, 5, 6)
		oracle.Add("B", st, 5, 6)
		oracle.Add("C", st, 5, 6)
		oracle.Add("D", st, 5, 6)
	}
	p := New(DefaultConfig(), "DEPOT", oracle, NewRateTable(nil), nil)
	r := newRoute(testCarrier(), "08:00")
	for _, st := range []string{"A", "B", "C", "D"} {
		r.add(&model.Shipment{Store: st, Zone: model.ZoneAmbient, Pallets: 2})
	}

	// A second category for an on-board store does not count as a stop.
	_, rej := p.score(&model.Shipment{Store: "A", Zone: model.ZoneProduce, Pallets: 1}, r)
	require.Equal(t, rejNone, rej)

	_, rej = p.score(&model.Shipment{Store: "E", Zone: model.ZoneAmbient, Pallets: 2}, r)
	require.Equal(t, rejStops, rej)
}

func TestScoreFreezerExclusive(t *testing.T) {
	p := New(DefaultConfig(), "DEPOT", testOracle(), NewRateTable(nil), nil)
	r := newRoute(testCarrier(), "08:00")
	r.add(&model.Shipment{Store: "A", Zone: model.ZoneFreezer, Pallets: 10})

	_, rej := p.score(&model.Shipment{Store: "A", Zone: model.ZoneChiller, Pallets: 5}, r)
	require.Equal(t, rejTemperature, rej)
}

func TestZonesCompatibleSmallAmbientRule(t *testing.T) {
	cfg := DefaultConfig()
	chiller := &model.Shipment{Store: "A", Zone: model.ZoneChiller, Pallets: 10}

	small := &model.Shipment{Store: "A", Zone: model.ZoneAmbient, Pallets: 5}
	require.True(t, zonesCompatible([]*model.Shipment{chiller, small}, cfg))

	big := &model.Shipment{Store: "A", Zone: model.ZoneAmbient, Pallets: 6}
	require.False(t, zonesCompatible([]*model.Shipment{chiller, big}, cfg))

	// The threshold binds per store: a large ambient drop elsewhere
	// rides with A's chiller freight.
	other := &model.Shipment{Store: "B", Zone: model.ZoneAmbient, Pallets: 12}
	require.True(t, zonesCompatible([]*model.Shipment{chiller, other}, cfg))

	cfg.AllowMixedZones = false
	require.False(t, zonesCompatible([]*model.Shipment{chiller, small}, cfg))
}

func TestScoreWindowAgainstSlot(t *testing.T) {
	p := New(DefaultConfig(), "DEPOT", testOracle(), NewRateTable(nil), nil)
	s := &model.Shipment{Store: "A", Zone: model.ZoneAmbient, Pallets: 10, Window: "09:00-11:00"}

	_, rej := p.score(s, newRoute(testCarrier(), "14:00"))
	require.Equal(t, rejWindow, rej)

	_, rej = p.score(s, newRoute(testCarrier(), "10:00"))
	require.Equal(t, rejNone, rej)
}

func TestWindowForFallsBackToRestriction(t *testing.T) {
	p := New(DefaultConfig(), "DEPOT", testOracle(), NewRateTable(nil), []model.Restriction{
		{Store: "A", Window: "06:00-09:00"},
	})
	require.Equal(t, "06:00-09:00", p.windowFor(&model.Shipment{Store: "A"}))
	require.Equal(t, "10:00-12:00", p.windowFor(&model.Shipment{Store: "A", Window: "10:00-12:00"}))
	require.Equal(t, "", p.windowFor(&model.Shipment{Store: "B"}))
}

func TestScoreCapacityWithOverplan(t *testing.T) {
	p := New(DefaultConfig(), "DEPOT", testOracle(), NewRateTable(nil), nil)

	// 53' capacity 30 with a 1.1 overplan factor allows 33.
	_, rej := p.score(&model.Shipment{Store: "A", Zone: model.ZoneAmbient, Pallets: 33}, newRoute(testCarrier(), "08:00"))
	require.Equal(t, rejNone, rej)

	_, rej = p.score(&model.Shipment{Store: "A", Zone: model.ZoneAmbient, Pallets: 34}, newRoute(testCarrier(), "08:00"))
	require.Equal(t, rejCapacity, rej)
}

func TestScoreUnknownDistanceFailsClosed(t *testing.T) {
	p := New(DefaultConfig(), "DEPOT", testOracle(), NewRateTable(nil), nil)
	_, rej := p.score(&model.Shipment{Store: "Z", Zone: model.ZoneAmbient, Pallets: 10}, newRoute(testCarrier(), "08:00"))
	require.Equal(t, rejUnknownDistance, rej)
}

func TestScoreHardLegCap(t *testing.T) {
	cfg := DefaultConfig()
	cfg.HardMaxLegMiles = 75
	oracle := &MatrixOracle{}
	oracle.Add("DEPOT", "F", 80, 96)
	p := New(cfg, "DEPOT", oracle, NewRateTable(nil), nil)

	_, rej := p.score(&model.Shipment{Store: "F", Zone: model.ZoneAmbient, Pallets: 10}, newRoute(testCarrier(), "08:00"))
	require.Equal(t, rejLegCap, rej)
}

func TestScoreRouteMileageCap(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxRouteMiles = 200
	oracle := &MatrixOracle{}
	oracle.Add("DEPOT", "F", 140, 150)
	p := New(cfg, "DEPOT", oracle, NewRateTable(nil), nil)

	_, rej := p.score(&model.Shipment{Store: "F", Zone: model.ZoneAmbient, Pallets: 10}, newRoute(testCarrier(), "08:00"))
	require.Equal(t, rejMileage, rej)
}

func TestScoreDutyComplianceAndRelaxation(t *testing.T) {
	oracle := &MatrixOracle{}
	oracle.Add("DEPOT", "F", 100, 400)
	p := New(DefaultConfig(), "DEPOT", oracle, NewRateTable(nil), nil)
	s := &model.Shipment{Store: "F", Zone: model.ZoneAmbient, Pallets: 10}

	_, rej := p.score(s, newRoute(testCarrier(), "08:00"))
	require.Equal(t, rejDuty, rej)

	relaxed := p.cfg
	relaxed.relaxDuty = true
	_, rej = p.scoreWith(relaxed, s, newRoute(testCarrier(), "08:00"))
	require.Equal(t, rejNone, rej)
}

func TestRequiredTrailerEquipmentRestrictions(t *testing.T) {
	p := New(DefaultConfig(), "DEPOT", testOracle(), NewRateTable(nil), []model.Restriction{
		{Store: "A", EquipmentDay: "48' only", EquipmentNight: "36' only"},
	})
	stops := []*model.Shipment{{Store: "A", Zone: model.ZoneAmbient, Pallets: 5}}

	require.Equal(t, model.Trailer48, p.requiredTrailer("10:00", stops))
	require.Equal(t, model.Trailer36, p.requiredTrailer("21:00", stops))
	// Unparseable labels are treated as daytime.
	require.Equal(t, model.Trailer48, p.requiredTrailer("first wave", stops))

	unrestricted := []*model.Shipment{{Store: "B", Zone: model.ZoneAmbient, Pallets: 5}}
	require.Equal(t, model.Trailer53, p.requiredTrailer("10:00", unrestricted))
}
