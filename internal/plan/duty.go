package plan

import (
	"fmt"

	"loadplan/internal/model"
)

// Hours-of-service constants for a single-day duty cycle. This is a
// single-pass simplification, not a multi-day cycle tracker.
const (
	dutyShiftMin  = 8 * 60  // a break is due before crossing each 8h on-duty boundary
	dutyBreakMin  = 30      // fixed break length
	maxDrivingMin = 11 * 60 // driving cap
	maxOnDutyMin  = 14 * 60 // on-duty cap
)

// DurationTable resolves per-unit loading/unloading minutes for a
// (store, product type) pair.
type DurationTable interface {
	Rates(store, productType string) (loadMinPerUnit, unloadMinPerUnit float64, ok bool)
}

// RateTable is a map-backed DurationTable.
type RateTable struct {
	rates map[[2]string]model.DurationEntry
}

func NewRateTable(entries []model.DurationEntry) *RateTable {
	t := &RateTable{rates: make(map[[2]string]model.DurationEntry, len(entries))}
	for _, e := range entries {
		t.rates[[2]string{e.Store, e.ProductType}] = e
	}
	return t
}

func (t *RateTable) Rates(store, productType string) (float64, float64, bool) {
	e, ok := t.rates[[2]string{store, productType}]
	if !ok {
		return 0, 0, false
	}
	return e.LoadMinPerUnit, e.UnloadMinPerUnit, true
}

// DutySummary is the result of simulating one vehicle's day.
type DutySummary struct {
	TravelMinutes float64
	StopMinutes   float64
	TotalMinutes  float64 // on-duty: travel + stop + breaks
	TotalMiles    float64
	Breaks        int
	Status        model.DutyStatus
}

// SimulateDuty walks an ordered store sequence and accumulates travel,
// service, and on-duty time. Loading at the depot accrues per shipment;
// unloading accrues per store. A fixed break is inserted before any leg
// whose duration would cross a fresh 8-hour on-duty boundary, including
// the return leg. The driving cap is checked first; the on-duty check runs
// after it and can override the status.
func SimulateDuty(seq []string, byStore map[string][]*model.Shipment, depot string, oracle Oracle, rates DurationTable, cfg Config) (DutySummary, error) {
	var s DutySummary
	s.Status = model.DutyOK

	// Depot loading seeds both stop time and on-duty time.
	for _, stop := range seq {
		for _, sh := range byStore[stop] {
			load, _, ok := rates.Rates(sh.Store, sh.ProductType)
			if !ok {
				continue
			}
			s.StopMinutes += (sh.Pallets / cfg.PalletsPerLoadUnit) * load
		}
	}
	onDuty := s.StopMinutes

	cur := depot
	advance := func(to string) error {
		e, ok := oracle.Lookup(cur, to)
		if !ok {
			return fmt.Errorf("simulate duty: no distance from %q to %q", cur, to)
		}
		// Break before the leg if it would cross a fresh 8h boundary.
		if int(onDuty/dutyShiftMin) < int((onDuty+e.Minutes)/dutyShiftMin) {
			onDuty += dutyBreakMin
			s.Breaks++
		}
		s.TravelMinutes += e.Minutes
		s.TotalMiles += e.Miles
		onDuty += e.Minutes
		cur = to
		return nil
	}

	for _, stop := range seq {
		if err := advance(stop); err != nil {
			return s, err
		}
		unload := 0.0
		fallback := false
		for _, sh := range byStore[stop] {
			_, rate, ok := rates.Rates(sh.Store, sh.ProductType)
			if !ok {
				fallback = true
				continue
			}
			unload += (sh.Pallets / cfg.PalletsPerLoadUnit) * rate
		}
		if fallback {
			unload += cfg.DefaultUnloadMin
		}
		s.StopMinutes += unload
		onDuty += unload
	}
	if len(seq) > 0 {
		if err := advance(depot); err != nil {
			return s, err
		}
	}

	s.TotalMinutes = onDuty
	if s.TravelMinutes > maxDrivingMin {
		s.Status = model.DutyDrivingViolation
	}
	if onDuty > maxOnDutyMin {
		s.Status = model.DutyOnDutyViolation
	}
	return s, nil
}
