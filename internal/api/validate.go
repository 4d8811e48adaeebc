package api

import (
	"encoding/json"
	"fmt"
	"regexp"

	"loadplan/internal/model"
	"loadplan/internal/plan"
)

var planDateRe = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

func validatePlanRequest(req *model.PlanRequest) error {
	if req.PlanDate == "" {
		return fmt.Errorf("planDate is required")
	}
	if !planDateRe.MatchString(req.PlanDate) {
		return fmt.Errorf("planDate must be YYYY-MM-DD, got %q", req.PlanDate)
	}
	if req.Tunables != nil {
		return validateTunables(req.Tunables)
	}
	return nil
}

func validateShipment(i int, s model.Shipment) error {
	if s.Store == "" {
		return fmt.Errorf("shipment %d: store is required", i)
	}
	if s.Pallets <= 0 {
		return fmt.Errorf("shipment %d: pallets must be > 0", i)
	}
	switch s.Zone {
	case model.ZoneAmbient, model.ZoneChiller, model.ZoneFreezer, model.ZoneProduce:
	default:
		return fmt.Errorf("shipment %d: unknown zone %q", i, s.Zone)
	}
	return nil
}

func validateCarrier(c model.Carrier) error {
	if c.Name == "" {
		return fmt.Errorf("carrier name is required")
	}
	if c.CostPerMile < 0 || c.CostPerRoute < 0 {
		return fmt.Errorf("carrier %s: costs must be >= 0", c.Name)
	}
	if len(c.Slots) == 0 {
		return fmt.Errorf("carrier %s: at least one time slot is required", c.Name)
	}
	for _, sl := range c.Slots {
		if sl.Capacity <= 0 {
			return fmt.Errorf("carrier %s: slot %q capacity must be > 0", c.Name, sl.Label)
		}
	}
	return nil
}

// validateTunables checks override keys against the planner config's JSON
// field names and basic value sanity.
func validateTunables(t map[string]any) error {
	allowed := defaultTunables()
	for k, v := range t {
		if _, ok := allowed[k]; !ok {
			return fmt.Errorf("unknown tunable %q", k)
		}
		if n, ok := v.(float64); ok && n < 0 {
			return fmt.Errorf("tunable %q must be >= 0", k)
		}
	}
	return nil
}

// defaultTunables exposes the built-in planner defaults keyed by JSON name.
func defaultTunables() map[string]any {
	body, _ := json.Marshal(plan.DefaultConfig())
	out := map[string]any{}
	_ = json.Unmarshal(body, &out)
	return out
}
