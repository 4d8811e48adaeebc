package plan

// Config carries every caller-tunable threshold for a planning run. A zero
// Config is not usable; start from DefaultConfig and override.
type Config struct {
	MaxStopsPerRoute     int     `json:"maxStopsPerRoute" mapstructure:"max_stops_per_route"`
	MaxRouteMiles        float64 `json:"maxRouteMiles" mapstructure:"max_route_miles"`
	PreferredMaxLegMiles float64 `json:"preferredMaxLegMiles" mapstructure:"preferred_max_leg_miles"`
	HardMaxLegMiles      float64 `json:"hardMaxLegMiles" mapstructure:"hard_max_leg_miles"`
	MinPalletsPerRoute   float64 `json:"minPalletsPerRoute" mapstructure:"min_pallets_per_route"`
	MaxAttempts          int     `json:"maxAttempts" mapstructure:"max_attempts"`
	ClusterRelaxFailures int     `json:"clusterRelaxFailures" mapstructure:"cluster_relax_failures"`
	RelaxedMinAttempts   int     `json:"relaxedMinAttempts" mapstructure:"relaxed_min_attempts"`
	RelaxedMinFactor     float64 `json:"relaxedMinFactor" mapstructure:"relaxed_min_factor"`
	AllowMixedZones      bool    `json:"allowMixedZones" mapstructure:"allow_mixed_zones"`
	SmallAmbientPallets  float64 `json:"smallAmbientPallets" mapstructure:"small_ambient_pallets"`
	OverplanFactor       float64 `json:"overplanFactor" mapstructure:"overplan_factor"`
	RebalanceRounds      int     `json:"rebalanceRounds" mapstructure:"rebalance_rounds"`

	// Service-time model.
	PalletsPerLoadUnit float64 `json:"palletsPerLoadUnit" mapstructure:"pallets_per_load_unit"`
	DefaultUnloadMin   float64 `json:"defaultUnloadMin" mapstructure:"default_unload_min"`

	// Night window for equipment restrictions, minutes since midnight.
	// The window wraps past midnight (19:00 through 06:00).
	NightStartMin int `json:"nightStartMin" mapstructure:"night_start_min"`
	NightEndMin   int `json:"nightEndMin" mapstructure:"night_end_min"`

	// relaxDuty lifts the duty-compliance rejection for overspill scoring,
	// where routes represent unscheduled freight rather than a finished plan.
	relaxDuty bool
}

// DefaultConfig returns the production defaults for a daily planning run.
func DefaultConfig() Config {
	return Config{
		MaxStopsPerRoute:     4,
		MaxRouteMiles:        500,
		PreferredMaxLegMiles: 75,
		HardMaxLegMiles:      150,
		MinPalletsPerRoute:   10,
		MaxAttempts:          3,
		ClusterRelaxFailures: 3,
		RelaxedMinAttempts:   2,
		RelaxedMinFactor:     0.5,
		AllowMixedZones:      true,
		SmallAmbientPallets:  6,
		OverplanFactor:       1.1,
		RebalanceRounds:      5,
		PalletsPerLoadUnit:   26,
		DefaultUnloadMin:     30,
		NightStartMin:        19 * 60,
		NightEndMin:          6 * 60,
	}
}

// relaxedMinPallets is the commit threshold after the seed has been retried
// past the relaxation point.
func (c Config) relaxedMinPallets() float64 {
	return c.MinPalletsPerRoute * c.RelaxedMinFactor
}

// night reports whether a departure time (minutes since midnight) falls in
// the night equipment window.
func (c Config) night(minute int) bool {
	if c.NightStartMin <= c.NightEndMin {
		return minute >= c.NightStartMin && minute <= c.NightEndMin
	}
	return minute >= c.NightStartMin || minute <= c.NightEndMin
}
