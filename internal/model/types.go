package model

// Core domain types shared by the planner, stores, and the API.

// TempZone is the freight temperature category. It determines which
// shipments may ride on the same trailer.
type TempZone string

const (
	ZoneAmbient TempZone = "Ambient"
	ZoneChiller TempZone = "Chiller"
	ZoneFreezer TempZone = "Freezer"
	ZoneProduce TempZone = "Produce"
)

// ColdChain reports whether the zone needs a refrigerated compartment.
func (z TempZone) ColdChain() bool { return z == ZoneChiller || z == ZoneFreezer }

// DutyStatus is the hours-of-service compliance result for a route.
type DutyStatus string

const (
	DutyOK               DutyStatus = "OK"
	DutyDrivingViolation DutyStatus = "DRIVING_VIOLATION"
	DutyOnDutyViolation  DutyStatus = "ON_DUTY_VIOLATION"
)

// Trailer size classes in pallet-equivalent tiers. Equipment restrictions
// at a store can force a smaller class than the default 53.
const (
	Trailer36 = 36
	Trailer48 = 48
	Trailer53 = 53
)

// Shipment is one store's demand for one temperature zone, aggregated from
// raw demand rows. It is never split across routes. The planning-state
// fields are owned by a single run and reset before each run.
type Shipment struct {
	Store       string   `json:"store" yaml:"store"`
	Zone        TempZone `json:"zone" yaml:"zone"`
	Pallets     float64  `json:"pallets" yaml:"pallets"`
	ProductType string   `json:"productType,omitempty" yaml:"productType,omitempty"`
	Window      string   `json:"window,omitempty" yaml:"window,omitempty"` // "HH:MM-HH:MM"; "N/A" or empty means unrestricted
	Cluster     string   `json:"cluster,omitempty" yaml:"cluster,omitempty"`

	// Mutable planning state, threaded through a single run.
	Attempts       int    `json:"-"`
	InsertFailures int    `json:"-"`
	FailureReason  string `json:"-"`
}

// TimeSlot is one departure window offered by a carrier. Used is owned by
// the run and must be reconstructed from a committed plan when re-planning.
type TimeSlot struct {
	Label    string `json:"label" yaml:"label"`
	Capacity int    `json:"capacity" yaml:"capacity"`
	Used     int    `json:"used,omitempty" yaml:"used,omitempty"`
}

// Carrier describes one vehicle pool: its cost structure, trailer
// capacities by size class, and the time slots it offers.
type Carrier struct {
	Name         string          `json:"name" yaml:"name"`
	CostPerMile  float64         `json:"costPerMile" yaml:"costPerMile"`
	CostPerRoute float64         `json:"costPerRoute" yaml:"costPerRoute"`
	CostNotToUse float64         `json:"costNotToUse,omitempty" yaml:"costNotToUse,omitempty"`
	Capacity     map[int]float64 `json:"capacity" yaml:"capacity"` // size class -> pallet-equivalents
	Slots        []TimeSlot      `json:"slots" yaml:"slots"`
}

// CapacityFor returns the pallet capacity for a trailer size class,
// falling back to the 53' tier when the class is not configured.
func (c *Carrier) CapacityFor(class int) float64 {
	if v, ok := c.Capacity[class]; ok {
		return v
	}
	return c.Capacity[Trailer53]
}

// Restriction carries per-store delivery constraints. Equipment fields name
// the trailer class a store's dock can take, split by day/night departure.
type Restriction struct {
	Store          string `json:"store" yaml:"store"`
	Noise          string `json:"noise,omitempty" yaml:"noise,omitempty"`
	EquipmentDay   string `json:"equipmentDay,omitempty" yaml:"equipmentDay,omitempty"`
	EquipmentNight string `json:"equipmentNight,omitempty" yaml:"equipmentNight,omitempty"`
	Window         string `json:"window,omitempty" yaml:"window,omitempty"`
}

// DurationEntry holds per-unit loading/unloading minutes for a
// (store, product type) pair.
type DurationEntry struct {
	Store            string  `json:"store" yaml:"store"`
	ProductType      string  `json:"productType" yaml:"productType"`
	LoadMinPerUnit   float64 `json:"loadMinPerUnit" yaml:"loadMinPerUnit"`
	UnloadMinPerUnit float64 `json:"unloadMinPerUnit" yaml:"unloadMinPerUnit"`
}

// DistanceEdge is a directed distance/duration entry between two locations.
// Lookups may fall back to the reverse direction.
type DistanceEdge struct {
	From    string  `json:"from" yaml:"from"`
	To      string  `json:"to" yaml:"to"`
	Miles   float64 `json:"miles" yaml:"miles"`
	Minutes float64 `json:"minutes" yaml:"minutes"`
}

// RouteStop is one shipment placed on a route, in unload order.
type RouteStop struct {
	Store       string   `json:"store"`
	Zone        TempZone `json:"zone"`
	Pallets     float64  `json:"pallets"`
	ProductType string   `json:"productType,omitempty"`
}

// Route is the committed output contract for one vehicle dispatch.
type Route struct {
	ID            string      `json:"id"`
	Carrier       string      `json:"carrier"`
	TimeSlot      string      `json:"timeSlot"`
	Cluster       string      `json:"cluster,omitempty"`
	StopCount     int         `json:"stopCount"`
	Stops         []RouteStop `json:"stops"`
	LegDetail     string      `json:"legDetail,omitempty"`
	Miles         float64     `json:"miles"`
	Restricted    bool        `json:"restricted,omitempty"`
	TrailerSize   int         `json:"trailerSize"`
	Pallets       float64     `json:"pallets"`
	Utilization   float64     `json:"utilization"` // percent of nominal capacity
	TravelMinutes float64     `json:"travelMinutes"`
	StopMinutes   float64     `json:"stopMinutes"`
	TotalMinutes  float64     `json:"totalMinutes"`
	DutyStatus    DutyStatus  `json:"dutyStatus"`
	Cost          float64     `json:"cost"`
	MileageStatus string      `json:"mileageStatus"` // OK or OVER
	Note          string      `json:"note,omitempty"`
}

// UnplannedGroup collects shipments that need manual review, keyed by the
// reason they could not be planned.
type UnplannedGroup struct {
	Reason    string     `json:"reason"`
	Shipments []Shipment `json:"shipments"`
}

// SubscriptionRequest registers a webhook endpoint for plan events.
type SubscriptionRequest struct {
	TenantID string   `json:"tenantId"`
	URL      string   `json:"url"`
	Events   []string `json:"events"`
	Secret   string   `json:"secret"`
}

// Subscription is a registered webhook endpoint.
type Subscription struct {
	ID       string   `json:"id"`
	TenantID string   `json:"tenantId"`
	URL      string   `json:"url"`
	Events   []string `json:"events"`
	Secret   string   `json:"secret,omitempty"`
}

// PlanRequest asks the service to run a plan over the stored demand.
type PlanRequest struct {
	TenantID string         `json:"tenantId"`
	PlanDate string         `json:"planDate"`
	Depot    string         `json:"depot,omitempty"`
	Tunables map[string]any `json:"tunables,omitempty"`
}

// PlanStats summarizes one planning run.
type PlanStats struct {
	Shipments          int            `json:"shipments"`
	RoutesBuilt        int            `json:"routesBuilt"`
	PullForwardRoutes  int            `json:"pullForwardRoutes"`
	RebalanceMerges    int            `json:"rebalanceMerges"`
	RebalanceSwaps     int            `json:"rebalanceSwaps"`
	OverspillShipments int            `json:"overspillShipments"`
	UnplannedShipments int            `json:"unplannedShipments"`
	Rejections         map[string]int `json:"rejections,omitempty"`
}

// PlanResult is a completed planning run.
type PlanResult struct {
	ID        string           `json:"id"`
	TenantID  string           `json:"tenantId,omitempty"`
	PlanDate  string           `json:"planDate,omitempty"`
	Routes    []Route          `json:"routes"`
	Overspill []Route          `json:"overspill,omitempty"`
	Unplanned []UnplannedGroup `json:"unplanned,omitempty"`
	TotalCost float64          `json:"totalCost"`
	Stats     PlanStats        `json:"stats"`
	CreatedAt string           `json:"createdAt,omitempty"`
}
