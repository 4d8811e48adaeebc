package integrations

import (
	"loadplan/internal/model"
)

// DemandSource pulls shipment demand for a plan date from an external
// system (file drop, EDI gateway, upstream ERP).
type DemandSource interface {
	Name() string
	Fetch(planDate string) ([]model.Shipment, error)
}
