package store

import (
	"context"
	"errors"
	"time"

	"loadplan/internal/model"
)

// Store is the persistence interface used by the API server and planctl.
// Every dataset is scoped by tenant; demand is additionally scoped by plan
// date.
type Store interface {
	// Demand
	PutShipments(ctx context.Context, tenantID, planDate string, shipments []model.Shipment) (int, error)
	ListShipments(ctx context.Context, tenantID, planDate string) ([]model.Shipment, error)

	// Fleet
	PutCarriers(ctx context.Context, tenantID string, carriers []model.Carrier) (int, error)
	ListCarriers(ctx context.Context, tenantID string) ([]model.Carrier, error)

	// Store restrictions
	PutRestrictions(ctx context.Context, tenantID string, rs []model.Restriction) (int, error)
	ListRestrictions(ctx context.Context, tenantID string) ([]model.Restriction, error)

	// Distance matrix
	PutDistances(ctx context.Context, tenantID string, edges []model.DistanceEdge) (int, error)
	ListDistances(ctx context.Context, tenantID string) ([]model.DistanceEdge, error)

	// Loading/unloading rates
	PutDurations(ctx context.Context, tenantID string, entries []model.DurationEntry) (int, error)
	ListDurations(ctx context.Context, tenantID string) ([]model.DurationEntry, error)

	// Committed plans
	SavePlan(ctx context.Context, res model.PlanResult) error
	GetPlan(ctx context.Context, tenantID, planID string) (model.PlanResult, error)
	ListPlans(ctx context.Context, tenantID, planDate string, limit int) ([]model.PlanResult, error)

	// Per-tenant planner tunables
	GetPlannerConfig(ctx context.Context, tenantID string) (map[string]any, error)
	SavePlannerConfig(ctx context.Context, tenantID string, cfg map[string]any) error

	// Webhook subscriptions and deliveries
	CreateSubscription(ctx context.Context, req model.SubscriptionRequest) (model.Subscription, error)
	GetSubscriptionsForEvent(ctx context.Context, tenantID, eventType string) ([]model.Subscription, error)
	ListSubscriptions(ctx context.Context, tenantID string) ([]model.Subscription, error)
	DeleteSubscription(ctx context.Context, tenantID, id string) error
	EnqueueWebhook(ctx context.Context, tenantID, subscriptionID, eventType, url, secret string, payload []byte) (string, error)
	FetchDueWebhookDeliveries(ctx context.Context, limit int) ([]WebhookDelivery, error)
	MarkWebhookDelivery(ctx context.Context, id string, success bool, nextAttemptAt *time.Time, lastError string, responseCode, latencyMs int) error
	FailWebhookDelivery(ctx context.Context, id string, lastError string, responseCode, latencyMs int) error
}

// WebhookDelivery is one pending outbound webhook attempt.
type WebhookDelivery struct {
	ID             string
	TenantID       string
	SubscriptionID string
	EventType      string
	URL            string
	Secret         string
	Payload        []byte
	Status         string
	Attempts       int
}

var ErrNotFound = errors.New("not found")

// aggregateDemand folds raw demand rows into planner shipments, one per
// (store, zone). Pallets sum; the first non-empty product type, window, and
// cluster win. Stores call this on write so a plan date always holds
// planner-shaped demand.
func aggregateDemand(in []model.Shipment) []model.Shipment {
	idx := map[[2]string]int{}
	out := make([]model.Shipment, 0, len(in))
	for _, s := range in {
		k := [2]string{s.Store, string(s.Zone)}
		i, ok := idx[k]
		if !ok {
			idx[k] = len(out)
			out = append(out, s)
			continue
		}
		out[i].Pallets += s.Pallets
		if out[i].ProductType == "" {
			out[i].ProductType = s.ProductType
		}
		if out[i].Window == "" {
			out[i].Window = s.Window
		}
		if out[i].Cluster == "" {
			out[i].Cluster = s.Cluster
		}
	}
	return out
}
