package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"loadplan/internal/model"
)

// Memory is a simple in-memory store used when no DATABASE_URL is set.
// Also the backing store for tests and planctl offline runs.
type Memory struct {
	mu           sync.Mutex
	shipments    map[string][]model.Shipment // tenant|planDate -> demand
	carriers     map[string][]model.Carrier
	restrictions map[string][]model.Restriction
	distances    map[string][]model.DistanceEdge
	durations    map[string][]model.DurationEntry
	plans        map[string]model.PlanResult // plan id -> result
	plansByTen   map[string][]string
	plannerCfg   map[string]map[string]any
	subs         map[string][]model.Subscription
	deliveries   map[string]*memDelivery
}

// memDelivery augments WebhookDelivery with scheduling state.
type memDelivery struct {
	WebhookDelivery
	NextAttemptAt time.Time
	LastError     string
	ResponseCode  int
	LatencyMs     int
}

func NewMemory() *Memory {
	return &Memory{
		shipments:    map[string][]model.Shipment{},
		carriers:     map[string][]model.Carrier{},
		restrictions: map[string][]model.Restriction{},
		distances:    map[string][]model.DistanceEdge{},
		durations:    map[string][]model.DurationEntry{},
		plans:        map[string]model.PlanResult{},
		plansByTen:   map[string][]string{},
		plannerCfg:   map[string]map[string]any{},
		subs:         map[string][]model.Subscription{},
		deliveries:   map[string]*memDelivery{},
	}
}

func demandKey(tenantID, planDate string) string { return tenantID + "|" + planDate }

func (m *Memory) PutShipments(ctx context.Context, tenantID, planDate string, shipments []model.Shipment) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	agg := aggregateDemand(shipments)
	m.shipments[demandKey(tenantID, planDate)] = agg
	return len(agg), nil
}

func (m *Memory) ListShipments(ctx context.Context, tenantID, planDate string) ([]model.Shipment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.Shipment(nil), m.shipments[demandKey(tenantID, planDate)]...), nil
}

func (m *Memory) PutCarriers(ctx context.Context, tenantID string, carriers []model.Carrier) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.carriers[tenantID] = append([]model.Carrier(nil), carriers...)
	return len(carriers), nil
}

func (m *Memory) ListCarriers(ctx context.Context, tenantID string) ([]model.Carrier, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.Carrier(nil), m.carriers[tenantID]...), nil
}

func (m *Memory) PutRestrictions(ctx context.Context, tenantID string, rs []model.Restriction) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.restrictions[tenantID] = append([]model.Restriction(nil), rs...)
	return len(rs), nil
}

func (m *Memory) ListRestrictions(ctx context.Context, tenantID string) ([]model.Restriction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.Restriction(nil), m.restrictions[tenantID]...), nil
}

func (m *Memory) PutDistances(ctx context.Context, tenantID string, edges []model.DistanceEdge) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.distances[tenantID] = append(m.distances[tenantID], edges...)
	return len(edges), nil
}

func (m *Memory) ListDistances(ctx context.Context, tenantID string) ([]model.DistanceEdge, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.DistanceEdge(nil), m.distances[tenantID]...), nil
}

func (m *Memory) PutDurations(ctx context.Context, tenantID string, entries []model.DurationEntry) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.durations[tenantID] = append(m.durations[tenantID], entries...)
	return len(entries), nil
}

func (m *Memory) ListDurations(ctx context.Context, tenantID string) ([]model.DurationEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.DurationEntry(nil), m.durations[tenantID]...), nil
}

func (m *Memory) SavePlan(ctx context.Context, res model.PlanResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if res.ID == "" {
		res.ID = uuid.New().String()
	}
	if res.CreatedAt == "" {
		res.CreatedAt = time.Now().UTC().Format(time.RFC3339)
	}
	m.plans[res.ID] = res
	m.plansByTen[res.TenantID] = append(m.plansByTen[res.TenantID], res.ID)
	return nil
}

func (m *Memory) GetPlan(ctx context.Context, tenantID, planID string) (model.PlanResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	res, ok := m.plans[planID]
	if !ok || res.TenantID != tenantID {
		return model.PlanResult{}, ErrNotFound
	}
	return res, nil
}

func (m *Memory) ListPlans(ctx context.Context, tenantID, planDate string, limit int) ([]model.PlanResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if limit <= 0 {
		limit = 50
	}
	ids := m.plansByTen[tenantID]
	out := []model.PlanResult{}
	for i := len(ids) - 1; i >= 0 && len(out) < limit; i-- {
		res := m.plans[ids[i]]
		if planDate == "" || res.PlanDate == planDate {
			out = append(out, res)
		}
	}
	return out, nil
}

func (m *Memory) GetPlannerConfig(ctx context.Context, tenantID string) (map[string]any, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cfg := map[string]any{}
	for k, v := range m.plannerCfg[tenantID] {
		cfg[k] = v
	}
	return cfg, nil
}

func (m *Memory) SavePlannerConfig(ctx context.Context, tenantID string, cfg map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := map[string]any{}
	for k, v := range cfg {
		cp[k] = v
	}
	m.plannerCfg[tenantID] = cp
	return nil
}

func (m *Memory) CreateSubscription(ctx context.Context, req model.SubscriptionRequest) (model.Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sub := model.Subscription{
		ID:       uuid.New().String(),
		TenantID: req.TenantID,
		URL:      req.URL,
		Events:   append([]string(nil), req.Events...),
		Secret:   req.Secret,
	}
	m.subs[req.TenantID] = append(m.subs[req.TenantID], sub)
	return sub, nil
}

func (m *Memory) GetSubscriptionsForEvent(ctx context.Context, tenantID, eventType string) ([]model.Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []model.Subscription{}
	for _, s := range m.subs[tenantID] {
		for _, e := range s.Events {
			if e == eventType || e == "*" {
				out = append(out, s)
				break
			}
		}
	}
	return out, nil
}

func (m *Memory) ListSubscriptions(ctx context.Context, tenantID string) ([]model.Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.Subscription(nil), m.subs[tenantID]...), nil
}

func (m *Memory) DeleteSubscription(ctx context.Context, tenantID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	subs := m.subs[tenantID]
	for i, s := range subs {
		if s.ID == id {
			m.subs[tenantID] = append(subs[:i], subs[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

func (m *Memory) EnqueueWebhook(ctx context.Context, tenantID, subscriptionID, eventType, url, secret string, payload []byte) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := uuid.New().String()
	m.deliveries[id] = &memDelivery{
		WebhookDelivery: WebhookDelivery{
			ID: id, TenantID: tenantID, SubscriptionID: subscriptionID,
			EventType: eventType, URL: url, Secret: secret,
			Payload: payload, Status: "pending",
		},
		NextAttemptAt: time.Now(),
	}
	return id, nil
}

func (m *Memory) FetchDueWebhookDeliveries(ctx context.Context, limit int) ([]WebhookDelivery, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	out := []WebhookDelivery{}
	for _, d := range m.deliveries {
		if d.Status == "pending" && !d.NextAttemptAt.After(now) {
			out = append(out, d.WebhookDelivery)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *Memory) MarkWebhookDelivery(ctx context.Context, id string, success bool, nextAttemptAt *time.Time, lastError string, responseCode, latencyMs int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.deliveries[id]
	if !ok {
		return ErrNotFound
	}
	d.Attempts++
	d.LastError = lastError
	d.ResponseCode = responseCode
	d.LatencyMs = latencyMs
	if success {
		d.Status = "delivered"
	} else if nextAttemptAt != nil {
		d.NextAttemptAt = *nextAttemptAt
	}
	return nil
}

func (m *Memory) FailWebhookDelivery(ctx context.Context, id string, lastError string, responseCode, latencyMs int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.deliveries[id]
	if !ok {
		return ErrNotFound
	}
	d.Attempts++
	d.Status = "failed"
	d.LastError = lastError
	d.ResponseCode = responseCode
	d.LatencyMs = latencyMs
	return nil
}
