package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"loadplan/internal/model"
)

func TestMemoryDemandScopedByTenantAndDate(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	n, err := m.PutShipments(ctx, "t1", "2026-09-01", []model.Shipment{{Store: "A", Zone: model.ZoneAmbient, Pallets: 5}})
	require.NoError(t, err)
	require.Equal(t, 1, n)
	_, err = m.PutShipments(ctx, "t2", "2026-09-01", []model.Shipment{{Store: "C", Zone: model.ZoneAmbient, Pallets: 1}})
	require.NoError(t, err)

	got, err := m.ListShipments(ctx, "t1", "2026-09-01")
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, "A", got[0].Store)

	got, err = m.ListShipments(ctx, "t1", "2026-09-02")
	require.NoError(t, err)
	require.Empty(t, got)
}

func TestMemoryDemandAggregatesByStoreAndZone(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	// Raw rows fold into one shipment per (store, zone); pallets sum and
	// the first non-empty attribute wins.
	n, err := m.PutShipments(ctx, "t1", "2026-09-01", []model.Shipment{
		{Store: "A", Zone: model.ZoneAmbient, Pallets: 6},
		{Store: "A", Zone: model.ZoneAmbient, Pallets: 6, Window: "06:00-10:00", Cluster: "north"},
		{Store: "A", Zone: model.ZoneChiller, Pallets: 2},
		{Store: "B", Zone: model.ZoneAmbient, Pallets: 3},
	})
	require.NoError(t, err)
	require.Equal(t, 3, n)

	got, err := m.ListShipments(ctx, "t1", "2026-09-01")
	require.NoError(t, err)
	require.Len(t, got, 3)
	require.Equal(t, "A", got[0].Store)
	require.Equal(t, model.ZoneAmbient, got[0].Zone)
	require.Equal(t, 12.0, got[0].Pallets)
	require.Equal(t, "06:00-10:00", got[0].Window)
	require.Equal(t, "north", got[0].Cluster)
}

func TestMemoryDemandRepostReplacesPlanDate(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	_, err := m.PutShipments(ctx, "t1", "2026-09-01", []model.Shipment{{Store: "A", Zone: model.ZoneAmbient, Pallets: 6}})
	require.NoError(t, err)
	// A re-import of the same plan date must not double demand.
	_, err = m.PutShipments(ctx, "t1", "2026-09-01", []model.Shipment{{Store: "A", Zone: model.ZoneAmbient, Pallets: 6}})
	require.NoError(t, err)

	got, err := m.ListShipments(ctx, "t1", "2026-09-01")
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, 6.0, got[0].Pallets)
}

func TestMemoryCarriersReplaceSet(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	_, err := m.PutCarriers(ctx, "t1", []model.Carrier{{Name: "X"}, {Name: "Y"}})
	require.NoError(t, err)
	_, err = m.PutCarriers(ctx, "t1", []model.Carrier{{Name: "Z"}})
	require.NoError(t, err)

	got, err := m.ListCarriers(ctx, "t1")
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, "Z", got[0].Name)
}

func TestMemoryPlansListNewestFirst(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	require.NoError(t, m.SavePlan(ctx, model.PlanResult{ID: "p1", TenantID: "t1", PlanDate: "2026-09-01"}))
	require.NoError(t, m.SavePlan(ctx, model.PlanResult{ID: "p2", TenantID: "t1", PlanDate: "2026-09-01"}))
	require.NoError(t, m.SavePlan(ctx, model.PlanResult{ID: "p3", TenantID: "t1", PlanDate: "2026-09-02"}))

	got, err := m.ListPlans(ctx, "t1", "", 0)
	require.NoError(t, err)
	require.Len(t, got, 3)
	require.Equal(t, "p3", got[0].ID)

	got, err = m.ListPlans(ctx, "t1", "2026-09-01", 1)
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, "p2", got[0].ID)

	p, err := m.GetPlan(ctx, "t1", "p1")
	require.NoError(t, err)
	require.Equal(t, "2026-09-01", p.PlanDate)

	_, err = m.GetPlan(ctx, "t2", "p1")
	require.ErrorIs(t, err, ErrNotFound)
	_, err = m.GetPlan(ctx, "t1", "missing")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestMemorySubscriptionsAndEventMatch(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	sub, err := m.CreateSubscription(ctx, model.SubscriptionRequest{
		TenantID: "t1", URL: "https://example.com/hook",
		Events: []string{"plan.completed"}, Secret: "s",
	})
	require.NoError(t, err)
	require.NotEmpty(t, sub.ID)

	all, err := m.CreateSubscription(ctx, model.SubscriptionRequest{
		TenantID: "t1", URL: "https://example.com/all", Events: []string{"*"},
	})
	require.NoError(t, err)

	got, err := m.GetSubscriptionsForEvent(ctx, "t1", "plan.completed")
	require.NoError(t, err)
	require.Len(t, got, 2)

	got, err = m.GetSubscriptionsForEvent(ctx, "t1", "plan.failed")
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, all.ID, got[0].ID)

	require.NoError(t, m.DeleteSubscription(ctx, "t1", sub.ID))
	require.ErrorIs(t, m.DeleteSubscription(ctx, "t1", sub.ID), ErrNotFound)

	left, err := m.ListSubscriptions(ctx, "t1")
	require.NoError(t, err)
	require.Len(t, left, 1)
}

func TestMemoryWebhookDeliveryLifecycle(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	id, err := m.EnqueueWebhook(ctx, "t1", "sub1", "plan.completed", "https://example.com/hook", "s", []byte(`{}`))
	require.NoError(t, err)

	due, err := m.FetchDueWebhookDeliveries(ctx, 10)
	require.NoError(t, err)
	require.Len(t, due, 1)
	require.Equal(t, id, due[0].ID)
	require.Equal(t, "pending", due[0].Status)

	// A failed attempt with a future retry time leaves the queue empty
	// until the clock catches up.
	later := time.Now().Add(time.Hour)
	require.NoError(t, m.MarkWebhookDelivery(ctx, id, false, &later, "500", 500, 12))
	due, err = m.FetchDueWebhookDeliveries(ctx, 10)
	require.NoError(t, err)
	require.Empty(t, due)

	require.NoError(t, m.MarkWebhookDelivery(ctx, id, true, nil, "", 200, 8))
	due, err = m.FetchDueWebhookDeliveries(ctx, 10)
	require.NoError(t, err)
	require.Empty(t, due)

	require.ErrorIs(t, m.MarkWebhookDelivery(ctx, "missing", true, nil, "", 200, 1), ErrNotFound)
	require.ErrorIs(t, m.FailWebhookDelivery(ctx, "missing", "x", 0, 0), ErrNotFound)
}

func TestMemoryPlannerConfigCopiesOnReadAndWrite(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	in := map[string]any{"maxStopsPerRoute": 5.0}
	require.NoError(t, m.SavePlannerConfig(ctx, "t1", in))
	in["maxStopsPerRoute"] = 99.0

	got, err := m.GetPlannerConfig(ctx, "t1")
	require.NoError(t, err)
	require.Equal(t, 5.0, got["maxStopsPerRoute"])

	got["maxStopsPerRoute"] = 1.0
	again, err := m.GetPlannerConfig(ctx, "t1")
	require.NoError(t, err)
	require.Equal(t, 5.0, again["maxStopsPerRoute"])
}
