package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"loadplan/internal/metrics"
	"loadplan/internal/model"
	"loadplan/internal/plan"
	"loadplan/internal/store"
	"loadplan/internal/webhooks"
)

// PlansHandler handles POST /v1/plans (run a plan over stored demand) and
// GET /v1/plans (list committed plans).
func (s *Server) PlansHandler(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		var req model.PlanRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
			return
		}
		if req.TenantID == "" {
			_, req.TenantID = s.withTenant(r)
		}
		if err := validatePlanRequest(&req); err != nil {
			writeProblem(w, http.StatusBadRequest, "Invalid plan request", err.Error(), r.URL.Path)
			return
		}
		res, err := s.runPlan(r, req)
		if err != nil {
			var pe *planError
			if errors.As(err, &pe) {
				writeProblem(w, pe.status, pe.title, pe.detail, r.URL.Path)
				return
			}
			writeProblem(w, http.StatusInternalServerError, "Plan failed", err.Error(), r.URL.Path)
			return
		}
		writeJSON(w, http.StatusOK, res)
	case http.MethodGet:
		_, tenant := s.withTenant(r)
		planDate := r.URL.Query().Get("planDate")
		limit := 50
		if v := r.URL.Query().Get("limit"); v != "" {
			fmt.Sscanf(v, "%d", &limit)
		}
		items, err := s.Store.ListPlans(r.Context(), tenant, planDate, limit)
		if err != nil {
			writeProblem(w, http.StatusInternalServerError, "List plans failed", err.Error(), r.URL.Path)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": items})
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

type planError struct {
	status int
	title  string
	detail string
}

func (e *planError) Error() string { return e.title + ": " + e.detail }

// runPlan assembles the tenant's datasets, runs the planner, persists the
// result, and fans out lifecycle events.
func (s *Server) runPlan(r *http.Request, req model.PlanRequest) (*model.PlanResult, error) {
	ctx := r.Context()
	tenant := req.TenantID

	shipments, err := s.Store.ListShipments(ctx, tenant, req.PlanDate)
	if err != nil {
		return nil, err
	}
	if len(shipments) == 0 {
		return nil, &planError{http.StatusUnprocessableEntity, "No demand", "no shipments stored for plan date " + req.PlanDate}
	}
	carriers, err := s.Store.ListCarriers(ctx, tenant)
	if err != nil {
		return nil, err
	}
	if len(carriers) == 0 {
		return nil, &planError{http.StatusUnprocessableEntity, "No carriers", "store carriers before planning"}
	}
	restrictions, err := s.Store.ListRestrictions(ctx, tenant)
	if err != nil {
		return nil, err
	}
	edges, err := s.Store.ListDistances(ctx, tenant)
	if err != nil {
		return nil, err
	}
	durations, err := s.Store.ListDurations(ctx, tenant)
	if err != nil {
		return nil, err
	}

	cfg, err := s.plannerConfig(ctx, tenant, req.Tunables)
	if err != nil {
		return nil, &planError{http.StatusBadRequest, "Invalid tunables", err.Error()}
	}
	depot := req.Depot
	if depot == "" {
		depot = s.Cfg.Depot
	}

	planID := uuid.New().String()
	planner := plan.New(cfg, depot, plan.NewMatrixOracle(edges), plan.NewRateTable(durations), restrictions)
	planner.Notify = func(event string, data map[string]any) {
		s.Broker.Publish(planID, PlanEvent{Type: event, Data: data})
	}

	s.Pub.Emit(ctx, tenant, webhooks.EventPlanStarted, map[string]any{
		"planId": planID, "planDate": req.PlanDate, "shipments": len(shipments),
	})
	s.Broker.Publish(planID, PlanEvent{Type: webhooks.EventPlanStarted, Data: map[string]any{"planId": planID}})

	start := time.Now()
	out, err := planner.Plan(shipments, carriers)
	metrics.PlanDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.PlanRuns.WithLabelValues("error").Inc()
		s.Pub.Emit(ctx, tenant, webhooks.EventPlanFailed, map[string]any{"planId": planID, "error": err.Error()})
		s.Broker.Publish(planID, PlanEvent{Type: webhooks.EventPlanFailed, Data: map[string]any{"error": err.Error()}})
		s.Log.Error().Err(err).Str("tenant", tenant).Str("planDate", req.PlanDate).Msg("plan run failed")
		return nil, &planError{http.StatusUnprocessableEntity, "Plan rejected", err.Error()}
	}
	metrics.PlanRuns.WithLabelValues("ok").Inc()
	metrics.ObserveStats(out.Stats.Rejections, out.Stats.RebalanceMerges, out.Stats.RebalanceSwaps,
		out.Stats.RoutesBuilt, out.Stats.PullForwardRoutes, len(out.Overspill))
	for _, g := range out.Unplanned {
		metrics.UnplannedShipments.WithLabelValues(g.Reason).Add(float64(len(g.Shipments)))
	}

	res := model.PlanResult{
		ID:        planID,
		TenantID:  tenant,
		PlanDate:  req.PlanDate,
		Routes:    out.Routes,
		Overspill: out.Overspill,
		Unplanned: out.Unplanned,
		TotalCost: out.TotalCost,
		Stats: model.PlanStats{
			Shipments:          out.Stats.Shipments,
			RoutesBuilt:        out.Stats.RoutesBuilt,
			PullForwardRoutes:  out.Stats.PullForwardRoutes,
			RebalanceMerges:    out.Stats.RebalanceMerges,
			RebalanceSwaps:     out.Stats.RebalanceSwaps,
			OverspillShipments: out.Stats.OverspillShipments,
			UnplannedShipments: out.Stats.UnplannedShipments,
			Rejections:         out.Stats.Rejections,
		},
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
	}
	if err := s.Store.SavePlan(ctx, res); err != nil {
		return nil, err
	}

	for _, rt := range res.Routes {
		s.Broker.Publish(planID, PlanEvent{Type: webhooks.EventRouteBuilt, Data: map[string]any{
			"planId": planID, "routeId": rt.ID, "carrier": rt.Carrier, "timeSlot": rt.TimeSlot, "miles": rt.Miles,
		}})
	}
	if len(res.Overspill) > 0 {
		s.Pub.Emit(ctx, tenant, webhooks.EventOverspill, map[string]any{
			"planId": planID, "routes": len(res.Overspill),
		})
	}
	s.Pub.Emit(ctx, tenant, webhooks.EventPlanCompleted, map[string]any{
		"planId": planID, "routes": len(res.Routes), "totalCost": res.TotalCost,
	})
	s.Broker.Publish(planID, PlanEvent{Type: webhooks.EventPlanCompleted, Data: map[string]any{
		"planId": planID, "routes": len(res.Routes),
	}})
	s.Log.Info().
		Str("tenant", tenant).
		Str("plan", planID).
		Int("routes", len(res.Routes)).
		Int("overspill", len(res.Overspill)).
		Float64("totalCost", res.TotalCost).
		Msg("plan committed")
	return &res, nil
}

// plannerConfig layers stored tenant overrides then request tunables on top
// of the defaults. Keys use the JSON field names of the planner config.
func (s *Server) plannerConfig(ctx context.Context, tenant string, reqTunables map[string]any) (plan.Config, error) {
	cfg := plan.DefaultConfig()
	stored, err := s.Store.GetPlannerConfig(ctx, tenant)
	if err != nil {
		return cfg, err
	}
	for _, overlay := range []map[string]any{stored, reqTunables} {
		if len(overlay) == 0 {
			continue
		}
		if err := validateTunables(overlay); err != nil {
			return cfg, err
		}
		body, err := json.Marshal(overlay)
		if err != nil {
			return cfg, err
		}
		if err := json.Unmarshal(body, &cfg); err != nil {
			return cfg, err
		}
	}
	return cfg, nil
}

// PlanByIDHandler handles GET /v1/plans/{id} and the SSE stream at
// /v1/plans/{id}/events/stream.
func (s *Server) PlanByIDHandler(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/v1/plans/")
	if rest == r.URL.Path || rest == "" {
		writeProblem(w, http.StatusNotFound, "Not Found", "missing id", r.URL.Path)
		return
	}
	parts := strings.Split(rest, "/")
	id := parts[0]
	if len(parts) > 2 && parts[1] == "events" && parts[2] == "stream" {
		s.streamPlanEvents(w, r, id)
		return
	}
	if len(parts) > 2 && parts[1] == "events" && parts[2] == "ws" {
		s.PlanEventsWSHandler(w, r, id)
		return
	}
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	_, tenant := s.withTenant(r)
	res, err := s.Store.GetPlan(r.Context(), tenant, id)
	if err != nil {
		if err == store.ErrNotFound {
			writeProblem(w, http.StatusNotFound, "Plan not found", "", r.URL.Path)
			return
		}
		writeProblem(w, http.StatusInternalServerError, "Get plan failed", err.Error(), r.URL.Path)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) streamPlanEvents(w http.ResponseWriter, r *http.Request, planID string) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeProblem(w, http.StatusInternalServerError, "Streaming unsupported", "", r.URL.Path)
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch := s.Broker.Subscribe(planID)
	defer s.Broker.Unsubscribe(planID, ch)

	fmt.Fprintf(w, "event: heartbeat\n")
	fmt.Fprintf(w, "data: {\"planId\":%q,\"ts\":%q}\n\n", planID, time.Now().Format(time.RFC3339))
	flusher.Flush()

	notify := r.Context().Done()
	for {
		select {
		case <-notify:
			return
		case evt := <-ch:
			b, _ := json.Marshal(evt.Data)
			fmt.Fprintf(w, "event: %s\n", evt.Type)
			fmt.Fprintf(w, "data: %s\n\n", string(b))
			flusher.Flush()
		case <-time.After(15 * time.Second):
			fmt.Fprintf(w, "event: heartbeat\n")
			fmt.Fprintf(w, "data: {\"planId\":%q,\"ts\":%q}\n\n", planID, time.Now().Format(time.RFC3339))
			flusher.Flush()
		}
	}
}
