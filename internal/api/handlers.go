package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"loadplan/internal/model"
	"loadplan/internal/store"
)

// ShipmentsHandler handles POST/GET /v1/shipments. Demand is keyed by
// tenant and plan date.
func (s *Server) ShipmentsHandler(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		var req struct {
			TenantID  string           `json:"tenantId"`
			PlanDate  string           `json:"planDate"`
			Shipments []model.Shipment `json:"shipments"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
			return
		}
		if req.TenantID == "" {
			_, req.TenantID = s.withTenant(r)
		}
		if req.PlanDate == "" {
			writeProblem(w, http.StatusBadRequest, "Missing planDate", "", r.URL.Path)
			return
		}
		for i, sh := range req.Shipments {
			if err := validateShipment(i, sh); err != nil {
				writeProblem(w, http.StatusBadRequest, "Invalid shipment", err.Error(), r.URL.Path)
				return
			}
		}
		n, err := s.Store.PutShipments(r.Context(), req.TenantID, req.PlanDate, req.Shipments)
		if err != nil {
			writeProblem(w, http.StatusInternalServerError, "Store shipments failed", err.Error(), r.URL.Path)
			return
		}
		writeJSON(w, http.StatusAccepted, map[string]any{"created": n})
	case http.MethodGet:
		_, tenant := s.withTenant(r)
		planDate := r.URL.Query().Get("planDate")
		if planDate == "" {
			writeProblem(w, http.StatusBadRequest, "Missing planDate", "", r.URL.Path)
			return
		}
		items, err := s.Store.ListShipments(r.Context(), tenant, planDate)
		if err != nil {
			writeProblem(w, http.StatusInternalServerError, "List shipments failed", err.Error(), r.URL.Path)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": items})
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// CarriersHandler handles PUT/GET /v1/carriers. PUT replaces the tenant's
// whole carrier set.
func (s *Server) CarriersHandler(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPut:
		var req struct {
			TenantID string          `json:"tenantId"`
			Carriers []model.Carrier `json:"carriers"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
			return
		}
		if req.TenantID == "" {
			_, req.TenantID = s.withTenant(r)
		}
		for _, c := range req.Carriers {
			if err := validateCarrier(c); err != nil {
				writeProblem(w, http.StatusBadRequest, "Invalid carrier", err.Error(), r.URL.Path)
				return
			}
		}
		n, err := s.Store.PutCarriers(r.Context(), req.TenantID, req.Carriers)
		if err != nil {
			writeProblem(w, http.StatusInternalServerError, "Store carriers failed", err.Error(), r.URL.Path)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"stored": n})
	case http.MethodGet:
		_, tenant := s.withTenant(r)
		items, err := s.Store.ListCarriers(r.Context(), tenant)
		if err != nil {
			writeProblem(w, http.StatusInternalServerError, "List carriers failed", err.Error(), r.URL.Path)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": items})
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// RestrictionsHandler handles PUT/GET /v1/restrictions.
func (s *Server) RestrictionsHandler(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPut:
		var req struct {
			TenantID     string              `json:"tenantId"`
			Restrictions []model.Restriction `json:"restrictions"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
			return
		}
		if req.TenantID == "" {
			_, req.TenantID = s.withTenant(r)
		}
		n, err := s.Store.PutRestrictions(r.Context(), req.TenantID, req.Restrictions)
		if err != nil {
			writeProblem(w, http.StatusInternalServerError, "Store restrictions failed", err.Error(), r.URL.Path)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"stored": n})
	case http.MethodGet:
		_, tenant := s.withTenant(r)
		items, err := s.Store.ListRestrictions(r.Context(), tenant)
		if err != nil {
			writeProblem(w, http.StatusInternalServerError, "List restrictions failed", err.Error(), r.URL.Path)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": items})
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// DistancesHandler handles PUT/GET /v1/distances.
func (s *Server) DistancesHandler(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPut:
		var req struct {
			TenantID string               `json:"tenantId"`
			Edges    []model.DistanceEdge `json:"edges"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
			return
		}
		if req.TenantID == "" {
			_, req.TenantID = s.withTenant(r)
		}
		for _, e := range req.Edges {
			if e.From == "" || e.To == "" || e.Miles < 0 {
				writeProblem(w, http.StatusBadRequest, "Invalid edge", "from, to required and miles >= 0", r.URL.Path)
				return
			}
		}
		n, err := s.Store.PutDistances(r.Context(), req.TenantID, req.Edges)
		if err != nil {
			writeProblem(w, http.StatusInternalServerError, "Store distances failed", err.Error(), r.URL.Path)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"stored": n})
	case http.MethodGet:
		_, tenant := s.withTenant(r)
		items, err := s.Store.ListDistances(r.Context(), tenant)
		if err != nil {
			writeProblem(w, http.StatusInternalServerError, "List distances failed", err.Error(), r.URL.Path)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": items})
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// DurationsHandler handles PUT/GET /v1/durations.
func (s *Server) DurationsHandler(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPut:
		var req struct {
			TenantID string                `json:"tenantId"`
			Entries  []model.DurationEntry `json:"entries"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
			return
		}
		if req.TenantID == "" {
			_, req.TenantID = s.withTenant(r)
		}
		n, err := s.Store.PutDurations(r.Context(), req.TenantID, req.Entries)
		if err != nil {
			writeProblem(w, http.StatusInternalServerError, "Store durations failed", err.Error(), r.URL.Path)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"stored": n})
	case http.MethodGet:
		_, tenant := s.withTenant(r)
		items, err := s.Store.ListDurations(r.Context(), tenant)
		if err != nil {
			writeProblem(w, http.StatusInternalServerError, "List durations failed", err.Error(), r.URL.Path)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": items})
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// PlannerConfigHandler handles GET/PUT /v1/planner/config: per-tenant
// tunable overrides applied on top of the built-in defaults.
func (s *Server) PlannerConfigHandler(w http.ResponseWriter, r *http.Request) {
	_, tenant := s.withTenant(r)
	switch r.Method {
	case http.MethodGet:
		cfg, err := s.Store.GetPlannerConfig(r.Context(), tenant)
		if err != nil {
			writeProblem(w, http.StatusInternalServerError, "Load config failed", err.Error(), r.URL.Path)
			return
		}
		if cfg == nil {
			cfg = map[string]any{}
		}
		writeJSON(w, http.StatusOK, map[string]any{"config": cfg, "defaults": defaultTunables()})
	case http.MethodPut:
		var body struct {
			Config map[string]any `json:"config"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
			return
		}
		if body.Config == nil {
			writeProblem(w, http.StatusBadRequest, "Missing config", "", r.URL.Path)
			return
		}
		if err := validateTunables(body.Config); err != nil {
			writeProblem(w, http.StatusBadRequest, "Invalid tunables", err.Error(), r.URL.Path)
			return
		}
		if err := s.Store.SavePlannerConfig(r.Context(), tenant, body.Config); err != nil {
			writeProblem(w, http.StatusInternalServerError, "Save config failed", err.Error(), r.URL.Path)
			return
		}
		writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// SubscriptionsHandler handles POST/GET /v1/subscriptions.
func (s *Server) SubscriptionsHandler(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		var req model.SubscriptionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
			return
		}
		if req.TenantID == "" {
			_, req.TenantID = s.withTenant(r)
		}
		if req.URL == "" || len(req.Events) == 0 {
			writeProblem(w, http.StatusBadRequest, "Missing url or events", "", r.URL.Path)
			return
		}
		sub, err := s.Store.CreateSubscription(r.Context(), req)
		if err != nil {
			writeProblem(w, http.StatusInternalServerError, "Create subscription failed", err.Error(), r.URL.Path)
			return
		}
		writeJSON(w, http.StatusCreated, sub)
	case http.MethodGet:
		_, tenant := s.withTenant(r)
		items, err := s.Store.ListSubscriptions(r.Context(), tenant)
		if err != nil {
			writeProblem(w, http.StatusInternalServerError, "List subscriptions failed", err.Error(), r.URL.Path)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": items})
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// SubscriptionByIDHandler handles DELETE /v1/subscriptions/{id}.
func (s *Server) SubscriptionByIDHandler(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/v1/subscriptions/")
	if id == "" || strings.Contains(id, "/") {
		writeProblem(w, http.StatusNotFound, "Not Found", "", r.URL.Path)
		return
	}
	if r.Method != http.MethodDelete {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	_, tenant := s.withTenant(r)
	if err := s.Store.DeleteSubscription(r.Context(), tenant, id); err != nil {
		if err == store.ErrNotFound {
			writeProblem(w, http.StatusNotFound, "Subscription not found", "", r.URL.Path)
			return
		}
		writeProblem(w, http.StatusInternalServerError, "Delete subscription failed", err.Error(), r.URL.Path)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DemandImportHandler handles POST /v1/imports/demand: pulls shipments for
// a plan date from the configured demand feed and stores them.
func (s *Server) DemandImportHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if s.Feed == nil {
		writeProblem(w, http.StatusConflict, "No demand feed configured", "set DEMAND_FEED_DIR", r.URL.Path)
		return
	}
	var req struct {
		TenantID string `json:"tenantId"`
		PlanDate string `json:"planDate"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
		return
	}
	if req.TenantID == "" {
		_, req.TenantID = s.withTenant(r)
	}
	if req.PlanDate == "" {
		writeProblem(w, http.StatusBadRequest, "Missing planDate", "", r.URL.Path)
		return
	}
	shipments, err := s.Feed.Fetch(req.PlanDate)
	if err != nil {
		writeProblem(w, http.StatusUnprocessableEntity, "Demand feed read failed", err.Error(), r.URL.Path)
		return
	}
	n, err := s.Store.PutShipments(r.Context(), req.TenantID, req.PlanDate, shipments)
	if err != nil {
		writeProblem(w, http.StatusInternalServerError, "Store shipments failed", err.Error(), r.URL.Path)
		return
	}
	s.Log.Info().Str("tenant", req.TenantID).Str("planDate", req.PlanDate).Int("created", n).Str("source", s.Feed.Name()).Msg("demand imported")
	writeJSON(w, http.StatusAccepted, map[string]any{"source": s.Feed.Name(), "created": n})
}

// HealthHandler handles GET /healthz.
func (s *Server) HealthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ReadyHandler handles GET /readyz. Postgres-backed servers check the
// connection; the in-memory store is always ready.
func (s *Server) ReadyHandler(w http.ResponseWriter, r *http.Request) {
	if pg, ok := s.Store.(*store.Postgres); ok {
		if err := pg.Ping(r.Context()); err != nil {
			writeProblem(w, http.StatusServiceUnavailable, "Not ready", err.Error(), r.URL.Path)
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
