package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"

	"loadplan/internal/model"
)

// Postgres persists planning data in PostgreSQL. Reference datasets
// (carriers, restrictions, durations) and plan results are stored as
// JSONB documents; demand and distances are relational since they are
// queried by key.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(dsn string) (*Postgres, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("store: open postgres: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("store: verify postgres connection: %w", err)
	}
	return &Postgres{db: db}, nil
}

func (p *Postgres) Ping(ctx context.Context) error { return p.db.PingContext(ctx) }

// MigrateDir applies every .sql file in a directory in lexical order.
// Dev helper; production schema management is external.
func (p *Postgres) MigrateDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("store: read migrations: %w", err)
	}
	names := []string{}
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".sql") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	for _, n := range names {
		body, err := os.ReadFile(filepath.Join(dir, n))
		if err != nil {
			return fmt.Errorf("store: read migration %s: %w", n, err)
		}
		if _, err := p.db.Exec(string(body)); err != nil {
			return fmt.Errorf("store: apply migration %s: %w", n, err)
		}
	}
	return nil
}

func (p *Postgres) PutShipments(ctx context.Context, tenantID, planDate string, shipments []model.Shipment) (int, error) {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM shipments WHERE tenant_id=$1 AND plan_date=$2`, tenantID, planDate); err != nil {
		return 0, err
	}
	n := 0
	for _, s := range aggregateDemand(shipments) {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO shipments (id, tenant_id, plan_date, store, zone, pallets, product_type, delivery_window, cluster)
			 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
			uuid.New(), tenantID, planDate, s.Store, string(s.Zone), s.Pallets, s.ProductType, s.Window, s.Cluster)
		if err != nil {
			return 0, err
		}
		n++
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return n, nil
}

func (p *Postgres) ListShipments(ctx context.Context, tenantID, planDate string) ([]model.Shipment, error) {
	rows, err := p.db.QueryContext(ctx,
		`SELECT store, zone, pallets, product_type, delivery_window, cluster
		 FROM shipments WHERE tenant_id=$1 AND plan_date=$2 ORDER BY store, zone`,
		tenantID, planDate)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Shipment{}
	for rows.Next() {
		var s model.Shipment
		var zone string
		if err := rows.Scan(&s.Store, &zone, &s.Pallets, &s.ProductType, &s.Window, &s.Cluster); err != nil {
			return nil, err
		}
		s.Zone = model.TempZone(zone)
		out = append(out, s)
	}
	return out, rows.Err()
}

// putDoc upserts one JSONB document per (tenant, kind).
func (p *Postgres) putDoc(ctx context.Context, tenantID, kind string, v any) error {
	body, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_, err = p.db.ExecContext(ctx,
		`INSERT INTO tenant_docs (tenant_id, kind, body, updated_at) VALUES ($1,$2,$3,now())
		 ON CONFLICT (tenant_id, kind) DO UPDATE SET body=EXCLUDED.body, updated_at=now()`,
		tenantID, kind, body)
	return err
}

func (p *Postgres) getDoc(ctx context.Context, tenantID, kind string, v any) error {
	var body []byte
	err := p.db.QueryRowContext(ctx,
		`SELECT body FROM tenant_docs WHERE tenant_id=$1 AND kind=$2`, tenantID, kind).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	return json.Unmarshal(body, v)
}

func (p *Postgres) PutCarriers(ctx context.Context, tenantID string, carriers []model.Carrier) (int, error) {
	return len(carriers), p.putDoc(ctx, tenantID, "carriers", carriers)
}

func (p *Postgres) ListCarriers(ctx context.Context, tenantID string) ([]model.Carrier, error) {
	out := []model.Carrier{}
	if err := p.getDoc(ctx, tenantID, "carriers", &out); err != nil && !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	return out, nil
}

func (p *Postgres) PutRestrictions(ctx context.Context, tenantID string, rs []model.Restriction) (int, error) {
	return len(rs), p.putDoc(ctx, tenantID, "restrictions", rs)
}

func (p *Postgres) ListRestrictions(ctx context.Context, tenantID string) ([]model.Restriction, error) {
	out := []model.Restriction{}
	if err := p.getDoc(ctx, tenantID, "restrictions", &out); err != nil && !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	return out, nil
}

func (p *Postgres) PutDurations(ctx context.Context, tenantID string, entries []model.DurationEntry) (int, error) {
	return len(entries), p.putDoc(ctx, tenantID, "durations", entries)
}

func (p *Postgres) ListDurations(ctx context.Context, tenantID string) ([]model.DurationEntry, error) {
	out := []model.DurationEntry{}
	if err := p.getDoc(ctx, tenantID, "durations", &out); err != nil && !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	return out, nil
}

func (p *Postgres) PutDistances(ctx context.Context, tenantID string, edges []model.DistanceEdge) (int, error) {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()
	n := 0
	for _, e := range edges {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO distances (tenant_id, from_loc, to_loc, miles, minutes)
			 VALUES ($1,$2,$3,$4,$5)
			 ON CONFLICT (tenant_id, from_loc, to_loc) DO UPDATE SET miles=EXCLUDED.miles, minutes=EXCLUDED.minutes`,
			tenantID, e.From, e.To, e.Miles, e.Minutes)
		if err != nil {
			return 0, err
		}
		n++
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return n, nil
}

func (p *Postgres) ListDistances(ctx context.Context, tenantID string) ([]model.DistanceEdge, error) {
	rows, err := p.db.QueryContext(ctx,
		`SELECT from_loc, to_loc, miles, minutes FROM distances WHERE tenant_id=$1`, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.DistanceEdge{}
	for rows.Next() {
		var e model.DistanceEdge
		if err := rows.Scan(&e.From, &e.To, &e.Miles, &e.Minutes); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (p *Postgres) SavePlan(ctx context.Context, res model.PlanResult) error {
	if res.ID == "" {
		res.ID = uuid.New().String()
	}
	if res.CreatedAt == "" {
		res.CreatedAt = time.Now().UTC().Format(time.RFC3339)
	}
	body, err := json.Marshal(res)
	if err != nil {
		return err
	}
	_, err = p.db.ExecContext(ctx,
		`INSERT INTO plans (id, tenant_id, plan_date, body, created_at) VALUES ($1,$2,$3,$4,now())`,
		res.ID, res.TenantID, res.PlanDate, body)
	return err
}

func (p *Postgres) GetPlan(ctx context.Context, tenantID, planID string) (model.PlanResult, error) {
	var body []byte
	err := p.db.QueryRowContext(ctx,
		`SELECT body FROM plans WHERE tenant_id=$1 AND id=$2`, tenantID, planID).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return model.PlanResult{}, ErrNotFound
	}
	if err != nil {
		return model.PlanResult{}, err
	}
	var res model.PlanResult
	if err := json.Unmarshal(body, &res); err != nil {
		return model.PlanResult{}, err
	}
	return res, nil
}

func (p *Postgres) ListPlans(ctx context.Context, tenantID, planDate string, limit int) ([]model.PlanResult, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	var rows *sql.Rows
	var err error
	if planDate != "" {
		rows, err = p.db.QueryContext(ctx,
			`SELECT body FROM plans WHERE tenant_id=$1 AND plan_date=$2 ORDER BY created_at DESC LIMIT $3`,
			tenantID, planDate, limit)
	} else {
		rows, err = p.db.QueryContext(ctx,
			`SELECT body FROM plans WHERE tenant_id=$1 ORDER BY created_at DESC LIMIT $2`, tenantID, limit)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.PlanResult{}
	for rows.Next() {
		var body []byte
		if err := rows.Scan(&body); err != nil {
			return nil, err
		}
		var res model.PlanResult
		if err := json.Unmarshal(body, &res); err != nil {
			return nil, err
		}
		out = append(out, res)
	}
	return out, rows.Err()
}

func (p *Postgres) GetPlannerConfig(ctx context.Context, tenantID string) (map[string]any, error) {
	cfg := map[string]any{}
	if err := p.getDoc(ctx, tenantID, "planner_config", &cfg); err != nil && !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	return cfg, nil
}

func (p *Postgres) SavePlannerConfig(ctx context.Context, tenantID string, cfg map[string]any) error {
	return p.putDoc(ctx, tenantID, "planner_config", cfg)
}

func (p *Postgres) CreateSubscription(ctx context.Context, req model.SubscriptionRequest) (model.Subscription, error) {
	sub := model.Subscription{
		ID:       uuid.New().String(),
		TenantID: req.TenantID,
		URL:      req.URL,
		Events:   append([]string(nil), req.Events...),
		Secret:   req.Secret,
	}
	events, _ := json.Marshal(sub.Events)
	_, err := p.db.ExecContext(ctx,
		`INSERT INTO subscriptions (id, tenant_id, url, events, secret) VALUES ($1,$2,$3,$4,$5)`,
		sub.ID, sub.TenantID, sub.URL, events, sub.Secret)
	if err != nil {
		return model.Subscription{}, err
	}
	return sub, nil
}

func (p *Postgres) GetSubscriptionsForEvent(ctx context.Context, tenantID, eventType string) ([]model.Subscription, error) {
	subs, err := p.ListSubscriptions(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	out := []model.Subscription{}
	for _, s := range subs {
		for _, e := range s.Events {
			if e == eventType || e == "*" {
				out = append(out, s)
				break
			}
		}
	}
	return out, nil
}

func (p *Postgres) ListSubscriptions(ctx context.Context, tenantID string) ([]model.Subscription, error) {
	rows, err := p.db.QueryContext(ctx,
		`SELECT id, url, events, secret FROM subscriptions WHERE tenant_id=$1 ORDER BY id`, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Subscription{}
	for rows.Next() {
		s := model.Subscription{TenantID: tenantID}
		var events []byte
		if err := rows.Scan(&s.ID, &s.URL, &events, &s.Secret); err != nil {
			return nil, err
		}
		_ = json.Unmarshal(events, &s.Events)
		out = append(out, s)
	}
	return out, rows.Err()
}

func (p *Postgres) DeleteSubscription(ctx context.Context, tenantID, id string) error {
	res, err := p.db.ExecContext(ctx,
		`DELETE FROM subscriptions WHERE tenant_id=$1 AND id=$2`, tenantID, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *Postgres) EnqueueWebhook(ctx context.Context, tenantID, subscriptionID, eventType, url, secret string, payload []byte) (string, error) {
	id := uuid.New().String()
	_, err := p.db.ExecContext(ctx,
		`INSERT INTO webhook_deliveries (id, tenant_id, subscription_id, event_type, url, secret, payload, status, attempts, next_attempt_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,'pending',0,now())`,
		id, tenantID, subscriptionID, eventType, url, secret, payload)
	if err != nil {
		return "", err
	}
	return id, nil
}

func (p *Postgres) FetchDueWebhookDeliveries(ctx context.Context, limit int) ([]WebhookDelivery, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := p.db.QueryContext(ctx,
		`SELECT id, tenant_id, subscription_id, event_type, url, secret, payload, status, attempts
		 FROM webhook_deliveries WHERE status='pending' AND next_attempt_at <= now()
		 ORDER BY next_attempt_at LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []WebhookDelivery{}
	for rows.Next() {
		var d WebhookDelivery
		if err := rows.Scan(&d.ID, &d.TenantID, &d.SubscriptionID, &d.EventType, &d.URL, &d.Secret, &d.Payload, &d.Status, &d.Attempts); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (p *Postgres) MarkWebhookDelivery(ctx context.Context, id string, success bool, nextAttemptAt *time.Time, lastError string, responseCode, latencyMs int) error {
	if success {
		_, err := p.db.ExecContext(ctx,
			`UPDATE webhook_deliveries SET status='delivered', attempts=attempts+1, last_error=$2, response_code=$3, latency_ms=$4, delivered_at=now() WHERE id=$1`,
			id, lastError, responseCode, latencyMs)
		return err
	}
	_, err := p.db.ExecContext(ctx,
		`UPDATE webhook_deliveries SET attempts=attempts+1, last_error=$2, response_code=$3, latency_ms=$4, next_attempt_at=$5 WHERE id=$1`,
		id, lastError, responseCode, latencyMs, nextAttemptAt)
	return err
}

func (p *Postgres) FailWebhookDelivery(ctx context.Context, id string, lastError string, responseCode, latencyMs int) error {
	_, err := p.db.ExecContext(ctx,
		`UPDATE webhook_deliveries SET status='failed', attempts=attempts+1, last_error=$2, response_code=$3, latency_ms=$4 WHERE id=$1`,
		id, lastError, responseCode, latencyMs)
	return err
}
