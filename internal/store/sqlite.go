// Package store persists campaigns, sources, offers, discovery runs, work
// units, and applications in SQLite.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jobscout/jobscout/internal/model"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements every persistence interface of the model package on
// a single SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS campaigns (
		id              TEXT PRIMARY KEY,
		name            TEXT NOT NULL,
		target_roles    TEXT NOT NULL DEFAULT '[]',
		target_locations TEXT NOT NULL DEFAULT '[]',
		contract_types  TEXT NOT NULL DEFAULT '[]',
		remote_ok       INTEGER NOT NULL DEFAULT 0,
		salary_min      INTEGER,
		salary_max      INTEGER,
		salary_currency TEXT NOT NULL DEFAULT '',
		source_names    TEXT NOT NULL DEFAULT '[]',
		match_threshold REAL NOT NULL DEFAULT 0,
		auto_apply      INTEGER NOT NULL DEFAULT 0,
		enabled         INTEGER NOT NULL DEFAULT 1,
		created_at      DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS job_sources (
		id                  INTEGER PRIMARY KEY AUTOINCREMENT,
		name                TEXT NOT NULL UNIQUE,
		display_name        TEXT NOT NULL,
		type                TEXT NOT NULL,
		supports_auto_apply INTEGER NOT NULL DEFAULT 0,
		active              INTEGER NOT NULL DEFAULT 1
	)`,
	`CREATE TABLE IF NOT EXISTS job_offers (
		id            TEXT PRIMARY KEY,
		campaign_id   TEXT NOT NULL,
		source_id     INTEGER NOT NULL,
		status        TEXT NOT NULL,
		external_id   TEXT NOT NULL DEFAULT '',
		title         TEXT NOT NULL,
		company       TEXT NOT NULL DEFAULT '',
		location      TEXT NOT NULL DEFAULT '',
		description   TEXT NOT NULL DEFAULT '',
		requirements  TEXT NOT NULL DEFAULT '[]',
		salary        TEXT NOT NULL DEFAULT '',
		contract_type TEXT NOT NULL DEFAULT '',
		remote_type   TEXT NOT NULL DEFAULT '',
		url           TEXT NOT NULL DEFAULT '',
		apply_email   TEXT NOT NULL DEFAULT '',
		apply_url     TEXT NOT NULL DEFAULT '',
		posted_at     DATETIME,
		discovered_at DATETIME NOT NULL,
		expires_at    DATETIME,
		match_score   REAL,
		match_summary TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE INDEX IF NOT EXISTS idx_offers_campaign ON job_offers(campaign_id)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_offers_identity
		ON job_offers(campaign_id, source_id, external_id)`,
	`CREATE TABLE IF NOT EXISTS discovery_runs (
		id            TEXT PRIMARY KEY,
		campaign_id   TEXT NOT NULL,
		status        TEXT NOT NULL,
		error         TEXT NOT NULL DEFAULT '',
		found         INTEGER NOT NULL DEFAULT 0,
		new           INTEGER NOT NULL DEFAULT 0,
		duplicates    INTEGER NOT NULL DEFAULT 0,
		expired       INTEGER NOT NULL DEFAULT 0,
		by_source     TEXT NOT NULL DEFAULT '{}',
		by_match_type TEXT NOT NULL DEFAULT '{}',
		started_at    DATETIME NOT NULL,
		duration_ms   INTEGER NOT NULL DEFAULT 0
	)`,
	`CREATE TABLE IF NOT EXISTS work_units (
		id          TEXT PRIMARY KEY,
		type        TEXT NOT NULL,
		status      TEXT NOT NULL,
		data        TEXT NOT NULL DEFAULT '{}',
		owner_id    TEXT NOT NULL DEFAULT '',
		test_mode   INTEGER NOT NULL DEFAULT 0,
		error       TEXT NOT NULL DEFAULT '',
		enqueued_at DATETIME NOT NULL,
		started_at  DATETIME,
		finished_at DATETIME
	)`,
	`CREATE TABLE IF NOT EXISTS applications (
		id          TEXT PRIMARY KEY,
		offer_id    TEXT NOT NULL,
		campaign_id TEXT NOT NULL,
		created_at  DATETIME NOT NULL
	)`,
}

// NewSQLiteStore opens (or creates) the database at dbPath and ensures the
// schema exists. Use ":memory:" for an ephemeral store.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	// Verify the connection is alive.
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging sqlite db: %w", err)
	}

	// The sqlite driver serializes writes; a single connection avoids
	// SQLITE_BUSY under concurrent workers.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL: %w", err)
	}

	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("creating schema: %w", err)
		}
	}
	return &SQLiteStore{db: db}, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func marshalJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return "null"
	}
	return string(b)
}

func unmarshalStrings(raw string) []string {
	var out []string
	json.Unmarshal([]byte(raw), &out)
	return out
}

// --- campaigns ---

// SyncCampaign writes one configured campaign into the database, replacing
// any previous definition with the same ID. Called at startup for every
// campaign in the config file.
func (s *SQLiteStore) SyncCampaign(ctx context.Context, c model.Campaign) error {
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO campaigns (
			id, name, target_roles, target_locations, contract_types, remote_ok,
			salary_min, salary_max, salary_currency, source_names,
			match_threshold, auto_apply, enabled, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			target_roles = excluded.target_roles,
			target_locations = excluded.target_locations,
			contract_types = excluded.contract_types,
			remote_ok = excluded.remote_ok,
			salary_min = excluded.salary_min,
			salary_max = excluded.salary_max,
			salary_currency = excluded.salary_currency,
			source_names = excluded.source_names,
			match_threshold = excluded.match_threshold,
			auto_apply = excluded.auto_apply,
			enabled = excluded.enabled`,
		c.ID, c.Name, marshalJSON(c.TargetRoles), marshalJSON(c.TargetLocations),
		marshalJSON(c.ContractTypes), c.RemoteOK,
		c.SalaryMin, c.SalaryMax, c.SalaryCurrency, marshalJSON(c.SourceNames),
		c.MatchThreshold, c.AutoApply, c.Enabled, c.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("syncing campaign %s: %w", c.ID, err)
	}
	return nil
}

const campaignColumns = `id, name, target_roles, target_locations, contract_types,
	remote_ok, salary_min, salary_max, salary_currency, source_names,
	match_threshold, auto_apply, enabled, created_at`

func scanCampaign(row interface{ Scan(...any) error }) (*model.Campaign, error) {
	var (
		c                           model.Campaign
		roles, locations, contracts string
		sources                     string
	)
	err := row.Scan(&c.ID, &c.Name, &roles, &locations, &contracts,
		&c.RemoteOK, &c.SalaryMin, &c.SalaryMax, &c.SalaryCurrency, &sources,
		&c.MatchThreshold, &c.AutoApply, &c.Enabled, &c.CreatedAt)
	if err != nil {
		return nil, err
	}
	c.TargetRoles = unmarshalStrings(roles)
	c.TargetLocations = unmarshalStrings(locations)
	c.SourceNames = unmarshalStrings(sources)
	json.Unmarshal([]byte(contracts), &c.ContractTypes)
	return &c, nil
}

func (s *SQLiteStore) GetCampaign(ctx context.Context, id string) (*model.Campaign, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+campaignColumns+` FROM campaigns WHERE id = ?`, id)
	c, err := scanCampaign(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("campaign %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("getting campaign %s: %w", id, err)
	}
	return c, nil
}

func (s *SQLiteStore) ListEnabledCampaigns(ctx context.Context) ([]model.Campaign, error) {
	return s.queryCampaigns(ctx,
		`SELECT `+campaignColumns+` FROM campaigns WHERE enabled = 1 ORDER BY id`)
}

func (s *SQLiteStore) ListCampaigns(ctx context.Context) ([]model.Campaign, error) {
	return s.queryCampaigns(ctx,
		`SELECT `+campaignColumns+` FROM campaigns ORDER BY id`)
}

func (s *SQLiteStore) queryCampaigns(ctx context.Context, query string) ([]model.Campaign, error) {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("listing campaigns: %w", err)
	}
	defer rows.Close()

	var campaigns []model.Campaign
	for rows.Next() {
		c, err := scanCampaign(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning campaign: %w", err)
		}
		campaigns = append(campaigns, *c)
	}
	return campaigns, rows.Err()
}

// --- sources ---

func (s *SQLiteStore) EnsureSource(ctx context.Context, src model.JobSource) (*model.JobSource, error) {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO job_sources (name, display_name, type, supports_auto_apply, active)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			display_name = excluded.display_name,
			type = excluded.type,
			supports_auto_apply = excluded.supports_auto_apply`,
		src.Name, src.DisplayName, src.Type, src.SupportsAutoApply, src.Active)
	if err != nil {
		return nil, fmt.Errorf("ensuring source %s: %w", src.Name, err)
	}

	var out model.JobSource
	err = s.db.QueryRowContext(ctx, `
		SELECT id, name, display_name, type, supports_auto_apply, active
		FROM job_sources WHERE name = ?`, src.Name).
		Scan(&out.ID, &out.Name, &out.DisplayName, &out.Type, &out.SupportsAutoApply, &out.Active)
	if err != nil {
		return nil, fmt.Errorf("reading source %s: %w", src.Name, err)
	}
	return &out, nil
}

func (s *SQLiteStore) ListSources(ctx context.Context) ([]model.JobSource, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, display_name, type, supports_auto_apply, active
		FROM job_sources ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("listing sources: %w", err)
	}
	defer rows.Close()

	var sources []model.JobSource
	for rows.Next() {
		var src model.JobSource
		if err := rows.Scan(&src.ID, &src.Name, &src.DisplayName, &src.Type,
			&src.SupportsAutoApply, &src.Active); err != nil {
			return nil, fmt.Errorf("scanning source: %w", err)
		}
		sources = append(sources, src)
	}
	return sources, rows.Err()
}

// --- offers ---

func (s *SQLiteStore) CreateOffer(ctx context.Context, offer *model.JobOffer) error {
	if offer.ID == "" {
		offer.ID = uuid.NewString()
	}
	if offer.Status == "" {
		offer.Status = model.StatusDiscovered
	}
	if offer.DiscoveredAt.IsZero() {
		offer.DiscoveredAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO job_offers (
			id, campaign_id, source_id, status, external_id, title, company,
			location, description, requirements, salary, contract_type,
			remote_type, url, apply_email, apply_url, posted_at, discovered_at,
			expires_at, match_score, match_summary
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		offer.ID, offer.CampaignID, offer.SourceID, offer.Status,
		offer.ExternalID, offer.Title, offer.Company, offer.Location,
		offer.Description, marshalJSON(offer.Requirements), offer.Salary,
		offer.ContractType, offer.RemoteType, offer.URL, offer.ApplyEmail,
		offer.ApplyURL, offer.PostedAt, offer.DiscoveredAt, offer.ExpiresAt,
		offer.MatchScore, offer.MatchSummary)
	if err != nil {
		return fmt.Errorf("creating offer %s: %w", offer.ID, err)
	}
	return nil
}

const offerColumns = `id, campaign_id, source_id, status, external_id, title,
	company, location, description, requirements, salary, contract_type,
	remote_type, url, apply_email, apply_url, posted_at, discovered_at,
	expires_at, match_score, match_summary`

func scanOffer(row interface{ Scan(...any) error }) (*model.JobOffer, error) {
	var (
		o            model.JobOffer
		requirements string
		postedAt     sql.NullTime
		expiresAt    sql.NullTime
	)
	err := row.Scan(&o.ID, &o.CampaignID, &o.SourceID, &o.Status, &o.ExternalID,
		&o.Title, &o.Company, &o.Location, &o.Description, &requirements,
		&o.Salary, &o.ContractType, &o.RemoteType, &o.URL, &o.ApplyEmail,
		&o.ApplyURL, &postedAt, &o.DiscoveredAt, &expiresAt, &o.MatchScore,
		&o.MatchSummary)
	if err != nil {
		return nil, err
	}
	o.Requirements = unmarshalStrings(requirements)
	if postedAt.Valid {
		o.PostedAt = &postedAt.Time
	}
	if expiresAt.Valid {
		o.ExpiresAt = &expiresAt.Time
	}
	return &o, nil
}

func (s *SQLiteStore) GetOffer(ctx context.Context, id string) (*model.JobOffer, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+offerColumns+` FROM job_offers WHERE id = ?`, id)
	o, err := scanOffer(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("offer %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("getting offer %s: %w", id, err)
	}
	return o, nil
}

func (s *SQLiteStore) ListOffersByCampaign(ctx context.Context, campaignID string) ([]model.JobOffer, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+offerColumns+` FROM job_offers WHERE campaign_id = ? ORDER BY discovered_at DESC`,
		campaignID)
	if err != nil {
		return nil, fmt.Errorf("listing offers for campaign %s: %w", campaignID, err)
	}
	defer rows.Close()

	var offers []model.JobOffer
	for rows.Next() {
		o, err := scanOffer(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning offer: %w", err)
		}
		offers = append(offers, *o)
	}
	return offers, rows.Err()
}

func (s *SQLiteStore) UpdateOfferStatus(ctx context.Context, id string, status model.OfferStatus) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE job_offers SET status = ? WHERE id = ?`, status, id)
	if err != nil {
		return fmt.Errorf("updating offer %s status: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("offer %s not found", id)
	}
	return nil
}

func (s *SQLiteStore) SetMatchResult(ctx context.Context, id string, score float64, summary string, status model.OfferStatus) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE job_offers SET match_score = ?, match_summary = ?, status = ?
		WHERE id = ?`, score, summary, status, id)
	if err != nil {
		return fmt.Errorf("setting match result for offer %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("offer %s not found", id)
	}
	return nil
}

func (s *SQLiteStore) ExpireOpenOffers(ctx context.Context, campaignID string, cutoff time.Time) (int, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE job_offers SET status = ?, expires_at = COALESCE(expires_at, ?)
		WHERE campaign_id = ?
		  AND status IN (?, ?, ?)
		  AND posted_at IS NOT NULL
		  AND posted_at < ?`,
		model.StatusExpired, time.Now().UTC(), campaignID,
		model.StatusDiscovered, model.StatusAnalyzing, model.StatusMatched,
		cutoff)
	if err != nil {
		return 0, fmt.Errorf("expiring offers for campaign %s: %w", campaignID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("expiring offers for campaign %s: %w", campaignID, err)
	}
	return int(n), nil
}

// --- discovery runs ---

func (s *SQLiteStore) CreateRun(ctx context.Context, run *model.DiscoveryRun) error {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO discovery_runs (
			id, campaign_id, status, error, found, new, duplicates, expired,
			by_source, by_match_type, started_at, duration_ms
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.CampaignID, run.Status, run.Error, run.Found, run.New,
		run.Duplicates, run.Expired, marshalJSON(run.BySource),
		marshalJSON(run.ByMatchType), run.StartedAt, run.Duration.Milliseconds())
	if err != nil {
		return fmt.Errorf("creating run %s: %w", run.ID, err)
	}
	return nil
}

func (s *SQLiteStore) ListRunsByCampaign(ctx context.Context, campaignID string, limit int) ([]model.DiscoveryRun, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, campaign_id, status, error, found, new, duplicates, expired,
			by_source, by_match_type, started_at, duration_ms
		FROM discovery_runs WHERE campaign_id = ?
		ORDER BY started_at DESC LIMIT ?`, campaignID, limit)
	if err != nil {
		return nil, fmt.Errorf("listing runs for campaign %s: %w", campaignID, err)
	}
	defer rows.Close()

	var runs []model.DiscoveryRun
	for rows.Next() {
		var (
			run                   model.DiscoveryRun
			bySource, byMatchType string
			durationMS            int64
		)
		if err := rows.Scan(&run.ID, &run.CampaignID, &run.Status, &run.Error,
			&run.Found, &run.New, &run.Duplicates, &run.Expired,
			&bySource, &byMatchType, &run.StartedAt, &durationMS); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		json.Unmarshal([]byte(bySource), &run.BySource)
		json.Unmarshal([]byte(byMatchType), &run.ByMatchType)
		run.Duration = time.Duration(durationMS) * time.Millisecond
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// --- work units ---

func (s *SQLiteStore) CreateUnit(ctx context.Context, rec *model.WorkUnitRecord) error {
	if rec.EnqueuedAt.IsZero() {
		rec.EnqueuedAt = time.Now().UTC()
	}
	if rec.Status == "" {
		rec.Status = model.UnitStatusQueued
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO work_units (id, type, status, data, owner_id, test_mode, error, enqueued_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Type, rec.Status, string(rec.Data), rec.OwnerID,
		rec.TestMode, rec.Error, rec.EnqueuedAt)
	if err != nil {
		return fmt.Errorf("creating work unit %s: %w", rec.ID, err)
	}
	return nil
}

func (s *SQLiteStore) MarkUnitActive(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE work_units SET status = ?, started_at = ? WHERE id = ?`,
		model.UnitStatusActive, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("updating work unit %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("work unit %s not found", id)
	}
	return nil
}

func (s *SQLiteStore) finishUnit(ctx context.Context, id string, status model.WorkUnitStatus, errMsg string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE work_units SET status = ?, error = ?, finished_at = ? WHERE id = ?`,
		status, errMsg, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("updating work unit %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("work unit %s not found", id)
	}
	return nil
}

func (s *SQLiteStore) MarkUnitCompleted(ctx context.Context, id string) error {
	return s.finishUnit(ctx, id, model.UnitStatusCompleted, "")
}

func (s *SQLiteStore) MarkUnitFailed(ctx context.Context, id string, errMsg string) error {
	return s.finishUnit(ctx, id, model.UnitStatusFailed, errMsg)
}

func (s *SQLiteStore) CountUnitsByStatus(ctx context.Context) (map[model.WorkUnitStatus]int, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT status, COUNT(*) FROM work_units GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("counting work units: %w", err)
	}
	defer rows.Close()

	counts := make(map[model.WorkUnitStatus]int)
	for rows.Next() {
		var status model.WorkUnitStatus
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("scanning work unit count: %w", err)
		}
		counts[status] = n
	}
	return counts, rows.Err()
}

// CleanupUnits deletes terminal work-unit rows older than the given age.
func (s *SQLiteStore) CleanupUnits(ctx context.Context, olderThan time.Duration) (int, error) {
	cutoff := time.Now().UTC().Add(-olderThan)
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM work_units
		WHERE status IN (?, ?) AND finished_at IS NOT NULL AND finished_at < ?`,
		model.UnitStatusCompleted, model.UnitStatusFailed, cutoff)
	if err != nil {
		return 0, fmt.Errorf("cleaning up work units: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("cleaning up work units: %w", err)
	}
	return int(n), nil
}

// --- applications ---

func (s *SQLiteStore) CreateApplication(ctx context.Context, app *model.Application) error {
	if app.ID == "" {
		app.ID = uuid.NewString()
	}
	if app.CreatedAt.IsZero() {
		app.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO applications (id, offer_id, campaign_id, created_at)
		VALUES (?, ?, ?, ?)`,
		app.ID, app.OfferID, app.CampaignID, app.CreatedAt)
	if err != nil {
		return fmt.Errorf("creating application %s: %w", app.ID, err)
	}
	return nil
}
