package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/leobarcove/true-claim-insight/pkg/evidence"
	"github.com/leobarcove/true-claim-insight/pkg/scoring"
	"github.com/leobarcove/true-claim-insight/pkg/trinity"
)

type dialect struct {
	name   string
	schema []string
	// dollar placeholders ($1, $2) instead of ?
	dollar bool
}

var (
	postgresDialect = dialect{name: "postgres", schema: postgresSchema, dollar: true}
	sqliteDialect   = dialect{name: "sqlite", schema: sqliteSchema}
)

// SQLStore implements Store over database/sql for PostgreSQL and SQLite.
type SQLStore struct {
	db      *sql.DB
	dialect dialect
	now     func() time.Time
}

// NewPostgresStore wraps an open PostgreSQL handle. Call Migrate before use
// on a fresh database.
func NewPostgresStore(db *sql.DB) *SQLStore {
	return &SQLStore{db: db, dialect: postgresDialect, now: utcNow}
}

// NewSQLiteStore wraps an open SQLite handle and creates the schema.
func NewSQLiteStore(db *sql.DB) (*SQLStore, error) {
	s := &SQLStore{db: db, dialect: sqliteDialect, now: utcNow}
	if err := s.Migrate(context.Background()); err != nil {
		return nil, err
	}
	return s, nil
}

func utcNow() time.Time { return time.Now().UTC() }

// Migrate creates missing tables and indexes.
func (s *SQLStore) Migrate(ctx context.Context) error {
	for _, stmt := range s.dialect.schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("%s migrate: %w", s.dialect.name, err)
		}
	}
	return nil
}

// Close closes the underlying handle.
func (s *SQLStore) Close() error { return s.db.Close() }

// q rewrites ? placeholders for the dialect.
func (s *SQLStore) q(query string) string {
	if !s.dialect.dollar {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Fixed-width so TEXT columns sort chronologically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string { return t.UTC().Format(timeLayout) }

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t.UTC()
}

func nullJSON(raw []byte) any {
	if len(raw) == 0 {
		return nil
	}
	return string(raw)
}

func (s *SQLStore) SaveClaim(ctx context.Context, c *Claim) error {
	created := c.CreatedAt
	if created.IsZero() {
		created = s.now()
	}
	_, err := s.db.ExecContext(ctx, s.q(`
		INSERT INTO claims (id, claim_number, incident_date, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			claim_number = EXCLUDED.claim_number,
			incident_date = EXCLUDED.incident_date`),
		c.ID, c.ClaimNumber, c.IncidentDate, formatTime(created))
	if err != nil {
		return fmt.Errorf("failed to save claim: %w", err)
	}
	return nil
}

func (s *SQLStore) GetClaim(ctx context.Context, id string) (*Claim, error) {
	row := s.db.QueryRowContext(ctx, s.q(
		`SELECT id, claim_number, incident_date, created_at FROM claims WHERE id = ?`), id)
	var (
		c       Claim
		created string
	)
	err := row.Scan(&c.ID, &c.ClaimNumber, &c.IncidentDate, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("claim %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get claim: %w", err)
	}
	c.CreatedAt = parseTime(created)
	return &c, nil
}

func (s *SQLStore) SaveDocument(ctx context.Context, d *Document) error {
	now := s.now()
	created := d.CreatedAt
	if created.IsZero() {
		created = now
	}
	_, err := s.db.ExecContext(ctx, s.q(`
		INSERT INTO documents (id, claim_id, doc_type, status, fields, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			doc_type = EXCLUDED.doc_type,
			status = EXCLUDED.status,
			fields = EXCLUDED.fields,
			updated_at = EXCLUDED.updated_at`),
		d.ID, d.ClaimID, string(d.Type), string(d.Status), nullJSON(d.Fields), formatTime(created), formatTime(now))
	if err != nil {
		return fmt.Errorf("failed to save document: %w", err)
	}
	return nil
}

const documentColumns = `id, claim_id, doc_type, status, fields, created_at, updated_at`

func scanDocument(sc interface{ Scan(...any) error }) (*Document, error) {
	var (
		d                Document
		docType, status  string
		fields           sql.NullString
		created, updated string
	)
	if err := sc.Scan(&d.ID, &d.ClaimID, &docType, &status, &fields, &created, &updated); err != nil {
		return nil, err
	}
	d.Type = evidence.DocumentType(docType)
	d.Status = DocumentStatus(status)
	if fields.Valid {
		d.Fields = json.RawMessage(fields.String)
	}
	d.CreatedAt = parseTime(created)
	d.UpdatedAt = parseTime(updated)
	return &d, nil
}

func (s *SQLStore) GetDocument(ctx context.Context, id string) (*Document, error) {
	row := s.db.QueryRowContext(ctx, s.q(`SELECT `+documentColumns+` FROM documents WHERE id = ?`), id)
	d, err := scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("document %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get document: %w", err)
	}
	return d, nil
}

func (s *SQLStore) ListDocuments(ctx context.Context, claimID string) ([]*Document, error) {
	rows, err := s.db.QueryContext(ctx, s.q(
		`SELECT `+documentColumns+` FROM documents WHERE claim_id = ? ORDER BY created_at, id`), claimID)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []*Document
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (s *SQLStore) SaveReport(ctx context.Context, r *trinity.Report) error {
	body, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	created := r.CreatedAt
	if created.IsZero() {
		created = s.now()
	}
	_, err = s.db.ExecContext(ctx, s.q(`
		INSERT INTO trinity_reports (id, claim_id, status, total_score, coverage, digest, body, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`),
		r.ID, r.ClaimID, string(r.Status), r.TotalScore, r.VerificationCoverage, r.Digest, string(body), formatTime(created))
	if err != nil {
		return fmt.Errorf("failed to save report: %w", err)
	}
	return nil
}

func (s *SQLStore) LatestReport(ctx context.Context, claimID string) (*trinity.Report, error) {
	row := s.db.QueryRowContext(ctx, s.q(
		`SELECT body FROM trinity_reports WHERE claim_id = ? ORDER BY seq DESC LIMIT 1`), claimID)
	var body string
	err := row.Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("report for claim %s: %w", claimID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get report: %w", err)
	}
	var r trinity.Report
	if err := json.Unmarshal([]byte(body), &r); err != nil {
		return nil, fmt.Errorf("decode report: %w", err)
	}
	return &r, nil
}

func (s *SQLStore) SaveAsset(ctx context.Context, a *Asset) error {
	now := s.now()
	created := a.CreatedAt
	if created.IsZero() {
		created = now
	}
	status := a.Status
	if status == "" {
		status = AssetPending
	}
	_, err := s.db.ExecContext(ctx, s.q(`
		INSERT INTO assets (id, claim_id, session_id, object_key, duration_s, status, processed_until, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			claim_id = EXCLUDED.claim_id,
			session_id = EXCLUDED.session_id,
			object_key = EXCLUDED.object_key,
			duration_s = EXCLUDED.duration_s,
			status = EXCLUDED.status,
			updated_at = EXCLUDED.updated_at`),
		a.ID, a.ClaimID, a.SessionID, a.Key, a.Duration, string(status), a.ProcessedUntil, formatTime(created), formatTime(now))
	if err != nil {
		return fmt.Errorf("failed to save asset: %w", err)
	}
	return nil
}

func (s *SQLStore) GetAsset(ctx context.Context, id string) (*Asset, error) {
	row := s.db.QueryRowContext(ctx, s.q(`
		SELECT id, claim_id, session_id, object_key, duration_s, status, processed_until, created_at, updated_at
		FROM assets WHERE id = ?`), id)
	var (
		a                Asset
		status           string
		created, updated string
	)
	err := row.Scan(&a.ID, &a.ClaimID, &a.SessionID, &a.Key, &a.Duration, &status, &a.ProcessedUntil, &created, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("asset %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get asset: %w", err)
	}
	a.Status = AssetStatus(status)
	a.CreatedAt = parseTime(created)
	a.UpdatedAt = parseTime(updated)
	return &a, nil
}

func (s *SQLStore) BeginProcessing(ctx context.Context, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx, s.q(
		`UPDATE assets SET status = ?, updated_at = ? WHERE id = ? AND status <> ?`),
		string(AssetProcessing), formatTime(s.now()), id, string(AssetProcessing))
	if err != nil {
		return false, fmt.Errorf("failed to begin processing: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to begin processing: %w", err)
	}
	if n > 0 {
		return true, nil
	}
	if _, err := s.GetAsset(ctx, id); err != nil {
		return false, err
	}
	return false, nil
}

func (s *SQLStore) updateAsset(ctx context.Context, id, set string, arg any) error {
	res, err := s.db.ExecContext(ctx, s.q(`UPDATE assets SET `+set+` = ?, updated_at = ? WHERE id = ?`),
		arg, formatTime(s.now()), id)
	if err != nil {
		return fmt.Errorf("failed to update asset %s: %w", set, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("asset %s: %w", id, ErrNotFound)
	}
	return nil
}

func (s *SQLStore) SetAssetStatus(ctx context.Context, id string, status AssetStatus) error {
	return s.updateAsset(ctx, id, "status", string(status))
}

func (s *SQLStore) SetAssetDuration(ctx context.Context, id string, seconds float64) error {
	return s.updateAsset(ctx, id, "duration_s", seconds)
}

// AdvanceWatermark is a single conditional UPDATE so concurrent writers
// cannot interleave a read and a write.
func (s *SQLStore) AdvanceWatermark(ctx context.Context, id string, until float64) (float64, error) {
	row := s.db.QueryRowContext(ctx, s.q(`
		UPDATE assets
		SET processed_until = CASE WHEN processed_until < ? THEN ? ELSE processed_until END,
			updated_at = ?
		WHERE id = ?
		RETURNING processed_until`),
		until, until, formatTime(s.now()), id)
	var wm float64
	err := row.Scan(&wm)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("asset %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to advance watermark: %w", err)
	}
	return wm, nil
}

func (s *SQLStore) AppendSegment(ctx context.Context, sc *SegmentScore) error {
	created := sc.CreatedAt
	if created.IsZero() {
		created = s.now()
	}
	_, err := s.db.ExecContext(ctx, s.q(`
		INSERT INTO segment_scores (id, asset_id, start_s, end_s, deception_score, voice_stress, visual_behavior, expression_measurement, risk_level, details, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		sc.ID, sc.AssetID, sc.Start, sc.End, sc.DeceptionScore,
		sc.Breakdown.VoiceStress, sc.Breakdown.VisualBehavior, sc.Breakdown.ExpressionMeasurement,
		string(sc.RiskLevel), nullJSON(sc.Details), formatTime(created))
	if err != nil {
		return fmt.Errorf("failed to append segment score: %w", err)
	}
	return nil
}

func (s *SQLStore) Timeline(ctx context.Context, assetID string) ([]*SegmentScore, error) {
	rows, err := s.db.QueryContext(ctx, s.q(`
		SELECT id, asset_id, start_s, end_s, deception_score, voice_stress, visual_behavior, expression_measurement, risk_level, details, created_at
		FROM segment_scores WHERE asset_id = ? ORDER BY start_s, created_at`), assetID)
	if err != nil {
		return nil, fmt.Errorf("failed to read timeline: %w", err)
	}
	defer func() { _ = rows.Close() }()

	out := []*SegmentScore{}
	for rows.Next() {
		var (
			sc      SegmentScore
			level   string
			details sql.NullString
			created string
		)
		if err := rows.Scan(&sc.ID, &sc.AssetID, &sc.Start, &sc.End, &sc.DeceptionScore,
			&sc.Breakdown.VoiceStress, &sc.Breakdown.VisualBehavior, &sc.Breakdown.ExpressionMeasurement,
			&level, &details, &created); err != nil {
			return nil, fmt.Errorf("failed to scan segment score: %w", err)
		}
		sc.RiskLevel = scoring.RiskLevel(level)
		if details.Valid {
			sc.Details = json.RawMessage(details.String)
		}
		sc.CreatedAt = parseTime(created)
		out = append(out, &sc)
	}
	return out, rows.Err()
}
