package store

// Both dialects keep timestamps in a column that round-trips RFC 3339 text
// and JSON payloads in a column that scans into a string.

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS claims (
		id TEXT PRIMARY KEY,
		claim_number TEXT NOT NULL DEFAULT '',
		incident_date TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS documents (
		id TEXT PRIMARY KEY,
		claim_id TEXT NOT NULL,
		doc_type TEXT NOT NULL,
		status TEXT NOT NULL,
		fields JSONB,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS documents_claim_idx ON documents (claim_id, created_at)`,
	`CREATE TABLE IF NOT EXISTS trinity_reports (
		seq BIGSERIAL PRIMARY KEY,
		id TEXT NOT NULL UNIQUE,
		claim_id TEXT NOT NULL,
		status TEXT NOT NULL,
		total_score INTEGER NOT NULL,
		coverage DOUBLE PRECISION NOT NULL,
		digest TEXT NOT NULL DEFAULT '',
		body JSONB NOT NULL,
		created_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS trinity_reports_claim_idx ON trinity_reports (claim_id, seq DESC)`,
	`CREATE TABLE IF NOT EXISTS assets (
		id TEXT PRIMARY KEY,
		claim_id TEXT NOT NULL,
		session_id TEXT NOT NULL DEFAULT '',
		object_key TEXT NOT NULL,
		duration_s DOUBLE PRECISION NOT NULL DEFAULT 0,
		status TEXT NOT NULL,
		processed_until DOUBLE PRECISION NOT NULL DEFAULT 0,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS segment_scores (
		id TEXT PRIMARY KEY,
		asset_id TEXT NOT NULL,
		start_s DOUBLE PRECISION NOT NULL,
		end_s DOUBLE PRECISION NOT NULL,
		deception_score DOUBLE PRECISION NOT NULL,
		voice_stress DOUBLE PRECISION NOT NULL,
		visual_behavior DOUBLE PRECISION NOT NULL,
		expression_measurement DOUBLE PRECISION NOT NULL,
		risk_level TEXT NOT NULL,
		details JSONB,
		created_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS segment_scores_asset_idx ON segment_scores (asset_id, start_s)`,
}

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS claims (
		id TEXT PRIMARY KEY,
		claim_number TEXT NOT NULL DEFAULT '',
		incident_date TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS documents (
		id TEXT PRIMARY KEY,
		claim_id TEXT NOT NULL,
		doc_type TEXT NOT NULL,
		status TEXT NOT NULL,
		fields TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS documents_claim_idx ON documents (claim_id, created_at)`,
	`CREATE TABLE IF NOT EXISTS trinity_reports (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL UNIQUE,
		claim_id TEXT NOT NULL,
		status TEXT NOT NULL,
		total_score INTEGER NOT NULL,
		coverage REAL NOT NULL,
		digest TEXT NOT NULL DEFAULT '',
		body TEXT NOT NULL,
		created_at TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS trinity_reports_claim_idx ON trinity_reports (claim_id, seq DESC)`,
	`CREATE TABLE IF NOT EXISTS assets (
		id TEXT PRIMARY KEY,
		claim_id TEXT NOT NULL,
		session_id TEXT NOT NULL DEFAULT '',
		object_key TEXT NOT NULL,
		duration_s REAL NOT NULL DEFAULT 0,
		status TEXT NOT NULL,
		processed_until REAL NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS segment_scores (
		id TEXT PRIMARY KEY,
		asset_id TEXT NOT NULL,
		start_s REAL NOT NULL,
		end_s REAL NOT NULL,
		deception_score REAL NOT NULL,
		voice_stress REAL NOT NULL,
		visual_behavior REAL NOT NULL,
		expression_measurement REAL NOT NULL,
		risk_level TEXT NOT NULL,
		details TEXT,
		created_at TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS segment_scores_asset_idx ON segment_scores (asset_id, start_s)`,
}
