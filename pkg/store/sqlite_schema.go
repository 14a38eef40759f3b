package store

// SchemaVersion is the current database schema version.
const SchemaVersion = 1

// Schema contains the SQL statements to create the scoping database schema.
const Schema = `
-- Commitments (read-only to the engine after ingestion)
CREATE TABLE IF NOT EXISTS commitments (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL UNIQUE,
    description TEXT,
    domain TEXT,
    full_text TEXT NOT NULL,
    embedding TEXT,
    created_at TIMESTAMP NOT NULL
);

-- Policy chunks, one commitment owns many
CREATE TABLE IF NOT EXISTS policy_chunks (
    id TEXT PRIMARY KEY,
    commitment_id TEXT NOT NULL REFERENCES commitments(id),
    chunk_text TEXT NOT NULL,
    embedding TEXT NOT NULL,
    chunk_index INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_chunks_commitment
    ON policy_chunks(commitment_id, chunk_index);

-- Scoping decisions, write-once per session
CREATE TABLE IF NOT EXISTS decisions (
    id TEXT PRIMARY KEY,
    session_id TEXT NOT NULL UNIQUE,
    asset_uri TEXT NOT NULL,
    commitment_id TEXT NOT NULL,
    commitment_name TEXT NOT NULL,
    outcome TEXT NOT NULL,
    confidence_score REAL NOT NULL,
    confidence_band TEXT NOT NULL,
    reasoning TEXT NOT NULL,
    evidence TEXT NOT NULL,
    missing_information TEXT,
    clarifying_questions TEXT,
    query_embedding TEXT NOT NULL,
    created_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_decisions_commitment
    ON decisions(commitment_id, created_at);

-- Human feedback, append-only, linked to exactly one decision
CREATE TABLE IF NOT EXISTS feedback (
    id TEXT PRIMARY KEY,
    decision_id TEXT NOT NULL REFERENCES decisions(id),
    commitment_id TEXT NOT NULL,
    asset_uri TEXT NOT NULL,
    outcome TEXT NOT NULL,
    rating TEXT NOT NULL,
    reason TEXT NOT NULL,
    correction TEXT,
    query_embedding TEXT NOT NULL,
    created_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_feedback_decision ON feedback(decision_id);
CREATE INDEX IF NOT EXISTS idx_feedback_commitment
    ON feedback(commitment_id, created_at);

-- Workflow checkpoints, append-only per session
CREATE TABLE IF NOT EXISTS checkpoints (
    session_id TEXT NOT NULL,
    stage TEXT NOT NULL,
    seq INTEGER NOT NULL,
    state TEXT NOT NULL,
    created_at TIMESTAMP NOT NULL,
    PRIMARY KEY (session_id, seq)
);

-- Schema version tracking
CREATE TABLE IF NOT EXISTS schema_version (
    version INTEGER PRIMARY KEY,
    applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);
`

// InsertSchemaVersion records the schema version if not already present.
const InsertSchemaVersion = `
INSERT OR IGNORE INTO schema_version (version) VALUES (?);
`

// GetSchemaVersion retrieves the highest applied schema version.
const GetSchemaVersion = `
SELECT MAX(version) FROM schema_version;
`
