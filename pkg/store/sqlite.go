package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/mattn/go-sqlite3"

	"scopehq/meridian/pkg/scoping"
)

// SQLiteConfig contains configuration for the SQLite storage backend.
type SQLiteConfig struct {
	// Path is the database file path.
	Path string `yaml:"path"`

	// MaxOpenConns is the maximum number of open connections.
	// Default: 10
	MaxOpenConns int `yaml:"max_open_conns"`

	// MaxIdleConns is the maximum number of idle connections.
	// Default: 5
	MaxIdleConns int `yaml:"max_idle_conns"`

	// WALMode enables Write-Ahead Logging for better concurrency.
	// Default: true
	WALMode bool `yaml:"wal_mode"`

	// BusyTimeout is the duration to wait when the database is locked.
	// Default: 5 seconds
	BusyTimeout time.Duration `yaml:"busy_timeout"`
}

// DefaultSQLiteConfig returns the default SQLite configuration.
func DefaultSQLiteConfig() *SQLiteConfig {
	return &SQLiteConfig{
		Path:         "data/meridian.db",
		MaxOpenConns: 10,
		MaxIdleConns: 5,
		WALMode:      true,
		BusyTimeout:  5 * time.Second,
	}
}

// SQLiteStore implements the Store interface using SQLite.
type SQLiteStore struct {
	db     *sql.DB
	config *SQLiteConfig
	logger *slog.Logger
}

// NewSQLiteStore creates a new SQLite storage backend. It initializes the
// schema and enables WAL mode if configured.
func NewSQLiteStore(config *SQLiteConfig) (*SQLiteStore, error) {
	if config == nil {
		config = DefaultSQLiteConfig()
	}

	logger := slog.Default().With("component", "store.sqlite")

	if dir := filepath.Dir(config.Path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, NewStorageError("sqlite", "mkdir", err)
		}
	}

	db, err := sql.Open("sqlite3", config.Path)
	if err != nil {
		return nil, NewStorageError("sqlite", "open", err)
	}

	db.SetMaxOpenConns(config.MaxOpenConns)
	db.SetMaxIdleConns(config.MaxIdleConns)

	s := &SQLiteStore{
		db:     db,
		config: config,
		logger: logger,
	}

	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}

	logger.Info("SQLite store initialized",
		"path", config.Path,
		"wal_mode", config.WALMode,
		"max_open_conns", config.MaxOpenConns,
	)

	return s, nil
}

// initialize sets up the database schema and enables WAL mode.
func (s *SQLiteStore) initialize() error {
	if s.config.WALMode {
		if _, err := s.db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
			return NewStorageError("sqlite", "enable_wal", err)
		}
	}

	busyTimeoutMs := s.config.BusyTimeout.Milliseconds()
	if _, err := s.db.Exec(fmt.Sprintf("PRAGMA busy_timeout=%d;", busyTimeoutMs)); err != nil {
		return NewStorageError("sqlite", "set_busy_timeout", err)
	}

	if _, err := s.db.Exec(Schema); err != nil {
		return NewStorageError("sqlite", "create_schema", err)
	}

	if _, err := s.db.Exec(InsertSchemaVersion, SchemaVersion); err != nil {
		return NewStorageError("sqlite", "insert_schema_version", err)
	}

	var version int
	err := s.db.QueryRow(GetSchemaVersion).Scan(&version)
	if err != nil && err != sql.ErrNoRows {
		return NewStorageError("sqlite", "get_schema_version", err)
	}
	if version != SchemaVersion {
		return NewStorageError("sqlite", "schema_version_mismatch",
			fmt.Errorf("expected schema version %d, got %d", SchemaVersion, version))
	}

	return nil
}

// PutCommitment inserts or replaces a commitment.
func (s *SQLiteStore) PutCommitment(ctx context.Context, c *scoping.Commitment) error {
	embedding, err := json.Marshal(c.Embedding)
	if err != nil {
		return NewStorageError("sqlite", "marshal_embedding", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO commitments (id, name, description, domain, full_text, embedding, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			description = excluded.description,
			domain = excluded.domain,
			full_text = excluded.full_text,
			embedding = excluded.embedding
	`, c.ID, c.Name, c.Description, c.Domain, c.FullText, string(embedding), c.CreatedAt)
	if err != nil {
		return NewStorageError("sqlite", "put_commitment", err)
	}
	return nil
}

// GetCommitment retrieves a commitment by ID.
func (s *SQLiteStore) GetCommitment(ctx context.Context, id string) (*scoping.Commitment, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, description, domain, full_text, embedding, created_at
		FROM commitments WHERE id = ?
	`, id)
	return scanCommitment(row)
}

// GetCommitmentByName retrieves a commitment by its unique name.
func (s *SQLiteStore) GetCommitmentByName(ctx context.Context, name string) (*scoping.Commitment, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, description, domain, full_text, embedding, created_at
		FROM commitments WHERE name = ?
	`, name)
	return scanCommitment(row)
}

// ListCommitments returns all commitments ordered by name.
func (s *SQLiteStore) ListCommitments(ctx context.Context) ([]*scoping.Commitment, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, description, domain, full_text, embedding, created_at
		FROM commitments ORDER BY name
	`)
	if err != nil {
		return nil, NewStorageError("sqlite", "list_commitments", err)
	}
	defer rows.Close()

	var out []*scoping.Commitment
	for rows.Next() {
		var c scoping.Commitment
		var description, domain, embedding sql.NullString
		if err := rows.Scan(&c.ID, &c.Name, &description, &domain, &c.FullText, &embedding, &c.CreatedAt); err != nil {
			return nil, NewStorageError("sqlite", "scan_commitment", err)
		}
		c.Description = description.String
		c.Domain = domain.String
		if embedding.String != "" {
			if err := json.Unmarshal([]byte(embedding.String), &c.Embedding); err != nil {
				return nil, NewStorageError("sqlite", "unmarshal_embedding", err)
			}
		}
		out = append(out, &c)
	}
	if err := rows.Err(); err != nil {
		return nil, NewStorageError("sqlite", "list_commitments", err)
	}
	return out, nil
}

func scanCommitment(row *sql.Row) (*scoping.Commitment, error) {
	var c scoping.Commitment
	var description, domain, embedding sql.NullString
	err := row.Scan(&c.ID, &c.Name, &description, &domain, &c.FullText, &embedding, &c.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, NewStorageError("sqlite", "scan_commitment", err)
	}
	c.Description = description.String
	c.Domain = domain.String
	if embedding.String != "" {
		if err := json.Unmarshal([]byte(embedding.String), &c.Embedding); err != nil {
			return nil, NewStorageError("sqlite", "unmarshal_embedding", err)
		}
	}
	return &c, nil
}

// ReplaceChunks atomically swaps a commitment's chunk set.
func (s *SQLiteStore) ReplaceChunks(ctx context.Context, commitmentID string, chunks []*scoping.PolicyChunk) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return NewStorageError("sqlite", "replace_chunks", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM policy_chunks WHERE commitment_id = ?`, commitmentID); err != nil {
		return NewStorageError("sqlite", "replace_chunks", err)
	}

	for _, chunk := range chunks {
		embedding, err := json.Marshal(chunk.Embedding)
		if err != nil {
			return NewStorageError("sqlite", "marshal_embedding", err)
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO policy_chunks (id, commitment_id, chunk_text, embedding, chunk_index)
			VALUES (?, ?, ?, ?, ?)
		`, chunk.ID, commitmentID, chunk.Text, string(embedding), chunk.ChunkIndex)
		if err != nil {
			return NewStorageError("sqlite", "insert_chunk", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return NewStorageError("sqlite", "replace_chunks", err)
	}
	return nil
}

// GetChunks returns a commitment's chunks ordered by chunk index.
func (s *SQLiteStore) GetChunks(ctx context.Context, commitmentID string) ([]*scoping.PolicyChunk, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, commitment_id, chunk_text, embedding, chunk_index
		FROM policy_chunks WHERE commitment_id = ? ORDER BY chunk_index
	`, commitmentID)
	if err != nil {
		return nil, NewStorageError("sqlite", "get_chunks", err)
	}
	defer rows.Close()

	var out []*scoping.PolicyChunk
	for rows.Next() {
		var chunk scoping.PolicyChunk
		var embedding string
		if err := rows.Scan(&chunk.ID, &chunk.CommitmentID, &chunk.Text, &embedding, &chunk.ChunkIndex); err != nil {
			return nil, NewStorageError("sqlite", "scan_chunk", err)
		}
		if err := json.Unmarshal([]byte(embedding), &chunk.Embedding); err != nil {
			return nil, NewStorageError("sqlite", "unmarshal_embedding", err)
		}
		out = append(out, &chunk)
	}
	if err := rows.Err(); err != nil {
		return nil, NewStorageError("sqlite", "get_chunks", err)
	}
	return out, nil
}

// PutDecision persists a decision. The session_id UNIQUE constraint makes
// this write-once per session: a second write for the same session fails
// with ErrDecisionExists, which PersistDecision relies on for idempotency.
// The constraint decides, not a prior read, so concurrent writers race
// safely.
func (s *SQLiteStore) PutDecision(ctx context.Context, d *scoping.Decision) error {
	evidence, err := json.Marshal(d.Evidence)
	if err != nil {
		return NewStorageError("sqlite", "marshal_evidence", err)
	}
	missing, _ := json.Marshal(d.MissingInformation)
	questions, _ := json.Marshal(d.ClarifyingQuestions)
	embedding, err := json.Marshal(d.QueryEmbedding)
	if err != nil {
		return NewStorageError("sqlite", "marshal_embedding", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO decisions (
			id, session_id, asset_uri, commitment_id, commitment_name,
			outcome, confidence_score, confidence_band, reasoning, evidence,
			missing_information, clarifying_questions, query_embedding, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		d.ID, d.SessionID, d.AssetURI, d.CommitmentID, d.CommitmentName,
		string(d.Outcome), d.ConfidenceScore, string(d.ConfidenceBand), d.Reasoning, string(evidence),
		string(missing), string(questions), string(embedding), d.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDecisionExists
		}
		return NewStorageError("sqlite", "put_decision", err)
	}
	return nil
}

// isUniqueViolation reports whether err is a SQLite UNIQUE constraint
// failure, such as a duplicate decision session_id.
func isUniqueViolation(err error) bool {
	var serr sqlite3.Error
	return errors.As(err, &serr) && serr.ExtendedCode == sqlite3.ErrConstraintUnique
}

// GetDecision retrieves a decision by ID.
func (s *SQLiteStore) GetDecision(ctx context.Context, id string) (*scoping.Decision, error) {
	row := s.db.QueryRowContext(ctx, decisionSelect+` WHERE id = ?`, id)
	return scanDecisionRow(row)
}

// GetDecisionBySession retrieves the decision persisted for a session.
func (s *SQLiteStore) GetDecisionBySession(ctx context.Context, sessionID string) (*scoping.Decision, error) {
	row := s.db.QueryRowContext(ctx, decisionSelect+` WHERE session_id = ?`, sessionID)
	return scanDecisionRow(row)
}

// ListDecisions returns decisions newest first, optionally filtered by
// commitment.
func (s *SQLiteStore) ListDecisions(ctx context.Context, commitmentID string, limit int) ([]*scoping.Decision, error) {
	if limit <= 0 {
		limit = -1 // SQLite treats a negative LIMIT as unlimited
	}

	query := decisionSelect
	args := []interface{}{}
	if commitmentID != "" {
		query += ` WHERE commitment_id = ?`
		args = append(args, commitmentID)
	}
	query += ` ORDER BY created_at DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, NewStorageError("sqlite", "list_decisions", err)
	}
	defer rows.Close()

	var out []*scoping.Decision
	for rows.Next() {
		d, err := scanDecision(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, NewStorageError("sqlite", "list_decisions", err)
	}
	return out, nil
}

const decisionSelect = `
	SELECT id, session_id, asset_uri, commitment_id, commitment_name,
	       outcome, confidence_score, confidence_band, reasoning, evidence,
	       missing_information, clarifying_questions, query_embedding, created_at
	FROM decisions`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanDecisionRow(row *sql.Row) (*scoping.Decision, error) {
	d, err := scanDecision(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return d, nil
}

func scanDecision(row rowScanner) (*scoping.Decision, error) {
	var d scoping.Decision
	var outcome, band, evidence, missing, questions, embedding string
	err := row.Scan(
		&d.ID, &d.SessionID, &d.AssetURI, &d.CommitmentID, &d.CommitmentName,
		&outcome, &d.ConfidenceScore, &band, &d.Reasoning, &evidence,
		&missing, &questions, &embedding, &d.CreatedAt,
	)
	if err != nil {
		return nil, NewStorageError("sqlite", "scan_decision", err)
	}

	d.Outcome = scoping.Outcome(outcome)
	d.ConfidenceBand = scoping.Band(band)
	if err := json.Unmarshal([]byte(evidence), &d.Evidence); err != nil {
		return nil, NewStorageError("sqlite", "unmarshal_evidence", err)
	}
	if missing != "" {
		json.Unmarshal([]byte(missing), &d.MissingInformation)
	}
	if questions != "" {
		json.Unmarshal([]byte(questions), &d.ClarifyingQuestions)
	}
	if err := json.Unmarshal([]byte(embedding), &d.QueryEmbedding); err != nil {
		return nil, NewStorageError("sqlite", "unmarshal_embedding", err)
	}
	return &d, nil
}

// PutFeedback appends a feedback record.
func (s *SQLiteStore) PutFeedback(ctx context.Context, f *scoping.Feedback) error {
	embedding, err := json.Marshal(f.QueryEmbedding)
	if err != nil {
		return NewStorageError("sqlite", "marshal_embedding", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO feedback (
			id, decision_id, commitment_id, asset_uri, outcome,
			rating, reason, correction, query_embedding, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		f.ID, f.DecisionID, f.CommitmentID, f.AssetURI, string(f.Outcome),
		string(f.Rating), f.Reason, f.Correction, string(embedding), f.CreatedAt,
	)
	if err != nil {
		return NewStorageError("sqlite", "put_feedback", err)
	}
	return nil
}

// GetFeedback returns one feedback record by id.
func (s *SQLiteStore) GetFeedback(ctx context.Context, id string) (*scoping.Feedback, error) {
	out, err := s.queryFeedback(ctx, `
		SELECT id, decision_id, commitment_id, asset_uri, outcome,
		       rating, reason, correction, query_embedding, created_at
		FROM feedback WHERE id = ?
	`, id)
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, ErrNotFound
	}
	return out[0], nil
}

// GetFeedbackByDecision returns all feedback for one decision, oldest first.
func (s *SQLiteStore) GetFeedbackByDecision(ctx context.Context, decisionID string) ([]*scoping.Feedback, error) {
	return s.queryFeedback(ctx, `
		SELECT id, decision_id, commitment_id, asset_uri, outcome,
		       rating, reason, correction, query_embedding, created_at
		FROM feedback WHERE decision_id = ? ORDER BY created_at
	`, decisionID)
}

// ListFeedback returns feedback newest first, optionally filtered by
// commitment.
func (s *SQLiteStore) ListFeedback(ctx context.Context, commitmentID string, limit int) ([]*scoping.Feedback, error) {
	if limit <= 0 {
		limit = -1 // SQLite treats a negative LIMIT as unlimited
	}
	if commitmentID != "" {
		return s.queryFeedback(ctx, `
			SELECT id, decision_id, commitment_id, asset_uri, outcome,
			       rating, reason, correction, query_embedding, created_at
			FROM feedback WHERE commitment_id = ?
			ORDER BY created_at DESC LIMIT ?
		`, commitmentID, limit)
	}
	return s.queryFeedback(ctx, `
		SELECT id, decision_id, commitment_id, asset_uri, outcome,
		       rating, reason, correction, query_embedding, created_at
		FROM feedback ORDER BY created_at DESC LIMIT ?
	`, limit)
}

func (s *SQLiteStore) queryFeedback(ctx context.Context, query string, args ...interface{}) ([]*scoping.Feedback, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, NewStorageError("sqlite", "query_feedback", err)
	}
	defer rows.Close()

	var out []*scoping.Feedback
	for rows.Next() {
		var f scoping.Feedback
		var outcome, rating, embedding string
		var correction sql.NullString
		err := rows.Scan(&f.ID, &f.DecisionID, &f.CommitmentID, &f.AssetURI, &outcome,
			&rating, &f.Reason, &correction, &embedding, &f.CreatedAt)
		if err != nil {
			return nil, NewStorageError("sqlite", "scan_feedback", err)
		}
		f.Outcome = scoping.Outcome(outcome)
		f.Rating = scoping.Rating(rating)
		f.Correction = correction.String
		if err := json.Unmarshal([]byte(embedding), &f.QueryEmbedding); err != nil {
			return nil, NewStorageError("sqlite", "unmarshal_embedding", err)
		}
		out = append(out, &f)
	}
	if err := rows.Err(); err != nil {
		return nil, NewStorageError("sqlite", "query_feedback", err)
	}
	return out, nil
}

// AppendCheckpoint appends a checkpoint, enforcing that the sequence number
// extends the session's log by exactly one.
func (s *SQLiteStore) AppendCheckpoint(ctx context.Context, cp *Checkpoint) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return NewStorageError("sqlite", "append_checkpoint", err)
	}
	defer tx.Rollback()

	var maxSeq sql.NullInt64
	err = tx.QueryRowContext(ctx,
		`SELECT MAX(seq) FROM checkpoints WHERE session_id = ?`, cp.SessionID,
	).Scan(&maxSeq)
	if err != nil {
		return NewStorageError("sqlite", "append_checkpoint", err)
	}

	expected := int64(1)
	if maxSeq.Valid {
		expected = maxSeq.Int64 + 1
	}
	if cp.Seq != expected {
		return fmt.Errorf("%w: session %s expected seq %d, got %d",
			ErrSequenceConflict, cp.SessionID, expected, cp.Seq)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO checkpoints (session_id, stage, seq, state, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, cp.SessionID, cp.Stage, cp.Seq, string(cp.State), cp.CreatedAt)
	if err != nil {
		return NewStorageError("sqlite", "append_checkpoint", err)
	}

	if err := tx.Commit(); err != nil {
		return NewStorageError("sqlite", "append_checkpoint", err)
	}
	return nil
}

// ListCheckpoints returns a session's checkpoints ordered by sequence.
func (s *SQLiteStore) ListCheckpoints(ctx context.Context, sessionID string) ([]*Checkpoint, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT session_id, stage, seq, state, created_at
		FROM checkpoints WHERE session_id = ? ORDER BY seq
	`, sessionID)
	if err != nil {
		return nil, NewStorageError("sqlite", "list_checkpoints", err)
	}
	defer rows.Close()

	var out []*Checkpoint
	for rows.Next() {
		var cp Checkpoint
		var state string
		if err := rows.Scan(&cp.SessionID, &cp.Stage, &cp.Seq, &state, &cp.CreatedAt); err != nil {
			return nil, NewStorageError("sqlite", "scan_checkpoint", err)
		}
		cp.State = json.RawMessage(state)
		out = append(out, &cp)
	}
	if err := rows.Err(); err != nil {
		return nil, NewStorageError("sqlite", "list_checkpoints", err)
	}
	return out, nil
}

// DeleteCheckpointsBefore removes checkpoints created before the cutoff.
// Used by retention; decisions themselves are never pruned.
func (s *SQLiteStore) DeleteCheckpointsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM checkpoints WHERE created_at < ?`, cutoff)
	if err != nil {
		return 0, NewStorageError("sqlite", "delete_checkpoints", err)
	}
	count, err := result.RowsAffected()
	if err != nil {
		return 0, NewStorageError("sqlite", "delete_checkpoints", err)
	}
	return count, nil
}

// Close releases the database connection.
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return NewStorageError("sqlite", "close", err)
	}
	s.logger.Info("SQLite store closed")
	return nil
}
