package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/partybase-ng/directory-cli/internal/db"
	"github.com/partybase-ng/directory-cli/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool db.Pool
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS records (
	stable_id       TEXT PRIMARY KEY,
	kind            TEXT NOT NULL,
	name            TEXT NOT NULL,
	region          TEXT NOT NULL DEFAULT '',
	confidence      DOUBLE PRECISION NOT NULL,
	approval_status TEXT NOT NULL,
	is_blacklisted  BOOLEAN NOT NULL DEFAULT FALSE,
	effective_date  TIMESTAMPTZ,
	record          JSONB NOT NULL,
	first_seen_at   TIMESTAMPTZ NOT NULL,
	last_seen_at    TIMESTAMPTZ NOT NULL,
	updated_at      TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS record_signals (
	stable_id TEXT NOT NULL REFERENCES records(stable_id) ON DELETE CASCADE,
	signal    TEXT NOT NULL,
	value     TEXT NOT NULL,
	PRIMARY KEY (stable_id, signal, value)
);

CREATE TABLE IF NOT EXISTS matches (
	id          BIGSERIAL PRIMARY KEY,
	stable_id_a TEXT NOT NULL,
	stable_id_b TEXT NOT NULL,
	similarity  DOUBLE PRECISION NOT NULL,
	reason      TEXT NOT NULL DEFAULT '',
	status      TEXT NOT NULL DEFAULT 'pending',
	created_at  TIMESTAMPTZ NOT NULL,
	UNIQUE (stable_id_a, stable_id_b)
);

CREATE TABLE IF NOT EXISTS runs (
	id           TEXT PRIMARY KEY,
	job_id       TEXT,
	triggered_by TEXT NOT NULL,
	slot         TEXT,
	report       JSONB NOT NULL,
	success      BOOLEAN NOT NULL DEFAULT FALSE,
	started_at   TIMESTAMPTZ NOT NULL,
	completed_at TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS jobs (
	id           TEXT PRIMARY KEY,
	payload      JSONB NOT NULL,
	status       TEXT NOT NULL DEFAULT 'queued',
	attempts     INTEGER NOT NULL DEFAULT 0,
	max_attempts INTEGER NOT NULL,
	last_error   TEXT NOT NULL DEFAULT '',
	next_run_at  TIMESTAMPTZ NOT NULL,
	created_at   TIMESTAMPTZ NOT NULL,
	updated_at   TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_records_region ON records(region);
CREATE INDEX IF NOT EXISTS idx_records_kind_effective ON records(kind, effective_date);
CREATE INDEX IF NOT EXISTS idx_records_approval ON records(approval_status);
CREATE INDEX IF NOT EXISTS idx_record_signals_value ON record_signals(signal, value);
CREATE INDEX IF NOT EXISTS idx_matches_status ON matches(status);
CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);
CREATE INDEX IF NOT EXISTS idx_jobs_status_next ON jobs(status, next_run_at);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) FindByStableID(ctx context.Context, stableID string) (*model.CanonicalRecord, error) {
	var recJSON []byte
	err := s.pool.QueryRow(ctx,
		`SELECT record FROM records WHERE stable_id = $1`, stableID,
	).Scan(&recJSON)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: find record %s", stableID)
	}
	var rec model.CanonicalRecord
	if err := json.Unmarshal(recJSON, &rec); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal record")
	}
	return &rec, nil
}

func (s *PostgresStore) Upsert(ctx context.Context, rec *model.CanonicalRecord) (UpsertResult, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: begin upsert")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	var blacklisted bool
	var firstSeen time.Time
	existing := true
	err = tx.QueryRow(ctx,
		`SELECT is_blacklisted, first_seen_at FROM records WHERE stable_id = $1`,
		rec.StableID,
	).Scan(&blacklisted, &firstSeen)
	if errors.Is(err, pgx.ErrNoRows) {
		existing = false
	} else if err != nil {
		return 0, eris.Wrapf(err, "postgres: lookup record %s", rec.StableID)
	}

	if existing && blacklisted {
		return UpsertSuppressed, nil
	}
	if existing && firstSeen.Before(rec.FirstSeenAt) {
		rec.FirstSeenAt = firstSeen
	}

	recJSON, err := json.Marshal(rec)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: marshal record")
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO records
		 (stable_id, kind, name, region, confidence, approval_status, is_blacklisted,
		  effective_date, record, first_seen_at, last_seen_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		 ON CONFLICT (stable_id) DO UPDATE SET
		   kind = EXCLUDED.kind,
		   name = EXCLUDED.name,
		   region = EXCLUDED.region,
		   confidence = EXCLUDED.confidence,
		   approval_status = EXCLUDED.approval_status,
		   is_blacklisted = EXCLUDED.is_blacklisted,
		   effective_date = EXCLUDED.effective_date,
		   record = EXCLUDED.record,
		   first_seen_at = EXCLUDED.first_seen_at,
		   last_seen_at = EXCLUDED.last_seen_at,
		   updated_at = EXCLUDED.updated_at`,
		rec.StableID, string(rec.Kind), rec.Name, rec.Region, rec.Confidence,
		string(rec.ApprovalStatus), rec.IsBlacklisted, effectiveDateArg(rec),
		recJSON, rec.FirstSeenAt.UTC(), rec.LastSeenAt.UTC(), rec.UpdatedAt.UTC(),
	)
	if err != nil {
		return 0, eris.Wrapf(err, "postgres: upsert record %s", rec.StableID)
	}

	if _, err := tx.Exec(ctx,
		`DELETE FROM record_signals WHERE stable_id = $1`, rec.StableID,
	); err != nil {
		return 0, eris.Wrapf(err, "postgres: clear signals %s", rec.StableID)
	}
	for signal, values := range signalValues(rec) {
		for _, v := range values {
			if _, err := tx.Exec(ctx,
				`INSERT INTO record_signals (stable_id, signal, value)
				 VALUES ($1, $2, $3) ON CONFLICT DO NOTHING`,
				rec.StableID, signal, v,
			); err != nil {
				return 0, eris.Wrapf(err, "postgres: insert signal %s", rec.StableID)
			}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, eris.Wrap(err, "postgres: commit upsert")
	}
	if existing {
		return UpsertUpdated, nil
	}
	return UpsertCreated, nil
}

func (s *PostgresStore) Delete(ctx context.Context, stableID string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM records WHERE stable_id = $1`, stableID)
	if err != nil {
		return eris.Wrapf(err, "postgres: delete record %s", stableID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("record not found: %s", stableID)
	}
	return nil
}

func (s *PostgresStore) FindByWeakSignal(ctx context.Context, sig WeakSignal) ([]model.CanonicalRecord, error) {
	ids := make(map[string]bool)

	if sig.Region != "" {
		rows, err := s.pool.Query(ctx,
			`SELECT stable_id FROM records WHERE region = $1 AND is_blacklisted = FALSE`,
			sig.Region,
		)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: weak signal region")
		}
		if err := collectPgxIDs(rows, ids); err != nil {
			return nil, err
		}
	}

	values := append(append(append([]string{}, sig.Phones...), sig.Emails...), sig.Websites...)
	if len(values) > 0 {
		lowered := make([]string, len(values))
		for i, v := range values {
			lowered[i] = strings.ToLower(v)
		}
		rows, err := s.pool.Query(ctx,
			`SELECT DISTINCT stable_id FROM record_signals WHERE value = ANY($1)`,
			lowered,
		)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: weak signal values")
		}
		if err := collectPgxIDs(rows, ids); err != nil {
			return nil, err
		}
	}

	out := make([]model.CanonicalRecord, 0, len(ids))
	for id := range ids {
		rec, err := s.FindByStableID(ctx, id)
		if err != nil {
			return nil, err
		}
		if rec != nil && !rec.IsBlacklisted {
			out = append(out, *rec)
		}
	}
	return out, nil
}

func (s *PostgresStore) DeleteEventsBefore(ctx context.Context, cutoff time.Time) (int, error) {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM records
		 WHERE kind = $1 AND effective_date IS NOT NULL AND effective_date < $2`,
		string(model.KindEvent), cutoff.UTC(),
	)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: delete expired events")
	}
	return int(tag.RowsAffected()), nil
}

func (s *PostgresStore) ListRecords(ctx context.Context, filter RecordFilter) ([]model.CanonicalRecord, error) {
	query := `SELECT record FROM records WHERE is_blacklisted = $1`
	args := []any{filter.Blacklisted}

	if filter.Kind != "" {
		args = append(args, string(filter.Kind))
		query += fmt.Sprintf(` AND kind = $%d`, len(args))
	}
	if filter.Region != "" {
		args = append(args, filter.Region)
		query += fmt.Sprintf(` AND region = $%d`, len(args))
	}
	if filter.ApprovalStatus != "" {
		args = append(args, string(filter.ApprovalStatus))
		query += fmt.Sprintf(` AND approval_status = $%d`, len(args))
	}
	if filter.MinConfidence > 0 {
		args = append(args, filter.MinConfidence)
		query += fmt.Sprintf(` AND confidence >= $%d`, len(args))
	}
	query += ` ORDER BY lower(name)`

	limit := filter.Limit
	if limit <= 0 {
		limit = 1000
	}
	args = append(args, limit)
	query += fmt.Sprintf(` LIMIT $%d`, len(args))
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += fmt.Sprintf(` OFFSET $%d`, len(args))
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list records")
	}
	defer rows.Close()

	var out []model.CanonicalRecord
	for rows.Next() {
		var recJSON []byte
		if err := rows.Scan(&recJSON); err != nil {
			return nil, eris.Wrap(err, "postgres: scan record")
		}
		var rec model.CanonicalRecord
		if err := json.Unmarshal(recJSON, &rec); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal record")
		}
		out = append(out, rec)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list records iterate")
}

func (s *PostgresStore) QueueMatch(ctx context.Context, m model.DuplicateMatch) error {
	a, b := orderPair(m.StableIDA, m.StableIDB)
	created := m.CreatedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO matches (stable_id_a, stable_id_b, similarity, reason, status, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (stable_id_a, stable_id_b) DO NOTHING`,
		a, b, m.Similarity, m.Reason, model.MatchPending, created,
	)
	return eris.Wrap(err, "postgres: queue match")
}

func (s *PostgresStore) PendingMatches(ctx context.Context, limit int) ([]model.DuplicateMatch, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, stable_id_a, stable_id_b, similarity, reason, status, created_at
		 FROM matches WHERE status = $1 ORDER BY similarity DESC LIMIT $2`,
		model.MatchPending, limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: pending matches")
	}
	defer rows.Close()

	var out []model.DuplicateMatch
	for rows.Next() {
		var m model.DuplicateMatch
		if err := rows.Scan(&m.ID, &m.StableIDA, &m.StableIDB, &m.Similarity,
			&m.Reason, &m.Status, &m.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan match")
		}
		out = append(out, m)
	}
	return out, eris.Wrap(rows.Err(), "postgres: pending matches iterate")
}

func (s *PostgresStore) ResolveMatch(ctx context.Context, matchID int64, status string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE matches SET status = $1 WHERE id = $2`, status, matchID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: resolve match %d", matchID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("match not found: %d", matchID)
	}
	return nil
}

func (s *PostgresStore) ResolveMatchPair(ctx context.Context, stableIDA, stableIDB, status string) error {
	a, b := orderPair(stableIDA, stableIDB)
	_, err := s.pool.Exec(ctx,
		`UPDATE matches SET status = $1 WHERE stable_id_a = $2 AND stable_id_b = $3`,
		status, a, b,
	)
	return eris.Wrap(err, "postgres: resolve match pair")
}

func (s *PostgresStore) PendingApprovals(ctx context.Context, limit int) ([]model.CanonicalRecord, error) {
	return s.ListRecords(ctx, RecordFilter{
		ApprovalStatus: model.ApprovalPending,
		Limit:          limit,
	})
}

func (s *PostgresStore) SetApproval(ctx context.Context, stableID string, status model.ApprovalStatus) error {
	rec, err := s.FindByStableID(ctx, stableID)
	if err != nil {
		return err
	}
	if rec == nil {
		return eris.Errorf("record not found: %s", stableID)
	}
	rec.ApprovalStatus = status
	rec.UpdatedAt = time.Now().UTC()
	return s.saveReviewed(ctx, rec)
}

func (s *PostgresStore) SetBlacklisted(ctx context.Context, stableID string) error {
	rec, err := s.FindByStableID(ctx, stableID)
	if err != nil {
		return err
	}
	if rec == nil {
		return eris.Errorf("record not found: %s", stableID)
	}
	rec.IsBlacklisted = true
	rec.ApprovalStatus = model.ApprovalRejected
	rec.UpdatedAt = time.Now().UTC()
	return s.saveReviewed(ctx, rec)
}

func (s *PostgresStore) saveReviewed(ctx context.Context, rec *model.CanonicalRecord) error {
	recJSON, err := json.Marshal(rec)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal record")
	}
	tag, err := s.pool.Exec(ctx,
		`UPDATE records SET approval_status = $1, is_blacklisted = $2, record = $3, updated_at = $4
		 WHERE stable_id = $5`,
		string(rec.ApprovalStatus), rec.IsBlacklisted, recJSON, rec.UpdatedAt, rec.StableID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: save review %s", rec.StableID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("record not found: %s", rec.StableID)
	}
	return nil
}

func (s *PostgresStore) CreateRun(ctx context.Context, run *model.Run) error {
	if run.ID == "" {
		run.ID = uuid.New().String()
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now().UTC()
	}
	reportJSON, err := json.Marshal(run)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal run")
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO runs (id, job_id, triggered_by, slot, report, success, started_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		run.ID, run.JobID, string(run.Trigger), run.Slot, reportJSON,
		run.Success, run.StartedAt.UTC(),
	)
	return eris.Wrapf(err, "postgres: insert run %s", run.ID)
}

func (s *PostgresStore) FinishRun(ctx context.Context, run *model.Run) error {
	if run.CompletedAt == nil {
		now := time.Now().UTC()
		run.CompletedAt = &now
	}
	reportJSON, err := json.Marshal(run)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal run")
	}
	tag, err := s.pool.Exec(ctx,
		`UPDATE runs SET report = $1, success = $2, completed_at = $3 WHERE id = $4`,
		reportJSON, run.Success, run.CompletedAt.UTC(), run.ID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: finish run %s", run.ID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("run not found: %s", run.ID)
	}
	return nil
}

func (s *PostgresStore) GetRun(ctx context.Context, runID string) (*model.Run, error) {
	var reportJSON []byte
	err := s.pool.QueryRow(ctx,
		`SELECT report FROM runs WHERE id = $1`, runID,
	).Scan(&reportJSON)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Errorf("run not found: %s", runID)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get run %s", runID)
	}
	var run model.Run
	if err := json.Unmarshal(reportJSON, &run); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal run")
	}
	return &run, nil
}

func (s *PostgresStore) ListRuns(ctx context.Context, limit int) ([]model.Run, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx,
		`SELECT report FROM runs ORDER BY started_at DESC LIMIT $1`, limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list runs")
	}
	defer rows.Close()

	var out []model.Run
	for rows.Next() {
		var reportJSON []byte
		if err := rows.Scan(&reportJSON); err != nil {
			return nil, eris.Wrap(err, "postgres: scan run")
		}
		var run model.Run
		if err := json.Unmarshal(reportJSON, &run); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal run")
		}
		out = append(out, run)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list runs iterate")
}

func (s *PostgresStore) EnqueueJob(ctx context.Context, job *model.RunJob) error {
	prepareJob(job)
	payload, err := json.Marshal(job)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal job")
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO jobs (id, payload, status, attempts, max_attempts, last_error,
		                   next_run_at, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		job.ID, payload, string(job.Status), job.Attempts, job.MaxAttempts,
		job.LastError, job.NextRunAt.UTC(), job.CreatedAt.UTC(), job.UpdatedAt.UTC(),
	)
	return eris.Wrapf(err, "postgres: enqueue job %s", job.ID)
}

// DequeueJob claims the oldest runnable job. SKIP LOCKED keeps concurrent
// workers from claiming the same row.
func (s *PostgresStore) DequeueJob(ctx context.Context) (*model.RunJob, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: begin dequeue")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	job, err := scanPgxJob(tx.QueryRow(ctx,
		`SELECT id, payload, status, attempts, max_attempts, last_error, next_run_at,
		        created_at, updated_at
		 FROM jobs
		 WHERE status IN ($1, $2) AND next_run_at <= $3
		 ORDER BY next_run_at LIMIT 1
		 FOR UPDATE SKIP LOCKED`,
		string(model.JobQueued), string(model.JobFailed), time.Now().UTC(),
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: dequeue job")
	}

	job.Status = model.JobRunning
	job.Attempts++
	job.UpdatedAt = time.Now().UTC()
	if _, err := tx.Exec(ctx,
		`UPDATE jobs SET status = $1, attempts = $2, updated_at = $3 WHERE id = $4`,
		string(job.Status), job.Attempts, job.UpdatedAt, job.ID,
	); err != nil {
		return nil, eris.Wrapf(err, "postgres: claim job %s", job.ID)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, eris.Wrap(err, "postgres: commit dequeue")
	}
	return job, nil
}

func (s *PostgresStore) GetJob(ctx context.Context, jobID string) (*model.RunJob, error) {
	job, err := scanPgxJob(s.pool.QueryRow(ctx,
		`SELECT id, payload, status, attempts, max_attempts, last_error, next_run_at,
		        created_at, updated_at
		 FROM jobs WHERE id = $1`, jobID,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Errorf("job not found: %s", jobID)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get job %s", jobID)
	}
	return job, nil
}

func (s *PostgresStore) CompleteJob(ctx context.Context, jobID string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE jobs SET status = $1, last_error = '', updated_at = $2 WHERE id = $3`,
		string(model.JobCompleted), time.Now().UTC(), jobID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: complete job %s", jobID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("job not found: %s", jobID)
	}
	return nil
}

func (s *PostgresStore) FailJob(ctx context.Context, jobID string, lastError string, retryAt time.Time) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE jobs SET
		   status = CASE WHEN attempts >= max_attempts THEN $1 ELSE $2 END,
		   last_error = $3, next_run_at = $4, updated_at = $5
		 WHERE id = $6`,
		string(model.JobDead), string(model.JobFailed),
		lastError, retryAt.UTC(), time.Now().UTC(), jobID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: fail job %s", jobID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("job not found: %s", jobID)
	}
	return nil
}

func scanPgxJob(row pgx.Row) (*model.RunJob, error) {
	var payload []byte
	var status, lastError string
	var job model.RunJob
	err := row.Scan(&job.ID, &payload, &status, &job.Attempts, &job.MaxAttempts,
		&lastError, &job.NextRunAt, &job.CreatedAt, &job.UpdatedAt)
	if err != nil {
		return nil, err
	}
	var decoded model.RunJob
	if err := json.Unmarshal(payload, &decoded); err != nil {
		return nil, eris.Wrap(err, "unmarshal job")
	}
	decoded.ID = job.ID
	decoded.Status = model.JobStatus(status)
	decoded.Attempts = job.Attempts
	decoded.MaxAttempts = job.MaxAttempts
	decoded.LastError = lastError
	decoded.NextRunAt = job.NextRunAt
	decoded.CreatedAt = job.CreatedAt
	decoded.UpdatedAt = job.UpdatedAt
	return &decoded, nil
}

func collectPgxIDs(rows pgx.Rows, ids map[string]bool) error {
	defer rows.Close()
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return eris.Wrap(err, "scan stable id")
		}
		ids[id] = true
	}
	return eris.Wrap(rows.Err(), "iterate stable ids")
}
