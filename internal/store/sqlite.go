package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/partybase-ng/directory-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS records (
	stable_id       TEXT PRIMARY KEY,
	kind            TEXT NOT NULL,
	name            TEXT NOT NULL,
	region          TEXT NOT NULL DEFAULT '',
	confidence      REAL NOT NULL,
	approval_status TEXT NOT NULL,
	is_blacklisted  INTEGER NOT NULL DEFAULT 0,
	effective_date  DATETIME,
	record          TEXT NOT NULL,
	first_seen_at   DATETIME NOT NULL,
	last_seen_at    DATETIME NOT NULL,
	updated_at      DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS record_signals (
	stable_id TEXT NOT NULL REFERENCES records(stable_id) ON DELETE CASCADE,
	signal    TEXT NOT NULL,
	value     TEXT NOT NULL,
	PRIMARY KEY (stable_id, signal, value)
);

CREATE TABLE IF NOT EXISTS matches (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	stable_id_a TEXT NOT NULL,
	stable_id_b TEXT NOT NULL,
	similarity  REAL NOT NULL,
	reason      TEXT NOT NULL DEFAULT '',
	status      TEXT NOT NULL DEFAULT 'pending',
	created_at  DATETIME NOT NULL,
	UNIQUE (stable_id_a, stable_id_b)
);

CREATE TABLE IF NOT EXISTS runs (
	id           TEXT PRIMARY KEY,
	job_id       TEXT,
	triggered_by TEXT NOT NULL,
	slot         TEXT,
	report       TEXT NOT NULL,
	success      INTEGER NOT NULL DEFAULT 0,
	started_at   DATETIME NOT NULL,
	completed_at DATETIME
);

CREATE TABLE IF NOT EXISTS jobs (
	id           TEXT PRIMARY KEY,
	payload      TEXT NOT NULL,
	status       TEXT NOT NULL DEFAULT 'queued',
	attempts     INTEGER NOT NULL DEFAULT 0,
	max_attempts INTEGER NOT NULL,
	last_error   TEXT NOT NULL DEFAULT '',
	next_run_at  DATETIME NOT NULL,
	created_at   DATETIME NOT NULL,
	updated_at   DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_records_region ON records(region);
CREATE INDEX IF NOT EXISTS idx_records_kind_effective ON records(kind, effective_date);
CREATE INDEX IF NOT EXISTS idx_records_approval ON records(approval_status);
CREATE INDEX IF NOT EXISTS idx_record_signals_value ON record_signals(signal, value);
CREATE INDEX IF NOT EXISTS idx_matches_status ON matches(status);
CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);
CREATE INDEX IF NOT EXISTS idx_jobs_status_next ON jobs(status, next_run_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) FindByStableID(ctx context.Context, stableID string) (*model.CanonicalRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT record FROM records WHERE stable_id = ?`, stableID,
	)
	rec, err := scanRecord(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: find record %s", stableID)
	}
	return rec, nil
}

func (s *SQLiteStore) Upsert(ctx context.Context, rec *model.CanonicalRecord) (UpsertResult, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: begin upsert")
	}
	defer tx.Rollback() //nolint:errcheck

	var blacklisted bool
	var firstSeen time.Time
	existing := true
	err = tx.QueryRowContext(ctx,
		`SELECT is_blacklisted, first_seen_at FROM records WHERE stable_id = ?`,
		rec.StableID,
	).Scan(&blacklisted, &firstSeen)
	if err == sql.ErrNoRows {
		existing = false
	} else if err != nil {
		return 0, eris.Wrapf(err, "sqlite: lookup record %s", rec.StableID)
	}

	if existing && blacklisted {
		return UpsertSuppressed, nil
	}
	if existing && firstSeen.Before(rec.FirstSeenAt) {
		rec.FirstSeenAt = firstSeen
	}

	recJSON, err := json.Marshal(rec)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: marshal record")
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO records
		 (stable_id, kind, name, region, confidence, approval_status, is_blacklisted,
		  effective_date, record, first_seen_at, last_seen_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (stable_id) DO UPDATE SET
		   kind = excluded.kind,
		   name = excluded.name,
		   region = excluded.region,
		   confidence = excluded.confidence,
		   approval_status = excluded.approval_status,
		   is_blacklisted = excluded.is_blacklisted,
		   effective_date = excluded.effective_date,
		   record = excluded.record,
		   first_seen_at = excluded.first_seen_at,
		   last_seen_at = excluded.last_seen_at,
		   updated_at = excluded.updated_at`,
		rec.StableID, string(rec.Kind), rec.Name, rec.Region, rec.Confidence,
		string(rec.ApprovalStatus), rec.IsBlacklisted, effectiveDateArg(rec),
		string(recJSON), rec.FirstSeenAt.UTC(), rec.LastSeenAt.UTC(), rec.UpdatedAt.UTC(),
	)
	if err != nil {
		return 0, eris.Wrapf(err, "sqlite: upsert record %s", rec.StableID)
	}

	if err := s.replaceSignals(ctx, tx, rec); err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "sqlite: commit upsert")
	}
	if existing {
		return UpsertUpdated, nil
	}
	return UpsertCreated, nil
}

// replaceSignals rewrites the weak-signal index rows for one record.
func (s *SQLiteStore) replaceSignals(ctx context.Context, tx *sql.Tx, rec *model.CanonicalRecord) error {
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM record_signals WHERE stable_id = ?`, rec.StableID,
	); err != nil {
		return eris.Wrapf(err, "sqlite: clear signals %s", rec.StableID)
	}
	for signal, values := range signalValues(rec) {
		for _, v := range values {
			if _, err := tx.ExecContext(ctx,
				`INSERT OR IGNORE INTO record_signals (stable_id, signal, value) VALUES (?, ?, ?)`,
				rec.StableID, signal, v,
			); err != nil {
				return eris.Wrapf(err, "sqlite: insert signal %s", rec.StableID)
			}
		}
	}
	return nil
}

func (s *SQLiteStore) Delete(ctx context.Context, stableID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM records WHERE stable_id = ?`, stableID)
	if err != nil {
		return eris.Wrapf(err, "sqlite: delete record %s", stableID)
	}
	return checkRowsAffected(res, "record", stableID)
}

func (s *SQLiteStore) FindByWeakSignal(ctx context.Context, sig WeakSignal) ([]model.CanonicalRecord, error) {
	ids := make(map[string]bool)

	if sig.Region != "" {
		rows, err := s.db.QueryContext(ctx,
			`SELECT stable_id FROM records WHERE region = ? AND is_blacklisted = 0`,
			sig.Region,
		)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: weak signal region")
		}
		if err := collectIDs(rows, ids); err != nil {
			return nil, err
		}
	}

	values := append(append(append([]string{}, sig.Phones...), sig.Emails...), sig.Websites...)
	if len(values) > 0 {
		query := `SELECT DISTINCT stable_id FROM record_signals WHERE value IN (` +
			placeholders(len(values)) + `)`
		rows, err := s.db.QueryContext(ctx, query, toAnySlice(values)...)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: weak signal values")
		}
		if err := collectIDs(rows, ids); err != nil {
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

func (s *SQLiteStore) DeleteEventsBefore(ctx context.Context, cutoff time.Time) (int, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM records
		 WHERE kind = ? AND effective_date IS NOT NULL AND effective_date < ?`,
		string(model.KindEvent), cutoff.UTC(),
	)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: delete expired events")
	}
	n, err := res.RowsAffected()
	return int(n), eris.Wrap(err, "sqlite: rows affected")
}

func (s *SQLiteStore) ListRecords(ctx context.Context, filter RecordFilter) ([]model.CanonicalRecord, error) {
	query := `SELECT record FROM records WHERE is_blacklisted = ?`
	args := []any{filter.Blacklisted}

	if filter.Kind != "" {
		query += ` AND kind = ?`
		args = append(args, string(filter.Kind))
	}
	if filter.Region != "" {
		query += ` AND region = ?`
		args = append(args, filter.Region)
	}
	if filter.ApprovalStatus != "" {
		query += ` AND approval_status = ?`
		args = append(args, string(filter.ApprovalStatus))
	}
	if filter.MinConfidence > 0 {
		query += ` AND confidence >= ?`
		args = append(args, filter.MinConfidence)
	}
	query += ` ORDER BY name COLLATE NOCASE`

	limit := filter.Limit
	if limit <= 0 {
		limit = 1000
	}
	query += ` LIMIT ?`
	args = append(args, limit)
	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list records")
	}
	defer rows.Close()

	var out []model.CanonicalRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan record")
		}
		out = append(out, *rec)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list records iterate")
}

func (s *SQLiteStore) QueueMatch(ctx context.Context, m model.DuplicateMatch) error {
	a, b := orderPair(m.StableIDA, m.StableIDB)
	created := m.CreatedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO matches (stable_id_a, stable_id_b, similarity, reason, status, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT (stable_id_a, stable_id_b) DO NOTHING`,
		a, b, m.Similarity, m.Reason, model.MatchPending, created,
	)
	return eris.Wrap(err, "sqlite: queue match")
}

func (s *SQLiteStore) PendingMatches(ctx context.Context, limit int) ([]model.DuplicateMatch, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, stable_id_a, stable_id_b, similarity, reason, status, created_at
		 FROM matches WHERE status = ? ORDER BY similarity DESC LIMIT ?`,
		model.MatchPending, limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: pending matches")
	}
	defer rows.Close()

	var out []model.DuplicateMatch
	for rows.Next() {
		var m model.DuplicateMatch
		if err := rows.Scan(&m.ID, &m.StableIDA, &m.StableIDB, &m.Similarity,
			&m.Reason, &m.Status, &m.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan match")
		}
		out = append(out, m)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: pending matches iterate")
}

func (s *SQLiteStore) ResolveMatch(ctx context.Context, matchID int64, status string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE matches SET status = ? WHERE id = ?`, status, matchID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: resolve match %d", matchID)
	}
	return checkRowsAffected(res, "match", "")
}

func (s *SQLiteStore) ResolveMatchPair(ctx context.Context, stableIDA, stableIDB, status string) error {
	a, b := orderPair(stableIDA, stableIDB)
	_, err := s.db.ExecContext(ctx,
		`UPDATE matches SET status = ? WHERE stable_id_a = ? AND stable_id_b = ?`,
		status, a, b,
	)
	return eris.Wrap(err, "sqlite: resolve match pair")
}

func (s *SQLiteStore) PendingApprovals(ctx context.Context, limit int) ([]model.CanonicalRecord, error) {
	return s.ListRecords(ctx, RecordFilter{
		ApprovalStatus: model.ApprovalPending,
		Limit:          limit,
	})
}

func (s *SQLiteStore) SetApproval(ctx context.Context, stableID string, status model.ApprovalStatus) error {
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

func (s *SQLiteStore) SetBlacklisted(ctx context.Context, stableID string) error {
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

// saveReviewed writes review-driven field changes back to the row and its
// JSON document, bypassing the blacklist suppression in Upsert.
func (s *SQLiteStore) saveReviewed(ctx context.Context, rec *model.CanonicalRecord) error {
	recJSON, err := json.Marshal(rec)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal record")
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE records SET approval_status = ?, is_blacklisted = ?, record = ?, updated_at = ?
		 WHERE stable_id = ?`,
		string(rec.ApprovalStatus), rec.IsBlacklisted, string(recJSON),
		rec.UpdatedAt, rec.StableID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: save review %s", rec.StableID)
	}
	return checkRowsAffected(res, "record", rec.StableID)
}

func (s *SQLiteStore) CreateRun(ctx context.Context, run *model.Run) error {
	if run.ID == "" {
		run.ID = uuid.New().String()
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now().UTC()
	}
	reportJSON, err := json.Marshal(run)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal run")
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO runs (id, job_id, triggered_by, slot, report, success, started_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.JobID, string(run.Trigger), run.Slot, string(reportJSON),
		run.Success, run.StartedAt.UTC(),
	)
	return eris.Wrapf(err, "sqlite: insert run %s", run.ID)
}

func (s *SQLiteStore) FinishRun(ctx context.Context, run *model.Run) error {
	if run.CompletedAt == nil {
		now := time.Now().UTC()
		run.CompletedAt = &now
	}
	reportJSON, err := json.Marshal(run)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal run")
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET report = ?, success = ?, completed_at = ? WHERE id = ?`,
		string(reportJSON), run.Success, run.CompletedAt.UTC(), run.ID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: finish run %s", run.ID)
	}
	return checkRowsAffected(res, "run", run.ID)
}

func (s *SQLiteStore) GetRun(ctx context.Context, runID string) (*model.Run, error) {
	row := s.db.QueryRowContext(ctx, `SELECT report FROM runs WHERE id = ?`, runID)
	var reportJSON string
	if err := row.Scan(&reportJSON); err == sql.ErrNoRows {
		return nil, eris.Errorf("run not found: %s", runID)
	} else if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get run %s", runID)
	}
	var run model.Run
	if err := json.Unmarshal([]byte(reportJSON), &run); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal run")
	}
	return &run, nil
}

func (s *SQLiteStore) ListRuns(ctx context.Context, limit int) ([]model.Run, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT report FROM runs ORDER BY started_at DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list runs")
	}
	defer rows.Close()

	var out []model.Run
	for rows.Next() {
		var reportJSON string
		if err := rows.Scan(&reportJSON); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan run")
		}
		var run model.Run
		if err := json.Unmarshal([]byte(reportJSON), &run); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal run")
		}
		out = append(out, run)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list runs iterate")
}

func (s *SQLiteStore) EnqueueJob(ctx context.Context, job *model.RunJob) error {
	prepareJob(job)
	payload, err := json.Marshal(job)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal job")
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO jobs (id, payload, status, attempts, max_attempts, last_error,
		                   next_run_at, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		job.ID, string(payload), string(job.Status), job.Attempts, job.MaxAttempts,
		job.LastError, job.NextRunAt.UTC(), job.CreatedAt.UTC(), job.UpdatedAt.UTC(),
	)
	return eris.Wrapf(err, "sqlite: enqueue job %s", job.ID)
}

func (s *SQLiteStore) DequeueJob(ctx context.Context) (*model.RunJob, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: begin dequeue")
	}
	defer tx.Rollback() //nolint:errcheck

	job, err := scanJob(tx.QueryRowContext(ctx,
		`SELECT id, payload, status, attempts, max_attempts, last_error, next_run_at,
		        created_at, updated_at
		 FROM jobs
		 WHERE status IN (?, ?) AND next_run_at <= ?
		 ORDER BY next_run_at LIMIT 1`,
		string(model.JobQueued), string(model.JobFailed), time.Now().UTC(),
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: dequeue job")
	}

	job.Status = model.JobRunning
	job.Attempts++
	job.UpdatedAt = time.Now().UTC()
	if _, err := tx.ExecContext(ctx,
		`UPDATE jobs SET status = ?, attempts = ?, updated_at = ? WHERE id = ?`,
		string(job.Status), job.Attempts, job.UpdatedAt, job.ID,
	); err != nil {
		return nil, eris.Wrapf(err, "sqlite: claim job %s", job.ID)
	}
	if err := tx.Commit(); err != nil {
		return nil, eris.Wrap(err, "sqlite: commit dequeue")
	}
	return job, nil
}

func (s *SQLiteStore) GetJob(ctx context.Context, jobID string) (*model.RunJob, error) {
	job, err := scanJob(s.db.QueryRowContext(ctx,
		`SELECT id, payload, status, attempts, max_attempts, last_error, next_run_at,
		        created_at, updated_at
		 FROM jobs WHERE id = ?`, jobID,
	))
	if err == sql.ErrNoRows {
		return nil, eris.Errorf("job not found: %s", jobID)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get job %s", jobID)
	}
	return job, nil
}

func (s *SQLiteStore) CompleteJob(ctx context.Context, jobID string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE jobs SET status = ?, last_error = '', updated_at = ? WHERE id = ?`,
		string(model.JobCompleted), time.Now().UTC(), jobID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: complete job %s", jobID)
	}
	return checkRowsAffected(res, "job", jobID)
}

// FailJob records a failed attempt. Jobs that still have attempts left go
// back to failed with a retry time; exhausted jobs go to dead and stay for
// manual inspection.
func (s *SQLiteStore) FailJob(ctx context.Context, jobID string, lastError string, retryAt time.Time) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE jobs SET
		   status = CASE WHEN attempts >= max_attempts THEN ? ELSE ? END,
		   last_error = ?, next_run_at = ?, updated_at = ?
		 WHERE id = ?`,
		string(model.JobDead), string(model.JobFailed),
		lastError, retryAt.UTC(), time.Now().UTC(), jobID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: fail job %s", jobID)
	}
	return checkRowsAffected(res, "job", jobID)
}

// helpers

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Errorf("%s not found: %s", entity, id)
	}
	return nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanRecord(row scannable) (*model.CanonicalRecord, error) {
	var recJSON string
	if err := row.Scan(&recJSON); err != nil {
		return nil, err
	}
	var rec model.CanonicalRecord
	if err := json.Unmarshal([]byte(recJSON), &rec); err != nil {
		return nil, eris.Wrap(err, "unmarshal record")
	}
	return &rec, nil
}

func scanJob(row scannable) (*model.RunJob, error) {
	var payload, status, lastError string
	var job model.RunJob
	err := row.Scan(&job.ID, &payload, &status, &job.Attempts, &job.MaxAttempts,
		&lastError, &job.NextRunAt, &job.CreatedAt, &job.UpdatedAt)
	if err != nil {
		return nil, err
	}
	var decoded model.RunJob
	if err := json.Unmarshal([]byte(payload), &decoded); err != nil {
		return nil, eris.Wrap(err, "unmarshal job")
	}
	// Queue bookkeeping columns are authoritative over the stored payload.
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

// prepareJob fills enqueue defaults in place.
func prepareJob(job *model.RunJob) {
	now := time.Now().UTC()
	if job.ID == "" {
		job.ID = uuid.New().String()
	}
	if job.Status == "" {
		job.Status = model.JobQueued
	}
	if job.MaxAttempts <= 0 {
		job.MaxAttempts = 3
	}
	if job.NextRunAt.IsZero() {
		job.NextRunAt = now
	}
	if job.CreatedAt.IsZero() {
		job.CreatedAt = now
	}
	job.UpdatedAt = now
}

// signalValues extracts the weak-signal index entries for a record.
// Contact values are already normalized by ingestion; casing is folded
// anyway so manual edits cannot split the index.
func signalValues(rec *model.CanonicalRecord) map[string][]string {
	out := make(map[string][]string, 3)
	for _, p := range rec.Phones {
		out["phone"] = append(out["phone"], strings.ToLower(p))
	}
	for _, e := range rec.Emails {
		out["email"] = append(out["email"], strings.ToLower(e))
	}
	for _, w := range rec.Websites {
		out["website"] = append(out["website"], strings.ToLower(w))
	}
	return out
}

func effectiveDateArg(rec *model.CanonicalRecord) any {
	if d := rec.EffectiveDate(); d != nil {
		return d.UTC()
	}
	return nil
}

func orderPair(a, b string) (string, string) {
	if b < a {
		return b, a
	}
	return a, b
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func toAnySlice(values []string) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = strings.ToLower(v)
	}
	return out
}

func collectIDs(rows *sql.Rows, ids map[string]bool) error {
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
