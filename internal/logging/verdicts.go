package logging

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/danielpatrickdp/nova-mentor/go-server/internal/pipeline"
)

// #region log-verdict
// LogVerdict writes an entry to the verdict_log table.
func LogVerdict(ctx context.Context, db *sql.DB, entry VerdictEntry) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	var chunk interface{}
	if entry.ChunkID >= 0 {
		chunk = entry.ChunkID
	}
	_, err := db.ExecContext(ctx,
		`INSERT INTO verdict_log (request_id, build_id, question, intent, kind, chunk_id,
		 confidence, confident, mode, cached, latency_ms, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.RequestID,
		nullIfEmpty(entry.BuildID),
		entry.Question,
		entry.Intent,
		entry.Kind,
		chunk,
		entry.Confidence,
		boolInt(entry.Confident),
		nullIfEmpty(entry.Mode),
		boolInt(entry.Cached),
		entry.LatencyMS,
		entry.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("log verdict: %w", err)
	}
	return nil
}

// #endregion log-verdict

// #region list-verdicts
// ListVerdicts returns the most recent entries, newest first.
func ListVerdicts(ctx context.Context, db *sql.DB, limit int) ([]VerdictEntry, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT id, request_id, build_id, question, intent, kind, chunk_id, confidence,
		 confident, mode, cached, latency_ms, created_at
		 FROM verdict_log ORDER BY id DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list verdicts: %w", err)
	}
	defer rows.Close()

	var entries []VerdictEntry
	for rows.Next() {
		var e VerdictEntry
		var buildID, mode sql.NullString
		var chunk sql.NullInt64
		var latency sql.NullFloat64
		var confident, cached int
		var createdStr string
		if err := rows.Scan(&e.ID, &e.RequestID, &buildID, &e.Question, &e.Intent, &e.Kind,
			&chunk, &e.Confidence, &confident, &mode, &cached, &latency, &createdStr); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		e.BuildID = buildID.String
		e.Mode = mode.String
		e.ChunkID = -1
		if chunk.Valid {
			e.ChunkID = int(chunk.Int64)
		}
		e.LatencyMS = latency.Float64
		e.Confident = confident == 1
		e.Cached = cached == 1
		e.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdStr)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// #endregion list-verdicts

// #region recorder
// Recorder persists pipeline results to verdict_log, tagged with a build id.
type Recorder struct {
	db      *sql.DB
	buildID string
}

// NewRecorder creates a recorder writing to db.
func NewRecorder(db *sql.DB, buildID string) *Recorder {
	return &Recorder{db: db, buildID: buildID}
}

// RecordVerdict implements pipeline.Recorder.
func (r *Recorder) RecordVerdict(ctx context.Context, res pipeline.Result) error {
	return LogVerdict(context.WithoutCancel(ctx), r.db, EntryFromResult(res, r.buildID))
}

// EntryFromResult flattens a pipeline result into a log row.
func EntryFromResult(res pipeline.Result, buildID string) VerdictEntry {
	return VerdictEntry{
		RequestID:  res.RequestID,
		BuildID:    buildID,
		Question:   res.Question,
		Intent:     string(res.Verdict.Intent),
		Kind:       string(res.Verdict.Kind),
		ChunkID:    res.Verdict.ChunkID,
		Confidence: res.Verdict.Confidence,
		Confident:  res.Verdict.Confident,
		Mode:       string(res.Mode),
		Cached:     res.Cached,
		LatencyMS:  float64(res.Elapsed.Microseconds()) / 1000,
	}
}

// #endregion recorder

// #region helpers
func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// #endregion helpers
