package state

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/loom-sh/loom/pkg/models"
)

// Run is one recorded plan execution.
type Run struct {
	ID        string        `json:"id"`
	Request   string        `json:"request"`
	Merged    string        `json:"merged"`
	Degraded  bool          `json:"degraded"`
	MergeErr  string        `json:"merge_error"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`
}

// Transcript is the recorded outcome of one subtask within a run.
type Transcript struct {
	RunID       string               `json:"run_id"`
	SubtaskID   string               `json:"subtask_id"`
	Group       int                  `json:"group"`
	Instruction string               `json:"instruction"`
	Status      models.SubtaskStatus `json:"status"`
	Output      string               `json:"output"`
	Error       string               `json:"error"`
	Duration    time.Duration        `json:"duration"`
}

// SaveRun records a completed plan execution and its per-subtask
// transcripts in one transaction.
func (db *DB) SaveRun(result *models.PlanResult, plan *models.Plan, startedAt time.Time) error {
	return db.Transaction(func(tx *sql.Tx) error {
		_, err := tx.Exec(`
			INSERT INTO runs (id, request, merged_output, degraded, merge_error, started_at, duration_ms)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, result.RunID, plan.Request, result.Merged, boolToInt(result.Degraded),
			result.MergeError, formatTime(startedAt), result.Duration.Milliseconds())
		if err != nil {
			return fmt.Errorf("insert run: %w", err)
		}

		for _, st := range plan.Subtasks {
			_, err := tx.Exec(`
				INSERT INTO transcripts (run_id, subtask_id, group_num, instruction, status, output, error, duration_ms)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			`, result.RunID, st.ID, st.Group, st.Instruction, string(st.Status),
				st.Output, st.Error, st.Duration().Milliseconds())
			if err != nil {
				return fmt.Errorf("insert transcript %s: %w", st.ID, err)
			}
		}
		return nil
	})
}

// GetRun retrieves a run by ID, or nil when no such run exists.
func (db *DB) GetRun(id string) (*Run, error) {
	row := db.QueryRow(`
		SELECT id, request, merged_output, degraded, merge_error, started_at, duration_ms
		FROM runs WHERE id = ?
	`, id)

	r, err := scanRun(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}
	return r, nil
}

// ListRuns returns the most recent runs, newest first.
func (db *DB) ListRuns(limit int) ([]*Run, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := db.Query(`
		SELECT id, request, merged_output, degraded, merge_error, started_at, duration_ms
		FROM runs ORDER BY started_at DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		r, err := scanRun(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// GetTranscripts retrieves the transcripts of one run in group order.
func (db *DB) GetTranscripts(runID string) ([]*Transcript, error) {
	rows, err := db.Query(`
		SELECT run_id, subtask_id, group_num, instruction, status, output, error, duration_ms
		FROM transcripts WHERE run_id = ? ORDER BY group_num, subtask_id
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("get transcripts: %w", err)
	}
	defer rows.Close()

	var transcripts []*Transcript
	for rows.Next() {
		var t Transcript
		var status string
		var durationMs int64
		if err := rows.Scan(&t.RunID, &t.SubtaskID, &t.Group, &t.Instruction,
			&status, &t.Output, &t.Error, &durationMs); err != nil {
			return nil, fmt.Errorf("scan transcript: %w", err)
		}
		t.Status = models.SubtaskStatus(status)
		t.Duration = time.Duration(durationMs) * time.Millisecond
		transcripts = append(transcripts, &t)
	}
	return transcripts, rows.Err()
}

// PurgeOldRuns deletes runs older than the given age. Returns the number
// of runs deleted; transcripts cascade.
func (db *DB) PurgeOldRuns(maxAge time.Duration) (int64, error) {
	cutoff := formatTime(time.Now().Add(-maxAge))
	res, err := db.Exec("DELETE FROM runs WHERE started_at < ?", cutoff)
	if err != nil {
		return 0, fmt.Errorf("purge runs: %w", err)
	}
	return res.RowsAffected()
}

// scanRun scans one run row through the given scan function.
func scanRun(scan func(...any) error) (*Run, error) {
	var r Run
	var degraded int
	var startedAt string
	var durationMs int64
	if err := scan(&r.ID, &r.Request, &r.Merged, &degraded, &r.MergeErr, &startedAt, &durationMs); err != nil {
		return nil, err
	}
	r.Degraded = degraded != 0
	r.StartedAt, _ = parseTime(startedAt)
	r.Duration = time.Duration(durationMs) * time.Millisecond
	return &r, nil
}

// boolToInt converts a bool for SQLite storage.
func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
