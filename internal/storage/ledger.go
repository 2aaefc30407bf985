package storage

import (
	"database/sql"
	"sort"
	"time"
)

// TranslationRecord is one translate call as written to the ledger.
type TranslationRecord struct {
	ID           int64
	RunID        string
	Name         string
	Strategy     string
	Alias        string
	Source       string
	Coverage     float64
	Confidence   float64
	UnknownCount int
	GuardTotal   int
	GuardKept    int
	GuardDropped int
	Reasons      map[string]int
	OracleCalls  int
	OracleError  string
	Cached       bool
	DurationMs   int64
	RecordedAt   time.Time
}

// LearnedRecord is one entry written to a learned dictionary.
type LearnedRecord struct {
	RunID      string
	Key        string
	Alias      string
	Confidence float64
	Phrase     bool
	Path       string
	LearnedAt  time.Time
}

// Summary aggregates ledger rows over a time window.
type Summary struct {
	Since         time.Time        `json:"since"`
	Translations  int64            `json:"translations"`
	Cached        int64            `json:"cached"`
	BySource      map[string]int64 `json:"bySource"`
	OracleCalls   int64            `json:"oracleCalls"`
	OracleErrors  int64            `json:"oracleErrors"`
	GuardTotal    int64            `json:"guardTotal"`
	GuardKept     int64            `json:"guardKept"`
	GuardDropped  int64            `json:"guardDropped"`
	Reasons       map[string]int64 `json:"reasons"`
	Learned       int64            `json:"learned"`
	AvgCoverage   float64          `json:"avgCoverage"`
	AvgDurationMs float64          `json:"avgDurationMs"`
}

// DropRate returns the share of unknown tokens the guard kept from the oracle.
func (s *Summary) DropRate() float64 {
	if s.GuardTotal == 0 {
		return 0
	}
	return float64(s.GuardDropped) / float64(s.GuardTotal)
}

// TopReasons returns drop reasons ordered by count, then name.
func (s *Summary) TopReasons() []string {
	out := make([]string, 0, len(s.Reasons))
	for r := range s.Reasons {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		if s.Reasons[out[i]] != s.Reasons[out[j]] {
			return s.Reasons[out[i]] > s.Reasons[out[j]]
		}
		return out[i] < out[j]
	})
	return out
}

// RecordTranslation persists one translation and its guard reasons.
func (db *DB) RecordTranslation(rec TranslationRecord) error {
	if rec.RecordedAt.IsZero() {
		rec.RecordedAt = time.Now()
	}
	return db.WithTx(func(tx *sql.Tx) error {
		res, err := tx.Exec(`
			INSERT INTO translations (
				run_id, name, strategy, alias, source, coverage, confidence,
				unknown_count, guard_total, guard_kept, guard_dropped,
				oracle_calls, oracle_error, cached, duration_ms, recorded_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, rec.RunID, rec.Name, rec.Strategy, rec.Alias, rec.Source, rec.Coverage, rec.Confidence,
			rec.UnknownCount, rec.GuardTotal, rec.GuardKept, rec.GuardDropped,
			rec.OracleCalls, nullString(rec.OracleError), boolToInt(rec.Cached), rec.DurationMs,
			rec.RecordedAt.UTC().Format(time.RFC3339))
		if err != nil {
			return err
		}
		id, err := res.LastInsertId()
		if err != nil {
			return err
		}
		for reason, count := range rec.Reasons {
			if _, err := tx.Exec(
				"INSERT INTO guard_reasons (translation_id, reason, count) VALUES (?, ?, ?)",
				id, reason, count,
			); err != nil {
				return err
			}
		}
		return nil
	})
}

// RecordLearned appends learned-entry audit rows.
func (db *DB) RecordLearned(records []LearnedRecord) error {
	if len(records) == 0 {
		return nil
	}
	return db.WithTx(func(tx *sql.Tx) error {
		stmt, err := tx.Prepare(`
			INSERT INTO learned_entries (run_id, key, alias, confidence, phrase, path, learned_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		now := time.Now()
		for _, r := range records {
			at := r.LearnedAt
			if at.IsZero() {
				at = now
			}
			if _, err := stmt.Exec(r.RunID, r.Key, r.Alias, r.Confidence, boolToInt(r.Phrase), r.Path,
				at.UTC().Format(time.RFC3339)); err != nil {
				return err
			}
		}
		return nil
	})
}

// GetSummary aggregates everything recorded at or after since.
func (db *DB) GetSummary(since time.Time) (*Summary, error) {
	cutoff := since.UTC().Format(time.RFC3339)
	s := &Summary{
		Since:    since,
		BySource: make(map[string]int64),
		Reasons:  make(map[string]int64),
	}

	err := db.QueryRow(`
		SELECT
			COUNT(*),
			COALESCE(SUM(cached), 0),
			COALESCE(SUM(oracle_calls), 0),
			COALESCE(SUM(CASE WHEN oracle_error IS NOT NULL THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(guard_total), 0),
			COALESCE(SUM(guard_kept), 0),
			COALESCE(SUM(guard_dropped), 0),
			COALESCE(AVG(coverage), 0),
			COALESCE(AVG(duration_ms), 0)
		FROM translations
		WHERE recorded_at >= ?
	`, cutoff).Scan(
		&s.Translations,
		&s.Cached,
		&s.OracleCalls,
		&s.OracleErrors,
		&s.GuardTotal,
		&s.GuardKept,
		&s.GuardDropped,
		&s.AvgCoverage,
		&s.AvgDurationMs,
	)
	if err != nil {
		return nil, err
	}

	if err := db.scanCounts(s.BySource, `
		SELECT source, COUNT(*) FROM translations
		WHERE recorded_at >= ?
		GROUP BY source
	`, cutoff); err != nil {
		return nil, err
	}

	if err := db.scanCounts(s.Reasons, `
		SELECT r.reason, SUM(r.count)
		FROM guard_reasons r
		JOIN translations t ON t.id = r.translation_id
		WHERE t.recorded_at >= ?
		GROUP BY r.reason
	`, cutoff); err != nil {
		return nil, err
	}

	if err := db.QueryRow(
		"SELECT COUNT(*) FROM learned_entries WHERE learned_at >= ?", cutoff,
	).Scan(&s.Learned); err != nil {
		return nil, err
	}

	return s, nil
}

func (db *DB) scanCounts(into map[string]int64, query string, args ...interface{}) error {
	rows, err := db.Query(query, args...)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var key string
		var n int64
		if err := rows.Scan(&key, &n); err != nil {
			return err
		}
		into[key] = n
	}
	return rows.Err()
}

// GetRecentTranslations returns the newest translations first.
func (db *DB) GetRecentTranslations(limit int) ([]TranslationRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := db.Query(`
		SELECT id, run_id, name, strategy, alias, source, coverage, confidence,
		       unknown_count, guard_total, guard_kept, guard_dropped,
		       oracle_calls, COALESCE(oracle_error, ''), cached, duration_ms, recorded_at
		FROM translations
		ORDER BY id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []TranslationRecord
	for rows.Next() {
		var r TranslationRecord
		var cached int
		var recordedAt string
		if err := rows.Scan(
			&r.ID, &r.RunID, &r.Name, &r.Strategy, &r.Alias, &r.Source, &r.Coverage, &r.Confidence,
			&r.UnknownCount, &r.GuardTotal, &r.GuardKept, &r.GuardDropped,
			&r.OracleCalls, &r.OracleError, &cached, &r.DurationMs, &recordedAt,
		); err != nil {
			return nil, err
		}
		r.Cached = cached != 0
		r.RecordedAt, _ = time.Parse(time.RFC3339, recordedAt)
		records = append(records, r)
	}
	return records, rows.Err()
}

// GetLearnedEntries returns the newest learned-entry audit rows first.
func (db *DB) GetLearnedEntries(limit int) ([]LearnedRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := db.Query(`
		SELECT run_id, key, alias, confidence, phrase, path, learned_at
		FROM learned_entries
		ORDER BY id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []LearnedRecord
	for rows.Next() {
		var r LearnedRecord
		var phrase int
		var learnedAt string
		if err := rows.Scan(&r.RunID, &r.Key, &r.Alias, &r.Confidence, &phrase, &r.Path, &learnedAt); err != nil {
			return nil, err
		}
		r.Phrase = phrase != 0
		r.LearnedAt, _ = time.Parse(time.RFC3339, learnedAt)
		records = append(records, r)
	}
	return records, rows.Err()
}

// Prune deletes translations and learned-entry rows recorded before cutoff.
func (db *DB) Prune(cutoff time.Time) (int64, error) {
	ts := cutoff.UTC().Format(time.RFC3339)
	var total int64
	err := db.WithTx(func(tx *sql.Tx) error {
		if _, err := tx.Exec(`
			DELETE FROM guard_reasons WHERE translation_id IN (
				SELECT id FROM translations WHERE recorded_at < ?
			)`, ts); err != nil {
			return err
		}
		for _, q := range []string{
			"DELETE FROM translations WHERE recorded_at < ?",
			"DELETE FROM learned_entries WHERE learned_at < ?",
		} {
			res, err := tx.Exec(q, ts)
			if err != nil {
				return err
			}
			n, _ := res.RowsAffected()
			total += n
		}
		return nil
	})
	return total, err
}

func nullString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
