package storage

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func setupTestDB(t *testing.T) (*DB, string) {
	t.Helper()
	tmpDir := t.TempDir()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	db, err := Open(tmpDir, logger)
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Errorf("Failed to close database: %v", err)
		}
	})
	return db, tmpDir
}

func TestDatabaseInitialization(t *testing.T) {
	db, tmpDir := setupTestDB(t)

	dbPath := filepath.Join(tmpDir, ".namelens", "ledger.db")
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Fatalf("Database file was not created at %s", dbPath)
	}
	if db.Path() != dbPath {
		t.Errorf("Expected path %s, got %s", dbPath, db.Path())
	}

	version, err := db.getSchemaVersion()
	if err != nil {
		t.Fatalf("Failed to get schema version: %v", err)
	}
	if version != currentSchemaVersion {
		t.Errorf("Expected schema version %d, got %d", currentSchemaVersion, version)
	}
}

func TestReopenRunsMigrations(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.db")

	db, err := OpenPath(path, nil)
	if err != nil {
		t.Fatalf("OpenPath failed: %v", err)
	}
	// Simulate a database created before learned_entries existed.
	if _, err := db.Exec("DROP TABLE learned_entries"); err != nil {
		t.Fatalf("drop: %v", err)
	}
	if _, err := db.Exec("UPDATE schema_version SET version = 1"); err != nil {
		t.Fatalf("update: %v", err)
	}
	db.Close()

	db, err = OpenPath(path, nil)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer db.Close()

	version, err := db.getSchemaVersion()
	if err != nil {
		t.Fatalf("Failed to get schema version: %v", err)
	}
	if version != currentSchemaVersion {
		t.Errorf("Expected schema version %d, got %d", currentSchemaVersion, version)
	}
	if err := db.RecordLearned([]LearnedRecord{{RunID: "r", Key: "xml", Alias: "可扩展标记语言", Path: "l.json"}}); err != nil {
		t.Errorf("RecordLearned after migration: %v", err)
	}
}

func TestRecordTranslationAndSummary(t *testing.T) {
	db, _ := setupTestDB(t)
	since := time.Now().Add(-time.Minute)

	records := []TranslationRecord{
		{
			RunID: "run-1", Name: "clean-xml-files.js", Strategy: "literal",
			Alias: "清理-可扩展标记语言-文件.js", Source: "oracle", Coverage: 1, Confidence: 0.95,
			GuardTotal: 1, GuardKept: 1, OracleCalls: 1, DurationMs: 120,
		},
		{
			RunID: "run-1", Name: "file-19-test.txt", Strategy: "literal",
			Alias: "文件-19-测试.txt", Source: "dictionary", Coverage: 1, Confidence: 0.95,
			GuardTotal: 2, GuardDropped: 2, Reasons: map[string]int{"numeric": 1, "stopword": 1},
			DurationMs: 2,
		},
		{
			RunID: "run-2", Name: "fetch_data", Strategy: "natural",
			Alias: "fetch_data", Source: "fallback", Coverage: 0, Confidence: 0.4,
			UnknownCount: 2, GuardTotal: 2, GuardKept: 1, GuardDropped: 1,
			Reasons: map[string]int{"numeric": 2}, OracleCalls: 1, OracleError: "timeout",
		},
		{
			RunID: "run-2", Name: "clean-xml-files.js", Strategy: "literal",
			Alias: "清理-可扩展标记语言-文件.js", Source: "dictionary", Coverage: 1, Confidence: 0.95,
			Cached: true,
		},
	}
	for _, r := range records {
		if err := db.RecordTranslation(r); err != nil {
			t.Fatalf("RecordTranslation failed: %v", err)
		}
	}

	s, err := db.GetSummary(since)
	if err != nil {
		t.Fatalf("GetSummary failed: %v", err)
	}
	if s.Translations != 4 {
		t.Errorf("Expected 4 translations, got %d", s.Translations)
	}
	if s.Cached != 1 {
		t.Errorf("Expected 1 cached, got %d", s.Cached)
	}
	if s.OracleCalls != 2 || s.OracleErrors != 1 {
		t.Errorf("Expected 2 oracle calls with 1 error, got %d/%d", s.OracleCalls, s.OracleErrors)
	}
	if s.BySource["dictionary"] != 2 || s.BySource["oracle"] != 1 || s.BySource["fallback"] != 1 {
		t.Errorf("Unexpected source counts: %v", s.BySource)
	}
	if s.Reasons["numeric"] != 3 || s.Reasons["stopword"] != 1 {
		t.Errorf("Unexpected reason counts: %v", s.Reasons)
	}
	if got := s.TopReasons(); len(got) != 2 || got[0] != "numeric" {
		t.Errorf("Unexpected top reasons: %v", got)
	}
	if s.GuardTotal != 5 || s.GuardDropped != 3 {
		t.Errorf("Unexpected guard totals: %d/%d", s.GuardTotal, s.GuardDropped)
	}
	if rate := s.DropRate(); rate != 0.6 {
		t.Errorf("Expected drop rate 0.6, got %f", rate)
	}

	// A window in the future sees nothing.
	empty, err := db.GetSummary(time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("GetSummary failed: %v", err)
	}
	if empty.Translations != 0 || len(empty.Reasons) != 0 {
		t.Errorf("Expected empty summary, got %+v", empty)
	}
}

func TestGetRecentTranslations(t *testing.T) {
	db, _ := setupTestDB(t)

	for _, name := range []string{"a", "b", "c"} {
		if err := db.RecordTranslation(TranslationRecord{RunID: "r", Name: name, Strategy: "literal", Alias: name, Source: "rule"}); err != nil {
			t.Fatalf("RecordTranslation failed: %v", err)
		}
	}

	recent, err := db.GetRecentTranslations(2)
	if err != nil {
		t.Fatalf("GetRecentTranslations failed: %v", err)
	}
	if len(recent) != 2 {
		t.Fatalf("Expected 2 records, got %d", len(recent))
	}
	if recent[0].Name != "c" || recent[1].Name != "b" {
		t.Errorf("Expected newest first, got %s, %s", recent[0].Name, recent[1].Name)
	}
	if recent[0].OracleError != "" {
		t.Errorf("Expected empty oracle error, got %q", recent[0].OracleError)
	}
}

func TestRecordLearned(t *testing.T) {
	db, _ := setupTestDB(t)

	err := db.RecordLearned([]LearnedRecord{
		{RunID: "r1", Key: "xml", Alias: "可扩展标记语言", Confidence: 0.9, Path: ".namelens/learned.json"},
		{RunID: "r1", Key: "clean files", Alias: "清理文件", Confidence: 0.9, Phrase: true, Path: ".namelens/learned.json"},
	})
	if err != nil {
		t.Fatalf("RecordLearned failed: %v", err)
	}

	entries, err := db.GetLearnedEntries(10)
	if err != nil {
		t.Fatalf("GetLearnedEntries failed: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("Expected 2 entries, got %d", len(entries))
	}
	if !entries[0].Phrase || entries[0].Key != "clean files" {
		t.Errorf("Expected newest phrase entry first, got %+v", entries[0])
	}

	s, err := db.GetSummary(time.Now().Add(-time.Minute))
	if err != nil {
		t.Fatalf("GetSummary failed: %v", err)
	}
	if s.Learned != 2 {
		t.Errorf("Expected 2 learned, got %d", s.Learned)
	}
}

func TestPrune(t *testing.T) {
	db, _ := setupTestDB(t)

	old := time.Now().Add(-48 * time.Hour)
	if err := db.RecordTranslation(TranslationRecord{RunID: "r", Name: "old", Strategy: "literal", Alias: "old", Source: "rule",
		Reasons: map[string]int{"numeric": 1}, RecordedAt: old}); err != nil {
		t.Fatal(err)
	}
	if err := db.RecordTranslation(TranslationRecord{RunID: "r", Name: "new", Strategy: "literal", Alias: "new", Source: "rule"}); err != nil {
		t.Fatal(err)
	}

	n, err := db.Prune(time.Now().Add(-24 * time.Hour))
	if err != nil {
		t.Fatalf("Prune failed: %v", err)
	}
	if n != 1 {
		t.Errorf("Expected 1 pruned row, got %d", n)
	}

	var reasons int
	if err := db.QueryRow("SELECT COUNT(*) FROM guard_reasons").Scan(&reasons); err != nil {
		t.Fatal(err)
	}
	if reasons != 0 {
		t.Errorf("Expected guard reasons of pruned rows to be removed, got %d", reasons)
	}
}

func TestConcurrentWritersKeepEveryRow(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.db")
	first, err := OpenPath(path, nil)
	if err != nil {
		t.Fatalf("OpenPath failed: %v", err)
	}
	defer first.Close()
	// A second handle stands in for another CLI process on the same file.
	second, err := OpenPath(path, nil)
	if err != nil {
		t.Fatalf("OpenPath failed: %v", err)
	}
	defer second.Close()

	const workers, perWorker = 8, 25
	errs := make(chan error, workers*perWorker)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		db := first
		if w%2 == 1 {
			db = second
		}
		wg.Add(1)
		go func(w int, db *DB) {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				errs <- db.RecordTranslation(TranslationRecord{
					RunID: "batch", Name: fmt.Sprintf("name_%d_%d", w, i), Strategy: "literal",
					Alias: "x", Source: "rule", GuardTotal: 1, GuardDropped: 1,
					Reasons: map[string]int{"numeric": 1},
				})
			}
		}(w, db)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			t.Errorf("RecordTranslation failed: %v", err)
		}
	}
	s, err := first.GetSummary(time.Now().Add(-time.Hour))
	if err != nil {
		t.Fatalf("GetSummary failed: %v", err)
	}
	if s.Translations != workers*perWorker {
		t.Errorf("Expected %d translations, got %d", workers*perWorker, s.Translations)
	}
	if s.Reasons["numeric"] != workers*perWorker {
		t.Errorf("Expected %d numeric drops, got %d", workers*perWorker, s.Reasons["numeric"])
	}
}

func TestLedgerPragmasOnConnection(t *testing.T) {
	db, _ := setupTestDB(t)

	var fk, timeout int
	if err := db.QueryRow("PRAGMA foreign_keys").Scan(&fk); err != nil {
		t.Fatalf("PRAGMA foreign_keys failed: %v", err)
	}
	if err := db.QueryRow("PRAGMA busy_timeout").Scan(&timeout); err != nil {
		t.Fatalf("PRAGMA busy_timeout failed: %v", err)
	}
	if fk != 1 {
		t.Errorf("Expected foreign_keys=1, got %d", fk)
	}
	if timeout != 5000 {
		t.Errorf("Expected busy_timeout=5000, got %d", timeout)
	}
}
