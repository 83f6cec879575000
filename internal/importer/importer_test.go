package importer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"rorimport/internal/accumulate"
	"rorimport/internal/ror"
	"rorimport/internal/storage"
)

type insertCall struct {
	table string
	rows  int
}

type fakeRepo struct {
	rows    map[string][][]any
	calls   []insertCall
	scripts []string
	counts  map[string]int64

	begins    int
	commits   int
	rollbacks int

	failTable string
	beginErr  error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{rows: map[string][][]any{}, counts: map[string]int64{}}
}

func (f *fakeRepo) InsertRows(_ context.Context, table string, _ []string, rows [][]any) (int64, error) {
	if table == f.failTable {
		return 0, errors.New("insert failed")
	}
	f.rows[table] = append(f.rows[table], rows...)
	f.calls = append(f.calls, insertCall{table: table, rows: len(rows)})
	return int64(len(rows)), nil
}

func (f *fakeRepo) Begin(context.Context) (storage.Tx, error) {
	if f.beginErr != nil {
		return nil, f.beginErr
	}
	f.begins++
	return &fakeTx{repo: f}, nil
}

func (f *fakeRepo) ExecScript(_ context.Context, script string) error {
	f.scripts = append(f.scripts, script)
	return nil
}

func (f *fakeRepo) CountRows(_ context.Context, table string) (int64, error) {
	return f.counts[table], nil
}

func (f *fakeRepo) Close() {}

type fakeTx struct {
	repo      *fakeRepo
	committed bool
}

func (t *fakeTx) InsertRows(ctx context.Context, table string, columns []string, rows [][]any) (int64, error) {
	return t.repo.InsertRows(ctx, table, columns, rows)
}

func (t *fakeTx) Commit(context.Context) error {
	t.committed = true
	t.repo.commits++
	return nil
}

func (t *fakeTx) Rollback(context.Context) error {
	if !t.committed {
		t.repo.rollbacks++
	}
	return nil
}

type captureLog struct{ lines []string }

func (l *captureLog) Printf(format string, v ...any) {
	l.lines = append(l.lines, fmt.Sprintf(format, v...))
}

// snapshotFile writes a JSON array of n minimal records and returns its path.
func snapshotFile(t *testing.T, n int) string {
	t.Helper()

	var b strings.Builder
	b.WriteString("[")
	for i := 0; i < n; i++ {
		if i > 0 {
			b.WriteString(",")
		}
		fmt.Fprintf(&b, `{
			"id": "https://ror.org/%09dx",
			"status": "active",
			"names": [{"value": "Org %d", "types": ["ror_display"], "lang": "en"}],
			"types": ["education"],
			"admin": {
				"created": {"date": "2018-11-14", "schema_version": "1.0"},
				"last_modified": {"date": "2024-12-11", "schema_version": "2.1"}
			}
		}`, i, i)
	}
	b.WriteString("]")

	path := filepath.Join(t.TempDir(), "v1.58 20241211.json")
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	return path
}

func coreCalls(repo *fakeRepo) []int {
	var out []int
	for _, c := range repo.calls {
		if c.table == accumulate.TableCoreData {
			out = append(out, c.rows)
		}
	}
	return out
}

func TestRun_BatchCadence(t *testing.T) {
	t.Parallel()

	repo := newFakeRepo()
	imp := &Importer{Repo: repo, Logger: &captureLog{}, BatchSize: 2}

	stats, err := imp.Run(context.Background(), snapshotFile(t, 3))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if stats.Found != 3 || stats.Processed != 3 {
		t.Fatalf("stats=%+v, want Found=3 Processed=3", stats)
	}

	// One flush after record 2, one final flush with the remainder.
	got := coreCalls(repo)
	if len(got) != 2 || got[0] != 2 || got[1] != 1 {
		t.Fatalf("core_data insert sizes=%v, want [2 1]", got)
	}
	if repo.commits != 2 {
		t.Fatalf("commits=%d, want 2", repo.commits)
	}
	if repo.rollbacks != 0 {
		t.Fatalf("rollbacks=%d, want 0", repo.rollbacks)
	}
}

func TestRun_TotalRowsIndependentOfBatchSize(t *testing.T) {
	t.Parallel()

	for _, batchSize := range []int{1, 2, 3, 5, 7} {
		repo := newFakeRepo()
		imp := &Importer{Repo: repo, Logger: &captureLog{}, BatchSize: batchSize}

		stats, err := imp.Run(context.Background(), snapshotFile(t, 5))
		if err != nil {
			t.Fatalf("batch=%d: Run: %v", batchSize, err)
		}
		if stats.Processed != 5 {
			t.Fatalf("batch=%d: Processed=%d, want 5", batchSize, stats.Processed)
		}
		if got := len(repo.rows[accumulate.TableCoreData]); got != 5 {
			t.Fatalf("batch=%d: core_data rows=%d, want 5", batchSize, got)
		}
		if got := len(repo.rows[accumulate.TableNames]); got != 5 {
			t.Fatalf("batch=%d: names rows=%d, want 5", batchSize, got)
		}
	}
}

func TestRun_BatchSizeMultipleStillFinalFlushes(t *testing.T) {
	t.Parallel()

	repo := newFakeRepo()
	imp := &Importer{Repo: repo, Logger: &captureLog{}, BatchSize: 2}

	stats, err := imp.Run(context.Background(), snapshotFile(t, 4))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if stats.Processed != 4 {
		t.Fatalf("Processed=%d, want 4", stats.Processed)
	}
	// The residual flush commits an empty transaction.
	if repo.commits != 3 {
		t.Fatalf("commits=%d, want 3", repo.commits)
	}
	if got := coreCalls(repo); len(got) != 2 {
		t.Fatalf("core_data insert sizes=%v, want two cadence flushes only", got)
	}
}

func TestRun_DecodeFailureWritesNothing(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "bad.json")
	if err := os.WriteFile(path, []byte(`[{"id": "https://ror.org/02mhbdp94"`), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	repo := newFakeRepo()
	imp := &Importer{Repo: repo, Logger: &captureLog{}}

	_, err := imp.Run(context.Background(), path)
	var de *ror.DecodeError
	if !errors.As(err, &de) {
		t.Fatalf("err=%v, want *ror.DecodeError", err)
	}
	if repo.begins != 0 || len(repo.calls) != 0 {
		t.Fatalf("begins=%d calls=%d, want no storage activity", repo.begins, len(repo.calls))
	}
}

func TestRun_MissingFile(t *testing.T) {
	t.Parallel()

	repo := newFakeRepo()
	imp := &Importer{Repo: repo, Logger: &captureLog{}}

	_, err := imp.Run(context.Background(), filepath.Join(t.TempDir(), "absent.json"))
	if err == nil {
		t.Fatal("want error for missing file")
	}
	if repo.begins != 0 {
		t.Fatalf("begins=%d, want 0", repo.begins)
	}
}

func TestRun_StorageFailureAborts(t *testing.T) {
	t.Parallel()

	repo := newFakeRepo()
	repo.failTable = accumulate.TableNames
	imp := &Importer{Repo: repo, Logger: &captureLog{}, BatchSize: 2}

	stats, err := imp.Run(context.Background(), snapshotFile(t, 5))
	if err == nil {
		t.Fatal("want error from failing insert")
	}
	if stats.Processed != 0 {
		t.Fatalf("Processed=%d, want 0", stats.Processed)
	}
	if repo.commits != 0 {
		t.Fatalf("commits=%d, want 0", repo.commits)
	}
	if repo.rollbacks != 1 {
		t.Fatalf("rollbacks=%d, want 1", repo.rollbacks)
	}
}

func TestRun_MaxRecordsCap(t *testing.T) {
	t.Parallel()

	repo := newFakeRepo()
	imp := &Importer{Repo: repo, Logger: &captureLog{}, BatchSize: 2, MaxRecords: 3}

	stats, err := imp.Run(context.Background(), snapshotFile(t, 5))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if stats.Found != 5 || stats.Processed != 3 {
		t.Fatalf("stats=%+v, want Found=5 Processed=3", stats)
	}
	if got := len(repo.rows[accumulate.TableCoreData]); got != 3 {
		t.Fatalf("core_data rows=%d, want 3", got)
	}
}

func TestRun_LogsQualityWarnings(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "warn.json")
	doc := `[{
		"id": "https://example.org/not/ror/02mhbdp94",
		"status": "active",
		"names": [{"value": "Org", "types": ["ror_display"], "lang": "zz9!"}]
	}]`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	repo := newFakeRepo()
	logger := &captureLog{}
	imp := &Importer{Repo: repo, Logger: logger}

	stats, err := imp.Run(context.Background(), path)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	// Warnings never stop the run.
	if stats.Processed != 1 {
		t.Fatalf("Processed=%d, want 1", stats.Processed)
	}

	all := strings.Join(logger.lines, "\n")
	if !strings.Contains(all, "does not match the expected shape") {
		t.Fatalf("missing id shape warning in logs:\n%s", all)
	}
	if !strings.Contains(all, "invalid language tag") {
		t.Fatalf("missing language tag warning in logs:\n%s", all)
	}
}

func TestCreateTables(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "create.sql")
	ddl := "create table ror.core_data (id varchar primary key);"
	if err := os.WriteFile(path, []byte(ddl), 0o644); err != nil {
		t.Fatalf("write ddl: %v", err)
	}

	repo := newFakeRepo()
	imp := &Importer{Repo: repo, Logger: &captureLog{}}

	if err := imp.CreateTables(context.Background(), path); err != nil {
		t.Fatalf("CreateTables: %v", err)
	}
	if len(repo.scripts) != 1 || repo.scripts[0] != ddl {
		t.Fatalf("scripts=%v, want the ddl text verbatim", repo.scripts)
	}
}

func TestSummarise(t *testing.T) {
	t.Parallel()

	repo := newFakeRepo()
	repo.counts[accumulate.TableCoreData] = 42
	repo.counts[accumulate.TableNames] = 99

	logger := &captureLog{}
	imp := &Importer{Repo: repo, Logger: logger}

	if err := imp.Summarise(context.Background()); err != nil {
		t.Fatalf("Summarise: %v", err)
	}

	all := strings.Join(logger.lines, "\n")
	if !strings.Contains(all, "total records in core_data: 42") {
		t.Fatalf("missing core_data count in logs:\n%s", all)
	}
	if !strings.Contains(all, "total records in names: 99") {
		t.Fatalf("missing names count in logs:\n%s", all)
	}
}
