package storage

import (
	"errors"
	"path/filepath"
	"testing"

	"catalogcsv/internal"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "runs.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestRunLifecycle(t *testing.T) {
	db := openTestDB(t)

	id, err := db.InsertRun("trace-1")
	if err != nil {
		t.Fatal(err)
	}
	run, err := db.GetRun(id)
	if err != nil {
		t.Fatal(err)
	}
	if run == nil || run.Status != RunRunning || run.FinishedAt != nil {
		t.Fatalf("fresh run=%+v", run)
	}

	counts := internal.RunCounts{Products: 3, Rows: 5, Metafields: 2}
	if err := db.FinishRun(id, RunFailed, counts, errors.New("write csv: disk full")); err != nil {
		t.Fatal(err)
	}
	run, err = db.GetRun(id)
	if err != nil {
		t.Fatal(err)
	}
	if run.Status != RunFailed {
		t.Fatalf("status=%s", run.Status)
	}
	if run.FinishedAt == nil {
		t.Fatal("finishedAt not set")
	}
	if run.Error == nil || *run.Error != "write csv: disk full" {
		t.Fatalf("error=%v", run.Error)
	}
	if run.Counts != counts {
		t.Fatalf("counts=%+v", run.Counts)
	}
}

func TestListRunsNewestFirst(t *testing.T) {
	db := openTestDB(t)
	for _, trace := range []string{"a", "b", "c"} {
		if _, err := db.InsertRun(trace); err != nil {
			t.Fatal(err)
		}
	}

	runs, err := db.ListRuns(2)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 2 {
		t.Fatalf("len=%d", len(runs))
	}
	if runs[0].TraceID != "c" || runs[1].TraceID != "b" {
		t.Fatalf("order=%s,%s", runs[0].TraceID, runs[1].TraceID)
	}
}

func TestGetRunMissing(t *testing.T) {
	db := openTestDB(t)
	run, err := db.GetRun(42)
	if err != nil {
		t.Fatal(err)
	}
	if run != nil {
		t.Fatalf("run=%+v", run)
	}
}

func TestSnapshots(t *testing.T) {
	db := openTestDB(t)
	id, err := db.InsertRun("snap")
	if err != nil {
		t.Fatal(err)
	}

	blob, err := db.LatestSnapshot("extract")
	if err != nil {
		t.Fatal(err)
	}
	if blob != nil {
		t.Fatalf("blob=%s", blob)
	}

	if err := db.SaveSnapshot(id, "extract", []byte(`{"A1":{}}`)); err != nil {
		t.Fatal(err)
	}
	if err := db.SaveSnapshot(id, "extract", []byte(`{"A1":{"Title":"Tea"}}`)); err != nil {
		t.Fatal(err)
	}
	blob, err = db.LatestSnapshot("extract")
	if err != nil {
		t.Fatal(err)
	}
	if string(blob) != `{"A1":{"Title":"Tea"}}` {
		t.Fatalf("blob=%s", blob)
	}
}

func TestImages(t *testing.T) {
	db := openTestDB(t)

	if _, ok, err := db.GetImages("A1"); err != nil || ok {
		t.Fatalf("ok=%v err=%v", ok, err)
	}
	if err := db.UpsertImages("A1", "drive", []string{"u1", "u2"}); err != nil {
		t.Fatal(err)
	}
	if err := db.UpsertImages("A1", "local", []string{"u3"}); err != nil {
		t.Fatal(err)
	}
	urls, ok, err := db.GetImages("A1")
	if err != nil || !ok {
		t.Fatalf("ok=%v err=%v", ok, err)
	}
	if len(urls) != 1 || urls[0] != "u3" {
		t.Fatalf("urls=%v", urls)
	}

	if err := db.UpsertImages("B2", "drive", nil); err != nil {
		t.Fatal(err)
	}
	urls, ok, err = db.GetImages("B2")
	if err != nil || !ok || len(urls) != 0 {
		t.Fatalf("urls=%v ok=%v err=%v", urls, ok, err)
	}
}

func TestMetadata(t *testing.T) {
	db := openTestDB(t)

	v, err := db.GetMetadata("last_csv")
	if err != nil {
		t.Fatal(err)
	}
	if v != nil {
		t.Fatalf("value=%s", *v)
	}

	if err := db.SetMetadata("last_csv", "out/a.csv"); err != nil {
		t.Fatal(err)
	}
	if err := db.SetMetadata("last_csv", "out/b.csv"); err != nil {
		t.Fatal(err)
	}
	v, err = db.GetMetadata("last_csv")
	if err != nil {
		t.Fatal(err)
	}
	if v == nil || *v != "out/b.csv" {
		t.Fatalf("value=%v", v)
	}
}
