package store_test

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"meetingintel/internal/services"
	"meetingintel/internal/store"
	"meetingintel/internal/testsupport"
)

func record(id string, created time.Time) store.Record {
	return store.Record{
		Summary: store.Summary{
			ID:              id,
			CreatedAt:       created,
			SourceName:      id + ".wav",
			Fingerprint:     "fp-" + id,
			DurationSeconds: 12.5,
			Confidence:      0.8,
			DegradedStages:  1,
			ElapsedMS:       42,
		},
		Document: json.RawMessage(`{"analysis_id":"` + id + `"}`),
	}
}

func TestSaveGetRoundTrip(t *testing.T) {
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()
	created := time.Date(2026, time.October, 18, 9, 0, 0, 123, time.UTC)
	if err := st.Save(ctx, record("a1", created)); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := st.Get(ctx, "a1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got == nil || !got.CreatedAt.Equal(created) || got.SourceName != "a1.wav" || got.DegradedStages != 1 {
		t.Fatalf("unexpected record %#v", got)
	}
	if string(got.Document) != `{"analysis_id":"a1"}` {
		t.Fatalf("unexpected document %s", got.Document)
	}

	missing, err := st.Get(ctx, "nope")
	if err != nil || missing != nil {
		t.Fatalf("expected nil for missing id, got %#v, %v", missing, err)
	}
}

func TestSaveRejectsInvalidRecords(t *testing.T) {
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()
	if err := st.Save(ctx, record("", time.Now())); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error for blank id, got %v", err)
	}
	bad := record("x", time.Now())
	bad.Document = json.RawMessage(`{`)
	if err := st.Save(ctx, bad); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error for bad document, got %v", err)
	}
}

func TestListNewestFirstWithLimit(t *testing.T) {
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()
	base := time.Date(2026, time.October, 1, 0, 0, 0, 0, time.UTC)
	for i, id := range []string{"old", "mid", "new"} {
		if err := st.Save(ctx, record(id, base.Add(time.Duration(i)*time.Hour))); err != nil {
			t.Fatalf("Save %s: %v", id, err)
		}
	}
	list, err := st.List(ctx, 2)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 2 || list[0].ID != "new" || list[1].ID != "mid" {
		t.Fatalf("unexpected listing %+v", list)
	}
	all, err := st.List(ctx, 0)
	if err != nil || len(all) != 3 {
		t.Fatalf("expected default limit to return all 3, got %d (%v)", len(all), err)
	}
}

func TestSaveReplacesAndDelete(t *testing.T) {
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()
	rec := record("r", time.Now())
	if err := st.Save(ctx, rec); err != nil {
		t.Fatalf("Save: %v", err)
	}
	rec.Confidence = 0.3
	if err := st.Save(ctx, rec); err != nil {
		t.Fatalf("Save replace: %v", err)
	}
	if n, err := st.Count(ctx); err != nil || n != 1 {
		t.Fatalf("Count = %d, %v; want 1", n, err)
	}
	got, _ := st.Get(ctx, "r")
	if got.Confidence != 0.3 {
		t.Fatalf("expected replaced confidence, got %v", got.Confidence)
	}

	removed, err := st.Delete(ctx, "r")
	if err != nil || !removed {
		t.Fatalf("Delete = %v, %v", removed, err)
	}
	removed, err = st.Delete(ctx, "r")
	if err != nil || removed {
		t.Fatalf("second Delete = %v, %v", removed, err)
	}
}

func TestOpenRejectsSchemaMismatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	st, err := store.Open(context.Background(), path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := st.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("sql.Open: %v", err)
	}
	if _, err := db.Exec("UPDATE schema_version SET version = 99"); err != nil {
		t.Fatalf("bump version: %v", err)
	}
	_ = db.Close()

	if _, err := store.Open(context.Background(), path); !errors.Is(err, store.ErrSchemaMismatch) {
		t.Fatalf("expected schema mismatch, got %v", err)
	}
}
