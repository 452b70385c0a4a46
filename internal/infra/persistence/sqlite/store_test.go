package sqlite

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"simcore/pkg/model"
	"simcore/pkg/query"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	n := 0
	s, err := NewStore(filepath.Join(t.TempDir(), "test.db"), WithIDGenerator(func() string {
		n++
		return fmt.Sprintf("G%d", n)
	}))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Errorf("close: %v", err)
		}
	})
	return s
}

func ingestFixture(t *testing.T, s *Store) {
	t.Helper()
	doc := model.NewDocument()

	run := model.NewRun(model.LocalID("the_run"), "hydro", "2.1", "jdoe")
	run.Data().Set(model.NewScalar("final_volume", 15).WithUnits("cc").WithTags("output"))
	run.Data().Set(model.NewText("source", "experiment"))
	run.Data().Set(model.NewTextList("stages", []string{"setup", "solve"}))
	run.AddFile(model.NewFile("mesh/input.silo").WithMimeType("application/x-silo"))
	doc.AddRecord(run)

	msub := model.NewRecord(model.LocalID("the_msub"), "msub")
	msub.Data().Set(model.NewScalar("final_volume", 30))
	msub.Data().Set(model.NewScalarList("timesteps", []float64{0, 1, 2}))
	msub.AddFile(model.NewFile("mesh/input.silo"))
	msub.AddFile(model.NewFile("out/log.txt").WithTags("log"))
	doc.AddRecord(msub)

	doc.AddRelationship(model.NewRelationship(
		model.LocalID("the_msub"), "submitted", model.LocalID("the_run")))

	if _, err := s.IngestDocument(context.Background(), doc); err != nil {
		t.Fatalf("ingest: %v", err)
	}
}

func TestIngestAndGetRecord(t *testing.T) {
	s := newTestStore(t)
	ingestFixture(t, s)
	ctx := context.Background()

	rec, err := s.GetRecord(ctx, "G1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	run, ok := rec.(*model.Run)
	if !ok {
		t.Fatalf("loader lost the subtype: %T", rec)
	}
	if run.Application() != "hydro" || run.Version() != "2.1" {
		t.Fatalf("run = %q %q", run.Application(), run.Version())
	}
	if d, ok := run.Data().Get("final_volume"); !ok || d.Units() != "cc" {
		t.Fatalf("datum lost: %v %v", d, ok)
	}

	_, err = s.GetRecord(ctx, "nope")
	var nf model.NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestIngestRollsBackOnDuplicate(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	doc := model.NewDocument()
	doc.AddRecord(model.NewRecord(model.GlobalID("dup"), "t"))
	if _, err := s.IngestDocument(ctx, doc); err != nil {
		t.Fatalf("first ingest: %v", err)
	}

	again := model.NewDocument()
	fresh := model.NewRecord(model.GlobalID("fresh"), "t")
	again.AddRecord(fresh)
	again.AddRecord(model.NewRecord(model.GlobalID("dup"), "t"))
	if _, err := s.IngestDocument(ctx, again); err == nil {
		t.Fatalf("duplicate id must fail")
	}
	// The whole document rolls back, including the non-conflicting record.
	if _, err := s.GetRecord(ctx, "fresh"); err == nil {
		t.Fatalf("partial ingest persisted")
	}
}

func TestRecordsOfTypeOrdering(t *testing.T) {
	s := newTestStore(t)
	ingestFixture(t, s)
	recs, err := s.RecordsOfType(context.Background(), "msub")
	if err != nil {
		t.Fatalf("records of type: %v", err)
	}
	if len(recs) != 1 || recs[0].ID().Value() != "G2" {
		t.Fatalf("msubs = %v", recs)
	}
}

func TestRecordsWithFileURILike(t *testing.T) {
	s := newTestStore(t)
	ingestFixture(t, s)
	ctx := context.Background()

	exact, err := s.RecordsWithFileURI(ctx, "mesh/input.silo")
	if err != nil {
		t.Fatalf("exact: %v", err)
	}
	if len(exact) != 2 || exact[0] != "G1" || exact[1] != "G2" {
		t.Fatalf("exact ids = %v", exact)
	}
	wild, err := s.RecordsWithFileURI(ctx, "out/%")
	if err != nil {
		t.Fatalf("wildcard: %v", err)
	}
	if len(wild) != 1 || wild[0] != "G2" {
		t.Fatalf("wildcard ids = %v", wild)
	}
}

func TestRecordsMatchingSQL(t *testing.T) {
	s := newTestStore(t)
	ingestFixture(t, s)
	ctx := context.Background()

	cases := []struct {
		name     string
		criteria []query.Criterion
		want     []string
	}{
		{
			"all records on empty criteria",
			nil,
			[]string{"G1", "G2"},
		},
		{
			"half open scalar range",
			[]query.Criterion{query.WithScalarRange("final_volume", query.ScalarRange{
				Min: ptr(15.0), MinInclusive: true,
			})},
			[]string{"G1", "G2"},
		},
		{
			"exclusive bound",
			[]query.Criterion{query.WithScalarRange("final_volume", query.ScalarRange{
				Min: ptr(15.0),
			})},
			[]string{"G2"},
		},
		{
			"string equality",
			[]query.Criterion{query.WithStringRange("source", query.StringEquals("experiment"))},
			[]string{"G1"},
		},
		{
			"string list has_all",
			[]query.Criterion{query.WithStringList("stages", query.HasAll, "solve", "setup")},
			[]string{"G1"},
		},
		{
			"scalar list has_any",
			[]query.Criterion{query.WithScalarList("timesteps", query.HasAny, 99, 1)},
			[]string{"G2"},
		},
		{
			"scalar list has_only",
			[]query.Criterion{query.WithScalarList("timesteps", query.HasOnly, 0, 1, 2)},
			[]string{"G2"},
		},
		{
			"has_only rejects subset",
			[]query.Criterion{query.WithScalarList("timesteps", query.HasOnly, 0, 1)},
			nil,
		},
		{
			"has_all ignores duplicate wanted values",
			[]query.Criterion{query.WithScalarList("timesteps", query.HasAll, 1, 1)},
			[]string{"G2"},
		},
		{
			"has_only ignores duplicate wanted values",
			[]query.Criterion{query.WithScalarList("timesteps", query.HasOnly, 0, 0, 1, 2)},
			[]string{"G2"},
		},
		{
			"intersection across kinds",
			[]query.Criterion{
				query.WithScalarRange("final_volume", query.ScalarEquals(15)),
				query.WithStringRange("source", query.StringEquals("experiment")),
			},
			[]string{"G1"},
		},
		{
			"plain scalar not matched by list criterion",
			[]query.Criterion{query.WithScalarList("final_volume", query.HasAny, 15)},
			nil,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := s.RecordsMatching(ctx, tc.criteria)
			if err != nil {
				t.Fatalf("match: %v", err)
			}
			if len(got) != len(tc.want) {
				t.Fatalf("ids = %v, want %v", got, tc.want)
			}
			for i := range got {
				if got[i] != tc.want[i] {
					t.Fatalf("ids = %v, want %v", got, tc.want)
				}
			}
		})
	}
}

func TestRelationshipsFilterSQL(t *testing.T) {
	s := newTestStore(t)
	ingestFixture(t, s)
	ctx := context.Background()

	all, err := s.Relationships(ctx, "", "", "")
	if err != nil || len(all) != 1 {
		t.Fatalf("all: %v %v", all, err)
	}
	if all[0].Subject().Value() != "G2" || all[0].Predicate() != "submitted" || all[0].Object().Value() != "G1" {
		t.Fatalf("relationship = %+v", all[0])
	}
	none, err := s.Relationships(ctx, "G1", "submitted", "")
	if err != nil || len(none) != 0 {
		t.Fatalf("no match expected: %v %v", none, err)
	}
}

func TestExportDocumentSQL(t *testing.T) {
	s := newTestStore(t)
	ingestFixture(t, s)

	doc, err := s.ExportDocument(context.Background(), []string{"G2"})
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if len(doc.Records()) != 1 || len(doc.Relationships()) != 1 {
		t.Fatalf("exported %d records %d relationships",
			len(doc.Records()), len(doc.Relationships()))
	}
}

func TestReopenPersists(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "persist.db")

	s, err := NewStore(path, WithIDGenerator(func() string { return "only" }))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	doc := model.NewDocument()
	run := model.NewRun(model.LocalID("r"), "hydro", "", "")
	doc.AddRecord(run)
	if _, err := s.IngestDocument(context.Background(), doc); err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	reopened, err := NewStore(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer func() { _ = reopened.Close() }()
	rec, err := reopened.GetRecord(context.Background(), "only")
	if err != nil {
		t.Fatalf("get after reopen: %v", err)
	}
	if _, ok := rec.(*model.Run); !ok {
		t.Fatalf("subtype lost across reopen: %T", rec)
	}
}

func ptr(v float64) *float64 { return &v }
