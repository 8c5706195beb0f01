package poi

import (
	"context"
	"errors"
	"reflect"
	"slices"
	"testing"

	"github.com/kailas-cloud/poisearch/internal/db"
	"github.com/kailas-cloud/poisearch/internal/domain"
	"github.com/kailas-cloud/poisearch/internal/domain/geo"
	dompoi "github.com/kailas-cloud/poisearch/internal/domain/poi"
)

// --- Search ---

func TestSearch_HappyPath(t *testing.T) {
	repo, ms := newTestRepo(t)

	ms.searchBoolFn = func(_ context.Context, q *db.BoolQuery) (*db.SearchResult, error) {
		if q.IndexName != "poi:idx" {
			t.Errorf("unexpected index: %s", q.IndexName)
		}
		if !slices.Equal(q.ReturnFields, candidateFields) {
			t.Errorf("unexpected return fields: %v", q.ReturnFields)
		}
		return &db.SearchResult{
			Total: 3,
			Entries: []db.SearchEntry{
				{
					Key:   "poi:n1",
					Score: 4.5,
					Fields: map[string]string{
						"name":       "Bund Coffee",
						"location":   "121.49,31.24",
						"category":   "cafe",
						"popularity": "42",
					},
				},
				{
					Key:   "poi:n2",
					Score: 1,
					Fields: map[string]string{
						"name":       "Corner",
						"amenity":    "restaurant",
						"popularity": "7.0",
					},
				},
				{
					Key:    "poi:n3",
					Score:  -1,
					Fields: map[string]string{"location": "garbage", "popularity": "-3"},
				},
			},
		}, nil
	}

	got, err := repo.Search(context.Background(), db.BoolQuery{Size: 10})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 candidates, got %d", len(got))
	}

	c := got[0]
	if c.ID != "n1" || c.Name != "Bund Coffee" || c.Category != "cafe" || c.Popularity != 42 || c.BackendScore != 4.5 {
		t.Errorf("unexpected first candidate: %+v", c)
	}
	if c.Location == nil || c.Location.Lat != 31.24 || c.Location.Lon != 121.49 {
		t.Errorf("unexpected location: %v", c.Location)
	}

	if got[1].Category != "restaurant" {
		t.Errorf("expected amenity fallback for category, got %q", got[1].Category)
	}
	if got[1].Popularity != 7 {
		t.Errorf("expected float popularity parsed, got %d", got[1].Popularity)
	}
	if got[1].Location != nil {
		t.Errorf("expected nil location, got %v", got[1].Location)
	}

	if got[2].Location != nil || got[2].Popularity != 0 || got[2].BackendScore != 0 {
		t.Errorf("expected sanitized third candidate, got %+v", got[2])
	}
}

func TestSearch_DoesNotMutateCallerQuery(t *testing.T) {
	repo, _ := newTestRepo(t)
	q := db.BoolQuery{Size: 5}

	if _, err := repo.Search(context.Background(), q); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if q.IndexName != "" || q.ReturnFields != nil {
		t.Errorf("caller query mutated: %+v", q)
	}
}

func TestSearch_StoreError(t *testing.T) {
	repo, ms := newTestRepo(t)
	ms.searchBoolFn = func(context.Context, *db.BoolQuery) (*db.SearchResult, error) {
		return nil, db.ErrIndexNotFound
	}

	_, err := repo.Search(context.Background(), db.BoolQuery{})
	if !errors.Is(err, db.ErrIndexNotFound) {
		t.Fatalf("expected ErrIndexNotFound, got %v", err)
	}
}

func TestStoreErrors_BackendUnavailable(t *testing.T) {
	down := &db.Error{Op: db.OpHGetAll, Err: errors.New("connection refused"), Unavailable: true}
	serverErr := &db.Error{Op: db.OpHGetAll, Err: errors.New("WRONGTYPE")}

	repo, ms := newTestRepo(t)
	ms.hgetAllFn = func(context.Context, string) (map[string]string, error) { return nil, down }
	ms.searchBoolFn = func(context.Context, *db.BoolQuery) (*db.SearchResult, error) { return nil, down }

	if _, err := repo.Get(context.Background(), "p1"); !errors.Is(err, domain.ErrBackendUnavailable) {
		t.Errorf("get: expected ErrBackendUnavailable, got %v", err)
	}
	if _, err := repo.Search(context.Background(), db.BoolQuery{}); !errors.Is(err, domain.ErrBackendUnavailable) {
		t.Errorf("search: expected ErrBackendUnavailable, got %v", err)
	}

	ms.hgetAllFn = func(context.Context, string) (map[string]string, error) { return nil, serverErr }
	_, err := repo.Get(context.Background(), "p1")
	if errors.Is(err, domain.ErrBackendUnavailable) {
		t.Errorf("server error must not map to unavailable: %v", err)
	}
	if !errors.Is(err, serverErr) {
		t.Errorf("expected wrapped db error, got %v", err)
	}
}

func TestSearch_Empty(t *testing.T) {
	repo, _ := newTestRepo(t)

	got, err := repo.Search(context.Background(), db.BoolQuery{})
	if err != nil || got != nil {
		t.Fatalf("expected nil, nil; got %v, %v", got, err)
	}
}

// --- Index lifecycle ---

func TestEnsureIndex_Creates(t *testing.T) {
	repo, ms := newTestRepo(t)
	var created *db.IndexDefinition
	ms.createIndexFn = func(_ context.Context, def *db.IndexDefinition) error {
		created = def
		return nil
	}

	ok, err := repo.EnsureIndex(context.Background())
	if err != nil || !ok {
		t.Fatalf("expected created, got %v, %v", ok, err)
	}
	if created == nil || created.Name != "poi:idx" || !slices.Equal(created.Prefixes, []string{"poi:"}) {
		t.Fatalf("unexpected definition: %+v", created)
	}

	types := map[string]db.IndexFieldType{}
	for _, f := range created.Fields {
		types[f.Name] = f.Type
	}
	if types["location"] != db.IndexFieldGeo || types["amenity"] != db.IndexFieldTag ||
		types["popularity"] != db.IndexFieldNumeric || types["key_phrases"] != db.IndexFieldText {
		t.Errorf("unexpected schema: %v", types)
	}
}

func TestEnsureIndex_Exists(t *testing.T) {
	repo, ms := newTestRepo(t)
	ms.indexExistsFn = func(context.Context, string) (bool, error) { return true, nil }
	ms.createIndexFn = func(context.Context, *db.IndexDefinition) error {
		t.Error("CreateIndex must not be called")
		return nil
	}

	ok, err := repo.EnsureIndex(context.Background())
	if err != nil || ok {
		t.Fatalf("expected not created, got %v, %v", ok, err)
	}
}

func TestRecreateIndex_IgnoresMissing(t *testing.T) {
	repo, ms := newTestRepo(t)
	ms.dropIndexFn = func(context.Context, string) error { return db.ErrIndexNotFound }
	calls := 0
	ms.createIndexFn = func(context.Context, *db.IndexDefinition) error {
		calls++
		return nil
	}

	if err := repo.RecreateIndex(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 1 {
		t.Errorf("expected 1 create, got %d", calls)
	}
}

func TestIndexDefinition_Language(t *testing.T) {
	def, err := IndexDefinition("poi:idx", "poi:", "chinese")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if def.Language != "chinese" {
		t.Errorf("expected chinese, got %q", def.Language)
	}
}

// --- Upsert / Get / Delete ---

func samplePOI() dompoi.POI {
	return dompoi.POI{
		ID:         "n1",
		Name:       "Bund Coffee",
		Location:   geo.Point{Lat: 31.24, Lon: 121.49},
		Category:   "cafe",
		Amenity:    "cafe",
		Popularity: 42,
		Address:    "1 Zhongshan Rd",
		Keywords:   []string{"coffee", "wifi"},
		KeyPhrases: []string{"river view", "free wifi"},
		KeyInfo:    "Cafe on the Bund",
		Rewrites:   []string{"bund cafe"},
		Tags:       []string{"outdoor_seating"},
	}
}

func TestUpsert(t *testing.T) {
	repo, ms := newTestRepo(t)
	var items []db.HashSetItem
	ms.hsetMultiFn = func(_ context.Context, it []db.HashSetItem) error {
		items = it
		return nil
	}

	if err := repo.Upsert(context.Background(), []dompoi.POI{samplePOI()}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(items) != 1 || items[0].Key != "poi:n1" {
		t.Fatalf("unexpected items: %+v", items)
	}
	f := items[0].Fields
	if f["location"] != "121.49,31.24" || f["popularity"] != "42" || f["key_phrases"] != "river view; free wifi" {
		t.Errorf("unexpected fields: %v", f)
	}
}

func TestUpsert_ValidationStopsWrite(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(p *dompoi.POI)
	}{
		{"missing id", func(p *dompoi.POI) { p.ID = " " }},
		{"missing name", func(p *dompoi.POI) { p.Name = "" }},
		{"bad latitude", func(p *dompoi.POI) { p.Location.Lat = 91 }},
		{"negative popularity", func(p *dompoi.POI) { p.Popularity = -1 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, ms := newTestRepo(t)
			ms.hsetMultiFn = func(context.Context, []db.HashSetItem) error {
				t.Error("HSetMulti must not be called")
				return nil
			}
			bad := samplePOI()
			tt.mutate(&bad)
			if err := repo.Upsert(context.Background(), []dompoi.POI{samplePOI(), bad}); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestGet_RoundTrip(t *testing.T) {
	repo, ms := newTestRepo(t)
	var stored map[string]string
	ms.hsetMultiFn = func(_ context.Context, it []db.HashSetItem) error {
		stored = it[0].Fields
		return nil
	}
	ms.hgetAllFn = func(_ context.Context, key string) (map[string]string, error) {
		if key != "poi:n1" {
			return nil, db.ErrKeyNotFound
		}
		return stored, nil
	}

	want := samplePOI()
	if err := repo.Upsert(context.Background(), []dompoi.POI{want}); err != nil {
		t.Fatal(err)
	}
	got, err := repo.Get(context.Background(), "n1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("round trip mismatch:\ngot:  %+v\nwant: %+v", got, want)
	}

	if _, err := repo.Get(context.Background(), "missing"); !errors.Is(err, db.ErrKeyNotFound) {
		t.Errorf("expected ErrKeyNotFound, got %v", err)
	}
}

func TestDelete(t *testing.T) {
	repo, ms := newTestRepo(t)
	var deleted string
	ms.delFn = func(_ context.Context, key string) error {
		deleted = key
		return nil
	}

	if err := repo.Delete(context.Background(), "n1"); err != nil {
		t.Fatal(err)
	}
	if deleted != "poi:n1" {
		t.Errorf("expected poi:n1, got %q", deleted)
	}
}
