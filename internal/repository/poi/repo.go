// Package poi stores points of interest as Redis hashes and searches them.
package poi

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/kailas-cloud/poisearch/internal/db"
	"github.com/kailas-cloud/poisearch/internal/domain"
	"github.com/kailas-cloud/poisearch/internal/domain/geo"
	dompoi "github.com/kailas-cloud/poisearch/internal/domain/poi"
)

// store is the consumer interface for POI persistence (ISP).
type store interface {
	SearchBool(ctx context.Context, q *db.BoolQuery) (*db.SearchResult, error)
	HSetMulti(ctx context.Context, items []db.HashSetItem) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	Del(ctx context.Context, key string) error
	CreateIndex(ctx context.Context, def *db.IndexDefinition) error
	DropIndex(ctx context.Context, name string) error
	IndexExists(ctx context.Context, name string) (bool, error)
}

// Config names the index and key layout.
type Config struct {
	Index     string
	KeyPrefix string
	Language  string
}

// Repo reads and writes POIs.
type Repo struct {
	store store
	cfg   Config
}

// New creates a POI repository.
func New(s store, cfg Config) *Repo {
	return &Repo{store: s, cfg: cfg}
}

// Search runs q against the POI index and converts hits to candidates in backend order.
// Index name and returned fields are set by the repository.
func (r *Repo) Search(ctx context.Context, q db.BoolQuery) ([]dompoi.Candidate, error) {
	q.IndexName = r.cfg.Index
	q.ReturnFields = candidateFields

	sr, err := r.store.SearchBool(ctx, &q)
	if err != nil {
		return nil, storeErr("search pois", err)
	}
	if sr == nil || len(sr.Entries) == 0 {
		return nil, nil
	}

	out := make([]dompoi.Candidate, 0, len(sr.Entries))
	for _, e := range sr.Entries {
		out = append(out, r.toCandidate(e))
	}
	return out, nil
}

// EnsureIndex creates the POI index when it does not exist. It reports whether
// an index was created.
func (r *Repo) EnsureIndex(ctx context.Context) (bool, error) {
	exists, err := r.store.IndexExists(ctx, r.cfg.Index)
	if err != nil {
		return false, fmt.Errorf("check index %s: %w", r.cfg.Index, err)
	}
	if exists {
		return false, nil
	}
	if err := r.createIndex(ctx); err != nil {
		return false, err
	}
	return true, nil
}

// RecreateIndex drops the index (keeping documents) and creates it again.
func (r *Repo) RecreateIndex(ctx context.Context) error {
	if err := r.store.DropIndex(ctx, r.cfg.Index); err != nil && !errors.Is(err, db.ErrIndexNotFound) {
		return fmt.Errorf("drop index %s: %w", r.cfg.Index, err)
	}
	return r.createIndex(ctx)
}

func (r *Repo) createIndex(ctx context.Context) error {
	def, err := IndexDefinition(r.cfg.Index, r.cfg.KeyPrefix, r.cfg.Language)
	if err != nil {
		return fmt.Errorf("build index definition: %w", err)
	}
	if err := r.store.CreateIndex(ctx, def); err != nil && !errors.Is(err, db.ErrIndexExists) {
		return fmt.Errorf("create index %s: %w", r.cfg.Index, err)
	}
	return nil
}

// Upsert writes POIs in one pipelined round-trip. Every POI is validated first;
// nothing is written if any is invalid.
func (r *Repo) Upsert(ctx context.Context, pois []dompoi.POI) error {
	items := make([]db.HashSetItem, 0, len(pois))
	for i := range pois {
		if err := pois[i].Validate(); err != nil {
			return fmt.Errorf("poi %d: %w", i, err)
		}
		items = append(items, db.HashSetItem{Key: r.key(pois[i].ID), Fields: toHash(&pois[i])})
	}
	if err := r.store.HSetMulti(ctx, items); err != nil {
		return storeErr("upsert pois", err)
	}
	return nil
}

// Get loads a single POI. A missing id yields db.ErrKeyNotFound.
func (r *Repo) Get(ctx context.Context, id string) (dompoi.POI, error) {
	fields, err := r.store.HGetAll(ctx, r.key(id))
	if err != nil {
		return dompoi.POI{}, storeErr("get poi "+id, err)
	}
	return fromHash(id, fields), nil
}

// Delete removes a POI.
func (r *Repo) Delete(ctx context.Context, id string) error {
	if err := r.store.Del(ctx, r.key(id)); err != nil {
		return storeErr("delete poi "+id, err)
	}
	return nil
}

// storeErr wraps err with msg. Unreachable-backend failures also match
// domain.ErrBackendUnavailable.
func storeErr(msg string, err error) error {
	if errors.Is(err, db.ErrUnavailable) {
		return fmt.Errorf("%s: %w: %w", msg, domain.ErrBackendUnavailable, err)
	}
	return fmt.Errorf("%s: %w", msg, err)
}

func (r *Repo) key(id string) string { return r.cfg.KeyPrefix + id }

func (r *Repo) toCandidate(e db.SearchEntry) dompoi.Candidate {
	c := dompoi.Candidate{
		ID:           strings.TrimPrefix(e.Key, r.cfg.KeyPrefix),
		Name:         e.Fields[FieldName],
		Category:     e.Fields[FieldCategory],
		Popularity:   parsePopularity(e.Fields[FieldPopularity]),
		BackendScore: math.Max(e.Score, 0),
	}
	if c.Category == "" {
		c.Category = e.Fields[FieldAmenity]
	}
	if raw, ok := e.Fields[FieldLocation]; ok {
		if p, err := geo.ParseRedis(raw); err == nil {
			c.Location = &p
		}
	}
	return c
}

func toHash(p *dompoi.POI) map[string]string {
	m := map[string]string{
		FieldName:       p.Name,
		FieldLocation:   geo.FormatRedis(p.Location),
		FieldPopularity: strconv.Itoa(p.Popularity),
	}
	setIf(m, FieldCategory, p.Category)
	setIf(m, FieldAmenity, p.Amenity)
	setIf(m, FieldAddress, p.Address)
	setIf(m, FieldKeyInfo, p.KeyInfo)
	setIf(m, FieldKeywords, strings.Join(p.Keywords, listSep))
	setIf(m, FieldKeyPhrases, strings.Join(p.KeyPhrases, phraseSep))
	setIf(m, FieldRewrites, strings.Join(p.Rewrites, phraseSep))
	setIf(m, FieldTags, strings.Join(p.Tags, listSep))
	return m
}

func fromHash(id string, m map[string]string) dompoi.POI {
	p := dompoi.POI{
		ID:         id,
		Name:       m[FieldName],
		Category:   m[FieldCategory],
		Amenity:    m[FieldAmenity],
		Popularity: parsePopularity(m[FieldPopularity]),
		Address:    m[FieldAddress],
		Keywords:   splitList(m[FieldKeywords], listSep),
		KeyPhrases: splitList(m[FieldKeyPhrases], phraseSep),
		KeyInfo:    m[FieldKeyInfo],
		Rewrites:   splitList(m[FieldRewrites], phraseSep),
		Tags:       splitList(m[FieldTags], listSep),
	}
	if loc, err := geo.ParseRedis(m[FieldLocation]); err == nil {
		p.Location = loc
	}
	return p
}

func setIf(m map[string]string, k, v string) {
	if v = strings.TrimSpace(v); v != "" {
		m[k] = v
	}
}

func splitList(s, sep string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, sep)
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// parsePopularity accepts integer or float encodings; anything else is 0.
func parsePopularity(s string) int {
	if s == "" {
		return 0
	}
	if n, err := strconv.Atoi(s); err == nil {
		return max(n, 0)
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && f > 0 && !math.IsInf(f, 0) {
		return int(f)
	}
	return 0
}
