package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/kailas-cloud/poisearch/internal/domain/geo"
	dompoi "github.com/kailas-cloud/poisearch/internal/domain/poi"
)

const (
	defaultBatchSize = 100
	maxLineBytes     = 1 << 20
)

// record is one input line.
type record struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Lat        *float64 `json:"lat"`
	Lon        *float64 `json:"lon"`
	Category   string   `json:"category"`
	Amenity    string   `json:"amenity"`
	Popularity int      `json:"popularity"`
	Address    string   `json:"address"`
	Keywords   []string `json:"keywords"`
	KeyPhrases []string `json:"key_phrases"`
	KeyInfo    string   `json:"key_info"`
	Rewrites   []string `json:"rewrites"`
	Tags       []string `json:"tags"`
}

func (r *record) toPOI() (dompoi.POI, error) {
	if r.Lat == nil || r.Lon == nil {
		return dompoi.POI{}, errors.New("lat and lon are required")
	}
	p := dompoi.POI{
		ID:         r.ID,
		Name:       r.Name,
		Location:   geo.Point{Lat: *r.Lat, Lon: *r.Lon},
		Category:   r.Category,
		Amenity:    r.Amenity,
		Popularity: r.Popularity,
		Address:    r.Address,
		Keywords:   r.Keywords,
		KeyPhrases: r.KeyPhrases,
		KeyInfo:    r.KeyInfo,
		Rewrites:   r.Rewrites,
		Tags:       r.Tags,
	}
	if err := p.Validate(); err != nil {
		return dompoi.POI{}, err
	}
	return p, nil
}

// poiEnricher fills missing recall metadata before a POI is written.
type poiEnricher interface {
	Enrich(ctx context.Context, p dompoi.POI) (dompoi.POI, error)
}

// importStats counts what importRecords did.
type importStats struct {
	Lines        int
	Imported     int
	Skipped      int
	EnrichFailed int
}

// importRecords streams JSON lines from in and upserts valid POIs in batches.
// Blank lines are ignored; malformed or invalid ones are logged and skipped.
// A write failure stops the import. When enr is set, each POI is enriched
// first; an enrichment failure is logged and the POI is stored as read.
func importRecords(
	ctx context.Context,
	in io.Reader,
	w poiStore,
	enr poiEnricher,
	batchSize int,
	logger *zap.Logger,
) (importStats, error) {
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}

	var stats importStats
	batch := make([]dompoi.POI, 0, batchSize)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := w.Upsert(ctx, batch); err != nil {
			return fmt.Errorf("upsert batch ending at line %d: %w", stats.Lines, err)
		}
		stats.Imported += len(batch)
		batch = batch[:0]
		return nil
	}

	sc := bufio.NewScanner(in)
	sc.Buffer(make([]byte, 0, 64<<10), maxLineBytes)
	for sc.Scan() {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		stats.Lines++

		line := bytes.TrimSpace(sc.Bytes())
		if len(line) == 0 {
			continue
		}

		var rec record
		if err := json.Unmarshal(line, &rec); err != nil {
			stats.Skipped++
			logger.Warn("skipping malformed line", zap.Int("line", stats.Lines), zap.Error(err))
			continue
		}
		p, err := rec.toPOI()
		if err != nil {
			stats.Skipped++
			logger.Warn("skipping invalid poi", zap.Int("line", stats.Lines), zap.Error(err))
			continue
		}
		if enr != nil {
			enriched, err := enr.Enrich(ctx, p)
			if err != nil {
				if ctx.Err() != nil {
					return stats, ctx.Err()
				}
				stats.EnrichFailed++
				logger.Warn("enrichment failed, storing poi as read", zap.Int("line", stats.Lines), zap.Error(err))
			} else {
				p = enriched
			}
		}

		batch = append(batch, p)
		if len(batch) >= batchSize {
			if err := flush(); err != nil {
				return stats, err
			}
		}
	}
	if err := sc.Err(); err != nil {
		return stats, fmt.Errorf("read input: %w", err)
	}
	return stats, flush()
}
