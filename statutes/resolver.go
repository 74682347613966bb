// Package statutes holds the read-only statute reference table used to turn
// (section, act) pairs into offence titles.
package statutes

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"casedb-backend/models"
	"casedb-backend/storage"
)

const (
	columnKey   = "section_statute"
	columnTitle = "offence_title"
)

// ErrBadTable is returned when the reference CSV lacks a required column.
var ErrBadTable = errors.New("statute table missing required column")

// Resolver looks up offence titles by normalised "<section> <act>" key. It is
// never written after Load, so concurrent lookups need no locking.
type Resolver struct {
	titles  map[string]string
	entries []models.StatuteEntry
}

// New builds a resolver from in-memory entries.
func New(entries []models.StatuteEntry) *Resolver {
	r := &Resolver{titles: make(map[string]string, len(entries))}
	for _, e := range entries {
		r.add(e)
	}
	return r
}

// Load reads a CSV with section_statute and offence_title columns.
func Load(rd io.Reader) (*Resolver, error) {
	cr := csv.NewReader(rd)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read statute header: %w", err)
	}
	keyIdx, titleIdx := -1, -1
	for i, h := range header {
		switch strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")) {
		case columnKey:
			keyIdx = i
		case columnTitle:
			titleIdx = i
		}
	}
	if keyIdx < 0 || titleIdx < 0 {
		return nil, fmt.Errorf("%w: need %s and %s", ErrBadTable, columnKey, columnTitle)
	}

	r := &Resolver{titles: make(map[string]string)}
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read statute row: %w", err)
		}
		if keyIdx >= len(row) || titleIdx >= len(row) {
			continue
		}
		key := normalizeKey(row[keyIdx])
		title := strings.TrimSpace(row[titleIdx])
		if key == "" || title == "" {
			continue
		}
		section, act, _ := strings.Cut(key, " ")
		r.add(models.StatuteEntry{Ref: models.StatuteRef{Section: section, Act: act}, OffenceTitle: title})
	}
	return r, nil
}

// LoadFromStorage reads the reference table from blob storage.
func LoadFromStorage(ctx context.Context, store storage.Storage, key string) (*Resolver, error) {
	rc, err := store.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("open statute table %s: %w", key, err)
	}
	defer rc.Close()
	return Load(rc)
}

func (r *Resolver) add(e models.StatuteEntry) {
	key := e.Ref.Key()
	if _, ok := r.titles[key]; ok {
		return
	}
	r.titles[key] = e.OffenceTitle
	r.entries = append(r.entries, e)
}

// Resolve returns the offence title for an exact key match.
func (r *Resolver) Resolve(ref models.StatuteRef) (string, bool) {
	title, ok := r.titles[ref.Key()]
	return title, ok
}

// Len returns the number of entries.
func (r *Resolver) Len() int { return len(r.entries) }

// Entries returns the entries in load order.
func (r *Resolver) Entries() []models.StatuteEntry {
	return append([]models.StatuteEntry(nil), r.entries...)
}

func normalizeKey(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
