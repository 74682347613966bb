package repository

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path"

	"casedb-backend/models"
	"casedb-backend/storage"
)

const (
	DefaultDatasetKey = "data/database.csv"
	DefaultFreshKey   = "data/database_temp.csv"
)

// CSVDatasetRepository keeps the case dataset as CSV tables in blob storage
type CSVDatasetRepository struct {
	store    storage.Storage
	fullKey  string
	freshKey string
}

// NewCSVDatasetRepository creates a new CSV dataset repository
func NewCSVDatasetRepository(store storage.Storage) *CSVDatasetRepository {
	return &CSVDatasetRepository{store: store, fullKey: DefaultDatasetKey, freshKey: DefaultFreshKey}
}

// Load reads the full dataset. A missing table is an empty dataset.
func (r *CSVDatasetRepository) Load(ctx context.Context) (*models.Dataset, error) {
	rc, err := r.store.Get(ctx, r.fullKey)
	if errors.Is(err, storage.ErrNotFound) {
		return &models.Dataset{Records: []models.CaseRecord{}}, nil
	}
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	records, err := ReadCases(rc)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", r.fullKey, err)
	}
	return &models.Dataset{Records: records}, nil
}

// Save writes the records added by this run, then the full dataset. Each
// table is replaced whole.
func (r *CSVDatasetRepository) Save(ctx context.Context, full *models.Dataset, fresh []models.CaseRecord) error {
	if err := r.put(ctx, r.freshKey, fresh); err != nil {
		return err
	}
	return r.put(ctx, r.fullKey, full.Records)
}

func (r *CSVDatasetRepository) put(ctx context.Context, key string, records []models.CaseRecord) error {
	var buf bytes.Buffer
	if err := WriteCases(&buf, records); err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := r.store.Put(ctx, key, &buf); err != nil {
		return fmt.Errorf("store %s: %w", key, err)
	}
	return nil
}

// CSVListingRepository keeps the per-court listings as CSV tables
type CSVListingRepository struct {
	store storage.Storage
	dir   string
}

// NewCSVListingRepository creates a new CSV listing repository
func NewCSVListingRepository(store storage.Storage) *CSVListingRepository {
	return &CSVListingRepository{store: store, dir: "data"}
}

func (r *CSVListingRepository) listingKey(court models.Court) string {
	return path.Join(r.dir, string(court)+"court.csv")
}

func (r *CSVListingRepository) compiledKey(court models.Court) string {
	return path.Join(r.dir, string(court)+"court_compiled.csv")
}

// LoadListing reads the latest raw listing for a court.
func (r *CSVListingRepository) LoadListing(ctx context.Context, court models.Court) ([]models.ListingRow, error) {
	return r.load(ctx, r.listingKey(court), court)
}

// LoadCompiled reads the compiled listing for a court. A missing table is
// empty.
func (r *CSVListingRepository) LoadCompiled(ctx context.Context, court models.Court) ([]models.ListingRow, error) {
	return r.load(ctx, r.compiledKey(court), court)
}

// SaveListing writes the new slice and the compiled listing for a court.
func (r *CSVListingRepository) SaveListing(ctx context.Context, court models.Court, fresh, compiled []models.ListingRow) error {
	if err := r.put(ctx, r.listingKey(court), fresh); err != nil {
		return err
	}
	return r.put(ctx, r.compiledKey(court), compiled)
}

func (r *CSVListingRepository) load(ctx context.Context, key string, court models.Court) ([]models.ListingRow, error) {
	rc, err := r.store.Get(ctx, key)
	if errors.Is(err, storage.ErrNotFound) {
		return []models.ListingRow{}, nil
	}
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	rows, err := ReadListing(rc, court)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", key, err)
	}
	return rows, nil
}

func (r *CSVListingRepository) put(ctx context.Context, key string, rows []models.ListingRow) error {
	var buf bytes.Buffer
	if err := WriteListing(&buf, rows); err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := r.store.Put(ctx, key, &buf); err != nil {
		return fmt.Errorf("store %s: %w", key, err)
	}
	return nil
}
