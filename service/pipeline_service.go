package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"casedb-backend/document"
	"casedb-backend/extract"
	"casedb-backend/merge"
	"casedb-backend/models"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

var (
	ErrDatasetStoreNotSet   = errors.New("dataset store not set")
	ErrListingStoreNotSet   = errors.New("listing store not set")
	ErrDocumentSourceNotSet = errors.New("document source not set")
	ErrResolverNotSet       = errors.New("statute resolver not set")
)

const (
	DefaultConcurrency     = 4
	DefaultDocumentTimeout = 30 * time.Second

	// criminal judgments are listed with the prosecution as a party
	criminalMarker = "public prosecutor"
)

// DatasetStore persists the case dataset
type DatasetStore interface {
	Load(ctx context.Context) (*models.Dataset, error)
	Save(ctx context.Context, full *models.Dataset, fresh []models.CaseRecord) error
}

// ListingStore persists the per-court listings
type ListingStore interface {
	LoadListing(ctx context.Context, court models.Court) ([]models.ListingRow, error)
	LoadCompiled(ctx context.Context, court models.Court) ([]models.ListingRow, error)
	SaveListing(ctx context.Context, court models.Court, fresh, compiled []models.ListingRow) error
}

// RunRecorder records processing runs
type RunRecorder interface {
	Create(ctx context.Context, run *models.ProcessingRun) error
	UpdateProgress(ctx context.Context, run *models.ProcessingRun) error
	Complete(ctx context.Context, id uuid.UUID) error
	Fail(ctx context.Context, id uuid.UUID, errorMessage string) error
}

// PipelineService extracts new judgments for a court and merges them into
// the dataset
type PipelineService struct {
	datasets      DatasetStore
	listings      ListingStore
	source        DocumentSource
	resolver      extract.Resolver
	runs          RunRecorder
	logger        *slog.Logger
	concurrency   int
	docTimeout    time.Duration
	criminalOnly  bool
	maxCandidates int

	// serialises merge and save
	mu sync.Mutex
}

// PipelineServiceOption is a functional option for PipelineService
type PipelineServiceOption func(*PipelineService)

// WithDatasetStore sets the dataset store
func WithDatasetStore(store DatasetStore) PipelineServiceOption {
	return func(s *PipelineService) {
		s.datasets = store
	}
}

// WithListingStore sets the listing store
func WithListingStore(store ListingStore) PipelineServiceOption {
	return func(s *PipelineService) {
		s.listings = store
	}
}

// WithDocumentSource sets where judgment pages are read from
func WithDocumentSource(source DocumentSource) PipelineServiceOption {
	return func(s *PipelineService) {
		s.source = source
	}
}

// WithResolver sets the statute resolver
func WithResolver(resolver extract.Resolver) PipelineServiceOption {
	return func(s *PipelineService) {
		s.resolver = resolver
	}
}

// WithRunRecorder records each run
func WithRunRecorder(runs RunRecorder) PipelineServiceOption {
	return func(s *PipelineService) {
		s.runs = runs
	}
}

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) PipelineServiceOption {
	return func(s *PipelineService) {
		s.logger = logger
	}
}

// WithConcurrency bounds the number of documents extracted at once
func WithConcurrency(n int) PipelineServiceOption {
	return func(s *PipelineService) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// WithDocumentTimeout bounds fetching and extracting one document
func WithDocumentTimeout(d time.Duration) PipelineServiceOption {
	return func(s *PipelineService) {
		if d > 0 {
			s.docTimeout = d
		}
	}
}

// WithCriminalOnly keeps only listing rows naming the Public Prosecutor
func WithCriminalOnly(on bool) PipelineServiceOption {
	return func(s *PipelineService) {
		s.criminalOnly = on
	}
}

// WithMaxCandidates bounds the unresolved statute pairs kept per document
func WithMaxCandidates(n int) PipelineServiceOption {
	return func(s *PipelineService) {
		s.maxCandidates = n
	}
}

// NewPipelineService creates a new pipeline service
func NewPipelineService(opts ...PipelineServiceOption) *PipelineService {
	s := &PipelineService{
		logger:        slog.Default(),
		concurrency:   DefaultConcurrency,
		docTimeout:    DefaultDocumentTimeout,
		maxCandidates: extract.DefaultMaxCandidates,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *PipelineService) assembler() (*extract.Assembler, error) {
	if s.resolver == nil {
		return nil, ErrResolverNotSet
	}
	return extract.NewAssembler(extract.DefaultExtractors(s.resolver, s.maxCandidates)...)
}

// ProcessCourtRequest represents a request to process a court's listing
type ProcessCourtRequest struct {
	Court string
	// Listing overrides the stored raw listing when non-nil
	Listing []models.ListingRow
}

// ProcessCourtResult represents the result of processing a court
type ProcessCourtResult struct {
	RunID   uuid.UUID
	Court   models.Court
	Counts  models.RunCounts
	Added   []models.CaseRecord
	Dataset *models.Dataset
}

// ProcessCourt computes the new listing slice for a court, extracts every
// judgment not yet in the dataset and merges the records. Nothing is written
// unless the whole run succeeds.
func (s *PipelineService) ProcessCourt(ctx context.Context, req ProcessCourtRequest) (*ProcessCourtResult, error) {
	court, err := models.ParseCourt(req.Court)
	if err != nil {
		return nil, err
	}
	switch {
	case s.datasets == nil:
		return nil, ErrDatasetStoreNotSet
	case s.listings == nil:
		return nil, ErrListingStoreNotSet
	case s.source == nil:
		return nil, ErrDocumentSourceNotSet
	}
	asm, err := s.assembler()
	if err != nil {
		return nil, err
	}

	run := s.startRun(ctx, court)
	logger := s.logger.With("court", court, "run_id", run.ID)

	result, err := s.processCourt(ctx, court, req.Listing, asm, run, logger)
	if err != nil {
		s.failRun(ctx, run, err, logger)
		return nil, err
	}
	s.completeRun(ctx, run, logger)
	result.RunID = run.ID
	return result, nil
}

func (s *PipelineService) processCourt(ctx context.Context, court models.Court, listing []models.ListingRow,
	asm *extract.Assembler, run *models.ProcessingRun, logger *slog.Logger,
) (*ProcessCourtResult, error) {
	s.step(ctx, run, "listing", "in_progress", "")
	if listing == nil {
		var err error
		listing, err = s.listings.LoadListing(ctx, court)
		if err != nil {
			return nil, fmt.Errorf("load listing: %w", err)
		}
	}
	listing = s.filterListing(listing, court)
	run.Counts.Listed = len(listing)

	compiled, err := s.listings.LoadCompiled(ctx, court)
	if err != nil {
		return nil, fmt.Errorf("load compiled listing: %w", err)
	}
	slice := merge.NewSlice(listing, compiled)
	compiled = merge.CompileListing(compiled, slice)
	run.Counts.New = len(slice)
	s.step(ctx, run, "listing", "completed", fmt.Sprintf("%d new of %d listed", len(slice), len(listing)))

	dataset, err := s.datasets.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load dataset: %w", err)
	}
	pending := merge.Pending(compiled, dataset, court)
	run.Counts.Pending = len(pending)
	logger.Info("processing judgments", "listed", len(listing), "new", len(slice), "pending", len(pending))

	s.step(ctx, run, "extract", "in_progress", "")
	records, skipped, err := s.extractAll(ctx, asm, pending, logger)
	if err != nil {
		return nil, err
	}
	run.Counts.Processed = len(records)
	run.Counts.Skipped = skipped
	s.step(ctx, run, "extract", "completed", fmt.Sprintf("%d extracted, %d skipped", len(records), skipped))

	s.step(ctx, run, "merge", "in_progress", "")
	s.mu.Lock()
	defer s.mu.Unlock()

	stats := merge.Merge(dataset, records)
	run.Counts.Added = stats.Added
	run.Counts.Duplicate = stats.Duplicate

	added := addedRecords(records, dataset)
	if err := s.datasets.Save(ctx, dataset, added); err != nil {
		return nil, fmt.Errorf("save dataset: %w", err)
	}
	if err := s.listings.SaveListing(ctx, court, slice, compiled); err != nil {
		return nil, fmt.Errorf("save listing: %w", err)
	}
	s.step(ctx, run, "merge", "completed", fmt.Sprintf("%d added, %d duplicate", stats.Added, stats.Duplicate))

	logger.Info("court processed",
		"added", stats.Added, "duplicate", stats.Duplicate, "skipped", skipped, "total", dataset.Len())

	return &ProcessCourtResult{
		Court:   court,
		Counts:  run.Counts,
		Added:   added,
		Dataset: dataset,
	}, nil
}

// extractAll extracts documents concurrently. A document that fails is
// skipped and logged; only cancellation of ctx fails the batch.
func (s *PipelineService) extractAll(ctx context.Context, asm *extract.Assembler, rows []models.ListingRow,
	logger *slog.Logger,
) ([]models.CaseRecord, int, error) {
	results := make([]*models.CaseRecord, len(rows))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, row := range rows {
		g.Go(func() error {
			if gctx.Err() != nil {
				return gctx.Err()
			}
			rec, err := s.extractOne(gctx, asm, row)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				logger.Warn("skipping judgment", "link", row.Link, "error", err)
				return nil
			}
			results[i] = &rec
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, 0, fmt.Errorf("extraction interrupted: %w", err)
	}

	records := make([]models.CaseRecord, 0, len(rows))
	for _, r := range results {
		if r != nil {
			records = append(records, *r)
		}
	}
	return records, len(rows) - len(records), nil
}

// extractOne fetches and extracts one document within the per-document
// timeout.
func (s *PipelineService) extractOne(ctx context.Context, asm *extract.Assembler, row models.ListingRow) (models.CaseRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, s.docTimeout)
	defer cancel()

	raw, err := s.source.Fetch(ctx, row)
	if err != nil {
		return models.CaseRecord{}, err
	}

	type outcome struct {
		rec models.CaseRecord
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		rec, err := extractRecord(asm, raw, row.Link, row.Court)
		done <- outcome{rec, err}
	}()

	select {
	case <-ctx.Done():
		return models.CaseRecord{}, fmt.Errorf("extract %s: %w", row.Link, ctx.Err())
	case o := <-done:
		return o.rec, o.err
	}
}

func extractRecord(asm *extract.Assembler, raw []byte, link string, court models.Court) (models.CaseRecord, error) {
	doc, err := document.Parse(raw)
	if err != nil {
		return models.CaseRecord{}, err
	}
	return asm.Assemble(&extract.DocContext{Doc: doc, Link: link, Court: court})
}

func (s *PipelineService) filterListing(rows []models.ListingRow, court models.Court) []models.ListingRow {
	out := make([]models.ListingRow, 0, len(rows))
	for _, r := range rows {
		if r.Court == "" {
			r.Court = court
		}
		if r.Court != court {
			continue
		}
		if s.criminalOnly && !strings.Contains(strings.ToLower(r.Title), criminalMarker) {
			continue
		}
		out = append(out, r)
	}
	return out
}

// addedRecords returns the records Merge actually appended, in dataset order.
func addedRecords(records []models.CaseRecord, dataset *models.Dataset) []models.CaseRecord {
	mine := make(map[string]struct{}, len(records))
	for _, r := range records {
		mine[strings.TrimSpace(r.Link)] = struct{}{}
	}
	out := []models.CaseRecord{}
	for _, r := range dataset.Records {
		if _, ok := mine[r.Link]; ok {
			out = append(out, r)
			delete(mine, r.Link)
		}
	}
	return out
}

// ExtractDocumentRequest represents a request to extract a single judgment
type ExtractDocumentRequest struct {
	Raw   []byte
	Link  string
	Court string
}

// ExtractDocumentResult represents the result of extracting a judgment
type ExtractDocumentResult struct {
	Record models.CaseRecord
}

// ExtractDocument extracts one judgment without touching the dataset
func (s *PipelineService) ExtractDocument(ctx context.Context, req ExtractDocumentRequest) (*ExtractDocumentResult, error) {
	court, err := models.ParseCourt(req.Court)
	if err != nil {
		return nil, err
	}
	asm, err := s.assembler()
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rec, err := extractRecord(asm, req.Raw, req.Link, court)
	if err != nil {
		return nil, err
	}
	return &ExtractDocumentResult{Record: rec}, nil
}

// PrefetchRequest represents a request to fetch a court's pending judgments
type PrefetchRequest struct {
	Court string
}

// PrefetchResult represents the result of a prefetch
type PrefetchResult struct {
	Pending int
	Fetched int
	Failed  int
}

// Prefetch fetches every pending judgment of a court through the document
// source, which archives what it downloads
func (s *PipelineService) Prefetch(ctx context.Context, req PrefetchRequest) (*PrefetchResult, error) {
	court, err := models.ParseCourt(req.Court)
	if err != nil {
		return nil, err
	}
	switch {
	case s.datasets == nil:
		return nil, ErrDatasetStoreNotSet
	case s.listings == nil:
		return nil, ErrListingStoreNotSet
	case s.source == nil:
		return nil, ErrDocumentSourceNotSet
	}

	listing, err := s.listings.LoadListing(ctx, court)
	if err != nil {
		return nil, fmt.Errorf("load listing: %w", err)
	}
	compiled, err := s.listings.LoadCompiled(ctx, court)
	if err != nil {
		return nil, fmt.Errorf("load compiled listing: %w", err)
	}
	compiled = merge.CompileListing(compiled, merge.NewSlice(s.filterListing(listing, court), compiled))
	dataset, err := s.datasets.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load dataset: %w", err)
	}
	pending := merge.Pending(compiled, dataset, court)

	var (
		mu  sync.Mutex
		res = &PrefetchResult{Pending: len(pending)}
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for _, row := range pending {
		g.Go(func() error {
			fctx, cancel := context.WithTimeout(gctx, s.docTimeout)
			defer cancel()
			_, err := s.source.Fetch(fctx, row)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				res.Failed++
				s.logger.Warn("prefetch failed", "court", court, "link", row.Link, "error", err)
				return nil
			}
			res.Fetched++
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return res, nil
}

func (s *PipelineService) startRun(ctx context.Context, court models.Court) *models.ProcessingRun {
	run := &models.ProcessingRun{
		ID:     uuid.New(),
		Court:  court,
		Status: models.RunStatusInProgress,
		Steps: models.RunSteps{
			{Name: "listing", Status: "pending", Description: "Compute the new listing slice"},
			{Name: "extract", Status: "pending", Description: "Extract pending judgments"},
			{Name: "merge", Status: "pending", Description: "Merge and save the dataset"},
		},
		CreatedAt: time.Now(),
	}
	if s.runs != nil {
		if err := s.runs.Create(ctx, run); err != nil {
			s.logger.Warn("failed to record run", "court", court, "error", err)
		}
	}
	return run
}

func (s *PipelineService) step(ctx context.Context, run *models.ProcessingRun, name, status, description string) {
	run.Steps.Mark(name, status, description)
	if s.runs == nil {
		return
	}
	if err := s.runs.UpdateProgress(ctx, run); err != nil {
		s.logger.Warn("failed to update run", "run_id", run.ID, "error", err)
	}
}

func (s *PipelineService) completeRun(ctx context.Context, run *models.ProcessingRun, logger *slog.Logger) {
	run.Status = models.RunStatusCompleted
	now := time.Now()
	run.CompletedAt = &now
	if s.runs == nil {
		return
	}
	if err := s.runs.Complete(ctx, run.ID); err != nil {
		logger.Warn("failed to complete run", "error", err)
	}
}

func (s *PipelineService) failRun(ctx context.Context, run *models.ProcessingRun, runErr error, logger *slog.Logger) {
	run.Status = models.RunStatusFailed
	msg := runErr.Error()
	run.ErrorMessage = &msg
	logger.Error("court processing failed", "error", runErr)
	if s.runs == nil {
		return
	}
	// the run context may already be cancelled
	if err := s.runs.Fail(context.WithoutCancel(ctx), run.ID, msg); err != nil {
		logger.Warn("failed to mark run failed", "error", err)
	}
}
