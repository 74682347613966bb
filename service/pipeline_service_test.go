package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"casedb-backend/document"
	"casedb-backend/models"
	"casedb-backend/statutes"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
)

func judgment(title, date, body string) []byte {
	return []byte(fmt.Sprintf(`<html><body><div class="contentsOfFile">
<h2>%s</h2>
<table id="info-table"><tr><td>Decision Date</td><td>:</td><td>%s</td></tr>
<tr><td>Tribunal/Court</td><td>:</td><td>High Court</td></tr></table>
<p class="txt-body"><span>Criminal Law</span> – <span>Forgery – Section 33 Penal Code</span></p>
<p class="Judg-1">%s</p>
</div></body></html>`, title, date, body))
}

type memDatasets struct {
	mu      sync.Mutex
	records []models.CaseRecord
	saves   int
	fresh   []models.CaseRecord
	saveErr error
}

func (m *memDatasets) Load(ctx context.Context) (*models.Dataset, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return &models.Dataset{Records: append([]models.CaseRecord{}, m.records...)}, nil
}

func (m *memDatasets) Save(ctx context.Context, full *models.Dataset, fresh []models.CaseRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saves++
	m.records = append([]models.CaseRecord{}, full.Records...)
	m.fresh = fresh
	return nil
}

type memListings struct {
	listing  map[models.Court][]models.ListingRow
	compiled map[models.Court][]models.ListingRow
	saves    int
}

func newMemListings() *memListings {
	return &memListings{
		listing:  make(map[models.Court][]models.ListingRow),
		compiled: make(map[models.Court][]models.ListingRow),
	}
}

func (m *memListings) LoadListing(ctx context.Context, court models.Court) ([]models.ListingRow, error) {
	return m.listing[court], nil
}

func (m *memListings) LoadCompiled(ctx context.Context, court models.Court) ([]models.ListingRow, error) {
	return append([]models.ListingRow{}, m.compiled[court]...), nil
}

func (m *memListings) SaveListing(ctx context.Context, court models.Court, fresh, compiled []models.ListingRow) error {
	m.saves++
	m.listing[court] = fresh
	m.compiled[court] = compiled
	return nil
}

// mapSource serves pages by link. Links in block wait for ctx.
type mapSource struct {
	pages map[string][]byte
	block map[string]bool
}

func (m mapSource) Fetch(ctx context.Context, row models.ListingRow) ([]byte, error) {
	if m.block[row.Link] {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if p, ok := m.pages[row.Link]; ok {
		return p, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrDocumentUnavailable, row.Link)
}

type fakeRuns struct {
	mu        sync.Mutex
	created   int
	completed []uuid.UUID
	failed    []string
}

func (f *fakeRuns) Create(ctx context.Context, run *models.ProcessingRun) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created++
	return nil
}

func (f *fakeRuns) UpdateProgress(ctx context.Context, run *models.ProcessingRun) error { return nil }

func (f *fakeRuns) Complete(ctx context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.completed = append(f.completed, id)
	return nil
}

func (f *fakeRuns) Fail(ctx context.Context, id uuid.UUID, msg string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failed = append(f.failed, msg)
	return nil
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testResolver() *statutes.Resolver {
	return statutes.New([]models.StatuteEntry{
		{Ref: models.StatuteRef{Section: "33", Act: "Penal Code"}, OffenceTitle: "Forgery"},
	})
}

type fixture struct {
	datasets *memDatasets
	listings *memListings
	runs     *fakeRuns
	svc      *PipelineService
}

func newFixture(source DocumentSource, opts ...PipelineServiceOption) *fixture {
	f := &fixture{datasets: &memDatasets{}, listings: newMemListings(), runs: &fakeRuns{}}
	base := []PipelineServiceOption{
		WithDatasetStore(f.datasets),
		WithListingStore(f.listings),
		WithDocumentSource(source),
		WithResolver(testResolver()),
		WithRunRecorder(f.runs),
		WithLogger(quietLogger()),
		WithCriminalOnly(true),
		WithConcurrency(2),
	}
	f.svc = NewPipelineService(append(base, opts...)...)
	return f
}

func supremeListing() []models.ListingRow {
	return []models.ListingRow{
		{Court: models.CourtSupreme, Title: "Public Prosecutor v Tan Ah Kow", Link: "https://example.test/a"},
		{Court: models.CourtSupreme, Title: "Public Prosecutor v Lim", Link: "https://example.test/b"},
		{Court: models.CourtSupreme, Title: "Tan v Lim Holdings", Link: "https://example.test/c"},
		{Court: models.CourtSubordinate, Title: "Public Prosecutor v Ong", Link: "https://example.test/d"},
	}
}

func supremePages() mapSource {
	return mapSource{pages: map[string][]byte{
		"https://example.test/a": judgment("PUBLIC PROSECUTOR v Tan Ah Kow", "12 Jan 2018",
			"The court considered mitigating factors and cited Ong v Koh."),
		"https://example.test/b": []byte("<html><body><p>Page moved</p></body></html>"),
		"https://example.test/c": judgment("Tan v Lim Holdings", "1 Feb 2018", "Civil matter."),
	}}
}

func TestProcessCourt(t *testing.T) {
	ctx := context.Background()
	f := newFixture(supremePages())

	res, err := f.svc.ProcessCourt(ctx, ProcessCourtRequest{Court: "Supreme", Listing: supremeListing()})
	if err != nil {
		t.Fatalf("ProcessCourt: %v", err)
	}

	wantCounts := models.RunCounts{Listed: 2, New: 2, Pending: 2, Processed: 1, Skipped: 1, Added: 1}
	if diff := cmp.Diff(wantCounts, res.Counts); diff != "" {
		t.Errorf("counts mismatch (-want +got):\n%s", diff)
	}
	if res.Court != models.CourtSupreme || res.RunID == uuid.Nil {
		t.Errorf("result = %+v", res)
	}

	if len(f.datasets.records) != 1 {
		t.Fatalf("dataset has %d records, want 1", len(f.datasets.records))
	}
	rec := f.datasets.records[0]
	want := models.CaseRecord{
		CaseName:            "public prosecutor v tan ah kow",
		Court:               models.CourtSupreme,
		Tribunal:            "High Court",
		DecisionDate:        time.Date(2018, time.January, 12, 0, 0, 0, 0, time.UTC),
		OffenceTitles:       []string{"Forgery"},
		StatuteRefs:         []models.StatuteRef{{Section: "33", Act: "Penal Code"}},
		Citations:           []string{"Ong v Koh"},
		MitigationDiscussed: true,
		Link:                "https://example.test/a",
	}
	if diff := cmp.Diff(want, rec); diff != "" {
		t.Errorf("record mismatch (-want +got):\n%s", diff)
	}
	if len(f.datasets.fresh) != 1 || len(res.Added) != 1 {
		t.Errorf("fresh = %d, added = %d", len(f.datasets.fresh), len(res.Added))
	}

	compiled := f.listings.compiled[models.CourtSupreme]
	if len(compiled) != 2 {
		t.Errorf("compiled listing has %d rows, want 2", len(compiled))
	}
	if f.runs.created != 1 || len(f.runs.completed) != 1 || len(f.runs.failed) != 0 {
		t.Errorf("runs = %+v", f.runs)
	}
}

func TestProcessCourtIdempotent(t *testing.T) {
	ctx := context.Background()
	f := newFixture(supremePages())
	req := ProcessCourtRequest{Court: "supreme", Listing: supremeListing()}

	if _, err := f.svc.ProcessCourt(ctx, req); err != nil {
		t.Fatal(err)
	}
	first := append([]models.CaseRecord{}, f.datasets.records...)

	res, err := f.svc.ProcessCourt(ctx, req)
	if err != nil {
		t.Fatal(err)
	}
	if res.Counts.New != 0 || res.Counts.Added != 0 {
		t.Errorf("second run counts = %+v", res.Counts)
	}
	// the malformed page stays pending and is retried
	if res.Counts.Pending != 1 || res.Counts.Skipped != 1 {
		t.Errorf("second run pending/skipped = %+v", res.Counts)
	}
	if diff := cmp.Diff(first, f.datasets.records); diff != "" {
		t.Errorf("dataset changed on rerun (-first +second):\n%s", diff)
	}
}

func TestProcessCourtUsesStoredListing(t *testing.T) {
	f := newFixture(supremePages(), WithCriminalOnly(false))
	f.listings.listing[models.CourtSupreme] = supremeListing()[:1]

	res, err := f.svc.ProcessCourt(context.Background(), ProcessCourtRequest{Court: "supreme"})
	if err != nil {
		t.Fatal(err)
	}
	if res.Counts.Listed != 1 || res.Counts.Added != 1 {
		t.Errorf("counts = %+v", res.Counts)
	}
}

func TestProcessCourtInvalidCourt(t *testing.T) {
	f := newFixture(supremePages())
	_, err := f.svc.ProcessCourt(context.Background(), ProcessCourtRequest{Court: "magistrate", Listing: supremeListing()})
	if !errors.Is(err, models.ErrInvalidCourtTag) {
		t.Fatalf("error = %v, want ErrInvalidCourtTag", err)
	}
	if f.datasets.saves != 0 || f.listings.saves != 0 || f.runs.created != 0 {
		t.Error("invalid court must not write anything")
	}
}

func TestProcessCourtMissingDependencies(t *testing.T) {
	svc := NewPipelineService(WithLogger(quietLogger()))
	if _, err := svc.ProcessCourt(context.Background(), ProcessCourtRequest{Court: "supreme"}); !errors.Is(err, ErrDatasetStoreNotSet) {
		t.Errorf("error = %v, want ErrDatasetStoreNotSet", err)
	}

	f := newFixture(supremePages(), WithResolver(nil))
	if _, err := f.svc.ProcessCourt(context.Background(), ProcessCourtRequest{Court: "supreme"}); !errors.Is(err, ErrResolverNotSet) {
		t.Errorf("error = %v, want ErrResolverNotSet", err)
	}
}

func TestProcessCourtDocumentTimeout(t *testing.T) {
	src := supremePages()
	src.block = map[string]bool{"https://example.test/a": true}
	f := newFixture(src, WithDocumentTimeout(20*time.Millisecond))

	res, err := f.svc.ProcessCourt(context.Background(), ProcessCourtRequest{Court: "supreme", Listing: supremeListing()})
	if err != nil {
		t.Fatalf("a slow document must not fail the run: %v", err)
	}
	if res.Counts.Skipped != 2 || res.Counts.Added != 0 {
		t.Errorf("counts = %+v", res.Counts)
	}
}

func TestProcessCourtCancelled(t *testing.T) {
	f := newFixture(supremePages())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.svc.ProcessCourt(ctx, ProcessCourtRequest{Court: "supreme", Listing: supremeListing()})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("error = %v, want context.Canceled", err)
	}
	if f.datasets.saves != 0 || f.listings.saves != 0 {
		t.Error("cancelled run must not write anything")
	}
	if len(f.runs.failed) != 1 {
		t.Errorf("failed runs = %v", f.runs.failed)
	}
}

func TestProcessCourtSaveFailure(t *testing.T) {
	f := newFixture(supremePages())
	f.datasets.saveErr = errors.New("disk full")

	if _, err := f.svc.ProcessCourt(context.Background(), ProcessCourtRequest{Court: "supreme", Listing: supremeListing()}); err == nil {
		t.Fatal("expected save error")
	}
	if f.listings.saves != 0 {
		t.Error("listing must not advance when the dataset was not saved")
	}

	f.datasets.saveErr = nil
	res, err := f.svc.ProcessCourt(context.Background(), ProcessCourtRequest{Court: "supreme", Listing: supremeListing()})
	if err != nil {
		t.Fatal(err)
	}
	if res.Counts.Added != 1 {
		t.Errorf("retry counts = %+v", res.Counts)
	}
}

func TestExtractDocument(t *testing.T) {
	f := newFixture(mapSource{})
	ctx := context.Background()

	res, err := f.svc.ExtractDocument(ctx, ExtractDocumentRequest{
		Raw:   judgment("PUBLIC PROSECUTOR v Tan Ah Kow", "12 Jan 2018", "No aggravating factors."),
		Link:  "upload://a.html",
		Court: "subordinate",
	})
	if err != nil {
		t.Fatal(err)
	}
	if res.Record.CaseName != "public prosecutor v tan ah kow" || !res.Record.AggravationDiscussed ||
		res.Record.Court != models.CourtSubordinate {
		t.Errorf("record = %+v", res.Record)
	}
	if f.datasets.saves != 0 {
		t.Error("ExtractDocument must not touch the dataset")
	}

	_, err = f.svc.ExtractDocument(ctx, ExtractDocumentRequest{Raw: []byte("<p>nope</p>"), Link: "x", Court: "supreme"})
	if !errors.Is(err, document.ErrMalformedDocument) {
		t.Errorf("error = %v, want ErrMalformedDocument", err)
	}
	_, err = f.svc.ExtractDocument(ctx, ExtractDocumentRequest{Raw: []byte("<p>nope</p>"), Link: "x", Court: "high"})
	if !errors.Is(err, models.ErrInvalidCourtTag) {
		t.Errorf("error = %v, want ErrInvalidCourtTag", err)
	}
}

func TestPrefetch(t *testing.T) {
	f := newFixture(supremePages())
	f.listings.listing[models.CourtSupreme] = append(supremeListing(), models.ListingRow{
		Court: models.CourtSupreme, Title: "Public Prosecutor v Gone", Link: "https://example.test/gone",
	})

	res, err := f.svc.Prefetch(context.Background(), PrefetchRequest{Court: "supreme"})
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(PrefetchResult{Pending: 3, Fetched: 2, Failed: 1}, *res); diff != "" {
		t.Errorf("Prefetch mismatch (-want +got):\n%s", diff)
	}
	if f.listings.saves != 0 || f.datasets.saves != 0 {
		t.Error("Prefetch must not write listings or the dataset")
	}
}
