package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path"
	"time"

	"casedb-backend/models"
	"casedb-backend/storage"

	"github.com/google/uuid"
)

// maxDocumentSize bounds a fetched judgment page
const maxDocumentSize = 20 << 20

// ErrDocumentUnavailable is returned when no source has the judgment
var ErrDocumentUnavailable = errors.New("judgment document unavailable")

// DocumentSource returns the raw judgment page for a listing row
type DocumentSource interface {
	Fetch(ctx context.Context, row models.ListingRow) ([]byte, error)
}

// ArchiveKey returns the storage key of an archived judgment. The name is a
// UUID derived from the link, so the same link always maps to the same key.
func ArchiveKey(court models.Court, link string) string {
	id := uuid.NewSHA1(uuid.NameSpaceURL, []byte(link))
	return path.Join("judgments", string(court)+"_court", id.String()+".html")
}

// ArchiveSource reads judgments previously archived in storage
type ArchiveSource struct {
	store storage.Storage
}

// NewArchiveSource creates a source over archived judgments
func NewArchiveSource(store storage.Storage) *ArchiveSource {
	return &ArchiveSource{store: store}
}

// Fetch reads the archived page for a row
func (s *ArchiveSource) Fetch(ctx context.Context, row models.ListingRow) ([]byte, error) {
	data, err := storage.ReadAll(ctx, s.store, ArchiveKey(row.Court, row.Link))
	if errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s not archived", ErrDocumentUnavailable, row.Link)
	}
	return data, err
}

// Store archives a judgment page
func (s *ArchiveSource) Store(ctx context.Context, row models.ListingRow, data []byte) error {
	return s.store.Put(ctx, ArchiveKey(row.Court, row.Link), bytes.NewReader(data))
}

// HTTPSource fetches judgments from the source site and archives them
type HTTPSource struct {
	client    *http.Client
	archive   *ArchiveSource
	userAgent string
	logger    *slog.Logger
}

// NewHTTPSource creates a fetching source. archive may be nil.
func NewHTTPSource(timeout time.Duration, archive *ArchiveSource, logger *slog.Logger) *HTTPSource {
	if logger == nil {
		logger = slog.Default()
	}
	return &HTTPSource{
		client:    &http.Client{Timeout: timeout},
		archive:   archive,
		userAgent: "casedb/1.0",
		logger:    logger,
	}
}

// Fetch downloads the page for a row and archives it on success
func (s *HTTPSource) Fetch(ctx context.Context, row models.ListingRow) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, row.Link, nil)
	if err != nil {
		return nil, fmt.Errorf("build request for %s: %w", row.Link, err)
	}
	req.Header.Set("User-Agent", s.userAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", row.Link, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %s returned %d", ErrDocumentUnavailable, row.Link, resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxDocumentSize))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", row.Link, err)
	}

	if s.archive != nil {
		if err := s.archive.Store(ctx, row, data); err != nil {
			s.logger.Warn("failed to archive judgment", "link", row.Link, "error", err)
		}
	}
	return data, nil
}

// FallbackSource tries each source in order
type FallbackSource []DocumentSource

// Fetch returns the first successful fetch
func (f FallbackSource) Fetch(ctx context.Context, row models.ListingRow) ([]byte, error) {
	var errs []error
	for _, src := range f {
		data, err := src.Fetch(ctx, row)
		if err == nil {
			return data, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		errs = append(errs, err)
	}
	if len(errs) == 0 {
		return nil, fmt.Errorf("%w: no sources configured", ErrDocumentUnavailable)
	}
	return nil, errors.Join(errs...)
}
