package service

import (
	"context"

	"casedb-backend/models"
	"casedb-backend/search"
)

// SearchService answers case queries against the dataset
type SearchService struct {
	datasets DatasetStore
}

// SearchServiceOption is a functional option for SearchService
type SearchServiceOption func(*SearchService)

// WithSearchDataset sets the dataset the service reads
func WithSearchDataset(store DatasetStore) SearchServiceOption {
	return func(s *SearchService) {
		s.datasets = store
	}
}

// NewSearchService creates a new search service
func NewSearchService(opts ...SearchServiceOption) *SearchService {
	s := &SearchService{}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SearchRequest represents a case query
type SearchRequest struct {
	Query        string
	TopCitations int
}

// SearchResult represents the cases matching a query
type SearchResult struct {
	Query   search.Query
	Records []models.CaseRecord
	Summary search.Summary
}

// Search classifies the query and filters the dataset
func (s *SearchService) Search(ctx context.Context, req SearchRequest) (*SearchResult, error) {
	if s.datasets == nil {
		return nil, ErrDatasetStoreNotSet
	}

	dataset, err := s.datasets.Load(ctx)
	if err != nil {
		return nil, err
	}

	q, records := search.Search(dataset.Records, req.Query)
	top := req.TopCitations
	if top <= 0 {
		top = search.DefaultTopCitations
	}
	return &SearchResult{
		Query:   q,
		Records: records,
		Summary: search.Summarize(records, top),
	}, nil
}
