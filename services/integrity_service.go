package services

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/kinforge/kinforgebackend/apperrors"
	"github.com/kinforge/kinforgebackend/cache"
	"github.com/kinforge/kinforgebackend/database"
)

// IntegrityService runs the read-only audit queries over the persisted
// graph: headline counts, coverage and linkage gaps, orphaned edges, and
// stale payload candidates. Results are memoized in the query cache; the
// indexer invalidates the "integrity" prefix whenever it writes.
type IntegrityService struct {
	db       *sql.DB
	cache    *cache.QueryCache
	staleAge time.Duration
}

// NewIntegrityService creates a new integrity service
func NewIntegrityService(db *sql.DB, queryCache *cache.QueryCache, staleAge time.Duration) *IntegrityService {
	return &IntegrityService{db: db, cache: queryCache, staleAge: staleAge}
}

// Summary returns the headline graph counts.
func (s *IntegrityService) Summary() (database.GraphSummary, error) {
	key := cache.Key("integrity", "summary")
	if cached, ok := s.cache.Get(key); ok {
		return cached.(database.GraphSummary), nil
	}
	summary, err := database.GetGraphSummary(s.db)
	if err != nil {
		return database.GraphSummary{}, fmt.Errorf("%w: %v", apperrors.ErrStorage, err)
	}
	s.cache.Set(key, summary)
	return summary, nil
}

// CoverageGaps lists persons lacking an external identity for each requested
// provider.
func (s *IntegrityService) CoverageGaps(providers []string) ([]database.CoverageGap, error) {
	if len(providers) == 0 {
		return nil, fmt.Errorf("%w: at least one provider is required", apperrors.ErrInvalidInput)
	}
	key := cache.Key("integrity", "coverage", strings.Join(providers, ","))
	if cached, ok := s.cache.Get(key); ok {
		return cached.([]database.CoverageGap), nil
	}
	gaps, err := database.FindCoverageGaps(s.db, providers)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrStorage, err)
	}
	s.cache.Set(key, gaps)
	return gaps, nil
}

// ParentLinkageGaps lists persons expected to have parent edges but missing
// them, optionally restricted to holders of the given provider's identities.
func (s *IntegrityService) ParentLinkageGaps(provider string) ([]database.LinkageGap, error) {
	key := cache.Key("integrity", "linkage", provider)
	if cached, ok := s.cache.Get(key); ok {
		return cached.([]database.LinkageGap), nil
	}
	gaps, err := database.FindParentLinkageGaps(s.db, provider)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrStorage, err)
	}
	s.cache.Set(key, gaps)
	return gaps, nil
}

// OrphanedEdges lists parent edges whose endpoint person rows are missing.
// Findings are reported as integrity warnings, never raised as errors.
func (s *IntegrityService) OrphanedEdges() ([]database.OrphanedEdge, []apperrors.IntegrityWarning, error) {
	orphans, err := database.FindOrphanedEdges(s.db)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", apperrors.ErrStorage, err)
	}
	warnings := make([]apperrors.IntegrityWarning, 0, len(orphans))
	for _, orphan := range orphans {
		warnings = append(warnings, apperrors.IntegrityWarning{
			Kind:     "orphaned_edge",
			Detail:   fmt.Sprintf("edge %d references missing %s %s", orphan.EdgeID, orphan.MissingEnd, orphan.MissingPerson),
			Involved: []string{orphan.ParentID, orphan.ChildID},
		})
	}
	return orphans, warnings, nil
}

// StalePayloads lists records whose newest raw snapshot for the provider is
// older than the configured threshold.
func (s *IntegrityService) StalePayloads(source string) ([]database.StalePayload, error) {
	if source == "" {
		return nil, fmt.Errorf("%w: provider is required", apperrors.ErrInvalidInput)
	}
	cutoff := time.Now().Add(-s.staleAge).Unix()
	stale, err := database.FindStalePayloads(s.db, source, cutoff)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrStorage, err)
	}
	return stale, nil
}

// CacheStats exposes the query cache counters for observability.
func (s *IntegrityService) CacheStats() cache.Stats {
	return s.cache.Stats()
}
