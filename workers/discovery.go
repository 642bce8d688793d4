package workers

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/kinforge/kinforgebackend/apperrors"
	"github.com/kinforge/kinforgebackend/cache"
	"github.com/kinforge/kinforgebackend/database"
	"github.com/kinforge/kinforgebackend/models"
	"github.com/kinforge/kinforgebackend/provider"
	"github.com/kinforge/kinforgebackend/repository"
	"github.com/kinforge/kinforgebackend/services"
)

// DiscoverMissingLinks walks the parent-linkage gap list for a provider and,
// for each gap, re-queries the provider for the person's record and routes
// any discovered parents through the same resolver and persistence path the
// crawler uses. It shares the single-active-job guard with indexing, so at
// most one bulk operation runs at a time.
func (ix *Indexer) DiscoverMissingLinks(providerName string) (JobSummary, error) {
	if providerName == "" {
		return JobSummary{}, fmt.Errorf("%w: provider is required", apperrors.ErrInvalidInput)
	}

	gaps, err := database.FindParentLinkageGaps(ix.sqlDB, providerName)
	if err != nil {
		return JobSummary{}, fmt.Errorf("%w: %v", apperrors.ErrStorage, err)
	}

	job, err := ix.begin(JobKindDiscovery, JobSummary{
		Source: providerName,
		Queued: len(gaps),
	})
	if err != nil {
		return JobSummary{}, err
	}

	go ix.runDiscovery(job, providerName, gaps)
	return job.snapshot(), nil
}

func (ix *Indexer) runDiscovery(job *jobState, providerName string, gaps []database.LinkageGap) {
	ix.emit(job, "starting", fmt.Sprintf("discovering parents for %d gaps via %s", len(gaps), providerName))

	for _, gap := range gaps {
		if job.cancelled.Load() {
			ix.finish(job, StatusCancelled, nil)
			return
		}

		err := ix.repairGap(providerName, gap)
		if err != nil {
			if errors.Is(err, apperrors.ErrStorage) {
				ix.finish(job, StatusFailed, err)
				return
			}
			ix.count(job, func(s *JobSummary) {
				s.Errored++
				s.NodeErrors = append(s.NodeErrors, NodeError{ExternalID: gap.ExternalID, Message: err.Error()})
			})
			ix.emit(job, "node-error", fmt.Sprintf("%s: %v", gap.ExternalID, err))
			continue
		}

		ix.count(job, func(s *JobSummary) {
			s.Fetched++
			s.Queued--
		})
		ix.emit(job, "discovering", gap.ExternalID)
	}

	ix.finish(job, StatusCompleted, nil)
}

// repairGap re-fetches one gapped person and persists any parents the
// provider now reports. A record with no parents marks the person with a
// no_parents claim so the auditor stops reporting the gap.
func (ix *Indexer) repairGap(providerName string, gap database.LinkageGap) error {
	raw, err := ix.client.FetchPersonRecord(context.Background(), providerName, gap.ExternalID)
	if err != nil {
		return err
	}
	if err := ix.payloads.Insert(&models.RawPayload{
		Source:     providerName,
		ExternalID: gap.ExternalID,
		Payload:    raw,
	}); err != nil {
		return fmt.Errorf("%w: %v", apperrors.ErrStorage, err)
	}

	record, err := provider.TransformPayload(raw)
	if err != nil {
		return err
	}

	err = ix.db.Transaction(func(tx *gorm.DB) error {
		edges := repository.NewEdgeRepository(tx)
		claims := repository.NewClaimRepository(tx)

		if len(record.ParentIDs) == 0 {
			return claims.Upsert(&models.Claim{
				PersonID:  gap.PersonID,
				Predicate: models.PredicateNoParents,
				Value:     "confirmed by discovery pass",
				Source:    providerName,
			})
		}
		for _, parentExternal := range record.ParentIDs {
			parentID, err := ix.identity.EnsurePersonTx(tx, providerName, parentExternal, services.PersonAttributes{})
			if err != nil {
				return err
			}
			if err := edges.Upsert(&models.ParentEdge{ParentID: parentID, ChildID: gap.PersonID, Source: providerName}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", apperrors.ErrStorage, err)
	}

	ix.cache.InvalidatePrefix(cache.Key("adjacency"))
	ix.cache.InvalidatePrefix(cache.Key("integrity"))
	ix.cache.InvalidatePrefix(cache.Key("person", gap.PersonID))
	return nil
}
