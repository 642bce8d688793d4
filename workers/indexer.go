package workers

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/kinforge/kinforgebackend/apperrors"
	"github.com/kinforge/kinforgebackend/cache"
	"github.com/kinforge/kinforgebackend/graph"
	"github.com/kinforge/kinforgebackend/models"
	"github.com/kinforge/kinforgebackend/provider"
	"github.com/kinforge/kinforgebackend/realtime"
	"github.com/kinforge/kinforgebackend/repository"
	"github.com/kinforge/kinforgebackend/services"
)

// Job status values
type Status string

const (
	StatusIdle      Status = "idle"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// Cache modes controlling how a crawl uses stored raw payloads
type CacheMode string

const (
	CacheModePrefer CacheMode = "prefer-cache"
	CacheModeForce  CacheMode = "force-network"
	CacheModeOnly   CacheMode = "cache-only"
)

// Job kinds sharing the single-active-job guard
const (
	JobKindIndex     = "index"
	JobKindDiscovery = "discovery"
)

// IndexOptions configures one crawl.
type IndexOptions struct {
	RootExternalID string
	Source         string
	MaxGenerations int
	CacheMode      CacheMode
	Direction      graph.Direction
	IgnoreIDs      []string
}

// NodeError records a non-fatal per-node failure.
type NodeError struct {
	ExternalID string `json:"external_id"`
	Message    string `json:"message"`
}

// JobSummary is the externally visible state of the current or most recent
// bulk job.
type JobSummary struct {
	ID             string      `json:"id"`
	Kind           string      `json:"kind"`
	RootExternalID string      `json:"root_external_id,omitempty"`
	Source         string      `json:"source"`
	MaxGenerations int         `json:"max_generations,omitempty"`
	CacheMode      CacheMode   `json:"cache_mode,omitempty"`
	Status         Status      `json:"status"`
	Fetched        int         `json:"fetched"`
	Skipped        int         `json:"skipped"`
	Errored        int         `json:"errored"`
	Queued         int         `json:"queued"`
	NodeErrors     []NodeError `json:"node_errors,omitempty"`
	StartedAt      int64       `json:"started_at,omitempty"`
	FinishedAt     int64       `json:"finished_at,omitempty"`
	Error          string      `json:"error,omitempty"`
}

type jobState struct {
	mu        sync.Mutex
	summary   JobSummary
	cancelled atomic.Bool
}

func (j *jobState) snapshot() JobSummary {
	j.mu.Lock()
	defer j.mu.Unlock()
	out := j.summary
	out.NodeErrors = append([]NodeError{}, j.summary.NodeErrors...)
	return out
}

// Indexer owns the single-active-job state and runs generation-bounded
// breadth-first crawls. Exactly one bulk operation (crawl or gap discovery)
// runs per process; starting another while one is active is a Conflict.
type Indexer struct {
	db       *gorm.DB
	sqlDB    *sql.DB
	identity *services.IdentityService
	payloads repository.PayloadRepositoryInterface
	client   provider.Client
	sink     realtime.ProgressSink
	cache    *cache.QueryCache

	// raw payloads younger than this are fresh enough for prefer-cache
	payloadTTL time.Duration

	mu     sync.Mutex
	active bool
	job    *jobState
}

// NewIndexer creates a new indexer. Pass realtime.NoopSink{} when no
// transport is attached.
func NewIndexer(
	db *gorm.DB,
	sqlDB *sql.DB,
	identity *services.IdentityService,
	payloads repository.PayloadRepositoryInterface,
	client provider.Client,
	sink realtime.ProgressSink,
	queryCache *cache.QueryCache,
	payloadTTL time.Duration,
) *Indexer {
	if sink == nil {
		sink = realtime.NoopSink{}
	}
	return &Indexer{
		db:         db,
		sqlDB:      sqlDB,
		identity:   identity,
		payloads:   payloads,
		client:     client,
		sink:       sink,
		cache:      queryCache,
		payloadTTL: payloadTTL,
	}
}

// Start begins a crawl rooted at the external ID. It returns the initial job
// summary immediately; progress is emitted to the sink and the terminal
// state is visible through Status.
func (ix *Indexer) Start(opts IndexOptions) (JobSummary, error) {
	if opts.RootExternalID == "" {
		return JobSummary{}, fmt.Errorf("%w: root external id is required", apperrors.ErrInvalidInput)
	}
	if opts.Source == "" {
		return JobSummary{}, fmt.Errorf("%w: source provider is required", apperrors.ErrInvalidInput)
	}
	if opts.MaxGenerations < 0 {
		return JobSummary{}, fmt.Errorf("%w: max generations must not be negative", apperrors.ErrInvalidInput)
	}
	if opts.CacheMode == "" {
		opts.CacheMode = CacheModePrefer
	}
	switch opts.CacheMode {
	case CacheModePrefer, CacheModeForce, CacheModeOnly:
	default:
		return JobSummary{}, fmt.Errorf("%w: unknown cache mode %q", apperrors.ErrInvalidInput, opts.CacheMode)
	}
	if opts.Direction == "" {
		opts.Direction = graph.DirectionBoth
	}
	switch opts.Direction {
	case graph.DirectionAncestors, graph.DirectionDescendants, graph.DirectionBoth:
	default:
		return JobSummary{}, fmt.Errorf("%w: unknown direction %q", apperrors.ErrInvalidInput, opts.Direction)
	}

	job, err := ix.begin(JobKindIndex, JobSummary{
		RootExternalID: opts.RootExternalID,
		Source:         opts.Source,
		MaxGenerations: opts.MaxGenerations,
		CacheMode:      opts.CacheMode,
	})
	if err != nil {
		return JobSummary{}, err
	}

	go ix.run(job, opts)
	return job.snapshot(), nil
}

// Status returns the state of the current or most recent job.
func (ix *Indexer) Status() (JobSummary, error) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	if ix.job == nil {
		return JobSummary{Status: StatusIdle}, nil
	}
	return ix.job.snapshot(), nil
}

// Cancel requests cooperative cancellation of the running job. The flag is
// checked between per-person steps; work already persisted is retained.
func (ix *Indexer) Cancel() error {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	if !ix.active || ix.job == nil {
		return fmt.Errorf("%w: no job is running", apperrors.ErrNotFound)
	}
	ix.job.cancelled.Store(true)
	return nil
}

// begin acquires the single-job guard and installs a fresh running job.
func (ix *Indexer) begin(kind string, seed JobSummary) (*jobState, error) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	if ix.active {
		return nil, fmt.Errorf("%w: a %s job is already running", apperrors.ErrConflict, ix.job.summary.Kind)
	}
	seed.ID = uuid.NewString()
	seed.Kind = kind
	seed.Status = StatusRunning
	seed.StartedAt = time.Now().Unix()
	job := &jobState{summary: seed}
	ix.job = job
	ix.active = true
	return job, nil
}

// finish releases the guard and records the terminal status.
func (ix *Indexer) finish(job *jobState, status Status, jobErr error) {
	job.mu.Lock()
	job.summary.Status = status
	job.summary.FinishedAt = time.Now().Unix()
	if jobErr != nil {
		job.summary.Error = jobErr.Error()
	}
	summary := job.summary
	job.mu.Unlock()

	ix.mu.Lock()
	ix.active = false
	ix.mu.Unlock()

	ix.emit(job, string(status), "")
	log.Printf("Indexer: job %s finished with status %s (fetched=%d skipped=%d errored=%d)",
		summary.ID, status, summary.Fetched, summary.Skipped, summary.Errored)
}

func (ix *Indexer) emit(job *jobState, phase, message string) {
	job.mu.Lock()
	event := realtime.ProgressEvent{
		JobID:   job.summary.ID,
		Phase:   phase,
		Fetched: job.summary.Fetched,
		Skipped: job.summary.Skipped,
		Errored: job.summary.Errored,
		Queued:  job.summary.Queued,
		Message: message,
	}
	job.mu.Unlock()
	ix.sink.Publish(event)
}

type frontierNode struct {
	externalID string
	depth      int
}

func (ix *Indexer) run(job *jobState, opts IndexOptions) {
	ignore := make(map[string]bool, len(opts.IgnoreIDs))
	for _, id := range opts.IgnoreIDs {
		ignore[id] = true
	}
	visited := make(map[string]bool)
	frontier := []frontierNode{{externalID: opts.RootExternalID, depth: 0}}

	ix.emit(job, "starting", fmt.Sprintf("indexing %s:%s to %d generations", opts.Source, opts.RootExternalID, opts.MaxGenerations))

	for len(frontier) > 0 {
		var next []frontierNode
		for _, node := range frontier {
			if job.cancelled.Load() {
				ix.finish(job, StatusCancelled, nil)
				return
			}
			if ignore[node.externalID] || visited[node.externalID] {
				ix.count(job, func(s *JobSummary) { s.Skipped++ })
				continue
			}
			visited[node.externalID] = true

			relatives, err := ix.processNode(job, opts, node)
			if err != nil {
				// only storage failures abort the whole job
				if errors.Is(err, apperrors.ErrStorage) {
					ix.finish(job, StatusFailed, err)
					return
				}
				ix.count(job, func(s *JobSummary) {
					s.Errored++
					s.NodeErrors = append(s.NodeErrors, NodeError{ExternalID: node.externalID, Message: err.Error()})
				})
				ix.emit(job, "node-error", fmt.Sprintf("%s: %v", node.externalID, err))
				continue
			}

			if node.depth < opts.MaxGenerations {
				for _, relative := range relatives {
					if !visited[relative] && !ignore[relative] {
						next = append(next, frontierNode{externalID: relative, depth: node.depth + 1})
					}
				}
			}
			ix.count(job, func(s *JobSummary) { s.Queued = len(next) })
			ix.emit(job, "indexing", node.externalID)
		}
		frontier = next
	}

	ix.finish(job, StatusCompleted, nil)
}

func (ix *Indexer) count(job *jobState, update func(*JobSummary)) {
	job.mu.Lock()
	update(&job.summary)
	job.mu.Unlock()
}

// processNode fetches, parses and persists one person, returning the
// external IDs of relatives to expand next. Fetch and parse failures come
// back as plain errors (non-fatal); persistence failures are wrapped in
// ErrStorage.
func (ix *Indexer) processNode(job *jobState, opts IndexOptions, node frontierNode) ([]string, error) {
	raw, fromCache, err := ix.acquirePayload(opts, node.externalID)
	if err != nil {
		return nil, err
	}
	if raw == nil {
		// cache-only with no snapshot: nothing to do for this node
		ix.count(job, func(s *JobSummary) { s.Skipped++ })
		return nil, nil
	}
	if fromCache {
		ix.count(job, func(s *JobSummary) { s.Skipped++ })
	} else {
		ix.count(job, func(s *JobSummary) { s.Fetched++ })
	}

	record, err := provider.TransformPayload(raw)
	if err != nil {
		return nil, err
	}

	personID, err := ix.identity.EnsurePerson(opts.Source, node.externalID, services.PersonAttributes{
		DisplayName: record.Name,
		Gender:      record.Gender,
		Living:      record.Living,
		Bio:         record.Bio,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrStorage, err)
	}

	relatives, err := ix.persistNode(opts, personID, record)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrStorage, err)
	}

	// readers must never see this person half-written, and cached query
	// results scoped to the graph are now stale
	ix.cache.InvalidatePrefix(cache.Key("adjacency"))
	ix.cache.InvalidatePrefix(cache.Key("integrity"))
	ix.cache.InvalidatePrefix(cache.Key("person", personID))
	return relatives, nil
}

// acquirePayload returns the raw payload for a node according to the cache
// mode. A nil payload with nil error means cache-only found no snapshot.
func (ix *Indexer) acquirePayload(opts IndexOptions, externalID string) (raw []byte, fromCache bool, err error) {
	if opts.CacheMode != CacheModeForce {
		snapshot, err := ix.payloads.Latest(opts.Source, externalID)
		if err == nil {
			fresh := time.Since(time.Unix(snapshot.FetchedAt, 0)) <= ix.payloadTTL
			if opts.CacheMode == CacheModeOnly || fresh {
				return snapshot.Payload, true, nil
			}
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, false, fmt.Errorf("%w: %v", apperrors.ErrStorage, err)
		}
		if opts.CacheMode == CacheModeOnly {
			return nil, false, nil
		}
	}

	raw, err = ix.client.FetchPersonRecord(context.Background(), opts.Source, externalID)
	if err != nil {
		return nil, false, err
	}
	if err := ix.payloads.Insert(&models.RawPayload{
		Source:     opts.Source,
		ExternalID: externalID,
		Payload:    raw,
	}); err != nil {
		return nil, false, fmt.Errorf("%w: %v", apperrors.ErrStorage, err)
	}
	return raw, false, nil
}

// persistNode writes one person's full row set atomically and returns the
// relative external IDs to expand, honoring the crawl direction.
func (ix *Indexer) persistNode(opts IndexOptions, personID string, record *provider.PersonRecord) ([]string, error) {
	var relatives []string

	err := ix.db.Transaction(func(tx *gorm.DB) error {
		persons := repository.NewPersonRepository(tx)
		events := repository.NewEventRepository(tx)
		claims := repository.NewClaimRepository(tx)
		edges := repository.NewEdgeRepository(tx)

		if err := persons.Upsert(&models.Person{
			ID:          personID,
			DisplayName: record.Name,
			Gender:      record.Gender,
			Living:      record.Living,
			Bio:         record.Bio,
		}); err != nil {
			return err
		}

		for _, vital := range record.Vitals {
			if err := events.Upsert(&models.VitalEvent{
				PersonID:  personID,
				EventType: vital.Type,
				Date:      vital.Date,
				Place:     vital.Place,
				Source:    opts.Source,
			}); err != nil {
				return err
			}
		}
		for _, attribute := range record.Claims {
			if err := claims.Upsert(&models.Claim{
				PersonID:  personID,
				Predicate: attribute.Predicate,
				Value:     attribute.Value,
				Source:    opts.Source,
			}); err != nil {
				return err
			}
		}

		if opts.Direction != graph.DirectionDescendants {
			for _, parentExternal := range record.ParentIDs {
				parentID, err := ix.identity.EnsurePersonTx(tx, opts.Source, parentExternal, services.PersonAttributes{})
				if err != nil {
					return err
				}
				if err := edges.Upsert(&models.ParentEdge{ParentID: parentID, ChildID: personID, Source: opts.Source}); err != nil {
					return err
				}
				relatives = append(relatives, parentExternal)
			}
		}
		if opts.Direction != graph.DirectionAncestors {
			for _, childExternal := range record.ChildIDs {
				childID, err := ix.identity.EnsurePersonTx(tx, opts.Source, childExternal, services.PersonAttributes{})
				if err != nil {
					return err
				}
				if err := edges.Upsert(&models.ParentEdge{ParentID: personID, ChildID: childID, Source: opts.Source}); err != nil {
					return err
				}
				relatives = append(relatives, childExternal)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return relatives, nil
}
