// Package engine wires storage, embedding, vector indexes, and scoring into
// the matching service.
package engine

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/talentmatch/talentmatch/internal/canonical"
	"github.com/talentmatch/talentmatch/internal/embedding"
	"github.com/talentmatch/talentmatch/internal/models"
	"github.com/talentmatch/talentmatch/internal/scoring"
	"github.com/talentmatch/talentmatch/internal/storage"
	"github.com/talentmatch/talentmatch/internal/vector"
)

// ErrBadRequest indicates an invalid matching request.
var ErrBadRequest = errors.New("invalid match request")

// searchOversample is how many times TopK hits are pulled from the index
// before score and skill-floor filters run.
const searchOversample = 4

// Config holds engine tuning knobs.
type Config struct {
	Dimensions         int
	EmbedTimeout       time.Duration
	ReindexBatchSize   int
	ReindexConcurrency int
}

// ApplyDefaults fills zero fields with defaults.
func (c *Config) ApplyDefaults() {
	if c.Dimensions <= 0 {
		c.Dimensions = 384
	}
	if c.EmbedTimeout <= 0 {
		c.EmbedTimeout = 30 * time.Second
	}
	if c.ReindexBatchSize <= 0 {
		c.ReindexBatchSize = 100
	}
	if c.ReindexConcurrency <= 0 {
		c.ReindexConcurrency = 4
	}
}

// Engine is the matching service. Both vector indexes are held behind atomic
// pointers so a reindex swaps them in one step without blocking readers.
type Engine struct {
	storage  storage.Storage
	embedder embedding.Embedder
	config   Config
	logger   *zap.Logger

	scorer     atomic.Pointer[scoring.Scorer]
	candidates atomic.Pointer[vector.FlatIndex]
	postings   atomic.Pointer[vector.FlatIndex]

	// reindexMu orders index writes against the reindex/restore swap: the
	// rebuild holds the write side, upserts and removes hold the read side so
	// their index mutations land either before enumeration or in the swapped-in
	// index, never in a discarded one. Matching never takes it.
	reindexMu sync.RWMutex
	startedAt time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets a logger for debug and warning output.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// NewEngine creates the matching engine with the given dependencies.
func NewEngine(store storage.Storage, embedder embedding.Embedder, scorer *scoring.Scorer, cfg Config, opts ...Option) (*Engine, error) {
	cfg.ApplyDefaults()
	if embedder.Dimensions() > 0 {
		cfg.Dimensions = embedder.Dimensions()
	}

	e := &Engine{
		storage:   store,
		embedder:  embedder,
		config:    cfg,
		logger:    zap.NewNop(),
		startedAt: time.Now(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.scorer.Store(scorer)

	cands, err := vector.NewFlatIndex(cfg.Dimensions)
	if err != nil {
		return nil, err
	}
	posts, err := vector.NewFlatIndex(cfg.Dimensions)
	if err != nil {
		return nil, err
	}
	e.candidates.Store(cands)
	e.postings.Store(posts)
	return e, nil
}

// Scorer returns the current scorer.
func (e *Engine) Scorer() *scoring.Scorer {
	return e.scorer.Load()
}

// SetWeights swaps the scoring weights after validation. Requests in flight
// finish with the weights they started with.
func (e *Engine) SetWeights(w scoring.Weights) error {
	s, err := scoring.NewScorer(w)
	if err != nil {
		return err
	}
	e.scorer.Store(s)
	e.logger.Info("scoring weights updated",
		zap.Float64("skills", w.Skills),
		zap.Float64("experience", w.Experience),
		zap.Float64("education", w.Education),
		zap.Float64("similarity", w.Similarity))
	return nil
}

func (e *Engine) index(kind models.EntityKind) *vector.FlatIndex {
	if kind == models.KindCandidate {
		return e.candidates.Load()
	}
	return e.postings.Load()
}

// embed vectorizes text under the configured timeout. All failures, timeouts
// included, classify as embedding.ErrVectorization.
func (e *Engine) embed(ctx context.Context, text string) ([]float32, error) {
	ctx, cancel := context.WithTimeout(ctx, e.config.EmbedTimeout)
	defer cancel()
	vec, err := e.embedder.Embed(ctx, text)
	if err != nil {
		if errors.Is(err, embedding.ErrVectorization) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", embedding.ErrVectorization, err)
	}
	return vec, nil
}

// UpsertCandidate persists the profile and indexes its embedding. On
// embedding failure the profile is stored with failed status and the error is
// returned; a later reindex retries it.
func (e *Engine) UpsertCandidate(ctx context.Context, p *models.CandidateProfile) error {
	doc, err := canonical.Candidate(p)
	if err != nil {
		return err
	}

	vec, embedErr := e.embed(ctx, doc.Text)
	if embedErr != nil {
		p.Status = models.CandidateStatusFailed
	} else {
		p.Status = models.CandidateStatusProcessed
	}

	e.reindexMu.RLock()
	defer e.reindexMu.RUnlock()
	if err := e.persistCandidate(ctx, p); err != nil {
		return err
	}
	if embedErr != nil {
		e.logger.Warn("candidate stored without embedding",
			zap.String("id", p.ID), zap.Error(embedErr))
		return embedErr
	}
	if err := e.candidates.Load().Add(p.ID, vec); err != nil {
		return fmt.Errorf("failed to index candidate %s: %w", p.ID, err)
	}
	e.logger.Debug("candidate indexed", zap.String("id", p.ID))
	return nil
}

// UpsertPosting persists the posting and indexes its embedding. Postings whose
// status is not indexable (draft, closed) are persisted but tombstoned out of
// the index, so the same status policy holds on upsert and on reindex.
func (e *Engine) UpsertPosting(ctx context.Context, j *models.JobPosting) error {
	doc, err := canonical.Posting(j)
	if err != nil {
		return err
	}

	if !j.Status.Indexable() {
		e.reindexMu.RLock()
		defer e.reindexMu.RUnlock()
		if err := e.persistPosting(ctx, j); err != nil {
			return err
		}
		e.postings.Load().Remove(j.ID)
		e.logger.Debug("posting stored unindexed",
			zap.String("id", j.ID), zap.String("status", string(j.Status)))
		return nil
	}

	vec, err := e.embed(ctx, doc.Text)
	if err != nil {
		return err
	}
	e.reindexMu.RLock()
	defer e.reindexMu.RUnlock()
	if err := e.persistPosting(ctx, j); err != nil {
		return err
	}
	if err := e.postings.Load().Add(j.ID, vec); err != nil {
		return fmt.Errorf("failed to index posting %s: %w", j.ID, err)
	}
	e.logger.Debug("posting indexed", zap.String("id", j.ID))
	return nil
}

func (e *Engine) persistCandidate(ctx context.Context, p *models.CandidateProfile) error {
	err := e.storage.UpdateCandidate(ctx, p)
	if errors.Is(err, storage.ErrNotFound) {
		return e.storage.CreateCandidate(ctx, p)
	}
	return err
}

func (e *Engine) persistPosting(ctx context.Context, j *models.JobPosting) error {
	err := e.storage.UpdatePosting(ctx, j)
	if errors.Is(err, storage.ErrNotFound) {
		return e.storage.CreatePosting(ctx, j)
	}
	return err
}

// RemoveCandidate deletes the profile and tombstones its index entry.
func (e *Engine) RemoveCandidate(ctx context.Context, id string) error {
	e.reindexMu.RLock()
	defer e.reindexMu.RUnlock()
	if err := e.storage.DeleteCandidate(ctx, id); err != nil {
		return err
	}
	e.candidates.Load().Remove(id)
	return nil
}

// RemovePosting deletes the posting and tombstones its index entry.
func (e *Engine) RemovePosting(ctx context.Context, id string) error {
	e.reindexMu.RLock()
	defer e.reindexMu.RUnlock()
	if err := e.storage.DeletePosting(ctx, id); err != nil {
		return err
	}
	e.postings.Load().Remove(id)
	return nil
}

// Match runs a top-k match request. req.Kind names the kind of entities to
// return: KindCandidate matches a posting against candidates, KindPosting
// matches a candidate against postings.
func (e *Engine) Match(ctx context.Context, req *models.MatchRequest) (*models.MatchResponse, error) {
	start := time.Now()
	if !req.Kind.Valid() {
		return nil, fmt.Errorf("%w: unknown kind %q", ErrBadRequest, req.Kind)
	}
	req.Normalize()

	queryDoc, err := e.queryDocument(ctx, req)
	if err != nil {
		return nil, err
	}
	vec, err := e.embed(ctx, queryDoc.Text)
	if err != nil {
		return nil, err
	}

	idx := e.index(req.Kind)
	hits, err := idx.Search(vec, req.TopK*searchOversample)
	if err != nil {
		return nil, err
	}

	results := make([]*models.MatchResult, 0, len(hits))
	for _, hit := range hits {
		// The query entity itself can live in the searched index when both
		// sides were indexed; never match an entity against itself.
		if hit.ID == queryDoc.EntityID {
			continue
		}
		res, err := e.scoreHit(ctx, req.Kind, queryDoc, hit)
		if err != nil {
			e.logger.Warn("skipping unscorable hit", zap.String("id", hit.ID), zap.Error(err))
			continue
		}
		if res.Score < req.MinScore {
			continue
		}
		results = append(results, res)
	}
	sortResults(results)
	if req.RequireSkillFloor {
		results = e.applySkillFloor(ctx, req, queryDoc, results)
	}
	if len(results) > req.TopK {
		results = results[:req.TopK]
	}
	for i, r := range results {
		r.Rank = i + 1
	}

	return &models.MatchResponse{
		Results:    results,
		Total:      len(results),
		Generation: idx.Generation(),
		QueryTime:  time.Since(start).Milliseconds(),
	}, nil
}

// queryDocument resolves the request's query side into a canonical document.
func (e *Engine) queryDocument(ctx context.Context, req *models.MatchRequest) (*canonical.Document, error) {
	switch req.Kind {
	case models.KindCandidate:
		// Returning candidates, so the query is a posting.
		if req.Posting != nil {
			return canonical.Posting(req.Posting)
		}
		if req.EntityID == "" {
			return nil, fmt.Errorf("%w: posting or entity_id required", ErrBadRequest)
		}
		j, err := e.storage.GetPosting(ctx, req.EntityID)
		if err != nil {
			return nil, err
		}
		return canonical.Posting(j)
	default:
		if req.Candidate != nil {
			return canonical.Candidate(req.Candidate)
		}
		if req.EntityID == "" {
			return nil, fmt.Errorf("%w: candidate or entity_id required", ErrBadRequest)
		}
		p, err := e.storage.GetCandidate(ctx, req.EntityID)
		if err != nil {
			return nil, err
		}
		return canonical.Candidate(p)
	}
}

// scoreHit loads the hit's record and computes the weighted score. The scorer
// always rates candidate against posting regardless of query direction.
func (e *Engine) scoreHit(ctx context.Context, kind models.EntityKind, query *canonical.Document, hit vector.Hit) (*models.MatchResult, error) {
	scorer := e.scorer.Load()
	if kind == models.KindCandidate {
		p, err := e.storage.GetCandidate(ctx, hit.ID)
		if err != nil {
			return nil, err
		}
		candDoc, err := canonical.Candidate(p)
		if err != nil {
			return nil, err
		}
		res := scorer.Score(candDoc, query, hit.Similarity)
		return &res, nil
	}
	j, err := e.storage.GetPosting(ctx, hit.ID)
	if err != nil {
		return nil, err
	}
	postDoc, err := canonical.Posting(j)
	if err != nil {
		return nil, err
	}
	res := scorer.Score(query, postDoc, hit.Similarity)
	res.EntityID = j.ID
	return &res, nil
}

// applySkillFloor drops results that hold fewer than 70% of the posting's
// required skills. Runs after scoring so dropped results were still explained
// in logs if needed.
func (e *Engine) applySkillFloor(ctx context.Context, req *models.MatchRequest, query *canonical.Document, results []*models.MatchResult) []*models.MatchResult {
	kept := results[:0]
	for _, r := range results {
		var required, held []string
		if req.Kind == models.KindCandidate {
			required = query.RequiredSkills
			held = append(r.Breakdown.MatchedSkills, r.Breakdown.ExtraSkills...)
		} else {
			j, err := e.storage.GetPosting(ctx, r.EntityID)
			if err != nil {
				continue
			}
			required = j.RequiredSkills
			held = query.Skills
		}
		if scoring.MeetsSkillFloor(required, held) {
			kept = append(kept, r)
		}
	}
	return kept
}

// sortResults orders by score descending, ties broken by entity ID ascending
// for deterministic output.
func sortResults(results []*models.MatchResult) {
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].EntityID < results[j].EntityID
	})
}

// SimilarHit is one raw similarity search result.
type SimilarHit struct {
	EntityID   string  `json:"entity_id"`
	Similarity float64 `json:"similarity"`
}

// SearchText embeds free text and returns the k nearest entities of the given
// kind by raw similarity, without weighted scoring.
func (e *Engine) SearchText(ctx context.Context, kind models.EntityKind, text string, k int) ([]SimilarHit, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("%w: unknown kind %q", ErrBadRequest, kind)
	}
	if k <= 0 {
		k = 10
	}
	vec, err := e.embed(ctx, text)
	if err != nil {
		return nil, err
	}
	hits, err := e.index(kind).Search(vec, k)
	if err != nil {
		return nil, err
	}
	out := make([]SimilarHit, len(hits))
	for i, h := range hits {
		out[i] = SimilarHit{EntityID: h.ID, Similarity: h.Similarity}
	}
	return out, nil
}

// PairwiseScore rates one candidate against one posting directly, without
// touching the indexes.
func (e *Engine) PairwiseScore(ctx context.Context, candidateID, postingID string) (*models.MatchResult, error) {
	p, err := e.storage.GetCandidate(ctx, candidateID)
	if err != nil {
		return nil, err
	}
	j, err := e.storage.GetPosting(ctx, postingID)
	if err != nil {
		return nil, err
	}
	candDoc, err := canonical.Candidate(p)
	if err != nil {
		return nil, err
	}
	postDoc, err := canonical.Posting(j)
	if err != nil {
		return nil, err
	}
	candVec, err := e.embed(ctx, candDoc.Text)
	if err != nil {
		return nil, err
	}
	postVec, err := e.embed(ctx, postDoc.Text)
	if err != nil {
		return nil, err
	}
	// Both vectors are unit length, so the inner product is the cosine; only
	// the negative tail needs clamping.
	sim := vector.InnerProduct(candVec, postVec)
	if sim < 0 {
		sim = 0
	} else if sim > 1 {
		sim = 1
	}
	res := e.scorer.Load().Score(candDoc, postDoc, sim)
	return &res, nil
}

// Stats describes the engine's current state.
type Stats struct {
	Candidates          int64  `json:"candidates"`
	Postings            int64  `json:"postings"`
	CandidateIndexSize  int    `json:"candidate_index_size"`
	PostingIndexSize    int    `json:"posting_index_size"`
	CandidateGeneration uint64 `json:"candidate_index_generation"`
	PostingGeneration   uint64 `json:"posting_index_generation"`
	UptimeSeconds       int64  `json:"uptime_seconds"`
}

// Stats returns storage counts and index sizes.
func (e *Engine) Stats(ctx context.Context) (*Stats, error) {
	cands, err := e.storage.CountCandidates(ctx)
	if err != nil {
		return nil, err
	}
	posts, err := e.storage.CountPostings(ctx)
	if err != nil {
		return nil, err
	}
	cIdx := e.candidates.Load()
	pIdx := e.postings.Load()
	return &Stats{
		Candidates:          cands,
		Postings:            posts,
		CandidateIndexSize:  cIdx.Size(),
		PostingIndexSize:    pIdx.Size(),
		CandidateGeneration: cIdx.Generation(),
		PostingGeneration:   pIdx.Generation(),
		UptimeSeconds:       int64(time.Since(e.startedAt).Seconds()),
	}, nil
}

// SaveSnapshots writes both indexes to disk. Empty paths are skipped.
func (e *Engine) SaveSnapshots(candidatePath, postingPath string) error {
	if err := e.candidates.Load().Snapshot().WriteFile(candidatePath); err != nil {
		return fmt.Errorf("candidate snapshot: %w", err)
	}
	if err := e.postings.Load().Snapshot().WriteFile(postingPath); err != nil {
		return fmt.Errorf("posting snapshot: %w", err)
	}
	return nil
}

// LoadSnapshots restores both indexes from disk, replacing the in-memory
// indexes atomically. Missing files are not an error; the affected index is
// left as is.
func (e *Engine) LoadSnapshots(candidatePath, postingPath string) error {
	e.reindexMu.Lock()
	defer e.reindexMu.Unlock()

	if err := e.restoreIndex(&e.candidates, candidatePath); err != nil {
		return fmt.Errorf("candidate snapshot: %w", err)
	}
	if err := e.restoreIndex(&e.postings, postingPath); err != nil {
		return fmt.Errorf("posting snapshot: %w", err)
	}
	return nil
}

func (e *Engine) restoreIndex(ptr *atomic.Pointer[vector.FlatIndex], path string) error {
	if path == "" {
		return nil
	}
	snap, err := vector.ReadSnapshotFile(path)
	if errors.Is(err, os.ErrNotExist) {
		e.logger.Info("no snapshot on disk", zap.String("path", path))
		return nil
	}
	if err != nil {
		return err
	}
	fresh, err := vector.NewFlatIndex(snap.Dimensions, vector.WithGeneration(ptr.Load().Generation()))
	if err != nil {
		return err
	}
	if err := fresh.Restore(snap); err != nil {
		return err
	}
	ptr.Store(fresh)
	e.logger.Info("index restored from snapshot",
		zap.String("path", path),
		zap.Int("entries", fresh.Size()),
		zap.Uint64("generation", fresh.Generation()))
	return nil
}

// Close releases the embedder and storage.
func (e *Engine) Close() error {
	var errs []error
	if err := e.embedder.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := e.storage.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
