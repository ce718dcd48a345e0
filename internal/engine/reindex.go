package engine

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/talentmatch/talentmatch/internal/canonical"
	"github.com/talentmatch/talentmatch/internal/vector"
)

// ReindexReport summarizes a completed reindex.
type ReindexReport struct {
	Candidates          int           `json:"candidates_indexed"`
	Postings            int           `json:"postings_indexed"`
	Skipped             int           `json:"skipped"`
	CandidateGeneration uint64        `json:"candidate_index_generation"`
	PostingGeneration   uint64        `json:"posting_index_generation"`
	Duration            time.Duration `json:"duration_ns"`
}

// Reindex rebuilds both indexes from storage and swaps them in atomically.
// Matching keeps serving from the old indexes for the whole rebuild. Records
// that fail to embed are skipped and counted, never aborting the run; a
// cancelled context aborts between batches and leaves the old indexes live.
func (e *Engine) Reindex(ctx context.Context) (*ReindexReport, error) {
	e.reindexMu.Lock()
	defer e.reindexMu.Unlock()

	start := time.Now()
	report := &ReindexReport{}

	freshCands, err := vector.NewFlatIndex(e.config.Dimensions,
		vector.WithGeneration(e.candidates.Load().Generation()+1))
	if err != nil {
		return nil, err
	}
	freshPosts, err := vector.NewFlatIndex(e.config.Dimensions,
		vector.WithGeneration(e.postings.Load().Generation()+1))
	if err != nil {
		return nil, err
	}

	report.Candidates, err = e.reindexCandidates(ctx, freshCands, report)
	if err != nil {
		return nil, err
	}
	report.Postings, err = e.reindexPostings(ctx, freshPosts, report)
	if err != nil {
		return nil, err
	}

	e.candidates.Store(freshCands)
	e.postings.Store(freshPosts)
	report.CandidateGeneration = freshCands.Generation()
	report.PostingGeneration = freshPosts.Generation()
	report.Duration = time.Since(start)

	e.logger.Info("reindex complete",
		zap.Int("candidates", report.Candidates),
		zap.Int("postings", report.Postings),
		zap.Int("skipped", report.Skipped),
		zap.Duration("duration", report.Duration))
	return report, nil
}

func (e *Engine) reindexCandidates(ctx context.Context, idx *vector.FlatIndex, report *ReindexReport) (int, error) {
	indexed := 0
	for offset := 0; ; offset += e.config.ReindexBatchSize {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		batch, err := e.storage.ListCandidates(ctx, offset, e.config.ReindexBatchSize)
		if err != nil {
			return 0, err
		}
		if len(batch) == 0 {
			return indexed, nil
		}

		docs := make([]*canonical.Document, len(batch))
		for i, p := range batch {
			doc, err := canonical.Candidate(p)
			if err != nil {
				e.logger.Warn("skipping candidate during reindex",
					zap.String("id", p.ID), zap.Error(err))
				report.Skipped++
				continue
			}
			docs[i] = doc
		}
		n, err := e.embedAndAdd(ctx, idx, docs, report)
		if err != nil {
			return 0, err
		}
		indexed += n
	}
}

func (e *Engine) reindexPostings(ctx context.Context, idx *vector.FlatIndex, report *ReindexReport) (int, error) {
	indexed := 0
	for offset := 0; ; offset += e.config.ReindexBatchSize {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		batch, err := e.storage.ListPostings(ctx, offset, e.config.ReindexBatchSize)
		if err != nil {
			return 0, err
		}
		if len(batch) == 0 {
			return indexed, nil
		}

		docs := make([]*canonical.Document, len(batch))
		for i, j := range batch {
			if !j.Status.Indexable() {
				continue
			}
			doc, err := canonical.Posting(j)
			if err != nil {
				e.logger.Warn("skipping posting during reindex",
					zap.String("id", j.ID), zap.Error(err))
				report.Skipped++
				continue
			}
			docs[i] = doc
		}
		n, err := e.embedAndAdd(ctx, idx, docs, report)
		if err != nil {
			return 0, err
		}
		indexed += n
	}
}

// embedAndAdd embeds one batch of documents concurrently and adds the
// successes to idx. nil entries in docs are holes left by earlier skips.
func (e *Engine) embedAndAdd(ctx context.Context, idx *vector.FlatIndex, docs []*canonical.Document, report *ReindexReport) (int, error) {
	vecs := make([][]float32, len(docs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.config.ReindexConcurrency)

	for i, doc := range docs {
		if doc == nil {
			continue
		}
		i, doc := i, doc
		g.Go(func() error {
			vec, err := e.embed(gctx, doc.Text)
			if err != nil {
				// Leave the hole; counted below so one bad record
				// never fails the rebuild.
				e.logger.Warn("embedding failed during reindex",
					zap.String("id", doc.EntityID), zap.Error(err))
				return nil
			}
			vecs[i] = vec
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}

	added := 0
	for i, doc := range docs {
		if doc == nil {
			continue
		}
		if vecs[i] == nil {
			report.Skipped++
			continue
		}
		if err := idx.Add(doc.EntityID, vecs[i]); err != nil {
			return 0, err
		}
		added++
	}
	return added, nil
}
