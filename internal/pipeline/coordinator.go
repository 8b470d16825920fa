// Package pipeline orchestrates one directory refresh: collect, normalize,
// deduplicate, upsert, sweep, export, notify.
package pipeline

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/partybase-ng/directory-cli/internal/collector"
	"github.com/partybase-ng/directory-cli/internal/config"
	"github.com/partybase-ng/directory-cli/internal/match"
	"github.com/partybase-ng/directory-cli/internal/model"
	"github.com/partybase-ng/directory-cli/internal/normalize"
	"github.com/partybase-ng/directory-cli/internal/store"
)

// Exporter writes snapshot artifacts after a run. Export failures are
// logged, never fatal to the run.
type Exporter interface {
	Export(ctx context.Context, run *model.Run) error
}

// Notifier emits a fire-and-forget run summary.
type Notifier interface {
	NotifyRun(ctx context.Context, run *model.Run)
}

// Coordinator executes refresh runs end to end.
type Coordinator struct {
	cfg      *config.Config
	store    store.Store
	registry *collector.Registry
	norm     *normalize.Normalizer
	matcher  *match.Matcher
	exporter Exporter
	notifier Notifier
	now      func() time.Time
}

// New creates a Coordinator. exporter and notifier may be nil.
func New(cfg *config.Config, st store.Store, reg *collector.Registry, exp Exporter, n Notifier) *Coordinator {
	return &Coordinator{
		cfg:      cfg,
		store:    st,
		registry: reg,
		norm:     normalize.New(cfg.Normalize),
		matcher:  match.NewMatcher(cfg.Match),
		exporter: exp,
		notifier: n,
		now:      time.Now,
	}
}

// WithClock overrides the time source for tests.
func (c *Coordinator) WithClock(now func() time.Time) *Coordinator {
	c.now = now
	return c
}

// batchEntry tracks which source a normalized record came from so per-source
// counts survive in-batch merging.
type batchEntry struct {
	rec    *model.CanonicalRecord
	source int
}

// Execute runs one refresh job to completion. The returned run is always
// finalized and persisted; the error is non-nil only when every source
// failed or the store itself broke.
func (c *Coordinator) Execute(ctx context.Context, job *model.RunJob) (*model.Run, error) {
	log := zap.L().With(
		zap.String("job_id", job.ID),
		zap.String("trigger", string(job.Trigger)),
	)

	run := &model.Run{
		JobID:     job.ID,
		Trigger:   job.Trigger,
		Slot:      job.Slot,
		StartedAt: c.now().UTC(),
	}
	if err := c.store.CreateRun(ctx, run); err != nil {
		return nil, eris.Wrap(err, "pipeline: create run")
	}
	log = log.With(zap.String("run_id", run.ID))
	log.Info("pipeline: run started", zap.Strings("sources", job.Sources))

	collectors, err := c.registry.Select(job.Sources)
	if err != nil {
		return run, c.finalize(ctx, run, err)
	}

	outputs := c.collect(ctx, collectors)
	run.Sources = make([]model.SourceResult, len(collectors))

	since := c.incrementalCutoff(ctx, job)
	batch := make(map[string]batchEntry)
	var order []string

	for i, col := range collectors {
		src := &run.Sources[i]
		src.Platform = col.Platform()

		out := outputs[i]
		if out.err != nil {
			src.Failed = true
			src.Errors = []string{out.err.Error()}
			log.Warn("pipeline: source failed",
				zap.String("source", src.Platform), zap.Error(out.err))
			continue
		}
		src.Errors = out.res.Errors
		src.ElapsedMS = out.res.ElapsedMS
		src.Found = len(out.res.Candidates)
		run.Found += src.Found

		for _, cand := range out.res.Candidates {
			if !since.IsZero() && cand.ObservedAt != nil && cand.ObservedAt.Before(since) {
				continue
			}
			rec, err := c.norm.Normalize(cand)
			if err != nil {
				src.Dropped++
				run.Dropped++
				continue
			}
			if job.Region != "" && rec.Region != normalize.Region(job.Region, "") {
				continue
			}
			if prev, ok := batch[rec.StableID]; ok {
				// Same stable ID inside one batch is the same entity by
				// construction; fold immediately.
				p, s := match.ChoosePrimary(prev.rec, rec)
				batch[rec.StableID] = batchEntry{rec: match.Merge(p, s), source: prev.source}
				run.Merged++
				continue
			}
			batch[rec.StableID] = batchEntry{rec: rec, source: i}
			order = append(order, rec.StableID)
		}
	}

	batchReviews := c.matchBatch(run, batch, order)

	for _, id := range order {
		entry, ok := batch[id]
		if !ok {
			continue // merged away by an earlier candidate
		}
		if err := c.resolve(ctx, run, &run.Sources[entry.source], entry.rec, batch); err != nil {
			log.Warn("pipeline: resolve failed",
				zap.String("stable_id", id), zap.Error(err))
			run.Sources[entry.source].Errors = append(run.Sources[entry.source].Errors, err.Error())
		}
	}

	c.queueBatchReviews(ctx, run, batchReviews, log)

	// A run where every source hard-failed mutates nothing, including the
	// retention sweep.
	if anySourceSucceeded(run) {
		c.sweep(ctx, run, log)
	}
	return run, c.finalize(ctx, run, nil)
}

type sourceOutput struct {
	res *collector.Result
	err error
}

// collect fans out the selected collectors, bounded by the configured
// concurrency limit. A failed source never cancels its siblings.
func (c *Coordinator) collect(ctx context.Context, collectors []collector.Collector) []sourceOutput {
	outputs := make([]sourceOutput, len(collectors))

	limit := c.cfg.Collect.MaxConcurrent
	if limit <= 0 {
		limit = 1
	}
	var g errgroup.Group
	g.SetLimit(limit)
	for i, col := range collectors {
		g.Go(func() error {
			res, err := col.Collect(ctx)
			outputs[i] = sourceOutput{res: res, err: err}
			return nil
		})
	}
	g.Wait() //nolint:errcheck
	return outputs
}

// matchBatch scores same-batch candidates pairwise against each other.
// Auto-merge verdicts fold entries in place; review-band pairs are returned
// and queued once both survivors have been upserted.
func (c *Coordinator) matchBatch(run *model.Run, batch map[string]batchEntry, order []string) []model.DuplicateMatch {
	var reviews []model.DuplicateMatch
	for i := 0; i < len(order); i++ {
		a, ok := batch[order[i]]
		if !ok {
			continue
		}
		for j := i + 1; j < len(order); j++ {
			b, ok := batch[order[j]]
			if !ok {
				continue
			}
			score, reason := c.matcher.Score(a.rec, b.rec)
			switch c.matcher.Classify(score) {
			case match.AutoMerge:
				p, s := match.ChoosePrimary(a.rec, b.rec)
				merged := match.Merge(p, s)
				delete(batch, s.StableID)
				run.Merged++
				if p.StableID == a.rec.StableID {
					batch[p.StableID] = batchEntry{rec: merged, source: a.source}
					a = batch[p.StableID]
					continue
				}
				// The later entry survived; the outer loop rescans it when
				// it reaches that position.
				batch[p.StableID] = batchEntry{rec: merged, source: b.source}
				j = len(order)
			case match.Review:
				reviews = append(reviews, model.DuplicateMatch{
					StableIDA:  a.rec.StableID,
					StableIDB:  b.rec.StableID,
					Similarity: score,
					Reason:     reason,
				})
			}
		}
	}
	return reviews
}

// queueBatchReviews queues review-band pairs found inside the batch. A side
// that never made it into the store (suppressed, or merged away during
// resolution) drops the pair.
func (c *Coordinator) queueBatchReviews(ctx context.Context, run *model.Run, reviews []model.DuplicateMatch, log *zap.Logger) {
	for _, m := range reviews {
		a, err := c.store.FindByStableID(ctx, m.StableIDA)
		if err != nil || a == nil {
			continue
		}
		b, err := c.store.FindByStableID(ctx, m.StableIDB)
		if err != nil || b == nil {
			continue
		}
		if err := c.store.QueueMatch(ctx, m); err != nil {
			log.Warn("pipeline: queue batch match", zap.Error(err))
			continue
		}
		run.Queued++
	}
}

// incrementalCutoff returns the observation cutoff for incremental runs:
// candidates last observed before the previous successful run start are
// skipped. Full runs process everything.
func (c *Coordinator) incrementalCutoff(ctx context.Context, job *model.RunJob) time.Time {
	if job.Full {
		return time.Time{}
	}
	runs, err := c.store.ListRuns(ctx, 20)
	if err != nil {
		return time.Time{}
	}
	for _, r := range runs {
		if r.Success && r.ID != "" {
			return r.StartedAt
		}
	}
	return time.Time{}
}

// resolve dedupes one normalized record against the store and upserts the
// survivor.
func (c *Coordinator) resolve(ctx context.Context, run *model.Run, src *model.SourceResult, rec *model.CanonicalRecord, batch map[string]batchEntry) error {
	existing, err := c.store.FindByStableID(ctx, rec.StableID)
	if err != nil {
		return err
	}
	if existing != nil {
		p, s := match.ChoosePrimary(existing, rec)
		merged := match.Merge(p, s)
		res, err := c.store.Upsert(ctx, merged)
		if err != nil {
			return err
		}
		if res == store.UpsertSuppressed {
			src.Dropped++
			run.Dropped++
			return nil
		}
		src.Updated++
		run.Updated++
		return nil
	}

	candidates, err := c.store.FindByWeakSignal(ctx, store.WeakSignal{
		Region:   rec.Region,
		Phones:   rec.Phones,
		Emails:   rec.Emails,
		Websites: rec.Websites,
	})
	if err != nil {
		return err
	}

	var best *model.CanonicalRecord
	bestScore := 0.0
	bestReason := ""
	var reviews []model.DuplicateMatch
	for i := range candidates {
		cand := &candidates[i]
		score, reason := c.matcher.Score(rec, cand)
		switch c.matcher.Classify(score) {
		case match.AutoMerge:
			if score > bestScore || best == nil {
				best, bestScore, bestReason = cand, score, reason
			}
		case match.Review:
			reviews = append(reviews, model.DuplicateMatch{
				StableIDA:  rec.StableID,
				StableIDB:  cand.StableID,
				Similarity: score,
				Reason:     reason,
			})
		}
	}

	if best != nil {
		p, s := match.ChoosePrimary(best, rec)
		merged := match.Merge(p, s)
		if s.StableID != p.StableID && s.StableID == best.StableID {
			// The store-resident record lost; retire its stable ID.
			if err := c.store.Delete(ctx, best.StableID); err != nil {
				return err
			}
		}
		res, err := c.store.Upsert(ctx, merged)
		if err != nil {
			return err
		}
		if res == store.UpsertSuppressed {
			src.Dropped++
			run.Dropped++
			return nil
		}
		zap.L().Debug("pipeline: auto-merged",
			zap.String("primary", p.StableID),
			zap.String("secondary", s.StableID),
			zap.Float64("similarity", bestScore),
			zap.String("reason", bestReason))
		run.Merged++
		src.Updated++
		run.Updated++
		return nil
	}

	res, err := c.store.Upsert(ctx, rec)
	if err != nil {
		return err
	}
	if res == store.UpsertSuppressed {
		src.Dropped++
		run.Dropped++
		return nil
	}
	if res == store.UpsertCreated {
		src.New++
		run.New++
	} else {
		src.Updated++
		run.Updated++
	}

	for _, m := range reviews {
		if err := c.store.QueueMatch(ctx, m); err != nil {
			return err
		}
		run.Queued++
	}
	return nil
}

// sweep deletes events whose effective date fell out of the rolling
// retention window. Suppliers have no automatic expiry; they leave the
// directory only through human deletion or blacklisting.
func (c *Coordinator) sweep(ctx context.Context, run *model.Run, log *zap.Logger) {
	days := c.cfg.Retention.EventWindowDays
	if days <= 0 {
		return
	}
	yesterday := c.now().UTC().AddDate(0, 0, -1).Truncate(24 * time.Hour)
	cutoff := yesterday.AddDate(0, 0, -days)
	n, err := c.store.DeleteEventsBefore(ctx, cutoff)
	if err != nil {
		log.Warn("pipeline: retention sweep failed", zap.Error(err))
		return
	}
	run.Retired = n
	if n > 0 {
		log.Info("pipeline: retired expired events",
			zap.Int("retired", n), zap.Time("cutoff", cutoff))
	}
}

func anySourceSucceeded(run *model.Run) bool {
	for _, src := range run.Sources {
		if !src.Failed {
			return true
		}
	}
	return false
}

// finalize persists the run outcome and fires export and notification.
// A run succeeds unless every source hard-failed.
func (c *Coordinator) finalize(ctx context.Context, run *model.Run, execErr error) error {
	run.Success = execErr == nil && anySourceSucceeded(run)
	now := c.now().UTC()
	run.CompletedAt = &now

	log := zap.L().With(zap.String("run_id", run.ID))
	if err := c.store.FinishRun(ctx, run); err != nil {
		log.Error("pipeline: finalize run", zap.Error(err))
		if execErr == nil {
			execErr = err
		}
	}

	if run.Success && c.exporter != nil {
		if err := c.exporter.Export(ctx, run); err != nil {
			log.Warn("pipeline: export failed", zap.Error(err))
		}
	}
	if c.notifier != nil {
		c.notifier.NotifyRun(ctx, run)
	}

	log.Info("pipeline: run finished",
		zap.Bool("success", run.Success),
		zap.Int("found", run.Found),
		zap.Int("new", run.New),
		zap.Int("updated", run.Updated),
		zap.Int("merged", run.Merged),
		zap.Int("queued_for_review", run.Queued),
		zap.Int("dropped", run.Dropped),
		zap.Int("retired", run.Retired),
	)

	if execErr != nil {
		return eris.Wrap(execErr, "pipeline: run failed")
	}
	if !run.Success {
		return eris.Errorf("pipeline: all %d sources failed", len(run.Sources))
	}
	return nil
}
