// Package pipeline orchestrates one discovery run: snapshot the known
// records, discover candidate names for the thesis, fetch and validate each
// candidate, and persist the accepted ones. The validation core stays pure;
// all I/O and retrying happens here.
package pipeline

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"startupscout/internal/oracle"
	"startupscout/internal/research"
	"startupscout/internal/store"
	"startupscout/internal/types"
	"startupscout/internal/validate"
)

// Config holds pipeline settings.
type Config struct {
	// Concurrency bounds the per-candidate fan-out.
	Concurrency int
	// Retry is applied around each oracle call.
	Retry oracle.Policy
}

// Pipeline wires the research stage to the validation core and the store.
type Pipeline struct {
	researcher *research.Researcher
	store      *store.Store
	cfg        Config
	log        *zap.Logger
}

// New creates a pipeline.
func New(r *research.Researcher, s *store.Store, cfg Config, log *zap.Logger) *Pipeline {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
	if cfg.Retry.MaxAttempts == 0 {
		cfg.Retry = oracle.DefaultPolicy()
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Pipeline{researcher: r, store: s, cfg: cfg, log: log}
}

// Result is the per-candidate outcome of a run.
type Result struct {
	Name       string           `json:"name"`
	Action     types.Action     `json:"action"`
	Confidence types.Confidence `json:"confidence"`
	Issues     int              `json:"issues"`
	Why        string           `json:"why,omitempty"`
	Err        string           `json:"error,omitempty"`
}

// Summary aggregates one discovery run.
type Summary struct {
	RunID    string        `json:"run_id"`
	Thesis   string        `json:"thesis"`
	Known    int           `json:"known_records"`
	Results  []Result      `json:"results"`
	Added    int           `json:"added"`
	Skipped  int           `json:"skipped"`
	Rejected int           `json:"rejected"`
	Failed   int           `json:"failed"`
	Duration time.Duration `json:"duration"`
}

// Run executes one discovery round for the thesis. The known-records
// snapshot is taken once up front and treated as immutable for the whole
// batch; records added during the run are not visible to its own dedup.
func (p *Pipeline) Run(ctx context.Context, thesis string) (*Summary, error) {
	start := time.Now()
	runID := uuid.NewString()
	log := p.log.With(zap.String("run_id", runID))
	log.Info("starting discovery run", zap.String("thesis", thesis))

	known, err := p.store.Snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to snapshot known records: %w", err)
	}

	var names []string
	err = p.cfg.Retry.Do(ctx, func(ctx context.Context) error {
		var derr error
		names, derr = p.researcher.DiscoverNames(ctx, thesis)
		return derr
	})
	if err != nil {
		return nil, fmt.Errorf("discovery failed: %w", err)
	}

	summary := &Summary{RunID: runID, Thesis: thesis, Known: len(known)}
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.Concurrency)
	for _, name := range names {
		name := name
		g.Go(func() error {
			res := p.processCandidate(gctx, name, known, runID)
			mu.Lock()
			summary.Results = append(summary.Results, res)
			mu.Unlock()
			// Per-candidate failures never abort the batch.
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.Slice(summary.Results, func(i, j int) bool {
		return summary.Results[i].Name < summary.Results[j].Name
	})
	for _, r := range summary.Results {
		switch {
		case r.Err != "":
			summary.Failed++
		case r.Action == types.ActionAdd:
			summary.Added++
		case r.Action == types.ActionSkipExists:
			summary.Skipped++
		case r.Action == types.ActionReject:
			summary.Rejected++
		}
	}
	summary.Duration = time.Since(start)
	log.Info("discovery run finished",
		zap.Int("added", summary.Added),
		zap.Int("skipped", summary.Skipped),
		zap.Int("rejected", summary.Rejected),
		zap.Int("failed", summary.Failed),
		zap.Duration("duration", summary.Duration))
	return summary, nil
}

func (p *Pipeline) processCandidate(ctx context.Context, name string, known []types.KnownRecord, runID string) Result {
	var (
		rec    types.CandidateRecord
		issues []types.Issue
	)
	err := p.cfg.Retry.Do(ctx, func(ctx context.Context) error {
		var ferr error
		rec, issues, ferr = p.researcher.FetchCandidate(ctx, name)
		return ferr
	})
	if err != nil {
		p.log.Warn("candidate fetch failed", zap.String("name", name), zap.Error(err))
		return Result{Name: name, Err: err.Error()}
	}

	verdict := validate.ValidateWithIntakeIssues(rec, known, issues)
	res := Result{
		Name:       rec.Startup.Name,
		Action:     verdict.Action,
		Confidence: verdict.Confidence,
		Issues:     len(verdict.Issues),
	}
	if verdict.Why != nil {
		res.Why = *verdict.Why
	}

	if verdict.Action != types.ActionAdd {
		p.log.Info("candidate not persisted",
			zap.String("name", res.Name),
			zap.String("action", string(verdict.Action)),
			zap.String("why", res.Why))
		return res
	}

	plan, err := store.BuildPlan(verdict, runID)
	if err != nil {
		res.Err = err.Error()
		return res
	}
	if err := p.store.Apply(ctx, plan); err != nil {
		p.log.Error("failed to persist candidate", zap.String("name", res.Name), zap.Error(err))
		res.Err = err.Error()
		return res
	}
	return res
}
