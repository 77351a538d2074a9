// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package research orchestrates one research request: it dispatches the
// query to each requested provider concurrently, normalizes and scores
// what comes back, runs the rank pipeline once over the concatenation,
// and assembles the report. Per-provider failures are recorded in the
// report's methodology; only a request where every provider fails is an
// error.
package research

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/research-agent/internal/normalize"
	"github.com/pdiddy/research-agent/internal/rank"
	"github.com/pdiddy/research-agent/internal/score"
	"github.com/pdiddy/research-agent/internal/search"
	"github.com/pdiddy/research-agent/pkg/types"
)

// DefaultProviderTimeout bounds a provider call when the orchestrator has
// no explicit timeout.
const DefaultProviderTimeout = 30 * time.Second

// Orchestrator runs research requests against a fixed set of backends.
// It holds no per-request state and is safe for concurrent use.
type Orchestrator struct {
	Backends map[types.Provider]search.Backend
	Scorer   *score.Scorer

	// ProviderTimeout bounds each provider call. Zero uses DefaultProviderTimeout.
	ProviderTimeout time.Duration

	// Defaults fill in request fields left empty by Run.
	Defaults types.ResearchConfig

	Logger *zap.Logger

	// Now returns the reference time for recency scoring. Nil uses time.Now.
	Now func() time.Time
}

// outcome is what one provider contributed: raw results or an error.
type outcome struct {
	provider types.Provider
	raws     []types.RawResult
	answer   string
	err      error
	took     time.Duration
}

// RunResearch dispatches query to providers in the given order, merges
// their scored results through the rank pipeline with fc, and returns the
// report. Providers named twice are dispatched once. It fails only when
// the request is invalid or every provider failed.
func (o *Orchestrator) RunResearch(ctx context.Context, query string, providers []types.Provider, fc types.FilterConfig) (types.ResearchReport, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return types.ResearchReport{}, ErrEmptyQuery
	}
	order := dedupProviders(providers)
	if len(order) == 0 {
		return types.ResearchReport{}, ErrNoProviders
	}

	log := o.logger().With(zap.String("query", query))
	log.Info("dispatching research", zap.Stringers("providers", order))

	// Each task writes only its own slot, so the merge below follows
	// dispatch order no matter which provider finishes first.
	slots := make([]outcome, len(order))
	var g errgroup.Group
	for i, p := range order {
		i, p := i, p
		g.Go(func() error {
			slots[i] = o.dispatch(ctx, p, query, fc)
			return nil
		})
	}
	_ = g.Wait()

	now := o.now()
	scorer := o.scorer()
	meth := types.Methodology{
		ToolsUsed:      order,
		DomainsFocused: mergeDomains(fc.IncludeDomains, fc.FocusDomains),
	}

	var all []types.ScoredResult
	var errs []error
	var summary string
	for _, s := range slots {
		if s.err != nil {
			errs = append(errs, s.err)
			f := failureOf(s.err)
			meth.Failures = append(meth.Failures, f)
			meth.Notes = append(meth.Notes, fmt.Sprintf("%s failed: %s", f.Provider, f.Reason))
			log.Warn("provider failed", zap.Stringer("provider", s.provider), zap.Error(s.err), zap.Duration("took", s.took))
			continue
		}
		if summary == "" {
			summary = s.answer
		}
		normalized, malformed := normalize.NormalizeAll(s.raws, s.provider)
		meth.Malformed += malformed
		meth.Candidates += len(normalized)
		all = append(all, scorer.ScoreAll(normalized, query, now)...)
		log.Debug("provider answered",
			zap.Stringer("provider", s.provider),
			zap.Int("results", len(s.raws)),
			zap.Int("malformed", malformed),
			zap.Duration("took", s.took))
	}

	if len(errs) == len(order) {
		err := &AllProvidersFailedError{Errors: errs}
		log.Error("research failed", zap.Error(err))
		return types.ResearchReport{}, err
	}

	out := rank.Apply(all, fc)
	meth.DuplicatesRemoved = out.DuplicatesRemoved
	if note := emptyNote(out, fc); note != "" {
		meth.Notes = append(meth.Notes, note)
	}

	log.Info("research complete",
		zap.Int("candidates", meth.Candidates),
		zap.Int("results", len(out.Results)),
		zap.Int("duplicates_removed", out.DuplicatesRemoved),
		zap.Int("failures", len(meth.Failures)))

	return types.ResearchReport{
		Query:       query,
		Results:     out.Results,
		Summary:     summary,
		Methodology: meth,
		GeneratedAt: now,
	}, nil
}

// Run plans req (search mode, domains, defaults) and executes it.
func (o *Orchestrator) Run(ctx context.Context, req Request) (types.ResearchReport, error) {
	req = o.withDefaults(req)
	planned, err := Plan(req)
	if err != nil {
		return types.ResearchReport{}, err
	}
	report, err := o.RunResearch(ctx, req.Query, planned.Providers, planned.Filter)
	if err != nil {
		return report, err
	}
	report.Methodology.SearchMode = planned.Mode
	return report, nil
}

// dispatch calls one backend under the per-provider timeout. The call is
// abandoned when the deadline fires even if the backend ignores ctx.
func (o *Orchestrator) dispatch(ctx context.Context, p types.Provider, query string, fc types.FilterConfig) outcome {
	start := time.Now()
	res := outcome{provider: p}
	if !p.Valid() {
		res.err = &ProviderError{Provider: p, Err: ErrUnknownProvider}
		return res
	}
	b, ok := o.Backends[p]
	if !ok || b == nil {
		res.err = &ProviderError{Provider: p, Err: ErrProviderNotConfigured}
		return res
	}

	timeout := o.ProviderTimeout
	if timeout <= 0 {
		timeout = DefaultProviderTimeout
	}
	cctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type reply struct {
		raws   []types.RawResult
		answer string
		err    error
	}
	ch := make(chan reply, 1)
	go func() {
		var r reply
		if a, ok := b.(search.Answerer); ok {
			r.raws, r.answer, r.err = a.SearchWithAnswer(cctx, query, fc)
		} else {
			r.raws, r.err = b.Search(cctx, query, fc)
		}
		ch <- r
	}()

	select {
	case r := <-ch:
		res.took = time.Since(start)
		switch {
		case r.err == nil:
			res.raws, res.answer = r.raws, r.answer
		case ctx.Err() == nil && errors.Is(cctx.Err(), context.DeadlineExceeded):
			res.err = &ProviderTimeoutError{Provider: p, Timeout: timeout}
		default:
			res.err = &ProviderError{Provider: p, Err: r.err}
		}
	case <-cctx.Done():
		res.took = time.Since(start)
		if err := ctx.Err(); err != nil {
			res.err = &ProviderError{Provider: p, Err: err}
		} else {
			res.err = &ProviderTimeoutError{Provider: p, Timeout: timeout}
		}
	}
	return res
}

func (o *Orchestrator) withDefaults(req Request) Request {
	d := o.Defaults
	if req.Mode == "" {
		req.Mode = d.DefaultMode
	}
	if req.MaxResultsPerTool <= 0 && d.MaxResultsPerTool > 0 {
		req.MaxResultsPerTool = d.MaxResultsPerTool
	}
	if req.MinScore == nil && d.MinScore > 0 {
		ms := d.MinScore
		req.MinScore = &ms
	}
	return req
}

func (o *Orchestrator) logger() *zap.Logger {
	if o.Logger == nil {
		return zap.NewNop()
	}
	return o.Logger
}

func (o *Orchestrator) scorer() *score.Scorer {
	if o.Scorer == nil {
		return score.Default()
	}
	return o.Scorer
}

func (o *Orchestrator) now() time.Time {
	if o.Now == nil {
		return time.Now().UTC()
	}
	return o.Now()
}

// emptyNote explains an empty result list by the step that emptied it.
func emptyNote(out rank.Output, fc types.FilterConfig) string {
	switch {
	case len(out.Results) > 0:
		return ""
	case out.Excluded > 0 && out.BelowThreshold == 0:
		return fmt.Sprintf("no results matched the domain filter (%d excluded)", out.Excluded)
	case out.BelowThreshold > 0:
		return fmt.Sprintf("no results met the minimum score of %.1f", fc.MinScore)
	default:
		return "providers returned no usable results"
	}
}

// dedupProviders keeps the first occurrence of each provider.
func dedupProviders(providers []types.Provider) []types.Provider {
	seen := make(map[types.Provider]bool, len(providers))
	var out []types.Provider
	for _, p := range providers {
		p = types.Provider(strings.ToLower(strings.TrimSpace(string(p))))
		if p == "" || seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, p)
	}
	return out
}

func mergeDomains(a, b []string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, d := range append(append([]string(nil), a...), b...) {
		if d == "" || seen[d] {
			continue
		}
		seen[d] = true
		out = append(out, d)
	}
	return out
}
