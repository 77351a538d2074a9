// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package research

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/research-agent/internal/search"
	"github.com/pdiddy/research-agent/pkg/types"
)

var testNow = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

// fakeBackend returns canned results after an optional delay. When
// ignoreCtx is set it sleeps through cancellation like a misbehaving client.
type fakeBackend struct {
	name      types.Provider
	raws      []types.RawResult
	err       error
	delay     time.Duration
	ignoreCtx bool
	calls     atomic.Int32
	lastFC    types.FilterConfig
}

func (f *fakeBackend) Name() types.Provider { return f.name }

func (f *fakeBackend) Search(ctx context.Context, _ string, fc types.FilterConfig) ([]types.RawResult, error) {
	f.calls.Add(1)
	f.lastFC = fc
	if f.delay > 0 {
		if f.ignoreCtx {
			time.Sleep(f.delay)
		} else {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(f.delay):
			}
		}
	}
	return f.raws, f.err
}

// answerBackend is a fakeBackend that also returns a synthesized answer.
type answerBackend struct {
	*fakeBackend
	answer string
}

func (a *answerBackend) SearchWithAnswer(ctx context.Context, query string, fc types.FilterConfig) ([]types.RawResult, string, error) {
	raws, err := a.Search(ctx, query, fc)
	if err != nil {
		return nil, "", err
	}
	return raws, a.answer, nil
}

func raw(url, title string) types.RawResult {
	return types.RawResult{
		"url":     url,
		"title":   title,
		"snippet": "Quantum error correction guide with 3 steps for implementation.",
		"content": "Quantum error correction guide with 3 steps for implementation.",
		"text":    "Quantum error correction guide with 3 steps for implementation.",
		"date":           "2025-12-01",
		"published_date": "2025-12-01",
		"publishedDate":  "2025-12-01",
	}
}

func orchestrator(backends ...*fakeBackend) *Orchestrator {
	m := make(map[types.Provider]search.Backend)
	for _, b := range backends {
		m[b.name] = b
	}
	return &Orchestrator{
		Backends:        m,
		ProviderTimeout: time.Second,
		Now:             func() time.Time { return testNow },
	}
}

func lenient() types.FilterConfig {
	return types.FilterConfig{MinScore: 0, MaxResults: 20}
}

func TestRunResearchMergesProviders(t *testing.T) {
	ppx := &fakeBackend{name: types.ProviderPerplexity, raws: []types.RawResult{raw("https://nasa.gov/a", "Quantum error correction")}}
	tav := &fakeBackend{name: types.ProviderTavily, raws: []types.RawResult{
		raw("https://example.com/b", "Quantum error correction"),
		{"title": "no url"},
	}}
	o := orchestrator(ppx, tav)

	report, err := o.RunResearch(context.Background(), "  quantum error correction ", []types.Provider{types.ProviderPerplexity, types.ProviderTavily}, lenient())
	require.NoError(t, err)

	assert.Equal(t, "quantum error correction", report.Query)
	assert.Equal(t, testNow, report.GeneratedAt)
	require.Len(t, report.Results, 2)
	assert.Equal(t, "nasa.gov", report.Results[0].SourceDomain, "higher credibility ranks first")
	assert.Equal(t, []types.Provider{types.ProviderPerplexity, types.ProviderTavily}, report.Methodology.ToolsUsed)
	assert.Equal(t, 2, report.Methodology.Candidates)
	assert.Equal(t, 1, report.Methodology.Malformed)
	assert.Empty(t, report.Methodology.Failures)
}

func TestRunResearchAllProvidersFail(t *testing.T) {
	boom := errors.New("HTTP 500")
	o := orchestrator(
		&fakeBackend{name: types.ProviderPerplexity, err: boom},
		&fakeBackend{name: types.ProviderTavily, err: boom},
		&fakeBackend{name: types.ProviderExa, err: boom},
	)

	_, err := o.RunResearch(context.Background(), "q", types.AllProviders, lenient())
	require.Error(t, err)

	var all *AllProvidersFailedError
	require.True(t, errors.As(err, &all))
	require.Len(t, all.Errors, 3)
	assert.ErrorIs(t, err, boom)

	failures := all.Failures()
	assert.Equal(t, types.ProviderPerplexity, failures[0].Provider)
	assert.Equal(t, types.ProviderTavily, failures[1].Provider)
	assert.Equal(t, types.ProviderExa, failures[2].Provider)
}

func TestRunResearchPartialFailure(t *testing.T) {
	o := orchestrator(
		&fakeBackend{name: types.ProviderPerplexity, err: errors.New("HTTP 502")},
		&fakeBackend{name: types.ProviderTavily, raws: []types.RawResult{raw("https://mit.edu/x", "Quantum error correction")}},
		&fakeBackend{name: types.ProviderExa, err: errors.New("invalid api key")},
	)

	report, err := o.RunResearch(context.Background(), "quantum error correction", types.AllProviders, lenient())
	require.NoError(t, err)

	require.Len(t, report.Results, 1)
	assert.Equal(t, types.ProviderTavily, report.Results[0].Provider)

	require.Len(t, report.Methodology.Failures, 2)
	assert.Equal(t, types.ProviderPerplexity, report.Methodology.Failures[0].Provider)
	assert.Equal(t, types.ProviderExa, report.Methodology.Failures[1].Provider)
	assert.True(t, report.Methodology.PartialFailure())
	assert.Contains(t, report.Methodology.Notes, "perplexity failed: HTTP 502")
	assert.Contains(t, report.Methodology.Notes, "exa failed: invalid api key")
}

func TestRunResearchTimeout(t *testing.T) {
	slow := &fakeBackend{name: types.ProviderExa, delay: 2 * time.Second, ignoreCtx: true,
		raws: []types.RawResult{raw("https://late.com/x", "late")}}
	fast := &fakeBackend{name: types.ProviderTavily, raws: []types.RawResult{raw("https://mit.edu/x", "Quantum error correction")}}
	o := orchestrator(slow, fast)
	o.ProviderTimeout = 50 * time.Millisecond

	start := time.Now()
	report, err := o.RunResearch(context.Background(), "quantum", []types.Provider{types.ProviderExa, types.ProviderTavily}, lenient())
	require.NoError(t, err)
	assert.Less(t, time.Since(start), time.Second, "a slow provider must not stall the request")

	require.Len(t, report.Methodology.Failures, 1)
	f := report.Methodology.Failures[0]
	assert.Equal(t, types.ProviderExa, f.Provider)
	assert.True(t, f.TimedOut)
	require.Len(t, report.Results, 1)
	assert.Equal(t, "mit.edu", report.Results[0].SourceDomain)
}

func TestRunResearchTimeoutIsTyped(t *testing.T) {
	o := orchestrator(&fakeBackend{name: types.ProviderTavily, delay: time.Second})
	o.ProviderTimeout = 20 * time.Millisecond

	_, err := o.RunResearch(context.Background(), "q", []types.Provider{types.ProviderTavily}, lenient())
	var te *ProviderTimeoutError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, types.ProviderTavily, te.Provider)
	assert.Equal(t, 20*time.Millisecond, te.Timeout)
}

func TestRunResearchDeterministicOrder(t *testing.T) {
	for i := 0; i < 5; i++ {
		// The first-dispatched provider answers last.
		ppx := &fakeBackend{name: types.ProviderPerplexity, delay: 30 * time.Millisecond, raws: []types.RawResult{
			raw("https://a.com/shared", "Quantum error correction"),
			raw("https://a.com/p", "Quantum error correction"),
		}}
		exa := &fakeBackend{name: types.ProviderExa, raws: []types.RawResult{
			raw("https://a.com/shared", "Quantum error correction"),
			raw("https://a.com/e", "Quantum error correction"),
		}}
		o := orchestrator(ppx, exa)

		report, err := o.RunResearch(context.Background(), "quantum error correction",
			[]types.Provider{types.ProviderPerplexity, types.ProviderExa}, lenient())
		require.NoError(t, err)
		require.Len(t, report.Results, 3)

		assert.Equal(t, "https://a.com/shared", report.Results[0].URL)
		assert.Equal(t, types.ProviderPerplexity, report.Results[0].Provider, "tie keeps the first-dispatched provider")
		assert.Equal(t, "https://a.com/p", report.Results[1].URL)
		assert.Equal(t, "https://a.com/e", report.Results[2].URL)
		assert.Equal(t, 1, report.Methodology.DuplicatesRemoved)
	}
}

func TestRunResearchSummary(t *testing.T) {
	ppx := &fakeBackend{name: types.ProviderPerplexity, raws: []types.RawResult{raw("https://nasa.gov/a", "Quantum")}}
	tav := &answerBackend{
		fakeBackend: &fakeBackend{name: types.ProviderTavily, raws: []types.RawResult{raw("https://mit.edu/b", "Quantum")}},
		answer:      "Surface codes dominate.",
	}
	o := &Orchestrator{
		Backends: map[types.Provider]search.Backend{
			types.ProviderPerplexity: ppx,
			types.ProviderTavily:     tav,
		},
		ProviderTimeout: time.Second,
		Now:             func() time.Time { return testNow },
	}

	report, err := o.RunResearch(context.Background(), "quantum", []types.Provider{types.ProviderPerplexity, types.ProviderTavily}, lenient())
	require.NoError(t, err)
	assert.Equal(t, "Surface codes dominate.", report.Summary)
	assert.Len(t, report.Results, 2)

	tav.err = errors.New("HTTP 500")
	report, err = o.RunResearch(context.Background(), "quantum", []types.Provider{types.ProviderPerplexity, types.ProviderTavily}, lenient())
	require.NoError(t, err)
	assert.Empty(t, report.Summary, "a failed provider contributes no summary")
}

func TestRunResearchValidation(t *testing.T) {
	o := orchestrator(&fakeBackend{name: types.ProviderTavily})

	_, err := o.RunResearch(context.Background(), "   ", []types.Provider{types.ProviderTavily}, lenient())
	assert.ErrorIs(t, err, ErrEmptyQuery)

	_, err = o.RunResearch(context.Background(), "q", nil, lenient())
	assert.ErrorIs(t, err, ErrNoProviders)
}

func TestRunResearchUnconfiguredProvider(t *testing.T) {
	tav := &fakeBackend{name: types.ProviderTavily, raws: []types.RawResult{raw("https://mit.edu/x", "x")}}
	o := orchestrator(tav)

	report, err := o.RunResearch(context.Background(), "q",
		[]types.Provider{types.ProviderTavily, types.ProviderExa, "bing", types.ProviderTavily}, lenient())
	require.NoError(t, err)
	assert.Equal(t, int32(1), tav.calls.Load(), "duplicate providers dispatch once")
	require.Len(t, report.Methodology.Failures, 2)

	_, err = o.RunResearch(context.Background(), "q", []types.Provider{types.ProviderExa}, lenient())
	assert.ErrorIs(t, err, ErrProviderNotConfigured)
}

func TestRunResearchEmptyAfterFilter(t *testing.T) {
	o := orchestrator(&fakeBackend{name: types.ProviderTavily, raws: []types.RawResult{raw("https://example.com/x", "x")}})
	fc := types.DefaultFilterConfig()
	fc.IncludeDomains = []string{"*.gov"}

	report, err := o.RunResearch(context.Background(), "q", []types.Provider{types.ProviderTavily}, fc)
	require.NoError(t, err)
	assert.Empty(t, report.Results)
	assert.Equal(t, []string{"*.gov"}, report.Methodology.DomainsFocused)
	assert.Equal(t, []string{"no results matched the domain filter (1 excluded)"}, report.Methodology.Notes)
}

func TestRunResearchEmptyBelowThreshold(t *testing.T) {
	o := orchestrator(&fakeBackend{name: types.ProviderTavily, raws: []types.RawResult{raw("https://example.com/x", "x")}})
	fc := types.FilterConfig{MinScore: 10}

	report, err := o.RunResearch(context.Background(), "q", []types.Provider{types.ProviderTavily}, fc)
	require.NoError(t, err)
	assert.Empty(t, report.Results)
	assert.Equal(t, []string{"no results met the minimum score of 10.0"}, report.Methodology.Notes)
}

func TestRunResearchParentCancelled(t *testing.T) {
	o := orchestrator(&fakeBackend{name: types.ProviderTavily, delay: time.Second})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := o.RunResearch(ctx, "q", []types.Provider{types.ProviderTavily}, lenient())
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	var te *ProviderTimeoutError
	assert.False(t, errors.As(err, &te))
}

func TestRunPlansRequest(t *testing.T) {
	tav := &fakeBackend{name: types.ProviderTavily, raws: []types.RawResult{raw("https://nu.edu.eg/x", "University rankings")}}
	o := orchestrator(tav)
	zero := 0.0

	report, err := o.Run(context.Background(), Request{
		Query:    "university rankings",
		Mode:     types.ModeURL,
		Domains:  []string{"NU.edu.eg"},
		MinScore: &zero,
	})
	require.NoError(t, err)
	assert.Equal(t, types.ModeURL, report.Methodology.SearchMode)
	assert.Equal(t, []string{"nu.edu.eg"}, report.Methodology.DomainsFocused)
	assert.Equal(t, []string{"nu.edu.eg"}, tav.lastFC.IncludeDomains)
	require.Len(t, report.Results, 1)
}

func TestRunURLModeSubdomain(t *testing.T) {
	tav := &fakeBackend{name: types.ProviderTavily, raws: []types.RawResult{
		raw("https://docs.python.org/3/library/asyncio.html", "asyncio"),
		raw("https://www.python.org/about/", "About"),
	}}
	o := orchestrator(tav)
	zero := 0.0

	report, err := o.Run(context.Background(), Request{
		Query:    "python asyncio",
		Mode:     types.ModeURL,
		Domains:  []string{"docs.python.org"},
		MinScore: &zero,
	})
	require.NoError(t, err)
	require.Len(t, report.Results, 1)
	assert.Equal(t, "https://docs.python.org/3/library/asyncio.html", report.Results[0].URL)
	assert.Equal(t, 2, report.Methodology.Candidates)
	assert.Empty(t, report.Methodology.Notes)
}

func TestRunAppliesDefaults(t *testing.T) {
	tav := &fakeBackend{name: types.ProviderTavily}
	exa := &fakeBackend{name: types.ProviderExa}
	o := orchestrator(tav, exa)
	o.Defaults = types.ResearchConfig{MaxResultsPerTool: 7, MinScore: 5, DefaultMode: types.ModeNormal}

	report, err := o.Run(context.Background(), Request{Query: "q"})
	require.NoError(t, err)
	assert.Equal(t, types.ModeNormal, report.Methodology.SearchMode)
	assert.Equal(t, 7, exa.lastFC.MaxResults)
	assert.Equal(t, 5.0, exa.lastFC.MinScore)
}
