package pipeline

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"startupscout/internal/oracle"
	"startupscout/internal/research"
	"startupscout/internal/store"
	"startupscout/internal/types"
)

func TestMain(m *testing.M) {
	// go.opencensus.io (a transitive dependency of google.golang.org/genai)
	// starts a background worker in init() that cannot be stopped.
	goleak.VerifyTestMain(m,
		goleak.IgnoreTopFunction("go.opencensus.io/stats/view.(*worker).start"),
	)
}

// scriptedOracle answers the discovery prompt with a fixed name list and
// candidate prompts with per-name canned payloads.
type scriptedOracle struct {
	names      []string
	candidates map[string]string
	calls      atomic.Int64
	failFirst  atomic.Bool
}

func (o *scriptedOracle) Complete(ctx context.Context, prompt string) (string, error) {
	return o.CompleteWithSystem(ctx, "", prompt)
}

func (o *scriptedOracle) CompleteWithSystem(ctx context.Context, system, prompt string) (string, error) {
	o.calls.Add(1)
	if o.failFirst.CompareAndSwap(true, false) {
		return "", &oracle.TransientError{Err: fmt.Errorf("rate limited")}
	}
	if strings.HasPrefix(prompt, "List up to") {
		quoted := make([]string, len(o.names))
		for i, n := range o.names {
			quoted[i] = fmt.Sprintf("%q", n)
		}
		return fmt.Sprintf(`{"names": [%s]}`, strings.Join(quoted, ", ")), nil
	}
	for name, payload := range o.candidates {
		if strings.Contains(prompt, fmt.Sprintf("%q", name)) {
			return payload, nil
		}
	}
	return "no such startup", nil
}

func candidateJSON(name, website string) string {
	return fmt.Sprintf(`{
		"startup": {"name": %q, "website": %q, "hq_country": "BR", "year_founded": 2017},
		"funding": {"last_round": "Series A", "last_round_date": "2024-06-15", "last_round_amount_usd": 5000000},
		"sources": {"primary": %q}
	}`, name, website, website)
}

func testPolicy() oracle.Policy {
	return oracle.Policy{
		MaxAttempts: 3,
		BaseDelay:   time.Millisecond,
		MaxDelay:    2 * time.Millisecond,
		Retryable:   oracle.IsTransient,
	}
}

func testPipeline(t *testing.T, o oracle.Oracle) (*Pipeline, *store.Store) {
	t.Helper()
	s, err := store.New(filepath.Join(t.TempDir(), "scout.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	r := research.New(o, research.Config{MaxNames: 10}, nil)
	p := New(r, s, Config{Concurrency: 2, Retry: testPolicy()}, nil)
	return p, s
}

func TestRun_PersistsAcceptedCandidates(t *testing.T) {
	o := &scriptedOracle{
		names: []string{"Cromai", "NotCo"},
		candidates: map[string]string{
			"Cromai": candidateJSON("Cromai", "https://cromai.com"),
			"NotCo":  candidateJSON("NotCo", "https://notco.com"),
		},
	}
	p, s := testPipeline(t, o)

	summary, err := p.Run(context.Background(), "LATAM AI startups")
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Added)
	assert.Zero(t, summary.Skipped)
	assert.Zero(t, summary.Failed)
	assert.NotEmpty(t, summary.RunID)

	known, err := s.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Len(t, known, 2)
}

func TestRun_SkipsKnownRecords(t *testing.T) {
	o := &scriptedOracle{
		names: []string{"Cromai"},
		candidates: map[string]string{
			"Cromai": candidateJSON("Cromai", "https://cromai.com"),
		},
	}
	p, _ := testPipeline(t, o)
	ctx := context.Background()

	first, err := p.Run(ctx, "thesis")
	require.NoError(t, err)
	require.Equal(t, 1, first.Added)

	second, err := p.Run(ctx, "thesis")
	require.NoError(t, err)
	assert.Zero(t, second.Added)
	assert.Equal(t, 1, second.Skipped)
	require.Len(t, second.Results, 1)
	assert.Equal(t, types.ActionSkipExists, second.Results[0].Action)
}

func TestRun_RetriesTransientDiscovery(t *testing.T) {
	o := &scriptedOracle{
		names: []string{"Cromai"},
		candidates: map[string]string{
			"Cromai": candidateJSON("Cromai", "https://cromai.com"),
		},
	}
	o.failFirst.Store(true)
	p, _ := testPipeline(t, o)

	summary, err := p.Run(context.Background(), "thesis")
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Added)
	// One failed discovery call, one retried, one candidate fetch.
	assert.Equal(t, int64(3), o.calls.Load())
}

func TestRun_CandidateFailureDoesNotAbortBatch(t *testing.T) {
	o := &scriptedOracle{
		names: []string{"Cromai", "Ghost"},
		candidates: map[string]string{
			"Cromai": candidateJSON("Cromai", "https://cromai.com"),
			// "Ghost" gets the prose fallback, which never yields JSON.
		},
	}
	p, _ := testPipeline(t, o)

	summary, err := p.Run(context.Background(), "thesis")
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Added)
	assert.Equal(t, 1, summary.Failed)
}

func TestRun_RejectedCandidateIsNotPersisted(t *testing.T) {
	o := &scriptedOracle{
		names: []string{"NoSource"},
		candidates: map[string]string{
			"NoSource": `{"startup": {"name": "NoSource"}, "sources": {}}`,
		},
	}
	p, s := testPipeline(t, o)

	summary, err := p.Run(context.Background(), "thesis")
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Rejected)

	known, err := s.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Empty(t, known)
}
