package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danielpatrickdp/nova-mentor/go-server/internal/cache"
	"github.com/danielpatrickdp/nova-mentor/go-server/internal/pipeline"
	"github.com/danielpatrickdp/nova-mentor/go-server/internal/retrieval"
)

func TestObserveResultCounts(t *testing.T) {
	m := New(nil)
	res := pipeline.Result{
		Verdict: pipeline.Verdict{Kind: pipeline.KindAnswer},
		Mode:    retrieval.ModeLexical,
		Elapsed: 3 * time.Millisecond,
	}
	m.ObserveResult(res)
	m.ObserveResult(res)
	res.Cached = true
	m.ObserveResult(res)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.verdicts.WithLabelValues("answer", "lexical", "false")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.verdicts.WithLabelValues("answer", "lexical", "true")))
}

func TestHandlerExposesCacheGauges(t *testing.T) {
	m := New(func() cache.Stats {
		return cache.Stats{Enabled: true, Capacity: 1000, Size: 4, Hits: 7, Misses: 3}
	})

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.True(t, strings.Contains(body, "nova_cache_hits 7"), body)
	assert.True(t, strings.Contains(body, "nova_cache_entries 4"))
	assert.True(t, strings.Contains(body, "nova_cache_capacity 1000"))
}
