package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/0xcro3dile/keyreply-go/internal/domain/ports"
)

var _ ports.Observer = (*Observer)(nil)

func TestObserver_Counters(t *testing.T) {
	reg := prometheus.NewRegistry()
	o := New(reg)

	o.Matched("GREET", 2, false)
	o.Matched("GREET", 1, false)
	o.Matched("FALLBACK_CORE", 0, true)
	o.Rejected("busy")
	o.Delivered(3, 800*time.Millisecond)
	o.ResetScheduled()
	o.KnowledgeLoaded(9)

	assert.Equal(t, 2.0, testutil.ToFloat64(o.matches.WithLabelValues("GREET", "match")))
	assert.Equal(t, 1.0, testutil.ToFloat64(o.matches.WithLabelValues("FALLBACK_CORE", "fallback")))
	assert.Equal(t, 1.0, testutil.ToFloat64(o.rejected.WithLabelValues("busy")))
	assert.Equal(t, 3.0, testutil.ToFloat64(o.segments))
	assert.Equal(t, 1.0, testutil.ToFloat64(o.resets))
	assert.Equal(t, 9.0, testutil.ToFloat64(o.entries))
}

func TestObserver_RegistersAll(t *testing.T) {
	reg := prometheus.NewRegistry()
	o := New(reg)
	o.Matched("A", 1, false)
	o.Rejected("empty")

	families, err := reg.Gather()
	require.NoError(t, err)

	names := make(map[string]bool)
	for _, f := range families {
		names[f.GetName()] = true
	}
	for _, want := range []string{
		"keyreply_match_total",
		"keyreply_rejected_total",
		"keyreply_delivery_seconds",
		"keyreply_segments_total",
		"keyreply_resets_total",
		"keyreply_knowledge_entries",
		"keyreply_match_score",
	} {
		assert.True(t, names[want], want)
	}
}

func TestNew_DuplicateRegistrationPanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	New(reg)
	assert.Panics(t, func() { New(reg) })
}
