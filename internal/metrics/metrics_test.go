package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/dshills/exfor-index/pkg/types"
)

func TestBuildMetrics_Records(t *testing.T) {
	m := New()

	m.SetChunksTotal(4)
	m.ChunkCompleted()
	m.ChunkCompleted()
	m.FileProcessed(6)
	m.FileProcessed(2)
	m.FileFailed(types.ReactionParsingError)
	m.FileFailed(types.ReactionParsingError)
	m.FileFailed(types.UnexpectedError)
	m.ObserveBuild(3 * time.Second)

	assert.Equal(t, 4.0, testutil.ToFloat64(m.chunksTotal))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.chunksCompleted))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.filesProcessed))
	assert.Equal(t, 8.0, testutil.ToFloat64(m.rowsEmitted))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.filesFailed.WithLabelValues(string(types.ReactionParsingError))))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.filesFailed.WithLabelValues(string(types.UnexpectedError))))
	assert.Equal(t, 1, testutil.CollectAndCount(m.buildDuration))
}

func TestBuildMetrics_IsolatedRegistries(t *testing.T) {
	a, b := New(), New()
	a.ChunkCompleted()

	assert.Equal(t, 1.0, testutil.ToFloat64(a.chunksCompleted))
	assert.Equal(t, 0.0, testutil.ToFloat64(b.chunksCompleted))
	assert.NotSame(t, a.Registry(), b.Registry())
}

func TestBuildMetrics_NilIsNoop(t *testing.T) {
	var m *BuildMetrics

	assert.NotPanics(t, func() {
		m.SetChunksTotal(1)
		m.ChunkCompleted()
		m.FileProcessed(1)
		m.FileFailed(types.UnexpectedError)
		m.ObserveBuild(time.Second)
	})
	assert.Nil(t, m.Registry())
}
