package database

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPoolStatsCollector_Describe(t *testing.T) {
	c := NewPoolStatsCollector(nil, "warehouse")
	require.NotNil(t, c)

	ch := make(chan *prometheus.Desc, 16)
	c.Describe(ch)
	close(ch)

	var names []string
	for d := range ch {
		names = append(names, d.String())
	}
	assert.Len(t, names, 8)
	assert.Contains(t, names[0], "db_pool_acquired_connections")
}

func TestPoolStatsCollector_RegistersCleanly(t *testing.T) {
	reg := prometheus.NewRegistry()
	var c prometheus.Collector = NewPoolStatsCollector(nil, "warehouse")
	assert.NoError(t, reg.Register(c))
}
