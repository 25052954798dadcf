package sim

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHistory_RecordsBestAndMean(t *testing.T) {
	var h History

	h.Record(1, []Result{
		{Fitness: 10, Distance: 40, Death: DeathOffTrack},
		{Fitness: -20, Distance: 3, Death: DeathOffTrack},
		{Fitness: 4, Distance: 12, Death: DeathStall},
	})
	s := h.Record(2, []Result{{Fitness: 30, Distance: 90, Death: DeathTimeout}})

	assert.Equal(t, 2, s.Generation)
	assert.Equal(t, []float64{10, 30}, h.BestSeries())
	assert.Equal(t, []float64{-2, 30}, h.MeanSeries())

	first := h.Stats()[0]
	assert.Equal(t, -20.0, first.Worst)
	assert.Equal(t, 40.0, first.MaxDistance)
	assert.Equal(t, 3, first.Vehicles)
	assert.Equal(t, map[DeathCause]int{DeathOffTrack: 2, DeathStall: 1}, first.Deaths)
}

func TestHistory_StatsIsACopy(t *testing.T) {
	var h History
	h.Record(1, []Result{{Fitness: 1}})

	stats := h.Stats()
	stats[0].Best = 99

	assert.Equal(t, 1.0, h.Stats()[0].Best)
}

func TestSummarize_Empty(t *testing.T) {
	s := Summarize(4, nil)
	assert.Equal(t, 4, s.Generation)
	assert.Zero(t, s.Vehicles)
	assert.Zero(t, s.Best)
}
