package sim

// GenerationStats summarises one generation's episode.
type GenerationStats struct {
	Generation  int                `json:"generation"`
	Best        float64            `json:"best"`
	Mean        float64            `json:"mean"`
	Worst       float64            `json:"worst"`
	MaxDistance float64            `json:"max_distance"`
	Vehicles    int                `json:"vehicles"`
	Deaths      map[DeathCause]int `json:"deaths"`
}

// History is the per-generation fitness record of a training run. It is
// owned by whoever drives the generations.
type History struct {
	stats []GenerationStats
}

// Record summarises results as generation gen and appends it.
func (h *History) Record(gen int, results []Result) GenerationStats {
	s := Summarize(gen, results)
	h.stats = append(h.stats, s)
	return s
}

// Stats returns a copy of every recorded generation in order.
func (h *History) Stats() []GenerationStats {
	out := make([]GenerationStats, len(h.stats))
	copy(out, h.stats)
	return out
}

// BestSeries returns the best fitness of each generation.
func (h *History) BestSeries() []float64 {
	out := make([]float64, len(h.stats))
	for i, s := range h.stats {
		out[i] = s.Best
	}
	return out
}

// MeanSeries returns the mean fitness of each generation.
func (h *History) MeanSeries() []float64 {
	out := make([]float64, len(h.stats))
	for i, s := range h.stats {
		out[i] = s.Mean
	}
	return out
}

// Summarize computes the statistics of one set of results.
func Summarize(gen int, results []Result) GenerationStats {
	s := GenerationStats{
		Generation: gen,
		Vehicles:   len(results),
		Deaths:     make(map[DeathCause]int),
	}
	if len(results) == 0 {
		return s
	}

	s.Best, s.Worst = results[0].Fitness, results[0].Fitness
	sum := 0.0
	for _, r := range results {
		sum += r.Fitness
		if r.Fitness > s.Best {
			s.Best = r.Fitness
		}
		if r.Fitness < s.Worst {
			s.Worst = r.Fitness
		}
		if r.Distance > s.MaxDistance {
			s.MaxDistance = r.Distance
		}
		s.Deaths[r.Death]++
	}
	s.Mean = sum / float64(len(results))
	return s
}
