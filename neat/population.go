package neat

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"
)

// ErrExtinct is returned when every species dies out and
// reset_on_extinction is off.
var ErrExtinct = errors.New("population extinct")

// FitnessFunc evaluates one generation. It must set (or accumulate into)
// each genome's Fitness before returning.
type FitnessFunc func(ctx context.Context, genomes map[int]*Genome) error

// GenerationReport summarises one finished generation. Best points into
// the population and may change once the next generation starts; BestEver
// is a snapshot.
type GenerationReport struct {
	Generation   int
	Best         *Genome
	BestEver     *Genome
	Mean         float64
	Stdev        float64
	SpeciesSizes map[int]int
	Elapsed      time.Duration
}

// Reporter receives a report at the end of every generation.
type Reporter interface {
	EndGeneration(GenerationReport)
}

// ReporterFunc adapts a function to Reporter.
type ReporterFunc func(GenerationReport)

func (f ReporterFunc) EndGeneration(r GenerationReport) { f(r) }

// Population holds the state of the NEAT evolutionary process.
type Population struct {
	Config       *Config
	Population   map[int]*Genome
	SpeciesSet   *SpeciesSet
	Reproduction *Reproduction
	Stagnation   *Stagnation
	Generation   int
	BestGenome   *Genome
	Logger       zerolog.Logger
	Reporters    []Reporter
}

// NewPopulation creates the first generation of genomes from config.
func NewPopulation(config *Config) (*Population, error) {
	stagnation, err := NewStagnation(&config.Stagnation)
	if err != nil {
		return nil, fmt.Errorf("failed to create stagnation manager: %w", err)
	}

	log := zerolog.Nop()
	reproduction := NewReproduction(&config.Reproduction, stagnation, log)
	initial, err := reproduction.CreateNewPopulation(&config.Genome, config.Neat.PopSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create initial population: %w", err)
	}

	return &Population{
		Config:       config,
		Population:   initial,
		SpeciesSet:   NewSpeciesSet(&config.SpeciesSet, log),
		Reproduction: reproduction,
		Stagnation:   stagnation,
		Logger:       log,
	}, nil
}

// SetLogger replaces the logger used by the population and its components.
func (p *Population) SetLogger(log zerolog.Logger) {
	p.Logger = log
	p.SpeciesSet.log = log
	p.Reproduction.log = log
}

// AddReporter registers r for end-of-generation reports.
func (p *Population) AddReporter(r Reporter) {
	p.Reporters = append(p.Reporters, r)
}

// RunGeneration evaluates, speciates and reproduces one generation. It
// returns the best genome so far once the fitness threshold is met and nil
// otherwise.
func (p *Population) RunGeneration(ctx context.Context, fitnessFunc FitnessFunc) (*Genome, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p.Generation++
	start := time.Now()
	log := p.Logger.With().Int("generation", p.Generation).Logger()
	log.Info().Int("genomes", len(p.Population)).Msg("Evaluating generation")

	for _, g := range p.Population {
		g.ResetFitness()
	}
	if err := fitnessFunc(ctx, p.Population); err != nil {
		return nil, fmt.Errorf("fitness evaluation failed in generation %d: %w", p.Generation, err)
	}

	best := p.findBestGenome()
	if best != nil && (p.BestGenome == nil || best.Fitness > p.BestGenome.Fitness) {
		p.BestGenome = best.Clone()
		log.Info().Int("genome", best.Key).Float64("fitness", best.Fitness).Msg("New best genome")
	}

	var winner *Genome
	if !p.Config.Neat.NoFitnessTermination && p.criterion() >= p.Config.Neat.FitnessThreshold {
		winner = p.BestGenome
	}

	p.SpeciesSet.Speciate(p.Population, p.Generation)
	report := p.report(best, start)
	log.Info().
		Float64("mean", report.Mean).
		Float64("stdev", report.Stdev).
		Int("species", len(report.SpeciesSizes)).
		Msg("Generation evaluated")

	if winner != nil {
		p.notify(report)
		return winner, nil
	}

	next := p.Reproduction.Reproduce(p.Config, p.SpeciesSet, p.Config.Neat.PopSize, p.Generation)
	if len(next) == 0 {
		if !p.Config.Neat.ResetOnExtinction {
			p.notify(report)
			return nil, fmt.Errorf("generation %d: %w", p.Generation, ErrExtinct)
		}
		log.Warn().Msg("All species extinct, resetting population")
		next, err := p.Reproduction.CreateNewPopulation(&p.Config.Genome, p.Config.Neat.PopSize)
		if err != nil {
			return nil, err
		}
		p.Population = next
		p.SpeciesSet = NewSpeciesSet(&p.Config.SpeciesSet, p.Logger)
	} else {
		p.Population = next
	}

	report.Elapsed = time.Since(start)
	p.notify(report)
	return nil, nil
}

// Run calls RunGeneration until a winner appears, n generations have run
// (n <= 0 means no limit) or ctx is cancelled.
func (p *Population) Run(ctx context.Context, fitnessFunc FitnessFunc, n int) (*Genome, error) {
	for i := 0; n <= 0 || i < n; i++ {
		winner, err := p.RunGeneration(ctx, fitnessFunc)
		if err != nil || winner != nil {
			return winner, err
		}
	}
	return p.BestGenome, nil
}

func (p *Population) criterion() float64 {
	f := make([]float64, 0, len(p.Population))
	for _, g := range p.Population {
		f = append(f, g.Fitness)
	}
	switch p.Config.Neat.FitnessCriterion {
	case "min":
		return MinFloat(f)
	case "mean":
		return Mean(f)
	default:
		return MaxFloat(f)
	}
}

func (p *Population) report(best *Genome, start time.Time) GenerationReport {
	f := make([]float64, 0, len(p.Population))
	for _, g := range p.Population {
		f = append(f, g.Fitness)
	}
	return GenerationReport{
		Generation:   p.Generation,
		Best:         best,
		BestEver:     p.BestGenome,
		Mean:         Mean(f),
		Stdev:        Stdev(f),
		SpeciesSizes: p.SpeciesSet.Sizes(),
		Elapsed:      time.Since(start),
	}
}

func (p *Population) notify(r GenerationReport) {
	for _, rep := range p.Reporters {
		rep.EndGeneration(r)
	}
}

// findBestGenome returns the fittest genome of the current generation,
// lowest key first on ties.
func (p *Population) findBestGenome() *Genome {
	var best *Genome
	maxFitness := math.Inf(-1)
	for _, k := range sortedKeys(p.Population) {
		if g := p.Population[k]; g.Fitness > maxFitness {
			maxFitness = g.Fitness
			best = g
		}
	}
	return best
}
