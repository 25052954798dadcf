// Command racer trains neural-network drivers on a racetrack image with
// NEAT and replays the champion.
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/Fouad1806/self-driving-car/internal/driver"
	"github.com/Fouad1806/self-driving-car/internal/live"
	"github.com/Fouad1806/self-driving-car/internal/logging"
	"github.com/Fouad1806/self-driving-car/internal/store"
	"github.com/Fouad1806/self-driving-car/internal/telemetry"
	"github.com/Fouad1806/self-driving-car/internal/trackimg"
	"github.com/Fouad1806/self-driving-car/neat"
	"github.com/Fouad1806/self-driving-car/sim"
)

func main() {
	s, err := loadSettings(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	log, closeLog, err := logging.Setup(logging.Options{Level: s.LogLevel, File: s.LogFile, Graylog: s.Graylog})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer closeLog()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, s, os.Stdin, log); err != nil && !errors.Is(err, context.Canceled) {
		log.Error().Err(err).Str("mode", s.Mode).Msg("Racer failed")
		closeLog()
		os.Exit(1)
	}
}

// app holds what both modes share.
type app struct {
	settings Settings
	log      zerolog.Logger
	neat     *neat.Config
	runner   *sim.Runner
	hub      *live.Hub
}

func run(ctx context.Context, s Settings, stdin io.Reader, log zerolog.Logger) error {
	if s.Track == "" {
		path, err := promptTrack(stdin, os.Stdout)
		if err != nil {
			return err
		}
		s.Track = path
	}

	neatCfg, err := neat.LoadConfig(s.Config)
	if err != nil {
		return err
	}
	simCfg, err := sim.LoadConfig(s.Config)
	if err != nil {
		return err
	}
	if s.Mode == "replay" && simCfg.TickRate == 0 {
		simCfg.TickRate = 60
	}

	track, err := trackimg.Load(s.Track, simCfg.Width, simCfg.Height)
	if err != nil {
		return err
	}
	log.Info().
		Str("track", s.Track).
		Int("width", track.Width()).
		Int("height", track.Height()).
		Int("drivable", track.DrivableCount()).
		Msg("Track loaded")

	// Only spawn sampling is seeded. Genome mutation draws from the
	// global source, which is always randomly seeded.
	seed := s.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	opts := []sim.RunnerOption{
		sim.WithLogger(log),
		sim.WithRand(rand.New(rand.NewSource(seed))),
	}

	a := &app{settings: s, log: log, neat: neatCfg}
	if s.Live != "" {
		a.hub = live.NewHub(track.Width(), track.Height(), log)
		defer a.hub.Close()
		opts = append(opts, sim.WithObserver(a.hub))
		srv := serveLive(s.Live, a.hub, log)
		defer srv.Close()
	}

	a.runner, err = sim.NewRunner(track, simCfg, opts...)
	if err != nil {
		return err
	}

	if s.Mode == "replay" {
		return a.replay(ctx)
	}
	return a.train(ctx)
}

func promptTrack(in io.Reader, out io.Writer) (string, error) {
	fmt.Fprint(out, "Track image path: ")
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("reading track path: %w", err)
	}
	path := strings.TrimSpace(line)
	if path == "" {
		return "", errors.New("no track image given")
	}
	return path, nil
}

func serveLive(addr string, hub *live.Hub, log zerolog.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/ws", hub.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Str("addr", addr).Msg("Live view server stopped")
		}
	}()
	log.Info().Str("addr", addr).Msg("Live view listening on /ws")
	return srv
}

func (a *app) train(ctx context.Context) error {
	s := a.settings
	run := s.Run
	if run == "" {
		run = time.Now().UTC().Format("20060102T150405")
	}
	log := a.log.With().Str("run", run).Logger()

	var (
		pop *neat.Population
		err error
	)
	if s.Resume != "" {
		pop, err = neat.LoadCheckpoint(s.Resume, a.neat, log)
	} else {
		pop, err = neat.NewPopulation(a.neat)
	}
	if err != nil {
		return err
	}
	pop.SetLogger(log)

	eval := driver.NewEvaluator(a.runner, log)
	tr := &trainer{
		run:      run,
		log:      log,
		eval:     eval,
		champion: s.Champion,
	}
	if s.DBDSN != "" {
		if tr.stats, err = store.Open(s.DBDriver, s.DBDSN); err != nil {
			return err
		}
		defer tr.stats.Close()
	}
	if s.InfluxURL != "" {
		tr.influx = telemetry.NewInfluxSink(s.InfluxURL, s.InfluxToken, s.InfluxOrg, s.InfluxBucket, log)
		defer tr.influx.Close()
	}
	pop.AddReporter(tr.reporter(ctx))

	if s.CheckpointEvery > 0 {
		if err := os.MkdirAll(s.CheckpointDir, 0o755); err != nil {
			return fmt.Errorf("creating checkpoint dir: %w", err)
		}
	}
	checkpoint := func() {
		if s.CheckpointEvery == 0 {
			return
		}
		path := filepath.Join(s.CheckpointDir, fmt.Sprintf("%s-gen%d.gz", run, pop.Generation))
		if err := pop.SaveCheckpoint(path); err != nil {
			log.Warn().Err(err).Msg("Checkpoint failed")
		}
	}

	log.Info().Int("generations", s.Generations).Int("pop_size", a.neat.Neat.PopSize).Msg("Training")
	for i := 0; i < s.Generations; i++ {
		winner, err := pop.RunGeneration(ctx, eval.Evaluate)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				log.Info().Int("generation", pop.Generation).Msg("Training interrupted")
			}
			return err
		}
		if winner != nil {
			log.Info().Int("genome", winner.Key).Float64("fitness", winner.Fitness).Msg("Fitness threshold reached")
			break
		}
		if s.CheckpointEvery > 0 && pop.Generation%s.CheckpointEvery == 0 {
			checkpoint()
		}
	}
	checkpoint()

	if best := pop.BestGenome; best != nil {
		log.Info().
			Int("genome", best.Key).
			Float64("fitness", best.Fitness).
			Str("champion", s.Champion).
			Msg("Training finished")
	}
	return nil
}

// trainer records every finished generation.
type trainer struct {
	run      string
	log      zerolog.Logger
	eval     *driver.Evaluator
	history  sim.History
	stats    *store.StatsStore
	influx   *telemetry.InfluxSink
	champion string
	best     float64
	saved    bool
}

func (t *trainer) reporter(ctx context.Context) neat.Reporter {
	return neat.ReporterFunc(func(r neat.GenerationReport) {
		gs := t.history.Record(r.Generation, t.eval.ResultList())
		t.log.Info().
			Int("generation", r.Generation).
			Float64("best", gs.Best).
			Float64("mean", gs.Mean).
			Float64("max_distance", gs.MaxDistance).
			Int("species", len(r.SpeciesSizes)).
			Dur("elapsed", r.Elapsed).
			Msg("Generation recorded")

		if t.stats != nil {
			if err := t.stats.SaveGeneration(ctx, t.run, gs, r.SpeciesSizes); err != nil {
				t.log.Warn().Err(err).Msg("Stats not stored")
			}
		}
		if t.influx != nil {
			if err := t.influx.WriteGeneration(ctx, t.run, gs); err != nil {
				t.log.Warn().Err(err).Msg("Generation not exported")
			}
		}
		t.saveChampion(r)
	})
}

func (t *trainer) saveChampion(r neat.GenerationReport) {
	if t.champion == "" || r.BestEver == nil || (t.saved && r.BestEver.Fitness <= t.best) {
		return
	}
	spawn, ok := t.eval.Spawn(r.BestEver.Key)
	if !ok {
		return
	}
	c := store.Champion{Genome: r.BestEver, Spawn: spawn, Fitness: r.BestEver.Fitness, Generation: r.Generation}
	if err := store.SaveChampion(t.champion, c); err != nil {
		t.log.Warn().Err(err).Msg("Champion not saved")
		return
	}
	t.best, t.saved = c.Fitness, true
	t.log.Info().Int("genome", c.Genome.Key).Float64("fitness", c.Fitness).Msg("Champion saved")
}

func (a *app) replay(ctx context.Context) error {
	c, err := store.LoadChampion(a.settings.Champion, &a.neat.Genome)
	if err != nil {
		return err
	}
	ctrl, err := driver.NewGenomeController(c.Genome)
	if err != nil {
		return err
	}
	c.Genome.ResetFitness()

	a.log.Info().
		Int("genome", c.Genome.Key).
		Int("generation", c.Generation).
		Float64("trained_fitness", c.Fitness).
		Float64("x", c.Spawn.X).Float64("y", c.Spawn.Y).
		Msg("Replaying champion")

	results, err := a.runner.RunFrom(ctx, []sim.Controller{ctrl}, []sim.Vec{c.Spawn})
	if len(results) == 1 {
		r := results[0]
		a.log.Info().
			Float64("fitness", r.Fitness).
			Float64("distance", r.Distance).
			Int("ticks", r.Ticks).
			Str("death", string(r.Death)).
			Msg("Replay finished")
	}
	return err
}
