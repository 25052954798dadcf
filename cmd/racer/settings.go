package main

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Settings are the run options, from flags, RACER_* environment variables
// and an optional JSON settings file, in that order of precedence.
type Settings struct {
	Mode            string
	Track           string
	Config          string
	Generations     int
	Run             string
	Resume          string
	CheckpointDir   string
	CheckpointEvery int
	Champion        string
	Seed            int64

	LogLevel string
	LogFile  string
	Graylog  string
	Live     string

	DBDriver string
	DBDSN    string

	InfluxURL    string
	InfluxToken  string
	InfluxOrg    string
	InfluxBucket string
}

func newFlagSet() *pflag.FlagSet {
	fs := pflag.NewFlagSet("racer", pflag.ContinueOnError)
	fs.String("settings", "", "optional JSON settings file")
	fs.String("track", "", "track image (PNG or JPEG); prompted for when empty")
	fs.String("config", "configs/racer.ini", "NEAT and simulation INI file")
	fs.Int("generations", 50, "generations to train")
	fs.String("run", "", "run name used in stats and metrics (default: timestamp)")
	fs.String("resume", "", "checkpoint to resume training from")
	fs.String("checkpoint-dir", "checkpoints", "directory for population checkpoints")
	fs.Int("checkpoint-every", 5, "checkpoint every N generations, 0 disables")
	fs.String("champion", "champion.gob.gz", "champion file written by train and read by replay")
	fs.Int64("seed", 0, "spawn sampling seed, 0 picks one from the clock")
	fs.String("log-level", "info", "trace, debug, info, warn or error")
	fs.String("log-file", "", "also log to this file")
	fs.String("graylog", "", "GELF UDP address, e.g. localhost:12201")
	fs.String("live", "", "serve the live websocket view on this address, e.g. :8080")
	fs.String("db-driver", "sqlite", "stats database: sqlite or postgres")
	fs.String("db-dsn", "", "stats database DSN, empty disables stats storage")
	fs.String("influx-url", "", "InfluxDB v2 URL, empty disables influx export")
	fs.String("influx-token", "", "InfluxDB token")
	fs.String("influx-org", "racer", "InfluxDB organisation")
	fs.String("influx-bucket", "racer", "InfluxDB bucket")
	return fs
}

// loadSettings parses args (without the program name). The first
// positional argument selects the mode, train by default.
func loadSettings(args []string) (Settings, error) {
	fs := newFlagSet()
	if err := fs.Parse(args); err != nil {
		return Settings{}, err
	}

	v := viper.New()
	if err := v.BindPFlags(fs); err != nil {
		return Settings{}, err
	}
	v.SetEnvPrefix("RACER")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if path := v.GetString("settings"); path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("json")
		if err := v.ReadInConfig(); err != nil {
			return Settings{}, fmt.Errorf("reading settings file: %w", err)
		}
	}

	s := Settings{
		Mode:            "train",
		Track:           v.GetString("track"),
		Config:          v.GetString("config"),
		Generations:     v.GetInt("generations"),
		Run:             v.GetString("run"),
		Resume:          v.GetString("resume"),
		CheckpointDir:   v.GetString("checkpoint-dir"),
		CheckpointEvery: v.GetInt("checkpoint-every"),
		Champion:        v.GetString("champion"),
		Seed:            v.GetInt64("seed"),
		LogLevel:        v.GetString("log-level"),
		LogFile:         v.GetString("log-file"),
		Graylog:         v.GetString("graylog"),
		Live:            v.GetString("live"),
		DBDriver:        v.GetString("db-driver"),
		DBDSN:           v.GetString("db-dsn"),
		InfluxURL:       v.GetString("influx-url"),
		InfluxToken:     v.GetString("influx-token"),
		InfluxOrg:       v.GetString("influx-org"),
		InfluxBucket:    v.GetString("influx-bucket"),
	}
	if rest := fs.Args(); len(rest) > 0 {
		s.Mode = rest[0]
	}
	switch s.Mode {
	case "train", "replay":
	default:
		return Settings{}, fmt.Errorf("unknown mode %q, want train or replay", s.Mode)
	}
	if s.Generations < 0 || s.CheckpointEvery < 0 {
		return Settings{}, fmt.Errorf("generations and checkpoint-every cannot be negative")
	}
	return s, nil
}
