// Package telemetry exports training progress to InfluxDB.
package telemetry

import (
	"context"
	"fmt"
	"sort"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/rs/zerolog"

	"github.com/Fouad1806/self-driving-car/sim"
)

// Measurement is the InfluxDB measurement generation points are written to.
const Measurement = "generation"

// InfluxSink writes one point per generation.
type InfluxSink struct {
	client influxdb2.Client
	writer api.WriteAPIBlocking
	log    zerolog.Logger
}

// NewInfluxSink connects to the InfluxDB v2 server at url. The server is not
// contacted until the first write.
func NewInfluxSink(url, token, org, bucket string, log zerolog.Logger) *InfluxSink {
	client := influxdb2.NewClientWithOptions(url, token,
		influxdb2.DefaultOptions().
			SetHTTPRequestTimeout(10))
	return &InfluxSink{
		client: client,
		writer: client.WriteAPIBlocking(org, bucket),
		log:    log,
	}
}

// WriteGeneration records stats under the given run tag.
func (s *InfluxSink) WriteGeneration(ctx context.Context, run string, stats sim.GenerationStats) error {
	if err := s.writer.WritePoint(ctx, generationPoint(run, stats, time.Now())); err != nil {
		return fmt.Errorf("writing generation %d to influx: %w", stats.Generation, err)
	}
	s.log.Debug().Str("run", run).Int("generation", stats.Generation).Msg("Generation written to influx")
	return nil
}

// Close releases the client.
func (s *InfluxSink) Close() {
	s.client.Close()
}

func generationPoint(run string, stats sim.GenerationStats, ts time.Time) *write.Point {
	p := influxdb2.NewPointWithMeasurement(Measurement).
		AddTag("run", run).
		AddField("generation", stats.Generation).
		AddField("best", stats.Best).
		AddField("mean", stats.Mean).
		AddField("worst", stats.Worst).
		AddField("max_distance", stats.MaxDistance).
		AddField("vehicles", stats.Vehicles).
		SetTime(ts)

	causes := make([]string, 0, len(stats.Deaths))
	for c := range stats.Deaths {
		causes = append(causes, string(c))
	}
	sort.Strings(causes)
	for _, c := range causes {
		name := c
		if name == "" {
			name = "none"
		}
		p.AddField("deaths_"+name, stats.Deaths[sim.DeathCause(c)])
	}
	return p
}
