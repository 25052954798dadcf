package logging

import (
	"bytes"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]zerolog.Level{
		"debug":   zerolog.DebugLevel,
		" TRACE ": zerolog.TraceLevel,
		"warning": zerolog.WarnLevel,
		"error":   zerolog.ErrorLevel,
		"":        zerolog.InfoLevel,
		"loud":    zerolog.InfoLevel,
	}
	for in, want := range cases {
		assert.Equal(t, want, ParseLevel(in), in)
	}
}

func TestSetupConsoleAndFile(t *testing.T) {
	defer zerolog.SetGlobalLevel(zerolog.TraceLevel)

	var buf bytes.Buffer
	path := filepath.Join(t.TempDir(), "racer.log")
	log, closeFn, err := Setup(Options{Level: "info", Console: &buf, NoColor: true, File: path})
	require.NoError(t, err)

	log.Info().Int("generation", 3).Msg("Generation evaluated")
	log.Debug().Msg("hidden")
	require.NoError(t, closeFn())

	assert.Contains(t, buf.String(), "Generation evaluated")
	assert.Contains(t, buf.String(), "generation=3")
	assert.NotContains(t, buf.String(), "hidden")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Generation evaluated")
}

func TestSetupBadFile(t *testing.T) {
	defer zerolog.SetGlobalLevel(zerolog.TraceLevel)
	_, _, err := Setup(Options{Console: &bytes.Buffer{}, File: filepath.Join(t.TempDir(), "missing", "x.log")})
	assert.Error(t, err)
}

func TestSetupGraylog(t *testing.T) {
	defer zerolog.SetGlobalLevel(zerolog.TraceLevel)
	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)
	defer pc.Close()

	log, closeFn, err := Setup(Options{Console: &bytes.Buffer{}, Graylog: pc.LocalAddr().String()})
	require.NoError(t, err)
	log.Info().Msg("to graylog")
	assert.NoError(t, closeFn())

	pc.SetReadDeadline(time.Now().Add(2 * time.Second))
	buf := make([]byte, 8192)
	n, _, err := pc.ReadFrom(buf)
	require.NoError(t, err)
	assert.Positive(t, n)
}
