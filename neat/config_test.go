package neat

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testINI = `
[NEAT]
fitness_criterion = max
fitness_threshold = 1000
pop_size          = 20
reset_on_extinction = True

[DefaultGenome]
num_inputs         = 3
num_outputs        = 2
num_hidden         = 0
feed_forward       = True
initial_connection = full_direct
compatibility_disjoint_coefficient = 1.0
compatibility_weight_coefficient   = 0.5
conn_add_prob      = 0.5
conn_delete_prob   = 0.2
node_add_prob      = 0.2
node_delete_prob   = 0.1
activation_default = tanh
activation_options = tanh sigmoid relu
activation_mutate_rate = 0.1
aggregation_default = sum
aggregation_options = sum
bias_init_stdev    = 1.0
bias_max_value     = 30
bias_min_value     = -30
bias_mutate_power  = 0.5
bias_mutate_rate   = 0.7
bias_replace_rate  = 0.1
response_init_mean = 1.0
response_max_value = 30
response_min_value = -30
weight_init_stdev  = 1.0
weight_max_value   = 5
weight_min_value   = -5
weight_mutate_power = 0.5
weight_mutate_rate = 0.8
weight_replace_rate = 0.1
enabled_default    = True
enabled_mutate_rate = 0.01

[DefaultSpeciesSet]
compatibility_threshold = 3.0

[DefaultStagnation]
species_fitness_func = max
max_stagnation       = 15
species_elitism      = 2

[DefaultReproduction]
elitism            = 2
survival_threshold = 0.2
min_species_size   = 2
`

func testConfig(t *testing.T, overrides ...string) *Config {
	t.Helper()
	data := testINI
	for i := 0; i+1 < len(overrides); i += 2 {
		data = replaceKey(data, overrides[i], overrides[i+1])
	}
	cfg, err := LoadConfigBytes([]byte(data))
	require.NoError(t, err)
	return cfg
}

func replaceKey(doc, key, value string) string {
	lines := strings.Split(doc, "\n")
	for i, l := range lines {
		if k, _, ok := strings.Cut(l, "="); ok && strings.TrimSpace(k) == key {
			lines[i] = key + " = " + value
		}
	}
	return strings.Join(lines, "\n")
}

func TestLoadConfigBytes(t *testing.T) {
	cfg := testConfig(t)

	assert.Equal(t, 20, cfg.Neat.PopSize)
	assert.True(t, cfg.Neat.ResetOnExtinction)
	assert.Equal(t, []int{-1, -2, -3}, cfg.Genome.InputKeys)
	assert.Equal(t, []int{0, 1}, cfg.Genome.OutputKeys)
	assert.Equal(t, 2, cfg.Genome.NodeKeyIndex)
	assert.Equal(t, []string{"tanh", "sigmoid", "relu"}, cfg.Genome.ActivationOptions)
	assert.Equal(t, "gaussian", cfg.Genome.WeightInitType)
	assert.Equal(t, 2, cfg.Stagnation.SpeciesElitism)
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "neat.ini")
	require.NoError(t, os.WriteFile(path, []byte(testINI), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Genome.NumInputs)

	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.ini"))
	assert.Error(t, err)
}

func TestConfigValidation(t *testing.T) {
	cases := []struct {
		key, value string
		msg        string
	}{
		{"num_inputs", "0", "num_inputs"},
		{"pop_size", "-1", "pop_size"},
		{"activation_options", "tanh bogus", "bogus"},
		{"conn_add_prob", "1.5", "conn_add_prob"},
		{"weight_min_value", "10", "weight_max_value"},
		{"fitness_criterion", "median", "fitness_criterion"},
		{"initial_connection", "partial_direct", "fraction"},
		{"species_fitness_func", "mode", "species_fitness_func"},
	}
	for _, tc := range cases {
		t.Run(tc.key, func(t *testing.T) {
			_, err := LoadConfigBytes([]byte(replaceKey(testINI, tc.key, tc.value)))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.msg)
		})
	}
}

func TestTrailingCommentsStripped(t *testing.T) {
	cfg := testConfig(t, "activation_default", "sigmoid # logistic", "activation_options", "sigmoid relu ; two")
	assert.Equal(t, "sigmoid", cfg.Genome.ActivationDefault)
	assert.Equal(t, []string{"sigmoid", "relu"}, cfg.Genome.ActivationOptions)
}

func TestParseInitialConnection(t *testing.T) {
	mode, frac, err := parseInitialConnection("partial_direct 0.25")
	require.NoError(t, err)
	assert.Equal(t, "partial_direct", mode)
	assert.Equal(t, 0.25, frac)

	mode, frac, err = parseInitialConnection("full")
	require.NoError(t, err)
	assert.Equal(t, "full", mode)
	assert.Equal(t, 1.0, frac)

	_, _, err = parseInitialConnection("partial 2")
	assert.Error(t, err)
	_, _, err = parseInitialConnection("sparse")
	assert.Error(t, err)
}
