package neat

import (
	"fmt"
	"strings"

	"gopkg.in/ini.v1"
)

// Config stores the configuration parameters for the NEAT algorithm.
type Config struct {
	Neat         NeatConfig
	Genome       GenomeConfig
	Reproduction ReproductionConfig
	SpeciesSet   SpeciesSetConfig
	Stagnation   StagnationConfig
}

// NeatConfig holds parameters specific to the NEAT algorithm itself.
type NeatConfig struct {
	PopSize              int     `ini:"pop_size"`
	FitnessCriterion     string  `ini:"fitness_criterion"` // max, min or mean
	FitnessThreshold     float64 `ini:"fitness_threshold"`
	ResetOnExtinction    bool    `ini:"reset_on_extinction"`
	NoFitnessTermination bool    `ini:"no_fitness_termination"`
}

// GenomeConfig holds parameters specific to the structure and mutation of genomes.
type GenomeConfig struct {
	NumInputs                        int     `ini:"num_inputs"`
	NumOutputs                       int     `ini:"num_outputs"`
	NumHidden                        int     `ini:"num_hidden"`
	FeedForward                      bool    `ini:"feed_forward"`
	CompatibilityDisjointCoefficient float64 `ini:"compatibility_disjoint_coefficient"`
	CompatibilityWeightCoefficient   float64 `ini:"compatibility_weight_coefficient"`
	ConnAddProb                      float64 `ini:"conn_add_prob"`
	ConnDeleteProb                   float64 `ini:"conn_delete_prob"`
	NodeAddProb                      float64 `ini:"node_add_prob"`
	NodeDeleteProb                   float64 `ini:"node_delete_prob"`
	SingleStructuralMutation         bool    `ini:"single_structural_mutation"`
	InitialConnection                string  `ini:"initial_connection"` // e.g. "full_direct" or "partial_direct 0.5"

	BiasInitMean    float64 `ini:"bias_init_mean"`
	BiasInitStdev   float64 `ini:"bias_init_stdev"`
	BiasInitType    string  `ini:"bias_init_type"`
	BiasReplaceRate float64 `ini:"bias_replace_rate"`
	BiasMutateRate  float64 `ini:"bias_mutate_rate"`
	BiasMutatePower float64 `ini:"bias_mutate_power"`
	BiasMaxValue    float64 `ini:"bias_max_value"`
	BiasMinValue    float64 `ini:"bias_min_value"`

	ResponseInitMean    float64 `ini:"response_init_mean"`
	ResponseInitStdev   float64 `ini:"response_init_stdev"`
	ResponseInitType    string  `ini:"response_init_type"`
	ResponseReplaceRate float64 `ini:"response_replace_rate"`
	ResponseMutateRate  float64 `ini:"response_mutate_rate"`
	ResponseMutatePower float64 `ini:"response_mutate_power"`
	ResponseMaxValue    float64 `ini:"response_max_value"`
	ResponseMinValue    float64 `ini:"response_min_value"`

	ActivationDefault    string   `ini:"activation_default"`
	ActivationOptions    []string `ini:"activation_options" delim:" "`
	ActivationMutateRate float64  `ini:"activation_mutate_rate"`

	AggregationDefault    string   `ini:"aggregation_default"`
	AggregationOptions    []string `ini:"aggregation_options" delim:" "`
	AggregationMutateRate float64  `ini:"aggregation_mutate_rate"`

	WeightInitMean    float64 `ini:"weight_init_mean"`
	WeightInitStdev   float64 `ini:"weight_init_stdev"`
	WeightInitType    string  `ini:"weight_init_type"`
	WeightReplaceRate float64 `ini:"weight_replace_rate"`
	WeightMutateRate  float64 `ini:"weight_mutate_rate"`
	WeightMutatePower float64 `ini:"weight_mutate_power"`
	WeightMaxValue    float64 `ini:"weight_max_value"`
	WeightMinValue    float64 `ini:"weight_min_value"`

	EnabledDefault        string  `ini:"enabled_default"`
	EnabledMutateRate     float64 `ini:"enabled_mutate_rate"`
	EnabledRateToTrueAdd  float64 `ini:"enabled_rate_to_true_add"`
	EnabledRateToFalseAdd float64 `ini:"enabled_rate_to_false_add"`

	// Derived after loading.
	InputKeys    []int
	OutputKeys   []int
	NodeKeyIndex int
}

// ReproductionConfig holds parameters related to reproduction.
type ReproductionConfig struct {
	Elitism           int     `ini:"elitism"`
	SurvivalThreshold float64 `ini:"survival_threshold"`
	MinSpeciesSize    int     `ini:"min_species_size"`
}

// SpeciesSetConfig holds parameters related to speciation.
type SpeciesSetConfig struct {
	CompatibilityThreshold float64 `ini:"compatibility_threshold"`
}

// StagnationConfig holds parameters related to species stagnation.
type StagnationConfig struct {
	SpeciesFitnessFunc string `ini:"species_fitness_func"`
	MaxStagnation      int    `ini:"max_stagnation"`
	SpeciesElitism     int    `ini:"species_elitism"`
}

var sectionTargets = []struct {
	name   string
	target func(*Config) interface{}
}{
	{"NEAT", func(c *Config) interface{} { return &c.Neat }},
	{"DefaultGenome", func(c *Config) interface{} { return &c.Genome }},
	{"DefaultReproduction", func(c *Config) interface{} { return &c.Reproduction }},
	{"DefaultSpeciesSet", func(c *Config) interface{} { return &c.SpeciesSet }},
	{"DefaultStagnation", func(c *Config) interface{} { return &c.Stagnation }},
}

// LoadConfig loads configuration parameters from an INI file.
func LoadConfig(filePath string) (*Config, error) {
	f, err := ini.LoadSources(ini.LoadOptions{
		IgnoreInlineComment:         true,
		UnescapeValueCommentSymbols: true,
	}, filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config file '%s': %w", filePath, err)
	}
	return parseConfig(f)
}

// LoadConfigBytes parses an INI document held in memory.
func LoadConfigBytes(data []byte) (*Config, error) {
	f, err := ini.LoadSources(ini.LoadOptions{
		IgnoreInlineComment:         true,
		UnescapeValueCommentSymbols: true,
	}, data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return parseConfig(f)
}

func parseConfig(f *ini.File) (*Config, error) {
	config := &Config{}
	for _, s := range sectionTargets {
		if err := f.Section(s.name).MapTo(s.target(config)); err != nil {
			return nil, fmt.Errorf("failed to map [%s] section: %w", s.name, err)
		}
	}

	config.clean()
	config.applyDefaults()
	config.derive()

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// clean strips trailing comments that survive IgnoreInlineComment from
// string values and list entries.
func (c *Config) clean() {
	for _, s := range []*string{
		&c.Genome.BiasInitType, &c.Genome.ResponseInitType, &c.Genome.WeightInitType,
		&c.Genome.ActivationDefault, &c.Genome.AggregationDefault,
		&c.Genome.EnabledDefault, &c.Genome.InitialConnection,
		&c.Neat.FitnessCriterion, &c.Stagnation.SpeciesFitnessFunc,
	} {
		*s = cleanIniString(*s)
	}
	c.Genome.ActivationOptions = cleanOptions(c.Genome.ActivationOptions)
	c.Genome.AggregationOptions = cleanOptions(c.Genome.AggregationOptions)
}

func (c *Config) applyDefaults() {
	setString := func(s *string, def string) {
		if *s == "" {
			*s = def
		}
	}
	setString(&c.Genome.BiasInitType, "gaussian")
	setString(&c.Genome.ResponseInitType, "gaussian")
	setString(&c.Genome.WeightInitType, "gaussian")
	setString(&c.Genome.ActivationDefault, "random")
	setString(&c.Genome.AggregationDefault, "random")
	setString(&c.Genome.EnabledDefault, "True")
	setString(&c.Genome.InitialConnection, "unconnected")
	setString(&c.Neat.FitnessCriterion, "max")
	setString(&c.Stagnation.SpeciesFitnessFunc, "mean")

	if c.Reproduction.MinSpeciesSize == 0 {
		c.Reproduction.MinSpeciesSize = 1
	}
	if c.Reproduction.SurvivalThreshold == 0 {
		c.Reproduction.SurvivalThreshold = 0.2
	}
	if c.Stagnation.MaxStagnation == 0 {
		c.Stagnation.MaxStagnation = 15
	}
}

// derive fills the input/output keys. Inputs are -1..-n, outputs 0..m-1 and
// hidden nodes are numbered from m upwards.
func (c *Config) derive() {
	g := &c.Genome
	g.InputKeys = make([]int, g.NumInputs)
	for i := range g.InputKeys {
		g.InputKeys[i] = -(i + 1)
	}
	g.OutputKeys = make([]int, g.NumOutputs)
	for i := range g.OutputKeys {
		g.OutputKeys[i] = i
	}
	g.NodeKeyIndex = g.NumOutputs
}

// Validate checks the loaded values for consistency.
func (c *Config) Validate() error {
	g := c.Genome
	if g.NumInputs <= 0 {
		return fmt.Errorf("config error: num_inputs must be positive")
	}
	if g.NumOutputs <= 0 {
		return fmt.Errorf("config error: num_outputs must be positive")
	}
	if c.Neat.PopSize <= 0 {
		return fmt.Errorf("config error: pop_size must be positive")
	}
	if len(g.ActivationOptions) == 0 {
		return fmt.Errorf("config error: activation_options must be specified")
	}
	if len(g.AggregationOptions) == 0 {
		return fmt.Errorf("config error: aggregation_options must be specified")
	}
	for _, name := range g.ActivationOptions {
		if _, err := GetActivation(name); err != nil {
			return fmt.Errorf("config error: %w", err)
		}
	}
	for _, name := range g.AggregationOptions {
		if _, err := GetAggregation(name); err != nil {
			return fmt.Errorf("config error: %w", err)
		}
	}
	if g.CompatibilityDisjointCoefficient < 0 || g.CompatibilityWeightCoefficient < 0 {
		return fmt.Errorf("config error: compatibility coefficients cannot be negative")
	}

	for name, p := range map[string]float64{
		"conn_add_prob":      g.ConnAddProb,
		"conn_delete_prob":   g.ConnDeleteProb,
		"node_add_prob":      g.NodeAddProb,
		"node_delete_prob":   g.NodeDeleteProb,
		"survival_threshold": c.Reproduction.SurvivalThreshold,
	} {
		if p < 0 || p > 1 {
			return fmt.Errorf("config error: %s must be between 0 and 1", name)
		}
	}

	for name, r := range map[string][2]float64{
		"bias":     {g.BiasMinValue, g.BiasMaxValue},
		"response": {g.ResponseMinValue, g.ResponseMaxValue},
		"weight":   {g.WeightMinValue, g.WeightMaxValue},
	} {
		if r[1] < r[0] {
			return fmt.Errorf("config error: %s_max_value cannot be less than %s_min_value", name, name)
		}
	}

	if c.Reproduction.MinSpeciesSize <= 0 {
		return fmt.Errorf("config error: min_species_size must be positive")
	}
	if c.SpeciesSet.CompatibilityThreshold < 0 {
		return fmt.Errorf("config error: compatibility_threshold cannot be negative")
	}
	if c.Stagnation.MaxStagnation <= 0 {
		return fmt.Errorf("config error: max_stagnation must be positive")
	}

	switch strings.ToLower(c.Neat.FitnessCriterion) {
	case "max", "min", "mean":
	default:
		return fmt.Errorf("config error: invalid fitness_criterion '%s', must be one of 'max', 'min', 'mean'", c.Neat.FitnessCriterion)
	}

	if _, _, err := parseInitialConnection(g.InitialConnection); err != nil {
		return fmt.Errorf("config error: %w", err)
	}

	if _, ok := StatFunctions[strings.ToLower(c.Stagnation.SpeciesFitnessFunc)]; !ok {
		return fmt.Errorf("config error: invalid species_fitness_func '%s'", c.Stagnation.SpeciesFitnessFunc)
	}
	return nil
}

// GetNewNodeKey hands out the next hidden node key.
func (gc *GenomeConfig) GetNewNodeKey() int {
	key := gc.NodeKeyIndex
	gc.NodeKeyIndex++
	return key
}

// cleanIniString removes inline comments and trims whitespace from a string read from INI.
func cleanIniString(s string) string {
	if idx := strings.IndexAny(s, "#;"); idx != -1 {
		s = s[:idx]
	}
	return strings.TrimSpace(s)
}

func cleanOptions(opts []string) []string {
	out := opts[:0]
	for _, opt := range opts {
		if strings.ContainsAny(opt, "#;") {
			if opt = cleanIniString(opt); opt != "" {
				out = append(out, opt)
			}
			break
		}
		if opt = strings.TrimSpace(opt); opt != "" {
			out = append(out, opt)
		}
	}
	return out
}
