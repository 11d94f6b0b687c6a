// Package config loads Luca's runtime configuration.
// Values come from built-in defaults, an optional luca.yaml file, and
// environment variable overrides. The exact environment names recognized by
// the runtime (HOST, PORT, ANALYTICS_PORT, LLM_BACKEND and the governor
// interval variables) are bound explicitly.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Config holds all application configuration for the Luca runtime.
type Config struct {
	Server    ServerConfig    `mapstructure:"server" yaml:"server"`
	LLM       LLMConfig       `mapstructure:"llm" yaml:"llm"`
	Energy    EnergyConfig    `mapstructure:"energy" yaml:"energy"`
	Governor  GovernorConfig  `mapstructure:"governor" yaml:"governor"`
	Pipelines PipelineConfig  `mapstructure:"pipelines" yaml:"pipelines"`
	Storage   StorageConfig   `mapstructure:"storage" yaml:"storage"`
	Logging   LoggingConfig   `mapstructure:"logging" yaml:"logging"`
	Research  ResearchConfig  `mapstructure:"research" yaml:"research"`
	Personas  []PersonaConfig `mapstructure:"personas" yaml:"personas"`
}

// ServerConfig contains the network bind configuration.
type ServerConfig struct {
	// Host is the bind address for both the request API and analytics stream.
	Host string `mapstructure:"host" yaml:"host"`
	// Port is the request API port.
	Port int `mapstructure:"port" yaml:"port"`
	// AnalyticsPort is the analytics WebSocket port.
	AnalyticsPort int `mapstructure:"analytics_port" yaml:"analytics_port"`
}

// LLMConfig selects and configures the language model backend.
type LLMConfig struct {
	// Backend selects the provider implementation ("ollama" is the default).
	Backend string `mapstructure:"backend" yaml:"backend"`
	// Endpoint is the provider API base URL.
	Endpoint string `mapstructure:"endpoint" yaml:"endpoint"`
	// Model is the default model name.
	Model string `mapstructure:"model" yaml:"model"`
	// FastModel is the lightweight model used for drafting.
	FastModel string `mapstructure:"fast_model" yaml:"fast_model"`
	// Timeout bounds a single completion call.
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

// EnergyConfig configures the cognitive energy budget.
type EnergyConfig struct {
	MaxEnergy    float64 `mapstructure:"max_energy" yaml:"max_energy"`
	RecoveryRate float64 `mapstructure:"recovery_rate" yaml:"recovery_rate"`
	// LowThreshold is the level below which high-cost pipelines are downgraded.
	LowThreshold float64 `mapstructure:"low_threshold" yaml:"low_threshold"`
}

// GovernorConfig contains the idle scheduler intervals, in seconds.
type GovernorConfig struct {
	TickSeconds               int `mapstructure:"tick_seconds" yaml:"tick_seconds"`
	BenchmarkIntervalSeconds  int `mapstructure:"benchmark_interval_seconds" yaml:"benchmark_interval_seconds"`
	SelfEvolutionSeconds      int `mapstructure:"self_evolution_seconds" yaml:"self_evolution_seconds"`
	MicroLLMCreationSeconds   int `mapstructure:"micro_llm_creation_seconds" yaml:"micro_llm_creation_seconds"`
	AutonomousCycleSeconds    int `mapstructure:"autonomous_cycle_seconds" yaml:"autonomous_cycle_seconds"`
	ConsolidationSeconds      int `mapstructure:"consolidation_cycle_interval_seconds" yaml:"consolidation_cycle_interval_seconds"`
	WisdomSynthesisSeconds    int `mapstructure:"wisdom_synthesis_interval_seconds" yaml:"wisdom_synthesis_interval_seconds"`
}

// PipelineConfig contains per-pipeline execution bounds.
type PipelineConfig struct {
	// NumDrafts is the fan-out width of the speculative pipeline.
	NumDrafts int `mapstructure:"num_drafts" yaml:"num_drafts"`
	// MaxTurns bounds the internal dialogue pipeline.
	MaxTurns int `mapstructure:"max_turns" yaml:"max_turns"`
	// MaxIterations bounds the cognitive loop and iterative correction.
	MaxIterations int `mapstructure:"max_iterations" yaml:"max_iterations"`
	// Tree of Thoughts search parameters.
	TotInitial int `mapstructure:"tot_initial" yaml:"tot_initial"`
	TotDepth   int `mapstructure:"tot_depth" yaml:"tot_depth"`
	TotBeam    int `mapstructure:"tot_beam" yaml:"tot_beam"`
}

// StorageConfig contains the on-disk paths for persisted state.
type StorageConfig struct {
	KnowledgeGraphPath string `mapstructure:"knowledge_graph_path" yaml:"knowledge_graph_path"`
	MemoryLogPath      string `mapstructure:"memory_log_path" yaml:"memory_log_path"`
	WorkingMemoryDir   string `mapstructure:"working_memory_dir" yaml:"working_memory_dir"`
	PromptsPath        string `mapstructure:"prompts_path" yaml:"prompts_path"`
	VectorStorePath    string `mapstructure:"vector_store_path" yaml:"vector_store_path"`
	SandboxLogPath     string `mapstructure:"sandbox_log_path" yaml:"sandbox_log_path"`
}

// LoggingConfig contains configuration for application logging.
type LoggingConfig struct {
	Level string `mapstructure:"level" yaml:"level"`
	File  string `mapstructure:"file" yaml:"file"`
}

// ResearchConfig configures the autonomous research cycle.
type ResearchConfig struct {
	// Topics is the pool the autonomous agent picks research themes from.
	Topics []string `mapstructure:"topics" yaml:"topics"`
}

// PersonaConfig is one persona used by the quantum-inspired pipeline.
type PersonaConfig struct {
	Name    string `mapstructure:"name" yaml:"name"`
	Persona string `mapstructure:"persona" yaml:"persona"`
}

// Defaults returns the built-in configuration.
func Defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Host:          "127.0.0.1",
			Port:          8000,
			AnalyticsPort: 8001,
		},
		LLM: LLMConfig{
			Backend:   "ollama",
			Endpoint:  "http://127.0.0.1:11434",
			Model:     "gemma3:latest",
			FastModel: "llama3.2:1b",
			Timeout:   2 * time.Minute,
		},
		Energy: EnergyConfig{
			MaxEnergy:    100,
			RecoveryRate: 1.0,
			LowThreshold: 40,
		},
		Governor: GovernorConfig{
			TickSeconds:              5,
			BenchmarkIntervalSeconds: 3600,
			SelfEvolutionSeconds:     60,
			MicroLLMCreationSeconds:  3600,
			AutonomousCycleSeconds:   120,
			ConsolidationSeconds:     1800,
			WisdomSynthesisSeconds:   3600,
		},
		Pipelines: PipelineConfig{
			NumDrafts:     3,
			MaxTurns:      4,
			MaxIterations: 3,
			TotInitial:    3,
			TotDepth:      3,
			TotBeam:       2,
		},
		Storage: StorageConfig{
			KnowledgeGraphPath: "data/knowledge_graph.json",
			MemoryLogPath:      "data/memory_log.jsonl",
			WorkingMemoryDir:   "data/working_memory_sessions",
			PromptsPath:        "data/prompts.json",
			VectorStorePath:    "data/vector_store.db",
			SandboxLogPath:     "data/sandbox_commands.jsonl",
		},
		Logging: LoggingConfig{Level: "info"},
		Research: ResearchConfig{
			Topics: []string{"最新のAI研究動向", "認知科学と記憶の仕組み", "分散システム設計"},
		},
	}
}

// Load reads configuration from luca.yaml (if present in dir) and the
// environment, layered over the defaults.
func Load(dir string) (*Config, error) {
	v := viper.New()
	setDefaults(v, Defaults())

	v.SetConfigName("luca")
	v.SetConfigType("yaml")
	if dir != "" {
		v.AddConfigPath(dir)
	}
	v.AddConfigPath(".")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	v.SetEnvPrefix("LUCA")
	v.AutomaticEnv()
	bindWellKnownEnv(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &cfg, nil
}

// bindWellKnownEnv maps the unprefixed environment names the runtime
// documents to their config keys.
func bindWellKnownEnv(v *viper.Viper) {
	pairs := map[string]string{
		"server.host":           "HOST",
		"server.port":           "PORT",
		"server.analytics_port": "ANALYTICS_PORT",
		"llm.backend":           "LLM_BACKEND",
		"governor.benchmark_interval_seconds":            "BENCHMARK_INTERVAL_SECONDS",
		"governor.consolidation_cycle_interval_seconds":  "CONSOLIDATION_CYCLE_INTERVAL_SECONDS",
		"governor.wisdom_synthesis_interval_seconds":     "WISDOM_SYNTHESIS_INTERVAL_SECONDS",
	}
	for key, env := range pairs {
		_ = v.BindEnv(key, env)
	}
}

func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("server.host", d.Server.Host)
	v.SetDefault("server.port", d.Server.Port)
	v.SetDefault("server.analytics_port", d.Server.AnalyticsPort)
	v.SetDefault("llm.backend", d.LLM.Backend)
	v.SetDefault("llm.endpoint", d.LLM.Endpoint)
	v.SetDefault("llm.model", d.LLM.Model)
	v.SetDefault("llm.fast_model", d.LLM.FastModel)
	v.SetDefault("llm.timeout", d.LLM.Timeout)
	v.SetDefault("energy.max_energy", d.Energy.MaxEnergy)
	v.SetDefault("energy.recovery_rate", d.Energy.RecoveryRate)
	v.SetDefault("energy.low_threshold", d.Energy.LowThreshold)
	v.SetDefault("governor.tick_seconds", d.Governor.TickSeconds)
	v.SetDefault("governor.benchmark_interval_seconds", d.Governor.BenchmarkIntervalSeconds)
	v.SetDefault("governor.self_evolution_seconds", d.Governor.SelfEvolutionSeconds)
	v.SetDefault("governor.micro_llm_creation_seconds", d.Governor.MicroLLMCreationSeconds)
	v.SetDefault("governor.autonomous_cycle_seconds", d.Governor.AutonomousCycleSeconds)
	v.SetDefault("governor.consolidation_cycle_interval_seconds", d.Governor.ConsolidationSeconds)
	v.SetDefault("governor.wisdom_synthesis_interval_seconds", d.Governor.WisdomSynthesisSeconds)
	v.SetDefault("pipelines.num_drafts", d.Pipelines.NumDrafts)
	v.SetDefault("pipelines.max_turns", d.Pipelines.MaxTurns)
	v.SetDefault("pipelines.max_iterations", d.Pipelines.MaxIterations)
	v.SetDefault("pipelines.tot_initial", d.Pipelines.TotInitial)
	v.SetDefault("pipelines.tot_depth", d.Pipelines.TotDepth)
	v.SetDefault("pipelines.tot_beam", d.Pipelines.TotBeam)
	v.SetDefault("storage.knowledge_graph_path", d.Storage.KnowledgeGraphPath)
	v.SetDefault("storage.memory_log_path", d.Storage.MemoryLogPath)
	v.SetDefault("storage.working_memory_dir", d.Storage.WorkingMemoryDir)
	v.SetDefault("storage.prompts_path", d.Storage.PromptsPath)
	v.SetDefault("storage.vector_store_path", d.Storage.VectorStorePath)
	v.SetDefault("storage.sandbox_log_path", d.Storage.SandboxLogPath)
	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.file", d.Logging.File)
	v.SetDefault("research.topics", d.Research.Topics)
}

// LoadPersonas reads a standalone persona YAML file for the quantum-inspired
// pipeline. A missing file is not an error; it yields an empty list, which
// the pipeline reports to the caller.
func LoadPersonas(path string) ([]PersonaConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read personas file: %w", err)
	}
	var wrapper struct {
		Personas []PersonaConfig `yaml:"personas"`
	}
	if err := yaml.Unmarshal(data, &wrapper); err != nil {
		return nil, fmt.Errorf("parse personas file: %w", err)
	}
	return wrapper.Personas, nil
}
