// Package config provides configuration management using viper.
// It supports loading from YAML files and environment variable overrides.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Mesh     MeshConfig     `mapstructure:"mesh"`
	Database DatabaseConfig `mapstructure:"database"`
	Admin    AdminConfig    `mapstructure:"admin"`
	LLM      LLMConfig      `mapstructure:"llm"`
	Jeopardy JeopardyConfig `mapstructure:"jeopardy"`
	Trivia   TriviaConfig   `mapstructure:"trivia"`
}

// MeshConfig holds the mesh gateway connection configuration.
type MeshConfig struct {
	GatewayURL  string        `mapstructure:"gateway_url"`
	ChannelName string        `mapstructure:"channel_name"`
	ChunkSize   int           `mapstructure:"chunk_size"`
	ChunkDelay  time.Duration `mapstructure:"chunk_delay"`
}

// DatabaseConfig holds PostgreSQL connection configuration.
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	PoolSize        int           `mapstructure:"pool_size"`
	ConnectTimeout  time.Duration `mapstructure:"connect_timeout"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime time.Duration `mapstructure:"max_conn_idle_time"`
}

// AdminConfig holds the admin node allow-list.
// IDs are meshtastic user ids with or without the leading "!".
type AdminConfig struct {
	NodeIDs []string `mapstructure:"node_ids"`
}

// LLMConfig holds the OpenAI-compatible endpoint used for host commentary.
type LLMConfig struct {
	BaseURL string `mapstructure:"base_url"`
	Model   string `mapstructure:"model"`
	APIKey  string `mapstructure:"api_key"`
}

// JeopardyConfig holds Hacker Jeopardy game configuration.
type JeopardyConfig struct {
	QuestionsFile    string        `mapstructure:"questions_file"`
	AnswerWindow     time.Duration `mapstructure:"answer_window"`
	QuestionInterval time.Duration `mapstructure:"question_interval"`
	MaxRounds        int           `mapstructure:"max_rounds"`
	JoinWindow       time.Duration `mapstructure:"join_window"`
}

// TriviaConfig holds casual trivia configuration.
type TriviaConfig struct {
	QuestionsFile string `mapstructure:"questions_file"`
	PointValue    int64  `mapstructure:"point_value"`
}

// DSN returns the PostgreSQL connection string.
func (d *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=disable",
		d.User, d.Password, d.Host, d.Port, d.Name,
	)
}

// Load reads configuration from file and environment variables.
// It looks for config.yaml in the config directory.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configPath)
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	// Environment variables use underscore separator and uppercase,
	// e.g. MESH_GATEWAY_URL, DATABASE_HOST, ADMIN_NODE_IDS
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Config file is optional, env vars can provide everything
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	// Mesh defaults
	v.SetDefault("mesh.gateway_url", "ws://localhost:8088/ws")
	v.SetDefault("mesh.channel_name", "SecKC-Test")
	v.SetDefault("mesh.chunk_size", 200)
	v.SetDefault("mesh.chunk_delay", "500ms")

	// Database defaults
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "meshbot")
	v.SetDefault("database.name", "meshbot")
	v.SetDefault("database.pool_size", 10)
	v.SetDefault("database.connect_timeout", "10s")
	v.SetDefault("database.max_conn_lifetime", "1h")
	v.SetDefault("database.max_conn_idle_time", "30m")

	// LLM defaults (local Ollama, OpenAI-compatible endpoint)
	v.SetDefault("llm.base_url", "http://localhost:11434/v1/")
	v.SetDefault("llm.model", "gpt-oss:20b")
	v.SetDefault("llm.api_key", "ollama")

	// Jeopardy defaults
	v.SetDefault("jeopardy.questions_file", "data/hj_questions.txt")
	v.SetDefault("jeopardy.answer_window", "2m")
	v.SetDefault("jeopardy.question_interval", "3m")
	v.SetDefault("jeopardy.max_rounds", 10)
	v.SetDefault("jeopardy.join_window", "30s")

	// Trivia defaults
	v.SetDefault("trivia.questions_file", "data/trivia_questions.txt")
	v.SetDefault("trivia.point_value", 10)
}
