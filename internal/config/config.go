package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Database    DatabaseConfig    `mapstructure:"database"`
	Redis       RedisConfig       `mapstructure:"redis"`
	JWT         JWTConfig         `mapstructure:"jwt"`
	Inference   EndpointConfig    `mapstructure:"inference"`
	Retrieval   EndpointConfig    `mapstructure:"retrieval"`
	Translation EndpointConfig    `mapstructure:"translation"`
	Interview   InterviewConfig   `mapstructure:"interview"`
	Email       EmailConfig       `mapstructure:"email"`
}

type ServerConfig struct {
	Port           int `mapstructure:"port"`
	TimeoutSeconds int `mapstructure:"timeoutSeconds"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	SSLMode  string `mapstructure:"sslmode"`
}

type RedisConfig struct {
	URL          string        `mapstructure:"url"`
	MaxRetries   int           `mapstructure:"max_retries"`
	RetryBackoff time.Duration `mapstructure:"retry_backoff"`
	PoolSize     int           `mapstructure:"pool_size"`
	MinIdleConns int           `mapstructure:"min_idle_conns"`
}

type JWTConfig struct {
	Secret      string `mapstructure:"secret"`
	ExpiryHours int    `mapstructure:"expiry_hours"`
}

type EndpointConfig struct {
	BaseURL        string        `mapstructure:"base_url"`
	APIKey         string        `mapstructure:"api_key"`
	Timeout        time.Duration `mapstructure:"timeout"`
}

type EmailConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from"`
}

// InterviewConfig carries the interview tuning constants. The defaults are
// hand-tuned product values, not clinically derived; do not re-derive them
// without product guidance.
type InterviewConfig struct {
	TargetPoolSize          int     `mapstructure:"target_pool_size"`
	MinPoolBeforeInference  int     `mapstructure:"min_pool_before_inference"`
	MinDiseasesForCompletion int    `mapstructure:"min_diseases_for_completion"`
	MinimumTurns            int     `mapstructure:"minimum_turns"`
	MaximumTurns            int     `mapstructure:"maximum_turns"`
	ConfidenceThreshold     float64 `mapstructure:"confidence_threshold"`
	SecondaryThreshold      float64 `mapstructure:"secondary_threshold"`
	CompletionCandidates    int     `mapstructure:"completion_candidates"`
	ConversationWindow      int     `mapstructure:"conversation_window"`
	KnowledgeExcerptChars   int     `mapstructure:"knowledge_excerpt_chars"`
	TurnLockTTL             time.Duration `mapstructure:"turn_lock_ttl"`
}

// DefaultInterviewConfig returns the tuned production defaults.
func DefaultInterviewConfig() InterviewConfig {
	return InterviewConfig{
		TargetPoolSize:           50,
		MinPoolBeforeInference:   15,
		MinDiseasesForCompletion: 3,
		MinimumTurns:             10,
		MaximumTurns:             25,
		ConfidenceThreshold:      90,
		SecondaryThreshold:       85,
		CompletionCandidates:     3,
		ConversationWindow:       12,
		KnowledgeExcerptChars:    2000,
		TurnLockTTL:              2 * time.Minute,
	}
}

func LoadConfig() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &config, nil
}

func setDefaults() {
	def := DefaultInterviewConfig()
	viper.SetDefault("interview.target_pool_size", def.TargetPoolSize)
	viper.SetDefault("interview.min_pool_before_inference", def.MinPoolBeforeInference)
	viper.SetDefault("interview.min_diseases_for_completion", def.MinDiseasesForCompletion)
	viper.SetDefault("interview.minimum_turns", def.MinimumTurns)
	viper.SetDefault("interview.maximum_turns", def.MaximumTurns)
	viper.SetDefault("interview.confidence_threshold", def.ConfidenceThreshold)
	viper.SetDefault("interview.secondary_threshold", def.SecondaryThreshold)
	viper.SetDefault("interview.completion_candidates", def.CompletionCandidates)
	viper.SetDefault("interview.conversation_window", def.ConversationWindow)
	viper.SetDefault("interview.knowledge_excerpt_chars", def.KnowledgeExcerptChars)
	viper.SetDefault("interview.turn_lock_ttl", def.TurnLockTTL)
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.timeoutSeconds", 30)
	viper.SetDefault("inference.timeout", 30*time.Second)
	viper.SetDefault("retrieval.timeout", 10*time.Second)
	viper.SetDefault("translation.timeout", 10*time.Second)
}
