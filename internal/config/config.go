package config

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino/components/model"
)

// Config aggregates the service configuration, loaded from the environment.
type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Session    SessionConfig
	Gate       GateConfig
	Feedback   FeedbackConfig
	AI         AIConfig
	Twilio     TwilioConfig
	Log        LogConfig
	Restaurant RestaurantConfig
}

type ServerConfig struct {
	Port        string
	Environment string
	// SkipWebhookValidation disables the Twilio signature check (ngrok, local runs).
	SkipWebhookValidation bool
	PublicURL             string
}

func (s ServerConfig) IsDevelopment() bool {
	return s.Environment == "development"
}

type DatabaseConfig struct {
	UseMemory              bool
	Host                   string
	Port                   string
	User                   string
	Password               string
	Name                   string
	InstanceConnectionName string
}

type SessionConfig struct {
	Backend         string // memory or bolt
	BoltPath        string
	TTL             time.Duration
	WindowSize      int
	CleanupInterval time.Duration
}

type GateConfig struct {
	MaxQueue    int
	WaitTimeout time.Duration
}

type FeedbackConfig struct {
	Delay time.Duration
}

// AIConfig configures the Ark chat model used for intent extraction and replies.
type AIConfig struct {
	APIKey        string
	AccessKey     string
	SecretKey     string
	Model         string
	BaseURL       string
	Region        string
	Temperature   *float64
	MaxTokens     *int
	MinConfidence float64
	// Pricing per one million tokens, in USD, and the USD → local currency rate.
	InputCostPerMillion  float64
	OutputCostPerMillion float64
	USDToLocal           float64
}

type TwilioConfig struct {
	AccountSID   string
	AuthToken    string
	WhatsAppFrom string
}

func (t TwilioConfig) Enabled() bool {
	return t.AccountSID != "" && t.AuthToken != ""
}

type LogConfig struct {
	Level  string
	Pretty bool
}

type RestaurantConfig struct {
	ProfilePath string
	Timezone    string
}

// Location resolves the restaurant's timezone for parsing reservation times
// and formatting ETAs.
func (r RestaurantConfig) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(r.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid RESTAURANT_TIMEZONE %q: %w", r.Timezone, err)
	}
	return loc, nil
}

// Load reads the configuration from environment variables.
func Load() (*Config, error) {
	server, err := loadServerConfig()
	if err != nil {
		return nil, err
	}
	db, err := loadDatabaseConfig()
	if err != nil {
		return nil, err
	}
	sess, err := loadSessionConfig()
	if err != nil {
		return nil, err
	}
	gate, err := loadGateConfig()
	if err != nil {
		return nil, err
	}
	feedbackDelay, err := parseIntEnv("FEEDBACK_DELAY_MINUTES", 30)
	if err != nil {
		return nil, err
	}
	ai, err := loadAIConfig()
	if err != nil {
		return nil, err
	}
	pretty, err := parseBoolEnv("LOG_PRETTY", server.IsDevelopment())
	if err != nil {
		return nil, err
	}

	return &Config{
		Server:   server,
		Database: db,
		Session:  sess,
		Gate:     gate,
		Feedback: FeedbackConfig{Delay: time.Duration(feedbackDelay) * time.Minute},
		AI:       ai,
		Twilio: TwilioConfig{
			AccountSID:   strings.TrimSpace(os.Getenv("TWILIO_ACCOUNT_SID")),
			AuthToken:    strings.TrimSpace(os.Getenv("TWILIO_AUTH_TOKEN")),
			WhatsAppFrom: getEnvOrDefault("TWILIO_WHATSAPP_FROM", "whatsapp:+14155238886"),
		},
		Log: LogConfig{
			Level:  getEnvOrDefault("LOG_LEVEL", "info"),
			Pretty: pretty,
		},
		Restaurant: RestaurantConfig{
			ProfilePath: strings.TrimSpace(os.Getenv("RESTAURANT_PROFILE")),
			Timezone:    getEnvOrDefault("RESTAURANT_TIMEZONE", "Asia/Karachi"),
		},
	}, nil
}

func loadServerConfig() (ServerConfig, error) {
	port := getEnvOrDefault("PORT", "8080")
	if strings.Contains(port, " ") {
		return ServerConfig{}, fmt.Errorf("invalid PORT value: %q", port)
	}
	env := getEnvOrDefault("ENVIRONMENT", "production")
	skip, err := parseBoolEnv("DISABLE_WEBHOOK_VALIDATION", env == "development")
	if err != nil {
		return ServerConfig{}, err
	}
	return ServerConfig{
		Port:                  strings.TrimPrefix(port, ":"),
		Environment:           env,
		SkipWebhookValidation: skip,
		PublicURL:             strings.TrimRight(strings.TrimSpace(os.Getenv("PUBLIC_URL")), "/"),
	}, nil
}

func loadDatabaseConfig() (DatabaseConfig, error) {
	useMemory, err := parseBoolEnv("USE_MEMORY_STORE", false)
	if err != nil {
		return DatabaseConfig{}, err
	}
	return DatabaseConfig{
		UseMemory:              useMemory,
		Host:                   getEnvOrDefault("DB_HOST", "localhost"),
		Port:                   getEnvOrDefault("DB_PORT", "5432"),
		User:                   getEnvOrDefault("DB_USER", "postgres"),
		Password:               os.Getenv("DB_PASS"),
		Name:                   getEnvOrDefault("DB_NAME", "dinepe"),
		InstanceConnectionName: strings.TrimSpace(os.Getenv("INSTANCE_CONNECTION_NAME")),
	}, nil
}

func loadSessionConfig() (SessionConfig, error) {
	ttl, err := parseIntEnv("SESSION_TIMEOUT_MINUTES", 60)
	if err != nil {
		return SessionConfig{}, err
	}
	window, err := parseIntEnv("SESSION_WINDOW", 20)
	if err != nil {
		return SessionConfig{}, err
	}
	cleanup, err := parseIntEnv("SESSION_CLEANUP_MINUTES", 5)
	if err != nil {
		return SessionConfig{}, err
	}
	backend := strings.ToLower(getEnvOrDefault("SESSION_BACKEND", "memory"))
	if backend != "memory" && backend != "bolt" {
		return SessionConfig{}, fmt.Errorf("invalid SESSION_BACKEND value %q: want memory or bolt", backend)
	}
	if ttl < 1 || window < 1 {
		return SessionConfig{}, fmt.Errorf("SESSION_TIMEOUT_MINUTES and SESSION_WINDOW must be positive")
	}
	return SessionConfig{
		Backend:         backend,
		BoltPath:        getEnvOrDefault("SESSION_BOLT_PATH", "data/sessions.db"),
		TTL:             time.Duration(ttl) * time.Minute,
		WindowSize:      window,
		CleanupInterval: time.Duration(cleanup) * time.Minute,
	}, nil
}

func loadGateConfig() (GateConfig, error) {
	queue, err := parseIntEnv("GATE_MAX_QUEUE", 16)
	if err != nil {
		return GateConfig{}, err
	}
	wait, err := parseIntEnv("GATE_WAIT_TIMEOUT_SECONDS", 10)
	if err != nil {
		return GateConfig{}, err
	}
	return GateConfig{MaxQueue: queue, WaitTimeout: time.Duration(wait) * time.Second}, nil
}

func loadAIConfig() (AIConfig, error) {
	temperature, err := parseOptionalFloatEnv("ARK_TEMPERATURE")
	if err != nil {
		return AIConfig{}, err
	}
	maxTokens, err := parseOptionalIntEnv("ARK_MAX_TOKENS")
	if err != nil {
		return AIConfig{}, err
	}
	minConfidence, err := parseFloatEnv("AI_MIN_CONFIDENCE", 0.4)
	if err != nil {
		return AIConfig{}, err
	}
	inputCost, err := parseFloatEnv("LLM_INPUT_COST_PER_MILLION", 0.075)
	if err != nil {
		return AIConfig{}, err
	}
	outputCost, err := parseFloatEnv("LLM_OUTPUT_COST_PER_MILLION", 0.30)
	if err != nil {
		return AIConfig{}, err
	}
	rate, err := parseFloatEnv("USD_TO_LOCAL_RATE", 280)
	if err != nil {
		return AIConfig{}, err
	}

	return AIConfig{
		APIKey:               strings.TrimSpace(os.Getenv("ARK_API_KEY")),
		AccessKey:            strings.TrimSpace(os.Getenv("ARK_ACCESS_KEY")),
		SecretKey:            strings.TrimSpace(os.Getenv("ARK_SECRET_KEY")),
		Model:                strings.TrimSpace(os.Getenv("AI_MODEL")),
		BaseURL:              getEnvOrDefault("ARK_BASE_URL", "https://ark.cn-beijing.volces.com/api/v3"),
		Region:               getEnvOrDefault("ARK_REGION", "cn-beijing"),
		Temperature:          temperature,
		MaxTokens:            maxTokens,
		MinConfidence:        minConfidence,
		InputCostPerMillion:  inputCost,
		OutputCostPerMillion: outputCost,
		USDToLocal:           rate,
	}, nil
}

// Enabled reports whether credentials and a model are configured.
func (c AIConfig) Enabled() bool {
	return c.Model != "" && (c.APIKey != "" || (c.AccessKey != "" && c.SecretKey != ""))
}

// NewChatModel creates the Ark chat model shared by intent extraction and replies.
func (c AIConfig) NewChatModel(ctx context.Context) (model.ChatModel, error) {
	if !c.Enabled() {
		return nil, fmt.Errorf("ark credentials or AI_MODEL missing")
	}

	var temperature *float32
	if c.Temperature != nil {
		val := float32(*c.Temperature)
		temperature = &val
	}

	return ark.NewChatModel(ctx, &ark.ChatModelConfig{
		BaseURL:     c.BaseURL,
		Region:      c.Region,
		APIKey:      c.APIKey,
		AccessKey:   c.AccessKey,
		SecretKey:   c.SecretKey,
		Model:       c.Model,
		MaxTokens:   c.MaxTokens,
		Temperature: temperature,
	})
}

// DSN builds the PostgreSQL connection string, using the Cloud SQL socket when
// an instance connection name is configured.
func (d DatabaseConfig) DSN() string {
	if d.InstanceConnectionName != "" {
		return fmt.Sprintf("host=/cloudsql/%s user=%s password=%s dbname=%s sslmode=disable",
			d.InstanceConnectionName, d.User, d.Password, d.Name)
	}
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
		d.Host, d.User, d.Password, d.Name, d.Port)
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func parseBoolEnv(key string, defaultValue bool) (bool, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue, nil
	}
	val, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	return val, nil
}

func parseIntEnv(key string, defaultValue int) (int, error) {
	val, err := parseOptionalIntEnv(key)
	if err != nil || val == nil {
		return defaultValue, err
	}
	return *val, nil
}

func parseFloatEnv(key string, defaultValue float64) (float64, error) {
	val, err := parseOptionalFloatEnv(key)
	if err != nil || val == nil {
		return defaultValue, err
	}
	return *val, nil
}

func parseOptionalFloatEnv(key string) (*float64, error) {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return nil, nil
	}
	val, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}

func parseOptionalIntEnv(key string) (*int, error) {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return nil, nil
	}
	val, err := strconv.Atoi(value)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}
