package model

import "time"

// ================ Config ================
type ConversationConfig struct {
	TTL             time.Duration `envconfig:"CONVERSATION_TTL" default:"720h"`
	HistoryTurns    int           `envconfig:"CONVERSATION_HISTORY_TURNS" default:"6"`
	LockTTL         time.Duration `envconfig:"CONVERSATION_LOCK_TTL" default:"2m"`
	DistributedLock bool          `envconfig:"CONVERSATION_LOCK_DISTRIBUTED" default:"false"`
}

type OrchestratorConfig struct {
	RetryLimit  int           `envconfig:"GRAPH_RETRY_LIMIT" default:"3"`
	CallTimeout time.Duration `envconfig:"GRAPH_CALL_TIMEOUT" default:"45s"`
	MaxRunSteps int           `envconfig:"GRAPH_MAX_RUN_STEPS" default:"40"`
}

// Fallbacks for unset orchestrator settings.
const (
	DefaultRetryLimit  = 3
	DefaultCallTimeout = 45 * time.Second
)

// lockMargin covers state and message I/O around the model calls of a turn.
const lockMargin = 30 * time.Second

// TurnBudget is the longest a turn can run: classification, extraction and
// retrieval plus the first task attempt and every retry, each bounded by
// CallTimeout.
func (c OrchestratorConfig) TurnBudget() time.Duration {
	retries := c.RetryLimit
	if retries <= 0 {
		retries = DefaultRetryLimit
	}
	timeout := c.CallTimeout
	if timeout <= 0 {
		timeout = DefaultCallTimeout
	}
	return time.Duration(3+1+retries)*timeout + lockMargin
}

// LockTTLFor returns the distributed lock lease for a turn. A configured TTL
// shorter than the turn budget is raised to it so the lease cannot lapse
// while the turn still runs.
func LockTTLFor(conv ConversationConfig, orch OrchestratorConfig) time.Duration {
	return max(conv.LockTTL, orch.TurnBudget())
}

type LLMConfig struct {
	Provider       string `envconfig:"LLM_PROVIDER" default:"mock"`
	APIKey         string `envconfig:"LLM_API_KEY"`
	BaseURL        string `envconfig:"LLM_BASE_URL"`
	ThinkingBudget int32  `envconfig:"LLM_THINKING_BUDGET" default:"0"`
}

type ClassifierModelConfig struct {
	Model       string  `envconfig:"CLASSIFIER_MODEL" default:"gemini-2.5-flash-lite"`
	MaxTokens   int     `envconfig:"CLASSIFIER_MAX_TOKENS" default:"20"`
	Temperature float32 `envconfig:"CLASSIFIER_TEMPERATURE" default:"0.1"`
}

type GenerationModelConfig struct {
	Model       string  `envconfig:"GENERATION_MODEL" default:"gemini-2.5-flash"`
	MaxTokens   int     `envconfig:"GENERATION_MAX_TOKENS" default:"2000"`
	Temperature float32 `envconfig:"GENERATION_TEMPERATURE" default:"0.7"`
}

type RetrievalConfig struct {
	TopK     int           `envconfig:"RETRIEVAL_TOP_K" default:"5"`
	CacheTTL time.Duration `envconfig:"RETRIEVAL_CACHE_TTL" default:"10m"`
	SeedFile string        `envconfig:"RETRIEVAL_SEED_FILE"`
}

type PromptConfig struct {
	AssistantName string `envconfig:"PROMPT_ASSISTANT_NAME" default:"Atlas"`
	AgencyName    string `envconfig:"PROMPT_AGENCY_NAME" default:"Travel Concierge"`
}

type ServerConfig struct {
	Addr            string        `envconfig:"HTTP_ADDR" default:":8000"`
	ReadTimeout     time.Duration `envconfig:"HTTP_READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration `envconfig:"HTTP_WRITE_TIMEOUT" default:"0s"`
	ShutdownTimeout time.Duration `envconfig:"HTTP_SHUTDOWN_TIMEOUT" default:"10s"`
	AllowOrigins    []string      `envconfig:"HTTP_ALLOW_ORIGINS" default:"http://localhost:3000"`
	// TokenDelay paces streamed tokens; zero streams them back to back.
	TokenDelay time.Duration `envconfig:"HTTP_STREAM_TOKEN_DELAY" default:"0s"`
}
