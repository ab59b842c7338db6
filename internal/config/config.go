package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/Harshitk-cp/agentspeak/internal/agent"
	"github.com/Harshitk-cp/agentspeak/internal/fuzzy"
)

// Load reads the .env file specified by AGENTSPEAK_ENV (or .env by default),
// then loads the corresponding .secret file if it exists.
// All config is flat env vars read via os.Getenv after loading.
func Load() error {
	envFile := os.Getenv("AGENTSPEAK_ENV")
	if envFile == "" {
		envFile = ".env"
	}

	// Load main env file (ignore error if file doesn't exist)
	_ = godotenv.Load(envFile)

	// Load secret sidecar if it exists
	_ = godotenv.Load(envFile + ".secret")

	return nil
}

func ServerPort() int {
	port, err := strconv.Atoi(os.Getenv("SERVER_PORT"))
	if err != nil {
		return 8080
	}
	return port
}

func ServerAddr() string {
	return fmt.Sprintf(":%d", ServerPort())
}

func DatabaseURL() string {
	return os.Getenv("DATABASE_URL")
}

// RedisAddr defaults to localhost:6379.
func RedisAddr() string {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		return "localhost:6379"
	}
	return addr
}

// APIKey is the bearer token required by the /v1 routes. Empty disables
// authentication.
func APIKey() string {
	return os.Getenv("API_KEY")
}

// StorageBackend returns where agent storage and the agent registry live.
// Defaults to "memory" if not set.
// Valid values: memory, redis, postgres
func StorageBackend() string {
	b := strings.ToLower(os.Getenv("STORAGE_BACKEND"))
	if b == "" {
		return "memory"
	}
	return b
}

// ProgramsDir is a directory of YAML programs started at boot. Empty
// disables preloading.
func ProgramsDir() string {
	return os.Getenv("PROGRAMS_DIR")
}

// RateLimitRPS returns requests per second limit.
// Defaults to 100 if not set.
func RateLimitRPS() float64 {
	rps, err := strconv.ParseFloat(os.Getenv("RATE_LIMIT_RPS"), 64)
	if err != nil || rps <= 0 {
		return 100
	}
	return rps
}

// RateLimitBurst returns the burst size for rate limiting.
// Defaults to 20 if not set.
func RateLimitBurst() int {
	burst, err := strconv.Atoi(os.Getenv("RATE_LIMIT_BURST"))
	if err != nil || burst <= 0 {
		return 20
	}
	return burst
}

// LogLevel returns the log level (debug, info, warn, error).
// Defaults to "info" if not set.
func LogLevel() string {
	level := os.Getenv("LOG_LEVEL")
	if level == "" {
		return "info"
	}
	return level
}

// SchedulerInterval is the tick of the background scheduler.
// Defaults to 100ms if not set.
func SchedulerInterval() time.Duration {
	d, err := time.ParseDuration(os.Getenv("SCHEDULER_INTERVAL"))
	if err != nil || d <= 0 {
		return 100 * time.Millisecond
	}
	return d
}

// SchedulerSteps is how many steps each agent may take per tick.
// Defaults to 10 if not set.
func SchedulerSteps() int {
	n, err := strconv.Atoi(os.Getenv("SCHEDULER_STEPS"))
	if err != nil || n <= 0 {
		return 10
	}
	return n
}

func GuardAggregation() string {
	a := os.Getenv("GUARD_AGGREGATION")
	if a == "" {
		return "all"
	}
	return a
}

func RankAggregation() string {
	a := os.Getenv("RANK_AGGREGATION")
	if a == "" {
		return "max"
	}
	return a
}

func MaxRuleDepth() int {
	n, _ := strconv.Atoi(os.Getenv("MAX_RULE_DEPTH"))
	return n
}

func MaxLoopIterations() int {
	n, _ := strconv.Atoi(os.Getenv("MAX_LOOP_ITERATIONS"))
	return n
}

func ParallelSelection() bool {
	b, _ := strconv.ParseBool(os.Getenv("PARALLEL_SELECTION"))
	return b
}

// SelectionThreshold is the minimum degree for parallel selection.
func SelectionThreshold() float64 {
	f, err := strconv.ParseFloat(os.Getenv("SELECTION_THRESHOLD"), 64)
	if err != nil || f < 0 {
		return 0
	}
	return f
}

func PriorityQueue() bool {
	b, _ := strconv.ParseBool(os.Getenv("PRIORITY_QUEUE"))
	return b
}

// AgentConfig builds the engine options shared by every hosted agent.
// Unset numeric limits fall back to the engine defaults.
func AgentConfig() (agent.Config, error) {
	guard, err := fuzzy.ByName(GuardAggregation())
	if err != nil {
		return agent.Config{}, fmt.Errorf("GUARD_AGGREGATION: %w", err)
	}
	rank, err := fuzzy.ByName(RankAggregation())
	if err != nil {
		return agent.Config{}, fmt.Errorf("RANK_AGGREGATION: %w", err)
	}
	return agent.Config{
		GuardAggregation:  guard,
		RankAggregation:   rank,
		ParallelSelection: ParallelSelection(),
		Threshold:         SelectionThreshold(),
		MaxRuleDepth:      MaxRuleDepth(),
		MaxLoopIterations: MaxLoopIterations(),
		PriorityQueue:     PriorityQueue(),
	}, nil
}

// Logger builds the production logger at LOG_LEVEL.
func Logger() (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(LogLevel())
	if err != nil {
		return nil, fmt.Errorf("LOG_LEVEL: %w", err)
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(level)
	return cfg.Build()
}
