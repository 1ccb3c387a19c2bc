package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type AppConfig struct {
	ListenAddr string
	AdminAddr  string

	RedisURL    string
	DatabaseURL string

	TurnTimeout        time.Duration
	FirstMoveDelay     time.Duration
	RematchPromptDelay time.Duration
	ChallengeTTL       time.Duration
	WinBonusPoints     int

	SchedulerWorkers     int
	MaxConcurrentMatches int

	MessagesDir    string
	AllowedOrigins []string
}

// Load reads the environment. A .env file in the working directory is
// applied first when present; real environment variables win.
func Load() (*AppConfig, error) {
	_ = godotenv.Load()

	cfg := &AppConfig{
		ListenAddr:           ":8080",
		AdminAddr:            ":8081",
		TurnTimeout:          15 * time.Second,
		FirstMoveDelay:       500 * time.Millisecond,
		RematchPromptDelay:   3 * time.Second,
		ChallengeTTL:         30 * time.Second,
		WinBonusPoints:       3,
		SchedulerWorkers:     4,
		MaxConcurrentMatches: 200,
	}

	if v := strings.TrimSpace(os.Getenv("LISTEN_ADDR")); v != "" {
		cfg.ListenAddr = v
	}
	if v := strings.TrimSpace(os.Getenv("ADMIN_ADDR")); v != "" {
		cfg.AdminAddr = v
	}
	cfg.RedisURL = strings.TrimSpace(os.Getenv("REDIS_URL"))
	cfg.DatabaseURL = strings.TrimSpace(os.Getenv("DATABASE_URL"))
	cfg.MessagesDir = strings.TrimSpace(os.Getenv("MESSAGES_DIR"))

	if n, ok := positiveInt("TURN_TIMEOUT_SEC"); ok {
		cfg.TurnTimeout = time.Duration(n) * time.Second
	}
	if n, ok := positiveInt("FIRST_MOVE_DELAY_MS"); ok {
		cfg.FirstMoveDelay = time.Duration(n) * time.Millisecond
	}
	if n, ok := positiveInt("REMATCH_PROMPT_DELAY_SEC"); ok {
		cfg.RematchPromptDelay = time.Duration(n) * time.Second
	}
	if n, ok := positiveInt("CHALLENGE_TTL_SEC"); ok {
		cfg.ChallengeTTL = time.Duration(n) * time.Second
	}
	// 0 disables the bonus
	if v := strings.TrimSpace(os.Getenv("WIN_BONUS_POINTS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			cfg.WinBonusPoints = n
		}
	}
	if n, ok := positiveInt("SCHEDULER_WORKERS"); ok {
		cfg.SchedulerWorkers = n
	}
	if cfg.SchedulerWorkers < 2 {
		cfg.SchedulerWorkers = 2
	}
	if n, ok := positiveInt("MAX_CONCURRENT_MATCHES"); ok {
		cfg.MaxConcurrentMatches = n
	}

	if v := strings.TrimSpace(os.Getenv("ALLOWED_ORIGINS")); v != "" {
		for _, p := range strings.Split(v, ",") {
			if s := strings.TrimSpace(p); s != "" {
				cfg.AllowedOrigins = append(cfg.AllowedOrigins, s)
			}
		}
	}

	if cfg.ListenAddr == cfg.AdminAddr {
		return nil, errors.New("LISTEN_ADDR and ADMIN_ADDR must differ")
	}
	return cfg, nil
}

func positiveInt(key string) (int, bool) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}
