package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/IBM/sarama"
	"github.com/joho/godotenv"
)

type Config struct {
	API     API
	Limits  Limits
	Kafka   Kafka
	Redis   Redis
	Web     Web
	Tracker Tracker
	Demo    bool
	Log     Log
}

// Build reads the environment, optionally seeded from a .env file.
func Build() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		API: API{
			BaseURL: String("ONEINCH_API_URL", "https://api.1inch.dev"),
			Web3URL: String("WEB3_API_URL", "https://api.1inch.dev/web3"),
			Key:     os.Getenv("ONEINCH_API_KEY"),
			Timeout: Duration("API_TIMEOUT", 15*time.Second),
		},
		Limits: Limits{
			APIDelay:  Duration("API_DELAY", 500*time.Millisecond),
			Web3Delay: Duration("WEB3_DELAY", time.Second),
			Rate:      Float("API_RATE", 0),
			Timeout:   Duration("CALL_TIMEOUT", 0),
			Grace:     Duration("DRAIN_GRACE", 5*time.Second),
		},
		Kafka: Kafka{
			SwapTopic:  String("KAFKA_SWAP_TOPIC", "swaps"),
			SwapGroup:  String("KAFKA_SWAP_GROUP", "swapdash"),
			StateTopic: String("KAFKA_STATE_TOPIC", "volumes"),
			Brokers:    List("KAFKA_BROKERS", []string{"127.0.0.1:9092"}),
		},
		Redis: Redis{
			Addr:     os.Getenv("REDIS_ADDR"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       Int("REDIS_DB", 0),
			TTL:      Duration("TOKEN_CACHE_TTL", time.Hour),
		},
		Web: Web{
			Addr: String("LISTEN_ADDR", "127.0.0.1:4242"),
		},
		Tracker: Tracker{
			ChainID:  Int("TRACKER_CHAIN", 1),
			Tokens:   List("TRACKER_TOKENS", nil),
			Interval: Duration("TRACKER_INTERVAL", 30*time.Second),
			History:  Int("TRACKER_HISTORY", 120),
			Periods:  List("VOLUME_PERIODS", []string{"1m", "5m", "1h"}),
		},
		Demo: Bool("DEMO", false),
		Log: Log{
			Level:  String("LOG_LEVEL", "info"),
			Format: String("LOG_FORMAT", "json"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	var errs []error
	if c.Limits.APIDelay < 0 || c.Limits.Web3Delay < 0 {
		errs = append(errs, errors.New("API_DELAY and WEB3_DELAY must be >= 0"))
	}
	if c.Tracker.Interval <= 0 {
		errs = append(errs, errors.New("TRACKER_INTERVAL must be > 0"))
	}
	if c.Tracker.History <= 0 {
		errs = append(errs, errors.New("TRACKER_HISTORY must be > 0"))
	}
	if len(c.Kafka.Brokers) == 0 {
		errs = append(errs, errors.New("KAFKA_BROKERS is required"))
	}
	if _, err := c.Tracker.VolumePeriods(); err != nil {
		errs = append(errs, err)
	}
	if _, err := c.Log.SlogLevel(); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: %w", errors.Join(errs...))
	}
	return nil
}

type API struct {
	BaseURL string
	Web3URL string
	Key     string
	Timeout time.Duration
}

type Limits struct {
	APIDelay  time.Duration
	Web3Delay time.Duration
	Rate      float64
	Timeout   time.Duration
	Grace     time.Duration
}

type Kafka struct {
	SwapTopic  string
	SwapGroup  string
	StateTopic string
	Brokers    []string
}

func (k Kafka) SaramaConfig() *sarama.Config {
	cfg := sarama.NewConfig()
	cfg.Producer.Return.Successes = true
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Consumer.Offsets.Initial = sarama.OffsetOldest

	return cfg
}

type Redis struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

type Web struct {
	Addr string
}

type Log struct {
	Level  string
	Format string
}

func (l Log) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(l.Level)); err != nil {
		return level, fmt.Errorf("invalid LOG_LEVEL %q", l.Level)
	}
	return level, nil
}

type Tracker struct {
	ChainID  int
	Tokens   []string
	Interval time.Duration
	History  int
	Periods  []string
}

// VolumePeriods parses Periods into named rolling windows ("5m" -> 5 minutes).
func (t Tracker) VolumePeriods() (map[string]time.Duration, error) {
	periods := make(map[string]time.Duration, len(t.Periods))
	for _, name := range t.Periods {
		d, err := time.ParseDuration(name)
		if err != nil || d < time.Second {
			return nil, fmt.Errorf("invalid volume period %q", name)
		}
		periods[name] = d
	}
	return periods, nil
}

func String(key, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

func Int(key string, fallback int) int {
	parsed, err := strconv.Atoi(String(key, ""))
	if err != nil {
		return fallback
	}
	return parsed
}

func Float(key string, fallback float64) float64 {
	parsed, err := strconv.ParseFloat(String(key, ""), 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func Duration(key string, fallback time.Duration) time.Duration {
	parsed, err := time.ParseDuration(String(key, ""))
	if err != nil {
		return fallback
	}
	return parsed
}

func Bool(key string, fallback bool) bool {
	parsed, err := strconv.ParseBool(String(key, ""))
	if err != nil {
		return fallback
	}
	return parsed
}

// List splits a comma separated value, dropping empty items.
func List(key string, fallback []string) []string {
	value := String(key, "")
	if value == "" {
		return fallback
	}

	items := make([]string, 0)
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}
