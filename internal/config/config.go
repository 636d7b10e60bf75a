package config

import (
	"fmt"
	"os"
	"time"
	_ "time/tzdata"

	"gopkg.in/yaml.v3"

	"trivia-service/internal/domain"
	"trivia-service/internal/game"
)

type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		// TTL is how long settlement marks are kept.
		TTL      string `yaml:"ttl"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	Questions struct {
		TTL string `yaml:"ttl"`
	} `yaml:"questions"`
	Scoring Scoring `yaml:"scoring"`
	Rounds  Rounds  `yaml:"rounds"`
	Draw    struct {
		MinStreak int `yaml:"minStreak"`
		Winners   int `yaml:"winners"`
	} `yaml:"draw"`
}

// Scoring mirrors game.Rules in YAML form.
type Scoring struct {
	Base                    game.BaseTable    `yaml:"base"`
	SecondAttemptMultiplier float64           `yaml:"secondAttemptMultiplier"`
	ThemedCategories        []domain.Category `yaml:"themedCategories"`
	Categories              []domain.Category `yaml:"categories"`
}

// Rules converts the YAML section to engine rules.
func (s Scoring) Rules() game.Rules {
	return game.Rules{
		Base:                    s.Base,
		SecondAttemptMultiplier: s.SecondAttemptMultiplier,
		ThemedCategories:        s.ThemedCategories,
	}
}

// AllCategories returns themed plus plain categories for the question picker.
func (s Scoring) AllCategories() []domain.Category {
	out := make([]domain.Category, 0, len(s.ThemedCategories)+len(s.Categories))
	out = append(out, s.ThemedCategories...)
	return append(out, s.Categories...)
}

// Window is a daily prize round, e.g. start "09:00" for duration "1h".
type Window struct {
	Start    string `yaml:"start"`
	Duration string `yaml:"duration"`
}

type Rounds struct {
	Timezone string   `yaml:"timezone"`
	Windows  []Window `yaml:"windows"`
	TopN     int      `yaml:"topN"`
	Prizes   []int    `yaml:"prizes"`
}

// Default returns the configuration used when a key is absent from the file.
func Default() Config {
	cfg := Config{}
	cfg.Server.Port = "8080"
	cfg.Log.Level = "info"
	cfg.Redis.TTL = "720h"
	cfg.Questions.TTL = "10m"

	rules := game.DefaultRules()
	cfg.Scoring = Scoring{
		Base:                    rules.Base,
		SecondAttemptMultiplier: rules.SecondAttemptMultiplier,
		ThemedCategories:        rules.ThemedCategories,
		Categories:              []domain.Category{"GENERAL", "SCIENCE", "WORLD"},
	}
	cfg.Rounds = Rounds{
		Timezone: "Africa/Accra",
		Windows:  []Window{{Start: "09:00", Duration: "1h"}, {Start: "21:00", Duration: "1h"}},
		TopN:     3,
		Prizes:   []int{1000, 750, 500},
	}
	cfg.Draw.MinStreak = 7
	cfg.Draw.Winners = 5
	return cfg
}

// Load reads YAML config from path on top of Default.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks the round schedule can be parsed.
func (c Config) Validate() error {
	if _, err := time.LoadLocation(c.Rounds.Timezone); err != nil {
		return fmt.Errorf("rounds.timezone: %w", err)
	}
	for i, w := range c.Rounds.Windows {
		if _, err := time.Parse("15:04", w.Start); err != nil {
			return fmt.Errorf("rounds.windows[%d].start: %w", i, err)
		}
		if d := TTLDuration(w.Duration, 0); d <= 0 {
			return fmt.Errorf("rounds.windows[%d].duration %q must be a positive duration", i, w.Duration)
		}
	}
	return nil
}

// ApplyEnv overrides connection settings from the environment (REDIS_ADDR,
// REDIS_PASSWORD, POSTGRES_URL, LOG_LEVEL).
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	if v, ok := lookup("REDIS_ADDR"); ok {
		c.Redis.Addr = v
	}
	if v, ok := lookup("REDIS_PASSWORD"); ok {
		c.Redis.Password = v
	}
	if v, ok := lookup("POSTGRES_URL"); ok {
		c.Postgres.URL = v
	}
	if v, ok := lookup("LOG_LEVEL"); ok && v != "" {
		c.Log.Level = v
	}
}

// TTLDuration parses a duration string or returns the fallback if empty.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}
