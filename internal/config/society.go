package config

import (
	"errors"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// SocietyConfig holds settings the secretary edits at runtime through society.yml.
type SocietyConfig struct {
	Name       string         `mapstructure:"name"`
	Organisers []string       `mapstructure:"organisers"`
	Dues       DuesConfig     `mapstructure:"dues"`
	Reminders  ReminderPolicy `mapstructure:"reminders"`
}

type DuesConfig struct {
	Plans []DuesPlan `mapstructure:"plans"`
}

// DuesPlan is a membership rate. Amount is in minor units.
type DuesPlan struct {
	Name     string `mapstructure:"name"`
	Years    int    `mapstructure:"years"`
	Amount   int64  `mapstructure:"amount"`
	Currency string `mapstructure:"currency"`
	Lifetime bool   `mapstructure:"lifetime"`
}

type ReminderPolicy struct {
	AfterDays int `mapstructure:"afterDays"`
	Max       int `mapstructure:"max"`
}

func DefaultSocietyConfig() SocietyConfig {
	return SocietyConfig{
		Name:       "Hume Society",
		Organisers: []string{},
		Dues: DuesConfig{
			Plans: []DuesPlan{
				{Name: "regular", Years: 1, Amount: 5000, Currency: "USD"},
				{Name: "regular-3", Years: 3, Amount: 13500, Currency: "USD"},
				{Name: "student", Years: 1, Amount: 2000, Currency: "USD"},
				{Name: "lifetime", Years: 0, Amount: 75000, Currency: "USD", Lifetime: true},
			},
		},
		Reminders: ReminderPolicy{
			AfterDays: 7,
			Max:       3,
		},
	}
}

// Plan looks up a dues plan by name.
func (c SocietyConfig) Plan(name string) (DuesPlan, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	for _, plan := range c.Dues.Plans {
		if strings.ToLower(plan.Name) == name {
			return plan, true
		}
	}
	return DuesPlan{}, false
}

type SocietyConfigHolder struct {
	current atomic.Value // holds SocietyConfig
}

// NewStaticSocietyConfigHolder wraps a fixed config, used by tests and tools.
func NewStaticSocietyConfigHolder(cfg SocietyConfig) *SocietyConfigHolder {
	holder := &SocietyConfigHolder{}
	holder.current.Store(cfg)
	return holder
}

func NewSocietyConfigHolder(log *zap.Logger) (*SocietyConfigHolder, error) {
	log = log.Named("society.config")
	v := viper.New()

	v.SetConfigName("society")
	v.SetConfigType("yml")
	v.AddConfigPath("/etc/humesociety")
	v.AddConfigPath(".")

	v.SetEnvPrefix("HUMESOCIETY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultSocietyConfig()
	v.SetDefault("society.name", defaults.Name)
	v.SetDefault("society.organisers", defaults.Organisers)
	v.SetDefault("society.dues.plans", defaults.Dues.Plans)
	v.SetDefault("society.reminders.afterDays", defaults.Reminders.AfterDays)
	v.SetDefault("society.reminders.max", defaults.Reminders.Max)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		log.Info("society.yml not found, using defaults")
	}

	var cfg SocietyConfig
	if err := v.UnmarshalKey("society", &cfg); err != nil {
		return nil, err
	}
	if err := validateSocietyConfig(cfg); err != nil {
		return nil, err
	}

	holder := NewStaticSocietyConfigHolder(cfg)

	v.OnConfigChange(func(e fsnotify.Event) {
		var updated SocietyConfig
		if err := v.UnmarshalKey("society", &updated); err != nil {
			log.Warn("reload failed", zap.Error(err))
			return
		}
		if err := validateSocietyConfig(updated); err != nil {
			log.Warn("invalid config ignored", zap.Error(err))
			return
		}
		holder.current.Store(updated)
		log.Info("reloaded", zap.String("file", e.Name))
	})
	v.WatchConfig()

	return holder, nil
}

func (h *SocietyConfigHolder) Get() SocietyConfig {
	return h.current.Load().(SocietyConfig)
}

func validateSocietyConfig(cfg SocietyConfig) error {
	if strings.TrimSpace(cfg.Name) == "" {
		return errors.New("society.name cannot be empty")
	}
	if len(cfg.Dues.Plans) == 0 {
		return errors.New("society.dues.plans cannot be empty")
	}
	for _, plan := range cfg.Dues.Plans {
		if strings.TrimSpace(plan.Name) == "" {
			return errors.New("society.dues.plans: name is required")
		}
		if !plan.Lifetime && plan.Years <= 0 {
			return fmt.Errorf("society.dues.plans[%s]: years must be positive", plan.Name)
		}
		if plan.Amount < 0 {
			return fmt.Errorf("society.dues.plans[%s]: amount cannot be negative", plan.Name)
		}
	}
	if cfg.Reminders.AfterDays < 0 || cfg.Reminders.Max < 0 {
		return errors.New("society.reminders cannot be negative")
	}
	return nil
}
