package config

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"sync/atomic"
	"time"
	_ "time/tzdata"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

const (
	DefaultLockWait     = 10 * time.Second
	DefaultLockLease    = 30 * time.Second
	DefaultTimezone     = "Asia/Taipei"
	DefaultMaxDrawCount = 100
	DefaultNoPrizeName  = "銘謝惠顧"
)

// DrawConfig tunes the draw engine. It can be reloaded at runtime.
type DrawConfig struct {
	LockWait     time.Duration `mapstructure:"lock_wait"`
	LockLease    time.Duration `mapstructure:"lock_lease"`
	Timezone     string        `mapstructure:"timezone"` // fixed at startup
	MaxDrawCount int           `mapstructure:"max_draw_count"`
	NoPrizeName  string        `mapstructure:"no_prize_name"`

	location *time.Location
}

func DefaultDrawConfig() DrawConfig {
	return DrawConfig{
		LockWait:     DefaultLockWait,
		LockLease:    DefaultLockLease,
		Timezone:     DefaultTimezone,
		MaxDrawCount: DefaultMaxDrawCount,
		NoPrizeName:  DefaultNoPrizeName,
	}
}

// Location returns the reference zone used to bucket daily quotas.
func (c DrawConfig) Location() *time.Location {
	if c.location != nil {
		return c.location
	}
	loc, err := time.LoadLocation(strings.TrimSpace(c.Timezone))
	if err != nil {
		return time.UTC
	}
	return loc
}

type DrawConfigHolder struct {
	current atomic.Value // holds DrawConfig
}

// NewStaticDrawConfig wraps a fixed config, mostly for tests.
func NewStaticDrawConfig(cfg DrawConfig) (*DrawConfigHolder, error) {
	normalized, err := normalizeDrawConfig(cfg)
	if err != nil {
		return nil, err
	}
	holder := &DrawConfigHolder{}
	holder.current.Store(normalized)
	return holder, nil
}

func NewDrawConfigHolder(cfg Config) (*DrawConfigHolder, error) {
	v := viper.New()

	if cfg.DrawConfigPath != "" {
		v.SetConfigFile(cfg.DrawConfigPath)
	} else {
		v.SetConfigName("draw")
		v.SetConfigType("yml")
		v.AddConfigPath("/etc/lottery")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("LOTTERY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := cfg.Draw
	v.SetDefault("draw.lock_wait", defaults.LockWait)
	v.SetDefault("draw.lock_lease", defaults.LockLease)
	v.SetDefault("draw.timezone", defaults.Timezone)
	v.SetDefault("draw.max_draw_count", defaults.MaxDrawCount)
	v.SetDefault("draw.no_prize_name", defaults.NoPrizeName)

	fileLoaded := true
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
		fileLoaded = false
	}

	var drawCfg DrawConfig
	if err := v.UnmarshalKey("draw", &drawCfg); err != nil {
		return nil, err
	}
	holder, err := NewStaticDrawConfig(drawCfg)
	if err != nil {
		return nil, err
	}

	if fileLoaded {
		v.WatchConfig()
		v.OnConfigChange(func(e fsnotify.Event) {
			var updated DrawConfig
			if err := v.UnmarshalKey("draw", &updated); err != nil {
				log.Printf("[draw-config] reload failed: %v", err)
				return
			}
			normalized, err := normalizeDrawConfig(updated)
			if err != nil {
				log.Printf("[draw-config] invalid config ignored: %v", err)
				return
			}
			holder.current.Store(keepTimezone(holder.Get(), normalized))
			log.Printf("[draw-config] reloaded from %s", e.Name)
		})
	}

	return holder, nil
}

func (h *DrawConfigHolder) Get() DrawConfig {
	if h == nil {
		return DefaultDrawConfig()
	}
	cfg, ok := h.current.Load().(DrawConfig)
	if !ok {
		return DefaultDrawConfig()
	}
	return cfg
}

// keepTimezone carries the running zone into a reloaded config. Daily quota
// buckets are keyed by it, so it only changes on restart.
func keepTimezone(running, updated DrawConfig) DrawConfig {
	if updated.Timezone != running.Timezone {
		log.Printf("[draw-config] timezone change to %q ignored until restart", updated.Timezone)
	}
	updated.Timezone = running.Timezone
	updated.location = running.location
	return updated
}

func normalizeDrawConfig(cfg DrawConfig) (DrawConfig, error) {
	if cfg.LockWait <= 0 {
		return cfg, errors.New("draw.lock_wait must be positive")
	}
	if cfg.LockLease <= 0 {
		return cfg, errors.New("draw.lock_lease must be positive")
	}
	if cfg.MaxDrawCount <= 0 {
		return cfg, errors.New("draw.max_draw_count must be positive")
	}
	if strings.TrimSpace(cfg.NoPrizeName) == "" {
		cfg.NoPrizeName = DefaultNoPrizeName
	}
	tz := strings.TrimSpace(cfg.Timezone)
	if tz == "" {
		tz = DefaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return cfg, fmt.Errorf("draw.timezone %q: %w", tz, err)
	}
	cfg.Timezone = tz
	cfg.location = loc
	return cfg, nil
}
