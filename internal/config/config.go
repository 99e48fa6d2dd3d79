package config

import (
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/shopspring/decimal"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"yieldScope/internal/model"
)

// Config holds configuration values loaded from flags, env, or config file.
type Config struct {
	RPCURL             string
	Sender             string
	SimulateMethod     string
	SubmitMethod       string
	GetObjectMethod    string
	OwnedObjectsMethod string
	Slippage           decimal.Decimal
	Debounce           time.Duration
	MetricsTTL         time.Duration
	MetricsCacheSize   int
	ProbeMagnitudes    []uint64
	MaxRetries         int
	RetryBackoff       time.Duration
	RateLimit          float64
	RateBurst          int
	CrossCheck         bool
	Divergence         decimal.Decimal
	LogLevel           string
	PGDSN              string
	Diagnostics        string
	ProbeState         string
	Listen             string
	APIKey             string
	Pools              []PoolConfig
}

// PoolConfig is a pool descriptor plus the market data its metrics need.
type PoolConfig struct {
	model.PoolDescriptor `mapstructure:",squash"`
	Quote                model.MarketQuote `mapstructure:"quote"`
}

// Descriptors returns the configured pool descriptors.
func (c Config) Descriptors() []model.PoolDescriptor {
	out := make([]model.PoolDescriptor, len(c.Pools))
	for i, p := range c.Pools {
		out[i] = p.PoolDescriptor
	}
	return out
}

// Pool returns the configuration of pool id.
func (c Config) Pool(id string) (PoolConfig, bool) {
	for _, p := range c.Pools {
		if p.ID == id {
			return p, true
		}
	}
	return PoolConfig{}, false
}

// Load merges config file, environment variables, and flags into Config.
func Load(cfgFile string, flags *pflag.FlagSet) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("YIELDSCOPE")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("simulate-method", "ledger_simulateIntent")
	v.SetDefault("submit-method", "ledger_submitIntent")
	v.SetDefault("get-object-method", "ledger_getObject")
	v.SetDefault("owned-objects-method", "ledger_getOwnedObjects")
	v.SetDefault("slippage", "0.5")
	v.SetDefault("debounce", 500*time.Millisecond)
	v.SetDefault("metrics-ttl", 60*time.Second)
	v.SetDefault("metrics-cache-size", 256)
	v.SetDefault("probe-magnitudes", "1000000,10000,1000,100,10")
	v.SetDefault("max-retries", 5)
	v.SetDefault("retry-backoff", 500*time.Millisecond)
	v.SetDefault("rate-limit", 5.0)
	v.SetDefault("rate-burst", 5)
	v.SetDefault("cross-check", false)
	v.SetDefault("divergence", "0.01")
	v.SetDefault("log-level", "info")
	v.SetDefault("probe-state", "./data/probe_state.json")
	v.SetDefault("listen", ":8080")

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return Config{}, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return Config{}, fmt.Errorf("read config: %w", err)
			}
		}
	}

	slippage, err := getDecimal(v, "slippage")
	if err != nil {
		return Config{}, err
	}
	divergence, err := getDecimal(v, "divergence")
	if err != nil {
		return Config{}, err
	}
	magnitudes, err := getMagnitudes(v, "probe-magnitudes")
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		RPCURL:             v.GetString("rpc"),
		Sender:             v.GetString("sender"),
		SimulateMethod:     v.GetString("simulate-method"),
		SubmitMethod:       v.GetString("submit-method"),
		GetObjectMethod:    v.GetString("get-object-method"),
		OwnedObjectsMethod: v.GetString("owned-objects-method"),
		Slippage:           slippage,
		Debounce:           v.GetDuration("debounce"),
		MetricsTTL:         v.GetDuration("metrics-ttl"),
		MetricsCacheSize:   v.GetInt("metrics-cache-size"),
		ProbeMagnitudes:    magnitudes,
		MaxRetries:         v.GetInt("max-retries"),
		RetryBackoff:       v.GetDuration("retry-backoff"),
		RateLimit:          v.GetFloat64("rate-limit"),
		RateBurst:          v.GetInt("rate-burst"),
		CrossCheck:         v.GetBool("cross-check"),
		Divergence:         divergence,
		LogLevel:           v.GetString("log-level"),
		PGDSN:              v.GetString("pg-dsn"),
		Diagnostics:        v.GetString("diagnostics"),
		ProbeState:         v.GetString("probe-state"),
		Listen:             v.GetString("listen"),
		APIKey:             v.GetString("api-key"),
	}

	if err := v.UnmarshalKey("pools", &cfg.Pools, viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		decimalHook,
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))); err != nil {
		return Config{}, fmt.Errorf("decode pools: %w", err)
	}
	seen := make(map[string]struct{}, len(cfg.Pools))
	for _, p := range cfg.Pools {
		if err := p.Validate(); err != nil {
			return Config{}, err
		}
		if _, dup := seen[p.ID]; dup {
			return Config{}, fmt.Errorf("duplicate pool %s", p.ID)
		}
		seen[p.ID] = struct{}{}
	}

	return cfg, nil
}

var decimalType = reflect.TypeOf(decimal.Decimal{})

// decimalHook decodes numbers and numeric strings into decimal.Decimal.
func decimalHook(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
	if to != decimalType {
		return data, nil
	}
	switch typed := data.(type) {
	case string:
		return decimal.NewFromString(strings.TrimSpace(typed))
	case float64:
		return decimal.NewFromFloat(typed), nil
	case float32:
		return decimal.NewFromFloat32(typed), nil
	case int:
		return decimal.NewFromInt(int64(typed)), nil
	case int64:
		return decimal.NewFromInt(typed), nil
	case uint64:
		return decimal.NewFromString(fmt.Sprintf("%d", typed))
	default:
		return data, nil
	}
}

func getDecimal(v *viper.Viper, key string) (decimal.Decimal, error) {
	raw := strings.TrimSpace(v.GetString(key))
	if raw == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	return d, nil
}

// getMagnitudes reads a descending list of whole probe magnitudes.
func getMagnitudes(v *viper.Viper, key string) ([]uint64, error) {
	items := getStringSlice(v, key)
	out := make([]uint64, 0, len(items))
	for _, item := range items {
		d, err := decimal.NewFromString(item)
		if err != nil || !d.IsInteger() || !d.IsPositive() || !d.BigInt().IsUint64() {
			return nil, fmt.Errorf("invalid %s entry %q", key, item)
		}
		m := d.BigInt().Uint64()
		if len(out) > 0 && m >= out[len(out)-1] {
			return nil, fmt.Errorf("%s must be strictly descending", key)
		}
		out = append(out, m)
	}
	return out, nil
}

func getStringSlice(v *viper.Viper, key string) []string {
	if !v.IsSet(key) {
		return nil
	}

	val := v.Get(key)
	switch typed := val.(type) {
	case []string:
		return cleanStrings(flattenCSV(typed))
	case string:
		return splitAndClean(typed)
	case []interface{}:
		items := make([]string, 0, len(typed))
		for _, item := range typed {
			items = append(items, fmt.Sprintf("%v", item))
		}
		return cleanStrings(items)
	default:
		return nil
	}
}

func flattenCSV(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		out = append(out, strings.Split(item, ",")...)
	}
	return out
}

func splitAndClean(input string) []string {
	if input == "" {
		return nil
	}
	parts := strings.Split(input, ",")
	return cleanStrings(parts)
}

func cleanStrings(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		out = append(out, item)
	}
	return out
}
