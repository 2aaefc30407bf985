package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// CurrentVersion is the config schema version written by Save.
const CurrentVersion = 1

// EnvPrefix prefixes environment overrides: NAMELENS_ORACLE_MODEL sets oracle.model.
const EnvPrefix = "NAMELENS"

// Config represents the complete namelens configuration
type Config struct {
	Version int `json:"version" mapstructure:"version"`

	Translate  TranslateConfig  `json:"translate" mapstructure:"translate"`
	Dictionary DictionaryConfig `json:"dictionary" mapstructure:"dictionary"`
	Guard      GuardConfig      `json:"guard" mapstructure:"guard"`
	Oracle     OracleConfig     `json:"oracle" mapstructure:"oracle"`
	Learning   LearningConfig   `json:"learning" mapstructure:"learning"`
	Ledger     LedgerConfig     `json:"ledger" mapstructure:"ledger"`
	Logging    LoggingConfig    `json:"logging" mapstructure:"logging"`
	Watch      WatchConfig      `json:"watch" mapstructure:"watch"`
}

// TranslateConfig controls alias assembly
type TranslateConfig struct {
	Strategy       string `json:"strategy" mapstructure:"strategy"`
	NumeralMode    string `json:"numeralMode" mapstructure:"numeralMode"`
	Joiner         string `json:"joiner" mapstructure:"joiner"`
	ExtensionMode  string `json:"extensionMode" mapstructure:"extensionMode"`
	MaxAliasLength int    `json:"maxAliasLength" mapstructure:"maxAliasLength"`
	// MaxNameLength rejects longer inputs with the fallback result.
	MaxNameLength int `json:"maxNameLength" mapstructure:"maxNameLength"`
	CacheSize     int `json:"cacheSize" mapstructure:"cacheSize"`
	// AllowedMisses is the coverage check tolerance for natural output.
	AllowedMisses int `json:"allowedMisses" mapstructure:"allowedMisses"`
	BatchWorkers  int `json:"batchWorkers" mapstructure:"batchWorkers"`
}

// LayerConfig lists files for one dictionary layer
type LayerConfig struct {
	Kind  string   `json:"kind" mapstructure:"kind"`
	Name  string   `json:"name,omitempty" mapstructure:"name"`
	Paths []string `json:"paths" mapstructure:"paths"`
}

// DictionaryConfig contains dictionary layer settings
type DictionaryConfig struct {
	Builtin bool          `json:"builtin" mapstructure:"builtin"`
	Layers  []LayerConfig `json:"layers" mapstructure:"layers"`
	// Manifest is an optional TOML file with additional layers.
	Manifest            string            `json:"manifest" mapstructure:"manifest"`
	LiteralExtensions   map[string]string `json:"literalExtensions" mapstructure:"literalExtensions"`
	NaturalExtensions   map[string]string `json:"naturalExtensions" mapstructure:"naturalExtensions"`
	AcronymSegmentation bool              `json:"acronymSegmentation" mapstructure:"acronymSegmentation"`
	// Categories is an optional JSON file extending the natural-strategy word categories.
	Categories string `json:"categories,omitempty" mapstructure:"categories"`
}

// RuleConfig is a custom guard drop rule
type RuleConfig struct {
	Pattern string `json:"pattern" mapstructure:"pattern"`
	Reason  string `json:"reason" mapstructure:"reason"`
}

// GuardConfig contains cost guard vocabularies. Empty lists use built-in defaults.
type GuardConfig struct {
	Stopwords          []string     `json:"stopwords" mapstructure:"stopwords"`
	KeepEnglish        []string     `json:"keepEnglish" mapstructure:"keepEnglish"`
	AcronymWhitelist   []string     `json:"acronymWhitelist" mapstructure:"acronymWhitelist"`
	UserWhitelist      []string     `json:"userWhitelist" mapstructure:"userWhitelist"`
	CustomRules        []RuleConfig `json:"customRules" mapstructure:"customRules"`
	IntelligentNumeral bool         `json:"intelligentNumeral" mapstructure:"intelligentNumeral"`
}

// OracleConfig contains translation oracle settings
type OracleConfig struct {
	Enabled        bool    `json:"enabled" mapstructure:"enabled"`
	Provider       string  `json:"provider" mapstructure:"provider"`
	BaseURL        string  `json:"baseUrl" mapstructure:"baseUrl"`
	Model          string  `json:"model" mapstructure:"model"`
	APIKeyEnv      string  `json:"apiKeyEnv" mapstructure:"apiKeyEnv"`
	TargetLanguage string  `json:"targetLanguage" mapstructure:"targetLanguage"`
	TimeoutMs      int     `json:"timeoutMs" mapstructure:"timeoutMs"`
	MaxConcurrent  int     `json:"maxConcurrent" mapstructure:"maxConcurrent"`
	MinConfidence  float64 `json:"minConfidence" mapstructure:"minConfidence"`
	RetryMissing   bool    `json:"retryMissing" mapstructure:"retryMissing"`
	// Static answers for the "static" provider.
	Static map[string]string `json:"static,omitempty" mapstructure:"static"`
}

// LearningConfig controls oracle answer write-back
type LearningConfig struct {
	Enabled   bool   `json:"enabled" mapstructure:"enabled"`
	KeyPolicy string `json:"keyPolicy" mapstructure:"keyPolicy"`
	// Path of the learned file; empty means .namelens/learned.json.
	Path       string `json:"path,omitempty" mapstructure:"path"`
	ForceReask bool   `json:"forceReask" mapstructure:"forceReask"`
}

// LedgerConfig controls the SQLite usage ledger
type LedgerConfig struct {
	Enabled       bool `json:"enabled" mapstructure:"enabled"`
	RetentionDays int  `json:"retentionDays" mapstructure:"retentionDays"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Format     string `json:"format" mapstructure:"format"`
	Level      string `json:"level" mapstructure:"level"`
	MaxSize    string `json:"maxSize" mapstructure:"maxSize"`
	MaxBackups int    `json:"maxBackups" mapstructure:"maxBackups"`
	Translate  string `json:"translate,omitempty" mapstructure:"translate"`
	Oracle     string `json:"oracle,omitempty" mapstructure:"oracle"`
}

// WatchConfig controls dictionary hot reload
type WatchConfig struct {
	DebounceMs int `json:"debounceMs" mapstructure:"debounceMs"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Version: CurrentVersion,
		Translate: TranslateConfig{
			Strategy:       "literal",
			NumeralMode:    "keep",
			ExtensionMode:  "keep",
			MaxAliasLength: 80,
			MaxNameLength:  120,
			CacheSize:      4096,
			BatchWorkers:   8,
		},
		Dictionary: DictionaryConfig{
			Builtin: true,
			Layers: []LayerConfig{
				{Kind: "global-learned", Paths: []string{"~/.namelens/learned.json"}},
				{Kind: "project-learned", Paths: []string{".namelens/learned.json"}},
				{Kind: "project-fixed", Paths: []string{".namelens/dictionaries/**/*.{json,toml,yaml,yml}"}},
			},
			Manifest:          ".namelens/layers.toml",
			LiteralExtensions: map[string]string{},
			NaturalExtensions: map[string]string{
				"js":   "脚本",
				"cjs":  "脚本",
				"mjs":  "脚本",
				"ts":   "脚本",
				"py":   "脚本",
				"sh":   "脚本",
				"vue":  "组件",
				"jsx":  "组件",
				"tsx":  "组件",
				"css":  "样式",
				"scss": "样式",
				"json": "配置",
				"yaml": "配置",
				"yml":  "配置",
				"toml": "配置",
				"md":   "文档",
				"txt":  "文本",
			},
		},
		Guard: GuardConfig{
			IntelligentNumeral: true,
		},
		Oracle: OracleConfig{
			Enabled:        false,
			Provider:       "openai",
			Model:          "gpt-4o-mini",
			APIKeyEnv:      "OPENAI_API_KEY",
			TargetLanguage: "Simplified Chinese",
			TimeoutMs:      15000,
			MaxConcurrent:  3,
			MinConfidence:  0.5,
		},
		Learning: LearningConfig{
			Enabled:   true,
			KeyPolicy: "strict",
		},
		Ledger: LedgerConfig{
			Enabled:       true,
			RetentionDays: 90,
		},
		Logging: LoggingConfig{
			Format:     "human",
			Level:      "info",
			MaxSize:    "10MB",
			MaxBackups: 3,
		},
		Watch: WatchConfig{
			DebounceMs: 300,
		},
	}
}

// newViper returns a viper instance seeded with the defaults and bound to
// NAMELENS_* environment variables.
func newViper() (*viper.Viper, error) {
	v := viper.New()
	v.SetConfigType("json")

	defaults, err := toMap(DefaultConfig())
	if err != nil {
		return nil, err
	}
	if err := v.MergeConfigMap(defaults); err != nil {
		return nil, err
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v, nil
}

// LoadConfig loads configuration from <root>/.namelens/config.json layered
// over the defaults, then applies environment overrides.
func LoadConfig(root string) (*Config, error) {
	v, err := newViper()
	if err != nil {
		return nil, err
	}

	path := filepath.Join(root, ".namelens", "config.json")
	if data, err := os.ReadFile(path); err == nil {
		if err := v.MergeConfig(strings.NewReader(string(data))); err != nil {
			return nil, &ConfigError{Field: "file", Message: fmt.Sprintf("%s: %v", path, err)}
		}
	} else if !os.IsNotExist(err) {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// EnvKeys lists every environment variable that can override a setting.
func EnvKeys() []string {
	v, err := newViper()
	if err != nil {
		return nil
	}
	keys := v.AllKeys()
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, EnvPrefix+"_"+strings.ToUpper(strings.ReplaceAll(k, ".", "_")))
	}
	return out
}

// Save writes the configuration to <root>/.namelens/config.json
func (c *Config) Save(root string) error {
	dir := filepath.Join(root, ".namelens")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, "config.json"), data, 0644)
}

var (
	validStrategies     = []string{"literal", "natural"}
	validNumeralModes   = []string{"keep", "localized", "roman"}
	validExtensionModes = []string{"keep", "map", "drop"}
	validProviders      = []string{"openai", "static", "none"}
	validKeyPolicies    = []string{"strict", "lenient"}
	validLayerKinds     = []string{"builtin", "global-learned", "project-learned", "project-fixed"}
	validLogFormats     = []string{"human", "json"}
)

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Version != CurrentVersion {
		return &ConfigError{Field: "version", Message: "unsupported config version"}
	}

	checks := []struct {
		field string
		value string
		valid []string
	}{
		{"translate.strategy", c.Translate.Strategy, validStrategies},
		{"translate.numeralMode", c.Translate.NumeralMode, validNumeralModes},
		{"translate.extensionMode", c.Translate.ExtensionMode, validExtensionModes},
		{"oracle.provider", c.Oracle.Provider, validProviders},
		{"learning.keyPolicy", c.Learning.KeyPolicy, validKeyPolicies},
		{"logging.format", c.Logging.Format, validLogFormats},
	}
	for _, chk := range checks {
		if !oneOf(chk.value, chk.valid) {
			return &ConfigError{Field: chk.field, Message: fmt.Sprintf("%q is not one of %s", chk.value, strings.Join(chk.valid, ", "))}
		}
	}

	for i, l := range c.Dictionary.Layers {
		if !oneOf(l.Kind, validLayerKinds) {
			return &ConfigError{Field: fmt.Sprintf("dictionary.layers[%d].kind", i), Message: fmt.Sprintf("unknown layer kind %q", l.Kind)}
		}
		if len(l.Paths) == 0 {
			return &ConfigError{Field: fmt.Sprintf("dictionary.layers[%d].paths", i), Message: "at least one path is required"}
		}
	}

	switch {
	case c.Translate.MaxAliasLength <= 0:
		return &ConfigError{Field: "translate.maxAliasLength", Message: "must be positive"}
	case c.Translate.MaxNameLength <= 0:
		return &ConfigError{Field: "translate.maxNameLength", Message: "must be positive"}
	case c.Translate.CacheSize < 0:
		return &ConfigError{Field: "translate.cacheSize", Message: "must not be negative"}
	case c.Translate.AllowedMisses < 0:
		return &ConfigError{Field: "translate.allowedMisses", Message: "must not be negative"}
	case c.Translate.BatchWorkers <= 0:
		return &ConfigError{Field: "translate.batchWorkers", Message: "must be positive"}
	case c.Oracle.TimeoutMs <= 0:
		return &ConfigError{Field: "oracle.timeoutMs", Message: "must be positive"}
	case c.Oracle.MaxConcurrent < 1 || c.Oracle.MaxConcurrent > 64:
		return &ConfigError{Field: "oracle.maxConcurrent", Message: "must be between 1 and 64"}
	case c.Oracle.MinConfidence < 0 || c.Oracle.MinConfidence > 1:
		return &ConfigError{Field: "oracle.minConfidence", Message: "must be between 0 and 1"}
	case c.Watch.DebounceMs < 0:
		return &ConfigError{Field: "watch.debounceMs", Message: "must not be negative"}
	}

	for i, r := range c.Guard.CustomRules {
		if strings.TrimSpace(r.Pattern) == "" {
			return &ConfigError{Field: fmt.Sprintf("guard.customRules[%d].pattern", i), Message: "pattern is empty"}
		}
	}
	return nil
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return "config error in field '" + e.Field + "': " + e.Message
}

func oneOf(v string, valid []string) bool {
	for _, s := range valid {
		if v == s {
			return true
		}
	}
	return false
}

func toMap(c *Config) (map[string]interface{}, error) {
	data, err := json.Marshal(c)
	if err != nil {
		return nil, err
	}
	var m map[string]interface{}
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return m, nil
}
