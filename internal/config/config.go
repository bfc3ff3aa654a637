package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. LICMATCH_RANK.
const EnvPrefix = "LICMATCH"

// Artifact file names inside the artifacts directory.
const (
	VocabularyFile = "corpus.dict"
	MatrixFile     = "corpus.mm"
	ModelFile      = "model.lsi"
	IndexFile      = "index.sim"
)

// Config holds all application configuration.
type Config struct {
	LicensesDir    string `mapstructure:"licenses_dir"`
	ArtifactsDir   string `mapstructure:"artifacts_dir"`
	RulesSuffix    string `mapstructure:"rules_suffix"`
	StopwordsFile  string `mapstructure:"stopwords_file"`
	MinTokenLength int    `mapstructure:"min_token_length"`

	// Rank is the latent dimension. 0 picks min(50, documents, terms) at build time.
	Rank    int `mapstructure:"rank"`
	Top     int `mapstructure:"top"`
	Workers int `mapstructure:"workers"`
}

// Artifacts are the paths of the four persisted stores.
type Artifacts struct {
	Vocabulary string `json:"vocabulary"`
	Matrix     string `json:"matrix"`
	Model      string `json:"model"`
	Index      string `json:"index"`
}

// Artifacts resolves the store paths under ArtifactsDir.
func (c *Config) Artifacts() Artifacts {
	return Artifacts{
		Vocabulary: filepath.Join(c.ArtifactsDir, VocabularyFile),
		Matrix:     filepath.Join(c.ArtifactsDir, MatrixFile),
		Model:      filepath.Join(c.ArtifactsDir, ModelFile),
		Index:      filepath.Join(c.ArtifactsDir, IndexFile),
	}
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	switch {
	case c.LicensesDir == "":
		return fmt.Errorf("licenses_dir must not be empty")
	case c.RulesSuffix == "":
		return fmt.Errorf("rules_suffix must not be empty")
	case c.MinTokenLength < 1:
		return fmt.Errorf("min_token_length %d must be at least 1", c.MinTokenLength)
	case c.Rank < 0:
		return fmt.Errorf("rank %d is negative", c.Rank)
	case c.Top < 1:
		return fmt.Errorf("top %d must be at least 1", c.Top)
	case c.Workers < 1:
		return fmt.Errorf("workers %d must be at least 1", c.Workers)
	}
	return nil
}

// New returns a viper instance with defaults and environment overrides set.
// Callers may bind command-line flags to it before calling Load.
func New() *viper.Viper {
	v := viper.New()
	v.SetDefault("licenses_dir", "Licenses")
	v.SetDefault("artifacts_dir", ".")
	v.SetDefault("rules_suffix", "-rules")
	v.SetDefault("stopwords_file", "")
	v.SetDefault("min_token_length", 3)
	v.SetDefault("rank", 0)
	v.SetDefault("top", 5)
	v.SetDefault("workers", 4)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads the optional config file at path into v and decodes the result.
func Load(v *viper.Viper, path string) (*Config, error) {
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}
