package internal

import (
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"

	"github.com/starford/curator/internal/linkgraph"
	"github.com/starford/curator/internal/quality"
	"github.com/starford/curator/internal/scheduler"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Config represents the application configuration.
type Config struct {
	App       ApplicationConfig `yaml:"app"`
	Vault     VaultConfig       `yaml:"vault"`
	SQLite    SQLiteConfig      `yaml:"sqlite"`
	Auth      AuthConfig        `yaml:"auth"`
	Analysis  AnalysisConfig    `yaml:"analysis"`
	Related   RelatedConfig     `yaml:"related"`
	AI        AIConfig          `yaml:"ai"`
	Changes   ChangesConfig     `yaml:"changes"`
	Scheduler SchedulerConfig   `yaml:"scheduler"`
	RateLimit RateLimitConfig   `yaml:"ratelimit"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	for _, v := range []validation.Validatable{
		&c.App, &c.Vault, &c.SQLite, &c.Auth, &c.Analysis,
		&c.Related, &c.AI, &c.Changes, &c.Scheduler, &c.RateLimit,
	} {
		if err := v.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// QualityRules returns the quality checker rules for this configuration.
func (c *Config) QualityRules() quality.Rules {
	return quality.Rules{
		MetaPrefixes:      c.Vault.MetaPrefixes,
		RequiredSections:  c.Analysis.RequiredSections,
		CoreSection:       c.Analysis.CoreSection,
		VagueTerms:        c.Analysis.VagueTerms,
		ExampleVagueTerms: c.Analysis.ExampleVagueTerms,
		ConceptKeywords:   c.Analysis.ConceptKeywords,
	}
}

// GraphOptions returns the link graph options for this configuration.
func (c *Config) GraphOptions() linkgraph.Options {
	return linkgraph.Options{
		IgnoreFolders: c.Vault.IgnoreFolders,
		ArchiveFolder: c.Vault.ArchiveFolder,
		Merged:        c.Analysis.Merged,
	}
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	HTTP     HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// VaultConfig describes the Markdown vault directory.
type VaultConfig struct {
	Path          string   `yaml:"path"`
	IgnoreFolders []string `yaml:"ignore_folders"`
	ArchiveFolder string   `yaml:"archive_folder"`
	// MetaPrefixes mark notes (by filename prefix) that skip most quality checks.
	MetaPrefixes []string `yaml:"meta_prefixes"`
}

// Validate validates the vault configuration.
func (c *VaultConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// SQLiteConfig holds SQLite database configuration.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the SQLite configuration.
func (c *SQLiteConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// AuthConfig holds authentication configuration.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no authentication required, suitable for local dev.
//   - "token": Bearer token authentication; Token must be non-empty.
type AuthConfig struct {
	Mode  string `yaml:"mode"`
	Token string `yaml:"token"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	// Normalise empty mode to "disabled" for backward compatibility.
	if c.Mode == "" {
		c.Mode = AuthModeDisabled
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(AuthModeDisabled, AuthModeToken)),
	); err != nil {
		return err
	}
	if c.Mode == AuthModeToken && c.Token == "" {
		return fmt.Errorf("auth: mode is %q but token is empty", AuthModeToken)
	}
	return nil
}

// AuthEnabled returns true when authentication is active.
func (c *AuthConfig) AuthEnabled() bool {
	return c.Mode == AuthModeToken
}

// AnalysisConfig holds the quality and improvement-run settings.
type AnalysisConfig struct {
	RequiredSections  []string          `yaml:"required_sections"`
	CoreSection       string            `yaml:"core_section"`
	VagueTerms        []string          `yaml:"vague_terms"`
	ExampleVagueTerms []string          `yaml:"example_vague_terms"`
	ConceptKeywords   []string          `yaml:"concept_keywords"`
	Merged            map[string]string `yaml:"merged"`
	InvariantsFile    string            `yaml:"invariants_file"`
	ActivityLogFile   string            `yaml:"activity_log_file"`
}

// Validate validates the analysis configuration.
func (c *AnalysisConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.InvariantsFile, validation.Required),
		validation.Field(&c.ActivityLogFile, validation.Required),
	)
}

// RelatedConfig controls related-note suggestions.
type RelatedConfig struct {
	Threshold float64 `yaml:"threshold"`
	Max       int     `yaml:"max"`
	UseAI     bool    `yaml:"use_ai"`
}

// Validate validates the related configuration.
func (c *RelatedConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Threshold, validation.Min(0.0), validation.Max(1.0)),
		validation.Field(&c.Max, validation.Min(0)),
	)
}

// AIConfig configures the OpenAI-compatible generator. An empty APIKey
// disables AI features.
type AIConfig struct {
	BaseURL     string        `yaml:"base_url"`
	APIKey      string        `yaml:"api_key"`
	Model       string        `yaml:"model"`
	MaxTokens   int           `yaml:"max_tokens"`
	Temperature float64       `yaml:"temperature"`
	Timeout     time.Duration `yaml:"timeout"`
}

// Validate validates the AI configuration.
func (c *AIConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.BaseURL, is.URL),
		validation.Field(&c.MaxTokens, validation.Min(0)),
		validation.Field(&c.Temperature, validation.Min(0.0), validation.Max(2.0)),
		validation.Field(&c.Timeout, validation.Min(time.Duration(0))),
	)
}

// ChangesConfig sizes the in-memory change history.
type ChangesConfig struct {
	Capacity  int           `yaml:"capacity"`
	Retention time.Duration `yaml:"retention"`
}

// Validate validates the changes configuration.
func (c *ChangesConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Capacity, validation.Min(0)),
		validation.Field(&c.Retention, validation.Min(time.Duration(0))),
	)
}

// SchedulerConfig controls the daily improvement run.
type SchedulerConfig struct {
	Enabled bool   `yaml:"enabled"`
	Time    string `yaml:"time"`
}

// Validate validates the scheduler configuration.
func (c *SchedulerConfig) Validate() error {
	if !c.Enabled {
		return nil
	}
	_, _, err := scheduler.ParseTime(c.Time)
	return err
}

// RateLimitConfig limits API requests per client IP. A zero RequestLimit
// disables limiting.
type RateLimitConfig struct {
	RequestLimit int           `yaml:"request_limit"`
	WindowSize   time.Duration `yaml:"window_size"`
}

// Validate validates the rate limit configuration.
func (c *RateLimitConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.RequestLimit, validation.Min(0)),
		validation.Field(&c.WindowSize, validation.When(c.RequestLimit > 0, validation.Required)),
	)
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
		Vault: VaultConfig{
			Path:          "./vault",
			IgnoreFolders: []string{"templates", ".obsidian"},
			ArchiveFolder: "archive",
			MetaPrefixes:  []string{"0_", "_"},
		},
		SQLite: SQLiteConfig{
			Path: "./curator.db",
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
		Analysis: AnalysisConfig{
			RequiredSections: []string{"Summary"},
			CoreSection:      "Details",
			VagueTerms:       []string{"etc", "and so on", "various", "stuff", "things"},
			ConceptKeywords:  []string{"theorem", "definition", "concept"},
			InvariantsFile:   "0_Invariants.md",
			ActivityLogFile:  "0_Activity_Log.md",
		},
		Related: RelatedConfig{
			Threshold: 0.3,
			Max:       5,
		},
		AI: AIConfig{
			Model:       "gpt-4o-mini",
			MaxTokens:   1024,
			Temperature: 0.2,
			Timeout:     60 * time.Second,
		},
		Changes: ChangesConfig{
			Capacity:  1000,
			Retention: 24 * time.Hour,
		},
		Scheduler: SchedulerConfig{
			Enabled: true,
			Time:    "09:00",
		},
		RateLimit: RateLimitConfig{
			RequestLimit: 120,
			WindowSize:   time.Minute,
		},
	}
}
