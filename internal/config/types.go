// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/nugraph/nugraph/pkg/framework"
)

const (
	// LogFormatText is charm's human readable format.
	LogFormatText LogFormat = "text"
	// LogFormatJSON emits one JSON object per line.
	LogFormatJSON LogFormat = "json"
	// LogFormatLogfmt emits logfmt key=value pairs.
	LogFormatLogfmt LogFormat = "logfmt"

	// DefaultSourceName names the public NuGet gallery.
	DefaultSourceName = "nuget.org"
	// DefaultSourceURL is the nuget.org v3 service index.
	DefaultSourceURL = "https://api.nuget.org/v3/index.json"
	// DefaultFramework is the target framework used when none is configured.
	DefaultFramework = "net8.0"
	// DefaultMaxVersions caps candidate versions per package.
	DefaultMaxVersions = 20
	// DefaultFetchConcurrency bounds concurrent package fetches.
	DefaultFetchConcurrency = 4
)

var (
	// ErrInvalidLogFormat is returned when a LogFormat value is not recognized.
	ErrInvalidLogFormat = errors.New("invalid log format")
	// ErrInvalidSource is the sentinel error wrapped by InvalidSourceError.
	ErrInvalidSource = errors.New("invalid package source")
	// ErrInvalidResolveConfig is the sentinel error wrapped by InvalidResolveConfigError.
	ErrInvalidResolveConfig = errors.New("invalid resolve config")
	// ErrInvalidHTTPConfig is the sentinel error wrapped by InvalidHTTPConfigError.
	ErrInvalidHTTPConfig = errors.New("invalid http config")
	// ErrInvalidConfig is the sentinel error wrapped by InvalidConfigError.
	ErrInvalidConfig = errors.New("invalid config")
)

type (
	// LogFormat selects the log formatter.
	LogFormat string

	// InvalidLogFormatError is returned when a LogFormat value is not recognized.
	// It wraps ErrInvalidLogFormat for errors.Is() compatibility.
	InvalidLogFormatError struct {
		Value LogFormat
	}

	// InvalidSourceError is returned when a SourceConfig has an empty name or
	// an unusable URL. It wraps ErrInvalidSource for errors.Is() compatibility.
	InvalidSourceError struct {
		Name   string
		URL    string
		Reason string
	}

	// InvalidResolveConfigError is returned when a ResolveConfig has invalid fields.
	// It wraps ErrInvalidResolveConfig for errors.Is() compatibility and collects
	// field-level validation errors.
	InvalidResolveConfigError struct {
		FieldErrors []error
	}

	// InvalidHTTPConfigError is returned when an HTTPConfig has invalid fields.
	// It wraps ErrInvalidHTTPConfig for errors.Is() compatibility and collects
	// field-level validation errors.
	InvalidHTTPConfigError struct {
		FieldErrors []error
	}

	// InvalidConfigError is returned when a Config has invalid fields.
	// It wraps ErrInvalidConfig for errors.Is() compatibility and collects
	// field-level validation errors from all sub-components.
	InvalidConfigError struct {
		FieldErrors []error
	}

	// Config holds the application configuration.
	Config struct {
		// Sources are the package feeds, consulted in order.
		Sources []SourceConfig `json:"sources" mapstructure:"sources"`
		Resolve ResolveConfig  `json:"resolve" mapstructure:"resolve"`
		HTTP    HTTPConfig     `json:"http" mapstructure:"http"`
		Neo4j   Neo4jConfig    `json:"neo4j" mapstructure:"neo4j"`
		UI      UIConfig       `json:"ui" mapstructure:"ui"`
	}

	// SourceConfig names one package feed: a NuGet v3 service index URL, a
	// file:// URL or a local directory.
	SourceConfig struct {
		Name string `json:"name" mapstructure:"name"`
		URL  string `json:"url" mapstructure:"url"`
	}

	// ResolveConfig holds the resolve command defaults.
	ResolveConfig struct {
		Framework         string `json:"framework" mapstructure:"framework"`
		IncludePrerelease bool   `json:"include_prerelease" mapstructure:"include_prerelease"`
		// MaxVersions caps candidates per package; values <= 0 mean DefaultMaxVersions.
		MaxVersions      int           `json:"max_versions" mapstructure:"max_versions"`
		FetchConcurrency int           `json:"fetch_concurrency" mapstructure:"fetch_concurrency"`
		SolverTimeout    time.Duration `json:"solver_timeout" mapstructure:"solver_timeout"`
		// GlobalTimeout bounds the whole run, fetching included. Zero disables it.
		GlobalTimeout          time.Duration `json:"global_timeout" mapstructure:"global_timeout"`
		ExcludeAutoReferenced  bool          `json:"exclude_auto_referenced" mapstructure:"exclude_auto_referenced"`
		ExcludeDevelopmentOnly bool          `json:"exclude_development_only" mapstructure:"exclude_development_only"`
	}

	// HTTPConfig configures feed access.
	HTTPConfig struct {
		Timeout    time.Duration `json:"timeout" mapstructure:"timeout"`
		MaxRetries int           `json:"max_retries" mapstructure:"max_retries"`
		UserAgent  string        `json:"user_agent" mapstructure:"user_agent"`
		// CacheDir holds the on-disk response cache; empty uses the user cache directory.
		CacheDir           string        `json:"cache_dir" mapstructure:"cache_dir"`
		CacheTTL           time.Duration `json:"cache_ttl" mapstructure:"cache_ttl"`
		DiskCache          bool          `json:"disk_cache" mapstructure:"disk_cache"`
		MemoryCacheEntries int           `json:"memory_cache_entries" mapstructure:"memory_cache_entries"`
	}

	// Neo4jConfig configures the optional graph store. It is used only when
	// URI, user and password are all set.
	Neo4jConfig struct {
		URI      string `json:"uri" mapstructure:"uri"`
		User     string `json:"user" mapstructure:"user"`
		Password string `json:"password" mapstructure:"password"`
		Database string `json:"database" mapstructure:"database"`
	}

	// UIConfig configures the user interface.
	UIConfig struct {
		Verbose   bool      `json:"verbose" mapstructure:"verbose"`
		Color     bool      `json:"color" mapstructure:"color"`
		LogFormat LogFormat `json:"log_format" mapstructure:"log_format"`
	}
)

// Error implements the error interface for InvalidLogFormatError.
func (e *InvalidLogFormatError) Error() string {
	return fmt.Sprintf("invalid log format %q (valid: text, json, logfmt)", e.Value)
}

// Unwrap returns ErrInvalidLogFormat for errors.Is() compatibility.
func (e *InvalidLogFormatError) Unwrap() error { return ErrInvalidLogFormat }

// String returns the string representation of the LogFormat.
func (f LogFormat) String() string { return string(f) }

// IsValid returns whether the LogFormat is one of the defined formats.
func (f LogFormat) IsValid() (bool, []error) {
	switch f {
	case LogFormatText, LogFormatJSON, LogFormatLogfmt:
		return true, nil
	default:
		return false, []error{&InvalidLogFormatError{Value: f}}
	}
}

// Error implements the error interface for InvalidSourceError.
func (e *InvalidSourceError) Error() string {
	return fmt.Sprintf("invalid package source %q (%s): %s", e.Name, e.URL, e.Reason)
}

// Unwrap returns ErrInvalidSource for errors.Is() compatibility.
func (e *InvalidSourceError) Unwrap() error { return ErrInvalidSource }

// IsValid returns whether the source has a name and a usable location.
// Remote feeds must use http or https; anything without a scheme is taken
// as a local directory.
func (s SourceConfig) IsValid() (bool, []error) {
	invalid := func(reason string) (bool, []error) {
		return false, []error{&InvalidSourceError{Name: s.Name, URL: s.URL, Reason: reason}}
	}
	if strings.TrimSpace(s.Name) == "" {
		return invalid("name must not be empty")
	}
	if strings.TrimSpace(s.URL) == "" {
		return invalid("url must not be empty")
	}
	u, err := url.Parse(s.URL)
	if err != nil {
		return invalid(err.Error())
	}
	switch u.Scheme {
	case "", "file":
		return true, nil
	case "http", "https":
		if u.Host == "" {
			return invalid("missing host")
		}
		return true, nil
	default:
		// A Windows drive letter parses as a one-letter scheme.
		if len(u.Scheme) == 1 {
			return true, nil
		}
		return invalid(fmt.Sprintf("unsupported scheme %q", u.Scheme))
	}
}

// IsValid returns whether the ResolveConfig has valid fields.
func (c ResolveConfig) IsValid() (bool, []error) {
	var errs []error
	if _, err := framework.Parse(c.Framework); err != nil {
		errs = append(errs, err)
	}
	if c.FetchConcurrency < 0 {
		errs = append(errs, fmt.Errorf("fetch_concurrency must not be negative, got %d", c.FetchConcurrency))
	}
	if c.SolverTimeout < 0 {
		errs = append(errs, fmt.Errorf("solver_timeout must not be negative, got %s", c.SolverTimeout))
	}
	if c.GlobalTimeout < 0 {
		errs = append(errs, fmt.Errorf("global_timeout must not be negative, got %s", c.GlobalTimeout))
	}
	if len(errs) > 0 {
		return false, []error{&InvalidResolveConfigError{FieldErrors: errs}}
	}
	return true, nil
}

// EffectiveMaxVersions returns MaxVersions, or DefaultMaxVersions when it is not positive.
func (c ResolveConfig) EffectiveMaxVersions() int {
	if c.MaxVersions <= 0 {
		return DefaultMaxVersions
	}
	return c.MaxVersions
}

// Error implements the error interface for InvalidResolveConfigError.
func (e *InvalidResolveConfigError) Error() string {
	return fmt.Sprintf("invalid resolve config: %s", joinErrors(e.FieldErrors))
}

// Unwrap returns ErrInvalidResolveConfig followed by the field errors.
func (e *InvalidResolveConfigError) Unwrap() []error {
	return append([]error{ErrInvalidResolveConfig}, e.FieldErrors...)
}

// IsValid returns whether the HTTPConfig has valid fields.
func (c HTTPConfig) IsValid() (bool, []error) {
	var errs []error
	if c.Timeout < 0 {
		errs = append(errs, fmt.Errorf("timeout must not be negative, got %s", c.Timeout))
	}
	if c.MaxRetries < 0 {
		errs = append(errs, fmt.Errorf("max_retries must not be negative, got %d", c.MaxRetries))
	}
	if c.CacheTTL < 0 {
		errs = append(errs, fmt.Errorf("cache_ttl must not be negative, got %s", c.CacheTTL))
	}
	if c.MemoryCacheEntries < 0 {
		errs = append(errs, fmt.Errorf("memory_cache_entries must not be negative, got %d", c.MemoryCacheEntries))
	}
	if c.CacheDir != "" && strings.TrimSpace(c.CacheDir) == "" {
		errs = append(errs, errors.New("cache_dir must not be whitespace-only"))
	}
	if len(errs) > 0 {
		return false, []error{&InvalidHTTPConfigError{FieldErrors: errs}}
	}
	return true, nil
}

// Error implements the error interface for InvalidHTTPConfigError.
func (e *InvalidHTTPConfigError) Error() string {
	return fmt.Sprintf("invalid http config: %s", joinErrors(e.FieldErrors))
}

// Unwrap returns ErrInvalidHTTPConfig for errors.Is() compatibility.
func (e *InvalidHTTPConfigError) Unwrap() error { return ErrInvalidHTTPConfig }

// Configured reports whether the graph store should be used.
func (c Neo4jConfig) Configured() bool {
	return strings.TrimSpace(c.URI) != "" && c.User != "" && c.Password != ""
}

// IsValid returns whether the Config has valid fields. Source names must be
// unique, case-insensitively.
func (c Config) IsValid() (bool, []error) {
	var errs []error
	seen := make(map[string]bool, len(c.Sources))
	for _, src := range c.Sources {
		if valid, fieldErrs := src.IsValid(); !valid {
			errs = append(errs, fieldErrs...)
			continue
		}
		key := strings.ToLower(src.Name)
		if seen[key] {
			errs = append(errs, &InvalidSourceError{Name: src.Name, URL: src.URL, Reason: "duplicate source name"})
		}
		seen[key] = true
	}
	if valid, fieldErrs := c.Resolve.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	if valid, fieldErrs := c.HTTP.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	if valid, fieldErrs := c.UI.LogFormat.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	if len(errs) > 0 {
		return false, []error{&InvalidConfigError{FieldErrors: errs}}
	}
	return true, nil
}

// Error implements the error interface for InvalidConfigError.
func (e *InvalidConfigError) Error() string {
	return fmt.Sprintf("invalid config: %s", joinErrors(e.FieldErrors))
}

// Unwrap returns ErrInvalidConfig followed by the field errors, so errors.Is
// matches both the umbrella sentinel and the component sentinels.
func (e *InvalidConfigError) Unwrap() []error {
	return append([]error{ErrInvalidConfig}, e.FieldErrors...)
}

func joinErrors(errs []error) string {
	msgs := make([]string, len(errs))
	for i, err := range errs {
		msgs[i] = err.Error()
	}
	return strings.Join(msgs, "; ")
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Sources: []SourceConfig{{Name: DefaultSourceName, URL: DefaultSourceURL}},
		Resolve: ResolveConfig{
			Framework:        DefaultFramework,
			MaxVersions:      DefaultMaxVersions,
			FetchConcurrency: DefaultFetchConcurrency,
			SolverTimeout:    30 * time.Second,
			GlobalTimeout:    2 * time.Minute,
		},
		HTTP: HTTPConfig{
			Timeout:            30 * time.Second,
			MaxRetries:         3,
			CacheTTL:           30 * time.Minute,
			MemoryCacheEntries: 1024,
		},
		UI: UIConfig{
			Color:     true,
			LogFormat: LogFormatText,
		},
	}
}
