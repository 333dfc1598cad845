package config

import (
	"fmt"
	"net/http"
	"path/filepath"
	"time"

	"github.com/pkg/errors"

	"github.com/tendermint/light-verifier/libs/log"
	tmmath "github.com/tendermint/light-verifier/libs/math"
	"github.com/tendermint/light-verifier/light"
)

const (
	// LogFormatPlain is a format for colored text
	LogFormatPlain = log.LogFormatPlain
	// LogFormatJSON is a format for json output
	LogFormatJSON = log.LogFormatJSON
)

// NOTE: Most of the structs & relevant comments + the
// default configuration options were used to manually
// generate the config.toml. Please reflect any changes
// made here in the defaultConfigTemplate constant in
// config/toml.go
// NOTE: libs/cli must know to look in the config dir!
var (
	DefaultLightVerifierDir = ".light-verifier"
	defaultConfigDir        = "config"

	defaultConfigFileName = "config.toml"
	defaultConfigFilePath = filepath.Join(defaultConfigDir, defaultConfigFileName)
)

// Config defines the top level configuration for the light verifier.
type Config struct {
	// Top level options use an anonymous struct
	BaseConfig `mapstructure:",squash"`

	// Options for services
	Verifier        *VerifierConfig        `mapstructure:"verifier" toml:"verifier"`
	RPC             *RPCConfig             `mapstructure:"rpc" toml:"rpc"`
	Instrumentation *InstrumentationConfig `mapstructure:"instrumentation" toml:"instrumentation"`
}

// DefaultConfig returns a default configuration.
func DefaultConfig() *Config {
	return &Config{
		BaseConfig:      DefaultBaseConfig(),
		Verifier:        DefaultVerifierConfig(),
		RPC:             DefaultRPCConfig(),
		Instrumentation: DefaultInstrumentationConfig(),
	}
}

// TestConfig returns a configuration that can be used for testing
func TestConfig() *Config {
	return &Config{
		BaseConfig:      TestBaseConfig(),
		Verifier:        TestVerifierConfig(),
		RPC:             TestRPCConfig(),
		Instrumentation: TestInstrumentationConfig(),
	}
}

// SetRoot sets the RootDir for all Config structs
func (cfg *Config) SetRoot(root string) *Config {
	cfg.BaseConfig.RootDir = root
	return cfg
}

// ValidateBasic performs basic validation (checking param bounds, etc.) and
// returns an error if any check fails.
func (cfg *Config) ValidateBasic() error {
	if err := cfg.BaseConfig.ValidateBasic(); err != nil {
		return err
	}
	if err := cfg.Verifier.ValidateBasic(); err != nil {
		return errors.Wrap(err, "error in [verifier] section")
	}
	if err := cfg.RPC.ValidateBasic(); err != nil {
		return errors.Wrap(err, "error in [rpc] section")
	}
	return errors.Wrap(
		cfg.Instrumentation.ValidateBasic(),
		"error in [instrumentation] section",
	)
}

//-----------------------------------------------------------------------------
// BaseConfig

// BaseConfig defines the base configuration.
type BaseConfig struct {
	// The root directory for all data.
	// This should be set in viper so it can unmarshal into this struct
	RootDir string `mapstructure:"home" toml:"-"`

	// Output level for logging
	LogLevel string `mapstructure:"log-level" toml:"log-level"`

	// Output format: 'plain' (colored text) or 'json'
	LogFormat string `mapstructure:"log-format" toml:"log-format"`
}

// DefaultBaseConfig returns a default base configuration.
func DefaultBaseConfig() BaseConfig {
	return BaseConfig{
		LogLevel:  log.LogLevelInfo,
		LogFormat: LogFormatPlain,
	}
}

// TestBaseConfig returns a base configuration for testing.
func TestBaseConfig() BaseConfig {
	cfg := DefaultBaseConfig()
	cfg.LogLevel = log.LogLevelDebug
	return cfg
}

// ConfigFile returns the full path to the config.toml file.
func (cfg BaseConfig) ConfigFile() string {
	return rootify(defaultConfigFilePath, cfg.RootDir)
}

// ValidateBasic performs basic validation (checking param bounds, etc.) and
// returns an error if any check fails.
func (cfg BaseConfig) ValidateBasic() error {
	switch cfg.LogFormat {
	case LogFormatPlain, LogFormatJSON:
	default:
		return errors.New("unknown log-format (must be 'plain' or 'json')")
	}
	switch cfg.LogLevel {
	case log.LogLevelDebug, log.LogLevelInfo, log.LogLevelError:
	default:
		return fmt.Errorf("unknown log-level %q (must be 'debug', 'info' or 'error')", cfg.LogLevel)
	}
	return nil
}

//-----------------------------------------------------------------------------
// VerifierConfig

// VerifierConfig defines the parameters of header verification.
type VerifierConfig struct {
	// Share of the trusted validator set that must have signed a
	// non-adjacent header, as "numerator/denominator". Must be within
	// [1/3, 1].
	TrustLevel string `mapstructure:"trust-level" toml:"trust-level"`

	// How long a trusted header can be used to verify new headers. Should be
	// significantly less than the unbonding period.
	TrustingPeriod time.Duration `mapstructure:"trusting-period" toml:"-"`

	// How far the time of a new header may be ahead of the local clock.
	MaxClockDrift time.Duration `mapstructure:"max-clock-drift" toml:"-"`

	// Number of signatures verified in parallel when batch verification is
	// unavailable. 0 means one per CPU.
	SignatureConcurrency int `mapstructure:"signature-concurrency" toml:"signature-concurrency"`
}

// DefaultVerifierConfig returns the default verification parameters.
func DefaultVerifierConfig() *VerifierConfig {
	return &VerifierConfig{
		TrustLevel:           light.DefaultTrustLevel.String(),
		TrustingPeriod:       light.DefaultTrustingPeriod,
		MaxClockDrift:        light.DefaultMaxClockDrift,
		SignatureConcurrency: 0,
	}
}

// TestVerifierConfig returns verification parameters for testing.
func TestVerifierConfig() *VerifierConfig {
	cfg := DefaultVerifierConfig()
	cfg.SignatureConcurrency = 2
	return cfg
}

// Options returns the verification options described by cfg.
func (cfg *VerifierConfig) Options() (light.Options, error) {
	trustLevel, err := tmmath.ParseFraction(cfg.TrustLevel)
	if err != nil {
		return light.Options{}, fmt.Errorf("trust-level: %w", err)
	}
	opts := light.Options{
		TrustThreshold: trustLevel,
		TrustingPeriod: cfg.TrustingPeriod,
		MaxClockDrift:  cfg.MaxClockDrift,
	}
	if err := opts.ValidateBasic(); err != nil {
		return light.Options{}, err
	}
	return opts, nil
}

// ValidateBasic performs basic validation (checking param bounds, etc.) and
// returns an error if any check fails.
func (cfg *VerifierConfig) ValidateBasic() error {
	if _, err := cfg.Options(); err != nil {
		return err
	}
	if cfg.SignatureConcurrency < 0 {
		return errors.New("signature-concurrency can't be negative")
	}
	return nil
}

//-----------------------------------------------------------------------------
// RPCConfig

// RPCConfig defines the configuration options for the HTTP server.
type RPCConfig struct {
	// TCP or UNIX socket address for the server to listen on
	ListenAddress string `mapstructure:"laddr" toml:"laddr"`

	// A list of origins a cross-domain request can be executed from.
	// If the special '*' value is present in the list, all origins will be allowed.
	// An origin may contain a wildcard (*) to replace 0 or more characters (i.e.: http://*.domain.com).
	// Only one wildcard can be used per origin.
	CORSAllowedOrigins []string `mapstructure:"cors-allowed-origins" toml:"cors-allowed-origins"`

	// A list of methods the client is allowed to use with cross-domain requests.
	CORSAllowedMethods []string `mapstructure:"cors-allowed-methods" toml:"cors-allowed-methods"`

	// A list of non simple headers the client is allowed to use with cross-domain requests.
	CORSAllowedHeaders []string `mapstructure:"cors-allowed-headers" toml:"cors-allowed-headers"`

	// Maximum number of simultaneous connections.
	// If you want to accept a larger number than the default, make sure
	// you increase your OS limits.
	// 0 - unlimited.
	MaxOpenConnections int `mapstructure:"max-open-connections" toml:"max-open-connections"`

	// Maximum size of request body, in bytes
	MaxBodyBytes int64 `mapstructure:"max-body-bytes" toml:"max-body-bytes"`

	// Maximum size of request header, in bytes
	MaxHeaderBytes int `mapstructure:"max-header-bytes" toml:"max-header-bytes"`

	// How long a single verification request may take.
	RequestTimeout time.Duration `mapstructure:"request-timeout" toml:"-"`
}

// DefaultRPCConfig returns a default configuration for the HTTP server.
func DefaultRPCConfig() *RPCConfig {
	return &RPCConfig{
		ListenAddress:      "tcp://127.0.0.1:26680",
		CORSAllowedOrigins: []string{},
		CORSAllowedMethods: []string{http.MethodHead, http.MethodGet, http.MethodPost},
		CORSAllowedHeaders: []string{"Origin", "Accept", "Content-Type", "X-Requested-With", "X-Server-Time"},
		MaxOpenConnections: 900,
		MaxBodyBytes:       int64(1000000), // 1MB
		MaxHeaderBytes:     1 << 20,        // same as the net/http default
		RequestTimeout:     10 * time.Second,
	}
}

// TestRPCConfig returns a configuration for testing the HTTP server.
func TestRPCConfig() *RPCConfig {
	cfg := DefaultRPCConfig()
	cfg.ListenAddress = "tcp://127.0.0.1:0"
	cfg.MaxOpenConnections = 10
	return cfg
}

// ValidateBasic performs basic validation (checking param bounds, etc.) and
// returns an error if any check fails.
func (cfg *RPCConfig) ValidateBasic() error {
	if cfg.ListenAddress == "" {
		return errors.New("laddr can't be empty")
	}
	if cfg.MaxOpenConnections < 0 {
		return errors.New("max-open-connections can't be negative")
	}
	if cfg.MaxBodyBytes < 0 {
		return errors.New("max-body-bytes can't be negative")
	}
	if cfg.MaxHeaderBytes < 0 {
		return errors.New("max-header-bytes can't be negative")
	}
	if cfg.RequestTimeout < 0 {
		return errors.New("request-timeout can't be negative")
	}
	return nil
}

// IsCorsEnabled returns true if cross-origin resource sharing is enabled.
func (cfg *RPCConfig) IsCorsEnabled() bool {
	return len(cfg.CORSAllowedOrigins) != 0
}

//-----------------------------------------------------------------------------
// InstrumentationConfig

// InstrumentationConfig defines the configuration for metrics reporting.
type InstrumentationConfig struct {
	// When true, Prometheus metrics are served under /metrics on the
	// server's listen address.
	Prometheus bool `mapstructure:"prometheus" toml:"prometheus"`

	// Instrumentation namespace.
	Namespace string `mapstructure:"namespace" toml:"namespace"`
}

// DefaultInstrumentationConfig returns a default configuration for metrics
// reporting.
func DefaultInstrumentationConfig() *InstrumentationConfig {
	return &InstrumentationConfig{
		Prometheus: false,
		Namespace:  "lightverifier",
	}
}

// TestInstrumentationConfig returns a default configuration for metrics
// reporting.
func TestInstrumentationConfig() *InstrumentationConfig {
	return DefaultInstrumentationConfig()
}

// ValidateBasic performs basic validation (checking param bounds, etc.) and
// returns an error if any check fails.
func (cfg *InstrumentationConfig) ValidateBasic() error {
	if cfg.Prometheus && cfg.Namespace == "" {
		return errors.New("namespace can't be empty when prometheus is enabled")
	}
	return nil
}

//-----------------------------------------------------------------------------
// Utils

// helper function to make config creation independent of root dir
func rootify(path, root string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(root, path)
}
