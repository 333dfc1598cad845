package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/template"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/creachadair/atomicfile"
)

// defaultDirPerm is the default permissions used when creating directories.
const defaultDirPerm = 0700

var configTemplate *template.Template

func init() {
	var err error
	tmpl := template.New("configFileTemplate").Funcs(template.FuncMap{
		"StringsJoin": strings.Join,
	})
	if configTemplate, err = tmpl.Parse(defaultConfigTemplate); err != nil {
		panic(err)
	}
}

/****** these are for production settings ***********/

// EnsureRoot creates the root and config directories if they don't exist.
func EnsureRoot(rootDir string) error {
	if err := os.MkdirAll(filepath.Join(rootDir, defaultConfigDir), defaultDirPerm); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	return nil
}

// WriteConfigFile renders config using the template and writes it to
// rootDir/config/config.toml.
// This function is called by cmd/light-verifier/commands/init.go
func WriteConfigFile(rootDir string, config *Config) error {
	return config.WriteToTemplate(filepath.Join(rootDir, defaultConfigFilePath))
}

// WriteToTemplate writes the config to the exact file specified by
// the path, in the default toml template and does not mangle the path
// or filename at all. The file is replaced atomically.
func (cfg *Config) WriteToTemplate(path string) error {
	var buffer bytes.Buffer

	if err := configTemplate.Execute(&buffer, cfg); err != nil {
		return err
	}

	if _, err := atomicfile.WriteAll(path, &buffer, 0644); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	return nil
}

// WriteDefaultConfigFileIfNone writes the default configuration unless a
// config file already exists under rootDir.
func WriteDefaultConfigFileIfNone(rootDir string) error {
	configFilePath := filepath.Join(rootDir, defaultConfigFilePath)
	if _, err := os.Stat(configFilePath); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return err
	}
	return WriteConfigFile(rootDir, DefaultConfig())
}

// fileConfig is the layout of a config file.
type fileConfig struct {
	BaseConfig
	Verifier        VerifierConfig        `toml:"verifier"`
	RPC             RPCConfig             `toml:"rpc"`
	Instrumentation InstrumentationConfig `toml:"instrumentation"`
}

// durations holds the duration settings of a config file. They are written
// as Go duration strings ("336h0m0s") and parsed separately from the rest.
type durations struct {
	Verifier struct {
		TrustingPeriod string `toml:"trusting-period"`
		MaxClockDrift  string `toml:"max-clock-drift"`
	} `toml:"verifier"`
	RPC struct {
		RequestTimeout string `toml:"request-timeout"`
	} `toml:"rpc"`
}

// LoadFile reads a config file written by WriteConfigFile. Settings missing
// from the file keep their default values. The result is validated.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Sections are decoded into values so that settings missing from the
	// file keep their defaults.
	defaults := DefaultConfig()
	fc := fileConfig{
		BaseConfig:      defaults.BaseConfig,
		Verifier:        *defaults.Verifier,
		RPC:             *defaults.RPC,
		Instrumentation: *defaults.Instrumentation,
	}
	if _, err := toml.Decode(string(data), &fc); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	cfg := &Config{
		BaseConfig:      fc.BaseConfig,
		Verifier:        &fc.Verifier,
		RPC:             &fc.RPC,
		Instrumentation: &fc.Instrumentation,
	}

	var ds durations
	if _, err := toml.Decode(string(data), &ds); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	for _, d := range []struct {
		key    string
		value  string
		target *time.Duration
	}{
		{"verifier.trusting-period", ds.Verifier.TrustingPeriod, &cfg.Verifier.TrustingPeriod},
		{"verifier.max-clock-drift", ds.Verifier.MaxClockDrift, &cfg.Verifier.MaxClockDrift},
		{"rpc.request-timeout", ds.RPC.RequestTimeout, &cfg.RPC.RequestTimeout},
	} {
		if d.value == "" {
			continue
		}
		if *d.target, err = time.ParseDuration(d.value); err != nil {
			return nil, fmt.Errorf("%s: %w", d.key, err)
		}
	}

	cfg.SetRoot(filepath.Dir(filepath.Dir(path)))
	if err := cfg.ValidateBasic(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Note: any changes to the comments/variables/mapstructure
// must be reflected in the appropriate struct in config/config.go
const defaultConfigTemplate = `# This is a TOML config file.
# For more information, see https://github.com/toml-lang/toml

# NOTE: The home directory is "$HOME/.light-verifier" by default, but could be
# changed via $LV_HOME env variable or --home cmd flag.

#######################################################################
###                   Main Base Config Options                      ###
#######################################################################

# Output level for logging, including package level options
log-level = "{{ .BaseConfig.LogLevel }}"

# Output format: 'plain' (colored text) or 'json'
log-format = "{{ .BaseConfig.LogFormat }}"

#######################################################################
###                 Advanced Configuration Options                  ###
#######################################################################

#######################################################
###       Verifier Configuration Options            ###
#######################################################
[verifier]

# Share of the trusted validator set that must have signed a non-adjacent
# header. Must be between 1/3 and 1/1.
trust-level = "{{ .Verifier.TrustLevel }}"

# How long a trusted header can be used to verify new headers.
# Should be significantly less than the unbonding period.
trusting-period = "{{ .Verifier.TrustingPeriod }}"

# How far the time of a new header may be ahead of the local clock.
max-clock-drift = "{{ .Verifier.MaxClockDrift }}"

# Number of signatures verified in parallel when batch verification is not
# possible. 0 - one per CPU.
signature-concurrency = {{ .Verifier.SignatureConcurrency }}

#######################################################
###       RPC Server Configuration Options          ###
#######################################################
[rpc]

# TCP or UNIX socket address for the RPC server to listen on
laddr = "{{ .RPC.ListenAddress }}"

# A list of origins a cross-domain request can be executed from
# Default value '[]' disables cors support
# Use '["*"]' to allow any origin
cors-allowed-origins = [{{ range .RPC.CORSAllowedOrigins }}{{ printf "%q, " . }}{{end}}]

# A list of methods the client is allowed to use with cross-domain requests
cors-allowed-methods = [{{ range .RPC.CORSAllowedMethods }}{{ printf "%q, " . }}{{end}}]

# A list of non simple headers the client is allowed to use with cross-domain requests
cors-allowed-headers = [{{ range .RPC.CORSAllowedHeaders }}{{ printf "%q, " . }}{{end}}]

# Maximum number of simultaneous connections.
# If you want to accept a larger number than the default, make sure
# you increase your OS limits.
# 0 - unlimited.
max-open-connections = {{ .RPC.MaxOpenConnections }}

# Maximum size of request body, in bytes
max-body-bytes = {{ .RPC.MaxBodyBytes }}

# Maximum size of request header, in bytes
max-header-bytes = {{ .RPC.MaxHeaderBytes }}

# How long a single verification request may take.
request-timeout = "{{ .RPC.RequestTimeout }}"

#######################################################
###       Instrumentation Configuration Options     ###
#######################################################
[instrumentation]

# When true, Prometheus metrics are served under /metrics on the RPC
# listen address.
prometheus = {{ .Instrumentation.Prometheus }}

# Instrumentation namespace
namespace = "{{ .Instrumentation.Namespace }}"
`

/****** these are for test settings ***********/

// ResetTestRoot creates a fresh root directory with a test configuration
// written to it.
func ResetTestRoot(dir, testName string) (*Config, error) {
	// create a unique, concurrency-safe test directory under dir
	rootDir, err := os.MkdirTemp(dir, testName+"_")
	if err != nil {
		return nil, err
	}
	if err := EnsureRoot(rootDir); err != nil {
		return nil, err
	}

	config := TestConfig().SetRoot(rootDir)
	if err := WriteConfigFile(rootDir, config); err != nil {
		return nil, err
	}
	return config, nil
}
