// Package conf loads configuration from defaults, an optional config file,
// and DISPOSAL_*-prefixed environment variables, and maps the result onto
// the coordinator, logger, and telemetry configs.
package conf

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/LerianStudio/lib-disposal/disposal"
	"github.com/LerianStudio/lib-disposal/disposal/telemetry"
	"github.com/LerianStudio/lib-disposal/disposal/zap"
	"github.com/spf13/viper"
)

const envPrefix = "DISPOSAL"

// ErrInvalidBootstrap wraps bootstrap validation failures. All problems are
// collected into a single error so misconfiguration is reported at once.
var ErrInvalidBootstrap = errors.New("invalid bootstrap configuration")

// Bootstrap is the fully resolved configuration of a disposal-enabled
// process. Resolution order: defaults, then the config file, then
// environment variables.
type Bootstrap struct {
	Coordinator Coordinator
	Log         Log
	Telemetry   Telemetry
}

// Coordinator carries the disposal.Config knobs plus the coordination
// feature gate.
type Coordinator struct {
	Enabled                bool
	FailureThreshold       uint32
	CircuitOpenTimeout     time.Duration
	DefaultDisposalTimeout time.Duration
	MaxConcurrentDisposals int
	HealthCheckInterval    time.Duration
	ShutdownGracePeriod    time.Duration
	RecentOutcomes         int
}

// Log selects the logger profile.
type Log struct {
	Environment string
	Level       string
	LibraryName string
	OutputFile  string
}

// Telemetry selects the sink implementation.
type Telemetry struct {
	Type      string
	Enabled   bool
	Namespace string
	Subsystem string
}

// NewBootstrap resolves the configuration. configPath may be empty, in which
// case only defaults and environment variables apply; a non-empty path that
// cannot be read is an error.
func NewBootstrap(configPath string) (*Bootstrap, error) {
	v := viper.New()

	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	bindAliases(v)

	if configPath != "" {
		v.SetConfigFile(configPath)

		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", configPath, err)
		}
	}

	b := &Bootstrap{
		Coordinator: Coordinator{
			Enabled:                v.GetBool("coordinator.enabled"),
			FailureThreshold:       v.GetUint32("coordinator.failure_threshold"),
			CircuitOpenTimeout:     v.GetDuration("coordinator.circuit_open_timeout"),
			DefaultDisposalTimeout: v.GetDuration("coordinator.default_disposal_timeout"),
			MaxConcurrentDisposals: v.GetInt("coordinator.max_concurrent_disposals"),
			HealthCheckInterval:    v.GetDuration("coordinator.health_check_interval"),
			ShutdownGracePeriod:    v.GetDuration("coordinator.shutdown_grace_period"),
			RecentOutcomes:         v.GetInt("coordinator.recent_outcomes"),
		},
		Log: Log{
			Environment: v.GetString("log.environment"),
			Level:       v.GetString("log.level"),
			LibraryName: v.GetString("log.library_name"),
			OutputFile:  v.GetString("log.output_file"),
		},
		Telemetry: Telemetry{
			Type:      v.GetString("telemetry.type"),
			Enabled:   v.GetBool("telemetry.enabled"),
			Namespace: v.GetString("telemetry.namespace"),
			Subsystem: v.GetString("telemetry.subsystem"),
		},
	}

	if err := b.Validate(); err != nil {
		return nil, err
	}

	return b, nil
}

// setDefaults mirrors the packages' own defaults so an empty environment
// yields a working configuration.
func setDefaults(v *viper.Viper) {
	defaults := disposal.DefaultConfig()

	v.SetDefault("coordinator.enabled", true)
	v.SetDefault("coordinator.failure_threshold", defaults.FailureThreshold)
	v.SetDefault("coordinator.circuit_open_timeout", defaults.CircuitOpenTimeout)
	v.SetDefault("coordinator.default_disposal_timeout", defaults.DefaultDisposalTimeout)
	v.SetDefault("coordinator.max_concurrent_disposals", defaults.MaxConcurrentDisposals)
	v.SetDefault("coordinator.health_check_interval", defaults.HealthCheckInterval)
	v.SetDefault("coordinator.shutdown_grace_period", defaults.ShutdownGracePeriod)
	v.SetDefault("coordinator.recent_outcomes", defaults.RecentOutcomes)

	v.SetDefault("log.environment", string(zap.EnvironmentProduction))
	v.SetDefault("log.level", "")
	v.SetDefault("log.library_name", "lib-disposal")
	v.SetDefault("log.output_file", "")

	telemetryDefaults := telemetry.DefaultConfig()

	v.SetDefault("telemetry.type", telemetryDefaults.Type)
	v.SetDefault("telemetry.enabled", telemetryDefaults.Enabled)
	v.SetDefault("telemetry.namespace", telemetryDefaults.Namespace)
	v.SetDefault("telemetry.subsystem", telemetryDefaults.Subsystem)
}

// bindAliases accepts widely used unprefixed variable names alongside the
// canonical DISPOSAL_* forms.
func bindAliases(v *viper.Viper) {
	_ = v.BindEnv("log.level", "LOG_LEVEL", "DISPOSAL_LOG_LEVEL")
	_ = v.BindEnv("log.environment", "APP_ENV", "DISPOSAL_LOG_ENVIRONMENT")
	_ = v.BindEnv("telemetry.type", "TELEMETRY_TYPE", "DISPOSAL_TELEMETRY_TYPE")
}

// Validate checks every section and reports all problems in one error.
func (b *Bootstrap) Validate() error {
	var problems []string

	if b.Coordinator.FailureThreshold == 0 {
		problems = append(problems, "coordinator.failure_threshold must be positive")
	}

	if b.Coordinator.CircuitOpenTimeout <= 0 {
		problems = append(problems, "coordinator.circuit_open_timeout must be positive")
	}

	if b.Coordinator.DefaultDisposalTimeout <= 0 {
		problems = append(problems, "coordinator.default_disposal_timeout must be positive")
	}

	if b.Coordinator.MaxConcurrentDisposals <= 0 {
		problems = append(problems, "coordinator.max_concurrent_disposals must be positive")
	}

	if b.Coordinator.HealthCheckInterval < 0 {
		problems = append(problems, "coordinator.health_check_interval cannot be negative")
	}

	if b.Coordinator.ShutdownGracePeriod <= 0 {
		problems = append(problems, "coordinator.shutdown_grace_period must be positive")
	}

	if b.Coordinator.RecentOutcomes <= 0 {
		problems = append(problems, "coordinator.recent_outcomes must be positive")
	}

	switch zap.Environment(b.Log.Environment) {
	case zap.EnvironmentProduction, zap.EnvironmentStaging, zap.EnvironmentUAT,
		zap.EnvironmentDevelopment, zap.EnvironmentLocal:
	default:
		problems = append(problems, fmt.Sprintf("log.environment %q is not a known environment", b.Log.Environment))
	}

	if b.Log.LibraryName == "" {
		problems = append(problems, "log.library_name is required")
	}

	switch b.Telemetry.Type {
	case telemetry.TypeNoop, telemetry.TypeOTel, telemetry.TypePrometheus, "":
	default:
		problems = append(problems, fmt.Sprintf("telemetry.type %q is not one of noop, otel, prometheus", b.Telemetry.Type))
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidBootstrap, strings.Join(problems, "; "))
	}

	return nil
}

// CoordinatorConfig maps the bootstrap onto a disposal.Config, including a
// static feature gate derived from coordinator.enabled.
func (b *Bootstrap) CoordinatorConfig() disposal.Config {
	enabled := b.Coordinator.Enabled

	return disposal.Config{
		FailureThreshold:       b.Coordinator.FailureThreshold,
		CircuitOpenTimeout:     b.Coordinator.CircuitOpenTimeout,
		DefaultDisposalTimeout: b.Coordinator.DefaultDisposalTimeout,
		MaxConcurrentDisposals: b.Coordinator.MaxConcurrentDisposals,
		HealthCheckInterval:    b.Coordinator.HealthCheckInterval,
		ShutdownGracePeriod:    b.Coordinator.ShutdownGracePeriod,
		RecentOutcomes:         b.Coordinator.RecentOutcomes,
		Gate:                   disposal.GateFunc(func() bool { return enabled }),
	}
}

// LoggerConfig maps the bootstrap onto a zap.Config.
func (b *Bootstrap) LoggerConfig() zap.Config {
	return zap.Config{
		Environment:     zap.Environment(b.Log.Environment),
		Level:           b.Log.Level,
		OTelLibraryName: b.Log.LibraryName,
		OutputFile:      b.Log.OutputFile,
	}
}

// TelemetryConfig maps the bootstrap onto a telemetry.Config.
func (b *Bootstrap) TelemetryConfig() *telemetry.Config {
	return &telemetry.Config{
		Type:      b.Telemetry.Type,
		Enabled:   b.Telemetry.Enabled,
		Namespace: b.Telemetry.Namespace,
		Subsystem: b.Telemetry.Subsystem,
	}
}
