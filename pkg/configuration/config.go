// Package configuration loads this module's bootstrap configuration: pool
// sizing, the registry's default bootstrap entries, the TPM endpoint path,
// the tracing exporter address, and logging. Grounded in the teacher's
// pkg/configuration.New, kept on the same four-library pipeline
// (envconfig -> defaults -> yaml.v2 -> validator) but scoped to this
// module's own Cfg shape instead of the teacher's application Cfg.
package configuration

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"

	"github.com/dc4eu/vc-cryptocore/pkg/logger"
)

// LogCfg controls the ambient logger (pkg/logger).
type LogCfg struct {
	Level      string `yaml:"level" default:"info" validate:"oneof=info debug trace"`
	Path       string `yaml:"path"`
	Production bool   `yaml:"production" default:"false"`
}

// PoolCfg holds sensitive buffer pool settings (pkg/sensitivebuf).
// sensitivebuf.New takes no settings; nothing in this module reads these
// fields.
type PoolCfg struct {
	MaxBuffers   int `yaml:"max_buffers" default:"256" validate:"min=1"`
	BufferBytes  int `yaml:"buffer_bytes" default:"4096" validate:"min=1"`
}

// RegistryEntryCfg names one (algorithm, purpose, qualifier) bootstrap
// binding to a named backend (pkg/cryptoregistry). Registry.Initialize
// takes function maps; nothing in this module reads these entries.
type RegistryEntryCfg struct {
	Algorithm string `yaml:"algorithm" validate:"required"`
	Purpose   string `yaml:"purpose" validate:"required"`
	Qualifier string `yaml:"qualifier"`
	Backend   string `yaml:"backend" validate:"required,oneof=software hsm"`
}

// TPMCfg holds TPM transport settings (pkg/tpm). The tpm backends use
// fixed platform endpoints; nothing in this module reads these fields.
type TPMCfg struct {
	LinuxDevicePath  string `yaml:"linux_device_path" default:"/dev/tpmrm0"`
	WindowsTBSEnable bool   `yaml:"windows_tbs_enable" default:"true"`
}

// TraceCfg configures the OTLP exporter the assessment pipeline's
// TraceContext is populated from (pkg/assessment).
type TraceCfg struct {
	ServiceName      string `yaml:"service_name" default:"vc-cryptocore" validate:"required"`
	OTLPEndpoint     string `yaml:"otlp_endpoint"`
	PropagateJaeger  bool   `yaml:"propagate_jaeger" default:"true"`
}

// Cfg is this module's bootstrap configuration.
type Cfg struct {
	Log      LogCfg             `yaml:"log"`
	Pool     PoolCfg            `yaml:"pool"`
	Registry []RegistryEntryCfg `yaml:"registry"`
	TPM      TPMCfg             `yaml:"tpm"`
	Trace    TraceCfg           `yaml:"trace"`
}

type envVars struct {
	ConfigYAML string `envconfig:"VC_CRYPTOCORE_CONFIG_YAML" required:"true"`
}

// New parses the config file named by the VC_CRYPTOCORE_CONFIG_YAML
// environment variable, seeds defaults, and validates the result.
func New(log *logger.Log) (*Cfg, error) {
	log.Info("reading environment variable")

	env := envVars{}
	if err := envconfig.Process("", &env); err != nil {
		return nil, err
	}

	cfg := &Cfg{}
	if err := defaults.Set(cfg); err != nil {
		return nil, err
	}

	configPath := env.ConfigYAML
	fileInfo, err := os.Stat(configPath)
	if err != nil {
		return nil, err
	}
	if fileInfo.IsDir() {
		return nil, fmt.Errorf("config path %q is a directory", configPath)
	}

	configFile, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return nil, err
	}

	if err := yaml.Unmarshal(configFile, cfg); err != nil {
		return nil, err
	}

	if err := validator.New(validator.WithRequiredStructEnabled()).Struct(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}
