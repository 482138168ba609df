// Package config loads lcache settings from file, environment and defaults.
package config

import (
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/spf13/viper"

	"github.com/deploymenttheory/go-linearcache/internal/mirror"
	"github.com/deploymenttheory/go-linearcache/internal/types"
)

// Config holds the settings shared by every command
type Config struct {
	// Image is the cache image or block device used when none is given on
	// the command line.
	Image     string `mapstructure:"image"`
	Partition uint8  `mapstructure:"partition"`

	Retries       uint32 `mapstructure:"retries"`
	ProgressScale uint8  `mapstructure:"progress_scale"`
	SkipDataCheck bool   `mapstructure:"skip_data_check"`

	// MirrorRoot is the host directory the slot paths are resolved in.
	// Empty disables the mirror.
	MirrorRoot     string `mapstructure:"mirror_root"`
	FrameworkDir   string `mapstructure:"framework_dir"`
	ApplicationDir string `mapstructure:"application_dir"`

	Identity types.Identity `mapstructure:"identity"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("image", "")
	v.SetDefault("partition", 0)
	v.SetDefault("retries", 3)
	v.SetDefault("progress_scale", 100)
	v.SetDefault("skip_data_check", false)
	v.SetDefault("mirror_root", "")
	v.SetDefault("framework_dir", mirror.DefaultFrameworkDir)
	v.SetDefault("application_dir", mirror.DefaultApplicationDir)
	v.SetDefault("identity.framework_version", "1.0.0")
	v.SetDefault("identity.app_name", "lcache")
	v.SetDefault("identity.app_version", "0.1.0")
}

// Load reads lcache-config.yaml from the usual locations, or from file
// when it is not empty, and applies LCACHE_* environment overrides.
func Load(file string) (*Config, error) {
	v := viper.New()

	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("lcache-config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("$HOME/.lcache")
		v.AddConfigPath("/etc/lcache")
	}

	setDefaults(v)

	v.SetEnvPrefix("LCACHE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &notFound) {
			return nil, errors.Wrap(err, "error reading config file")
		}
		// Config file not found is OK, we'll use defaults
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "error unmarshaling config")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks value ranges
func (c *Config) Validate() error {
	if c.ProgressScale == 0 {
		return errors.New("progress_scale must be between 1 and 255")
	}
	if c.Partition > types.MBRMaxPartitions {
		return errors.Newf("partition %d out of range 0-%d", c.Partition, types.MBRMaxPartitions)
	}
	if c.Identity.AppName == "" {
		return errors.New("identity.app_name is required")
	}
	for name, s := range map[string]string{
		"identity.framework_version": c.Identity.FrameworkVersion,
		"identity.app_name":          c.Identity.AppName,
		"identity.app_version":       c.Identity.AppVersion,
	} {
		if len(s) >= types.HeaderIdentityFieldSize {
			return errors.Newf("%s longer than %d bytes", name, types.HeaderIdentityFieldSize-1)
		}
	}
	return nil
}
