package helpers

import (
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// ConfigKeyType discriminates the supported configuration key kinds
type ConfigKeyType int

const (
	// StringFlag is a configuration key holding a single string value
	StringFlag ConfigKeyType = iota + 1
	// StringSliceFlag is a configuration key holding a list of string values
	StringSliceFlag
)

// ConfigKey describes a single allowed configuration key with its default value
type ConfigKey struct {
	Type         ConfigKeyType
	Name         string
	DefaultValue interface{}
	Description  string
}

// InitializeConfig loads the configuration keys with the following priority order:
// command line flag > environment variable > configuration file > default value
func InitializeConfig(allowedConfigKey [][]ConfigKey, configName, configPath, envPrefix string) {
	for _, keys := range allowedConfigKey {
		for _, key := range keys {
			switch key.Type {
			case StringFlag:
				pflag.String(key.Name, key.DefaultValue.(string), key.Description)
			case StringSliceFlag:
				pflag.StringSlice(key.Name, key.DefaultValue.([]string), key.Description)
			}
			viper.SetDefault(key.Name, key.DefaultValue)
		}
	}
	pflag.Parse()
	_ = viper.BindPFlags(pflag.CommandLine)

	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	viper.SetConfigName(configName)
	viper.AddConfigPath(configPath)
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			zap.L().Warn("Configuration file found but could not be read", zap.Error(err))
		}
	}
}
