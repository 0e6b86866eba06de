package settings

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Load reads a settings file (YAML, JSON, TOML or properties, chosen by extension).
// Environment variables override file values: key "nosql.host" is read from
// NOSQL_HOST, or from <ENVPREFIX>_NOSQL_HOST when envPrefix is set. Keys absent from
// the file are only picked up from the environment when listed in envKeys.
// An empty path loads the environment only.
func Load(path string, envPrefix string, envKeys ...string) (*Settings, error) {
	v := viper.New()
	if envPrefix != "" {
		v.SetEnvPrefix(envPrefix)
	}
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	for _, key := range envKeys {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("failed to bind environment for %s: %w", key, err)
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read settings file %s: %w", path, err)
		}
	}

	s := New()
	for _, key := range v.AllKeys() {
		value := v.Get(key)
		if value == nil {
			continue
		}
		s.values[normalize(key)] = value
	}
	return s, nil
}
