package config

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
)

// mergeEnvFiles merges KEY=VALUE files into v when they exist.
// Missing files are skipped; environment variables still take precedence.
func mergeEnvFiles(v *viper.Viper, paths ...string) error {
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil || info.IsDir() {
			continue
		}
		v.SetConfigFile(path)
		v.SetConfigType("env")
		if err := v.MergeInConfig(); err != nil {
			return eris.Wrapf(err, "config: read %s", path)
		}
	}
	return nil
}
