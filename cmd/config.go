package main

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"telemetry-logger/utils"
)

// flagKeys maps run flags onto their config keys.
var flagKeys = map[string]string{
	"log-level":   "logging.level",
	"log-file":    "logging.file",
	"storage":     "storage.path",
	"backend":     "storage.backend",
	"source":      "sensor.source",
	"serial-port": "sensor.serial_port",
	"rate-wait":   "pipeline.rate_wait",
	"status":      "status.enabled",
	"duration":    "run.duration_seconds",
}

// resolveConfig layers the config file, TELEMETRY_* environment and
// explicitly set flags over the defaults, then validates the result.
func resolveConfig(cmd *cobra.Command) (*utils.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	if path == "" {
		path = os.Getenv(envPrefix + "_CONFIG")
	}

	base := utils.DefaultConfig()
	if path != "" {
		loaded, err := utils.LoadConfig(path)
		if err != nil {
			return nil, err
		}
		base = loaded
	}

	// Seed viper with every key so AutomaticEnv can override any of them.
	seed, err := utils.DumpConfig(base)
	if err != nil {
		return nil, err
	}
	v := viper.New()
	v.SetConfigType("yaml")
	if err := v.ReadConfig(bytes.NewReader(seed)); err != nil {
		return nil, fmt.Errorf("seed config: %w", err)
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for flag, key := range flagKeys {
		if f := cmd.Flags().Lookup(flag); f != nil && f.Changed {
			_ = v.BindPFlag(key, f)
		}
	}

	cfg := &utils.Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// initConfig implements the init command.
func initConfig(cmd *cobra.Command, _ []string) error {
	printFlag, _ := cmd.Flags().GetBool("print")
	outputPath, _ := cmd.Flags().GetString("output")
	overwrite, _ := cmd.Flags().GetBool("yes")

	out, err := utils.DumpConfig(utils.DefaultConfig())
	if err != nil {
		return err
	}
	if printFlag {
		_, err = cmd.OutOrStdout().Write(out)
		return err
	}
	return writeConfig(outputPath, out, overwrite)
}

func writeConfig(path string, data []byte, overwrite bool) error {
	if _, err := os.Stat(path); err == nil && !overwrite {
		return fmt.Errorf("%s already exists, pass --yes to overwrite", path)
	} else if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("stat %s: %w", path, err)
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config dir: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	fmt.Println("configuration written to", path)
	return nil
}
