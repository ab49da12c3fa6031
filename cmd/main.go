package main

import (
	"os"

	"github.com/spf13/cobra"
)

const (
	appName       = "telemetry-logger"
	envPrefix     = "TELEMETRY"
	defaultConfig = "config/pipeline.yaml"
)

var rootCmd = &cobra.Command{
	Use:   appName,
	Short: "real-time accelerometer telemetry logger",
	Long: `telemetry-logger samples a 3-axis sensor, averages the readings, persists them
at a throttled rate and watches both pipeline stages through heartbeat signals.`,
	SilenceUsage: true,
}

func runCmdFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("config", "c", "", "path to pipeline.yaml (defaults built in when empty)")
	cmd.Flags().String("log-level", "info", "log level: debug|info|warn|error")
	cmd.Flags().String("log-file", "", "optional rotated log file (stdout is always included)")
	cmd.Flags().String("storage", "", "record store path")
	cmd.Flags().String("backend", "", "record store backend: file|sqlite")
	cmd.Flags().String("source", "", "sensor source: simulated|serial")
	cmd.Flags().String("serial-port", "", "serial device for the serial source")
	cmd.Flags().String("rate-wait", "", "persist throttle: spin|sleep")
	cmd.Flags().Bool("status", false, "serve /healthz and /stats")
	cmd.Flags().Int("duration", 0, "auto-stop after N seconds (0 = run until signalled)")
	cmd.Flags().Int64("seed", 1, "seed for the simulated sensor")
}

var runCmd = &cobra.Command{
	Use:        "run",
	SuggestFor: []string{"ru", "start"},
	Short:      "run the sampling, recording and watchdog pipeline",
	Long: `run starts the pipeline using, in increasing precedence:
1. built-in defaults
2. the file given by --config (or TELEMETRY_CONFIG)
3. TELEMETRY_* environment variables (e.g. TELEMETRY_STORAGE_PATH)
4. command line flags
`,
	Example: `  telemetry-logger run --config config/pipeline.yaml
  telemetry-logger run --backend sqlite --storage records.db --status`,
	RunE: runPipeline,
}

func initCmdFlags(cmd *cobra.Command) {
	cmd.Flags().Bool("print", false, "print config to stdout")
	cmd.Flags().BoolP("yes", "y", false, "overwrite an existing file")
	cmd.Flags().StringP("output", "o", defaultConfig, "output path")
}

var initCmd = &cobra.Command{
	Use:        "init",
	SuggestFor: []string{"ini", "in"},
	Short:      "init writes a configuration template",
	Long: `init writes the default configuration.
If --print is present the configuration is printed to stdout, otherwise it is
saved to --output. An existing file is only replaced with --yes.
`,
	Example: `  telemetry-logger init --print
  telemetry-logger init -o /etc/telemetry/pipeline.yaml -y`,
	RunE: initConfig,
}

func getRootCmd() *cobra.Command {
	runCmdFlags(runCmd)
	rootCmd.AddCommand(runCmd)

	initCmdFlags(initCmd)
	rootCmd.AddCommand(initCmd)

	return rootCmd
}

func main() {
	if err := getRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
