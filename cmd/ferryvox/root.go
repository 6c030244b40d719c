package main

import (
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/emmett/ferryvox/internal/config"
	"github.com/emmett/ferryvox/internal/log"
)

// flag name -> config key; every entry can also be set as FERRYVOX_<KEY>
// with dots replaced by underscores
var overrides = []struct {
	flag, key, usage string
}{
	{"engine-path", "engine.path", "path to the VOICEVOX engine executable"},
	{"engine-url", "engine.url", "VOICEVOX engine base URL"},
	{"hotkey", "hotkey", "push-to-talk hotkey, e.g. ctrl+shift+f"},
	{"model", "recognition.model", "Vosk model name or directory"},
	{"device", "recognition.device", "capture device ID or name fragment"},
	{"db", "routes.database", "ferry route database path"},
	{"telemetry-url", "telemetry.url", "telemetry WebSocket URL (empty disables)"},
	{"transcript", "output.transcript", "append answers to this file (.jsonl or .txt)"},
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "ferryvox",
		Short:         "Hands-free ferry assistant for Euro/American Truck Simulator",
		Long:          "ferryvox listens on a push-to-talk hotkey, answers which ferry to board for the current delivery, and speaks the answer through VOICEVOX.",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	registerFlags(rootCmd.PersistentFlags())
	v := bindConfig(rootCmd.PersistentFlags())

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, _ []string) error {
		log.Init(v.GetBool("debug"), cmd.ErrOrStderr())
		return nil
	}

	loader := func() (*config.Config, error) { return loadConfig(v) }

	rootCmd.AddCommand(
		newVersionCmd(),
		newRunCmd(loader),
		newRoutesCmd(loader),
		newModelsCmd(),
		newDevicesCmd(),
		newMCPCmd(loader),
	)

	return rootCmd
}

func registerFlags(flags *pflag.FlagSet) {
	flags.String("config", "", "config file (default ~/.ferryvoxrc or /etc/ferryvox/config.yaml)")
	flags.Bool("debug", false, "enable debug logging")
	flags.Int("speaker", 0, "VOICEVOX speaker id")
	flags.Int("engine-timeout", 0, "seconds to wait for the engine to come up")
	for _, o := range overrides {
		flags.String(o.flag, "", o.usage)
	}
}

// bindConfig layers FERRYVOX_* environment variables under the flags
func bindConfig(flags *pflag.FlagSet) *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix("FERRYVOX")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	_ = v.BindPFlag("config", flags.Lookup("config"))
	_ = v.BindPFlag("debug", flags.Lookup("debug"))
	_ = v.BindPFlag("engine.speaker", flags.Lookup("speaker"))
	_ = v.BindPFlag("engine.timeout_seconds", flags.Lookup("engine-timeout"))
	for _, o := range overrides {
		_ = v.BindPFlag(o.key, flags.Lookup(o.flag))
	}
	return v
}

// loadConfig reads the config file chain, then applies flags and
// environment variables that were explicitly set
func loadConfig(v *viper.Viper) (*config.Config, error) {
	cfg, err := config.LoadWithFallback(v.GetString("config"))
	if err != nil {
		return nil, err
	}

	if v.IsSet("debug") {
		cfg.Debug = v.GetBool("debug")
	}
	if v.IsSet("engine.speaker") {
		cfg.Engine.Speaker = v.GetInt("engine.speaker")
	}
	if v.IsSet("engine.timeout_seconds") {
		cfg.Engine.TimeoutSeconds = v.GetInt("engine.timeout_seconds")
	}

	targets := map[string]*string{
		"engine.path":        &cfg.Engine.Path,
		"engine.url":         &cfg.Engine.URL,
		"hotkey":             &cfg.Hotkey,
		"recognition.model":  &cfg.Recognition.Model,
		"recognition.device": &cfg.Recognition.Device,
		"routes.database":    &cfg.Routes.Database,
		"telemetry.url":      &cfg.Telemetry.URL,
		"output.transcript":  &cfg.Output.Transcript,
	}
	for key, dst := range targets {
		if v.IsSet(key) {
			*dst = v.GetString(key)
		}
	}

	return cfg, nil
}
