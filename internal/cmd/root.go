package cmd

import (
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/attunelabs/attune/internal/config"
)

var rootCmd = &cobra.Command{
	Use:   "attune",
	Short: "Adaptive learning session engine",
	Long: `Attune is a real-time control engine for learning sessions. It
classifies a continuous engagement signal into operating modes and
cognitive-load states, applies adaptation strategies on transitions,
and detects rate-limited breakthrough moments.`,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringP("config", "c", "", "config file (default is $HOME/.config/attune/config.yaml)")
	_ = viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
}

func initConfig() {
	// Set defaults first so they're available even without a config file
	config.SetDefaults()

	if cfgFile := viper.GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(config.ConfigDir())
		viper.AddConfigPath(".")
	}

	viper.AutomaticEnv()
	viper.SetEnvPrefix("ATTUNE")
	// Replace dots with underscores for nested keys in env vars
	// e.g., ATTUNE_ENGINE_TICK_INTERVAL_MS for engine.tick_interval_ms
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Read config file if it exists (ignore error if not found)
	_ = viper.ReadInConfig()
}
