package main

import (
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	configx "github.com/tanpawarit/Chative-Banking-Assistant/pkg/config"
	logx "github.com/tanpawarit/Chative-Banking-Assistant/pkg/logger"
	_ "github.com/tanpawarit/Chative-Banking-Assistant/pkg/logger/autoload"
)

var envFile string

var rootCmd = &cobra.Command{
	Use:   "bank-assistant",
	Short: "Task-oriented banking assistant",
	Long: `A turn-based banking assistant that blocks cards, shows mini statements
and runs loan pre-eligibility checks.

Configuration is read from the environment (APP_, LLM_, BANK_, AUDIT_, QSTASH_
and LOG_ prefixes), optionally seeded from a .env file.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		configx.SetEnvFile(envFile)
		// LOG_ values may come from the env file, which autoload never saw.
		logCfg, err := configx.New[logx.Config]("LOG")
		if err != nil {
			return err
		}
		logx.Init(*logCfg)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env", "", "path to an env file (defaults to ./.env when present)")
	rootCmd.AddCommand(serveCmd, chatCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Error().Err(err).Msg("command failed")
		os.Exit(1)
	}
}
