package commands

import (
	"fmt"
	"os"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github/itish2003/cricketbot/config"
)

var (
	cfgFile string
	verbose bool
	cfg     *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "cricketbot",
	Short: "Cricket Q&A assistant grounded in Wikipedia",
	Long: `cricketbot indexes Wikipedia articles about cricket (and optionally local
notes) into a vector store and answers questions about them with a hosted LLM.

Example usage:
  cricketbot serve                 # Build the index and serve the HTTP API on :8000
  cricketbot ask                   # Chat in the terminal
  cricketbot index                 # Build or refresh the index only`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		return setupLogging(cfg.Logging, verbose)
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", config.DefaultPath, "config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

func setupLogging(lc config.LoggingConfig, verbose bool) error {
	level := log.InfoLevel
	if lc.Level != "" {
		parsed, err := log.ParseLevel(lc.Level)
		if err != nil {
			return fmt.Errorf("invalid logging.level: %w", err)
		}
		level = parsed
	}
	if verbose {
		level = log.DebugLevel
	}
	log.SetLevel(level)

	if lc.Format == "json" {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}

	if level < log.DebugLevel {
		gin.SetMode(gin.ReleaseMode)
	}
	return nil
}
