package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kailas-cloud/jobmatch/internal/config"
	logpkg "github.com/kailas-cloud/jobmatch/internal/logger"
)

const app = "jobmatch"

var (
	envName    string
	configFile string

	rootCmd = &cobra.Command{
		Use:          app,
		Short:        "jobmatch recommends job postings for a resume using hybrid search and a domain re-ranker",
		SilenceUsage: true,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&envName, "env", "", "environment name, selects config/<env>.yaml (default $ENV or local)")
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "explicit config file, overrides --env")
}

// bootstrap loads configuration and builds the process logger.
func bootstrap() (config.Config, *zap.Logger, string, error) {
	env := envName
	if env == "" {
		env = config.GetEnv()
	}

	var (
		cfg config.Config
		err error
	)
	if configFile != "" {
		cfg, err = config.LoadFile(configFile)
	} else {
		cfg, err = config.Load(env)
	}
	if err != nil {
		return config.Config{}, nil, "", fmt.Errorf("load config: %w", err)
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		return config.Config{}, nil, "", fmt.Errorf("create logger: %w", err)
	}
	return cfg, logger, env, nil
}
