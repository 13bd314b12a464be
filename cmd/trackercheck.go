package cmd

import (
	"fmt"
	"os"

	"github.com/pradt2/always-online-torrent-trackers/internal/config"
	"github.com/pradt2/always-online-torrent-trackers/internal/log"
	"github.com/spf13/cobra"
)

var (
	cfgFile     string
	cfgRegistry *config.Registry
	cfg         *config.Config
	logger      *log.Logger

	rootCmd = &cobra.Command{
		Use:   "trackercheck",
		Short: "Validate BitTorrent tracker endpoints over UDP",
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Help()
		},
	}
)

func Execute() error {
	defer func() {
		if logger != nil {
			if err := logger.Close(); err != nil {
				fmt.Printf("Failed to close logger: %v\n", err)
			}
		}
	}()
	return rootCmd.Execute()
}

func init() {
	cfgRegistry = config.NewRegistry()
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.trackercheck/config.yaml)")

	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(cleanCmd)
	rootCmd.AddCommand(probeCmd)
}

func initConfig() {
	var err error
	cfg, err = cfgRegistry.LoadConfig(cfgFile)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, err = log.New(&cfg.Log)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}

	logger.Debug("configuration loaded",
		"config_file", cfgRegistry.ConfigFile(),
		"candidates_file", cfg.CandidatesFile,
		"timeout", cfg.Check.Timeout,
		"max_checks", cfg.Check.MaxChecks,
	)
}
