package cmd

import (
	"fmt"
	"os"

	"github.com/pradt2/always-online-torrent-trackers/internal/candidate"
	"github.com/spf13/cobra"
)

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Deduplicate and sort the candidates file in place",
	Run: func(cmd *cobra.Command, args []string) {
		loaded, unique, err := candidate.Clean(cfg.CandidatesFile)
		if err != nil {
			logger.Error("failed to clean candidates", "file", cfg.CandidatesFile, "error", err)
			os.Exit(1)
		}
		fmt.Printf("Loaded candidates: %d\n", loaded)
		fmt.Printf("Unique candidates: %d\n", unique)
	},
}
