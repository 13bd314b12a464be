package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/pradt2/always-online-torrent-trackers/internal/candidate"
	"github.com/pradt2/always-online-torrent-trackers/internal/checker"
	"github.com/spf13/cobra"
)

var probeCmd = &cobra.Command{
	Use:   "probe <udp://host:port>",
	Short: "Probe a single tracker candidate",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		c, err := candidate.Parse(args[0])
		if err != nil {
			fmt.Printf("Bad candidate %q: %v\n", args[0], err)
			os.Exit(1)
		}
		if c.Transport != candidate.TransportUDP {
			fmt.Println("Only udp:// candidates can be probed")
			os.Exit(1)
		}

		chk := checker.New(checker.Config{
			Timeout: time.Duration(cfg.Check.Timeout) * time.Second,
			NumWant: int32(cfg.Check.NumWant),
		}, logger)

		profile, err := chk.Check(context.Background(), c)
		if err != nil {
			fmt.Printf("Failure: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Success: %s addrs=%d rtt=%s\n", profile.Candidate, len(profile.Addrs), profile.RTT)
	},
}
