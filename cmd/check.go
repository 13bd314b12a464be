package cmd

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"sync"
	"time"

	"github.com/pradt2/always-online-torrent-trackers/internal/candidate"
	"github.com/pradt2/always-online-torrent-trackers/internal/checker"
	"github.com/spf13/cobra"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Probe every UDP candidate and write the working ones",
	Run: func(cmd *cobra.Command, args []string) {
		candidates, err := candidate.Load(cfg.CandidatesFile)
		if err != nil {
			logger.Error("failed to load candidates", "file", cfg.CandidatesFile, "error", err)
			os.Exit(1)
		}

		var udpCandidates []candidate.Candidate
		for _, c := range candidates {
			if c.Transport == candidate.TransportUDP {
				udpCandidates = append(udpCandidates, c)
			}
		}
		fmt.Printf("Loaded candidates: %d (%d udp)\n", len(candidates), len(udpCandidates))

		chk := checker.New(checker.Config{
			Timeout:   time.Duration(cfg.Check.Timeout) * time.Second,
			MaxChecks: int64(cfg.Check.MaxChecks),
			NumWant:   int32(cfg.Check.NumWant),
		}, logger)

		start := time.Now()
		ctx := context.Background()

		profiles := make([]*checker.Profile, len(udpCandidates))
		errs := make([]error, len(udpCandidates))
		var wg sync.WaitGroup
		for i, c := range udpCandidates {
			wg.Add(1)
			go func(i int, c candidate.Candidate) {
				defer wg.Done()
				profile, err := chk.Check(ctx, c)
				if err != nil {
					logger.Info("failure", "candidate", c.String(), "error", err)
				} else {
					logger.Info("success", "candidate", c.String(), "rtt", profile.RTT)
				}
				profiles[i], errs[i] = profile, err
			}(i, c)
		}
		wg.Wait()

		var ok, dnsFailed, partialTimeout, timeout, operational int
		for _, err := range errs {
			switch {
			case err == nil:
				ok++
			case errors.Is(err, checker.ErrDNSResolutionFailed):
				dnsFailed++
			case errors.Is(err, checker.ErrPartialTimeout):
				partialTimeout++
			case errors.Is(err, checker.ErrTimeout):
				timeout++
			case errors.Is(err, checker.ErrOperational):
				operational++
			}
		}
		fmt.Printf("OK %d , DNS failure %d , p/Timeout %d , Timeout %d , Operational error %d\n",
			ok, dnsFailed, partialTimeout, timeout, operational)

		if err := writeOutputs(profiles); err != nil {
			logger.Error("failed to write outputs", "error", err)
			os.Exit(1)
		}

		fmt.Printf("Finished in %s\n", time.Since(start))
	},
}

// writeOutputs persists the working hosts plus the distinct IPv4 and IPv6
// addresses they resolved to. Every list is shuffled so consumers that take
// the top entries do not all hammer the same tracker.
func writeOutputs(profiles []*checker.Profile) error {
	var hosts []string
	ipv4s := make(map[string]struct{})
	ipv6s := make(map[string]struct{})
	for _, p := range profiles {
		if p == nil {
			continue
		}
		hosts = append(hosts, p.Candidate.String())
		for _, addr := range p.Addrs {
			if addr.IP.To4() != nil {
				ipv4s[addr.String()] = struct{}{}
			} else {
				ipv6s[addr.String()] = struct{}{}
			}
		}
	}

	shuffle(hosts)
	if err := candidate.WriteLines(cfg.Output.HostsFile, hosts); err != nil {
		return err
	}
	if err := candidate.WriteLines(cfg.Output.IPv4File, shuffledKeys(ipv4s)); err != nil {
		return err
	}
	return candidate.WriteLines(cfg.Output.IPv6File, shuffledKeys(ipv6s))
}

func shuffle(s []string) {
	rand.Shuffle(len(s), func(i, j int) { s[i], s[j] = s[j], s[i] })
}

func shuffledKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	shuffle(keys)
	return keys
}
