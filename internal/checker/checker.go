package checker

import (
	"context"
	"crypto/sha1"
	"errors"
	"net"
	"os"
	"sync"
	"time"

	"github.com/pradt2/always-online-torrent-trackers/internal/candidate"
	"github.com/pradt2/always-online-torrent-trackers/internal/log"
	"github.com/pradt2/always-online-torrent-trackers/internal/resolver"
	"github.com/pradt2/always-online-torrent-trackers/internal/tracker/udp"
	"golang.org/x/sync/semaphore"
)

const (
	DefaultMaxChecks = 10
	defaultNumWant   = -1

	// Byte counters announced by the probe. The probe never transfers
	// anything; a non-zero "left" just makes it look like a leecher so the
	// tracker registers it.
	probeBytesLeft = 100
)

// The probe never announces a real torrent. The announce exchange is used
// purely as a liveness check under a fixed synthetic identity.
var (
	probeInfoHash = sha1.Sum([]byte("tracker_test"))
	probePeerID   = sha1.Sum([]byte("tracker"))
)

var errPeerNotListed = errors.New("tracker reply does not list the probe peer")

type Config struct {
	Timeout   time.Duration // per CONNECT/ANNOUNCE round trip
	MaxChecks int64         // candidates probed in parallel
	NumWant   int32
}

// Checker probes UDP tracker candidates. Safe for concurrent use; the
// admission gate is the only state shared between checks.
type Checker struct {
	timeout time.Duration
	numWant int32
	gate    *semaphore.Weighted
	lookup  func(ctx context.Context, host string, port int) ([]*net.UDPAddr, error)
	log     *log.Logger
}

func New(cfg Config, logger *log.Logger) *Checker {
	if cfg.Timeout <= 0 {
		cfg.Timeout = udp.DefaultTimeout
	}
	if cfg.MaxChecks <= 0 {
		cfg.MaxChecks = DefaultMaxChecks
	}
	if cfg.NumWant == 0 {
		cfg.NumWant = defaultNumWant
	}
	c := &Checker{
		timeout: cfg.Timeout,
		numWant: cfg.NumWant,
		gate:    semaphore.NewWeighted(cfg.MaxChecks),
		log:     logger,
	}
	c.lookup = func(ctx context.Context, host string, port int) ([]*net.UDPAddr, error) {
		return resolver.LookupUDPAddrs(ctx, c.timeout, host, port)
	}
	return c
}

// Check produces one verdict for the candidate: a Profile when every
// resolved address passes the probe, otherwise a single CheckError. It
// blocks until a gate slot is free; the slot is released whatever the
// outcome. Sibling addresses run concurrently and all run to completion.
func (c *Checker) Check(ctx context.Context, cand candidate.Candidate) (*Profile, error) {
	if err := c.gate.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer c.gate.Release(1)

	addrs, err := c.lookup(ctx, cand.Host, int(cand.Port))
	if err != nil || len(addrs) == 0 {
		c.log.Debug("dns resolution failed", "candidate", cand.String(), "error", err)
		return nil, ErrDNSResolutionFailed
	}

	outcomes := make([]outcome, len(addrs))
	var wg sync.WaitGroup
	for i, addr := range addrs {
		wg.Add(1)
		go func(i int, addr *net.UDPAddr) {
			defer wg.Done()
			rtt, err := c.probeAddr(ctx, addr)
			if err != nil {
				c.log.Debug("address probe failed", "candidate", cand.String(), "addr", addr.String(), "error", err)
			}
			outcomes[i] = outcome{rtt: rtt, err: err}
		}(i, addr)
	}
	wg.Wait()

	return summarize(cand, addrs, outcomes)
}

// probeAddr runs one connect+announce cycle against a single resolved
// address on a fresh socket and measures its latency. The tracker must list
// the probe's own port among the returned peers; a syntactically valid but
// empty reply does not count as working.
func (c *Checker) probeAddr(ctx context.Context, addr *net.UDPAddr) (time.Duration, error) {
	network := "udp6"
	if addr.IP.To4() != nil {
		network = "udp4"
	}
	conn, err := net.ListenUDP(network, nil)
	if err != nil {
		return 0, err
	}
	defer conn.Close()

	localPort := conn.LocalAddr().(*net.UDPAddr).Port

	sess := udp.NewSession(conn, addr, c.timeout)
	start := time.Now()
	if err := sess.Connect(ctx); err != nil {
		return 0, err
	}

	req := udp.AnnounceRequest{
		InfoHash: probeInfoHash,
		PeerID:   probePeerID,
		Left:     probeBytesLeft,
		Event:    udp.EventStarted,
		NumWant:  c.numWant,
		Port:     uint16(localPort),
	}
	resp, err := sess.Announce(ctx, req)
	if err != nil {
		return 0, err
	}
	rtt := time.Since(start)

	if !hasPeerPort(resp.Peers, localPort) {
		return 0, errPeerNotListed
	}

	// Clean up after ourselves by withdrawing the announce. Fire and
	// forget; the outcome is deliberately not observed.
	req.Event = udp.EventStopped
	_, _ = sess.Announce(ctx, req)

	return rtt, nil
}

type outcome struct {
	rtt time.Duration
	err error
}

// summarize folds per-address outcomes into the candidate verdict. Priority
// when not every address succeeded: any non-timeout failure wins, then a
// partial timeout, then a full timeout.
func summarize(cand candidate.Candidate, addrs []*net.UDPAddr, outcomes []outcome) (*Profile, error) {
	var succeeded, timedOut int
	var total time.Duration
	for _, o := range outcomes {
		switch {
		case o.err == nil:
			succeeded++
			total += o.rtt
		case isTimeout(o.err):
			timedOut++
		}
	}

	if succeeded == len(outcomes) {
		return &Profile{
			Candidate: cand,
			Addrs:     addrs,
			RTT:       total / time.Duration(len(outcomes)),
		}, nil
	}

	if failed := len(outcomes) - succeeded; timedOut < failed {
		return nil, ErrOperational
	}
	if timedOut < len(outcomes) {
		return nil, ErrPartialTimeout
	}
	return nil, ErrTimeout
}

func hasPeerPort(peers []*net.UDPAddr, port int) bool {
	for _, p := range peers {
		if p.Port == port {
			return true
		}
	}
	return false
}

func isTimeout(err error) bool {
	if errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
