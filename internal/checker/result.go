package checker

import (
	"net"
	"time"

	"github.com/pradt2/always-online-torrent-trackers/internal/candidate"
)

// CheckError is the closed failure taxonomy for one candidate. Every
// lower-level cause folds into exactly one of these; a check yields either
// a Profile or one CheckError, never both.
type CheckError int

const (
	ErrDNSResolutionFailed CheckError = iota + 1
	ErrTimeout
	ErrPartialTimeout
	ErrOperational
)

var checkErrorNames = map[CheckError]string{
	ErrDNSResolutionFailed: "dns resolution failed",
	ErrTimeout:             "timeout",
	ErrPartialTimeout:      "partial timeout",
	ErrOperational:         "operational error",
}

func (e CheckError) Error() string {
	return checkErrorNames[e]
}

// Profile is the successful verdict for one candidate: every resolved
// address answered the probe, and RTT is the mean connect+announce latency
// across them.
type Profile struct {
	Candidate candidate.Candidate
	Addrs     []*net.UDPAddr
	RTT       time.Duration
}
