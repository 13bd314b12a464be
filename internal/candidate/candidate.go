package candidate

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Transport is the announce transport of a tracker endpoint.
type Transport int

const (
	TransportUDP Transport = iota
	TransportHTTP
	TransportHTTPS
)

var transportNames = [...]string{
	"udp",
	"http",
	"https",
}

func (t Transport) String() string {
	return transportNames[t]
}

func ParseTransport(s string) (Transport, error) {
	switch s {
	case "udp":
		return TransportUDP, nil
	case "http":
		return TransportHTTP, nil
	case "https":
		return TransportHTTPS, nil
	default:
		return 0, fmt.Errorf("unknown transport %q", s)
	}
}

var (
	ErrBadFormat = errors.New("expected transport://host:port[/suffix]")
	ErrBadPort   = errors.New("port is not a 16-bit number")
)

// Candidate identifies one tracker endpoint, not yet resolved.
// The suffix is only meaningful for HTTP(S) announce URLs; it is carried
// verbatim so cleaning a list does not lose it.
type Candidate struct {
	Transport Transport
	Host      string
	Port      uint16
	Suffix    string
}

// String renders the canonical form, e.g. "udp://tracker.example.org:6969".
// Candidates are ordered lexicographically on this form.
func (c Candidate) String() string {
	return fmt.Sprintf("%s://%s:%d%s", c.Transport, c.Host, c.Port, c.Suffix)
}

// Parse reads the canonical form back into a Candidate.
func Parse(s string) (Candidate, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 3 {
		return Candidate{}, ErrBadFormat
	}

	transport, err := ParseTransport(parts[0])
	if err != nil {
		return Candidate{}, err
	}

	host, ok := strings.CutPrefix(parts[1], "//")
	if !ok || host == "" {
		return Candidate{}, ErrBadFormat
	}

	portStr, suffix := parts[2], ""
	if i := strings.IndexByte(portStr, '/'); i >= 0 {
		portStr, suffix = portStr[:i], portStr[i:]
	}

	port, err := strconv.ParseUint(portStr, 10, 16)
	if err != nil {
		return Candidate{}, ErrBadPort
	}

	return Candidate{
		Transport: transport,
		Host:      host,
		Port:      uint16(port),
		Suffix:    suffix,
	}, nil
}
