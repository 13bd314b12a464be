package udp

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/fnv"
	"net"
	"time"
)

const DefaultTimeout = 5 * time.Second

// ErrNotConnected is returned by Announce when the CONNECT handshake has
// not completed on this session. No datagram is sent in that case.
var ErrNotConnected = errors.New("announce requires a connected session")

// ProtocolError is a tracker-level failure: the exchange completed on the
// wire but the reply violated the protocol or carried an ERROR action.
type ProtocolError struct {
	Op  string
	Msg string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("%s: %s", e.Op, e.Msg)
}

type AnnounceRequest struct {
	InfoHash   [20]byte
	PeerID     [20]byte
	Downloaded int64
	Left       int64
	Uploaded   int64
	Event      Event
	Key        uint32
	NumWant    int32
	Port       uint16
}

type AnnounceResponse struct {
	Interval time.Duration
	Leechers int32
	Seeders  int32
	Peers    []*net.UDPAddr
}

// Session drives the BEP-15 handshake against one tracker address over one
// dedicated local socket. A session lives for a single probe: connect once,
// announce one or more times, then drop it. The connection id is never
// reused across sessions. Not safe for concurrent use.
type Session struct {
	conn      *net.UDPConn
	addr      *net.UDPAddr
	timeout   time.Duration
	connID    int64
	connected bool
}

func NewSession(conn *net.UDPConn, addr *net.UDPAddr, timeout time.Duration) *Session {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Session{
		conn:    conn,
		addr:    addr,
		timeout: timeout,
	}
}

func (s *Session) Connected() bool {
	return s.connected
}

// Connect performs the CONNECT exchange and stores the connection id the
// tracker hands back. On any failure the session stays unconnected.
func (s *Session) Connect(ctx context.Context) error {
	txID := newTransactionID()
	packet, err := marshal(connectRequest{
		ProtocolID:    connectProtocolID,
		Action:        actionConnect,
		TransactionID: txID,
	})
	if err != nil {
		return err
	}

	reply, err := s.roundTrip(ctx, packet)
	if err != nil {
		return err
	}
	if err := validateReply("connect", reply, actionConnect, txID); err != nil {
		return err
	}

	var resp connectResponse
	if err := readFrom(bytes.NewReader(reply), &resp); err != nil {
		return &ProtocolError{Op: "connect", Msg: "response too short for connection id"}
	}

	s.connID = resp.ConnectionID
	s.connected = true
	return nil
}

// Announce performs one ANNOUNCE exchange using the current connection id.
// The session stays connected afterwards, so a probe can follow its
// "started" announce with a "stopped" one.
func (s *Session) Announce(ctx context.Context, req AnnounceRequest) (*AnnounceResponse, error) {
	if !s.connected {
		return nil, ErrNotConnected
	}

	txID := newTransactionID()
	packet, err := marshal(announceRequest{
		ConnectionID:  s.connID,
		Action:        actionAnnounce,
		TransactionID: txID,
		InfoHash:      req.InfoHash,
		PeerID:        req.PeerID,
		Downloaded:    req.Downloaded,
		Left:          req.Left,
		Uploaded:      req.Uploaded,
		Event:         req.Event,
		Key:           req.Key,
		NumWant:       req.NumWant,
		Port:          req.Port,
	})
	if err != nil {
		return nil, err
	}

	reply, err := s.roundTrip(ctx, packet)
	if err != nil {
		return nil, err
	}
	if err := validateReply("announce", reply, actionAnnounce, txID); err != nil {
		return nil, err
	}

	var hdr announceResponseHeader
	headerSize := binary.Size(hdr)
	if len(reply) < headerSize {
		return nil, &ProtocolError{Op: "announce", Msg: "response too short for announce header"}
	}
	if err := readFrom(bytes.NewReader(reply), &hdr); err != nil {
		return nil, &ProtocolError{Op: "announce", Msg: "malformed announce header"}
	}

	peers, err := decodePeers(reply[headerSize:], s.addr.IP.To4() != nil)
	if err != nil {
		return nil, &ProtocolError{Op: "announce", Msg: err.Error()}
	}

	return &AnnounceResponse{
		Interval: time.Duration(hdr.Interval) * time.Second,
		Leechers: hdr.Leechers,
		Seeders:  hdr.Seeders,
		Peers:    peers,
	}, nil
}

// roundTrip sends one request datagram and waits for one reply, bounded by
// the session timeout or the context deadline, whichever comes first. A
// partial send never happens for an in-range datagram, so it is promoted to
// a hard error instead of being retried.
func (s *Session) roundTrip(ctx context.Context, packet []byte) ([]byte, error) {
	n, err := s.conn.WriteToUDP(packet, s.addr)
	if err != nil {
		return nil, err
	}
	if n != len(packet) {
		return nil, fmt.Errorf("short write: sent %d of %d bytes", n, len(packet))
	}

	deadline := time.Now().Add(s.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := s.conn.SetReadDeadline(deadline); err != nil {
		return nil, err
	}

	buf := make([]byte, maxPacketSize)
	n, _, err = s.conn.ReadFromUDP(buf)
	if err != nil {
		return nil, err
	}
	if n == len(buf) {
		return nil, fmt.Errorf("response exceeds %d bytes", maxPacketSize)
	}
	return buf[:n], nil
}

var actionNames = map[action]string{
	actionConnect:  "connect",
	actionAnnounce: "announce",
	actionScrape:   "scrape",
	actionError:    "error",
}

// validateReply decodes the common response header and rejects replies whose
// action or transaction id does not match the pending request.
func validateReply(op string, reply []byte, want action, txID int32) error {
	var hdr responseHeader
	if err := readFrom(bytes.NewReader(reply), &hdr); err != nil {
		return &ProtocolError{Op: op, Msg: "response too short for header"}
	}
	if hdr.Action == actionError && want != actionError {
		msg := string(reply[binary.Size(hdr):])
		return &ProtocolError{Op: op, Msg: fmt.Sprintf("tracker error: %q", msg)}
	}
	if hdr.Action != want {
		return &ProtocolError{Op: op, Msg: fmt.Sprintf("expected %s response, got %s", actionNames[want], actionNames[hdr.Action])}
	}
	if hdr.TransactionID != txID {
		return &ProtocolError{Op: op, Msg: "transaction id mismatch"}
	}
	return nil
}

// decodePeers parses the compact peer list: ip+port entries, 6 bytes each
// over IPv4 and 18 over IPv6.
func decodePeers(data []byte, v4 bool) ([]*net.UDPAddr, error) {
	ipLen := net.IPv6len
	if v4 {
		ipLen = net.IPv4len
	}
	stride := ipLen + 2

	if len(data)%stride != 0 {
		return nil, fmt.Errorf("peer list length %d is not a multiple of %d", len(data), stride)
	}

	peers := make([]*net.UDPAddr, 0, len(data)/stride)
	for i := 0; i < len(data); i += stride {
		ip := make(net.IP, ipLen)
		copy(ip, data[i:i+ipLen])
		port := binary.BigEndian.Uint16(data[i+ipLen : i+stride])
		peers = append(peers, &net.UDPAddr{IP: ip, Port: int(port)})
	}
	return peers, nil
}

// Transaction ids only correlate replies with requests on one socket.
// Nothing depends on them being unpredictable, so a hash of the clock is
// enough; do not swap this for a CSPRNG.
func newTransactionID() int32 {
	h := fnv.New64a()
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], uint64(time.Now().UnixNano()))
	h.Write(b[:])
	return int32(uint32(h.Sum64()))
}
