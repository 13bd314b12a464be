package udp

import (
	"context"
	"encoding/binary"
	"errors"
	"net"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testTimeout = 500 * time.Millisecond

// startFakeTracker binds a loopback UDP socket and answers every datagram
// through handle. Returning nil from handle drops the request.
func startFakeTracker(t *testing.T, handle func(req []byte, raddr *net.UDPAddr) []byte) (*net.UDPAddr, *atomic.Int32) {
	t.Helper()

	conn, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	var received atomic.Int32
	go func() {
		buf := make([]byte, 2048)
		for {
			n, raddr, err := conn.ReadFromUDP(buf)
			if err != nil {
				return
			}
			received.Add(1)
			if resp := handle(append([]byte(nil), buf[:n]...), raddr); resp != nil {
				_, _ = conn.WriteToUDP(resp, raddr)
			}
		}
	}()

	return conn.LocalAddr().(*net.UDPAddr), &received
}

func newTestSession(t *testing.T, trackerAddr *net.UDPAddr) *Session {
	t.Helper()
	conn, err := net.ListenUDP("udp4", nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return NewSession(conn, trackerAddr, testTimeout)
}

func connectReply(req []byte, connID int64) []byte {
	resp := make([]byte, 16)
	binary.BigEndian.PutUint32(resp[0:4], uint32(actionConnect))
	copy(resp[4:8], req[12:16]) // echo transaction id
	binary.BigEndian.PutUint64(resp[8:16], uint64(connID))
	return resp
}

func announceReply(req []byte, peers ...*net.UDPAddr) []byte {
	resp := make([]byte, 20+6*len(peers))
	binary.BigEndian.PutUint32(resp[0:4], uint32(actionAnnounce))
	copy(resp[4:8], req[12:16])                  // echo transaction id
	binary.BigEndian.PutUint32(resp[8:12], 1800) // interval
	binary.BigEndian.PutUint32(resp[12:16], 3)   // leechers
	binary.BigEndian.PutUint32(resp[16:20], 7)   // seeders
	for i, p := range peers {
		copy(resp[20+6*i:], p.IP.To4())
		binary.BigEndian.PutUint16(resp[24+6*i:], uint16(p.Port))
	}
	return resp
}

// A compliant fake: CONNECT gets a connection id, ANNOUNCE echoes the
// requester back as the only peer.
func fullHandshake(connID int64) func(req []byte, raddr *net.UDPAddr) []byte {
	return func(req []byte, raddr *net.UDPAddr) []byte {
		switch action(binary.BigEndian.Uint32(req[8:12])) {
		case actionConnect:
			return connectReply(req, connID)
		case actionAnnounce:
			return announceReply(req, raddr)
		default:
			return nil
		}
	}
}

func TestConnectAndAnnounce(t *testing.T) {
	addr, _ := startFakeTracker(t, fullHandshake(0x1122334455667788))
	sess := newTestSession(t, addr)

	require.False(t, sess.Connected())
	require.NoError(t, sess.Connect(context.Background()))
	assert.True(t, sess.Connected())

	resp, err := sess.Announce(context.Background(), AnnounceRequest{
		Event:   EventStarted,
		NumWant: -1,
		Port:    1234,
	})
	require.NoError(t, err)
	assert.Equal(t, 1800*time.Second, resp.Interval)
	assert.Equal(t, int32(3), resp.Leechers)
	assert.Equal(t, int32(7), resp.Seeders)
	require.Len(t, resp.Peers, 1)
	assert.Equal(t, "127.0.0.1", resp.Peers[0].IP.String())
}

func TestAnnounceTwice(t *testing.T) {
	addr, _ := startFakeTracker(t, fullHandshake(42))
	sess := newTestSession(t, addr)
	require.NoError(t, sess.Connect(context.Background()))

	_, err := sess.Announce(context.Background(), AnnounceRequest{Event: EventStarted, Port: 1234})
	require.NoError(t, err)
	_, err = sess.Announce(context.Background(), AnnounceRequest{Event: EventStopped, Port: 1234})
	require.NoError(t, err)
	assert.True(t, sess.Connected())
}

func TestAnnounceBeforeConnect(t *testing.T) {
	addr, received := startFakeTracker(t, fullHandshake(42))
	sess := newTestSession(t, addr)

	_, err := sess.Announce(context.Background(), AnnounceRequest{Event: EventStarted})
	assert.ErrorIs(t, err, ErrNotConnected)
	// The call must fail before anything touches the wire.
	assert.Equal(t, int32(0), received.Load())
}

func TestConnectWrongAction(t *testing.T) {
	addr, _ := startFakeTracker(t, func(req []byte, raddr *net.UDPAddr) []byte {
		return announceReply(req, raddr)
	})
	sess := newTestSession(t, addr)

	err := sess.Connect(context.Background())
	var perr *ProtocolError
	require.ErrorAs(t, err, &perr)
	assert.False(t, sess.Connected())
}

func TestConnectTransactionMismatch(t *testing.T) {
	addr, _ := startFakeTracker(t, func(req []byte, raddr *net.UDPAddr) []byte {
		resp := connectReply(req, 42)
		binary.BigEndian.PutUint32(resp[4:8], binary.BigEndian.Uint32(resp[4:8])+1)
		return resp
	})
	sess := newTestSession(t, addr)

	err := sess.Connect(context.Background())
	var perr *ProtocolError
	require.ErrorAs(t, err, &perr)
	assert.Contains(t, perr.Msg, "transaction id")
	assert.False(t, sess.Connected())
}

func TestTrackerErrorResponse(t *testing.T) {
	addr, _ := startFakeTracker(t, func(req []byte, raddr *net.UDPAddr) []byte {
		resp := make([]byte, 8+len("tracker offline"))
		binary.BigEndian.PutUint32(resp[0:4], uint32(actionError))
		copy(resp[4:8], req[12:16])
		copy(resp[8:], "tracker offline")
		return resp
	})
	sess := newTestSession(t, addr)

	err := sess.Connect(context.Background())
	var perr *ProtocolError
	require.ErrorAs(t, err, &perr)
	assert.Contains(t, perr.Msg, "tracker offline")
}

func TestConnectTimeout(t *testing.T) {
	addr, _ := startFakeTracker(t, func(req []byte, raddr *net.UDPAddr) []byte {
		return nil // swallow the request
	})
	conn, err := net.ListenUDP("udp4", nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	sess := NewSession(conn, addr, 100*time.Millisecond)

	start := time.Now()
	err = sess.Connect(context.Background())
	var ne net.Error
	require.ErrorAs(t, err, &ne)
	assert.True(t, ne.Timeout())
	assert.Less(t, time.Since(start), time.Second)
	assert.False(t, sess.Connected())
}

func TestConnectContextDeadline(t *testing.T) {
	addr, _ := startFakeTracker(t, func(req []byte, raddr *net.UDPAddr) []byte {
		return nil
	})
	sess := newTestSession(t, addr)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	err := sess.Connect(ctx)
	var ne net.Error
	require.ErrorAs(t, err, &ne)
	assert.True(t, ne.Timeout())
	assert.Less(t, time.Since(start), testTimeout)
}

func TestAnnounceMalformedPeerList(t *testing.T) {
	addr, _ := startFakeTracker(t, func(req []byte, raddr *net.UDPAddr) []byte {
		switch action(binary.BigEndian.Uint32(req[8:12])) {
		case actionConnect:
			return connectReply(req, 42)
		default:
			resp := announceReply(req)
			return append(resp, 0xde, 0xad, 0xbe) // trailing garbage
		}
	})
	sess := newTestSession(t, addr)
	require.NoError(t, sess.Connect(context.Background()))

	_, err := sess.Announce(context.Background(), AnnounceRequest{Event: EventStarted})
	var perr *ProtocolError
	require.ErrorAs(t, err, &perr)
}

func TestDecodePeers(t *testing.T) {
	data := []byte{
		127, 0, 0, 1, 0x1a, 0xe1, // 127.0.0.1:6881
		10, 0, 0, 2, 0x1b, 0x39, // 10.0.0.2:6969
	}
	peers, err := decodePeers(data, true)
	require.NoError(t, err)
	require.Len(t, peers, 2)
	assert.Equal(t, "127.0.0.1", peers[0].IP.String())
	assert.Equal(t, 6881, peers[0].Port)
	assert.Equal(t, 6969, peers[1].Port)

	_, err = decodePeers(data[:5], true)
	assert.Error(t, err)

	peers, err = decodePeers(nil, false)
	require.NoError(t, err)
	assert.Empty(t, peers)
}

func TestErrorActionNotRequested(t *testing.T) {
	// An ERROR reply is an application error, never silently ignored.
	addr, _ := startFakeTracker(t, func(req []byte, raddr *net.UDPAddr) []byte {
		switch action(binary.BigEndian.Uint32(req[8:12])) {
		case actionConnect:
			return connectReply(req, 42)
		default:
			resp := make([]byte, 8)
			binary.BigEndian.PutUint32(resp[0:4], uint32(actionError))
			copy(resp[4:8], req[12:16])
			return resp
		}
	})
	sess := newTestSession(t, addr)
	require.NoError(t, sess.Connect(context.Background()))

	_, err := sess.Announce(context.Background(), AnnounceRequest{Event: EventStarted})
	var perr *ProtocolError
	require.ErrorAs(t, err, &perr)
	assert.False(t, errors.Is(err, ErrNotConnected))
}
