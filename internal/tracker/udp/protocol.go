package udp

import (
	"bytes"
	"encoding/binary"
	"io"
)

// UDP tracker protocol action type
type action int32

const (
	actionConnect  action = 0
	actionAnnounce action = 1
	actionScrape   action = 2
	actionError    action = 3
)

// Magic connection id carried by every CONNECT request.
const connectProtocolID uint64 = 0x41727101980

// Largest datagram this client will accept. A reply that fills the whole
// buffer cannot be told apart from a truncated one and is rejected.
const maxPacketSize = 1024

// Announce event codes.
type Event int32

const (
	EventNone Event = iota
	EventCompleted
	EventStarted
	EventStopped
)

var eventNames = [...]string{
	"empty",
	"completed",
	"started",
	"stopped",
}

func (e Event) String() string {
	return eventNames[e]
}

type connectRequest struct {
	ProtocolID    uint64
	Action        action
	TransactionID int32
} // 16 bytes

type connectResponse struct {
	Action        action
	TransactionID int32
	ConnectionID  int64
} // 16 bytes

type announceRequest struct {
	ConnectionID  int64
	Action        action
	TransactionID int32
	InfoHash      [20]byte
	PeerID        [20]byte
	Downloaded    int64
	Left          int64
	Uploaded      int64
	Event         Event
	IP            uint32
	Key           uint32
	NumWant       int32
	Port          uint16
} // 98 bytes

type announceResponseHeader struct {
	Action        action
	TransactionID int32
	Interval      int32
	Leechers      int32
	Seeders       int32
} // 20 bytes

type responseHeader struct {
	Action        action
	TransactionID int32
} // 8 bytes

func marshal(data interface{}) ([]byte, error) {
	var buf bytes.Buffer
	err := writeTo(&buf, data)
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeTo(w io.Writer, data interface{}) error {
	return binary.Write(w, binary.BigEndian, data)
}

func readFrom(r io.Reader, data interface{}) error {
	return binary.Read(r, binary.BigEndian, data)
}
