package protocol

import "fmt"

// MagicCookie prefixes every message exchanged between server and client.
const MagicCookie uint32 = 0xabcddcba

// MessageType discriminates the three message kinds on the wire.
type MessageType uint8

const (
	OfferType   MessageType = 0x2
	RequestType MessageType = 0x3
	PayloadType MessageType = 0x4
)

// String returns a human-readable name for the message type
func (t MessageType) String() string {
	switch t {
	case OfferType:
		return "offer"
	case RequestType:
		return "request"
	case PayloadType:
		return "payload"
	default:
		return fmt.Sprintf("unknown(0x%x)", uint8(t))
	}
}

// Wire sizes in bytes.
const (
	HeaderSize        = 5                  // cookie (4) + type (1)
	OfferSize         = HeaderSize + 2 + 2 // udp port, tcp port
	RequestSize       = HeaderSize + 8     // file size
	PayloadHeaderSize = HeaderSize + 8 + 8 // total segments, current segment

	// MaxDatagramSize is the largest UDP payload an IPv4 datagram can carry.
	MaxDatagramSize = 65507
	// MaxSegmentPayload is the largest data region a Payload datagram can carry.
	MaxSegmentPayload = MaxDatagramSize - PayloadHeaderSize
)

// Message is implemented by Offer, Request and Payload.
type Message interface {
	Type() MessageType
}

// Offer advertises a server and the ports it serves transfers on.
type Offer struct {
	UDPPort uint16
	TCPPort uint16
}

// Request asks the server for FileSize bytes on the connection it arrives on.
type Request struct {
	FileSize uint64
}

// Payload is one segment of a UDP burst. Segment numbers are zero-based.
type Payload struct {
	TotalSegments uint64
	SegmentNumber uint64
	Data          []byte
}

func (Offer) Type() MessageType   { return OfferType }
func (Request) Type() MessageType { return RequestType }
func (Payload) Type() MessageType { return PayloadType }

var (
	_ Message = Offer{}
	_ Message = Request{}
	_ Message = Payload{}
)

// SegmentCount returns how many segments of at most segmentSize bytes are needed
// to carry fileSize bytes.
func SegmentCount(fileSize uint64, segmentSize int) uint64 {
	if segmentSize <= 0 {
		return 0
	}
	size := uint64(segmentSize)
	count := fileSize / size
	if fileSize%size != 0 {
		count++
	}
	return count
}

// SegmentLength returns the data length of segment number seq in a burst of
// fileSize bytes split into segmentSize chunks. The last segment may be short.
func SegmentLength(fileSize uint64, segmentSize int, seq uint64) int {
	size := uint64(segmentSize)
	start := seq * size
	if seq >= SegmentCount(fileSize, segmentSize) {
		return 0
	}
	if remaining := fileSize - start; remaining < size {
		return int(remaining)
	}
	return segmentSize
}
