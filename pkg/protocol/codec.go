package protocol

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

var (
	// ErrShortBuffer is returned when a buffer is too short for the header or
	// for the fixed body of its message type.
	ErrShortBuffer = errors.New("buffer too short")

	// ErrInvalidCookie is returned when a buffer does not start with MagicCookie.
	ErrInvalidCookie = errors.New("invalid magic cookie")

	// ErrUnknownType is returned for a valid cookie followed by an unknown type.
	ErrUnknownType = errors.New("unknown message type")

	// ErrUnexpectedType is returned by the typed decoders when the buffer holds
	// a valid message of a different kind.
	ErrUnexpectedType = errors.New("unexpected message type")

	// ErrNilMessage is returned by Encode for a nil message pointer.
	ErrNilMessage = errors.New("nil message")
)

// IsForeign reports whether err means the bytes were not protocol traffic at
// all. Callers drop such datagrams silently.
func IsForeign(err error) bool {
	return errors.Is(err, ErrShortBuffer) || errors.Is(err, ErrInvalidCookie)
}

// Encode serializes m in network byte order.
func Encode(m Message) ([]byte, error) {
	switch msg := m.(type) {
	case Offer:
		return EncodeOffer(msg), nil
	case *Offer:
		if msg == nil {
			return nil, ErrNilMessage
		}
		return EncodeOffer(*msg), nil
	case Request:
		return EncodeRequest(msg), nil
	case *Request:
		if msg == nil {
			return nil, ErrNilMessage
		}
		return EncodeRequest(*msg), nil
	case Payload:
		return EncodePayload(msg), nil
	case *Payload:
		if msg == nil {
			return nil, ErrNilMessage
		}
		return EncodePayload(*msg), nil
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnknownType, m)
	}
}

func putHeader(buf []byte, t MessageType) {
	binary.BigEndian.PutUint32(buf[0:4], MagicCookie)
	buf[4] = byte(t)
}

func EncodeOffer(o Offer) []byte {
	buf := make([]byte, OfferSize)
	putHeader(buf, OfferType)
	binary.BigEndian.PutUint16(buf[5:7], o.UDPPort)
	binary.BigEndian.PutUint16(buf[7:9], o.TCPPort)
	return buf
}

func EncodeRequest(r Request) []byte {
	buf := make([]byte, RequestSize)
	putHeader(buf, RequestType)
	binary.BigEndian.PutUint64(buf[5:13], r.FileSize)
	return buf
}

func EncodePayload(p Payload) []byte {
	buf := make([]byte, PayloadHeaderSize+len(p.Data))
	PutPayloadHeader(buf, p.TotalSegments, p.SegmentNumber)
	copy(buf[PayloadHeaderSize:], p.Data)
	return buf
}

// PutPayloadHeader writes a Payload header into the first PayloadHeaderSize
// bytes of buf. The server uses it to restamp one reusable datagram buffer
// for every segment of a burst.
func PutPayloadHeader(buf []byte, total, seq uint64) {
	putHeader(buf, PayloadType)
	binary.BigEndian.PutUint64(buf[5:13], total)
	binary.BigEndian.PutUint64(buf[13:21], seq)
}

// ParseHeader validates the cookie and returns the message type.
func ParseHeader(data []byte) (MessageType, error) {
	if len(data) < HeaderSize {
		return 0, fmt.Errorf("%w: got %d bytes, header needs %d", ErrShortBuffer, len(data), HeaderSize)
	}
	if cookie := binary.BigEndian.Uint32(data[0:4]); cookie != MagicCookie {
		return 0, fmt.Errorf("%w: 0x%08x", ErrInvalidCookie, cookie)
	}
	return MessageType(data[4]), nil
}

// Decode parses any of the three message kinds. Bytes after the fixed size of
// an Offer or Request are ignored. For a Payload, everything after the header
// is data; the returned Data aliases data.
func Decode(data []byte) (Message, error) {
	t, err := ParseHeader(data)
	if err != nil {
		return nil, err
	}

	switch t {
	case OfferType:
		if len(data) < OfferSize {
			return nil, fmt.Errorf("%w: offer needs %d bytes, got %d", ErrShortBuffer, OfferSize, len(data))
		}
		return Offer{
			UDPPort: binary.BigEndian.Uint16(data[5:7]),
			TCPPort: binary.BigEndian.Uint16(data[7:9]),
		}, nil
	case RequestType:
		if len(data) < RequestSize {
			return nil, fmt.Errorf("%w: request needs %d bytes, got %d", ErrShortBuffer, RequestSize, len(data))
		}
		return Request{FileSize: binary.BigEndian.Uint64(data[5:13])}, nil
	case PayloadType:
		if len(data) < PayloadHeaderSize {
			return nil, fmt.Errorf("%w: payload needs %d bytes, got %d", ErrShortBuffer, PayloadHeaderSize, len(data))
		}
		return Payload{
			TotalSegments: binary.BigEndian.Uint64(data[5:13]),
			SegmentNumber: binary.BigEndian.Uint64(data[13:21]),
			Data:          data[PayloadHeaderSize:],
		}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownType, t)
	}
}

// decodeAs checks the type before the body length, so a short message of
// the wrong kind is a protocol violation rather than foreign traffic.
func decodeAs(data []byte, want MessageType) (Message, error) {
	t, err := ParseHeader(data)
	if err != nil {
		return nil, err
	}
	if t != want {
		return nil, fmt.Errorf("%w: want %s, got %s", ErrUnexpectedType, want, t)
	}
	return Decode(data)
}

// DecodeOffer decodes data and requires it to be an Offer.
func DecodeOffer(data []byte) (Offer, error) {
	m, err := decodeAs(data, OfferType)
	if err != nil {
		return Offer{}, err
	}
	return m.(Offer), nil
}

// DecodeRequest decodes data and requires it to be a Request.
func DecodeRequest(data []byte) (Request, error) {
	m, err := decodeAs(data, RequestType)
	if err != nil {
		return Request{}, err
	}
	return m.(Request), nil
}

// DecodePayload decodes data and requires it to be a Payload.
func DecodePayload(data []byte) (Payload, error) {
	m, err := decodeAs(data, PayloadType)
	if err != nil {
		return Payload{}, err
	}
	return m.(Payload), nil
}

// ReadRequest reads exactly one Request from a stream.
func ReadRequest(r io.Reader) (Request, error) {
	buf := make([]byte, RequestSize)
	if _, err := io.ReadFull(r, buf); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return Request{}, fmt.Errorf("%w: incomplete request", ErrShortBuffer)
		}
		return Request{}, err
	}
	return DecodeRequest(buf)
}

// WriteMessage encodes m and writes it to w in a single call.
func WriteMessage(w io.Writer, m Message) error {
	buf, err := Encode(m)
	if err != nil {
		return err
	}
	_, err = w.Write(buf)
	return err
}
