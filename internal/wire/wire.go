// Package wire implements the length-delimited TLV envelope used to frame
// dispatch requests and stream events on the cluster transport. Framing
// rides on google.golang.org/protobuf/encoding/protowire's varint and
// length-delimited primitives rather than a bespoke encoding.
package wire

import (
	"errors"
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

// Field numbers for the envelope's tagged fields. The envelope is not a
// protobuf message; protowire is used purely as a grounded varint/TLV
// codec, tag numbers just disambiguate fields in a flat byte stream.
const (
	fieldTypeName   = protowire.Number(1)
	fieldActorID    = protowire.Number(2)
	fieldMethodName = protowire.Number(3)
	fieldPayload    = protowire.Number(4)
)

// ErrMalformed indicates the input bytes are not a valid Envelope encoding.
var ErrMalformed = errors.New("wire: malformed envelope")

// Envelope is the on-the-wire representation of one dispatch call: the
// target actor's identity, the method being invoked, and the opaque,
// already-serialized argument payload.
type Envelope struct {
	TypeName   string
	ActorID    string
	MethodName string
	Payload    []byte
}

// Marshal encodes e as a sequence of length-delimited TLV fields.
func Marshal(e Envelope) []byte {
	var buf []byte
	buf = protowire.AppendTag(buf, fieldTypeName, protowire.BytesType)
	buf = protowire.AppendString(buf, e.TypeName)
	buf = protowire.AppendTag(buf, fieldActorID, protowire.BytesType)
	buf = protowire.AppendString(buf, e.ActorID)
	buf = protowire.AppendTag(buf, fieldMethodName, protowire.BytesType)
	buf = protowire.AppendString(buf, e.MethodName)
	buf = protowire.AppendTag(buf, fieldPayload, protowire.BytesType)
	buf = protowire.AppendBytes(buf, e.Payload)
	return buf
}

// Unmarshal decodes an Envelope previously produced by Marshal. Unknown
// fields are skipped for forward compatibility; any other decoding failure
// returns ErrMalformed.
func Unmarshal(data []byte) (Envelope, error) {
	var e Envelope

	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return Envelope{}, fmt.Errorf("%w: %v", ErrMalformed, protowire.ParseError(n))
		}
		data = data[n:]

		if typ != protowire.BytesType {
			skip := protowire.ConsumeFieldValue(num, typ, data)
			if skip < 0 {
				return Envelope{}, fmt.Errorf("%w: %v", ErrMalformed, protowire.ParseError(skip))
			}
			data = data[skip:]
			continue
		}

		val, n := protowire.ConsumeBytes(data)
		if n < 0 {
			return Envelope{}, fmt.Errorf("%w: %v", ErrMalformed, protowire.ParseError(n))
		}
		data = data[n:]

		switch num {
		case fieldTypeName:
			e.TypeName = string(val)
		case fieldActorID:
			e.ActorID = string(val)
		case fieldMethodName:
			e.MethodName = string(val)
		case fieldPayload:
			e.Payload = append([]byte(nil), val...)
		}
	}

	return e, nil
}

// Frame prefixes data with its own varint-encoded length, for use on
// streaming transports (TCP, pipes) that need explicit message boundaries.
func Frame(data []byte) []byte {
	buf := protowire.AppendVarint(nil, uint64(len(data)))
	return append(buf, data...)
}

// ConsumeFrame strips and returns the next length-prefixed message from
// data, along with the remaining, unconsumed bytes. It returns ErrMalformed
// if data doesn't begin with a complete frame.
func ConsumeFrame(data []byte) (frame, rest []byte, err error) {
	size, n := protowire.ConsumeVarint(data)
	if n < 0 {
		return nil, nil, fmt.Errorf("%w: %v", ErrMalformed, protowire.ParseError(n))
	}
	data = data[n:]

	if uint64(len(data)) < size {
		return nil, nil, fmt.Errorf("%w: truncated frame", ErrMalformed)
	}

	return data[:size], data[size:], nil
}
