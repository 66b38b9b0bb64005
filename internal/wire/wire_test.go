package wire

import (
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestMarshalUnmarshal_RoundTrip(t *testing.T) {
	e := Envelope{
		TypeName:   "Greeter",
		ActorID:    "actor-1",
		MethodName: "SayHello",
		Payload:    []byte(`{"name":"world"}`),
	}

	data := Marshal(e)
	got, err := Unmarshal(data)
	require.NoError(t, err)
	require.Equal(t, e, got)
}

func TestUnmarshal_EmptyPayload(t *testing.T) {
	e := Envelope{TypeName: "Greeter", ActorID: "a1", MethodName: "Ping"}
	got, err := Unmarshal(Marshal(e))
	require.NoError(t, err)
	require.Equal(t, "Greeter", got.TypeName)
	require.Empty(t, got.Payload)
}

func TestUnmarshal_Malformed(t *testing.T) {
	_, err := Unmarshal([]byte{0xff})
	require.ErrorIs(t, err, ErrMalformed)
}

func TestFrameConsumeFrame_RoundTrip(t *testing.T) {
	msg1 := []byte("hello")
	msg2 := []byte("world, a bit longer this time")

	stream := append(Frame(msg1), Frame(msg2)...)

	frame1, rest, err := ConsumeFrame(stream)
	require.NoError(t, err)
	require.Equal(t, msg1, frame1)

	frame2, rest, err := ConsumeFrame(rest)
	require.NoError(t, err)
	require.Equal(t, msg2, frame2)
	require.Empty(t, rest)
}

func TestConsumeFrame_Truncated(t *testing.T) {
	full := Frame([]byte("hello world"))
	_, _, err := ConsumeFrame(full[:len(full)-2])
	require.ErrorIs(t, err, ErrMalformed)
}

func TestEnvelope_RoundTripProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		e := Envelope{
			TypeName:   rapid.String().Draw(t, "typeName"),
			ActorID:    rapid.String().Draw(t, "actorID"),
			MethodName: rapid.String().Draw(t, "methodName"),
			Payload:    rapid.SliceOf(rapid.Byte()).Draw(t, "payload"),
		}

		got, err := Unmarshal(Marshal(e))
		require.NoError(t, err)
		require.Equal(t, e.TypeName, got.TypeName)
		require.Equal(t, e.ActorID, got.ActorID)
		require.Equal(t, e.MethodName, got.MethodName)
		require.Equal(t, e.Payload, got.Payload)
	})
}
