package protocol

import (
	"testing"

	"pgregory.net/rapid"
)

// TestMessageEnvelopeRoundTrip tests that any message survives an
// encode/decode cycle through the wire format.
func TestMessageEnvelopeRoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		original := &Message{
			Author:    rapid.String().Draw(t, "author"),
			Recipient: rapid.String().Draw(t, "recipient"),
			Body:      rapid.String().Draw(t, "body"),
			Time:      rapid.Int64().Draw(t, "time"),
		}

		env, err := NewEnvelope(TypeMessage, original)
		if err != nil {
			t.Fatalf("envelope failed: %v", err)
		}

		data, err := Encode(env)
		if err != nil {
			t.Fatalf("encode failed: %v", err)
		}

		decodedEnv, err := Decode(data)
		if err != nil {
			t.Fatalf("decode failed: %v", err)
		}

		decoded, err := DecodeMessage(decodedEnv)
		if err != nil {
			t.Fatalf("payload decode failed: %v", err)
		}

		if *decoded != *original {
			t.Fatalf("message mismatch: got %+v, want %+v", decoded, original)
		}
	})
}

// TestThreadKeySymmetric tests that both participants of a direct thread
// derive the same storage key.
func TestThreadKeySymmetric(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		a := rapid.StringMatching(`[a-z]{1,8}`).Draw(t, "a")
		b := rapid.StringMatching(`[a-z]{1,8}`).Draw(t, "b")

		sent := &Message{Author: a, Recipient: b}
		echoed := &Message{Author: b, Recipient: a}

		if sent.ThreadKey() != echoed.ThreadKey() {
			t.Fatalf("thread keys diverge: %q vs %q", sent.ThreadKey(), echoed.ThreadKey())
		}
	})
}
