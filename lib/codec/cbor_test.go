// Copyright 2026 The Hearth Authors
// SPDX-License-Identifier: Apache-2.0

package codec

import (
	"bytes"
	"testing"
)

// sampleRequest is a representative control envelope type using cbor
// struct tags (the convention for purely-internal types).
type sampleRequest struct {
	Action  string `cbor:"action"`
	Payload []byte `cbor:"payload,omitempty"`
}

// sampleReport uses json struct tags (the convention for types that
// serve both CBOR transport and JSON display, relying on fxamacker's
// fallback).
type sampleReport struct {
	State  string `json:"state"`
	Uptime int64  `json:"uptime_seconds"`
}

func TestMarshalUnmarshalRoundtrip(t *testing.T) {
	original := sampleRequest{
		Action:  "status",
		Payload: []byte{0x01, 0x02},
	}

	data, err := Marshal(original)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	var decoded sampleRequest
	if err := Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}

	if decoded.Action != original.Action || !bytes.Equal(decoded.Payload, original.Payload) {
		t.Errorf("roundtrip mismatch: got %+v, want %+v", decoded, original)
	}
}

func TestMarshalDeterministic(t *testing.T) {
	message := map[string]int{"zebra": 1, "apple": 2, "mango": 3}

	first, err := Marshal(message)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	for range 10 {
		again, err := Marshal(message)
		if err != nil {
			t.Fatalf("Marshal: %v", err)
		}
		if !bytes.Equal(first, again) {
			t.Fatal("deterministic encoding produced differing bytes")
		}
	}
}

func TestJSONTagFallback(t *testing.T) {
	report := sampleReport{State: "confirmed", Uptime: 90}

	data, err := Marshal(report)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	// Decode into a generic map to observe the wire-level field names.
	var wire map[string]any
	if err := Unmarshal(data, &wire); err != nil {
		t.Fatalf("Unmarshal into map: %v", err)
	}
	if _, ok := wire["state"]; !ok {
		t.Errorf("json tag not honored for field naming: wire map %v", wire)
	}
	if _, ok := wire["uptime_seconds"]; !ok {
		t.Errorf("json tag not honored for field naming: wire map %v", wire)
	}
}

func TestDecodeIntoAnyUsesStringKeyedMaps(t *testing.T) {
	data, err := Marshal(map[string]any{"outer": map[string]any{"inner": 1}})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	var decoded any
	if err := Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}

	outer, ok := decoded.(map[string]any)
	if !ok {
		t.Fatalf("decoded type = %T, want map[string]any", decoded)
	}
	if _, ok := outer["outer"].(map[string]any); !ok {
		t.Fatalf("nested type = %T, want map[string]any", outer["outer"])
	}
}

func TestStreamEncoderDecoder(t *testing.T) {
	var buffer bytes.Buffer
	encoder := NewEncoder(&buffer)

	messages := []sampleRequest{
		{Action: "status"},
		{Action: "ping"},
	}
	for _, m := range messages {
		if err := encoder.Encode(m); err != nil {
			t.Fatalf("Encode: %v", err)
		}
	}

	decoder := NewDecoder(&buffer)
	for i, want := range messages {
		var got sampleRequest
		if err := decoder.Decode(&got); err != nil {
			t.Fatalf("Decode message %d: %v", i, err)
		}
		if got.Action != want.Action {
			t.Errorf("message %d: Action = %q, want %q", i, got.Action, want.Action)
		}
	}
}
