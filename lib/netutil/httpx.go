// Copyright 2026 The Hearth Authors
// SPDX-License-Identifier: Apache-2.0

// Package netutil provides network and HTTP I/O utilities for Hearth.
//
// HTTP response helpers (ReadResponse, DecodeXML, ErrorBody) bound all
// response body reads at MaxResponseSize to prevent unbounded memory
// allocation from a misbehaving or malicious server. These are for API
// responses (the SNS Query API, public IP echo services), not for
// streaming responses, which should be read incrementally with io.Copy.
//
// Connection error helpers (IsExpectedCloseError) classify errors that
// occur during normal connection teardown on the control socket.
package netutil

import (
	"encoding/xml"
	"fmt"
	"io"
)

// MaxResponseSize is the bound on API response body reads: 16 MB. This
// exists solely to prevent a pathological response from exhausting
// system memory. Legitimate responses are orders of magnitude smaller;
// the limit is intentionally generous so that it never interferes with
// normal operation.
const MaxResponseSize int64 = 16 << 20

// ReadResponse reads an API response body up to MaxResponseSize bytes.
// Use instead of io.ReadAll when reading HTTP response bodies.
func ReadResponse(body io.Reader) ([]byte, error) {
	return io.ReadAll(io.LimitReader(body, MaxResponseSize))
}

// DecodeXML reads an API response body (up to MaxResponseSize bytes)
// and XML-decodes it into v. Replaces the common io.ReadAll +
// xml.Unmarshal pattern.
func DecodeXML(body io.Reader, v any) error {
	data, err := io.ReadAll(io.LimitReader(body, MaxResponseSize))
	if err != nil {
		return fmt.Errorf("reading response body: %w", err)
	}
	return xml.Unmarshal(data, v)
}

// ErrorBody reads an HTTP error response body and returns it as a
// string for diagnostic error messages. Read errors are silently
// ignored; a partial or empty body is still useful in an error
// message.
func ErrorBody(body io.Reader) string {
	data, _ := io.ReadAll(io.LimitReader(body, MaxResponseSize))
	return string(data)
}
