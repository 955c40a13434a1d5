// Copyright 2026 The Hearth Authors
// SPDX-License-Identifier: Apache-2.0

package control

import (
	"context"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/hearth-home/hearth/lib/codec"
)

// dialTimeout covers only the connect phase; the daemon accepts
// immediately when it is alive.
const dialTimeout = 5 * time.Second

// responseReadTimeout is how long the client waits for a response
// after writing its request. Matched to the server's read and write
// timeouts plus handler execution.
const responseReadTimeout = 45 * time.Second

// maxResponseSize matches the server's maxRequestSize for symmetry.
const maxResponseSize = 1024 * 1024

// CallError is returned by Call when the server answers ok=false.
type CallError struct {
	Action  string
	Message string
}

func (e *CallError) Error() string {
	return fmt.Sprintf("control: %q failed: %s", e.Action, e.Message)
}

// Client talks to a bridge control socket. Each Call opens a new
// connection, matching the server's one-request-per-connection model.
type Client struct {
	socketPath string
}

// Dial returns a client for the socket at path. No connection is made
// until Call.
func Dial(path string) *Client {
	return &Client{socketPath: path}
}

// Call sends one request and decodes the response.
//
// payload may be any CBOR-encodable value carrying action parameters,
// or nil for actions without any. On success, if result is non-nil and
// the response carries data, the data is decoded into result. A server
// ok=false answer returns *CallError; connection and encoding problems
// return plain errors.
func (c *Client) Call(ctx context.Context, action string, payload any, result any) error {
	request := Request{Action: action}
	if payload != nil {
		encoded, err := codec.Marshal(payload)
		if err != nil {
			return fmt.Errorf("control: encoding %q payload: %w", action, err)
		}
		request.Payload = encoded
	}

	response, err := c.send(ctx, request)
	if err != nil {
		return fmt.Errorf("control: calling %q on %s: %w", action, c.socketPath, err)
	}

	if !response.OK {
		return &CallError{Action: action, Message: response.Error}
	}

	if result != nil && len(response.Data) > 0 {
		if err := codec.Unmarshal(response.Data, result); err != nil {
			return fmt.Errorf("control: decoding %q response: %w", action, err)
		}
	}
	return nil
}

// send opens a fresh connection for one request-response exchange.
func (c *Client) send(ctx context.Context, request Request) (*Response, error) {
	dialer := net.Dialer{Timeout: dialTimeout}
	conn, err := dialer.DialContext(ctx, "unix", c.socketPath)
	if err != nil {
		return nil, fmt.Errorf("connecting: %w", err)
	}
	defer conn.Close()

	if err := codec.NewEncoder(conn).Encode(request); err != nil {
		return nil, fmt.Errorf("writing request: %w", err)
	}

	// Half-close the write side so the server's read sees EOF
	// cleanly if it reads past the request.
	if unixConn, ok := conn.(*net.UnixConn); ok {
		unixConn.CloseWrite()
	}

	conn.SetReadDeadline(time.Now().Add(responseReadTimeout))
	var response Response
	if err := codec.NewDecoder(io.LimitReader(conn, maxResponseSize)).Decode(&response); err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}
	return &response, nil
}
