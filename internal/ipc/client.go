package ipc

import (
	"encoding/json"
	"fmt"
	"net"
)

// Client is a single-request-at-a-time connection to a mount daemon's
// daemon.sock.
type Client struct {
	conn net.Conn
	enc  *json.Encoder
	dec  *json.Decoder
}

// Dial connects to the daemon.sock at sockPath.
func Dial(sockPath string) (*Client, error) {
	conn, err := net.Dial("unix", sockPath)
	if err != nil {
		return nil, fmt.Errorf("connect to %s: %w", sockPath, err)
	}
	return &Client{conn: conn, enc: json.NewEncoder(conn), dec: json.NewDecoder(conn)}, nil
}

func (c *Client) Close() error { return c.conn.Close() }

// Call sends req and returns the daemon's Response.
func (c *Client) Call(req Request) (Response, error) {
	if err := c.enc.Encode(req); err != nil {
		return Response{}, err
	}
	var resp Response
	if err := c.dec.Decode(&resp); err != nil {
		return Response{}, err
	}
	return resp, nil
}
