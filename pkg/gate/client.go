package gate

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"
)

// DefaultTimeout bounds a whole version query
const DefaultTimeout = 10 * time.Second

// request fields sent by the game client
const (
	requestState    = 21
	requestPlatform = "0"
)

// Client queries one gate server
type Client struct {
	Addr    string
	Timeout time.Duration

	dialer net.Dialer
}

// NewClient creates a client for host:port
func NewClient(host string, port int) *Client {
	return &Client{
		Addr:    net.JoinHostPort(host, strconv.Itoa(port)),
		Timeout: DefaultTimeout,
	}
}

// QueryVersions sends a version request and returns the raw version
// strings of the response
func (c *Client) QueryVersions(ctx context.Context) ([]string, error) {
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	conn, err := c.dialer.DialContext(ctx, "tcp", c.Addr)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to gate server: %w", err)
	}
	defer conn.Close()

	resp, err := Exchange(ctx, conn)
	if err != nil {
		return nil, err
	}
	return resp.Versions, nil
}

// Exchange performs the version request/response exchange on conn.
// Cancelling ctx unblocks pending reads and writes.
func Exchange(ctx context.Context, conn net.Conn) (VersionResponse, error) {
	stop := context.AfterFunc(ctx, func() {
		conn.SetDeadline(time.Unix(1, 0))
	})
	defer stop()

	req := Frame{
		Command: CmdVersionRequest,
		Payload: VersionRequest{State: requestState, Platform: requestPlatform}.Marshal(),
	}
	if err := WriteFrame(conn, req); err != nil {
		return VersionResponse{}, err
	}

	frame, err := ReadFrame(conn)
	if err != nil {
		if ctx.Err() != nil {
			return VersionResponse{}, ctx.Err()
		}
		return VersionResponse{}, err
	}
	if frame.Command != CmdVersionResponse {
		return VersionResponse{}, fmt.Errorf("unexpected command %d in response", frame.Command)
	}
	return UnmarshalVersionResponse(frame.Payload)
}
