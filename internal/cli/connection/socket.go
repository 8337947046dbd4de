package connection

import (
	"context"
	"errors"
	"strings"

	"github.com/yndnr/embedhttp/pkg/sockets"
	"github.com/yndnr/embedhttp/pkg/sockstream"
)

// EndOfReply is the line that terminates every admin reply.
const EndOfReply = "."

const errorPrefix = "error: "

// SocketClient runs commands on the server's admin socket.
type SocketClient struct {
	path   string
	sock   *sockets.Socket
	stream *sockstream.Stream
}

// NewSocketClient creates a client for the admin socket at socketPath.
func NewSocketClient(socketPath string) *SocketClient {
	return &SocketClient{path: socketPath}
}

// Connect connects to the admin socket.
func (c *SocketClient) Connect(ctx context.Context) error {
	sock := &sockets.Socket{}
	if err := sock.ConnectUnix(ctx, c.path); err != nil {
		return err
	}
	c.sock = sock
	c.stream = sockstream.New(sock, sockstream.WithOwnership(true))
	return nil
}

// Close closes the session.
func (c *SocketClient) Close() error {
	if c.stream == nil {
		return nil
	}
	err := c.stream.Close()
	c.stream, c.sock = nil, nil
	return err
}

// Execute sends cmd and returns the reply lines. An "error: ..." reply is
// returned as an error. Execute connects first when needed.
func (c *SocketClient) Execute(ctx context.Context, cmd string) ([]string, error) {
	if c.stream == nil {
		if err := c.Connect(ctx); err != nil {
			return nil, err
		}
	}
	sock := c.sock
	unwatch := context.AfterFunc(ctx, func() { _ = sock.Close() })
	defer unwatch()

	if _, err := c.stream.WriteString(cmd + "\n"); err != nil {
		return nil, err
	}
	if err := c.stream.Flush(); err != nil {
		return nil, ctxErr(ctx, err)
	}

	var lines []string
	for {
		line, err := c.stream.ReadLine()
		if err != nil {
			return nil, ctxErr(ctx, err)
		}
		if line == EndOfReply {
			break
		}
		lines = append(lines, line)
	}

	if len(lines) == 1 && strings.HasPrefix(lines[0], errorPrefix) {
		return nil, errors.New(strings.TrimPrefix(lines[0], errorPrefix))
	}
	return lines, nil
}

// ParseFields splits "key: value" reply lines into ordered pairs. Lines
// without a colon are skipped.
func ParseFields(lines []string) [][2]string {
	out := make([][2]string, 0, len(lines))
	for _, line := range lines {
		k, v, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		out = append(out, [2]string{strings.TrimSpace(k), strings.TrimSpace(v)})
	}
	return out
}
