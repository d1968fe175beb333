// Package posesidecar talks to the pose estimation sidecar, a local
// process serving one msgpack request per Unix socket connection.
package posesidecar

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/reactiontech/websa-api/internal/domain/entity"
	"github.com/vmihailenco/msgpack/v5"
)

type Client struct {
	socketPath string
	timeout    time.Duration
}

// InferenceRequest carries one RGB24 frame, row-major, shape (H, W, 3).
type InferenceRequest struct {
	Height int    `msgpack:"h"`
	Width  int    `msgpack:"w"`
	Data   []byte `msgpack:"d"`
}

// InferenceResponse holds 33 x,y,z triples flattened, or nothing when no
// person was found.
type InferenceResponse struct {
	Landmarks   []float32 `msgpack:"landmarks"`
	InferenceMs float32   `msgpack:"inference_ms"`
	Error       string    `msgpack:"error,omitempty"`
}

func NewClient(socketPath string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &Client{socketPath: socketPath, timeout: timeout}
}

func (c *Client) Detect(ctx context.Context, frame entity.Frame) ([]entity.Landmark, error) {
	if frame.Format != entity.PixelFormatRGB24 {
		return nil, fmt.Errorf("pose sidecar expects RGB24, got %s", frame.Format)
	}

	deadline := time.Now().Add(c.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	dialer := net.Dialer{Deadline: deadline}
	conn, err := dialer.DialContext(ctx, "unix", c.socketPath)
	if err != nil {
		return nil, fmt.Errorf("connect to pose sidecar: %w", err)
	}
	defer conn.Close()

	// unblock the read below if ctx is cancelled first
	stop := context.AfterFunc(ctx, func() { conn.SetDeadline(time.Now()) })
	defer stop()

	if err := conn.SetDeadline(deadline); err != nil {
		return nil, fmt.Errorf("set deadline: %w", err)
	}

	reqData, err := msgpack.Marshal(InferenceRequest{
		Height: frame.Height,
		Width:  frame.Width,
		Data:   frame.Pix,
	})
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	if _, err := conn.Write(reqData); err != nil {
		return nil, c.ioErr(ctx, "send request", err)
	}
	if uc, ok := conn.(*net.UnixConn); ok {
		_ = uc.CloseWrite()
	}

	respData, err := io.ReadAll(conn)
	if err != nil {
		return nil, c.ioErr(ctx, "read response", err)
	}

	var resp InferenceResponse
	if err := msgpack.Unmarshal(respData, &resp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if resp.Error != "" {
		return nil, fmt.Errorf("pose sidecar: %s", resp.Error)
	}

	return Landmarks(resp.Landmarks)
}

func (c *Client) ioErr(ctx context.Context, op string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	return fmt.Errorf("%s: %w", op, err)
}

// Landmarks groups a flat x,y,z list into landmarks.
func Landmarks(flat []float32) ([]entity.Landmark, error) {
	if len(flat)%3 != 0 {
		return nil, errors.New("landmark values are not x,y,z triples")
	}
	out := make([]entity.Landmark, len(flat)/3)
	for i := range out {
		out[i] = entity.Landmark{
			X: float64(flat[i*3]),
			Y: float64(flat[i*3+1]),
			Z: float64(flat[i*3+2]),
		}
	}
	return out, nil
}

// Ping checks that the sidecar socket accepts connections.
func (c *Client) Ping(ctx context.Context) error {
	dialer := net.Dialer{Timeout: c.timeout}
	conn, err := dialer.DialContext(ctx, "unix", c.socketPath)
	if err != nil {
		return fmt.Errorf("pose sidecar: %w", err)
	}
	return conn.Close()
}
