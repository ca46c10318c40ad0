package service

import (
	"context"
	"fmt"

	"github.com/danielpatrickdp/argument-decoder/internal/frame"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/structpb"
)

// #region client-struct
// Client calls a remote decode service.
type Client struct {
	conn *grpc.ClientConn
	cc   grpc.ClientConnInterface
}

// #endregion client-struct

// #region constructor
// Dial connects to a decode service. Without options the connection is plaintext.
func Dial(addr string, opts ...grpc.DialOption) (*Client, error) {
	if len(opts) == 0 {
		opts = []grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}
	}
	conn, err := grpc.NewClient(addr, opts...)
	if err != nil {
		return nil, fmt.Errorf("grpc dial %s: %w", addr, err)
	}
	return &Client{conn: conn, cc: conn}, nil
}

// NewClientWithConn wraps an existing connection, which the caller closes.
func NewClientWithConn(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

// Close shuts down a connection opened by Dial.
func (c *Client) Close() error {
	if c.conn == nil {
		return nil
	}
	return c.conn.Close()
}

// #endregion constructor

// #region decode
// Decode sends instances for decoding and returns the server's mode and the
// per-instance results in input order.
func (c *Client) Decode(ctx context.Context, insts []*frame.Instance) (string, []RemoteResult, error) {
	req, err := encodeRequest(insts)
	if err != nil {
		return "", nil, err
	}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, decodeMethod, req, out); err != nil {
		return "", nil, fmt.Errorf("decode rpc: %w", err)
	}
	var resp response
	if err := fromStruct(out, &resp); err != nil {
		return "", nil, err
	}
	if len(resp.Results) != len(insts) {
		return "", nil, fmt.Errorf("decode rpc: %d results for %d instances", len(resp.Results), len(insts))
	}
	return resp.Mode, resp.Results, nil
}

// #endregion decode
