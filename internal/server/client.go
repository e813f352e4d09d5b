package server

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/types/dynamicpb"

	"github.com/ashlang/ashc/internal/cache"
)

// Client calls a remote compile service.
type Client struct {
	conn   grpc.ClientConnInterface
	schema *schema
}

// NewClient wraps an established connection.
func NewClient(conn grpc.ClientConnInterface) (*Client, error) {
	sc, err := loadSchema()
	if err != nil {
		return nil, err
	}
	return &Client{conn: conn, schema: sc}, nil
}

// Compile asks the server to build entry after including the given paths.
// Paths are resolved on the server.
func (c *Client) Compile(ctx context.Context, entry string, include []string) (cache.Result, error) {
	req := dynamicpb.NewMessage(c.schema.request)
	fields := c.schema.request.Fields()
	req.Set(fields.ByName("entry"), protoreflect.ValueOfString(entry))
	list := req.Mutable(fields.ByName("include")).List()
	for _, path := range include {
		list.Append(protoreflect.ValueOfString(path))
	}

	resp := dynamicpb.NewMessage(c.schema.response)
	if err := c.conn.Invoke(ctx, CompileMethod, req, resp); err != nil {
		return cache.Result{}, err
	}
	out := c.schema.response.Fields()
	return cache.Result{
		Asm:    resp.Get(out.ByName("asm")).String(),
		Digest: resp.Get(out.ByName("digest")).String(),
		Cached: resp.Get(out.ByName("cached")).Bool(),
	}, nil
}
