// Package server exposes the compiler as a gRPC service. The service is
// defined by an embedded .proto file; messages are built dynamically from
// its descriptors, so no generated code is needed.
package server

import (
	"context"
	"fmt"
	"io"
	"net"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/types/dynamicpb"

	"github.com/ashlang/ashc/internal/cache"
	"github.com/ashlang/ashc/internal/compiler"
	"github.com/ashlang/ashc/internal/config"
)

// Server runs the compile service. Every request gets its own compiler;
// the artifact cache, when set, is shared.
type Server struct {
	schema *schema
	grpc   *grpc.Server
	cache  *cache.Cache
	policy string
	log    io.Writer
}

// Options configure a Server.
type Options struct {
	// Cache is optional.
	Cache      *cache.Cache
	NamePolicy string
	// Log receives one line per request; nil disables logging.
	Log io.Writer
}

// New creates a server with the compile service registered.
func New(opts Options) (*Server, error) {
	sc, err := loadSchema()
	if err != nil {
		return nil, err
	}
	s := &Server{
		schema: sc,
		grpc:   grpc.NewServer(),
		cache:  opts.Cache,
		policy: opts.NamePolicy,
		log:    opts.Log,
	}
	if s.policy == "" {
		s.policy = config.NamePolicyReject
	}

	sd := &grpc.ServiceDesc{
		ServiceName: ServiceName,
		HandlerType: (*interface{})(nil),
		Methods: []grpc.MethodDesc{{
			MethodName: compileName,
			Handler:    compileHandler,
		}},
		Streams:  []grpc.StreamDesc{},
		Metadata: sc.file.GetName(),
	}
	s.grpc.RegisterService(sd, s)
	return s, nil
}

func compileHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	s := srv.(*Server)
	in := dynamicpb.NewMessage(s.schema.request)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return s.compile(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: CompileMethod}
	return interceptor(ctx, in, info, func(ctx context.Context, req interface{}) (interface{}, error) {
		return s.compile(ctx, req.(*dynamicpb.Message))
	})
}

// Serve accepts connections on lis until Stop is called.
func (s *Server) Serve(lis net.Listener) error {
	return s.grpc.Serve(lis)
}

// Stop waits for in-flight requests and shuts down.
func (s *Server) Stop() {
	s.grpc.GracefulStop()
}

func (s *Server) compile(ctx context.Context, req *dynamicpb.Message) (*dynamicpb.Message, error) {
	start := time.Now()
	fields := req.Descriptor().Fields()
	entry := req.Get(fields.ByName("entry")).String()
	includeList := req.Get(fields.ByName("include")).List()

	if entry == "" {
		return nil, status.Error(codes.InvalidArgument, "entry is required")
	}
	if err := ctx.Err(); err != nil {
		return nil, status.FromContextError(err).Err()
	}

	comp := compiler.New(compiler.Options{NamePolicy: s.policy})
	for i := 0; i < includeList.Len(); i++ {
		path := includeList.Get(i).String()
		if err := comp.Include(path); err != nil {
			s.logf("compile %s: %v", entry, err)
			return nil, status.Error(codes.InvalidArgument, err.Error())
		}
	}

	res, err := s.cache.Compile(comp, entry)
	if err != nil {
		s.logf("compile %s: %v", entry, err)
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	s.logf("compile %s: ok digest=%s cached=%v (%s)", entry, res.Digest[:12], res.Cached, time.Since(start).Round(time.Microsecond))

	out := dynamicpb.NewMessage(s.schema.response)
	outFields := s.schema.response.Fields()
	out.Set(outFields.ByName("asm"), protoreflect.ValueOfString(res.Asm))
	out.Set(outFields.ByName("digest"), protoreflect.ValueOfString(res.Digest))
	out.Set(outFields.ByName("cached"), protoreflect.ValueOfBool(res.Cached))
	return out, nil
}

func (s *Server) logf(format string, args ...interface{}) {
	if s.log == nil {
		return
	}
	fmt.Fprintf(s.log, "[server] "+format+"\n", args...)
}
