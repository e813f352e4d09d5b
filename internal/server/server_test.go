package server

import (
	"bytes"
	"context"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"github.com/ashlang/ashc/internal/cache"
	"github.com/ashlang/ashc/internal/compiler"
)

func startServer(t *testing.T, opts Options) *Client {
	t.Helper()
	srv, err := New(opts)
	if err != nil {
		t.Fatalf("failed to create server: %v", err)
	}
	lis := bufconn.Listen(1 << 20)
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatalf("failed to dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	client, err := NewClient(conn)
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}
	return client
}

func writeProject(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		"main.ash":       "let a = 3\nlet b = square(a)\n",
		"lib/square.ash": "(x)\nreturn x * x\n",
	}
	for name, contents := range files {
		path := filepath.Join(dir, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func TestCompileMatchesLibrary(t *testing.T) {
	dir := writeProject(t)
	entry := filepath.Join(dir, "main.ash")
	lib := filepath.Join(dir, "lib")

	comp := compiler.New(compiler.Options{})
	if err := comp.Include(lib); err != nil {
		t.Fatal(err)
	}
	want, err := comp.Compile(entry)
	if err != nil {
		t.Fatalf("library compile failed: %v", err)
	}

	var log bytes.Buffer
	client := startServer(t, Options{Log: &log})
	got, err := client.Compile(context.Background(), entry, []string{lib})
	if err != nil {
		t.Fatalf("rpc failed: %v", err)
	}
	if got.Asm != want {
		t.Errorf("artifact mismatch\n--- rpc ---\n%s\n--- library ---\n%s", got.Asm, want)
	}
	if got.Cached || len(got.Digest) != 64 {
		t.Errorf("unexpected result metadata %+v", got)
	}
	if !strings.Contains(log.String(), "[server] compile "+entry+": ok") {
		t.Errorf("request not logged: %q", log.String())
	}
}

func TestCompileUsesCache(t *testing.T) {
	store, err := cache.Open(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	dir := writeProject(t)
	entry := filepath.Join(dir, "main.ash")
	client := startServer(t, Options{Cache: store})

	first, err := client.Compile(context.Background(), entry, []string{dir})
	if err != nil {
		t.Fatalf("rpc failed: %v", err)
	}
	second, err := client.Compile(context.Background(), entry, []string{dir})
	if err != nil {
		t.Fatalf("rpc failed: %v", err)
	}
	if first.Cached || !second.Cached {
		t.Errorf("cached flags: first %v, second %v", first.Cached, second.Cached)
	}
	if first.Asm != second.Asm || first.Digest != second.Digest {
		t.Errorf("cached artifact differs")
	}
}

func TestCompileErrors(t *testing.T) {
	dir := writeProject(t)
	client := startServer(t, Options{})

	testCases := []struct {
		name    string
		entry   string
		include []string
		want    string
	}{
		{"no entry", "", nil, "entry is required"},
		{"missing include", filepath.Join(dir, "main.ash"), []string{filepath.Join(dir, "nope")}, "failed to stat include path"},
		{"unresolved function", filepath.Join(dir, "main.ash"), nil, "function not present in sources: square"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := client.Compile(context.Background(), tc.entry, tc.include)
			if err == nil {
				t.Fatal("expected error")
			}
			st, ok := status.FromError(err)
			if !ok || st.Code() != codes.InvalidArgument {
				t.Errorf("expected InvalidArgument, got %v", err)
			}
			if !strings.Contains(st.Message(), tc.want) {
				t.Errorf("error %q does not contain %q", st.Message(), tc.want)
			}
		})
	}
}
