package main

import (
	"fmt"
	"net"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/ashlang/ashc/internal/cache"
	"github.com/ashlang/ashc/internal/config"
	"github.com/ashlang/ashc/internal/server"
)

const defaultAddr = "localhost:7420"

type serveOptions struct {
	Addr   string
	Cache  string
	Policy string
}

func parseServeArgs(args []string) (*serveOptions, error) {
	opts := &serveOptions{Addr: defaultAddr, Policy: config.NamePolicyReject}
	for i := 0; i < len(args); i++ {
		name := args[i]
		if eq := strings.IndexByte(name, '='); eq >= 0 {
			name = name[:eq]
		}
		value, next, err := flagValue(args, i, name)
		if err != nil {
			return nil, err
		}
		switch name {
		case "--addr":
			opts.Addr = value
		case "--cache":
			opts.Cache = value
		case "--policy":
			opts.Policy = value
		default:
			return nil, fmt.Errorf("unknown flag %s", args[i])
		}
		i = next
	}
	if opts.Policy != config.NamePolicyReject && opts.Policy != config.NamePolicyShadow {
		return nil, fmt.Errorf("unknown name policy %q", opts.Policy)
	}
	return opts, nil
}

func runServe(opts *serveOptions) error {
	var store *cache.Cache
	if opts.Cache != "" {
		var err error
		store, err = cache.Open(opts.Cache)
		if err != nil {
			return err
		}
		defer store.Close()
	}

	srv, err := server.New(server.Options{Cache: store, NamePolicy: opts.Policy, Log: os.Stderr})
	if err != nil {
		return err
	}
	lis, err := net.Listen("tcp", opts.Addr)
	if err != nil {
		return err
	}

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigs
		srv.Stop()
	}()

	fmt.Fprintf(os.Stderr, "[server] listening on %s\n", lis.Addr())
	return srv.Serve(lis)
}
