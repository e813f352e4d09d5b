package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/ashlang/ashc/internal/cache"
	"github.com/ashlang/ashc/internal/compiler"
	"github.com/ashlang/ashc/internal/config"
	"github.com/ashlang/ashc/internal/server"
)

// buildOptions are the build flags after merging in ash.yaml.
type buildOptions struct {
	Entry   string
	Include []string
	Output  string
	Print   bool
	Config  string
	Cache   string
	Policy  string
	Remote  string
}

// flagValue returns the value of a flag that takes an argument, accepting
// both "-o out" and "-o=out".
func flagValue(args []string, i int, name string) (string, int, error) {
	if eq := strings.IndexByte(args[i], '='); eq >= 0 {
		return args[i][eq+1:], i, nil
	}
	if i+1 >= len(args) {
		return "", i, fmt.Errorf("flag %s needs a value", name)
	}
	return args[i+1], i + 1, nil
}

func parseBuildArgs(args []string) (*buildOptions, error) {
	opts := &buildOptions{}
	for i := 0; i < len(args); i++ {
		arg := args[i]
		name := arg
		if eq := strings.IndexByte(arg, '='); eq >= 0 {
			name = arg[:eq]
		}

		var (
			value string
			err   error
		)
		switch name {
		case "--print", "-print":
			opts.Print = true
			continue
		case "-i", "--include", "-o", "--output", "--config", "--cache", "--policy", "--remote":
			value, i, err = flagValue(args, i, name)
			if err != nil {
				return nil, err
			}
		default:
			if strings.HasPrefix(arg, "-") {
				return nil, fmt.Errorf("unknown flag %s", arg)
			}
			if opts.Entry != "" {
				return nil, fmt.Errorf("unexpected argument %s: entry already set to %s", arg, opts.Entry)
			}
			opts.Entry = arg
			continue
		}

		switch name {
		case "-i", "--include":
			opts.Include = append(opts.Include, value)
		case "-o", "--output":
			opts.Output = value
		case "--config":
			opts.Config = value
		case "--cache":
			opts.Cache = value
		case "--policy":
			opts.Policy = value
		case "--remote":
			opts.Remote = value
		}
	}
	return opts, nil
}

// applyProject fills unset options from ash.yaml: the one named by --config,
// or the nearest one when no entry was given.
func applyProject(opts *buildOptions) error {
	path := opts.Config
	if path == "" && opts.Entry == "" {
		wd, err := os.Getwd()
		if err != nil {
			return err
		}
		path, err = config.FindProject(wd)
		if err != nil {
			return err
		}
		if path == "" {
			return fmt.Errorf("no entry file given and no %s found", config.ProjectFileNames[0])
		}
	}

	if path != "" {
		project, err := config.LoadProject(path)
		if err != nil {
			return err
		}
		if opts.Entry == "" {
			opts.Entry = project.EntryPath()
		}
		if len(opts.Include) == 0 {
			opts.Include = project.IncludePaths()
		}
		if opts.Output == "" {
			opts.Output = project.Resolve(project.Output)
		}
		if opts.Cache == "" {
			opts.Cache = project.Resolve(project.Cache)
		}
		if opts.Policy == "" {
			opts.Policy = project.NamePolicy
		}
		opts.Print = opts.Print || project.PrintAsm
	}

	if opts.Entry == "" {
		return fmt.Errorf("no entry file given")
	}
	if len(opts.Include) == 0 {
		opts.Include = []string{filepath.Dir(opts.Entry)}
	}
	if opts.Policy == "" {
		opts.Policy = config.NamePolicyReject
	}
	if opts.Policy != config.NamePolicyReject && opts.Policy != config.NamePolicyShadow {
		return fmt.Errorf("unknown name policy %q", opts.Policy)
	}
	return nil
}

func runBuild(opts *buildOptions, stdout io.Writer) error {
	if err := applyProject(opts); err != nil {
		return err
	}

	var (
		res cache.Result
		err error
	)
	if opts.Remote != "" {
		res, err = buildRemote(opts)
	} else {
		res, err = buildLocal(opts)
	}
	if err != nil {
		return err
	}

	if opts.Output == "" {
		_, err := fmt.Fprintln(stdout, res.Asm)
		return err
	}
	if opts.Print {
		fmt.Fprintln(stdout, res.Asm)
	}
	if err := os.MkdirAll(filepath.Dir(opts.Output), 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}
	if err := os.WriteFile(opts.Output, []byte(res.Asm+"\n"), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", opts.Output, err)
	}
	return nil
}

func buildLocal(opts *buildOptions) (cache.Result, error) {
	comp := compiler.New(compiler.Options{NamePolicy: opts.Policy})
	for _, path := range opts.Include {
		if err := comp.Include(path); err != nil {
			return cache.Result{}, err
		}
	}

	var store *cache.Cache
	if opts.Cache != "" {
		var err error
		store, err = cache.Open(opts.Cache)
		if err != nil {
			return cache.Result{}, err
		}
		defer store.Close()
	}
	return store.Compile(comp, opts.Entry)
}

func buildRemote(opts *buildOptions) (cache.Result, error) {
	conn, err := grpc.NewClient(opts.Remote, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return cache.Result{}, fmt.Errorf("connecting to %s: %w", opts.Remote, err)
	}
	defer conn.Close()

	client, err := server.NewClient(conn)
	if err != nil {
		return cache.Result{}, err
	}

	entry, include, err := remotePaths(opts)
	if err != nil {
		return cache.Result{}, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	return client.Compile(ctx, entry, include)
}

// remotePaths makes the entry and include paths absolute, since the server
// resolves them against its own working directory.
func remotePaths(opts *buildOptions) (string, []string, error) {
	entry, err := filepath.Abs(opts.Entry)
	if err != nil {
		return "", nil, fmt.Errorf("resolving %s: %w", opts.Entry, err)
	}
	include := make([]string, 0, len(opts.Include))
	for _, path := range opts.Include {
		abs, err := filepath.Abs(path)
		if err != nil {
			return "", nil, fmt.Errorf("resolving %s: %w", path, err)
		}
		include = append(include, abs)
	}
	return entry, include, nil
}

func runClean(opts *buildOptions) error {
	if opts.Cache == "" {
		return fmt.Errorf("clean needs --cache")
	}
	store, err := cache.Open(opts.Cache)
	if err != nil {
		return err
	}
	defer store.Close()
	return store.Clean()
}
