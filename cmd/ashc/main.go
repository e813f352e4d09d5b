package main

import (
	"fmt"
	"os"
)

const usage = `Usage:
  ashc [build] <entry.ash> [-i path]... [-o out.tasm] [--print] [--config ash.yaml]
                           [--cache db] [--policy reject|shadow] [--remote host:port]
  ashc serve [--addr host:port] [--cache db] [--policy reject|shadow]
  ashc clean --cache db
  ashc help

Without an entry, build reads ash.yaml from the current directory or its parents.
`

func handleHelp() bool {
	if len(os.Args) < 2 {
		return false
	}
	switch os.Args[1] {
	case "help", "-help", "--help", "-h":
		fmt.Print(usage)
		return true
	}
	return false
}

func handleServe() bool {
	if len(os.Args) < 2 || os.Args[1] != "serve" {
		return false
	}
	opts, err := parseServeArgs(os.Args[2:])
	if err != nil {
		fail(err)
	}
	if err := runServe(opts); err != nil {
		fail(err)
	}
	return true
}

func handleClean() bool {
	if len(os.Args) < 2 || os.Args[1] != "clean" {
		return false
	}
	opts, err := parseBuildArgs(os.Args[2:])
	if err != nil {
		fail(err)
	}
	if err := runClean(opts); err != nil {
		fail(err)
	}
	return true
}

func handleBuild() {
	args := os.Args[1:]
	if len(args) > 0 && args[0] == "build" {
		args = args[1:]
	}
	opts, err := parseBuildArgs(args)
	if err != nil {
		fail(err)
	}
	if err := runBuild(opts, os.Stdout); err != nil {
		fail(err)
	}
}

// fail prints err and exits with status 1.
func fail(err error) {
	fmt.Fprintf(os.Stderr, "%s %s\n", red("Error:"), err)
	os.Exit(1)
}

func main() {
	defer func() {
		if r := recover(); r != nil {
			if os.Getenv("DEBUG") == "1" {
				panic(r)
			}
			fmt.Fprintf(os.Stderr, "Internal error: %v\n", r)
			fmt.Fprintln(os.Stderr, "This is a bug. Please report it.")
			os.Exit(1)
		}
	}()

	if handleHelp() {
		return
	}
	if handleServe() {
		return
	}
	if handleClean() {
		return
	}
	handleBuild()
}
