package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"datalens/internal/runtime"
)

func usage() {
	fmt.Fprintf(os.Stderr, `usage: runtimectl <command> [flags]

commands:
  check   -interpreter python3
  start   -name NAME -interpreter python3 -script PATH [-dir DIR] -port N
  stop    -name NAME
  status  -name NAME
  list
  health  -name NAME [-timeout 3s]
`)
	os.Exit(2)
}

func main() {
	if len(os.Args) < 2 {
		usage()
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	mgr := runtime.NewManager(logger)

	cmd := os.Args[1]
	fs := flag.NewFlagSet(cmd, flag.ExitOnError)
	name := fs.String("name", "", "process name")
	interpreter := fs.String("interpreter", "python3", "interpreter binary")
	script := fs.String("script", "", "script path")
	dir := fs.String("dir", "", "working directory")
	port := fs.Int("port", 0, "service port")
	timeout := fs.Duration("timeout", 3*time.Second, "health check timeout")
	fs.Parse(os.Args[2:])

	switch cmd {
	case "check":
		path, err := mgr.CheckRuntime(*interpreter)
		if err != nil {
			fatal("runtime check failed", err)
		}
		fmt.Printf("%s: %s\n", *interpreter, path)

	case "start":
		if *name == "" || *script == "" || *port == 0 {
			usage()
		}
		info, err := mgr.Start(*name, *interpreter, *script, *dir, *port)
		if err != nil {
			fatal("start failed", err)
		}
		printJSON(info)

	case "stop":
		if *name == "" {
			usage()
		}
		if err := mgr.Stop(*name); err != nil {
			fatal("stop failed", err)
		}

	case "status":
		if *name == "" {
			usage()
		}
		info, err := mgr.Status(*name)
		if err != nil {
			fatal("status failed", err)
		}
		printJSON(info)

	case "list":
		printJSON(mgr.List())

	case "health":
		if *name == "" {
			usage()
		}
		ctx, cancel := context.WithTimeout(context.Background(), *timeout)
		defer cancel()
		if err := mgr.Health(ctx, *name); err != nil {
			fatal("health check failed", err)
		}
		fmt.Println("healthy")

	default:
		usage()
	}
}

func fatal(msg string, err error) {
	slog.Error(msg, slog.String("error", err.Error()))
	os.Exit(1)
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fatal("encode failed", err)
	}
}
