package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/brbranch/websearch_mcp/internal/bootstrap"
	"github.com/brbranch/websearch_mcp/internal/log"
	"github.com/brbranch/websearch_mcp/internal/model"
	"github.com/brbranch/websearch_mcp/internal/transport/http"
	"github.com/brbranch/websearch_mcp/internal/transport/stdio"
)

// ビルド時変数（-ldflags で変更可能）
var (
	defaultTransport = model.TransportStdio
	version          = "dev"
)

// Options はserveコマンドの引数オプション
type Options struct {
	Transport  string
	Host       string
	Port       int
	ConfigPath string
}

func main() {
	var err error

	// 引数なしの場合はserveをデフォルト実行
	if len(os.Args) < 2 {
		err = run([]string{})
	} else {
		switch os.Args[1] {
		case "serve":
			err = run(os.Args[1:])
		case "search":
			err = runSearchCmd(os.Args[2:], os.Stdin, os.Stdout)
		case "oneshot":
			err = runOneshotCmd(os.Args[2:], os.Stdin, os.Stdout)
		case "version", "-v", "--version":
			printVersion(os.Stdout)
			return
		case "help", "-h", "--help":
			printUsage(os.Stdout)
			return
		default:
			fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", os.Args[1])
			printUsage(os.Stderr)
			os.Exit(1)
		}
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, `mcp-websearch - Local MCP Web Search & Memory Server

Usage:
  mcp-websearch <command> [options]

Commands:
  serve     Start the MCP server (stdio or HTTP)
  search    Search the web and extract facts (oneshot command)
  oneshot   Read one JSON request from stdin and write one JSON response
  version   Print version information
  help      Print this help message

Serve Options:
  -t, --transport string   Transport type: stdio, http (default: stdio)
  --host string            HTTP host (default: 127.0.0.1)
  -p, --port int           HTTP port (default: 8765)
  -c, --config string      Config file path

Search Options:
  -k, --top-k int          Number of results, 1-3 (default: 3)
  -f, --format string      Output format: text, json (default: text)
  -c, --config string      Config file path
  --stdin                  Read query from stdin

Oneshot Request:
  {"query": "...", "top_k": 3}   ("q" and "limit" are accepted as aliases)

Examples:
  mcp-websearch serve
  mcp-websearch serve -t http -p 8080
  mcp-websearch search "golang generics"
  echo "golang generics" | mcp-websearch search --stdin -f json
  echo '{"query": "golang generics"}' | mcp-websearch oneshot`)
}

func printVersion(w io.Writer) {
	fmt.Fprintf(w, "mcp-websearch version %s\n", version)
}

// run は実際の処理を行う（テスト容易性のため分離）
func run(args []string) error {
	opts, err := parseFlags(args)
	if err != nil {
		return err
	}

	ctx, cancel := setupSignalHandler()
	defer cancel()

	return runServe(ctx, opts)
}

// parseFlags は引数をパースしてOptionsを返す
func parseFlags(args []string) (*Options, error) {
	fs := flag.NewFlagSet("mcp-websearch", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	opts := &Options{}
	fs.StringVar(&opts.Transport, "transport", defaultTransport, "Transport type: stdio, http")
	fs.StringVar(&opts.Transport, "t", defaultTransport, "Transport type (shorthand)")
	fs.StringVar(&opts.Host, "host", "127.0.0.1", "HTTP host")
	fs.IntVar(&opts.Port, "port", 8765, "HTTP port")
	fs.IntVar(&opts.Port, "p", 8765, "HTTP port (shorthand)")
	fs.StringVar(&opts.ConfigPath, "config", "", "Config file path")
	fs.StringVar(&opts.ConfigPath, "c", "", "Config file path (shorthand)")

	// 引数なしまたは"serve"で始まる場合のみ許可
	var flagArgs []string
	switch {
	case len(args) == 0:
	case args[0] == "serve":
		flagArgs = args[1:]
	default:
		return nil, fmt.Errorf("usage: mcp-websearch serve [options]")
	}

	if err := fs.Parse(flagArgs); err != nil {
		return nil, err
	}

	if opts.Transport != model.TransportStdio && opts.Transport != model.TransportHTTP {
		return nil, fmt.Errorf("invalid transport: %s (must be stdio or http)", opts.Transport)
	}
	if opts.Port < 1 || opts.Port > 65535 {
		return nil, fmt.Errorf("invalid port: %d (must be 1-65535)", opts.Port)
	}

	return opts, nil
}

// setupSignalHandler はSIGINT/SIGTERMを受けてcontextをキャンセルする
func setupSignalHandler() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		select {
		case <-sigCh:
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigCh)
	}()

	return ctx, cancel
}

// runServe はserveコマンドを実行
func runServe(ctx context.Context, opts *Options) error {
	services, cleanup, err := bootstrap.Initialize(ctx, opts.ConfigPath)
	if err != nil {
		return err
	}
	defer cleanup()

	logger := log.WithComponent("main")
	logger.Info().
		Str("version", version).
		Str("transport", opts.Transport).
		Msg("starting mcp-websearch")

	switch opts.Transport {
	case model.TransportStdio:
		return stdio.New(services.Handler).Run(ctx)
	case model.TransportHTTP:
		server := http.New(services.Handler, http.Config{
			Addr:              fmt.Sprintf("%s:%d", opts.Host, opts.Port),
			CORSOrigins:       services.Config.HTTP.CORSOrigins,
			RequestsPerMinute: services.Config.HTTP.RequestsPerMinute,
		})
		return server.Run(ctx)
	default:
		return fmt.Errorf("unknown transport: %s", opts.Transport)
	}
}
