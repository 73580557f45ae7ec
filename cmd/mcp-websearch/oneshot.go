package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"

	"github.com/brbranch/websearch_mcp/internal/bootstrap"
	"github.com/brbranch/websearch_mcp/internal/service"
	"github.com/brbranch/websearch_mcp/internal/transport/stdio"
)

// runOneshotCmd is the entry point for oneshot command
func runOneshotCmd(args []string, stdin io.Reader, stdout io.Writer) error {
	fs := flag.NewFlagSet("oneshot", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	var configPath string
	fs.StringVar(&configPath, "config", "", "Config file path")
	fs.StringVar(&configPath, "c", "", "Config file path")
	if err := fs.Parse(args); err != nil {
		return err
	}

	ctx, cancel := setupSignalHandler()
	defer cancel()

	services, cleanup, err := bootstrap.Initialize(ctx, configPath)
	if err != nil {
		return fmt.Errorf("failed to initialize: %w", err)
	}
	defer cleanup()

	return runOneshot(ctx, services.WebSearchService, stdin, stdout)
}

// runOneshot は1行のJSONリクエストを読み、1行のJSONレスポンスを書く
// 入力が無い、またはJSONオブジェクトとして解釈できない場合は空リクエストとして扱う
func runOneshot(ctx context.Context, svc service.WebSearchService, r io.Reader, w io.Writer) error {
	raw := readRequest(r)
	out := service.HandleRequest(ctx, svc, raw)

	data, err := json.Marshal(out)
	if err != nil {
		return fmt.Errorf("failed to encode response: %w", err)
	}
	data = append(data, '\n')
	_, err = w.Write(data)
	return err
}

func readRequest(r io.Reader) map[string]any {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), stdio.MaxBufferSize)
	if !scanner.Scan() {
		return map[string]any{}
	}

	var raw map[string]any
	if err := json.Unmarshal(scanner.Bytes(), &raw); err != nil || raw == nil {
		return map[string]any{}
	}
	return raw
}
