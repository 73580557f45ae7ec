package main

import (
	"bufio"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"

	"github.com/brbranch/websearch_mcp/internal/bootstrap"
	"github.com/brbranch/websearch_mcp/internal/service"
)

// SearchOptions holds parsed search command options
type SearchOptions struct {
	TopK       int
	Format     string
	ConfigPath string
	UseStdin   bool
	Query      string
}

// parseSearchFlags parses command line arguments for search command
func parseSearchFlags(args []string) (*SearchOptions, error) {
	fs := flag.NewFlagSet("search", flag.ContinueOnError)
	fs.SetOutput(io.Discard) // suppress default error output

	opts := &SearchOptions{}

	fs.IntVar(&opts.TopK, "top-k", service.MaxResults, "Number of results")
	fs.StringVar(&opts.Format, "format", "text", "Output format: text|json")
	fs.StringVar(&opts.ConfigPath, "config", "", "Config file path")
	fs.BoolVar(&opts.UseStdin, "stdin", false, "Read query from stdin")

	fs.IntVar(&opts.TopK, "k", service.MaxResults, "Number of results")
	fs.StringVar(&opts.Format, "f", "text", "Output format: text|json")
	fs.StringVar(&opts.ConfigPath, "c", "", "Config file path")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if opts.Format == "" {
		opts.Format = "text"
	}
	opts.Query = strings.TrimSpace(strings.Join(fs.Args(), " "))

	if !opts.UseStdin && opts.Query == "" {
		return nil, fmt.Errorf("query is required (or use --stdin)")
	}
	if opts.TopK <= 0 {
		return nil, fmt.Errorf("top-k must be greater than 0")
	}
	if opts.Format != "text" && opts.Format != "json" {
		return nil, fmt.Errorf("invalid format: %s (must be text or json)", opts.Format)
	}

	return opts, nil
}

// runSearchCmd is the entry point for search command
func runSearchCmd(args []string, stdin io.Reader, stdout io.Writer) error {
	opts, err := parseSearchFlags(args)
	if err != nil {
		return err
	}

	if opts.UseStdin {
		query, err := readQueryFromStdin(stdin)
		if err != nil {
			return fmt.Errorf("failed to read query from stdin: %w", err)
		}
		opts.Query = query
	}
	if opts.Query == "" {
		return fmt.Errorf("query is empty")
	}

	ctx, cancel := setupSignalHandler()
	defer cancel()

	services, cleanup, err := bootstrap.Initialize(ctx, opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("failed to initialize: %w", err)
	}
	defer cleanup()

	resp, err := services.WebSearchService.Search(ctx, opts.Query, opts.TopK)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if opts.Format == "json" {
		if err := formatJSONOutput(stdout, resp); err != nil {
			return fmt.Errorf("failed to format output: %w", err)
		}
		return nil
	}
	formatTextOutput(stdout, resp)
	return nil
}

// readQueryFromStdin reads a single line query
func readQueryFromStdin(r io.Reader) (string, error) {
	scanner := bufio.NewScanner(r)
	if scanner.Scan() {
		return strings.TrimSpace(scanner.Text()), nil
	}
	if err := scanner.Err(); err != nil {
		return "", err
	}
	return "", errors.New("no input received")
}

// formatTextOutput outputs results in human-readable text format
func formatTextOutput(w io.Writer, resp *service.WebSearchResponse) {
	if resp == nil || len(resp.Results) == 0 {
		fmt.Fprintln(w, "No results found.")
		return
	}

	for i, r := range resp.Results {
		title := r.Title
		if title == "" {
			title = "(no title)"
		}
		fmt.Fprintf(w, "[%d] %s\n", i+1, title)
		fmt.Fprintf(w, "    %s\n", r.URL)

		switch {
		case r.Error != nil:
			fmt.Fprintf(w, "    error: %s\n", *r.Error)
		case r.Facts != "":
			for _, line := range strings.Split(r.Facts, "\n") {
				if line = strings.TrimSpace(line); line != "" {
					fmt.Fprintf(w, "    %s\n", line)
				}
			}
		}
		fmt.Fprintln(w)
	}
}

// formatJSONOutput outputs the response as indented JSON
func formatJSONOutput(w io.Writer, resp *service.WebSearchResponse) error {
	if resp == nil {
		resp = &service.WebSearchResponse{Results: []service.WebSearchResult{}}
	}
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(resp)
}
