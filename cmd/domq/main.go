// CLAUDE:SUMMARY domq CLI: query and mutate an HTML file with CSS or XPath, print matches, the mutated document, a diff, the journal or a snapshot; -mcp serves the tools over stdio.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hazyhaar/domq/dom"
	"github.com/hazyhaar/domq/domtools"
	"github.com/hazyhaar/domq/mutation"
)

const version = "0.1.0"

type options struct {
	file     string
	css      string
	xpath    string
	format   string
	remove   bool
	setAttr  string
	diff     bool
	journal  bool
	snapshot bool
	config   string
	mcp      bool
	logLevel string
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(2)
		}
		fmt.Fprintf(os.Stderr, "domq: %v\n", err)
		os.Exit(1)
	}
}

func parseFlags(args []string, stderr io.Writer) (*options, error) {
	var o options
	fs := flag.NewFlagSet("domq", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&o.file, "file", "", "HTML file to load (default: stdin)")
	fs.StringVar(&o.css, "css", "", "CSS selector")
	fs.StringVar(&o.xpath, "xpath", "", "XPath expression, used when -css is empty")
	fs.StringVar(&o.format, "format", "html", "match output format: html, text or markdown")
	fs.BoolVar(&o.remove, "remove", false, "remove the matches and print the document")
	fs.StringVar(&o.setAttr, "set-attr", "", "set name=value on every match and print the document")
	fs.BoolVar(&o.diff, "diff", false, "print a diff of the document instead of the mutated markup")
	fs.BoolVar(&o.journal, "journal", false, "print the mutation journal as JSON")
	fs.BoolVar(&o.snapshot, "snapshot", false, "print a JSON snapshot of the final document")
	fs.StringVar(&o.config, "config", "", "YAML configuration file")
	fs.BoolVar(&o.mcp, "mcp", false, "serve the dom tools over MCP stdio")
	fs.StringVar(&o.logLevel, "log-level", "warn", "debug, info, warn or error")
	fs.Usage = func() {
		fmt.Fprintf(stderr, `domq %s: query and edit HTML with CSS selectors or XPath

usage:
  domq -file page.html -css '.item' [-format html|text|markdown]
  domq -file page.html -css '.ad' -remove [-diff] [-journal] [-snapshot]
  domq -file page.html -xpath '//a' -set-attr rel=nofollow
  domq -mcp

`, version)
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() > 0 {
		return nil, fmt.Errorf("unexpected argument %q", fs.Arg(0))
	}
	return &o, nil
}

func newLogger(level string, w io.Writer) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "info":
		lvl = slog.LevelInfo
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelWarn
	}
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: lvl}))
}

func loadConfig(o *options, logger *slog.Logger) (*dom.Config, error) {
	cfg := &dom.Config{}
	if o.config != "" {
		var err error
		if cfg, err = dom.LoadConfigFile(o.config); err != nil {
			return nil, err
		}
	}
	if o.journal {
		cfg.Journal = true
	}
	cfg.Logger = logger
	return cfg, nil
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	o, err := parseFlags(args, stderr)
	if err != nil {
		return err
	}
	logger := newLogger(o.logLevel, stderr)
	cfg, err := loadConfig(o, logger)
	if err != nil {
		return err
	}

	if o.mcp {
		srv := mcp.NewServer(&mcp.Implementation{Name: "domq", Version: version}, nil)
		domtools.New(cfg, logger).RegisterMCP(srv)
		logger.Info("MCP stdio starting")
		return srv.Run(ctx, &mcp.StdioTransport{})
	}

	root := dom.New(cfg)
	if o.file != "" && o.file != "-" {
		err = root.LoadFile(o.file)
	} else {
		err = root.LoadReader(stdin)
	}
	if err != nil {
		return err
	}

	var set *dom.Collection
	switch {
	case o.css != "":
		set, err = root.Find(o.css)
	case o.xpath != "":
		set, err = root.FindXPath(o.xpath)
	default:
		return domtools.ErrNoSelector
	}
	if err != nil {
		return err
	}
	logger.Debug("matched", "count", set.Len())

	before := root.HTML()
	mutated, err := mutate(set, o)
	if err != nil {
		return err
	}

	switch {
	case mutated && o.diff:
		writeDiff(stdout, before, root.HTML())
	case mutated:
		fmt.Fprintln(stdout, root.HTML())
	default:
		for _, el := range set.All() {
			s, err := domtools.Render(el, o.format)
			if err != nil {
				return err
			}
			fmt.Fprintln(stdout, s)
		}
	}

	if o.journal {
		data, err := mutation.MarshalBatch(root.Tree().Flush())
		if err != nil {
			return err
		}
		fmt.Fprintln(stdout, string(data))
	}
	if o.snapshot {
		data, err := mutation.MarshalSnapshot(root.Tree().Snapshot())
		if err != nil {
			return err
		}
		fmt.Fprintln(stdout, string(data))
	}
	return nil
}

func mutate(set *dom.Collection, o *options) (bool, error) {
	mutated := false
	if o.setAttr != "" {
		name, value, ok := strings.Cut(o.setAttr, "=")
		if !ok || name == "" {
			return false, fmt.Errorf("-set-attr: want name=value, got %q", o.setAttr)
		}
		if err := set.SetAttr(name, value); err != nil {
			return false, err
		}
		mutated = true
	}
	if o.remove {
		if err := set.Remove(); err != nil {
			return false, err
		}
		mutated = true
	}
	return mutated, nil
}
