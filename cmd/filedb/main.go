// Package main is the command line tool for filedb databases.
//
// filedb operates on one database file at a time. Configuration is read from
// an optional YAML file and CLI flags, flags taking precedence.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"

	"github.com/maruel/filedb/internal/config"
	"github.com/maruel/filedb/internal/filedb"
)

func main() {
	if err := mainImpl(); err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintf(os.Stderr, "filedb: %v\n", err)
		os.Exit(1)
	}
}

const usage = `usage: filedb [flags] <command> [args]

commands:
  init                           create the database file if missing
  collections                    list collections
  create <collection>            create a collection
  drop <collection>              drop a collection and commit
  insert <collection> <json>     insert a document and commit
  find <collection> [id]         print all documents, or one
  delete <collection> <id>       delete a document and commit
  preview-update <collection> <id> <json>
                                 print the document with <json> nested under "data"
  watch                          log reloads when the file changes

flags:
`

func mainImpl() error {
	configPath := flag.String("config", "", "Path to a YAML config file")
	dbName := flag.String("db", "default", "Database name")
	dir := flag.String("dir", "", "Directory holding database files (default \"databases\")")
	ext := flag.String("ext", "", "Database file suffix (default \".json\")")
	logLevel := flag.String("log-level", "", "Log level (debug, info, warn, error)")
	configSchema := flag.Bool("config-schema", false, "Print the JSON Schema of the config file and exit")
	flag.Usage = func() {
		fmt.Fprint(flag.CommandLine.Output(), usage)
		flag.PrintDefaults()
	}
	flag.Parse()

	if *configSchema {
		data, err := config.Schema()
		if err != nil {
			return err
		}
		_, err = fmt.Printf("%s\n", data)
		return err
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	// Flags override the config file.
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "dir":
			cfg.Directory = *dir
		case "ext":
			cfg.Extension = *ext
		case "log-level":
			cfg.LogLevel = *logLevel
		}
	})
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	defer stop()
	ll := &slog.LevelVar{}
	ll.Set(cfg.Level())
	slog.SetDefault(newLogger(os.Stderr, ll))

	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		return errors.New("missing command")
	}
	opts, err := cfg.Options(slog.Default())
	if err != nil {
		return err
	}
	s, err := filedb.New(*dbName, opts)
	if err != nil {
		return err
	}
	if args[0] == "init" {
		if len(args) != 1 {
			return fmt.Errorf("init: unexpected arguments: %v", args[1:])
		}
		if err := s.Initialize(); err != nil {
			return err
		}
		slog.InfoContext(ctx, "Database ready", "path", s.Path())
		return nil
	}
	if err := s.Load(); err != nil {
		if filedb.IsNotInitialized(err) {
			return fmt.Errorf("database %q is not initialized, run \"filedb -db %s init\": %w", *dbName, *dbName, err)
		}
		return err
	}
	return run(ctx, s, args, os.Stdout)
}

// newLogger returns a tint logger writing to w, dropping empty attributes
// and the timestamp when running under systemd.
func newLogger(w *os.File, level slog.Leveler) *slog.Logger {
	underSystemd := os.Getenv("JOURNAL_STREAM") != ""
	return slog.New(tint.NewHandler(colorable.NewColorable(w), &tint.Options{
		Level:      level,
		TimeFormat: "15:04:05.000",
		NoColor:    !isatty.IsTerminal(w.Fd()),
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if underSystemd && a.Key == slog.TimeKey && len(groups) == 0 {
				return slog.Attr{}
			}
			skip := false
			switch t := a.Value.Any().(type) {
			case string:
				skip = t == ""
			case time.Duration:
				skip = t == 0
			case nil:
				skip = true
			}
			if skip {
				return slog.Attr{}
			}
			return a
		},
	}))
}

// run executes one command against a loaded store and prints JSON results to out.
func run(ctx context.Context, s *filedb.Store, args []string, out io.Writer) error {
	cmd, args := args[0], args[1:]
	want := func(n int, names string) error {
		if len(args) != n {
			return fmt.Errorf("%s: want %s", cmd, names)
		}
		return nil
	}
	switch cmd {
	case "collections":
		if err := want(0, "no arguments"); err != nil {
			return err
		}
		return printJSON(out, s.CollectionNames())
	case "create":
		if err := want(1, "<collection>"); err != nil {
			return err
		}
		return s.CreateCollection(args[0])
	case "drop":
		if err := want(1, "<collection>"); err != nil {
			return err
		}
		s.DropCollection(args[0])
		return s.Commit()
	case "insert":
		if err := want(2, "<collection> <json>"); err != nil {
			return err
		}
		col, err := collection(s, args[0])
		if err != nil {
			return err
		}
		var doc filedb.Document
		if err := decodeJSON(args[1], &doc); err != nil {
			return fmt.Errorf("insert: document must be a JSON object: %w", err)
		}
		stored, err := col.Insert(doc)
		if err != nil {
			return err
		}
		if err := s.Commit(); err != nil {
			return err
		}
		return printJSON(out, stored)
	case "find":
		if len(args) != 1 && len(args) != 2 {
			return fmt.Errorf("%s: want <collection> [id]", cmd)
		}
		col, err := collection(s, args[0])
		if err != nil {
			return err
		}
		if len(args) == 1 {
			return printJSON(out, col.FindAll())
		}
		doc, ok := col.FindByID(args[1])
		if !ok {
			return fmt.Errorf("find: no document %q in %q", args[1], args[0])
		}
		return printJSON(out, doc)
	case "delete":
		if err := want(2, "<collection> <id>"); err != nil {
			return err
		}
		col, err := collection(s, args[0])
		if err != nil {
			return err
		}
		col.DeleteByID(args[1])
		return s.Commit()
	case "preview-update":
		if err := want(3, "<collection> <id> <json>"); err != nil {
			return err
		}
		col, err := collection(s, args[0])
		if err != nil {
			return err
		}
		var data any
		if err := decodeJSON(args[2], &data); err != nil {
			return fmt.Errorf("preview-update: invalid JSON: %w", err)
		}
		doc, ok := col.UpdateByID(args[1], data)
		if !ok {
			return fmt.Errorf("preview-update: no document %q in %q", args[1], args[0])
		}
		return printJSON(out, doc)
	case "watch":
		if err := want(0, "no arguments"); err != nil {
			return err
		}
		slog.InfoContext(ctx, "Watching database", "path", s.Path())
		return s.Watch(ctx)
	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func collection(s *filedb.Store, name string) (*filedb.Collection, error) {
	col, ok := s.Collection(name)
	if !ok {
		return nil, fmt.Errorf("no collection %q", name)
	}
	return col, nil
}

// decodeJSON parses s into v keeping numbers as json.Number, so large
// integers are not rounded through float64.
func decodeJSON(s string, v any) error {
	dec := json.NewDecoder(strings.NewReader(s))
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return err
	}
	if dec.More() {
		return errors.New("trailing data after JSON value")
	}
	return nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
