// Package main is the entry point for the simcore CLI.
//
// simcore ingests, queries, and exports simulation metadata documents.
// Storage and blob backends are selected through a YAML config file
// (simcore.yaml by default) with SIMCORE_* environment overrides.
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
	"path/filepath"
	"sort"
	"strings"
	"syscall"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"

	"simcore/internal/blob"
	"simcore/internal/config"
	"simcore/internal/core"
	"simcore/pkg/model"
)

func main() {
	if err := mainImpl(); err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintf(os.Stderr, "simcore: %v\n", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, `usage: simcore [-config file] <command> [arguments]

Commands:
  ingest <file.json>...        ingest documents, printing assigned identifiers
  export [-o out.json] <id>... export records and their relationships
  get <id>                     print one record as JSON
  query [-type t] [-uri u] [-data expr]
                               find records by type, file URI, or data criteria
  rel [-subject s] [-predicate p] [-object o]
                               list matching relationships
  attach -record id [-content-type ct] <file>...
                               store artifact payloads for a record
`)
}

func mainImpl() error {
	configPath := flag.String("config", "", "Path to YAML config (default simcore.yaml if present)")
	flag.Usage = usage
	flag.Parse()
	if flag.NArg() == 0 {
		usage()
		return fmt.Errorf("missing command")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	logger := newLogger(cfg.Log)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	defer stop()

	store, err := core.OpenDataStoreDriver(core.StorageDriver(cfg.Storage.Driver), cfg.Storage.SQLitePath, cfg.Storage.PostgresDSN)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	bs, err := openBlobStore(ctx, cfg.Blob)
	if err != nil {
		return fmt.Errorf("open blob store: %w", err)
	}
	svc := core.NewService(store,
		core.WithLogger(logger),
		core.WithBlobStore(bs),
		core.WithMetrics(core.NewExpvarMetricsRecorder("simcore_cli")),
	)
	defer func() {
		if cerr := svc.Close(); cerr != nil {
			logger.Error("close storage", "error", cerr)
		}
	}()

	cmd, args := flag.Arg(0), flag.Args()[1:]
	switch cmd {
	case "ingest":
		return runIngest(ctx, svc, args)
	case "export":
		return runExport(ctx, svc, args)
	case "get":
		return runGet(ctx, svc, args)
	case "query":
		return runQuery(ctx, svc, args)
	case "rel":
		return runRelationships(ctx, svc, args)
	case "attach":
		return runAttach(ctx, svc, args)
	default:
		usage()
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func newLogger(cfg config.LogConfig) *slog.Logger {
	level := slog.LevelInfo
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	if strings.EqualFold(cfg.Format, "json") {
		return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	}
	return slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      level,
		TimeFormat: "15:04:05.000",
		NoColor:    !isatty.IsTerminal(os.Stderr.Fd()),
	}))
}

func openBlobStore(ctx context.Context, cfg config.BlobConfig) (blob.Store, error) {
	switch blob.Driver(cfg.Driver) {
	case blob.DriverFilesystem:
		return blob.NewFilesystemStore(cfg.FSRoot)
	case blob.DriverS3:
		return blob.NewS3Store(ctx, blob.S3Config{
			Bucket:    cfg.S3.Bucket,
			Region:    cfg.S3.Region,
			Endpoint:  cfg.S3.Endpoint,
			PathStyle: cfg.S3.PathStyle,
		})
	case blob.DriverMemory:
		return blob.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown blob driver %s", cfg.Driver)
	}
}

func runIngest(ctx context.Context, svc *core.Service, args []string) error {
	fs := flag.NewFlagSet("ingest", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		return fmt.Errorf("ingest: at least one document file required")
	}
	for _, path := range fs.Args() {
		assigned, err := svc.IngestFile(ctx, path)
		if err != nil {
			return err
		}
		locals := make([]string, 0, len(assigned))
		for local := range assigned {
			locals = append(locals, local)
		}
		sort.Strings(locals)
		for _, local := range locals {
			fmt.Printf("%s\t%s -> %s\n", path, local, assigned[local])
		}
	}
	return nil
}

func runExport(ctx context.Context, svc *core.Service, args []string) error {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	out := fs.String("o", "", "Output file (default stdout)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		return fmt.Errorf("export: at least one record identifier required")
	}
	if *out != "" {
		return svc.ExportFile(ctx, fs.Args(), *out)
	}
	doc, err := svc.Export(ctx, fs.Args())
	if err != nil {
		return err
	}
	raw, err := doc.ToJSON()
	if err != nil {
		return err
	}
	_, err = fmt.Println(string(raw))
	return err
}

func runGet(ctx context.Context, svc *core.Service, args []string) error {
	fs := flag.NewFlagSet("get", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("get: exactly one record identifier required")
	}
	rec, err := svc.GetRecord(ctx, fs.Arg(0))
	if err != nil {
		return err
	}
	return printRecords([]model.Record{rec})
}

func runQuery(ctx context.Context, svc *core.Service, args []string) error {
	fs := flag.NewFlagSet("query", flag.ContinueOnError)
	typ := fs.String("type", "", "Record type tag")
	uri := fs.String("uri", "", "File URI, trailing %% for prefix match")
	data := fs.String("data", "", `Data criteria, e.g. "volume=[10,20) source=experiment"`)
	if err := fs.Parse(args); err != nil {
		return err
	}
	set := 0
	for _, v := range []string{*typ, *uri, *data} {
		if v != "" {
			set++
		}
	}
	if set != 1 {
		return fmt.Errorf("query: exactly one of -type, -uri, -data required")
	}
	if *typ != "" {
		recs, err := svc.RecordsOfType(ctx, *typ)
		if err != nil {
			return err
		}
		return printRecords(recs)
	}
	var (
		ids []string
		err error
	)
	if *uri != "" {
		ids, err = svc.RecordsWithFileURI(ctx, *uri)
	} else {
		ids, err = svc.FindRecordsByExpr(ctx, *data)
	}
	if err != nil {
		return err
	}
	recs := make([]model.Record, 0, len(ids))
	for _, id := range ids {
		rec, err := svc.GetRecord(ctx, id)
		if err != nil {
			return err
		}
		recs = append(recs, rec)
	}
	return printRecords(recs)
}

func runRelationships(ctx context.Context, svc *core.Service, args []string) error {
	fs := flag.NewFlagSet("rel", flag.ContinueOnError)
	subject := fs.String("subject", "", "Subject identifier")
	predicate := fs.String("predicate", "", "Predicate")
	object := fs.String("object", "", "Object identifier")
	if err := fs.Parse(args); err != nil {
		return err
	}
	rels, err := svc.Relationships(ctx, *subject, *predicate, *object)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(os.Stdout)
	for _, rel := range rels {
		if err := enc.Encode(rel); err != nil {
			return err
		}
	}
	return nil
}

func runAttach(ctx context.Context, svc *core.Service, args []string) error {
	fs := flag.NewFlagSet("attach", flag.ContinueOnError)
	record := fs.String("record", "", "Global record identifier")
	contentType := fs.String("content-type", "", "MIME type stored with the payload")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *record == "" || fs.NArg() == 0 {
		return fmt.Errorf("attach: -record and at least one file required")
	}
	for _, path := range fs.Args() {
		if err := attachOne(ctx, svc, *record, path, *contentType); err != nil {
			return err
		}
	}
	return nil
}

func attachOne(ctx context.Context, svc *core.Service, record, path, contentType string) error {
	f, err := os.Open(path) // #nosec G304 -- operator-supplied payload path
	if err != nil {
		return err
	}
	defer func() {
		_ = f.Close()
	}()
	info, err := svc.AttachFile(ctx, record, filepath.Base(path), f, contentType)
	if err != nil {
		return err
	}
	fmt.Printf("%s\t%d bytes\t%s\n", info.Key, info.Size, info.URI)
	return nil
}

func printRecords(recs []model.Record) error {
	w := io.Writer(os.Stdout)
	for _, rec := range recs {
		raw, err := rec.ToJSON()
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintln(w, string(raw)); err != nil {
			return err
		}
	}
	return nil
}
