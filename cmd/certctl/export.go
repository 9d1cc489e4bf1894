package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"certchain/integrations/eventlog"
	"certchain/integrations/exports"
)

func runExport(args []string, out io.Writer) error {
	fs := newFlagSet("export")
	driver := fs.String("driver", "sqlite", "Event log driver (sqlite or postgres)")
	dsn := fs.String("dsn", "", "Event log DSN")
	format := fs.String("format", "jsonl", "Export format (jsonl, csv or parquet)")
	after := fs.Uint64("after", 0, "Export records with a sequence greater than this")
	eventType := fs.String("type", "", "Only export this event type")
	module := fs.String("module", "", "Only export events of this module")
	outPath := fs.String("out", "", "Write the export to this file instead of stdout")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if strings.TrimSpace(*dsn) == "" {
		return fmt.Errorf("dsn required")
	}
	build, err := exporter(*format)
	if err != nil {
		return err
	}
	if binaryFormat(*format) && *outPath == "" {
		return fmt.Errorf("%s export requires -out", *format)
	}

	log, err := eventlog.Open(*driver, *dsn)
	if err != nil {
		return err
	}
	defer log.Close()

	var records []eventlog.Record
	cursor := *after
	for {
		page, err := log.List(context.Background(), eventlog.Filter{
			After:  cursor,
			Type:   *eventType,
			Module: *module,
			Limit:  eventlog.MaxPageSize,
		})
		if err != nil {
			return fmt.Errorf("list events: %w", err)
		}
		if len(page) == 0 {
			break
		}
		records = append(records, page...)
		cursor = page[len(page)-1].Seq
	}

	data, checksum, err := build(records)
	if err != nil {
		return fmt.Errorf("build export: %w", err)
	}
	if *outPath == "" {
		if _, err := out.Write(data); err != nil {
			return err
		}
	} else if err := os.WriteFile(*outPath, data, 0o644); err != nil {
		return fmt.Errorf("write export: %w", err)
	}
	fmt.Fprintf(os.Stderr, "exported %d events, sha256 %s\n", len(records), checksum)
	return nil
}

func exporter(format string) (func([]eventlog.Record) ([]byte, string, error), error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "jsonl", "":
		return exports.EventsJSONL, nil
	case "csv":
		return exports.EventsCSV, nil
	case "parquet":
		return exports.EventsParquet, nil
	default:
		return nil, fmt.Errorf("unsupported export format %q", format)
	}
}

func binaryFormat(format string) bool {
	return strings.ToLower(strings.TrimSpace(format)) == "parquet"
}
