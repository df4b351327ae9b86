package dataloader

import (
	"context"
	"io"
	stdlog "log"
	"os"
	"time"

	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"
)

// DataLoader takes care of loading CSV objects from S3 into Redshift tables.
type DataLoader struct {
	Open       Opener
	Logger     log.Logger
	S3Svc      s3iface.S3API
	CommitMode CommitMode
	SuffixMode SuffixMode
}

// LoadObject fetches the target, derives its table and loads every data row.
func (d *DataLoader) LoadObject(ctx context.Context, target Target) (*LoadResult, error) {
	start := time.Now()

	content, err := d.Fetch(ctx, target)
	if err != nil {
		return nil, err
	}

	doc, err := DecodeCSV(content)
	if err != nil {
		return nil, err
	}
	level.Debug(d.Logger).Log("msg", "decoded csv", "key", target.Key, "records", doc.Len())

	schema, err := ResolveSchema(target.Key, doc, d.SuffixMode)
	if err != nil {
		return nil, err
	}
	level.Info(d.Logger).Log("msg", "resolved table schema",
		"table_name", schema.Table,
		"columns", len(schema.Columns),
		"rows", len(doc.Rows()))

	result, err := d.Load(ctx, schema, doc.Rows())
	if err != nil {
		return result, err
	}
	level.Info(d.Logger).Log("msg", "object loaded",
		"elapsed_time", time.Since(start),
		"key", target.Key,
		"table_name", schema.Table,
		"inserted", result.Inserted)
	return result, nil
}

// Utility Functions ------------------------

// NewLogger builds a logfmt logger with UTC timestamps, filtered to info unless debugging.
func NewLogger(w io.Writer) log.Logger {
	logger := log.With(
		log.NewLogfmtLogger(log.NewSyncWriter(w)),
		"ts", log.DefaultTimestampUTC,
	)
	if debug() {
		logger = level.NewFilter(logger, level.AllowAll())
	} else {
		logger = level.NewFilter(logger, level.AllowInfo())
	}
	stdlog.SetFlags(0)
	stdlog.SetOutput(log.NewStdlibAdapter(logger))
	return logger
}

func debug() bool {
	if os.Getenv("AWS_SAM_LOCAL") == "true" {
		return true
	}
	if os.Getenv("DEBUG") != "" {
		return true
	}
	if os.Getenv("debug") != "" {
		return true
	}
	return false
}
