// Package ingest bootstraps the pipeline: it pulls a Kaggle dataset archive,
// extracts it locally and uploads the extracted files to S3, where each
// upload triggers the csv-ingest function.
package ingest

import (
	"context"
	"time"

	goenv "github.com/Netflix/go-env"
	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"
	"github.com/pkg/errors"
)

// Config is read from the environment of the auto-ingest command.
type Config struct {
	KaggleUsername string `env:"KAGGLE_USERNAME,required=true"`
	KaggleKey      string `env:"KAGGLE_KEY,required=true"`
	Dataset        string `env:"KAGGLE_DATASET,required=true"`
	KaggleAPIURL   string `env:"KAGGLE_API_URL,default=https://www.kaggle.com/api/v1"`
	Bucket         string `env:"BUCKET_NAME,required=true"`
	Region         string `env:"REGION_NAME,default=us-east-1"`
	DatasetDir     string `env:"DATASET_DIR,default=../datasets"`
	// Comma separated, so it can't carry its default in the tag.
	ExcludeFiles string `env:"EXCLUDE_FILES"`
}

// LoadConfig decodes and validates es.
func LoadConfig(es goenv.EnvSet) (Config, error) {
	var cfg Config
	if err := goenv.Unmarshal(es, &cfg); err != nil {
		return Config{}, errors.Wrap(err, "reading environment")
	}
	if _, _, err := splitDataset(cfg.Dataset); err != nil {
		return Config{}, err
	}
	if cfg.ExcludeFiles == "" {
		cfg.ExcludeFiles = DefaultExclude
	}
	return cfg, nil
}

// Pipeline runs download, extract and upload once.
type Pipeline struct {
	Kaggle   *Kaggle
	Uploader *Uploader
	Dataset  string
	Dir      string
	Logger   log.Logger
}

// Run returns the uploaded object keys.
func (p *Pipeline) Run(ctx context.Context) ([]string, error) {
	start := time.Now()

	archive, err := p.Kaggle.Download(ctx, p.Dataset, p.Dir)
	if err != nil {
		return nil, err
	}

	names, err := Extract(archive, p.Dir)
	if err != nil {
		return nil, err
	}
	level.Info(p.Logger).Log("msg", "extracted archive", "archive", archive, "files", len(names))

	keys, err := p.Uploader.UploadAll(ctx, p.Dir, names)
	if err != nil {
		return keys, err
	}
	level.Info(p.Logger).Log("msg", "ingest complete",
		"dataset", p.Dataset,
		"bucket", p.Uploader.Bucket,
		"uploaded", len(keys),
		"elapsed_time", time.Since(start))
	return keys, nil
}
