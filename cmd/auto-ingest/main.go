package main

import (
	"context"
	"net/http"
	"os"
	"time"

	goenv "github.com/Netflix/go-env"
	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/chikelubaokorji/HealthDataAnalytics/internal/dataloader"
	"github.com/chikelubaokorji/HealthDataAnalytics/internal/ingest"
	"github.com/go-kit/kit/log/level"
)

func main() {
	logger := dataloader.NewLogger(os.Stdout)

	es, err := goenv.EnvironToEnvSet(os.Environ())
	if err != nil {
		level.Error(logger).Log("msg", "reading environment", "err", err)
		os.Exit(1)
	}
	cfg, err := ingest.LoadConfig(es)
	if err != nil {
		level.Error(logger).Log("msg", "invalid configuration", "err", err)
		os.Exit(1)
	}

	// Credentials come from the default chain (AWS_ACCESS_KEY_ID and friends).
	sess := session.Must(session.NewSession(&aws.Config{
		Region: aws.String(cfg.Region),
	}))

	p := &ingest.Pipeline{
		Kaggle: &ingest.Kaggle{
			BaseURL:  cfg.KaggleAPIURL,
			Username: cfg.KaggleUsername,
			Key:      cfg.KaggleKey,
			Client:   &http.Client{Timeout: 30 * time.Minute},
			Logger:   logger,
		},
		Uploader: &ingest.Uploader{
			Bucket:  cfg.Bucket,
			Exclude: ingest.ParseExclude(cfg.ExcludeFiles),
			Svc:     s3manager.NewUploader(sess),
			Logger:  logger,
		},
		Dataset: cfg.Dataset,
		Dir:     cfg.DatasetDir,
		Logger:  logger,
	}

	if _, err := p.Run(context.Background()); err != nil {
		level.Error(logger).Log("msg", "ingest failed", "err", err)
		os.Exit(1)
	}
}
