//go:build !test
// +build !test

package main

import (
	"context"
	"os"

	goenv "github.com/Netflix/go-env"
	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-lambda-go/lambdacontext"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/ssm"
	"github.com/chikelubaokorji/HealthDataAnalytics/internal/dataloader"
	"github.com/go-kit/kit/log"
)

func main() {

	var (
		sess   = session.Must(session.NewSession())
		ssmSvc = ssm.New(sess)
		s3Svc  = s3.New(sess)
		logger = dataloader.NewLogger(os.Stdout)
	)

	es, err := goenv.EnvironToEnvSet(os.Environ())
	if err != nil {
		panic(err)
	}
	cfg, err := dataloader.LoadConfig(es)
	if err != nil {
		panic(err)
	}
	commitMode, _ := dataloader.ParseCommitMode(cfg.CommitMode)
	suffixMode, _ := dataloader.ParseSuffixMode(cfg.TableSuffixMode)

	// Fetch DB password
	password, err := resolvePassword(context.Background(), ssmSvc, cfg)
	if err != nil {
		panic(err)
	}
	open := dataloader.PostgresOpener(cfg.DSN(password))

	// Start up lambda handler
	lambda.Start(func(ctx context.Context, event events.S3Event) (*Response, error) {
		lc, _ := lambdacontext.FromContext(ctx)
		requestID := ""
		if lc != nil {
			requestID = lc.AwsRequestID
		}
		reqLogger := log.With(logger, "request_id", requestID)
		h := handler{
			dl: &dataloader.DataLoader{
				Open:       open,
				Logger:     reqLogger,
				S3Svc:      s3Svc,
				CommitMode: commitMode,
				SuffixMode: suffixMode,
			},
			logger:    reqLogger,
			propagate: cfg.PropagateErrors,
		}
		return h.handle(ctx, event)
	})
}
