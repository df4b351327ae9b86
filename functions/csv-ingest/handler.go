package main

import (
	"context"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/ssm"
	"github.com/aws/aws-sdk-go/service/ssm/ssmiface"
	"github.com/chikelubaokorji/HealthDataAnalytics/internal/dataloader"
	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"
	"github.com/pkg/errors"
)

// Response Core response object for if processing is successful
type Response struct {
	Success bool `json:"success"`
}

type handler struct {
	dl        *dataloader.DataLoader
	logger    log.Logger
	propagate bool
}

// handle loads every record of the event. Failures are logged with their
// kind and only returned when propagate is set.
func (h *handler) handle(ctx context.Context, s3Event events.S3Event) (*Response, error) {
	targets, err := dataloader.Targets(s3Event)
	if err != nil {
		return h.fail(err)
	}

	var firstErr error
	for _, target := range targets {
		result, err := h.dl.LoadObject(ctx, target)
		if err != nil {
			level.Error(h.logger).Log("msg", "load failed",
				"kind", dataloader.KindOf(err),
				"bucket", target.Bucket,
				"key", target.Key,
				"err", err)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		level.Info(h.logger).Log("msg", "load succeeded", "key", target.Key, "table_name", result.Table, "inserted", result.Inserted)
	}
	if firstErr != nil {
		if h.propagate {
			return nil, firstErr
		}
		return &Response{Success: false}, nil
	}
	return &Response{Success: true}, nil
}

func (h *handler) fail(err error) (*Response, error) {
	level.Error(h.logger).Log("msg", "invalid notification", "kind", dataloader.KindOf(err), "err", err)
	if h.propagate {
		return nil, err
	}
	return &Response{Success: false}, nil
}

// resolvePassword prefers the SSM parameter over a plain PASSWORD.
func resolvePassword(ctx context.Context, ssmSvc ssmiface.SSMAPI, cfg dataloader.Config) (string, error) {
	if cfg.PasswordParameter == "" {
		return cfg.Password, nil
	}
	rsp, err := ssmSvc.GetParameterWithContext(ctx, &ssm.GetParameterInput{
		Name:           aws.String(cfg.PasswordParameter),
		WithDecryption: aws.Bool(true),
	})
	if err != nil {
		return "", errors.Wrapf(err, "fetching %s", cfg.PasswordParameter)
	}
	if rsp.Parameter == nil {
		return "", errors.Errorf("parameter %s has no value", cfg.PasswordParameter)
	}
	return aws.StringValue(rsp.Parameter.Value), nil
}
