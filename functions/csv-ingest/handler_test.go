package main

import (
	"bytes"
	"context"
	"errors"
	"io/ioutil"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/aws/aws-sdk-go/service/ssm"
	"github.com/aws/aws-sdk-go/service/ssm/ssmiface"
	"github.com/chikelubaokorji/HealthDataAnalytics/internal/dataloader"
	"github.com/go-kit/kit/log"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func s3Event(bucket, key string) events.S3Event {
	return events.S3Event{Records: []events.S3EventRecord{{
		S3: events.S3Entity{
			Bucket: events.S3Bucket{Name: bucket},
			Object: events.S3Object{Key: key},
		},
	}}}
}

func newHandler(t *testing.T, propagate bool, content string) (*handler, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	return &handler{
		dl: &dataloader.DataLoader{
			Open: func(ctx context.Context) (*sqlx.DB, error) {
				return sqlx.NewDb(db, "sqlmock"), nil
			},
			Logger: log.NewNopLogger(),
			S3Svc:  &mockS3{content: content},
		},
		logger:    log.NewNopLogger(),
		propagate: propagate,
	}, mock
}

func TestHandle(t *testing.T) {
	h, mock := newHandler(t, false, "x,y\n1,2\n3,4\n")
	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS "dimPatient"("x" VARCHAR(255), "y" VARCHAR(255));`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectBegin()
	prep := mock.ExpectPrepare(`INSERT INTO "dimPatient" VALUES ($1, $2);`)
	prep.ExpectExec().WithArgs("1", "2").WillReturnResult(sqlmock.NewResult(0, 1))
	prep.ExpectExec().WithArgs("3", "4").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()
	mock.ExpectClose()

	rsp, err := h.handle(context.Background(), s3Event("healthdata-bucket", "dimPatient.csv"))
	require.NoError(t, err)
	assert.True(t, rsp.Success)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHandleFailureIsSilentByDefault(t *testing.T) {
	h, _ := newHandler(t, false, "")

	rsp, err := h.handle(context.Background(), s3Event("healthdata-bucket", "empty.csv"))
	require.NoError(t, err)
	assert.False(t, rsp.Success)
}

func TestHandleFailurePropagates(t *testing.T) {
	h, _ := newHandler(t, true, "")

	_, err := h.handle(context.Background(), s3Event("healthdata-bucket", "empty.csv"))
	assert.True(t, errors.Is(err, dataloader.ErrEmptyDocument))

	_, err = h.handle(context.Background(), events.S3Event{})
	assert.Equal(t, dataloader.KindNotification, dataloader.KindOf(err))
}

func TestResolvePassword(t *testing.T) {
	ctx := context.Background()

	got, err := resolvePassword(ctx, &mockSSM{}, dataloader.Config{Password: "plain"})
	require.NoError(t, err)
	assert.Equal(t, "plain", got)

	svc := &mockSSM{value: "from-ssm"}
	got, err = resolvePassword(ctx, svc, dataloader.Config{Password: "plain", PasswordParameter: "/healthdata/redshift/password"})
	require.NoError(t, err)
	assert.Equal(t, "from-ssm", got)
	assert.Equal(t, "/healthdata/redshift/password", svc.requested)

	_, err = resolvePassword(ctx, &mockSSM{err: errors.New("AccessDenied")}, dataloader.Config{PasswordParameter: "/p"})
	assert.EqualError(t, err, "fetching /p: AccessDenied")
}

// Mock Services -------------

type mockS3 struct {
	s3iface.S3API
	content string
}

func (c *mockS3) GetObjectWithContext(ctx aws.Context, input *s3.GetObjectInput, opts ...request.Option) (*s3.GetObjectOutput, error) {
	return &s3.GetObjectOutput{
		Body: ioutil.NopCloser(bytes.NewReader([]byte(c.content))),
	}, nil
}

type mockSSM struct {
	ssmiface.SSMAPI
	value     string
	err       error
	requested string
}

func (c *mockSSM) GetParameterWithContext(ctx aws.Context, input *ssm.GetParameterInput, opts ...request.Option) (*ssm.GetParameterOutput, error) {
	c.requested = aws.StringValue(input.Name)
	if c.err != nil {
		return nil, c.err
	}
	return &ssm.GetParameterOutput{Parameter: &ssm.Parameter{Value: aws.String(c.value)}}, nil
}
