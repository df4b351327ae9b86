package dataloader

import (
	"context"
	"fmt"
	"io/ioutil"
	"net/url"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/go-kit/kit/log/level"
	"github.com/pkg/errors"
)

// Target addresses one newly created object.
type Target struct {
	Bucket string
	Key    string
}

func (t Target) String() string {
	return fmt.Sprintf("s3://%s/%s", t.Bucket, t.Key)
}

// Targets extracts bucket and decoded key from every record of an S3 notification.
func Targets(event events.S3Event) ([]Target, error) {
	if len(event.Records) == 0 {
		return nil, newError(KindNotification, "read records", errors.New("event has no records"))
	}
	targets := make([]Target, 0, len(event.Records))
	for i, record := range event.Records {
		if record.S3.Bucket.Name == "" {
			return nil, newError(KindNotification, "read records", errors.Errorf("record %d: missing s3.bucket.name", i))
		}
		if record.S3.Object.Key == "" {
			return nil, newError(KindNotification, "read records", errors.Errorf("record %d: missing s3.object.key", i))
		}
		targets = append(targets, Target{Bucket: record.S3.Bucket.Name, Key: decodeKey(record.S3.Object.Key)})
	}
	return targets, nil
}

// decodeKey undoes the form encoding of notification keys, '+' stands for a
// space. A malformed escape leaves the rest of the key literal.
func decodeKey(key string) string {
	if decoded, err := url.QueryUnescape(key); err == nil {
		return decoded
	}
	return strings.ReplaceAll(key, "+", " ")
}

// Fetch reads the full content of the target object.
func (d *DataLoader) Fetch(ctx context.Context, target Target) ([]byte, error) {
	level.Info(d.Logger).Log("msg", "fetching object", "bucket", target.Bucket, "key", target.Key)
	rsp, err := d.S3Svc.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(target.Bucket),
		Key:    aws.String(target.Key),
	})
	if err != nil {
		return nil, newError(KindFetch, "get object", errors.Wrap(err, target.String()))
	}
	defer rsp.Body.Close()

	content, err := ioutil.ReadAll(rsp.Body)
	if err != nil {
		return nil, newError(KindFetch, "read object", errors.Wrap(err, target.String()))
	}
	level.Debug(d.Logger).Log("msg", "fetched object", "key", target.Key, "bytes", len(content))
	return content, nil
}
