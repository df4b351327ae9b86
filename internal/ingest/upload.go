package ingest

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/aws/aws-sdk-go/service/s3/s3manager/s3manageriface"
	"github.com/dustin/go-humanize"
	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"
	"github.com/pkg/errors"
)

// DefaultExclude lists the dataset files that are reference material, not fact data.
const DefaultExclude = "dimDiagnosisCode.csv,dimCptCode.csv,Datadictionery.csv"

// ParseExclude splits a comma separated file list.
func ParseExclude(s string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, name := range strings.Split(s, ",") {
		if name = strings.TrimSpace(name); name != "" {
			set[name] = struct{}{}
		}
	}
	return set
}

// Uploader copies extracted dataset files to a bucket.
type Uploader struct {
	Bucket  string
	Exclude map[string]struct{}
	Svc     s3manageriface.UploaderAPI
	Logger  log.Logger
}

// UploadAll uploads every name under dir unless excluded, using the name as key.
func (u *Uploader) UploadAll(ctx context.Context, dir string, names []string) ([]string, error) {
	var keys []string
	for _, name := range names {
		if _, ok := u.Exclude[name]; ok {
			level.Info(u.Logger).Log("msg", "skipping excluded file", "file_name", name)
			continue
		}
		if err := u.upload(ctx, filepath.Join(dir, name), name); err != nil {
			return keys, err
		}
		keys = append(keys, name)
	}
	return keys, nil
}

func (u *Uploader) upload(ctx context.Context, path, key string) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, "opening %s", path)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return errors.Wrapf(err, "stat %s", path)
	}
	out, err := u.Svc.UploadWithContext(ctx, &s3manager.UploadInput{
		Bucket: aws.String(u.Bucket),
		Key:    aws.String(key),
		Body:   f,
	})
	if err != nil {
		return errors.Wrapf(err, "uploading %s", key)
	}
	level.Info(u.Logger).Log("msg", "uploaded",
		"file_name", key,
		"size", humanize.Bytes(uint64(info.Size())),
		"location", out.Location)
	return nil
}
