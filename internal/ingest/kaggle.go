package ingest

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"
	"github.com/pkg/errors"
)

// Kaggle downloads dataset archives from the Kaggle public API.
type Kaggle struct {
	BaseURL  string
	Username string
	Key      string
	Client   *http.Client
	Logger   log.Logger
}

// splitDataset validates an "owner/name" dataset reference.
func splitDataset(dataset string) (owner, name string, err error) {
	parts := strings.Split(dataset, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", errors.Errorf("dataset %q is not of the form owner/name", dataset)
	}
	return parts[0], parts[1], nil
}

// Download fetches the dataset archive into dir/<name>.zip and returns its path.
func (k *Kaggle) Download(ctx context.Context, dataset, dir string) (string, error) {
	owner, name, err := splitDataset(dataset)
	if err != nil {
		return "", err
	}
	url := fmt.Sprintf("%s/datasets/download/%s/%s", strings.TrimSuffix(k.BaseURL, "/"), owner, name)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", errors.Wrap(err, "building download request")
	}
	req.SetBasicAuth(k.Username, k.Key)

	client := k.Client
	if client == nil {
		client = http.DefaultClient
	}

	start := time.Now()
	level.Info(k.Logger).Log("msg", "downloading dataset", "dataset", dataset)
	rsp, err := client.Do(req)
	if err != nil {
		return "", errors.Wrapf(err, "downloading %s", dataset)
	}
	defer rsp.Body.Close()
	if rsp.StatusCode < 200 || rsp.StatusCode > 299 {
		return "", errors.Errorf("downloading %s: unexpected status %s", dataset, rsp.Status)
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", errors.Wrapf(err, "creating %s", dir)
	}
	archive := filepath.Join(dir, name+".zip")
	f, err := os.Create(archive)
	if err != nil {
		return "", errors.Wrapf(err, "creating %s", archive)
	}
	defer f.Close()

	n, err := io.Copy(f, rsp.Body)
	if err != nil {
		return "", errors.Wrapf(err, "writing %s", archive)
	}
	if err := f.Close(); err != nil {
		return "", errors.Wrapf(err, "writing %s", archive)
	}
	level.Info(k.Logger).Log("msg", "downloaded dataset",
		"dataset", dataset,
		"archive", archive,
		"size", humanize.Bytes(uint64(n)),
		"elapsed_time", time.Since(start))
	return archive, nil
}
