// download.go
package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/time/rate"
)

// downloadChunkSize bounds peak memory per transfer: the response body is
// written to disk in fixed-size pieces rather than buffered whole.
const downloadChunkSize = 1 << 20 // 1 MiB

// fetcher downloads remote files over a shared, connection-reusing client.
// It is safe for concurrent use by many workers. An optional rate limiter
// throttles aggregate bandwidth across all of them.
type fetcher struct {
	client  *http.Client
	limiter *rate.Limiter
}

func newFetcher(bandwidthLimit int64) *fetcher {
	f := &fetcher{
		client: &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:        64,
				MaxIdleConnsPerHost: 64,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
	if bandwidthLimit > 0 {
		f.limiter = rate.NewLimiter(rate.Limit(bandwidthLimit), downloadChunkSize)
	}
	return f
}

// download streams the resource at item.Source into item.Dest, creating
// parent directories first. A non-2xx status is a per-item failure; nothing
// is retried.
func (f *fetcher) download(ctx context.Context, item WorkItem) error {
	if err := os.MkdirAll(filepath.Dir(item.Dest), 0o755); err != nil {
		return fmt.Errorf("create directory for %s: %w", item.Dest, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, item.Source, nil)
	if err != nil {
		return fmt.Errorf("request for %s: %w", item.Source, err)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &httpStatusError{URL: item.Source, Code: resp.StatusCode}
	}

	out, err := os.Create(item.Dest)
	if err != nil {
		return err
	}
	defer out.Close()

	var body io.Reader = resp.Body
	if f.limiter != nil {
		body = &limitedReader{r: resp.Body, limiter: f.limiter, ctx: ctx}
	}
	buf := make([]byte, downloadChunkSize)
	for {
		n, rerr := body.Read(buf)
		if n > 0 {
			if _, werr := out.Write(buf[:n]); werr != nil {
				return fmt.Errorf("write %s: %w", item.Dest, werr)
			}
		}
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			return fmt.Errorf("read %s: %w", item.Source, rerr)
		}
	}
	return out.Close()
}

// limitedReader applies a shared token-bucket limit to reads.
type limitedReader struct {
	r       io.Reader
	limiter *rate.Limiter
	ctx     context.Context
}

func (lr *limitedReader) Read(p []byte) (int, error) {
	n, err := lr.r.Read(p)
	if n > 0 {
		burst := lr.limiter.Burst()
		remaining := n
		for remaining > 0 {
			take := remaining
			if take > burst {
				take = burst
			}
			if werr := lr.limiter.WaitN(lr.ctx, take); werr != nil {
				return n, werr
			}
			remaining -= take
		}
	}
	return n, err
}

// remoteDest maps a discovered URL beneath remoteRoot onto the local
// destination tree.
func remoteDest(remoteRoot, fileURL, destDir string) string {
	rel := fileURL[len(remoteRoot):]
	return filepath.Join(destDir, filepath.FromSlash(rel))
}
