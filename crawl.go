// crawl.go
package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// IndexEntry is one child of a remote directory-listing page. Name is the
// percent-encoded child name exactly as it appears in the page; a trailing
// slash marks a subdirectory.
type IndexEntry struct {
	Name  string
	IsDir bool
}

// ListingParser extracts child entries from one directory-listing body.
// Unrecognized markup yields an empty entry list, not an error.
type ListingParser interface {
	Parse(body string) []IndexEntry
}

// serverIndexParser matches the fixed list format the corpus host emits:
// list items containing an anchor whose href is the literal child name.
type serverIndexParser struct{}

var indexAnchorRe = regexp.MustCompile(`(?m)^<li><a href="([\w\-\. %]+/?)">`)

func (serverIndexParser) Parse(body string) []IndexEntry {
	matches := indexAnchorRe.FindAllStringSubmatch(body, -1)
	entries := make([]IndexEntry, 0, len(matches))
	for _, m := range matches {
		entries = append(entries, IndexEntry{
			Name:  m[1],
			IsDir: strings.HasSuffix(m[1], "/"),
		})
	}
	return entries
}

// CrawlResult is everything one crawl discovered. Files holds absolute URLs
// of downloadable leaves; FailedDirs holds directories whose listing could
// not be fetched. Failed directories are not retried.
type CrawlResult struct {
	Files      []string
	FailedDirs []string
}

// Crawler walks a directory-listing server depth first and returns the flat
// set of leaf URLs beneath a root. Listing fetches are sequential: each
// request depends on URLs discovered by the previous one.
type Crawler struct {
	client *http.Client
	parser ListingParser
}

func NewCrawler(client *http.Client, parser ListingParser) *Crawler {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	if parser == nil {
		parser = serverIndexParser{}
	}
	return &Crawler{client: client, parser: parser}
}

// Crawl discovers every leaf URL reachable from root via directory entries.
// Per-directory fetch failures are collected in the result, never returned
// as an error; the only error is context cancellation.
func (c *Crawler) Crawl(ctx context.Context, root string) (CrawlResult, error) {
	var result CrawlResult
	frontier := []string{root}

	for len(frontier) > 0 {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		target := frontier[len(frontier)-1]
		frontier = frontier[:len(frontier)-1]
		if !strings.HasSuffix(target, "/") {
			target += "/"
		}

		entries, err := c.fetchListing(ctx, target)
		if err != nil {
			log.Debug().Str("url", target).Err(err).Msg("listing fetch failed")
			result.FailedDirs = append(result.FailedDirs, target)
			continue
		}
		for _, entry := range entries {
			child := target + entry.Name
			if entry.IsDir {
				frontier = append(frontier, child)
			} else {
				result.Files = append(result.Files, child)
			}
		}
	}
	return result, nil
}

func (c *Crawler) fetchListing(ctx context.Context, dirURL string) ([]IndexEntry, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, dirURL, nil)
	if err != nil {
		return nil, fmt.Errorf("listing request for %s: %w", dirURL, err)
	}
	q := req.URL.Query()
	q.Set("F", "0")
	req.URL.RawQuery = q.Encode()

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("listing fetch for %s: %w", dirURL, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &httpStatusError{URL: dirURL, Code: resp.StatusCode}
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("listing read for %s: %w", dirURL, err)
	}
	return c.parser.Parse(string(body)), nil
}

// validateRemote checks a remote root URL and normalizes it to end with a
// slash. Only http and https schemes are accepted.
func validateRemote(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("%w: %q: %v", errBadRemote, raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("%w: scheme %q is not supported", errBadRemote, u.Scheme)
	}
	if u.Host == "" {
		return "", fmt.Errorf("%w: %q has no host", errBadRemote, raw)
	}
	s := u.String()
	if !strings.HasSuffix(s, "/") {
		s += "/"
	}
	return s, nil
}
