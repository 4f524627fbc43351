// report.go
package main

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"sort"
)

// Configuration-class sentinel errors. These abort a command before any work
// starts; everything else is collected per item.
var (
	errBadRemote = errors.New("invalid remote URL")
	errBadPath   = errors.New("invalid path")
)

// httpStatusError records a non-2xx response for a URL.
type httpStatusError struct {
	URL  string
	Code int
}

func (e *httpStatusError) Error() string {
	return fmt.Sprintf("HTTP %d %s for %s", e.Code, http.StatusText(e.Code), e.URL)
}

// reportFailedDirs prints one diagnostic line per directory whose listing
// could not be fetched.
func reportFailedDirs(dirs []string) {
	for _, dir := range dirs {
		fmt.Fprintf(os.Stderr, "ERROR: could not obtain index for remote directory at %s\n", dir)
	}
}

// reportFailures classifies each collected failure and renders one line per
// item to stderr. Keys are sorted so runs are comparable. A malformed error
// value never aborts the remaining report.
func reportFailures(failed map[string]error) {
	keys := make([]string, 0, len(failed))
	for k := range failed {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, key := range keys {
		fmt.Fprintf(os.Stderr, "ERROR: %s\n", describeFailure(key, failed[key]))
	}
}

func describeFailure(key string, err error) string {
	if err == nil {
		return fmt.Sprintf("%s: unknown failure", key)
	}
	var statusErr *httpStatusError
	if errors.As(err, &statusErr) {
		return fmt.Sprintf("the URL %s returned an HTTP error (%d %s)",
			statusErr.URL, statusErr.Code, http.StatusText(statusErr.Code))
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return fmt.Sprintf("the URL %s is not a valid URL or could not be opened (%v)", key, urlErr.Err)
	}
	var pathErr *os.PathError
	if errors.As(err, &pathErr) {
		return fmt.Sprintf("%s: could not %s %s (%v)", key, pathErr.Op, pathErr.Path, pathErr.Err)
	}
	return fmt.Sprintf("%s: %v", key, err)
}
