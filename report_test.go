package main

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"testing"
)

func TestDescribeFailureHTTPStatus(t *testing.T) {
	err := &httpStatusError{URL: "https://host/a.wav", Code: 404}
	got := describeFailure("https://host/a.wav", err)
	if !strings.Contains(got, "404") || !strings.Contains(got, "Not Found") {
		t.Errorf("describeFailure() = %q, want status code and reason", got)
	}
}

func TestDescribeFailureWrappedHTTPStatus(t *testing.T) {
	// Classification must see through wrapping added by workers.
	wrapped := fmt.Errorf("download item: %w", &httpStatusError{URL: "u", Code: 503})
	if got := describeFailure("u", wrapped); !strings.Contains(got, "503") {
		t.Errorf("describeFailure(wrapped) = %q, want status classification", got)
	}
}

func TestDescribeFailureURLError(t *testing.T) {
	err := &url.Error{Op: "Get", URL: "https://gone.example/", Err: errors.New("no such host")}
	got := describeFailure("https://gone.example/", err)
	if !strings.Contains(got, "no such host") {
		t.Errorf("describeFailure() = %q, want network message", got)
	}
}

func TestDescribeFailurePathError(t *testing.T) {
	err := &os.PathError{Op: "open", Path: "/data/x.wav", Err: errors.New("permission denied")}
	got := describeFailure("/data/x.wav", err)
	if !strings.Contains(got, "open") || !strings.Contains(got, "permission denied") {
		t.Errorf("describeFailure() = %q, want operation and message", got)
	}
}

func TestDescribeFailureGeneric(t *testing.T) {
	got := describeFailure("item-1", errors.New("something odd"))
	if !strings.Contains(got, "item-1") || !strings.Contains(got, "something odd") {
		t.Errorf("describeFailure() = %q", got)
	}
	if got := describeFailure("item-2", nil); !strings.Contains(got, "item-2") {
		t.Errorf("describeFailure(nil) = %q, must not panic and must name the item", got)
	}
}
