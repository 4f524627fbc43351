package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestParseAnnotations(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.txt")
	content := "# ProRec export\n0.0\taber-1\n\n2.5\tbangor-1\n5.0\tcaerdydd-1\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	segments, err := parseAnnotations(path)
	if err != nil {
		t.Fatalf("parseAnnotations() error = %v", err)
	}
	want := []segment{{0.0, "aber-1"}, {2.5, "bangor-1"}, {5.0, "caerdydd-1"}}
	if len(segments) != len(want) {
		t.Fatalf("got %d segments %v, want %d", len(segments), segments, len(want))
	}
	for i, seg := range segments {
		if seg != want[i] {
			t.Errorf("segment %d = %+v, want %+v", i, seg, want[i])
		}
	}
}

func TestParseAnnotationsMalformed(t *testing.T) {
	dir := t.TempDir()
	tests := map[string]string{
		"no-tab.txt":    "0.0 aber-1\n",
		"bad-start.txt": "zero\taber-1\n",
		"empty.txt":     "\n\n",
		"no-label.txt":  "1.0\t \n",
	}
	for name, content := range tests {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
		if _, err := parseAnnotations(path); err == nil {
			t.Errorf("parseAnnotations(%s) error = nil, want error", name)
		}
	}
}

func TestBuiltinChopperSegments(t *testing.T) {
	dir := t.TempDir()
	audio := filepath.Join(dir, "session.wav")
	const rate = 8000
	writeStereoWav(t, audio, rate, 4*rate) // 4 seconds

	annotation := filepath.Join(dir, "session.txt")
	if err := os.WriteFile(annotation, []byte("0.0\taber-1\n1.0\tbangor-1\n3.0\tcaerdydd-1\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	outDir := filepath.Join(dir, "chopped")
	if err := (builtinChopper{}).Chop(context.Background(), audio, annotation, outDir); err != nil {
		t.Fatalf("Chop() error = %v", err)
	}

	wantFrames := map[string]int{
		"aber-1.wav":     1 * rate,
		"bangor-1.wav":   2 * rate,
		"caerdydd-1.wav": 1 * rate,
	}
	for name, frames := range wantFrames {
		r, err := openWav(filepath.Join(outDir, name))
		if err != nil {
			t.Errorf("output %s missing: %v", name, err)
			continue
		}
		params := r.Params()
		if params.Frames != frames {
			t.Errorf("%s has %d frames, want %d", name, params.Frames, frames)
		}
		if params.Channels != 2 || params.SampleRate != rate {
			t.Errorf("%s params = %+v, want 2ch @ %d", name, params, rate)
		}
		r.Close()
	}
}

func TestBuiltinChopperSkipsLeadingGap(t *testing.T) {
	dir := t.TempDir()
	audio := filepath.Join(dir, "session.wav")
	const rate = 8000
	writeStereoWav(t, audio, rate, 2*rate)

	annotation := filepath.Join(dir, "session.txt")
	if err := os.WriteFile(annotation, []byte("0.5\taber-1\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	outDir := filepath.Join(dir, "chopped")
	if err := (builtinChopper{}).Chop(context.Background(), audio, annotation, outDir); err != nil {
		t.Fatalf("Chop() error = %v", err)
	}
	r, err := openWav(filepath.Join(outDir, "aber-1.wav"))
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()
	if got, want := r.Params().Frames, 2*rate-rate/2; got != want {
		t.Errorf("segment frames = %d, want %d (recording minus leading gap)", got, want)
	}
}

func TestBuiltinChopperMissingAnnotation(t *testing.T) {
	dir := t.TempDir()
	audio := filepath.Join(dir, "session.wav")
	writeStereoWav(t, audio, 8000, 8000)

	err := (builtinChopper{}).Chop(context.Background(), audio, filepath.Join(dir, "session.txt"), dir)
	if err == nil {
		t.Fatal("Chop() without annotation file error = nil, want error")
	}
}
