// chop.go
package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
)

// Chopper cuts one session recording into per-stimulus files using its
// co-located annotation file. Implementations report success or failure for
// the whole file; the runner collects failures per item.
type Chopper interface {
	Chop(ctx context.Context, audioFile, annotationFile, outDir string) error
}

// newChopper selects the external prochop executable when it is on the PATH
// and the built-in chopper otherwise. The choice is made once at startup.
func newChopper() Chopper {
	if exe, err := exec.LookPath("prochop"); err == nil {
		log.Debug().Str("exe", exe).Msg("using external chopper")
		return &proChop{exe: exe}
	}
	log.Debug().Msg("prochop not found, using built-in chopper")
	return &builtinChopper{}
}

// proChop invokes Mark Huckvale's ProChop utility. Only the exit status is
// consumed; stdout is discarded.
type proChop struct {
	exe string
}

func (p *proChop) Chop(ctx context.Context, audioFile, annotationFile, outDir string) error {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return err
	}
	cmd := exec.CommandContext(ctx, p.exe,
		"-a", audioFile,
		"-t", annotationFile,
		"-o", outDir,
	)
	cmd.Stdout = io.Discard
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("prochop %s: %w", audioFile, err)
	}
	return nil
}

// builtinChopper cuts the wave file in process at the annotated boundaries.
type builtinChopper struct{}

func (builtinChopper) Chop(ctx context.Context, audioFile, annotationFile, outDir string) error {
	segments, err := parseAnnotations(annotationFile)
	if err != nil {
		return fmt.Errorf("chop %s: %w", audioFile, err)
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return err
	}
	if err := chopWav(audioFile, segments, outDir); err != nil {
		return fmt.Errorf("chop %s: %w", audioFile, err)
	}
	return nil
}

// segment is one annotated stimulus: its start offset in seconds and its
// label. A segment runs until the next segment's start, the last until the
// end of the recording.
type segment struct {
	Start float64
	Label string
}

// parseAnnotations reads a ProRec annotation file: one line per stimulus,
// the start offset in seconds and the stimulus name separated by a tab.
// Blank lines and lines starting with '#' are skipped.
func parseAnnotations(path string) ([]segment, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var segments []segment
	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		start, label, ok := strings.Cut(line, "\t")
		if !ok {
			return nil, fmt.Errorf("%s:%d: expected <start>\\t<label>", path, lineNo)
		}
		offset, err := strconv.ParseFloat(strings.TrimSpace(start), 64)
		if err != nil {
			return nil, fmt.Errorf("%s:%d: bad start offset %q", path, lineNo, start)
		}
		label = strings.TrimSpace(label)
		if label == "" {
			return nil, fmt.Errorf("%s:%d: empty label", path, lineNo)
		}
		segments = append(segments, segment{Start: offset, Label: label})
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if len(segments) == 0 {
		return nil, fmt.Errorf("%s: no annotated segments", path)
	}
	return segments, nil
}

func chopWav(audioFile string, segments []segment, outDir string) error {
	src, err := openWav(audioFile)
	if err != nil {
		return err
	}
	defer src.Close()
	params := src.Params()

	// Segment boundaries in frames, clamped to the recording.
	bounds := make([]int, len(segments)+1)
	for i, seg := range segments {
		frame := int(seg.Start * float64(params.SampleRate))
		if frame < 0 {
			frame = 0
		}
		if frame > params.Frames {
			frame = params.Frames
		}
		bounds[i] = frame
	}
	bounds[len(segments)] = params.Frames

	read := 0
	for i, seg := range segments {
		// Skip any gap before the segment start.
		if skip := bounds[i] - read; skip > 0 {
			if err := discardFrames(src, skip); err != nil {
				return err
			}
			read += skip
		}
		length := bounds[i+1] - bounds[i]
		if length < 0 {
			return fmt.Errorf("annotation offsets not increasing at %q", seg.Label)
		}
		outParams := params
		outParams.Frames = length
		dst, err := createWav(filepath.Join(outDir, seg.Label+".wav"), outParams)
		if err != nil {
			return err
		}
		remaining := length
		for remaining > 0 {
			n := remaining
			if n > monoChunkFrames {
				n = monoChunkFrames
			}
			data, got, err := src.ReadFrames(n)
			if err != nil {
				dst.f.Close()
				return err
			}
			if got == 0 {
				break
			}
			if err := dst.WriteFrames(data); err != nil {
				dst.f.Close()
				return err
			}
			read += got
			remaining -= got
		}
		if err := dst.Close(); err != nil {
			return err
		}
	}
	return nil
}

func discardFrames(r *wavReader, n int) error {
	for n > 0 {
		chunk := n
		if chunk > monoChunkFrames {
			chunk = monoChunkFrames
		}
		_, got, err := r.ReadFrames(chunk)
		if err != nil {
			return err
		}
		if got == 0 {
			return nil
		}
		n -= got
	}
	return nil
}
