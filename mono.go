// mono.go
package main

import (
	"fmt"
	"os"
	"path/filepath"
)

// monoChunkFrames bounds memory while converting long recordings: frames are
// de-interleaved and written in pieces of this many frames.
const monoChunkFrames = 32768

// extractFirstChannel copies the wave file at item.Source to item.Dest with
// the channel count forced to 1, keeping only the first channel of each
// interleaved frame. Sample rate and width are preserved. Failures are
// wrapped with the source path for diagnostics.
func extractFirstChannel(item WorkItem) error {
	if err := monoise(item.Source, item.Dest); err != nil {
		return fmt.Errorf("extract first channel from %s: %w", item.Source, err)
	}
	return nil
}

func monoise(sourceFile, destFile string) error {
	if err := os.MkdirAll(filepath.Dir(destFile), 0o755); err != nil {
		return err
	}
	src, err := openWav(sourceFile)
	if err != nil {
		return err
	}
	defer src.Close()

	params := src.Params()
	outParams := params
	outParams.Channels = 1
	dst, err := createWav(destFile, outParams)
	if err != nil {
		return err
	}

	frameBytes := params.Channels * params.SampleWidth
	for {
		data, n, err := src.ReadFrames(monoChunkFrames)
		if err != nil {
			dst.f.Close()
			return err
		}
		if n == 0 {
			break
		}
		mono := make([]byte, n*params.SampleWidth)
		for i := 0; i < n; i++ {
			copy(mono[i*params.SampleWidth:(i+1)*params.SampleWidth], data[i*frameBytes:i*frameBytes+params.SampleWidth])
		}
		if err := dst.WriteFrames(mono); err != nil {
			dst.f.Close()
			return err
		}
	}
	return dst.Close()
}
