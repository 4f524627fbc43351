// wav.go
//
// Minimal reader/writer for uncompressed PCM wave containers, which is the
// only audio format the corpus uses. The reader exposes the parameter block
// and streams frames in bounded chunks; the writer emits a complete header
// up front because the frame count is always known before writing.
package main

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
)

// wavParams is the parameter block of a PCM wave file.
type wavParams struct {
	Channels    int
	SampleRate  int
	SampleWidth int // bytes per sample
	Frames      int // frames in the data chunk
}

var errNotWave = errors.New("not an uncompressed PCM wave file")

type wavReader struct {
	f      *os.File
	params wavParams
	read   int // frames consumed so far
}

func openWav(path string) (*wavReader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	r := &wavReader{f: f}
	if err := r.readHeader(); err != nil {
		f.Close()
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return r, nil
}

func (r *wavReader) readHeader() error {
	var riff [12]byte
	if _, err := io.ReadFull(r.f, riff[:]); err != nil {
		return errNotWave
	}
	if string(riff[0:4]) != "RIFF" || string(riff[8:12]) != "WAVE" {
		return errNotWave
	}

	var haveFmt bool
	for {
		var hdr [8]byte
		if _, err := io.ReadFull(r.f, hdr[:]); err != nil {
			return errNotWave
		}
		chunkID := string(hdr[0:4])
		size := int64(binary.LittleEndian.Uint32(hdr[4:8]))
		switch chunkID {
		case "fmt ":
			var fmtChunk [16]byte
			if size < 16 {
				return errNotWave
			}
			if _, err := io.ReadFull(r.f, fmtChunk[:]); err != nil {
				return errNotWave
			}
			if binary.LittleEndian.Uint16(fmtChunk[0:2]) != 1 { // PCM only
				return errNotWave
			}
			r.params.Channels = int(binary.LittleEndian.Uint16(fmtChunk[2:4]))
			r.params.SampleRate = int(binary.LittleEndian.Uint32(fmtChunk[4:8]))
			r.params.SampleWidth = int(binary.LittleEndian.Uint16(fmtChunk[14:16])) / 8
			if r.params.Channels < 1 || r.params.SampleWidth < 1 {
				return errNotWave
			}
			if size > 16 {
				if _, err := r.f.Seek(size-16, io.SeekCurrent); err != nil {
					return errNotWave
				}
			}
			haveFmt = true
		case "data":
			if !haveFmt {
				return errNotWave
			}
			frameBytes := r.params.Channels * r.params.SampleWidth
			r.params.Frames = int(size) / frameBytes
			return nil
		default:
			// Skip unknown chunks (LIST, fact, ...). Chunk data is padded
			// to an even byte count.
			skip := size
			if size%2 == 1 {
				skip++
			}
			if _, err := r.f.Seek(skip, io.SeekCurrent); err != nil {
				return errNotWave
			}
		}
	}
}

func (r *wavReader) Params() wavParams { return r.params }

// ReadFrames reads up to n frames of raw interleaved sample data. It returns
// the number of frames actually read; zero frames with a nil error marks the
// end of the data chunk.
func (r *wavReader) ReadFrames(n int) ([]byte, int, error) {
	remaining := r.params.Frames - r.read
	if remaining <= 0 {
		return nil, 0, nil
	}
	if n > remaining {
		n = remaining
	}
	frameBytes := r.params.Channels * r.params.SampleWidth
	buf := make([]byte, n*frameBytes)
	if _, err := io.ReadFull(r.f, buf); err != nil {
		return nil, 0, err
	}
	r.read += n
	return buf, n, nil
}

func (r *wavReader) Close() error { return r.f.Close() }

type wavWriter struct {
	f       *os.File
	params  wavParams
	written int
}

// createWav writes the container header for params and returns a writer for
// the frame data. Exactly params.Frames frames must be written.
func createWav(path string, params wavParams) (*wavWriter, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	w := &wavWriter{f: f, params: params}
	if err := w.writeHeader(); err != nil {
		f.Close()
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return w, nil
}

func (w *wavWriter) writeHeader() error {
	frameBytes := w.params.Channels * w.params.SampleWidth
	dataSize := uint32(w.params.Frames * frameBytes)
	byteRate := uint32(w.params.SampleRate * frameBytes)

	var hdr [44]byte
	copy(hdr[0:4], "RIFF")
	binary.LittleEndian.PutUint32(hdr[4:8], 36+dataSize)
	copy(hdr[8:12], "WAVE")
	copy(hdr[12:16], "fmt ")
	binary.LittleEndian.PutUint32(hdr[16:20], 16)
	binary.LittleEndian.PutUint16(hdr[20:22], 1) // PCM
	binary.LittleEndian.PutUint16(hdr[22:24], uint16(w.params.Channels))
	binary.LittleEndian.PutUint32(hdr[24:28], uint32(w.params.SampleRate))
	binary.LittleEndian.PutUint32(hdr[28:32], byteRate)
	binary.LittleEndian.PutUint16(hdr[32:34], uint16(frameBytes))
	binary.LittleEndian.PutUint16(hdr[34:36], uint16(w.params.SampleWidth*8))
	copy(hdr[36:40], "data")
	binary.LittleEndian.PutUint32(hdr[40:44], dataSize)
	_, err := w.f.Write(hdr[:])
	return err
}

// WriteFrames appends raw interleaved frame data.
func (w *wavWriter) WriteFrames(data []byte) error {
	frameBytes := w.params.Channels * w.params.SampleWidth
	if len(data)%frameBytes != 0 {
		return fmt.Errorf("frame data not a multiple of %d bytes", frameBytes)
	}
	w.written += len(data) / frameBytes
	if w.written > w.params.Frames {
		return fmt.Errorf("wrote %d frames, header promised %d", w.written, w.params.Frames)
	}
	_, err := w.f.Write(data)
	return err
}

func (w *wavWriter) Close() error {
	if w.written != w.params.Frames {
		w.f.Close()
		return fmt.Errorf("wrote %d frames, header promised %d", w.written, w.params.Frames)
	}
	return w.f.Close()
}
