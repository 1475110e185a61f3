package audio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"time"
)

// ErrInvalidWAV is returned for files that are not uncompressed PCM WAV.
var ErrInvalidWAV = errors.New("invalid WAV file")

const formatPCM = 1

// WAVInfo is the subset of a WAV header needed to size the audio.
type WAVInfo struct {
	Channels      int
	SampleRateHz  int
	BitsPerSample int
	DataBytes     int64
	// DataOffset is where the sample data starts in the file.
	DataOffset int64
}

// ByteRate returns the number of audio bytes per second.
func (i WAVInfo) ByteRate() int64 {
	return int64(i.SampleRateHz) * int64(i.Channels) * int64(i.BitsPerSample/8)
}

// Duration returns the playing time of the data chunk.
func (i WAVInfo) Duration() time.Duration {
	rate := i.ByteRate()
	if rate == 0 {
		return 0
	}
	return time.Duration(i.DataBytes * int64(time.Second) / rate)
}

// ReadWAVInfo reads the header of the WAV file at path.
func ReadWAVInfo(path string) (WAVInfo, error) {
	f, err := os.Open(path)
	if err != nil {
		return WAVInfo{}, err
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		return WAVInfo{}, err
	}
	return ParseWAV(f, st.Size())
}

// ParseWAV walks the RIFF chunks of r until it has seen "fmt " and "data".
// size is the total stream length, used to clamp a data chunk whose declared
// length runs past the end of the file (streamed writers leave it unset).
func ParseWAV(r io.Reader, size int64) (WAVInfo, error) {
	var riff [12]byte
	if _, err := io.ReadFull(r, riff[:]); err != nil {
		return WAVInfo{}, fmt.Errorf("%w: short header", ErrInvalidWAV)
	}
	if string(riff[0:4]) != "RIFF" || string(riff[8:12]) != "WAVE" {
		return WAVInfo{}, fmt.Errorf("%w: missing RIFF/WAVE signature", ErrInvalidWAV)
	}

	var (
		info   WAVInfo
		hasFmt bool
		offset int64 = 12
	)
	for {
		var hdr [8]byte
		if _, err := io.ReadFull(r, hdr[:]); err != nil {
			return WAVInfo{}, fmt.Errorf("%w: no data chunk", ErrInvalidWAV)
		}
		offset += 8
		id := string(hdr[0:4])
		n := int64(binary.LittleEndian.Uint32(hdr[4:8]))

		switch id {
		case "fmt ":
			if n < 16 {
				return WAVInfo{}, fmt.Errorf("%w: fmt chunk too small", ErrInvalidWAV)
			}
			buf := make([]byte, n)
			if _, err := io.ReadFull(r, buf); err != nil {
				return WAVInfo{}, fmt.Errorf("%w: truncated fmt chunk", ErrInvalidWAV)
			}
			if n%2 == 1 {
				if _, err := io.CopyN(io.Discard, r, 1); err != nil {
					return WAVInfo{}, fmt.Errorf("%w: truncated fmt chunk", ErrInvalidWAV)
				}
			}
			if format := binary.LittleEndian.Uint16(buf[0:2]); format != formatPCM {
				return WAVInfo{}, fmt.Errorf("%w: audio format %d is not PCM", ErrInvalidWAV, format)
			}
			info.Channels = int(binary.LittleEndian.Uint16(buf[2:4]))
			info.SampleRateHz = int(binary.LittleEndian.Uint32(buf[4:8]))
			info.BitsPerSample = int(binary.LittleEndian.Uint16(buf[14:16]))
			if info.Channels == 0 || info.SampleRateHz == 0 || info.BitsPerSample < 8 {
				return WAVInfo{}, fmt.Errorf("%w: unsupported fmt %+v", ErrInvalidWAV, info)
			}
			hasFmt = true
		case "data":
			if !hasFmt {
				return WAVInfo{}, fmt.Errorf("%w: data chunk before fmt chunk", ErrInvalidWAV)
			}
			if size > 0 && offset+n > size {
				n = size - offset
			}
			info.DataBytes = n
			info.DataOffset = offset
			return info, nil
		default:
			if _, err := io.CopyN(io.Discard, r, n+n%2); err != nil {
				return WAVInfo{}, fmt.Errorf("%w: truncated %q chunk", ErrInvalidWAV, id)
			}
		}
		offset += n + n%2
	}
}
