package dem

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
)

// Binary tile format: "MDEM" magic, uint32 width, uint32 height,
// float32 no-data sentinel, then width*height float32 samples,
// all little-endian. This is the native format of the ingest tooling.
var magic = [4]byte{'M', 'D', 'E', 'M'}

const headerSize = 4 + 4 + 4 + 4

// Decode parses tile payload bytes into a Tile. The binary format is tried
// first by magic; anything else is handed to the TIFF decoder.
func Decode(key Key, data []byte) (*Tile, error) {
	if len(data) >= 4 && bytes.Equal(data[:4], magic[:]) {
		return decodeBinary(key, data)
	}
	return decodeTIFF(key, data)
}

func decodeBinary(key Key, data []byte) (*Tile, error) {
	if len(data) < headerSize {
		return nil, fmt.Errorf("%w: truncated header (%d bytes)", ErrCorrupt, len(data))
	}

	w := int(binary.LittleEndian.Uint32(data[4:8]))
	h := int(binary.LittleEndian.Uint32(data[8:12]))
	nodata := math.Float32frombits(binary.LittleEndian.Uint32(data[12:16]))

	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("%w: invalid dimensions %dx%d", ErrCorrupt, w, h)
	}
	if want := headerSize + w*h*4; len(data) != want {
		return nil, fmt.Errorf("%w: payload size %d, want %d for %dx%d", ErrCorrupt, len(data), want, w, h)
	}

	t := &Tile{
		Key:    key,
		Width:  w,
		Height: h,
		Elev:   make([]float32, w*h),
		Valid:  make([]bool, w*h),
	}

	body := data[headerSize:]
	for i := range t.Elev {
		v := math.Float32frombits(binary.LittleEndian.Uint32(body[i*4:]))
		if v == nodata || math.IsNaN(float64(v)) {
			continue
		}
		t.Elev[i] = v
		t.Valid[i] = true
	}

	return t, nil
}

// Encode serializes a grid into the binary tile format. Samples equal to
// the sentinel are stored as no-data. Used by ingest tooling and tests.
func Encode(width, height int, nodata float32, samples []float32) []byte {
	buf := make([]byte, headerSize+len(samples)*4)
	copy(buf, magic[:])
	binary.LittleEndian.PutUint32(buf[4:], uint32(width))
	binary.LittleEndian.PutUint32(buf[8:], uint32(height))
	binary.LittleEndian.PutUint32(buf[12:], math.Float32bits(nodata))
	for i, v := range samples {
		binary.LittleEndian.PutUint32(buf[headerSize+i*4:], math.Float32bits(v))
	}
	return buf
}
