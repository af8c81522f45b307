package dem

import (
	"bytes"
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/tiff"
)

func testKey() Key {
	return Key{
		BBox:       BBox{MinX: 10, MinY: 10, MaxX: 20, MaxY: 20},
		Resolution: 1.0,
		Version:    "1",
	}
}

func TestKeyCanonicalString(t *testing.T) {
	a := Key{BBox: BBox{MinX: 10, MinY: 10, MaxX: 20, MaxY: 20}, Resolution: 1}
	b := Key{BBox: BBox{MinX: 10.00001, MinY: 10, MaxX: 20, MaxY: 19.99998}, Resolution: 1.00004}

	assert.Equal(t, a.String(), b.String(), "near-identical keys must canonicalize to the same string")
	assert.Equal(t, "v1/10.0000,10.0000,20.0000,20.0000@1.0000", a.String())
}

func TestDecodeBinaryRoundTrip(t *testing.T) {
	const nodata = float32(-9999)
	samples := []float32{
		1, 2, nodata,
		4, 5, 6,
	}

	data := Encode(3, 2, nodata, samples)
	tile, err := Decode(testKey(), data)
	require.NoError(t, err)

	assert.Equal(t, 3, tile.Width)
	assert.Equal(t, 2, tile.Height)
	assert.Equal(t, 5, tile.ValidCount())

	v, ok := tile.At(1, 1)
	assert.True(t, ok)
	assert.Equal(t, float32(5), v)

	_, ok = tile.At(2, 0)
	assert.False(t, ok, "no-data sample must be masked")
}

func TestDecodeBinaryCorrupt(t *testing.T) {
	cases := map[string][]byte{
		"truncated header": {'M', 'D', 'E', 'M', 1, 0},
		"size mismatch":    Encode(4, 4, -1, make([]float32, 16))[:40],
	}

	for name, data := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Decode(testKey(), data)
			assert.ErrorIs(t, err, ErrCorrupt)
		})
	}
}

func TestDecodeTIFF(t *testing.T) {
	img := image.NewGray16(image.Rect(0, 0, 4, 4))
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			img.SetGray16(x, y, gray16(uint16(1000*(x+y+1))))
		}
	}
	// One no-data pixel.
	img.SetGray16(2, 2, gray16(0))

	var buf bytes.Buffer
	require.NoError(t, tiff.Encode(&buf, img, nil))

	tile, err := Decode(testKey(), buf.Bytes())
	require.NoError(t, err)

	assert.Equal(t, 4, tile.Width)
	assert.Equal(t, 15, tile.ValidCount())

	_, ok := tile.At(2, 2)
	assert.False(t, ok)

	v, ok := tile.At(0, 0)
	assert.True(t, ok)
	assert.InDelta(t, 1000.0/65535*700, float64(v), 0.01)
}

func TestDecodeGarbage(t *testing.T) {
	_, err := Decode(testKey(), []byte("not a raster at all"))
	assert.ErrorIs(t, err, ErrCorrupt)
}

func gray16(v uint16) color.Gray16 {
	return color.Gray16{Y: v}
}
