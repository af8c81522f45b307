package dem

import (
	"bytes"
	"fmt"
	"image"

	"golang.org/x/image/tiff"
)

// TIFF tiles are 16-bit grayscale rasters as produced by the DTM export
// pipeline. Sample value 0 is no-data; the remaining range maps linearly
// onto [0, maxElevation] meters.
const (
	tiffMaxSample    = 65535
	tiffMaxElevation = 700.0 // meters, upper bound of the dataset
)

func decodeTIFF(key Key, data []byte) (*Tile, error) {
	img, err := tiff.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}

	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("%w: empty raster", ErrCorrupt)
	}

	t := &Tile{
		Key:    key,
		Width:  w,
		Height: h,
		Elev:   make([]float32, w*h),
		Valid:  make([]bool, w*h),
	}

	gray, ok := img.(*image.Gray16)
	if !ok {
		// Some exporters write plain 8-bit grayscale; accept it through
		// the generic path at reduced vertical precision.
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				r, _, _, _ := img.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
				t.set(x, y, uint16(r))
			}
		}
		return t, nil
	}

	for y := 0; y < h; y++ {
		row := gray.Pix[y*gray.Stride : y*gray.Stride+w*2]
		for x := 0; x < w; x++ {
			t.set(x, y, uint16(row[x*2])<<8|uint16(row[x*2+1]))
		}
	}

	return t, nil
}

func (t *Tile) set(x, y int, sample uint16) {
	if sample == 0 {
		return
	}
	i := y*t.Width + x
	t.Elev[i] = float32(sample) / tiffMaxSample * tiffMaxElevation
	t.Valid[i] = true
}
