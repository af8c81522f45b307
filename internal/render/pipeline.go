package render

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"time"

	"github.com/aresmaps/mars_relief/internal/mesh"
	"github.com/aresmaps/mars_relief/pkg/metrics"
)

// Execute runs one draw on a checked-out context: upload geometry,
// draw, read back, detach. The context is always detached on return so
// it goes back to the pool stateless, even after a failure.
func Execute(rc Context, m *mesh.Mesh, p Params) (*Frame, error) {
	defer rc.Detach()

	start := time.Now()

	if err := rc.Upload(m); err != nil {
		return nil, fmt.Errorf("%w: upload: %v", ErrRenderFailed, err)
	}

	frame, err := rc.Draw(p)
	if err != nil {
		return nil, err
	}

	metrics.RenderDuration.Observe(time.Since(start).Seconds())

	return frame, nil
}

// EncodePNG serializes a frame. Frames are tightly packed NRGBA, which
// image/png consumes without copying.
func EncodePNG(f *Frame) ([]byte, error) {
	img := &image.NRGBA{
		Pix:    f.Pix,
		Stride: f.Width * 4,
		Rect:   image.Rect(0, 0, f.Width, f.Height),
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("render: encode png: %w", err)
	}
	return buf.Bytes(), nil
}
