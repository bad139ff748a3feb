package mot

import (
	"github.com/pkg/errors"
)

// Channels is number of 8-bit channels in Frame.Pix (BGR order)
const Channels = 3

// Frame is a decoded video frame: height x width x 3 interleaved BGR bytes.
// Trackers never modify it, so the same frame may be shared between concurrent updates.
type Frame struct {
	Index     int
	Timestamp float64 // Seconds from the start of the video
	Width     int
	Height    int
	Pix       []byte

	plane *framePlane
}

// NewFrame validates buffer size and wraps it into Frame
func NewFrame(index int, timestamp float64, width, height int, pix []byte) (Frame, error) {
	if width <= 0 || height <= 0 {
		return Frame{}, errors.Errorf("invalid frame size %dx%d", width, height)
	}
	if len(pix) != width*height*Channels {
		return Frame{}, errors.Errorf("frame buffer has %d bytes, expected %d for %dx%dx%d", len(pix), width*height*Channels, width, height, Channels)
	}
	return Frame{
		Index:     index,
		Timestamp: timestamp,
		Width:     width,
		Height:    height,
		Pix:       pix,
	}, nil
}

// Bounds returns frame rectangle
func (f Frame) Bounds() Rectangle {
	return Rectangle{X: 0, Y: 0, Width: float64(f.Width), Height: float64(f.Height)}
}

// Prepare returns the frame with its intensity plane computed, so trackers sharing the
// frame do not convert it each. TrackManager.UpdateAll prepares frames itself.
func (f Frame) Prepare() Frame {
	if f.plane == nil && f.valid() {
		f.plane = newFramePlane(f)
	}
	return f
}

// intensity returns prepared plane or builds a private one
func (f Frame) intensity() *framePlane {
	if f.plane != nil {
		return f.plane
	}
	return newFramePlane(f)
}

func (f Frame) valid() bool {
	return f.Width > 0 && f.Height > 0 && len(f.Pix) >= f.Width*f.Height*Channels
}

// grayImage is single channel intensity plane
type grayImage struct {
	width  int
	height int
	pix    []float64
}

func (g *grayImage) at(x, y int) float64 {
	return g.pix[y*g.width+x]
}

// gray converts BGR frame to intensity using ITU-R BT.601 luma weights
func (f Frame) gray() *grayImage {
	g := &grayImage{
		width:  f.Width,
		height: f.Height,
		pix:    make([]float64, f.Width*f.Height),
	}
	for i := range g.pix {
		b := float64(f.Pix[i*Channels])
		gr := float64(f.Pix[i*Channels+1])
		r := float64(f.Pix[i*Channels+2])
		g.pix[i] = 0.114*b + 0.587*gr + 0.299*r
	}
	return g
}

// crop copies sub-region of the plane. Region must be within bounds.
func (g *grayImage) crop(x, y, w, h int) *grayImage {
	out := &grayImage{
		width:  w,
		height: h,
		pix:    make([]float64, w*h),
	}
	for row := 0; row < h; row++ {
		copy(out.pix[row*w:(row+1)*w], g.pix[(y+row)*g.width+x:(y+row)*g.width+x+w])
	}
	return out
}

// clipRect intersects rectangle with frame bounds and converts it to integer pixel coordinates
func clipRect(r Rectangle, width, height int) (x, y, w, h int) {
	x0 := int(r.X)
	y0 := int(r.Y)
	x1 := int(r.X + r.Width)
	y1 := int(r.Y + r.Height)
	x0 = max(x0, 0)
	y0 = max(y0, 0)
	x1 = min(x1, width)
	y1 = min(y1, height)
	return x0, y0, x1 - x0, y1 - y0
}
