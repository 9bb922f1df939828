// Package indicator reflects the dictation state in the system tray, or on
// the console where no tray is available.
package indicator

import (
	"bytes"
	"encoding/binary"
	"image"
	"image/color"
	"image/png"

	"dictation/internal/pipeline"
)

const appName = "Dictation"

// Menu holds the tray menu callbacks. Any of them may be nil.
type Menu struct {
	OnToggle func(enabled bool)
	OnUsage  func()
	OnQuit   func()
}

var (
	colorIdle       = color.RGBA{R: 0x80, G: 0x80, B: 0x80, A: 0xff}
	colorDisabled   = color.RGBA{R: 0x40, G: 0x40, B: 0x40, A: 0xff}
	colorRecording  = color.RGBA{R: 0xe0, G: 0x20, B: 0x20, A: 0xff}
	colorProcessing = color.RGBA{R: 0xf0, G: 0xa0, B: 0x00, A: 0xff}
)

// Tooltip returns the text shown when hovering the tray icon.
func Tooltip(s pipeline.State, enabled bool) string {
	if !enabled {
		return appName + " (disabled)"
	}
	switch s {
	case pipeline.Recording:
		return appName + ": recording..."
	case pipeline.Processing:
		return appName + ": transcribing..."
	default:
		return appName + ": ready"
	}
}

func stateColor(s pipeline.State, enabled bool) color.RGBA {
	if !enabled {
		return colorDisabled
	}
	switch s {
	case pipeline.Recording:
		return colorRecording
	case pipeline.Processing:
		return colorProcessing
	default:
		return colorIdle
	}
}

// Icon returns a 32x32 ICO image of a filled circle coloured for the state.
func Icon(s pipeline.State, enabled bool) []byte {
	return circleICO(stateColor(s, enabled), 32)
}

// circleICO wraps a PNG-encoded circle in a single-image ICO container.
func circleICO(c color.RGBA, size int) []byte {
	img := image.NewRGBA(image.Rect(0, 0, size, size))
	r := float64(size)/2 - 1
	cx, cy := float64(size)/2, float64(size)/2
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			dx, dy := float64(x)+0.5-cx, float64(y)+0.5-cy
			if dx*dx+dy*dy <= r*r {
				img.SetRGBA(x, y, c)
			}
		}
	}

	var pngBuf bytes.Buffer
	_ = png.Encode(&pngBuf, img)

	var out bytes.Buffer
	// ICONDIR
	_ = binary.Write(&out, binary.LittleEndian, []uint16{0, 1, 1})
	// ICONDIRENTRY; a 0 width/height byte means 256.
	dim := byte(size)
	if size >= 256 {
		dim = 0
	}
	out.Write([]byte{dim, dim, 0, 0})
	_ = binary.Write(&out, binary.LittleEndian, []uint16{1, 32})
	_ = binary.Write(&out, binary.LittleEndian, []uint32{uint32(pngBuf.Len()), 6 + 16})
	out.Write(pngBuf.Bytes())
	return out.Bytes()
}
