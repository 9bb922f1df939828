package indicator

import (
	"bytes"
	"encoding/binary"
	"image/png"
	"testing"

	"dictation/internal/pipeline"
)

func TestIconIsPNGBackedICO(t *testing.T) {
	ico := Icon(pipeline.Recording, true)
	if len(ico) < 22 {
		t.Fatalf("icon too short: %d bytes", len(ico))
	}
	if binary.LittleEndian.Uint16(ico[2:4]) != 1 || binary.LittleEndian.Uint16(ico[4:6]) != 1 {
		t.Fatalf("bad ICONDIR header: % x", ico[:6])
	}
	size := binary.LittleEndian.Uint32(ico[14:18])
	offset := binary.LittleEndian.Uint32(ico[18:22])
	if int(offset+size) != len(ico) {
		t.Fatalf("entry covers %d+%d, file is %d bytes", offset, size, len(ico))
	}
	img, err := png.Decode(bytes.NewReader(ico[offset:]))
	if err != nil {
		t.Fatalf("png decode: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 32 || b.Dy() != 32 {
		t.Fatalf("unexpected bounds %v", b)
	}
	r, _, _, a := img.At(16, 16).RGBA()
	if a == 0 || r>>8 != 0xe0 {
		t.Fatalf("centre pixel not recording red: r=%x a=%x", r>>8, a>>8)
	}
	if _, _, _, a := img.At(0, 0).RGBA(); a != 0 {
		t.Fatalf("corner should be transparent")
	}
}

func TestIconsDifferByState(t *testing.T) {
	idle := Icon(pipeline.Idle, true)
	if bytes.Equal(idle, Icon(pipeline.Recording, true)) || bytes.Equal(idle, Icon(pipeline.Processing, true)) {
		t.Fatalf("state icons should differ")
	}
	if bytes.Equal(idle, Icon(pipeline.Idle, false)) {
		t.Fatalf("disabled icon should differ from idle")
	}
}

func TestTooltip(t *testing.T) {
	cases := []struct {
		s       pipeline.State
		enabled bool
		want    string
	}{
		{pipeline.Idle, true, "Dictation: ready"},
		{pipeline.Recording, true, "Dictation: recording..."},
		{pipeline.Processing, true, "Dictation: transcribing..."},
		{pipeline.Recording, false, "Dictation (disabled)"},
	}
	for _, c := range cases {
		if got := Tooltip(c.s, c.enabled); got != c.want {
			t.Errorf("Tooltip(%s, %v) = %q, want %q", c.s, c.enabled, got, c.want)
		}
	}
}
