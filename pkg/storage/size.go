package storage

import (
	"fmt"
	"strconv"
	"strings"
)

// Size describes a requested derivative size. Zero means unconstrained on
// that axis; at least one axis must be set.
type Size struct {
	Width  int
	Height int
}

// ParseSize accepts "WxH", "Wx", "xH" and a bare integer, which is treated
// as a height constraint.
func ParseSize(raw string) (Size, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Size{}, fmt.Errorf("empty size")
	}
	if !strings.Contains(raw, "x") {
		h, err := strconv.Atoi(raw)
		if err != nil || h <= 0 {
			return Size{}, fmt.Errorf("invalid size %q", raw)
		}
		return Size{Height: h}, nil
	}
	parts := strings.SplitN(raw, "x", 2)
	var size Size
	if parts[0] != "" {
		w, err := strconv.Atoi(parts[0])
		if err != nil || w <= 0 {
			return Size{}, fmt.Errorf("invalid width in %q", raw)
		}
		size.Width = w
	}
	if parts[1] != "" {
		h, err := strconv.Atoi(parts[1])
		if err != nil || h <= 0 {
			return Size{}, fmt.Errorf("invalid height in %q", raw)
		}
		size.Height = h
	}
	if size.Width == 0 && size.Height == 0 {
		return Size{}, fmt.Errorf("invalid size %q", raw)
	}
	return size, nil
}

// String renders the canonical form used in derivative filenames.
func (s Size) String() string {
	switch {
	case s.Width > 0 && s.Height > 0:
		return fmt.Sprintf("%dx%d", s.Width, s.Height)
	case s.Width > 0:
		return fmt.Sprintf("%dx", s.Width)
	default:
		return fmt.Sprintf("x%d", s.Height)
	}
}
