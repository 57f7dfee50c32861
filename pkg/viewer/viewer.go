// Package viewer prints raster images, such as rendered QR symbols, to a
// terminal using Unicode half blocks. Each character cell covers two
// vertically stacked samples, which keeps modules roughly square.
package viewer

import (
	"errors"
	"fmt"
	"image"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/VeraLlugiqi/information-security-gr7/pkg/symbol"
)

// Common errors returned by this package.
var (
	ErrImageNotFound   = errors.New("image not found")
	ErrImageUnreadable = errors.New("image unreadable")
)

const (
	fallbackColumns = 80
	darkThreshold   = 0x8000
)

// Options controls rendering.
type Options struct {
	// Columns caps the output width. Zero uses the terminal width, or 80
	// when stdout is not a terminal.
	Columns int

	// Invert draws light pixels instead of dark ones, for dark terminals.
	Invert bool
}

// Display reads the image at path and writes it to w under label.
func Display(w io.Writer, path, label string, opts Options) error {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrImageNotFound, path)
		}
		return fmt.Errorf("%w: %v", ErrImageUnreadable, err)
	}
	img, err := symbol.ReadImage(path)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrImageUnreadable, err)
	}
	return Render(w, img, label, opts)
}

// Render writes img to w under label.
func Render(w io.Writer, img image.Image, label string, opts Options) error {
	if img == nil {
		return fmt.Errorf("%w: nil image", ErrImageUnreadable)
	}
	b := img.Bounds()
	if b.Dx() == 0 || b.Dy() == 0 {
		return fmt.Errorf("%w: empty image", ErrImageUnreadable)
	}

	cols := opts.Columns
	if cols <= 0 {
		cols = terminalColumns()
	}
	if cols > b.Dx() {
		cols = b.Dx()
	}
	rows := b.Dy() * cols / b.Dx()
	if rows < 1 {
		rows = 1
	}

	dark := func(x, y int) bool {
		px := b.Min.X + x*b.Dx()/cols
		py := b.Min.Y + y*b.Dy()/rows
		r, g, bl, _ := img.At(px, py).RGBA()
		// ITU-R BT.601 luma on 16-bit channels.
		luma := (299*r + 587*g + 114*bl) / 1000
		return (luma < darkThreshold) != opts.Invert
	}

	var sb strings.Builder
	if label != "" {
		sb.WriteString(label)
		sb.WriteByte('\n')
	}
	for y := 0; y < rows; y += 2 {
		for x := 0; x < cols; x++ {
			top := dark(x, y)
			bottom := y+1 < rows && dark(x, y+1)
			sb.WriteRune(cell(top, bottom))
		}
		sb.WriteByte('\n')
	}

	_, err := io.WriteString(w, sb.String())
	return err
}

func cell(top, bottom bool) rune {
	switch {
	case top && bottom:
		return '█'
	case top:
		return '▀'
	case bottom:
		return '▄'
	default:
		return ' '
	}
}

func terminalColumns() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd())) //nolint:gosec // file descriptors fit in int
	if err != nil || width <= 0 {
		return fallbackColumns
	}
	return width
}
