package symbol

import (
	"errors"
	"fmt"
	"image"

	"github.com/makiuchi-d/gozxing"
	"github.com/makiuchi-d/gozxing/qrcode"
)

// Common errors returned by this package.
var (
	ErrInvalidLevel      = errors.New("invalid error correction level")
	ErrInvalidDimensions = errors.New("symbol dimensions must be positive")
	ErrTextTooLong       = errors.New("text exceeds symbol capacity")
	ErrEncodeFailed      = errors.New("failed to encode symbol")
	ErrNotFound          = errors.New("no symbol found in image")
	ErrUnreadable        = errors.New("symbol found but unreadable")
)

// Default raster dimensions in pixels.
const (
	DefaultWidth  = 400
	DefaultHeight = 400
)

const charset = "UTF-8"

// Codec turns text into a 2-D symbol raster and back.
type Codec interface {
	// Encode renders text at the given level into a width x height raster.
	Encode(text string, level Level, width, height int) (image.Image, error)

	// Decode returns the text of the symbol found in img.
	Decode(img image.Image) (string, error)
}

// QRCodec implements Codec with gozxing.
type QRCodec struct {
	// Margin is the quiet zone in modules. Zero selects the QR default of 4.
	Margin int
}

// NewQRCodec creates a QR codec with the default quiet zone.
func NewQRCodec() *QRCodec {
	return &QRCodec{}
}

// Encode renders text into a QR symbol. The returned image is a
// *gozxing.BitMatrix; it is at least as large as the symbol itself, so small
// dimensions are rounded up by the writer.
func (c *QRCodec) Encode(text string, level Level, width, height int) (image.Image, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidDimensions, width, height)
	}
	if !level.Valid() {
		return nil, fmt.Errorf("%w: %v", ErrInvalidLevel, level)
	}
	if capacity := level.Capacity(); len(text) > capacity {
		return nil, fmt.Errorf("%w: %d bytes, level %s holds %d", ErrTextTooLong, len(text), level, capacity)
	}

	hints := map[gozxing.EncodeHintType]interface{}{
		gozxing.EncodeHintType_ERROR_CORRECTION: level.zxing(),
		gozxing.EncodeHintType_CHARACTER_SET:    charset,
	}
	if c.Margin > 0 {
		hints[gozxing.EncodeHintType_MARGIN] = c.Margin
	}

	matrix, err := qrcode.NewQRCodeWriter().Encode(text, gozxing.BarcodeFormat_QR_CODE, width, height, hints)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncodeFailed, err)
	}
	return matrix, nil
}

// Decode locates a QR symbol in img and returns its text.
func (c *QRCodec) Decode(img image.Image) (string, error) {
	if img == nil {
		return "", fmt.Errorf("%w: nil image", ErrNotFound)
	}
	bmp, err := gozxing.NewBinaryBitmapFromImage(img)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnreadable, err)
	}

	hints := map[gozxing.DecodeHintType]interface{}{
		gozxing.DecodeHintType_TRY_HARDER:    true,
		gozxing.DecodeHintType_CHARACTER_SET: charset,
	}
	result, err := qrcode.NewQRCodeReader().Decode(bmp, hints)
	if err == nil {
		return result.GetText(), nil
	}

	// The finder pattern detector misses some clean renders. An unrotated
	// symbol on a quiet zone, as Encode produces, can be sampled directly.
	pure := map[gozxing.DecodeHintType]interface{}{
		gozxing.DecodeHintType_PURE_BARCODE:  true,
		gozxing.DecodeHintType_CHARACTER_SET: charset,
	}
	if result, perr := qrcode.NewQRCodeReader().Decode(bmp, pure); perr == nil {
		return result.GetText(), nil
	}

	var notFound gozxing.NotFoundException
	if errors.As(err, &notFound) {
		return "", fmt.Errorf("%w: %v", ErrNotFound, err)
	}
	return "", fmt.Errorf("%w: %v", ErrUnreadable, err)
}
