// Package symbol renders text into QR code rasters and reads it back.
//
// Capacity is measured in UTF-8 bytes: the codec always encodes in byte mode
// with a UTF-8 ECI header, so the largest payload a level can carry is a
// fixed function of the level alone (see Level.Capacity).
package symbol

import (
	"fmt"
	"strings"

	"github.com/makiuchi-d/gozxing/qrcode/decoder"
)

// Level is a QR error correction level.
type Level int

const (
	// LevelL recovers about 7% of damaged codewords. The zero Level is
	// unset and invalid.
	LevelL Level = iota + 1
	// LevelM recovers about 15% of damaged codewords.
	LevelM
	// LevelQ recovers about 25% of damaged codewords.
	LevelQ
	// LevelH recovers about 30% of damaged codewords.
	LevelH
)

// DefaultLevel is used when no level is configured.
const DefaultLevel = LevelM

// Levels lists every level from weakest to strongest.
var Levels = []Level{LevelL, LevelM, LevelQ, LevelH}

const (
	// MaxVersion is the largest QR symbol version.
	MaxVersion = 40

	// Header bits of a single byte mode segment in a version 10-40 symbol.
	modeIndicatorBits = 4
	eciHeaderBits     = 4 + 8
	byteCountBits     = 16
	segmentHeaderBits = modeIndicatorBits + eciHeaderBits + byteCountBits
)

// ParseLevel parses "L", "M", "Q" or "H" (case insensitive).
func ParseLevel(s string) (Level, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "L":
		return LevelL, nil
	case "M":
		return LevelM, nil
	case "Q":
		return LevelQ, nil
	case "H":
		return LevelH, nil
	default:
		return 0, fmt.Errorf("%w: %q (must be L, M, Q or H)", ErrInvalidLevel, s)
	}
}

// String returns the level letter.
func (l Level) String() string {
	switch l {
	case LevelL:
		return "L"
	case LevelM:
		return "M"
	case LevelQ:
		return "Q"
	case LevelH:
		return "H"
	default:
		return fmt.Sprintf("Level(%d)", int(l))
	}
}

// Valid reports whether l is one of the four defined levels.
func (l Level) Valid() bool {
	return l >= LevelL && l <= LevelH
}

// RecoveryPercent returns the approximate share of the symbol that can be
// damaged and still decode.
func (l Level) RecoveryPercent() int {
	switch l {
	case LevelL:
		return 7
	case LevelM:
		return 15
	case LevelQ:
		return 25
	case LevelH:
		return 30
	default:
		return 0
	}
}

func (l Level) zxing() decoder.ErrorCorrectionLevel {
	switch l {
	case LevelL:
		return decoder.ErrorCorrectionLevel_L
	case LevelQ:
		return decoder.ErrorCorrectionLevel_Q
	case LevelH:
		return decoder.ErrorCorrectionLevel_H
	default:
		return decoder.ErrorCorrectionLevel_M
	}
}

// Capacity returns the number of UTF-8 bytes a version 40 symbol at this
// level can carry. It returns 0 for an invalid level.
func (l Level) Capacity() int {
	if !l.Valid() {
		return 0
	}
	v, err := decoder.Version_GetVersionForNumber(MaxVersion)
	if err != nil {
		return 0
	}
	ec := v.GetECBlocksForLevel(l.zxing())
	dataCodewords := v.GetTotalCodewords() - ec.GetTotalECCodewords()
	return (dataCodewords*8 - segmentHeaderBits) / 8
}
