package pixel

import (
	"fmt"

	"github.com/vispipe/vispipe/internal/errors"
)

// RotateAndFlip rotates an ARGB bitmap clockwise by the given degrees
// (0, 90, 180 or 270), then mirrors the rotated image along the
// requested axes. Returns the new pixel slice and its dimensions. The
// input is returned unchanged for the 0-degree no-flip case.
func RotateAndFlip(pixels []uint32, width, height, degrees int, flipX, flipY bool) ([]uint32, int, int, error) {
	if err := validateBitmap(pixels, width, height); err != nil {
		return nil, 0, 0, err
	}
	switch degrees {
	case 0, 90, 180, 270:
	default:
		return nil, 0, 0, errors.NewValidationError(fmt.Sprintf("unsupported rotation %d", degrees))
	}

	if degrees == 0 && !flipX && !flipY {
		return pixels, width, height, nil
	}

	outW, outH := width, height
	if degrees == 90 || degrees == 270 {
		outW, outH = height, width
	}

	out := make([]uint32, len(pixels))
	for dy := 0; dy < outH; dy++ {
		for dx := 0; dx < outW; dx++ {
			// Mirror in rotated coordinates, then map back to source.
			tx, ty := dx, dy
			if flipX {
				tx = outW - 1 - dx
			}
			if flipY {
				ty = outH - 1 - dy
			}

			var sx, sy int
			switch degrees {
			case 0:
				sx, sy = tx, ty
			case 90:
				sx, sy = ty, height-1-tx
			case 180:
				sx, sy = width-1-tx, height-1-ty
			case 270:
				sx, sy = width-1-ty, tx
			}

			out[dy*outW+dx] = pixels[sy*width+sx]
		}
	}
	return out, outW, outH, nil
}
