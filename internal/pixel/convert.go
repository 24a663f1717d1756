package pixel

import (
	"bytes"
	"fmt"

	"github.com/vispipe/vispipe/internal/errors"
)

// YUV420ToNV21 converts a three-plane 4:2:0 image (Y, U, V plane order)
// into a single NV21 buffer. When the U and V planes already carry the
// NV21 interleaving in memory the conversion degenerates to three bulk
// copies; otherwise each plane is unpacked honoring its strides. Both
// paths produce bit-identical output for the same logical image.
func YUV420ToNV21(planes [3]Plane, width, height int) ([]byte, error) {
	if width <= 0 || height <= 0 {
		return nil, errors.NewValidationError(fmt.Sprintf("invalid dimensions %dx%d", width, height))
	}
	if err := validateYUV420(planes, width, height); err != nil {
		return nil, err
	}

	imageSize := width * height
	out := make([]byte, NV21Size(width, height))

	if isNV21Interleaved(planes, width, height) {
		y, u, v := planes[0], planes[1], planes[2]
		copy(out, y.Bytes[:imageSize])
		// First V byte, then the remaining interleaved VU run. U's
		// buffer is V's shifted by one byte plus the final U sample, so
		// one bulk copy restores the whole VUVU tail.
		out[imageSize] = v.Bytes[0]
		copy(out[imageSize+1:], u.Bytes)
		return out, nil
	}

	cw, ch := chromaDims(width, height)
	unpackPlane(planes[0], out, 0, 1, height, width)
	unpackPlane(planes[2], out, imageSize, 2, ch, cw)
	unpackPlane(planes[1], out, imageSize+1, 2, ch, cw)
	return out, nil
}

// isNV21Interleaved reports whether the U and V planes alias a single
// VU-interleaved buffer. V must begin exactly one byte before U, which
// makes V shifted by one byte equal to U minus its last sample.
// Sub-2x2 and odd dimensions always take the generic path.
func isNV21Interleaved(planes [3]Plane, width, height int) bool {
	if width < 2 || height < 2 || width%2 != 0 || height%2 != 0 {
		return false
	}
	y, u, v := planes[0], planes[1], planes[2]
	if y.PixelStride != 1 || y.RowStride != width {
		return false
	}
	if u.PixelStride != 2 || v.PixelStride != 2 || u.RowStride != width || v.RowStride != width {
		return false
	}
	interleaved := width * height / 2
	if len(u.Bytes) != interleaved-1 || len(v.Bytes) != interleaved-1 {
		return false
	}
	return bytes.Equal(v.Bytes[1:], u.Bytes[:len(u.Bytes)-1])
}

// unpackPlane copies one plane into dst starting at offset, writing one
// sample every dstStride bytes in raster order.
func unpackPlane(p Plane, dst []byte, offset, dstStride, rows, cols int) {
	for r := 0; r < rows; r++ {
		srcRow := r * p.RowStride
		dstRow := offset + r*cols*dstStride
		for c := 0; c < cols; c++ {
			dst[dstRow+c*dstStride] = p.Bytes[srcRow+c*p.PixelStride]
		}
	}
}

// validateYUV420 checks that every plane covers its last addressable
// sample for the given dimensions.
func validateYUV420(planes [3]Plane, width, height int) error {
	cw, ch := chromaDims(width, height)
	dims := [3][2]int{{height, width}, {ch, cw}, {ch, cw}}
	names := [3]string{"y", "u", "v"}

	for i, p := range planes {
		rows, cols := dims[i][0], dims[i][1]
		if p.RowStride <= 0 || p.PixelStride <= 0 {
			return errors.NewValidationError(fmt.Sprintf("%s plane has invalid strides", names[i]))
		}
		need := (rows-1)*p.RowStride + (cols-1)*p.PixelStride + 1
		if len(p.Bytes) < need {
			return errors.NewInvalidBufferError(names[i]+" plane", need, len(p.Bytes))
		}
	}
	return nil
}

// NV21ToYV12 re-packs an NV21 buffer into YV12: the Y plane is copied
// unchanged and the interleaved VU tail is split into a contiguous V
// plane followed by a contiguous U plane.
func NV21ToYV12(nv21 []byte) ([]byte, error) {
	if len(nv21) == 0 || len(nv21)%6 != 0 {
		return nil, errors.NewInvalidBufferSize(
			fmt.Sprintf("nv21 buffer length %d is not a positive multiple of 6", len(nv21)))
	}

	rowSize := len(nv21) / 6
	ySize := 4 * rowSize
	out := make([]byte, len(nv21))
	copy(out, nv21[:ySize])
	for i := 0; i < rowSize; i++ {
		out[ySize+i] = nv21[ySize+2*i]
		out[ySize+rowSize+i] = nv21[ySize+2*i+1]
	}
	return out, nil
}

// NV21FromBitmap converts packed ARGB pixels (alpha ignored) into NV21
// using bit-exact BT.601 integer arithmetic.
func NV21FromBitmap(argb []uint32, width, height int) ([]byte, error) {
	if err := validateBitmap(argb, width, height); err != nil {
		return nil, err
	}
	out := make([]byte, NV21Size(width, height))
	encodeYUV420(out, argb, width, height, true)
	return out, nil
}

// YV12FromBitmap is NV21FromBitmap with planar chroma output (V plane
// then U plane).
func YV12FromBitmap(argb []uint32, width, height int) ([]byte, error) {
	if err := validateBitmap(argb, width, height); err != nil {
		return nil, err
	}
	out := make([]byte, NV21Size(width, height))
	encodeYUV420(out, argb, width, height, false)
	return out, nil
}

func validateBitmap(argb []uint32, width, height int) error {
	if width <= 0 || height <= 0 {
		return errors.NewValidationError(fmt.Sprintf("invalid dimensions %dx%d", width, height))
	}
	if len(argb) != width*height {
		return errors.NewInvalidBufferError("argb", width*height, len(argb))
	}
	return nil
}

// encodeYUV420 writes luma in raster order and one VU pair per 2x2 luma
// block, emitted when both the row and column index are even.
func encodeYUV420(out []byte, argb []uint32, width, height int, interleaved bool) {
	imageSize := width * height
	cw, ch := chromaDims(width, height)

	yIndex := 0
	vIndex := imageSize
	uIndex := imageSize + cw*ch

	for row := 0; row < height; row++ {
		for col := 0; col < width; col++ {
			p := argb[row*width+col]
			r := int((p >> 16) & 0xff)
			g := int((p >> 8) & 0xff)
			b := int(p & 0xff)

			y := ((66*r + 129*g + 25*b + 128) >> 8) + 16
			out[yIndex] = clampByte(y)
			yIndex++

			if row%2 == 0 && col%2 == 0 {
				u := ((-38*r - 74*g + 112*b + 128) >> 8) + 128
				v := ((112*r - 94*g - 18*b + 128) >> 8) + 128
				if interleaved {
					out[vIndex] = clampByte(v)
					out[vIndex+1] = clampByte(u)
					vIndex += 2
				} else {
					out[vIndex] = clampByte(v)
					out[uIndex] = clampByte(u)
					vIndex++
					uIndex++
				}
			}
		}
	}
}

// clampByte clamps to [0, 255]. Out-of-range luma and chroma are
// clamped, never wrapped.
func clampByte(v int) byte {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return byte(v)
}

// FrameToNV21 materializes a frame's pixels as a single NV21 buffer,
// whatever plane layout the source delivered.
func FrameToNV21(f *Frame) ([]byte, error) {
	switch f.Format {
	case FormatYUV420:
		if len(f.Planes) != 3 {
			return nil, errors.NewValidationError(
				fmt.Sprintf("yuv420 frame has %d planes, expected 3", len(f.Planes)))
		}
		return YUV420ToNV21([3]Plane{f.Planes[0], f.Planes[1], f.Planes[2]}, f.Width, f.Height)
	case FormatNV21:
		if len(f.Planes) != 1 {
			return nil, errors.NewValidationError(
				fmt.Sprintf("nv21 frame has %d planes, expected 1", len(f.Planes)))
		}
		want := NV21Size(f.Width, f.Height)
		if len(f.Planes[0].Bytes) != want {
			return nil, errors.NewInvalidBufferError("nv21", want, len(f.Planes[0].Bytes))
		}
		out := make([]byte, want)
		copy(out, f.Planes[0].Bytes)
		return out, nil
	default:
		return nil, errors.NewValidationError(fmt.Sprintf("cannot convert %s frame to nv21", f.Format))
	}
}
