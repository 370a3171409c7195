package render

import (
	"image"

	"github.com/marben/fractal"
)

// toRGBA copies a padded RGB buffer into an opaque RGBA image of width x height.
func toRGBA(pix []byte, width, paddedWidth, height int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := range height {
		src := pix[y*paddedWidth*fractal.BytesPerPixel:]
		dst := img.Pix[y*img.Stride:]
		for x := range width {
			s := src[x*fractal.BytesPerPixel : x*fractal.BytesPerPixel+3 : x*fractal.BytesPerPixel+3]
			d := dst[x*4 : x*4+4 : x*4+4]
			d[0], d[1], d[2], d[3] = s[0], s[1], s[2], 0xff
		}
	}
	return img
}
