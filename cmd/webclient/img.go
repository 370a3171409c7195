//go:build js && wasm

package main

import (
	"image"
	"syscall/js"
)

// displayImage draws img stretched over a fullWidth x fullHeight canvas.
// Coarse passes are scaled up without smoothing.
func displayImage(img *image.RGBA, fullWidth, fullHeight int) {
	document := js.Global().Get("document")
	canvas := document.Call("getElementById", "myCanvas")
	if canvas.Get("width").Int() != fullWidth || canvas.Get("height").Int() != fullHeight {
		initCanvas(fullWidth, fullHeight, "#3a3a6e")
	}

	width := img.Rect.Dx()
	height := img.Rect.Dy()

	// Copy the Go byte slice into a JS TypedArray and wrap it as ImageData
	jsData := js.Global().Get("Uint8ClampedArray").New(len(img.Pix))
	js.CopyBytesToJS(jsData, img.Pix)
	imageData := js.Global().Get("ImageData").New(jsData, width, height)

	if width == fullWidth && height == fullHeight {
		canvas.Call("getContext", "2d").Call("putImageData", imageData, 0, 0)
		return
	}

	// putImageData does not scale, go through an offscreen canvas
	off := document.Call("createElement", "canvas")
	off.Set("width", width)
	off.Set("height", height)
	off.Call("getContext", "2d").Call("putImageData", imageData, 0, 0)

	ctx := canvas.Call("getContext", "2d")
	ctx.Set("imageSmoothingEnabled", false)
	ctx.Call("drawImage", off, 0, 0, fullWidth, fullHeight)
}

func initCanvas(width, height int, color string) {
	doc := js.Global().Get("document")
	canvas := doc.Call("getElementById", "myCanvas")

	canvas.Set("width", width)
	canvas.Set("height", height)

	ctx := canvas.Call("getContext", "2d")

	ctx.Set("fillStyle", color)
	ctx.Call("fillRect", 0, 0, width, height)
}
