package clip

import (
	"image"

	"github.com/fogleman/gg"
	"golang.org/x/image/draw"
)

// Corner radii in logical pixels, multiplied by the request factor.
const (
	smallRadiusPx = 4
	largeRadiusPx = 8
)

// prepareFrame builds the render-ready copy for a geometry request: the
// decoded image scaled to FrameW x FrameH, centered in an OuterW x OuterH
// canvas, with corners clipped per the rounding style. Pixels outside
// the clip stay fully transparent so the feed background shows through.
func prepareFrame(src image.Image, req FrameRequest) *image.RGBA {
	if src == nil || !req.Valid() {
		return nil
	}
	outerW, outerH := req.OuterW, req.OuterH
	if outerW <= 0 {
		outerW = req.FrameW
	}
	if outerH <= 0 {
		outerH = req.FrameH
	}

	scaled := scaleFrame(src, req.FrameW, req.FrameH)

	dc := gg.NewContext(outerW, outerH)
	switch req.Radius {
	case RoundSmall:
		dc.DrawRoundedRectangle(0, 0, float64(outerW), float64(outerH), float64(smallRadiusPx*req.Factor))
		dc.Clip()
	case RoundLarge:
		dc.DrawRoundedRectangle(0, 0, float64(outerW), float64(outerH), float64(largeRadiusPx*req.Factor))
		dc.Clip()
	case RoundEllipse:
		dc.DrawEllipse(float64(outerW)/2, float64(outerH)/2, float64(outerW)/2, float64(outerH)/2)
		dc.Clip()
	}
	dc.DrawImage(scaled, (outerW-req.FrameW)/2, (outerH-req.FrameH)/2)

	out, ok := dc.Image().(*image.RGBA)
	if !ok {
		b := dc.Image().Bounds()
		out = image.NewRGBA(b)
		draw.Copy(out, b.Min, dc.Image(), b, draw.Src, nil)
	}
	return out
}

// scaleFrame resizes src to w x h. CatmullRom keeps thumbnails crisp;
// the copy also detaches the result from any buffer the engine reuses.
func scaleFrame(src image.Image, w, h int) image.Image {
	if w <= 0 || h <= 0 {
		return src
	}
	sb := src.Bounds()
	if sb.Dx() == w && sb.Dy() == h {
		dst := image.NewRGBA(image.Rect(0, 0, w, h))
		draw.Copy(dst, image.Point{}, src, sb, draw.Src, nil)
		return dst
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, sb, draw.Src, nil)
	return dst
}
