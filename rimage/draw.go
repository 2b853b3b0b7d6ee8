package rimage

import (
	"image"
	"image/color"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font/gofont/goregular"
)

var font *truetype.Font

// init sets up the fonts we want to use.
func init() {
	var err error
	font, err = truetype.Parse(goregular.TTF)
	if err != nil {
		panic(err)
	}
}

// Common drawing colors.
var (
	Red   = color.NRGBA{R: 255, A: 255}
	Green = color.NRGBA{G: 255, A: 255}
	Black = color.NRGBA{A: 255}
)

// Font returns the font we use for drawing.
func Font() *truetype.Font {
	return font
}

// DrawString writes a string with its baseline at p.
func DrawString(dc *gg.Context, text string, p image.Point, c color.Color, size float64) {
	dc.SetFontFace(truetype.NewFace(Font(), &truetype.Options{Size: size}))
	dc.SetColor(c)
	dc.DrawString(text, float64(p.X), float64(p.Y))
}

// DrawFilledCircle draws a filled disc centered on p.
func DrawFilledCircle(dc *gg.Context, p image.Point, radius float64, c color.Color) {
	dc.SetColor(c)
	dc.DrawCircle(float64(p.X), float64(p.Y), radius)
	dc.Fill()
}
