package ad

import (
	"bytes"
	"fmt"
	"image/color"

	"github.com/fogleman/gg"

	"motion-typo-studio/internal/gemini"
)

const (
	frameWidth  = 1280
	frameHeight = 720
)

// Dark base tone the motion pass opens on before the typography assembles.
var frameColor = color.RGBA{R: 16, G: 17, B: 23, A: 255}

// placeholderFrame synthesizes the solid-color opening frame submitted as the
// first frame of every video job.
func placeholderFrame() (gemini.Blob, error) {
	dc := gg.NewContext(frameWidth, frameHeight)
	dc.SetColor(frameColor)
	dc.Clear()

	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return gemini.Blob{}, fmt.Errorf("encode placeholder frame: %w", err)
	}
	return gemini.Blob{Data: buf.Bytes(), Mime: "image/png"}, nil
}
