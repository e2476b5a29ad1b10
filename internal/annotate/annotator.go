package annotate

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	_ "image/gif" // register decoder
	"image/jpeg"
	_ "image/png" // register decoder
	"os"
	"strconv"

	"github.com/nfnt/resize"
	_ "golang.org/x/image/bmp" // register decoder
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	_ "golang.org/x/image/webp" // register decoder

	"go-opening-detector/pkg/models"
)

const (
	// DefaultQuality is the JPEG quality of annotated images
	DefaultQuality = 90

	strokeWidth  = 2
	labelPadding = 2
)

// ErrUndecodableImage marks a source image that no registered decoder accepts
var ErrUndecodableImage = errors.New("image cannot be decoded")

// Annotator renders detections onto the source image
type Annotator interface {
	// Annotate decodes the image at imagePath, draws every detection and
	// returns the JPEG-encoded result
	Annotate(imagePath string, detections []models.Detection) ([]byte, error)
}

// BoxAnnotator draws a rectangle and a "<class_name> <confidence>" label per
// detection, one color per class id
type BoxAnnotator struct {
	maxWidth uint
	quality  int
	palette  []color.RGBA
	face     font.Face
}

// NewBoxAnnotator creates an annotator. maxWidth > 0 downsizes wider outputs
// after drawing, keeping the aspect ratio.
func NewBoxAnnotator(maxWidth int) *BoxAnnotator {
	if maxWidth < 0 {
		maxWidth = 0
	}
	return &BoxAnnotator{
		maxWidth: uint(maxWidth),
		quality:  DefaultQuality,
		palette: []color.RGBA{
			{R: 0, G: 200, B: 0, A: 255},   // green
			{R: 0, G: 120, B: 255, A: 255}, // blue
			{R: 255, G: 60, B: 60, A: 255}, // red
			{R: 255, G: 170, B: 0, A: 255}, // orange
			{R: 170, G: 0, B: 255, A: 255}, // purple
			{R: 0, G: 200, B: 200, A: 255}, // cyan
		},
		face: basicfont.Face7x13,
	}
}

// Annotate implements Annotator
func (a *BoxAnnotator) Annotate(imagePath string, detections []models.Detection) ([]byte, error) {
	src, err := Decode(imagePath)
	if err != nil {
		return nil, err
	}
	return a.Encode(a.Render(src, detections))
}

// Decode reads any registered image format from disk
func Decode(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUndecodableImage, err)
	}
	return img, nil
}

// ClassColor returns the stroke color used for a class id
func (a *BoxAnnotator) ClassColor(classID int) color.RGBA {
	if classID < 0 {
		classID = -classID
	}
	return a.palette[classID%len(a.palette)]
}

// Render copies src and draws the detections on the copy
func (a *BoxAnnotator) Render(src image.Image, detections []models.Detection) image.Image {
	bounds := src.Bounds()
	dst := image.NewRGBA(bounds)
	draw.Draw(dst, bounds, src, bounds.Min, draw.Src)

	for _, d := range detections {
		c := a.ClassColor(d.ClassID)
		rect := image.Rect(
			bounds.Min.X+int(d.BBox[0]),
			bounds.Min.Y+int(d.BBox[1]),
			bounds.Min.X+int(d.BBox[2]),
			bounds.Min.Y+int(d.BBox[3]),
		)
		drawBox(dst, rect, c)
		a.drawLabel(dst, rect, c, d.ClassName+" "+strconv.FormatFloat(d.Confidence, 'f', 2, 64))
	}
	return dst
}

// Encode downsizes when configured and JPEG-encodes the image
func (a *BoxAnnotator) Encode(img image.Image) ([]byte, error) {
	if a.maxWidth > 0 && uint(img.Bounds().Dx()) > a.maxWidth {
		img = resize.Resize(a.maxWidth, 0, img, resize.Lanczos3)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: a.quality}); err != nil {
		return nil, fmt.Errorf("failed to encode annotated image: %w", err)
	}
	return buf.Bytes(), nil
}

func drawBox(dst draw.Image, r image.Rectangle, c color.Color) {
	r = r.Canon()
	fill := image.NewUniform(c)
	edges := []image.Rectangle{
		image.Rect(r.Min.X, r.Min.Y, r.Max.X, r.Min.Y+strokeWidth), // top
		image.Rect(r.Min.X, r.Max.Y-strokeWidth, r.Max.X, r.Max.Y), // bottom
		image.Rect(r.Min.X, r.Min.Y, r.Min.X+strokeWidth, r.Max.Y), // left
		image.Rect(r.Max.X-strokeWidth, r.Min.Y, r.Max.X, r.Max.Y), // right
	}
	for _, e := range edges {
		draw.Draw(dst, e.Intersect(dst.Bounds()), fill, image.Point{}, draw.Src)
	}
}

// drawLabel places the label above the box, or inside it when the box
// touches the top edge
func (a *BoxAnnotator) drawLabel(dst *image.RGBA, box image.Rectangle, c color.Color, text string) {
	box = box.Canon()
	metrics := a.face.Metrics()
	ascent := metrics.Ascent.Ceil()
	height := metrics.Height.Ceil() + 2*labelPadding

	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(color.White),
		Face: a.face,
	}
	width := d.MeasureString(text).Ceil() + 2*labelPadding

	top := box.Min.Y - height
	if top < dst.Bounds().Min.Y {
		top = box.Min.Y
	}
	bg := image.Rect(box.Min.X, top, box.Min.X+width, top+height)
	draw.Draw(dst, bg.Intersect(dst.Bounds()), image.NewUniform(c), image.Point{}, draw.Src)

	d.Dot = fixed.P(box.Min.X+labelPadding, top+labelPadding+ascent)
	d.DrawString(text)
}
