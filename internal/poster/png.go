package poster

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"strings"
	"sync"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	qrcode "github.com/skip2/go-qrcode"
	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goitalic"
	"golang.org/x/image/font/gofont/goregular"
)

const (
	pageWidth  = 1000
	pageHeight = int(pageWidth * AspectRatio)
	margin     = 60.0
	qrSize     = 150

	maxDescriptionLines = 4
	maxFeatureRows      = 2
)

var (
	red       = color.RGBA{R: 0xdc, G: 0x26, B: 0x26, A: 0xff}
	gray      = color.RGBA{R: 0x6b, G: 0x72, B: 0x80, A: 0xff}
	lightGray = color.RGBA{R: 0xf3, G: 0xf4, B: 0xf6, A: 0xff}
	paleRed   = color.RGBA{R: 0xfe, G: 0xf2, B: 0xf2, A: 0xff}
)

var (
	fontsOnce sync.Once
	fontsErr  error
	boldTTF   *truetype.Font
	plainTTF  *truetype.Font
	italicTTF *truetype.Font
)

func loadFonts() error {
	fontsOnce.Do(func() {
		if boldTTF, fontsErr = truetype.Parse(gobold.TTF); fontsErr != nil {
			return
		}
		if plainTTF, fontsErr = truetype.Parse(goregular.TTF); fontsErr != nil {
			return
		}
		italicTTF, fontsErr = truetype.Parse(goitalic.TTF)
	})
	return fontsErr
}

func face(f *truetype.Font, size float64) font.Face {
	return truetype.NewFace(f, &truetype.Options{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingNone,
	})
}

// WritePNG rasterizes the poster at A-series proportions.
func WritePNG(w io.Writer, l Layout) error {
	if err := loadFonts(); err != nil {
		return fmt.Errorf("parsing fonts: %w", err)
	}

	dc := gg.NewContext(pageWidth, pageHeight)
	dc.SetColor(color.White)
	dc.Clear()

	dc.SetColor(red)
	dc.DrawRectangle(0, 0, pageWidth, 12)
	dc.Fill()

	cx := float64(pageWidth) / 2
	inner := float64(pageWidth) - 2*margin

	// header
	dc.SetFontFace(face(boldTTF, 128))
	dc.DrawStringAnchored(l.Headline, cx, 130, 0.5, 0.5)
	dc.SetColor(color.Black)
	dc.DrawRectangle(margin, 200, inner, 10)
	dc.Fill()

	dc.SetFontFace(face(boldTTF, 30))
	dc.SetColor(gray)
	reward := strings.ToUpper(l.Reward)
	rw, _ := dc.MeasureString(reward)
	dc.DrawString(reward, margin+inner-rw, 275)
	dc.SetColor(color.Black)
	dc.SetFontFace(face(boldTTF, 60))
	dc.DrawString(fitText(dc, strings.ToUpper(l.Name), inner-rw-30), margin, 280)

	// hero
	hero := image.Rect(int(margin), 310, int(margin+inner), 850)
	if err := drawHero(dc, l, hero); err != nil {
		return err
	}

	// last seen
	y := 880.0
	dc.SetColor(paleRed)
	dc.DrawRectangle(margin, y, inner, 140)
	dc.Fill()
	dc.SetColor(red)
	dc.DrawRectangle(margin, y, 8, 140)
	dc.Fill()
	dc.SetColor(gray)
	dc.SetFontFace(face(boldTTF, 22))
	dc.DrawString(strings.ToUpper(l.LastSeen.Heading), margin+30, y+38)
	dc.SetColor(color.Black)
	dc.SetFontFace(face(boldTTF, 36))
	dc.DrawString(fitText(dc, l.LastSeen.Address, inner-60), margin+30, y+84)
	dc.SetColor(gray)
	dc.SetFontFace(face(plainTTF, 24))
	dc.DrawString(l.LastSeen.DateLine(), margin+30, y+122)

	// description and features
	y = 1050
	if l.Description != "" {
		dc.SetColor(color.Black)
		dc.SetFontFace(face(italicTTF, 26))
		lines := truncateLines(dc, dc.WordWrap("“"+l.Description+"”", inner-40), maxDescriptionLines, inner-40)
		for _, line := range lines {
			dc.DrawStringAnchored(line, cx, y, 0.5, 0.5)
			y += 34
		}
		y += 10
	}
	if l.HasFeatures() {
		drawFeatures(dc, l.Features, y, inner)
	}

	// contact
	y = 1230
	dc.SetColor(color.Black)
	dc.DrawRectangle(margin, y, inner, 8)
	dc.Fill()
	textWidth := inner - qrSize - 30
	dc.SetColor(gray)
	dc.SetFontFace(face(boldTTF, 18))
	dc.DrawString(strings.ToUpper(l.Contact.Prompt), margin, y+45)
	dc.SetColor(color.Black)
	dc.SetFontFace(face(boldTTF, 64))
	dc.DrawString(fitText(dc, l.Contact.Phone, textWidth), margin, y+115)
	dc.SetFontFace(face(boldTTF, 28))
	dc.DrawString(fitText(dc, strings.ToUpper(l.Contact.OwnerName), textWidth), margin, y+155)

	if err := drawQR(dc, l.QR, margin+inner-qrSize, y+16); err != nil {
		return err
	}

	if err := dc.EncodePNG(w); err != nil {
		return fmt.Errorf("encoding poster png: %w", err)
	}
	return nil
}

// PNG returns the rasterized poster.
func PNG(l Layout) ([]byte, error) {
	var buf bytes.Buffer
	if err := WritePNG(&buf, l); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func drawHero(dc *gg.Context, l Layout, box image.Rectangle) error {
	x, y := float64(box.Min.X), float64(box.Min.Y)
	w, h := float64(box.Dx()), float64(box.Dy())

	dc.SetColor(lightGray)
	dc.DrawRectangle(x, y, w, h)
	dc.Fill()

	if l.Photo != nil {
		src, _, err := image.Decode(bytes.NewReader(l.Photo.photo.Data))
		if err != nil {
			return fmt.Errorf("decoding poster photo: %w", err)
		}
		dc.DrawImage(cover(src, box.Dx(), box.Dy()), box.Min.X, box.Min.Y)
	} else {
		dc.SetColor(color.RGBA{R: 0x9c, G: 0xa3, B: 0xaf, A: 0xff})
		dc.SetFontFace(face(boldTTF, 32))
		dc.DrawStringAnchored(strings.ToUpper(l.Placeholder), x+w/2, y+h/2-30, 0.5, 0.5)
	}

	dc.SetColor(red)
	dc.DrawRectangle(x, y+h-60, w, 60)
	dc.Fill()
	dc.SetColor(color.White)
	dc.SetFontFace(face(boldTTF, 32))
	dc.DrawStringAnchored(strings.ToUpper(l.Banner), x+w/2, y+h-30, 0.5, 0.5)

	dc.SetColor(color.Black)
	dc.SetLineWidth(6)
	dc.DrawRectangle(x, y, w, h)
	dc.Stroke()
	return nil
}

// cover scales src to fill w x h, cropping the overflow around the center.
func cover(src image.Image, w, h int) image.Image {
	b := src.Bounds()
	sw, sh := b.Dx(), b.Dy()
	var crop image.Rectangle
	if sw*h > sh*w {
		cw := max(sh*w/h, 1)
		x0 := b.Min.X + (sw-cw)/2
		crop = image.Rect(x0, b.Min.Y, x0+cw, b.Max.Y)
	} else {
		ch := max(sw*h/w, 1)
		y0 := b.Min.Y + (sh-ch)/2
		crop = image.Rect(b.Min.X, y0, b.Max.X, y0+ch)
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, crop, draw.Src, nil)
	return dst
}

// truncateLines keeps at most maxLines, ending the last kept line with an
// ellipsis when anything was cut.
func truncateLines(dc *gg.Context, lines []string, maxLines int, maxWidth float64) []string {
	if len(lines) <= maxLines {
		return lines
	}
	kept := append([]string(nil), lines[:maxLines]...)
	last := strings.TrimRight(kept[maxLines-1], " ") + "…"
	kept[maxLines-1] = fitText(dc, last, maxWidth)
	return kept
}

type pillRow struct {
	labels []string
	width  float64
}

const pillPad, pillGap, pillHeight = 16.0, 10.0, 36.0

func pillWidth(dc *gg.Context, label string) float64 {
	tw, _ := dc.MeasureString(label)
	return tw + 2*pillPad
}

// featureRows flows the feature pills into rows of at most width. Features
// that do not fit in maxFeatureRows are counted in a trailing "+N MORE" pill.
func featureRows(dc *gg.Context, features []string, width float64) []pillRow {
	var rows []pillRow
	cur := pillRow{}
	for _, f := range features {
		label := strings.ToUpper(fitText(dc, f, width-2*pillPad))
		pw := pillWidth(dc, label)
		if len(cur.labels) > 0 && cur.width+pillGap+pw > width {
			rows = append(rows, cur)
			cur = pillRow{}
		}
		if len(cur.labels) > 0 {
			cur.width += pillGap
		}
		cur.labels = append(cur.labels, label)
		cur.width += pw
	}
	rows = append(rows, cur)
	if len(rows) <= maxFeatureRows {
		return rows
	}

	hidden := 0
	for _, r := range rows[maxFeatureRows:] {
		hidden += len(r.labels)
	}
	rows = rows[:maxFeatureRows]
	last := &rows[maxFeatureRows-1]
	for {
		more := fmt.Sprintf("+%d MORE", hidden)
		mw := pillWidth(dc, more)
		if len(last.labels) == 0 || last.width+pillGap+mw <= width {
			if len(last.labels) > 0 {
				last.width += pillGap
			}
			last.labels = append(last.labels, more)
			last.width += mw
			return rows
		}
		drop := last.labels[len(last.labels)-1]
		last.labels = last.labels[:len(last.labels)-1]
		last.width -= pillWidth(dc, drop)
		if len(last.labels) > 0 {
			last.width -= pillGap
		}
		hidden++
	}
}

func drawFeatures(dc *gg.Context, features []string, y, width float64) {
	dc.SetFontFace(face(boldTTF, 20))
	for _, r := range featureRows(dc, features, width) {
		x := (float64(pageWidth) - r.width) / 2
		for _, label := range r.labels {
			pw := pillWidth(dc, label)
			dc.SetColor(color.Black)
			dc.DrawRoundedRectangle(x, y, pw, pillHeight, pillHeight/2)
			dc.Fill()
			dc.SetColor(color.White)
			dc.DrawStringAnchored(label, x+pw/2, y+pillHeight/2, 0.5, 0.35)
			x += pw + pillGap
		}
		y += pillHeight + pillGap
	}
}

// drawQR renders the map link as a QR code. The QR image service used by the
// HTML poster is not contacted.
func drawQR(dc *gg.Context, qr QRBlock, x, y float64) error {
	if qr.MapURL != "" {
		code, err := qrcode.New(qr.MapURL, qrcode.Medium)
		if err != nil {
			return fmt.Errorf("encoding qr code: %w", err)
		}
		dc.DrawImage(code.Image(qrSize), int(x), int(y))
	}
	dc.SetColor(gray)
	dc.SetFontFace(face(boldTTF, 14))
	dc.DrawStringAnchored(strings.ToUpper(qr.Caption), x+qrSize/2, y+qrSize+14, 0.5, 0.5)
	return nil
}

// fitText shortens s with an ellipsis until it fits maxWidth.
func fitText(dc *gg.Context, s string, maxWidth float64) string {
	if w, _ := dc.MeasureString(s); w <= maxWidth {
		return s
	}
	runes := []rune(s)
	for len(runes) > 0 {
		runes = runes[:len(runes)-1]
		candidate := string(runes) + "…"
		if w, _ := dc.MeasureString(candidate); w <= maxWidth {
			return candidate
		}
	}
	return ""
}
