package poster

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"strings"
	"testing"

	"github.com/fogleman/gg"

	"github.com/janisto/lostcat/internal/wizard"
)

func TestHTMLFullProfile(t *testing.T) {
	out, err := HTML(Render(fullProfile(t), Options{}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	page := string(out)
	for _, want := range []string{
		"LOST CAT",
		"Luna",
		"Reward? Yes",
		`src="data:image/png;base64,`,
		"Please Help Bring Me Home",
		"Last Seen Location",
		"Date: 3/9/2024",
		"Luna is shy but sweet.",
		`<span class="feature">Blue collar</span>`,
		"If seen, please contact:",
		"555-0100",
		"Scan for Map",
		"api.qrserver.com",
		`lang="en-US"`,
	} {
		if !strings.Contains(page, want) {
			t.Errorf("expected page to contain %q", want)
		}
	}
	if strings.Contains(page, "No Photo Available") {
		t.Error("placeholder must not be shown with a photo")
	}
}

func TestHTMLWithoutPhotoOrFeatures(t *testing.T) {
	p := wizard.NewProfile(sessionDay)
	p.Name = "Milo"
	p.LastSeenAddress = "221B Baker St"

	out, err := HTML(Render(p, Options{}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	page := string(out)
	if !strings.Contains(page, "No Photo Available") {
		t.Error("expected placeholder")
	}
	if strings.Contains(page, `class="features"`) {
		t.Error("expected no feature region")
	}
	if strings.Contains(page, "<img src=\"data:") {
		t.Error("expected no inline photo")
	}
}

func TestHTMLEscapesUserText(t *testing.T) {
	p := wizard.NewProfile(sessionDay)
	p.Name = `<script>alert("x")</script>`
	p.LastSeenAddress = "A & B"

	out, err := HTML(Render(p, Options{}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Contains(string(out), "<script>") {
		t.Error("user text must be escaped")
	}
}

func TestPNGDimensionsAndDeterminism(t *testing.T) {
	l := Render(fullProfile(t), Options{})

	first, err := PNG(l)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := PNG(l)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !bytes.Equal(first, second) {
		t.Error("expected identical png output for identical layouts")
	}

	cfg, err := png.DecodeConfig(bytes.NewReader(first))
	if err != nil {
		t.Fatalf("output is not a png: %v", err)
	}
	if cfg.Width != 1000 || cfg.Height != 1414 {
		t.Errorf("expected 1000x1414, got %dx%d", cfg.Width, cfg.Height)
	}
}

func TestPNGWithoutPhoto(t *testing.T) {
	p := wizard.NewProfile(sessionDay)
	p.Name = "Milo"
	p.LastSeenAddress = "221B Baker St"
	p.Description = strings.Repeat("A very long description that needs wrapping. ", 10)

	if _, err := PNG(Render(p, Options{})); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestPNGRejectsUndecodablePhoto(t *testing.T) {
	p := fullProfile(t)
	p.Photo = &wizard.Photo{ContentType: "image/png", Data: []byte("broken"), Width: 1, Height: 1}

	if _, err := PNG(Render(p, Options{})); err == nil {
		t.Fatal("expected error for undecodable photo")
	}
}

func measureContext(t *testing.T, size float64) *gg.Context {
	t.Helper()
	if err := loadFonts(); err != nil {
		t.Fatalf("fonts: %v", err)
	}
	dc := gg.NewContext(pageWidth, pageHeight)
	dc.SetFontFace(face(boldTTF, size))
	return dc
}

func TestFeatureRowsOverflowPill(t *testing.T) {
	dc := measureContext(t, 20)
	var features []string
	for i := range 30 {
		features = append(features, fmt.Sprintf("Feature number %d", i))
	}

	rows := featureRows(dc, features, 880)
	if len(rows) != maxFeatureRows {
		t.Fatalf("expected %d rows, got %d", maxFeatureRows, len(rows))
	}
	last := rows[len(rows)-1]
	more := last.labels[len(last.labels)-1]
	var hidden int
	if _, err := fmt.Sscanf(more, "+%d MORE", &hidden); err != nil {
		t.Fatalf("expected overflow pill, got %q", more)
	}
	visible := 0
	for _, r := range rows {
		visible += len(r.labels)
		if r.width > 880 {
			t.Errorf("row wider than page: %.1f", r.width)
		}
	}
	if visible-1+hidden != len(features) {
		t.Errorf("expected %d features accounted for, got %d visible and %d hidden", len(features), visible-1, hidden)
	}
}

func TestFeatureRowsFit(t *testing.T) {
	dc := measureContext(t, 20)
	rows := featureRows(dc, []string{"Blue collar", "White paws"}, 880)
	if len(rows) != 1 || len(rows[0].labels) != 2 {
		t.Fatalf("expected one row with two pills, got %+v", rows)
	}
	for _, label := range rows[0].labels {
		if strings.HasPrefix(label, "+") {
			t.Errorf("unexpected overflow pill %q", label)
		}
	}
}

func TestTruncateLinesAddsEllipsis(t *testing.T) {
	dc := measureContext(t, 26)
	lines := []string{"one", "two", "three", "four", "five", "six"}

	got := truncateLines(dc, lines, maxDescriptionLines, 880)
	if len(got) != maxDescriptionLines {
		t.Fatalf("expected %d lines, got %d", maxDescriptionLines, len(got))
	}
	if got[3] != "four…" {
		t.Errorf("expected ellipsis on last line, got %q", got[3])
	}
	if lines[3] != "four" {
		t.Error("input lines must not be modified")
	}

	short := truncateLines(dc, lines[:2], maxDescriptionLines, 880)
	if len(short) != 2 || strings.HasSuffix(short[1], "…") {
		t.Errorf("expected short text untouched, got %q", short)
	}
}

func TestCoverExtremeAspectRatios(t *testing.T) {
	for _, size := range []image.Point{{1, 1000}, {1000, 1}, {1, 1}} {
		src := image.NewRGBA(image.Rect(0, 0, size.X, size.Y))
		for y := range size.Y {
			for x := range size.X {
				src.Set(x, y, color.RGBA{R: 0xff, A: 0xff})
			}
		}

		dst := cover(src, 880, 540)
		if got := dst.Bounds(); got.Dx() != 880 || got.Dy() != 540 {
			t.Fatalf("%v: expected 880x540, got %v", size, got)
		}
		if _, _, _, a := dst.At(440, 270).RGBA(); a == 0 {
			t.Errorf("%v: expected photo pixels in the frame", size)
		}
	}
}
