package poster

import (
	"bytes"
	"fmt"
	"html/template"
	"io"
)

var pageTemplate = template.Must(template.New("poster").Funcs(template.FuncMap{
	"photoSrc": func(b *PhotoBlock) template.URL {
		// The data URL comes from a re-encoded image with a fixed content type.
		return template.URL(b.DataURL())
	},
}).Parse(pageHTML))

const pageHTML = `<!DOCTYPE html>
<html lang="{{.Locale}}">
<head>
<meta charset="utf-8">
<title>{{.Headline}}: {{.Name}}</title>
<style>
@page { size: A4; margin: 0; }
* { box-sizing: border-box; }
body { margin: 0; font-family: Helvetica, Arial, sans-serif; background: #fff; color: #000; }
.poster { width: 210mm; height: 297mm; margin: 0 auto; padding: 12mm; border-top: 8px solid #dc2626; display: flex; flex-direction: column; }
h1 { margin: 0; font-size: 72pt; font-weight: 900; color: #dc2626; text-align: center; letter-spacing: -2px; }
.rule { height: 8px; background: #000; margin: 4mm 0; }
.title { display: flex; justify-content: space-between; align-items: flex-end; }
.title h2 { margin: 0; font-size: 36pt; text-transform: uppercase; }
.reward { color: #6b7280; font-weight: 700; text-transform: uppercase; letter-spacing: 3px; }
.hero { position: relative; height: 110mm; border: 4px solid #000; background: #f3f4f6; margin: 4mm 0; display: flex; align-items: center; justify-content: center; overflow: hidden; }
.hero img { width: 100%; height: 100%; object-fit: cover; }
.placeholder { color: #9ca3af; font-size: 18pt; font-weight: 700; text-transform: uppercase; }
.banner { position: absolute; left: 0; right: 0; bottom: 0; background: #dc2626; color: #fff; text-align: center; padding: 2mm; font-size: 18pt; font-weight: 700; text-transform: uppercase; }
.last-seen { background: #fef2f2; border-left: 4px solid #dc2626; padding: 4mm; }
.last-seen h3 { margin: 0; font-size: 12pt; text-transform: uppercase; color: #374151; }
.address { font-size: 18pt; font-weight: 900; }
.description { text-align: center; font-family: Georgia, serif; font-style: italic; font-size: 16pt; margin: 4mm 0; }
.features { display: flex; flex-wrap: wrap; justify-content: center; gap: 2mm; }
.feature { background: #000; color: #fff; border-radius: 999px; padding: 1mm 3mm; font-weight: 700; text-transform: uppercase; font-size: 10pt; }
.contact { margin-top: auto; border-top: 4px solid #000; padding-top: 4mm; display: flex; justify-content: space-between; align-items: center; }
.prompt { color: #6b7280; font-weight: 700; text-transform: uppercase; font-size: 10pt; letter-spacing: 2px; }
.phone { font-size: 40pt; font-weight: 900; }
.owner { font-size: 14pt; font-weight: 700; text-transform: uppercase; }
.qr { text-align: center; font-size: 7pt; font-weight: 700; text-transform: uppercase; color: #6b7280; }
.qr img { width: 30mm; height: 30mm; border: 1px solid #d1d5db; display: block; }
</style>
</head>
<body>
<main class="poster">
<h1>{{.Headline}}</h1>
<div class="rule"></div>
<div class="title"><h2>{{.Name}}</h2><span class="reward">{{.Reward}}</span></div>
<div class="hero">
{{- if .Photo}}
<img src="{{photoSrc .Photo}}" alt="Lost Cat">
{{- else}}
<span class="placeholder">{{.Placeholder}}</span>
{{- end}}
<div class="banner">{{.Banner}}</div>
</div>
<section class="last-seen">
<h3>{{.LastSeen.Heading}}</h3>
<div class="address">{{.LastSeen.Address}}</div>
<div class="date">{{.LastSeen.DateLine}}</div>
</section>
{{- if .Description}}
<p class="description">&ldquo;{{.Description}}&rdquo;</p>
{{- end}}
{{- if .HasFeatures}}
<div class="features">
{{- range .Features}}
<span class="feature">{{.}}</span>
{{- end}}
</div>
{{- end}}
<footer class="contact">
<div>
<div class="prompt">{{.Contact.Prompt}}</div>
<div class="phone">{{.Contact.Phone}}</div>
<div class="owner">{{.Contact.OwnerName}}</div>
</div>
<div class="qr"><img src="{{.QR.ImageURL}}" alt="Location Map">{{.QR.Caption}}</div>
</footer>
</main>
</body>
</html>
`

// WriteHTML writes the print-ready poster page.
func WriteHTML(w io.Writer, l Layout) error {
	if err := pageTemplate.Execute(w, l); err != nil {
		return fmt.Errorf("rendering poster html: %w", err)
	}
	return nil
}

// HTML returns the print-ready poster page.
func HTML(l Layout) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteHTML(&buf, l); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
