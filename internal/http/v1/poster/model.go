package poster

import (
	"github.com/janisto/lostcat/internal/poster"
)

// Poster is the encoder-independent poster layout.
type Poster struct {
	poster.Layout
	PhotoURL string `json:"photoUrl,omitempty" doc:"Where to fetch the hero image" example:"/v1/sessions/0b5d.../photo"`
}

// Share holds the outreach links for the current profile.
type Share struct {
	MapSearch string   `json:"mapSearch"          doc:"Map search for the last seen address"`
	MapEmbed  string   `json:"mapEmbed,omitempty" doc:"Embeddable map; empty without an embed key"`
	Message   string   `json:"message"            doc:"Plain-text plea used by the messaging links"`
	WhatsApp  string   `json:"whatsApp"           doc:"WhatsApp link with the message prefilled"`
	Facebook  string   `json:"facebook"           doc:"Facebook sharer link"`
	QRCode    string   `json:"qrCode"             doc:"QR image encoding the map search link"`
	NextSteps []string `json:"nextSteps"          doc:"Checklist shown after the poster is printed"`
}
