// Package share builds the map, messaging and QR links offered next to a
// finished poster. Every function is a pure function of the profile.
package share

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/janisto/lostcat/internal/wizard"
)

const (
	mapSearchBase = "https://www.google.com/maps/search/?api=1&query="
	mapEmbedBase  = "https://www.google.com/maps/embed/v1/place"
	whatsAppBase  = "https://wa.me/?text="
	facebookBase  = "https://www.facebook.com/sharer/sharer.php"
	qrServerBase  = "https://api.qrserver.com/v1/create-qr-code/"

	DefaultReferralURL = "https://github.com/Bashlostcat/lostcat"
	DefaultQRSize      = 150
)

// NextSteps is the checklist shown beside a finished poster.
var NextSteps = []string{
	"Print 20 copies of this poster.",
	"Post at eye-level near last seen spot.",
	"Share the WhatsApp link with neighbors.",
	"Put their litter box outside (scent helps).",
}

// Builder holds the configurable parts of the share links.
type Builder struct {
	// MapsEmbedKey enables MapEmbedURL. Empty disables the embed.
	MapsEmbedKey string
	// ReferralURL is the page shared on Facebook.
	ReferralURL string
	// WhatsAppReferral appends ReferralURL to the WhatsApp text.
	WhatsAppReferral bool
	// QRSize is the QR image edge in pixels.
	QRSize int
}

// DefaultBuilder is used by the package-level functions.
var DefaultBuilder = Builder{
	ReferralURL: DefaultReferralURL,
	QRSize:      DefaultQRSize,
}

// Links is every share artifact for one profile.
type Links struct {
	MapSearch string   `json:"mapSearch"`
	MapEmbed  string   `json:"mapEmbed,omitempty"`
	Message   string   `json:"message"`
	WhatsApp  string   `json:"whatsApp"`
	Facebook  string   `json:"facebook"`
	QRCode    string   `json:"qrCode"`
	NextSteps []string `json:"nextSteps"`
}

// All builds every link at once.
func (b Builder) All(p wizard.Profile) Links {
	return Links{
		MapSearch: b.MapSearchURL(p),
		MapEmbed:  b.MapEmbedURL(p),
		Message:   Message(p),
		WhatsApp:  b.WhatsAppURL(p),
		Facebook:  b.FacebookURL(p),
		QRCode:    b.QRCodeURL(p),
		NextSteps: append([]string(nil), NextSteps...),
	}
}

// MapSearchURL links to a map search for the last-seen address.
func (b Builder) MapSearchURL(p wizard.Profile) string {
	return mapSearchBase + encodeURIComponent(p.LastSeenAddress)
}

// MapEmbedURL returns an embeddable map of the last-seen address, or "" when
// no embed key is configured.
func (b Builder) MapEmbedURL(p wizard.Profile) string {
	if b.MapsEmbedKey == "" {
		return ""
	}
	return mapEmbedBase + "?key=" + encodeURIComponent(b.MapsEmbedKey) + "&q=" + encodeURIComponent(p.LastSeenAddress)
}

// Message is the plain-text plea used by the messaging links.
func Message(p wizard.Profile) string {
	return fmt.Sprintf("Help! My cat %s is lost. Last seen at %s. Please share!", p.Name, p.LastSeenAddress)
}

// WhatsAppURL opens WhatsApp with the message prefilled.
func (b Builder) WhatsAppURL(p wizard.Profile) string {
	text := Message(p)
	if b.WhatsAppReferral && b.referral() != "" {
		text += "\n" + b.referral()
	}
	return whatsAppBase + encodeURIComponent(text)
}

// FacebookURL opens the Facebook sharer with the referral page and message.
func (b Builder) FacebookURL(p wizard.Profile) string {
	return facebookBase + "?u=" + encodeURIComponent(b.referral()) + "&quote=" + encodeURIComponent(Message(p))
}

// QRCodeURL is a QR image encoding the map search link.
func (b Builder) QRCodeURL(p wizard.Profile) string {
	size := b.QRSize
	if size <= 0 {
		size = DefaultQRSize
	}
	dim := strconv.Itoa(size)
	return qrServerBase + "?size=" + dim + "x" + dim + "&data=" + encodeURIComponent(b.MapSearchURL(p))
}

func (b Builder) referral() string {
	if b.ReferralURL == "" {
		return DefaultReferralURL
	}
	return b.ReferralURL
}

// componentUnescaper restores the marks that encodeURIComponent leaves alone.
var componentUnescaper = strings.NewReplacer(
	"+", "%20",
	"%21", "!",
	"%27", "'",
	"%28", "(",
	"%29", ")",
	"%2A", "*",
)

// encodeURIComponent percent-encodes s like the browser function of the same
// name: spaces become %20 and the marks !'()* stay literal.
func encodeURIComponent(s string) string {
	return componentUnescaper.Replace(url.QueryEscape(s))
}
