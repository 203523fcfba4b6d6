// Package poster lays out a lost-cat poster from a profile and encodes it as
// a print-ready HTML page or a PNG image.
package poster

import (
	"github.com/janisto/lostcat/internal/share"
	"github.com/janisto/lostcat/internal/wizard"
)

// Fixed poster text and page geometry.
const (
	Headline        = "LOST CAT"
	RewardText      = "Reward? Yes"
	PlaceholderText = "No Photo Available"
	BannerText      = "Please Help Bring Me Home"
	LastSeenHeading = "Last Seen Location"
	ContactPrompt   = "If seen, please contact:"
	QRCaption       = "Scan for Map"
	AspectRatio     = 1.414
)

// Options controls locale and link generation.
type Options struct {
	// Locale is a BCP 47 tag or Accept-Language value. Empty means en-US.
	Locale string
	// Share builds the QR and map links.
	Share share.Builder
}

// Layout is the complete, encoder-independent description of a poster.
type Layout struct {
	Headline    string        `json:"headline"`
	Name        string        `json:"name"`
	Reward      string        `json:"reward"`
	Photo       *PhotoBlock   `json:"photo,omitempty"`
	Placeholder string        `json:"placeholder,omitempty"`
	Banner      string        `json:"banner"`
	LastSeen    LastSeenBlock `json:"lastSeen"`
	Description string        `json:"description"`
	Features    []string      `json:"features,omitempty"`
	Contact     ContactBlock  `json:"contact"`
	QR          QRBlock       `json:"qr"`
	Locale      string        `json:"locale"`
}

// PhotoBlock is the hero image.
type PhotoBlock struct {
	ContentType string `json:"contentType"`
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	photo       *wizard.Photo
}

// DataURL returns the image inlined as a data URL.
func (b *PhotoBlock) DataURL() string {
	if b == nil {
		return ""
	}
	return b.photo.DataURL()
}

// LastSeenBlock holds the location and the locale-formatted date.
type LastSeenBlock struct {
	Heading string `json:"heading"`
	Address string `json:"address"`
	Date    string `json:"date"`
}

// DateLine is the date as printed on the poster.
func (b LastSeenBlock) DateLine() string {
	return "Date: " + b.Date
}

// ContactBlock is the footer contact area.
type ContactBlock struct {
	Prompt    string `json:"prompt"`
	Phone     string `json:"phone"`
	OwnerName string `json:"ownerName"`
}

// QRBlock points at the map search link through a QR image.
type QRBlock struct {
	ImageURL string `json:"imageUrl"`
	MapURL   string `json:"mapUrl"`
	Caption  string `json:"caption"`
}

// HasFeatures reports whether the feature region is shown.
func (l Layout) HasFeatures() bool {
	return len(l.Features) > 0
}

// Render builds the poster layout for a profile. It reads the profile only and
// returns the same layout for the same inputs.
func Render(p wizard.Profile, opts Options) Layout {
	idx, locale := matchLocale(opts.Locale)

	l := Layout{
		Headline:    Headline,
		Name:        p.Name,
		Reward:      RewardText,
		Banner:      BannerText,
		Description: p.Description,
		LastSeen: LastSeenBlock{
			Heading: LastSeenHeading,
			Address: p.LastSeenAddress,
			Date:    formatDate(p.LastSeenDate, idx),
		},
		Contact: ContactBlock{
			Prompt:    ContactPrompt,
			Phone:     p.Phone,
			OwnerName: p.OwnerName,
		},
		QR: QRBlock{
			ImageURL: opts.Share.QRCodeURL(p),
			MapURL:   opts.Share.MapSearchURL(p),
			Caption:  QRCaption,
		},
		Locale: locale,
	}

	if p.Photo != nil && len(p.Photo.Data) > 0 {
		l.Photo = &PhotoBlock{
			ContentType: p.Photo.ContentType,
			Width:       p.Photo.Width,
			Height:      p.Photo.Height,
			photo:       p.Photo.Clone(),
		}
	} else {
		l.Placeholder = PlaceholderText
	}

	if len(p.Features) > 0 {
		l.Features = append([]string(nil), p.Features...)
	}

	return l
}
