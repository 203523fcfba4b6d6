package wizard

import (
	"encoding/base64"
	"slices"
	"strings"
	"time"
)

// DateLayout is the calendar date format used for LastSeenDate.
const DateLayout = "2006-01-02"

// Field identifies a scalar profile field accepted by UpdateField.
type Field string

const (
	FieldName            Field = "name"
	FieldBreed           Field = "breed"
	FieldColor           Field = "color"
	FieldLastSeenAddress Field = "lastSeenAddress"
	FieldLastSeenDate    Field = "lastSeenDate"
	FieldOwnerName       Field = "ownerName"
	FieldPhone           Field = "phone"
	FieldDescription     Field = "description"
)

// Fields lists every scalar field in display order.
var Fields = []Field{
	FieldName,
	FieldBreed,
	FieldColor,
	FieldLastSeenAddress,
	FieldLastSeenDate,
	FieldOwnerName,
	FieldPhone,
	FieldDescription,
}

// Valid reports whether f names a known scalar field.
func (f Field) Valid() bool {
	return slices.Contains(Fields, f)
}

// Photo is a fully loaded image payload. It is never partial.
type Photo struct {
	ContentType string `json:"contentType" cbor:"1,keyasint"`
	Data        []byte `json:"-"           cbor:"2,keyasint"`
	Width       int    `json:"width"       cbor:"3,keyasint"`
	Height      int    `json:"height"      cbor:"4,keyasint"`
}

// DataURL encodes the photo as an RFC 2397 data URL.
func (p *Photo) DataURL() string {
	if p == nil || len(p.Data) == 0 {
		return ""
	}
	return "data:" + p.ContentType + ";base64," + base64.StdEncoding.EncodeToString(p.Data)
}

// Clone returns a deep copy of the photo.
func (p *Photo) Clone() *Photo {
	if p == nil {
		return nil
	}
	c := *p
	c.Data = slices.Clone(p.Data)
	return &c
}

// Profile describes one lost-cat case.
type Profile struct {
	Name            string   `json:"name"            cbor:"1,keyasint"`
	Breed           string   `json:"breed"           cbor:"2,keyasint"`
	Color           string   `json:"color"           cbor:"3,keyasint"`
	LastSeenAddress string   `json:"lastSeenAddress" cbor:"4,keyasint"`
	LastSeenDate    string   `json:"lastSeenDate"    cbor:"5,keyasint"`
	OwnerName       string   `json:"ownerName"       cbor:"6,keyasint"`
	Phone           string   `json:"phone"           cbor:"7,keyasint"`
	Description     string   `json:"description"     cbor:"8,keyasint"`
	Photo           *Photo   `json:"photo"           cbor:"9,keyasint,omitempty"`
	Features        []string `json:"features"        cbor:"10,keyasint"`
}

// NewProfile returns the empty profile of a session started at now.
func NewProfile(now time.Time) Profile {
	return Profile{
		LastSeenDate: now.Format(DateLayout),
		Features:     []string{},
	}
}

// Clone returns a deep copy so transitions never share mutable state.
func (p Profile) Clone() Profile {
	c := p
	c.Photo = p.Photo.Clone()
	c.Features = slices.Clone(p.Features)
	if c.Features == nil {
		c.Features = []string{}
	}
	return c
}

// Get returns the value of a scalar field.
func (p Profile) Get(f Field) string {
	switch f {
	case FieldName:
		return p.Name
	case FieldBreed:
		return p.Breed
	case FieldColor:
		return p.Color
	case FieldLastSeenAddress:
		return p.LastSeenAddress
	case FieldLastSeenDate:
		return p.LastSeenDate
	case FieldOwnerName:
		return p.OwnerName
	case FieldPhone:
		return p.Phone
	case FieldDescription:
		return p.Description
	default:
		return ""
	}
}

// set replaces one scalar field and reports whether the value was accepted.
// A malformed date is refused so LastSeenDate always holds a calendar date.
func (p *Profile) set(f Field, value string) bool {
	switch f {
	case FieldName:
		p.Name = value
	case FieldBreed:
		p.Breed = value
	case FieldColor:
		p.Color = value
	case FieldLastSeenAddress:
		p.LastSeenAddress = value
	case FieldLastSeenDate:
		if !ValidDate(value) {
			return false
		}
		p.LastSeenDate = value
	case FieldOwnerName:
		p.OwnerName = value
	case FieldPhone:
		p.Phone = value
	case FieldDescription:
		p.Description = value
	default:
		return false
	}
	return true
}

// Missing lists the required fields that are still empty.
func (p Profile) Missing() []Field {
	var missing []Field
	if strings.TrimSpace(p.Name) == "" {
		missing = append(missing, FieldName)
	}
	if strings.TrimSpace(p.LastSeenAddress) == "" {
		missing = append(missing, FieldLastSeenAddress)
	}
	return missing
}

// ValidDate reports whether s is a YYYY-MM-DD calendar date.
func ValidDate(s string) bool {
	_, err := time.Parse(DateLayout, s)
	return err == nil
}
