package sessions

import (
	"github.com/janisto/lostcat/internal/platform/timeutil"
)

// Photo describes the stored photo. The bytes are served separately.
type Photo struct {
	ContentType string `json:"contentType" doc:"Stored image type"           example:"image/jpeg"`
	Width       int    `json:"width"       doc:"Width in pixels"             example:"1200"`
	Height      int    `json:"height"      doc:"Height in pixels"            example:"900"`
	URL         string `json:"url"         doc:"Where to fetch the image"    example:"/v1/sessions/0b5d.../photo"`
}

// Profile is the cat profile being built.
type Profile struct {
	Name            string   `json:"name"            doc:"Cat name"                 example:"Milo"`
	Breed           string   `json:"breed"           doc:"Breed"                    example:"Tabby"`
	Color           string   `json:"color"           doc:"Coat color"               example:"Orange"`
	LastSeenAddress string   `json:"lastSeenAddress" doc:"Where the cat was last seen" example:"221B Baker St"`
	LastSeenDate    string   `json:"lastSeenDate"    doc:"Calendar date YYYY-MM-DD" example:"2024-01-15"`
	OwnerName       string   `json:"ownerName"       doc:"Contact name"             example:"Jane"`
	Phone           string   `json:"phone"           doc:"Contact phone"            example:"555-0100"`
	Description     string   `json:"description"     doc:"Poster description"       example:"Friendly and shy."`
	Features        []string `json:"features"        doc:"Distinctive features in entry order"`
	Photo           *Photo   `json:"photo,omitempty" doc:"Photo metadata when a photo is set"`
}

// Session is the wizard snapshot returned by every session operation.
type Session struct {
	ID         string        `json:"id"         doc:"Session identifier"                 example:"0b5d3c1e-8f8a-4a55-a0a4-2f6f5b8f1c2d"`
	Step       string        `json:"step"       doc:"Active wizard step"                 enum:"landing,details,photo,preview"`
	Profile    Profile       `json:"profile"`
	Generating bool          `json:"generating" doc:"A description request is in flight"`
	CanAdvance bool          `json:"canAdvance" doc:"Whether advance would move from the active step"`
	Missing    []string      `json:"missing"    doc:"Required fields blocking Details"`
	CreatedAt  timeutil.Time `json:"createdAt"  doc:"Creation timestamp"                 example:"2024-01-15T10:30:00.000Z"`
	UpdatedAt  timeutil.Time `json:"updatedAt"  doc:"Last change timestamp"              example:"2024-01-15T10:31:00.000Z"`
	ExpiresAt  timeutil.Time `json:"expiresAt"  doc:"When the idle session is dropped"   example:"2024-01-16T10:31:00.000Z"`
}

// Transition reports the outcome of one intent.
type Transition struct {
	Outcome string   `json:"outcome" doc:"What the intent did" enum:"accepted,noop,refused"`
	Moved   bool     `json:"moved"   doc:"Whether the active step changed"`
	Step    string   `json:"step"    doc:"Active step after the intent" enum:"landing,details,photo,preview"`
	Missing []string `json:"missing" doc:"Required fields blocking Details"`
	Session Session  `json:"session"`
}

// ProfileUpdate reports a profile patch.
type ProfileUpdate struct {
	Ignored []string `json:"ignored" doc:"Provided fields that were left unchanged, such as a malformed date"`
	Session Session  `json:"session"`
}
