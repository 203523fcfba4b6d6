package sessions

// SessionPathInput addresses one session.
type SessionPathInput struct {
	SessionID string `path:"sessionId" minLength:"1" maxLength:"128" doc:"Session identifier"`
}

// SessionCreateInput for POST /sessions (no body needed)
type SessionCreateInput struct{}

// ProfileUpdateInput for PATCH /sessions/{sessionId}/profile.
// Each provided field is applied as one update; omitted fields are untouched.
type ProfileUpdateInput struct {
	SessionPathInput
	Body struct {
		Name            *string `json:"name,omitempty"            maxLength:"100"  doc:"Cat name"                 example:"Milo"`
		Breed           *string `json:"breed,omitempty"           maxLength:"100"  doc:"Breed"                    example:"Tabby"`
		Color           *string `json:"color,omitempty"           maxLength:"100"  doc:"Coat color"               example:"Orange"`
		LastSeenAddress *string `json:"lastSeenAddress,omitempty" maxLength:"300"  doc:"Last seen address"        example:"221B Baker St"`
		LastSeenDate    *string `json:"lastSeenDate,omitempty"    maxLength:"10"   doc:"Calendar date YYYY-MM-DD" example:"2024-01-15"`
		OwnerName       *string `json:"ownerName,omitempty"       maxLength:"100"  doc:"Contact name"             example:"Jane"`
		Phone           *string `json:"phone,omitempty"           maxLength:"40"   doc:"Contact phone"            example:"555-0100"`
		Description     *string `json:"description,omitempty"     maxLength:"2000" doc:"Poster description"       example:"Friendly and shy."`
	}
}

// FeatureAddInput for POST /sessions/{sessionId}/features
type FeatureAddInput struct {
	SessionPathInput
	Body struct {
		Text string `json:"text" maxLength:"200" required:"true" doc:"Distinctive feature; blank text is ignored" example:"White paws"`
	}
}

// PhotoPutInput for PUT /sessions/{sessionId}/photo. The body is the raw image.
type PhotoPutInput struct {
	SessionPathInput
	RawBody []byte `contentType:"image/*"`
}
