package poster

// PosterInput addresses one session's poster.
type PosterInput struct {
	SessionID      string `path:"sessionId"         minLength:"1" maxLength:"128" doc:"Session identifier"`
	Locale         string `query:"locale"           maxLength:"64"                doc:"BCP 47 locale for the date, overrides Accept-Language" example:"de-DE"`
	AcceptLanguage string `header:"Accept-Language" maxLength:"256"               doc:"Used for the date format when no locale is given"`
}

// ShareInput for GET /sessions/{sessionId}/share
type ShareInput struct {
	SessionID string `path:"sessionId" minLength:"1" maxLength:"128" doc:"Session identifier"`
}
