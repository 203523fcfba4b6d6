package poster

// PosterOutput for GET /sessions/{sessionId}/poster
type PosterOutput struct {
	Body Poster
}

// PosterFileOutput for the HTML and PNG renditions.
type PosterFileOutput struct {
	ContentType        string `header:"Content-Type"`
	ContentDisposition string `header:"Content-Disposition"`
	Body               []byte
}

// ShareOutput for GET /sessions/{sessionId}/share
type ShareOutput struct {
	Body Share
}
