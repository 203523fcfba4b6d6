package sessions

// SessionCreateOutput for POST /sessions (201 Created)
type SessionCreateOutput struct {
	Location string `header:"Location" doc:"URL of the created session"`
	Body     Session
}

// SessionOutput for operations returning the session snapshot.
type SessionOutput struct {
	Body Session
}

// TransitionOutput for step intents.
type TransitionOutput struct {
	Body Transition
}

// ProfileUpdateOutput for PATCH /sessions/{sessionId}/profile
type ProfileUpdateOutput struct {
	Body ProfileUpdate
}

// PhotoGetOutput for GET /sessions/{sessionId}/photo
type PhotoGetOutput struct {
	ContentType string `header:"Content-Type"`
	Body        []byte
}
