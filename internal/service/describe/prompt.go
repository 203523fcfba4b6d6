package describe

import (
	"fmt"
	"strings"
)

const promptTemplate = `
I lost my cat and I need a short, urgent, but clear description for a "LOST CAT" poster.
Here are the details:
Name: %s
Breed: %s
Color: %s
Distinctive features: %s
Last seen: %s on %s

Write a 3-4 sentence paragraph that is emotional but informative.
Focus on visual identification and how to approach the cat (assume friendly unless features say otherwise).
Do not include the phone number or owner name in the body text (those are separate fields).
Keep it under 60 words.
`

// BuildPrompt renders the provider prompt for a request.
func BuildPrompt(req Request) string {
	return strings.TrimSpace(fmt.Sprintf(promptTemplate,
		req.Name,
		req.Breed,
		req.Color,
		strings.Join(req.Features, ", "),
		req.LastSeenAddress,
		req.LastSeenDate,
	))
}
