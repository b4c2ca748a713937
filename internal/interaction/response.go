package interaction

// Response is what an interaction handler sends back to Slack. A nil Body
// with status 200 is the bare acknowledgment; Slack changes no UI for it.
type Response struct {
	StatusCode int
	Body       any
}

type responseAction struct {
	ResponseAction string            `json:"response_action"`
	Errors         map[string]string `json:"errors,omitempty"`
}

type ephemeralMessage struct {
	ResponseType string `json:"response_type"`
	Text         string `json:"text"`
}

// Empty acknowledges the interaction with no UI change.
func Empty() *Response {
	return &Response{StatusCode: 200}
}

// Clear closes the open modal.
func Clear() *Response {
	return &Response{StatusCode: 200, Body: responseAction{ResponseAction: "clear"}}
}

// FieldErrors keeps the modal open and shows a message under each named
// block.
func FieldErrors(errs map[string]string) *Response {
	return &Response{StatusCode: 200, Body: responseAction{ResponseAction: "errors", Errors: errs}}
}

// Ephemeral shows text only to the interacting user.
func Ephemeral(text string) *Response {
	return &Response{StatusCode: 200, Body: ephemeralMessage{ResponseType: "ephemeral", Text: text}}
}

// ExpiredTrigger tells the user the interaction window closed and how to
// start over. Distinct from a generic failure so users do not report it.
func ExpiredTrigger() *Response {
	return Ephemeral("⏱️ This action expired. Please run /task again to open a new form.")
}
