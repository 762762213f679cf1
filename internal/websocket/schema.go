package websocket

// ─── Actions (Client → Server) ──────────────────────────────────────

type Action string

const (
	ActionSetAnswer Action = "set_answer"
	ActionLock      Action = "lock"
	ActionSubmit    Action = "submit"
	ActionPing      Action = "ping"
)

// RequestEnvelope is used to peek at the action before full parsing.
type RequestEnvelope struct {
	Action Action `json:"action"`
}

// SetAnswerRequest is sent by the client to record a single answer.
// Index is the 1-based question number.
type SetAnswerRequest struct {
	Action Action `json:"action"`
	Index  int    `json:"index"`
	Answer string `json:"ans"`
}

// LockRequest locks a single answered question.
type LockRequest struct {
	Action Action `json:"action"`
	Index  int    `json:"index"`
}

// SubmitRequest is sent by the client to finish and grade the attempt.
type SubmitRequest struct {
	Action Action `json:"action"`
}

// ─── Events (Server → Client) ───────────────────────────────────────

type Event string

const (
	EventError   Event = "error"
	EventSuccess Event = "success"
	EventTick    Event = "tick"
	EventGraded  Event = "graded"
	EventPong    Event = "pong"
)

type SuccessResponse struct {
	Event  Event  `json:"event"`
	Status string `json:"status"`
}

// TickResponse carries the remaining time, pushed once per second while
// the attempt is active.
type TickResponse struct {
	Event    Event  `json:"event"`
	TimeLeft int    `json:"time_left"`
	State    string `json:"state"`
}

type GradedResponse struct {
	Event         Event   `json:"event"`
	Status        string  `json:"status"`
	ObtainedMarks float64 `json:"obtained_marks"`
	TotalMarks    int     `json:"total_marks"`
}

type ErrorResponse struct {
	Event Event  `json:"event"`
	Error string `json:"error"`
}

type PongResponse struct {
	Event Event `json:"event"`
}
