package model

// Response is the envelope every gateway endpoint answers with.
type Response struct {
	ID        string      `json:"id,omitempty"`
	Result    bool        `json:"result"`
	Completed bool        `json:"completed"`
	Data      interface{} `json:"data,omitempty"`
	Errors    []Errors    `json:"errors,omitempty"`
}

// Errors describes one failure. Side is "client" or "server"; Tag names the
// offending field or the failing collaborator.
type Errors struct {
	Side    string `json:"side"`
	Tag     string `json:"tag"`
	Message string `json:"message"`
}

func Success(id string, data interface{}) Response {
	return Response{ID: id, Result: true, Completed: true, Data: data}
}

func Failure(side, tag, message string) Response {
	return Response{Errors: []Errors{{Side: side, Tag: tag, Message: message}}}
}
