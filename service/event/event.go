package event

import "time"

// Context identifies what a lifecycle event is about: which subject (twin or
// asset), which component emitted it and what happened.
type Context struct {
	SubjectID string `json:"subjectID"`
	Component string `json:"component"` // rbac | decision | approval
	EventType string `json:"eventType"` // e.g. proposal.created
}

type Event[T any] struct {
	Context   *Context               `json:"context"`
	CreatedAt time.Time              `json:"createdAt"`
	Metadata  map[string]interface{} `json:"metadata"`
	Data      T                      `json:"data"`
}

func NewEvent[T any](context *Context, data T) *Event[T] {
	return &Event[T]{
		Context:  context,
		Metadata: make(map[string]interface{}),
		Data:     data,
	}
}
