package amqp

import (
	"encoding/json"
	"errors"
	"time"

	"collegesave/internal/api"
	"collegesave/internal/core"
)

var ErrEmptyReply = errors.New("reply has neither result nor error")

// ProjectionRequest asks a worker to run one calculation.
type ProjectionRequest struct {
	Input         core.Input `json:"input"`
	IncludeSeries bool       `json:"include_series"`
	Timestamp     time.Time  `json:"timestamp"`
}

// ProjectionReply carries either the result or the reason it was rejected.
type ProjectionReply struct {
	Result    *api.ProjectionResponse `json:"result,omitempty"`
	Error     *api.ErrorResponse      `json:"error,omitempty"`
	Timestamp time.Time               `json:"timestamp"`
}

// NewProjectionRequest creates a request stamped with the current time
func NewProjectionRequest(in core.Input, includeSeries bool) *ProjectionRequest {
	return &ProjectionRequest{
		Input:         in,
		IncludeSeries: includeSeries,
		Timestamp:     time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *ProjectionRequest) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ProjectionRequestFromJSON creates a request from JSON bytes
func ProjectionRequestFromJSON(data []byte) (*ProjectionRequest, error) {
	var msg ProjectionRequest
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// ToJSON converts the reply to JSON bytes
func (m *ProjectionReply) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ProjectionReplyFromJSON creates a reply from JSON bytes
func ProjectionReplyFromJSON(data []byte) (*ProjectionReply, error) {
	var msg ProjectionReply
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.Result == nil && msg.Error == nil {
		return nil, ErrEmptyReply
	}
	return &msg, nil
}
