package harvester

import (
	"encoding/json"
	"errors"

	"github.com/c360studio/semstreams/component"
	"github.com/c360studio/semstreams/message"

	"github.com/c360studio/semharvest/harvest"
)

func init() {
	err := component.RegisterPayload(&component.PayloadRegistration{
		Domain:      "harvest",
		Category:    "run-finished",
		Version:     "v1",
		Description: "Summary of a finished repository harvest",
		Factory:     func() any { return &RunFinishedPayload{} },
	})
	if err != nil {
		panic("failed to register RunFinishedPayload: " + err.Error())
	}

	err = component.RegisterPayload(&component.PayloadRegistration{
		Domain:      "harvest",
		Category:    "file-too-big",
		Version:     "v1",
		Description: "Notice of harvested files above the size threshold",
		Factory:     func() any { return &FileTooBigPayload{} },
	})
	if err != nil {
		panic("failed to register FileTooBigPayload: " + err.Error())
	}
}

// Message types for harvester events.
var (
	RunFinishedType = message.Type{Domain: "harvest", Category: "run-finished", Version: "v1"}
	FileTooBigType  = message.Type{Domain: "harvest", Category: "file-too-big", Version: "v1"}
)

// RunRequest asks for a repository harvest.
type RunRequest struct {
	URL           string `json:"url"`
	Branch        string `json:"branch,omitempty"`
	MaxFileSize   int64  `json:"max_file_size,omitempty"`
	CorrelationID string `json:"correlation_id,omitempty"`
	StartedBy     string `json:"started_by,omitempty"`
}

// RemoveRequest asks for the removal of a repository's harvested data.
type RemoveRequest struct {
	URL string `json:"url"`
}

// RunFinishedPayload carries the summary of a finished run.
type RunFinishedPayload struct {
	Summary *harvest.Summary `json:"summary"`
}

// Schema returns the message type for Payload interface.
func (p *RunFinishedPayload) Schema() message.Type { return RunFinishedType }

// Validate validates the payload for Payload interface.
func (p *RunFinishedPayload) Validate() error {
	if p.Summary == nil {
		return errors.New("summary is required")
	}
	if p.Summary.RunID == "" {
		return errors.New("run ID is required")
	}
	return nil
}

// MarshalJSON implements json.Marshaler.
func (p *RunFinishedPayload) MarshalJSON() ([]byte, error) {
	type Alias RunFinishedPayload
	return json.Marshal((*Alias)(p))
}

// UnmarshalJSON implements json.Unmarshaler.
func (p *RunFinishedPayload) UnmarshalJSON(data []byte) error {
	type Alias RunFinishedPayload
	return json.Unmarshal(data, (*Alias)(p))
}

// FileTooBigPayload carries an oversize notice.
type FileTooBigPayload struct {
	Notice harvest.FileTooBigNotice `json:"notice"`
}

// Schema returns the message type for Payload interface.
func (p *FileTooBigPayload) Schema() message.Type { return FileTooBigType }

// Validate validates the payload for Payload interface.
func (p *FileTooBigPayload) Validate() error {
	if p.Notice.Path == "" {
		return errors.New("path is required")
	}
	return nil
}

// MarshalJSON implements json.Marshaler.
func (p *FileTooBigPayload) MarshalJSON() ([]byte, error) {
	type Alias FileTooBigPayload
	return json.Marshal((*Alias)(p))
}

// UnmarshalJSON implements json.Unmarshaler.
func (p *FileTooBigPayload) UnmarshalJSON(data []byte) error {
	type Alias FileTooBigPayload
	return json.Unmarshal(data, (*Alias)(p))
}
