package graph

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/c360studio/semstreams/component"
	"github.com/c360studio/semstreams/message"
)

func init() {
	err := component.RegisterPayload(&component.PayloadRegistration{
		Domain:      "catalog",
		Category:    "asset",
		Version:     "v1",
		Description: "Harvested semantic asset entity with triples",
		Factory:     func() any { return &AssetPayload{} },
	})
	if err != nil {
		panic("failed to register AssetPayload: " + err.Error())
	}

	err = component.RegisterPayload(&component.PayloadRegistration{
		Domain:      "catalog",
		Category:    "repository",
		Version:     "v1",
		Description: "Harvested repository entity with triples",
		Factory:     func() any { return &RepositoryPayload{} },
	})
	if err != nil {
		panic("failed to register RepositoryPayload: " + err.Error())
	}
}

// Message types for catalogue entity payloads.
var (
	AssetEntityType      = message.Type{Domain: "catalog", Category: "asset", Version: "v1"}
	RepositoryEntityType = message.Type{Domain: "catalog", Category: "repository", Version: "v1"}
)

// AssetPayload implements message.Payload for asset entities.
type AssetPayload struct {
	EntityID_  string           `json:"id"`
	TripleData []message.Triple `json:"triples"`
	UpdatedAt  time.Time        `json:"updated_at"`
}

func (e *AssetPayload) EntityID() string          { return e.EntityID_ }
func (e *AssetPayload) Triples() []message.Triple { return e.TripleData }
func (e *AssetPayload) Schema() message.Type      { return AssetEntityType }

func (e *AssetPayload) Validate() error {
	if e.EntityID_ == "" {
		return errors.New("entity ID is required")
	}
	if len(e.TripleData) == 0 {
		return errors.New("at least one triple is required")
	}
	return nil
}

func (e *AssetPayload) MarshalJSON() ([]byte, error) {
	type Alias AssetPayload
	return json.Marshal((*Alias)(e))
}

func (e *AssetPayload) UnmarshalJSON(data []byte) error {
	type Alias AssetPayload
	return json.Unmarshal(data, (*Alias)(e))
}

// RepositoryPayload implements message.Payload for repository entities.
type RepositoryPayload struct {
	EntityID_  string           `json:"id"`
	TripleData []message.Triple `json:"triples"`
	UpdatedAt  time.Time        `json:"updated_at"`
}

func (e *RepositoryPayload) EntityID() string          { return e.EntityID_ }
func (e *RepositoryPayload) Triples() []message.Triple { return e.TripleData }
func (e *RepositoryPayload) Schema() message.Type      { return RepositoryEntityType }

func (e *RepositoryPayload) Validate() error {
	if e.EntityID_ == "" {
		return errors.New("entity ID is required")
	}
	return nil
}

func (e *RepositoryPayload) MarshalJSON() ([]byte, error) {
	type Alias RepositoryPayload
	return json.Marshal((*Alias)(e))
}

func (e *RepositoryPayload) UnmarshalJSON(data []byte) error {
	type Alias RepositoryPayload
	return json.Unmarshal(data, (*Alias)(e))
}
