package sensor

import (
	"time"

	"github.com/i474232898/meteoradar/internal/radar"
)

// EntityPrefix is prepended to the radar code to form the state entity id.
const EntityPrefix = "sensor.rainviewer_meteoradar_"

// EntityID returns the state entity a radar publishes to.
func EntityID(radarCode string) string {
	return EntityPrefix + radarCode
}

// Attributes are published alongside a sensor's primary value.
type Attributes struct {
	Radar   string `json:"radar"`
	Success bool   `json:"success"`
	JpegURL string `json:"jpeg_url"`
}

// SensorData is the record handed to a sink after every poll.
type SensorData struct {
	UpdatedAt string     `json:"updated_at"`
	Data      Attributes `json:"data"`
}

// NewSensorData shapes a resolution into the sink record.
func NewSensorData(r radar.ResolvedScan) SensorData {
	return SensorData{
		UpdatedAt: r.UpdatedAtLocal,
		Data: Attributes{
			Radar:   r.RadarCode,
			Success: r.Success,
			JpegURL: r.ImageURL,
		},
	}
}

// State is a named entity value as kept by the state store. A write replaces
// the previous value and attributes entirely.
type State struct {
	EntityID    string     `json:"entity_id"`
	State       string     `json:"state"`
	Attributes  Attributes `json:"attributes"`
	LastUpdated time.Time  `json:"last_updated"` // always UTC
}

// ToState converts the record into the entity state written at time at.
func (d SensorData) ToState(entityID string, at time.Time) State {
	return State{
		EntityID:    entityID,
		State:       d.UpdatedAt,
		Attributes:  d.Data,
		LastUpdated: at.UTC(),
	}
}

// Store is the contract the in-memory store (and any future persistent store) must satisfy.
type Store interface {
	SetState(state State)
	GetState(entityID string) (State, error)
	GetRange(entityID string, from, to time.Time) ([]State, error)
	List() []State
}
