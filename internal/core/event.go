package core

import "time"

// Event is the envelope used to carry a hub emission between processes.
// Args go through JSON, so numbers arrive as float64 and structs as maps.
type Event struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Source    string    `json:"source"`
	Timestamp time.Time `json:"timestamp"`
	Args      []any     `json:"args"`
}
