package monitor

import "time"

type Status struct {
	Store     bool      `json:"store"`
	Queue     bool      `json:"queue"`
	QueueSize int       `json:"queue_size"`
	Relay     *bool     `json:"relay,omitempty"`
	LastCheck time.Time `json:"last_check"`
}
