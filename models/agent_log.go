// models/agent_log.go
package models

import "time"

// AgentLog is an activity/error log row. Writes are fire-and-forget —
// a failed insert must never abort the phase that produced it.
type AgentLog struct {
	ID        uint           `gorm:"primaryKey;autoIncrement" json:"id"`
	Kind      string         `gorm:"size:64;index;not null" json:"kind"` // e.g. "discovery", "report", "error"
	Message   string         `gorm:"type:text;not null" json:"message"`
	Data      map[string]any `gorm:"serializer:json" json:"data,omitempty"`
	CreatedAt time.Time      `gorm:"autoCreateTime;index" json:"created_at"`
}
