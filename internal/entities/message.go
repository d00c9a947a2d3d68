package entities

import (
	"strings"
	"time"
)

// Role says who authored a message in a DM thread.
type Role string

const (
	RoleInbound  Role = "inbound"  // simulated or live customer
	RoleOutbound Role = "outbound" // automation or operator
)

// Stage is the conversational phase an automated reply represents.
type Stage string

const (
	StagePitch     Stage = "pitch"
	StageQualify   Stage = "qualify"
	StageCheckout  Stage = "checkout"
	StageDelivery  Stage = "delivery"
	StageObjection Stage = "objection"
)

// AllStages lists the stages in their intended forward order, objection last.
func AllStages() []Stage {
	return []Stage{StagePitch, StageQualify, StageCheckout, StageDelivery, StageObjection}
}

// ParseStage decodes a stage name case-insensitively.
func ParseStage(s string) (Stage, bool) {
	switch st := Stage(strings.ToLower(strings.TrimSpace(s))); st {
	case StagePitch, StageQualify, StageCheckout, StageDelivery, StageObjection:
		return st, true
	}
	return "", false
}

// Message is one turn in a DM thread. Stage is empty unless the
// auto-reply engine produced the message.
type Message struct {
	ID        int64     `json:"id"`
	SessionID string    `json:"session_id"`
	Role      Role      `json:"role"`
	Text      string    `json:"text"`
	Stage     Stage     `json:"stage,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
