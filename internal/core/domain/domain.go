// Package domain contains the core data types shared across the scanner:
// raw chat messages, LLM verdicts, accepted leads, and scan run state.
//
// Timestamps are canonical epoch milliseconds at every internal boundary.
// Format-specific parsing (Unix seconds, ISO-8601, localized strings) is
// pushed to the Message Source and API layers.
package domain

import "time"

// RawMessage is one source chat message. Produced by the Message Source,
// consumed once per scan cycle, never mutated.
type RawMessage struct {
	// ID is the stable per-source identity of the message.
	ID string `json:"id"`
	// ChatID identifies the source chat; together with the message ID it
	// forms the deterministic lead identity.
	ChatID       string `json:"chatId"`
	ChannelTitle string `json:"channelTitle"`
	Author       string `json:"author"`
	Text         string `json:"text"`
	// Timestamp is epoch milliseconds.
	Timestamp int64 `json:"timestamp"`
}

// Time returns the message timestamp as time.Time.
func (m RawMessage) Time() time.Time {
	return time.UnixMilli(m.Timestamp)
}

// LeadCriteria is the operator-authored classification instruction set.
// The template must contain the message batch placeholder (see scan/prompt).
type LeadCriteria struct {
	Template string `json:"template"`
	// MinConfidence is the inclusive relevance floor applied to positive
	// verdicts. Zero accepts all positive verdicts.
	MinConfidence int `json:"minConfidence"`
}

// LeadInfo carries optional free-text details the model extracted about a
// lead. None of the fields are strongly typed downstream.
type LeadInfo struct {
	Service string `json:"service,omitempty"`
	Budget  string `json:"budget,omitempty"`
	Contact string `json:"contact,omitempty"`
	Urgency string `json:"urgency,omitempty"`
}

// Verdict is one LLM judgment about one message, before filtering and dedup.
type Verdict struct {
	// MessageID must match a RawMessage.ID in the evaluated batch.
	MessageID string `json:"messageId"`
	IsLead    bool   `json:"isLead"`
	// Confidence is clamped into [0,100] regardless of what the model
	// emitted.
	Confidence int       `json:"confidence"`
	Reason     string    `json:"reason"`
	LeadInfo   *LeadInfo `json:"leadInfo,omitempty"`
}

// Lead is an accepted, deduplicated classification result. A RawMessage
// yields at most one Lead; the ID is derived deterministically from the
// source message so reprocessing yields a comparable identity.
type Lead struct {
	ID      string `json:"id"`
	Channel string `json:"channel"`
	Author  string `json:"author"`
	// Message is the original text, possibly truncated for storage.
	Message string `json:"message"`
	// Timestamp is epoch milliseconds of the source message.
	Timestamp   int64      `json:"timestamp"`
	Reason      string     `json:"reason"`
	Confidence  int        `json:"confidence"`
	LeadInfo    *LeadInfo  `json:"leadInfo,omitempty"`
	Contacted   bool       `json:"contacted"`
	ContactDate *time.Time `json:"contactDate,omitempty"`
}

// ScanCredentials travel with a scan request instead of being read from
// ambient environment lookups. The row-store credentials are application
// configuration; only the per-run LLM credentials rotate here.
type ScanCredentials struct {
	APIKey string `json:"apiKey"`
	Model  string `json:"model"`
}

// ScanState is the orchestrator state machine position of a run.
type ScanState string

const (
	ScanStateIdle      ScanState = "idle"
	ScanStateRunning   ScanState = "running"
	ScanStateCompleted ScanState = "completed"
	ScanStateFailed    ScanState = "failed"
)

// ScanError is one recorded failure within a run. Errors retain the batch
// index, kind, and timestamp; they are the system's only audit trail.
type ScanError struct {
	Batch     int       `json:"batch"`
	Kind      string    `json:"kind"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// ScanRun is one invocation of the pipeline orchestrator. Partial progress
// remains inspectable after errors; a run never vanishes mid-way.
type ScanRun struct {
	ID                string      `json:"id"`
	State             ScanState   `json:"state"`
	StartedAt         time.Time   `json:"startedAt"`
	FinishedAt        time.Time   `json:"finishedAt,omitempty"`
	TotalMessages     int         `json:"totalMessages"`
	ProcessedMessages int         `json:"processedMessages"`
	FoundLeads        int         `json:"foundLeads"`
	Errors            []ScanError `json:"errors"`
	Completed         bool        `json:"completed"`

	// DegradedDedup marks a run that proceeded without the persisted-lead
	// index, so cross-run duplicates were possible.
	DegradedDedup bool `json:"degradedDedup,omitempty"`
}
