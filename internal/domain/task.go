package domain

import (
	"encoding/json"
	"strings"
)

// Priority is the urgency marker carried inline as !low, !medium or !high.
type Priority string

const (
	PriorityNone   Priority = "none"
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// ParsePriority maps a case-insensitive name to a Priority. Anything it does
// not recognize becomes PriorityNone.
func ParsePriority(s string) Priority {
	switch p := Priority(strings.ToLower(strings.TrimSpace(s))); p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return p
	default:
		return PriorityNone
	}
}

func (p *Priority) UnmarshalJSON(data []byte) error {
	var s string
	if string(data) == "null" {
		*p = PriorityNone
		return nil
	}
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*p = ParsePriority(s)
	return nil
}

// Task is a single checklist item. ID is regenerated on every parse and is
// only unique within that parse.
type Task struct {
	ID        string   `json:"id"`
	Done      bool     `json:"done"`
	Text      string   `json:"text"`
	Assignees []string `json:"assignees"`
	Priority  Priority `json:"priority"`
}

// Column is one "## " section of the board document.
type Column struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Tasks       []Task `json:"tasks"`
	Placeholder string `json:"placeholder,omitempty"`
}

// Job is a scheduled job record from the external cron store. Only enabled
// and state.nextRunAtMs are interpreted; everything else passes through.
type Job map[string]any

func (j Job) Enabled() bool {
	v, _ := j["enabled"].(bool)
	return v
}

// NextRunAtMs returns state.nextRunAtMs, or 0 when it is absent.
func (j Job) NextRunAtMs() float64 {
	state, ok := j["state"].(map[string]any)
	if !ok {
		return 0
	}
	switch v := state["nextRunAtMs"].(type) {
	case float64:
		return v
	case int64:
		return float64(v)
	case int:
		return float64(v)
	case json.Number:
		f, _ := v.Float64()
		return f
	}
	return 0
}
