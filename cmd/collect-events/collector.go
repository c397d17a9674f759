package main

import (
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/bytedance/sonic"
)

const (
	requestEventName   = "board.request.completed"
	requestEventDomain = "hank-board"

	attrRoute      = "http.route"
	attrMethod     = "http.method"
	attrStatusCode = "http.status_code"
	attrPrefix     = "board."
	attrMsSuffix   = "_ms"
	attrColumns    = "board.columns"
	attrTasks      = "board.tasks"
	attrErrorStage = "board.error_stage"
)

// logRecord is the subset of a JSON log line the collector reads.
type logRecord struct {
	EventName    string         `json:"event.name"`
	EventDomain  string         `json:"event.domain"`
	SeverityText string         `json:"severity_text"`
	Attributes   map[string]any `json:"attributes"`
}

type numericStats struct {
	Count int
	Sum   float64
	Min   float64
	Max   float64
}

type numericSummary struct {
	Count int     `json:"count"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Avg   float64 `json:"avg"`
}

type summaryOutput struct {
	EventName      string                    `json:"event_name"`
	EventDomain    string                    `json:"event_domain"`
	TotalEvents    int                       `json:"total_events"`
	SeverityCounts map[string]int            `json:"severity_counts"`
	StatusCounts   map[string]int            `json:"status_counts"`
	RouteCounts    map[string]int            `json:"route_counts"`
	DurationMs     map[string]numericSummary `json:"duration_ms"`
	Columns        numericSummary            `json:"columns"`
	Tasks          numericSummary            `json:"tasks"`
	ErrorStages    map[string]int            `json:"error_stages,omitempty"`
	ErrorEvents    int                       `json:"error_events"`
	WarnEvents     int                       `json:"warn_events"`
	SkippedLines   int                       `json:"skipped_lines"`
}

// collector aggregates request observability events read from server logs.
type collector struct {
	eventName   string
	eventDomain string

	count     int
	severity  map[string]int
	status    map[int]int
	routes    map[string]int
	durations map[string]*numericStats
	columns   *numericStats
	tasks     *numericStats
	stages    map[string]int
	skipped   int
}

func newCollector(eventName, eventDomain string) *collector {
	return &collector{
		eventName:   eventName,
		eventDomain: eventDomain,
		severity:    make(map[string]int),
		status:      make(map[int]int),
		routes:      make(map[string]int),
		durations:   make(map[string]*numericStats),
		columns:     newNumericStats(),
		tasks:       newNumericStats(),
		stages:      make(map[string]int),
	}
}

// ingest parses one log line. Lines prefixed by a container name
// ("board | {...}") are accepted.
func (c *collector) ingest(line string) {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return
	}
	if pipe := strings.Index(trimmed, "|"); pipe >= 0 && !strings.HasPrefix(trimmed, "{") {
		trimmed = strings.TrimSpace(trimmed[pipe+1:])
	}

	var rec logRecord
	if err := sonic.ConfigStd.UnmarshalFromString(trimmed, &rec); err != nil {
		c.skipped++
		return
	}
	if rec.EventName != c.eventName {
		return
	}
	if c.eventDomain != "" && rec.EventDomain != c.eventDomain {
		return
	}
	c.add(rec)
}

func (c *collector) add(rec logRecord) {
	c.count++

	severity := strings.ToUpper(strings.TrimSpace(rec.SeverityText))
	if severity == "" {
		severity = "UNSPECIFIED"
	}
	c.severity[severity]++

	attrs := rec.Attributes
	if attrs == nil {
		return
	}
	if status, ok := asFloat(attrs[attrStatusCode]); ok {
		c.status[int(status)]++
	}
	route, _ := attrs[attrRoute].(string)
	method, _ := attrs[attrMethod].(string)
	if route != "" {
		c.routes[strings.TrimSpace(method+" "+route)]++
	}
	if v, ok := asFloat(attrs[attrColumns]); ok {
		c.columns.add(v)
	}
	if v, ok := asFloat(attrs[attrTasks]); ok {
		c.tasks.add(v)
	}
	if stage, ok := attrs[attrErrorStage].(string); ok && stage != "" {
		c.stages[stage]++
	}
	for key, raw := range attrs {
		if !strings.HasPrefix(key, attrPrefix) || !strings.HasSuffix(key, attrMsSuffix) {
			continue
		}
		v, ok := asFloat(raw)
		if !ok {
			continue
		}
		stage := strings.TrimSuffix(strings.TrimPrefix(key, attrPrefix), attrMsSuffix)
		stat, exists := c.durations[stage]
		if !exists {
			stat = newNumericStats()
			c.durations[stage] = stat
		}
		stat.add(v)
	}
}

func newNumericStats() *numericStats {
	return &numericStats{Min: math.MaxFloat64}
}

func (n *numericStats) add(value float64) {
	n.Count++
	n.Sum += value
	n.Min = min(n.Min, value)
	n.Max = max(n.Max, value)
}

func (n *numericStats) summary() numericSummary {
	if n == nil || n.Count == 0 {
		return numericSummary{}
	}
	return numericSummary{
		Count: n.Count,
		Min:   n.Min,
		Max:   n.Max,
		Avg:   n.Sum / float64(n.Count),
	}
}

func (c *collector) summary() summaryOutput {
	durations := make(map[string]numericSummary, len(c.durations))
	for key, stat := range c.durations {
		durations[key] = stat.summary()
	}
	status := make(map[string]int, len(c.status))
	for code, n := range c.status {
		status[strconv.Itoa(code)] = n
	}
	var stages map[string]int
	if len(c.stages) > 0 {
		stages = c.stages
	}
	return summaryOutput{
		EventName:      c.eventName,
		EventDomain:    c.eventDomain,
		TotalEvents:    c.count,
		SeverityCounts: c.severity,
		StatusCounts:   status,
		RouteCounts:    c.routes,
		DurationMs:     durations,
		Columns:        c.columns.summary(),
		Tasks:          c.tasks.summary(),
		ErrorStages:    stages,
		ErrorEvents:    c.severity["ERROR"],
		WarnEvents:     c.severity["WARN"] + c.severity["WARNING"],
		SkippedLines:   c.skipped,
	}
}

// ShortString is a one-line digest for CI output.
func (s summaryOutput) ShortString() string {
	total := s.DurationMs["total"]
	parts := []string{
		"event=" + s.EventName,
		"total=" + strconv.Itoa(s.TotalEvents),
		"warn=" + strconv.Itoa(s.WarnEvents),
		"error=" + strconv.Itoa(s.ErrorEvents),
		"avg_total_ms=" + formatFloat(total.Avg),
		"max_total_ms=" + formatFloat(total.Max),
	}
	routes := make([]string, 0, len(s.RouteCounts))
	for route := range s.RouteCounts {
		routes = append(routes, route)
	}
	sort.Strings(routes)
	for _, route := range routes {
		parts = append(parts, strconv.Quote(route)+"="+strconv.Itoa(s.RouteCounts[route]))
	}
	return strings.Join(parts, " ")
}

func formatFloat(v float64) string {
	if v == 0 {
		return "0"
	}
	return strconv.FormatFloat(v, 'f', 2, 64)
}

func asFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case string:
		f, err := strconv.ParseFloat(v, 64)
		return f, err == nil
	default:
		return 0, false
	}
}
