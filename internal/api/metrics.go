package api

import (
	"context"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/HankJediAssistant/hank-board/internal/domain"
)

const (
	tracerName          = "github.com/HankJediAssistant/hank-board/internal/api"
	requestSpanName     = "board.request"
	requestEventName    = "board.request.completed"
	requestEventDomain  = "hank-board"
	observabilityMsg    = "observability.event"
	attributePrefix     = "board."
	severityInfoNumber  = 9
	severityWarnNumber  = 13
	severityErrorNumber = 17
)

// requestMetrics collects timings for one board request and emits them as a
// log entry and a span when the request finishes.
type requestMetrics struct {
	logger     *log.Logger
	route      string
	method     string
	start      time.Time
	span       trace.Span
	stages     map[string]time.Duration
	columns    int
	tasks      int
	errorStage string
}

func newRequestMetrics(ctx context.Context, logger *log.Logger, route, method string) (*requestMetrics, context.Context) {
	ctx, span := otel.GetTracerProvider().Tracer(tracerName).Start(ctx, requestSpanName,
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(
			attribute.String("http.route", route),
			attribute.String("http.method", method),
		),
	)
	return &requestMetrics{
		logger: logger,
		route:  route,
		method: method,
		start:  time.Now(),
		span:   span,
		stages: make(map[string]time.Duration),
	}, ctx
}

// Observe records how long a named stage (read, write, ...) took.
func (m *requestMetrics) Observe(stage string, d time.Duration) {
	if d <= 0 {
		return
	}
	m.stages[stage] = d
}

// SetColumns records the size of the board handled by the request.
func (m *requestMetrics) SetColumns(columns []domain.Column) {
	m.columns = len(columns)
	m.tasks = 0
	for _, col := range columns {
		m.tasks += len(col.Tasks)
	}
}

func (m *requestMetrics) SetErrorStage(stage string) {
	if stage == "" {
		return
	}
	m.errorStage = stage
}

func (m *requestMetrics) attributes(status int, err error) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String("http.route", m.route),
		attribute.String("http.method", m.method),
		attribute.Int("http.status_code", status),
		attribute.Float64(attributePrefix+"total_ms", durationToMillis(time.Since(m.start))),
		attribute.Int(attributePrefix+"columns", m.columns),
		attribute.Int(attributePrefix+"tasks", m.tasks),
	}
	for stage, d := range m.stages {
		attrs = append(attrs, attribute.Float64(attributePrefix+stage+"_ms", durationToMillis(d)))
	}
	if m.errorStage != "" {
		attrs = append(attrs, attribute.String(attributePrefix+"error_stage", m.errorStage))
	}
	if err != nil {
		attrs = append(attrs, attribute.String("error.message", err.Error()))
	}
	return attrs
}

// Log ends the span and writes the observability entry.
func (m *requestMetrics) Log(status int, err error) {
	if m == nil {
		return
	}
	if status == 0 {
		status = http.StatusOK
	}
	severityText, severityNumber := severityForStatus(status, err)
	attrs := m.attributes(status, err)

	m.span.SetAttributes(attrs...)
	eventAttrs := append([]attribute.KeyValue{
		attribute.String("event.name", requestEventName),
		attribute.String("event.domain", requestEventDomain),
		attribute.String("severity_text", severityText),
		attribute.Int("severity_number", severityNumber),
	}, attrs...)
	m.span.AddEvent(observabilityMsg, trace.WithAttributes(eventAttrs...))
	switch {
	case err != nil:
		m.span.RecordError(err)
		m.span.SetStatus(codes.Error, err.Error())
	case status >= http.StatusInternalServerError:
		m.span.SetStatus(codes.Error, http.StatusText(status))
	default:
		m.span.SetStatus(codes.Ok, "")
	}
	spanCtx := m.span.SpanContext()
	m.span.End()

	if m.logger == nil {
		return
	}
	fieldAttrs := make(map[string]any, len(attrs))
	for _, kv := range attrs {
		fieldAttrs[string(kv.Key)] = kv.Value.AsInterface()
	}
	fields := log.Fields{
		"event.name":      requestEventName,
		"event.domain":    requestEventDomain,
		"severity_text":   severityText,
		"severity_number": severityNumber,
		"attributes":      fieldAttrs,
	}
	if spanCtx.HasTraceID() {
		fields["trace_id"] = spanCtx.TraceID().String()
		fields["span_id"] = spanCtx.SpanID().String()
	}

	entry := m.logger.WithFields(fields)
	switch severityNumber {
	case severityErrorNumber:
		entry.Error(observabilityMsg)
	case severityWarnNumber:
		entry.Warn(observabilityMsg)
	default:
		entry.Info(observabilityMsg)
	}
}

func severityForStatus(status int, err error) (string, int) {
	switch {
	case err != nil || status >= http.StatusInternalServerError:
		return "ERROR", severityErrorNumber
	case status >= http.StatusBadRequest:
		return "WARN", severityWarnNumber
	default:
		return "INFO", severityInfoNumber
	}
}

func durationToMillis(d time.Duration) float64 {
	if d <= 0 {
		return 0
	}
	return float64(d) / float64(time.Millisecond)
}
