package output

import (
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"time"
)

// Record is one question and answer exchange
type Record struct {
	CycleID   string    `json:"cycle_id"`
	Heard     string    `json:"heard"`
	Intent    string    `json:"intent"`
	Reply     string    `json:"reply"`
	Error     string    `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Event represents a system event
type Event struct {
	Type      string    `json:"type"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// Formatter is the interface for transcript formatters
type Formatter interface {
	// WriteRecord writes a completed exchange
	WriteRecord(record Record) error

	// WriteEvent writes a system event (e.g. job started)
	WriteEvent(eventType, message string) error

	// Close closes the formatter and releases resources
	Close() error
}

// NewFormatter returns a formatter by name ("json" or "text")
func NewFormatter(format string, w io.Writer) (Formatter, error) {
	switch format {
	case "json", "":
		return NewJSONFormatter(w), nil
	case "text":
		return NewPlainTextFormatter(w), nil
	default:
		return nil, fmt.Errorf("unknown output format: %s", format)
	}
}

// JSONFormatter writes one JSON object per line
type JSONFormatter struct {
	mu      sync.Mutex
	writer  io.Writer
	encoder *json.Encoder
}

// NewJSONFormatter creates a new JSON lines formatter
func NewJSONFormatter(writer io.Writer) *JSONFormatter {
	return &JSONFormatter{
		writer:  writer,
		encoder: json.NewEncoder(writer),
	}
}

// WriteRecord writes an exchange
func (j *JSONFormatter) WriteRecord(record Record) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.encoder.Encode(record)
}

// WriteEvent writes a system event
func (j *JSONFormatter) WriteEvent(eventType, message string) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.encoder.Encode(Event{
		Type:      eventType,
		Message:   message,
		Timestamp: time.Now(),
	})
}

// Close closes the underlying writer if it is closable
func (j *JSONFormatter) Close() error {
	return closeWriter(j.writer)
}

// PlainTextFormatter writes human readable lines
type PlainTextFormatter struct {
	mu     sync.Mutex
	writer io.Writer
}

// NewPlainTextFormatter creates a new plain text formatter
func NewPlainTextFormatter(writer io.Writer) *PlainTextFormatter {
	return &PlainTextFormatter{writer: writer}
}

// WriteRecord writes an exchange as "[time] heard -> reply"
func (p *PlainTextFormatter) WriteRecord(record Record) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	heard := record.Heard
	if heard == "" {
		heard = "(silence)"
	}
	_, err := fmt.Fprintf(p.writer, "[%s] %s -> %s\n",
		record.Timestamp.Format("15:04:05"), heard, record.Reply)
	return err
}

// WriteEvent writes a system event
func (p *PlainTextFormatter) WriteEvent(eventType, message string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	_, err := fmt.Fprintf(p.writer, "[%s] [%s] %s\n", time.Now().Format("15:04:05"), eventType, message)
	return err
}

// Close closes the underlying writer if it is closable
func (p *PlainTextFormatter) Close() error {
	return closeWriter(p.writer)
}

func closeWriter(w io.Writer) error {
	if c, ok := w.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
