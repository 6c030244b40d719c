package output

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

// ConsoleOutput prints status lines for the person at the keyboard
type ConsoleOutput struct {
	mu            sync.Mutex
	writer        io.Writer
	errWriter     io.Writer
	showTimestamp bool
}

// ConsoleConfig configures console output behavior
type ConsoleConfig struct {
	// ShowTimestamp prefixes each line with a timestamp
	ShowTimestamp bool

	// Writer is the output destination (default: os.Stdout)
	Writer io.Writer

	// ErrWriter receives errors (default: os.Stderr)
	ErrWriter io.Writer
}

// NewConsoleOutput creates a new console output handler
func NewConsoleOutput(config ConsoleConfig) *ConsoleOutput {
	writer := config.Writer
	if writer == nil {
		writer = os.Stdout
	}
	errWriter := config.ErrWriter
	if errWriter == nil {
		errWriter = os.Stderr
	}

	return &ConsoleOutput{
		writer:        writer,
		errWriter:     errWriter,
		showTimestamp: config.ShowTimestamp,
	}
}

// DefaultConsoleOutput creates a console output with default settings
func DefaultConsoleOutput() *ConsoleOutput {
	return NewConsoleOutput(ConsoleConfig{ShowTimestamp: true})
}

// Write writes a line, prefixed with the time if enabled
func (c *ConsoleOutput) Write(text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.showTimestamp {
		_, err := fmt.Fprintf(c.writer, "[%s] %s\n", time.Now().Format("15:04:05"), text)
		return err
	}
	_, err := fmt.Fprintln(c.writer, text)
	return err
}

// Exchange prints what was heard and what the assistant answered
func (c *ConsoleOutput) Exchange(heard, reply string) error {
	if heard == "" {
		heard = "(silence)"
	}
	return c.Write(fmt.Sprintf("\"%s\" -> %s", heard, reply))
}

// Info writes an informational message
func (c *ConsoleOutput) Info(msg string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	fmt.Fprintf(c.writer, "[INFO] %s\n", msg)
}

// Error writes an error message
func (c *ConsoleOutput) Error(msg string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	fmt.Fprintf(c.errWriter, "[ERROR] %s\n", msg)
}
