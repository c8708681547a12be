// Package audit records delegated launches as JSON lines.
package audit

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"
)

// Entry is one launch record.
type Entry struct {
	Timestamp    string  `json:"timestamp"`
	Command      string  `json:"command"`
	Distribution string  `json:"distribution,omitempty"`
	Source       string  `json:"source,omitempty"` // "config" or "registry"
	Cwd          string  `json:"cwd,omitempty"`
	ExitCode     int     `json:"exit_code"`
	Duration     float64 `json:"duration_ms,omitempty"`
	Error        string  `json:"error,omitempty"`
}

// Logger appends entries to a file.
type Logger struct {
	writer io.WriteCloser
}

// Open opens the audit file at path for appending. An empty path returns
// a Logger that discards entries.
func Open(path string) (*Logger, error) {
	if path == "" {
		return &Logger{writer: nopWriteCloser{}}, nil
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create audit log directory: %w", err)
		}
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("open audit log: %w", err)
	}
	return &Logger{writer: file}, nil
}

// Log writes entry as one line, filling in the timestamp if unset.
func (l *Logger) Log(entry Entry) error {
	if entry.Timestamp == "" {
		entry.Timestamp = time.Now().UTC().Format(time.RFC3339Nano)
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal audit entry: %w", err)
	}

	data = append(data, '\n')
	if _, err := l.writer.Write(data); err != nil {
		return fmt.Errorf("write audit entry: %w", err)
	}
	return nil
}

// Close closes the underlying audit file.
func (l *Logger) Close() error {
	return l.writer.Close()
}

// Read returns every entry in the file at path. A missing file holds no
// entries; malformed lines are skipped.
func Read(path string) ([]Entry, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("open audit log: %w", err)
	}
	defer file.Close()

	var entries []Entry
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		var entry Entry
		if err := json.Unmarshal(scanner.Bytes(), &entry); err != nil {
			continue
		}
		entries = append(entries, entry)
	}
	if err := scanner.Err(); err != nil {
		return entries, fmt.Errorf("read audit log: %w", err)
	}
	return entries, nil
}

type nopWriteCloser struct{}

func (nopWriteCloser) Write(p []byte) (int, error) { return len(p), nil }
func (nopWriteCloser) Close() error                { return nil }
