package logger

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// LogEntry is a single captured log line, shaped for the dashboard log panel.
type LogEntry struct {
	Timestamp time.Time              `json:"timestamp"`
	Level     string                 `json:"level"`
	Message   string                 `json:"message"`
	Fields    map[string]interface{} `json:"fields,omitempty"`
}

const defaultBufferSize = 1000

// LogBuffer keeps the most recent log entries in a fixed-size ring and
// streams evicted entries to a spill file. It implements io.Writer so a
// zap JSON core can log straight into it while the dashboard owns the
// terminal.
type LogBuffer struct {
	mu      sync.Mutex
	ring    []LogEntry
	size    int
	next    int
	wrapped bool
	spill   *SafeFileWriter
	logger  *zap.Logger

	// Stats
	totalEntries   uint64
	spilledEntries uint64
}

// NewLogBuffer creates a ring buffer of maxSize entries backed by a spill
// file. The logger is only used to report spill failures; it must not be a
// logger that writes back into this buffer.
func NewLogBuffer(maxSize int, spillFilePath string, logger *zap.Logger) (*LogBuffer, error) {
	if maxSize <= 0 {
		maxSize = defaultBufferSize
	}

	spill, err := NewSafeFileWriter(spillFilePath, 5*time.Second, logger)
	if err != nil {
		return nil, err
	}

	return &LogBuffer{
		ring:   make([]LogEntry, maxSize),
		size:   maxSize,
		spill:  spill,
		logger: logger,
	}, nil
}

// Add records one entry, evicting the oldest to the spill file once the
// ring is full.
func (lb *LogBuffer) Add(level, message string, fields map[string]interface{}) error {
	lb.mu.Lock()
	defer lb.mu.Unlock()

	if lb.wrapped {
		if err := lb.spillEntry(lb.ring[lb.next]); err != nil {
			lb.logger.Error("Failed to spill log entry", zap.Error(err))
			return err
		}
		lb.spilledEntries++
	}

	lb.ring[lb.next] = LogEntry{
		Timestamp: time.Now(),
		Level:     level,
		Message:   message,
		Fields:    fields,
	}
	lb.next = (lb.next + 1) % lb.size
	if lb.next == 0 {
		lb.wrapped = true
	}
	lb.totalEntries++

	return nil
}

// Write satisfies io.Writer. zap hands over one JSON-encoded entry per call;
// anything that does not parse is kept verbatim as an info line.
func (lb *LogBuffer) Write(p []byte) (int, error) {
	var raw map[string]interface{}
	if err := json.Unmarshal(p, &raw); err != nil {
		return len(p), lb.Add("info", strings.TrimSpace(string(p)), nil)
	}

	level, _ := raw["level"].(string)
	if level == "" {
		level = "info"
	}
	msg, _ := raw["msg"].(string)
	delete(raw, "level")
	delete(raw, "msg")
	delete(raw, "time")

	var fields map[string]interface{}
	if len(raw) > 0 {
		fields = raw
	}

	return len(p), lb.Add(level, msg, fields)
}

func (lb *LogBuffer) spillEntry(entry LogEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal log entry: %w", err)
	}
	return lb.spill.WriteLine(string(data))
}

// GetRecentLogs returns up to limit of the newest entries, oldest first.
// A limit of zero or less returns everything still in the ring.
func (lb *LogBuffer) GetRecentLogs(limit int) []LogEntry {
	lb.mu.Lock()
	defer lb.mu.Unlock()

	count := lb.next
	if lb.wrapped {
		count = lb.size
	}
	if limit > 0 && limit < count {
		count = limit
	}

	logs := make([]LogEntry, 0, count)
	start := (lb.next - count + lb.size) % lb.size
	for i := 0; i < count; i++ {
		logs = append(logs, lb.ring[(start+i)%lb.size])
	}
	return logs
}

// Flush forces buffered spill data to disk.
func (lb *LogBuffer) Flush() error {
	return lb.spill.Flush()
}

// Close drains the ring into the spill file and closes it.
func (lb *LogBuffer) Close() error {
	lb.mu.Lock()
	defer lb.mu.Unlock()

	count := lb.next
	if lb.wrapped {
		count = lb.size
	}
	start := (lb.next - count + lb.size) % lb.size
	for i := 0; i < count; i++ {
		if err := lb.spillEntry(lb.ring[(start+i)%lb.size]); err != nil {
			lb.logger.Error("Failed to spill entry during close", zap.Error(err))
		}
	}

	return lb.spill.Close()
}

// GetStats returns how many entries were recorded and how many were evicted
// to the spill file.
func (lb *LogBuffer) GetStats() (total, spilled uint64) {
	lb.mu.Lock()
	defer lb.mu.Unlock()
	return lb.totalEntries, lb.spilledEntries
}
