package detection

import (
	"fmt"
	"sync"
	"time"
)

var fixedNow = time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return fixedNow }

type captureLogger struct {
	mu     sync.Mutex
	errors []string
	debugs []string
}

func (c *captureLogger) Debug(format string, args ...interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.debugs = append(c.debugs, fmt.Sprintf(format, args...))
}

func (c *captureLogger) Info(format string, args ...interface{}) {}

func (c *captureLogger) Warn(format string, args ...interface{}) {}

func (c *captureLogger) Error(format string, args ...interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.errors = append(c.errors, fmt.Sprintf(format, args...))
}
