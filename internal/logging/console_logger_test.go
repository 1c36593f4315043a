package logging

import (
	"bytes"
	"fmt"
	"strings"
	"sync"
	"testing"
)

func TestConsoleLogger_Verbose_WhenEnabled(t *testing.T) {
	var buf bytes.Buffer
	logger := NewConsoleLoggerTo(&buf, true)

	logger.Verbose("test message: %s", "value")

	expected := "[VERBOSE] test message: value\n"
	if got := buf.String(); got != expected {
		t.Errorf("Expected %q, got %q", expected, got)
	}
}

func TestConsoleLogger_Verbose_WhenDisabled(t *testing.T) {
	var buf bytes.Buffer
	logger := NewConsoleLoggerTo(&buf, false)

	logger.Verbose("test message: %s", "value")

	if buf.Len() != 0 {
		t.Errorf("Expected no output in non-verbose mode, got %q", buf.String())
	}
}

func TestConsoleLogger_Info(t *testing.T) {
	var buf bytes.Buffer
	logger := NewConsoleLoggerTo(&buf, false)

	logger.Info("deployment %s complete", "demo")

	expected := "deployment demo complete\n"
	if got := buf.String(); got != expected {
		t.Errorf("Expected %q, got %q", expected, got)
	}
}

func TestConsoleLogger_Error(t *testing.T) {
	var buf bytes.Buffer
	logger := NewConsoleLoggerTo(&buf, false)

	logger.Error("rollback failed: %v", fmt.Errorf("broken pipe"))

	expected := "[ERROR] rollback failed: broken pipe\n"
	if got := buf.String(); got != expected {
		t.Errorf("Expected %q, got %q", expected, got)
	}
}

func TestConsoleLogger_NoArgs(t *testing.T) {
	var buf bytes.Buffer
	logger := NewConsoleLoggerTo(&buf, false)

	// A message containing percent signs must not be re-interpreted
	// when no args are given.
	logger.Info("progress: 100%% done")

	expected := "progress: 100%% done\n"
	if got := buf.String(); got != expected {
		t.Errorf("Expected %q, got %q", expected, got)
	}
}

func TestConsoleLogger_ConcurrentWrites(t *testing.T) {
	var buf bytes.Buffer
	logger := NewConsoleLoggerTo(&buf, true)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			logger.Info("line %d", n)
		}(i)
	}
	wg.Wait()

	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	if len(lines) != 20 {
		t.Errorf("Expected 20 intact lines, got %d: %q", len(lines), buf.String())
	}
}

func TestNullLogger_DiscardsEverything(t *testing.T) {
	logger := NewNullLogger()

	// Must not panic or produce output.
	logger.Verbose("v %d", 1)
	logger.Info("i %d", 2)
	logger.Error("e %d", 3)
}
