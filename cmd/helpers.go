package cmd

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

// ANSI colors for console output
const (
	ColorReset  = "\033[0m"
	ColorBold   = "\033[1m"
	ColorRed    = "\033[31m"
	ColorGreen  = "\033[32m"
	ColorYellow = "\033[33m"
	ColorBlue   = "\033[34m"
	ColorCyan   = "\033[36m"
)

// PerformanceTimer records named phases of a command
type PerformanceTimer struct {
	mu      sync.Mutex
	start   time.Time
	started map[string]time.Time
	elapsed map[string]time.Duration
}

func NewPerformanceTimer() *PerformanceTimer {
	return &PerformanceTimer{
		start:   time.Now(),
		started: make(map[string]time.Time),
		elapsed: make(map[string]time.Duration),
	}
}

func (t *PerformanceTimer) StartEvent(name string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.started[name] = time.Now()
}

// EndEvent closes name; ending an event that never started is a no-op
func (t *PerformanceTimer) EndEvent(name string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if began, ok := t.started[name]; ok {
		t.elapsed[name] = time.Since(began)
		delete(t.started, name)
	}
}

// GetDuration returns the elapsed time of name, running or finished
func (t *PerformanceTimer) GetDuration(name string) time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	if began, ok := t.started[name]; ok {
		return time.Since(began)
	}
	return t.elapsed[name]
}

func (t *PerformanceTimer) GetTotalDuration() time.Duration {
	return time.Since(t.start)
}

func printHeader(title, detail string) {
	fmt.Printf("%s%s%s%s: %s%s%s\n", ColorBold, ColorBlue, title, ColorReset, ColorCyan, detail, ColorReset)
	fmt.Printf("%s%s%s\n\n", ColorBlue, strings.Repeat("═", 80), ColorReset)
}

func printSectionHeader(title string) {
	fmt.Printf("\n%s%s%s%s\n", ColorBold, ColorBlue, title, ColorReset)
}

func printSuccess(format string, args ...any) {
	fmt.Printf("   %s✓%s %s\n", ColorGreen, ColorReset, fmt.Sprintf(format, args...))
}

func printWarning(format string, args ...any) {
	fmt.Printf("   %s⚠%s %s\n", ColorYellow, ColorReset, fmt.Sprintf(format, args...))
}

func printInfo(format string, args ...any) {
	fmt.Printf("   %s•%s %s\n", ColorCyan, ColorReset, fmt.Sprintf(format, args...))
}

func printSection(title string) {
	fmt.Printf("\n%s\n", title)
	fmt.Println(strings.Repeat("-", len(title)))
}

func printKeyValue(key, value string) {
	if value == "" {
		fmt.Printf("%-35s\n", key)
	} else {
		fmt.Printf("%-35s %s\n", key+":", value)
	}
}
