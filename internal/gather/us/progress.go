package us

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// runLedger records, per gatherer, the last trading day that was fully
// gathered and the tickers that came back empty while gathering a day.
// Empty entries are tagged with their day, so a new day starts clean.
type runLedger struct {
	mu    sync.Mutex
	dir   string
	name  string
	day   string
	empty map[string]struct{}
}

func openLedger(dir, name, day string) (*runLedger, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating ledger dir: %w", err)
	}
	l := &runLedger{dir: dir, name: name, day: day, empty: make(map[string]struct{})}

	f, err := os.Open(l.emptyPath())
	if os.IsNotExist(err) {
		return l, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		d, sym, ok := strings.Cut(strings.TrimSpace(sc.Text()), " ")
		if ok && d == day && sym != "" {
			l.empty[sym] = struct{}{}
		}
	}
	return l, sc.Err()
}

func (l *runLedger) completedPath() string { return filepath.Join(l.dir, "."+l.name+"-completed") }
func (l *runLedger) emptyPath() string     { return filepath.Join(l.dir, "."+l.name+"-empty") }

// LastCompleted returns the last fully gathered day, or "".
func (l *runLedger) LastCompleted() string {
	data, err := os.ReadFile(l.completedPath())
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

// Completed reports whether the ledger's day was already fully gathered.
func (l *runLedger) Completed() bool {
	return l.LastCompleted() == l.day
}

// MarkCompleted records the ledger's day as fully gathered and drops empty
// entries from earlier days.
func (l *runLedger) MarkCompleted() error {
	if err := os.WriteFile(l.completedPath(), []byte(l.day), 0o644); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	var sb strings.Builder
	for sym := range l.empty {
		sb.WriteString(l.day + " " + sym + "\n")
	}
	return os.WriteFile(l.emptyPath(), []byte(sb.String()), 0o644)
}

// Empty reports whether symbol returned no data for the ledger's day.
func (l *runLedger) Empty(symbol string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.empty[symbol]
	return ok
}

// MarkEmpty appends symbols to the empty list for the ledger's day.
func (l *runLedger) MarkEmpty(symbols []string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := os.OpenFile(l.emptyPath(), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("opening empty list: %w", err)
	}
	w := bufio.NewWriter(f)
	for _, sym := range symbols {
		if _, ok := l.empty[sym]; ok {
			continue
		}
		l.empty[sym] = struct{}{}
		w.WriteString(l.day + " " + sym + "\n")
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
