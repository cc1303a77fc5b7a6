// Package checkpoint tracks which document units have already been
// processed across batch runs. Two append-only flat files hold completed
// and permanently failed identifiers, one per line.
package checkpoint

import (
	"bufio"
	"os"
	"strings"

	"github.com/rotisserie/eris"
)

// Log is the durable completed/failed identifier record. Processing is
// single-threaded, so no locking discipline is needed; appends are
// flushed per call so a crash loses at most the unit in flight.
type Log struct {
	completedPath string
	failedPath    string

	completed map[string]struct{}
	failed    map[string]struct{}
}

// Load reads both checkpoint files. Missing files are treated as empty
// sets, so the first run starts with nothing recorded.
func Load(completedPath, failedPath string) (*Log, error) {
	completed, err := readSet(completedPath)
	if err != nil {
		return nil, eris.Wrap(err, "checkpoint: load completed set")
	}
	failed, err := readSet(failedPath)
	if err != nil {
		return nil, eris.Wrap(err, "checkpoint: load failed set")
	}
	return &Log{
		completedPath: completedPath,
		failedPath:    failedPath,
		completed:     completed,
		failed:        failed,
	}, nil
}

// Seen reports whether the identifier is in either set; such units are
// never reprocessed.
func (l *Log) Seen(id string) bool {
	if _, ok := l.completed[id]; ok {
		return true
	}
	_, ok := l.failed[id]
	return ok
}

// CompletedCount returns the size of the completed set.
func (l *Log) CompletedCount() int { return len(l.completed) }

// FailedCount returns the size of the failed set.
func (l *Log) FailedCount() int { return len(l.failed) }

// MarkCompleted appends the identifier to the completed file.
func (l *Log) MarkCompleted(id string) error {
	if err := appendLine(l.completedPath, id); err != nil {
		return eris.Wrap(err, "checkpoint: append completed")
	}
	l.completed[id] = struct{}{}
	return nil
}

// MarkFailed appends the identifier to the failed file.
func (l *Log) MarkFailed(id string) error {
	if err := appendLine(l.failedPath, id); err != nil {
		return eris.Wrap(err, "checkpoint: append failed")
	}
	l.failed[id] = struct{}{}
	return nil
}

func readSet(path string) (map[string]struct{}, error) {
	set := make(map[string]struct{})

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return set, nil
		}
		return nil, err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		id := strings.TrimSpace(scanner.Text())
		if id != "" {
			set[id] = struct{}{}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return set, nil
}

func appendLine(path, id string) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := f.WriteString(id + "\n"); err != nil {
		return err
	}
	return f.Sync()
}
