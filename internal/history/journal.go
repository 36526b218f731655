package history

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"sync"

	"github.com/natefinch/lumberjack"
	"github.com/pkg/errors"
)

// Journal appends records as JSON lines to a size-rotated, compressed file.
type Journal struct {
	path string

	mu sync.Mutex
	w  *lumberjack.Logger
}

// NewJournal opens a journal at path. Rotation happens at maxMB megabytes and
// rotated files are kept for maxAgeDays.
func NewJournal(path string, maxMB, maxAgeDays int) *Journal {
	return &Journal{
		path: path,
		w: &lumberjack.Logger{
			Filename: path,
			MaxSize:  maxMB,
			MaxAge:   maxAgeDays,
			Compress: true,
		},
	}
}

// Path returns the active journal file.
func (j *Journal) Path() string { return j.path }

// Append writes r as one line.
func (j *Journal) Append(_ context.Context, r Record) error {
	b, err := json.Marshal(r)
	if err != nil {
		return errors.Wrap(err, "encode history record")
	}
	b = append(b, '\n')
	j.mu.Lock()
	defer j.mu.Unlock()
	if _, err := j.w.Write(b); err != nil {
		return errors.Wrapf(err, "write %s", j.path)
	}
	return nil
}

// Recent reads the active file and returns up to limit records, newest first.
// Rotated files are not read.
func (j *Journal) Recent(_ context.Context, limit int, function string) ([]Record, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	f, err := os.Open(j.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", j.path)
	}
	defer f.Close()

	var all []Record
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 64*1024), 8<<20)
	for sc.Scan() {
		var r Record
		if json.Unmarshal(sc.Bytes(), &r) != nil {
			continue
		}
		if function != "" && r.Function != function {
			continue
		}
		all = append(all, r)
	}
	if err := sc.Err(); err != nil {
		return nil, errors.Wrapf(err, "read %s", j.path)
	}

	out := make([]Record, 0, len(all))
	for i := len(all) - 1; i >= 0 && (limit <= 0 || len(out) < limit); i-- {
		out = append(out, all[i])
	}
	return out, nil
}

// Close closes the underlying file.
func (j *Journal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.w.Close()
}
