package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"ccmonitor/cli/internal/chaincode"
	cerrors "ccmonitor/cli/internal/errors"
)

var spinnerFrames = []string{"|", "/", "-", "\\"}

// startInlineSpinner animates frames followed by text on one line until the
// returned function is called, which clears the line.
func startInlineSpinner(w io.Writer, text string, frames []string, interval time.Duration) func() {
	stop := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		i := 0
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				line := fmt.Sprintf("%s %s", frames[i%len(frames)], text)
				fmt.Fprintf(w, "\r%*s\r", len(line), "")
				return
			case <-ticker.C:
				fmt.Fprintf(w, "\r%s %s", frames[i%len(frames)], text)
				i++
			}
		}
	}()
	var once sync.Once
	return func() {
		once.Do(func() {
			close(stop)
			wg.Wait()
		})
	}
}

// parseArgs reads a JSON object of chaincode arguments. Empty input means none.
func parseArgs(raw string) (chaincode.Args, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	var args chaincode.Args
	dec := json.NewDecoder(strings.NewReader(raw))
	if err := dec.Decode(&args); err != nil {
		return nil, cerrors.Wrap(cerrors.KindConfig, "arguments must be a JSON object", err)
	}
	if dec.More() {
		return nil, cerrors.New(cerrors.KindConfig, "arguments must be a single JSON object")
	}
	return args, nil
}

// prettyJSON indents s when it is valid JSON and returns it unchanged otherwise.
func prettyJSON(s string) string {
	var b bytes.Buffer
	if err := json.Indent(&b, []byte(s), "", "  "); err != nil {
		return s
	}
	return b.String()
}

// lastMessage keeps the most recent notification for commands that report
// failures through their exit status instead of a live view.
type lastMessage struct {
	mu  sync.Mutex
	msg string
}

func (l *lastMessage) ShowMessage(text string) {
	l.mu.Lock()
	l.msg = text
	l.mu.Unlock()
}

func (l *lastMessage) String() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.msg
}
