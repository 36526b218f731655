package monitor

import (
	"fmt"
	"strconv"
	"strings"
	"sync"

	"ccmonitor/cli/internal/chaincode"
	"ccmonitor/cli/internal/logging"

	"atomicgo.dev/cursor"
	"github.com/pterm/pterm"
)

// payloadWidth caps the payload column so long bodies don't wrap the table.
const payloadWidth = 72

// Table renders entries as a pterm table with a header row.
func Table(entries []Entry) string {
	if len(entries) == 0 {
		return pterm.FgGray.Sprint("No results yet. Run a query to start tracking it.")
	}
	data := pterm.TableData{{"#", "ID", "Function", "Args", "Payload", "Poll", "Updated"}}
	for i, e := range entries {
		poll := pterm.FgGray.Sprint("off")
		if e.Polling {
			poll = pterm.FgGreen.Sprint("on")
		}
		id := e.ID
		if len(id) > 8 {
			id = id[:8]
		}
		data = append(data, []string{
			strconv.Itoa(i),
			id,
			e.Function,
			chaincode.Canonical(e.Args),
			logging.Truncate(e.Payload, payloadWidth),
			poll,
			e.UpdatedAt.Format("15:04:05"),
		})
	}
	out, err := pterm.DefaultTable.WithHasHeader().WithBoxed().WithData(data).Srender()
	if err != nil {
		return fmt.Sprintf("render results: %v", err)
	}
	return out
}

// Renderer keeps a live pterm area showing the result set and the latest
// notification. Render is safe for concurrent use.
type Renderer struct {
	mu      sync.Mutex
	area    *pterm.AreaPrinter
	last    []Entry
	message string
	footer  string
}

// NewRenderer creates a renderer. Start must be called before Render draws.
func NewRenderer() *Renderer { return &Renderer{} }

// Start opens the live area and hides the cursor.
func (r *Renderer) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.area != nil {
		return nil
	}
	cursor.Hide()
	area, err := pterm.DefaultArea.Start()
	if err != nil {
		cursor.Show()
		return err
	}
	r.area = area
	r.redraw()
	return nil
}

// Render applies one event to the view.
func (r *Renderer) Render(ev Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	switch ev.Type {
	case EventNotification:
		r.message = ev.Message
	case EventResultsCleared:
		r.message = ""
	}
	r.last = ev.Entries
	r.redraw()
}

// Notify replaces the message line without touching the table.
func (r *Renderer) Notify(msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.message = msg
	r.redraw()
}

// SetFooter sets a line drawn under the table, such as a key hint.
func (r *Renderer) SetFooter(s string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.footer = s
	r.redraw()
}

// Stop closes the area, leaving the final table on screen, and shows the cursor.
func (r *Renderer) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.area == nil {
		return
	}
	_ = r.area.Stop()
	r.area = nil
	cursor.Show()
}

func (r *Renderer) redraw() {
	if r.area == nil {
		return
	}
	var b strings.Builder
	b.WriteString(Table(r.last))
	if r.message != "" {
		b.WriteString("\n")
		b.WriteString(pterm.Warning.Sprint(r.message))
	}
	if r.footer != "" {
		b.WriteString("\n")
		b.WriteString(pterm.FgGray.Sprint(r.footer))
	}
	r.area.Update(b.String())
}
