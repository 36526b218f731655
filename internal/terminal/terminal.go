// Package terminal provides prompt helpers: line input, hidden secret input
// and clearing a prompt once it has been answered.
package terminal

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"os"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/term"
)

// Prompter reads answers from in and writes prompts to out.
type Prompter struct {
	in  *bufio.Reader
	fd  int
	tty bool
	out io.Writer
}

// NewPrompter returns a prompter on stdin/stdout.
func NewPrompter() *Prompter {
	fd := int(os.Stdin.Fd())
	return &Prompter{in: bufio.NewReader(os.Stdin), fd: fd, tty: term.IsTerminal(fd), out: os.Stdout}
}

// NewPrompterFrom reads from r. Secrets are read as plain lines.
func NewPrompterFrom(r io.Reader, out io.Writer) *Prompter {
	return &Prompter{in: bufio.NewReader(r), fd: -1, out: out}
}

// ReadLine prints prompt and returns the trimmed answer.
func (p *Prompter) ReadLine(prompt string) (string, error) {
	fmt.Fprint(p.out, prompt)
	line, err := p.in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", errors.Wrap(err, "read input")
	}
	return strings.TrimSpace(line), nil
}

// ReadSecret prints prompt and reads without echo when stdin is a terminal.
func (p *Prompter) ReadSecret(prompt string) (string, error) {
	if !p.tty {
		return p.ReadLine(prompt)
	}
	fmt.Fprint(p.out, prompt)
	b, err := term.ReadPassword(p.fd)
	fmt.Fprintln(p.out)
	if err != nil {
		return "", errors.Wrap(err, "read secret")
	}
	return strings.TrimSpace(string(b)), nil
}

// IsInteractive reports whether stdin is a terminal.
func IsInteractive() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// Width returns the stdout terminal width, or 80 when unknown.
func Width() int {
	if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && w > 0 {
		return w
	}
	return 80
}

// LinesFor returns how many rows textLength characters take at width, plus
// the row the cursor moved to after Enter.
func LinesFor(textLength, width int) int {
	if width <= 0 {
		width = 80
	}
	n := int(math.Ceil(float64(textLength) / float64(width)))
	if n < 1 {
		n = 1
	}
	return n + 1
}

// ClearPreviousLines erases an answered prompt of textLength characters.
func ClearPreviousLines(textLength int) {
	n := LinesFor(textLength, Width())
	for i := 0; i < n; i++ {
		fmt.Print("\r\x1b[2K")
		if i < n-1 {
			fmt.Print("\x1b[1A")
		}
	}
}
