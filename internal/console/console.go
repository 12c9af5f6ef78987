package console

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// Notifier surfaces outcomes to the user. Controllers never print directly.
type Notifier interface {
	Success(msg string)
	Error(msg string)
	Notice(msg string)
}

// Dialog asks the user to confirm a destructive or outward-facing action.
type Dialog interface {
	Confirm(msg string) bool
}

// Terminal implements Notifier and Dialog over stdio.
type Terminal struct {
	in  *bufio.Scanner
	out io.Writer
}

func NewTerminal(in io.Reader, out io.Writer) *Terminal {
	return &Terminal{in: bufio.NewScanner(in), out: out}
}

func (t *Terminal) Success(msg string) { fmt.Fprintf(t.out, "OK: %s\n", msg) }
func (t *Terminal) Error(msg string)   { fmt.Fprintf(t.out, "ERROR: %s\n", msg) }
func (t *Terminal) Notice(msg string)  { fmt.Fprintln(t.out, msg) }

func (t *Terminal) Confirm(msg string) bool {
	fmt.Fprintf(t.out, "%s [y/N]: ", msg)
	if !t.in.Scan() {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(t.in.Text()))
	return answer == "y" || answer == "yes"
}
