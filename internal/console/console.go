// Package console is the human side of a run: it shows the proposed plan and
// reads yes/no answers and free text from the terminal.
package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
)

// ErrNoInput is returned when the input stream ends before an answer is read.
var ErrNoInput = errors.New("no input")

// Approver asks the operator a yes/no question.
type Approver interface {
	Confirm(ctx context.Context, question string) (bool, error)
}

// LineReader is the subset of bufio.Reader the console reads through.
type LineReader interface {
	ReadString(delim byte) (string, error)
}

// Console reads answers from in and writes prompts to out.
type Console struct {
	in  LineReader
	out io.Writer
}

// New returns a console over in and out.
func New(in io.Reader, out io.Writer) *Console {
	return &Console{in: bufio.NewReader(in), out: out}
}

// Stdio returns a console bound to the process terminal.
func Stdio() *Console {
	return New(os.Stdin, os.Stdout)
}

// Confirm prints question and waits for an answer starting with y or n, in
// either case. Any other answer repeats the question.
func (c *Console) Confirm(ctx context.Context, question string) (bool, error) {
	ask := color.New(color.FgCyan)
	for {
		if err := ctx.Err(); err != nil {
			return false, err
		}
		ask.Fprintf(c.out, "%s [y/n]: ", question)
		line, err := c.readLine()
		if err != nil {
			return false, err
		}
		switch strings.ToLower(firstRune(line)) {
		case "y":
			return true, nil
		case "n":
			return false, nil
		}
		color.New(color.FgYellow).Fprintln(c.out, "Please answer y or n.")
	}
}

// Ask prints question and returns the first non-empty answer.
func (c *Console) Ask(ctx context.Context, question string) (string, error) {
	ask := color.New(color.FgCyan)
	for {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		ask.Fprintf(c.out, "%s: ", question)
		line, err := c.readLine()
		if err != nil {
			return "", err
		}
		if line != "" {
			return line, nil
		}
	}
}

// ShowPlan prints the plan proposed for title.
func (c *Console) ShowPlan(title, plan string) {
	bold := color.New(color.Bold)
	fmt.Fprintln(c.out)
	bold.Fprintf(c.out, "Proposed plan for %q\n", title)
	fmt.Fprintln(c.out, strings.Repeat("-", 70))
	fmt.Fprintln(c.out, strings.TrimSpace(plan))
	fmt.Fprintln(c.out, strings.Repeat("-", 70))
}

// Notice prints an informational line.
func (c *Console) Notice(format string, args ...any) {
	color.New(color.FgGreen).Fprintf(c.out, format+"\n", args...)
}

func (c *Console) readLine() (string, error) {
	line, err := c.in.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) && strings.TrimSpace(line) != "" {
			return strings.TrimSpace(line), nil
		}
		if errors.Is(err, io.EOF) {
			return "", ErrNoInput
		}
		return "", fmt.Errorf("read input: %w", err)
	}
	return strings.TrimSpace(line), nil
}

func firstRune(s string) string {
	for _, r := range s {
		return string(r)
	}
	return ""
}
