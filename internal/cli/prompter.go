// Package cli drives interviews in a terminal.
package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/BTreeMap/ReflectPipe/internal/flow"
	"github.com/BTreeMap/ReflectPipe/internal/models"
)

// ErrAborted is returned when the user leaves an interview before it completes.
var ErrAborted = errors.New("interview aborted")

// Progress is the position shown alongside a question.
type Progress struct {
	Answered int
	Total    int
}

func (p Progress) String() string {
	return fmt.Sprintf("[%d/%d]", p.Answered, p.Total)
}

// Prompter asks one question and returns a value that passes q.Check.
type Prompter interface {
	Ask(ctx context.Context, q *models.Question, p Progress) (models.Value, error)
}

// LinePrompter asks questions as plain text lines, for pipes and dumb terminals.
type LinePrompter struct {
	in  *bufio.Reader
	out io.Writer
}

// NewLinePrompter reads answers from in and writes prompts to out.
func NewLinePrompter(in io.Reader, out io.Writer) *LinePrompter {
	return &LinePrompter{in: bufio.NewReader(in), out: out}
}

// Ask prints the formatted question and reads lines until one parses. End of
// input aborts the interview.
func (lp *LinePrompter) Ask(ctx context.Context, q *models.Question, p Progress) (models.Value, error) {
	fmt.Fprintf(lp.out, "\n%s %s\n", p, flow.FormatQuestion(q))
	for {
		if err := ctx.Err(); err != nil {
			return models.Value{}, err
		}
		fmt.Fprint(lp.out, "> ")
		line, err := lp.in.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return models.Value{}, fmt.Errorf("read answer: %w", err)
		}
		atEOF := err != nil
		if atEOF && line == "" {
			fmt.Fprintln(lp.out)
			return models.Value{}, ErrAborted
		}
		v, perr := models.ParseResponse(q, strings.TrimRight(line, "\r\n"))
		if perr == nil {
			return v, nil
		}
		slog.Debug("LinePrompter rejected input", "questionID", q.ID, "error", perr)
		fmt.Fprintf(lp.out, "Sorry, %s. Please try again.\n", reason(perr))
		if atEOF {
			return models.Value{}, ErrAborted
		}
	}
}

// reason strips the sentinel prefix from a validation error for display.
func reason(err error) string {
	return strings.TrimPrefix(err.Error(), models.ErrInvalidResponse.Error()+": ")
}
