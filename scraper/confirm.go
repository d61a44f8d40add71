package scraper

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
)

// Confirmer asks the operator whether to go on. It is consulted only when
// auto mode is off.
type Confirmer interface {
	Confirm(ctx context.Context, prompt string) (bool, error)
}

// AlwaysConfirm approves every prompt.
type AlwaysConfirm struct{}

// Confirm implements Confirmer.
func (AlwaysConfirm) Confirm(context.Context, string) (bool, error) {
	return true, nil
}

// LineConfirmer prompts on Out and reads one answer line from In. An empty
// answer or anything but "n"/"no" counts as yes.
type LineConfirmer struct {
	In  io.Reader
	Out io.Writer
}

// Confirm implements Confirmer. A canceled ctx abandons the pending read.
func (lc LineConfirmer) Confirm(ctx context.Context, prompt string) (bool, error) {
	fmt.Fprintf(lc.Out, "%s [Y/n] ", prompt)

	type answer struct {
		line string
		err  error
	}
	answers := make(chan answer, 1)
	go func() {
		line, err := bufio.NewReader(lc.In).ReadString('\n')
		answers <- answer{line: line, err: err}
	}()

	select {
	case <-ctx.Done():
		return false, ctx.Err()
	case a := <-answers:
		if a.err != nil && a.err != io.EOF {
			return false, fmt.Errorf("read answer: %w", a.err)
		}
		switch strings.ToLower(strings.TrimSpace(a.line)) {
		case "n", "no":
			return false, nil
		default:
			return true, nil
		}
	}
}
