package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// prompter reads answers line by line from the command's stdin.
type prompter struct {
	in  *bufio.Reader
	out io.Writer
	raw io.Reader
}

func newPrompter(cmd *cobra.Command) *prompter {
	return &prompter{in: bufio.NewReader(cmd.InOrStdin()), out: cmd.OutOrStdout(), raw: cmd.InOrStdin()}
}

// Ask prints label and returns the answer without the line ending.
func (p *prompter) Ask(label string) (string, error) {
	fmt.Fprint(p.out, label)
	line, err := p.in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// Choose repeats the question until one of the options is typed.
func (p *prompter) Choose(label string, options ...string) (string, error) {
	for {
		answer, err := p.Ask(label)
		if err != nil {
			return "", err
		}
		answer = strings.ToLower(strings.TrimSpace(answer))
		for _, o := range options {
			if answer == o || (answer != "" && strings.HasPrefix(o, answer)) {
				return o, nil
			}
		}
		fmt.Fprintf(p.out, "Please answer one of: %s\n", strings.Join(options, ", "))
	}
}

// Password reads without echo when stdin is a terminal.
func (p *prompter) Password(label string) (string, error) {
	if f, ok := p.raw.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprint(p.out, label)
		b, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(p.out)
		if err != nil {
			return "", err
		}
		return string(b), nil
	}
	return p.Ask(label)
}
