// Package prompt reads answers to questions from an interactive user.
package prompt

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/ardanlabs/ballot/foundation/validate"
	"github.com/ethereum/go-ethereum/common"
)

// ErrNoInput is returned when the input closes before an answer is given.
var ErrNoInput = errors.New("no input")

// Prompter asks questions on the output and reads line answers from the
// input. A Prompter is not safe for concurrent use.
type Prompter struct {
	scanner *bufio.Scanner
	out     io.Writer
}

// New constructs a prompter over the input and output.
func New(in io.Reader, out io.Writer) *Prompter {
	return &Prompter{
		scanner: bufio.NewScanner(in),
		out:     out,
	}
}

// Ask writes the question and returns the trimmed answer.
func (p *Prompter) Ask(question string) (string, error) {
	fmt.Fprint(p.out, question)

	if !p.scanner.Scan() {
		if err := p.scanner.Err(); err != nil {
			return "", fmt.Errorf("reading answer: %w", err)
		}
		return "", ErrNoInput
	}

	return strings.TrimSpace(p.scanner.Text()), nil
}

// AskUntil repeats the question and collects answers until the user
// types the quit word, in any case, or the input closes. Empty answers
// are skipped.
func (p *Prompter) AskUntil(question string, quit string) ([]string, error) {
	var answers []string

	q := fmt.Sprintf("%s (or %q to quit): ", question, quit)

	for {
		answer, err := p.Ask(q)
		if err != nil {
			if errors.Is(err, ErrNoInput) {
				return answers, nil
			}
			return nil, err
		}

		switch {
		case strings.EqualFold(answer, quit):
			return answers, nil
		case answer == "":
			continue
		}

		answers = append(answers, answer)
		fmt.Fprintf(p.out, "Input recorded: %s\n", answer)
	}
}

// AskAddress asks for an account address until a well formed one is
// given. The field names the value in a validation error when the input
// closes on a malformed answer.
func (p *Prompter) AskAddress(question string, field string) (common.Address, error) {
	var last error

	for {
		answer, err := p.Ask(question)
		if err != nil {
			if errors.Is(err, ErrNoInput) && last != nil {
				return common.Address{}, last
			}
			return common.Address{}, err
		}

		addr, err := validate.Address(field, answer)
		if err == nil {
			return addr, nil
		}

		last = err
		fmt.Fprintf(p.out, "Invalid address: %s\n", err)
	}
}

// Confirm asks a yes or no question. Only y or yes confirms.
func (p *Prompter) Confirm(question string) (bool, error) {
	answer, err := p.Ask(question + " [y/N]: ")
	if err != nil {
		return false, err
	}

	switch strings.ToLower(answer) {
	case "y", "yes":
		return true, nil
	}

	return false, nil
}
