package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// prompter reads answers from the command's stdin. When stdin is a terminal,
// passwords are read without echo.
type prompter struct {
	in     io.Reader
	reader *bufio.Reader
	out    io.Writer
}

func newPrompter(in io.Reader, out io.Writer) *prompter {
	return &prompter{in: in, reader: bufio.NewReader(in), out: out}
}

func (p *prompter) line(prompt string) (string, error) {
	fmt.Fprint(p.out, prompt)
	s, err := p.reader.ReadString('\n')
	if err != nil && (err != io.EOF || s == "") {
		return "", err
	}
	return strings.TrimRight(s, "\r\n"), nil
}

// Password asks for a password, hiding input on a terminal.
func (p *prompter) Password(prompt string) (string, error) {
	if f, ok := p.in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprint(p.out, prompt)
		b, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(p.out)
		if err != nil {
			return "", fmt.Errorf("reading password: %w", err)
		}
		return string(b), nil
	}
	s, err := p.line(prompt)
	if err != nil {
		return "", fmt.Errorf("reading password: %w", err)
	}
	return s, nil
}

// Confirm asks a y/N question. Anything but y or yes declines.
func (p *prompter) Confirm(prompt string) bool {
	s, err := p.line(prompt + " [y/N] ")
	if err != nil {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "y", "yes":
		return true
	}
	return false
}

// confirmer returns the view confirmer for a destructive command. --yes
// skips the question.
func (p *prompter) confirmer(assumeYes bool) func(string) bool {
	if assumeYes {
		return func(string) bool { return true }
	}
	return p.Confirm
}
