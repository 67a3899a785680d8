package main

import (
	"bufio"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/charmbracelet/huh"
)

// prompter asks the user for values a command was not given as flags.
type prompter interface {
	Input(title, placeholder string) (string, error)
	Password(title string) (string, error)
	Confirm(title string, def bool) (bool, error)
	Select(title string, options []string) (string, error)
}

// huhPrompter renders one-field huh forms on the terminal.
type huhPrompter struct{}

func (huhPrompter) Input(title, placeholder string) (string, error) {
	var value string
	input := huh.NewInput().
		Title(title).
		Placeholder(placeholder).
		Value(&value)
	if err := huh.NewForm(huh.NewGroup(input)).Run(); err != nil {
		return "", fmt.Errorf("prompt failed: %w", err)
	}
	return strings.TrimSpace(value), nil
}

func (huhPrompter) Password(title string) (string, error) {
	var value string
	input := huh.NewInput().
		Title(title).
		EchoMode(huh.EchoModePassword).
		Value(&value)
	if err := huh.NewForm(huh.NewGroup(input)).Run(); err != nil {
		return "", fmt.Errorf("prompt failed: %w", err)
	}
	return value, nil
}

func (huhPrompter) Confirm(title string, def bool) (bool, error) {
	confirmed := def
	confirm := huh.NewConfirm().
		Title(title).
		Value(&confirmed)
	if err := huh.NewForm(huh.NewGroup(confirm)).Run(); err != nil {
		return false, fmt.Errorf("prompt failed: %w", err)
	}
	return confirmed, nil
}

func (huhPrompter) Select(title string, options []string) (string, error) {
	if len(options) == 0 {
		return "", fmt.Errorf("no options provided")
	}
	opts := make([]huh.Option[string], len(options))
	for i, o := range options {
		opts[i] = huh.NewOption(o, o)
	}
	var selected string
	sel := huh.NewSelect[string]().
		Title(title).
		Options(opts...).
		Value(&selected)
	if err := huh.NewForm(huh.NewGroup(sel)).Run(); err != nil {
		return "", fmt.Errorf("prompt failed: %w", err)
	}
	return selected, nil
}

// linePrompter reads one answer per line. It serves piped input, where a
// terminal form cannot run.
type linePrompter struct {
	r *bufio.Reader
}

func newLinePrompter(in io.Reader) *linePrompter {
	return &linePrompter{r: bufio.NewReader(in)}
}

func (p *linePrompter) line(title string) (string, error) {
	s, err := p.r.ReadString('\n')
	if err != nil && (err != io.EOF || s == "") {
		return "", usageErr("no input for %q", title)
	}
	return strings.TrimRight(s, "\r\n"), nil
}

func (p *linePrompter) Input(title, _ string) (string, error) {
	s, err := p.line(title)
	return strings.TrimSpace(s), err
}

func (p *linePrompter) Password(title string) (string, error) {
	return p.line(title)
}

func (p *linePrompter) Confirm(title string, def bool) (bool, error) {
	s, err := p.line(title)
	if err != nil {
		return false, err
	}
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return def, nil
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}

func (p *linePrompter) Select(title string, options []string) (string, error) {
	s, err := p.Input(title, "")
	if err != nil {
		return "", err
	}
	if !slices.Contains(options, s) {
		return "", usageErr("%q must be one of %s", title, strings.Join(options, ", "))
	}
	return s, nil
}
