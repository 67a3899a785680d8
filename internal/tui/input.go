package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

// maxInputLen is the maximum number of runes allowed in form inputs.
const maxInputLen = 256

type keyMap struct {
	Quit   key.Binding
	Submit key.Binding
	Next   key.Binding
	Prev   key.Binding
	Back   key.Binding
}

var keys = keyMap{
	Quit:   key.NewBinding(key.WithKeys("ctrl+c"), key.WithHelp("ctrl+c", "quit")),
	Submit: key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "submit")),
	Next:   key.NewBinding(key.WithKeys("tab", "down"), key.WithHelp("tab", "next")),
	Prev:   key.NewBinding(key.WithKeys("shift+tab", "up"), key.WithHelp("shift+tab", "prev")),
	Back:   key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
}

// field describes one form input.
type field struct {
	label       string
	placeholder string
	secret      bool
}

// form is a vertical stack of text inputs with one focused at a time.
// Secret fields never echo what was typed.
type form struct {
	labels []string
	inputs []textinput.Model
	focus  int
}

func newForm(fields ...field) form {
	f := form{}
	for _, fd := range fields {
		ti := textinput.New()
		ti.Prompt = "> "
		ti.PromptStyle = inputPromptStyle
		ti.PlaceholderStyle = inputPlaceholderStyle
		ti.Placeholder = fd.placeholder
		ti.CharLimit = maxInputLen
		ti.Width = 40
		if fd.secret {
			ti.EchoMode = textinput.EchoPassword
			ti.EchoCharacter = '•'
		}
		f.labels = append(f.labels, fd.label)
		f.inputs = append(f.inputs, ti)
	}
	if len(f.inputs) > 0 {
		f.inputs[0].Focus()
	}
	return f
}

// Value returns the trimmed text of input i. Secret inputs are returned as typed.
func (f form) Value(i int) string {
	if f.inputs[i].EchoMode == textinput.EchoPassword {
		return f.inputs[i].Value()
	}
	return strings.TrimSpace(f.inputs[i].Value())
}

// SetValue replaces the text of input i.
func (f *form) SetValue(i int, v string) {
	f.inputs[i].SetValue(v)
}

// Focused is the index of the input receiving keys.
func (f form) Focused() int {
	return f.focus
}

// Last reports whether the focused input is the final one.
func (f form) Last() bool {
	return f.focus == len(f.inputs)-1
}

func (f *form) move(delta int) tea.Cmd {
	n := len(f.inputs)
	if n == 0 {
		return nil
	}
	f.inputs[f.focus].Blur()
	f.focus = (f.focus + delta + n) % n
	return f.inputs[f.focus].Focus()
}

// FocusInput moves focus to input i.
func (f *form) FocusInput(i int) tea.Cmd {
	return f.move(i - f.focus)
}

// Reset clears every input and focuses the first.
func (f *form) Reset() tea.Cmd {
	for i := range f.inputs {
		f.inputs[i].Reset()
	}
	return f.FocusInput(0)
}

// Update handles focus movement and forwards other keys to the focused input.
func (f form) Update(msg tea.Msg) (form, tea.Cmd) {
	if km, ok := msg.(tea.KeyMsg); ok {
		switch {
		case key.Matches(km, keys.Next):
			return f, f.move(1)
		case key.Matches(km, keys.Prev):
			return f, f.move(-1)
		}
	}
	if len(f.inputs) == 0 {
		return f, nil
	}
	var cmd tea.Cmd
	f.inputs[f.focus], cmd = f.inputs[f.focus].Update(msg)
	return f, cmd
}

func (f form) View() string {
	var b strings.Builder
	for i, in := range f.inputs {
		label := labelStyle.Render(f.labels[i])
		if i == f.focus {
			label = labelStyle.Foreground(accentStyle.GetForeground()).Render(f.labels[i])
		}
		b.WriteString("  " + label + in.View() + "\n")
	}
	return b.String()
}
