package cli

import (
	"errors"
	"strings"

	"github.com/manifoldco/promptui"
)

// Prompter asks the user for input.
type Prompter interface {
	// Prompt reads a line. Masked input is not echoed.
	Prompt(label string, masked bool, validate func(string) error) (string, error)
	// Select returns the index of the chosen item.
	Select(label string, items []string) (int, error)
}

// PromptUI is a Prompter on the terminal.
type PromptUI struct {
	Size int // visible rows of a select list
}

// Prompt runs a promptui.Prompt.
func (p PromptUI) Prompt(label string, masked bool, validate func(string) error) (string, error) {
	prompt := promptui.Prompt{
		Label:    label,
		Validate: validate,
	}
	if masked {
		prompt.Mask = '*'
	}
	return prompt.Run()
}

// Select runs a searchable promptui.Select.
func (p PromptUI) Select(label string, items []string) (int, error) {
	size := p.Size
	if size <= 0 {
		size = 12
	}
	templates := &promptui.SelectTemplates{
		Label:    "{{ . }}",
		Active:   "\U0001F449 {{ . | cyan }}",
		Inactive: "  {{ . }}",
		Selected: "\U0001F44D {{ . | green }}",
	}
	prompt := promptui.Select{
		Label:     label,
		Items:     items,
		Templates: templates,
		Size:      size,
		Searcher: func(input string, index int) bool {
			name := strings.ReplaceAll(strings.ToLower(items[index]), " ", "")
			input = strings.ReplaceAll(strings.ToLower(input), " ", "")
			return strings.Contains(name, input)
		},
	}
	i, _, err := prompt.Run()
	return i, err
}

// isQuit reports whether err means the user left the prompt (Ctrl-C or Ctrl-D).
func isQuit(err error) bool {
	return errors.Is(err, promptui.ErrInterrupt) || errors.Is(err, promptui.ErrEOF) || errors.Is(err, promptui.ErrAbort)
}

func notBlank(field string) func(string) error {
	return func(input string) error {
		if strings.TrimSpace(input) == "" {
			return errors.New(field + " cannot be empty")
		}
		return nil
	}
}
