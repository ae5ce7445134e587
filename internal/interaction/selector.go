// Where: internal/interaction/selector.go
// What: huh-backed Prompter.
package interaction

import (
	"github.com/charmbracelet/huh"
)

// HuhPrompter implements Prompter with the huh TUI library.
type HuhPrompter struct{}

func (HuhPrompter) Input(title, placeholder string) (string, error) {
	var input string
	err := huh.NewInput().
		Title(title).
		Placeholder(placeholder).
		Value(&input).
		Run()
	if err != nil {
		return "", err
	}
	if input == "" {
		return placeholder, nil
	}
	return input, nil
}

func (HuhPrompter) SelectValue(title string, options []SelectOption) (string, error) {
	if len(options) == 0 {
		return "", nil
	}
	huhOptions := make([]huh.Option[string], len(options))
	for i, opt := range options {
		huhOptions[i] = huh.NewOption(opt.Label, opt.Value)
	}
	var selected string
	err := huh.NewSelect[string]().
		Title(title).
		Options(huhOptions...).
		Value(&selected).
		Run()
	if err != nil {
		return "", err
	}
	return selected, nil
}

func (HuhPrompter) Confirm(title string) (bool, error) {
	var confirmed bool
	err := huh.NewConfirm().
		Title(title).
		Affirmative("Yes").
		Negative("No").
		Value(&confirmed).
		Run()
	if err != nil {
		return false, err
	}
	return confirmed, nil
}
