package main

import (
	"github.com/charmbracelet/huh"
)

// confirmPrompt asks a yes/no question on the terminal.
func confirmPrompt(title string) (bool, error) {
	var confirmed bool
	form := huh.NewConfirm().
		Title(title).
		Affirmative("Yes").
		Negative("No").
		Value(&confirmed)

	if err := form.Run(); err != nil {
		return false, err
	}
	return confirmed, nil
}
