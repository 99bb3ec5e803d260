package main

import (
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/iliyamo/open-day-registration/internal/tui"
)

func main() {
	baseURL := os.Getenv("REGISTRATION_API_URL")
	p := tea.NewProgram(tui.New(baseURL), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
