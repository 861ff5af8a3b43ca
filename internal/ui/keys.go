package ui

import tea "github.com/charmbracelet/bubbletea"

func isQuit(msg tea.KeyMsg) bool {
	switch msg.String() {
	case "q", "esc", "ctrl+c":
		return true
	}
	return false
}

func helpText(naming bool) string {
	if naming {
		return "enter save  esc cancel"
	}
	return "space pause  o power  n/p preset  s save  d delete  tab focus  r/R driver  i invert  y range  m pattern  q quit"
}
