package ui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/nibzard/tasklist-go/internal/manager"
)

var (
	titleStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	subtitleStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	cursorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("13")).Bold(true)
	selectedStyle  = lipgloss.NewStyle().Bold(true)
	completedStyle = lipgloss.NewStyle().Strikethrough(true).Foreground(lipgloss.Color("8"))
	mutedStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	labelStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("12"))

	noticeStyles = map[manager.NoticeLevel]lipgloss.Style{
		manager.NoticeInfo:  lipgloss.NewStyle().Foreground(lipgloss.Color("10")),
		manager.NoticeWarn:  lipgloss.NewStyle().Foreground(lipgloss.Color("11")),
		manager.NoticeError: lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true),
	}
)

func noticeStyle(level manager.NoticeLevel) lipgloss.Style {
	if s, ok := noticeStyles[level]; ok {
		return s
	}
	return lipgloss.NewStyle()
}
