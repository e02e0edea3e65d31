package ui

import (
	"sync/atomic"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/nibzard/tasklist-go/internal/manager"
)

// NoticeChannel is a manager.Notifier that hands notices to the TUI. It
// never blocks: when the buffer is full the notice is dropped and counted.
type NoticeChannel struct {
	ch      chan manager.Notice
	dropped atomic.Int64
}

// NewNoticeChannel returns a notifier buffering up to size notices.
func NewNoticeChannel(size int) *NoticeChannel {
	if size < 1 {
		size = 1
	}
	return &NoticeChannel{ch: make(chan manager.Notice, size)}
}

// Notify implements manager.Notifier.
func (n *NoticeChannel) Notify(notice manager.Notice) {
	select {
	case n.ch <- notice:
	default:
		n.dropped.Add(1)
	}
}

// C returns the receive side of the channel.
func (n *NoticeChannel) C() <-chan manager.Notice {
	return n.ch
}

// Dropped returns how many notices were discarded.
func (n *NoticeChannel) Dropped() int64 {
	return n.dropped.Load()
}

type noticeMsg struct {
	notice manager.Notice
}

func waitForNotice(ch <-chan manager.Notice) tea.Cmd {
	return func() tea.Msg {
		notice, ok := <-ch
		if !ok {
			return nil
		}
		return noticeMsg{notice: notice}
	}
}

type saveDoneMsg struct {
	seq uint64
	err error
}

func waitForSave(p *manager.Pending) tea.Cmd {
	return func() tea.Msg {
		<-p.Done()
		return saveDoneMsg{seq: p.Seq(), err: p.Err()}
	}
}
