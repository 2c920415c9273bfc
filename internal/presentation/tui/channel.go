// Package tui runs a conversation in the terminal.
package tui

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/aretw0/parley/pkg/domain"
	"github.com/aretw0/parley/pkg/ports"
)

var (
	agentStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#22d3ee"))
	promptStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#a3e635"))
	noticeStyle  = lipgloss.NewStyle().Italic(true).Foreground(lipgloss.Color("#94a3b8"))
	errorStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#f87171"))
	elementStyle = lipgloss.NewStyle().Padding(0, 1).Border(lipgloss.RoundedBorder())
)

// Channel is a ports.Channel over a reader and a writer, normally the
// terminal. Lines read from in become user messages.
type Channel struct {
	out         io.Writer
	agent       string
	render      func(string) (string, error)
	interactive bool

	lines chan string
	done  chan struct{}
	once  sync.Once

	readMu  sync.Mutex
	readErr error
}

// NewChannel reads lines from in and writes the conversation to out.
// Markdown and styles are applied only when interactive is true.
func NewChannel(in io.Reader, out io.Writer, agent string, interactive bool) *Channel {
	c := &Channel{
		out:         out,
		agent:       agent,
		render:      plain,
		interactive: interactive,
		lines:       make(chan string),
		done:        make(chan struct{}),
	}
	if interactive {
		c.render = NewRenderer()
	}
	go c.read(in)
	return c
}

// NewStdio creates a Channel on stdin and stdout, styled when stdout is a TTY.
func NewStdio(agent string) *Channel {
	return NewChannel(os.Stdin, os.Stdout, agent, term.IsTerminal(int(os.Stdout.Fd())))
}

func (c *Channel) read(in io.Reader) {
	defer close(c.lines)
	sc := bufio.NewScanner(in)
	for sc.Scan() {
		select {
		case c.lines <- strings.TrimSpace(sc.Text()):
		case <-c.done:
			return
		}
	}
	c.readMu.Lock()
	c.readErr = sc.Err()
	c.readMu.Unlock()
}

func (c *Channel) style(s lipgloss.Style, text string) string {
	if !c.interactive {
		return text
	}
	return s.Render(text)
}

func (c *Channel) Send(_ context.Context, msg domain.ChatMessage) error {
	select {
	case <-c.done:
		return domain.ErrChannelClosed
	default:
	}

	var b strings.Builder
	switch msg.User {
	case domain.RoleAI:
		body, err := c.render(msg.Content())
		if err != nil {
			body = msg.Content()
		}
		fmt.Fprintf(&b, "%s %s\n", c.style(agentStyle, c.agent+":"), body)
		for _, e := range msg.Elements {
			fmt.Fprintf(&b, "  %s\n", c.style(elementStyle, e.Label))
		}
	case domain.RoleListenSignal:
		b.WriteString(c.style(promptStyle, "> "))
	case domain.RoleTimeoutSignal:
		fmt.Fprintln(&b, c.style(noticeStyle, "(no answer, closing the conversation)"))
	case domain.RoleErrorSignal:
		fmt.Fprintln(&b, c.style(errorStyle, msg.Content()))
	case domain.RoleEndSignal:
		fmt.Fprintln(&b, c.style(noticeStyle, "(conversation ended)"))
	default:
		// USER echoes and ai_signal frames have nothing to show.
		return nil
	}
	_, err := io.WriteString(c.out, b.String())
	return err
}

func (c *Channel) Receive(ctx context.Context) (ports.Inbound, error) {
	select {
	case <-ctx.Done():
		return ports.Inbound{}, ctx.Err()
	case <-c.done:
		return ports.Inbound{}, domain.ErrChannelClosed
	case line, ok := <-c.lines:
		if !ok {
			c.readMu.Lock()
			defer c.readMu.Unlock()
			if c.readErr != nil {
				return ports.Inbound{}, fmt.Errorf("%w: %v", domain.ErrChannelClosed, c.readErr)
			}
			return ports.Inbound{}, domain.ErrChannelClosed
		}
		return ports.Inbound{Text: line}, nil
	}
}

func (c *Channel) Close() error {
	c.once.Do(func() { close(c.done) })
	return nil
}
