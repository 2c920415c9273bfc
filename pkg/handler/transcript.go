package handler

import (
	"bytes"
	"fmt"
	"html"
	"strings"

	"github.com/aretw0/parley/pkg/domain"
	"github.com/yuin/goldmark"
)

var markdown = goldmark.New()

var paragraphTags = strings.NewReplacer("<p>", "", "</p>", "")

// TranscriptHTML renders the USER and AI messages of a tracker as the HTML
// body of a support ticket. Newlines are removed from the result.
func TranscriptHTML(tracker domain.Tracker) (string, error) {
	var sb strings.Builder
	sb.WriteString("<p><b>Ticket Report</b><br><br><b>User Data</b><br></p>")
	fmt.Fprintf(&sb, "<p><b>Name:</b> %s<br><b>Email:</b> %s<br><b>Role:</b> %s<br><br><b>Chat History</b><br><br></p>",
		html.EscapeString(tracker.String(domain.KeyName)),
		html.EscapeString(tracker.String(domain.KeyEmail)),
		html.EscapeString(tracker.String(domain.KeyRole)),
	)

	for _, msg := range tracker.History() {
		if !msg.User.IsContent() {
			continue
		}
		text := strings.ReplaceAll(msg.Content(), "\n\n", "")
		var buf bytes.Buffer
		if err := markdown.Convert([]byte(text), &buf); err != nil {
			return "", fmt.Errorf("render message %s: %w", msg.MessageID, err)
		}
		fmt.Fprintf(&sb, "<p><b>%s</b>: %s<br><br></p>", msg.User, paragraphTags.Replace(buf.String()))
	}

	return strings.ReplaceAll(sb.String(), "\n", ""), nil
}
