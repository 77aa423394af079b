// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/alecthomas/chroma/v2/quick"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/muesli/termenv"
	"golang.org/x/term"

	"github.com/bureau-foundation/roomsync/timeline"
)

// timeFormat renders origin_server_ts in the event line prefix.
const timeFormat = "15:04:05"

// printer writes one line (or one JSON block with --raw) per
// dispatched event. Handlers for different rooms run concurrently, so
// writes are serialized.
type printer struct {
	mu      sync.Mutex
	out     io.Writer
	raw     bool
	color   bool
	width   int
	styles  printerStyles
	scratch bytes.Buffer
}

type printerStyles struct {
	timestamp lipgloss.Style
	room      lipgloss.Style
	sender    lipgloss.Style
	notice    lipgloss.Style
	edit      lipgloss.Style
	redaction lipgloss.Style
	generic   lipgloss.Style
}

// newPrinter detects the color profile and width of out when it is a
// terminal.
func newPrinter(out io.Writer, raw, noColor bool) *printer {
	profile := termenv.NewOutput(out).EnvColorProfile()
	if noColor {
		profile = termenv.Ascii
	}
	width := 0
	if file, ok := out.(*os.File); ok && term.IsTerminal(int(file.Fd())) {
		if columns, _, err := term.GetSize(int(file.Fd())); err == nil {
			width = columns
		}
	}
	return newPrinterWithProfile(out, raw, profile, width)
}

// newPrinterWithProfile builds a printer with an explicit profile.
// width <= 0 disables truncation.
func newPrinterWithProfile(out io.Writer, raw bool, profile termenv.Profile, width int) *printer {
	renderer := lipgloss.NewRenderer(out, termenv.WithProfile(profile))
	renderer.SetColorProfile(profile)
	return &printer{
		out:   out,
		raw:   raw,
		color: profile != termenv.Ascii,
		width: width,
		styles: printerStyles{
			timestamp: renderer.NewStyle().Faint(true),
			room:      renderer.NewStyle().Foreground(lipgloss.Color("6")).Bold(true),
			sender:    renderer.NewStyle().Foreground(lipgloss.Color("3")),
			notice:    renderer.NewStyle().Foreground(lipgloss.Color("8")),
			edit:      renderer.NewStyle().Foreground(lipgloss.Color("5")),
			redaction: renderer.NewStyle().Foreground(lipgloss.Color("1")).Italic(true),
			generic:   renderer.NewStyle().Faint(true),
		},
	}
}

// Print writes event. room supplies the display name and may be nil.
func (p *printer) Print(event timeline.Event, room *timeline.Room) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.raw {
		return p.printRaw(event)
	}

	line := p.prefix(event, room) + p.describe(event)
	if p.width > 0 {
		line = ansi.Truncate(line, p.width, "…")
	}
	_, err := fmt.Fprintln(p.out, line)
	return err
}

func (p *printer) prefix(event timeline.Event, room *timeline.Room) string {
	roomLabel := event.Room().String()
	if room != nil {
		if name := room.Name(); name != "" {
			roomLabel = name
		}
	}
	timestamp := "--:--:--"
	if ts := event.OriginServerTS(); !ts.IsZero() {
		timestamp = ts.Local().Format(timeFormat)
	}
	return p.styles.timestamp.Render(timestamp) + " " +
		p.styles.room.Render(roomLabel) + " " +
		p.styles.sender.Render(event.Sender().String()) + " "
}

func (p *printer) describe(event timeline.Event) string {
	switch event := event.(type) {
	case *timeline.MessageEvent:
		return p.describeMessage(event)
	case *timeline.MessageEditEvent:
		body, err := event.Body()
		if err != nil {
			body = "[" + string(event.NewMsgType()) + "]"
		}
		return p.styles.edit.Render("* edit of "+event.TargetID().String()+":") + " " + singleLine(body)
	case *timeline.RedactionEvent:
		text := "redacted " + event.RedactsID().String()
		if reason := event.Reason(); reason != "" {
			text += " (" + reason + ")"
		}
		return p.styles.redaction.Render(text)
	case *timeline.GenericEvent:
		text := string(event.Type())
		if stateKey, ok := event.StateKey(); ok && stateKey != "" {
			text += " " + stateKey
		}
		return p.styles.generic.Render(text)
	default:
		return p.styles.generic.Render(string(event.Type()))
	}
}

func (p *printer) describeMessage(message *timeline.MessageEvent) string {
	var text string
	msgType := message.MsgType()
	switch {
	case msgType.IsText():
		body, _ := message.Body()
		text = singleLine(body)
		switch msgType {
		case timeline.MessageTypeEmote:
			text = "* " + text
		case timeline.MessageTypeNotice:
			text = p.styles.notice.Render(text)
		}
	case msgType.IsAttachment():
		attachment, _ := message.Attachment()
		text = fmt.Sprintf("[%s] %s", msgType, attachment.Filename)
		if attachment.MimeType != "" {
			text += " (" + attachment.MimeType + ")"
		}
	case msgType == timeline.MessageTypeLocation:
		geo, _ := message.GeoURI()
		text = "[location] " + geo
	default:
		text = "[unknown message type]"
	}
	if reply := message.ReplyToID(); !reply.IsZero() {
		text = "↳ " + reply.String() + " " + text
	}
	if message.Edited() {
		text += " " + p.styles.notice.Render("(edited)")
	}
	return text
}

func (p *printer) printRaw(event timeline.Event) error {
	p.scratch.Reset()
	if err := json.Indent(&p.scratch, event.Raw(), "", "  "); err != nil {
		return fmt.Errorf("indenting event %s: %w", event.ID(), err)
	}
	if !p.color {
		p.scratch.WriteByte('\n')
		_, err := p.out.Write(p.scratch.Bytes())
		return err
	}
	if err := quick.Highlight(p.out, p.scratch.String(), "json", "terminal256", "monokai"); err != nil {
		return fmt.Errorf("highlighting event %s: %w", event.ID(), err)
	}
	_, err := fmt.Fprintln(p.out)
	return err
}

// singleLine folds a multi-line body onto one line.
func singleLine(body string) string {
	return strings.Join(strings.Fields(body), " ")
}
