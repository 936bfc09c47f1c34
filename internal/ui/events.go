package ui

import (
	"fmt"
	"strings"

	"github.com/bnema/waycore/internal/compositor"
	"github.com/bnema/waycore/internal/resource"
	"github.com/bnema/waycore/internal/trace"
)

// FormatRecord renders one event as interface@id.event(args).
func FormatRecord(rec trace.Record) string {
	target := ObjectStyle.Render(fmt.Sprintf("%s@%d", rec.Interface, rec.Object.Protocol))

	style := EventStyle
	switch {
	case rec.Interface == "wl_display" && rec.Event == "error":
		style = ErrorStyle
	case rec.Event == "frame" || rec.Event == "delete_id":
		style = FrameStyle
	}
	return "  " + SubtleStyle.Render(IconEvent) + " " + target + "." + style.Render(rec.Call())
}

// FormatClientHeader renders a client name with its connection state.
func FormatClientHeader(name string, alive bool, perr *resource.ProtocolError) string {
	status := SubheaderStyle.Render(name)
	if perr != nil {
		status += " " + ErrorStyle.Render(fmt.Sprintf("%s %s@%d error %d: %s",
			IconError, perr.Interface, perr.Object.Protocol, perr.Code, perr.Message))
	}
	return FormatStatus(alive && perr == nil, status)
}

// FormatRecords renders a list of events, one per line.
func FormatRecords(records []trace.Record) string {
	lines := make([]string, len(records))
	for i, rec := range records {
		lines[i] = FormatRecord(rec)
	}
	return strings.Join(lines, "\n")
}

// FormatResult renders everything each client received during a run,
// followed by a summary.
func FormatResult(result *compositor.Result) string {
	var b strings.Builder

	b.WriteString(HeaderStyle.Render("Scenario " + result.Scenario))
	b.WriteString("\n" + CreateSeparator(50, "─") + "\n")

	for _, client := range result.Clients {
		b.WriteString(FormatClientHeader(client.Name, client.Error == nil, client.Error))
		b.WriteString("\n")
		if len(client.Records) > 0 {
			b.WriteString(FormatRecords(client.Records))
			b.WriteString("\n")
		}
	}

	b.WriteString("\n" + HeaderStyle.Render(IconSummary+" Summary") + "\n")
	fmt.Fprintf(&b, "  popups created: %d, destroyed: %d, live: %d\n",
		result.PopupsCreated, result.PopupsDestroyed, result.PopupsRemaining)
	if result.FailedSteps > 0 {
		b.WriteString("  " + WarningStyle.Render(fmt.Sprintf("%s %d step(s) ended in a protocol error", IconWarning, result.FailedSteps)) + "\n")
	} else {
		b.WriteString("  " + SuccessStyle.Render(IconSuccess+" all steps succeeded") + "\n")
	}
	return b.String()
}
