package model

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// FoldName returns the comparison form of an event name or title:
// NFC normalized, case folded and trimmed. A Caser is stateful, so one is
// built per call.
func FoldName(s string) string {
	return cases.Fold().String(norm.NFC.String(strings.TrimSpace(s)))
}

// ContainsFold reports whether text contains name, ignoring case and
// Unicode normalization differences.
func ContainsFold(text, name string) bool {
	n := FoldName(name)
	if n == "" {
		return false
	}
	return strings.Contains(FoldName(text), n)
}

// RenderTitle builds the notification title for an event reminder.
// The title always starts with TitlePrefix and contains the event name,
// which is what the ownership heuristic falls back on.
func RenderTitle(eventName string, leadMinutes int) string {
	return fmt.Sprintf("%s %s in %d min", TitlePrefix, eventName, leadMinutes)
}

// RenderBody builds the notification body announcing the real event date.
func RenderBody(eventName, eventTime string, date Date) string {
	return fmt.Sprintf("%s at %s on %s", eventName, eventTime, date)
}
