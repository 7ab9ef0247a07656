package model

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// DomainReminder prefixes reminder keys. The version suffix allows a later
// key algorithm to coexist with this one.
const DomainReminder = "ritual/reminder/v1"

// hashWithDomain computes SHA256(domain + 0x00 + data).
// The null byte keeps the domain/data boundary unambiguous.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// ReminderKey is the stable identity of "the reminder for event on date".
// Event names are NFC normalized so visually identical names from
// different timetable sources produce the same key.
func ReminderKey(eventName string, date Date) string {
	var b strings.Builder
	b.WriteString(norm.NFC.String(strings.TrimSpace(eventName)))
	b.WriteByte(0x1f)
	b.WriteString(date.String())
	return hashWithDomain(DomainReminder, []byte(b.String()))
}
