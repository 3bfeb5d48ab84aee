package calendar

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"time"
	"unicode/utf8"
)

// ProductID identifies this application in generated calendars.
const ProductID = "-//Meeting Intelligence//Calendar//EN"

const (
	icsTimeLayout = "20060102T150405Z"
	icsLineOctets = 75
)

var icsEscaper = strings.NewReplacer(`\`, `\\`, ";", `\;`, ",", `\,`, "\r\n", `\n`, "\n", `\n`)

// WriteICS renders suggestions as an RFC 5545 calendar. now stamps every
// event's DTSTAMP.
func WriteICS(w io.Writer, suggestions []Suggestion, now time.Time) error {
	bw := bufio.NewWriter(w)
	lines := []string{
		"BEGIN:VCALENDAR",
		"VERSION:2.0",
		"PRODID:" + ProductID,
		"CALSCALE:GREGORIAN",
		"METHOD:PUBLISH",
	}
	stamp := now.UTC().Format(icsTimeLayout)
	for _, s := range suggestions {
		lines = append(lines,
			"BEGIN:VEVENT",
			"UID:"+s.ID+"@meetingintel",
			"DTSTAMP:"+stamp,
			"DTSTART:"+s.Start.UTC().Format(icsTimeLayout),
			"DTEND:"+s.End.UTC().Format(icsTimeLayout),
			"SUMMARY:"+icsEscaper.Replace(s.Title),
			"DESCRIPTION:"+icsEscaper.Replace(s.Description),
			"STATUS:TENTATIVE",
			"END:VEVENT",
		)
	}
	lines = append(lines, "END:VCALENDAR")
	for _, line := range lines {
		if _, err := bw.WriteString(fold(line)); err != nil {
			return fmt.Errorf("write calendar: %w", err)
		}
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("write calendar: %w", err)
	}
	return nil
}

// fold splits a content line into 75-octet pieces joined by CRLF and a space,
// never cutting inside a UTF-8 sequence.
func fold(line string) string {
	var b strings.Builder
	limit := icsLineOctets
	width := 0
	for _, r := range line {
		size := utf8.RuneLen(r)
		if width+size > limit {
			b.WriteString("\r\n ")
			width = 0
			limit = icsLineOctets - 1
		}
		b.WriteRune(r)
		width += size
	}
	b.WriteString("\r\n")
	return b.String()
}
