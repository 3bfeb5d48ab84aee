// Package calendar turns a meeting summary into follow-up event suggestions
// and renders them as an iCalendar (RFC 5545) document.
//
// Suggestions are deterministic for a given summary and reference time: the
// same input always yields the same titles, times, and event ids.
package calendar
