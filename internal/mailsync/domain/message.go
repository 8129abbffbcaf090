package domain

import (
	"strings"
	"time"
)

// Bodies holds the decoded message bodies. Either field may be empty; callers
// must treat both as optional.
type Bodies struct {
	HTML string
	Text string
}

// Message is one fetched mail message, reduced to the fields the applicant
// mapper consumes. Headers are keyed by lower-cased header name.
type Message struct {
	ID         string
	ThreadID   string
	Subject    string
	Snippet    string
	Headers    map[string]string
	Bodies     Bodies
	ReceivedAt time.Time
}

// Header returns the value of a header by case-insensitive name.
func (m *Message) Header(name string) string {
	if m.Headers == nil {
		return ""
	}
	return m.Headers[strings.ToLower(name)]
}
