package types

import (
	"strings"
	"sync"
	"time"
)

// MarkupKind identifies how a message's markup block was produced
type MarkupKind string

const (
	MarkupCode  MarkupKind = "code"
	MarkupTable MarkupKind = "table"
	MarkupLabel MarkupKind = "label"
)

// Markup is a pre-rendered rich block attached to a message.
// HTML is trusted output of the markup package; Plain is used for text logs.
type Markup struct {
	Kind     MarkupKind
	Language string // Code language for code blocks (xml, json)
	Class    string // CSS class for labels
	HTML     string
	Plain    string
	Console  string // Optional ANSI rendering for terminals, Plain is used when empty
}

// Attachment references a file stored next to the report
type Attachment struct {
	Path string // Relative to the report directory, e.g. "./Screenshots/1_PASSED.png"
}

// Message is a single step recorded against an entry
type Message struct {
	Seq        int
	Severity   Severity
	Text       string
	Time       time.Time
	Attachment *Attachment
	Markup     *Markup
}

// Entry is a named container of report messages for one logical test.
// Messages are append-only.
type Entry struct {
	name    string
	created time.Time

	mu       sync.Mutex
	messages []Message
	status   Severity
}

// NewEntry creates an entry with no messages
func NewEntry(name string, created time.Time) *Entry {
	return &Entry{
		name:    name,
		created: created,
		status:  SeverityPass,
	}
}

// Name returns the entry's unique name
func (e *Entry) Name() string {
	return e.name
}

// Created returns the time the entry was first resolved
func (e *Entry) Created() time.Time {
	return e.created
}

// Append adds a message and returns it with its sequence number assigned.
// Prior messages are never touched.
func (e *Entry) Append(msg Message) Message {
	e.mu.Lock()
	defer e.mu.Unlock()

	if msg.Time.IsZero() {
		msg.Time = time.Now()
	}
	msg.Seq = len(e.messages) + 1
	e.messages = append(e.messages, msg)
	if msg.Severity.Rank() > e.status.Rank() {
		e.status = msg.Severity
	}
	return msg
}

// Messages returns a copy of the recorded messages in append order
func (e *Entry) Messages() []Message {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]Message, len(e.messages))
	copy(out, e.messages)
	return out
}

// Len returns the number of recorded messages
func (e *Entry) Len() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.messages)
}

// Status returns the highest ranked severity recorded so far
func (e *Entry) Status() Severity {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.status
}

// Snapshot returns an immutable view of the entry for renderers
func (e *Entry) Snapshot() EntrySnapshot {
	e.mu.Lock()
	defer e.mu.Unlock()

	msgs := make([]Message, len(e.messages))
	copy(msgs, e.messages)

	var duration time.Duration
	if len(msgs) > 0 {
		duration = msgs[len(msgs)-1].Time.Sub(e.created)
		if duration < 0 {
			duration = 0
		}
	}

	return EntrySnapshot{
		Name:     e.name,
		Created:  e.created,
		Status:   e.status,
		Duration: duration,
		Messages: msgs,
	}
}

// EntrySnapshot is a point-in-time copy of an entry
type EntrySnapshot struct {
	Name     string
	Created  time.Time
	Status   Severity
	Duration time.Duration
	Messages []Message
}

// Count returns how many messages carry the given severity
func (s EntrySnapshot) Count(sev Severity) int {
	n := 0
	for _, m := range s.Messages {
		if m.Severity == sev {
			n++
		}
	}
	return n
}

// SanitizeName strips characters that are not usable in report directory names.
// Parentheses come from display names such as "loginTest()".
func SanitizeName(display string) string {
	return strings.NewReplacer("(", "", ")", "").Replace(strings.TrimSpace(display))
}
