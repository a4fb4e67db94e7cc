package router

import (
	"fmt"
	"strings"
)

// LogPriority is the closed set of journalctl severities the Logs command
// accepts in its priority field, normalizing both short syslog-style codes
// (v, d, i, w, e, f) and journalctl's own names to a validated priority
// number before it's spliced into a `journalctl -p` flag.
type LogPriority int

const (
	PriorityEmerg LogPriority = iota
	PriorityAlert
	PriorityCrit
	PriorityErr
	PriorityWarning
	PriorityNotice
	PriorityInfo
	PriorityDebug
)

var priorityNames = map[string]LogPriority{
	"v":       PriorityDebug,
	"d":       PriorityDebug,
	"i":       PriorityInfo,
	"w":       PriorityWarning,
	"e":       PriorityErr,
	"f":       PriorityCrit,
	"debug":   PriorityDebug,
	"info":    PriorityInfo,
	"notice":  PriorityNotice,
	"warning": PriorityWarning,
	"err":     PriorityErr,
	"crit":    PriorityCrit,
	"alert":   PriorityAlert,
	"emerg":   PriorityEmerg,
}

// ParseLogPriority validates and normalizes a user-supplied priority token.
func ParseLogPriority(s string) (LogPriority, error) {
	p, ok := priorityNames[strings.ToLower(strings.TrimSpace(s))]
	if !ok {
		return 0, fmt.Errorf("unknown log priority %q", s)
	}
	return p, nil
}

// journalctlValue is the numeric value journalctl's -p flag expects.
func (p LogPriority) journalctlValue() int {
	return int(p)
}
