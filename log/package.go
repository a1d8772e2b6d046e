// Package log defines the logging interface for hierlock.
//
// The lock manager does not pick a logging framework for
// its users. Instead it logs through the Log interface,
// tagging each record with a topic, so that callers can
// filter what they are interested in before any record
// is formatted.
package log

import (
	"strings"

	"github.com/pkg/errors"
)

// Topics specify the masks of the logger topic.
//
// The logger will query and see if the current logging
// topic has been enabled, so that it won't spend time on
// generating log calls that is not required.
type Topics int

const (
	// TopicCall records the arguments and result of each
	// lock, unlock and upgrade request.
	//
	// This affects `Log.Call` and `Log.Return` interface.
	// They won't be called if TopicCall is not enabled.
	TopicCall Topics = 1 << iota

	// TopicVerdict records why a request was denied.
	TopicVerdict

	// TopicTrace records counter propagation through
	// ancestors and descendants.
	TopicTrace

	// TopicError records requests that collided with a
	// concurrent request and were rolled back.
	TopicError
)

const (
	AllTopics = Topics(0) |
		TopicCall |
		TopicVerdict |
		TopicTrace |
		TopicError
)

var topicNames = []struct {
	topic Topics
	name  string
}{
	{TopicCall, "call"},
	{TopicVerdict, "verdict"},
	{TopicTrace, "trace"},
	{TopicError, "error"},
}

func (t Topics) String() string {
	var names []string
	for _, tn := range topicNames {
		if t&tn.topic != 0 {
			names = append(names, tn.name)
		}
	}
	return strings.Join(names, ",")
}

// ParseTopics converts a comma separated list such as
// "call,verdict" into a topic mask. "all" and "none"
// are accepted as shorthands.
func ParseTopics(s string) (Topics, error) {
	var result Topics
	for _, field := range strings.Split(s, ",") {
		field = strings.ToLower(strings.TrimSpace(field))
		switch field {
		case "", "none":
			continue
		case "all":
			result |= AllTopics
			continue
		}
		found := false
		for _, tn := range topicNames {
			if tn.name == field {
				result |= tn.topic
				found = true
				break
			}
		}
		if !found {
			return 0, errors.Errorf("unknown log topic %q", field)
		}
	}
	return result, nil
}

// M is the shorthand for `map[string]any`.
type M = map[string]any

// Log is the logger interface.
type Log interface {
	// Check if any of the topic is enabled.
	Enabled(Topics) bool

	// Call records the calling arguments of a function.
	//
	// The function will need to generate a cookie for call,
	// so that it can be to associate the result.
	Call(name string, args M) string

	// Return records the calling result of a function.
	//
	// The previously generated cookie for call will be used.
	Return(name, cookie string, rets M)

	// Log with the specified topics.
	Log(topics Topics, msg string)

	// Logf with the specified topics.
	Logf(topics Topics, msg string, args ...any)
}

// NoLog is the null implementation of the Log.
type NoLog struct{}

func (NoLog) Enabled(Topics) bool                         { return false }
func (NoLog) Call(string, M) string                       { return "" }
func (NoLog) Log(topics Topics, msg string)               {}
func (NoLog) Logf(topics Topics, msg string, args ...any) {}
func (NoLog) Return(name, cookie string, rets M)          {}

var _ Log = (*NoLog)(nil)
