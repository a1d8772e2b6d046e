// Package logrus adapts a logrus logger to the log.Log
// interface of hierlock.
package logrus

import (
	"fmt"
	"io"
	"sync/atomic"

	logrus "github.com/sirupsen/logrus"

	"github.com/hierlock/hierlock"
	"github.com/hierlock/hierlock/log"
)

// Logrus forwards the records of a manager to a logrus
// logger. Only the topics in Enable are forwarded.
type Logrus struct {
	Logger  *logrus.Logger
	Enable  log.Topics
	counter atomic.Uint64
}

// New creates a logger writing to out at the named level,
// formatted as "text" or "json".
func New(out io.Writer, level, format string, topics log.Topics) (*Logrus, error) {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	logger := logrus.New()
	logger.SetOutput(out)
	logger.SetLevel(lvl)
	switch format {
	case "", "text":
		logger.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
	case "json":
		logger.SetFormatter(&logrus.JSONFormatter{DisableTimestamp: true})
	default:
		return nil, fmt.Errorf("unknown log format %q", format)
	}
	return &Logrus{
		Logger: logger,
		Enable: topics,
	}, nil
}

func (l *Logrus) Enabled(topics log.Topics) bool {
	return (l.Enable & topics) != 0
}

// level picks the most severe level among the topics.
func level(topics log.Topics) logrus.Level {
	switch {
	case topics&log.TopicError != 0:
		return logrus.WarnLevel
	case topics&log.TopicVerdict != 0:
		return logrus.InfoLevel
	case topics&log.TopicCall != 0:
		return logrus.DebugLevel
	default:
		return logrus.TraceLevel
	}
}

// expand flattens DebugStruct values into one field per
// struct field, named "value.field".
func expand(values log.M) logrus.Fields {
	fields := make(logrus.Fields, len(values))
	for name, value := range values {
		ds, ok := value.(hierlock.DebugStruct)
		if !ok || ds.Fields() == nil {
			fields[name] = value
			continue
		}
		for fieldName, fieldValue := range ds.Fields() {
			fields[name+"."+fieldName] = fieldValue
		}
	}
	return fields
}

func (l *Logrus) record(name, cookie string, values log.M, msg string) {
	l.Logger.WithFields(logrus.Fields{
		"topic":  log.TopicCall.String(),
		"name":   name,
		"cookie": cookie,
	}).WithFields(expand(values)).Log(level(log.TopicCall), msg)
}

func (l *Logrus) Call(name string, args log.M) string {
	if !l.Enabled(log.TopicCall) {
		return ""
	}
	cookie := fmt.Sprintf("%x", l.counter.Add(1))
	l.record(name, cookie, args, "call")
	return cookie
}

func (l *Logrus) Return(name, cookie string, rets log.M) {
	if !l.Enabled(log.TopicCall) {
		return
	}
	l.record(name, cookie, rets, "return")
}

func (l *Logrus) Log(topics log.Topics, msg string) {
	if !l.Enabled(topics) {
		return
	}
	l.Logger.WithField("topic", topics.String()).Log(level(topics), msg)
}

func (l *Logrus) Logf(topics log.Topics, msg string, args ...any) {
	if !l.Enabled(topics) {
		return
	}
	l.Logger.WithField("topic", topics.String()).Logf(level(topics), msg, args...)
}

var _ log.Log = (*Logrus)(nil)
