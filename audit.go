package authcore

import (
	"io"

	"github.com/rs/zerolog"

	"github.com/cignalottu/authcore/internal/audit"
)

type (
	// AuditEvent is one authentication outcome delivered to an AuditSink.
	AuditEvent = audit.Event
	AuditSink  = audit.Sink
)

// NewLogAuditSink writes events through log.
func NewLogAuditSink(log zerolog.Logger) AuditSink {
	return audit.NewLogSink(log)
}

// NewJSONAuditSink writes newline-delimited JSON events to w.
func NewJSONAuditSink(w io.Writer) AuditSink {
	return audit.NewJSONWriterSink(w)
}

// NewChannelAuditSink returns a sink that forwards events to a buffered
// channel, and that channel.
func NewChannelAuditSink(buffer int) (AuditSink, <-chan AuditEvent) {
	s := audit.NewChannelSink(buffer)
	return s, s.Events()
}
