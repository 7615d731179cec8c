package service

import (
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

const (
	// ProgressNullifierRoot is reported once the nullifier root is known.
	ProgressNullifierRoot uint32 = 75
	// ProgressComplete is reported once the commitment root is known.
	ProgressComplete uint32 = 100
)

var ErrSinkFull = errors.New("progress sink is full")

// ProgressSink receives overall bootstrap progress in [0, 100]. Delivery is
// best effort: a returned error is logged and otherwise ignored.
type ProgressSink interface {
	Send(progress uint32) error
}

// ProgressFunc adapts a plain function to a ProgressSink.
type ProgressFunc func(progress uint32)

func (f ProgressFunc) Send(progress uint32) error {
	f(progress)
	return nil
}

// ChannelSink delivers progress on ch without ever blocking the bootstrap.
// A run emits at most 52 events, so a buffer of that size loses nothing.
type ChannelSink chan<- uint32

func (c ChannelSink) Send(progress uint32) error {
	select {
	case c <- progress:
		return nil
	default:
		return ErrSinkFull
	}
}

// DiscardProgress drops every event.
var DiscardProgress ProgressSink = ProgressFunc(func(uint32) {})

// progressReporter forwards only values that move progress forward, so the
// caller observes a non-decreasing sequence without repeats.
type progressReporter struct {
	sink    ProgressSink
	log     *log.Entry
	last    uint32
	started bool
}

func newProgressReporter(sink ProgressSink, logger *log.Entry) *progressReporter {
	if sink == nil {
		sink = DiscardProgress
	}
	return &progressReporter{sink: sink, log: logger}
}

func (r *progressReporter) report(progress uint32) {
	if progress > ProgressComplete {
		progress = ProgressComplete
	}
	if r.started && progress <= r.last {
		return
	}
	r.started = true
	r.last = progress

	if err := r.sink.Send(progress); err != nil {
		r.log.WithError(err).WithField("progress", progress).Debug("Progress event not delivered")
	}
}
