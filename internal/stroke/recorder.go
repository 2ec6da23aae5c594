package stroke

import (
	"time"

	"github.com/libgrip/libgrip/internal/geom"
)

// RecordTimeout is the quiescence period after which a recording
// auto-finishes if input stops.
const RecordTimeout = 250 * time.Millisecond

// Recorder is the entry point for "recording mode": while active it
// intercepts pointer/touchpad/touchscreen motion from one device, rejects
// all other events from that device, and hands back the built Stroke on
// quiescence, touch-up, or pinch end.
//
// It implements the handler.Handler-shaped passthrough contract (the
// supervisor always runs it first in the chain) but lives in this package
// because it is really just a different Stroke producer, not a
// trigger-matching handler.
type Recorder struct {
	recording bool
	callback  func(Stroke)
	deltas    []geom.Point
	timer     *time.Timer
}

func NewRecorder() *Recorder {
	return &Recorder{}
}

// Record arms the recorder. callback is invoked exactly once, from
// whichever goroutine observes the finishing event (timer or touch-up);
// calling Record again before that happens abandons the previous callback.
func (r *Recorder) Record(callback func(Stroke)) {
	r.recording = true
	r.callback = callback
	r.deltas = nil
	r.resetTimer()
}

func (r *Recorder) resetTimer() {
	if r.timer != nil {
		r.timer.Stop()
	}
	r.timer = time.AfterFunc(RecordTimeout, r.finish)
}

// IsRecording reports whether a recording is in progress; used by the
// handler chain to decide whether to intercept events from the recording
// device ahead of normal trigger matching.
func (r *Recorder) IsRecording() bool { return r.recording }

// Feed appends one motion sample's delta and restarts the quiescence
// timer. Called for pointer motion and touchpad swipe deltas.
func (r *Recorder) Feed(delta geom.Point) {
	if !r.recording {
		return
	}
	if delta.IsZero() {
		r.finish()
		return
	}
	r.deltas = append(r.deltas, delta)
	r.resetTimer()
}

// FinishOnTouchUp is called on touch-up / pinch end, one of the two
// recording-termination triggers alongside the quiescence timer.
func (r *Recorder) FinishOnTouchUp() {
	if r.recording {
		r.finish()
	}
}

func (r *Recorder) finish() {
	if !r.recording {
		return
	}
	r.recording = false
	cb := r.callback
	deltas := r.deltas
	r.callback = nil
	r.deltas = nil
	if cb != nil {
		cb(New(deltas))
	}
}
