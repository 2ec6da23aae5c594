package handler

import (
	"math"
	"time"

	"github.com/libgrip/libgrip/internal/geom"
	"github.com/libgrip/libgrip/internal/log"
	"github.com/libgrip/libgrip/internal/stroke"
	"github.com/libgrip/libgrip/internal/trigger"
)

var motionLog = log.New("handler.motion")

const (
	circleCoastingFriction = 0.02
	circleCoastingInterval = 30 * time.Millisecond
	pi2                    = 2 * math.Pi
)

// speedThreshold pairs a trigger type+direction with the average-delta
// threshold that classifies it Fast vs Slow.
type speedThreshold struct {
	typ       trigger.Type
	threshold float64
}

// Motion handles single-point motion gestures: Swipe, Stroke, Circle.
type Motion struct {
	Base

	MotionThreshold      func() float64 // device.properties.motion_threshold
	SwipeDeltaMultiplier float64
	InputEventsToSample  int

	speedThresholds []speedThreshold

	isDeterminingSpeed       bool
	sampledEvents            int
	accumulatedSampledDelta  float64
	speed                    *trigger.Speed

	swipeDeltas []geom.Point
	swipeUpdates int

	strokeDeltas []geom.Point

	circleTotalDelta     float64
	circlePreviousAngle  float64
	circlePreviousDist   float64
	circleFilterDelta    float64
	circleAdaptiveDelta  float64
	circleIsFirstEvent   bool
	circleCoastTicker    *time.Ticker
	circleStopCoast      chan struct{}
}

func NewMotion(base Base) *Motion {
	m := &Motion{
		Base:                base,
		InputEventsToSample: 3,
		SwipeDeltaMultiplier: 1,
		circleIsFirstEvent:  true,
	}
	m.speedThresholds = []speedThreshold{
		{trigger.TypeSwipe, 20},
		{trigger.TypeCircle, 5},
	}
	return m
}

// ActivateTriggers activates matching triggers and, for any that just
// became Active, arms speed sampling per their declared speed requirement.
// This overrides Base.ActivateTriggers so callers (trigger activation from
// HandleMotion, HandlePinch's conflict handling, etc.) get speed sampling
// for free without a second call site.
func (m *Motion) ActivateTriggers(types ...trigger.Type) trigger.Result {
	result := m.Base.ActivateTriggers(types...)
	if result.Success {
		for _, inst := range m.ActiveTriggers(types...) {
			m.OnActivatingTrigger(inst.Speed)
		}
	}
	return result
}

// EndTriggers ends matching triggers, first giving OnEndingTriggers a
// chance to resolve Stroke triggers against their templates. Overrides
// Base.EndTriggers so every SinglePointMotion end path (HandleMotion's
// implicit ends, MultiTouch.TouchUp, chain-level gesture-end events) drives
// stroke matching without a dedicated call site at each one.
func (m *Motion) EndTriggers(types ...trigger.Type) {
	m.OnEndingTriggers(trigger.Mask(types...))
	m.Base.EndTriggers(types...)
}

// CancelTriggers mirrors EndTriggers: a cancelled Stroke gesture still
// has its accumulated deltas compared against templates before
// OnEndingTriggers clears them.
func (m *Motion) CancelTriggers(types ...trigger.Type) {
	m.OnEndingTriggers(trigger.Mask(types...))
	m.Base.CancelTriggers(types...)
}

// HandleMotion processes one pointer-motion delta. Returns whether the
// event should be blocked.
func (m *Motion) HandleMotion(delta geom.Point, acceleratedHypot, unacceleratedHypot float64) bool {
	if !m.HasActiveMask(trigger.SinglePointMotion) {
		return false
	}

	hasStroke := m.HasActiveTriggers(trigger.TypeStroke)
	hasSwipe := m.HasActiveTriggers(trigger.TypeSwipe)
	hasCircle := m.HasActiveTriggers(trigger.TypeCircle)

	if hasStroke {
		m.strokeDeltas = append(m.strokeDeltas, delta)
	}
	if hasSwipe {
		m.swipeDeltas = append([]geom.Point{delta}, m.swipeDeltas...)
	}

	speedType := trigger.TypeSwipe
	if hasCircle && !hasSwipe {
		speedType = trigger.TypeCircle
	}
	if !m.determineSpeed(speedType, unacceleratedHypot) {
		return true
	}

	events := map[trigger.Type]trigger.UpdateEvent{}
	block := false

	if hasCircle {
		block = m.handleCircle(delta, events)
	}

	if hasSwipe {
		threshold := 0.0
		if m.MotionThreshold != nil {
			threshold = m.MotionThreshold()
		}
		var total geom.Point
		consumed := 0
		reached := false
		for i, d := range m.swipeDeltas {
			total = total.Add(d)
			consumed = i + 1
			if geom.Hypot(total) >= threshold {
				reached = true
				break
			}
		}
		if !reached {
			return m.HasActiveBlockingTriggers(trigger.TypeSwipe)
		}
		m.swipeDeltas = m.swipeDeltas[:consumed]

		// Up should be 90 degrees, not 270; Y is inverted for both the
		// instantaneous and moving-average angle.
		current := geom.Point{X: delta.X, Y: -delta.Y}
		totalFlipped := geom.Point{X: total.X, Y: -total.Y}
		angle := geom.Atan2Deg360(current)
		averageAngle := geom.Atan2Deg360(totalFlipped.Div(float64(len(m.swipeDeltas))))

		if m.swipeUpdates == 0 {
			m.eliminateMismatchedSwipeDirections(angle)
		}

		events[trigger.TypeSwipe] = trigger.UpdateEvent{
			Delta: trigger.Delta{
				Accelerated:   acceleratedHypot,
				Unaccelerated: unacceleratedHypot,
			},
			PointDX:      delta.X * m.SwipeDeltaMultiplier,
			PointDY:      delta.Y * m.SwipeDeltaMultiplier,
			Angle:        angle,
			AverageAngle: averageAngle,
		}
	}

	if hasStroke {
		events[trigger.TypeStroke] = trigger.UpdateEvent{
			Delta: trigger.Delta{Accelerated: acceleratedHypot, Unaccelerated: unacceleratedHypot},
		}
	}

	result := m.UpdateTriggers(events)
	if result.Success {
		m.swipeUpdates++
	} else if hasSwipe && m.swipeUpdates > 0 {
		m.ActivateTriggers(trigger.TypeSwipe)
		return m.HandleMotion(delta, acceleratedHypot, unacceleratedHypot)
	}
	return result.Block || block
}

// eliminateMismatchedSwipeDirections cancels Active Swipe triggers whose
// declared compass direction does not match the angle observed once the
// motion threshold was first crossed.
func (m *Motion) eliminateMismatchedSwipeDirections(angle float64) {
	for _, inst := range m.ActiveTriggers(trigger.TypeSwipe) {
		if inst.Direction != trigger.DirectionNone && !inst.Direction.MatchesSwipeAngle(angle) {
			m.Triggers.CancelOne(inst)
		}
	}
}

// handleCircle runs the adaptive angle filter and fills in a Circle update
// event if a direction could be determined.
func (m *Motion) handleCircle(delta geom.Point, events map[trigger.Type]trigger.UpdateEvent) bool {
	m.startCircleCoasting()

	angle := math.Atan2(delta.Y, delta.X)
	angleDelta := angle - m.circlePreviousAngle
	angleDelta -= float64(int(angleDelta/pi2)) * pi2
	if angleDelta < 0 {
		angleDelta += pi2
	}
	if angleDelta > math.Pi {
		angleDelta -= pi2
	}

	absAngleDelta := math.Abs(angleDelta)
	distance := geom.Hypot(delta)

	if absAngleDelta > 0.5 {
		angleDelta = 0.5 * angleDelta / absAngleDelta
	}

	angleDeltaError := math.Pow(angleDelta-m.circleFilterDelta, 2)
	m.circleFilterDelta = (angleDelta + m.circleFilterDelta) / 2

	minDistance := math.Min(distance, m.circlePreviousDist)
	distanceFactor := math.Log(1 + minDistance/10)

	weight := math.Min(absAngleDelta*distanceFactor/(1+angleDeltaError*100), 1.0)
	m.circleAdaptiveDelta = angleDelta*weight + m.circleAdaptiveDelta*(1-weight)

	m.circlePreviousAngle = angle
	m.circlePreviousDist = distance

	if m.circleIsFirstEvent {
		m.circleIsFirstEvent = false
		return m.HasActiveBlockingTriggers(trigger.TypeCircle)
	}

	cubed := math.Pow(m.circleAdaptiveDelta, 3) * 10000
	m.circleTotalDelta += cubed

	if m.circleTotalDelta == 0 {
		return m.HasActiveBlockingTriggers(trigger.TypeCircle)
	}

	events[trigger.TypeCircle] = trigger.UpdateEvent{
		Delta: trigger.Delta{Accelerated: cubed, Unaccelerated: cubed},
	}
	return false
}

func (m *Motion) startCircleCoasting() {
	if m.circleCoastTicker != nil {
		return
	}
	m.circleCoastTicker = time.NewTicker(circleCoastingInterval)
	m.circleStopCoast = make(chan struct{})
	go func(ticker *time.Ticker, stop chan struct{}) {
		for {
			select {
			case <-ticker.C:
				m.onCircleCoastingTick()
			case <-stop:
				return
			}
		}
	}(m.circleCoastTicker, m.circleStopCoast)
}

func (m *Motion) stopCircleCoasting() {
	if m.circleCoastTicker == nil {
		return
	}
	m.circleCoastTicker.Stop()
	close(m.circleStopCoast)
	m.circleCoastTicker = nil
	m.circleStopCoast = nil
}

// onCircleCoastingTick decays the circle filter so a quick flick continues
// a "circle" briefly after input stops.
func (m *Motion) onCircleCoastingTick() {
	if !m.HasActiveTriggers(trigger.TypeCircle) {
		m.stopCircleCoasting()
		return
	}
	switch {
	case m.circleAdaptiveDelta > circleCoastingFriction:
		m.circleAdaptiveDelta -= circleCoastingFriction
	case m.circleAdaptiveDelta < -circleCoastingFriction:
		m.circleAdaptiveDelta += circleCoastingFriction
	default:
		m.circleAdaptiveDelta = 0
		m.stopCircleCoasting()
	}
	m.circleFilterDelta = 0
}

// determineSpeed samples the first InputEventsToSample events and
// classifies Fast/Slow against the registered threshold for typ. Returns
// false while still sampling; callers must not emit updates in that case.
func (m *Motion) determineSpeed(typ trigger.Type, delta float64) bool {
	if !m.isDeterminingSpeed {
		return true
	}

	var threshold float64
	found := false
	for _, t := range m.speedThresholds {
		if t.typ == typ {
			threshold = t.threshold
			found = true
			break
		}
	}
	if !found {
		motionLog.Warnf("no matching speed threshold for trigger type %v, assuming fast", typ)
		speed := trigger.SpeedFast
		m.speed = &speed
		m.isDeterminingSpeed = false
		m.eliminateMismatchedSpeed()
		return false
	}

	m.sampledEvents++
	if m.sampledEvents != m.InputEventsToSample {
		m.accumulatedSampledDelta += math.Abs(delta)
		return false
	}

	m.isDeterminingSpeed = false
	avg := m.accumulatedSampledDelta / float64(m.InputEventsToSample)
	speed := trigger.SpeedSlow
	if avg >= threshold {
		speed = trigger.SpeedFast
	}
	m.speed = &speed
	m.eliminateMismatchedSpeed()
	return true
}

// eliminateMismatchedSpeed cancels Active Swipe/Circle triggers whose
// declared speed requirement does not match m.speed, once it has been
// determined.
func (m *Motion) eliminateMismatchedSpeed() {
	if m.speed == nil {
		return
	}
	for _, inst := range append(m.ActiveTriggers(trigger.TypeSwipe), m.ActiveTriggers(trigger.TypeCircle)...) {
		if inst.Speed != nil && *inst.Speed != trigger.SpeedAny && *inst.Speed != *m.speed {
			m.Triggers.CancelOne(inst)
		}
	}
}

// OnActivatingTrigger must be called by the owning chain whenever a
// SinglePointMotion trigger activates, so speed sampling starts if needed.
func (m *Motion) OnActivatingTrigger(speedRequirement *trigger.Speed) {
	if !m.isDeterminingSpeed && speedRequirement != nil && *speedRequirement != trigger.SpeedAny {
		m.isDeterminingSpeed = true
		m.sampledEvents = 0
		m.accumulatedSampledDelta = 0
	}
}

// OnEndingTriggers must be called by the owning chain when SinglePointMotion
// triggers are ending, so the collected stroke (if any) can be compared
// against every Active Stroke trigger's templates.
func (m *Motion) OnEndingTriggers(types trigger.Types) {
	if len(m.strokeDeltas) == 0 || !types.Has(trigger.TypeStroke) {
		return
	}

	live := stroke.New(m.strokeDeltas)
	var best *trigger.Instance
	bestScore := 0.0

	for _, inst := range m.ActiveTriggers(trigger.TypeStroke) {
		if !inst.CanEnd(m.Triggers.Context()) {
			continue
		}
		for _, tmpl := range inst.StrokeTemplates {
			score := live.Compare(tmpl)
			if score > bestScore && score > stroke.MinMatchingScore {
				best = inst
				bestScore = score
			}
		}
	}
	motionLog.Debugf("stroke compared (points: %d, bestScore: %g)", len(live.Points()), bestScore)

	if best != nil {
		for _, inst := range m.ActiveTriggers(trigger.TypeStroke) {
			if inst != best {
				m.Triggers.CancelOne(inst)
			}
		}
		m.Triggers.EndOne(best)
	} else {
		// Base.CancelTriggers, not m.CancelTriggers: the latter re-enters
		// OnEndingTriggers, and since nothing here mutates trigger state
		// that call would hit this same branch and recurse forever.
		m.Base.CancelTriggers(trigger.TypeStroke)
	}
	m.strokeDeltas = nil
}

func (m *Motion) Reset() {
	m.Base.Reset()
	m.speed = nil
	m.isDeterminingSpeed = false
	m.circleIsFirstEvent = true
	m.strokeDeltas = nil
	m.sampledEvents = 0
	m.accumulatedSampledDelta = 0
	m.circlePreviousAngle = 0
	m.circlePreviousDist = 0
	m.circleFilterDelta = 0
	m.circleAdaptiveDelta = 0
	m.circleTotalDelta = 0
	m.stopCircleCoasting()
	m.swipeDeltas = nil
	m.swipeUpdates = 0
}
