package trigger

import "testing"

func TestMaskHas(t *testing.T) {
	m := Mask(TypeSwipe, TypeTap)
	if !m.Has(TypeSwipe) || !m.Has(TypeTap) {
		t.Fatal("Mask should include every listed type")
	}
	if m.Has(TypePinch) {
		t.Error("Mask should not include a type that was not listed")
	}
}

func TestSinglePointAndMultiTouchMotionGroups(t *testing.T) {
	if !SinglePointMotion.Has(TypeSwipe) || !SinglePointMotion.Has(TypeStroke) || !SinglePointMotion.Has(TypeCircle) {
		t.Error("SinglePointMotion should cover Swipe, Stroke and Circle")
	}
	if SinglePointMotion.Has(TypePinch) {
		t.Error("SinglePointMotion should not cover Pinch")
	}
	if !MultiTouchMotion.Has(TypePinch) || !MultiTouchMotion.Has(TypeRotate) || !MultiTouchMotion.Has(TypeTap) {
		t.Error("MultiTouchMotion should cover Pinch, Rotate and Tap")
	}
}

func TestOctantsSameExactAndAdjacent(t *testing.T) {
	if !OctantsSame(0, 0) {
		t.Error("identical angles should be in the same octant")
	}
	if !OctantsSame(0, 44) {
		t.Error("angles within one octant should compare same")
	}
	if !OctantsSame(0, 50) {
		t.Error("angles in an adjacent octant should count as same")
	}
	if OctantsSame(0, 180) {
		t.Error("opposite angles should not be considered the same octant")
	}
}

func TestOctantsSameWrapsAroundZero(t *testing.T) {
	// Octant 0 spans 337.5 to 22.5 degrees across the 360/0 wrap, so 350
	// and 5 share it.
	if !OctantsSame(350, 5) {
		t.Error("octants should wrap across the 0/360 boundary")
	}
}

func TestDirectionMatchesSwipeAngle(t *testing.T) {
	cases := []struct {
		dir  Direction
		deg  float64
		want bool
	}{
		{DirectionRight, 0, true},
		{DirectionRight, 180, false},
		{DirectionUp, 90, true},
		{DirectionLeft, 180, true},
		{DirectionDown, 270, true},
		{DirectionNone, 137, true},
	}
	for _, c := range cases {
		if got := c.dir.MatchesSwipeAngle(c.deg); got != c.want {
			t.Errorf("Direction(%v).MatchesSwipeAngle(%v) = %v, want %v", c.dir, c.deg, got, c.want)
		}
	}
}

func TestIntervalMatches(t *testing.T) {
	cases := []struct {
		iv    Interval
		delta float64
		want  bool
	}{
		{Interval{Direction: IntervalAny}, -5, true},
		{Interval{Direction: IntervalAny}, 5, true},
		{Interval{Direction: IntervalPositive}, 5, true},
		{Interval{Direction: IntervalPositive}, -5, false},
		{Interval{Direction: IntervalNegative}, -5, true},
		{Interval{Direction: IntervalNegative}, 5, false},
	}
	for _, c := range cases {
		if got := c.iv.Matches(c.delta); got != c.want {
			t.Errorf("Interval{%v}.Matches(%v) = %v, want %v", c.iv.Direction, c.delta, got, c.want)
		}
	}
}

func TestDeltaPick(t *testing.T) {
	d := Delta{Accelerated: 10, Unaccelerated: 4}
	if d.Pick(true) != 10 {
		t.Error("Pick(true) should return the accelerated magnitude")
	}
	if d.Pick(false) != 4 {
		t.Error("Pick(false) should return the unaccelerated magnitude")
	}
}
