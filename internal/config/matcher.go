package config

import (
	"regexp"
	"strings"

	"github.com/libgrip/libgrip/internal/device"
)

// DeviceMatcher implements device.Matcher from a device_rules entry's
// condition: an optional name substring/regex and an optional type
// restriction. An empty matcher matches every device, used for a
// catch-all rule at the front of the list.
type DeviceMatcher struct {
	NameContains string
	NamePattern  *regexp.Regexp
	Types        []device.Type
}

func (m DeviceMatcher) Matches(name string, typ device.Type) bool {
	if len(m.Types) > 0 {
		ok := false
		for _, t := range m.Types {
			if t == typ {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}
	if m.NameContains != "" && !strings.Contains(strings.ToLower(name), strings.ToLower(m.NameContains)) {
		return false
	}
	if m.NamePattern != nil && !m.NamePattern.MatchString(name) {
		return false
	}
	return true
}
