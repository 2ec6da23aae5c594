package config

import (
	"regexp"

	"gopkg.in/yaml.v3"

	"github.com/libgrip/libgrip/internal/device"
	"github.com/libgrip/libgrip/internal/trigger"
)

// Model is the fully decoded and built configuration: every device rule
// and every handler's gesture set, ready to install on a running
// supervisor/chain.
type Model struct {
	DeviceRules            []device.Rule
	Handlers               map[string]HandlerConfig
	EmergencyCombination   []uint16
	Autoreload             bool
	NotifyConfigError      bool
	ExternalVariableAccess bool
}

// HandlerConfig is one handler's (keyboard/mouse/pointer/touchpad/
// touchscreen) built gesture list.
type HandlerConfig struct {
	Gestures []*trigger.Config
}

type rawDocument struct {
	DeviceRules []rawDeviceRule       `yaml:"device_rules"`
	Keyboard    *rawHandler           `yaml:"keyboard"`
	Mouse       *rawHandler           `yaml:"mouse"`
	Pointer     *rawHandler           `yaml:"pointer"`
	Touchpad    *rawHandler           `yaml:"touchpad"`
	Touchscreen *rawHandler           `yaml:"touchscreen"`
	Emergency   []string              `yaml:"emergency_combination"`
	Autoreload  bool                  `yaml:"autoreload"`
	Notifications struct {
		ConfigError bool `yaml:"config_error"`
	} `yaml:"notifications"`
	ExternalVariableAccess bool `yaml:"external_variable_access"`
}

type rawHandler struct {
	Gestures []*GestureSpec `yaml:"gestures"`
}

type rawDeviceRule struct {
	Condition rawDeviceCondition `yaml:"condition"`
	Properties rawProperties     `yaml:"properties"`
}

type rawDeviceCondition struct {
	NameContains string   `yaml:"name_contains"`
	NamePattern  string   `yaml:"name_pattern"`
	Types        []string `yaml:"types"`
}

type rawProperties struct {
	Grab                 *bool    `yaml:"grab"`
	Ignore               *bool    `yaml:"ignore"`
	HandleLibevdevEvents *bool    `yaml:"handle_libevdev_events"`
	MultiTouch           *bool    `yaml:"multi_touch"`
	TapToClick           *rawTapToClick `yaml:"tap_to_click"`
	FingerPressure       *float64 `yaml:"finger_pressure"`
	ThumbPressure        *float64 `yaml:"thumb_pressure"`
	PalmPressure         *float64 `yaml:"palm_pressure"`
	MousePressTimeoutMS  *int64   `yaml:"mouse_press_timeout_ms"`
	MouseMotionTimeoutMS *int64   `yaml:"mouse_motion_timeout_ms"`
	TouchpadClickMS      *int64   `yaml:"touchpad_click_timeout_ms"`
	MotionThreshold      *float64 `yaml:"motion_threshold"`
	SwipeDeltaMultiplier *float64 `yaml:"swipe_delta_multiplier"`
}

type rawTapToClick struct {
	OneFinger   string `yaml:"one_finger"`
	TwoFinger   string `yaml:"two_finger"`
	ThreeFinger string `yaml:"three_finger"`
}

var deviceTypeByName = map[string]device.Type{
	"keyboard": device.TypeKeyboard, "mouse": device.TypeMouse,
	"touchpad": device.TypeTouchpad, "touchscreen": device.TypeTouchscreen,
}

// Decode parses raw YAML bytes and builds a Model, collecting every hard
// error and warning into the returned MultiError. A non-nil Model is
// still returned alongside a MultiError with HasErrors() true so callers
// that want partial information (e.g. a config-check CLI command) have
// it, but Load (see sentinel.go) refuses to install it.
func Decode(data []byte, col Collaborators) (*Model, *MultiError) {
	errs := newMultiError()

	var raw rawDocument
	if err := yaml.Unmarshal(data, &raw); err != nil {
		errs.add(newError(ErrInvalidNodeType, Position{}, "document: %v", err))
		return nil, errs
	}

	model := &Model{
		Handlers:               make(map[string]HandlerConfig),
		Autoreload:             raw.Autoreload,
		NotifyConfigError:      raw.Notifications.ConfigError,
		ExternalVariableAccess: raw.ExternalVariableAccess,
	}

	for _, name := range raw.Emergency {
		code, ok := keyCodeByName[name]
		if !ok {
			errs.add(newError(ErrInvalidValue, Position{}, "emergency_combination: unknown key %q", name))
			continue
		}
		model.EmergencyCombination = append(model.EmergencyCombination, code)
	}

	model.DeviceRules = buildDeviceRules(raw.DeviceRules, errs)

	for name, h := range map[string]*rawHandler{
		"keyboard": raw.Keyboard, "mouse": raw.Mouse, "pointer": raw.Pointer,
		"touchpad": raw.Touchpad, "touchscreen": raw.Touchscreen,
	} {
		if h == nil {
			continue
		}
		seen := make(map[string]bool)
		var gestures []*trigger.Config
		for _, g := range h.Gestures {
			if seen[g.id] {
				errs.add(newError(ErrDuplicateSetItem, g.pos, "handler %q: duplicate gesture id %q", name, g.id))
				continue
			}
			seen[g.id] = true
			cfg, gerrs := g.Build(col)
			if gerrs != nil {
				for _, e := range gerrs.Errors() {
					errs.add(e)
				}
			}
			gestures = append(gestures, cfg)
		}
		model.Handlers[name] = HandlerConfig{Gestures: gestures}
	}

	if errs.HasErrors() {
		return model, errs
	}
	return model, nil
}

func buildDeviceRules(raw []rawDeviceRule, errs *MultiError) []device.Rule {
	rules := make([]device.Rule, 0, len(raw))
	for _, r := range raw {
		matcher := DeviceMatcher{NameContains: r.Condition.NameContains}
		if r.Condition.NamePattern != "" {
			re, err := regexp.Compile(r.Condition.NamePattern)
			if err != nil {
				errs.add(newError(ErrInvalidValue, Position{}, "device_rules: invalid name_pattern %q: %v", r.Condition.NamePattern, err))
			} else {
				matcher.NamePattern = re
			}
		}
		for _, t := range r.Condition.Types {
			typ, ok := deviceTypeByName[t]
			if !ok {
				errs.add(newError(ErrInvalidValue, Position{}, "device_rules: unknown device type %q", t))
				continue
			}
			matcher.Types = append(matcher.Types, typ)
		}

		props := r.Properties
		rules = append(rules, device.Rule{
			Matcher: matcher,
			Apply:   func(p *device.Properties) { applyProperties(p, props) },
		})
	}
	return rules
}

func applyProperties(p *device.Properties, raw rawProperties) {
	if raw.Grab != nil {
		p.Grab = *raw.Grab
	}
	if raw.Ignore != nil {
		p.Ignore = *raw.Ignore
	}
	if raw.HandleLibevdevEvents != nil {
		p.HandleLibevdevEvents = *raw.HandleLibevdevEvents
	}
	if raw.MultiTouch != nil {
		p.MultiTouch = *raw.MultiTouch
	}
	if raw.TapToClick != nil {
		p.TapToClick = device.ButtonMap{
			OneFinger:   keyCodeByName[raw.TapToClick.OneFinger],
			TwoFinger:   keyCodeByName[raw.TapToClick.TwoFinger],
			ThreeFinger: keyCodeByName[raw.TapToClick.ThreeFinger],
		}
	}
	if raw.FingerPressure != nil {
		p.FingerPressure = *raw.FingerPressure
	}
	if raw.ThumbPressure != nil {
		p.ThumbPressure = *raw.ThumbPressure
	}
	if raw.PalmPressure != nil {
		p.PalmPressure = *raw.PalmPressure
	}
	if raw.MousePressTimeoutMS != nil {
		p.MousePressTimeout = *raw.MousePressTimeoutMS
	}
	if raw.MouseMotionTimeoutMS != nil {
		p.MouseMotionTimeout = *raw.MouseMotionTimeoutMS
	}
	if raw.TouchpadClickMS != nil {
		p.TouchpadClickMS = *raw.TouchpadClickMS
	}
	if raw.MotionThreshold != nil {
		p.MotionThreshold = *raw.MotionThreshold
	}
	if raw.SwipeDeltaMultiplier != nil {
		p.SwipeDeltaMultiplier = *raw.SwipeDeltaMultiplier
	}
}
