package config

import (
	"testing"

	"github.com/libgrip/libgrip/internal/device"
)

func TestDecodeBuildsHandlerGestures(t *testing.T) {
	model, errs := Decode([]byte(`
touchpad:
  gestures:
    - id: swipe-left
      type: swipe
      direction: left
      actions:
        - on: end
          sleep_ms: 1
`), Collaborators{})
	if errs != nil {
		t.Fatalf("unexpected errors: %v", errs.Errors())
	}
	hc, ok := model.Handlers["touchpad"]
	if !ok || len(hc.Gestures) != 1 || hc.Gestures[0].ID != "swipe-left" {
		t.Fatalf("expected one built touchpad gesture, got %+v", hc)
	}
}

func TestDecodeRejectsDuplicateGestureID(t *testing.T) {
	_, errs := Decode([]byte(`
touchpad:
  gestures:
    - id: dup
      type: swipe
      actions:
        - on: end
          sleep_ms: 1
    - id: dup
      type: tap
      actions:
        - on: end
          sleep_ms: 1
`), Collaborators{})
	if errs == nil || !errs.HasErrors() {
		t.Fatalf("expected a duplicate gesture id error")
	}
}

func TestDecodeResolvesEmergencyCombination(t *testing.T) {
	model, errs := Decode([]byte(`
emergency_combination: [leftctrl, leftalt, esc]
`), Collaborators{})
	if errs != nil {
		t.Fatalf("unexpected errors: %v", errs.Errors())
	}
	if len(model.EmergencyCombination) != 3 {
		t.Fatalf("expected 3 resolved key codes, got %v", model.EmergencyCombination)
	}
}

func TestDecodeUnknownEmergencyKeyIsAnError(t *testing.T) {
	_, errs := Decode([]byte(`
emergency_combination: [not_a_real_key]
`), Collaborators{})
	if errs == nil || !errs.HasErrors() {
		t.Fatalf("expected an error for an unknown emergency_combination key")
	}
}

func TestDecodeAutoreloadAndNotificationFlags(t *testing.T) {
	model, errs := Decode([]byte(`
autoreload: true
notifications:
  config_error: true
external_variable_access: true
`), Collaborators{})
	if errs != nil {
		t.Fatalf("unexpected errors: %v", errs.Errors())
	}
	if !model.Autoreload || !model.NotifyConfigError || !model.ExternalVariableAccess {
		t.Errorf("expected all three top-level flags to carry through, got %+v", model)
	}
}

func TestDeviceRulesLayerOntoDefaults(t *testing.T) {
	model, errs := Decode([]byte(`
device_rules:
  - condition: {}
    properties:
      grab: false
  - condition:
      name_contains: "Synaptics"
      types: [touchpad]
    properties:
      motion_threshold: 12
`), Collaborators{})
	if errs != nil {
		t.Fatalf("unexpected errors: %v", errs.Errors())
	}

	mouseProps := device.Resolve("Logitech Mouse", device.TypeMouse, model.DeviceRules)
	if mouseProps.Grab != false {
		t.Errorf("expected the catch-all rule to override Grab to false for every device")
	}
	if mouseProps.MotionThreshold != device.DefaultProperties().MotionThreshold {
		t.Errorf("a mouse should not pick up the touchpad-only motion_threshold override")
	}

	touchpadProps := device.Resolve("Synaptics TouchPad", device.TypeTouchpad, model.DeviceRules)
	if touchpadProps.Grab != false {
		t.Errorf("expected the catch-all rule to apply to the touchpad too (declared first)")
	}
	if touchpadProps.MotionThreshold != 12 {
		t.Errorf("expected the matching touchpad rule to override MotionThreshold to 12, got %v", touchpadProps.MotionThreshold)
	}
}

func TestDeviceRulesInvalidNamePatternIsAnError(t *testing.T) {
	_, errs := Decode([]byte(`
device_rules:
  - condition:
      name_pattern: "("
    properties:
      grab: false
`), Collaborators{})
	if errs == nil || !errs.HasErrors() {
		t.Fatalf("expected an error for an invalid name_pattern regex")
	}
}

func TestDeviceRulesUnknownTypeIsAnError(t *testing.T) {
	_, errs := Decode([]byte(`
device_rules:
  - condition:
      types: [not_a_real_type]
    properties:
      grab: false
`), Collaborators{})
	if errs == nil || !errs.HasErrors() {
		t.Fatalf("expected an error for an unrecognized device type in device_rules")
	}
}

func TestDecodeInvalidYAMLReturnsNilModel(t *testing.T) {
	model, errs := Decode([]byte(`: not valid yaml :::`), Collaborators{})
	if model != nil {
		t.Errorf("expected a nil model for unparsable YAML")
	}
	if errs == nil || !errs.HasErrors() {
		t.Fatalf("expected a MultiError for unparsable YAML")
	}
}
