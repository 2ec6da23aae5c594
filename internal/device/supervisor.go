package device

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	evdev "github.com/gvalkov/golang-evdev"

	"github.com/libgrip/libgrip/internal/action"
	"github.com/libgrip/libgrip/internal/condition"
	"github.com/libgrip/libgrip/internal/handler"
	"github.com/libgrip/libgrip/internal/log"
	"github.com/libgrip/libgrip/internal/trigger"
)

var supervisorLog = log.New("device.supervisor")

// blockedResetTimeout bounds how long the supervisor will hold a
// touchpad/touchscreen's virtual state out of sync with its physical
// state while the handler chain is blocking frames mid-gesture. If no
// unblocked frame arrives before this fires, the virtual device is force
// synced to neutral so a stuck gesture can never wedge the output device.
const blockedResetTimeout = 200 * time.Millisecond

// emergencyChord is the real (not virtual) key combination that, held for
// emergencyHoldDuration, forces every grabbed device to release and the
// handler chain to reset, so a misbehaving rule can never lock out input.
var emergencyChord = []uint16{14, 57, 28} // KEY_BACKSPACE, KEY_SPACE, KEY_ENTER

const emergencyHoldDuration = 2 * time.Second

// managedDevice is one grabbed or passively-observed input device: its
// real file handle, its injection/output mirrors (when grabbed), its
// per-device translator and physical/virtual state, and the handler chain
// entries it drives.
type managedDevice struct {
	name       string
	devType    Type
	handlerTyp handler.DeviceType
	real       *evdev.InputDevice
	props      Properties

	injection *Mirror // receives the frames the chain did not block
	output    *Mirror // always receives the frame verbatim, downstream mirror

	translator *Translator
	physical   *PhysicalState
	virtual    *VirtualState

	blockedSince time.Time
	resetTimer   *time.Timer
}

// Supervisor owns every grabbed/observed device, translates its frames
// into handler.Events, dispatches them through the Chain, and replays
// onto the injection/output mirrors according to the chain's block
// decision. It also watches /dev/input for hotplug and detects the
// emergency-release chord.
type Supervisor struct {
	mu       sync.Mutex
	chain    *handler.Chain
	ctx      *condition.Context
	executor *action.Executor
	rules    []Rule
	devices  map[string]*managedDevice

	touchpadGestures    []*trigger.Config
	touchscreenGestures []*trigger.Config

	keysHeldSince map[uint16]time.Time

	watcher *fsnotify.Watcher
	stopCh  chan struct{}
}

func NewSupervisor(chain *handler.Chain, ctx *condition.Context, executor *action.Executor, rules []Rule) *Supervisor {
	return &Supervisor{
		chain:         chain,
		ctx:           ctx,
		executor:      executor,
		rules:         rules,
		devices:       make(map[string]*managedDevice),
		keysHeldSince: make(map[uint16]time.Time),
		stopCh:        make(chan struct{}),
	}
}

// SetRules replaces the device-property rule set, used when the
// configuration file is reloaded; already-resolved Properties are left in
// place until the owning device's next hotplug cycle.
func (s *Supervisor) SetRules(rules []Rule) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rules = rules
}

// SetGestureConfigs installs the touchpad and touchscreen gesture sets a
// configuration reload produced. Already-managed devices keep whatever
// triggers their handler was built with; new config only takes effect on
// a device's next grab, matching SetRules' hotplug-cycle semantics.
func (s *Supervisor) SetGestureConfigs(touchpad, touchscreen []*trigger.Config) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touchpadGestures = touchpad
	s.touchscreenGestures = touchscreen
}

// Initialize scans /dev/input, opens every usable event device, and
// starts reading each on its own goroutine.
func (s *Supervisor) Initialize() error {
	entries, err := evdev.ListInputDevices("/dev/input/event*")
	if err != nil {
		return fmt.Errorf("list input devices: %w", err)
	}
	for _, d := range entries {
		if err := s.addDevice(d.Fn); err != nil {
			supervisorLog.Warnf("skipping %s: %v", d.Fn, err)
		}
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("fsnotify: %w", err)
	}
	if err := watcher.Add("/dev/input"); err != nil {
		watcher.Close()
		return fmt.Errorf("watch /dev/input: %w", err)
	}
	s.watcher = watcher
	go s.watchHotplug()

	return nil
}

func classify(name string) Type {
	lower := strings.ToLower(name)
	switch {
	case strings.Contains(lower, "touchscreen"):
		return TypeTouchscreen
	case strings.Contains(lower, "touchpad"):
		return TypeTouchpad
	case strings.Contains(lower, "keyboard"):
		return TypeKeyboard
	default:
		return TypeMouse
	}
}

func toHandlerType(t Type) handler.DeviceType {
	switch t {
	case TypeKeyboard:
		return handler.DeviceKeyboard
	case TypeTouchpad:
		return handler.DeviceTouchpad
	case TypeTouchscreen:
		return handler.DeviceTouchscreen
	default:
		return handler.DeviceMouse
	}
}

func (s *Supervisor) addDevice(path string) error {
	real, err := evdev.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}

	s.mu.Lock()
	typ := classify(real.Name)
	props := Resolve(real.Name, typ, s.rules)
	s.mu.Unlock()

	if props.Ignore {
		real.File.Close()
		return nil
	}

	md := &managedDevice{
		name:       real.Name,
		devType:    typ,
		handlerTyp: toHandlerType(typ),
		real:       real,
		props:      props,
		physical:   NewPhysicalState(),
		virtual:    NewVirtualState(),
	}
	md.translator = NewTranslator(md.name, md.handlerTyp, md.physical)

	if props.Grab {
		if err := real.Grab(); err != nil {
			supervisorLog.Warnf("grab %s failed, running ungrabbed: %v", md.name, err)
		} else {
			if inj, err := OpenMirror(real, md.name+" (internal)"); err != nil {
				supervisorLog.Warnf("injection mirror for %s failed: %v", md.name, err)
			} else {
				md.injection = inj
			}
			if out, err := OpenMirror(real, md.name+" (output)"); err != nil {
				supervisorLog.Warnf("output mirror for %s failed: %v", md.name, err)
			} else {
				md.output = out
			}
		}
	}

	s.mu.Lock()
	s.devices[md.name] = md
	s.mu.Unlock()

	switch md.handlerTyp {
	case handler.DeviceTouchpad:
		base := handler.NewBase(s.ctx, s.executor)
		mt := handler.NewMultiTouch(handler.NewMotion(base))
		s.mu.Lock()
		for _, cfg := range s.touchpadGestures {
			mt.Triggers.Add(cfg)
		}
		s.mu.Unlock()
		s.chain.AddTouchpad(md.name, mt)
	case handler.DeviceTouchscreen:
		base := handler.NewBase(s.ctx, s.executor)
		ts := handler.NewTouchscreen(base)
		s.mu.Lock()
		for _, cfg := range s.touchscreenGestures {
			ts.Triggers.Add(cfg)
		}
		s.mu.Unlock()
		s.chain.AddTouchscreen(md.name, ts)
	}

	go s.readLoop(md)
	supervisorLog.Infof("managing device %q (grab=%v type=%v)", md.name, props.Grab, typ)
	return nil
}

func (s *Supervisor) readLoop(md *managedDevice) {
	for {
		events, err := md.real.Read()
		if err != nil {
			supervisorLog.Infof("device %q closed: %v", md.name, err)
			s.removeDevice(md.name)
			return
		}
		for _, ev := range events {
			s.handleFrameEvent(md, ev)
		}
	}
}

// handleFrameEvent implements the per-event half of frame handling: feed
// the translator, and on a completed frame (SYN_REPORT) run the dispatch
// pipeline described on handleFrame.
func (s *Supervisor) handleFrameEvent(md *managedDevice, ev evdev.InputEvent) {
	if ev.Type == evdev.EV_KEY {
		s.trackEmergencyChord(ev)
	}

	isSyn := ev.Type == evdev.EV_SYN && ev.Code == evdev.SYN_REPORT
	hlEvents := md.translator.Feed(ev, md.props.HandleLibevdevEvents)

	if !isSyn {
		if md.output != nil {
			md.output.WriteEvent(ev.Type, ev.Code, ev.Value)
		}
		return
	}

	s.handleFrame(md, hlEvents)

	if md.output != nil {
		md.output.WriteEvent(ev.Type, ev.Code, ev.Value)
	}
}

// handleFrame runs the translated events from one SYN_REPORT frame
// through the handler chain and decides what to replay onto the
// injection mirror:
//
//  1. dispatch every derived Event through the chain
//  2. a frame is blocked if any derived Event made the chain return true
//  3. an unblocked frame is forwarded to the injection mirror verbatim
//  4. a blocked frame withholds the injection mirror update and arms
//     the per-device reset timer
//  5. once the device returns to a neutral physical state the reset
//     timer is disarmed and the block latch cleared
func (s *Supervisor) handleFrame(md *managedDevice, events []handler.Event) {
	blocked := false
	s.mu.Lock()
	for _, ev := range events {
		if s.chain.Dispatch(ev) {
			blocked = true
		}
	}
	s.mu.Unlock()

	if blocked {
		s.armBlockedReset(md)
		return
	}

	s.disarmBlockedReset(md)
	if md.injection != nil {
		for _, ev := range events {
			md.injection.WriteEvent(eventTypeFor(ev), ev.Code, int32(ev.Value))
		}
		md.injection.Sync()
	}
}

// eventTypeFor recovers a rough raw evdev type for replay purposes; only
// key/button and keyboard events are replayed onto the injection mirror
// individually; pointer motion/axis forwarding happens through dedicated
// REL writes the mirror already knows how to encode.
func eventTypeFor(ev handler.Event) uint16 {
	switch ev.Kind {
	case handler.EventKeyboardKey, handler.EventPointerButton:
		return 0x01 // EV_KEY
	default:
		return 0x00
	}
}

func (s *Supervisor) armBlockedReset(md *managedDevice) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !md.blockedSince.IsZero() {
		return
	}
	md.blockedSince = time.Now()
	md.resetTimer = time.AfterFunc(blockedResetTimeout, func() {
		s.forceVirtualNeutral(md)
	})
}

func (s *Supervisor) disarmBlockedReset(md *managedDevice) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if md.blockedSince.IsZero() {
		return
	}
	if md.resetTimer != nil {
		md.resetTimer.Stop()
	}
	md.blockedSince = time.Time{}
	if md.physical.Neutral() {
		md.virtual.Slots = make(map[int]*TouchPoint)
		md.virtual.KeysPressed = make(map[uint16]bool)
	}
}

// forceVirtualNeutral synchronizes the virtual device back to neutral
// when a blocking gesture has stalled past blockedResetTimeout, so a
// stuck trigger can never wedge the output permanently.
func (s *Supervisor) forceVirtualNeutral(md *managedDevice) {
	s.mu.Lock()
	defer s.mu.Unlock()
	md.blockedSince = time.Time{}
	md.virtual.Slots = make(map[int]*TouchPoint)
	md.virtual.KeysPressed = make(map[uint16]bool)
	supervisorLog.Debugf("forced virtual state reset on %q after stalled block", md.name)
}

func (s *Supervisor) removeDevice(name string) {
	s.mu.Lock()
	md, ok := s.devices[name]
	if ok {
		delete(s.devices, name)
	}
	s.mu.Unlock()
	if !ok {
		return
	}
	if md.injection != nil {
		md.injection.Close()
	}
	if md.output != nil {
		md.output.Close()
	}
	md.real.Release()
	md.real.File.Close()
}

func (s *Supervisor) watchHotplug() {
	for {
		select {
		case ev, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			if ev.Op&fsnotify.Create == 0 {
				continue
			}
			if !strings.HasPrefix(filepath.Base(ev.Name), "event") {
				continue
			}
			time.Sleep(100 * time.Millisecond)
			if err := s.addDevice(ev.Name); err != nil {
				supervisorLog.Warnf("hotplug add %s failed: %v", ev.Name, err)
			}
		case <-s.stopCh:
			return
		}
	}
}

// trackEmergencyChord watches the real (pre-chain) key state for the
// fixed emergency-release combination; holding it for
// emergencyHoldDuration forces every grabbed device to ungrab and the
// handler chain to reset, a last resort against a rule that blocks input
// indefinitely.
func (s *Supervisor) trackEmergencyChord(ev evdev.InputEvent) {
	now := time.Now()

	s.mu.Lock()
	if ev.Value != 0 {
		// Autorepeat (value 2) must not restart the hold timer.
		if _, held := s.keysHeldSince[ev.Code]; !held {
			s.keysHeldSince[ev.Code] = now
		}
	} else {
		delete(s.keysHeldSince, ev.Code)
	}
	triggered := true
	for _, code := range emergencyChord {
		t, ok := s.keysHeldSince[code]
		if !ok || now.Sub(t) < emergencyHoldDuration {
			triggered = false
			break
		}
	}
	s.mu.Unlock()

	if !triggered {
		return
	}
	supervisorLog.Warnf("emergency release chord detected, releasing all devices")
	s.ReleaseAll()
}

// ReleaseAll ungrabs every device and resets the handler chain, restoring
// normal passthrough without touching running processes.
func (s *Supervisor) ReleaseAll() {
	s.mu.Lock()
	devices := make([]*managedDevice, 0, len(s.devices))
	for _, md := range s.devices {
		devices = append(devices, md)
	}
	s.mu.Unlock()

	for _, md := range devices {
		md.real.Release()
	}
	s.chain.Reset()
}

// Devices lists the names of every currently managed device.
func (s *Supervisor) Devices() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.devices))
	for name := range s.devices {
		names = append(names, name)
	}
	return names
}

// FirstTouchpad returns the name of the first managed touchpad, used by
// the IPC layer to pick a default recording target.
func (s *Supervisor) FirstTouchpad() (string, bool) {
	return s.firstOfType(TypeTouchpad)
}

// FirstTouchscreen returns the name of the first managed touchscreen.
func (s *Supervisor) FirstTouchscreen() (string, bool) {
	return s.firstOfType(TypeTouchscreen)
}

func (s *Supervisor) firstOfType(typ Type) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for name, md := range s.devices {
		if md.devType == typ {
			return name, true
		}
	}
	return "", false
}

// KeyboardModifiers reports which real modifier keys are currently held,
// across every managed keyboard.
func (s *Supervisor) KeyboardModifiers() map[uint16]bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	// KEY_LEFTCTRL, KEY_LEFTSHIFT, KEY_RIGHTSHIFT, KEY_LEFTALT,
	// KEY_RIGHTCTRL, KEY_RIGHTALT, KEY_LEFTMETA, KEY_RIGHTMETA
	modifierKeys := map[uint16]bool{29: true, 42: true, 54: true, 56: true, 97: true, 100: true, 125: true, 126: true}
	mods := make(map[uint16]bool)
	for _, md := range s.devices {
		if md.devType != TypeKeyboard {
			continue
		}
		for code, down := range md.physical.KeysPressed {
			if down && modifierKeys[code] {
				mods[code] = true
			}
		}
	}
	return mods
}

// Reset resets the handler chain and every device's translator state,
// used when a configuration reload invalidates in-flight gesture state.
func (s *Supervisor) Reset() {
	s.mu.Lock()
	devices := make([]*managedDevice, 0, len(s.devices))
	for _, md := range s.devices {
		devices = append(devices, md)
	}
	s.mu.Unlock()

	for _, md := range devices {
		md.translator.Reset()
	}
	s.chain.Reset()
}

// Close stops hotplug watching and releases every managed device.
func (s *Supervisor) Close() error {
	close(s.stopCh)
	if s.watcher != nil {
		s.watcher.Close()
	}
	s.ReleaseAll()

	s.mu.Lock()
	defer s.mu.Unlock()
	for name, md := range s.devices {
		if md.injection != nil {
			md.injection.Close()
		}
		if md.output != nil {
			md.output.Close()
		}
		md.real.File.Close()
		delete(s.devices, name)
	}
	return nil
}

// pidFileGuard detects a fast crash loop: it returns an error if the PID
// file at path exists and was written less than 5 seconds ago, and nil
// otherwise. Nothing in the module calls it; the daemon entrypoint uses its
// own checkPidFile, which refuses to start whenever the PID file exists.
func pidFileGuard(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return nil
	}
	if time.Since(info.ModTime()) < 5*time.Second {
		return fmt.Errorf("previous instance exited less than 5s ago, possible crash loop: %s", path)
	}
	return nil
}
