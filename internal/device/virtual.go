package device

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"time"
	"unsafe"

	evdev "github.com/gvalkov/golang-evdev"
	"golang.org/x/sys/unix"
)

const (
	uinputMaxNameSize = 80

	uiSetEvbit  = 0x40045564
	uiSetKeybit = 0x40045565
	uiSetRelbit = 0x40045566
	uiSetAbsbit = 0x40045567
	uiDevCreate = 0x5501
	uiDevDestroy = 0x5502

	evSyn = 0x00
	evKey = 0x01
	evRel = 0x02
	evAbs = 0x03

	synReport = 0x00
)

type uinputUserDev struct {
	Name       [uinputMaxNameSize]byte
	ID         uinputID
	EffectsMax uint32
	Absmax     [64]int32
	Absmin     [64]int32
	Absfuzz    [64]int32
	Absflat    [64]int32
}

type uinputID struct {
	Bustype uint16
	Vendor  uint16
	Product uint16
	Version uint16
}

// rawFrame mirrors the on-wire evdev input_event layout so a frame can be
// replayed byte-for-byte onto a uinput node.
type rawFrame struct {
	Sec, Usec int64
	Type      uint16
	Code      uint16
	Value     int32
}

// Mirror is one of the two uinput endpoints the supervisor creates per
// grabbed device: the injection clone libinput parses, or the output
// clone downstream consumers see. Both clone the real device's
// EV_KEY/EV_REL/EV_ABS capability bits exactly, generalizing the fixed
// capability list a simple pass-through driver would hardcode.
type Mirror struct {
	f *os.File
}

// OpenMirror creates a uinput device named suffix-decorated after src
// (e.g. "<name> (internal)") cloning src's capability bits.
func OpenMirror(src *evdev.InputDevice, name string) (*Mirror, error) {
	f, err := os.OpenFile("/dev/uinput", os.O_WRONLY|unix.O_NONBLOCK, 0)
	if err != nil {
		return nil, fmt.Errorf("open /dev/uinput: %w", err)
	}

	fd := f.Fd()
	if err := cloneCapabilities(fd, src); err != nil {
		f.Close()
		return nil, err
	}

	var dev uinputUserDev
	copy(dev.Name[:], name)
	dev.ID.Bustype = 0x03
	dev.ID.Vendor = 0x1234
	dev.ID.Product = 0x5678
	dev.ID.Version = 1
	cloneAbsRanges(&dev, src)

	buf := (*[unsafe.Sizeof(uinputUserDev{})]byte)(unsafe.Pointer(&dev))[:]
	if _, err := f.Write(buf); err != nil {
		f.Close()
		return nil, fmt.Errorf("write uinput device info: %w", err)
	}
	if err := unix.IoctlSetInt(int(fd), uiDevCreate, 0); err != nil {
		f.Close()
		return nil, fmt.Errorf("UI_DEV_CREATE: %w", err)
	}

	time.Sleep(50 * time.Millisecond)
	return &Mirror{f: f}, nil
}

// cloneCapabilities sets EV_KEY/EV_REL/EV_ABS/EV_SYN bits on the uinput fd
// to match src, so the resulting device advertises the same capability
// surface libinput (or the compositor) will see on the real one.
func cloneCapabilities(fd uintptr, src *evdev.InputDevice) error {
	setEvBit := map[int]bool{evSyn: true}
	for code, caps := range src.Capabilities {
		var bit, setBit int
		switch code.Type {
		case evdev.EV_KEY:
			bit, setBit = evKey, uiSetKeybit
		case evdev.EV_REL:
			bit, setBit = evRel, uiSetRelbit
		case evdev.EV_ABS:
			bit, setBit = evAbs, uiSetAbsbit
		default:
			continue
		}
		setEvBit[bit] = true
		for _, c := range caps {
			if err := unix.IoctlSetInt(int(fd), uintptr(setBit), int(c.Code)); err != nil {
				return fmt.Errorf("set capability bit %d/%d: %w", bit, c.Code, err)
			}
		}
	}
	for bit := range setEvBit {
		if err := unix.IoctlSetInt(int(fd), uiSetEvbit, bit); err != nil {
			return fmt.Errorf("set evbit %d: %w", bit, err)
		}
	}
	return nil
}

// absInfo holds one EVIOCGABS query's result: value, min, max, fuzz,
// flat, resolution (struct input_absinfo).
type absInfo struct {
	Value, Minimum, Maximum, Fuzz, Flat, Resolution int32
}

// eviocgabs computes the ioctl request number for EVIOCGABS(axis), which
// the kernel defines per-axis since the payload size is fixed but the
// request number encodes the axis: _IOR('E', 0x40+axis, input_absinfo).
func eviocgabs(axis uint16) uintptr {
	const (
		dirRead   = 2
		typeEvdev = 'E'
		size      = 24 // sizeof(struct input_absinfo)
	)
	return uintptr(dirRead<<30 | size<<16 | typeEvdev<<8 | (0x40 + int(axis)))
}

// cloneAbsRanges copies each ABS axis's min/max/fuzz/flat from the real
// device onto the uinput device descriptor, so touch/axis coordinates
// reported by the mirror match the real hardware's range exactly.
func cloneAbsRanges(dev *uinputUserDev, src *evdev.InputDevice) {
	for code, caps := range src.Capabilities {
		if code.Type != evdev.EV_ABS {
			continue
		}
		for _, c := range caps {
			axis := uint16(c.Code)
			if int(axis) >= len(dev.Absmax) {
				continue
			}
			var info absInfo
			_, _, errno := unix.Syscall(unix.SYS_IOCTL, src.File.Fd(), eviocgabs(axis), uintptr(unsafe.Pointer(&info)))
			if errno != 0 {
				continue
			}
			dev.Absmin[axis] = info.Minimum
			dev.Absmax[axis] = info.Maximum
			dev.Absfuzz[axis] = info.Fuzz
			dev.Absflat[axis] = info.Flat
		}
	}
}

// WriteEvent injects one input_event, matching the real device's
// (type, code, value) triple verbatim.
func (m *Mirror) WriteEvent(typ, code uint16, value int32) error {
	now := time.Now()
	frame := rawFrame{
		Sec:   int64(now.Unix()),
		Usec:  int64(now.Nanosecond() / 1000),
		Type:  typ,
		Code:  code,
		Value: value,
	}
	return writeRawFrame(m.f, frame)
}

// Sync emits EV_SYN/SYN_REPORT, closing out one frame.
func (m *Mirror) Sync() error { return m.WriteEvent(evSyn, synReport, 0) }

// ReplayFrame writes every event of a captured evdev frame verbatim,
// preserving order and terminating with its own SYN_REPORT.
func (m *Mirror) ReplayFrame(events []evdev.InputEvent) error {
	for _, ev := range events {
		if err := m.WriteEvent(ev.Type, ev.Code, ev.Value); err != nil {
			return err
		}
	}
	return nil
}

func (m *Mirror) Close() error {
	unix.IoctlSetInt(int(m.f.Fd()), uiDevDestroy, 0)
	return m.f.Close()
}

// writeRawFrame serializes frame in the kernel's struct input_event layout
// (two word-sized timeval fields, then type/code/value) and writes it in
// one call so a partial write can never split an event across syscalls.
func writeRawFrame(w io.Writer, frame rawFrame) error {
	return binary.Write(w, binary.LittleEndian, frame)
}
