// Package ipc defines the data contract between the privileged libgripd
// daemon and its unprivileged per-session clients. Only the message
// shapes and the Server/Client interfaces live here; the dbus connection
// itself, peer-credential authentication, and session activation are an
// external collaborator wired by cmd/libgripd, not this package.
package ipc

import (
	"encoding/json"

	"github.com/godbus/dbus/v5"
)

// BusName and ObjectPath are the well-known dbus addresses a real
// transport would register Server under.
const (
	BusName    = "io.libgrip.Daemon"
	ObjectPath = dbus.ObjectPath("/io/libgrip/Daemon")
)

// ProtocolVersion is bumped whenever a message shape below changes in a
// way that breaks an older client or daemon.
const ProtocolVersion = 1

// Handshake is the first message exchanged on a new connection; a client
// whose Version does not match ProtocolVersion is refused.
type Handshake struct {
	Version int
}

// BeginSession authenticates a client against the daemon using the
// kernel's SO_PEERCRED (or dbus's GetConnectionUnixUser) rather than a
// password, and binds the session to a controlling tty so input from an
// inactive session is never forwarded.
type BeginSession struct {
	TTY          string
	PeerUID      uint32
	PeerPID      uint32
}

// EnvironmentState is pushed by the daemon whenever the active window,
// the window under the pointer, or a tracked pointer position changes;
// clients use it only to populate read-only variables, never to control
// the daemon.
type EnvironmentState struct {
	ActiveWindowClass    string `json:"active_window_class"`
	ActiveWindowTitle    string `json:"active_window_title"`
	PointerWindowClass   string `json:"pointer_window_class"`
	PointerX             int    `json:"pointer_x"`
	PointerY             int    `json:"pointer_y"`
}

// Marshal/Unmarshal round-trip EnvironmentState as the JSON payload the
// bus message actually carries, since dbus has no native struct-tag JSON
// binding for an arbitrary nested document.
func (s EnvironmentState) Marshal() ([]byte, error)      { return json.Marshal(s) }
func (s *EnvironmentState) Unmarshal(data []byte) error  { return json.Unmarshal(data, s) }

// LoadConfigRequest asks the daemon to (re)load a configuration document.
// Path is empty for "reload the currently active file".
type LoadConfigRequest struct {
	Path string
}

// LoadConfigReply reports the outcome; Errors/Warnings mirror
// config.ConfigError's fields without importing internal/config, so this
// package stays free of the parsing dependency.
type LoadConfigReply struct {
	Accepted bool
	Errors   []ConfigIssue
	Warnings []ConfigIssue
}

type ConfigIssue struct {
	Line    int
	Column  int
	Message string
}

// RecordStrokeRequest starts (or, if already recording, cancels) stroke
// capture on the next pointer-motion trigger.
type RecordStrokeRequest struct {
	TimeoutMS int64
}

// RecordStrokeReply carries the recorded stroke in its base64 wire
// format, ready to paste into a `stroke_templates` config entry.
type RecordStrokeReply struct {
	Encoded string
	Aborted bool
}

// SuspendRequest tells the daemon to release every grabbed device
// (e.g. before a screen lock or VT switch) without exiting.
type SuspendRequest struct {
	Suspend bool
}

// VariableListReply enumerates every variable currently registered in
// the runtime's store, for a client-side settings UI to introspect.
type VariableListReply struct {
	Variables []VariableInfo
}

type VariableInfo struct {
	Name string
	Kind string
}

// DeviceListReply enumerates every device the supervisor currently
// manages.
type DeviceListReply struct {
	Devices []DeviceInfo
}

type DeviceInfo struct {
	Name    string
	Type    string
	Grabbed bool
}

// StartProcessRequest asks the daemon's privileged side to spawn a
// process on behalf of an unprivileged client session (used when the
// client itself lacks permission to talk to the target compositor).
type StartProcessRequest struct {
	Command string
}

// Server is implemented by the daemon side of the bus. Every method
// corresponds to one message kind in spec §6; dbus method-call framing,
// authentication, and session routing are the transport's job, not an
// obligation this interface carries.
type Server interface {
	Handshake(req Handshake) (version int, err error)
	BeginSession(req BeginSession) error
	PushEnvironmentState(state EnvironmentState) error
	LoadConfig(req LoadConfigRequest) (LoadConfigReply, error)
	RecordStroke(req RecordStrokeRequest) (RecordStrokeReply, error)
	Suspend(req SuspendRequest) error
	VariableList() (VariableListReply, error)
	DeviceList() (DeviceListReply, error)
	StartProcess(req StartProcessRequest) error
}

// Client is implemented by the per-session helper process; it is the
// mirror image of Server, used by a settings UI or shell integration.
type Client interface {
	Handshake() (Handshake, error)
	BeginSession(tty string) error
	LoadConfig(path string) (LoadConfigReply, error)
	RecordStroke(timeoutMS int64) (RecordStrokeReply, error)
	Suspend(suspend bool) error
	VariableList() (VariableListReply, error)
	DeviceList() (DeviceListReply, error)
	StartProcess(command string) error
}
