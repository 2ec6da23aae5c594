// Command libgripd is the daemon entry point: it wires the variable
// store, condition context, action executor, synthetic output device,
// handler chain and device supervisor together, loads a configuration
// document, and runs until a termination signal arrives.
package main

import (
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"strings"
	"syscall"

	"github.com/jessevdk/go-flags"

	"github.com/libgrip/libgrip/internal/action"
	"github.com/libgrip/libgrip/internal/condition"
	"github.com/libgrip/libgrip/internal/config"
	"github.com/libgrip/libgrip/internal/device"
	"github.com/libgrip/libgrip/internal/handler"
	"github.com/libgrip/libgrip/internal/log"
	"github.com/libgrip/libgrip/internal/stroke"
	"github.com/libgrip/libgrip/internal/variable"
)

var mainLog = log.New("libgripd")

var opts struct {
	Config   string `short:"c" long:"config" description:"Path to the gesture configuration file" default:"/etc/libgrip/config.yaml"`
	LogLevel string `short:"l" long:"log-level" description:"Minimum log level (debug|info|warn|error)"`
	NoGrab   bool   `long:"no-grab" description:"Never grab input devices; run in passive/observe-only mode"`
}

func main() {
	if _, err := flags.Parse(&opts); err != nil {
		os.Exit(1)
	}
	if opts.LogLevel != "" {
		os.Setenv("LIBGRIP_LOG", opts.LogLevel)
	}

	if err := run(); err != nil {
		mainLog.Errorf("%v", err)
		os.Exit(1)
	}
}

// shellRunner implements action.CommandRunner and condition.ProcessRunner
// over os/exec: "sh -c <command>", output captured but errors only
// logged, never fed back into the event loop.
type shellRunner struct{}

func (shellRunner) Start(command string) error {
	cmd := exec.Command("sh", "-c", command)
	cmd.Env = os.Environ()
	if err := cmd.Start(); err != nil {
		return err
	}
	go func() {
		if err := cmd.Wait(); err != nil {
			mainLog.Warnf("command exited with error: %v (%q)", err, command)
		}
	}()
	return nil
}

func (shellRunner) Run(command string) (string, error) {
	out, err := exec.Command("sh", "-c", command).CombinedOutput()
	return strings.TrimSpace(string(out)), err
}

// noopShortcut stands in for the compositor shortcut bridge: a real one
// is a per-compositor external collaborator outside this module's scope.
type noopShortcut struct{}

func (noopShortcut) InvokeShortcut(component, shortcut string) error {
	mainLog.Debugf("shortcut invocation requested but no compositor bridge configured: %s/%s", component, shortcut)
	return nil
}

const pidFilePath = "/run/libgripd.pid"
const stateDir = "/var/lib/libgrip"

func run() error {
	if err := checkPidFile(); err != nil {
		return err
	}
	if err := writePidFile(); err != nil {
		return err
	}
	defer os.Remove(pidFilePath)

	store := variable.NewStore()
	runner := shellRunner{}
	ctx := condition.NewContext(store, runner)
	executor := action.NewExecutor()
	defer executor.Stop()

	emitter, err := device.NewActionEmitter("libgrip")
	if err != nil {
		return fmt.Errorf("create synthetic output device: %w", err)
	}
	defer emitter.Close()

	col := config.Collaborators{Emitter: emitter, Runner: runner, Shortcut: noopShortcut{}}

	data, err := os.ReadFile(opts.Config)
	if err != nil {
		mainLog.Warnf("reading configuration %q failed, starting with an empty one: %v", opts.Config, err)
		data = nil
	}

	model, errs := config.Load(stateDir, true, data, col)
	if errs != nil {
		for _, e := range errs.Errors() {
			mainLog.Errorf("config: %v", e)
		}
		for _, w := range errs.Warnings() {
			mainLog.Warnf("config: %v", w)
		}
	}
	if model == nil {
		model = config.Empty()
	}

	recorder := stroke.NewRecorder()
	keyboard := handler.NewKeyboard(handler.NewBase(ctx, executor))
	mouse := handler.NewMouse(handler.NewBase(ctx, executor))
	pointer := handler.NewPointer(handler.NewBase(ctx, executor))

	for _, cfg := range model.Handlers["keyboard"].Gestures {
		keyboard.Triggers.Add(cfg)
	}
	for _, cfg := range model.Handlers["mouse"].Gestures {
		mouse.Triggers.Add(cfg)
	}
	for _, cfg := range model.Handlers["pointer"].Gestures {
		pointer.Triggers.Add(cfg)
	}

	chain := handler.NewChain(recorder, keyboard, mouse, pointer)

	rules := make([]device.Rule, len(model.DeviceRules))
	copy(rules, model.DeviceRules)

	supervisor := device.NewSupervisor(chain, ctx, executor, rules)
	supervisor.SetGestureConfigs(model.Handlers["touchpad"].Gestures, model.Handlers["touchscreen"].Gestures)

	if !opts.NoGrab {
		if err := supervisor.Initialize(); err != nil {
			return fmt.Errorf("initialize device supervisor: %w", err)
		}
	}
	defer supervisor.Close()

	mainLog.Infof("libgripd running (config=%q, no-grab=%v)", opts.Config, opts.NoGrab)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	mainLog.Infof("shutting down")
	return nil
}

func checkPidFile() error {
	if _, err := os.Stat(pidFilePath); err == nil {
		return fmt.Errorf("pid file %s already present, another instance may be running", pidFilePath)
	}
	return nil
}

func writePidFile() error {
	return os.WriteFile(pidFilePath, []byte(fmt.Sprintf("%d\n", os.Getpid())), 0o644)
}
