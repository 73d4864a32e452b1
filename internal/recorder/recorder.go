// Package recorder bridges microphone capture to the speech-to-text upload.
// Capture shells out to whichever recording tool the host provides (arecord,
// sox, or ffmpeg) and buffers audio into a temporary WAV file; the file is
// finalized on Stop and handed to the ASR mutation by the caller. No network
// call is in flight while recording, so stopping cancels nothing remote.
package recorder

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"sync"
)

// State tracks the capture session. Only one session may be active at a time.
type State int

const (
	StateIdle State = iota
	StateRecording
)

// ErrBusy is returned when Start is called while a session is active; the
// caller must Stop first.
var ErrBusy = errors.New("recorder: capture session already active")

// ErrNotRecording is returned when Stop is called without an active session.
var ErrNotRecording = errors.New("recorder: no active capture session")

// DeviceError reports that no capture device or tool is usable. It surfaces
// at the voice-capture boundary only and never touches chat or query state.
type DeviceError struct {
	Reason string
	Err    error
}

func (e *DeviceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("device error: %s: %v", e.Reason, e.Err)
	}
	return "device error: " + e.Reason
}

func (e *DeviceError) Unwrap() error { return e.Err }

// Recorder owns the capture session lifecycle: idle -> recording -> idle.
// Every failure path resolves back to idle so the UI never sticks in an
// ambiguous "recording" state.
type Recorder struct {
	mu    sync.Mutex
	state State
	cmd   *exec.Cmd
	path  string

	// newCommand builds the capture process writing WAV data to dest.
	// Replaceable in tests.
	newCommand func(dest string) (*exec.Cmd, error)
}

// New returns an idle Recorder using the host's available capture tool.
func New() *Recorder {
	return &Recorder{newCommand: captureCommand}
}

// State reports the current session state.
func (r *Recorder) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Start begins a capture session. Starting while one is active is a caller
// error; a missing device or tool is a DeviceError and leaves the recorder
// idle.
func (r *Recorder) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state == StateRecording {
		return ErrBusy
	}

	tmp, err := os.CreateTemp("", "docstudio-capture-*.wav")
	if err != nil {
		return err
	}
	path := tmp.Name()
	if err := tmp.Close(); err != nil {
		os.Remove(path)
		return err
	}

	cmd, err := r.newCommand(path)
	if err != nil {
		os.Remove(path)
		return &DeviceError{Reason: "no capture tool available", Err: err}
	}
	if err := cmd.Start(); err != nil {
		os.Remove(path)
		return &DeviceError{Reason: "capture tool failed to start", Err: err}
	}

	r.cmd = cmd
	r.path = path
	r.state = StateRecording
	return nil
}

// Stop finalizes the session and returns the path of the captured WAV file.
// The caller owns the file and should remove it after upload.
func (r *Recorder) Stop() (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state != StateRecording {
		return "", ErrNotRecording
	}
	cmd, path := r.cmd, r.path
	r.cmd = nil
	r.path = ""
	r.state = StateIdle

	// The capture tools finalize the WAV header on SIGINT.
	_ = cmd.Process.Signal(os.Interrupt)
	_ = cmd.Wait()

	info, err := os.Stat(path)
	if err != nil || info.Size() == 0 {
		os.Remove(path)
		return "", &DeviceError{Reason: "no audio captured", Err: err}
	}
	return path, nil
}

var captureTools = []struct {
	name string
	args func(dest string) []string
}{
	{"arecord", func(dest string) []string { return []string{"-q", "-f", "cd", "-t", "wav", dest} }},
	{"sox", func(dest string) []string { return []string{"-q", "-d", dest} }},
	{"ffmpeg", func(dest string) []string {
		return []string{"-loglevel", "quiet", "-f", "alsa", "-i", "default", "-y", dest}
	}},
}

func captureCommand(dest string) (*exec.Cmd, error) {
	for _, tool := range captureTools {
		bin, err := exec.LookPath(tool.name)
		if err != nil {
			continue
		}
		return exec.Command(bin, tool.args(dest)...), nil
	}
	return nil, errors.New("none of arecord, sox, ffmpeg found in PATH")
}
