// Package hotkeys defines the global media-key surface. Key capture is
// platform-specific and not wired on headless builds; the daemon consumes
// whatever Source it is given.
package hotkeys

// Event is one recognized key press.
type Event int

const (
	VolumeUp Event = iota
	VolumeDown
	MuteToggle
)

func (e Event) String() string {
	switch e {
	case VolumeUp:
		return "volume up"
	case VolumeDown:
		return "volume down"
	case MuteToggle:
		return "mute toggle"
	}
	return "unknown"
}

// Source produces hotkey events. Close releases any platform hooks; the
// events channel closes with it.
type Source interface {
	Events() <-chan Event
	Close() error
}

// StubSource never fires. Used when hotkeys are disabled in preferences or
// no platform hook exists.
type StubSource struct {
	ch chan Event
}

func NewStubSource() *StubSource {
	return &StubSource{ch: make(chan Event)}
}

func (s *StubSource) Events() <-chan Event {
	return s.ch
}

func (s *StubSource) Close() error {
	close(s.ch)
	return nil
}
