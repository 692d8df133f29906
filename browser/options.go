package browser

import "time"

// DefaultLaunchTimeout bounds how long opening a session may take.
const DefaultLaunchTimeout = 30 * time.Second

// Options configures a new Session. They are scoped to the session being
// opened; nothing here is applied process-wide.
type Options struct {
	Headless               bool
	Maximize               bool
	DisableNotifications   bool
	SuppressVerboseLogging bool
	WindowWidth            int
	WindowHeight           int
	ExecutablePath         string
	// RemoteURL points at an already running endpoint (a WebDriver server or
	// a DevTools websocket) instead of launching a local browser.
	RemoteURL string
	Args      []string
	Env       map[string]string
	Timeout   time.Duration
}

// DefaultOptions returns the options used when nothing else is configured:
// a maximized window with browser notifications disabled and verbose driver
// logging suppressed.
func DefaultOptions() Options {
	return Options{
		Headless:               true,
		Maximize:               true,
		DisableNotifications:   true,
		SuppressVerboseLogging: true,
		WindowWidth:            1920,
		WindowHeight:           1080,
		Env:                    make(map[string]string),
		Timeout:                DefaultLaunchTimeout,
	}
}
