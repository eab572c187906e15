package watchui

import "mantrify/internal/pipeline"

// UpdateMsg wraps one event read from the watch channel.
type UpdateMsg struct {
	Update pipeline.Update
}

// WatchClosedMsg is sent when the watch channel closes.
type WatchClosedMsg struct{}
