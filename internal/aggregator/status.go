package aggregator

import (
	"log"
	"sync"
)

// StatusSurface is the ongoing foreground indicator. Re-issuing identical
// content must be a no-op from the user's perspective.
type StatusSurface interface {
	Update(title, text string)
}

// LogSurface writes status changes to a logger, suppressing repeats.
type LogSurface struct {
	Logger *log.Logger

	mu        sync.Mutex
	lastTitle string
	lastText  string
}

// Update logs the new status once per distinct content.
func (s *LogSurface) Update(title, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if title == s.lastTitle && text == s.lastText {
		return
	}
	s.lastTitle = title
	s.lastText = text
	if s.Logger != nil {
		s.Logger.Printf("status: %s: %s", title, text)
	}
}
