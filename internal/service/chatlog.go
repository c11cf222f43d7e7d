package service

import "os"

// appendChatLog appends line to the configured chat-log file, if any. A
// missing configuration is not an error; a write failure is logged and
// swallowed since the chat log is a convenience mirror of history, not the
// record of truth.
func (s *Service) appendChatLog(line string) {
	path := s.state.cfg.Paths.ChatLog
	if path == nil || *path == "" {
		return
	}

	f, err := os.OpenFile(*path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		s.state.log.Printf("service: failed to open chat log %s: %v", *path, err)
		return
	}
	defer f.Close()

	if _, err := f.WriteString(line); err != nil {
		s.state.log.Printf("service: failed to append chat log %s: %v", *path, err)
	}
}
