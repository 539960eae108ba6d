package tool

import (
	"github.com/whirlun/emigo-go/internal/event"
)

// publishFileContextChanged announces that a file entered or left a
// session's chat_files set, so any listening frontend can refresh
// environment details.
func publishFileContextChanged(sessionID, file string, added bool) {
	event.Publish(event.Event{
		Type: event.FileContextChanged,
		Data: event.FileContextChangedData{
			SessionID: sessionID,
			File:      file,
			Added:     added,
		},
	})
}

// publishFileEdited announces that a file's on-disk content changed via
// write_to_file or replace_in_file.
func publishFileEdited(sessionID, file string) {
	event.Publish(event.Event{
		Type: event.FileEdited,
		Data: event.FileEditedData{
			SessionID: sessionID,
			File:      file,
		},
	})
}
