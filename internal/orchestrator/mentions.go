package orchestrator

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/whirlun/emigo-go/internal/logging"
)

// mentionPattern matches an @-prefixed token. Trailing sentence punctuation
// is stripped before the candidate is checked against the filesystem, the
// same way a prompt like "look at @main.go." is meant to name main.go.
var mentionPattern = regexp.MustCompile(`@(\S+)`)

// extractMentionedFiles finds @path mentions in text and returns the ones
// that name a real file, relative to directory unless already absolute.
func extractMentionedFiles(directory, text string) []string {
	var files []string
	seen := make(map[string]bool)

	for _, match := range mentionPattern.FindAllStringSubmatch(text, -1) {
		candidate := strings.TrimRight(match[1], ".,;:!?")
		if candidate == "" || seen[candidate] {
			continue
		}

		abs := candidate
		if !filepath.IsAbs(abs) {
			abs = filepath.Join(directory, candidate)
		}
		info, err := os.Stat(abs)
		if err != nil || info.IsDir() {
			continue
		}

		seen[candidate] = true
		files = append(files, candidate)
	}

	return files
}

// addMentionedFiles adds every @-mentioned file in text to directory's
// chat files. Files already present or outside the session are skipped
// silently, matching add_chat_file's own idempotent behavior.
func (o *Orchestrator) addMentionedFiles(directory, text string) {
	for _, f := range extractMentionedFiles(directory, text) {
		if _, err := o.store.AddChatFile(directory, f); err != nil {
			logging.Logger.Debug().Str("file", f).Err(err).Msg("orchestrator: mentioned file not added to chat")
		}
	}
}
