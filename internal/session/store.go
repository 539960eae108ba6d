// Package session implements the Session Store: the in-memory mapping from
// a project directory to its chat history, files-in-context set, per-file
// content/mtime cache, and last repomap snapshot. It holds no persistence
// layer — sessions live only for the lifetime of the orchestrator process.
package session

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/oklog/ulid/v2"

	"github.com/whirlun/emigo-go/internal/event"
	"github.com/whirlun/emigo-go/internal/logging"
	"github.com/whirlun/emigo-go/pkg/types"
)

// AddFileError enumerates why add_chat_file can fail or no-op, so callers
// (the orchestrator, echoing a message to the frontend) can tell the
// informational "already present" case apart from a hard error.
type AddFileError string

const (
	ErrNotFound       AddFileError = "not_found"
	ErrNotAFile       AddFileError = "not_a_file"
	ErrOutsideSession AddFileError = "outside_session"
	ErrAlreadyPresent AddFileError = "already_present"
)

func (e AddFileError) Error() string { return string(e) }

// session is the Store's internal state for one directory. Its fields
// mirror original_source/session.py's Session class.
type session struct {
	mu sync.Mutex

	public *types.Session

	history    []types.Message
	chatFiles  []string // ordered, deduplicated, relative to Directory
	fileCache  map[string]types.FileCacheEntry
	lastRepomap *string
}

// Store is the process-wide Session Store: a concurrency-safe map from
// absolute directory path to session state. Grounded on the teacher's
// internal/session/service.go concurrency shape (a top-level mutex guarding
// a map, generateID()/hashDirectory() helpers), generalized from a
// persisted multi-project session/message/part hierarchy down to the
// spec's single in-memory Session per directory.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*session // keyed by absolute directory path
}

// NewStore creates an empty Session Store.
func NewStore() *Store {
	return &Store{sessions: make(map[string]*session)}
}

// GetOrCreate returns the Session for directory, creating it (with an
// empty history and chat file set) on first reference.
func (s *Store) GetOrCreate(directory string) *types.Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sess, ok := s.sessions[directory]; ok {
		return sess.public
	}

	now := time.Now()
	sess := &session{
		public: &types.Session{
			ID:        generateID(),
			ProjectID: hashDirectory(directory),
			Directory: directory,
			Title:     "New Session",
			Created:   now,
			Updated:   now,
		},
		fileCache: make(map[string]types.FileCacheEntry),
	}
	s.sessions[directory] = sess
	logging.Debug().Str("directory", directory).Str("sessionID", sess.public.ID).Msg("session created")
	event.Publish(event.Event{Type: event.SessionCreated, Data: event.SessionCreatedData{Session: sess.public}})
	return sess.public
}

func (s *Store) get(directory string) (*session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[directory]
	return sess, ok
}

// HistorySnapshot returns a copy of a session's history.
func (s *Store) HistorySnapshot(directory string) []types.Message {
	sess, ok := s.get(directory)
	if !ok {
		return nil
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	out := make([]types.Message, len(sess.history))
	copy(out, sess.history)
	return out
}

// AppendMessage appends msg to the session's history. If the session's
// title is still the default and msg is the first user message, the title
// is derived from its first ~50 runes (supplemental: teacher's
// internal/session/title.go pattern, absent from the distilled spec).
func (s *Store) AppendMessage(directory string, msg types.Message) {
	sess, ok := s.get(directory)
	if !ok {
		return
	}
	sess.mu.Lock()
	sess.history = append(sess.history, msg)
	first := len(sess.history) == 1 && msg.Role == types.RoleUser
	sess.mu.Unlock()

	if first {
		sess.public.Title = deriveTitle(msg.Content)
	}
	sess.public.Updated = time.Now()
	logging.Debug().Str("directory", directory).Str("role", string(msg.Role)).Msg("history appended")
	event.Publish(event.Event{Type: event.HistoryChanged, Data: event.HistoryChangedData{SessionID: sess.public.ID}})
}

// ReplaceHistory replaces a session's entire history, used by
// submit_revised_history and by the orchestrator when a worker's finished
// message carries a final history.
func (s *Store) ReplaceHistory(directory string, messages []types.Message) {
	sess, ok := s.get(directory)
	if !ok {
		return
	}
	sess.mu.Lock()
	sess.history = append([]types.Message(nil), messages...)
	sess.mu.Unlock()

	sess.public.Updated = time.Now()
	logging.Debug().Str("directory", directory).Int("messages", len(messages)).Msg("history replaced")
	event.Publish(event.Event{Type: event.HistoryChanged, Data: event.HistoryChangedData{SessionID: sess.public.ID}})
}

// PopLastUserMessage removes and returns the trailing message if it is a
// User message (used by cancel-and-restart), reporting whether it popped
// one.
func (s *Store) PopLastUserMessage(directory string) (types.Message, bool) {
	sess, ok := s.get(directory)
	if !ok {
		return types.Message{}, false
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	if len(sess.history) == 0 {
		return types.Message{}, false
	}
	last := sess.history[len(sess.history)-1]
	if last.Role != types.RoleUser {
		return types.Message{}, false
	}
	sess.history = sess.history[:len(sess.history)-1]
	event.Publish(event.Event{Type: event.HistoryChanged, Data: event.HistoryChangedData{SessionID: sess.public.ID}})
	return last, true
}

// ClearHistory empties a session's history.
func (s *Store) ClearHistory(directory string) {
	sess, ok := s.get(directory)
	if !ok {
		return
	}
	sess.mu.Lock()
	sess.history = nil
	sess.mu.Unlock()

	logging.Debug().Str("directory", directory).Msg("history cleared")
	event.Publish(event.Event{Type: event.HistoryChanged, Data: event.HistoryChangedData{SessionID: sess.public.ID}})
}

// ListChatFiles returns a copy of a session's chat file list.
func (s *Store) ListChatFiles(directory string) []string {
	sess, ok := s.get(directory)
	if !ok {
		return nil
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	out := make([]string, len(sess.chatFiles))
	copy(out, sess.chatFiles)
	return out
}

// AddChatFile adds filename (absolute or directory-relative) to the
// session's chat context. It rejects files that don't exist, aren't
// regular files, or resolve outside the session directory, and reports
// ErrAlreadyPresent informationally rather than as a hard error.
func (s *Store) AddChatFile(directory, filename string) (string, error) {
	sess, ok := s.get(directory)
	if !ok {
		return "", fmt.Errorf("no session for directory %q", directory)
	}

	relFilename, absPath, err := resolveWithinSession(directory, filename)
	if err != nil {
		return "", err
	}

	info, statErr := os.Stat(absPath)
	if statErr != nil {
		return relFilename, ErrNotFound
	}
	if !info.Mode().IsRegular() {
		return relFilename, ErrNotAFile
	}

	sess.mu.Lock()
	for _, existing := range sess.chatFiles {
		if existing == relFilename {
			sess.mu.Unlock()
			return relFilename, ErrAlreadyPresent
		}
	}
	sess.chatFiles = append(sess.chatFiles, relFilename)
	sess.mu.Unlock()

	s.UpdateCache(directory, relFilename, nil)
	logging.Debug().Str("directory", directory).Str("file", relFilename).Msg("file added to context")
	event.Publish(event.Event{
		Type: event.FileContextChanged,
		Data: event.FileContextChangedData{SessionID: sess.public.ID, File: relFilename, Added: true},
	})
	return relFilename, nil
}

// RemoveChatFile removes filename from the session's chat context and
// evicts it from the file cache.
func (s *Store) RemoveChatFile(directory, filename string) (string, error) {
	sess, ok := s.get(directory)
	if !ok {
		return "", fmt.Errorf("no session for directory %q", directory)
	}

	relFilename := filename
	if filepath.IsAbs(filename) {
		rel, err := filepath.Rel(directory, filename)
		if err != nil {
			return "", fmt.Errorf("cannot remove file from different drive: %s", filename)
		}
		relFilename = rel
	}

	sess.mu.Lock()
	idx := -1
	for i, existing := range sess.chatFiles {
		if existing == relFilename {
			idx = i
			break
		}
	}
	if idx == -1 {
		sess.mu.Unlock()
		return relFilename, fmt.Errorf("file %q not found in context", relFilename)
	}
	sess.chatFiles = append(sess.chatFiles[:idx], sess.chatFiles[idx+1:]...)
	delete(sess.fileCache, relFilename)
	sess.mu.Unlock()

	logging.Debug().Str("directory", directory).Str("file", relFilename).Msg("file removed from context")
	event.Publish(event.Event{
		Type: event.FileContextChanged,
		Data: event.FileContextChangedData{SessionID: sess.public.ID, File: relFilename, Added: false},
	})
	return relFilename, nil
}

// CachedContent returns the cached content for rel, refreshing it first if
// stale (mtime changed or never cached). Returns ok=false if the file is
// gone or unreadable.
func (s *Store) CachedContent(directory, rel string) (string, bool) {
	sess, ok := s.get(directory)
	if !ok {
		return "", false
	}
	if !s.refreshCache(directory, sess, rel, nil) {
		return "", false
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	entry, ok := sess.fileCache[rel]
	return entry.Content, ok
}

// UpdateCache obtains rel's current mtime; if content is non-nil it is
// stored unconditionally, otherwise the file is read only if the mtime
// changed or no entry exists yet.
func (s *Store) UpdateCache(directory, rel string, content *string) bool {
	sess, ok := s.get(directory)
	if !ok {
		return false
	}
	return s.refreshCache(directory, sess, rel, content)
}

func (s *Store) refreshCache(directory string, sess *session, rel string, content *string) bool {
	absPath := filepath.Join(directory, rel)
	info, err := os.Stat(absPath)
	if err != nil {
		sess.mu.Lock()
		delete(sess.fileCache, rel)
		sess.mu.Unlock()
		return false
	}
	mtime := info.ModTime()

	sess.mu.Lock()
	defer sess.mu.Unlock()

	if content != nil {
		sess.fileCache[rel] = types.FileCacheEntry{ModTime: mtime, Content: *content}
		return true
	}

	if existing, ok := sess.fileCache[rel]; ok && existing.ModTime.Equal(mtime) {
		return true
	}

	data, readErr := os.ReadFile(absPath)
	if readErr != nil {
		delete(sess.fileCache, rel)
		return false
	}
	sess.fileCache[rel] = types.FileCacheEntry{ModTime: mtime, Content: string(data)}
	return true
}

// InvalidateCache drops the cache entry for rel, or the entire session
// cache (and last repomap) if rel is empty.
func (s *Store) InvalidateCache(directory, rel string) {
	sess, ok := s.get(directory)
	if !ok {
		return
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	if rel != "" {
		delete(sess.fileCache, rel)
		logging.Debug().Str("directory", directory).Str("file", rel).Msg("cache invalidated")
		return
	}
	sess.fileCache = make(map[string]types.FileCacheEntry)
	sess.lastRepomap = nil
	logging.Debug().Str("directory", directory).Msg("all caches invalidated")
}

// SetRepomap stores the latest generated repository map text. A nil text
// clears it.
func (s *Store) SetRepomap(directory string, text *string) {
	sess, ok := s.get(directory)
	if !ok {
		return
	}
	sess.mu.Lock()
	sess.lastRepomap = text
	sess.mu.Unlock()
}

// RenderEnvironmentDetails produces the <environment_details> block the
// Worker inserts ahead of a turn's prompt: session directory header,
// cached repomap or fallback directory listing, then each chat file's
// content. Section order and the placeholder text for empty sections are
// fixed by the wire contract with the Worker.
func (s *Store) RenderEnvironmentDetails(directory string) string {
	sess, ok := s.get(directory)
	if !ok {
		return "<environment_details>\n</environment_details>"
	}

	var b strings.Builder
	b.WriteString("<environment_details>\n")
	b.WriteString("# Session Directory\n")
	b.WriteString(filepath.ToSlash(directory))
	b.WriteString("\n\n")

	sess.mu.Lock()
	repomap := sess.lastRepomap
	chatFiles := append([]string(nil), sess.chatFiles...)
	sess.mu.Unlock()

	if repomap != nil {
		b.WriteString("# Repository Map (Cached)\n```\n")
		b.WriteString(*repomap)
		b.WriteString("\n```\n\n")
	} else {
		b.WriteString("# File/Directory Structure (use list_repomap tool for code summary)\n")
		tree := renderDirectoryTree(directory)
		if tree == "" {
			b.WriteString("(No relevant files or directories found)\n\n")
		} else {
			b.WriteString("```\n")
			b.WriteString(tree)
			b.WriteString("\n```\n\n")
		}
	}

	if len(chatFiles) > 0 {
		b.WriteString("# Files Currently in Chat Context\n")
		sorted := append([]string(nil), chatFiles...)
		sort.Strings(sorted)
		for _, rel := range sorted {
			posixRel := filepath.ToSlash(rel)
			content, ok := s.CachedContent(directory, rel)
			if !ok {
				content = fmt.Sprintf("# Error: Could not read or cache %s", posixRel)
			}
			b.WriteString(fmt.Sprintf("## File: %s\n```\n%s\n```\n\n", posixRel, content))
		}
	}

	b.WriteString("</environment_details>")
	return b.String()
}

// resolveWithinSession resolves filename relative to directory, requiring
// the result to stay within it.
func resolveWithinSession(directory, filename string) (relFilename, absPath string, err error) {
	if filepath.IsAbs(filename) {
		rel, relErr := filepath.Rel(directory, filename)
		if relErr != nil {
			return "", "", fmt.Errorf("cannot add file from different drive: %s", filename)
		}
		relFilename = rel
	} else {
		relFilename = filename
	}

	absPath, absErr := filepath.Abs(filepath.Join(directory, relFilename))
	if absErr != nil {
		return "", "", fmt.Errorf("cannot resolve path for %q: %w", filename, absErr)
	}
	absDirectory, _ := filepath.Abs(directory)
	if !strings.HasPrefix(absPath, absDirectory) {
		return relFilename, "", ErrOutsideSession
	}
	return relFilename, absPath, nil
}

// renderDirectoryTree produces an indented tree listing of directory,
// respecting the same ignore globs as the search_files/list_files tools
// (node_modules, .git, vendor, build artifacts, ...), matching
// original_source/session.py's fallback when no repomap has been
// generated yet.
func renderDirectoryTree(directory string) string {
	var files []string
	filepath.WalkDir(directory, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil //nolint:nilerr // best-effort walk
		}
		if path == directory {
			return nil
		}
		rel, relErr := filepath.Rel(directory, path)
		if relErr != nil {
			rel = path
		}
		if ignoreMatches(rel) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.IsDir() {
			files = append(files, filepath.ToSlash(rel))
		}
		return nil
	})
	sort.Strings(files)

	var lines []string
	seenDirs := make(map[string]bool)
	for _, rel := range files {
		parts := strings.Split(rel, "/")
		prefix := ""
		for i, part := range parts[:len(parts)-1] {
			prefix += part + "/"
			if !seenDirs[prefix] {
				lines = append(lines, strings.Repeat("  ", i)+"- "+part+"/")
				seenDirs[prefix] = true
			}
		}
		lines = append(lines, strings.Repeat("  ", len(parts)-1)+"- "+parts[len(parts)-1])
	}
	return strings.Join(lines, "\n")
}

// sessionIgnoreGlobs mirrors internal/tool's defaultIgnoreGlobs. Kept as
// its own small copy rather than an import from internal/tool, since the
// Session Store is a lower-level package the tool registry depends on
// indirectly via the orchestrator, not the other way around.
var sessionIgnoreGlobs = []string{
	"**/node_modules/**", "**/node_modules",
	"**/__pycache__/**", "**/__pycache__",
	"**/.git/**", "**/.git",
	"**/dist/**", "**/dist",
	"**/build/**", "**/build",
	"**/target/**", "**/target",
	"**/vendor/**", "**/vendor",
	"**/.idea/**", "**/.idea",
	"**/.vscode/**", "**/.vscode",
	"**/.cache/**", "**/.cache",
	"**/.venv/**", "**/.venv",
	"**/venv/**", "**/venv",
}

func ignoreMatches(relPath string) bool {
	relPath = filepath.ToSlash(relPath)
	base := filepath.Base(relPath)
	for _, pattern := range sessionIgnoreGlobs {
		if ok, _ := doublestar.Match(pattern, relPath); ok {
			return true
		}
		if ok, _ := doublestar.Match(pattern, base); ok {
			return true
		}
	}
	return false
}

// deriveTitle derives a session title from the first ~50 runes of text,
// grounded on the teacher's internal/session/title.go pattern of deriving
// a short label rather than this spec's silence on the matter.
func deriveTitle(text string) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return "New Session"
	}
	runes := []rune(text)
	if len(runes) <= 50 {
		return text
	}
	return string(runes[:50]) + "…"
}

func generateID() string {
	return ulid.Make().String()
}

// hashDirectory creates a content-addressed project id from a directory
// path, kept to namespace sessions sharing a directory prefix; the Store's
// public API still keys sessions by absolute directory.
func hashDirectory(directory string) string {
	h := sha256.New()
	h.Write([]byte(directory))
	return hex.EncodeToString(h.Sum(nil))[:16]
}
