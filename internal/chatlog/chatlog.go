// Package chatlog persists the conversation as one JSON object per line.
package chatlog

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog"
)

// Author is who spoke a turn. The values match the on-disk format.
type Author string

const (
	User Author = "User"
	Bot  Author = "Bot"
)

// Record is one conversation turn.
type Record struct {
	Author Author `json:"author"`
	Text   string `json:"text"`
}

// maxLine bounds a single record; replies are read aloud, so this is generous.
const maxLine = 16 << 20

// Error is a history file that could not be read, written or parsed. Line is
// the 1-based line of a malformed record, or 0.
type Error struct {
	Op   string
	Path string
	Line int
	Err  error
}

func (e *Error) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("chatlog %s %s: line %d: %v", e.Op, e.Path, e.Line, e.Err)
	}
	return fmt.Sprintf("chatlog %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Log is an append-only history file.
type Log struct {
	path string
	log  zerolog.Logger
	mu   sync.Mutex
}

// Open returns a Log for path. The file is created on first Append.
func Open(path string, log zerolog.Logger) *Log {
	return &Log{path: path, log: log.With().Str("component", "chatlog").Logger()}
}

// Path returns the history file location.
func (l *Log) Path() string { return l.path }

// Load returns every record in file order, or none if the file does not
// exist yet.
func (l *Log) Load() ([]Record, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := os.Open(l.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, &Error{Op: "load", Path: l.path, Err: err}
	}
	defer f.Close()

	var records []Record
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64<<10), maxLine)
	line := 0
	for sc.Scan() {
		line++
		r, err := parseRecord(sc.Bytes())
		if err != nil {
			return nil, &Error{Op: "load", Path: l.path, Line: line, Err: err}
		}
		records = append(records, r)
	}
	if err := sc.Err(); err != nil {
		return nil, &Error{Op: "load", Path: l.path, Line: line + 1, Err: err}
	}
	return records, nil
}

func parseRecord(b []byte) (Record, error) {
	var r Record
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&r); err != nil {
		return Record{}, err
	}
	if dec.More() {
		return Record{}, errors.New("trailing data after record")
	}
	switch r.Author {
	case User, Bot:
	default:
		return Record{}, fmt.Errorf("unknown author %q", r.Author)
	}
	return r, nil
}

// Append writes r as a new last line, creating the file and its directory
// if needed.
func (l *Log) Append(r Record) error {
	data, err := json.Marshal(r)
	if err != nil {
		return &Error{Op: "append", Path: l.path, Err: err}
	}
	data = append(data, '\n')

	l.mu.Lock()
	defer l.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(l.path), 0755); err != nil {
		return &Error{Op: "append", Path: l.path, Err: err}
	}
	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return &Error{Op: "append", Path: l.path, Err: err}
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return &Error{Op: "append", Path: l.path, Err: err}
	}
	if err := f.Close(); err != nil {
		return &Error{Op: "append", Path: l.path, Err: err}
	}

	l.log.Info().Str("role", string(r.Author)).Str("text", r.Text).Msg("Conversation turn")
	return nil
}
