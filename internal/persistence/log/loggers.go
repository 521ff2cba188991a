package log

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"
)

// JSONLZstdWriter appends JSON lines to one zstd file per UTC day.
type JSONLZstdWriter struct {
	baseDir string
	prefix  string
	now     func() time.Time

	mu     sync.Mutex
	curDay string
	f      *os.File
	enc    *zstd.Encoder
	w      *bufio.Writer
}

func NewJSONLZstdWriter(baseDir, prefix string) *JSONLZstdWriter {
	return &JSONLZstdWriter{
		baseDir: baseDir,
		prefix:  prefix,
		now:     time.Now,
	}
}

func (w *JSONLZstdWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.closeLocked()
}

func (w *JSONLZstdWriter) Write(v any) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	day := w.now().UTC().Format("2006-01-02")
	if day != w.curDay {
		if err := w.rotateLocked(day); err != nil {
			return err
		}
	}

	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if _, err := w.w.Write(b); err != nil {
		return err
	}
	if err := w.w.WriteByte('\n'); err != nil {
		return err
	}
	// Flush the zstd frame too so a crash loses at most the current line.
	if err := w.w.Flush(); err != nil {
		return err
	}
	return w.enc.Flush()
}

func (w *JSONLZstdWriter) rotateLocked(day string) error {
	if err := w.closeLocked(); err != nil {
		return err
	}
	path := w.pathForDay(day)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		_ = f.Close()
		return err
	}
	w.f = f
	w.enc = enc
	w.w = bufio.NewWriterSize(enc, 32*1024)
	w.curDay = day
	return nil
}

func (w *JSONLZstdWriter) closeLocked() error {
	var err1 error
	if w.w != nil {
		_ = w.w.Flush()
	}
	if w.enc != nil {
		err1 = w.enc.Close()
		w.enc = nil
	}
	if w.f != nil {
		_ = w.f.Close()
		w.f = nil
	}
	w.w = nil
	w.curDay = ""
	return err1
}

func (w *JSONLZstdWriter) pathForDay(day string) string {
	return filepath.Join(w.baseDir, fmt.Sprintf("%s-%s.jsonl.zst", w.prefix, day))
}

// ReadJSONL calls fn for every line of the prefix's files under baseDir,
// oldest file first.
func ReadJSONL(baseDir, prefix string, fn func(line []byte) error) error {
	ents, err := os.ReadDir(baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	var files []string
	for _, e := range ents {
		name := e.Name()
		if !e.IsDir() && strings.HasPrefix(name, prefix+"-") && strings.HasSuffix(name, ".jsonl.zst") {
			files = append(files, name)
		}
	}
	sort.Strings(files)
	for _, name := range files {
		if err := readFile(filepath.Join(baseDir, name), fn); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	return nil
}

func readFile(path string, fn func([]byte) error) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	dec, err := zstd.NewReader(f)
	if err != nil {
		return err
	}
	defer dec.Close()

	r := bufio.NewReader(dec)
	for {
		line, err := r.ReadBytes('\n')
		if line = bytes.TrimSpace(line); len(line) > 0 {
			if ferr := fn(line); ferr != nil {
				return ferr
			}
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
	}
}

// SessionEntry is one confirmed session as written to the journal.
type SessionEntry struct {
	Seq      int          `json:"seq"`
	Session  int          `json:"session"`
	Race     bool         `json:"race"`
	RaceNum  int          `json:"race_num,omitempty"`
	LineUp   string       `json:"lineup"`
	Score    int          `json:"score"`
	Promoted string       `json:"promoted,omitempty"`
	Events   []EventEntry `json:"events,omitempty"`
	Time     string       `json:"time"`
}

type EventEntry struct {
	Member  string `json:"member"`
	Rule    string `json:"rule"`
	Event   string `json:"event"`
	Retired bool   `json:"retired,omitempty"`
}

const journalPrefix = "sessions"

// SessionLogger writes the session journal under gameDir/journal.
type SessionLogger struct{ w *JSONLZstdWriter }

func NewSessionLogger(gameDir string) *SessionLogger {
	return &SessionLogger{w: NewJSONLZstdWriter(JournalDir(gameDir), journalPrefix)}
}

func JournalDir(gameDir string) string { return filepath.Join(gameDir, "journal") }

func (l *SessionLogger) WriteSession(e SessionEntry) error { return l.w.Write(e) }
func (l *SessionLogger) Close() error                      { return l.w.Close() }

// ReadSessions returns the journal of gameDir in write order.
func ReadSessions(gameDir string) ([]SessionEntry, error) {
	var out []SessionEntry
	err := ReadJSONL(JournalDir(gameDir), journalPrefix, func(line []byte) error {
		var e SessionEntry
		if err := json.Unmarshal(line, &e); err != nil {
			return err
		}
		out = append(out, e)
		return nil
	})
	return out, err
}
