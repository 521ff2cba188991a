// Package savegame writes a belief store to disk as one directory per save:
// an index.json scenario record plus one zstd-compressed record per
// character.
package savegame

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/klauspost/compress/zstd"
	"golang.org/x/sync/errgroup"

	"crewline.ai/internal/persistence/belief"
)

const (
	Version   = 1
	IndexFile = "index.json"

	parallelism = 8
)

type Header struct {
	Version   int    `json:"version"`
	Character string `json:"character"`
	Kind      string `json:"kind"`
}

type Entry struct {
	Name string `json:"name"`
	Kind string `json:"kind"`
	File string `json:"file"`
}

// Index is the scenario record enumerating every character in the save.
type Index struct {
	Version    int     `json:"version"`
	Manager    string  `json:"manager"`
	BoatType   string  `json:"boat_type"`
	Session    int     `json:"session"`
	SavedAt    string  `json:"saved_at"`
	Characters []Entry `json:"characters"`
}

// Write replaces saveDir with the content of mem. Records are written in
// parallel into a sibling temp directory that is renamed into place. It
// returns the index and the number of bytes written.
func Write(ctx context.Context, saveDir string, mem *belief.Memory) (Index, int64, error) {
	idx := Index{Version: Version, SavedAt: time.Now().UTC().Format(time.RFC3339Nano)}
	for i, name := range mem.Characters() {
		kind, _ := mem.Get(name, belief.KeyStatus)
		if kind == belief.StatusManager {
			idx.Manager = name
			idx.BoatType, _ = mem.Get(name, belief.KeyBoatType)
			idx.Session, _ = strconv.Atoi(valueOr(mem, name, belief.KeySessionCount, "0"))
		}
		idx.Characters = append(idx.Characters, Entry{
			Name: name,
			Kind: kind,
			File: fmt.Sprintf("%03d_%s.rec.zst", i, slug(name)),
		})
	}
	if idx.Manager == "" {
		return Index{}, 0, fmt.Errorf("savegame: no manager record")
	}

	tmp := saveDir + ".tmp"
	if err := os.RemoveAll(tmp); err != nil {
		return Index{}, 0, err
	}
	if err := os.MkdirAll(tmp, 0o755); err != nil {
		return Index{}, 0, err
	}

	sizes := make([]int64, len(idx.Characters))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(parallelism)
	for i, e := range idx.Characters {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			n, err := writeRecord(filepath.Join(tmp, e.File), Header{Version: Version, Character: e.Name, Kind: e.Kind}, mem.Record(e.Name))
			sizes[i] = n
			return err
		})
	}
	if err := g.Wait(); err != nil {
		_ = os.RemoveAll(tmp)
		return Index{}, 0, err
	}

	b, _ := json.MarshalIndent(idx, "", "  ")
	if err := os.WriteFile(filepath.Join(tmp, IndexFile), b, 0o644); err != nil {
		_ = os.RemoveAll(tmp)
		return Index{}, 0, err
	}
	total := int64(len(b))
	for _, n := range sizes {
		total += n
	}

	if err := os.RemoveAll(saveDir); err != nil {
		return Index{}, 0, err
	}
	if err := os.Rename(tmp, saveDir); err != nil {
		return Index{}, 0, err
	}
	return idx, total, nil
}

// Read loads every record listed in saveDir's index into a new store.
func Read(ctx context.Context, saveDir string) (*belief.Memory, Index, error) {
	var idx Index
	b, err := os.ReadFile(filepath.Join(saveDir, IndexFile))
	if err != nil {
		return nil, idx, err
	}
	if err := json.Unmarshal(b, &idx); err != nil {
		return nil, idx, fmt.Errorf("%s: %w", IndexFile, err)
	}
	if idx.Version != Version {
		return nil, idx, fmt.Errorf("%s: unsupported version %d", IndexFile, idx.Version)
	}

	mem := belief.NewMemory()
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(parallelism)
	for _, e := range idx.Characters {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			h, rec, err := readRecord(filepath.Join(saveDir, e.File))
			if err != nil {
				return fmt.Errorf("%s: %w", e.File, err)
			}
			if h.Character != e.Name {
				return fmt.Errorf("%s: holds %q, index says %q", e.File, h.Character, e.Name)
			}
			mem.PutRecord(e.Name, rec)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, idx, err
	}
	return mem, idx, nil
}

func writeRecord(path string, h Header, rec map[string]string) (int64, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return 0, err
	}
	bw := bufio.NewWriter(enc)

	hb, _ := json.Marshal(h)
	if _, err := bw.Write(hb); err != nil {
		return 0, err
	}
	if err := bw.WriteByte('\n'); err != nil {
		return 0, err
	}
	if err := json.NewEncoder(bw).Encode(rec); err != nil {
		return 0, fmt.Errorf("json encode: %w", err)
	}
	if err := bw.Flush(); err != nil {
		return 0, err
	}
	if err := enc.Close(); err != nil {
		return 0, err
	}
	st, err := f.Stat()
	if err != nil {
		return 0, err
	}
	return st.Size(), f.Close()
}

func readRecord(path string) (Header, map[string]string, error) {
	var h Header
	f, err := os.Open(path)
	if err != nil {
		return h, nil, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return h, nil, err
	}
	defer dec.Close()

	br := bufio.NewReader(dec)
	line, err := br.ReadBytes('\n')
	if err != nil {
		return h, nil, fmt.Errorf("header: %w", err)
	}
	if err := json.Unmarshal(line, &h); err != nil {
		return h, nil, fmt.Errorf("header: %w", err)
	}
	rec := map[string]string{}
	if err := json.NewDecoder(br).Decode(&rec); err != nil {
		return h, nil, fmt.Errorf("json decode: %w", err)
	}
	return h, rec, nil
}

func slug(name string) string {
	var sb strings.Builder
	for _, r := range name {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			sb.WriteRune(unicode.ToLower(r))
			continue
		}
		sb.WriteByte('_')
	}
	return sb.String()
}

func valueOr(mem *belief.Memory, character, key, def string) string {
	if v, ok := mem.Get(character, key); ok && v != "" {
		return v
	}
	return def
}
