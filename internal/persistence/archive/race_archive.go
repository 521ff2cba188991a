package archive

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"crewline.ai/internal/persistence/savegame"
)

type RaceArchiveMeta struct {
	Race       int    `json:"race"`
	Score      int    `json:"score"`
	Session    int    `json:"session"`
	Manager    string `json:"manager"`
	BoatType   string `json:"boat_type"`
	Characters int    `json:"characters"`
	CreatedAt  string `json:"created_at"`
}

// ArchiveRaceSave copies the save written after a race into
// `gameDir/archives/race_<NNN>/`. It returns archived=false when race is not
// a race number.
func ArchiveRaceSave(gameDir, saveDir string, idx savegame.Index, race, score int) (archivedPath string, archived bool, err error) {
	if race <= 0 {
		return "", false, nil
	}

	archiveDir := filepath.Join(gameDir, "archives", fmt.Sprintf("race_%03d", race))
	if err := os.RemoveAll(archiveDir); err != nil {
		return "", false, err
	}
	if err := os.MkdirAll(archiveDir, 0o755); err != nil {
		return "", false, err
	}

	files := []string{savegame.IndexFile}
	for _, e := range idx.Characters {
		files = append(files, e.File)
	}
	for _, name := range files {
		if err := copyFile(filepath.Join(saveDir, name), filepath.Join(archiveDir, name)); err != nil {
			return "", false, err
		}
	}

	meta := RaceArchiveMeta{
		Race:       race,
		Score:      score,
		Session:    idx.Session,
		Manager:    idx.Manager,
		BoatType:   idx.BoatType,
		Characters: len(idx.Characters),
		CreatedAt:  time.Now().UTC().Format(time.RFC3339Nano),
	}
	if b, err := json.MarshalIndent(meta, "", "  "); err == nil {
		_ = os.WriteFile(filepath.Join(archiveDir, "meta.json"), b, 0o644)
	}

	return archiveDir, true, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer func() { _ = out.Close() }()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Close()
}
