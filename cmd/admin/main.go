package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	persistlog "crewline.ai/internal/persistence/log"
	"crewline.ai/internal/persistence/savegame"
)

func main() {
	if len(os.Args) >= 2 {
		switch os.Args[1] {
		case "rollback":
			rollbackCmd(os.Args[2:])
			return
		case "db":
			dbCmd(os.Args[2:])
			return
		case "journal":
			journalCmd(os.Args[2:])
			return
		}
	}
	listCmd(os.Args[1:])
}

func gameDir(dataDir, game string) string { return filepath.Join(dataDir, "games", game) }

func listCmd(args []string) {
	fs := flag.NewFlagSet("admin", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	_ = fs.Parse(args)

	base := filepath.Join(*dataDir, "games")
	entries, err := os.ReadDir(base)
	if err != nil {
		fmt.Fprintln(os.Stderr, "read:", err)
		os.Exit(1)
	}
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		_, idx, err := savegame.Read(context.Background(), filepath.Join(base, e.Name(), "save"))
		if err != nil {
			fmt.Printf("%s\t(no save)\n", e.Name())
			continue
		}
		fmt.Printf("%s\tmanager=%q boat=%s session=%d saved=%s\n", e.Name(), idx.Manager, idx.BoatType, idx.Session, idx.SavedAt)
	}
}

func rollbackCmd(args []string) {
	fs := flag.NewFlagSet("rollback", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	game := fs.String("game", "", "game id")
	race := fs.Int("race", 0, "race number whose archived save becomes the current save")
	_ = fs.Parse(args)

	if strings.TrimSpace(*game) == "" || *race <= 0 {
		fmt.Fprintln(os.Stderr, "missing -game or -race")
		os.Exit(2)
	}
	idx, err := rollback(context.Background(), gameDir(*dataDir, *game), *race)
	if err != nil {
		fmt.Fprintln(os.Stderr, "rollback:", err)
		os.Exit(1)
	}
	fmt.Printf("restored race %d: session=%d boat=%s characters=%d\n", *race, idx.Session, idx.BoatType, len(idx.Characters))
}

// rollback replaces the game's save with the save archived after race.
// The archive is read and rewritten, so a damaged archive leaves the
// current save untouched.
func rollback(ctx context.Context, dir string, race int) (savegame.Index, error) {
	src := filepath.Join(dir, "archives", fmt.Sprintf("race_%03d", race))
	mem, _, err := savegame.Read(ctx, src)
	if err != nil {
		return savegame.Index{}, err
	}
	idx, _, err := savegame.Write(ctx, filepath.Join(dir, "save"), mem)
	return idx, err
}

func journalCmd(args []string) {
	fs := flag.NewFlagSet("journal", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	game := fs.String("game", "", "game id")
	_ = fs.Parse(args)

	if strings.TrimSpace(*game) == "" {
		fmt.Fprintln(os.Stderr, "missing -game")
		os.Exit(2)
	}
	entries, err := persistlog.ReadSessions(gameDir(*dataDir, *game))
	if err != nil {
		fmt.Fprintln(os.Stderr, "journal:", err)
		os.Exit(1)
	}
	for _, e := range entries {
		printJSON(e)
	}
}

func printJSON(v any) {
	b, _ := json.Marshal(v)
	fmt.Println(string(b))
}
