// Command admin queries a running server and the command index.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/bpawel10/skyless/internal/core/game"
	"github.com/bpawel10/skyless/internal/core/model"
	"github.com/bpawel10/skyless/internal/persistence/indexdb"
)

func main() {
	if len(os.Args) >= 2 {
		switch os.Args[1] {
		case "counts":
			countsCmd(os.Args[2:])
			return
		case "tile":
			tileCmd(os.Args[2:])
			return
		case "health":
			getCmd(os.Args[2:], "/healthz")
			return
		case "metrics":
			getCmd(os.Args[2:], "/metrics")
			return
		}
	}
	fmt.Fprintln(os.Stderr, "usage: admin counts|tile|health|metrics [flags]")
	os.Exit(2)
}

var commandNames = []string{
	game.CmdEmitEvent,
	game.CmdSetGameAttribute,
	game.CmdSetWorld,
	game.CmdAddEntity,
	game.CmdSetEntityAttribute,
	game.CmdRemoveEntityAttribute,
	game.CmdMoveEntity,
}

func openIndex(fs *flag.FlagSet, args []string) (*indexdb.SQLiteIndex, *flag.FlagSet) {
	dbPath := fs.String("db", "./data/index.sqlite", "sqlite index path")
	_ = fs.Parse(args)
	idx, err := indexdb.OpenSQLite(*dbPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "open:", err)
		os.Exit(1)
	}
	return idx, fs
}

func countsCmd(args []string) {
	idx, _ := openIndex(flag.NewFlagSet("counts", flag.ExitOnError), args)
	defer idx.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	total, err := idx.CountCommands(ctx, "")
	if err != nil {
		fmt.Fprintln(os.Stderr, "count:", err)
		os.Exit(1)
	}
	runs, err := idx.Runs(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, "runs:", err)
		os.Exit(1)
	}
	fmt.Printf("%-26s %d\n", "runs", len(runs))
	fmt.Printf("%-26s %d\n", "total", total)
	for _, name := range commandNames {
		n, err := idx.CountCommands(ctx, name)
		if err != nil {
			fmt.Fprintln(os.Stderr, "count:", err)
			os.Exit(1)
		}
		fmt.Printf("%-26s %d\n", name, n)
	}
}

func tileCmd(args []string) {
	fs := flag.NewFlagSet("tile", flag.ExitOnError)
	limit := fs.Int("limit", 20, "result limit")
	idx, fs := openIndex(fs, args)
	defer idx.Close()
	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: admin tile [-db path] [-limit n] x,y,z")
		os.Exit(2)
	}
	pos, err := parseTile(fs.Arg(0))
	if err != nil {
		fmt.Fprintln(os.Stderr, "bad tile:", err)
		os.Exit(2)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	refs, err := idx.TouchedTile(ctx, pos, *limit)
	if err != nil {
		fmt.Fprintln(os.Stderr, "query:", err)
		os.Exit(1)
	}
	for _, ref := range refs {
		fmt.Println(ref)
	}
}

func parseTile(s string) (model.Position, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return model.Position{}, fmt.Errorf("want x,y,z, got %q", s)
	}
	x, err := strconv.ParseUint(strings.TrimSpace(parts[0]), 10, 16)
	if err != nil {
		return model.Position{}, fmt.Errorf("x: %w", err)
	}
	y, err := strconv.ParseUint(strings.TrimSpace(parts[1]), 10, 16)
	if err != nil {
		return model.Position{}, fmt.Errorf("y: %w", err)
	}
	z, err := strconv.ParseUint(strings.TrimSpace(parts[2]), 10, 8)
	if err != nil {
		return model.Position{}, fmt.Errorf("z: %w", err)
	}
	return model.Pos(uint16(x), uint16(y), uint8(z)), nil
}

func getCmd(args []string, path string) {
	fs := flag.NewFlagSet(strings.TrimPrefix(path, "/"), flag.ExitOnError)
	baseURL := fs.String("url", "http://127.0.0.1:8080", "server base url")
	_ = fs.Parse(args)

	u := strings.TrimRight(strings.TrimSpace(*baseURL), "/") + path
	cl := &http.Client{Timeout: 5 * time.Second}
	resp, err := cl.Get(u)
	if err != nil {
		fmt.Fprintln(os.Stderr, "request:", err)
		os.Exit(1)
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	fmt.Println(string(b))
	if resp.StatusCode/100 != 2 {
		os.Exit(1)
	}
}
