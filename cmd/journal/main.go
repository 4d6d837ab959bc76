// Command journal inspects the command journal written by the server.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"sort"

	persistlog "github.com/bpawel10/skyless/internal/persistence/log"
)

func main() {
	var (
		dir     = flag.String("dir", "./data/journal", "journal dir containing journal-*.jsonl.zst")
		command = flag.String("command", "", "only print entries of this command (optional)")
		verbose = flag.Bool("print", false, "print every matching entry")
	)
	flag.Parse()

	files, err := persistlog.ListFiles(*dir)
	if err != nil {
		fmt.Fprintln(os.Stderr, "list journal:", err)
		os.Exit(1)
	}
	if len(files) == 0 {
		fmt.Fprintln(os.Stderr, "no journal files found in", *dir)
		os.Exit(1)
	}

	var out io.Writer
	if *verbose {
		out = os.Stdout
	}
	sum, err := summarize(files, *command, out)
	if err != nil {
		fmt.Fprintln(os.Stderr, "read journal:", err)
		os.Exit(1)
	}
	sum.write(os.Stdout)
}

type summary struct {
	Files    int
	Entries  int
	Skipped  int
	MaxDepth int
	// Runs lists run ids in order of first appearance.
	Runs     []string
	LastSeq  map[string]uint64
	Commands map[string]int
}

// summarize reads files in order and checks that seqs strictly increase
// within each run. Matching entries are echoed to out when it is non-nil.
func summarize(files []string, command string, out io.Writer) (summary, error) {
	sum := summary{Files: len(files), LastSeq: map[string]uint64{}, Commands: map[string]int{}}
	for _, path := range files {
		err := persistlog.ReadFile(path, func(e persistlog.Entry) error {
			last, seen := sum.LastSeq[e.Run]
			if seen && e.Seq <= last {
				return fmt.Errorf("run %q: seq out of order: %d after %d (id=%s)", e.Run, e.Seq, last, e.ID)
			}
			if !seen {
				sum.Runs = append(sum.Runs, e.Run)
			}
			sum.Entries++
			sum.LastSeq[e.Run] = e.Seq
			if command != "" && e.Command != command {
				return nil
			}
			sum.Commands[e.Command]++
			if !e.Applied {
				sum.Skipped++
			}
			if e.Depth > sum.MaxDepth {
				sum.MaxDepth = e.Depth
			}
			if out != nil {
				fmt.Fprintf(out, "%s/%d %s depth=%d applied=%t%s\n", e.Run, e.Seq, e.Command, e.Depth, e.Applied, detail(e))
			}
			return nil
		})
		if err != nil {
			return sum, err
		}
	}
	return sum, nil
}

func detail(e persistlog.Entry) string {
	s := ""
	if e.Event != "" {
		s += " event=" + e.Event
	}
	if e.From != nil {
		s += " from=" + e.From.String()
	}
	if e.To != nil {
		s += " to=" + e.To.String()
	}
	if e.Attribute != "" {
		s += " attribute=" + e.Attribute
	}
	if len(e.Value) > 0 {
		s += " value=" + string(e.Value)
	}
	return s
}

func (s summary) write(w io.Writer) {
	fmt.Fprintf(w, "journal ok: files=%d runs=%d entries=%d skipped=%d max_depth=%d\n",
		s.Files, len(s.Runs), s.Entries, s.Skipped, s.MaxDepth)
	for _, run := range s.Runs {
		fmt.Fprintf(w, "  run %s last_seq=%d\n", run, s.LastSeq[run])
	}
	names := make([]string, 0, len(s.Commands))
	for name := range s.Commands {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(w, "  %-26s %d\n", name, s.Commands[name])
	}
}
