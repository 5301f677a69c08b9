package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	persistlog "scrounge.ai/internal/persistence/log"
	"scrounge.ai/internal/persistence/snapshot"
	"scrounge.ai/internal/protocol"
	"scrounge.ai/internal/sim/world"
)

func main() {
	var (
		dataDir  = flag.String("data", "./data", "runtime data directory (reads <data>/events)")
		snapPath = flag.String("snapshot", "", "economy snapshot to print (optional)")
		kind     = flag.String("kind", "", "only count events of this kind (optional)")
		fromTick = flag.Uint64("from_tick", 0, "first tick to include")
		toTick   = flag.Uint64("to_tick", 0, "last tick to include (0 = no limit)")
	)
	flag.Parse()

	if *snapPath != "" {
		snap, err := snapshot.ReadSnapshot(*snapPath)
		if err != nil {
			fmt.Fprintln(os.Stderr, "read snapshot:", err)
			os.Exit(1)
		}
		fmt.Printf("snapshot v%d saved_at=%s coins=%d gems=%d\n",
			snap.Header.Version, snap.Header.SavedAt, snap.Header.Coins, snap.Header.Gems)
	}

	f := filter{kind: strings.ToUpper(strings.TrimSpace(*kind)), from: *fromTick, to: *toTick}
	var kinds []string
	if f.kind != "" {
		kinds = append(kinds, f.kind)
	}
	files, err := persistlog.EventFiles(*dataDir, kinds...)
	if err != nil {
		fmt.Fprintln(os.Stderr, "list events:", err)
		os.Exit(1)
	}
	if len(files) == 0 {
		fmt.Fprintln(os.Stderr, "no events files found in", *dataDir)
		os.Exit(1)
	}

	var s summary
	for _, path := range files {
		entries, err := persistlog.ReadEvents(path)
		if err != nil {
			fmt.Fprintln(os.Stderr, "replay:", err)
			os.Exit(1)
		}
		for _, e := range entries {
			if f.match(e) {
				s.add(e)
			}
		}
	}
	s.print(os.Stdout)
}

type filter struct {
	kind     string
	from, to uint64
}

func (f filter) match(e world.EventLogEntry) bool {
	if f.kind != "" && e.Kind != f.kind {
		return false
	}
	if e.Tick < f.from {
		return false
	}
	return f.to == 0 || e.Tick <= f.to
}

type summary struct {
	total       int
	first, last uint64
	byKind      map[string]int
	byPool      map[string]int
	generations map[uint64]bool
	dropsIn     int
	dropsOut    int
}

func (s *summary) add(e world.EventLogEntry) {
	if s.byKind == nil {
		s.byKind = map[string]int{}
		s.byPool = map[string]int{}
		s.generations = map[uint64]bool{}
	}
	if s.total == 0 || e.Tick < s.first {
		s.first = e.Tick
	}
	if e.Tick > s.last {
		s.last = e.Tick
	}
	s.total++
	s.byKind[e.Kind]++
	if e.Pool != "" {
		s.byPool[e.Kind+" "+e.Pool]++
	}
	s.generations[e.Generation] = true
	if e.Kind == protocol.EventZoneDrop {
		if e.InZone {
			s.dropsIn++
		} else {
			s.dropsOut++
		}
	}
}

func (s *summary) print(w io.Writer) {
	if s.total == 0 {
		fmt.Fprintln(w, "no matching events")
		return
	}
	fmt.Fprintf(w, "events=%d ticks=%d..%d generations=%d\n", s.total, s.first, s.last, len(s.generations))
	for _, k := range sortedKeys(s.byKind) {
		fmt.Fprintf(w, "  %-12s %d\n", k, s.byKind[k])
	}
	for _, k := range sortedKeys(s.byPool) {
		fmt.Fprintf(w, "  %-32s %d\n", k, s.byPool[k])
	}
	if s.dropsIn+s.dropsOut > 0 {
		fmt.Fprintf(w, "zone drops: in=%d out=%d\n", s.dropsIn, s.dropsOut)
	}
}

func sortedKeys(m map[string]int) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
