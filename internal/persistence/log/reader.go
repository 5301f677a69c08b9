package log

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/klauspost/compress/zstd"

	"scrounge.ai/internal/sim/world"
)

// ReadEvents decodes one hourly events file.
func ReadEvents(path string) ([]world.EventLogEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	dec, err := zstd.NewReader(f)
	if err != nil {
		return nil, err
	}
	defer dec.Close()

	var out []world.EventLogEntry
	sc := bufio.NewScanner(dec)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	line := 0
	for sc.Scan() {
		line++
		if len(sc.Bytes()) == 0 {
			continue
		}
		var e world.EventLogEntry
		if err := json.Unmarshal(sc.Bytes(), &e); err != nil {
			return out, fmt.Errorf("%s:%d: %w", filepath.Base(path), line, err)
		}
		out = append(out, e)
	}
	return out, sc.Err()
}

// EventFiles lists the hourly event files under dataDir ordered by hour,
// then kind. With kinds given only those streams are listed.
func EventFiles(dataDir string, kinds ...string) ([]string, error) {
	patterns := []string{filepath.Join(dataDir, "events", "*", "*.jsonl.zst")}
	if len(kinds) > 0 {
		patterns = patterns[:0]
		for _, k := range kinds {
			patterns = append(patterns, filepath.Join(dataDir, "events", StreamName(k), "*.jsonl.zst"))
		}
	}
	var files []string
	for _, p := range patterns {
		m, err := filepath.Glob(p)
		if err != nil {
			return nil, err
		}
		files = append(files, m...)
	}
	sort.Slice(files, func(i, j int) bool {
		hi, hj := filepath.Base(files[i]), filepath.Base(files[j])
		if hi != hj {
			return hi < hj
		}
		return files[i] < files[j]
	})
	return files, nil
}
