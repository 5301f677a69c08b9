package snapshot

import (
	"bufio"
	"context"
	"encoding/gob"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/klauspost/compress/zstd"

	"scrounge.ai/internal/sim/economy"
)

const Version = 1

type Header struct {
	Version int    `json:"version"`
	SavedAt string `json:"saved_at"`
	Gems    int    `json:"gems"`
	Coins   int64  `json:"coins"`
}

type EconomyV1 struct {
	Header Header `json:"header"`

	Currency map[string]int64 `json:"currency"`
	Gems     []GemV1          `json:"gems"`
}

type GemV1 struct {
	ID       string  `json:"id"`
	Type     string  `json:"type"`
	Rarity   string  `json:"rarity"`
	Shape    string  `json:"shape"`
	Growth   float64 `json:"growth"`
	Size     float64 `json:"size"`
	Level    int     `json:"level"`
	Growing  bool    `json:"is_growing"`
	Offering bool    `json:"is_offering"`
}

func FromState(st economy.State, now time.Time) EconomyV1 {
	snap := EconomyV1{
		Header: Header{
			Version: Version,
			SavedAt: now.UTC().Format(time.RFC3339Nano),
			Gems:    len(st.Gems),
			Coins:   st.Coins(),
		},
		Currency: map[string]int64{},
		Gems:     make([]GemV1, 0, len(st.Gems)),
	}
	for k, v := range st.Currency {
		snap.Currency[k] = v
	}
	for _, g := range st.Gems {
		growing, offering := g.Placement.Flags()
		snap.Gems = append(snap.Gems, GemV1{
			ID:       g.ID,
			Type:     g.Type,
			Rarity:   g.Rarity,
			Shape:    g.Shape,
			Growth:   g.Growth,
			Size:     g.Size,
			Level:    g.Level,
			Growing:  growing,
			Offering: offering,
		})
	}
	return snap
}

func (s EconomyV1) State() economy.State {
	st := economy.State{Currency: map[string]int64{}}
	for k, v := range s.Currency {
		st.Currency[k] = v
	}
	for _, g := range s.Gems {
		st.Gems = append(st.Gems, economy.Gem{
			ID:        g.ID,
			Type:      g.Type,
			Rarity:    g.Rarity,
			Shape:     g.Shape,
			Growth:    g.Growth,
			Size:      g.Size,
			Level:     g.Level,
			Placement: economy.PlacementFromFlags(g.Growing, g.Offering),
		})
	}
	st.Normalize()
	return st
}

func WriteSnapshot(path string, snap EconomyV1) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return err
	}

	bw := bufio.NewWriterSize(enc, 64*1024)
	hb, _ := json.Marshal(snap.Header)
	if _, err := bw.Write(hb); err != nil {
		return err
	}
	if err := bw.WriteByte('\n'); err != nil {
		return err
	}
	if err := gob.NewEncoder(bw).Encode(&snap); err != nil {
		return fmt.Errorf("gob encode: %w", err)
	}
	if err := bw.Flush(); err != nil {
		return err
	}
	if err := enc.Close(); err != nil {
		return err
	}
	return f.Sync()
}

func ReadSnapshot(path string) (EconomyV1, error) {
	var snap EconomyV1
	f, err := os.Open(path)
	if err != nil {
		return snap, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return snap, err
	}
	defer dec.Close()

	br := bufio.NewReaderSize(dec, 64*1024)
	hb, err := br.ReadBytes('\n')
	if err != nil {
		return snap, fmt.Errorf("read header: %w", err)
	}
	var h Header
	if err := json.Unmarshal(hb, &h); err != nil {
		return snap, fmt.Errorf("header: %w", err)
	}
	if h.Version != Version {
		return snap, fmt.Errorf("unsupported snapshot version %d", h.Version)
	}
	if err := gob.NewDecoder(br).Decode(&snap); err != nil {
		return snap, fmt.Errorf("gob decode: %w", err)
	}
	return snap, nil
}

// FileStore keeps the economy in one snapshot file, replaced atomically on
// every save.
type FileStore struct {
	Path string
	now  func() time.Time
}

func NewFileStore(path string) *FileStore {
	return &FileStore{Path: path, now: time.Now}
}

func (s *FileStore) Load(ctx context.Context) (economy.State, error) {
	if err := ctx.Err(); err != nil {
		return economy.State{}, err
	}
	snap, err := ReadSnapshot(s.Path)
	if errors.Is(err, os.ErrNotExist) {
		return economy.State{Currency: map[string]int64{}}, nil
	}
	if err != nil {
		return economy.State{}, fmt.Errorf("snapshot %s: %w", s.Path, err)
	}
	return snap.State(), nil
}

func (s *FileStore) Save(ctx context.Context, st economy.State) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	tmp := s.Path + ".tmp"
	if err := WriteSnapshot(tmp, FromState(st, s.now())); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, s.Path)
}
