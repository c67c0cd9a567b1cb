package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"
)

// MaxShots caps stored screenshots per symbol; the oldest are pruned on
// save.
const MaxShots = 50

var shotIDRe = regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`)

// ShotMeta describes one stored drawing screenshot.
type ShotMeta struct {
	ID      string    `json:"id"`
	Symbol  string    `json:"symbol"`
	Tool    string    `json:"tool,omitempty"`
	Price   string    `json:"price,omitempty"`
	Format  string    `json:"format"`
	TakenAt time.Time `json:"taken_at"`
}

// ShotStore manages screenshot files on disk, each image paired with a
// metadata sidecar.
type ShotStore struct {
	dir string
	mu  sync.RWMutex
}

// NewShotStore creates a ShotStore and ensures the directory exists.
func NewShotStore(dir string) (*ShotStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("shot store: mkdir %s: %w", dir, err)
	}
	return &ShotStore{dir: dir}, nil
}

func (s *ShotStore) validateID(id string) error {
	if !shotIDRe.MatchString(id) {
		return fmt.Errorf("invalid screenshot id: %q", id)
	}
	return nil
}

// Save writes the image and its metadata sidecar, then prunes beyond the
// cap.
func (s *ShotStore) Save(meta ShotMeta, imageData []byte) error {
	if err := s.validateID(meta.ID); err != nil {
		return err
	}
	if meta.Format == "" {
		meta.Format = "png"
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	imgPath := filepath.Join(s.dir, meta.ID+"."+meta.Format)
	jsonPath := filepath.Join(s.dir, meta.ID+".json")

	if err := os.WriteFile(imgPath, imageData, 0o644); err != nil {
		return fmt.Errorf("shot store: write image: %w", err)
	}

	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		_ = os.Remove(imgPath)
		return fmt.Errorf("shot store: marshal meta: %w", err)
	}
	if err := os.WriteFile(jsonPath, data, 0o644); err != nil {
		_ = os.Remove(imgPath)
		return fmt.Errorf("shot store: write meta: %w", err)
	}

	s.prune()
	return nil
}

// Get reads screenshot metadata by ID.
func (s *ShotStore) Get(id string) (ShotMeta, error) {
	if err := s.validateID(id); err != nil {
		return ShotMeta{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.readMeta(filepath.Join(s.dir, id+".json"))
}

func (s *ShotStore) readMeta(path string) (ShotMeta, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return ShotMeta{}, fmt.Errorf("screenshot not found: %s", strings.TrimSuffix(filepath.Base(path), ".json"))
		}
		return ShotMeta{}, fmt.Errorf("shot store: read meta: %w", err)
	}
	var meta ShotMeta
	if err := json.Unmarshal(data, &meta); err != nil {
		return ShotMeta{}, fmt.Errorf("shot store: unmarshal meta: %w", err)
	}
	return meta, nil
}

// List returns screenshots newest first, optionally narrowed to one symbol.
func (s *ShotStore) List(symbol string) ([]ShotMeta, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	metas, err := s.listLocked()
	if err != nil {
		return nil, err
	}
	if symbol == "" {
		return metas, nil
	}
	out := metas[:0]
	for _, m := range metas {
		if strings.EqualFold(m.Symbol, symbol) {
			out = append(out, m)
		}
	}
	return out, nil
}

func (s *ShotStore) listLocked() ([]ShotMeta, error) {
	matches, err := filepath.Glob(filepath.Join(s.dir, "*.json"))
	if err != nil {
		return nil, fmt.Errorf("shot store: glob: %w", err)
	}

	metas := make([]ShotMeta, 0, len(matches))
	for _, path := range matches {
		meta, err := s.readMeta(path)
		if err != nil {
			continue
		}
		metas = append(metas, meta)
	}

	sort.Slice(metas, func(i, j int) bool {
		return metas[i].TakenAt.After(metas[j].TakenAt)
	})
	return metas, nil
}

// ReadImage reads the raw image bytes and returns the format.
func (s *ShotStore) ReadImage(id string) ([]byte, string, error) {
	meta, err := s.Get(id)
	if err != nil {
		return nil, "", err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := os.ReadFile(filepath.Join(s.dir, id+"."+meta.Format))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, "", fmt.Errorf("screenshot image not found: %s", id)
		}
		return nil, "", fmt.Errorf("shot store: read image: %w", err)
	}
	return data, meta.Format, nil
}

// Delete removes both the image and metadata files.
func (s *ShotStore) Delete(id string) error {
	meta, err := s.Get(id)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.removeLocked(meta)
	return nil
}

func (s *ShotStore) removeLocked(meta ShotMeta) {
	_ = os.Remove(filepath.Join(s.dir, meta.ID+"."+meta.Format))
	_ = os.Remove(filepath.Join(s.dir, meta.ID+".json"))
}

// prune is called with the lock held and drops, for each symbol, the oldest
// shots beyond the cap.
func (s *ShotStore) prune() {
	metas, err := s.listLocked()
	if err != nil {
		return
	}
	perSymbol := make(map[string]int)
	for _, meta := range metas {
		key := strings.ToUpper(meta.Symbol)
		perSymbol[key]++
		if perSymbol[key] > MaxShots {
			s.removeLocked(meta)
		}
	}
}
