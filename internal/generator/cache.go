package generator

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/robert-at-pretension-io/hdlgen/internal/config"
	"github.com/robert-at-pretension-io/hdlgen/internal/facts"
)

const cacheIndexVersion = 1

// generatorVersion invalidates every cache entry when the output format
// changes
const generatorVersion = "hdlgen/1"

type cacheEntry struct {
	DesignHash string `json:"design_hash"`
	ConfigHash string `json:"config_hash"`
	OutputPath string `json:"output_path"`
	OutputHash string `json:"output_hash"`
	FactsPath  string `json:"facts_path"`
}

type cacheIndex struct {
	Version int                   `json:"version"`
	Entries map[string]cacheEntry `json:"entries"`
}

// genCache remembers, per design document, the hashes that produced an
// output file and the fact tables of that run
type genCache struct {
	dir   string
	mu    sync.Mutex
	index cacheIndex
}

func newGenCache(dir string) *genCache {
	return &genCache{
		dir: dir,
		index: cacheIndex{
			Version: cacheIndexVersion,
			Entries: make(map[string]cacheEntry),
		},
	}
}

func (c *genCache) indexPath() string {
	return filepath.Join(c.dir, "index.json")
}

func (c *genCache) factsPathForFile(filePath string) string {
	h := sha256.Sum256([]byte(filePath))
	return filepath.Join(c.dir, "facts", hex.EncodeToString(h[:])+".json")
}

func (c *genCache) Load() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return fmt.Errorf("cache mkdir: %w", err)
	}
	data, err := os.ReadFile(c.indexPath())
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read cache index: %w", err)
	}
	var idx cacheIndex
	if err := json.Unmarshal(data, &idx); err != nil {
		return fmt.Errorf("parse cache index: %w", err)
	}
	if idx.Version != cacheIndexVersion {
		return nil
	}
	if idx.Entries == nil {
		idx.Entries = make(map[string]cacheEntry)
	}
	c.index = idx
	return nil
}

func (c *genCache) Save() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return writeJSONAtomic(c.indexPath(), c.index)
}

// Get returns the cached run of a design document when its content and the
// config are unchanged and its output file still holds what was written
func (c *genCache) Get(filePath, designHash, configHash string) (cacheEntry, facts.Tables, bool, error) {
	c.mu.Lock()
	entry, ok := c.index.Entries[filePath]
	c.mu.Unlock()
	if !ok || entry.DesignHash != designHash || entry.ConfigHash != configHash {
		return cacheEntry{}, facts.Tables{}, false, nil
	}

	outputHash, err := hashFile(entry.OutputPath)
	if err != nil || outputHash != entry.OutputHash {
		return cacheEntry{}, facts.Tables{}, false, nil
	}

	data, err := os.ReadFile(entry.FactsPath)
	if err != nil {
		return cacheEntry{}, facts.Tables{}, false, fmt.Errorf("read cached facts: %w", err)
	}
	var tables facts.Tables
	if err := json.Unmarshal(data, &tables); err != nil {
		return cacheEntry{}, facts.Tables{}, false, fmt.Errorf("parse cached facts: %w", err)
	}
	return entry, tables, true, nil
}

func (c *genCache) Put(filePath string, entry cacheEntry, tables facts.Tables) error {
	entry.FactsPath = c.factsPathForFile(filePath)
	if err := writeJSONAtomic(entry.FactsPath, tables); err != nil {
		return err
	}

	c.mu.Lock()
	c.index.Entries[filePath] = entry
	c.mu.Unlock()
	return nil
}

// configHash covers everything besides the design document that shapes the
// generated text
func configHash(cfg *config.Config) (string, error) {
	data, err := json.Marshal(struct {
		Version string              `json:"version"`
		Output  config.OutputConfig `json:"output"`
	}{generatorVersion, cfg.Output})
	if err != nil {
		return "", fmt.Errorf("marshal config: %w", err)
	}
	return hashBytes(data), nil
}

func writeJSONAtomic(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal cache json: %w", err)
	}
	return writeFileAtomic(path, data)
}

// writeFileAtomic writes through a temp file in the target directory so
// readers never see a partial file
func writeFileAtomic(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create dir: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return fmt.Errorf("temp file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("close %s: %w", path, err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("chmod %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("rename %s: %w", path, err)
	}
	return nil
}

func hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

func hashBytes(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}
