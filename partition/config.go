package partition

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the YAML description of a partition table.
//
// Example:
//
//	version: 0
//	age: 0
//	entries:
//	  - name: FW
//	    type: 0
//	    address: [0x10000, 0xE8000]
//	    max_len: [0xD8000, 0xD8000]
//	  - name: mfg
//	    type: 2
//	    address: [0x160000, 0]
//	    max_len: [0x32000, 0]
type Config struct {
	Version uint16        `yaml:"version"`
	Age     uint32        `yaml:"age"`
	Entries []EntryConfig `yaml:"entries"`
}

// EntryConfig is the YAML description of one entry. Its fields mirror Entry.
type EntryConfig struct {
	Type        uint8     `yaml:"type"`
	Device      uint8     `yaml:"device"`
	ActiveIndex uint8     `yaml:"active_index"`
	Name        string    `yaml:"name"`
	Address     [2]uint32 `yaml:"address"`
	MaxLen      [2]uint32 `yaml:"max_len"`
	Len         uint32    `yaml:"len"`
	Age         uint32    `yaml:"age"`
}

// Table converts the description into a Table.
func (c *Config) Table() *Table {
	t := &Table{
		Version: c.Version,
		Age:     c.Age,
		Entries: make([]Entry, 0, len(c.Entries)),
	}
	for _, e := range c.Entries {
		t.Entries = append(t.Entries, Entry(e))
	}
	return t
}

// LoadConfig reads a YAML partition description.
func LoadConfig(r io.Reader) (*Table, error) {
	var cfg Config
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode partition config: %w", err)
	}
	if len(cfg.Entries) == 0 {
		return nil, fmt.Errorf("partition config has no entries")
	}
	if len(cfg.Entries) > MaxEntries {
		return nil, fmt.Errorf("partition config has %d entries, maximum is %d", len(cfg.Entries), MaxEntries)
	}
	return cfg.Table(), nil
}

// ParseConfigFile reads a YAML partition description from path.
func ParseConfigFile(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer func() { _ = f.Close() }()

	return LoadConfig(f)
}
