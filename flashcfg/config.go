package flashcfg

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/moffa90/go-bflb/codec"
)

// Config is the YAML part list a table is built from. Defaults apply to
// every part; a part's own fields override them.
//
//	defaults:
//	  jedecid_cmd: 0x9F
//	  page_size: 256
//	parts:
//	  - name: w25q32
//	    jedec_ids: [ef4016]
//	    fields:
//	      io_mode: 4
//	      fast_read_qio_cmd: 0xEB
type Config struct {
	Defaults map[string]uint32 `yaml:"defaults"`
	Parts    []PartConfig      `yaml:"parts"`
}

// PartConfig describes one flash part and every JEDEC ID it answers to.
type PartConfig struct {
	Name     string            `yaml:"name"`
	JEDECIDs []string          `yaml:"jedec_ids"`
	Fields   map[string]uint32 `yaml:"fields"`
}

// Table builds the table. Unknown field names are errors here; the part
// list is edited by hand and a typo would otherwise go unnoticed.
func (c *Config) Table() (*Table, error) {
	t := &Table{}
	for _, p := range c.Parts {
		cfg := NewConfig()

		values := make(map[string]uint32, len(c.Defaults)+len(p.Fields))
		for k, v := range c.Defaults {
			values[k] = v
		}
		for k, v := range p.Fields {
			values[k] = v
		}
		if errs := cfg.EncodeAll(BodySchema, values); len(errs) > 0 {
			return nil, fmt.Errorf("part %q: %w", p.Name, errors.Join(errs...))
		}

		if len(p.JEDECIDs) == 0 {
			return nil, fmt.Errorf("part %q has no JEDEC IDs", p.Name)
		}
		for _, s := range p.JEDECIDs {
			id, err := ParseJEDECID(s)
			if err != nil {
				return nil, fmt.Errorf("part %q: %w", p.Name, err)
			}
			if err := t.Add(id, cfg.Clone()); err != nil {
				return nil, fmt.Errorf("part %q: %w", p.Name, err)
			}
		}
	}
	return t, nil
}

// LoadConfig reads a YAML part list and builds the table.
func LoadConfig(r io.Reader) (*Table, error) {
	var cfg Config
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode flash config list: %w", err)
	}
	if len(cfg.Parts) == 0 {
		return nil, fmt.Errorf("flash config list has no parts")
	}
	return cfg.Table()
}

// ParseConfigFile reads a YAML part list from path.
func ParseConfigFile(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer func() { _ = f.Close() }()

	return LoadConfig(f)
}

// Values decodes every field of a body, for display.
func Values(cfg *codec.Record) map[string]uint32 {
	out := make(map[string]uint32, len(BodySchema))
	for name := range BodySchema {
		v, err := cfg.Decode(BodySchema, name)
		if err == nil {
			out[name] = v
		}
	}
	return out
}
