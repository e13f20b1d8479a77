package catalogs

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// NumDirections is the fixed face count per prototype. Direction d and
// (d+3)%6 are opposites.
const NumDirections = 6

type Catalogs struct {
	Prototypes PrototypeCatalog
	Columns    ColumnCatalog
}

type PrototypeCatalog struct {
	Palette       []string
	Index         map[string]uint16
	ByID          map[string]*Prototype
	Ordered       []*Prototype // palette order
	PaletteDigest string
	DefsDigest    string
}

// Face is one side of a prototype: neighbors match when the facing tags
// are equal, and a walkway may only pass through walkable faces.
type Face struct {
	Tag      string `json:"tag"`
	Walkable bool   `json:"walkable,omitempty"`
}

type ExclusionDef struct {
	Direction int    `json:"direction"`
	Other     string `json:"other"`
}

type PrototypeDef struct {
	ID         string         `json:"id"`
	Faces      [6]Face        `json:"faces"`
	Weight     float64        `json:"weight"`
	Exclusions []ExclusionDef `json:"exclusions,omitempty"`
}

// Prototype is the immutable runtime form shared by every slot.
type Prototype struct {
	ID     string
	Index  uint16
	Faces  [6]Face
	Weight float64

	excluded [6]map[string]struct{}
}

// Excludes reports whether an authored exclusion rule forbids other as the
// neighbor of p in direction d.
func (p *Prototype) Excludes(d int, other string) bool {
	m := p.excluded[d]
	if m == nil {
		return false
	}
	_, ok := m[other]
	return ok
}

type ColumnCatalog struct {
	Default []string
	ByY     map[int][]string
	Digest  string
}

// ProfileAt returns the authored candidate ids for a given height layer.
func (c *ColumnCatalog) ProfileAt(y int) []string {
	if ids, ok := c.ByY[y]; ok {
		return ids
	}
	return c.Default
}

func Load(configDir string) (*Catalogs, error) {
	var c Catalogs

	if err := loadPrototypes(filepath.Join(configDir, "prototypes.json"), &c.Prototypes); err != nil {
		return nil, err
	}
	if err := loadColumns(filepath.Join(configDir, "columns.json"), &c.Columns); err != nil {
		return nil, err
	}
	if err := c.Columns.validate(&c.Prototypes); err != nil {
		return nil, err
	}
	return &c, nil
}

func sha256Hex(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

func loadPrototypes(path string, out *PrototypeCatalog) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	out.DefsDigest = sha256Hex(raw)

	var defs []PrototypeDef
	if err := json.Unmarshal(raw, &defs); err != nil {
		return fmt.Errorf("prototypes.json: %w", err)
	}
	cat, err := BuildPrototypes(defs)
	if err != nil {
		return fmt.Errorf("prototypes.json: %w", err)
	}
	cat.DefsDigest = out.DefsDigest
	*out = cat
	return nil
}

// BuildPrototypes assembles the runtime catalog from authored definitions.
// The palette is id-sorted so indices are stable across runs.
func BuildPrototypes(defs []PrototypeDef) (PrototypeCatalog, error) {
	var out PrototypeCatalog
	if len(defs) == 0 {
		return out, fmt.Errorf("empty prototype set")
	}

	byID := map[string]PrototypeDef{}
	for _, d := range defs {
		if d.ID == "" {
			return out, fmt.Errorf("empty id")
		}
		if _, dup := byID[d.ID]; dup {
			return out, fmt.Errorf("duplicate id %q", d.ID)
		}
		if d.Weight <= 0 {
			return out, fmt.Errorf("prototype %q: weight must be positive", d.ID)
		}
		for i, f := range d.Faces {
			if f.Tag == "" {
				return out, fmt.Errorf("prototype %q: face %d missing tag", d.ID, i)
			}
		}
		byID[d.ID] = d
	}

	ids := make([]string, 0, len(byID))
	for id := range byID {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	out.Palette = ids
	out.Index = make(map[string]uint16, len(ids))
	out.ByID = make(map[string]*Prototype, len(ids))
	out.Ordered = make([]*Prototype, 0, len(ids))
	for i, id := range ids {
		d := byID[id]
		p := &Prototype{
			ID:     d.ID,
			Index:  uint16(i),
			Faces:  d.Faces,
			Weight: d.Weight,
		}
		for _, ex := range d.Exclusions {
			if ex.Direction < 0 || ex.Direction >= NumDirections {
				return out, fmt.Errorf("prototype %q: exclusion direction %d out of range", d.ID, ex.Direction)
			}
			if _, ok := byID[ex.Other]; !ok {
				return out, fmt.Errorf("prototype %q: exclusion references unknown id %q", d.ID, ex.Other)
			}
			if p.excluded[ex.Direction] == nil {
				p.excluded[ex.Direction] = map[string]struct{}{}
			}
			p.excluded[ex.Direction][ex.Other] = struct{}{}
		}
		out.Index[id] = uint16(i)
		out.ByID[id] = p
		out.Ordered = append(out.Ordered, p)
	}

	palJSON, _ := json.Marshal(ids)
	out.PaletteDigest = sha256Hex(palJSON)
	return out, nil
}

type columnsFile struct {
	Default []string `json:"default"`
	Layers  []struct {
		Y          int      `json:"y"`
		Prototypes []string `json:"prototypes"`
	} `json:"layers"`
}

func loadColumns(path string, out *ColumnCatalog) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	out.Digest = sha256Hex(raw)

	var f columnsFile
	if err := json.Unmarshal(raw, &f); err != nil {
		return fmt.Errorf("columns.json: %w", err)
	}
	cat, err := BuildColumns(f.Default, layerMap(f))
	if err != nil {
		return fmt.Errorf("columns.json: %w", err)
	}
	cat.Digest = out.Digest
	*out = cat
	return nil
}

func layerMap(f columnsFile) map[int][]string {
	m := map[int][]string{}
	for _, l := range f.Layers {
		m[l.Y] = l.Prototypes
	}
	return m
}

// BuildColumns assembles the per-layer default candidate profiles.
func BuildColumns(def []string, byY map[int][]string) (ColumnCatalog, error) {
	var out ColumnCatalog
	if len(def) == 0 {
		return out, fmt.Errorf("missing default column profile")
	}
	out.Default = append([]string(nil), def...)
	out.ByY = map[int][]string{}
	for y, ids := range byY {
		if y < 0 {
			return out, fmt.Errorf("layer y %d below zero", y)
		}
		if len(ids) == 0 {
			return out, fmt.Errorf("layer y %d: empty profile", y)
		}
		out.ByY[y] = append([]string(nil), ids...)
	}
	return out, nil
}

func (c *ColumnCatalog) validate(protos *PrototypeCatalog) error {
	check := func(ids []string, where string) error {
		for _, id := range ids {
			if _, ok := protos.ByID[id]; !ok {
				return fmt.Errorf("columns.json: %s references unknown prototype %q", where, id)
			}
		}
		return nil
	}
	if err := check(c.Default, "default profile"); err != nil {
		return err
	}
	for y, ids := range c.ByY {
		if err := check(ids, fmt.Sprintf("layer %d", y)); err != nil {
			return err
		}
	}
	return nil
}
