package reference

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"regexp"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed grenzwerte.yaml
var embedded []byte

// NotApplicable is rendered wherever a threshold does not exist for a group.
const NotApplicable = "nicht anwendbar"

// Group is one ISO/TR 15608 material group with its limits.
type Group struct {
	Beschreibung        string `yaml:"beschreibung" json:"beschreibung"`
	Norm                string `yaml:"norm" json:"norm"`
	HaerteMaxHV10       int    `yaml:"haerteMaxHV10" json:"haerteMaxHV10"`
	ZugfestigkeitMinMPa int    `yaml:"zugfestigkeitMinMPa" json:"zugfestigkeitMinMPa"`
}

type Material struct {
	Group               string `yaml:"group" json:"gruppe"`
	ZugfestigkeitMinMPa int    `yaml:"zugfestigkeitMinMPa" json:"zugfestigkeitMinMPa"`
}

type Defect struct {
	Name     string `yaml:"name" json:"name"`
	Kritisch bool   `yaml:"kritisch" json:"kritisch"`
}

// Tables is immutable after Load; safe for concurrent readers.
type Tables struct {
	DefaultGroup    string              `yaml:"defaultGroup" json:"defaultGroup"`
	DefaultMaterial string              `yaml:"defaultMaterial" json:"defaultMaterial"`
	Groups          map[string]Group    `yaml:"groups" json:"werkstoffgruppen"`
	Materials       map[string]Material `yaml:"materials" json:"werkstoffe"`
	Defects         map[string]Defect   `yaml:"defects" json:"fehlerkatalog"`

	materialIndex map[string]string
	defectCodes   []string
}

// Thresholds is the resolved view of one material.
type Thresholds struct {
	Material            string
	Group               string
	GroupDescription    string
	Standard            string
	HaerteMaxHV10       int
	ZugfestigkeitMinMPa int
}

// HardnessText renders the hardness ceiling or NotApplicable.
func (t Thresholds) HardnessText() string {
	if t.HaerteMaxHV10 <= 0 {
		return NotApplicable
	}
	return fmt.Sprintf("max. %d HV10", t.HaerteMaxHV10)
}

// TensileText renders the tensile floor or NotApplicable.
func (t Thresholds) TensileText() string {
	if t.ZugfestigkeitMinMPa <= 0 {
		return NotApplicable
	}
	return fmt.Sprintf("min. %d MPa", t.ZugfestigkeitMinMPa)
}

// Load parses the tables from path, or from the embedded defaults when path is empty.
func Load(path string) (*Tables, error) {
	data := embedded
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("reference file %s not found: %w", path, err)
			}
			return nil, fmt.Errorf("read reference file: %w", err)
		}
		data = b
	}
	return Parse(data)
}

// Default returns the embedded tables and panics if they are broken.
func Default() *Tables {
	t, err := Parse(embedded)
	if err != nil {
		panic(err)
	}
	return t
}

func Parse(data []byte) (*Tables, error) {
	var t Tables
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("parse reference tables: %w", err)
	}
	if t.DefaultGroup == "" {
		return nil, errors.New("reference tables: defaultGroup is required")
	}
	if _, ok := t.Groups[t.DefaultGroup]; !ok {
		return nil, fmt.Errorf("reference tables: default group %q is not defined", t.DefaultGroup)
	}
	for id, m := range t.Materials {
		if _, ok := t.Groups[m.Group]; !ok {
			return nil, fmt.Errorf("reference tables: material %s points to unknown group %q", id, m.Group)
		}
	}

	t.materialIndex = make(map[string]string, len(t.Materials))
	for id := range t.Materials {
		t.materialIndex[normalize(id)] = id
	}
	t.defectCodes = make([]string, 0, len(t.Defects))
	for code := range t.Defects {
		t.defectCodes = append(t.defectCodes, code)
	}
	sort.Strings(t.defectCodes)
	return &t, nil
}

// DefectCodes returns catalog codes in a stable order.
func (t *Tables) DefectCodes() []string {
	out := make([]string, len(t.defectCodes))
	copy(out, t.defectCodes)
	return out
}

var leadingToken = regexp.MustCompile(`^(?:EN AW-\d{4}|\d\.\d{4}|[A-Z]{1,2}\d{3})`)

// lookupMaterial: exact match, then leading token, otherwise "".
func (t *Tables) lookupMaterial(material string) string {
	n := normalize(material)
	if n == "" {
		return ""
	}
	if id, ok := t.materialIndex[n]; ok {
		return id
	}
	if tok := leadingToken.FindString(n); tok != "" {
		if id, ok := t.materialIndex[tok]; ok {
			return id
		}
	}
	if fields := strings.Fields(n); len(fields) > 1 {
		if id, ok := t.materialIndex[fields[0]]; ok {
			return id
		}
	}
	return ""
}

// ResolveGroup never fails: unknown identifiers fall back to the default group.
func (t *Tables) ResolveGroup(material string) string {
	if id := t.lookupMaterial(material); id != "" {
		return t.Materials[id].Group
	}
	return t.DefaultGroup
}

// Thresholds resolves the limits for a material. The tensile floor is the material's own
// value when known, the group's otherwise.
func (t *Tables) Thresholds(material string) Thresholds {
	group := t.ResolveGroup(material)
	g := t.Groups[group]
	out := Thresholds{
		Material:            strings.TrimSpace(material),
		Group:               group,
		GroupDescription:    g.Beschreibung,
		Standard:            g.Norm,
		HaerteMaxHV10:       g.HaerteMaxHV10,
		ZugfestigkeitMinMPa: g.ZugfestigkeitMinMPa,
	}
	if id := t.lookupMaterial(material); id != "" {
		out.ZugfestigkeitMinMPa = t.Materials[id].ZugfestigkeitMinMPa
	}
	return out
}

func normalize(s string) string {
	return strings.ToUpper(strings.Join(strings.Fields(s), " "))
}
