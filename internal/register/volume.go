package register

import (
	_ "embed"
	"fmt"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/starford/lexikon/internal/apperr"
)

// VolumeType classifies a published tome.
type VolumeType int

const (
	FirstSeries VolumeType = iota + 1
	SecondSeries
	Supplements
	RegisterVolume
)

func (t VolumeType) String() string {
	switch t {
	case FirstSeries:
		return "first_series"
	case SecondSeries:
		return "second_series"
	case Supplements:
		return "supplements"
	case RegisterVolume:
		return "register"
	default:
		return "unknown"
	}
}

var volumeNameRe = regexp.MustCompile(`^(S )?([IVX]+)( A)?(?:,([1-4]))?$`)

// Volume is one published tome. Values are immutable after construction.
type Volume struct {
	Name    string
	Year    string
	Type    VolumeType
	SortKey string
	// Alphabetic range covered by the volume, when known.
	Start string
	End   string
}

// NewVolume classifies name and derives its sort key.
func NewVolume(name, year string) (Volume, error) {
	v := Volume{Name: name, Year: year}
	if name == "R" {
		v.Type = RegisterVolume
		v.SortKey = "4_00_0"
		return v, nil
	}
	m := volumeNameRe.FindStringSubmatch(name)
	if m == nil {
		return Volume{}, fmt.Errorf("register: malformed volume name %q", name)
	}
	supplement, roman, second, half := m[1] != "", m[2], m[3] != "", m[4]
	if supplement && (second || half != "") {
		return Volume{}, fmt.Errorf("register: malformed supplement volume name %q", name)
	}
	value, err := romanToInt(roman)
	if err != nil {
		return Volume{}, fmt.Errorf("register: volume %q: %w", name, err)
	}
	rank := 1
	switch {
	case supplement:
		v.Type, rank = Supplements, 3
	case second:
		v.Type, rank = SecondSeries, 2
	default:
		v.Type = FirstSeries
	}
	if half == "" {
		half = "0"
	}
	v.SortKey = fmt.Sprintf("%d_%02d_%s", rank, value, half)
	return v, nil
}

// FileName is the filesystem-safe name of the volume's register file.
func (v Volume) FileName() string {
	return strings.NewReplacer(",", "_", " ", "_").Replace(v.Name) + ".json"
}

// ScanName is the volume name as used in page-scan file names.
func (v Volume) ScanName() string {
	return strings.ReplaceAll(v.Name, " ", "_")
}

var romanValues = map[byte]int{'I': 1, 'V': 5, 'X': 10}

func romanToInt(s string) (int, error) {
	total := 0
	for i := 0; i < len(s); i++ {
		v, ok := romanValues[s[i]]
		if !ok {
			return 0, fmt.Errorf("invalid roman numeral %q", s)
		}
		if i+1 < len(s) && romanValues[s[i+1]] > v {
			total -= v
		} else {
			total += v
		}
	}
	if total <= 0 {
		return 0, fmt.Errorf("invalid roman numeral %q", s)
	}
	return total, nil
}

//go:embed volumes.yaml
var defaultCatalogYAML []byte

type catalogEntry struct {
	Name  string `yaml:"name"`
	Year  string `yaml:"year"`
	Start string `yaml:"start,omitempty"`
	End   string `yaml:"end,omitempty"`
}

// Catalog is the static, ordered description of every volume.
type Catalog struct {
	volumes []Volume
	byName  map[string]int
}

// NewCatalog builds a catalog from volumes in catalog order.
func NewCatalog(volumes []Volume) (*Catalog, error) {
	c := &Catalog{byName: make(map[string]int, len(volumes))}
	for _, v := range volumes {
		if _, dup := c.byName[v.Name]; dup {
			return nil, fmt.Errorf("register: duplicate volume %q in catalog", v.Name)
		}
		c.byName[v.Name] = len(c.volumes)
		c.volumes = append(c.volumes, v)
	}
	return c, nil
}

// LoadCatalog parses a YAML list of {name, year, start, end} entries.
func LoadCatalog(data []byte) (*Catalog, error) {
	var entries []catalogEntry
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("register: parse catalog: %w", err)
	}
	volumes := make([]Volume, 0, len(entries))
	for _, e := range entries {
		v, err := NewVolume(e.Name, e.Year)
		if err != nil {
			return nil, err
		}
		v.Start, v.End = e.Start, e.End
		volumes = append(volumes, v)
	}
	return NewCatalog(volumes)
}

// DefaultCatalog returns the built-in catalog of the printed edition.
func DefaultCatalog() *Catalog {
	c, err := LoadCatalog(defaultCatalogYAML)
	if err != nil {
		panic(fmt.Sprintf("register: embedded catalog: %v", err))
	}
	return c
}

// Volume returns the volume called name.
func (c *Catalog) Volume(name string) (Volume, error) {
	i, ok := c.byName[name]
	if !ok {
		return Volume{}, &apperr.RegisterError{
			Volume:  name,
			Message: "volume is not in the catalog",
			Err:     apperr.ErrUnknownVolume,
		}
	}
	return c.volumes[i], nil
}

// All returns every volume in catalog order.
func (c *Catalog) All() []Volume {
	out := make([]Volume, len(c.volumes))
	copy(out, c.volumes)
	return out
}

// Len returns the number of volumes.
func (c *Catalog) Len() int {
	return len(c.volumes)
}
