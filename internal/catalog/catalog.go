package catalog

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var defaultCatalog []byte

var (
	ErrUnknownReciter  = errors.New("unknown reciter")
	ErrUnknownResource = errors.New("unknown content resource")
)

// ContentKind separates the two supplementary text sources.
type ContentKind string

const (
	Tafsir      ContentKind = "tafsir"
	Translation ContentKind = "translation"
)

type Reciter struct {
	Name    string `yaml:"name"`
	Display string `yaml:"display"`
	Dir     string `yaml:"dir"`
	BaseURL string `yaml:"base_url"`
}

// Resource is a downloadable tafsir or translation database.
type Resource struct {
	Name    string `yaml:"name"`
	Display string `yaml:"display"`
	File    string `yaml:"file"`
	URL     string `yaml:"url,omitempty"`
}

type Catalog struct {
	ContentBaseURL string     `yaml:"content_base_url"`
	Reciters       []Reciter  `yaml:"reciters"`
	Tafasir        []Resource `yaml:"tafasir"`
	Translations   []Resource `yaml:"translations"`
}

func Default() (*Catalog, error) {
	return Parse(defaultCatalog)
}

// Load reads a catalog file, falling back to the embedded catalog when path
// is empty.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading catalog file: %v", err)
	}
	return Parse(data)
}

func Parse(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("error parsing catalog: %v", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Catalog) Validate() error {
	if len(c.Reciters) == 0 {
		return errors.New("catalog has no reciters")
	}
	seen := make(map[string]bool)
	for i, r := range c.Reciters {
		if r.Name == "" || r.Dir == "" || r.BaseURL == "" {
			return fmt.Errorf("reciter %d: name, dir and base_url are required", i)
		}
		if seen[r.Name] {
			return fmt.Errorf("duplicate reciter name: %s", r.Name)
		}
		seen[r.Name] = true
	}
	for _, group := range [][]Resource{c.Tafasir, c.Translations} {
		for _, res := range group {
			if res.Name == "" || res.File == "" {
				return fmt.Errorf("content resource %q: name and file are required", res.Name)
			}
			if res.URL == "" && c.ContentBaseURL == "" {
				return fmt.Errorf("content resource %s has no url and catalog has no content_base_url", res.Name)
			}
		}
	}
	return nil
}

// ReciterIndex resolves a reciter by name or by its position in the list.
func (c *Catalog) ReciterIndex(ref string) (int, error) {
	for i, r := range c.Reciters {
		if strings.EqualFold(r.Name, ref) {
			return i, nil
		}
	}
	if idx, err := strconv.Atoi(ref); err == nil && idx >= 0 && idx < len(c.Reciters) {
		return idx, nil
	}
	return -1, fmt.Errorf("%w: %s", ErrUnknownReciter, ref)
}

func (c *Catalog) DirNames() []string {
	return DirNames(c.Reciters)
}

func (c *Catalog) Resources(kind ContentKind) []Resource {
	if kind == Tafsir {
		return c.Tafasir
	}
	return c.Translations
}

func (c *Catalog) ResourceIndex(kind ContentKind, name string) (int, error) {
	for i, res := range c.Resources(kind) {
		if strings.EqualFold(res.Name, name) {
			return i, nil
		}
	}
	return -1, fmt.Errorf("%w: %s %s", ErrUnknownResource, kind, name)
}

func (c *Catalog) ResourceURL(kind ContentKind, res Resource) string {
	if res.URL != "" {
		return res.URL
	}
	dir := "tafasir"
	if kind == Translation {
		dir = "translations"
	}
	return strings.TrimSuffix(c.ContentBaseURL, "/") + "/" + dir + "/" + res.File
}

func DirNames(reciters []Reciter) []string {
	names := make([]string, len(reciters))
	for i, r := range reciters {
		names[i] = r.Dir
	}
	return names
}

// VerseFile is the SSSVVV.mp3 name used by verse-by-verse recitation mirrors.
func VerseFile(surah, verse int) string {
	return fmt.Sprintf("%03d%03d.mp3", surah, verse)
}

func (r Reciter) VerseURL(surah, verse int) string {
	base := r.BaseURL
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}
	return base + VerseFile(surah, verse)
}
