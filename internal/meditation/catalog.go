package meditation

import (
	"path/filepath"
	"strings"

	"mantrify/internal/config"
)

// Sound is one named pre-recorded asset.
type Sound struct {
	Name     string
	Filename string
}

// Catalog is the fixed, ordered set of sounds a sound segment may reference.
type Catalog struct {
	sounds []Sound
}

// NewCatalog copies sounds into a catalog, dropping entries without a filename.
func NewCatalog(sounds []Sound) *Catalog {
	c := &Catalog{sounds: make([]Sound, 0, len(sounds))}
	for _, sound := range sounds {
		sound.Filename = strings.TrimSpace(sound.Filename)
		if sound.Filename == "" {
			continue
		}
		if strings.TrimSpace(sound.Name) == "" {
			sound.Name = sound.Filename
		}
		c.sounds = append(c.sounds, sound)
	}
	return c
}

// CatalogFromConfig builds the catalog declared in configuration.
func CatalogFromConfig(cfg *config.Config) *Catalog {
	src := config.DefaultSounds()
	if cfg != nil && len(cfg.Sounds) > 0 {
		src = cfg.Sounds
	}
	sounds := make([]Sound, 0, len(src))
	for _, s := range src {
		sounds = append(sounds, Sound{Name: s.Name, Filename: s.Filename})
	}
	return NewCatalog(sounds)
}

// Sounds returns the catalog entries in declaration order.
func (c *Catalog) Sounds() []Sound {
	if c == nil {
		return nil
	}
	out := make([]Sound, len(c.sounds))
	copy(out, c.sounds)
	return out
}

// Len returns the number of sounds.
func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.sounds)
}

// Lookup resolves a reference by exact filename, filename without extension,
// or display name. Matching ignores case.
func (c *Catalog) Lookup(ref string) (Sound, bool) {
	ref = strings.TrimSpace(ref)
	if c == nil || ref == "" {
		return Sound{}, false
	}
	for _, sound := range c.sounds {
		if strings.EqualFold(sound.Filename, ref) {
			return sound, true
		}
	}
	for _, sound := range c.sounds {
		stem := strings.TrimSuffix(sound.Filename, filepath.Ext(sound.Filename))
		if strings.EqualFold(stem, ref) || strings.EqualFold(sound.Name, ref) {
			return sound, true
		}
	}
	return Sound{}, false
}

// DisplayName returns the catalog name for ref, or ref itself when unknown.
func (c *Catalog) DisplayName(ref string) string {
	if sound, ok := c.Lookup(ref); ok {
		return sound.Name
	}
	return ref
}
