// Package storeconfig reads and writes a store's config.toml: the link
// ontology, its inverse table, per-link-type hop costs, and the store
// format version.
package storeconfig

import (
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/mwaldstein/qipu-sub000/internal/qerrors"
)

// StoreFormatVersion is the current on-disk store format, compared with
// golang.org/x/mod/semver-style major/minor ordering when reading packs
// or other stores' config.
const StoreFormatVersion = "v1.0"

// Config is the decoded contents of config.toml.
type Config struct {
	StoreFormatVersion string            `toml:"store_format_version"`
	LinkTypes          []string          `toml:"link_types"`
	Inverses           map[string]string `toml:"inverses"`
	HopCosts           map[string]float64 `toml:"hop_costs"`
	IDPrefix           string            `toml:"id_prefix"`
	Stemming           bool              `toml:"stemming"`
	DuplicateThreshold float64           `toml:"duplicate_threshold"`
	RelatedThreshold   float64           `toml:"related_threshold"`
	SearchLimit        int               `toml:"search_limit"`
}

// DefaultLinkTypes is the built-in link ontology: related/
// derived-from-derives/supports-supported-by/contradicts/
// part-of-has-part/same-as/alias-of/follows-preceded-by.
var DefaultLinkTypes = []string{
	"related", "derived-from", "derives", "supports", "supported-by",
	"contradicts", "part-of", "has-part", "same-as", "alias-of",
	"follows", "preceded-by",
}

// DefaultInverses maps each link type to its inverse. Self-inverse types
// map to themselves.
var DefaultInverses = map[string]string{
	"related":      "related",
	"derived-from": "derives",
	"derives":      "derived-from",
	"supports":     "supported-by",
	"supported-by": "supports",
	"contradicts":  "contradicts",
	"part-of":      "has-part",
	"has-part":     "part-of",
	"same-as":      "same-as",
	"alias-of":     "alias-of",
	"follows":      "preceded-by",
	"preceded-by":  "follows",
}

// Default returns a config with the built-in ontology and the
// documented default thresholds (duplicate 0.85, related 0.3).
func Default() *Config {
	return &Config{
		StoreFormatVersion: StoreFormatVersion,
		LinkTypes:          append([]string(nil), DefaultLinkTypes...),
		Inverses:           copyMap(DefaultInverses),
		HopCosts:           map[string]float64{},
		IDPrefix:           "qp",
		Stemming:           false,
		DuplicateThreshold: 0.85,
		RelatedThreshold:   0.3,
		SearchLimit:        200,
	}
}

func copyMap(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// HopCost returns the configured cost for a link type, defaulting to 1.
func (c *Config) HopCost(linkType string) float64 {
	if c.HopCosts == nil {
		return 1
	}
	if v, ok := c.HopCosts[linkType]; ok {
		return v
	}
	return 1
}

// Inverse returns the configured inverse of a link type, or the type
// itself if no inverse is configured (treated as self-inverse).
func (c *Config) Inverse(linkType string) string {
	if c.Inverses == nil {
		return linkType
	}
	if inv, ok := c.Inverses[linkType]; ok {
		return inv
	}
	return linkType
}

// IsKnownLinkType reports whether linkType is part of the active
// ontology.
func (c *Config) IsKnownLinkType(linkType string) bool {
	for _, t := range c.LinkTypes {
		if t == linkType {
			return true
		}
	}
	return false
}

// Path returns the config.toml path under a store root.
func Path(root string) string {
	return filepath.Join(root, "config.toml")
}

// Load reads config.toml from a store root. Missing file is an error; use
// Default and Save to create one.
func Load(root string) (*Config, error) {
	path := Path(root)
	var cfg Config
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		if os.IsNotExist(err) {
			return nil, qerrors.InvalidStoref(root, "missing config.toml")
		}
		return nil, qerrors.Otherf("parse config.toml: %v", err)
	}
	if cfg.Inverses == nil {
		cfg.Inverses = copyMap(DefaultInverses)
	}
	if cfg.HopCosts == nil {
		cfg.HopCosts = map[string]float64{}
	}
	if cfg.SearchLimit == 0 {
		cfg.SearchLimit = 200
	}
	return &cfg, nil
}

// Save writes a config to config.toml under a store root.
func Save(root string, cfg *Config) error {
	f, err := os.Create(Path(root))
	if err != nil {
		return qerrors.IoErr(Path(root), err)
	}
	defer f.Close()

	enc := toml.NewEncoder(f)
	if err := enc.Encode(cfg); err != nil {
		return qerrors.Otherf("encode config.toml: %v", err)
	}
	return nil
}
