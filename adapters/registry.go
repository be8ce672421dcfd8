package adapters

import (
	"bytes"
	_ "embed"
	"fmt"
	"io"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"pricewatch/internal/types"
)

// UnknownStore is the label used when a URL cannot be parsed
const UnknownStore = "Unknown Store"

//go:embed stores.yaml
var defaultStoresYAML []byte

// HostLabel maps a hostname fragment to a store label
type HostLabel struct {
	Fragment string `yaml:"fragment"`
	Label    string `yaml:"label"`
}

// Cookie is a cookie injected into a render session before navigation
type Cookie struct {
	Name   string `yaml:"name"`
	Value  string `yaml:"value"`
	Domain string `yaml:"domain"`
}

// RenderHints tunes how pages of a store are rendered
type RenderHints struct {
	// Fashion sites run heavier scripts, get a longer settle delay and consent handling
	Fashion bool          `yaml:"fashion"`
	Settle  time.Duration `yaml:"settle"`
	WaitFor string        `yaml:"wait_for"`
	Cookies []Cookie      `yaml:"cookies"`
}

// StoreConfig is the per-store strategy record
type StoreConfig struct {
	Label                  string      `yaml:"label"`
	StructuredDataPriority bool        `yaml:"structured_data_priority"`
	PriceSelectors         []string    `yaml:"price_selectors"`
	NameSelectors          []string    `yaml:"name_selectors"`
	ImageSelectors         []string    `yaml:"image_selectors"`
	Render                 RenderHints `yaml:"render"`
}

// GenericSelectors are tried for every store after the store's own selectors
type GenericSelectors struct {
	PriceSelectors   []string `yaml:"price_selectors"`
	NameSelectors    []string `yaml:"name_selectors"`
	ImageSelectors   []string `yaml:"image_selectors"`
	ConsentSelectors []string `yaml:"consent_selectors"`
}

// SearchSite describes how to search a store's own website
type SearchSite struct {
	Name                string `yaml:"name"`
	Domain              string `yaml:"domain"`
	URLTemplate         string `yaml:"search_url"`
	ProductLinkSelector string `yaml:"product_link_selector"`
}

// SearchURL builds the store search URL for query
func (s *SearchSite) SearchURL(query string) string {
	return strings.ReplaceAll(s.URLTemplate, "{query}", encodeComponent(query))
}

type registryFile struct {
	Hosts       []HostLabel      `yaml:"hosts"`
	Generic     GenericSelectors `yaml:"generic"`
	Stores      []StoreConfig    `yaml:"stores"`
	SearchSites []SearchSite     `yaml:"search_sites"`
}

// Registry holds the store configuration loaded from data
type Registry struct {
	hosts   []HostLabel
	generic GenericSelectors
	stores  map[string]*StoreConfig
	search  map[string]*SearchSite
	order   []string
}

// LoadRegistry reads a registry definition in YAML form
func LoadRegistry(r io.Reader) (*Registry, error) {
	var file registryFile
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)
	if err := decoder.Decode(&file); err != nil {
		return nil, fmt.Errorf("failed to decode store registry: %w", err)
	}

	reg := &Registry{
		generic: file.Generic,
		stores:  make(map[string]*StoreConfig, len(file.Stores)),
		search:  make(map[string]*SearchSite, len(file.SearchSites)),
	}

	for _, h := range file.Hosts {
		fragment := strings.ToLower(strings.TrimSpace(h.Fragment))
		if fragment == "" || h.Label == "" {
			return nil, fmt.Errorf("host entry %q -> %q is incomplete", h.Fragment, h.Label)
		}
		reg.hosts = append(reg.hosts, HostLabel{Fragment: fragment, Label: h.Label})
	}
	// Longer fragments are more specific and must win over short ones
	sort.SliceStable(reg.hosts, func(i, j int) bool {
		return len(reg.hosts[i].Fragment) > len(reg.hosts[j].Fragment)
	})

	for i := range file.Stores {
		store := file.Stores[i]
		if store.Label == "" {
			return nil, fmt.Errorf("store entry %d has no label", i)
		}
		reg.stores[store.Label] = &store
	}

	for i := range file.SearchSites {
		site := file.SearchSites[i]
		key := strings.ToLower(strings.TrimSpace(site.Name))
		if key == "" || !strings.Contains(site.URLTemplate, "{query}") {
			return nil, fmt.Errorf("search site %q needs a name and a {query} placeholder", site.Name)
		}
		reg.search[key] = &site
		reg.order = append(reg.order, key)
	}

	return reg, nil
}

var (
	defaultOnce     sync.Once
	defaultRegistry *Registry
)

// DefaultRegistry returns the registry embedded in the binary
func DefaultRegistry() *Registry {
	defaultOnce.Do(func() {
		reg, err := LoadRegistry(bytes.NewReader(defaultStoresYAML))
		if err != nil {
			panic(fmt.Sprintf("embedded store registry is invalid: %v", err))
		}
		defaultRegistry = reg
	})
	return defaultRegistry
}

// ResolveStore maps a URL to a store label using the embedded registry
func ResolveStore(rawURL string) string {
	return DefaultRegistry().ResolveStore(rawURL)
}

// ResolveStore maps a URL to a store label. Unknown hosts get their first
// DNS label capitalized, malformed URLs get UnknownStore.
func (r *Registry) ResolveStore(rawURL string) string {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return UnknownStore
	}
	host := strings.ToLower(u.Hostname())
	if host == "" {
		return UnknownStore
	}

	for _, h := range r.hosts {
		if strings.Contains(host, h.Fragment) {
			return h.Label
		}
	}

	host = strings.TrimPrefix(host, "www.")
	first := strings.Split(host, ".")[0]
	if first == "" {
		return UnknownStore
	}
	return strings.ToUpper(first[:1]) + first[1:]
}

// Store returns the strategy record for label. Unknown labels get an empty
// record so that only generic strategies apply.
func (r *Registry) Store(label string) *StoreConfig {
	if store, ok := r.stores[label]; ok {
		return store
	}
	return &StoreConfig{Label: label}
}

// Generic returns the store-independent selector lists
func (r *Registry) Generic() GenericSelectors {
	return r.generic
}

// SearchSite looks up the store-site search configuration by store name
func (r *Registry) SearchSite(name string) (*SearchSite, error) {
	site, ok := r.search[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, fmt.Errorf("%w: %s", types.ErrStoreNotConfigured, name)
	}
	return site, nil
}

// SearchSiteNames lists configured store-site searches in registry order
func (r *Registry) SearchSiteNames() []string {
	return append([]string(nil), r.order...)
}

func encodeComponent(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}
