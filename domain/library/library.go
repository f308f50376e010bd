// Package library loads the reference catalog, normalizes each reference
// icon and indexes the result by id and rarity. A Library is read-only
// after construction apart from its feature cache, which is safe for
// concurrent use.
package library

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"slices"

	"github.com/disintegration/imaging"
	"github.com/dustin/go-humanize"
	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/errgroup"

	"github.com/soocke/itemscan/domain/pixels"
	"github.com/soocke/itemscan/domain/rarity"
)

// SampleSize is the edge length every reference is resampled to.
const SampleSize = 64

// DefaultCacheSize bounds the number of prepared feature sets kept.
const DefaultCacheSize = 4096

// ErrNoImage marks a catalog entry whose image is missing or undecodable.
var ErrNoImage = errors.New("reference image unavailable")

// Entry is one catalog record.
type Entry struct {
	ID     string        `json:"id"`
	Name   string        `json:"name"`
	Rarity rarity.Rarity `json:"rarity"`
	Image  string        `json:"image"`
}

// Item is a loaded reference: catalog metadata plus its normalized sample.
type Item struct {
	ID     string
	Name   string
	Rarity rarity.Rarity
	Sample *pixels.Frame // SampleSize x SampleSize
}

// Options configures loading.
type Options struct {
	BaseDir   string // relative image paths resolve here; defaults to the catalog's directory
	CacheSize int
	Workers   int
	Logger    *slog.Logger
}

type featureKey struct {
	id   string
	opts FeatureOptions
}

// Library is the immutable reference set.
type Library struct {
	items    []*Item
	byID     map[string]*Item
	byRarity map[rarity.Rarity][]*Item
	cache    *lru.Cache[featureKey, *Features]
	skipped  int
	log      *slog.Logger
}

// New builds a library from already decoded items. Samples that are not
// SampleSize square are normalized. Items with a duplicate id or without a
// sample are skipped.
func New(items []*Item, opts Options) *Library {
	l := &Library{
		byID:     make(map[string]*Item, len(items)),
		byRarity: make(map[rarity.Rarity][]*Item),
		log:      opts.Logger,
	}
	if l.log == nil {
		l.log = slog.New(slog.DiscardHandler)
	}
	size := opts.CacheSize
	if size <= 0 {
		size = DefaultCacheSize
	}
	cache, err := lru.New[featureKey, *Features](size)
	if err != nil {
		panic(fmt.Sprintf("library: feature cache: %v", err))
	}
	l.cache = cache
	for _, it := range items {
		if it == nil || it.ID == "" || it.Sample.Empty() {
			l.skipped++
			continue
		}
		if _, dup := l.byID[it.ID]; dup {
			l.log.Warn("duplicate reference id", "id", it.ID)
			l.skipped++
			continue
		}
		if it.Sample.W != SampleSize || it.Sample.H != SampleSize {
			c := *it
			c.Sample = Normalize(it.Sample.RGBA())
			it = &c
		}
		l.items = append(l.items, it)
		l.byID[it.ID] = it
		l.byRarity[it.Rarity] = append(l.byRarity[it.Rarity], it)
	}
	return l
}

// Normalize resamples img to SampleSize x SampleSize with a Lanczos filter.
func Normalize(img image.Image) *pixels.Frame {
	return pixels.FromImage(imaging.Resize(img, SampleSize, SampleSize, imaging.Lanczos))
}

// ParseCatalog decodes a catalog document. It accepts a top-level array of
// entries or an object whose array-valued keys each hold entries; keys are
// visited in sorted order.
func ParseCatalog(data []byte) ([]Entry, error) {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '[' {
		var entries []Entry
		if err := json.Unmarshal(data, &entries); err != nil {
			return nil, fmt.Errorf("parse catalog: %w", err)
		}
		return entries, nil
	}
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	keys := make([]string, 0, len(doc))
	for k, v := range doc {
		if v = bytes.TrimSpace(v); len(v) > 0 && v[0] == '[' {
			keys = append(keys, k)
		}
	}
	slices.Sort(keys)
	var out []Entry
	for _, k := range keys {
		var entries []Entry
		if err := json.Unmarshal(doc[k], &entries); err != nil {
			return nil, fmt.Errorf("parse catalog %q: %w", k, err)
		}
		out = append(out, entries...)
	}
	return out, nil
}

// Load reads the catalog at path and decodes every referenced image. Only a
// missing or malformed catalog is an error; entries whose image cannot be
// read are logged, skipped and counted.
func Load(path string, opts Options) (*Library, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	entries, err := ParseCatalog(data)
	if err != nil {
		return nil, err
	}
	base := opts.BaseDir
	if base == "" {
		base = filepath.Dir(path)
	}
	log := opts.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}

	loaded := make([]*Item, len(entries))
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	var g errgroup.Group
	g.SetLimit(workers)
	for i, e := range entries {
		g.Go(func() error {
			it, err := loadEntry(base, e)
			if err != nil {
				log.Warn("skip reference", "id", e.ID, "path", e.Image, "error", err)
				return nil
			}
			loaded[i] = it
			return nil
		})
	}
	_ = g.Wait()

	items := make([]*Item, 0, len(loaded))
	missing := 0
	for _, it := range loaded {
		if it == nil {
			missing++
			continue
		}
		items = append(items, it)
	}
	l := New(items, opts)
	l.skipped += missing
	log.Info("reference library loaded",
		"items", humanize.Comma(int64(l.Len())),
		"skipped", l.skipped,
		"catalog", path)
	return l, nil
}

func loadEntry(base string, e Entry) (*Item, error) {
	if e.ID == "" {
		return nil, fmt.Errorf("entry without id: %w", ErrNoImage)
	}
	if e.Image == "" {
		return nil, ErrNoImage
	}
	p := e.Image
	if !filepath.IsAbs(p) {
		p = filepath.Join(base, filepath.FromSlash(p))
	}
	img, err := imaging.Open(p)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoImage, err)
	}
	name := e.Name
	if name == "" {
		name = e.ID
	}
	return &Item{ID: e.ID, Name: name, Rarity: e.Rarity, Sample: Normalize(img)}, nil
}

// Get returns the item with the given id.
func (l *Library) Get(id string) (*Item, bool) {
	it, ok := l.byID[id]
	return it, ok
}

// Items returns the references in catalog order.
func (l *Library) Items() []*Item { return l.items }

// ByRarity returns the references tagged r.
func (l *Library) ByRarity(r rarity.Rarity) []*Item { return l.byRarity[r] }

// Candidates returns the subset for a detected rarity, or every reference
// when the rarity is unknown or has no references.
func (l *Library) Candidates(r rarity.Rarity) []*Item {
	if r == rarity.Unknown {
		return l.items
	}
	if sub := l.byRarity[r]; len(sub) > 0 {
		return sub
	}
	return l.items
}

// Len returns the number of loaded references.
func (l *Library) Len() int { return len(l.items) }

// Skipped returns how many catalog entries were dropped.
func (l *Library) Skipped() int { return l.skipped }

// Prepared returns the cached features of it for opts, extracting them on
// first use.
func (l *Library) Prepared(it *Item, opts FeatureOptions) *Features {
	key := featureKey{id: it.ID, opts: opts}
	if f, ok := l.cache.Get(key); ok {
		return f
	}
	f := Extract(it.Sample, opts)
	l.cache.Add(key, f)
	return f
}

// CacheLen reports how many feature sets are cached.
func (l *Library) CacheLen() int { return l.cache.Len() }

// ResetCache drops every prepared feature set. Calibration calls it between
// independent passes to bound memory.
func (l *Library) ResetCache() {
	l.cache.Purge()
	l.log.Debug("reference feature cache cleared")
}
