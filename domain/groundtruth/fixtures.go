// Package groundtruth loads labeled calibration fixtures, resolves their
// item names to catalog ids and scores detections against them.
package groundtruth

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrNoCases is returned when a fixture file yields no usable case.
var ErrNoCases = errors.New("no ground-truth cases")

// MetaPrefix marks fixture keys that hold metadata rather than images.
const MetaPrefix = "_"

// Case is one labeled screenshot.
type Case struct {
	Key      string         // fixture key, usually the image file name
	Image    string         // resolved image path
	Expected map[string]int // item name or id -> count
}

// Total returns the number of expected items.
func (c Case) Total() int {
	n := 0
	for _, v := range c.Expected {
		n += v
	}
	return n
}

// Set is the loaded corpus.
type Set struct {
	Cases   []Case
	Skipped int // entries whose image is missing or whose record is malformed
}

// Options configures loading.
type Options struct {
	ImageDir string // image keys resolve here; defaults to the fixture's directory
	Logger   *slog.Logger
}

// itemRef is a fixture item: either a bare name or an {id,name,count} record.
type itemRef struct {
	ID    string `yaml:"id" json:"id"`
	Name  string `yaml:"name" json:"name"`
	Count int    `yaml:"count" json:"count"`
}

func (r *itemRef) UnmarshalYAML(n *yaml.Node) error {
	if n.Kind == yaml.ScalarNode {
		*r = itemRef{Name: n.Value, Count: 1}
		return nil
	}
	type plain itemRef
	var p plain
	if err := n.Decode(&p); err != nil {
		return err
	}
	*r = itemRef(p)
	return nil
}

func (r *itemRef) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*r = itemRef{Name: s, Count: 1}
		return nil
	}
	type plain itemRef
	var p plain
	if err := json.Unmarshal(b, &p); err != nil {
		return err
	}
	*r = itemRef(p)
	return nil
}

func (r itemRef) key() string {
	if r.ID != "" {
		return r.ID
	}
	return r.Name
}

type record struct {
	Items []itemRef `yaml:"items" json:"items"`
}

// Load reads a fixture file in JSON or YAML form. The document maps image
// file names to {items: [...]}; keys starting with MetaPrefix are ignored.
// Records whose image does not exist are skipped with a warning.
func Load(path string, opts Options) (*Set, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read ground truth: %w", err)
	}
	log := opts.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	records, err := decode(path, data)
	if err != nil {
		return nil, fmt.Errorf("parse ground truth %s: %w", path, err)
	}
	dir := opts.ImageDir
	if dir == "" {
		dir = filepath.Dir(path)
	}

	keys := make([]string, 0, len(records))
	for k := range records {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	set := &Set{}
	for _, k := range keys {
		if strings.HasPrefix(k, MetaPrefix) {
			continue
		}
		rec, err := records[k]()
		if err != nil {
			log.Warn("skip ground-truth record", "key", k, "error", err)
			set.Skipped++
			continue
		}
		img := k
		if !filepath.IsAbs(img) {
			img = filepath.Join(dir, filepath.FromSlash(k))
		}
		if _, err := os.Stat(img); err != nil {
			log.Warn("skip ground-truth case", "key", k, "path", img, "error", err)
			set.Skipped++
			continue
		}
		c := Case{Key: k, Image: img, Expected: map[string]int{}}
		for _, it := range rec.Items {
			name := strings.TrimSpace(it.key())
			if name == "" {
				continue
			}
			c.Expected[name] += max(1, it.Count)
		}
		set.Cases = append(set.Cases, c)
	}
	if len(set.Cases) == 0 {
		return set, ErrNoCases
	}
	return set, nil
}

// decode returns lazily decoded records keyed by fixture key so a single
// malformed record does not reject the whole file.
func decode(path string, data []byte) (map[string]func() (record, error), error) {
	out := map[string]func() (record, error){}
	if strings.EqualFold(filepath.Ext(path), ".json") {
		var doc map[string]json.RawMessage
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, err
		}
		for k, raw := range doc {
			out[k] = func() (record, error) {
				var r record
				err := json.Unmarshal(raw, &r)
				return r, err
			}
		}
		return out, nil
	}
	var doc map[string]yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	for k, node := range doc {
		out[k] = func() (record, error) {
			var r record
			err := node.Decode(&r)
			return r, err
		}
	}
	return out, nil
}

// Resolve maps every case's expected names to catalog ids. Names the
// resolver does not know are kept verbatim so they count as misses.
func (s *Set) Resolve(r *Resolver) {
	for i := range s.Cases {
		resolved := make(map[string]int, len(s.Cases[i].Expected))
		for name, n := range s.Cases[i].Expected {
			id, ok := r.Resolve(name)
			if !ok {
				id = name
			}
			resolved[id] += n
		}
		s.Cases[i].Expected = resolved
	}
}
