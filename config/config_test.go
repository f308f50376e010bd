package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/soocke/itemscan/domain/detect"
	"github.com/soocke/itemscan/domain/match"
)

func TestDefaultConfig_IsValid(t *testing.T) {
	c := DefaultConfig()
	before := *c.Clone()
	if err := c.Validate(); err != nil {
		t.Fatalf("defaults invalid: %v", err)
	}
	if c.Match.MinConfidence != before.Match.MinConfidence || c.Grid.MaxRows != 2 {
		t.Fatalf("validate changed defaults")
	}
}

func TestValidate_ClampsAndRejects(t *testing.T) {
	c := DefaultConfig()
	c.Match.HistBins = 1000
	c.Cell.Stride = 3
	c.Match.Margins = []float64{-1, 0.9}
	c.Strategy.GridMode = " STATIC "
	if err := c.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if c.Match.HistBins != 8 || c.Cell.Stride != 1 || len(c.Match.Margins) != 3 || c.Strategy.GridMode != GridStatic {
		t.Fatalf("unexpected clamped config %+v", c)
	}
	c.Strategy.Metrics = []string{"ncc", "orb"}
	if err := c.Validate(); err == nil {
		t.Fatalf("expected unknown metric error")
	}
	c = DefaultConfig()
	c.Strategy.GridMode = "hexagonal"
	if err := c.Validate(); err == nil {
		t.Fatalf("expected unknown grid mode error")
	}
}

func TestLoad_MissingFileGivesDefaults(t *testing.T) {
	c, err := Load(filepath.Join(t.TempDir(), "absent.json"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.Match.WorkSize != DefaultConfig().Match.WorkSize {
		t.Fatalf("expected defaults")
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg.json")
	c := DefaultConfig()
	c.Match.MinConfidence = 0.7
	c.Strategy.Metrics = []string{"ssim"}
	if err := c.Save(path); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.Match.MinConfidence != 0.7 || len(got.Strategy.Metrics) != 1 || got.Strategy.Metrics[0] != "ssim" {
		t.Fatalf("round trip lost values: %+v", got.Strategy)
	}
}

func TestLoad_MalformedIsError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatalf("expected decode error")
	}
}

func TestPreset(t *testing.T) {
	b, err := Preset("baseline")
	if err != nil {
		t.Fatalf("preset: %v", err)
	}
	if b.Strategy.GridMode != GridStatic || len(b.Strategy.Metrics) != 2 {
		t.Fatalf("unexpected baseline %+v", b.Strategy)
	}
	a, _ := Preset("advanced")
	if !a.Strategy.MultiScale || !a.Strategy.Refine || !a.Strategy.Preprocess {
		t.Fatalf("unexpected advanced %+v", a.Strategy)
	}
	if _, err := Preset("legacy"); err == nil {
		t.Fatalf("expected unknown preset error")
	}
}

func TestPipelineOptions(t *testing.T) {
	c, _ := Preset("advanced")
	c.Match.MinConfidence = 0.8
	o := c.PipelineOptions()
	if o.GridMode != detect.GridInfer || !o.Match.MultiScale || !o.Match.Refine || !o.Match.Features.Preprocess {
		t.Fatalf("strategy not carried over: %+v", o.Match)
	}
	if len(o.Match.Metrics) != 4 || o.Match.Metrics[0] != match.MetricNCC {
		t.Fatalf("unexpected metrics %v", o.Match.Metrics)
	}
	// 0.75 is below the floor and is dropped; the floor closes the schedule
	if len(o.Post.Passes) != 2 || o.Post.Passes[0] != 0.85 || o.Post.Passes[1] != 0.8 {
		t.Fatalf("unexpected passes %v", o.Post.Passes)
	}
}

func TestClone_IsDeep(t *testing.T) {
	c := DefaultConfig()
	d := c.Clone()
	d.Match.Margins[0] = 0.3
	d.Strategy.Metrics[0] = "edge"
	if c.Match.Margins[0] == 0.3 || c.Strategy.Metrics[0] == "edge" {
		t.Fatalf("clone shares slices")
	}
}
