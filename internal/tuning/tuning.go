package tuning

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

type Tuning struct {
	ProtocolVersion string `yaml:"protocol_version"`

	// ViewportPixels is the side of the square viewport grid.
	ViewportPixels int `yaml:"viewport_pixels"`
	// ScreenWorldRadius is the world half-extent the viewport covers around the camera.
	ScreenWorldRadius float64 `yaml:"screen_world_radius"`
	// RectMargin pads the observed camera rect, in map cells.
	RectMargin float64 `yaml:"rect_margin"`
	// ScatterThreshold is the selection extent (world units, either axis) above
	// which the centre collapses to the first member. Empirical; re-tune per map scale.
	ScatterThreshold float64 `yaml:"scatter_threshold"`

	Map    MapParams    `yaml:"map"`
	Cues   CueParams    `yaml:"cues"`
	Names  NameParams   `yaml:"names"`
	Server ServerParams `yaml:"server"`

	PublishPath string `yaml:"publish_path"`

	// DecisionLLM is passed through verbatim as llm_config in every overlay document.
	DecisionLLM map[string]any `yaml:"decision_llm"`
}

type MapParams struct {
	Extent int  `yaml:"extent"`
	FlipY  bool `yaml:"flip_y"`
}

type CueParams struct {
	BoxMargin int `yaml:"box_margin"`

	RippleUnitMin   int     `yaml:"ripple_unit_min"`
	RippleUnitScale float64 `yaml:"ripple_unit_scale"`
	RippleSelfMin   int     `yaml:"ripple_self_min"`
	RippleSelfScale float64 `yaml:"ripple_self_scale"`
	RippleMapMin    int     `yaml:"ripple_map_min"`
	RippleMapScale  float64 `yaml:"ripple_map_scale"`

	CircleViewport int `yaml:"circle_viewport"`
	CircleMap      int `yaml:"circle_map"`

	// PlaceholderText lets the control loop add an "Action: ..." text cue when
	// a non no-op action produced nothing drawable.
	PlaceholderText bool `yaml:"placeholder_text"`

	Colors Colors `yaml:"colors"`
}

type Colors struct {
	Selection string `yaml:"selection"`
	Ripple    string `yaml:"ripple"`
	Location  string `yaml:"location"`
	Unit      string `yaml:"unit"`
	Text      string `yaml:"text"`
}

type NameParams struct {
	// Lang picks the table column: "zh" or "en".
	Lang     string   `yaml:"lang"`
	Suffixes []string `yaml:"suffixes"`
}

type ServerParams struct {
	Addr          string `yaml:"addr"`
	InboxSize     int    `yaml:"inbox_size"`
	ObserverQueue int    `yaml:"observer_queue"`
	MaxSessions   int    `yaml:"max_sessions"`
}

func Defaults() Tuning {
	return Tuning{
		ProtocolVersion:   "1.0",
		ViewportPixels:    64,
		ScreenWorldRadius: 12,
		RectMargin:        4,
		ScatterThreshold:  20,
		Map: MapParams{
			Extent: 64,
			FlipY:  true,
		},
		Cues: CueParams{
			BoxMargin:       10,
			RippleUnitMin:   15,
			RippleUnitScale: 15,
			RippleSelfMin:   20,
			RippleSelfScale: 20,
			RippleMapMin:    5,
			RippleMapScale:  5,
			CircleViewport:  15,
			CircleMap:       3,
			PlaceholderText: true,
			Colors: Colors{
				Selection: "lime",
				Ripple:    "cyan",
				Location:  "yellow",
				Unit:      "red",
				Text:      "cyan",
			},
		},
		Names: NameParams{
			Lang:     "zh",
			Suffixes: []string{"_quick", "_pt", "_screen", "_minimap", "_unit", "_autocast"},
		},
		Server: ServerParams{
			Addr:          "127.0.0.1:8090",
			InboxSize:     16,
			ObserverQueue: 8,
			MaxSessions:   16,
		},
		PublishPath: "overlay_data.json",
	}
}

// Load reads path over Defaults. An empty path yields the defaults.
func Load(path string) (Tuning, error) {
	t := Defaults()
	if strings.TrimSpace(path) == "" {
		return t, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	t.Normalize()
	if err := t.Validate(); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	return t, nil
}

func (t *Tuning) Normalize() {
	if t == nil {
		return
	}
	t.Names.Lang = strings.ToLower(strings.TrimSpace(t.Names.Lang))
	if t.Names.Lang == "" {
		t.Names.Lang = "zh"
	}
	if t.Server.InboxSize <= 0 {
		t.Server.InboxSize = 16
	}
	if t.Server.ObserverQueue <= 0 {
		t.Server.ObserverQueue = 8
	}
	if t.Server.ObserverQueue > 256 {
		t.Server.ObserverQueue = 256
	}
	if t.Server.MaxSessions <= 0 {
		t.Server.MaxSessions = 16
	}
}

func (t Tuning) Validate() error {
	if t.ViewportPixels <= 0 {
		return errors.New("viewport_pixels must be > 0")
	}
	if t.ScreenWorldRadius <= 0 {
		return errors.New("screen_world_radius must be > 0")
	}
	if t.RectMargin < 0 {
		return errors.New("rect_margin must be >= 0")
	}
	if t.ScatterThreshold <= 0 {
		return errors.New("scatter_threshold must be > 0")
	}
	if t.Map.Extent <= 0 {
		return errors.New("map.extent must be > 0")
	}
	switch t.Names.Lang {
	case "zh", "en":
	default:
		return fmt.Errorf("names.lang: unsupported %q", t.Names.Lang)
	}
	return nil
}
