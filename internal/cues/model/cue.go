package model

type Coord string

const (
	CoordViewport Coord = "viewport"
	CoordMap      Coord = "map"
)

type CueKind string

const (
	CueArrow  CueKind = "arrow"
	CueBox    CueKind = "box"
	CueCircle CueKind = "circle"
	CueRipple CueKind = "ripple"
	CueText   CueKind = "text"
)

// Pixel is an integer position in a cue coordinate system.
type Pixel [2]int

// Cue is one drawable annotation. Arrow and box use Start/End; circle and
// ripple use Center/Radius; text uses Center as its anchor.
type Cue struct {
	Kind   CueKind
	Coord  Coord
	Start  Pixel
	End    Pixel
	Center Pixel
	Radius int
	Color  string
	Label  string
}

// Diagnostics is observability only; nothing reads it for control flow.
type Diagnostics map[string]any

func (d Diagnostics) Set(key string, v any) {
	if d != nil {
		d[key] = v
	}
}

// Append adds v to the list stored under key.
func (d Diagnostics) Append(key string, v any) {
	if d == nil {
		return
	}
	list, _ := d[key].([]any)
	d[key] = append(list, v)
}
