package protocol_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cuecast.ai/internal/cues/model"
	"cuecast.ai/internal/protocol"
)

func TestSchemas_ValidateSamples(t *testing.T) {
	validate := func(name, doc string) {
		t.Helper()
		if err := protocol.ValidateJSON(name, []byte(doc)); err != nil {
			t.Fatalf("validate %s: %v", name, err)
		}
	}

	validate(protocol.SchemaHello, `{
	  "type":"HELLO",
	  "protocol_version":"1.0",
	  "agent_name":"bot1"
	}`)

	validate(protocol.SchemaWelcome, `{
	  "type":"WELCOME",
	  "protocol_version":"1.0",
	  "session_id":"b7f0c3f4-5f8e-4a53-9d6f-3f1f2f6b9d10",
	  "grid_params":{"viewport_pixels":64,"map_extent":64,"flip_y":true}
	}`)

	validate(protocol.SchemaFrame, `{
	  "type":"FRAME",
	  "protocol_version":"1.0",
	  "frame":12,
	  "snapshot":{
	    "raw_units":[{"tag":4298113025,"x":10.5,"y":20,"alliance":1,"radius":0.375,"is_selected":true}],
	    "feature_units":[{"tag":4298113025,"x":31,"y":40,"alliance":"SELF"}],
	    "camera":[30,30],
	    "camera_layer":[[0,1],[1,1]]
	  },
	  "action":{"function":"Attack_screen","id":12,"args":[{"name":"queued","value":[0]},{"name":"screen","value":[40,22]}]},
	  "intent":{"units":[0],"target_location":[15,15]},
	  "observation":"...",
	  "decision":"attack"
	}`)

	validate(protocol.SchemaCues, `{
	  "type":"CUES",
	  "protocol_version":"1.0",
	  "frame":12,
	  "accepted":false,
	  "cue_count":0,
	  "code":"E_BUSY"
	}`)

	validate(protocol.SchemaOverlayDoc, `{
	  "cues":[
	    {"type":"arrow","coordinate":"map","start":[10,54],"end":[15,49],"color":"yellow","text":"Move"},
	    {"type":"circle","coordinate":"viewport","center":[48,16],"radius":15,"color":"yellow"},
	    {"type":"text","coordinate":"viewport","pos":[32,10],"color":"cyan","text":"Action: Stop"}
	  ],
	  "debug":{"cameraFound":true},
	  "observation":"",
	  "decision":"",
	  "llm_config":{"model":"local"}
	}`)
}

func TestSchemas_RejectBadSamples(t *testing.T) {
	cases := []struct {
		name   string
		schema string
		doc    string
	}{
		{"frame without action", protocol.SchemaFrame, `{"type":"FRAME","protocol_version":"1.0","frame":1,"snapshot":{}}`},
		{"negative tag", protocol.SchemaFrame, `{"type":"FRAME","protocol_version":"1.0","frame":1,"snapshot":{"raw_units":[{"tag":-1,"x":0,"y":0}]},"action":{"function":"no_op"}}`},
		{"intent as list", protocol.SchemaFrame, `{"type":"FRAME","protocol_version":"1.0","frame":1,"snapshot":{},"action":{"function":"no_op"},"intent":[1,2]}`},
		{"arrow without end", protocol.SchemaOverlayDoc, `{"cues":[{"type":"arrow","coordinate":"map","start":[1,1],"color":"red"}],"debug":{},"observation":"","decision":"","llm_config":null}`},
		{"unknown coordinate", protocol.SchemaOverlayDoc, `{"cues":[{"type":"ripple","coordinate":"screen","center":[1,1],"radius":5,"color":"red"}],"debug":{},"observation":"","decision":"","llm_config":null}`},
		{"unknown code", protocol.SchemaCues, `{"type":"CUES","protocol_version":"1.0","frame":1,"accepted":false,"cue_count":0,"code":"E_NOPE"}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Error(t, protocol.ValidateJSON(tc.schema, []byte(tc.doc)))
		})
	}
}

func TestSchemas_OverlayFromModel(t *testing.T) {
	doc := protocol.OverlayDoc{
		Cues: protocol.CuesFromModel([]model.Cue{
			{Kind: model.CueBox, Coord: model.CoordViewport, Start: model.Pixel{2, 2}, End: model.Pixel{35, 35}, Color: "lime", Label: "选择"},
			{Kind: model.CueRipple, Coord: model.CoordMap, Center: model.Pixel{60, 4}, Radius: 5, Color: "cyan"},
			{Kind: model.CueText, Coord: model.CoordViewport, Center: model.Pixel{32, 10}, Color: "cyan", Label: "Action: Stop"},
		}),
		Debug: protocol.NormalizeDebug(map[string]any{"cameraFound": false}),
	}
	require.NoError(t, protocol.ValidateValue(protocol.SchemaOverlayDoc, doc))
}

func TestSchema_Unknown(t *testing.T) {
	_, err := protocol.Schema("nope.schema.json")
	assert.Error(t, err)
}
