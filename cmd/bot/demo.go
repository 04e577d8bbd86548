package main

import (
	"encoding/json"
	"fmt"

	"cuecast.ai/internal/cues/model"
	"cuecast.ai/internal/protocol"
)

var (
	self  = protocol.AllianceMsg(model.AllianceSelf)
	enemy = protocol.AllianceMsg(model.AllianceEnemy)
)

// demoFrames alternates a box selection of the friendly pair with a move
// order and an attack on the enemy, while the squad drifts across the map.
func demoFrames(n int) []protocol.FrameMsg {
	out := make([]protocol.FrameMsg, 0, n)
	for i := 0; i < n; i++ {
		x := 20 + float64(i%20)
		cam := [2]float64{x, 30}
		snap := protocol.SnapshotMsg{
			RawUnits: []protocol.UnitMsg{
				{Tag: 101, X: x, Y: 30, Alliance: self, IsOnScreen: true},
				{Tag: 102, X: x + 2, Y: 31, Alliance: self, IsOnScreen: true},
				{Tag: 900, X: x + 6, Y: 34, Alliance: enemy, IsOnScreen: true},
			},
			Camera: &cam,
		}

		f := protocol.FrameMsg{Frame: uint64(i + 1), Snapshot: snap}
		switch i % 3 {
		case 0:
			f.Action = protocol.ActionMsg{Function: "select_rect"}
			f.Intent = json.RawMessage(`{"units":[0,1]}`)
		case 1:
			f.Action = protocol.ActionMsg{Function: "Move_screen", Args: []protocol.ArgMsg{
				{Name: "screen", Value: json.RawMessage(`[48,16]`)},
			}}
		default:
			f.Action = protocol.ActionMsg{Function: "Attack_unit"}
			f.Intent = json.RawMessage(`{"target_unit":2}`)
		}
		f.Decision = fmt.Sprintf("demo step %d", i+1)
		out = append(out, f)
	}
	return out
}
