package main

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
	"github.com/spf13/cobra"

	"cuecast.ai/internal/cues"
	"cuecast.ai/internal/cues/model"
	"cuecast.ai/internal/tuning"
)

var (
	projectConfig string
	projectCamera string
	projectRect   string
)

var projectCmd = &cobra.Command{
	Use:   "project <x,y>",
	Short: "Show where a world point lands for a given camera",
	Long: `Projects a world point the way the cue engine would, given an explicit camera
centre (--camera) and/or a camera footprint in map cells (--rect x0,y0,x1,y1).

Example:
  cuecast-admin project 15,15 --rect 0,0,20,20`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		tune, err := tuning.Load(projectConfig)
		if err != nil {
			return fmt.Errorf("load tuning: %w", err)
		}
		p, err := parseFloats(args[0], 2)
		if err != nil {
			return fmt.Errorf("point: %w", err)
		}

		var snap model.Snapshot
		if projectCamera != "" {
			c, err := parseFloats(projectCamera, 2)
			if err != nil {
				return fmt.Errorf("--camera: %w", err)
			}
			snap.Camera = &orb.Point{c[0], c[1]}
		}
		if projectRect != "" {
			r, err := parseFloats(projectRect, 4)
			if err != nil {
				return fmt.Errorf("--rect: %w", err)
			}
			snap.CameraLayer = rectLayer(tune.Map.Extent, r)
		}

		mapper, ev := cues.New(tune, nil, logger).Mapper(snap)
		w := orb.Point{p[0], p[1]}
		px, coord, strategy := mapper.ProjectWith(w)

		resp := map[string]any{
			"world":            []float64{w[0], w[1]},
			"coordinate":       string(coord),
			"pixel":            [2]int(px),
			"strategy":         string(strategy),
			"map_pixel":        [2]int(mapper.ToMap(w)),
			"camera_found":     mapper.Viewport().Center != nil,
			"camera_map_found": ev.Layer,
		}
		if vp := mapper.Viewport(); vp.Rect != nil {
			resp["camera_map_rect"] = []float64{vp.Rect.Min[0], vp.Rect.Min[1], vp.Rect.Max[0], vp.Rect.Max[1]}
		}
		if c := mapper.Viewport().Center; c != nil {
			resp["camera_center"] = []float64{c[0], c[1]}
		}
		return json.NewEncoder(cmd.OutOrStdout()).Encode(resp)
	},
}

func init() {
	projectCmd.Flags().StringVarP(&projectConfig, "config", "c", "./configs/tuning.yaml", "path to tuning.yaml")
	projectCmd.Flags().StringVar(&projectCamera, "camera", "", "explicit camera centre in world units: x,y")
	projectCmd.Flags().StringVar(&projectRect, "rect", "", "camera footprint in map cells: x0,y0,x1,y1 (inclusive)")
}

func parseFloats(s string, n int) ([]float64, error) {
	parts := strings.Split(s, ",")
	if len(parts) != n {
		return nil, fmt.Errorf("want %d comma-separated numbers, got %q", n, s)
	}
	out := make([]float64, n)
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// rectLayer paints the inclusive cell rectangle r into an extent x extent layer.
func rectLayer(extent int, r []float64) [][]int {
	layer := make([][]int, extent)
	for y := range layer {
		layer[y] = make([]int, extent)
	}
	x0, y0, x1, y1 := int(r[0]), int(r[1]), int(r[2]), int(r[3])
	for y := max(y0, 0); y <= min(y1, extent-1); y++ {
		for x := max(x0, 0); x <= min(x1, extent-1); x++ {
			layer[y][x] = 1
		}
	}
	return layer
}
