package main

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"cuecast.ai/internal/cues"
	"cuecast.ai/internal/names"
	"cuecast.ai/internal/persistence/framelog"
	"cuecast.ai/internal/persistence/indexdb"
	"cuecast.ai/internal/persistence/overlayfile"
	"cuecast.ai/internal/protocol"
	"cuecast.ai/internal/runtime"
	"cuecast.ai/internal/tuning"
)

const replaySession = "replay"

var (
	runOut      string
	runValidate bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Print one overlay document per recorded frame (JSONL)",
	Long: `Prints one overlay document per frame to stdout. With --out, nothing is
printed and the last document is published to that path instead.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		tune, resolver, err := loadEngineInputs()
		if err != nil {
			return err
		}
		sum, err := replay(cmd.OutOrStdout(), framesPath, tune, resolver, replayOptions{Out: runOut, Validate: runValidate})
		if err != nil {
			return err
		}
		logger.Info("replay done", zap.Int("frames", sum.frames), zap.Int("failed", sum.failed))
		return nil
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Summarize a recording per action",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		tune, resolver, err := loadEngineInputs()
		if err != nil {
			return err
		}
		sum, err := replay(io.Discard, framesPath, tune, resolver, replayOptions{})
		if err != nil {
			return err
		}
		return writeStats(cmd.OutOrStdout(), sum)
	},
}

func init() {
	runCmd.Flags().StringVarP(&runOut, "out", "o", "", "publish only the last overlay document to this path")
	runCmd.Flags().BoolVar(&runValidate, "validate", false, "validate every overlay document against its schema")
}

type replayOptions struct {
	Out      string
	Validate bool
}

type replaySummary struct {
	frames  int
	failed  int
	actions map[string]*indexdb.ActionCount
}

func replay(w io.Writer, path string, tune tuning.Tuning, resolver *names.Resolver, opts replayOptions) (replaySummary, error) {
	loop := runtime.New(cues.New(tune, resolver, logger), runtime.Options{Log: logger})
	enc := json.NewEncoder(w)
	sum := replaySummary{actions: map[string]*indexdb.ActionCount{}}

	var last *protocol.OverlayDoc
	err := framelog.ReadFrames(path, func(f protocol.FrameMsg) error {
		doc, ack := loop.Step(replaySession, f)
		if opts.Validate {
			if err := protocol.ValidateValue(protocol.SchemaOverlayDoc, doc); err != nil {
				return fmt.Errorf("frame %d: %w", f.Frame, err)
			}
		}

		sum.frames++
		c, ok := sum.actions[f.Action.Function]
		if !ok {
			c = &indexdb.ActionCount{Action: f.Action.Function}
			sum.actions[f.Action.Function] = c
		}
		c.Frames++
		c.Cues += ack.CueCount
		if !ack.Accepted {
			c.Failures++
			sum.failed++
		}

		if opts.Out != "" {
			last = &doc
			return nil
		}
		return enc.Encode(doc)
	})
	if err != nil {
		return sum, err
	}
	if opts.Out != "" && last != nil {
		if err := overlayfile.NewPublisher(opts.Out).Publish(*last); err != nil {
			return sum, fmt.Errorf("publish: %w", err)
		}
	}
	return sum, nil
}

// sorted orders actions most frequent first, like the frame index does.
func (s replaySummary) sorted() []indexdb.ActionCount {
	out := make([]indexdb.ActionCount, 0, len(s.actions))
	for _, c := range s.actions {
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Frames != out[j].Frames {
			return out[i].Frames > out[j].Frames
		}
		return out[i].Action < out[j].Action
	})
	return out
}

func writeStats(w io.Writer, sum replaySummary) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ACTION\tFRAMES\tCUES\tFAILED")
	for _, c := range sum.sorted() {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\n", c.Action, c.Frames, c.Cues, c.Failures)
	}
	fmt.Fprintf(tw, "total\t%d\t\t%d\n", sum.frames, sum.failed)
	return tw.Flush()
}
