package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"cuecast.ai/internal/logging"
	"cuecast.ai/internal/persistence/framelog"
	"cuecast.ai/internal/protocol"
)

var (
	url        string
	name       string
	framesPath string
	interval   time.Duration
	demoCount  int
	verbose    bool

	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "cuecast-bot",
	Short: "Bridge client that streams frames to a running cuecast-server",
	Long: `Connects to the bridge, then sends either a recording (--frames) or a short
synthetic demo and waits for the CUES acknowledgement of every frame.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		logger, err = logging.New(logging.Options{Verbose: verbose, Component: "bot"})
		return err
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		frames := demoFrames(demoCount)
		if framesPath != "" {
			frames = frames[:0]
			if err := framelog.ReadFrames(framesPath, func(f protocol.FrameMsg) error {
				frames = append(frames, f)
				return nil
			}); err != nil {
				return fmt.Errorf("read frames: %w", err)
			}
		}

		conn, _, err := websocket.DefaultDialer.DialContext(cmd.Context(), url, nil)
		if err != nil {
			return fmt.Errorf("dial: %w", err)
		}
		defer conn.Close()

		welcome, err := hello(conn, name)
		if err != nil {
			return err
		}
		logger.Info("WELCOME",
			zap.String("session", welcome.SessionID),
			zap.Int("viewport_pixels", welcome.GridParams.ViewportPixels),
			zap.Int("map_extent", welcome.GridParams.MapExtent))

		sum, err := stream(cmd.Context(), conn, frames, interval, logger)
		logger.Info("done", zap.Int("sent", sum.sent), zap.Int("accepted", sum.accepted), zap.Int("cues", sum.cues))
		return err
	},
}

func init() {
	rootCmd.Flags().StringVar(&url, "url", "ws://127.0.0.1:8090/v1/bridge", "bridge url")
	rootCmd.Flags().StringVar(&name, "name", "bot", "agent name")
	rootCmd.Flags().StringVar(&framesPath, "frames", "", "recording to replay (default: synthetic demo)")
	rootCmd.Flags().DurationVar(&interval, "interval", 200*time.Millisecond, "delay between frames")
	rootCmd.Flags().IntVar(&demoCount, "demo", 20, "synthetic frames to send when --frames is empty")
	rootCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func hello(conn *websocket.Conn, agent string) (protocol.WelcomeMsg, error) {
	var w protocol.WelcomeMsg
	if err := conn.WriteJSON(protocol.HelloMsg{
		Type:            protocol.TypeHello,
		ProtocolVersion: protocol.Version,
		AgentName:       agent,
	}); err != nil {
		return w, fmt.Errorf("send HELLO: %w", err)
	}
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if err := conn.ReadJSON(&w); err != nil {
		return w, fmt.Errorf("read WELCOME: %w", err)
	}
	if w.Type != protocol.TypeWelcome {
		return w, fmt.Errorf("expected WELCOME, got %q", w.Type)
	}
	return w, nil
}

type summary struct {
	sent     int
	accepted int
	cues     int
}

// stream sends frames one at a time and waits for each acknowledgement.
func stream(ctx context.Context, conn *websocket.Conn, frames []protocol.FrameMsg, every time.Duration, log *zap.Logger) (summary, error) {
	var sum summary
	for i, f := range frames {
		if err := ctx.Err(); err != nil {
			return sum, nil
		}
		f.Type = protocol.TypeFrame
		f.ProtocolVersion = protocol.Version
		if err := conn.WriteJSON(f); err != nil {
			return sum, fmt.Errorf("send FRAME %d: %w", f.Frame, err)
		}
		sum.sent++

		ack, err := readAck(conn, f.Frame)
		if err != nil {
			return sum, err
		}
		if ack.Accepted {
			sum.accepted++
			sum.cues += ack.CueCount
		}
		log.Debug("CUES", zap.Uint64("frame", ack.Frame), zap.Bool("accepted", ack.Accepted),
			zap.Int("cues", ack.CueCount), zap.String("code", ack.Code))

		if every > 0 && i < len(frames)-1 {
			select {
			case <-ctx.Done():
				return sum, nil
			case <-time.After(every):
			}
		}
	}
	return sum, nil
}

func readAck(conn *websocket.Conn, frame uint64) (protocol.CuesMsg, error) {
	for {
		_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return protocol.CuesMsg{}, fmt.Errorf("wait for CUES %d: %w", frame, err)
		}
		base, err := protocol.DecodeBase(msg)
		if err != nil {
			continue
		}
		switch base.Type {
		case protocol.TypeCues:
			var ack protocol.CuesMsg
			if err := json.Unmarshal(msg, &ack); err != nil {
				return ack, err
			}
			if ack.Frame == frame {
				return ack, nil
			}
		case protocol.TypeError:
			var e protocol.ErrorMsg
			_ = json.Unmarshal(msg, &e)
			return protocol.CuesMsg{}, errors.New(e.Code + ": " + e.Message)
		}
	}
}
