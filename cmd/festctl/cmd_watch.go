package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	watchURL    string
	watchPretty bool
)

// watchCmd follows the server's live event stream, reconnecting until
// interrupted.
var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Print live events (media.updated, artists.updated) from a running server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		for {
			err := watch(ctx, watchURL, watchPretty, cmd.OutOrStdout())
			if ctx.Err() != nil {
				return nil
			}
			logger.Warn("disconnected", zap.String("url", watchURL), zap.Error(err))

			select {
			case <-ctx.Done():
				return nil
			case <-time.After(time.Second):
			}
		}
	},
}

func init() {
	watchCmd.Flags().StringVar(&watchURL, "url", "ws://127.0.0.1:5000/ws", "websocket endpoint")
	watchCmd.Flags().BoolVar(&watchPretty, "pretty", true, "pretty print JSON events")
	rootCmd.AddCommand(watchCmd)
}

func watch(ctx context.Context, url string, pretty bool, out io.Writer) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", url, err)
	}
	defer conn.Close()

	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	logger.Info("connected", zap.String("url", url))
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		if !pretty {
			fmt.Fprintln(out, string(msg))
			continue
		}

		var obj map[string]any
		if err := json.Unmarshal(msg, &obj); err != nil {
			fmt.Fprintln(out, string(msg))
			continue
		}
		b, _ := json.MarshalIndent(obj, "", "  ")
		fmt.Fprintln(out, string(b))
	}
}
