package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/siteopt/internal/mapview"
	"github.com/sells-group/siteopt/internal/model"
	"github.com/sells-group/siteopt/internal/search"
)

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Interactive address search (one keystroke state per line, :N selects)",
	Long: `Reads the address field contents from stdin, one line per edit, and prints
each suggestion list the debounced search publishes. A line of the form :N
selects suggestion N and centers the map on it. An empty line clears the field.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := &syncWriter{w: cmd.OutOrStdout()}
		sess := search.New(newGeocoder(cfg),
			search.WithDelay(cfg.Search.Debounce()),
			search.WithListener(printSnapshot(out)),
		)
		defer sess.Close()

		return runSearch(cmd.Context(), os.Stdin, out, sess, mapview.NewTracker(sceneOptions(cfg).Padding))
	},
}

func init() {
	rootCmd.AddCommand(searchCmd)
}

// syncWriter serializes writes from the listener and the input loop.
type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *syncWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}

// printSnapshot renders published results. Intermediate states are logged only.
func printSnapshot(out io.Writer) search.Listener {
	return func(s search.Snapshot) {
		switch s.State {
		case search.Done:
			_, _ = fmt.Fprintf(out, "#%d %q: %d suggestion(s)\n", s.Seq, s.Text, len(s.Suggestions))
			for i, sg := range s.Suggestions {
				_, _ = fmt.Fprintf(out, "  %d. %s (%.5f, %.5f)\n", i+1, sg.Label, sg.Coordinates.Lat, sg.Coordinates.Lon)
			}
		case search.Error:
			_, _ = fmt.Fprintf(out, "#%d %q: search failed: %v\n", s.Seq, s.Text, s.Err)
		default:
			zap.L().Debug("search state", zap.String("state", s.State.String()), zap.String("text", s.Text))
		}
	}
}

// runSearch feeds lines from in to sess until EOF, then waits for the last
// query to settle.
func runSearch(ctx context.Context, in io.Reader, out io.Writer, sess *search.Session, tracker *mapview.Tracker) error {
	center, zoom := tracker.InitialView()
	_, _ = fmt.Fprintf(out, "map: center %.4f, %.4f zoom %d\n", center.Lat, center.Lon, zoom)

	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		line := scanner.Text()

		if strings.HasPrefix(line, ":") {
			n, err := strconv.Atoi(strings.TrimSpace(line[1:]))
			if err != nil {
				_, _ = fmt.Fprintf(out, "invalid selection %q\n", line)
				continue
			}
			waitSettled(ctx, sess)
			chosen, err := sess.Select(n - 1)
			if err != nil {
				_, _ = fmt.Fprintf(out, "%v\n", err)
				continue
			}
			_, _ = fmt.Fprintf(out, "selected: %s\n", chosen.Label)
			if vp, refit := tracker.Update([]model.LatLng{chosen.Coordinates}); refit {
				c := vp.Bounds.Center()
				_, _ = fmt.Fprintf(out, "map: center %.5f, %.5f\n", c.Lat, c.Lon)
			}
			continue
		}

		sess.Input(line)
	}
	if err := scanner.Err(); err != nil {
		return err
	}

	waitSettled(ctx, sess)
	sess.Wait()
	return nil
}

// waitSettled polls until the session is neither debouncing nor fetching.
func waitSettled(ctx context.Context, sess *search.Session) {
	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()
	for {
		switch sess.Snapshot().State {
		case search.Debouncing, search.Fetching:
		default:
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
