package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/trailmark/routecapture/internal/config"
	"github.com/trailmark/routecapture/internal/export"
	"github.com/trailmark/routecapture/internal/storage/memory"
	"github.com/trailmark/routecapture/pkg/capture"
	"github.com/trailmark/routecapture/pkg/core"
)

const usage = `Usage: routecapture <command> [args]

Commands:
  replay <script.json>             replay an input script and save the route
  export-kml <record.json> <out>   write a saved route file as KML
  list                             list saved routes
  show <id>                        print a saved route as JSON
  version                          print the version
`

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	if len(args) == 0 {
		fmt.Fprint(stdout, usage)
		return errors.New("no command provided")
	}

	switch strings.ToLower(args[0]) {
	case "replay":
		if len(args) < 2 {
			return errors.New("replay needs a script path")
		}
		return withApp(ctx, stderr, func(a *app) error {
			return replay(ctx, a, args[1], stdout)
		})
	case "export-kml":
		if len(args) < 3 {
			return errors.New("export-kml needs a route file and an output path")
		}
		return exportKML(args[1], args[2], stdout)
	case "list":
		return withApp(ctx, stderr, func(a *app) error {
			return listRoutes(ctx, a, stdout)
		})
	case "show":
		if len(args) < 2 {
			return errors.New("show needs a route id")
		}
		return withApp(ctx, stderr, func(a *app) error {
			return showRoute(ctx, a, args[1], stdout)
		})
	case "version":
		fmt.Fprintf(stdout, "%s %s (built %s)\n", AppName, CurrentVersion, BuildDate)
		return nil
	case "help", "-h", "--help":
		fmt.Fprint(stdout, usage)
		return nil
	default:
		fmt.Fprint(stdout, usage)
		return fmt.Errorf("unknown command %q", args[0])
	}
}

func withApp(ctx context.Context, stderr io.Writer, fn func(a *app) error) error {
	a, err := newApp(ctx, stderr)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(a)
}

func replay(ctx context.Context, a *app, path string, stdout io.Writer) error {
	s, err := readScript(path)
	if err != nil {
		return err
	}

	clock := &scriptClock{start: time.Now()}
	opts := append(a.engineOptions(), capture.WithClock(clock.Now))
	engine, err := capture.New(capture.ConfigFrom(config.GetCaptureConfig()), opts...)
	if err != nil {
		return fmt.Errorf("creating engine: %w", err)
	}
	defer engine.Close()

	a.Logger.Info().Str("script", path).Int("events", len(s.Events)).Str("session", engine.SessionID()).Msg("Replaying script")

	for i, ev := range s.Events {
		clock.Set(ev.AtMs)
		notice, err := applyEvent(engine, ev)
		if err != nil {
			return fmt.Errorf("event %d (%s): %w", i, ev.Type, err)
		}
		switch {
		case notice.Warning():
			fmt.Fprintf(stdout, "event %d (%s): warning: %s\n", i, ev.Type, notice)
		case notice != capture.NoticeAccepted:
			fmt.Fprintf(stdout, "event %d (%s): %s\n", i, ev.Type, notice)
		}
	}

	if s.SettleMs > 0 {
		select {
		case <-time.After(time.Duration(s.SettleMs) * time.Millisecond):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	id, err := engine.Save(ctx, core.RouteForm{
		Name:        s.Name,
		Description: s.Description,
		Options:     s.Options,
	})
	if err != nil {
		var verr *capture.ValidationError
		if errors.As(err, &verr) {
			return fmt.Errorf("route rejected: %s", verr.Message)
		}
		return err
	}

	fmt.Fprintf(stdout, "Saved route %s\n", id)
	if ex, ok := a.Storage.(interface{ GetExportedFilePath() string }); ok {
		if p := ex.GetExportedFilePath(); p != "" {
			fmt.Fprintf(stdout, "Exported to %s\n", p)
		}
	}
	return nil
}

func applyEvent(engine *capture.Engine, ev scriptEvent) (capture.Notice, error) {
	coord, err := ev.coordinate()
	if err != nil {
		return capture.NoticeAccepted, err
	}

	switch strings.ToLower(ev.Type) {
	case "mode":
		mode, err := core.ParseMode(ev.Mode)
		if err != nil {
			return capture.NoticeAccepted, err
		}
		return capture.NoticeAccepted, engine.SetMode(mode)
	case "press":
		if coord == nil {
			return capture.NoticeAccepted, errors.New("press needs a coordinate")
		}
		return engine.HandleMapPress(*coord)
	case "gesture":
		phase, err := parsePhase(ev.Phase)
		if err != nil {
			return capture.NoticeAccepted, err
		}
		return engine.HandleGesture(capture.GestureEvent{
			Phase:      phase,
			Screen:     capture.ScreenPoint{X: ev.X, Y: ev.Y},
			Coordinate: coord,
		})
	case "undo":
		_, err := engine.Undo()
		return capture.NoticeAccepted, err
	case "redo":
		_, err := engine.Redo()
		return capture.NoticeAccepted, err
	case "clear":
		return capture.NoticeAccepted, engine.ClearAll()
	case "finish":
		return capture.NoticeAccepted, engine.FinishPenDrawing()
	case "recording":
		if ev.Recording == nil {
			return capture.NoticeAccepted, errors.New("recording event has no recording")
		}
		route, err := ev.Recording.route()
		if err != nil {
			return capture.NoticeAccepted, err
		}
		return capture.NoticeAccepted, engine.ApplyRecording(route)
	default:
		return capture.NoticeAccepted, fmt.Errorf("unknown event type %q", ev.Type)
	}
}

func exportKML(in, out string, stdout io.Writer) error {
	route, err := memory.ReadRouteFile(in)
	if err != nil {
		return err
	}

	f, err := os.Create(out)
	if err != nil {
		return fmt.Errorf("error creating file: %w", err)
	}
	defer func() { _ = f.Close() }()

	if err := export.WriteKML(f, route); err != nil {
		return fmt.Errorf("error writing KML: %w", err)
	}

	fmt.Fprintf(stdout, "Wrote %s to %s\n", route.Name, out)
	return nil
}

func listRoutes(ctx context.Context, a *app, stdout io.Writer) error {
	routes, err := a.Storage.ListRoutes(ctx)
	if err != nil {
		return err
	}
	if len(routes) == 0 {
		fmt.Fprintln(stdout, "No routes saved.")
		return nil
	}

	w := tabwriter.NewWriter(stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tMODE\tPOINTS\tLENGTH (m)\tCREATED")
	for _, r := range routes {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%.0f\t%s\n",
			r.ID, r.Name, r.DrawingMode, r.Points, r.LengthMeters, r.CreatedAt.Local().Format(time.DateTime))
	}
	return w.Flush()
}

func showRoute(ctx context.Context, a *app, id string, stdout io.Writer) error {
	route, err := a.Storage.GetRoute(ctx, id)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(route)
}
