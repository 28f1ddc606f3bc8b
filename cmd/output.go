package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/siteopt/internal/mapview"
)

// writeFormatted encodes v to w as indented JSON or YAML.
func writeFormatted(w io.Writer, v any, format string) error {
	switch format {
	case "json", "":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return eris.Wrap(enc.Encode(v), "encode json")
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return eris.Wrap(err, "encode yaml")
		}
		return eris.Wrap(enc.Close(), "close yaml encoder")
	default:
		return eris.Errorf("unsupported format %q (want json or yaml)", format)
	}
}

// formatAssignments writes the assignment table to w.
func formatAssignments(out io.Writer, rows []mapview.Row) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "BARANGAY\tNEAREST VACCINATION CENTER\tDISTANCE (M)")
	_, _ = fmt.Fprintln(w, "--------\t--------------------------\t------------")
	for _, r := range rows {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\n", displayName(r.Barangay), r.Center, r.Distance)
	}
	_ = w.Flush()
}

// formatSites writes the selected sites with their marker colors to w.
func formatSites(out io.Writer, markers []mapview.Marker) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "INDEX\tSITE\tLOCATION\tICON")
	for _, m := range markers {
		_, _ = fmt.Fprintf(w, "%d\t%s\t%.5f, %.5f\t%s\n",
			m.Index, displayName(m.Name), m.Position.Lat, m.Position.Lon, m.Icon.URL)
	}
	_ = w.Flush()
}

func displayName(s string) string {
	if s == "" {
		return "(unnamed)"
	}
	return s
}

// writeSceneFile writes the scene as JSON to path.
func writeSceneFile(path string, scene mapview.Scene) error {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "create scene file %s", path)
	}
	if err := writeFormatted(f, scene, "json"); err != nil {
		_ = f.Close()
		return err
	}
	return eris.Wrap(f.Close(), "close scene file")
}
