package cli

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"svcore/internal/dependency"
	"svcore/internal/orchestrator"

	"github.com/Masterminds/semver/v3"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// PackageInfo is the serializable form of a submitted descriptor.
type PackageInfo struct {
	ID       string   `json:"id" yaml:"id"`
	Version  string   `json:"version" yaml:"version"`
	Level    int      `json:"level" yaml:"level"` // -1 when the package sits on or behind a cycle
	Requires []string `json:"requires,omitempty" yaml:"requires,omitempty"`
	Provides []string `json:"provides,omitempty" yaml:"provides,omitempty"`
}

// ListPackages orders descriptors by dependency level, then ID, and keeps
// those whose version satisfies constraint. An empty constraint keeps all.
func ListPackages(descriptors []orchestrator.Descriptor, graph *dependency.Graph, constraint string) ([]PackageInfo, error) {
	var versions *semver.Constraints
	if constraint != "" {
		c, err := semver.NewConstraint(constraint)
		if err != nil {
			return nil, fmt.Errorf("invalid version constraint %q: %w", constraint, err)
		}
		versions = c
	}

	levelOf := make(map[string]int, len(descriptors))
	levels, blocked := graph.Levels()
	for i, level := range levels {
		for _, id := range level {
			levelOf[string(id)] = i
		}
	}
	for _, id := range blocked {
		levelOf[string(id)] = -1
	}

	infos := make([]PackageInfo, 0, len(descriptors))
	for _, desc := range descriptors {
		if versions != nil {
			v, err := semver.NewVersion(desc.Version)
			if err != nil || !versions.Check(v) {
				continue
			}
		}
		infos = append(infos, PackageInfo{
			ID:       desc.ID,
			Version:  desc.Version,
			Level:    levelOf[desc.ID],
			Requires: typeNames(desc.Requires),
			Provides: typeNames(desc.Provides),
		})
	}

	sort.SliceStable(infos, func(i, j int) bool {
		li, lj := infos[i].Level, infos[j].Level
		if li != lj {
			// Blocked packages go last.
			if li < 0 || lj < 0 {
				return lj < 0
			}
			return li < lj
		}
		return infos[i].ID < infos[j].ID
	})
	return infos, nil
}

// RenderPackages writes a package listing in the requested format.
func RenderPackages(w io.Writer, infos []PackageInfo, format OutputFormat) error {
	switch format {
	case OutputFormatJSON:
		return outputJSON(w, infos)
	case OutputFormatYAML:
		return outputYAML(w, infos)
	case OutputFormatTable:
	default:
		return fmt.Errorf("unsupported output format: %s", format)
	}

	if len(infos) == 0 {
		_, err := fmt.Fprintln(w, text.FgYellow.Sprint("No packages found"))
		return err
	}

	t := newTable(w, "level", "package", "version", "requires", "provides")
	for _, info := range infos {
		level := fmt.Sprint(info.Level)
		if info.Level < 0 {
			level = TextErrorStyle.Render("cycle")
		}
		t.AppendRow(table.Row{
			level,
			info.ID,
			info.Version,
			joinOrNone(info.Requires),
			joinOrNone(info.Provides),
		})
	}
	t.Render()
	return nil
}

func joinOrNone(names []string) string {
	if len(names) == 0 {
		return text.FgHiBlack.Sprint("none")
	}
	return strings.Join(names, ", ")
}
