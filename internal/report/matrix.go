package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/ZebulonRouseFrantzich/prebuilt/internal/matrix"
)

// TargetRecord is the serializable view of a matrix.Target
type TargetRecord struct {
	Platform    string `json:"platform" yaml:"platform"`
	URL         string `json:"url" yaml:"url"`
	Destination string `json:"destination" yaml:"destination"`
	Entry       string `json:"entry" yaml:"entry"`
}

// MatrixRecord is the serializable view of a matrix.Matrix
type MatrixRecord struct {
	Component string         `json:"component" yaml:"component"`
	Version   string         `json:"version" yaml:"version"`
	Targets   []TargetRecord `json:"targets" yaml:"targets"`
}

// NewMatrixRecord converts a matrix
func NewMatrixRecord(m *matrix.Matrix) MatrixRecord {
	rec := MatrixRecord{
		Component: string(m.Component()),
		Version:   m.Version(),
		Targets:   make([]TargetRecord, 0, m.Len()),
	}
	for _, t := range m.Targets() {
		rec.Targets = append(rec.Targets, TargetRecord{
			Platform:    t.PlatformKey,
			URL:         t.ArchiveURL,
			Destination: t.DestinationPath,
			Entry:       t.EntryName,
		})
	}
	return rec
}

// WriteMatrices renders the targets of each matrix without fetching them.
func WriteMatrices(w io.Writer, matrices []*matrix.Matrix, format Format) error {
	switch format {
	case FormatJSON, FormatYAML:
		records := make([]MatrixRecord, 0, len(matrices))
		for _, m := range matrices {
			records = append(records, NewMatrixRecord(m))
		}
		return encode(w, struct {
			Matrices []MatrixRecord `json:"matrices" yaml:"matrices"`
		}{records}, format)
	case FormatText, "":
		return writeMatricesText(w, matrices)
	default:
		return fmt.Errorf("unknown report format %q", format)
	}
}

func writeMatricesText(w io.Writer, matrices []*matrix.Matrix) error {
	r := lipgloss.NewRenderer(w)
	heading := r.NewStyle().Bold(true).Underline(true)
	label := r.NewStyle().Faint(true).Width(6)

	var b strings.Builder
	for i, m := range matrices {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(heading.Render(fmt.Sprintf("%s %s", m.Component(), m.Version())))
		b.WriteString("\n")
		for _, t := range m.Targets() {
			b.WriteString(t.PlatformKey + "\n")
			b.WriteString("  " + label.Render("url") + t.ArchiveURL + "\n")
			b.WriteString("  " + label.Render("dest") + t.DestinationPath + "\n")
			b.WriteString("  " + label.Render("entry") + t.EntryName + "\n")
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}
