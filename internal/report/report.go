// Package report renders fetch outcomes for people and for tooling.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"gopkg.in/yaml.v3"

	"github.com/ZebulonRouseFrantzich/prebuilt/internal/fetch"
)

// Format selects the rendering
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseFormat validates a format name
func ParseFormat(name string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(name))); f {
	case FormatText, FormatJSON, FormatYAML:
		return f, nil
	case "":
		return FormatText, nil
	default:
		return "", fmt.Errorf("unknown report format %q (want text, json or yaml)", name)
	}
}

// OutcomeRecord is the serializable view of a fetch.Outcome
type OutcomeRecord struct {
	Platform   string `json:"platform" yaml:"platform"`
	Status     string `json:"status" yaml:"status"`
	Path       string `json:"path" yaml:"path"`
	EntryFound bool   `json:"entry_found" yaml:"entry_found"`
	Bytes      int64  `json:"bytes" yaml:"bytes"`
	DurationMS int64  `json:"duration_ms" yaml:"duration_ms"`
	ErrorKind  string `json:"error_kind,omitempty" yaml:"error_kind,omitempty"`
	Error      string `json:"error,omitempty" yaml:"error,omitempty"`
}

// Document is the machine-readable report of one component's run
type Document struct {
	Component string          `json:"component,omitempty" yaml:"component,omitempty"`
	Version   string          `json:"version,omitempty" yaml:"version,omitempty"`
	Outcomes  []OutcomeRecord `json:"outcomes" yaml:"outcomes"`
	Summary   SummaryRecord   `json:"summary" yaml:"summary"`
}

// Run is the result set of one component at one version
type Run struct {
	Component string
	Version   string
	Outcomes  []fetch.Outcome
}

// SummaryRecord is the serializable view of a fetch.Summary
type SummaryRecord struct {
	Total     int `json:"total" yaml:"total"`
	Completed int `json:"completed" yaml:"completed"`
	Skipped   int `json:"skipped" yaml:"skipped"`
	Failed    int `json:"failed" yaml:"failed"`
	NotFound  int `json:"not_found" yaml:"not_found"`
}

// NewRecord converts an outcome
func NewRecord(o fetch.Outcome) OutcomeRecord {
	r := OutcomeRecord{
		Platform:   o.PlatformKey,
		Status:     o.Status.String(),
		Path:       o.Path,
		EntryFound: o.EntryFound,
		Bytes:      o.Bytes,
		DurationMS: o.Duration.Milliseconds(),
	}
	if o.Err != nil {
		r.Error = o.Err.Error()
		if kind := fetch.KindOf(o.Err); kind != 0 {
			r.ErrorKind = kind.String()
		}
	}
	return r
}

// NewDocument converts a result set
func NewDocument(outcomes []fetch.Outcome) Document {
	doc := Document{Outcomes: make([]OutcomeRecord, 0, len(outcomes))}
	for _, o := range outcomes {
		doc.Outcomes = append(doc.Outcomes, NewRecord(o))
	}
	s := fetch.Summarize(outcomes)
	doc.Summary = SummaryRecord{
		Total:     len(outcomes),
		Completed: s.Completed,
		Skipped:   s.Skipped,
		Failed:    s.Failed,
		NotFound:  s.NotFound,
	}
	return doc
}

// Write renders outcomes to w in the given format.
func Write(w io.Writer, outcomes []fetch.Outcome, format Format) error {
	switch format {
	case FormatJSON, FormatYAML:
		return encode(w, NewDocument(outcomes), format)
	case FormatText, "":
		return writeText(w, outcomes)
	default:
		return fmt.Errorf("unknown report format %q", format)
	}
}

// WriteRuns renders several component runs. Text output gets a heading per
// run; JSON and YAML output is a list of documents under "runs".
func WriteRuns(w io.Writer, runs []Run, format Format) error {
	switch format {
	case FormatJSON, FormatYAML:
		docs := make([]Document, 0, len(runs))
		for _, run := range runs {
			doc := NewDocument(run.Outcomes)
			doc.Component, doc.Version = run.Component, run.Version
			docs = append(docs, doc)
		}
		return encode(w, struct {
			Runs []Document `json:"runs" yaml:"runs"`
		}{docs}, format)
	case FormatText, "":
		heading := lipgloss.NewRenderer(w).NewStyle().Bold(true).Underline(true)
		for i, run := range runs {
			if i > 0 {
				if _, err := io.WriteString(w, "\n"); err != nil {
					return err
				}
			}
			if _, err := fmt.Fprintln(w, heading.Render(run.Component+" "+run.Version)); err != nil {
				return err
			}
			if err := writeText(w, run.Outcomes); err != nil {
				return err
			}
		}
		return nil
	default:
		return fmt.Errorf("unknown report format %q", format)
	}
}

func encode(w io.Writer, v any, format Format) error {
	if format == FormatJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}

// writeText renders an aligned table followed by a one-line summary.
// Colors are applied only when w is a terminal.
func writeText(w io.Writer, outcomes []fetch.Outcome) error {
	r := lipgloss.NewRenderer(w)

	keyWidth := len("PLATFORM")
	for _, o := range outcomes {
		keyWidth = max(keyWidth, len(o.PlatformKey))
	}

	header := r.NewStyle().Bold(true)
	platformCol := r.NewStyle().Width(keyWidth + 2)
	statusCol := r.NewStyle().Width(11)
	sizeCol := r.NewStyle().Width(10)
	durationCol := r.NewStyle().Width(10)

	statusStyles := map[fetch.Status]lipgloss.Style{
		fetch.StatusCompleted: statusCol.Foreground(lipgloss.Color("2")),
		fetch.StatusSkipped:   statusCol.Foreground(lipgloss.Color("8")),
		fetch.StatusFailed:    statusCol.Foreground(lipgloss.Color("1")).Bold(true),
	}

	var b strings.Builder
	b.WriteString(header.Render(
		platformCol.Render("PLATFORM") + statusCol.Render("STATUS") +
			sizeCol.Render("SIZE") + durationCol.Render("DURATION") + "DETAIL"))
	b.WriteString("\n")

	for _, o := range outcomes {
		size := "-"
		if o.Bytes > 0 {
			size = humanize.Bytes(uint64(o.Bytes))
		}

		b.WriteString(platformCol.Render(o.PlatformKey))
		b.WriteString(statusStyles[o.Status].Render(o.Status.String()))
		b.WriteString(sizeCol.Render(size))
		b.WriteString(durationCol.Render(o.Duration.Round(time.Millisecond).String()))
		b.WriteString(detail(o))
		b.WriteString("\n")
	}

	s := fetch.Summarize(outcomes)
	fmt.Fprintf(&b, "\n%d %s: %d completed, %d skipped, %d failed",
		len(outcomes), plural(len(outcomes), "target"), s.Completed, s.Skipped, s.Failed)
	if s.NotFound > 0 {
		fmt.Fprintf(&b, " (%d without a matching entry)", s.NotFound)
	}
	b.WriteString("\n")

	_, err := io.WriteString(w, b.String())
	return err
}

func detail(o fetch.Outcome) string {
	switch {
	case o.Status == fetch.StatusFailed && o.Err != nil:
		return o.Err.Error()
	case o.Status == fetch.StatusSkipped:
		return "already exists: " + o.Path
	case o.Status == fetch.StatusCompleted && !o.EntryFound:
		return "no matching entry"
	default:
		return o.Path
	}
}

func plural(n int, word string) string {
	if n == 1 {
		return word
	}
	return word + "s"
}
