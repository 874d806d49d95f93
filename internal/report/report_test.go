package report

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"gopkg.in/yaml.v3"

	"github.com/ZebulonRouseFrantzich/prebuilt/internal/fetch"
)

func sampleOutcomes() []fetch.Outcome {
	return []fetch.Outcome{
		{
			PlatformKey: "darwin-arm64",
			Status:      fetch.StatusCompleted,
			Path:        "/tp/duckdb-v1.0.0-node-v93-darwin-arm64.node",
			EntryFound:  true,
			Bytes:       2_500_000,
			Duration:    1500 * time.Millisecond,
		},
		{
			PlatformKey: "linux-x64",
			Status:      fetch.StatusSkipped,
			Path:        "/tp/duckdb-v1.0.0-node-v93-linux-x64.node",
		},
		{
			PlatformKey: "win32-x64",
			Status:      fetch.StatusFailed,
			Path:        "/tp/duckdb-v1.0.0-node-v93-win32-x64.node",
			Err: &fetch.Error{
				Kind:        fetch.KindNetwork,
				PlatformKey: "win32-x64",
				Err:         errors.New("unexpected status: 404 Not Found"),
			},
			Duration: 20 * time.Millisecond,
		},
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		input   string
		want    Format
		wantErr bool
	}{
		{"text", FormatText, false},
		{"JSON", FormatJSON, false},
		{" yaml ", FormatYAML, false},
		{"", FormatText, false},
		{"xml", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseFormat(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseFormat() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseFormat() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNewDocument(t *testing.T) {
	doc := NewDocument(sampleOutcomes())

	want := SummaryRecord{Total: 3, Completed: 1, Skipped: 1, Failed: 1}
	if diff := cmp.Diff(want, doc.Summary); diff != "" {
		t.Errorf("Summary mismatch (-want +got):\n%s", diff)
	}

	failed := doc.Outcomes[2]
	if failed.ErrorKind != "network" {
		t.Errorf("ErrorKind = %q, want network", failed.ErrorKind)
	}
	if !strings.Contains(failed.Error, "404") {
		t.Errorf("Error = %q", failed.Error)
	}
	if doc.Outcomes[0].DurationMS != 1500 {
		t.Errorf("DurationMS = %d, want 1500", doc.Outcomes[0].DurationMS)
	}
}

func TestWrite_JSON(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, sampleOutcomes(), FormatJSON); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	var got Document
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, buf.String())
	}
	if diff := cmp.Diff(NewDocument(sampleOutcomes()), got); diff != "" {
		t.Errorf("JSON document mismatch (-want +got):\n%s", diff)
	}
	if strings.Contains(buf.String(), `"error_kind": ""`) {
		t.Error("empty error_kind should be omitted")
	}
}

func TestWrite_YAML(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, sampleOutcomes(), FormatYAML); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	var got Document
	if err := yaml.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("output is not YAML: %v\n%s", err, buf.String())
	}
	if got.Summary.Failed != 1 || len(got.Outcomes) != 3 {
		t.Errorf("YAML document = %+v", got)
	}
	if got.Outcomes[1].Status != "skipped" {
		t.Errorf("Outcomes[1].Status = %q, want skipped", got.Outcomes[1].Status)
	}
}

func TestWrite_Text(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, sampleOutcomes(), FormatText); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	out := buf.String()

	for _, want := range []string{
		"PLATFORM",
		"darwin-arm64",
		"2.5 MB",
		"already exists: /tp/duckdb-v1.0.0-node-v93-linux-x64.node",
		"network error",
		"3 targets: 1 completed, 1 skipped, 1 failed",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "\x1b[") {
		t.Errorf("non-terminal output contains escape codes:\n%q", out)
	}
}

func TestWrite_TextNotFound(t *testing.T) {
	outcomes := []fetch.Outcome{{PlatformKey: "linux-x64", Status: fetch.StatusCompleted}}

	var buf bytes.Buffer
	if err := Write(&buf, outcomes, FormatText); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if !strings.Contains(buf.String(), "1 target: 1 completed, 0 skipped, 0 failed (1 without a matching entry)") {
		t.Errorf("unexpected summary:\n%s", buf.String())
	}
	if !strings.Contains(buf.String(), "no matching entry") {
		t.Errorf("missing detail:\n%s", buf.String())
	}
}

func TestWrite_UnknownFormat(t *testing.T) {
	if err := Write(&bytes.Buffer{}, nil, Format("xml")); err == nil {
		t.Error("expected error for unknown format")
	}
}

func TestWriteRuns(t *testing.T) {
	runs := []Run{
		{Component: "duckdb", Version: "1.0.0", Outcomes: sampleOutcomes()},
		{Component: "keytar", Version: "7.9.0", Outcomes: sampleOutcomes()[:1]},
	}

	t.Run("text", func(t *testing.T) {
		var buf bytes.Buffer
		if err := WriteRuns(&buf, runs, FormatText); err != nil {
			t.Fatalf("WriteRuns() error = %v", err)
		}
		out := buf.String()
		for _, want := range []string{"duckdb 1.0.0", "keytar 7.9.0", "1 target: 1 completed"} {
			if !strings.Contains(out, want) {
				t.Errorf("output missing %q:\n%s", want, out)
			}
		}
	})

	t.Run("json", func(t *testing.T) {
		var buf bytes.Buffer
		if err := WriteRuns(&buf, runs, FormatJSON); err != nil {
			t.Fatalf("WriteRuns() error = %v", err)
		}
		var got struct {
			Runs []Document `json:"runs"`
		}
		if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
			t.Fatalf("output is not JSON: %v", err)
		}
		if len(got.Runs) != 2 || got.Runs[1].Component != "keytar" || got.Runs[1].Version != "7.9.0" {
			t.Errorf("runs = %+v", got.Runs)
		}
		if got.Runs[0].Summary.Failed != 1 {
			t.Errorf("Runs[0].Summary = %+v", got.Runs[0].Summary)
		}
	})
}
