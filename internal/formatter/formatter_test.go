package formatter

import (
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/zalun/karaoke-engine/internal/models"
	th "github.com/zalun/karaoke-engine/internal/testing"
)

func sampleSheet() *RotationSheet {
	now := models.PlaybackItem{ID: "s0", Title: "Bohemian Rhapsody", Artist: "Dana", Origin: models.OriginYouTube, MediaRef: "vid-s0", DurationHint: 354}
	return &RotationSheet{
		Title:      "Friday Night",
		NowPlaying: &now,
		Queue: []models.PlaybackItem{
			{ID: "s1", Title: "Take On Me", Artist: "Priya", Origin: models.OriginYouTube, MediaRef: "vid-s1", DurationHint: 225},
			{ID: "s2", Title: "Local Anthem", Origin: models.OriginLocal, MediaRef: "/media/anthem.mp4"},
		},
		GeneratedAt: time.Date(2026, time.August, 21, 20, 0, 0, 0, time.UTC),
	}
}

func TestExporters(t *testing.T) {
	t.Run("ExportToCSV", func(t *testing.T) {
		data, err := ExportToCSV(sampleSheet())
		if err != nil {
			t.Fatalf("ExportToCSV failed: %v", err)
		}

		output := string(data)
		if !strings.Contains(output, "Position,ID,Title,Artist,Origin,Duration") {
			t.Errorf("CSV missing headers, got: %s", output)
		}
		if !strings.Contains(output, "now,s0,Bohemian Rhapsody,Dana,youtube,354") {
			t.Errorf("CSV missing the now-playing row, got: %s", output)
		}
		if !strings.Contains(output, "1,s1,Take On Me,Priya,youtube,225") {
			t.Errorf("CSV missing the first queued row, got: %s", output)
		}
		if !strings.Contains(output, "2,s2,Local Anthem,,local,0") {
			t.Errorf("CSV missing the local row, got: %s", output)
		}
	})

	t.Run("ExportToCSV without a current item", func(t *testing.T) {
		sheet := sampleSheet()
		sheet.NowPlaying = nil

		data, err := ExportToCSV(sheet)
		if err != nil {
			t.Fatalf("ExportToCSV failed: %v", err)
		}
		if strings.Contains(string(data), "now,") {
			t.Errorf("CSV should have no now-playing row, got: %s", string(data))
		}
	})

	t.Run("ExportToMarkdown", func(t *testing.T) {
		data, err := ExportToMarkdown(sampleSheet())
		if err != nil {
			t.Fatalf("ExportToMarkdown failed: %v", err)
		}

		output := string(data)
		if !strings.Contains(output, "# Friday Night") {
			t.Errorf("Markdown missing title, got: %s", output)
		}
		if !strings.Contains(output, "**Now playing**: Bohemian Rhapsody - Dana") {
			t.Errorf("Markdown missing the now-playing line, got: %s", output)
		}
		if !strings.Contains(output, "1. Take On Me - Priya [3:45]") {
			t.Errorf("Markdown missing the first queued line, got: %s", output)
		}
		if !strings.Contains(output, "2. Local Anthem\n") {
			t.Errorf("Markdown missing the artistless line, got: %s", output)
		}
	})

	t.Run("ExportToMarkdown with an empty queue", func(t *testing.T) {
		sheet := sampleSheet()
		sheet.Queue = nil

		data, err := ExportToMarkdown(sheet)
		if err != nil {
			t.Fatalf("ExportToMarkdown failed: %v", err)
		}
		if !strings.Contains(string(data), "The queue is empty.") {
			t.Errorf("Markdown missing the empty-queue note, got: %s", string(data))
		}
	})

	t.Run("ExportToText", func(t *testing.T) {
		data, err := ExportToText(sampleSheet())
		if err != nil {
			t.Fatalf("ExportToText failed: %v", err)
		}

		output := string(data)
		if !strings.Contains(output, "Rotation: Friday Night") {
			t.Errorf("text missing title, got: %s", output)
		}
		if !strings.Contains(output, "Queued: 2") {
			t.Errorf("text missing queue count, got: %s", output)
		}
		if !strings.Contains(output, "1. Take On Me - Priya") {
			t.Errorf("text missing the first queued line, got: %s", output)
		}
	})
}

func TestWriteExports(t *testing.T) {
	t.Run("WriteCSVExport", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "sheet.csv")
		got, err := WriteCSVExport(sampleSheet(), path)
		if err != nil {
			t.Fatalf("WriteCSVExport failed: %v", err)
		}
		if got != path {
			t.Errorf("expected path %q, got %q", path, got)
		}
		th.AssertFileExists(t, path)
		if !strings.Contains(th.MustReadFile(t, path), "Take On Me") {
			t.Error("written CSV missing queue content")
		}
	})

	t.Run("WriteMarkdownExport defaults the filename", func(t *testing.T) {
		wd := th.MustGetwd(t)
		th.MustChdir(t, t.TempDir())
		defer th.MustChdir(t, wd)

		got, err := WriteMarkdownExport(sampleSheet(), "")
		if err != nil {
			t.Fatalf("WriteMarkdownExport failed: %v", err)
		}
		if got != "rotation.md" {
			t.Errorf("expected rotation.md, got %q", got)
		}
		th.AssertFileExists(t, got)
	})

	t.Run("WriteTextExport", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "sheet.txt")
		if _, err := WriteTextExport(sampleSheet(), path); err != nil {
			t.Fatalf("WriteTextExport failed: %v", err)
		}
		th.AssertFileExists(t, path)
	})

	t.Run("WriteCSVExport fails on an unwritable path", func(t *testing.T) {
		_, err := WriteCSVExport(sampleSheet(), filepath.Join(t.TempDir(), "missing", "sheet.csv"))
		if err == nil {
			t.Fatal("expected an error for a missing directory")
		}
	})
}
