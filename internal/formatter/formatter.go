// package formatter provides functions to export the rotation sheet to various formats (CSV, Markdown, plain text)
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/zalun/karaoke-engine/internal/models"
	"github.com/zalun/karaoke-engine/internal/shared"
)

// RotationSheet is a printable snapshot of the session: what is playing now
// and who sings next, in queue order.
type RotationSheet struct {
	Title       string
	NowPlaying  *models.PlaybackItem
	Queue       []models.PlaybackItem
	GeneratedAt time.Time
}

// NewRotationSheet builds a sheet from the live transport state and queue.
func NewRotationSheet(title string, state models.TransportState, queued []models.PlaybackItem) *RotationSheet {
	return &RotationSheet{
		Title:       title,
		NowPlaying:  state.CurrentItem,
		Queue:       queued,
		GeneratedAt: time.Now(),
	}
}

// ExportToCSV converts a RotationSheet to CSV format with columns: Position, ID, Title, Artist, Origin, Duration
func ExportToCSV(sheet *RotationSheet) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"Position", "ID", "Title", "Artist", "Origin", "Duration"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	write := func(pos string, item models.PlaybackItem) error {
		return writer.Write([]string{
			pos,
			item.ID,
			item.Title,
			item.Artist,
			item.Origin.String(),
			strconv.FormatFloat(item.DurationHint, 'f', -1, 64),
		})
	}

	if sheet.NowPlaying != nil {
		if err := write("now", *sheet.NowPlaying); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}
	for i, item := range sheet.Queue {
		if err := write(strconv.Itoa(i+1), item); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ExportToMarkdown converts a RotationSheet to Markdown format
func ExportToMarkdown(sheet *RotationSheet) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("# %s\n\n", sheet.Title))
	buf.WriteString(fmt.Sprintf("**Generated**: %s\n", sheet.GeneratedAt.Format(time.RFC1123)))
	buf.WriteString(fmt.Sprintf("**Queued**: %d\n\n", len(sheet.Queue)))

	if sheet.NowPlaying != nil {
		buf.WriteString(fmt.Sprintf("**Now playing**: %s%s\n\n", sheet.NowPlaying.Title, artistPart(*sheet.NowPlaying)))
	}

	buf.WriteString("## Up next\n\n")
	if len(sheet.Queue) == 0 {
		buf.WriteString("The queue is empty.\n")
	}
	for i, item := range sheet.Queue {
		buf.WriteString(fmt.Sprintf("%d. %s%s%s\n", i+1, item.Title, artistPart(item), durationPart(item)))
	}

	return buf.Bytes(), nil
}

// ExportToText converts a RotationSheet to plain text format
func ExportToText(sheet *RotationSheet) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("Rotation: %s\n", sheet.Title))
	if sheet.NowPlaying != nil {
		buf.WriteString(fmt.Sprintf("Now playing: %s%s\n", sheet.NowPlaying.Title, artistPart(*sheet.NowPlaying)))
	}
	buf.WriteString(fmt.Sprintf("Queued: %d\n\n", len(sheet.Queue)))

	for i, item := range sheet.Queue {
		buf.WriteString(fmt.Sprintf("%d. %s%s\n", i+1, item.Title, artistPart(item)))
	}

	return buf.Bytes(), nil
}

func artistPart(item models.PlaybackItem) string {
	if item.Artist == "" {
		return ""
	}
	return fmt.Sprintf(" - %s", item.Artist)
}

func durationPart(item models.PlaybackItem) string {
	if item.DurationHint <= 0 {
		return ""
	}
	return fmt.Sprintf(" [%s]", shared.FormatClock(item.DurationHint))
}

// WriteCSVExport exports a rotation sheet to a CSV file.
//
// Defaults to rotation.csv as the filename.
func WriteCSVExport(sheet *RotationSheet, filepath string) (string, error) {
	if filepath == "" {
		filepath = "rotation.csv"
	}

	csvData, err := ExportToCSV(sheet)
	if err != nil {
		return "", fmt.Errorf("failed to generate CSV: %w", err)
	}

	if err := os.WriteFile(filepath, csvData, 0644); err != nil {
		return "", fmt.Errorf("failed to write CSV file: %w", err)
	}

	return filepath, nil
}

// WriteMarkdownExport exports a rotation sheet to a Markdown file.
//
// Defaults to rotation.md as the filename.
func WriteMarkdownExport(sheet *RotationSheet, filepath string) (string, error) {
	if filepath == "" {
		filepath = "rotation.md"
	}

	mdData, err := ExportToMarkdown(sheet)
	if err != nil {
		return "", fmt.Errorf("failed to generate Markdown: %w", err)
	}

	if err := os.WriteFile(filepath, mdData, 0644); err != nil {
		return "", fmt.Errorf("failed to write Markdown file: %w", err)
	}

	return filepath, nil
}

// WriteTextExport exports a rotation sheet to plain text format.
//
// Defaults to rotation.txt as the filename.
func WriteTextExport(sheet *RotationSheet, filepath string) (string, error) {
	if filepath == "" {
		filepath = "rotation.txt"
	}

	textData, err := ExportToText(sheet)
	if err != nil {
		return "", fmt.Errorf("failed to generate text: %w", err)
	}

	if err := os.WriteFile(filepath, textData, 0644); err != nil {
		return "", fmt.Errorf("failed to write text file: %w", err)
	}

	return filepath, nil
}
