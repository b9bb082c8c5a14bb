// package formatter provides functions to export a playlist analysis to various formats (CSV, Markdown, plain text)
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"os"
	"sort"
	"strconv"
	"time"

	"github.com/desertthunder/mixstats/internal/shared"
	"github.com/desertthunder/mixstats/internal/tasks"
)

// ExportToCSV converts an analysis's top tracks to CSV with columns: Rank, ID, Title, Artists, Popularity
func ExportToCSV(result *tasks.AnalysisResult) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"Rank", "ID", "Title", "Artists", "Popularity"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for i, track := range result.Analysis.TopTracks {
		record := []string{
			strconv.Itoa(i + 1),
			track.ID,
			track.Name,
			track.Artists,
			strconv.Itoa(track.Popularity),
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ExportToMarkdown converts an analysis to a Markdown report with optional cover image
func ExportToMarkdown(result *tasks.AnalysisResult, imageFilename string) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("# %s\n\n", result.Playlist.Name))

	if imageFilename != "" {
		buf.WriteString(fmt.Sprintf("![Cover](%s)\n\n", imageFilename))
	}

	if result.Playlist.Owner != "" {
		buf.WriteString(fmt.Sprintf("**Owner**: %s\n", result.Playlist.Owner))
	}
	buf.WriteString(fmt.Sprintf("**Tracks**: %d\n", result.Playlist.TotalTracks))
	buf.WriteString(fmt.Sprintf("**Duration**: %s\n\n", result.Playlist.DurationHuman))

	if len(result.Analysis.AvgFeatures) > 0 {
		buf.WriteString("## Audio Profile\n\n")
		buf.WriteString(fmt.Sprintf("Averaged over %d tracks with feature data.\n\n", result.Analysis.FeaturesCount))
		buf.WriteString("| Feature | Average |\n|---|---|\n")
		for _, name := range featureOrder(result.Analysis.AvgFeatures) {
			buf.WriteString(fmt.Sprintf("| %s | %s |\n", name, strconv.FormatFloat(result.Analysis.AvgFeatures[name], 'f', -1, 64)))
		}
		buf.WriteString("\n")
	}

	if len(result.Analysis.TopArtists) > 0 {
		buf.WriteString("## Top Artists\n\n")
		for i, artist := range result.Analysis.TopArtists {
			buf.WriteString(fmt.Sprintf("%d. %s (%d tracks)\n", i+1, artist.Name, artist.Count))
		}
		buf.WriteString("\n")
	}

	if len(result.Analysis.TopTracks) > 0 {
		buf.WriteString("## Top Tracks\n\n")
		for i, track := range result.Analysis.TopTracks {
			buf.WriteString(fmt.Sprintf("%d. %s - %s (popularity %d)\n", i+1, track.Artists, track.Name, track.Popularity))
		}
		buf.WriteString("\n")
	}

	if len(result.Analysis.TopGenres) > 0 {
		buf.WriteString("## Top Genres\n\n")
		for i, genre := range result.Analysis.TopGenres {
			buf.WriteString(fmt.Sprintf("%d. %s (%d artists)\n", i+1, genre.Genre, genre.Count))
		}
	}

	return buf.Bytes(), nil
}

// ExportToText converts an analysis to plain text format
func ExportToText(result *tasks.AnalysisResult) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("Playlist: %s\n", result.Playlist.Name))
	if result.Playlist.Owner != "" {
		buf.WriteString(fmt.Sprintf("Owner: %s\n", result.Playlist.Owner))
	}
	buf.WriteString(fmt.Sprintf("Tracks: %d\n", result.Playlist.TotalTracks))
	buf.WriteString(fmt.Sprintf("Duration: %s\n\n", result.Playlist.DurationHuman))

	for i, track := range result.Analysis.TopTracks {
		buf.WriteString(fmt.Sprintf("%d. %s - %s\n", i+1, track.Artists, track.Name))
	}

	return buf.Bytes(), nil
}

// featureOrder returns feature names sorted for stable report output
func featureOrder(features map[string]float64) []string {
	names := make([]string, 0, len(features))
	for name := range features {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DownloadImage downloads an image from the given URL and returns the raw bytes
func DownloadImage(url string) ([]byte, error) {
	if url == "" {
		return nil, fmt.Errorf("empty URL provided")
	}

	client := &http.Client{
		Timeout: 30 * time.Second,
	}

	resp, err := client.Get(url)
	if err != nil {
		return nil, fmt.Errorf("failed to download image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to download image: status %d", resp.StatusCode)
	}

	imageData, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read image data: %w", err)
	}

	return imageData, nil
}

// ToResultJSON generates a pretty-printed JSON representation of the analysis
func ToResultJSON(result *tasks.AnalysisResult) ([]byte, error) {
	return shared.MarshalJSON(result, true)
}

// CSVExportResult contains the paths of files created by WriteCSVExport
type CSVExportResult struct {
	TracksFile   string
	AnalysisFile string
}

// WriteCSVExport exports an analysis to CSV with an accompanying JSON document.
//
// Defaults to the playlist ID as the base filename & creates {base}_top_tracks.csv and {base}_analysis.json
func WriteCSVExport(result *tasks.AnalysisResult, baseFilepath string) (*CSVExportResult, error) {
	if baseFilepath == "" {
		baseFilepath = result.Playlist.ID
	}

	csvData, err := ExportToCSV(result)
	if err != nil {
		return nil, fmt.Errorf("failed to generate CSV: %w", err)
	}

	tracksFile := baseFilepath + "_top_tracks.csv"
	if err := os.WriteFile(tracksFile, csvData, 0644); err != nil {
		return nil, fmt.Errorf("failed to write CSV file: %w", err)
	}

	analysisJSON, err := ToResultJSON(result)
	if err != nil {
		return nil, fmt.Errorf("failed to generate analysis JSON: %w", err)
	}

	analysisFile := baseFilepath + "_analysis.json"
	if err := os.WriteFile(analysisFile, analysisJSON, 0644); err != nil {
		return nil, fmt.Errorf("failed to write analysis file: %w", err)
	}

	return &CSVExportResult{
		TracksFile:   tracksFile,
		AnalysisFile: analysisFile,
	}, nil
}

// MarkdownExportResult contains information about files created by WriteMarkdownExport
type MarkdownExportResult struct {
	Directory  string
	Files      []string
	CoverImage string
}

// WriteMarkdownExport exports an analysis report to Markdown in a dedicated directory.
//
// Directory name defaults to the playlist ID.
// When the analysis carries a cover image URL, the image is downloaded next to the report.
// Creates a directory structure: {dir}/README.md and optionally {dir}/cover.jpg
func WriteMarkdownExport(result *tasks.AnalysisResult, outputDir string) (*MarkdownExportResult, error) {
	if outputDir == "" {
		outputDir = result.Playlist.ID
	}

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	exportResult := &MarkdownExportResult{
		Directory: outputDir,
		Files:     []string{},
	}

	var coverImageFilename string
	if result.Playlist.Image != nil && *result.Playlist.Image != "" {
		imageData, err := DownloadImage(*result.Playlist.Image)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to download cover image: %v\n", err)
		} else {
			coverImageFilename = "cover.jpg"
			coverImagePath := fmt.Sprintf("%s/%s", outputDir, coverImageFilename)
			if err := os.WriteFile(coverImagePath, imageData, 0644); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: failed to save cover image: %v\n", err)
				coverImageFilename = ""
			} else {
				exportResult.CoverImage = coverImagePath
				exportResult.Files = append(exportResult.Files, coverImagePath)
			}
		}
	}

	mdData, err := ExportToMarkdown(result, coverImageFilename)
	if err != nil {
		return nil, fmt.Errorf("failed to generate Markdown: %w", err)
	}

	mdFile := fmt.Sprintf("%s/README.md", outputDir)
	if err := os.WriteFile(mdFile, mdData, 0644); err != nil {
		return nil, fmt.Errorf("failed to write Markdown file: %w", err)
	}
	exportResult.Files = append(exportResult.Files, mdFile)

	return exportResult, nil
}
