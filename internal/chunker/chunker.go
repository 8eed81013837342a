package chunker

// #region imports
import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
)

// #endregion

// #region config
// Config controls how source text is split into chunks.
type Config struct {
	MinLines int // split by line when at least this many non-empty lines exist
	Size     int // window size in runes
	Overlap  int // runes shared between consecutive windows
}

// DefaultConfig matches the knowledge-base layout: one fact per line, or
// 400-rune windows overlapping by 50.
func DefaultConfig() Config {
	return Config{MinLines: 3, Size: 400, Overlap: 50}
}

// #endregion config

// #region split

// Split turns source text into chunk texts.
func Split(text string, cfg Config) []string {
	var lines []string
	for _, l := range strings.Split(text, "\n") {
		if l = strings.TrimSpace(l); l != "" {
			lines = append(lines, l)
		}
	}
	if len(lines) >= cfg.MinLines {
		return lines
	}
	return window(text, cfg.Size, cfg.Overlap)
}

// window emits fixed-size rune windows. Each window starts overlap runes
// before the previous end.
func window(text string, size, overlap int) []string {
	runes := []rune(text)
	if size <= 0 {
		return nil
	}
	if overlap >= size {
		overlap = size - 1
	}
	var chunks []string
	start := 0
	for start < len(runes) {
		end := min(start+size, len(runes))
		if c := strings.TrimSpace(string(runes[start:end])); c != "" {
			chunks = append(chunks, c)
		}
		if end == len(runes) {
			break
		}
		start = max(end-overlap, 0)
	}
	return chunks
}

// #endregion split

// #region read

// ReadSource loads plain text from a .txt/.md file or extracts it from a .pdf.
func ReadSource(path string) (string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		return readPDF(path)
	default:
		data, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("read source: %w", err)
		}
		return string(data), nil
	}
}

func readPDF(path string) (string, error) {
	f, rdr, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()

	b, err := rdr.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("pdf text: %w", err)
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, b); err != nil {
		return "", fmt.Errorf("pdf buffer: %w", err)
	}
	if buf.Len() == 0 {
		return "", fmt.Errorf("no text extracted from %s", path)
	}
	return buf.String(), nil
}

// #endregion read
