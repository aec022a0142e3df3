package corpus

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/xhad/tradeqa/internal/types"
)

// ErrUnresolved is returned when a locator does not resolve to text.
var ErrUnresolved = errors.New("corpus: document locator did not resolve")

// FileExtractor reads PDFs with ledongthuc/pdf and anything else as plain
// UTF-8 text.
type FileExtractor struct{}

var _ types.TextExtractor = FileExtractor{}

func (FileExtractor) ExtractText(ctx context.Context, locator string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	info, err := os.Stat(locator)
	if err != nil || info.IsDir() {
		return "", fmt.Errorf("%w: %s", ErrUnresolved, locator)
	}

	var text string
	if strings.EqualFold(filepath.Ext(locator), ".pdf") {
		text, err = readPDF(locator)
	} else {
		var raw []byte
		raw, err = os.ReadFile(locator)
		text = string(raw)
	}
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", locator, err)
	}

	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("%w: %s has no extractable text", ErrUnresolved, locator)
	}
	return text, nil
}

func readPDF(path string) (string, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	plain, err := r.GetPlainText()
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(plain); err != nil {
		return "", err
	}
	return buf.String(), nil
}
