package services

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/ledongthuc/pdf"
	log "github.com/sirupsen/logrus"

	"github/itish2003/cricketbot/models"
)

// LocalLoader loads text, markdown and PDF files from a directory tree.
type LocalLoader struct {
	root     string
	includes []string
}

func NewLocalLoader(root string, includes []string) (*LocalLoader, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("could not resolve %s: %w", root, err)
	}
	if len(includes) == 0 {
		includes = []string{"**/*"}
	}
	return &LocalLoader{root: abs, includes: includes}, nil
}

// Root returns the absolute directory the loader reads from.
func (l *LocalLoader) Root() string {
	return l.root
}

// Load walks the root and returns one document per supported, included file
// in lexical path order. Files that cannot be read are skipped.
func (l *LocalLoader) Load(ctx context.Context) ([]models.RawDocument, error) {
	var docs []models.RawDocument
	err := filepath.WalkDir(l.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if d.IsDir() || !l.Matches(path) {
			return nil
		}
		doc, err := LoadFile(path)
		if err != nil {
			log.Warnf("LOADER: skipping %s: %v", path, err)
			return nil
		}
		docs = append(docs, doc)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("error walking the path %s: %w", l.root, err)
	}
	log.Printf("LOADER: %d documents loaded from %s.", len(docs), l.root)
	return docs, nil
}

// Matches reports whether path lies under the root, has a supported
// extension, and matches one of the include patterns.
func (l *LocalLoader) Matches(path string) bool {
	if !isSupportedFile(path) {
		return false
	}
	rel, err := filepath.Rel(l.root, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return false
	}
	rel = filepath.ToSlash(rel)
	for _, pattern := range l.includes {
		matched, err := doublestar.Match(pattern, rel)
		if err == nil && matched {
			return true
		}
	}
	return false
}

// LoadFile reads a single file into a RawDocument.
func LoadFile(path string) (models.RawDocument, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return models.RawDocument{}, err
	}
	text, err := ExtractTextFromFile(abs)
	if err != nil {
		return models.RawDocument{}, err
	}
	base := filepath.Base(abs)
	return models.RawDocument{
		Title:     strings.TrimSuffix(base, filepath.Ext(base)),
		Summary:   firstParagraph(text),
		SourceURL: FileSourceURL(abs),
		Content:   text,
	}, nil
}

// FileSourceURL is the source URL recorded for a local file.
func FileSourceURL(absPath string) string {
	return "file://" + filepath.ToSlash(absPath)
}

// ExtractTextFromFile reads a file and returns its text content.
// It automatically handles different file types.
func ExtractTextFromFile(path string) (string, error) {
	ext := strings.ToLower(filepath.Ext(path))

	switch ext {
	case ".txt", ".md":
		content, err := os.ReadFile(path)
		if err != nil {
			return "", err
		}
		return string(content), nil
	case ".pdf":
		return extractTextFromPDF(path)
	default:
		return "", fmt.Errorf("unsupported file type: %s", ext)
	}
}

func extractTextFromPDF(path string) (string, error) {
	f, rdr, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open pdf: %w", err)
	}
	defer f.Close()

	b, err := rdr.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("failed to read pdf text: %w", err)
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, b); err != nil {
		return "", fmt.Errorf("failed to read pdf buffer: %w", err)
	}
	return buf.String(), nil
}

func isSupportedFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".txt", ".md", ".pdf":
		return true
	default:
		return false
	}
}

func firstParagraph(text string) string {
	text = strings.TrimSpace(text)
	if idx := strings.Index(text, "\n\n"); idx >= 0 {
		text = text[:idx]
	}
	return strings.TrimSpace(text)
}
