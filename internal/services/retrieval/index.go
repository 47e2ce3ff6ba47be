package retrieval

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode/utf8"

	"AstroAI/internal/domain/models"

	"github.com/abadojack/whatlanggo"
	"github.com/gabriel-vasile/mimetype"
)

// IndexConfig controls chunking of the corpus.
type IndexConfig struct {
	ChunkSize    int
	ChunkOverlap int
	MinChars     int
}

// DefaultIndexConfig matches the corpus the interpreter was tuned on.
func DefaultIndexConfig() IndexConfig {
	return IndexConfig{ChunkSize: 1200, ChunkOverlap: 150, MinChars: 20}
}

// BuildChunks walks dir for *.txt files in case-insensitive path order and chunks every text file
// of at least MinChars characters. A missing dir yields no chunks.
func BuildChunks(ctx context.Context, dir string, cfg IndexConfig) ([]models.Chunk, error) {
	files, err := corpusFiles(dir)
	if err != nil {
		return nil, err
	}

	var chunks []models.Chunk
	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read corpus file %s: %w", path, err)
		}
		if !isText(raw) {
			continue
		}
		text := strings.TrimSpace(strings.ToValidUTF8(string(raw), ""))
		if text == "" || utf8.RuneCountInString(text) < cfg.MinChars {
			continue
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return nil, err
		}
		source := filepath.ToSlash(rel)
		lang := detectLang(text)

		for k, piece := range ChunkText(text, cfg.ChunkSize, cfg.ChunkOverlap) {
			tf, norm := TermFrequencies(Tokenize(piece))
			chunks = append(chunks, models.Chunk{
				ID:     fmt.Sprintf("%s:%d", source, k),
				Source: source,
				Text:   piece,
				Lang:   lang,
				TF:     tf,
				Norm:   norm,
			})
		}
	}
	return chunks, nil
}

func corpusFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == dir && os.IsNotExist(err) {
				return filepath.SkipDir
			}
			return err
		}
		if d.Type().IsRegular() && strings.HasSuffix(d.Name(), ".txt") {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk corpus %s: %w", dir, err)
	}
	sort.Slice(files, func(i, j int) bool { return strings.ToLower(files[i]) < strings.ToLower(files[j]) })
	return files, nil
}

// isText rejects files whose content sniffs as binary despite the .txt name.
func isText(raw []byte) bool {
	return strings.HasPrefix(mimetype.Detect(raw).String(), "text/")
}

func detectLang(text string) string {
	info := whatlanggo.Detect(text)
	if !info.IsReliable() {
		return ""
	}
	return info.Lang.Iso6391()
}
