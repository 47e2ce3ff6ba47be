package retrieval

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"AstroAI/internal/domain/models"
)

// PlacementFinder reads curated "<body> in <sign>" texts from
// <corpus>/placements/<body>/<body>_in_<sign>.txt, falling back to the .corpus.txt variant.
type PlacementFinder struct {
	dir string
}

func NewPlacementFinder(corpusDir string) *PlacementFinder {
	return &PlacementFinder{dir: filepath.Join(corpusDir, "placements")}
}

// Find returns the placement text for a folder key such as "sun" or "true_node" and a sign.
// Missing or blank files report false.
func (f *PlacementFinder) Find(body, sign string) (models.Passage, bool, error) {
	if body == "" || sign == "" {
		return models.Passage{}, false, nil
	}
	b, s := strings.ToLower(body), strings.ToLower(sign)
	name := fmt.Sprintf("%s_in_%s", b, s)
	for _, candidate := range []string{name + ".txt", name + ".corpus.txt"} {
		raw, err := os.ReadFile(filepath.Join(f.dir, b, candidate))
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return models.Passage{}, false, fmt.Errorf("read placement %s: %w", candidate, err)
		}
		text := strings.TrimSpace(strings.ToValidUTF8(string(raw), ""))
		if text == "" {
			continue
		}
		return models.Passage{
			ID:     "forced:" + name,
			Source: fmt.Sprintf("FORCED | placements/%s/%s.txt", b, name),
			Text:   text,
		}, true, nil
	}
	return models.Passage{}, false, nil
}
