package moderation

import (
	"bufio"
	"bytes"
	"embed"
	"io/fs"
	"messenger/errors"
	"path"
	"sort"
	"strings"
)

//go:embed censored/*.txt
var censoredFS embed.FS

// CensoredData carries the loaded words and the languages they come from.
type CensoredData struct {
	Words     []string
	Languages []string
}

// LoadCensoredWords reads one word per line from every censored/<lang>.txt file.
func LoadCensoredWords() (*CensoredData, error) {
	return loadAll(censoredFS, "censored")
}

func loadAll(fsys fs.FS, dir string) (*CensoredData, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, err
	}

	var languages []string
	uniqueWords := make(map[string]struct{})

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		languages = append(languages, strings.TrimSuffix(entry.Name(), ".txt"))

		data, err := fs.ReadFile(fsys, path.Join(dir, entry.Name()))
		if err != nil {
			return nil, err
		}

		// Scanner handles both \n and \r\n
		scanner := bufio.NewScanner(bytes.NewReader(data))
		for scanner.Scan() {
			if line := strings.TrimSpace(scanner.Text()); line != "" {
				uniqueWords[line] = struct{}{}
			}
		}
		if err := scanner.Err(); err != nil {
			return nil, err
		}
	}

	if len(uniqueWords) == 0 {
		return nil, errors.ErrEmptyWords
	}

	words := make([]string, 0, len(uniqueWords))
	for w := range uniqueWords {
		words = append(words, w)
	}
	sort.Strings(words)

	return &CensoredData{Words: words, Languages: languages}, nil
}
