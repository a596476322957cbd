// Package synonym loads a directory of token-replacement tables and
// applies them to free text during place name normalization (spec
// §4.5).
package synonym

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"
	"unicode"
)

// Normalizer holds a token -> canonical replacement table built from a
// directory of ".txt" files.
type Normalizer struct {
	replacements map[string]string
}

// New returns an empty Normalizer; call LoadDir to populate it.
func New() *Normalizer {
	return &Normalizer{replacements: map[string]string{}}
}

// Len reports how many token mappings were loaded.
func (n *Normalizer) Len() int { return len(n.replacements) }

// LoadDir recursively loads every ".txt" file under dir, skipping
// "custom_name.txt" and anything under a "punctuation" directory (spec
// §4.5). A missing directory is not an error: synonym normalization is
// an enrichment, not a hard dependency.
func (n *Normalizer) LoadDir(dir string) error {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return nil
	}

	return filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if filepath.Base(path) == "custom_name.txt" {
			return nil
		}
		if !strings.HasSuffix(path, ".txt") {
			return nil
		}
		for _, part := range strings.Split(filepath.Dir(path), string(filepath.Separator)) {
			if part == "punctuation" {
				return nil
			}
		}
		return n.loadFile(path)
	})
}

func (n *Normalizer) loadFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		n.loadLine(scanner.Text())
	}
	return scanner.Err()
}

func (n *Normalizer) loadLine(raw string) {
	line := raw
	if idx := strings.IndexByte(line, '#'); idx >= 0 {
		line = line[:idx]
	}
	line = strings.ToLower(strings.TrimSpace(line))
	line = collapseWhitespace(line)
	if line == "" {
		return
	}

	if strings.Contains(line, "=>") {
		parts := strings.SplitN(line, "=>", 2)
		if len(parts) != 2 {
			return
		}
		lefts := strings.Split(parts[0], ",")
		rights := strings.Split(parts[1], ",")
		if len(rights) == 0 {
			return
		}
		target := strings.TrimSpace(rights[0])
		if target == "" {
			return
		}
		for _, l := range lefts {
			src := strings.TrimSpace(l)
			if src != "" && src != target {
				n.replacements[src] = target
			}
		}
		return
	}

	parts := strings.Split(line, ",")
	if len(parts) == 0 {
		return
	}
	canon := strings.TrimSpace(parts[0])
	if canon == "" {
		return
	}
	for _, v := range parts[1:] {
		variant := strings.TrimSpace(v)
		if variant != "" && variant != canon {
			n.replacements[variant] = canon
		}
	}
}

func collapseWhitespace(s string) string {
	fields := strings.Fields(s)
	return strings.Join(fields, " ")
}

// Normalize replaces any whitespace-delimited token that matches the
// loaded table with its canonical form; unmatched tokens retain their
// original casing. The table is applied once per token and chained
// mappings are not followed, so a second pass is a no-op only when no
// canonical form is itself listed as a variant on another line.
func (n *Normalizer) Normalize(text string) string {
	tokens := strings.Fields(text)
	out := make([]string, len(tokens))
	for i, tok := range tokens {
		clean := strings.ToLower(strings.TrimFunc(tok, isNotAlphanumeric))
		if replacement, ok := n.replacements[clean]; ok {
			out[i] = replacement
		} else {
			out[i] = tok
		}
	}
	return strings.Join(out, " ")
}

func isNotAlphanumeric(r rune) bool {
	return !unicode.IsLetter(r) && !unicode.IsNumber(r)
}
