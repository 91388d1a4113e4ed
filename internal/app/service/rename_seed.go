package service

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"judge_mirror/internal/domain/model"
)

// LoadRenameSeed reads rename edges from path, one "old new" pair per line.
// Blank lines and lines starting with # are ignored.
func LoadRenameSeed(path string) ([]model.Rename, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open rename seed: %w", err)
	}
	defer f.Close()
	return ParseRenameSeed(f)
}

func ParseRenameSeed(r io.Reader) ([]model.Rename, error) {
	var seeds []model.Rename
	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		fields := strings.Fields(text)
		if len(fields) != 2 {
			return nil, fmt.Errorf("rename seed line %d: want \"old new\", got %q", line, text)
		}
		seeds = append(seeds, model.Rename{From: fields[0], To: fields[1]})
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("failed to read rename seed: %w", err)
	}
	return seeds, nil
}
