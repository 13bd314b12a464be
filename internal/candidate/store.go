package candidate

import (
	"os"
	"sort"
	"strings"
)

// Load reads a candidate list file. Lines are trimmed; blank lines and
// lines starting with '#' are skipped, and lines that fail to parse are
// dropped silently so a stale list never aborts a run.
func Load(path string) ([]Candidate, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var candidates []Candidate
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		c, err := Parse(line)
		if err != nil {
			continue
		}
		candidates = append(candidates, c)
	}

	return candidates, nil
}

// Dedupe removes exact duplicates, keeping the first occurrence.
func Dedupe(candidates []Candidate) []Candidate {
	seen := make(map[Candidate]struct{}, len(candidates))
	unique := candidates[:0:0]
	for _, c := range candidates {
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		unique = append(unique, c)
	}
	return unique
}

// Sort orders candidates lexicographically on their canonical string.
func Sort(candidates []Candidate) {
	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].String() < candidates[j].String()
	})
}

// Clean rewrites the list file as the deduplicated, sorted set of its
// parseable entries. It returns how many entries were loaded and how many
// distinct ones were written back.
func Clean(path string) (loaded, unique int, err error) {
	candidates, err := Load(path)
	if err != nil {
		return 0, 0, err
	}
	loaded = len(candidates)

	candidates = Dedupe(candidates)
	Sort(candidates)
	unique = len(candidates)

	lines := make([]string, 0, len(candidates))
	for _, c := range candidates {
		lines = append(lines, c.String())
	}
	return loaded, unique, WriteLines(path, lines)
}

// WriteLines writes one entry per line, matching the list file format.
func WriteLines(path string, lines []string) error {
	return os.WriteFile(path, []byte(strings.Join(lines, "\n")), 0644)
}
