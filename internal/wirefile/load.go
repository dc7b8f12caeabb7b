package wirefile

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"wireweaver/internal/circuit"
)

// Load reads a single wire-definition file and builds a Circuit from it.
func Load(path string) (*circuit.Circuit, error) {
	defs, err := loadDefinitions(path)
	if err != nil {
		return nil, err
	}
	return circuit.New(defs)
}

// LoadGlobs builds a Circuit from every file matched by the given patterns.
//
// Circuits may be split across fragment files; the expansion is
// deterministic:
//   - Relative patterns are resolved under baseDir.
//   - Expanded paths are normalized, de-duplicated, and strictly sorted.
//   - A pattern with no glob characters is treated as a literal path.
//
// A wire defined in more than one fragment is a construction error.
func LoadGlobs(baseDir string, patterns []string) (*circuit.Circuit, error) {
	if len(patterns) == 0 {
		return nil, fmt.Errorf("no circuit files given")
	}

	pathSet := make(map[string]struct{})
	for _, pattern := range patterns {
		expanded, err := expandPattern(baseDir, pattern)
		if err != nil {
			return nil, fmt.Errorf("expanding pattern %q: %w", pattern, err)
		}
		if len(expanded) == 0 {
			return nil, fmt.Errorf("pattern %q matched no files", pattern)
		}
		for _, p := range expanded {
			pathSet[p] = struct{}{}
		}
	}

	// Must sort explicitly, do not rely on OS directory ordering.
	paths := make([]string, 0, len(pathSet))
	for p := range pathSet {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	var defs []circuit.Definition
	for _, path := range paths {
		fileDefs, err := loadDefinitions(filepath.FromSlash(path))
		if err != nil {
			return nil, err
		}
		defs = append(defs, fileDefs...)
	}
	return circuit.New(defs)
}

func loadDefinitions(path string) ([]circuit.Definition, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("read circuit file: %w", err)
	}
	defer f.Close()

	defs, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return defs, nil
}

// expandPattern expands a single glob pattern into normalized file paths.
// If the pattern contains no glob characters, it is treated as a literal path.
func expandPattern(baseDir, pattern string) ([]string, error) {
	fullPattern := pattern
	if !filepath.IsAbs(pattern) && baseDir != "" {
		fullPattern = filepath.Join(baseDir, pattern)
	}

	matches, err := filepath.Glob(fullPattern)
	if err != nil {
		return nil, fmt.Errorf("invalid glob pattern: %w", err)
	}

	if len(matches) == 0 && !containsGlobChar(pattern) {
		if _, err := os.Stat(fullPattern); err == nil {
			matches = []string{fullPattern}
		}
	}

	normalized := make([]string, 0, len(matches))
	for _, match := range matches {
		info, err := os.Stat(match)
		if err != nil {
			return nil, fmt.Errorf("stat %q: %w", match, err)
		}
		if info.IsDir() {
			continue
		}
		normalized = append(normalized, filepath.ToSlash(match))
	}
	return normalized, nil
}

func containsGlobChar(pattern string) bool {
	return strings.ContainsAny(pattern, "*?[]")
}
