package remote

import (
	"bufio"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// IgnoreFiles are looked up in this order; the first one found wins.
var IgnoreFiles = []string{".lambda-ai-ignore", ".gitignore"}

// FindIgnoreFile returns the first ignore file present in dir, or "".
func FindIgnoreFile(dir string) string {
	for _, name := range IgnoreFiles {
		p := filepath.Join(dir, name)
		if info, err := os.Stat(p); err == nil && !info.IsDir() {
			return p
		}
	}
	return ""
}

// IgnoreArgs returns the rsync flags that apply an ignore file.
func IgnoreArgs(ignoreFile string) []string {
	if ignoreFile == "" {
		return nil
	}
	return []string{"--exclude-from", ignoreFile}
}

// IgnoreMatcher applies the simple subset of rsync exclude patterns:
// shell globs, matched against the base name or, for patterns holding a
// '/', against the path relative to the sync root. A trailing '/' limits a
// pattern to directories. Negation is not supported and such lines are
// skipped.
type IgnoreMatcher struct {
	patterns []ignorePattern
}

type ignorePattern struct {
	glob     string
	dirOnly  bool
	anchored bool
}

// LoadIgnoreMatcher reads patterns from an ignore file. An empty path
// yields a matcher that matches nothing.
func LoadIgnoreMatcher(ignoreFile string) (*IgnoreMatcher, error) {
	m := &IgnoreMatcher{}
	if ignoreFile == "" {
		return m, nil
	}
	f, err := os.Open(ignoreFile)
	if err != nil {
		return nil, fmt.Errorf("failed to open ignore file: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "!") {
			continue
		}
		p := ignorePattern{}
		if strings.HasSuffix(line, "/") {
			p.dirOnly = true
			line = strings.TrimSuffix(line, "/")
		}
		if strings.Contains(line, "/") {
			p.anchored = true
			line = strings.TrimPrefix(line, "/")
		}
		p.glob = line
		m.patterns = append(m.patterns, p)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read ignore file: %w", err)
	}
	return m, nil
}

// Match reports whether rel (slash separated, relative to the sync root)
// is excluded.
func (m *IgnoreMatcher) Match(rel string, isDir bool) bool {
	if m == nil {
		return false
	}
	rel = filepath.ToSlash(rel)
	base := path.Base(rel)
	for _, p := range m.patterns {
		if p.dirOnly && !isDir {
			continue
		}
		subject := base
		if p.anchored {
			subject = rel
		}
		if ok, _ := path.Match(p.glob, subject); ok {
			return true
		}
	}
	return false
}
