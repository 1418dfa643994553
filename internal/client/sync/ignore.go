package sync

import (
	"bufio"
	"log/slog"
	"os"
	"path/filepath"

	gitignore "github.com/sabhiram/go-gitignore"

	"github.com/wikisync/wikisync/internal/utils"
)

const ignoreFileName = ".wikisyncignore"

var defaultIgnoreLines = []string{
	// wikisync internals
	".wikisync/",
	ignoreFileName,
	"*.conflict",
	// editor droppings
	"*.swp",
	"*.swo",
	"*~",
	".#*",
	"#*#",
	".vscode",
	".idea",
	// VCS
	".git",
	".hg",
	".svn",
	// general excludes
	"*.tmp",
	"*.log",
	// OS-specific
	".DS_Store",
	"Thumbs.db",
}

// IgnoreList filters paths that must never sync, combining built-in defaults
// with an optional .wikisyncignore file in the watch root.
type IgnoreList struct {
	baseDir string
	ignore  *gitignore.GitIgnore
}

func NewIgnoreList(baseDir string) *IgnoreList {
	return &IgnoreList{baseDir: baseDir}
}

func (l *IgnoreList) Load() {
	ignorePath := filepath.Join(l.baseDir, ignoreFileName)
	ignoreLines := defaultIgnoreLines

	if utils.FileExists(ignorePath) {
		file, err := os.Open(ignorePath)
		if err != nil {
			slog.Warn("ignore file open failed", "path", ignorePath, "error", err)
		} else {
			defer file.Close()

			rules := 0
			scanner := bufio.NewScanner(file)
			for scanner.Scan() {
				line := scanner.Text()
				if line != "" {
					ignoreLines = append(ignoreLines, line)
					rules++
				}
			}
			if err := scanner.Err(); err != nil {
				slog.Warn("ignore file read failed", "path", ignorePath, "error", err)
			} else {
				slog.Info("loaded ignore file", "path", ignorePath, "rules", rules)
			}
		}
	}

	l.ignore = gitignore.CompileIgnoreLines(ignoreLines...)
}

func (l *IgnoreList) ShouldIgnore(path string) bool {
	if l.ignore == nil {
		return false
	}
	return l.ignore.MatchesPath(path)
}
