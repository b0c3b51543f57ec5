package identity

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/ini.v1"

	"memhub/app/config"
)

// Detect derives the scope identifier used to isolate one project's
// memories from another's. Order: explicit group_id setting, git remote
// name, base name of the working directory. It never fails: the directory
// name is always available.
func Detect(cfg *config.Config, dir string) string {
	if cfg.Memory.GroupID != config.GroupAuto {
		return cfg.Memory.GroupID
	}

	if name, ok := gitRemoteName(dir); ok {
		slog.Debug("Detected scope from git remote", "group_id", name)
		return name
	}

	return filepath.Base(dir)
}

// gitRemoteName reads the origin remote URL out of the repository's
// .git/config and returns its final path segment with a trailing ".git"
// stripped.
func gitRemoteName(dir string) (string, bool) {
	gitDir, ok := findGitDir(dir)
	if !ok {
		return "", false
	}

	gitConfig, err := ini.Load(filepath.Join(gitDir, "config"))
	if err != nil {
		return "", false
	}

	section, err := gitConfig.GetSection(`remote "origin"`)
	if err != nil {
		return "", false
	}

	url := strings.TrimSpace(section.Key("url").String())
	if url == "" {
		return "", false
	}

	return repoNameFromURL(url), true
}

// repoNameFromURL handles both https://host/org/repo.git and
// git@host:org/repo.git remote forms.
func repoNameFromURL(url string) string {
	url = strings.TrimSuffix(url, "/")

	name := url
	if idx := strings.LastIndexAny(url, "/:"); idx >= 0 {
		name = url[idx+1:]
	}

	return strings.TrimSuffix(name, ".git")
}

func findGitDir(dir string) (string, bool) {
	current := dir

	for {
		candidate := filepath.Join(current, ".git")
		if info, err := os.Stat(candidate); err == nil && info.IsDir() {
			return candidate, true
		}

		parent := filepath.Dir(current)
		if parent == current {
			return "", false
		}
		current = parent
	}
}
