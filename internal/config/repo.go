package config

import (
	"path"
	"strings"

	"github.com/go-git/go-git/v5"
)

// DetectRepoName derives the repository name from the "origin" remote of the
// git repository containing root, or returns DefaultRepoName.
func DetectRepoName(root string) string {
	repo, err := git.PlainOpenWithOptions(root, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return DefaultRepoName
	}
	remote, err := repo.Remote("origin")
	if err != nil {
		return DefaultRepoName
	}
	urls := remote.Config().URLs
	if len(urls) == 0 {
		return DefaultRepoName
	}
	if name := RepoNameFromURL(urls[0]); name != "" {
		return name
	}
	return DefaultRepoName
}

// RepoNameFromURL returns the last path segment of a git remote URL without
// its .git suffix. Both URL and scp-like ("git@host:owner/repo.git") forms
// are accepted.
func RepoNameFromURL(url string) string {
	u := strings.TrimRight(strings.TrimSpace(url), "/")
	if u == "" {
		return ""
	}
	u = strings.ReplaceAll(u, ":", "/")
	return strings.TrimSuffix(path.Base(u), ".git")
}
