package workspace

import (
	"os"
	"path/filepath"

	"github.com/go-git/go-git/v5"
)

// DetectProjectRoot picks the project boundary for clean operations: explicit
// wins, then the enclosing git work tree of modulePath, then the working directory.
func DetectProjectRoot(explicit, modulePath string) string {
	if explicit != "" {
		return explicit
	}
	if root, ok := gitWorkTree(modulePath); ok {
		return root
	}
	wd, err := os.Getwd()
	if err != nil {
		return "."
	}
	return wd
}

// SourceRevision returns the HEAD commit of the repository enclosing path.
func SourceRevision(path string) (string, bool) {
	repo, err := openEnclosing(path)
	if err != nil {
		return "", false
	}
	head, err := repo.Head()
	if err != nil {
		return "", false
	}
	return head.Hash().String(), true
}

func gitWorkTree(path string) (string, bool) {
	repo, err := openEnclosing(path)
	if err != nil {
		return "", false
	}
	wt, err := repo.Worktree()
	if err != nil {
		return "", false
	}
	return wt.Filesystem.Root(), true
}

func openEnclosing(path string) (*git.Repository, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	return git.PlainOpenWithOptions(abs, &git.PlainOpenOptions{DetectDotGit: true})
}
