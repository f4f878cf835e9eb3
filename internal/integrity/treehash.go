package integrity

import (
	"crypto/sha256"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// TreeHash computes a canonical hash over a directory tree. The serialization
// covers, for every entry in sorted relative-path order: the path, the entry
// kind (dir, file, exec, link), the symlink target for links, and the byte
// content for files. Timestamps, ownership, and non-executable mode bits are
// deliberately excluded so the hash is stable across checkouts.
//
// exclude lists top-level entry names to skip (e.g. "vendor" so that the
// source hash does not change when dependencies are vendored in place).
func TreeHash(root string, exclude ...string) (Hash, error) {
	skip := make(map[string]bool, len(exclude))
	for _, name := range exclude {
		skip[name] = true
	}

	var paths []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path == root {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		if skip[rel] {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		paths = append(paths, rel)
		return nil
	})
	if err != nil {
		return Hash{}, fmt.Errorf("cannot walk %s: %w", root, err)
	}

	// WalkDir is lexical per directory but not across the whole tree in the
	// byte order we want; sort on the slash form for platform independence.
	sort.Slice(paths, func(i, j int) bool {
		return filepath.ToSlash(paths[i]) < filepath.ToSlash(paths[j])
	})

	hasher := sha256.New()
	for _, rel := range paths {
		full := filepath.Join(root, rel)
		info, err := os.Lstat(full)
		if err != nil {
			return Hash{}, fmt.Errorf("cannot stat %s: %w", full, err)
		}

		kind, target, err := entryKind(full, info)
		if err != nil {
			return Hash{}, err
		}

		fmt.Fprintf(hasher, "%s\x00%s\x00", filepath.ToSlash(rel), kind)
		switch kind {
		case "link":
			fmt.Fprintf(hasher, "%s\x00", target)
		case "file", "exec":
			fmt.Fprintf(hasher, "%d\x00", info.Size())
			f, err := os.Open(full)
			if err != nil {
				return Hash{}, fmt.Errorf("cannot open %s: %w", full, err)
			}
			_, err = io.Copy(hasher, f)
			f.Close()
			if err != nil {
				return Hash{}, fmt.Errorf("cannot hash %s: %w", full, err)
			}
		}
	}

	var sum [sha256.Size]byte
	copy(sum[:], hasher.Sum(nil))
	return FromSum(sum), nil
}

// entryKind classifies a tree entry for canonical serialization.
func entryKind(path string, info fs.FileInfo) (kind, linkTarget string, err error) {
	mode := info.Mode()
	switch {
	case mode.IsDir():
		return "dir", "", nil
	case mode&fs.ModeSymlink != 0:
		target, err := os.Readlink(path)
		if err != nil {
			return "", "", fmt.Errorf("cannot read symlink %s: %w", path, err)
		}
		// Normalize separators so the hash matches across platforms.
		return "link", strings.ReplaceAll(target, string(os.PathSeparator), "/"), nil
	case mode.IsRegular():
		if mode&0o111 != 0 {
			return "exec", "", nil
		}
		return "file", "", nil
	default:
		return "", "", fmt.Errorf("unsupported file type %s in source tree: %s", mode, path)
	}
}
