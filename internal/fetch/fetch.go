package fetch

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"github.com/blackwell-systems/pinbuild/internal/integrity"
	"github.com/blackwell-systems/pinbuild/internal/manifest"
)

// Fetcher downloads and extracts pinned source trees.
type Fetcher struct {
	client *http.Client
	quiet  bool
}

// New creates a Fetcher with the default secure HTTP client.
func New() *Fetcher {
	return &Fetcher{client: newSecureClient()}
}

// SetQuiet disables the download progress bar.
func (f *Fetcher) SetQuiet(quiet bool) {
	f.quiet = quiet
}

// SetClient overrides the HTTP client (used by tests).
func (f *Fetcher) SetClient(c *http.Client) {
	f.client = c
}

// Source fetches the pinned source archive for m, extracts it into
// destDir/src, and returns the extracted directory together with its
// computed tree hash. The top-level vendor directory, if the upstream ships
// one, is excluded from the hash so the source hash is independent of
// vendoring.
//
// Source does not compare against the declared hash; callers decide whether
// to verify (build) or print (authoring).
func (f *Fetcher) Source(ctx context.Context, m *manifest.Manifest, destDir string) (string, integrity.Hash, error) {
	url, format, err := m.Ref().ArchiveURL()
	if err != nil {
		return "", integrity.Hash{}, err
	}

	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return "", integrity.Hash{}, fmt.Errorf("cannot create work directory %s: %w", destDir, err)
	}

	desc := fmt.Sprintf("fetching %s@%s", m.Ref().Slug(), m.Source.Rev)
	archivePath, err := f.download(ctx, url, destDir, desc)
	if err != nil {
		return "", integrity.Hash{}, err
	}
	defer os.Remove(archivePath)

	srcDir := filepath.Join(destDir, "src")
	if err := os.RemoveAll(srcDir); err != nil {
		return "", integrity.Hash{}, fmt.Errorf("cannot clear %s: %w", srcDir, err)
	}
	if err := os.MkdirAll(srcDir, 0o755); err != nil {
		return "", integrity.Hash{}, fmt.Errorf("cannot create %s: %w", srcDir, err)
	}
	if err := extractArchive(archivePath, format, srcDir); err != nil {
		return "", integrity.Hash{}, fmt.Errorf("cannot extract %s: %w", url, err)
	}

	got, err := integrity.TreeHash(srcDir, "vendor")
	if err != nil {
		return "", integrity.Hash{}, fmt.Errorf("cannot hash source tree: %w", err)
	}
	return srcDir, got, nil
}

// VerifiedSource fetches the source and fails closed unless the computed
// tree hash matches the manifest's declared source hash.
func (f *Fetcher) VerifiedSource(ctx context.Context, m *manifest.Manifest, destDir string) (string, error) {
	srcDir, got, err := f.Source(ctx, m, destDir)
	if err != nil {
		return "", err
	}
	want, err := m.SourceHash()
	if err != nil {
		return "", err
	}
	if err := integrity.Verify("source", m.Name, want, got); err != nil {
		return "", err
	}
	return srcDir, nil
}
