package fetch

import (
	"archive/tar"
	"context"
	"crypto/sha256"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"testing"

	"github.com/blackwell-systems/pinbuild/internal/integrity"
	"github.com/blackwell-systems/pinbuild/internal/manifest"
)

// rewriteTransport sends every request to the test server regardless of the
// host the forge layer put in the URL.
type rewriteTransport struct {
	target *url.URL
}

func (rt rewriteTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req.URL.Scheme = rt.target.Scheme
	req.URL.Host = rt.target.Host
	return http.DefaultTransport.RoundTrip(req)
}

// newTestFetcher returns a quiet Fetcher wired to the given test server.
func newTestFetcher(t *testing.T, srv *httptest.Server) *Fetcher {
	t.Helper()
	target, err := url.Parse(srv.URL)
	if err != nil {
		t.Fatalf("url.Parse failed: %v", err)
	}
	f := New()
	f.SetQuiet(true)
	f.SetClient(&http.Client{Transport: rewriteTransport{target: target}})
	return f
}

// testManifest returns a manifest pinned to the archive the test server
// serves.
func testManifest(t *testing.T) *manifest.Manifest {
	t.Helper()
	m, err := manifest.Parse([]byte(`
name: mytool
version: 1.0.0
source:
  forge: github
  owner: me
  repo: mytool
  rev: v1.0.0
`))
	if err != nil {
		t.Fatalf("manifest.Parse failed: %v", err)
	}
	return m
}

// serveArchive returns a test server that serves the given tarball for every
// request.
func serveArchive(t *testing.T, data []byte) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(data)
	}))
	t.Cleanup(srv.Close)
	return srv
}

// TestSource_FetchesAndHashes verifies the fetch → extract → hash flow.
func TestSource_FetchesAndHashes(t *testing.T) {
	data := buildTarGz(t, []tarEntry{
		{name: "mytool-1.0.0/", typeflag: tar.TypeDir, mode: 0755},
		{name: "mytool-1.0.0/go.mod", content: "module example.com/mytool\n"},
		{name: "mytool-1.0.0/main.go", content: "package main\n"},
	})
	srv := serveArchive(t, data)
	f := newTestFetcher(t, srv)
	m := testManifest(t)

	srcDir, got, err := f.Source(context.Background(), m, t.TempDir())
	if err != nil {
		t.Fatalf("Source() failed: %v", err)
	}
	if got.IsZero() {
		t.Error("Source() should return a computed hash")
	}
	if _, err := os.Stat(filepath.Join(srcDir, "go.mod")); err != nil {
		t.Errorf("extracted tree missing go.mod: %v", err)
	}

	// The same archive must hash identically on a second fetch.
	_, again, err := f.Source(context.Background(), m, t.TempDir())
	if err != nil {
		t.Fatalf("second Source() failed: %v", err)
	}
	if !got.Equal(again) {
		t.Errorf("same archive hashed differently: %s vs %s", got, again)
	}
}

// TestVerifiedSource_MatchPasses verifies the gate accepts a correct hash.
func TestVerifiedSource_MatchPasses(t *testing.T) {
	data := buildTarGz(t, []tarEntry{
		{name: "mytool-1.0.0/go.mod", content: "module example.com/mytool\n"},
	})
	srv := serveArchive(t, data)
	f := newTestFetcher(t, srv)
	m := testManifest(t)

	_, got, err := f.Source(context.Background(), m, t.TempDir())
	if err != nil {
		t.Fatalf("Source() failed: %v", err)
	}

	m.Source.Hash = got.String()
	if _, err := f.VerifiedSource(context.Background(), m, t.TempDir()); err != nil {
		t.Errorf("VerifiedSource() with correct hash failed: %v", err)
	}
}

// TestVerifiedSource_MismatchFailsClosed verifies a wrong declared hash
// aborts the fetch with a mismatch error.
func TestVerifiedSource_MismatchFailsClosed(t *testing.T) {
	data := buildTarGz(t, []tarEntry{
		{name: "mytool-1.0.0/go.mod", content: "module example.com/mytool\n"},
	})
	srv := serveArchive(t, data)
	f := newTestFetcher(t, srv)
	m := testManifest(t)

	wrong := integrity.FromSum(sha256.Sum256([]byte("not the tree")))
	m.Source.Hash = wrong.String()

	_, err := f.VerifiedSource(context.Background(), m, t.TempDir())
	if err == nil {
		t.Fatal("VerifiedSource() with wrong hash should fail")
	}
	if !errors.Is(err, integrity.ErrMismatch) {
		t.Errorf("error = %v; want errors.Is(err, integrity.ErrMismatch)", err)
	}
}

// TestVerifiedSource_MissingHashFails verifies a manifest with no declared
// source hash cannot pass the gate.
func TestVerifiedSource_MissingHashFails(t *testing.T) {
	data := buildTarGz(t, []tarEntry{
		{name: "mytool-1.0.0/go.mod", content: "module example.com/mytool\n"},
	})
	srv := serveArchive(t, data)
	f := newTestFetcher(t, srv)
	m := testManifest(t)

	_, err := f.VerifiedSource(context.Background(), m, t.TempDir())
	if err == nil {
		t.Fatal("VerifiedSource() without a declared hash should fail")
	}
	var missing *integrity.MissingHashError
	if !errors.As(err, &missing) {
		t.Errorf("error = %T; want *integrity.MissingHashError", err)
	}
}

// TestSource_HTTPErrorFails verifies non-200 responses abort the fetch.
func TestSource_HTTPErrorFails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	t.Cleanup(srv.Close)

	f := newTestFetcher(t, srv)
	m := testManifest(t)

	_, _, err := f.Source(context.Background(), m, t.TempDir())
	if err == nil {
		t.Fatal("Source() should fail on 404")
	}
}

// TestSource_VendorExcludedFromHash verifies an upstream-shipped vendor
// directory does not influence the source hash.
func TestSource_VendorExcludedFromHash(t *testing.T) {
	plain := buildTarGz(t, []tarEntry{
		{name: "mytool-1.0.0/go.mod", content: "module example.com/mytool\n"},
	})
	vendored := buildTarGz(t, []tarEntry{
		{name: "mytool-1.0.0/go.mod", content: "module example.com/mytool\n"},
		{name: "mytool-1.0.0/vendor/modules.txt", content: "# deps\n"},
	})

	srvPlain := serveArchive(t, plain)
	srvVendored := serveArchive(t, vendored)
	m := testManifest(t)

	_, h1, err := newTestFetcher(t, srvPlain).Source(context.Background(), m, t.TempDir())
	if err != nil {
		t.Fatalf("Source() failed: %v", err)
	}
	_, h2, err := newTestFetcher(t, srvVendored).Source(context.Background(), m, t.TempDir())
	if err != nil {
		t.Fatalf("Source() failed: %v", err)
	}
	if !h1.Equal(h2) {
		t.Errorf("vendor directory changed the source hash: %s vs %s", h1, h2)
	}
}
