package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"
)

// download streams url into a temp file inside dir and returns its path.
// On a TTY it renders a byte progress bar; otherwise it stays silent.
// There is no retry at this layer.
func (f *Fetcher) download(ctx context.Context, url, dir, description string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("cannot build request for %s: %w", url, err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("cannot fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("cannot fetch %s: unexpected status %s", url, resp.Status)
	}

	tmp, err := os.CreateTemp(dir, "archive-*.part")
	if err != nil {
		return "", fmt.Errorf("cannot create download file: %w", err)
	}
	defer tmp.Close()

	var dst io.Writer = tmp
	if !f.quiet && isatty.IsTerminal(os.Stdout.Fd()) {
		bar := progressbar.DefaultBytes(resp.ContentLength, description)
		dst = io.MultiWriter(tmp, bar)
		defer bar.Finish()
	}

	if _, err := io.Copy(dst, resp.Body); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("download of %s interrupted: %w", url, err)
	}
	return tmp.Name(), nil
}
