package importer

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/mezzala/gaffer/pkg/roster"
	"gopkg.in/yaml.v3"
)

// downloadAttempts is how many times a source fetch is tried before the
// import is abandoned.
const downloadAttempts = 3

// downloadFile fetches url into dest. Transient failures are retried with
// exponential backoff; the file only appears at dest once fully written.
func downloadFile(ctx context.Context, url, dest string) error {
	client := &http.Client{Timeout: 10 * time.Minute}

	var lastErr error
	for attempt := 0; attempt < downloadAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Duration(1<<uint(attempt)) * time.Second):
			}
		}
		if lastErr = fetchOnce(ctx, client, url, dest); lastErr == nil {
			return nil
		}
	}
	return fmt.Errorf("download %s failed after %d attempts: %w", url, downloadAttempts, lastErr)
}

func fetchOnce(ctx context.Context, client *http.Client, url, dest string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("HTTP %d for %s", resp.StatusCode, url)
	}

	part := dest + ".part"
	f, err := os.Create(part)
	if err != nil {
		return fmt.Errorf("create %s: %w", part, err)
	}
	if _, err := io.Copy(f, resp.Body); err != nil {
		f.Close()
		os.Remove(part)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(part)
		return err
	}
	return os.Rename(part, dest)
}

// unzipFile flattens a ZIP archive into destDir and returns the extracted
// paths. Entry directories are discarded, so hostile paths cannot escape
// destDir.
func unzipFile(src, destDir string) ([]string, error) {
	r, err := zip.OpenReader(src)
	if err != nil {
		return nil, fmt.Errorf("open zip: %w", err)
	}
	defer r.Close()

	var paths []string
	for _, entry := range r.File {
		if entry.FileInfo().IsDir() {
			continue
		}
		dest := filepath.Join(destDir, filepath.Base(entry.Name))
		if err := extractEntry(entry, dest); err != nil {
			return nil, fmt.Errorf("extract %s: %w", entry.Name, err)
		}
		paths = append(paths, dest)
	}
	return paths, nil
}

func extractEntry(entry *zip.File, dest string) error {
	rc, err := entry.Open()
	if err != nil {
		return err
	}
	defer rc.Close()

	out, err := os.Create(dest)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, rc); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// writeManifest stores m as dir/manifest.yaml.
func writeManifest(dir string, m *roster.Manifest) error {
	data, err := yaml.Marshal(m)
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}
	return os.WriteFile(filepath.Join(dir, "manifest.yaml"), data, 0o644)
}

func ensureDir(path string) error {
	return os.MkdirAll(path, 0o755)
}
