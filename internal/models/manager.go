package models

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/emmett/ferryvox/internal/httpc"
)

// Model represents a Vosk model
type Model struct {
	Name        string
	Language    string
	Size        string
	URL         string
	Description string
}

// AvailableModels are the Japanese Vosk models the assistant can use
var AvailableModels = []Model{
	{
		Name:        "vosk-model-small-ja-0.22",
		Language:    "ja",
		Size:        "48M",
		URL:         "https://alphacephei.com/vosk/models/vosk-model-small-ja-0.22.zip",
		Description: "Lightweight Japanese model, fast enough to run beside the game",
	},
	{
		Name:        "vosk-model-ja-0.22",
		Language:    "ja",
		Size:        "1G",
		URL:         "https://alphacephei.com/vosk/models/vosk-model-ja-0.22.zip",
		Description: "Large Japanese model, more accurate but slow to load",
	},
}

// DefaultModelName is the default model to use
const DefaultModelName = "vosk-model-small-ja-0.22"

// Manager downloads and locates models under Dir
type Manager struct {
	Dir     string
	Catalog []Model
	client  *http.Client
}

// NewManager creates a manager rooted at dir.
// An empty dir means ./models in the working directory.
func NewManager(dir string) (*Manager, error) {
	if dir == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get working directory: %w", err)
		}
		dir = filepath.Join(cwd, "models")
	}
	return &Manager{
		Dir:     dir,
		Catalog: AvailableModels,
		client:  httpc.NewClient(30 * time.Minute),
	}, nil
}

// Find finds a model by name in the catalog
func (m *Manager) Find(name string) *Model {
	for _, model := range m.Catalog {
		if model.Name == name {
			return &model
		}
	}
	return nil
}

// IsDownloaded checks if a model is already downloaded
func (m *Manager) IsDownloaded(name string) (bool, error) {
	info, err := os.Stat(filepath.Join(m.Dir, name))
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return info.IsDir(), nil
}

// Path returns the directory of a downloaded model.
// A name that is already a model directory is returned unchanged.
func (m *Manager) Path(name string) (string, error) {
	if info, err := os.Stat(name); err == nil && info.IsDir() {
		return name, nil
	}

	downloaded, err := m.IsDownloaded(name)
	if err != nil {
		return "", err
	}
	if !downloaded {
		return "", fmt.Errorf("model not found: %s", name)
	}
	return filepath.Join(m.Dir, name), nil
}

// ListDownloaded lists all downloaded models
func (m *Manager) ListDownloaded() ([]string, error) {
	entries, err := os.ReadDir(m.Dir)
	if os.IsNotExist(err) {
		return []string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read models directory: %w", err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() && strings.HasPrefix(entry.Name(), "vosk-model-") {
			names = append(names, entry.Name())
		}
	}
	return names, nil
}

// Download fetches and unpacks a catalog model.
// progress may be nil; total is -1 when the server does not send a length.
func (m *Manager) Download(ctx context.Context, name string, progress func(downloaded, total int64)) error {
	model := m.Find(name)
	if model == nil {
		return fmt.Errorf("unknown model: %s", name)
	}

	if err := os.MkdirAll(m.Dir, 0755); err != nil {
		return fmt.Errorf("failed to create models directory: %w", err)
	}

	zipPath := filepath.Join(m.Dir, name+".zip")
	defer os.Remove(zipPath)

	if err := m.fetch(ctx, model.URL, zipPath, progress); err != nil {
		return err
	}

	if err := extractZip(zipPath, m.Dir); err != nil {
		return fmt.Errorf("failed to extract model: %w", err)
	}

	downloaded, err := m.IsDownloaded(name)
	if err != nil {
		return err
	}
	if !downloaded {
		return fmt.Errorf("archive for %s did not contain a %s directory", name, name)
	}
	return nil
}

func (m *Manager) fetch(ctx context.Context, url, dest string, progress func(downloaded, total int64)) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := m.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to download model: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download failed with status: %s", resp.Status)
	}

	out, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer out.Close()

	var src io.Reader = resp.Body
	if progress != nil {
		src = &progressReader{r: resp.Body, total: resp.ContentLength, fn: progress}
	}
	if _, err := io.Copy(out, src); err != nil {
		return fmt.Errorf("download error: %w", err)
	}
	return out.Close()
}

type progressReader struct {
	r     io.Reader
	done  int64
	total int64
	fn    func(downloaded, total int64)
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 {
		p.done += int64(n)
		p.fn(p.done, p.total)
	}
	return n, err
}

// extractZip extracts a zip file to the specified directory
func extractZip(zipPath, destDir string) error {
	r, err := zip.OpenReader(zipPath)
	if err != nil {
		return err
	}
	defer r.Close()

	for _, f := range r.File {
		fpath := filepath.Join(destDir, f.Name)

		// Check for ZipSlip vulnerability
		if !strings.HasPrefix(fpath, filepath.Clean(destDir)+string(os.PathSeparator)) {
			return fmt.Errorf("illegal file path: %s", fpath)
		}

		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(fpath, 0755); err != nil {
				return err
			}
			continue
		}

		if err := os.MkdirAll(filepath.Dir(fpath), 0755); err != nil {
			return err
		}
		if err := extractFile(f, fpath); err != nil {
			return err
		}
	}

	return nil
}

func extractFile(f *zip.File, dest string) error {
	out, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, f.Mode())
	if err != nil {
		return err
	}
	defer out.Close()

	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()

	_, err = io.Copy(out, rc)
	return err
}
