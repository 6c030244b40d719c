package app

import (
	"context"
	"fmt"
	"io"

	"github.com/emmett/ferryvox/internal/models"
)

// ModelManager prints and downloads recognition models for the CLI
type ModelManager struct {
	models *models.Manager
	out    io.Writer
}

func NewModelManager(m *models.Manager, out io.Writer) *ModelManager {
	if out == nil {
		out = io.Discard
	}
	return &ModelManager{models: m, out: out}
}

func (m *ModelManager) ListModels() error {
	fmt.Fprintln(m.out, "Available models for download:")
	fmt.Fprintln(m.out)

	for i, model := range m.models.Catalog {
		fmt.Fprintf(m.out, "%d. %s\n", i+1, model.Name)
		fmt.Fprintf(m.out, "   Language: %s\n", model.Language)
		fmt.Fprintf(m.out, "   Size:     %s\n", model.Size)
		fmt.Fprintf(m.out, "   Info:     %s\n", model.Description)

		downloaded, _ := m.models.IsDownloaded(model.Name)
		if downloaded {
			fmt.Fprintf(m.out, "   Status:   Downloaded\n")
		} else {
			fmt.Fprintf(m.out, "   Status:   Not downloaded\n")
		}
		fmt.Fprintln(m.out)
	}

	fmt.Fprintln(m.out, "To download a model, use:")
	fmt.Fprintln(m.out, "  ferryvox models download <model-name>")
	return nil
}

func (m *ModelManager) ListDownloaded() error {
	downloaded, err := m.models.ListDownloaded()
	if err != nil {
		return fmt.Errorf("error listing models: %w", err)
	}

	if len(downloaded) == 0 {
		fmt.Fprintln(m.out, "No models downloaded yet.")
		fmt.Fprintln(m.out, "Use 'ferryvox models download <name>' to download a model")
		return nil
	}

	fmt.Fprintf(m.out, "Downloaded models (%d):\n\n", len(downloaded))
	for i, name := range downloaded {
		fmt.Fprintf(m.out, "%d. %s", i+1, name)
		if name == models.DefaultModelName {
			fmt.Fprint(m.out, " [DEFAULT]")
		}
		fmt.Fprintln(m.out)

		if path, err := m.models.Path(name); err == nil {
			fmt.Fprintf(m.out, "   Path: %s\n", path)
		}
	}
	return nil
}

// Download fetches name unless it is already present
func (m *ModelManager) Download(ctx context.Context, name string) error {
	model := m.models.Find(name)
	if model == nil {
		fmt.Fprintln(m.out, "Use 'ferryvox models list' to see available models")
		return fmt.Errorf("unknown model: %s", name)
	}

	downloaded, err := m.models.IsDownloaded(name)
	if err != nil {
		return fmt.Errorf("error checking model: %w", err)
	}
	if downloaded {
		path, _ := m.models.Path(name)
		fmt.Fprintf(m.out, "Model '%s' is already downloaded.\nLocation: %s\n", name, path)
		return nil
	}

	fmt.Fprintf(m.out, "Downloading model: %s (%s)\n", model.Name, model.Size)
	err = m.models.Download(ctx, name, func(done, total int64) {
		if total <= 0 {
			fmt.Fprintf(m.out, "\rProgress: %d bytes", done)
			return
		}
		percent := float64(done) / float64(total) * 100
		fmt.Fprintf(m.out, "\rProgress: %.1f%% (%d/%d bytes)", percent, done, total)
	})
	fmt.Fprintln(m.out)
	if err != nil {
		return fmt.Errorf("error downloading model: %w", err)
	}

	fmt.Fprintf(m.out, "Model '%s' downloaded successfully!\n", name)
	return nil
}
