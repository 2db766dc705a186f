package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mhpenta/tryon"
	"github.com/mhpenta/tryon/internal/config"
	"github.com/mhpenta/tryon/provider/gemini"
)

// app holds what every command shares.
type app struct {
	configPath string
	verbose    bool

	stdout io.Writer
	stderr io.Writer

	cfg    *config.Config
	logger *slog.Logger
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	a := &app{stdout: stdout, stderr: stderr}

	root := &cobra.Command{
		Use:           "what2wear",
		Short:         "AI virtual try-on stylist",
		Long:          "What2Wear turns a photo into a fashion model image, suggests outfits in conversation and renders them on the model.",
		Version:       fmt.Sprintf("%s (commit: %s)", version, commit),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.loadConfig()
		},
	}

	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "what2wear.yaml", "path to the YAML config file")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "log at debug level")

	root.AddCommand(
		newServeCmd(a),
		newModelCmd(a),
		newRecommendCmd(a),
		newDressCmd(a),
		newWardrobeCmd(a),
	)
	return root
}

// loadConfig reads the configuration without requiring a credential, so
// offline commands work without one.
func (a *app) loadConfig() error {
	cfg, err := config.NewLoader().WithConfigPath(a.configPath).Load()
	if err != nil {
		return err
	}
	if a.verbose {
		cfg.Log.Level = "debug"
	}
	a.cfg = cfg
	a.logger = cfg.NewLogger(a.stderr)
	slog.SetDefault(a.logger)
	return nil
}

// newStylist validates the configuration and connects to the model service.
func (a *app) newStylist(ctx context.Context, opts ...tryon.Option) (*tryon.Stylist, error) {
	if err := a.cfg.Validate(); err != nil {
		return nil, err
	}

	gen, err := gemini.New(ctx, gemini.Config{
		APIKey:     a.cfg.APIKey,
		BaseURL:    a.cfg.Gemini.BaseURL,
		HTTPClient: &http.Client{Timeout: a.cfg.Gemini.Timeout},
	})
	if err != nil {
		return nil, err
	}

	base := []tryon.Option{
		tryon.WithLogger(a.logger),
		tryon.WithModels(a.cfg.ModelSet()),
		tryon.WithRetryPolicy(a.cfg.RetryPolicy()),
	}
	if a.cfg.RateLimit.Wait {
		base = append(base, tryon.WithWaitOnRateLimit(a.cfg.RateLimit.MaxWait))
	}
	return tryon.NewStylist(gen, append(base, opts...)...), nil
}

func (a *app) wardrobe() (tryon.Wardrobe, error) {
	return tryon.LoadWardrobe(a.cfg.Wardrobe.Path)
}

// loadPhoto reads a photo from an http(s) URL, an asset path ("/...") that
// exists under the assets directory, or a local file.
func (a *app) loadPhoto(ctx context.Context, ref string) (tryon.InputImage, error) {
	if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		return tryon.FetchImage(ctx, &http.Client{Timeout: a.cfg.Gemini.Timeout}, "", ref)
	}
	data, err := os.ReadFile(ref)
	if err != nil {
		if strings.HasPrefix(ref, "/") {
			return tryon.FetchImage(ctx, nil, a.cfg.Wardrobe.AssetsDir, ref)
		}
		return tryon.InputImage{}, fmt.Errorf("failed to read photo: %w", err)
	}
	img := tryon.NewInputImage(data, "", ref)
	if err := tryon.ValidateInputImage(img); err != nil {
		return tryon.InputImage{}, fmt.Errorf("photo %s: %w", ref, err)
	}
	return img, nil
}

// save writes a data URI below the output directory and reports the path.
func (a *app) save(ctx context.Context, dataURI, name string) error {
	res, err := tryon.SaveDataURI(ctx, &tryon.FileStorage{Dir: a.cfg.Storage.OutputDir}, dataURI, name)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "%s %s (%d bytes)\n", successColor("saved"), res.URL, res.Size)
	return nil
}
