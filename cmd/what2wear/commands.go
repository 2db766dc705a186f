package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/mhpenta/tryon"
	"github.com/mhpenta/tryon/internal/metrics"
	"github.com/mhpenta/tryon/internal/server"
)

func newServeCmd(a *app) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if addr != "" {
				a.cfg.Server.Addr = addr
			}

			collector := metrics.NewCollector("what2wear")
			stylist, err := a.newStylist(ctx, tryon.WithObserver(collector))
			if err != nil {
				return err
			}
			defer stylist.Close()

			wardrobe, err := a.wardrobe()
			if err != nil {
				return err
			}

			srv := server.New(ctx, server.Config{
				Stylist:           stylist,
				Wardrobe:          wardrobe,
				AssetsDir:         a.cfg.Wardrobe.AssetsDir,
				PhotoHosts:        a.cfg.Server.PhotoHosts,
				Metrics:           collector,
				Logger:            a.logger,
				MaxUploadBytes:    a.cfg.Server.MaxUploadBytes,
				SessionTTL:        a.cfg.Server.SessionTTL,
				RequestsPerMinute: a.cfg.Server.RequestsPerMinute,
				Burst:             a.cfg.Server.Burst,
				Addr:              a.cfg.Server.Addr,
				ReadTimeout:       a.cfg.Server.ReadTimeout,
				WriteTimeout:      a.cfg.Server.WriteTimeout,
				ShutdownTimeout:   a.cfg.Server.ShutdownTimeout,
			})

			fmt.Fprintf(a.stdout, "%s listening on %s\n", headerColor("what2wear"), a.cfg.Server.Addr)
			return srv.ListenAndServe(ctx)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides server.addr)")
	return cmd
}

func newModelCmd(a *app) *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "model <photo>",
		Short: "Turn a photo into a full-body model image",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := commandContext(cmd.Context())
			defer cancel()

			stylist, err := a.newStylist(ctx)
			if err != nil {
				return err
			}
			defer stylist.Close()

			photo, err := a.loadPhoto(ctx, args[0])
			if err != nil {
				return err
			}

			image, err := stylist.GenerateModelImage(ctx, photo)
			if err != nil {
				return err
			}
			return a.save(ctx, image, name)
		},
	}

	cmd.Flags().StringVarP(&name, "output", "o", "model", "output file name, without extension")
	return cmd
}

func newRecommendCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "recommend <request...>",
		Short: "Ask the stylist for an outfit",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := commandContext(cmd.Context())
			defer cancel()

			stylist, err := a.newStylist(ctx)
			if err != nil {
				return err
			}
			defer stylist.Close()

			wardrobe, err := a.wardrobe()
			if err != nil {
				return err
			}

			history := []tryon.ChatMessage{{Role: tryon.RoleUser, Content: strings.Join(args, " ")}}
			rec, err := stylist.GetOutfitRecommendation(ctx, wardrobe, history)
			if err != nil {
				return err
			}

			fmt.Fprintf(a.stdout, "%s %s\n", labelColor("Outfit:"), rec.OutfitDescription)
			fmt.Fprintf(a.stdout, "%s %s\n", labelColor("Why:"), rec.Reasoning)
			return nil
		},
	}
}

func newDressCmd(a *app) *cobra.Command {
	var (
		modelPath string
		name      string
	)

	cmd := &cobra.Command{
		Use:   "dress <outfit description...>",
		Short: "Render an outfit on a model image",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := commandContext(cmd.Context())
			defer cancel()

			stylist, err := a.newStylist(ctx)
			if err != nil {
				return err
			}
			defer stylist.Close()

			modelImage, err := a.loadPhoto(ctx, modelPath)
			if err != nil {
				return err
			}

			image, err := stylist.GenerateOutfitImage(ctx, tryon.EncodeDataURI(modelImage.MIMEType, modelImage.Data), strings.Join(args, " "))
			if err != nil {
				return err
			}
			return a.save(ctx, image, name)
		},
	}

	cmd.Flags().StringVarP(&modelPath, "model", "m", "", "model image file")
	cmd.Flags().StringVarP(&name, "output", "o", "outfit", "output file name, without extension")
	_ = cmd.MarkFlagRequired("model")
	return cmd
}

func newWardrobeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "wardrobe",
		Short: "List the wardrobe catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			wardrobe, err := a.wardrobe()
			if err != nil {
				return err
			}

			for _, c := range tryon.Categories {
				items := wardrobe.ByCategory(c)
				if len(items) == 0 {
					continue
				}
				fmt.Fprintln(a.stdout, headerColor(string(c)))
				for _, item := range items {
					fmt.Fprintf(a.stdout, "  %-22s %s\n", item.ID, item.Name)
				}
			}
			return nil
		},
	}
}

// commandContext bounds one-shot commands and cancels them on interrupt.
func commandContext(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	ctx, cancel := context.WithTimeout(ctx, 10*time.Minute)
	return ctx, func() {
		cancel()
		stop()
	}
}
