package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/disintegration/imaging"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"coil-vision/config"
	"coil-vision/internal/container"
	"coil-vision/internal/domain/port"
	"coil-vision/internal/infrastructure/ingest"
	"coil-vision/internal/infrastructure/vision"
	"coil-vision/internal/logger"
)

func main() {
	app := &cli.App{
		Name:  "coil-vision",
		Usage: "coil width measurement and crop stabilization for strip lines",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "path to config file (default ./config.yaml)",
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "run",
				Usage:  "process frames of every configured line until the sources are exhausted",
				Action: runLines,
			},
			{
				Name:      "measure",
				Usage:     "measure coil width on one image",
				ArgsUsage: "<image>",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "overlay", Usage: "write the image with measurement lines to this file"},
				},
				Action: measureImage,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatalf("coil-vision: %v", err)
	}
}

func setup(c *cli.Context) (*config.Config, *zap.Logger, func() error, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, nil, nil, errors.Wrap(err, "load config")
	}
	zl, closeLog, err := logger.New(logger.Options{
		Level: cfg.Log.Level,
		Dir:   cfg.Log.Dir,
		Name:  cfg.Log.ContainerName,
	})
	if err != nil {
		return nil, nil, nil, err
	}
	return cfg, zl, closeLog, nil
}

func runLines(c *cli.Context) error {
	cfg, zl, closeLog, err := setup(c)
	if err != nil {
		return err
	}
	defer func() { _ = closeLog() }()
	defer func() { _ = zl.Sync() }()

	if len(cfg.Lines) == 0 {
		return errors.New("no lines configured")
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	appContainer, err := container.New(ctx, cfg, zl)
	if err != nil {
		return err
	}
	defer func() {
		if err := appContainer.Close(); err != nil {
			zl.Error("close container", zap.Error(err))
		}
	}()

	sources := make(map[string]port.FrameSource, len(cfg.Lines))
	for _, l := range cfg.Lines {
		src, err := ingest.NewDirectorySource(l.ID, l.SourceDir)
		if err != nil {
			return err
		}
		zl.Info("line configured", zap.String("line", l.ID), zap.String("dir", l.SourceDir), zap.Int("frames", src.Len()))
		sources[l.ID] = src
	}

	g, gctx := errgroup.WithContext(ctx)
	runCtx, done := context.WithCancel(gctx)
	defer done()

	g.Go(func() error {
		// после того как источники исчерпаны, останавливаем сервер метрик и бота
		defer done()
		return appContainer.Inspection.RunLines(runCtx, sources)
	})
	if cfg.Metrics.Addr != "" {
		g.Go(func() error { return appContainer.Metrics.Serve(runCtx, cfg.Metrics.Addr) })
	}
	if appContainer.Bot != nil {
		g.Go(func() error { return appContainer.Bot.Run(runCtx) })
	}

	zl.Info("coil-vision is running", zap.Int("lines", len(sources)), zap.String("metrics", cfg.Metrics.Addr))
	return g.Wait()
}

func measureImage(c *cli.Context) error {
	if c.NArg() != 1 {
		return cli.Exit("measure needs exactly one image path", 2)
	}

	cfg, zl, closeLog, err := setup(c)
	if err != nil {
		return err
	}
	defer func() { _ = closeLog() }()

	// одиночный замер не пишет в БД, не сохраняет кадры и не ходит в Telegram
	cfg.Storage.MySQLDSN = ""
	cfg.Upload.TelegramToken = ""
	cfg.Detection.Enabled = false

	appContainer, err := container.New(c.Context, cfg, zl)
	if err != nil {
		return err
	}
	defer func() { _ = appContainer.Close() }()

	raw, err := ingest.ReadImageFile(c.Args().First())
	if err != nil {
		return err
	}
	raw.LineID = "cli"
	raw.FrameID = 1

	res, err := appContainer.Inspection.ProcessFrame(c.Context, raw)
	if err != nil {
		return err
	}

	out := c.App.Writer
	m := res.Measurement
	if m.Rejected() {
		fmt.Fprintln(out, "width_mm: rejected")
	} else {
		fmt.Fprintf(out, "width_mm: %.1f\n", m.WidthMM)
	}
	fmt.Fprintf(out, "center_px: %d\nstart_offset_px: %d\nend_offset_px: %d\n", m.CenterPx, m.StartOffsetPx, m.EndOffsetPx)
	fmt.Fprintf(out, "crop_width_px: %d (stabilized: %t)\n", res.Crop.Width(), res.Stabilized)

	for _, b := range res.Bands {
		if b.Err != nil {
			fmt.Fprintf(out, "band row %d: %v\n", b.RowOffset, b.Err)
			continue
		}
		fmt.Fprintf(out, "band row %d: distance %.1f px, %.1f mm, center (%.0f, %.0f)\n",
			b.RowOffset, b.Measurement.Distance, b.Measurement.Distance*cfg.Measure.MMPerPixel,
			b.Measurement.CenterPoint.X, b.Measurement.CenterPoint.Y)
	}

	if path := c.String("overlay"); path != "" {
		frame, err := ingest.DecodeFrame(raw)
		if err != nil {
			return err
		}
		img, err := vision.RenderOverlay(frame, res.Bands, vision.OverlayParams{MMPerPixel: cfg.Measure.MMPerPixel})
		if err != nil {
			return err
		}
		if err := imaging.Save(img, path); err != nil {
			return errors.Wrapf(err, "save overlay %s", path)
		}
		fmt.Fprintf(out, "overlay: %s\n", path)
	}
	return nil
}
