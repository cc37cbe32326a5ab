package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"VoucherVisionClient/internal/adapter/ui"
	"VoucherVisionClient/internal/adapter/ui/render"
	"VoucherVisionClient/internal/app/fallback"
	"VoucherVisionClient/internal/app/submitter"
	"VoucherVisionClient/internal/config"
	"VoucherVisionClient/internal/logger"
	"VoucherVisionClient/internal/service/download"
	"VoucherVisionClient/internal/service/image"
	"VoucherVisionClient/internal/service/vouchervision"
)

// Отправляет локальный файл (-file) и/или ссылку (-url) в VoucherVision и печатает результат в stdout.
func main() {
	cfg := config.NewConfig()

	log, err := logger.New(cfg.DebugMode)
	if err != nil {
		panic(err)
	}
	sugar := log.Sugar()
	//сброс буфера логгера
	defer func() {
		_ = log.Sync()
	}()

	if cfg.ImagePath == "" && cfg.ImageURL == "" {
		fmt.Fprintln(os.Stderr, "usage: vouchervision -file <path> | -url <image url> [-api-key KEY] [-engines a;b] [-prompt name.yaml] [-output json|yaml]")
		os.Exit(2)
	}

	sugar.Infow(
		"Starting app",
		"DebugMode", cfg.DebugMode,
		"Server", cfg.VoucherVision.ServerURL,
		"Engines", cfg.VoucherVision.Engines,
		"Prompt", cfg.VoucherVision.Prompt,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client := vouchervision.New(cfg.Settings(), sugar.Named("vouchervision"))
	fetcher := download.New(cfg.Download.MaxBytes, cfg.Download.Timeout, sugar.Named("download"))
	orchestrator := fallback.New(client, client, fetcher, sugar.Named("fallback"))
	handlers := submitter.New(client, orchestrator, sugar)

	failed := false
	if cfg.ImagePath != "" {
		if err := processFile(ctx, handlers, cfg); err != nil {
			sugar.Errorw("Processing local image failed", "file", cfg.ImagePath, "error", err)
			failed = true
		}
	}
	if cfg.ImageURL != "" {
		if err := processURL(ctx, handlers, cfg); err != nil {
			sugar.Errorw("Processing image URL failed", "url", cfg.ImageURL, "error", err)
			failed = true
		}
	}
	if failed {
		_ = log.Sync()
		os.Exit(1)
	}
}

func processFile(ctx context.Context, h ui.Handlers, cfg *config.Config) error {
	file, err := image.Load(cfg.ImagePath)
	if err != nil {
		return err
	}
	res, err := h.OnSubmitLocalFileRequested(ctx, ui.LocalFileRequest{
		File:    file,
		APIKey:  cfg.VoucherVision.APIKey,
		Options: cfg.Options(),
	})
	if err != nil {
		return err
	}
	return render.Write(os.Stdout, res, cfg.OutputFormat)
}

func processURL(ctx context.Context, h ui.Handlers, cfg *config.Config) error {
	res, err := h.OnSubmitURLRequested(ctx, ui.URLRequest{
		ImageURL: cfg.ImageURL,
		APIKey:   cfg.VoucherVision.APIKey,
		Options:  cfg.Options(),
	}, func(stage, message string) {
		fmt.Fprintf(os.Stderr, "[%s] %s\n", stage, message)
	})
	if err != nil {
		return err
	}
	return render.Write(os.Stdout, res, cfg.OutputFormat)
}
