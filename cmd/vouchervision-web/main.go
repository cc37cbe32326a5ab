package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"VoucherVisionClient/internal/adapter/ui/web"
	"VoucherVisionClient/internal/app/fallback"
	"VoucherVisionClient/internal/app/submitter"
	"VoucherVisionClient/internal/config"
	"VoucherVisionClient/internal/logger"
	"VoucherVisionClient/internal/service/download"
	"VoucherVisionClient/internal/service/vouchervision"
)

// Браузерное демо: форма для файла и ссылки, результат или текст ошибки на странице.
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

	sugar.Infow(
		"Starting web demo",
		"DebugMode", cfg.DebugMode,
		"Server", cfg.VoucherVision.ServerURL,
		"BindAddr", cfg.Web.BindAddr,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client := vouchervision.New(cfg.Settings(), sugar.Named("vouchervision"))
	fetcher := download.New(cfg.Download.MaxBytes, cfg.Download.Timeout, sugar.Named("download"))
	orchestrator := fallback.New(client, client, fetcher, sugar.Named("fallback"))

	srv := web.New(web.Config{
		BindAddr:       cfg.Web.BindAddr,
		AllowedOrigins: cfg.Web.AllowedOrigins,
		Defaults:       cfg.Options(),
		APIKey:         cfg.VoucherVision.APIKey,
	}, submitter.New(client, orchestrator, sugar), sugar.Named("web"))

	if err := srv.Start(ctx); err != nil {
		sugar.Errorw("Failed to start web demo", "addr", cfg.Web.BindAddr, "error", err)
		return
	}
	sugar.Infow("Open in browser", "url", "http://"+srv.Addr()+"/")

	<-ctx.Done()
	if err := srv.Stop(context.Background()); err != nil {
		sugar.Warnw("Web demo stop error", "error", err)
	}
}
