package config

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"

	"VoucherVisionClient/internal/service/vouchervision"
)

type Config struct {
	DebugMode     bool                `env:"DEBUG_MODE"` // Подробный вывод запросов и ответов (verbose)
	VoucherVision VoucherVisionConfig // Подключение к VoucherVision API
	Download      DownloadConfig      // Скачивание картинки для обходного пути
	Web           WebConfig           // Демо-сервер для браузера

	// Параметры одного запуска CLI
	ImagePath    string `env:"VV_IMAGE_PATH"`    // Локальный файл для /process
	ImageURL     string `env:"VV_IMAGE_URL"`     // Ссылка для /process-url (с обходным путём)
	OutputFormat string `env:"VV_OUTPUT_FORMAT"` // json|yaml
}

// VoucherVisionConfig конфигурация клиента VoucherVision.
type VoucherVisionConfig struct {
	ServerURL  string        `env:"VV_SERVER_URL"`
	APIKey     string        `env:"VV_API_KEY"`     // Ключ берём из .env/ENV. Если пуст — запрос не отправится
	AuthScheme string        `env:"VV_AUTH_SCHEME"` // api-key|bearer|auto
	Engines    []string      `env:"VV_ENGINES" envSeparator:";"`
	Prompt     string        `env:"VV_PROMPT"`  // Имя YAML шаблона на стороне сервера
	Timeout    time.Duration `env:"VV_TIMEOUT"` // 0 — без таймаута
}

// DownloadConfig ограничения для скачивания исходного изображения.
type DownloadConfig struct {
	MaxBytes int64         `env:"VV_DOWNLOAD_MAX_BYTES"`
	Timeout  time.Duration `env:"VV_DOWNLOAD_TIMEOUT"`
}

// WebConfig конфигурация демо-сервера.
type WebConfig struct {
	BindAddr       string   `env:"WEB_BIND_ADDR"`                        // напр. 127.0.0.1:8080
	AllowedOrigins []string `env:"WEB_ALLOWED_ORIGINS" envSeparator:";"` // CORS
}

// Defaults возвращает конфигурацию с предустановленными значениями по умолчанию.
// Эти значения перекрываются .env, переменными окружения и флагами CLI.
func Defaults() *Config {
	return &Config{
		DebugMode: false,
		VoucherVision: VoucherVisionConfig{
			ServerURL:  vouchervision.DefaultServerURL,
			AuthScheme: string(vouchervision.AuthAPIKey),
			Engines:    vouchervision.DefaultEngines(),
			Prompt:     vouchervision.DefaultPrompt,
		},
		Download: DownloadConfig{
			MaxBytes: 50 << 20,
			Timeout:  2 * time.Minute,
		},
		Web: WebConfig{
			BindAddr:       "127.0.0.1:8080",
			AllowedOrigins: []string{"*"},
		},
		OutputFormat: "json",
	}
}

// NewConfig загружает конфигурацию приложения: .env, окружение, флаги командной строки.
func NewConfig() *Config {
	_ = godotenv.Load()

	cfg, err := Load(os.Args[0], os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	return cfg
}

// Load накладывает окружение и флаги на Defaults().
func Load(name string, args []string) (*Config, error) {
	cfg := Defaults()
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.BoolVar(&cfg.DebugMode, "debug-mode", cfg.DebugMode, "подробный вывод запросов и ответов (verbose)")
	fs.BoolVar(&cfg.DebugMode, "verbose", cfg.DebugMode, "синоним -debug-mode")

	fs.StringVar(&cfg.VoucherVision.ServerURL, "server-url", cfg.VoucherVision.ServerURL, "адрес VoucherVision API")
	fs.StringVar(&cfg.VoucherVision.APIKey, "api-key", cfg.VoucherVision.APIKey, "API ключ или Firebase token (перекрывает ENV VV_API_KEY)")
	fs.StringVar(&cfg.VoucherVision.AuthScheme, "auth", cfg.VoucherVision.AuthScheme, "схема авторизации: api-key|bearer|auto")
	enginesFlag := strings.Join(cfg.VoucherVision.Engines, ";")
	fs.StringVar(&enginesFlag, "engines", enginesFlag, "список OCR движков, разделённых ';'")
	fs.StringVar(&cfg.VoucherVision.Prompt, "prompt", cfg.VoucherVision.Prompt, "имя файла промпта на сервере")
	fs.DurationVar(&cfg.VoucherVision.Timeout, "timeout", cfg.VoucherVision.Timeout, "таймаут запроса к API, 0 — без таймаута")

	fs.Int64Var(&cfg.Download.MaxBytes, "download-max-bytes", cfg.Download.MaxBytes, "максимальный размер скачиваемой картинки, байт")
	fs.DurationVar(&cfg.Download.Timeout, "download-timeout", cfg.Download.Timeout, "таймаут скачивания картинки")

	fs.StringVar(&cfg.Web.BindAddr, "web-bind-addr", cfg.Web.BindAddr, "адрес демо-сервера (напр. 127.0.0.1:8080)")
	originsFlag := strings.Join(cfg.Web.AllowedOrigins, ";")
	fs.StringVar(&originsFlag, "web-allowed-origins", originsFlag, "разрешённые CORS origin, разделённые ';'")

	fs.StringVar(&cfg.ImagePath, "file", cfg.ImagePath, "путь к локальному изображению")
	fs.StringVar(&cfg.ImageURL, "url", cfg.ImageURL, "ссылка на изображение")
	fs.StringVar(&cfg.OutputFormat, "output", cfg.OutputFormat, "формат вывода результата: json|yaml")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	cfg.VoucherVision.Engines = parseListFlag(enginesFlag, vouchervision.DefaultEngines())
	cfg.Web.AllowedOrigins = parseListFlag(originsFlag, []string{"*"})

	if _, err := vouchervision.ParseAuthScheme(cfg.VoucherVision.AuthScheme); err != nil {
		return nil, err
	}
	switch strings.ToLower(cfg.OutputFormat) {
	case "json", "yaml", "yml":
	default:
		return nil, fmt.Errorf("unknown output format %q (want json|yaml)", cfg.OutputFormat)
	}

	return cfg, nil
}

// Options — движки, промпт и verbose для запроса по умолчанию.
func (c *Config) Options() vouchervision.Options {
	return vouchervision.Options{
		Engines: append([]string(nil), c.VoucherVision.Engines...),
		Prompt:  c.VoucherVision.Prompt,
		Verbose: c.DebugMode,
	}
}

// Settings — параметры подключения клиента.
func (c *Config) Settings() vouchervision.Settings {
	scheme, _ := vouchervision.ParseAuthScheme(c.VoucherVision.AuthScheme)
	return vouchervision.Settings{
		ServerURL:  c.VoucherVision.ServerURL,
		AuthScheme: scheme,
		Timeout:    c.VoucherVision.Timeout,
	}
}

// parseListFlag разбирает значение флага со списком, разделённым ';'
func parseListFlag(v string, def []string) []string {
	// Пустая строка → дефолт
	if v == "" {
		return def
	}
	parts := strings.Split(v, ";")
	cleaned := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			cleaned = append(cleaned, p)
		}
	}
	if len(cleaned) == 0 {
		return def
	}
	return cleaned
}
