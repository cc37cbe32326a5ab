package config

import (
	"reflect"
	"testing"
	"time"

	"VoucherVisionClient/internal/service/vouchervision"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("test", nil)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.VoucherVision.ServerURL != vouchervision.DefaultServerURL {
		t.Fatalf("unexpected server url %q", cfg.VoucherVision.ServerURL)
	}
	if !reflect.DeepEqual(cfg.VoucherVision.Engines, []string{"gemini-1.5-pro", "gemini-2.0-flash"}) {
		t.Fatalf("unexpected engines %v", cfg.VoucherVision.Engines)
	}
	if cfg.VoucherVision.Prompt != "SLTPvM_default.yaml" {
		t.Fatalf("unexpected prompt %q", cfg.VoucherVision.Prompt)
	}
	if cfg.VoucherVision.Timeout != 0 {
		t.Fatalf("request timeout must default to none, got %s", cfg.VoucherVision.Timeout)
	}
	if cfg.Settings().AuthScheme != vouchervision.AuthAPIKey {
		t.Fatalf("unexpected auth scheme %q", cfg.Settings().AuthScheme)
	}
}

func TestLoadEnvThenFlags(t *testing.T) {
	t.Setenv("VV_API_KEY", "from-env")
	t.Setenv("VV_ENGINES", "gpt-4o; gemini-2.0-flash")
	t.Setenv("VV_PROMPT", "env.yaml")
	t.Setenv("VV_TIMEOUT", "30s")
	t.Setenv("DEBUG_MODE", "true")
	t.Setenv("WEB_BIND_ADDR", "0.0.0.0:9000")

	cfg, err := Load("test", []string{"-prompt", "flag.yaml", "-auth", "auto", "-output", "yaml"})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.VoucherVision.APIKey != "from-env" {
		t.Fatalf("api key = %q", cfg.VoucherVision.APIKey)
	}
	if !reflect.DeepEqual(cfg.VoucherVision.Engines, []string{"gpt-4o", "gemini-2.0-flash"}) {
		t.Fatalf("engines = %v", cfg.VoucherVision.Engines)
	}
	if cfg.VoucherVision.Prompt != "flag.yaml" {
		t.Fatalf("flag must override env, prompt = %q", cfg.VoucherVision.Prompt)
	}
	if cfg.VoucherVision.Timeout != 30*time.Second {
		t.Fatalf("timeout = %s", cfg.VoucherVision.Timeout)
	}
	if cfg.Web.BindAddr != "0.0.0.0:9000" {
		t.Fatalf("bind addr = %q", cfg.Web.BindAddr)
	}

	opts := cfg.Options()
	if !opts.Verbose || opts.Prompt != "flag.yaml" || len(opts.Engines) != 2 {
		t.Fatalf("unexpected options %+v", opts)
	}
	if cfg.Settings().AuthScheme != vouchervision.AuthAuto {
		t.Fatalf("auth scheme = %q", cfg.Settings().AuthScheme)
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	for name, args := range map[string][]string{
		"auth scheme":   {"-auth", "basic"},
		"output format": {"-output", "xml"},
		"unknown flag":  {"-nope"},
	} {
		t.Run(name, func(t *testing.T) {
			if _, err := Load("test", args); err == nil {
				t.Fatalf("expected error for %v", args)
			}
		})
	}
}

func TestParseListFlag(t *testing.T) {
	def := []string{"d"}
	tests := []struct {
		in   string
		want []string
	}{
		{in: "", want: def},
		{in: " ; ;", want: def},
		{in: "a; b ;;c", want: []string{"a", "b", "c"}},
	}
	for _, tt := range tests {
		if got := parseListFlag(tt.in, def); !reflect.DeepEqual(got, tt.want) {
			t.Fatalf("parseListFlag(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
