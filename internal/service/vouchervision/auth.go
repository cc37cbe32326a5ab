package vouchervision

import (
	"fmt"
	"net/http"
	"strings"

	"golang.org/x/oauth2"
)

// AuthScheme определяет, каким заголовком отправляется ключ.
type AuthScheme string

const (
	AuthAPIKey AuthScheme = "api-key" // X-API-Key: <key>
	AuthBearer AuthScheme = "bearer"  // Authorization: Bearer <token>
	AuthAuto   AuthScheme = "auto"    // bearer для похожих на Firebase ID token значений, иначе api-key
)

const apiKeyHeader = "X-API-Key"

// ParseAuthScheme разбирает значение из конфига; пустая строка — api-key.
func ParseAuthScheme(s string) (AuthScheme, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "api-key", "apikey", "x-api-key":
		return AuthAPIKey, nil
	case "bearer", "firebase", "token":
		return AuthBearer, nil
	case "auto":
		return AuthAuto, nil
	}
	return "", fmt.Errorf("unknown auth scheme %q (want api-key|bearer|auto)", s)
}

// resolve выбирает конкретную схему для ключа.
// Firebase ID token — это JWT: содержит точки и заметно длиннее 100 символов.
func (s AuthScheme) resolve(key string) AuthScheme {
	if s != AuthAuto {
		return s
	}
	if strings.Contains(key, ".") && len(key) > 100 {
		return AuthBearer
	}
	return AuthAPIKey
}

// authorizedClient возвращает HTTP клиент, который подпишет запрос нужным заголовком.
// Для api-key заголовок ставится на сам запрос, клиент не меняется.
func authorizedClient(base *http.Client, scheme AuthScheme, key string, req *http.Request) *http.Client {
	if scheme.resolve(key) != AuthBearer {
		req.Header.Set(apiKeyHeader, key)
		return base
	}
	src := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: key, TokenType: "Bearer"})
	return &http.Client{
		Transport:     &oauth2.Transport{Source: src, Base: base.Transport},
		CheckRedirect: base.CheckRedirect,
		Jar:           base.Jar,
		Timeout:       base.Timeout,
	}
}
