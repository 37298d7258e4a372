package discord

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/bwmarrin/discordgo"

	"github.com/jose-valero/dark-study-bot/internal/app/cycle"
)

var errNotFound = errors.New("discord: not found")

// classify traduce los REST errors de Discord a los errores del ciclo.
// 403 → cycle.ErrPermissionDenied, 404 → errNotFound. El resto pasa tal cual.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var re *discordgo.RESTError
	if !errors.As(err, &re) || re.Response == nil {
		return err
	}
	switch re.Response.StatusCode {
	case http.StatusForbidden:
		return fmt.Errorf("%w: %w", cycle.ErrPermissionDenied, err)
	case http.StatusNotFound:
		return fmt.Errorf("%w: %w", errNotFound, err)
	}
	return err
}

// clientError: errores 4xx no cuentan para el breaker (mensaje borrado, sin permisos).
func clientError(err error) bool {
	var re *discordgo.RESTError
	if errors.As(err, &re) && re.Response != nil {
		return re.Response.StatusCode >= 400 && re.Response.StatusCode < 500 &&
			re.Response.StatusCode != http.StatusTooManyRequests
	}
	return false
}

// restDetail arma un resumen del error REST para logs (status, rate limit, body).
func restDetail(err error) []any {
	var re *discordgo.RESTError
	if !errors.As(err, &re) || re.Response == nil {
		return []any{"err", err}
	}
	return []any{
		"status", re.Response.StatusCode,
		"retry_after", re.Response.Header.Get("Retry-After"),
		"bucket", re.Response.Header.Get("X-RateLimit-Bucket"),
		"body", string(re.ResponseBody),
	}
}
