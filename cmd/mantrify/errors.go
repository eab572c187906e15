package main

import (
	"errors"
	"fmt"
	"strings"

	"mantrify/internal/api"
	"mantrify/internal/composition"
)

// errFieldErrors marks a failure whose field errors were already printed.
var errFieldErrors = errors.New("draft has field errors")

// Exit codes returned by main.
const (
	exitFailure     = 1
	exitValidation  = 2
	exitAuth        = 3
	exitUnavailable = 4
)

func exitCode(err error) int {
	switch {
	case errors.Is(err, errFieldErrors), errors.Is(err, composition.ErrInvalid), errors.Is(err, api.ErrValidation):
		return exitValidation
	case errors.Is(err, api.ErrUnauthorized), errors.Is(err, api.ErrForbidden):
		return exitAuth
	case api.Retryable(err):
		return exitUnavailable
	default:
		return exitFailure
	}
}

// formatError pairs the user-facing sentence with the underlying detail when
// they differ.
func formatError(err error) string {
	if errors.Is(err, errFieldErrors) {
		return "Error: " + err.Error()
	}
	msg := api.UserMessage(err)
	detail := err.Error()
	if msg == "" || msg == detail || strings.Contains(msg, detail) {
		return "Error: " + detail
	}
	return fmt.Sprintf("Error: %s (%s)", msg, detail)
}
