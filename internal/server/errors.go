package server

import (
	"errors"
	"io/fs"
	"net/http"

	"github.com/KaramelBytes/tabloom-cli/internal/analysis"
	"github.com/KaramelBytes/tabloom-cli/internal/clean"
	"github.com/KaramelBytes/tabloom-cli/internal/parser"
	"github.com/KaramelBytes/tabloom-cli/internal/split"
)

// statusFor maps a pipeline error to an HTTP status.
func statusFor(err error) int {
	var fe *parser.FormatError
	var de *clean.DegenerateColumnError
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return http.StatusNotFound
	case errors.Is(err, parser.ErrUnsupported), errors.As(err, &fe):
		return http.StatusBadRequest
	case errors.As(err, &de),
		errors.Is(err, split.ErrInsufficientColumns),
		errors.Is(err, split.ErrTooFewRows),
		errors.Is(err, analysis.ErrNoNumericColumns):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
