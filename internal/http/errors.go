package http

import (
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"

	"fightcancer/internal/db"
	"fightcancer/internal/encoding"
	"fightcancer/internal/survey"
)

type errResp struct {
	Error  string              `json:"error"`
	Fields []survey.FieldError `json:"fields,omitempty"`
}

// predictionFailed is shown to respondents when the pipeline errors.
const predictionFailed = "Le calcul du score a échoué, veuillez réessayer plus tard."

// httpStatus maps domain errors to response codes.
func httpStatus(err error) int {
	var verrs validator.ValidationErrors
	switch {
	case errors.Is(err, db.ErrNotFound), errors.Is(err, survey.ErrUnknownStep):
		return http.StatusNotFound
	case errors.Is(err, survey.ErrOutOfOrder), errors.Is(err, db.ErrRunFinished):
		return http.StatusConflict
	case errors.Is(err, survey.ErrValidation),
		errors.Is(err, encoding.ErrUnknownLabel),
		errors.Is(err, encoding.ErrInvalidValue),
		errors.As(err, &verrs):
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

func writeError(w http.ResponseWriter, err error) {
	out := errResp{Error: err.Error()}
	var ve *survey.ValidationError
	if errors.As(err, &ve) {
		out.Fields = ve.Fields
	}
	writeJSON(w, httpStatus(err), out)
}
