package studio

import (
	"errors"
	"fmt"
	"strings"

	"remotion_studio/internal/lib/apperr"

	"github.com/go-playground/validator/v10"
)

// validationMessage turns validator field errors into a short sentence
// such as "name is required".
func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := lowerFirst(fe.Field())
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, field+" is required")
		case "max":
			msgs = append(msgs, fmt.Sprintf("%s must be at most %s characters", field, fe.Param()))
		case "min":
			msgs = append(msgs, fmt.Sprintf("%s must be at least %s characters", field, fe.Param()))
		case "gte":
			msgs = append(msgs, fmt.Sprintf("%s must be %s or more", field, fe.Param()))
		case "oneof":
			msgs = append(msgs, fmt.Sprintf("%s must be one of %s", field, fe.Param()))
		default:
			msgs = append(msgs, field+" is invalid")
		}
	}

	return strings.Join(msgs, ", ")
}

// userMessage is the part of err shown to people: the server or validation
// message when there is one.
func userMessage(err error) string {
	var ae *apperr.Error
	if errors.As(err, &ae) && ae.Message != "" {
		if ae.Err != nil && ae.Kind == apperr.KindTemporarilyUnavailable {
			return ae.Message + ": " + ae.Err.Error()
		}
		return ae.Message
	}
	if err == nil {
		return ""
	}
	return err.Error()
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}
