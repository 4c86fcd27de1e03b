package domain

import (
	stderrors "errors"
	"fmt"
	"messenger/errors"

	"github.com/go-playground/validator/v10"
)

const (
	MinNameLength    = 3
	MaxNameLength    = 32
	MinContentLength = 1
	MaxContentLength = 1024
)

var validate = validator.New()

// Lengths are counted in runes: validator's min/max on strings use utf8.RuneCountInString.
func checkLength(value string, lower, upper int, tooShort, tooLong *errors.AppError) error {
	err := validate.Var(value, fmt.Sprintf("min=%d,max=%d", lower, upper))
	if err == nil {
		return nil
	}
	var fieldErrors validator.ValidationErrors
	if !stderrors.As(err, &fieldErrors) || len(fieldErrors) == 0 {
		return errors.Internal(errors.KindOther, err)
	}
	if fieldErrors[0].Tag() == "max" {
		return tooLong
	}
	return tooShort
}

func ValidateRoomName(name string) error {
	return checkLength(name, MinNameLength, MaxNameLength, errors.RoomNameTooShort, errors.RoomNameTooLong)
}

func ValidateUsername(username string) error {
	return checkLength(username, MinNameLength, MaxNameLength, errors.UsernameTooShort, errors.UsernameTooLong)
}

func ValidateMessageContent(content string) error {
	return checkLength(content, MinContentLength, MaxContentLength, errors.MessageContentTooShort, errors.MessageContentTooLong)
}
