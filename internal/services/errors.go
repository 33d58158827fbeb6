package services

import "errors"

// ErrEmailTaken is returned by SignUp when the email is already registered.
var ErrEmailTaken = errors.New("email already registered")

// ErrInvalidCredentials is returned by SignIn for both an unknown email
// and a wrong password. The two cases are deliberately indistinguishable
// so the API cannot be used to enumerate registered addresses.
var ErrInvalidCredentials = errors.New("invalid email or password")

// ErrUnauthenticated is returned when a token is missing, expired,
// undecodable, or refers to a user that no longer exists.
var ErrUnauthenticated = errors.New("unauthenticated")

// ErrCardNotFound is returned by card mutations when the card does not
// exist or is owned by someone else. Collapsing the two cases into one
// error keeps other users' card ids unguessable.
var ErrCardNotFound = errors.New("card not found")

// ValidationError reports malformed input, caught before any storage call.
type ValidationError struct {
	message string
}

func (e *ValidationError) Error() string {
	return e.message
}

func validationError(message string) error {
	return &ValidationError{message: message}
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
