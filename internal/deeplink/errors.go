package deeplink

import "errors"

// Validation failures. Each carries the message shown to the user.
var (
	ErrInvalidDeepLink          = errors.New("invalid URL received")
	ErrUnknownDemo              = errors.New("unable to open URL for this demo type")
	ErrQueryItemsMissing        = errors.New("no query items are available in the received URL")
	ErrURLParameterMissing      = errors.New(`the url parameters do not contain a "url" key and value`)
	ErrInvalidURL               = errors.New(`unable to create a URL from the "url" value provided`)
	ErrTokenParameterMissing    = errors.New(`the url parameters do not contain a "token" key and value`)
	ErrAssetIDParameterMissing  = errors.New(`the url parameters do not contain an "assetID" key and value`)
	ErrImageIDParameterMissing  = errors.New(`the url parameters do not contain an "imageID" key and value`)
	ErrMugColorParameterMissing = errors.New(`the url parameters do not contain a "mugColor" key and value`)
	ErrInvalidColor             = errors.New("specified color is invalid")
)

var validationErrors = []error{
	ErrInvalidDeepLink,
	ErrUnknownDemo,
	ErrQueryItemsMissing,
	ErrURLParameterMissing,
	ErrInvalidURL,
	ErrTokenParameterMissing,
	ErrAssetIDParameterMissing,
	ErrImageIDParameterMissing,
	ErrMugColorParameterMissing,
	ErrInvalidColor,
}

// IsValidationError reports whether err comes from deep-link validation
func IsValidationError(err error) bool {
	for _, target := range validationErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
