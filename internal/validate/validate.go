package validate

// Thin wrapper around go-playground/validator shared by every package that
// decodes data from outside the process: backend responses, pushed events,
// the preferences file and the YAML config.
//
// Custom tags:
//   theme     one of Themes
//   language  one of Languages
//   ws_url    absolute ws:// or wss:// URL

import (
	"net/url"
	"slices"
	"sync"

	"github.com/go-playground/validator/v10"
)

//nolint:gochecknoglobals // immutable lookup tables shared with storage and the CLI.
var (
	Themes    = []string{"dark", "light", "system"}
	Languages = []string{"de", "en"}
)

//nolint:gochecknoglobals // Shared validator singleton.
var (
	validatorOnce sync.Once
	validatorInst *validator.Validate
)

// get returns a process-wide singleton of the validator.
func get() *validator.Validate {
	validatorOnce.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		_ = v.RegisterValidation("theme", oneOf(Themes))
		_ = v.RegisterValidation("language", oneOf(Languages))
		_ = v.RegisterValidation("ws_url", wsURL)
		validatorInst = v
	})
	return validatorInst
}

// Struct validates a struct using the shared validator instance.
func Struct(v any) error {
	return get().Struct(v)
}

// Var validates a single variable against the provided tag constraints.
func Var(field any, tag string) error {
	return get().Var(field, tag)
}

func oneOf(allowed []string) validator.Func {
	return func(fl validator.FieldLevel) bool {
		return slices.Contains(allowed, fl.Field().String())
	}
}

func wsURL(fl validator.FieldLevel) bool {
	u, err := url.Parse(fl.Field().String())
	if err != nil {
		return false
	}
	return (u.Scheme == "ws" || u.Scheme == "wss") && u.Host != ""
}
