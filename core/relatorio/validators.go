package relatorio

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/e-docBR/colaboraEdu-produc/core"
)

const (
	slugTag  = "slug"
	slugText = "unknown report"
)

// InitValidators registers the "slug" tag, accepting any slug of the catalog.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(slugTag, slugValidation)
	core.RegisterCustomTranslation(validate, translator, slugTag, slugText)
}

func slugValidation(fl validator.FieldLevel) bool {
	_, ok := Lookup(Slug(fl.Field().String()))
	return ok
}
