package Controllers

import (
	"Aegis/Models"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
	"github.com/gofiber/fiber/v2"
)

var (
	validate *validator.Validate
	trans    ut.Translator
)

func init() {
	validate = validator.New()
	enLocale := en.New()
	uni := ut.New(enLocale, enLocale)
	trans, _ = uni.GetTranslator("en")
	_ = en_translations.RegisterDefaultTranslations(validate, trans)
}

// validationErrors maps validator failures to field -> message so the
// form can highlight each bad field in one round trip.
func validationErrors(err error) map[string]string {
	fields := make(map[string]string)
	if errs, ok := err.(validator.ValidationErrors); ok {
		for _, fieldErr := range errs {
			fields[fieldErr.Field()] = fieldErr.Translate(trans)
		}
	}
	return fields
}

// getUserFromContext returns the user placed in locals by the auth
// middleware.
func getUserFromContext(c *fiber.Ctx) (Models.User, bool) {
	user, ok := c.Locals("user").(Models.User)
	return user, ok
}
