// Package validation holds the form schemas shared by the action layer.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	validator "github.com/go-playground/validator/v10"

	"github.com/sohoz88/promo-site/internal/domain"
)

// MaxDataURILength caps inline image payloads at 1 MiB of encoded text.
const MaxDataURILength = 1 * 1024 * 1024

const dataImagePrefix = "data:image/"

// Bonus form messages.
const (
	MsgTitleTooShort       = "Bonus title must be at least 5 characters."
	MsgDescriptionTooShort = "Bonus description must be at least 10 characters."
	MsgTurnoverRequired    = "Turnover requirement is required (e.g., '20x', 'None')."
	MsgImageInvalid        = "Please enter a valid image URL or a data URI (e.g., data:image/png;base64,...)."
	MsgCTAInvalid          = "Please enter a valid CTA link (e.g., https://example.com/register)."
)

// Settings form messages.
const (
	MsgBackgroundType  = "You need to select a background type."
	MsgBackgroundValue = "Background value is required (URL or hex color)."
)

// Contact and login form messages.
const (
	MsgNameTooShort    = "নাম কমপক্ষে ২ অক্ষরের হতে হবে।"
	MsgEmailInvalid    = "সঠিক ইমেইল ঠিকানা দিন।"
	MsgSubjectTooShort = "বিষয় কমপক্ষে ৫ অক্ষরের হতে হবে।"
	MsgMessageTooShort = "বার্তা কমপক্ষে ১০ অক্ষরের হতে হবে।"
	MsgPasswordMissing = "Password is required"
)

// MsgImageTooLarge reports an oversized data URI.
var MsgImageTooLarge = fmt.Sprintf(
	"Image data is too large (max %dMB). Please use a URL or upload a smaller image file.",
	MaxDataURILength/(1024*1024),
)

// messages maps "<json field>.<tag>" to the user-facing message. A bare
// "<json field>" entry is the fallback for any tag on that field.
var messages = map[string]string{
	"title":               MsgTitleTooShort,
	"description":         MsgDescriptionTooShort,
	"turnoverRequirement": MsgTurnoverRequired,
	"imageUrl":            MsgImageInvalid,
	"ctaLink":             MsgCTAInvalid,
	"backgroundType":      MsgBackgroundType,
	"backgroundValue":     MsgBackgroundValue,
	"name":                MsgNameTooShort,
	"email":               MsgEmailInvalid,
	"subject":             MsgSubjectTooShort,
	"message":             MsgMessageTooShort,
	"password":            MsgPasswordMissing,
}

var (
	once     sync.Once
	instance *validator.Validate
)

func get() *validator.Validate {
	once.Do(func() {
		instance = newValidator()
	})
	return instance
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})

	_ = v.RegisterValidation("imageurl", func(fl validator.FieldLevel) bool {
		return checkImageURL(v, fl.Field().String()) == ""
	})
	_ = v.RegisterValidation("background", func(fl validator.FieldLevel) bool {
		kind := fl.Parent().FieldByName("BackgroundType")
		if !kind.IsValid() {
			return false
		}
		return checkBackground(v, domain.BackgroundType(kind.String()), fl.Field().String())
	})

	return v
}

// checkImageURL returns the failure message for value, or "" when valid.
// An empty value is accepted.
func checkImageURL(v *validator.Validate, value string) string {
	if strings.TrimSpace(value) == "" {
		return ""
	}
	if strings.HasPrefix(value, dataImagePrefix) {
		if len(value) > MaxDataURILength {
			return MsgImageTooLarge
		}
		return ""
	}
	if v.Var(value, "url") != nil {
		return MsgImageInvalid
	}
	return ""
}

func checkBackground(v *validator.Validate, kind domain.BackgroundType, value string) bool {
	if kind == domain.BackgroundColor {
		return v.Var(value, "hexcolor") == nil
	}
	return v.Var(value, "url") == nil
}

// Validate checks input against its struct tags. It returns nil when input
// is valid, otherwise a map from JSON field name to messages.
func Validate(input any) map[string][]string {
	err := get().Struct(input)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return map[string][]string{"_": {err.Error()}}
	}

	fields := make(map[string][]string, len(verrs))
	for _, fe := range verrs {
		field := fe.Field()
		msg := messageFor(fe)
		if !contains(fields[field], msg) {
			fields[field] = append(fields[field], msg)
		}
	}

	return fields
}

func messageFor(fe validator.FieldError) string {
	if fe.Tag() == "imageurl" {
		if value, ok := fe.Value().(string); ok {
			if msg := checkImageURL(get(), value); msg != "" {
				return msg
			}
		}
	}
	if msg, ok := messages[fe.Field()+"."+fe.Tag()]; ok {
		return msg
	}
	if msg, ok := messages[fe.Field()]; ok {
		return msg
	}
	return fmt.Sprintf("%s is invalid.", fe.Field())
}

func contains(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}
