package validation

import (
	"reflect"
	"regexp"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
)

var (
	// Letters, digits, spaces and common punctuation found in trade and company names
	nameRegex = regexp.MustCompile(`^[\p{L}0-9 .'/&(),-]+$`)

	// Australian numbers are written with spaces; strip them before matching
	phoneRegex = regexp.MustCompile(`^\+?[0-9]{8,15}$`)
)

// New returns a validator with the custom tags registered and field names
// reported by their json tag, so errors line up with request bodies.
func New() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(jsonFieldName)
	RegisterValidators(v)
	return v
}

// RegisterValidators registers custom validators to the validator instance
func RegisterValidators(v *validator.Validate) {
	_ = v.RegisterValidation("valid_name", ValidName)
	_ = v.RegisterValidation("valid_phone", ValidPhone)
	_ = v.RegisterValidation("no_emoji", NoEmoji)
	_ = v.RegisterValidation("lat", Latitude)
	_ = v.RegisterValidation("lng", Longitude)
}

func jsonFieldName(fld reflect.StructField) string {
	name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
	if name == "-" {
		return ""
	}
	if name == "" {
		name = strings.SplitN(fld.Tag.Get("form"), ",", 2)[0]
	}
	if name == "" {
		return fld.Name
	}
	return name
}

// ValidName validates that a string contains only valid name characters
func ValidName(fl validator.FieldLevel) bool {
	val := fl.Field().String()
	if val == "" {
		return true // Optional, use required if needed
	}
	return nameRegex.MatchString(val)
}

// ValidPhone accepts an optional leading + and 8 to 15 digits, ignoring spaces.
func ValidPhone(fl validator.FieldLevel) bool {
	val := strings.ReplaceAll(fl.Field().String(), " ", "")
	if val == "" {
		return true
	}
	return phoneRegex.MatchString(val)
}

// NoEmoji validates that a string does not contain emoji characters
func NoEmoji(fl validator.FieldLevel) bool {
	for _, r := range fl.Field().String() {
		if r > 0x1F000 {
			return false
		}
		if unicode.In(r, unicode.So, unicode.Sk) {
			return false
		}
	}
	return true
}

// Latitude accepts float fields (or pointers to them) within [-90, 90].
func Latitude(fl validator.FieldLevel) bool {
	return inRange(fl.Field(), 90)
}

// Longitude accepts float fields (or pointers to them) within [-180, 180].
func Longitude(fl validator.FieldLevel) bool {
	return inRange(fl.Field(), 180)
}

func inRange(f reflect.Value, limit float64) bool {
	switch f.Kind() {
	case reflect.Float32, reflect.Float64:
		v := f.Float()
		return v >= -limit && v <= limit
	case reflect.Int, reflect.Int32, reflect.Int64:
		v := float64(f.Int())
		return v >= -limit && v <= limit
	default:
		return false
	}
}
