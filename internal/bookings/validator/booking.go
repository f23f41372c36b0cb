package validator

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"time"

	"reservations/pkg/logger"
	"reservations/pkg/model"

	"github.com/go-playground/validator/v10"
)

const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04"

	ContactMessage = "Contact must be a valid 10-digit phone number."
)

var (
	contactRegex = regexp.MustCompile(`^[0-9]{10}$`)
	clockRegex   = regexp.MustCompile(`^([01][0-9]|2[0-3]):[0-5][0-9]$`)
)

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (v ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", v.Field, v.Message)
}

type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	if len(v) == 0 {
		return ""
	}
	return fmt.Sprintf("validation failed: %d error(s): [%s]", len(v), strings.Join(v.Messages(), "; "))
}

// Messages returns the human readable message of every violation, in field order.
func (v ValidationErrors) Messages() []string {
	messages := make([]string, 0, len(v))
	for _, err := range v {
		messages = append(messages, err.Message)
	}
	return messages
}

type BookingValidator struct {
	validate   *validator.Validate
	logger     *logger.Logger
	fieldOrder []string
}

func NewBookingValidator(log *logger.Logger) *BookingValidator {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return field.Name
		}
		return name
	})

	if err := v.RegisterValidation("contact", validateContact); err != nil {
		log.Fatal("Failed to register 'contact' validator", "error", err)
	}
	if err := v.RegisterValidation("clock", validateClock); err != nil {
		log.Fatal("Failed to register 'clock' validator", "error", err)
	}

	log.Info("Booking validator initialized successfully")

	return &BookingValidator{
		validate:   v,
		logger:     log,
		fieldOrder: jsonFieldOrder(reflect.TypeOf(model.BookingInput{})),
	}
}

func jsonFieldOrder(t reflect.Type) []string {
	order := make([]string, 0, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		name := strings.SplitN(t.Field(i).Tag.Get("json"), ",", 2)[0]
		if name != "" && name != "-" {
			order = append(order, name)
		}
	}
	return order
}

// TypeViolation is the message for a field whose JSON value cannot be stored in target.
func TypeViolation(field string, target reflect.Type) string {
	for target.Kind() == reflect.Pointer {
		target = target.Elem()
	}
	switch target.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return fmt.Sprintf("%s must be a whole number", field)
	case reflect.Float32, reflect.Float64:
		return fmt.Sprintf("%s must be a number", field)
	case reflect.String:
		return fmt.Sprintf("%s must be a string", field)
	case reflect.Bool:
		return fmt.Sprintf("%s must be a boolean", field)
	}
	return fmt.Sprintf("%s has an invalid type", field)
}

func validateContact(fl validator.FieldLevel) bool {
	return contactRegex.MatchString(fl.Field().String())
}

func validateClock(fl validator.FieldLevel) bool {
	return clockRegex.MatchString(fl.Field().String())
}

// Validate checks every field of the input and returns all violations at once.
func (v *BookingValidator) Validate(in *model.BookingInput) error {
	if in == nil {
		return ValidationErrors{{Field: "body", Message: "request body is required"}}
	}

	var ruleErrs ValidationErrors
	if err := v.validate.Struct(in); err != nil {
		var validationErrs validator.ValidationErrors
		if !errors.As(err, &validationErrs) {
			return err
		}
		ruleErrs = v.translateValidationErrors(validationErrs)
	}

	if len(in.TypeErrors) == 0 {
		if len(ruleErrs) == 0 {
			return nil
		}
		return ruleErrs
	}
	return v.mergeTypeErrors(in.TypeErrors, ruleErrs)
}

// mergeTypeErrors puts type violations in field order. A field with a type
// violation keeps only that one, since its zero value would also fail the rules.
func (v *BookingValidator) mergeTypeErrors(typeErrs map[string]string, ruleErrs ValidationErrors) ValidationErrors {
	merged := make(ValidationErrors, 0, len(typeErrs)+len(ruleErrs))
	for _, field := range v.fieldOrder {
		if message, ok := typeErrs[field]; ok {
			merged = append(merged, ValidationError{Field: field, Message: message})
			continue
		}
		for _, ruleErr := range ruleErrs {
			if ruleErr.Field == field {
				merged = append(merged, ruleErr)
			}
		}
	}
	return merged
}

// SlotInstant combines a booking's date and time into one instant in loc.
func SlotInstant(date, clock string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	instant, err := time.ParseInLocation(DateLayout+"T"+TimeLayout, date+"T"+clock, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid booking date/time %q %q: %w", date, clock, err)
	}
	return instant, nil
}

func (v *BookingValidator) translateValidationErrors(errs validator.ValidationErrors) ValidationErrors {
	var validationErrors ValidationErrors

	for _, err := range errs {
		message := err.Error()
		field := err.Field()

		switch err.Tag() {
		case "required":
			message = fmt.Sprintf("%s is required", field)
		case "min":
			if err.Kind() == reflect.String {
				message = fmt.Sprintf("%s must be at least %s characters long", field, err.Param())
			} else {
				message = fmt.Sprintf("%s must be at least %s", field, err.Param())
			}
		case "max":
			if err.Kind() == reflect.String {
				message = fmt.Sprintf("%s must be at most %s characters long", field, err.Param())
			} else {
				message = fmt.Sprintf("%s must be at most %s", field, err.Param())
			}
		case "email":
			message = fmt.Sprintf("%s must be a valid email", field)
		case "contact":
			message = ContactMessage
		case "datetime":
			message = fmt.Sprintf("%s must be a valid calendar date in YYYY-MM-DD format", field)
		case "clock":
			message = fmt.Sprintf("%s must be a valid time of day in HH:MM format", field)
		}

		validationErrors = append(validationErrors, ValidationError{
			Field:   field,
			Message: message,
		})
	}

	return validationErrors
}
