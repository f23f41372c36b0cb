package validator

import (
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"reservations/pkg/logger"
	"reservations/pkg/model"
)

func intPtr(n int) *int { return &n }

func validInput() *model.BookingInput {
	return &model.BookingInput{
		Date:    "2999-01-01",
		Time:    "19:00",
		Guests:  intPtr(2),
		Name:    "Alex",
		Contact: "1234567890",
		Email:   "a@b.com",
	}
}

func newValidator() *BookingValidator {
	return NewBookingValidator(logger.Discard())
}

func violations(t *testing.T, err error) ValidationErrors {
	t.Helper()
	var verrs ValidationErrors
	if !errors.As(err, &verrs) {
		t.Fatalf("expected ValidationErrors, got %T: %v", err, err)
	}
	return verrs
}

func TestValidate_Valid(t *testing.T) {
	if err := newValidator().Validate(validInput()); err != nil {
		t.Fatalf("expected valid input, got: %v", err)
	}
}

func TestValidate_SingleField(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*model.BookingInput)
		wantField string
		wantMsg   string
	}{
		{"missing date", func(in *model.BookingInput) { in.Date = "" }, "date", "date is required"},
		{"bad date", func(in *model.BookingInput) { in.Date = "01/01/2999" }, "date", "YYYY-MM-DD"},
		{"impossible date", func(in *model.BookingInput) { in.Date = "2999-02-30" }, "date", "YYYY-MM-DD"},
		{"missing time", func(in *model.BookingInput) { in.Time = "" }, "time", "time is required"},
		{"bad time", func(in *model.BookingInput) { in.Time = "25:00" }, "time", "HH:MM"},
		{"time with seconds", func(in *model.BookingInput) { in.Time = "19:00:00" }, "time", "HH:MM"},
		{"missing guests", func(in *model.BookingInput) { in.Guests = nil }, "guests", "guests is required"},
		{"zero guests", func(in *model.BookingInput) { in.Guests = intPtr(0) }, "guests", "guests must be at least 1"},
		{"negative guests", func(in *model.BookingInput) { in.Guests = intPtr(-3) }, "guests", "guests must be at least 1"},
		{"short name", func(in *model.BookingInput) { in.Name = "Al" }, "name", "at least 3 characters"},
		{"long name", func(in *model.BookingInput) { in.Name = strings.Repeat("a", 101) }, "name", "at most 100 characters"},
		{"contact too short", func(in *model.BookingInput) { in.Contact = "12345" }, "contact", ContactMessage},
		{"contact too long", func(in *model.BookingInput) { in.Contact = "12345678901" }, "contact", ContactMessage},
		{"contact letters", func(in *model.BookingInput) { in.Contact = "abcdefghij" }, "contact", ContactMessage},
		{"contact dashes", func(in *model.BookingInput) { in.Contact = "123-456-78" }, "contact", ContactMessage},
		{"contact plus", func(in *model.BookingInput) { in.Contact = "+123456789" }, "contact", ContactMessage},
		{"contact spaces", func(in *model.BookingInput) { in.Contact = "12345 6789" }, "contact", ContactMessage},
		{"missing contact", func(in *model.BookingInput) { in.Contact = "" }, "contact", "contact is required"},
		{"bad email", func(in *model.BookingInput) { in.Email = "not-an-email" }, "email", "email must be a valid email"},
		{"missing email", func(in *model.BookingInput) { in.Email = "" }, "email", "email is required"},
	}

	v := newValidator()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := validInput()
			tt.mutate(in)

			verrs := violations(t, v.Validate(in))
			if len(verrs) != 1 {
				t.Fatalf("expected exactly one violation, got %v", verrs)
			}
			if verrs[0].Field != tt.wantField {
				t.Errorf("field = %q, want %q", verrs[0].Field, tt.wantField)
			}
			if !strings.Contains(verrs[0].Message, tt.wantMsg) {
				t.Errorf("message = %q, want it to contain %q", verrs[0].Message, tt.wantMsg)
			}
		})
	}
}

func TestValidate_CollectsEveryViolation(t *testing.T) {
	in := &model.BookingInput{
		Date:    "2999-01-01",
		Name:    "Al",
		Contact: "12345",
		Email:   "nope",
	}

	verrs := violations(t, newValidator().Validate(in))

	wantFields := []string{"time", "guests", "name", "contact", "email"}
	if len(verrs) != len(wantFields) {
		t.Fatalf("expected %d violations, got %d: %v", len(wantFields), len(verrs), verrs)
	}
	for i, field := range wantFields {
		if verrs[i].Field != field {
			t.Errorf("violation %d field = %q, want %q", i, verrs[i].Field, field)
		}
	}
	if msgs := verrs.Messages(); msgs[3] != ContactMessage {
		t.Errorf("expected contact message in position 3, got %v", msgs)
	}
}

func TestValidate_TypeErrorsMergedInFieldOrder(t *testing.T) {
	in := validInput()
	in.Guests = nil
	in.Name = "Al"
	in.Email = "nope"
	in.TypeErrors = map[string]string{
		"email":  TypeViolation("email", reflect.TypeOf("")),
		"guests": TypeViolation("guests", reflect.TypeOf(intPtr(0))),
	}

	got := violations(t, newValidator().Validate(in)).Messages()
	want := []string{
		"guests must be a whole number",
		"name must be at least 3 characters long",
		"email must be a string",
	}
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Errorf("Messages() = %v, want %v", got, want)
	}
}

func TestValidate_TypeErrorOnly(t *testing.T) {
	in := validInput()
	in.Guests = nil
	in.TypeErrors = map[string]string{"guests": "guests must be a whole number"}

	got := violations(t, newValidator().Validate(in))
	if len(got) != 1 || got[0].Field != "guests" {
		t.Errorf("expected a single guests violation, got %v", got)
	}
}

func TestValidate_NilInput(t *testing.T) {
	verrs := violations(t, newValidator().Validate(nil))
	if len(verrs) != 1 || verrs[0].Field != "body" {
		t.Errorf("unexpected violations for nil input: %v", verrs)
	}
}

func TestSlotInstant(t *testing.T) {
	loc := time.FixedZone("UTC+2", 2*60*60)

	got, err := SlotInstant("2999-01-01", "19:00", loc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := time.Date(2999, 1, 1, 17, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("SlotInstant = %v, want %v", got, want)
	}

	if _, err := SlotInstant("2999-01-01", "7pm", loc); err == nil {
		t.Error("expected error for malformed time")
	}
}

func TestValidationErrors_Error(t *testing.T) {
	verrs := ValidationErrors{
		{Field: "name", Message: "name is required"},
		{Field: "email", Message: "email is required"},
	}
	got := verrs.Error()
	if !strings.Contains(got, "2 error(s)") || !strings.Contains(got, "name is required; email is required") {
		t.Errorf("unexpected Error(): %s", got)
	}
	if (ValidationErrors{}).Error() != "" {
		t.Error("empty ValidationErrors should render as empty string")
	}
}
