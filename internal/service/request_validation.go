package service

import (
	"errors"
	"reflect"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/ecocycle/ewaste-api/internal/models"
	appErrors "github.com/ecocycle/ewaste-api/pkg/errors"
)

const pickupDateLayout = "2006-01-02"

var phonePattern = regexp.MustCompile(`^\+?[0-9][0-9\s\-()]{6,19}$`)

// newRequestValidator returns a validator that knows the pickup rules. now
// anchors the not-in-the-past check to a calendar day.
func newRequestValidator(now func() time.Time) *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return field.Name
		}
		return name
	})
	_ = v.RegisterValidation("pickup_weekday", func(fl validator.FieldLevel) bool {
		date, err := time.Parse(pickupDateLayout, fl.Field().String())
		if err != nil {
			return false
		}
		day := date.Weekday()
		return day != time.Saturday && day != time.Sunday
	})
	_ = v.RegisterValidation("not_past", func(fl validator.FieldLevel) bool {
		current := now()
		date, err := time.ParseInLocation(pickupDateLayout, fl.Field().String(), current.Location())
		if err != nil {
			return false
		}
		today := time.Date(current.Year(), current.Month(), current.Day(), 0, 0, 0, 0, current.Location())
		return !date.Before(today)
	})
	_ = v.RegisterValidation("time_slot", func(fl validator.FieldLevel) bool {
		return models.IsTimeSlot(fl.Field().String())
	})
	_ = v.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
		return phonePattern.MatchString(fl.Field().String())
	})
	return v
}

var fieldMessages = map[string]map[string]string{
	"items": {
		"required": "at least one item is required",
		"min":      "at least one item is required",
		"gt":       "item quantity must be at least 1",
	},
	"preferred_date": {
		"required":       "preferred date is required",
		"datetime":       "preferred date must use the YYYY-MM-DD format",
		"pickup_weekday": "pickups are only available Monday through Friday",
		"not_past":       "preferred date cannot be in the past",
	},
	"time_slot": {
		"required":  "time slot is required",
		"time_slot": "time slot must be morning, afternoon or evening",
	},
	"contact_name": {
		"required": "contact name is required",
	},
	"contact_phone": {
		"required": "contact phone is required",
		"phone":    "contact phone is not a valid phone number",
	},
	"address": {
		"required": "pickup address is required",
	},
}

// topLevelField returns the json name of the outermost field of a validation error.
func topLevelField(fe validator.FieldError) string {
	parts := strings.Split(fe.Namespace(), ".")
	field := fe.Field()
	if len(parts) > 1 {
		field = parts[1]
	}
	if idx := strings.Index(field, "["); idx >= 0 {
		field = field[:idx]
	}
	return field
}

func fieldErrorMessage(fe validator.FieldError) *appErrors.Error {
	field := topLevelField(fe)
	tag := fe.Tag()
	if field == "items" && tag == "required" && fe.Field() == "category" {
		return appErrors.Field(field, "item category is required")
	}
	if msgs, ok := fieldMessages[field]; ok {
		if msg, ok := msgs[tag]; ok {
			return appErrors.Field(field, msg)
		}
	}
	switch tag {
	case "max":
		return appErrors.Field(field, field+" must be at most "+fe.Param()+" characters")
	case "oneof":
		return appErrors.Field(field, field+" must be one of: "+fe.Param())
	case "required":
		return appErrors.Field(field, field+" is required")
	}
	return appErrors.Field(field, field+" is invalid")
}

// firstValidationError converts validator output to the first field error in declaration order.
func firstValidationError(err error) (validator.FieldError, error) {
	if err == nil {
		return nil, nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		return verrs[0], nil
	}
	return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
}

// validatePayload runs struct validation and returns the first failure as a field error.
func validatePayload(v *validator.Validate, payload interface{}) error {
	fe, err := firstValidationError(v.Struct(payload))
	if err != nil {
		return err
	}
	if fe != nil {
		return fieldErrorMessage(fe)
	}
	return nil
}
