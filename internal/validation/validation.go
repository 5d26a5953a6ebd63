package validation

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"

	"ragquery/internal/domain"
)

// messages maps "<field>.<tag>" to the message reported for a failed rule.
var messages = map[string]string{
	"query.required": "Query must not be blank",
	"query.notblank": "Query must not be blank",
	"query.max":      "Query must not exceed 2000 characters",
	"maxSources.min": "maxSources must be at least 1",
	"maxSources.max": "maxSources must not exceed 50",
	"maxTokens.min":  "maxTokens must be at least 1",
	"body.json":      "Request body must be a valid JSON object",
	"body.required":  "Request body is required",
}

// Validator checks request DTOs using struct tags.
type Validator struct {
	validate *validator.Validate
}

func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("notblank", validators.NotBlank)
	// report json names so details keys match the wire format
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &Validator{validate: v}
}

// DecodeQuery reads and validates a query request body. Any problem is
// returned as *domain.ValidationError.
func (v *Validator) DecodeQuery(r io.Reader) (domain.QueryRequest, error) {
	var req domain.QueryRequest

	dec := json.NewDecoder(r)
	if err := dec.Decode(&req); err != nil {
		return req, decodeError(err)
	}

	return req, v.ValidateQuery(req)
}

// ValidateQuery checks an already decoded request.
func (v *Validator) ValidateQuery(req domain.QueryRequest) error {
	err := v.validate.Struct(req)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validate request: %w", err)
	}

	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[fe.Field()] = message(fe.Field(), fe.Tag(), fe.Param())
	}
	return &domain.ValidationError{Fields: fields}
}

func message(field, tag, param string) string {
	if msg, ok := messages[field+"."+tag]; ok {
		return msg
	}
	if param != "" {
		return fmt.Sprintf("%s failed %s=%s", field, tag, param)
	}
	return fmt.Sprintf("%s failed %s", field, tag)
}

func decodeError(err error) error {
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) && typeErr.Field != "" {
		return &domain.ValidationError{Fields: map[string]string{
			typeErr.Field: fmt.Sprintf("%s must be a %s", typeErr.Field, typeErr.Type.Kind()),
		}}
	}
	if errors.Is(err, io.EOF) {
		return &domain.ValidationError{Fields: map[string]string{"body": messages["body.required"]}}
	}
	return &domain.ValidationError{Fields: map[string]string{"body": messages["body.json"]}}
}
