package config

import (
	"errors"
	"fmt"
	"strings"

	"xpost/internal/post"
)

var (
	ErrConfigIncomplete = errors.New("configuration incomplete")
	ErrInvalidField     = errors.New("invalid configuration field")
)

// ResolvedConfig is a complete, validated post configuration.
type ResolvedConfig struct {
	Strict       bool
	Title        string
	Body         string
	Kind         post.Kind
	UserName     string
	Password     string
	Destinations []string
}

// Template returns the per-destination-independent part of the post.
func (c ResolvedConfig) Template() post.Template {
	return post.Template{Kind: c.Kind, Title: c.Title, Body: c.Body}
}

// FieldError describes a present but unusable field value.
type FieldError struct {
	Field string
	Err   error
}

func (e FieldError) Error() string { return e.Field + ": " + e.Err.Error() }
func (e FieldError) Unwrap() error { return e.Err }

// ValidationError lists every gap found in a configuration at once.
type ValidationError struct {
	Missing []string
	Invalid []FieldError
}

func (e *ValidationError) Error() string {
	var parts []string
	if len(e.Missing) > 0 {
		parts = append(parts, "missing "+strings.Join(e.Missing, ", "))
	}
	for _, fe := range e.Invalid {
		parts = append(parts, fe.Error())
	}
	return "invalid configuration: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() []error {
	errs := make([]error, 0, len(e.Invalid))
	for _, fe := range e.Invalid {
		errs = append(errs, fe)
	}
	return errs
}

func (e *ValidationError) Is(target error) bool {
	switch target {
	case ErrConfigIncomplete:
		return len(e.Missing) > 0
	case ErrInvalidField:
		return len(e.Invalid) > 0
	}
	return false
}

// MissingFields lists the required fields p does not supply, in Fields order.
// Blank strings and empty destination lists count as missing.
func MissingFields(p PartialConfig) []string {
	var missing []string
	for _, f := range Fields {
		switch f {
		case FieldStrict:
			// optional, defaults to false
		case FieldDestinations:
			if len(cleanList(p.Destinations.OrElse(nil))) == 0 {
				missing = append(missing, f)
			}
		default:
			if strings.TrimSpace(stringField(p, f).OrElse("")) == "" {
				missing = append(missing, f)
			}
		}
	}
	return missing
}

// Validate turns a merged fragment into a ResolvedConfig, or reports every
// missing and invalid field in a *ValidationError.
func Validate(p PartialConfig) (ResolvedConfig, error) {
	verr := &ValidationError{Missing: MissingFields(p)}

	var kind post.Kind
	if raw, ok := p.Kind.Get(); ok && strings.TrimSpace(raw) != "" {
		k, err := post.ParseKind(raw)
		if err != nil {
			verr.Invalid = append(verr.Invalid, FieldError{Field: FieldKind, Err: err})
		}
		kind = k
	}
	if len(verr.Missing) > 0 || len(verr.Invalid) > 0 {
		return ResolvedConfig{}, verr
	}

	return ResolvedConfig{
		Strict:       p.Strict.OrElse(false),
		Title:        strings.TrimSpace(p.Title.OrElse("")),
		Body:         p.Body.OrElse(""),
		Kind:         kind,
		UserName:     strings.TrimSpace(p.UserName.OrElse("")),
		Password:     p.Password.OrElse(""),
		Destinations: cleanList(p.Destinations.OrElse(nil)),
	}, nil
}

func stringField(p PartialConfig, field string) Opt[string] {
	switch field {
	case FieldTitle:
		return p.Title
	case FieldBody:
		return p.Body
	case FieldKind:
		return p.Kind
	case FieldUserName:
		return p.UserName
	case FieldPassword:
		return p.Password
	}
	panic(fmt.Sprintf("config: %q is not a string field", field))
}

// cleanList trims entries and drops blanks, keeping order.
func cleanList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// SplitList splits a comma separated list, trimming entries and dropping blanks.
func SplitList(s string) []string {
	return cleanList(strings.Split(s, ","))
}
