// Fbxdash - Freebox Dashboard Realtime Backend
// Copyright 2026 The Fbxdash Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/fbxdash/fbxdash

// Package validation wraps go-playground/validator v10 behind a singleton
// instance and turns field errors into the VALIDATION_ERROR messages returned
// by the HTTP API.
//
//	type WakeOnLANRequest struct {
//	    MAC string `json:"mac" validate:"required,mac"`
//	}
//
//	if verr := validation.ValidateStruct(&req); verr != nil {
//	    respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", verr.Error())
//	}
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// FieldError is a single failed rule. Field is the JSON name when the struct
// field has a json tag.
type FieldError struct {
	Field   string `json:"field"`
	Tag     string `json:"tag"`
	Param   string `json:"param,omitempty"`
	Message string `json:"message"`
}

// RequestValidationError collects every failed rule of one struct.
type RequestValidationError struct {
	Fields []FieldError
}

// Error joins the field messages.
func (ve *RequestValidationError) Error() string {
	if len(ve.Fields) == 0 {
		return "validation failed"
	}
	messages := make([]string, len(ve.Fields))
	for i, f := range ve.Fields {
		messages[i] = f.Message
	}
	return strings.Join(messages, "; ")
}

// GetValidator returns the shared validator instance.
func GetValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(jsonFieldName)
	})
	return validate
}

// jsonFieldName reports json:"name" so API clients see the keys they sent.
func jsonFieldName(f reflect.StructField) string {
	name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
	switch name {
	case "-":
		return ""
	case "":
		return f.Name
	default:
		return name
	}
}

// ValidateStruct validates s. It returns nil when every rule passes.
func ValidateStruct(s interface{}) *RequestValidationError {
	err := GetValidator().Struct(s)
	if err == nil {
		return nil
	}

	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return &RequestValidationError{Fields: []FieldError{{Field: "unknown", Tag: "unknown", Message: err.Error()}}}
	}

	fields := make([]FieldError, len(validationErrs))
	for i, fe := range validationErrs {
		fields[i] = FieldError{
			Field:   fe.Field(),
			Tag:     fe.Tag(),
			Param:   fe.Param(),
			Message: message(fe),
		}
	}
	return &RequestValidationError{Fields: fields}
}

// messages renders one rule failure from field, param and whether the
// field is a string.
var messages = map[string]func(field, param string, isString bool) string{
	"required":   func(f, _ string, _ bool) string { return f + " is required" },
	"mac":        func(f, _ string, _ bool) string { return f + " must be a valid MAC address" },
	"url":        func(f, _ string, _ bool) string { return f + " must be a valid URL" },
	"hostname":   func(f, _ string, _ bool) string { return f + " must be a valid hostname" },
	"startswith": func(f, p string, _ bool) string { return fmt.Sprintf("%s must start with %q", f, p) },
	"oneof":      func(f, p string, _ bool) string { return f + " must be one of: " + p },
	"gte":        func(f, p string, _ bool) string { return f + " must be greater than or equal to " + p },
	"lte":        func(f, p string, _ bool) string { return f + " must be less than or equal to " + p },
	"gt":         func(f, p string, _ bool) string { return f + " must be greater than " + p },
	"lt":         func(f, p string, _ bool) string { return f + " must be less than " + p },
	"min": func(f, p string, isString bool) string {
		if isString {
			return f + " must be at least " + p + " characters"
		}
		return f + " must be at least " + p
	},
	"max": func(f, p string, isString bool) string {
		if isString {
			return f + " must be at most " + p + " characters"
		}
		return f + " must be at most " + p
	},
}

func message(fe validator.FieldError) string {
	if render, ok := messages[fe.Tag()]; ok {
		return render(fe.Field(), fe.Param(), fe.Kind() == reflect.String)
	}
	return fmt.Sprintf("%s failed %s validation", fe.Field(), fe.Tag())
}
