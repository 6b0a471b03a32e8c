/*
Copyright 2025.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package schema decodes, validates and encodes relation databags against the
// typed contracts in api/v0.
package schema

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
)

const keyTag = "mapstructure"

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report databag keys instead of Go field names
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get(keyTag), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return fld.Name
		}
		return name
	})
	return v
}

// Kind returns the contract name used in logs and errors for T.
func Kind[T any]() string {
	var zero T
	return reflect.TypeOf(zero).Name()
}

// Validate decodes raw into a T and checks the constraints declared on T.
// Keys not declared by T are ignored.
func Validate[T any](raw map[string]string) (T, error) {
	var out T
	kind := Kind[T]()

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          keyTag,
		WeaklyTypedInput: true,
		Result:           &out,
	})
	if err != nil {
		return out, fmt.Errorf("failed to create decoder for %s: %w", kind, err)
	}

	if err := decoder.Decode(raw); err != nil {
		var zero T
		return zero, &ValidationError{Kind: kind, Cause: err}
	}

	if err := check(kind, out); err != nil {
		var zero T
		return zero, err
	}
	return out, nil
}

// Encode validates payload and flattens it into a databag. It is the dual of
// Validate: Validate(Encode(x)) yields x for every x that Validate accepts.
func Encode[T any](payload T) (map[string]string, error) {
	kind := Kind[T]()
	if err := check(kind, payload); err != nil {
		return nil, err
	}

	fields := map[string]interface{}{}
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName: keyTag,
		Result:  &fields,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create encoder for %s: %w", kind, err)
	}
	if err := decoder.Decode(payload); err != nil {
		return nil, fmt.Errorf("failed to encode %s: %w", kind, err)
	}

	out := make(map[string]string, len(fields))
	for key, value := range fields {
		out[key] = fmt.Sprint(value)
	}
	return out, nil
}

// Canonical renders a databag as a stable string, sorted by key. It is used to
// compare payloads without depending on map ordering.
func Canonical(data map[string]string) string {
	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(data[k])
		b.WriteByte('\n')
	}
	return b.String()
}

func check(kind string, payload interface{}) error {
	err := validate.Struct(payload)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return &ValidationError{Kind: kind, Cause: err}
	}

	verr := &ValidationError{Kind: kind}
	for _, fe := range fieldErrs {
		verr.Fields = append(verr.Fields, FieldError{
			Key:   fe.Field(),
			Rule:  fe.Tag(),
			Param: fe.Param(),
		})
	}
	return verr
}
