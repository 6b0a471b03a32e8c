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

package config

import (
	"path"
	"strings"

	"k8s.io/apimachinery/pkg/util/validation"
	"k8s.io/apimachinery/pkg/util/validation/field"
)

// Validator validates the operator configuration
type Validator struct{}

// NewValidator creates a new configuration validator
func NewValidator() *Validator {
	return &Validator{}
}

// Validate validates the operator configuration
func (v *Validator) Validate(config *OperatorConfig) error {
	var allErrs field.ErrorList

	allErrs = append(allErrs, v.validateRelations(&config.Relations, field.NewPath("relations"))...)
	allErrs = append(allErrs, v.validateDatabases(&config.Databases, field.NewPath("databases"))...)
	allErrs = append(allErrs, v.validateWorkload(&config.Workload, field.NewPath("workload"))...)

	if len(allErrs) > 0 {
		return allErrs.ToAggregate()
	}

	return nil
}

// validateRelations checks that every endpoint is named once
func (v *Validator) validateRelations(r *RelationConfig, fldPath *field.Path) field.ErrorList {
	var allErrs field.ErrorList

	names := []struct {
		field string
		value string
	}{
		{"commonDatabase", r.CommonDatabase},
		{"authDatabase", r.AuthDatabase},
		{"fivegN4", r.FivegN4},
		{"gnbIdentity", r.GnbIdentity},
		{"sdcoreConfig", r.SdcoreConfig},
		{"sdcoreManagement", r.SdcoreManagement},
		{"ingress", r.Ingress},
	}

	seen := make(map[string]bool, len(names))
	for _, n := range names {
		p := fldPath.Child(n.field)
		if n.value == "" {
			allErrs = append(allErrs, field.Required(p, "relation name is required"))
			continue
		}
		// endpoint names are DNS labels with underscores allowed
		if errs := validation.IsDNS1123Label(strings.ReplaceAll(n.value, "_", "-")); len(errs) > 0 {
			allErrs = append(allErrs, field.Invalid(p, n.value, strings.Join(errs, "; ")))
		}
		if seen[n.value] {
			allErrs = append(allErrs, field.Duplicate(p, n.value))
		}
		seen[n.value] = true
	}

	return allErrs
}

func (v *Validator) validateDatabases(d *DatabaseConfig, fldPath *field.Path) field.ErrorList {
	var allErrs field.ErrorList

	if d.CommonName == "" {
		allErrs = append(allErrs, field.Required(fldPath.Child("commonName"), "database name is required"))
	}
	if d.AuthName == "" {
		allErrs = append(allErrs, field.Required(fldPath.Child("authName"), "database name is required"))
	}
	if d.CommonName != "" && d.CommonName == d.AuthName {
		allErrs = append(allErrs, field.Duplicate(fldPath.Child("authName"), d.AuthName))
	}

	return allErrs
}

func (v *Validator) validateWorkload(w *WorkloadConfig, fldPath *field.Path) field.ErrorList {
	var allErrs field.ErrorList

	for _, n := range []struct {
		field string
		value string
	}{
		{"containerName", w.ContainerName},
		{"serviceName", w.ServiceName},
		{"storageName", w.StorageName},
	} {
		if errs := validation.IsDNS1123Label(n.value); len(errs) > 0 {
			allErrs = append(allErrs, field.Invalid(fldPath.Child(n.field), n.value, strings.Join(errs, "; ")))
		}
	}

	for _, p := range []struct {
		field string
		value string
	}{
		{"configDir", w.ConfigDir},
		{"versionFile", w.VersionFile},
	} {
		if !path.IsAbs(p.value) {
			allErrs = append(allErrs, field.Invalid(fldPath.Child(p.field), p.value, "must be an absolute path"))
		}
	}

	files := map[string]bool{}
	for _, f := range []struct {
		field string
		value string
	}{
		{"configFile", w.ConfigFile},
		{"upfConfigFile", w.UPFConfigFile},
		{"gnbConfigFile", w.GNBConfigFile},
	} {
		p := fldPath.Child(f.field)
		if strings.Contains(f.value, "/") {
			allErrs = append(allErrs, field.Invalid(p, f.value, "must be a file name, not a path"))
		}
		if files[f.value] {
			allErrs = append(allErrs, field.Duplicate(p, f.value))
		}
		files[f.value] = true
	}

	for _, port := range []struct {
		field string
		value int
	}{
		{"grpcPort", w.GRPCPort},
		{"httpPort", w.HTTPPort},
	} {
		if errs := validation.IsValidPortNum(port.value); len(errs) > 0 {
			allErrs = append(allErrs, field.Invalid(fldPath.Child(port.field), port.value, strings.Join(errs, "; ")))
		}
	}
	if w.GRPCPort == w.HTTPPort {
		allErrs = append(allErrs, field.Duplicate(fldPath.Child("httpPort"), w.HTTPPort))
	}

	return allErrs
}
