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

// Package v0 contains the application databag contracts exchanged over the
// relations of the webui operator. Every type is a flat string map on the wire;
// the mapstructure tags name the databag keys and the validate tags declare the
// constraints checked when a databag is decoded.
package v0

import "strings"

// DatabaseProviderData is published by the database application once the
// requested database and its credentials have been created.
type DatabaseProviderData struct {
	// Username is the user created for this client
	Username string `mapstructure:"username" validate:"required"`

	// Password is the password of Username
	Password string `mapstructure:"password" validate:"required"`

	// URIs is a comma-delimited list of connection endpoints
	URIs string `mapstructure:"uris" validate:"required"`
}

// Endpoints splits URIs into its endpoints, preserving the order in which the
// provider listed them. Blank elements are dropped.
func (d DatabaseProviderData) Endpoints() []string {
	parts := strings.Split(d.URIs, ",")
	endpoints := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			endpoints = append(endpoints, p)
		}
	}
	return endpoints
}

// PrimaryEndpoint returns the first listed endpoint, or "" when none is listed.
func (d DatabaseProviderData) PrimaryEndpoint() string {
	endpoints := d.Endpoints()
	if len(endpoints) == 0 {
		return ""
	}
	return endpoints[0]
}

// DatabaseRequestData is written by the requiring application to ask the
// database application for a database.
type DatabaseRequestData struct {
	// Database is the name of the requested database
	Database string `mapstructure:"database" validate:"required"`

	// ExtraUserRoles are additional roles granted to the created user
	// +optional
	ExtraUserRoles string `mapstructure:"extra-user-roles,omitempty"`
}
