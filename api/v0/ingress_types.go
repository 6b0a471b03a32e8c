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

package v0

import "encoding/json"

// IngressRequirerData is the requirer side of the ingress interface, version
// 2. Every value is JSON encoded on the wire, so the string fields carry
// quoted literals.
type IngressRequirerData struct {
	// Model is the JSON string of the model the application runs in
	Model string `mapstructure:"model" validate:"required"`

	// Name is the JSON string of the application name
	Name string `mapstructure:"name" validate:"required"`

	// Port is the port the ingress routes to on every unit
	Port int `mapstructure:"port" validate:"required,min=1,max=65535"`

	// StripPrefix removes the route prefix before forwarding
	StripPrefix bool `mapstructure:"strip-prefix"`
}

// NewIngressRequirerData returns the request routing port of application app
// in model, with the route prefix stripped.
func NewIngressRequirerData(model, app string, port int) IngressRequirerData {
	return IngressRequirerData{
		Model:       jsonString(model),
		Name:        jsonString(app),
		Port:        port,
		StripPrefix: true,
	}
}

func jsonString(s string) string {
	if s == "" {
		return ""
	}
	// Marshaling a string cannot fail
	data, _ := json.Marshal(s)
	return string(data)
}
