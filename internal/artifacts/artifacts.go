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

// Package artifacts renders the configuration files of the workload from a
// dependency snapshot. Every builder is pure: identical inputs, in any
// relation order, yield byte-identical content.
package artifacts

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"path"
	"strings"
	"text/template"

	"k8s.io/apimachinery/pkg/api/equality"

	v0 "github.com/cappyzawa/webui-operator/api/v0"
	"github.com/cappyzawa/webui-operator/internal/config"
	"github.com/cappyzawa/webui-operator/internal/dependency"
)

//go:embed templates/*.tmpl
var templates embed.FS

// Artifact is a configuration file derived from dependency payloads
type Artifact struct {
	// Path is the destination of the file in the workload
	Path string
	// Content is the canonical serialized content
	Content string
	// DerivedFrom lists the dependencies Content is a function of
	DerivedFrom []string
}

// Bytes returns Content as a byte slice
func (a Artifact) Bytes() []byte {
	return []byte(a.Content)
}

// PreconditionError is returned when an artifact is built while one of its
// dependencies is unavailable.
type PreconditionError struct {
	Artifact   string
	Dependency string
}

func (e *PreconditionError) Error() string {
	return fmt.Sprintf("cannot build %s: dependency %s is not available", e.Artifact, e.Dependency)
}

// primaryValues are substituted into the primary configuration template
type primaryValues struct {
	CommonDatabaseName string
	CommonDatabaseURL  string
	AuthDatabaseName   string
	AuthDatabaseURL    string
}

// Builder renders the workload's artifacts
type Builder struct {
	cfg     *config.OperatorConfig
	primary *template.Template
}

// NewBuilder parses the embedded templates
func NewBuilder(cfg *config.OperatorConfig) (*Builder, error) {
	tmpl, err := template.New("webuicfg.conf.tmpl").Option("missingkey=error").ParseFS(templates, "templates/webuicfg.conf.tmpl")
	if err != nil {
		return nil, fmt.Errorf("failed to parse template: %w", err)
	}
	return &Builder{cfg: cfg, primary: tmpl}, nil
}

// BuildPrimaryConfig renders the primary configuration file from the common
// and auth databases. It fails with a PreconditionError when either database
// is unavailable and never returns partial content.
func (b *Builder) BuildPrimaryConfig(deps dependency.Set) (Artifact, error) {
	p := b.cfg.Workload.ConfigPath()
	common := b.cfg.Relations.CommonDatabase
	auth := b.cfg.Relations.AuthDatabase

	commonURL, err := databaseURL(deps, p, common)
	if err != nil {
		return Artifact{}, err
	}
	authURL, err := databaseURL(deps, p, auth)
	if err != nil {
		return Artifact{}, err
	}

	var buf bytes.Buffer
	if err := b.primary.Execute(&buf, primaryValues{
		CommonDatabaseName: b.cfg.Databases.CommonName,
		CommonDatabaseURL:  commonURL,
		AuthDatabaseName:   b.cfg.Databases.AuthName,
		AuthDatabaseURL:    authURL,
	}); err != nil {
		return Artifact{}, fmt.Errorf("failed to render %s: %w", p, err)
	}

	return Artifact{
		Path:        p,
		Content:     buf.String(),
		DerivedFrom: []string{common, auth},
	}, nil
}

// databaseURL returns the first listed endpoint of the named database
func databaseURL(deps dependency.Set, artifact, name string) (string, error) {
	data, ok := dependency.PayloadOf[v0.DatabaseProviderData](deps, name)
	if !ok {
		return "", &PreconditionError{Artifact: artifact, Dependency: name}
	}
	url := data.PrimaryEndpoint()
	if url == "" {
		return "", &PreconditionError{Artifact: artifact, Dependency: name}
	}
	return url, nil
}

// ContentEqual reports whether persisted content matches desired content.
// JSON artifacts compare by value so formatting differences do not count;
// anything else compares byte for byte. Unparseable JSON never matches.
func ContentEqual(p string, persisted, desired []byte) bool {
	if !strings.EqualFold(path.Ext(p), ".json") {
		return bytes.Equal(persisted, desired)
	}
	var have, want any
	if err := json.Unmarshal(persisted, &have); err != nil {
		return false
	}
	if err := json.Unmarshal(desired, &want); err != nil {
		return false
	}
	return equality.Semantic.DeepEqual(have, want)
}
