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

package endpoint

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/cappyzawa/webui-operator/internal/config"
)

// ErrNoAddress is returned when the unit has no usable IPv4 address
var ErrNoAddress = errors.New("unit has no IPv4 address")

// AddressSource reports the unit's private address as seen by the model
type AddressSource interface {
	PrivateAddress(ctx context.Context) (string, error)
}

// EndpointDeriver derives the endpoints advertised to dependent applications
type EndpointDeriver struct {
	workload  config.WorkloadConfig
	addresses AddressSource
}

// NewEndpointDeriver creates a new endpoint deriver
func NewEndpointDeriver(workload config.WorkloadConfig, addresses AddressSource) *EndpointDeriver {
	return &EndpointDeriver{
		workload:  workload,
		addresses: addresses,
	}
}

// WebuiURL returns the host:port of the configuration service. The service
// name resolves inside the model.
func (e *EndpointDeriver) WebuiURL() string {
	return HostPort(e.workload.ServiceName, e.workload.GRPCPort)
}

// ManagementURL returns the URL of the management endpoint on the unit's pod
// address.
func (e *EndpointDeriver) ManagementURL(ctx context.Context) (string, error) {
	ip, err := e.PodIP(ctx)
	if err != nil {
		return "", err
	}
	endpoint := HTTPURL(ip, e.workload.HTTPPort)
	if err := ValidateEndpoint(endpoint); err != nil {
		return "", fmt.Errorf("derived invalid management url: %w", err)
	}
	return endpoint, nil
}

// PodIP returns the unit's private address when it is an IPv4 address
func (e *EndpointDeriver) PodIP(ctx context.Context) (string, error) {
	if e.addresses == nil {
		return "", ErrNoAddress
	}
	raw, err := e.addresses.PrivateAddress(ctx)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrNoAddress, err)
	}
	ip := net.ParseIP(strings.TrimSpace(raw))
	if ip == nil || ip.To4() == nil {
		return "", fmt.Errorf("%w: %q", ErrNoAddress, raw)
	}
	return ip.To4().String(), nil
}
