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

// ManagementEndpointData is the provider side of the sdcore_management interface.
type ManagementEndpointData struct {
	// ManagementURL is the absolute URL of the network management endpoint
	ManagementURL string `mapstructure:"management_url" validate:"required,url"`
}

// WebuiEndpointData is the provider side of the sdcore_config interface.
type WebuiEndpointData struct {
	// WebuiURL is the host:port of the configuration service
	WebuiURL string `mapstructure:"webui_url" validate:"required,hostname_port"`
}

// N4ProviderData is the provider side of the fiveg_n4 interface, published by
// each UPF.
type N4ProviderData struct {
	// UPFHostname is the name of the host exposing the UPF's N4 interface
	UPFHostname string `mapstructure:"upf_hostname" validate:"required"`

	// UPFPort is the port on which the N4 interface is exposed
	UPFPort int `mapstructure:"upf_port" validate:"required,min=1,max=65535"`
}

// GnbIdentityData is the provider side of the fiveg_gnb_identity interface,
// published by each gNodeB.
type GnbIdentityData struct {
	// GnbName is the name of the gNodeB
	GnbName string `mapstructure:"gnb_name" validate:"required"`

	// TAC is the decimal tracking area code served by the gNodeB. Zero is a
	// valid code.
	TAC string `mapstructure:"tac" validate:"required,number"`
}
