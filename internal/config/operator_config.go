// Package config provides configuration management for the webui operator
package config

import (
	"fmt"
	"path"
	"time"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

// OperatorConfig contains the settings of the webui operator
type OperatorConfig struct {
	// Relations names the relation endpoints the operator uses
	Relations RelationConfig `json:"relations" yaml:"relations"`

	// Databases configures the databases requested from the database application
	Databases DatabaseConfig `json:"databases" yaml:"databases"`

	// Workload describes the managed container and its files
	Workload WorkloadConfig `json:"workload" yaml:"workload"`

	// Dispatch configures how triggers are queued
	Dispatch DispatchConfig `json:"dispatch" yaml:"dispatch"`

	// Features defines feature flags for optional functionality
	Features FeatureConfig `json:"features" yaml:"features"`
}

// RelationConfig names the relation endpoints
type RelationConfig struct {
	CommonDatabase   string `json:"commonDatabase" yaml:"commonDatabase"`
	AuthDatabase     string `json:"authDatabase" yaml:"authDatabase"`
	FivegN4          string `json:"fivegN4" yaml:"fivegN4"`
	GnbIdentity      string `json:"gnbIdentity" yaml:"gnbIdentity"`
	SdcoreConfig     string `json:"sdcoreConfig" yaml:"sdcoreConfig"`
	SdcoreManagement string `json:"sdcoreManagement" yaml:"sdcoreManagement"`
	Ingress          string `json:"ingress" yaml:"ingress"`
}

// RequiredDatabases returns the database relations in gate order
func (r RelationConfig) RequiredDatabases() []string {
	return []string{r.CommonDatabase, r.AuthDatabase}
}

// DatabaseConfig names the requested databases
type DatabaseConfig struct {
	// CommonName is the database holding the network configuration
	CommonName string `json:"commonName" yaml:"commonName"`

	// AuthName is the database holding the authentication keys
	AuthName string `json:"authName" yaml:"authName"`

	// ExtraUserRoles is requested for both database users
	ExtraUserRoles string `json:"extraUserRoles" yaml:"extraUserRoles"`
}

// WorkloadConfig describes the workload container
type WorkloadConfig struct {
	// ContainerName is the workload container name
	ContainerName string `json:"containerName" yaml:"containerName"`

	// ServiceName is the supervised service name
	ServiceName string `json:"serviceName" yaml:"serviceName"`

	// StorageName is the storage mount holding ConfigDir
	StorageName string `json:"storageName" yaml:"storageName"`

	// ConfigDir is where the configuration files are written
	ConfigDir string `json:"configDir" yaml:"configDir"`

	ConfigFile    string `json:"configFile" yaml:"configFile"`
	UPFConfigFile string `json:"upfConfigFile" yaml:"upfConfigFile"`
	GNBConfigFile string `json:"gnbConfigFile" yaml:"gnbConfigFile"`

	// VersionFile holds the workload version inside the container
	VersionFile string `json:"versionFile" yaml:"versionFile"`

	// GRPCPort serves the configuration service
	GRPCPort int `json:"grpcPort" yaml:"grpcPort"`

	// HTTPPort serves the management UI and API
	HTTPPort int `json:"httpPort" yaml:"httpPort"`

	// PebbleSocket overrides the supervisor socket path
	// +optional
	PebbleSocket string `json:"pebbleSocket,omitempty" yaml:"pebbleSocket,omitempty"`

	// ChangeTimeout bounds waits on supervisor changes
	ChangeTimeout metav1.Duration `json:"changeTimeout" yaml:"changeTimeout"`
}

// ConfigPath returns the primary configuration file path
func (w WorkloadConfig) ConfigPath() string {
	return path.Join(w.ConfigDir, w.ConfigFile)
}

// UPFConfigPath returns the UPF inventory file path
func (w WorkloadConfig) UPFConfigPath() string {
	return path.Join(w.ConfigDir, w.UPFConfigFile)
}

// GNBConfigPath returns the gNodeB inventory file path
func (w WorkloadConfig) GNBConfigPath() string {
	return path.Join(w.ConfigDir, w.GNBConfigFile)
}

// Socket returns the supervisor socket, defaulting to the charm container mount.
func (w WorkloadConfig) Socket() string {
	if w.PebbleSocket != "" {
		return w.PebbleSocket
	}
	return fmt.Sprintf("/charm/containers/%s/pebble.socket", w.ContainerName)
}

// DispatchConfig defines how triggers are processed
type DispatchConfig struct {
	// UpdateStatusInterval is the period of the synthetic update-status trigger
	UpdateStatusInterval metav1.Duration `json:"updateStatusInterval" yaml:"updateStatusInterval"`

	// PassTimeout bounds a single reconciliation pass
	PassTimeout metav1.Duration `json:"passTimeout" yaml:"passTimeout"`
}

// FeatureConfig defines feature flags for optional functionality
type FeatureConfig struct {
	// EnableDetailedLogging enables verbose logging for debugging
	EnableDetailedLogging bool `json:"enableDetailedLogging" yaml:"enableDetailedLogging"`

	// EnableMetrics enables metrics collection
	EnableMetrics bool `json:"enableMetrics" yaml:"enableMetrics"`
}

// DefaultOperatorConfig returns an OperatorConfig with the charm defaults
func DefaultOperatorConfig() *OperatorConfig {
	return &OperatorConfig{
		Relations: RelationConfig{
			CommonDatabase:   "common_database",
			AuthDatabase:     "auth_database",
			FivegN4:          "fiveg_n4",
			GnbIdentity:      "fiveg_gnb_identity",
			SdcoreConfig:     "sdcore-config",
			SdcoreManagement: "sdcore-management",
			Ingress:          "ingress",
		},
		Databases: DatabaseConfig{
			CommonName:     "free5gc",
			AuthName:       "authentication",
			ExtraUserRoles: "admin",
		},
		Workload: WorkloadConfig{
			ContainerName: "webui",
			ServiceName:   "webui",
			StorageName:   "config",
			ConfigDir:     "/etc/webui",
			ConfigFile:    "webuicfg.conf",
			UPFConfigFile: "upf_config.json",
			GNBConfigFile: "gnb_config.json",
			VersionFile:   "/etc/workload-version",
			GRPCPort:      9876,
			HTTPPort:      5000,
			ChangeTimeout: metav1.Duration{Duration: 30 * time.Second},
		},
		Dispatch: DispatchConfig{
			UpdateStatusInterval: metav1.Duration{Duration: 5 * time.Minute},
			PassTimeout:          metav1.Duration{Duration: 2 * time.Minute},
		},
		Features: FeatureConfig{
			EnableDetailedLogging: false,
			EnableMetrics:         true,
		},
	}
}

// Validate fills unset values with their defaults
func (c *OperatorConfig) Validate() error {
	d := DefaultOperatorConfig()

	defaultString(&c.Relations.CommonDatabase, d.Relations.CommonDatabase)
	defaultString(&c.Relations.AuthDatabase, d.Relations.AuthDatabase)
	defaultString(&c.Relations.FivegN4, d.Relations.FivegN4)
	defaultString(&c.Relations.GnbIdentity, d.Relations.GnbIdentity)
	defaultString(&c.Relations.SdcoreConfig, d.Relations.SdcoreConfig)
	defaultString(&c.Relations.SdcoreManagement, d.Relations.SdcoreManagement)
	defaultString(&c.Relations.Ingress, d.Relations.Ingress)

	defaultString(&c.Databases.CommonName, d.Databases.CommonName)
	defaultString(&c.Databases.AuthName, d.Databases.AuthName)

	defaultString(&c.Workload.ContainerName, d.Workload.ContainerName)
	defaultString(&c.Workload.ServiceName, d.Workload.ServiceName)
	defaultString(&c.Workload.StorageName, d.Workload.StorageName)
	defaultString(&c.Workload.ConfigDir, d.Workload.ConfigDir)
	defaultString(&c.Workload.ConfigFile, d.Workload.ConfigFile)
	defaultString(&c.Workload.UPFConfigFile, d.Workload.UPFConfigFile)
	defaultString(&c.Workload.GNBConfigFile, d.Workload.GNBConfigFile)
	defaultString(&c.Workload.VersionFile, d.Workload.VersionFile)

	if c.Workload.GRPCPort <= 0 {
		c.Workload.GRPCPort = d.Workload.GRPCPort
	}

	if c.Workload.HTTPPort <= 0 {
		c.Workload.HTTPPort = d.Workload.HTTPPort
	}

	if c.Workload.ChangeTimeout.Duration <= 0 {
		c.Workload.ChangeTimeout = d.Workload.ChangeTimeout
	}

	if c.Dispatch.UpdateStatusInterval.Duration <= 0 {
		c.Dispatch.UpdateStatusInterval = d.Dispatch.UpdateStatusInterval
	}

	if c.Dispatch.PassTimeout.Duration <= 0 {
		c.Dispatch.PassTimeout = d.Dispatch.PassTimeout
	}

	return nil
}

func defaultString(v *string, def string) {
	if *v == "" {
		*v = def
	}
}

// DeepCopy returns a copy of c. Every field is a value type.
func (c *OperatorConfig) DeepCopy() *OperatorConfig {
	if c == nil {
		return nil
	}
	out := *c
	return &out
}
