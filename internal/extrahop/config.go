package extrahop

import "strings"

// DeploymentType discriminates the two kinds of RevealX deployments a session can target
type DeploymentType string

const (
	// Deployment360 is a cloud deployment addressed by its tenant subdomain and
	// authenticated via an OAuth2 client-credentials exchange
	Deployment360 DeploymentType = "360"

	// DeploymentEnterprise is an on-premises appliance authenticated with a
	// long-lived static API key
	DeploymentEnterprise DeploymentType = "enterprise"
)

// Config describes the deployment a session connects to.
// Exactly one variant is populated, discriminated by Type: the tenant/API ID/API secret
// triple for 360 deployments, the host/API key pair for Enterprise ones.
type Config struct {
	Type DeploymentType `json:"type"`

	// RevealX 360
	Tenant    string `json:"tenant,omitempty"`
	APIID     string `json:"api_id,omitempty"`
	APISecret string `json:"api_secret,omitempty"`
	UseProxy  bool   `json:"use_proxy,omitempty"`

	// RevealX Enterprise
	Host   string `json:"host,omitempty"`
	APIKey string `json:"api_key,omitempty"`
}

// Normalized returns a copy of the configuration with all fields trimmed
func (config Config) Normalized() Config {
	config.Tenant = strings.TrimSpace(config.Tenant)
	config.APIID = strings.TrimSpace(config.APIID)
	config.APISecret = strings.TrimSpace(config.APISecret)
	config.Host = strings.TrimSpace(config.Host)
	config.APIKey = strings.TrimSpace(config.APIKey)
	return config
}

// Validate checks that all fields required by the configured deployment type are present.
// It performs no network I/O and returns a ConfigError listing the missing fields.
func (config Config) Validate() error {
	config = config.Normalized()

	var missing []string
	switch config.Type {
	case Deployment360:
		if config.Tenant == "" {
			missing = append(missing, "tenant")
		}
		if config.APIID == "" {
			missing = append(missing, "api_id")
		}
		if config.APISecret == "" {
			missing = append(missing, "api_secret")
		}
	case DeploymentEnterprise:
		if config.Host == "" {
			missing = append(missing, "host")
		}
		if config.APIKey == "" {
			missing = append(missing, "api_key")
		}
	default:
		missing = append(missing, "type")
	}

	if len(missing) > 0 {
		return &ConfigError{Missing: missing}
	}
	return nil
}
