// Package config defines the necessary types to configure the application.
// An example config file config.yaml is provided in the repository.
//
// Configuration is loaded by commoncfg: values from the environment override
// values from the config file, so a deployment can be retuned without a
// rebuild.
package config

import (
	"time"

	"github.com/openkcm/common-sdk/pkg/commoncfg"
)

type Config struct {
	commoncfg.BaseConfig `mapstructure:",squash" yaml:",inline"`

	HTTP HTTPServer `yaml:"http"`

	Database Database `yaml:"database"`
	ValKey   ValKey   `yaml:"valkey"`
	Migrate  Migrate  `yaml:"migrate"`
	Auth     Auth     `yaml:"auth"`
	Sweeper  Sweeper  `yaml:"sweeper"`
}

type HTTPServer struct {
	Address         string        `yaml:"address" default:":8080"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout" default:"5s"`
}

type Database struct {
	Name     string              `yaml:"name"`
	Port     string              `yaml:"port"`
	Host     commoncfg.SourceRef `yaml:"host"`
	User     commoncfg.SourceRef `yaml:"user"`
	Password commoncfg.SourceRef `yaml:"password"`
}

type ValKey struct {
	Host     commoncfg.SourceRef `yaml:"host"`
	User     commoncfg.SourceRef `yaml:"user"`
	Password commoncfg.SourceRef `yaml:"password"`
	Prefix   string              `yaml:"prefix" default:"habitloop"`
}

// Auth configures the identity provider the gateway logs in against.
type Auth struct {
	// ProviderDomain is the base URL of the hosted identity provider; a
	// trailing slash is stripped.
	ProviderDomain string              `yaml:"providerDomain"`
	ClientID       commoncfg.SourceRef `yaml:"clientID"`
	// RedirectURI receives the authorization code callback. When its
	// scheme+host differ from the serving origin, a same-origin URI is
	// derived and preferred.
	RedirectURI       string `yaml:"redirectURI"`
	LogoutRedirectURI string `yaml:"logoutRedirectURI"`

	// SessionStore selects the durable store: valkey, postgres or memory.
	SessionStore string `yaml:"sessionStore" default:"valkey"`
	// StateTTL bounds how long a login attempt may stay in flight.
	StateTTL time.Duration `yaml:"stateTTL" default:"10m"`

	Debug bool `yaml:"debug"`
}

type Sweeper struct {
	TriggerInterval time.Duration `yaml:"triggerInterval" default:"1h"`
}

type Migrate struct {
	Source string `yaml:"source" default:"file://./sql"`
}
