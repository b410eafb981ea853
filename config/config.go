package config

import (
	"log/slog"
	"net"
	"net/url"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/spf13/viper"
)

const (
	EnvDev     = "dev"
	EnvStaging = "staging"
	EnvProd    = "prod"
)

const (
	LogLevelDebug = "debug"
	LogLevelInfo  = "info"
	LogLevelWarn  = "warn"
	LogLevelError = "error"
)

type ServerConfig struct {
	GatewayAddress string `mapstructure:"gateway_address"`
	AdminAddress   string `mapstructure:"admin_address"`
	Environment    string `mapstructure:"environment"`
}

// LocationConfig is the advertised frontend origin. All fields may be empty,
// in which case topology detection falls back to the local development
// location.
type LocationConfig struct {
	Scheme   string `mapstructure:"scheme"`
	Hostname string `mapstructure:"hostname"`
	Port     string `mapstructure:"port"`
}

type DirectConfig struct {
	NodeCount int `mapstructure:"node_count"`
	PortBase  int `mapstructure:"port_base"`
}

type PortRoutedConfig struct {
	NodeCount int `mapstructure:"node_count"`
	PortBase  int `mapstructure:"port_base"`
}

type PathRoutedConfig struct {
	NodeCount int `mapstructure:"node_count"`
}

// TopologyConfig carries the deployment constants behind topology detection.
// The defaults describe the stock installation; none of these values are
// derived, they are facts about one concrete deployment.
type TopologyConfig struct {
	Override    string           `mapstructure:"override"`
	DevPort     string           `mapstructure:"dev_port"`
	ServiceName string           `mapstructure:"service_name"`
	Direct      DirectConfig     `mapstructure:"direct"`
	PortRouted  PortRoutedConfig `mapstructure:"port_routed"`
	PathRouted  PathRoutedConfig `mapstructure:"path_routed"`
}

type HealthConfig struct {
	Suffix          string `mapstructure:"suffix"`
	ProbeTimeout    string `mapstructure:"probe_timeout"`
	RefreshInterval string `mapstructure:"refresh_interval"`
}

type ServiceConfig struct {
	URL    string `mapstructure:"url"`
	Prefix string `mapstructure:"prefix"`
}

// ServicesConfig addresses the companion services that live outside the node
// cluster.
type ServicesConfig struct {
	Search   ServiceConfig `mapstructure:"search"`
	Metadata ServiceConfig `mapstructure:"metadata"`
}

type ProxyConfig struct {
	Strategy string `mapstructure:"strategy"`
}

type BreakerConfig struct {
	FailureThreshold int    `mapstructure:"failure_threshold"`
	ResetTimeout     string `mapstructure:"reset_timeout"`
}

// CacheConfig configures the optional probe-result cache. An empty redis
// address disables it.
type CacheConfig struct {
	RedisAddr string `mapstructure:"redis_addr"`
	TTL       string `mapstructure:"ttl"`
}

type LoggingConfig struct {
	Level string `mapstructure:"level"`
}

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Location LocationConfig `mapstructure:"location"`
	Topology TopologyConfig `mapstructure:"topology"`
	Health   HealthConfig   `mapstructure:"health"`
	Services ServicesConfig `mapstructure:"services"`
	Proxy    ProxyConfig    `mapstructure:"proxy"`
	Breaker  BreakerConfig  `mapstructure:"breaker"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// Load reads the configuration from the given file, or from config.yaml in
// ./config or the working directory when path is empty, overlaid with
// environment variables.
func Load(path string) (*Config, error) {
	viper.SetDefault("server.environment", EnvDev)
	viper.SetDefault("server.gateway_address", ":8080")
	viper.SetDefault("server.admin_address", ":8081")
	viper.SetDefault("topology.override", "auto")
	viper.SetDefault("topology.dev_port", "5015")
	viper.SetDefault("topology.service_name", "optimusdb")
	viper.SetDefault("topology.direct.node_count", 8)
	viper.SetDefault("topology.direct.port_base", 18000)
	viper.SetDefault("topology.port_routed.node_count", 3)
	viper.SetDefault("topology.port_routed.port_base", 30000)
	viper.SetDefault("topology.path_routed.node_count", 3)
	viper.SetDefault("health.suffix", "/health")
	viper.SetDefault("health.probe_timeout", "2s")
	viper.SetDefault("health.refresh_interval", "15s")
	viper.SetDefault("services.search.url", "http://localhost:5013")
	viper.SetDefault("services.search.prefix", "/api/v1/search")
	viper.SetDefault("services.metadata.url", "http://localhost:5014")
	viper.SetDefault("services.metadata.prefix", "/api/v1/metadata")
	viper.SetDefault("proxy.strategy", "round-robin")
	viper.SetDefault("breaker.failure_threshold", 5)
	viper.SetDefault("breaker.reset_timeout", "30s")
	viper.SetDefault("cache.redis_addr", "")
	viper.SetDefault("cache.ttl", "5m")
	viper.SetDefault("logging.level", LogLevelInfo)

	if path != "" {
		viper.SetConfigFile(path)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath("./config")
		viper.AddConfigPath(".")
	}

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			slog.Error("failed to read config file", slog.String("error", err.Error()))
			return nil, err
		}
		slog.Warn("config file not found, using defaults and environment variables")
	} else {
		slog.Info("loaded config file", slog.String("file", viper.ConfigFileUsed()))
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		slog.Error("failed to unmarshal config", slog.String("error", err.Error()))
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", slog.String("error", err.Error()))
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Server,
			validation.Required,
			validation.By(func(value interface{}) error {
				sc, ok := value.(ServerConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a ServerConfig")
				}
				return validation.ValidateStruct(&sc,
					validation.Field(&sc.Environment,
						validation.Required,
						validation.In(EnvDev, EnvStaging, EnvProd),
					),
					validation.Field(&sc.GatewayAddress,
						validation.Required,
						validation.By(validateHostPort),
					),
					validation.Field(&sc.AdminAddress,
						validation.Required,
						validation.By(validateHostPort),
					),
				)
			}),
		),
		validation.Field(&c.Location,
			validation.By(func(value interface{}) error {
				lc, ok := value.(LocationConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a LocationConfig")
				}
				return validation.ValidateStruct(&lc,
					validation.Field(&lc.Scheme, validation.In("", "http", "https")),
					validation.Field(&lc.Hostname, is.Host),
					validation.Field(&lc.Port, is.Port),
				)
			}),
		),
		validation.Field(&c.Topology,
			validation.Required,
			validation.By(validateTopology),
		),
		validation.Field(&c.Health,
			validation.Required,
			validation.By(func(value interface{}) error {
				hc, ok := value.(HealthConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a HealthConfig")
				}
				return validation.ValidateStruct(&hc,
					validation.Field(&hc.Suffix, validation.Required),
					validation.Field(&hc.ProbeTimeout,
						validation.Required,
						validation.By(validateDuration),
					),
					validation.Field(&hc.RefreshInterval,
						validation.Required,
						validation.By(validateDuration),
					),
				)
			}),
		),
		validation.Field(&c.Services,
			validation.Required,
			validation.By(func(value interface{}) error {
				sc, ok := value.(ServicesConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a ServicesConfig")
				}
				if err := validateService(sc.Search); err != nil {
					return err
				}
				return validateService(sc.Metadata)
			}),
		),
		validation.Field(&c.Proxy,
			validation.Required,
			validation.By(func(value interface{}) error {
				pc, ok := value.(ProxyConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a ProxyConfig")
				}
				return validation.ValidateStruct(&pc,
					validation.Field(&pc.Strategy,
						validation.Required,
						validation.In("round-robin", "random", "first"),
					),
				)
			}),
		),
		validation.Field(&c.Breaker,
			validation.Required,
			validation.By(func(value interface{}) error {
				bc, ok := value.(BreakerConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a BreakerConfig")
				}
				return validation.ValidateStruct(&bc,
					validation.Field(&bc.FailureThreshold,
						validation.Required,
						validation.Min(1),
					),
					validation.Field(&bc.ResetTimeout,
						validation.Required,
						validation.By(validateDuration),
					),
				)
			}),
		),
		validation.Field(&c.Cache,
			validation.By(func(value interface{}) error {
				cc, ok := value.(CacheConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a CacheConfig")
				}
				if cc.RedisAddr == "" {
					return nil
				}
				return validation.ValidateStruct(&cc,
					validation.Field(&cc.TTL,
						validation.Required,
						validation.By(validateDuration),
					),
				)
			}),
		),
		validation.Field(&c.Logging,
			validation.Required,
			validation.By(func(value interface{}) error {
				lc, ok := value.(LoggingConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a LoggingConfig")
				}
				return validation.ValidateStruct(&lc,
					validation.Field(&lc.Level,
						validation.Required,
						validation.In(LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError),
					),
				)
			}),
		),
	)
}

func validateTopology(value interface{}) error {
	tc, ok := value.(TopologyConfig)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a TopologyConfig")
	}
	return validation.ValidateStruct(&tc,
		validation.Field(&tc.Override,
			validation.Required,
			validation.In("auto", "path_routed", "port_routed"),
		),
		validation.Field(&tc.DevPort, validation.Required, is.Port),
		validation.Field(&tc.ServiceName, validation.Required, is.Alphanumeric),
		validation.Field(&tc.Direct,
			validation.By(func(value interface{}) error {
				dc, ok := value.(DirectConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a DirectConfig")
				}
				return validatePortRange(dc.NodeCount, dc.PortBase)
			}),
		),
		validation.Field(&tc.PortRouted,
			validation.By(func(value interface{}) error {
				pc, ok := value.(PortRoutedConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a PortRoutedConfig")
				}
				return validatePortRange(pc.NodeCount, pc.PortBase)
			}),
		),
		validation.Field(&tc.PathRouted,
			validation.By(func(value interface{}) error {
				pc, ok := value.(PathRoutedConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a PathRoutedConfig")
				}
				if pc.NodeCount < 1 {
					return validation.NewError("validation_invalid_count", "node count must be at least 1")
				}
				return nil
			}),
		),
	)
}

func validatePortRange(count, base int) error {
	if count < 1 {
		return validation.NewError("validation_invalid_count", "node count must be at least 1")
	}
	if base < 1 {
		return validation.NewError("validation_invalid_port_base", "port base must be at least 1")
	}
	if base+count > 65535 {
		return validation.NewError("validation_invalid_port_range", "port range exceeds 65535")
	}
	return nil
}

func validateService(sc ServiceConfig) error {
	if err := validateServiceURL(sc.URL); err != nil {
		return err
	}
	if !strings.HasPrefix(sc.Prefix, "/") {
		return validation.NewError("validation_invalid_prefix", "prefix must start with /")
	}
	return nil
}

func validateHostPort(value interface{}) error {
	addr, ok := value.(string)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a string")
	}

	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return validation.NewError("validation_invalid_hostport", "must be in host:port format")
	}

	if port == "" {
		return validation.NewError("validation_invalid_port", "port cannot be empty")
	}

	if host != "" {
		if err := is.Host.Validate(host); err != nil {
			return validation.NewError("validation_invalid_host", "invalid host")
		}
	}

	return nil
}

func validateDuration(value interface{}) error {
	durationStr, ok := value.(string)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a string")
	}

	if _, err := time.ParseDuration(durationStr); err != nil {
		return validation.NewError("validation_invalid_duration", "must be a valid duration (e.g., 2s, 5m, 1h)")
	}

	return nil
}

func validateServiceURL(value interface{}) error {
	serviceURL, ok := value.(string)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a string")
	}

	if serviceURL == "" {
		return validation.NewError("validation_empty_url", "service URL cannot be empty")
	}

	parsedURL, err := url.Parse(serviceURL)
	if err != nil {
		return validation.NewError("validation_invalid_url", "must be a valid URL")
	}

	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return validation.NewError("validation_invalid_scheme", "URL must use http or https scheme")
	}

	if parsedURL.Host == "" {
		return validation.NewError("validation_missing_host", "URL must have a host")
	}

	return nil
}
