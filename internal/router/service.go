package router

import "fmt"

// Service names a logical request target. The primary service is the
// multi-node catalog cluster itself; search and metadata are companion
// services addressed outside the cluster.
type Service string

const (
	ServicePrimary  Service = "primary"
	ServiceSearch   Service = "search"
	ServiceMetadata Service = "metadata"
)

// ParseService maps a request value onto a Service.
func ParseService(s string) (Service, error) {
	switch Service(s) {
	case ServicePrimary, ServiceSearch, ServiceMetadata:
		return Service(s), nil
	}
	return "", fmt.Errorf("unknown service %q", s)
}

// AuxServices holds how the search and metadata services are reached: a
// fixed address each for direct deployments, and an API prefix under the
// frontend origin for path-routed ones.
type AuxServices struct {
	SearchBaseURL   string
	MetadataBaseURL string
	SearchPrefix    string
	MetadataPrefix  string
}

// DefaultAuxServices returns the addresses of the stock deployment.
func DefaultAuxServices() AuxServices {
	return AuxServices{
		SearchBaseURL:   "http://localhost:5013",
		MetadataBaseURL: "http://localhost:5014",
		SearchPrefix:    "/api/v1/search",
		MetadataPrefix:  "/api/v1/metadata",
	}
}
