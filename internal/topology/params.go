package topology

import (
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
)

// Params holds the deployment constants behind topology detection. They are
// configuration data for one concrete installation, not derived values.
type Params struct {
	// DevPort is the frontend port that marks a local development setup.
	DevPort string

	// Direct-port mode synthesizes DirectCount nodes on localhost, node i
	// listening on DirectPortBase+i.
	DirectCount    int
	DirectPortBase int

	// Port-routed mode synthesizes PortRoutedCount nodes on the frontend
	// hostname, node i listening on PortRoutedPortBase+i.
	PortRoutedCount    int
	PortRoutedPortBase int

	// Path-routed mode synthesizes PathRoutedCount nodes under the frontend
	// origin, node i>1 at /<ServiceName><i>.
	PathRoutedCount int

	ServiceName  string
	HealthSuffix string
}

// DefaultParams returns the constants of the stock deployment.
func DefaultParams() Params {
	return Params{
		DevPort:            "5015",
		DirectCount:        8,
		DirectPortBase:     18000,
		PortRoutedCount:    3,
		PortRoutedPortBase: 30000,
		PathRoutedCount:    3,
		ServiceName:        "optimusdb",
		HealthSuffix:       "/health",
	}
}

// Validate checks that the parameters describe a usable topology.
func (p Params) Validate() error {
	err := validation.ValidateStruct(&p,
		validation.Field(&p.DevPort, validation.Required, is.Port),
		validation.Field(&p.DirectCount, validation.Required, validation.Min(1)),
		validation.Field(&p.DirectPortBase, validation.Required, validation.Min(1)),
		validation.Field(&p.PortRoutedCount, validation.Required, validation.Min(1)),
		validation.Field(&p.PortRoutedPortBase, validation.Required, validation.Min(1)),
		validation.Field(&p.PathRoutedCount, validation.Required, validation.Min(1)),
		validation.Field(&p.ServiceName, validation.Required, is.Alphanumeric),
		validation.Field(&p.HealthSuffix, validation.Required),
	)
	if err != nil {
		return err
	}

	if p.DirectPortBase+p.DirectCount > 65535 {
		return fmt.Errorf("direct port range exceeds 65535 (base %d, count %d)", p.DirectPortBase, p.DirectCount)
	}
	if p.PortRoutedPortBase+p.PortRoutedCount > 65535 {
		return fmt.Errorf("port-routed range exceeds 65535 (base %d, count %d)", p.PortRoutedPortBase, p.PortRoutedCount)
	}

	return nil
}
