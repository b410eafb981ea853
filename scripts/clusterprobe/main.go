// Clusterprobe resolves the cluster topology for a frontend origin and runs
// one probe round against it, printing the outcome as a table or JSON.
//
// Usage:
//
//	go run ./scripts/clusterprobe --origin http://192.168.0.26
//	go run ./scripts/clusterprobe --origin http://localhost:5015 --timeout 1s --json
//	go run ./scripts/clusterprobe --origin http://10.0.0.7 --override port_routed
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/pflag"

	"github.com/georgeGeorgakakos/optimusddc-sub000/internal/cluster"
	"github.com/georgeGeorgakakos/optimusddc-sub000/internal/environ"
	"github.com/georgeGeorgakakos/optimusddc-sub000/internal/prober"
	"github.com/georgeGeorgakakos/optimusddc-sub000/internal/topology"
)

type nodeReport struct {
	ID             int    `json:"id"`
	Name           string `json:"name"`
	BaseURL        string `json:"base_url"`
	HealthCheckURL string `json:"health_check_url"`
	Usable         bool   `json:"usable"`
}

type report struct {
	Mode            string       `json:"mode"`
	FrontendBaseURL string       `json:"frontend_base_url"`
	Nodes           []nodeReport `json:"nodes"`
}

func main() {
	origin := pflag.String("origin", "http://localhost:5015", "Frontend origin to detect the topology from")
	override := pflag.String("override", "auto", "Topology override: auto, path_routed, port_routed")
	timeout := pflag.Duration("timeout", 2*time.Second, "Per-node probe timeout")
	asJSON := pflag.Bool("json", false, "Print the report as JSON")
	pflag.Parse()

	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

	loc, err := environ.FromURL(*origin)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid origin: %v\n", err)
		os.Exit(1)
	}

	ov, err := topology.ParseOverride(*override)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid override: %v\n", err)
		os.Exit(1)
	}

	resolver := topology.NewResolver(topology.DefaultParams(), environ.NewStatic(loc), log)
	snap := resolver.Detect(topology.Options{Override: ov})

	ctx, cancel := context.WithTimeout(context.Background(), *timeout+time.Second)
	defer cancel()

	usable := prober.New(nil, *timeout, nil, nil, log).Probe(ctx, snap)
	usableIDs := make(map[int]bool, len(usable))
	for _, id := range cluster.IDs(usable) {
		usableIDs[id] = true
	}

	rep := report{
		Mode:            string(snap.Mode),
		FrontendBaseURL: snap.FrontendBaseURL,
	}
	for _, node := range snap.Nodes {
		rep.Nodes = append(rep.Nodes, nodeReport{
			ID:             node.ID,
			Name:           node.Name,
			BaseURL:        node.BaseURL.String(),
			HealthCheckURL: node.HealthCheckURL.String(),
			Usable:         usableIDs[node.ID],
		})
	}

	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(rep); err != nil {
			fmt.Fprintf(os.Stderr, "encode report: %v\n", err)
			os.Exit(1)
		}
		return
	}

	fmt.Printf("mode:     %s\n", rep.Mode)
	fmt.Printf("frontend: %s\n\n", rep.FrontendBaseURL)

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tBASE URL\tUSABLE")
	for _, node := range rep.Nodes {
		fmt.Fprintf(w, "%d\t%s\t%s\t%v\n", node.ID, node.Name, node.BaseURL, node.Usable)
	}
	w.Flush()
}
