package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"loadplan/internal/model"
	"loadplan/internal/plan"
)

// Scenario is a self-contained planning input, usually kept in version
// control next to the carrier contracts it encodes.
type Scenario struct {
	Depot        string                `yaml:"depot"`
	Tunables     map[string]any        `yaml:"tunables,omitempty"`
	Shipments    []model.Shipment      `yaml:"shipments"`
	Carriers     []model.Carrier       `yaml:"carriers"`
	Restrictions []model.Restriction   `yaml:"restrictions,omitempty"`
	Distances    []model.DistanceEdge  `yaml:"distances"`
	Durations    []model.DurationEntry `yaml:"durations,omitempty"`
}

var (
	scenarioPath string
	outputPath   string
	summaryOnly  bool
)

var rootCmd = &cobra.Command{
	Use:   "planctl",
	Short: "planctl runs dispatch plans over YAML scenario files",
	Long:  `planctl loads a scenario file (demand, carriers, distances, tunables) and runs the same planner the API uses, without a server or database.`,
}

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Run a plan over a scenario file",
	RunE: func(cmd *cobra.Command, args []string) error {
		sc, err := loadScenario(scenarioPath)
		if err != nil {
			return err
		}
		cfg, err := scenarioConfig(sc)
		if err != nil {
			return err
		}
		planner := plan.New(cfg, sc.Depot, plan.NewMatrixOracle(sc.Distances), plan.NewRateTable(sc.Durations), sc.Restrictions)
		res, err := planner.Plan(sc.Shipments, sc.Carriers)
		if err != nil {
			return fmt.Errorf("plan: %w", err)
		}
		if summaryOnly {
			printSummary(cmd, res)
			return nil
		}
		body, err := json.MarshalIndent(res, "", "  ")
		if err != nil {
			return err
		}
		if outputPath != "" {
			return os.WriteFile(outputPath, body, 0o644)
		}
		cmd.Println(string(body))
		return nil
	},
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check a scenario file without planning",
	RunE: func(cmd *cobra.Command, args []string) error {
		sc, err := loadScenario(scenarioPath)
		if err != nil {
			return err
		}
		if _, err := scenarioConfig(sc); err != nil {
			return err
		}
		if len(sc.Shipments) == 0 {
			return fmt.Errorf("scenario has no shipments")
		}
		if len(sc.Carriers) == 0 {
			return fmt.Errorf("scenario has no carriers")
		}
		oracle := plan.NewMatrixOracle(sc.Distances)
		missing := 0
		for _, s := range sc.Shipments {
			if _, ok := oracle.Lookup(sc.Depot, s.Store); !ok {
				cmd.PrintErrf("no depot distance for store %s\n", s.Store)
				missing++
			}
		}
		if missing > 0 {
			return fmt.Errorf("%d store(s) missing depot distances", missing)
		}
		cmd.Printf("ok: %d shipments, %d carriers, %d edges\n", len(sc.Shipments), len(sc.Carriers), len(sc.Distances))
		return nil
	},
}

func loadScenario(path string) (*Scenario, error) {
	if path == "" {
		return nil, fmt.Errorf("scenario file required (-f)")
	}
	body, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario: %w", err)
	}
	var sc Scenario
	if err := yaml.Unmarshal(body, &sc); err != nil {
		return nil, fmt.Errorf("parse scenario: %w", err)
	}
	if sc.Depot == "" {
		sc.Depot = "DEPOT"
	}
	return &sc, nil
}

func scenarioConfig(sc *Scenario) (plan.Config, error) {
	cfg := plan.DefaultConfig()
	if len(sc.Tunables) == 0 {
		return cfg, nil
	}
	body, err := json.Marshal(sc.Tunables)
	if err != nil {
		return cfg, fmt.Errorf("tunables: %w", err)
	}
	if err := json.Unmarshal(body, &cfg); err != nil {
		return cfg, fmt.Errorf("tunables: %w", err)
	}
	return cfg, nil
}

func printSummary(cmd *cobra.Command, res *plan.Result) {
	cmd.Printf("routes: %d  overspill: %d  total cost: %.2f\n", len(res.Routes), len(res.Overspill), res.TotalCost)
	for _, rt := range res.Routes {
		cmd.Printf("  %-10s %-8s %2d stops %7.1f mi %5.1f%% util  $%.2f  %s\n",
			rt.Carrier, rt.TimeSlot, rt.StopCount, rt.Miles, rt.Utilization, rt.Cost, rt.LegDetail)
	}
	for _, g := range res.Unplanned {
		cmd.Printf("  unplanned (%s): %d shipments\n", g.Reason, len(g.Shipments))
	}
}

func init() {
	for _, c := range []*cobra.Command{planCmd, validateCmd} {
		c.Flags().StringVarP(&scenarioPath, "file", "f", "", "scenario YAML file")
	}
	planCmd.Flags().StringVarP(&outputPath, "out", "o", "", "write full result JSON to file")
	planCmd.Flags().BoolVar(&summaryOnly, "summary", false, "print a route summary instead of JSON")
	rootCmd.AddCommand(planCmd)
	rootCmd.AddCommand(validateCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
