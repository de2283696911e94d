package main

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/Eblazecode/Agrolinkernew/internal/catalog"
	"github.com/Eblazecode/Agrolinkernew/internal/config"
	"github.com/Eblazecode/Agrolinkernew/internal/state"
)

var catalogJSON bool

var catalogCmd = &cobra.Command{
	Use:   "catalog [kind]",
	Short: "Print the reference catalog",
	Long: `Prints the catalog the twin serves. kind is one of users, projects,
trees, products, equipment, storage or farmers; without it a count of each is
shown. The catalog path from the config file is honoured.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runCatalog,
}

var projectFlags struct {
	amount int64
	rate   int
	years  int
	tree   bool
	id     string
}

var projectCmd = &cobra.Command{
	Use:   "project",
	Short: "Quote an investment projection offline",
	Long: `Quotes the simple-interest value of an investment. Use --id to take
the rate from a catalog farm project, --tree for the tree horizons, or --rate
and --years directly.`,
	RunE: runProject,
}

func init() {
	catalogCmd.Flags().BoolVar(&catalogJSON, "json", false, "Print JSON instead of a table")

	f := projectCmd.Flags()
	f.Int64Var(&projectFlags.amount, "amount", 0, "Amount in naira (required)")
	f.IntVar(&projectFlags.rate, "rate", 0, "Annual return in percent")
	f.IntVar(&projectFlags.years, "years", 1, "Horizon in years")
	f.BoolVar(&projectFlags.tree, "tree", false, "Quote the tree investment horizons")
	f.StringVar(&projectFlags.id, "id", "", "Farm project id to take the rate from")
	projectCmd.MarkFlagRequired("amount")
}

func loadCatalog() (*catalog.Catalog, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if cfg.Catalog.Path == "" {
		return catalog.Default(), nil
	}
	return catalog.LoadFile(cfg.Catalog.Path)
}

func runCatalog(cmd *cobra.Command, args []string) error {
	cat, err := loadCatalog()
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	sections := map[string]func() any{
		"users":     func() any { return cat.Users() },
		"projects":  func() any { return cat.Projects() },
		"trees":     func() any { return cat.Trees() },
		"products":  func() any { return cat.Products() },
		"equipment": func() any { return cat.Equipment() },
		"storage":   func() any { return cat.Facilities() },
		"farmers":   func() any { return cat.Farmers() },
	}

	if len(args) == 0 {
		names := make([]string, 0, len(sections))
		for name := range sections {
			names = append(names, name)
		}
		sort.Strings(names)
		tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "KIND\tCOUNT")
		for _, name := range names {
			raw, _ := json.Marshal(sections[name]())
			var items []json.RawMessage
			json.Unmarshal(raw, &items)
			fmt.Fprintf(tw, "%s\t%d\n", name, len(items))
		}
		return tw.Flush()
	}

	kind := strings.ToLower(args[0])
	section, ok := sections[kind]
	if !ok {
		return fmt.Errorf("unknown catalog kind %q", args[0])
	}
	if catalogJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(section())
	}
	return printTable(out, kind, cat)
}

func printTable(out io.Writer, kind string, cat *catalog.Catalog) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	switch kind {
	case "users":
		fmt.Fprintln(tw, "EMAIL\tNAME\tROLE\tWALLET")
		for _, u := range cat.Users() {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", u.Email, u.Name, u.Role, state.FormatNaira(u.WalletBalance))
		}
	case "projects":
		fmt.Fprintln(tw, "ID\tNAME\tCROP\tROI\tRAISED\tTARGET")
		for _, p := range cat.Projects() {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%d%%\t%s\t%s\n", p.ID, p.Name, p.CropType, p.ROI,
				state.FormatNaira(p.RaisedAmount), state.FormatNaira(p.TargetAmount))
		}
	case "trees":
		fmt.Fprintln(tw, "ID\tNAME\tMIN\tMAX\tMATURITY")
		for _, t := range cat.Trees() {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%dy\n", t.ID, t.Name,
				state.FormatNaira(t.MinInvestment), state.FormatNaira(t.MaxInvestment), t.MaturityYears)
		}
	case "products":
		fmt.Fprintln(tw, "ID\tNAME\tCATEGORY\tPRICE/KG")
		for _, p := range cat.Products() {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", p.ID, p.Name, p.Category, state.FormatNaira(p.PricePerKg))
		}
	case "equipment":
		fmt.Fprintln(tw, "ID\tNAME\tLOCATION\tPRICE/DAY\tAVAILABLE")
		for _, e := range cat.Equipment() {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%t\n", e.ID, e.Name, e.Location, state.FormatNaira(e.PricePerDay), e.Available)
		}
	case "storage":
		fmt.Fprintln(tw, "ID\tNAME\tLOCATION\tFREE(t)\tPRICE/t/DAY")
		for _, f := range cat.Facilities() {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n", f.ID, f.Name, f.Location, f.Remaining(), state.FormatNaira(f.PricePerTonPerDay))
		}
	case "farmers":
		fmt.Fprintln(tw, "ID\tNAME\tLOCATION\tRATING\tSPECIALTIES")
		for _, f := range cat.Farmers() {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%.1f\t%s\n", f.ID, f.Name, f.Location, f.Rating, strings.Join(f.Specialties, ", "))
		}
	}
	return tw.Flush()
}

func runProject(cmd *cobra.Command, _ []string) error {
	out := cmd.OutOrStdout()
	amount := projectFlags.amount
	if amount <= 0 {
		return fmt.Errorf("--amount must be positive")
	}

	if projectFlags.tree {
		for _, p := range state.TreeProjections(amount) {
			fmt.Fprintf(out, "%2d years  %s\n", p.Years, state.FormatNaira(p.Value.Round(0).IntPart()))
		}
		return nil
	}

	rate := projectFlags.rate
	if projectFlags.id != "" {
		cat, err := loadCatalog()
		if err != nil {
			return err
		}
		p, ok := cat.Project(projectFlags.id)
		if !ok {
			return fmt.Errorf("unknown farm project %q", projectFlags.id)
		}
		rate = p.ROI
	}
	if rate <= 0 || projectFlags.years <= 0 {
		return fmt.Errorf("--rate (or --id) and --years must be positive")
	}
	value := state.Project(amount, rate, projectFlags.years)
	fmt.Fprintf(out, "%s at %d%% for %d years  %s\n", state.FormatNaira(amount), rate, projectFlags.years,
		state.FormatNaira(value.Round(0).IntPart()))
	return nil
}
