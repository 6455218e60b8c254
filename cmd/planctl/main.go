package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/xelth-com/fabricplan/internal/buildinfo"
	"github.com/xelth-com/fabricplan/internal/config"
	"github.com/xelth-com/fabricplan/internal/database"
	"github.com/xelth-com/fabricplan/internal/packing"
	"github.com/xelth-com/fabricplan/internal/services/catalog"
	"github.com/xelth-com/fabricplan/internal/services/layouts"
	"github.com/xelth-com/fabricplan/internal/services/planner"
)

var rootCmd = &cobra.Command{
	Use:   "planctl",
	Short: "Fabric roll planning CLI",
	Long: `planctl previews roll layouts, commits plans and exports cut sheets.
It talks to the same database as the API server and reads the same .env file.`,
	Version:       buildinfo.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func main() {
	decimal.MarshalJSONWithoutQuotes = true
	cobra.OnInitialize(initConfig)
	addPersistentFlags()
	registerCommands()
	if err := rootCmd.Execute(); err != nil {
		fmt.Println("error:", err)
		os.Exit(1)
	}
}

func initConfig() {
	viper.SetEnvPrefix("PLANCTL")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func addPersistentFlags() {
	rootCmd.PersistentFlags().Bool("json", false, "output JSON")
	_ = viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
}

func registerCommands() {
	rootCmd.AddCommand(typesCmd())
	rootCmd.AddCommand(ordersCmd())
	rootCmd.AddCommand(previewCmd())
	rootCmd.AddCommand(optionsCmd())
	rootCmd.AddCommand(commitCmd())
	rootCmd.AddCommand(plansCmd())
	rootCmd.AddCommand(tokenCmd())
}

// app holds the services a command needs
type app struct {
	cfg      *config.Config
	catalog  *catalog.Service
	planner  *planner.Service
	layouts  *layouts.Service
	selector *packing.Selector
}

// withApp connects to the database, runs fn and closes the connection again.
func withApp(ctx context.Context, fn func(ctx context.Context, a *app) error) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	db, err := database.Connect(cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := db.Migrate(); err != nil {
		return err
	}

	selector := packing.NewSelector(nil)
	cat := catalog.NewService(db.DB)
	plans := planner.NewService(planner.NewGormStore(db.DB), cat, selector, cfg.Layout)
	a := &app{
		cfg:      cfg,
		catalog:  cat,
		planner:  plans,
		layouts:  layouts.NewService(db.DB, cat, plans.Store(), selector, cfg.Layout),
		selector: selector,
	}
	return fn(ctx, a)
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// spacingFlags binds optional roll/spacing overrides onto a command
type spacingFlags struct {
	rollWidth, outer, inner string
}

func (f *spacingFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.rollWidth, "roll-width", "", "roll width in metres (default: fabric type's width)")
	cmd.Flags().StringVar(&f.outer, "outer-spacing", "", "outer margin in metres")
	cmd.Flags().StringVar(&f.inner, "inner-spacing", "", "gap between pieces in metres")
}

func (f *spacingFlags) spacing() (planner.Spacing, error) {
	var sp planner.Spacing
	var err error
	if sp.RollWidth, err = optionalDecimal("roll-width", f.rollWidth); err != nil {
		return sp, err
	}
	if sp.OuterSpacing, err = optionalDecimal("outer-spacing", f.outer); err != nil {
		return sp, err
	}
	sp.InnerSpacing, err = optionalDecimal("inner-spacing", f.inner)
	return sp, err
}

func optionalDecimal(name, raw string) (*decimal.Decimal, error) {
	if raw == "" {
		return nil, nil
	}
	v, err := decimal.NewFromString(raw)
	if err != nil {
		return nil, fmt.Errorf("--%s: %q is not a number", name, raw)
	}
	return &v, nil
}
