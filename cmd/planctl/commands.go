package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/xelth-com/fabricplan/internal/apperr"
	"github.com/xelth-com/fabricplan/internal/config"
	"github.com/xelth-com/fabricplan/internal/models"
	"github.com/xelth-com/fabricplan/internal/packing"
	"github.com/xelth-com/fabricplan/internal/services/catalog"
	"github.com/xelth-com/fabricplan/internal/services/layouts"
	"github.com/xelth-com/fabricplan/internal/services/planner"
	"github.com/xelth-com/fabricplan/internal/services/printer"
	"github.com/xelth-com/fabricplan/internal/utils"
)

func typesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "types",
		Short: "List fabric types",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app) error {
				types, err := a.catalog.FabricTypes(ctx)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(types)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Description", "Roll width (m)", "Thickness"})
				for _, t := range types {
					tw.AppendRow(table.Row{t.ID, t.Description, t.RollWidth, t.Thickness})
				}
				tw.Render()
				return nil
			})
		},
	}
}

func ordersCmd() *cobra.Command {
	var fabricType string
	cmd := &cobra.Command{
		Use:   "orders",
		Short: "List orders of a fabric type that no plan has claimed",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app) error {
				orders, err := a.catalog.UnplannedOrders(ctx, fabricType)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(orders)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"Order", "Kind", "Pieces", "Area (m²)"})
				for _, o := range orders {
					tw.AppendRow(table.Row{o.OrderNo, o.OrderType, o.PieceCount, o.TotalAreaSqm})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&fabricType, "fabric-type", "", "fabric type id")
	_ = cmd.MarkFlagRequired("fabric-type")
	return cmd
}

// selectionFlags binds the piece selection shared by preview and commit
func selectionFlags(cmd *cobra.Command, sel *catalog.Selection) {
	cmd.Flags().StringVar(&sel.FabricTypeID, "fabric-type", "", "fabric type id")
	cmd.Flags().StringSliceVar(&sel.OrderNos, "order", nil, "order number (repeatable)")
	cmd.Flags().StringSliceVar(&sel.Barcodes, "barcode", nil, "piece barcode (repeatable)")
	cmd.Flags().BoolVar(&sel.AllUnassigned, "all-unassigned", false, "every piece not yet on a layout")
}

func previewCmd() *cobra.Command {
	var sel catalog.Selection
	var sp spacingFlags
	cmd := &cobra.Command{
		Use:   "preview",
		Short: "Show the least-waste layout for a selection without saving it",
		RunE: func(cmd *cobra.Command, args []string) error {
			spacing, err := sp.spacing()
			if err != nil {
				return err
			}
			return withApp(cmd.Context(), func(ctx context.Context, a *app) error {
				preview, err := a.planner.Preview(ctx, planner.PreviewRequest{Selection: sel, Spacing: spacing})
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(preview)
				}
				renderOutcome(preview.Outcome)
				return nil
			})
		},
	}
	selectionFlags(cmd, &sel)
	sp.bind(cmd)
	return cmd
}

func optionsCmd() *cobra.Command {
	var req layouts.OptionsRequest
	var width string
	cmd := &cobra.Command{
		Use:   "options",
		Short: "Compare every packing strategy for a set of barcodes",
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := decimal.NewFromString(width)
			if err != nil {
				return fmt.Errorf("--width: %q is not a number", width)
			}
			req.TotalWidth = w
			return withApp(cmd.Context(), func(ctx context.Context, a *app) error {
				outcomes, err := a.layouts.Options(ctx, req)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(outcomes)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"Strategy", "Pieces", "Excluded", "Length (m)", "Waste (m²)", "Utilization %"})
				for _, o := range outcomes {
					tw.AppendRow(table.Row{o.Strategy, o.PieceCount(), len(o.Excluded), o.UsedLength, o.WasteArea, o.UtilizationPct.StringFixed(2)})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringSliceVar(&req.Barcodes, "barcode", nil, "piece barcode (repeatable)")
	cmd.Flags().StringVar(&width, "width", "", "roll width in metres")
	_ = cmd.MarkFlagRequired("width")
	return cmd
}

func commitCmd() *cobra.Command {
	var fabricType string
	var orders []string
	var sp spacingFlags
	cmd := &cobra.Command{
		Use:   "commit",
		Short: "Preview the given orders and commit the winning layout as a plan",
		RunE: func(cmd *cobra.Command, args []string) error {
			spacing, err := sp.spacing()
			if err != nil {
				return err
			}
			return withApp(cmd.Context(), func(ctx context.Context, a *app) error {
				preview, err := a.planner.Preview(ctx, planner.PreviewRequest{
					Selection: catalog.Selection{FabricTypeID: fabricType, OrderNos: orders},
					Spacing:   spacing,
				})
				if err != nil {
					return err
				}
				plan, err := a.planner.Commit(ctx, planner.CommitRequest{
					FabricTypeID: fabricType,
					OrderNos:     orders,
					Strategy:     preview.Strategy,
					Items:        preview.Items,
					Excluded:     preview.Excluded,
					Spacing:      spacing,
				})
				if conflict, ok := apperr.AsConflict(err); ok {
					return fmt.Errorf("orders already planned: %v", conflict.LockedOrderNos)
				}
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(plan)
				}
				fmt.Printf("✅ Plan %d (%s) created: %d pieces, %s m used, %s%% utilization\n",
					plan.ID, plan.Reference, plan.PieceCount, plan.UsedLengthM, plan.UtilizationPct.StringFixed(2))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&fabricType, "fabric-type", "", "fabric type id")
	cmd.Flags().StringSliceVar(&orders, "order", nil, "order number (repeatable)")
	_ = cmd.MarkFlagRequired("fabric-type")
	_ = cmd.MarkFlagRequired("order")
	sp.bind(cmd)
	return cmd
}

func plansCmd() *cobra.Command {
	plans := &cobra.Command{Use: "plans", Short: "Manage committed plans"}
	plans.AddCommand(plansListCmd())
	plans.AddCommand(plansDeleteCmd())
	plans.AddCommand(plansExportCmd())
	return plans
}

func plansListCmd() *cobra.Command {
	var fabricType string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List plans, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app) error {
				list, err := a.planner.List(ctx, fabricType)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(list)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Fabric", "Orders", "Pieces", "Length (m)", "Utilization %", "Created"})
				for _, p := range list {
					tw.AppendRow(table.Row{p.ID, p.FabricTypeID, len(p.Orders), p.PieceCount, p.UsedLengthM,
						p.UtilizationPct.StringFixed(2), p.CreatedAt.Format(time.DateTime)})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&fabricType, "fabric-type", "", "fabric type filter")
	return cmd
}

func parsePlanID(arg string) (uint, error) {
	id, err := strconv.ParseUint(arg, 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid plan id %q", arg)
	}
	return uint(id), nil
}

func plansDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a plan and release its orders",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parsePlanID(args[0])
			if err != nil {
				return err
			}
			return withApp(cmd.Context(), func(ctx context.Context, a *app) error {
				if err := a.planner.Delete(ctx, id); err != nil {
					return err
				}
				fmt.Printf("🗑️ Plan %d deleted\n", id)
				return nil
			})
		},
	}
}

func plansExportCmd() *cobra.Command {
	var format, out string
	var noQR bool
	cmd := &cobra.Command{
		Use:   "export <id>",
		Short: "Write a plan's cut sheet (pdf) or cut list (xlsx)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parsePlanID(args[0])
			if err != nil {
				return err
			}
			if format != "pdf" && format != "xlsx" {
				return fmt.Errorf("--format must be pdf or xlsx")
			}
			return withApp(cmd.Context(), func(ctx context.Context, a *app) error {
				plan, err := a.planner.Get(ctx, id)
				if err != nil {
					return err
				}
				data, err := export(plan, format, !noQR)
				if err != nil {
					return err
				}
				if out == "" {
					out = fmt.Sprintf("plan_%d.%s", plan.ID, format)
				}
				if err := os.WriteFile(out, data, 0o644); err != nil {
					return err
				}
				fmt.Printf("📄 Wrote %s (%d bytes)\n", out, len(data))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&format, "format", "pdf", "pdf or xlsx")
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file")
	cmd.Flags().BoolVar(&noQR, "no-qr", false, "omit per-piece QR codes from the PDF")
	return cmd
}

func export(plan *models.Plan, format string, pieceQR bool) ([]byte, error) {
	if format == "xlsx" {
		return printer.CutListXLSX(plan)
	}
	cfg := printer.DefaultSheetConfig
	cfg.PieceQR = pieceQR
	return printer.CutSheetPDF(plan, cfg)
}

func tokenCmd() *cobra.Command {
	var subject, role string
	var ttl time.Duration
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a bearer token for the API (needs JWT_SECRET)",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			token, err := utils.GenerateServiceToken(subject, role, ttl, cfg.JWTSecret)
			if err != nil {
				return err
			}
			fmt.Println(token)
			return nil
		},
	}
	cmd.Flags().StringVar(&subject, "subject", "planctl", "token subject")
	cmd.Flags().StringVar(&role, "role", utils.RolePlanner, "planner or operator")
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "token lifetime (default 30 days)")
	return cmd
}

func renderOutcome(o packing.Outcome) {
	tw := table.NewWriter()
	tw.SetOutputMirror(os.Stdout)
	tw.SetTitle(fmt.Sprintf("%s: %d pieces, %s m, %s%% utilization",
		o.Strategy, o.PieceCount(), o.UsedLength, o.UtilizationPct.StringFixed(2)))
	tw.AppendHeader(table.Row{"Barcode", "Order", "Row", "X", "Y", "Width", "Length", "Rotated"})
	for _, it := range o.Items {
		tw.AppendRow(table.Row{it.Barcode, it.OrderNo, it.Row, it.X, it.Y, it.Width, it.Length, it.Rotated})
	}
	tw.Render()

	if len(o.Excluded) > 0 {
		ex := table.NewWriter()
		ex.SetOutputMirror(os.Stdout)
		ex.SetTitle("Excluded")
		ex.AppendHeader(table.Row{"Barcode", "Order", "Reason"})
		for _, e := range o.Excluded {
			ex.AppendRow(table.Row{e.Barcode, e.OrderNo, e.Message})
		}
		ex.Render()
	}
}
