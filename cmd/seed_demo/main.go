package main

import (
	"flag"
	"fmt"
	"log"
	"math/rand"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm/clause"

	"github.com/xelth-com/fabricplan/internal/config"
	"github.com/xelth-com/fabricplan/internal/database"
	"github.com/xelth-com/fabricplan/internal/models"
)

// demoTypes are the rolls the demo catalog offers
var demoTypes = []models.FabricType{
	{ID: "CV-200", Description: "Canvas 200 g", RollWidth: decimal.RequireFromString("3.2"), Thickness: decimal.RequireFromString("0.45")},
	{ID: "PV-650", Description: "PVC tarpaulin 650 g", RollWidth: decimal.RequireFromString("2.5"), Thickness: decimal.RequireFromString("0.55")},
	{ID: "MS-120", Description: "Mesh 120 g", RollWidth: decimal.RequireFromString("1.6"), Thickness: decimal.RequireFromString("0.30")},
}

func main() {
	orders := flag.Int("orders", 12, "orders per fabric type")
	seed := flag.Int64("seed", 42, "random seed")
	reset := flag.Bool("reset", false, "truncate planning tables first")
	flag.Parse()

	fmt.Println("🌱 Fabric Planner Demo Data Seeder")
	fmt.Println(strings.Repeat("=", 60))

	// Load config
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("❌ Failed to load config: %v", err)
	}

	// Connect to database
	db, err := database.Connect(cfg.Database)
	if err != nil {
		log.Fatalf("❌ Failed to connect to database: %v", err)
	}
	defer db.Close()
	fmt.Println("✅ Connected to database")

	// Run migrations first
	fmt.Println("🔨 Running database migrations...")
	if err := db.Migrate(); err != nil {
		log.Fatalf("❌ Migration failed: %v", err)
	}

	if *reset {
		fmt.Println("🗑️  Clearing existing data...")
		for _, table := range []string{"plan_items", "plan_orders", "plans", "layout_items", "layouts", "fabric_pieces", "fabric_types"} {
			if err := db.Exec("TRUNCATE TABLE " + table + " CASCADE").Error; err != nil {
				log.Fatalf("❌ Truncate %s failed: %v", table, err)
			}
		}
	}

	if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&demoTypes).Error; err != nil {
		log.Fatalf("❌ Failed to create fabric types: %v", err)
	}
	fmt.Printf("🧵 %d fabric types\n", len(demoTypes))

	rng := rand.New(rand.NewSource(*seed))
	pieces := generatePieces(rng, *orders)
	res := db.Clauses(clause.OnConflict{DoNothing: true}).CreateInBatches(&pieces, 200)
	if res.Error != nil {
		log.Fatalf("❌ Failed to create pieces: %v", res.Error)
	}
	fmt.Printf("✂️  %d pieces generated, %d new\n", len(pieces), res.RowsAffected)
	fmt.Println("✅ Demo data ready")
}

// generatePieces creates orders with one to six pieces each. Every tenth order
// is a sample, and a few pieces per type are wider than the roll or have no
// dimensions so the exclusion paths show up in previews.
func generatePieces(rng *rand.Rand, ordersPerType int) []models.FabricPiece {
	now := time.Now().UTC()
	var out []models.FabricPiece
	for ti, ft := range demoTypes {
		usable := ft.RollWidth.InexactFloat64() - 0.6
		for o := 1; o <= ordersPerType; o++ {
			orderNo := fmt.Sprintf("%d%04d", ti+1, o)
			kind := models.OrderKindOrder
			if o%10 == 0 {
				kind = models.OrderKindSample
			}
			n := 1 + rng.Intn(6)
			for p := 1; p <= n; p++ {
				width := round2(0.3 + rng.Float64()*(usable-0.3))
				length := round2(0.4 + rng.Float64()*2.6)
				switch {
				case o == 3 && p == 1:
					width = round2(ft.RollWidth.InexactFloat64() + 0.2)
				case o == 5 && p == 1:
					width = 0
				}
				w := decimal.NewFromFloat(width)
				l := decimal.NewFromFloat(length)
				list, item, qty := o, p, 1
				out = append(out, models.FabricPiece{
					BarcodeNo:    fmt.Sprintf("%s-%s-%02d", ft.ID, orderNo, p),
					OrderNo:      orderNo,
					ListNo:       &list,
					ItemNo:       &item,
					FabricTypeID: ft.ID,
					FabricDesc:   ft.Description,
					Width:        w,
					Length:       l,
					Sqm:          w.Mul(l).Round(4),
					Qty:          &qty,
					OrderType:    kind,
					SyncedAt:     now,
				})
			}
		}
	}
	return out
}

func round2(v float64) float64 {
	return float64(int(v*100+0.5)) / 100
}
