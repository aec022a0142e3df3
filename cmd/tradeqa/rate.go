package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/xhad/tradeqa/internal/models"
	"github.com/xhad/tradeqa/pkg/tariff"
)

var (
	rateProduct string
	rateSpec    string
	rateLookup  bool
)

var rateCmd = &cobra.Command{
	Use:   "rate [supplier]",
	Short: "Look up the anti-dumping duty rate for a supplier",
	Long: `Looks up the duty rate for a supplier. With --lookup, a supplier that is
not in the rate table is researched on the web for a relationship to a listed
supplier before falling back to the rate for other suppliers, and a product
whose name and specification do not identify it as a printing plate is
researched before it is ruled out of scope.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runRate,
}

func init() {
	rateCmd.Flags().StringVar(&rateProduct, "product", "", "product name, checked against the duty's scope")
	rateCmd.Flags().StringVar(&rateSpec, "spec", "", "product specification")
	rateCmd.Flags().BoolVar(&rateLookup, "lookup", false, "research unknown suppliers on the web")
	rootCmd.AddCommand(rateCmd)
}

func runRate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	supplier := strings.Join(args, " ")

	var product *models.ProductInfo
	if rateProduct != "" || rateSpec != "" {
		product = &models.ProductInfo{Name: rateProduct, Specification: rateSpec}
	}

	relatedTo := ""
	if rateLookup {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		a, err := newApp(cfg)
		if err != nil {
			return err
		}
		lookupCtx, cancel := context.WithTimeout(ctx, 2*cfg.Search.OverallTimeout+10*time.Second)
		defer cancel()

		tariff.ConfirmProduct(lookupCtx, a.enricher, product)
		if _, known := tariff.DefaultTable.Find(supplier); !known {
			relatedTo = a.analyzer.RelatedTo(lookupCtx, supplier)
		}
	}

	res := tariff.DefaultTable.RateFor(supplier, product, relatedTo)
	if !res.Applicable {
		color.Yellow("%s\n", res.Reason)
		return nil
	}

	color.Green("%.2f%%", res.Rate)
	fmt.Printf("공급업체 유형: %s\n", res.SupplierType)
	if res.EntityID != "" {
		fmt.Printf("기준 업체: %s\n", res.EntityID)
	}
	if res.Reason != "" {
		fmt.Printf("근거: %s\n", res.Reason)
	}
	return nil
}
