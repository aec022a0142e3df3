package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/xhad/tradeqa/internal/models"
)

var entityCmd = &cobra.Command{
	Use:   "entity [company]",
	Short: "Research a company and its relationship to listed suppliers",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runEntity,
}

func init() {
	rootCmd.AddCommand(entityCmd)
}

func runEntity(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	a, err := newApp(cfg)
	if err != nil {
		return err
	}

	name := strings.Join(args, " ")
	spinner := getSpinner("🔍 " + name)
	profile := a.analyzer.AnalyzeEntity(ctx, name)
	findings := a.analyzer.Score(profile)
	spinner.Finish()
	fmt.Print("\r")

	printProfile(profile)

	if len(findings) == 0 {
		color.Yellow("\n기준 업체와의 관계가 확인되지 않았습니다.")
		return nil
	}
	color.Cyan("\n관계 분석")
	for _, f := range findings {
		color.Green("- %s (신뢰도 %.2f)", f.EntityID, f.Confidence)
		for _, e := range f.Evidence {
			fmt.Printf("    %s: %s (%.2f)\n", e.Kind, e.Detail, e.Confidence)
		}
	}
	return nil
}

func printProfile(p models.EntityProfile) {
	color.Cyan("\n%s", p.Name)
	field := func(label, value string) {
		if value != "" {
			fmt.Printf("  %s: %s\n", label, value)
		}
	}
	list := func(label string, values []string) {
		if len(values) > 0 {
			fmt.Printf("  %s: %s\n", label, strings.Join(values, "; "))
		}
	}

	field("대표자", p.Representative)
	field("설립일", p.FoundedOn)
	field("등록번호", p.RegistrationNumber)
	field("주소", p.Address)
	list("주주", p.Shareholders)
	list("관계사", p.Affiliates)
	list("모회사", p.Parents)
	list("사업 범위", p.BusinessScope)
	list("무역 활동", p.TradeActivity)
	list("재무", p.Financials)
	list("인증", p.Certifications)
	list("뉴스", p.News)

	if !p.HasEnrichment() {
		color.Yellow("  웹 검색 결과가 없습니다.")
	}
}
