package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"github.com/urfave/cli/v2"

	"github.com/mtlprog/divtracker/internal/domain"
	"github.com/mtlprog/divtracker/internal/export"
	"github.com/mtlprog/divtracker/internal/tier"
)

func tiersCommand() *cli.Command {
	return &cli.Command{
		Name:  "tiers",
		Usage: "print the tier table",
		Action: func(c *cli.Context) error {
			schedule, err := loadSchedule(loadConfig(c))
			if err != nil {
				return err
			}
			return printTiers(c.App.Writer, schedule)
		},
	}
}

func printTiers(w io.Writer, s *tier.Schedule) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "TIER\t%s RANGE\tREWARDS\n", s.Classification.Code)
	for _, t := range s.Table.Tiers() {
		rng := t.Min.String() + "+"
		if upper, ok := s.Table.Upper(t.ID); ok {
			rng = fmt.Sprintf("%s to <%s", t.Min, upper)
		}
		rewards := lo.Map(t.Lines, func(l tier.RewardLine, _ int) string {
			return fmt.Sprintf("%s %s%%", l.Asset, l.Rate.Shift(2).String())
		})
		fmt.Fprintf(tw, "%s\t%s\t%s\n", t.ID, rng, strings.Join(rewards, ", "))
	}
	return tw.Flush()
}

func projectCommand() *cli.Command {
	return &cli.Command{
		Name:      "project",
		Usage:     "show the periodic dividend for a balance",
		ArgsUsage: "<balance>",
		Flags: []cli.Flag{
			&cli.StringSliceFlag{Name: "rate", Usage: "override a conversion rate, CODE=VALUE (repeatable)"},
		},
		Action: func(c *cli.Context) error {
			schedule, err := loadSchedule(loadConfig(c))
			if err != nil {
				return err
			}
			if overrides := c.StringSlice("rate"); len(overrides) > 0 {
				rates, err := parseRateOverrides(overrides)
				if err != nil {
					return err
				}
				if schedule, err = schedule.WithRates(rates); err != nil {
					return err
				}
			}
			balance, err := tier.ParseBalance(c.Args().First())
			if err != nil {
				return err
			}
			proj, err := schedule.Projector().Project(balance)
			if err != nil {
				return err
			}
			return printProjection(c.App.Writer, schedule, proj)
		},
	}
}

func parseRateOverrides(values []string) (map[string]decimal.Decimal, error) {
	rates := make(map[string]decimal.Decimal, len(values))
	for _, v := range values {
		code, raw, ok := strings.Cut(v, "=")
		if !ok || code == "" {
			return nil, fmt.Errorf("invalid rate override %q, want CODE=VALUE", v)
		}
		rate, err := decimal.NewFromString(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid rate for %s: %w", code, err)
		}
		rates[strings.ToUpper(code)] = rate
	}
	return rates, nil
}

func printProjection(w io.Writer, s *tier.Schedule, proj tier.Projection) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "Balance:\t%s %s\n", domain.FormatAmount(proj.Balance), s.Classification.Code)
	fmt.Fprintf(tw, "Tier:\t%s\n", proj.TierLabel)
	for _, line := range proj.Lines {
		fmt.Fprintf(tw, "%s:\t%s\t(%s %s)\n", line.Asset,
			domain.FormatAmount(line.Periodic), domain.FormatAmount(line.SettlementValue), s.Settlement.Code)
	}
	fmt.Fprintf(tw, "Total:\t%s %s\n", domain.FormatAmount(proj.SettlementTotal), s.Settlement.Code)
	return tw.Flush()
}

func anchorCommand() *cli.Command {
	return &cli.Command{
		Name:      "anchor",
		Usage:     "find the first operation of a wallet with the classification asset",
		ArgsUsage: "<address>",
		Action: func(c *cli.Context) error {
			cfg := loadConfig(c)
			schedule, err := loadSchedule(cfg)
			if err != nil {
				return err
			}
			address := domain.NormalizeAddress(c.Args().First())
			if err := domain.ValidateAddress(address); err != nil {
				return err
			}

			client := newHorizonClient(cfg, nil)
			at, found, err := client.FindFirstOperation(c.Context, address, schedule.Classification)
			if err != nil {
				return err
			}
			if !found {
				fmt.Fprintf(c.App.Writer, "no %s operation within %d pages of %d\n",
					schedule.Classification.Code, client.MaxPages(), client.PageSize())
				return nil
			}
			fmt.Fprintln(c.App.Writer, at.Format(time.RFC3339))
			return nil
		},
	}
}

func exportCommand() *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "run a sweep over all registered wallets and save it as XLSX",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Value: "dividends.xlsx", Usage: "destination file"},
		},
		Action: func(c *cli.Context) error {
			cfg := loadConfig(c)
			schedule, err := loadSchedule(cfg)
			if err != nil {
				return err
			}
			st, err := openStores(c.Context, cfg)
			if err != nil {
				return err
			}
			defer st.close()

			svc, err := newTracker(cfg, schedule, newHorizonClient(cfg, nil), st.wallets, nil)
			if err != nil {
				return err
			}
			sweep, err := svc.Sweep(c.Context)
			if err != nil {
				return err
			}

			out := c.String("output")
			exporter := export.NewService(export.NewXLSXWriter(out), schedule.Table.Assets())
			if err := exporter.Export(c.Context, sweep); err != nil {
				return err
			}
			fmt.Fprintf(c.App.Writer, "wrote %d wallets to %s\n", sweep.Wallets, out)
			return nil
		},
	}
}
