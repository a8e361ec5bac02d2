package tier

import (
	_ "embed"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/mtlprog/divtracker/internal/domain"
)

//go:embed schedule.yaml
var builtinSchedule string

// Schedule bundles everything the projector needs: the tier table, the
// conversion rates and the asset registry.
type Schedule struct {
	Classification domain.AssetInfo
	Settlement     domain.AssetInfo
	Assets         map[string]domain.AssetInfo
	Rates          RateTable
	Table          *Table

	projector *Projector
}

type scheduleFile struct {
	Classification string            `yaml:"classification"`
	Settlement     string            `yaml:"settlement"`
	Assets         map[string]string `yaml:"assets"`
	Rates          map[string]string `yaml:"rates"`
	Tiers          []tierFile        `yaml:"tiers"`
}

type tierFile struct {
	Min     string     `yaml:"min"`
	Rewards []lineFile `yaml:"rewards"`
}

type lineFile struct {
	Asset string `yaml:"asset"`
	Rate  string `yaml:"rate"`
}

// Default returns the built-in schedule.
func Default() (*Schedule, error) {
	return Load(strings.NewReader(builtinSchedule))
}

// LoadFile reads a YAML schedule from path.
func LoadFile(path string) (*Schedule, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening tier schedule: %w", err)
	}
	defer f.Close()

	s, err := Load(f)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", path, err)
	}
	return s, nil
}

// Load parses and validates a YAML schedule.
func Load(r io.Reader) (*Schedule, error) {
	var raw scheduleFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("decoding tier schedule: %w", err)
	}

	assets := make(map[string]domain.AssetInfo, len(raw.Assets))
	for code, issuer := range raw.Assets {
		asset := domain.NewAssetInfo(code, issuer)
		if !asset.IsNative() && issuer == "" {
			return nil, fmt.Errorf("asset %s: issuer is required", code)
		}
		assets[code] = asset
	}

	rates := make(map[string]decimal.Decimal, len(raw.Rates))
	for code, s := range raw.Rates {
		r, err := decimal.NewFromString(s)
		if err != nil {
			return nil, fmt.Errorf("rate for %s: %w", code, err)
		}
		rates[code] = r
	}
	rateTable, err := NewRateTable(raw.Settlement, rates)
	if err != nil {
		return nil, err
	}

	tiers := make([]Tier, 0, len(raw.Tiers))
	for i, tf := range raw.Tiers {
		lower, err := decimal.NewFromString(tf.Min)
		if err != nil {
			return nil, fmt.Errorf("tier %d min: %w", i+1, err)
		}
		lines := make([]RewardLine, 0, len(tf.Rewards))
		for _, lf := range tf.Rewards {
			rate, err := parseRate(lf.Rate)
			if err != nil {
				return nil, fmt.Errorf("tier %d %s: %w", i+1, lf.Asset, err)
			}
			lines = append(lines, RewardLine{Asset: lf.Asset, Rate: rate})
		}
		tiers = append(tiers, Tier{ID: ID(i + 1), Min: lower, Lines: lines})
	}
	table, err := NewTable(tiers)
	if err != nil {
		return nil, err
	}

	s := &Schedule{
		Assets: assets,
		Rates:  rateTable,
		Table:  table,
	}
	var ok bool
	if s.Classification, ok = assets[raw.Classification]; !ok {
		return nil, fmt.Errorf("classification asset %q is not in the asset registry", raw.Classification)
	}
	if s.Settlement, ok = assets[raw.Settlement]; !ok {
		return nil, fmt.Errorf("settlement asset %q is not in the asset registry", raw.Settlement)
	}

	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// parseRate accepts a fraction ("0.035") or a percentage ("3.5%").
func parseRate(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if pct, ok := strings.CutSuffix(s, "%"); ok {
		d, err := decimal.NewFromString(strings.TrimSpace(pct))
		if err != nil {
			return decimal.Zero, fmt.Errorf("parsing rate %q: %w", s, err)
		}
		return d.Div(decimal.NewFromInt(100)), nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parsing rate %q: %w", s, err)
	}
	return d, nil
}

// Validate checks cross-references between the table, rates and registry and
// builds the projector. A missing rate would mean a division by zero at
// projection time, so it is rejected here.
func (s *Schedule) Validate() error {
	for _, code := range s.Table.Assets() {
		if _, ok := s.Assets[code]; !ok {
			return fmt.Errorf("reward asset %s is not in the asset registry", code)
		}
	}
	p, err := NewProjector(s.Table, s.Rates, s.Classification.Code)
	if err != nil {
		return err
	}
	s.projector = p
	return nil
}

// Projector returns the validated projector.
func (s *Schedule) Projector() *Projector { return s.projector }

// Asset looks up an asset by code.
func (s *Schedule) Asset(code string) (domain.AssetInfo, bool) {
	a, ok := s.Assets[code]
	return a, ok
}

// RewardAssets returns the assets paid out by the table, in order of first use.
func (s *Schedule) RewardAssets() []domain.AssetInfo {
	return lo.FilterMap(s.Table.Assets(), func(code string, _ int) (domain.AssetInfo, bool) {
		return s.Asset(code)
	})
}

// WithRates returns a copy of the schedule with conversion rates overridden.
func (s *Schedule) WithRates(overrides map[string]decimal.Decimal) (*Schedule, error) {
	rates, err := s.Rates.WithOverrides(overrides)
	if err != nil {
		return nil, err
	}
	c := &Schedule{
		Classification: s.Classification,
		Settlement:     s.Settlement,
		Assets:         s.Assets,
		Rates:          rates,
		Table:          s.Table,
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}
