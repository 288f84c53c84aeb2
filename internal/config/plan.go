package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/JonMunkholm/tableclean/internal/export"
	"github.com/JonMunkholm/tableclean/internal/normalize"
	"github.com/JonMunkholm/tableclean/internal/outlier"
	"github.com/JonMunkholm/tableclean/internal/skew"
	"gopkg.in/yaml.v3"
)

// SupportedPlanSchema is the only plan schema_version understood.
const SupportedPlanSchema = "v1"

// Plan describes one cleaning run. Unset optional fields fall back to
// CleanConfig defaults in SkewOptions and OutlierOptions.
//
//	schema_version: v1
//	table: loan_payments
//	outliers:
//	  method: iqr
//	normalize:
//	  - {column: term, kind: extract_number}
//	skew:
//	  threshold: 1
//	  manual: {annual_inc: box_cox}
//	export:
//	  - {format: parquet, dir: out}
//	write_back: loan_payments_clean
type Plan struct {
	SchemaVersion string `yaml:"schema_version" json:"schema_version"`

	// Exactly one of Table and Input selects the data.
	Table string `yaml:"table" json:"table"`
	Input string `yaml:"input" json:"input"` // CSV or parquet file

	Outliers  *OutlierPlan     `yaml:"outliers" json:"outliers"`
	Normalize []normalize.Step `yaml:"normalize" json:"normalize"`
	Skew      SkewPlan         `yaml:"skew" json:"skew"`
	Export    []export.Target  `yaml:"export" json:"export"`
	WriteBack string           `yaml:"write_back" json:"write_back"` // Destination table
}

// OutlierPlan selects the outlier method. A nil plan section uses the
// configured default method; method "none" disables the stage.
type OutlierPlan struct {
	Method     string   `yaml:"method" json:"method"`
	ZThreshold float64  `yaml:"z_threshold" json:"z_threshold"`
	Columns    []string `yaml:"columns" json:"columns"`
}

// SkewPlan configures skew reduction.
type SkewPlan struct {
	Threshold       *float64          `yaml:"threshold" json:"threshold"`
	Manual          map[string]string `yaml:"manual" json:"manual"`
	StrictOverrides *bool             `yaml:"strict_overrides" json:"strict_overrides"`
	Allowed         []string          `yaml:"allowed" json:"allowed"`
	Disabled        bool              `yaml:"disabled" json:"disabled"`
}

// LoadPlan reads and validates a plan file. A relative Input path is
// resolved against the plan's directory.
func LoadPlan(path string) (*Plan, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read plan: %w", err)
	}
	p, err := ParsePlan(raw)
	if err != nil {
		return nil, fmt.Errorf("plan %s: %w", path, err)
	}
	if p.Input != "" && !filepath.IsAbs(p.Input) {
		p.Input = filepath.Join(filepath.Dir(path), p.Input)
	}
	return p, nil
}

// ParsePlan decodes and validates a YAML plan. Unknown keys are rejected.
func ParsePlan(raw []byte) (*Plan, error) {
	var p Plan
	dec := yaml.NewDecoder(strings.NewReader(string(raw)))
	dec.KnownFields(true)
	if err := dec.Decode(&p); err != nil {
		return nil, fmt.Errorf("decode plan: %w", err)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

// Validate checks the plan and reports every problem at once.
func (p *Plan) Validate() error {
	if p.SchemaVersion == "" {
		p.SchemaVersion = SupportedPlanSchema
	}

	var errs []string
	if p.SchemaVersion != SupportedPlanSchema {
		errs = append(errs, fmt.Sprintf("schema_version %q not supported (want %q)", p.SchemaVersion, SupportedPlanSchema))
	}
	if (p.Table == "") == (p.Input == "") {
		errs = append(errs, "exactly one of table and input is required")
	}

	if p.Outliers != nil && !p.OutliersDisabled() {
		if _, err := outlier.ParseMethod(p.Outliers.Method); err != nil {
			errs = append(errs, "outliers: "+err.Error())
		}
		if p.Outliers.ZThreshold < 0 {
			errs = append(errs, "outliers: z_threshold must be >= 0 (0 uses the default)")
		}
	}

	for i, s := range p.Normalize {
		if s.Column == "" {
			errs = append(errs, fmt.Sprintf("normalize[%d]: column is required", i))
		}
		if _, err := normalize.ParseKind(string(s.Kind)); err != nil {
			errs = append(errs, fmt.Sprintf("normalize[%d]: %v", i, err))
		}
	}

	if t := p.Skew.Threshold; t != nil && !(*t >= 0) {
		errs = append(errs, fmt.Sprintf("skew: threshold (%g) must be >= 0", *t))
	}
	for _, a := range p.Skew.Allowed {
		if _, ok := skew.ParseTransform(a); !ok {
			errs = append(errs, fmt.Sprintf("skew: unknown allowed transform %q", a))
		}
	}

	for i, t := range p.Export {
		if t.Format == "" {
			continue
		}
		if _, err := export.ParseFormat(string(t.Format)); err != nil {
			errs = append(errs, fmt.Sprintf("export[%d]: %v", i, err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid plan:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// OutliersDisabled reports whether the plan turns the outlier stage off.
func (p *Plan) OutliersDisabled() bool {
	return p.Outliers != nil && strings.EqualFold(strings.TrimSpace(p.Outliers.Method), "none")
}

// SkewOptions converts the skew section into orchestration options,
// falling back to defaults for unset fields.
func (p *Plan) SkewOptions(defaults CleanConfig) skew.Options {
	opts := skew.Options{
		Threshold:       defaults.SkewThreshold,
		Manual:          p.Skew.Manual,
		StrictOverrides: defaults.StrictOverrides,
	}
	if p.Skew.Threshold != nil {
		opts.Threshold = *p.Skew.Threshold
	}
	if p.Skew.StrictOverrides != nil {
		opts.StrictOverrides = *p.Skew.StrictOverrides
	}
	for _, a := range p.Skew.Allowed {
		if t, ok := skew.ParseTransform(a); ok {
			opts.Allowed = append(opts.Allowed, t)
		}
	}
	return opts
}

// OutlierOptions returns the outlier stage options, or nil when the stage
// is skipped.
func (p *Plan) OutlierOptions(defaults CleanConfig) *outlier.Options {
	if p.OutliersDisabled() {
		return nil
	}

	method, z, cols := defaults.OutlierMethod, defaults.ZThreshold, []string(nil)
	if p.Outliers != nil {
		method, cols = p.Outliers.Method, p.Outliers.Columns
		if p.Outliers.ZThreshold > 0 {
			z = p.Outliers.ZThreshold
		}
	}
	if method == "" {
		return nil
	}

	m, err := outlier.ParseMethod(method)
	if err != nil {
		return nil
	}
	return &outlier.Options{Method: m, ZThreshold: z, Columns: cols}
}
