package sync

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"gopkg.in/yaml.v3"

	"github.com/harbor-supply/costsync/internal/model"
)

// WritePlanFile exports a plan to path. The format follows the extension:
// .yaml/.yml or .xlsx.
func WritePlanFile(plan *model.SyncPlan, path string) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return writePlanYAML(plan, path)
	case ".xlsx":
		return writePlanXLSX(plan, path)
	default:
		return eris.Errorf("sync: unsupported plan format %q (use .yaml, .yml or .xlsx)", filepath.Ext(path))
	}
}

// yamlPlan is the file shape of an exported plan. Money renders as fixed
// two-decimal strings, not bare decimals, so "25.00" never degrades to
// "25" in review files.
type yamlPlan struct {
	RunID        string          `yaml:"run_id"`
	CreatedAt    time.Time       `yaml:"created_at"`
	VariantsSeen int             `yaml:"variants_seen"`
	SkippedNoSKU int             `yaml:"skipped_no_sku"`
	Families     []yamlFamily    `yaml:"families"`
	Unmatched    []yamlUnmatched `yaml:"unmatched,omitempty"`
}

type yamlFamily struct {
	Prefix            string       `yaml:"prefix"`
	SupplierProductID string       `yaml:"supplier_product_id"`
	BasePrice         string       `yaml:"base_price"`
	MinQty            int          `yaml:"min_qty"`
	Updates           []yamlUpdate `yaml:"updates"`
}

type yamlUpdate struct {
	VariantID       int64  `yaml:"variant_id"`
	InventoryItemID int64  `yaml:"inventory_item_id"`
	SKU             string `yaml:"sku"`
	Qty             int    `yaml:"qty"`
	NewCost         string `yaml:"new_cost"`
}

type yamlUnmatched struct {
	Prefix   string `yaml:"prefix"`
	Variants int    `yaml:"variants"`
}

func writePlanYAML(plan *model.SyncPlan, path string) error {
	doc := yamlPlan{
		RunID:        plan.RunID,
		CreatedAt:    plan.CreatedAt,
		VariantsSeen: plan.VariantsSeen,
		SkippedNoSKU: plan.SkippedNoSKU,
	}
	for _, f := range plan.Families {
		family := yamlFamily{
			Prefix:            f.Prefix,
			SupplierProductID: f.SupplierProductID,
			BasePrice:         f.BasePrice.StringFixed(2),
			MinQty:            f.MinQty,
		}
		for _, u := range f.Updates {
			family.Updates = append(family.Updates, yamlUpdate{
				VariantID:       u.VariantID,
				InventoryItemID: u.InventoryItemID,
				SKU:             u.SKU,
				Qty:             u.Qty,
				NewCost:         u.NewCost.StringFixed(2),
			})
		}
		doc.Families = append(doc.Families, family)
	}
	for _, um := range plan.Unmatched {
		doc.Unmatched = append(doc.Unmatched, yamlUnmatched{Prefix: um.Prefix, Variants: um.Variants})
	}

	data, err := yaml.Marshal(doc)
	if err != nil {
		return eris.Wrap(err, "sync: marshal plan")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return eris.Wrap(err, "sync: write plan")
	}
	return nil
}

// writePlanXLSX lays the plan out as a workbook for purchasing review: one
// row per update, plus a second sheet naming families the supplier catalog
// is missing.
func writePlanXLSX(plan *model.SyncPlan, path string) error {
	file := xlsx.NewFile()

	sheet, err := file.AddSheet("cost updates")
	if err != nil {
		return eris.Wrap(err, "sync: add sheet")
	}
	header := sheet.AddRow()
	for _, h := range []string{"family", "sku", "variant_id", "inventory_item_id", "qty", "base_price", "new_cost"} {
		header.AddCell().Value = h
	}
	for _, f := range plan.Families {
		for _, u := range f.Updates {
			row := sheet.AddRow()
			row.AddCell().Value = f.Prefix
			row.AddCell().Value = u.SKU
			row.AddCell().SetInt64(u.VariantID)
			row.AddCell().SetInt64(u.InventoryItemID)
			row.AddCell().SetInt(u.Qty)
			base, _ := f.BasePrice.Float64()
			row.AddCell().SetFloatWithFormat(base, "0.00")
			cost, _ := u.NewCost.Float64()
			row.AddCell().SetFloatWithFormat(cost, "0.00")
		}
	}

	if len(plan.Unmatched) > 0 {
		unmatched, err := file.AddSheet("unmatched families")
		if err != nil {
			return eris.Wrap(err, "sync: add unmatched sheet")
		}
		header := unmatched.AddRow()
		header.AddCell().Value = "family"
		header.AddCell().Value = "variants"
		for _, um := range plan.Unmatched {
			row := unmatched.AddRow()
			row.AddCell().Value = um.Prefix
			row.AddCell().SetInt(um.Variants)
		}
	}

	if err := file.Save(path); err != nil {
		return eris.Wrap(err, "sync: save plan workbook")
	}
	return nil
}

// RenderPlanTable writes a fixed-width summary of the plan for terminal
// review, with grouped digits in the wide numeric columns.
func RenderPlanTable(w io.Writer, plan *model.SyncPlan) {
	p := message.NewPrinter(language.English)

	_, _ = p.Fprintf(w, "plan %s: %d variants listed, %d without SKU\n\n",
		plan.RunID, plan.VariantsSeen, plan.SkippedNoSKU)
	_, _ = p.Fprintf(w, "%-14s %-20s %14s %6s %10s %10s\n",
		"FAMILY", "SKU", "VARIANT", "QTY", "BASE", "NEW COST")
	for _, f := range plan.Families {
		for _, u := range f.Updates {
			_, _ = p.Fprintf(w, "%-14s %-20s %14d %6d %10s %10s\n",
				f.Prefix, u.SKU, u.VariantID, u.Qty,
				f.BasePrice.StringFixed(2), u.NewCost.StringFixed(2))
		}
	}

	if len(plan.Unmatched) > 0 {
		_, _ = p.Fprintf(w, "\nno supplier entry for:\n")
		for _, um := range plan.Unmatched {
			_, _ = p.Fprintf(w, "  %s (%d variants)\n", um.Prefix, um.Variants)
		}
	}

	_, _ = p.Fprintf(w, "\n%d updates across %d families\n", plan.Updates(), len(plan.Families))
}
