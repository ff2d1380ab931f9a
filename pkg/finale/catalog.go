package finale

import (
	"encoding/json"
	"io"
	"os"

	"github.com/rotisserie/eris"
	"github.com/shopspring/decimal"
)

// Catalog is the product catalog export. The supplier list arrives as one
// row of entries per product, so matching an id means scanning the nested
// lists.
type Catalog struct {
	SupplierList [][]SupplierEntry
}

// SupplierEntry is a single supplier price row from the catalog.
type SupplierEntry struct {
	SupplierProductID string          `json:"supplierProductId"`
	Price             decimal.Decimal `json:"price"`
	PartyID           string          `json:"partyId"`
}

// FormatError reports a catalog payload whose shape does not match the
// documented product export: a JSON object carrying a supplierList of
// per-product entry lists.
type FormatError struct {
	Reason string
}

func (e *FormatError) Error() string {
	return "finale: malformed catalog: " + e.Reason
}

// DecodeCatalog parses a product catalog export. Payloads that are not
// valid JSON, that lack a supplierList, or whose supplierList is not a
// list of entry lists, return a *FormatError so callers can tell data
// problems from transport problems.
func DecodeCatalog(r io.Reader) (*Catalog, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, eris.Wrap(err, "finale: read catalog")
	}

	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, &FormatError{Reason: "payload is not a JSON object"}
	}

	list, ok := envelope["supplierList"]
	if !ok {
		return nil, &FormatError{Reason: "missing supplierList"}
	}

	var suppliers [][]SupplierEntry
	if err := json.Unmarshal(list, &suppliers); err != nil {
		return nil, &FormatError{Reason: "supplierList is not a list of supplier entry lists"}
	}

	return &Catalog{SupplierList: suppliers}, nil
}

// DecodeCatalogFile opens and decodes a staged catalog download.
func DecodeCatalogFile(path string) (*Catalog, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrap(err, "finale: open catalog file")
	}
	defer file.Close() //nolint:errcheck

	return DecodeCatalog(file)
}
