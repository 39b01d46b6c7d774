package quote

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// Shock is the damage point whose line items are being edited.
type Shock struct {
	ID                  int64  `json:"id"`
	Label               string `json:"label"`
	AssignmentReference string `json:"assignmentReference"`
	Status              string `json:"status"`
}

// Column describes one editable field of a line type.
type Column struct {
	Field string
	Title string
	Width int
}

// Line is the read side shared by both line kinds.
type Line interface {
	RowUID() string
	RowID() int64
	Value(field string) string
	Total() decimal.Decimal
}

var hundred = decimal.NewFromInt(100)

// SupplyLine is one parts/supply usage line.
type SupplyLine struct {
	UID          string          `json:"uid,omitempty"`
	ID           int64           `json:"id,omitempty"`
	Reference    string          `json:"reference" validate:"max=64"`
	Label        string          `json:"label" validate:"required,max=255"`
	Quantity     decimal.Decimal `json:"quantity" validate:"gt=0"`
	UnitPrice    decimal.Decimal `json:"unitPrice" validate:"gte=0"`
	DiscountRate decimal.Decimal `json:"discountRate" validate:"gte=0,lte=100"`
	VATRate      decimal.Decimal `json:"vatRate" validate:"gte=0,lte=100"`
	Recovered    bool            `json:"recovered"`
	Validated    bool            `json:"validated"`
}

// SupplyColumns lists the editable supply fields in display order.
var SupplyColumns = []Column{
	{Field: "reference", Title: "Ref", Width: 12},
	{Field: "label", Title: "Label", Width: 28},
	{Field: "quantity", Title: "Qty", Width: 6},
	{Field: "unitPrice", Title: "Unit price", Width: 10},
	{Field: "discountRate", Title: "Disc %", Width: 7},
	{Field: "vatRate", Title: "VAT %", Width: 6},
	{Field: "recovered", Title: "Recov", Width: 5},
}

// NewSupplyLine returns a blank supply line with default quantity and VAT.
func NewSupplyLine(uid string) SupplyLine {
	return SupplyLine{
		UID:      uid,
		Quantity: decimal.NewFromInt(1),
		VATRate:  decimal.NewFromInt(20),
	}
}

func (l SupplyLine) RowUID() string                { return l.UID }
func (l SupplyLine) RowID() int64                  { return l.ID }
func (l SupplyLine) WithUID(uid string) SupplyLine { l.UID = uid; return l }
func (l SupplyLine) WithID(id int64) SupplyLine    { l.ID = id; return l }
func (l SupplyLine) IsValidated() bool             { return l.Validated }

// WithField returns a copy with field set from its text form.
func (l SupplyLine) WithField(field, value string) (SupplyLine, error) {
	var err error
	switch field {
	case "reference":
		l.Reference = strings.TrimSpace(value)
	case "label":
		l.Label = strings.TrimSpace(value)
	case "quantity":
		l.Quantity, err = parseDecimal(value)
	case "unitPrice":
		l.UnitPrice, err = parseDecimal(value)
	case "discountRate":
		l.DiscountRate, err = parseDecimal(value)
	case "vatRate":
		l.VATRate, err = parseDecimal(value)
	case "recovered":
		l.Recovered, err = parseBool(value)
	default:
		return l, fmt.Errorf("unknown supply field %q", field)
	}
	return l, err
}

// Value returns field in its editable text form.
func (l SupplyLine) Value(field string) string {
	switch field {
	case "reference":
		return l.Reference
	case "label":
		return l.Label
	case "quantity":
		return l.Quantity.String()
	case "unitPrice":
		return l.UnitPrice.StringFixed(2)
	case "discountRate":
		return l.DiscountRate.String()
	case "vatRate":
		return l.VATRate.String()
	case "recovered":
		return formatBool(l.Recovered)
	}
	return ""
}

// Total is the discounted amount excluding VAT.
func (l SupplyLine) Total() decimal.Decimal {
	gross := l.Quantity.Mul(l.UnitPrice)
	discount := gross.Mul(l.DiscountRate).Div(hundred)
	return gross.Sub(discount).Round(2)
}

// WorkforceLine is one labor line.
type WorkforceLine struct {
	UID        string          `json:"uid,omitempty"`
	ID         int64           `json:"id,omitempty"`
	Label      string          `json:"label" validate:"required,max=255"`
	Category   string          `json:"category" validate:"oneof=bodywork mechanics electrical paint"`
	Hours      decimal.Decimal `json:"hours" validate:"gte=0"`
	HourlyRate decimal.Decimal `json:"hourlyRate" validate:"gte=0"`
	VATRate    decimal.Decimal `json:"vatRate" validate:"gte=0,lte=100"`
	Validated  bool            `json:"validated"`
}

// WorkforceColumns lists the editable workforce fields in display order.
var WorkforceColumns = []Column{
	{Field: "label", Title: "Label", Width: 28},
	{Field: "category", Title: "Category", Width: 11},
	{Field: "hours", Title: "Hours", Width: 6},
	{Field: "hourlyRate", Title: "Rate", Width: 8},
	{Field: "vatRate", Title: "VAT %", Width: 6},
}

// NewWorkforceLine returns a blank bodywork line with default VAT.
func NewWorkforceLine(uid string) WorkforceLine {
	return WorkforceLine{
		UID:      uid,
		Category: "bodywork",
		VATRate:  decimal.NewFromInt(20),
	}
}

func (l WorkforceLine) RowUID() string                   { return l.UID }
func (l WorkforceLine) RowID() int64                     { return l.ID }
func (l WorkforceLine) WithUID(uid string) WorkforceLine { l.UID = uid; return l }
func (l WorkforceLine) WithID(id int64) WorkforceLine    { l.ID = id; return l }
func (l WorkforceLine) IsValidated() bool                { return l.Validated }

// WithField returns a copy with field set from its text form.
func (l WorkforceLine) WithField(field, value string) (WorkforceLine, error) {
	var err error
	switch field {
	case "label":
		l.Label = strings.TrimSpace(value)
	case "category":
		l.Category = strings.ToLower(strings.TrimSpace(value))
	case "hours":
		l.Hours, err = parseDecimal(value)
	case "hourlyRate":
		l.HourlyRate, err = parseDecimal(value)
	case "vatRate":
		l.VATRate, err = parseDecimal(value)
	default:
		return l, fmt.Errorf("unknown workforce field %q", field)
	}
	return l, err
}

// Value returns field in its editable text form.
func (l WorkforceLine) Value(field string) string {
	switch field {
	case "label":
		return l.Label
	case "category":
		return l.Category
	case "hours":
		return l.Hours.String()
	case "hourlyRate":
		return l.HourlyRate.StringFixed(2)
	case "vatRate":
		return l.VATRate.String()
	}
	return ""
}

// Total is hours times rate excluding VAT.
func (l WorkforceLine) Total() decimal.Decimal {
	return l.Hours.Mul(l.HourlyRate).Round(2)
}

// parseDecimal accepts both "12.5" and "12,5".
func parseDecimal(value string) (decimal.Decimal, error) {
	clean := strings.ReplaceAll(strings.TrimSpace(value), ",", ".")
	if clean == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(clean)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid number %q", value)
	}
	return d, nil
}

func parseBool(value string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "y", "yes", "x":
		return true, nil
	case "", "n", "no":
		return false, nil
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("invalid flag %q", value)
	}
	return b, nil
}

func formatBool(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

// newValidate builds a validator that compares decimal fields numerically.
func newValidate() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	v.RegisterCustomTypeFunc(func(field reflect.Value) any {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := d.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})
	return v
}

// validationMessage turns validator errors into one readable line.
func validationMessage(err error) string {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		parts = append(parts, fmt.Sprintf("%s: %s", fe.Field(), ruleText(fe)))
	}
	return strings.Join(parts, "; ")
}

func ruleText(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "required"
	case "gt":
		return "must be greater than " + fe.Param()
	case "gte":
		return "must be at least " + fe.Param()
	case "lte":
		return "must be at most " + fe.Param()
	case "max":
		return "too long"
	case "oneof":
		return "must be one of " + fe.Param()
	}
	return fe.Tag()
}
