package editor

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/hanko-field/bizdoc/internal/domain"
	"github.com/hanko-field/bizdoc/internal/money"
	"github.com/hanko-field/bizdoc/internal/platform/textutil"
)

// Field names a scalar document field editable through UpdateField.
type Field string

const (
	FieldIssuerName       Field = "issuer.name"
	FieldIssuerAddress    Field = "issuer.address"
	FieldIssuerEmail      Field = "issuer.email"
	FieldIssuerPhone      Field = "issuer.phone"
	FieldIssuerTaxID      Field = "issuer.tax_id"
	FieldIssuerLogo       Field = "issuer.logo"
	FieldRecipientName    Field = "recipient.name"
	FieldRecipientAddress Field = "recipient.address"
	FieldRecipientEmail   Field = "recipient.email"
	FieldRecipientPhone   Field = "recipient.phone"
	FieldRecipientTaxID   Field = "recipient.tax_id"
	FieldNumber           Field = "number"
	FieldReference        Field = "reference"
	FieldIssueDate        Field = "issue_date"
	FieldDueOrExpiryDate  Field = "due_or_expiry_date"
	FieldTaxRate          Field = "tax_rate"
	FieldDiscountKind     Field = "discount.kind"
	FieldDiscountPercent  Field = "discount.percent"
	FieldDiscountAmount   Field = "discount.amount"
	FieldNotes            Field = "notes"
	FieldPaid             Field = "paid"
	FieldPaidOn           Field = "paid_on"
	FieldPaymentMethod    Field = "payment_method"
)

// DateLayout is the accepted format for date fields.
const DateLayout = "2006-01-02"

// Fields lists every editable field.
var Fields = []Field{
	FieldIssuerName, FieldIssuerAddress, FieldIssuerEmail, FieldIssuerPhone, FieldIssuerTaxID, FieldIssuerLogo,
	FieldRecipientName, FieldRecipientAddress, FieldRecipientEmail, FieldRecipientPhone, FieldRecipientTaxID,
	FieldNumber, FieldReference, FieldIssueDate, FieldDueOrExpiryDate,
	FieldTaxRate, FieldDiscountKind, FieldDiscountPercent, FieldDiscountAmount,
	FieldNotes, FieldPaid, FieldPaidOn, FieldPaymentMethod,
}

// ParseField normalises a raw field name.
func ParseField(raw string) (Field, bool) {
	field := Field(strings.ToLower(strings.TrimSpace(raw)))
	for _, candidate := range Fields {
		if candidate == field {
			return field, true
		}
	}
	return "", false
}

// setField writes value into doc. Text is reduced to plain text; numbers and
// dates must parse or the document is left unchanged.
func setField(doc *domain.BusinessDocument, field Field, value string, catalog *money.Catalog) error {
	switch field {
	case FieldIssuerName:
		doc.Issuer.Name = textutil.PlainLine(value)
	case FieldIssuerAddress:
		doc.Issuer.AddressLines = textutil.NormalizeLines(strings.Split(value, "\n"))
	case FieldIssuerEmail:
		doc.Issuer.Email = textutil.PlainLine(value)
	case FieldIssuerPhone:
		doc.Issuer.Phone = textutil.PlainLine(value)
	case FieldIssuerTaxID:
		doc.Issuer.TaxID = textutil.PlainLine(value)
	case FieldIssuerLogo:
		doc.Issuer.LogoRef = strings.TrimSpace(value)
	case FieldRecipientName:
		doc.Recipient.Name = textutil.PlainLine(value)
	case FieldRecipientAddress:
		doc.Recipient.AddressLines = textutil.NormalizeLines(strings.Split(value, "\n"))
	case FieldRecipientEmail:
		doc.Recipient.Email = textutil.PlainLine(value)
	case FieldRecipientPhone:
		doc.Recipient.Phone = textutil.PlainLine(value)
	case FieldRecipientTaxID:
		doc.Recipient.TaxID = textutil.PlainLine(value)
	case FieldNumber:
		doc.Number = textutil.PlainLine(value)
	case FieldReference:
		doc.Reference = textutil.PlainLine(value)
	case FieldNotes:
		doc.Notes = textutil.PlainText(value)
	case FieldPaymentMethod:
		doc.PaymentMethod = textutil.PlainLine(value)
	case FieldIssueDate:
		date, err := parseDate(value)
		if err != nil {
			return err
		}
		if date == nil {
			return fmt.Errorf("%w: issue date is required", ErrSessionInvalidInput)
		}
		doc.IssueDate = *date
	case FieldDueOrExpiryDate:
		date, err := parseDate(value)
		if err != nil {
			return err
		}
		doc.DueOrExpiryDate = date
	case FieldPaidOn:
		date, err := parseDate(value)
		if err != nil {
			return err
		}
		doc.PaidOn = date
	case FieldPaid:
		paid, err := strconv.ParseBool(strings.TrimSpace(value))
		if err != nil {
			return fmt.Errorf("%w: paid must be true or false", ErrSessionInvalidInput)
		}
		doc.Paid = paid
	case FieldTaxRate:
		rate, err := parsePercent(value)
		if err != nil {
			return err
		}
		doc.TaxRate = rate
	case FieldDiscountKind:
		switch kind := domain.DiscountKind(strings.ToLower(strings.TrimSpace(value))); kind {
		case domain.DiscountPercentage, domain.DiscountFixed:
			doc.Discount.Kind = kind
		default:
			return fmt.Errorf("%w: unknown discount kind %q", ErrSessionInvalidInput, value)
		}
	case FieldDiscountPercent:
		pct, err := parsePercent(value)
		if err != nil {
			return err
		}
		doc.Discount = domain.Discount{Kind: domain.DiscountPercentage, Percent: pct}
	case FieldDiscountAmount:
		cur, err := catalog.MustLookup(doc.Currency)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrSessionInvalidInput, err)
		}
		amount := int64(0)
		if strings.TrimSpace(value) != "" {
			if amount, err = money.ParseAmount(value, cur); err != nil {
				return fmt.Errorf("%w: %w", ErrSessionInvalidInput, err)
			}
		}
		doc.Discount = domain.Discount{Kind: domain.DiscountFixed, Percent: decimal.Zero, Amount: amount}
	default:
		return fmt.Errorf("%w: unknown field %q", ErrSessionInvalidInput, field)
	}
	return nil
}

func parseDate(value string) (*time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	t, err := time.Parse(DateLayout, value)
	if err != nil {
		return nil, fmt.Errorf("%w: date %q must use YYYY-MM-DD", ErrSessionInvalidInput, value)
	}
	return &t, nil
}

func parsePercent(value string) (decimal.Decimal, error) {
	value = strings.TrimSuffix(strings.TrimSpace(value), "%")
	if value == "" {
		return decimal.Zero, nil
	}
	pct, err := decimal.NewFromString(strings.TrimSpace(value))
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q is not a number", ErrSessionInvalidInput, value)
	}
	return pct, nil
}
