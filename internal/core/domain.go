// Package core holds the reporting domain: the records served by the
// reporting API, the periods and filters used to request them, and the few
// figures the dashboard derives on its own.
package core

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const isoDate = "2006-01-02"

type (
	// Date is a calendar day as sent by the API (YYYY-MM-DD).
	Date struct {
		time.Time
	}

	Transaction struct {
		ID              int64           `json:"id"`
		Date            Date            `json:"date"`
		Narration       string          `json:"narration"`
		DebitAmount     decimal.Decimal `json:"debit_amount"`
		CreditAmount    decimal.Decimal `json:"credit_amount"`
		Category        *string         `json:"category"`
		SubCategory     *string         `json:"sub_category"`
		PersonalAccount string          `json:"personal_account"`
		NominalAccount  string          `json:"nominal_account"`
		RunningBalance  decimal.Decimal `json:"running_balance"`
	}

	AccountSummary struct {
		AccountName    string          `json:"account_name"`
		OpeningBalance decimal.Decimal `json:"opening_balance"`
		Debit          decimal.Decimal `json:"debit"`
		Credit         decimal.Decimal `json:"credit"`
		ClosingBalance decimal.Decimal `json:"closing_balance"`
	}

	ExpenseSummary struct {
		AccountName string          `json:"account_name"`
		Debit       decimal.Decimal `json:"debit"`
		Credit      decimal.Decimal `json:"credit"`
		Total       decimal.Decimal `json:"total"`
	}

	// Totals is a debit/credit pair.
	Totals struct {
		Debit  decimal.Decimal `json:"debit"`
		Credit decimal.Decimal `json:"credit"`
	}

	SubCategory struct {
		Name string `json:"sub_category"`
		Totals
	}

	ExpenseCategory struct {
		Name string `json:"-"`
		Totals
		SubCategories []SubCategory `json:"sub_categories"`
	}

	// CategorisedExpenseSummary keeps categories in the order the API sent
	// them.
	CategorisedExpenseSummary struct {
		Categories []ExpenseCategory
		GrandTotal Totals
	}

	PersonalAccount struct {
		ID   int64  `json:"id"`
		Name string `json:"name"`
	}

	CreditCard struct {
		ID               int64            `json:"id"`
		BankName         string           `json:"bank_name"`
		CardType         string           `json:"card_type"`
		CardLimit        decimal.Decimal  `json:"card_limit"`
		BillingCycleDate int              `json:"billing_cycle_date"`
		DueDateCycle     int              `json:"due_date_cycle"`
		CarryEMITaxes    bool             `json:"carry_emi_taxes"`
		PersonalAccount  *PersonalAccount `json:"personal_account"`
	}

	CreditCardSummary struct {
		OpeningBalance      decimal.Decimal `json:"opening_balance"`
		CreditsAndReversals decimal.Decimal `json:"credits_and_reversals"`
		ExpenseAmounts      decimal.Decimal `json:"expense_amounts"`
		TotalTax            decimal.Decimal `json:"total_tax"`
		TotalBill           decimal.Decimal `json:"total_bill"`
		EMIAmounts          decimal.Decimal `json:"emi_amounts"`
		DueDate             int             `json:"due_date"`
		BillingCycleStart   int             `json:"billing_cycle_start"`
		Transactions        []Transaction   `json:"transactions"`
	}

	CreditCardTrend struct {
		Month     string          `json:"month"`
		Taxes     decimal.Decimal `json:"taxes"`
		EMIs      decimal.Decimal `json:"emis"`
		Expenses  decimal.Decimal `json:"expenses"`
		TotalBill decimal.Decimal `json:"total_bill"`
	}

	SplitwiseTransaction struct {
		Date           Date            `json:"date"`
		Narration      string          `json:"narration"`
		Debit          decimal.Decimal `json:"debit"`
		Credit         decimal.Decimal `json:"credit"`
		PersonName     string          `json:"person_name"`
		RunningBalance decimal.Decimal `json:"running_balance"`
	}

	Friend struct {
		ID      int64  `json:"id"`
		Name    string `json:"name"`
		Email   string `json:"email"`
		Picture string `json:"picture"`
	}
)

var (
	ErrInvalidMonth = errors.New("invalid month")
	ErrInvalidYear  = errors.New("invalid year")
	ErrInvalidDate  = errors.New("invalid date")
)

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate accepts YYYY-MM-DD, optionally followed by a time part.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Date{}, nil
	}
	if len(s) < len(isoDate) {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	t, err := time.Parse(isoDate, s[:len(isoDate)])
	if err != nil {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return Date{Time: t}, nil
}

// String returns the ISO form, or "" for the zero date.
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(isoDate)
}

func (d *Date) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		*d = Date{}
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidDate, b)
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.String())
}

// UnmarshalJSON decodes {"data": {category: ...}, "grand_total": ...} and
// keeps the categories in wire order.
func (s *CategorisedExpenseSummary) UnmarshalJSON(b []byte) error {
	var raw struct {
		Data       json.RawMessage `json:"data"`
		GrandTotal Totals          `json:"grand_total"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	s.GrandTotal = raw.GrandTotal
	s.Categories = nil
	if len(raw.Data) == 0 || bytes.Equal(raw.Data, []byte("null")) {
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(raw.Data))
	if tok, err := dec.Token(); err != nil {
		return err
	} else if tok != json.Delim('{') {
		return fmt.Errorf("categorised expenses: data is not an object")
	}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		name, _ := tok.(string)
		var c ExpenseCategory
		if err := dec.Decode(&c); err != nil {
			return fmt.Errorf("categorised expenses: category %q: %w", name, err)
		}
		c.Name = name
		s.Categories = append(s.Categories, c)
	}
	_, err := dec.Token()
	return err
}

// MarshalJSON writes the wire shape back, categories in order.
func (s CategorisedExpenseSummary) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(`{"data":{`)
	for i, c := range s.Categories {
		if i > 0 {
			buf.WriteByte(',')
		}
		name, err := json.Marshal(c.Name)
		if err != nil {
			return nil, err
		}
		body, err := json.Marshal(c)
		if err != nil {
			return nil, err
		}
		buf.Write(name)
		buf.WriteByte(':')
		buf.Write(body)
	}
	buf.WriteString(`},"grand_total":`)
	total, err := json.Marshal(s.GrandTotal)
	if err != nil {
		return nil, err
	}
	buf.Write(total)
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Label is the name a card is listed under: its linked account, or bank
// and card type when no account is linked.
func (c CreditCard) Label() string {
	if c.PersonalAccount != nil && c.PersonalAccount.Name != "" {
		return c.PersonalAccount.Name
	}
	return strings.TrimSpace(c.BankName + " " + c.CardType)
}
