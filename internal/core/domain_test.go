package core

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestDateJSON(t *testing.T) {
	cases := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{`"2024-03-07"`, "2024-03-07", false},
		{`"2024-03-07T18:30:00Z"`, "2024-03-07", false},
		{`null`, "", false},
		{`""`, "", false},
		{`"07/03/2024"`, "", true},
		{`20240307`, "", true},
	}
	for _, tc := range cases {
		var d Date
		err := json.Unmarshal([]byte(tc.in), &d)
		if (err != nil) != tc.wantErr {
			t.Fatalf("Unmarshal(%s) error = %v, wantErr %v", tc.in, err, tc.wantErr)
		}
		if err == nil && d.String() != tc.want {
			t.Errorf("Unmarshal(%s) = %q, want %q", tc.in, d.String(), tc.want)
		}
	}
}

func TestTransactionDecode(t *testing.T) {
	body := `[{"id":7,"date":"2024-03-07","narration":"UPI/Swiggy","debit_amount":450.5,
		"credit_amount":0,"category":null,"sub_category":"Food","personal_account":"HDFC Bank",
		"nominal_account":"Expense","running_balance":"10500.25"}]`
	var txns []Transaction
	if err := json.Unmarshal([]byte(body), &txns); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	tx := txns[0]
	if tx.ID != 7 || !tx.Date.Equal(NewDate(2024, 3, 7).Time) {
		t.Errorf("id/date = %d/%v", tx.ID, tx.Date)
	}
	if !tx.DebitAmount.Equal(decimal.RequireFromString("450.5")) {
		t.Errorf("DebitAmount = %s, want 450.5", tx.DebitAmount)
	}
	if !tx.RunningBalance.Equal(decimal.RequireFromString("10500.25")) {
		t.Errorf("RunningBalance = %s, want 10500.25", tx.RunningBalance)
	}
	if tx.Category != nil {
		t.Errorf("Category = %v, want nil", *tx.Category)
	}
	if tx.SubCategory == nil || *tx.SubCategory != "Food" {
		t.Errorf("SubCategory = %v, want Food", tx.SubCategory)
	}
}

func TestCategorisedExpenseSummaryKeepsWireOrder(t *testing.T) {
	body := `{"data":{
		"Travel":{"debit":30,"credit":0,"sub_categories":[{"sub_category":"Cab","debit":30,"credit":0}]},
		"Food":{"debit":150,"credit":20,"sub_categories":[
			{"sub_category":"Groceries","debit":100,"credit":20},
			{"sub_category":"Dining","debit":50,"credit":0}]},
		"Bills":{"debit":0,"credit":0,"sub_categories":[]}
	},"grand_total":{"debit":180,"credit":20}}`

	var s CategorisedExpenseSummary
	if err := json.Unmarshal([]byte(body), &s); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	var names []string
	for _, c := range s.Categories {
		names = append(names, c.Name)
	}
	if len(names) != 3 || names[0] != "Travel" || names[1] != "Food" || names[2] != "Bills" {
		t.Fatalf("categories = %v, want [Travel Food Bills]", names)
	}
	food := s.Categories[1]
	if len(food.SubCategories) != 2 || food.SubCategories[1].Name != "Dining" {
		t.Errorf("Food sub-categories = %+v", food.SubCategories)
	}
	if !food.Net().Equal(decimal.NewFromInt(130)) {
		t.Errorf("Food net = %s, want 130", food.Net())
	}
	if !s.GrandTotal.Debit.Equal(decimal.NewFromInt(180)) {
		t.Errorf("grand total debit = %s, want 180", s.GrandTotal.Debit)
	}

	again, err := json.Marshal(s)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	var round CategorisedExpenseSummary
	if err := json.Unmarshal(again, &round); err != nil {
		t.Fatalf("Unmarshal(Marshal()) error = %v", err)
	}
	if len(round.Categories) != 3 || round.Categories[0].Name != "Travel" {
		t.Errorf("re-encoded order = %+v", round.Categories)
	}
}

func TestCategorisedExpenseSummaryRejectsNonObject(t *testing.T) {
	var s CategorisedExpenseSummary
	if err := json.Unmarshal([]byte(`{"data":[1,2]}`), &s); err == nil {
		t.Error("expected error for array data")
	}
	if err := json.Unmarshal([]byte(`{"data":null,"grand_total":{"debit":0,"credit":0}}`), &s); err != nil {
		t.Errorf("null data: %v", err)
	}
}

func TestCreditCardLabel(t *testing.T) {
	linked := CreditCard{BankName: "HDFC", CardType: "Regalia", PersonalAccount: &PersonalAccount{ID: 3, Name: "HDFC Regalia CC"}}
	if got := linked.Label(); got != "HDFC Regalia CC" {
		t.Errorf("Label() = %q", got)
	}
	unlinked := CreditCard{BankName: "ICICI", CardType: "Amazon Pay"}
	if got := unlinked.Label(); got != "ICICI Amazon Pay" {
		t.Errorf("Label() = %q", got)
	}
}

func TestParsePeriod(t *testing.T) {
	def := Period{Year: 2024, Month: 3}
	cases := []struct {
		month, year string
		want        Period
		wantErr     error
	}{
		{"", "", def, nil},
		{"12", "2023", Period{Year: 2023, Month: 12}, nil},
		{"0", "", Period{}, ErrInvalidMonth},
		{"13", "", Period{}, ErrInvalidMonth},
		{"x", "", Period{}, ErrInvalidMonth},
		{"", "abc", Period{}, ErrInvalidYear},
	}
	for _, tc := range cases {
		got, err := ParsePeriod(tc.month, tc.year, def)
		if !errors.Is(err, tc.wantErr) {
			t.Fatalf("ParsePeriod(%q, %q) error = %v, want %v", tc.month, tc.year, err, tc.wantErr)
		}
		if err == nil && got != tc.want {
			t.Errorf("ParsePeriod(%q, %q) = %+v, want %+v", tc.month, tc.year, got, tc.want)
		}
	}
}

func TestPeriodNavigation(t *testing.T) {
	jan := Period{Year: 2024, Month: 1}
	if got := jan.Prev(); got != (Period{Year: 2023, Month: 12}) {
		t.Errorf("Prev() = %+v", got)
	}
	if got := jan.Prev().Next(); got != jan {
		t.Errorf("Prev().Next() = %+v", got)
	}
	if got := jan.String(); got != "January 2024" {
		t.Errorf("String() = %q", got)
	}
}

func TestYears(t *testing.T) {
	got := Years(time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC), 5)
	want := []int{2026, 2025, 2024, 2023, 2022}
	if len(got) != len(want) {
		t.Fatalf("Years() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Years() = %v, want %v", got, want)
		}
	}
}

func TestDefaultSplitwiseWindow(t *testing.T) {
	ist := time.FixedZone("IST", 5*3600+1800)
	cases := []struct {
		now       time.Time
		wantStart string
		wantEnd   string
	}{
		{time.Date(2024, 5, 20, 12, 0, 0, 0, time.UTC), "2024-02-01", "2024-05-20"},
		{time.Date(2024, 2, 10, 12, 0, 0, 0, time.UTC), "2023-11-01", "2024-02-10"},
		// 20:00 UTC on the 31st is already the 1st in India.
		{time.Date(2024, 3, 31, 20, 0, 0, 0, time.UTC), "2024-01-01", "2024-04-01"},
	}
	for _, tc := range cases {
		start, end := DefaultSplitwiseWindow(tc.now, ist)
		if start != tc.wantStart || end != tc.wantEnd {
			t.Errorf("DefaultSplitwiseWindow(%v) = %s..%s, want %s..%s", tc.now, start, end, tc.wantStart, tc.wantEnd)
		}
	}
}

func TestSplitwiseFilter(t *testing.T) {
	f := SplitwiseFilter{Person: "42", Start: "2024-01-01", End: "2024-03-31"}
	if !f.Ready() || f.Validate() != nil {
		t.Errorf("filter %+v should be ready and valid", f)
	}
	if (SplitwiseFilter{Start: "2024-01-01", End: "2024-03-31"}).Ready() {
		t.Error("filter without person should not be ready")
	}
	if err := (SplitwiseFilter{Start: "2024-03-31", End: "2024-01-01"}).Validate(); !errors.Is(err, ErrInvalidDate) {
		t.Errorf("reversed range error = %v", err)
	}
}
