package source

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

// writeLedger creates a temp CSV file and returns a DiscoveredFile for it.
func writeLedger(t *testing.T, lines ...string) DiscoveredFile {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "ledger.csv")
	if err := os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	return DiscoveredFile{Path: path, Name: "ledger.csv"}
}

func TestParseFile_Basic(t *testing.T) {
	df := writeLedger(t,
		"date,amount,category,merchant",
		"2024-05-01,250.50,Food,Swiggy",
		"2024-05-02,\"1,200\",Travel,Uber",
		"2024-06-10,-99,Food,Swiggy",
	)

	result := ParseFile(df, Options{})
	if result.Err != nil {
		t.Fatalf("unexpected error: %v", result.Err)
	}
	if len(result.Transactions) != 3 {
		t.Fatalf("got %d transactions, want 3", len(result.Transactions))
	}
	if result.Rows != 3 {
		t.Errorf("Rows = %d, want 3", result.Rows)
	}

	second := result.Transactions[1]
	if !second.Amount.Equal(decimal.NewFromInt(1200)) {
		t.Errorf("amount = %s, want 1200", second.Amount)
	}
	if second.Category != "Travel" || second.Merchant != "Uber" {
		t.Errorf("category/merchant = %q/%q", second.Category, second.Merchant)
	}
	if !result.Transactions[2].Amount.IsNegative() {
		t.Errorf("refund amount should stay negative, got %s", result.Transactions[2].Amount)
	}
}

func TestParseFile_HeaderMatching(t *testing.T) {
	df := writeLedger(t,
		"\ufeff Merchant , DATE,Notes,Amount",
		"Zomato,2024-01-03,late dinner,400",
	)

	result := ParseFile(df, Options{})
	if result.Err != nil {
		t.Fatalf("unexpected error: %v", result.Err)
	}
	got := result.Transactions[0]
	if got.Merchant != "Zomato" {
		t.Errorf("Merchant = %q, want Zomato", got.Merchant)
	}
	if got.Category != "" {
		t.Errorf("Category = %q, want empty (column absent)", got.Category)
	}
	if want := time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC); !got.Date.Equal(want) {
		t.Errorf("Date = %v, want %v", got.Date, want)
	}
}

func TestParseFile_MissingColumn(t *testing.T) {
	df := writeLedger(t,
		"date,category",
		"2024-01-01,Food",
	)

	result := ParseFile(df, Options{})
	if !errors.Is(result.Err, ErrMissingColumn) {
		t.Fatalf("err = %v, want ErrMissingColumn", result.Err)
	}
	var le *LoadError
	if !errors.As(result.Err, &le) || le.Column != ColAmount {
		t.Errorf("LoadError column = %v, want amount", le)
	}
}

func TestParseFile_StrictRejectsBadRow(t *testing.T) {
	df := writeLedger(t,
		"date,amount",
		"2024-01-01,10",
		"not-a-date,20",
		"2024-01-03,30",
	)

	result := ParseFile(df, Options{Policy: PolicyStrict})
	if !errors.Is(result.Err, ErrBadDate) {
		t.Fatalf("err = %v, want ErrBadDate", result.Err)
	}
	var le *LoadError
	if !errors.As(result.Err, &le) {
		t.Fatalf("err is not a *LoadError: %T", result.Err)
	}
	if le.Line != 3 {
		t.Errorf("Line = %d, want 3", le.Line)
	}
}

func TestParseFile_SkipPolicy(t *testing.T) {
	df := writeLedger(t,
		"date,amount",
		"2024-01-01,10",
		"2024-01-02,abc",
		"garbage,20",
		"2024-01-03,30",
	)

	result := ParseFile(df, Options{Policy: PolicySkip})
	if result.Err != nil {
		t.Fatalf("unexpected error: %v", result.Err)
	}
	if len(result.Transactions) != 2 {
		t.Errorf("got %d transactions, want 2", len(result.Transactions))
	}
	if result.Skipped != 2 {
		t.Errorf("Skipped = %d, want 2", result.Skipped)
	}
	if len(result.RowErrors) != 2 || !errors.Is(result.RowErrors[0], ErrBadAmount) {
		t.Errorf("RowErrors = %v", result.RowErrors)
	}
}

func TestParseFile_Unreadable(t *testing.T) {
	result := ParseFile(DiscoveredFile{Path: filepath.Join(t.TempDir(), "missing.csv")}, Options{})
	if !errors.Is(result.Err, ErrUnreadable) {
		t.Fatalf("err = %v, want ErrUnreadable", result.Err)
	}
}

func TestParseDate_Layouts(t *testing.T) {
	want := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		in    string
		order DateOrder
	}{
		{"2024-03-04", DayFirst},
		{"2024/03/04", DayFirst},
		{"2024-3-4", DayFirst},
		{"04/03/2024", DayFirst},
		{"04-03-2024", DayFirst},
		{"03/04/2024", MonthFirst},
		{"2024-03-04T18:45:00+05:30", DayFirst},
		{"2024-03-04 23:59:59", MonthFirst},
	}
	for _, tt := range tests {
		got, err := ParseDate(tt.in, tt.order)
		if err != nil {
			t.Errorf("ParseDate(%q): %v", tt.in, err)
			continue
		}
		if !got.Equal(want) {
			t.Errorf("ParseDate(%q) = %v, want %v", tt.in, got, want)
		}
	}

	if _, err := ParseDate("31/12/2024", MonthFirst); !errors.Is(err, ErrBadDate) {
		t.Errorf("month-first 31/12 should fail, got %v", err)
	}
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"100", "100", true},
		{"₹1,250.50", "1250.5", true},
		{"$ 12", "12", true},
		{"-₹500", "-500", true},
		{"₹-500", "-500", true},
		{"  7.25 ", "7.25", true},
		{"", "", false},
		{"₹", "", false},
		{"12abc", "", false},
		{"--5", "", false},
	}
	for _, tt := range tests {
		got, err := ParseAmount(tt.in)
		if !tt.ok {
			if !errors.Is(err, ErrBadAmount) {
				t.Errorf("ParseAmount(%q) err = %v, want ErrBadAmount", tt.in, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseAmount(%q): %v", tt.in, err)
			continue
		}
		if !got.Equal(decimal.RequireFromString(tt.want)) {
			t.Errorf("ParseAmount(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func FuzzParseAmount(f *testing.F) {
	for _, seed := range []string{"100", "₹1,250.50", "-5", "1e3", "", "₹", "abc"} {
		f.Add(seed)
	}
	f.Fuzz(func(t *testing.T, s string) {
		d, err := ParseAmount(s)
		if err != nil {
			if !errors.Is(err, ErrBadAmount) {
				t.Fatalf("unexpected error type for %q: %v", s, err)
			}
			return
		}
		// Re-parsing the canonical form must round-trip.
		again, err := ParseAmount(d.String())
		if err != nil {
			t.Fatalf("canonical form %q of %q failed: %v", d.String(), s, err)
		}
		if !again.Equal(d) {
			t.Fatalf("round trip %q: %s != %s", s, again, d)
		}
	})
}

func TestScanPath(t *testing.T) {
	dir := t.TempDir()
	mustWrite := func(rel string) {
		t.Helper()
		p := filepath.Join(dir, rel)
		if err := os.MkdirAll(filepath.Dir(p), 0o750); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte("date,amount\n"), 0o600); err != nil {
			t.Fatal(err)
		}
	}
	mustWrite("b.csv")
	mustWrite("a.CSV")
	mustWrite("notes.txt")
	mustWrite("2024/jan.csv")
	mustWrite("2024/deep/ignored.csv")

	files, err := ScanPath(dir)
	if err != nil {
		t.Fatalf("ScanPath: %v", err)
	}
	var names []string
	for _, f := range files {
		names = append(names, filepath.ToSlash(f.Name))
	}
	got := strings.Join(names, ",")
	if got != "2024/jan.csv,a.CSV,b.csv" {
		t.Errorf("scanned %s", got)
	}

	single, err := ScanPath(filepath.Join(dir, "notes.txt"))
	if err != nil || len(single) != 1 {
		t.Errorf("single file scan = %v, %v", single, err)
	}

	if _, err := ScanPath(filepath.Join(dir, "nope")); !errors.Is(err, ErrUnreadable) {
		t.Errorf("missing path err = %v, want ErrUnreadable", err)
	}
}

func TestParsePolicyAndDateOrder(t *testing.T) {
	if p, err := ParsePolicy("SKIP"); err != nil || p != PolicySkip {
		t.Errorf("ParsePolicy(SKIP) = %v, %v", p, err)
	}
	if _, err := ParsePolicy("lenient"); err == nil {
		t.Error("ParsePolicy(lenient) should fail")
	}
	if o, err := ParseDateOrder("mdy"); err != nil || o != MonthFirst {
		t.Errorf("ParseDateOrder(mdy) = %v, %v", o, err)
	}
}
