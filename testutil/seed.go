package testutil

import (
	"bytes"
	"fmt"
	"time"

	"bankops/bank"

	"github.com/brianvoe/gofakeit/v6"
)

// SeedPDF builds a syntactically plausible pdf body of exactly size bytes, large
// enough to clear the document validator's minimum-size heuristic when asked to.
func SeedPDF(size int) []byte {
	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n%âãÏÓ\n1 0 obj\n<< /Type /Catalog >>\nendobj\n")
	for buf.Len() < size-6 {
		buf.WriteString("% filler line for document body padding\n")
	}
	b := buf.Bytes()
	if len(b) > size-6 {
		b = b[:size-6]
	}
	return append(b, []byte("%%EOF\n")...)
}

// SeedAccount produces a randomized but valid canonical account for pipeline and
// orchestrator tests that do not care about specific field values.
func SeedAccount(profile bank.Profile) bank.Account {
	number := gofakeit.AchAccount()
	return bank.Account{
		Profile:     profile,
		AccountID:   number,
		AccountName: gofakeit.NounAbstract() + " " + gofakeit.LastName(),
		AccountMask: number[len(number)-4:],
		Type:        bank.Checking,
	}
}

func SeedProfile() bank.Profile {
	return bank.Profile{
		SessionID:   gofakeit.UUID(),
		ProfileID:   fmt.Sprintf("%d", gofakeit.Number(1000, 9999)),
		ProfileName: gofakeit.Name(),
	}
}

// SeedStatements produces n statements with distinct, descending monthly dates.
func SeedStatements(account bank.Account, n int) []bank.Statement {
	statements := make([]bank.Statement, 0, n)
	cycle := time.Date(2025, 10, 1, 0, 0, 0, 0, time.UTC)
	for i := range n {
		statements = append(statements, bank.Statement{
			Account:     account,
			StatementID: bank.StatementRef{DocumentID: gofakeit.UUID()}.String(),
			Date:        cycle.AddDate(0, -i, 0).Format("2006-01-02"),
		})
	}
	return statements
}
