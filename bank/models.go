package bank

import (
	"encoding/json"
	"fmt"
	"strings"
)

// canonical entities every adapter must produce. these are ephemeral: recomputed on
// each top-level retrieval, never cached across sessions by the core.

type Profile struct {
	SessionID   string `json:"sessionId"`
	ProfileID   string `json:"profileId"`
	ProfileName string `json:"profileName"`
}

type AccountType string

const (
	Checking   AccountType = "CHECKING"
	Savings    AccountType = "SAVINGS"
	CreditCard AccountType = "CREDIT_CARD"
	Loan       AccountType = "LOAN"
	Investment AccountType = "INVESTMENT"
)

var accountTypes = map[AccountType]bool{
	Checking:   true,
	Savings:    true,
	CreditCard: true,
	Loan:       true,
	Investment: true,
}

func (t AccountType) Valid() bool {
	return accountTypes[t]
}

type Account struct {
	Profile     Profile     `json:"profile"`
	AccountID   string      `json:"accountId"`
	AccountName string      `json:"accountName"`
	AccountMask string      `json:"accountMask"`
	Type        AccountType `json:"accountType"`
}

type Statement struct {
	Account     Account `json:"account"`
	StatementID string  `json:"statementId"`
	// Date is the statement date in ISO-8601 (YYYY-MM-DD).
	Date string `json:"statementDate"`
}

// Document is the result of a statement download.
type Document struct {
	Data        []byte
	ContentType string
}

// MapAccountType maps an institution-specific product code onto exactly one canonical
// type. the mapping is total: unknown codes fall back to the caller's conservative
// default instead of an empty value.
func MapAccountType(sourceType string, fallback AccountType) AccountType {
	switch strings.ToUpper(strings.TrimSpace(sourceType)) {
	case "CHECKING", "CHEQUING", "DDA", "DEMAND", "CURRENT":
		return Checking
	case "SAVINGS", "SAVING", "SDA", "TFSA", "HISA", "GIC", "MMA", "MONEYMARKET":
		return Savings
	case "CREDIT", "CREDITCARD", "CREDIT_CARD", "CCA", "CHARGE":
		return CreditCard
	case "LOAN", "LOC", "LINEOFCREDIT", "LINE_OF_CREDIT", "MORTGAGE", "MTG", "HELOC", "AUTO", "STUDENT":
		return Loan
	case "INVESTMENT", "BROKERAGE", "RRSP", "RRIF", "RESP", "IRA", "401K", "MUTUALFUND":
		return Investment
	}
	return fallback
}

// DedupAccounts drops accounts that appear in multiple source collections using
// AccountID as the dedup key, preserving first-seen order.
func DedupAccounts(accounts []Account) []Account {
	seen := make(map[string]bool, len(accounts))
	deduped := make([]Account, 0, len(accounts))
	for _, account := range accounts {
		if seen[account.AccountID] {
			continue
		}
		seen[account.AccountID] = true
		deduped = append(deduped, account)
	}
	return deduped
}

// StatementRef carries everything a download needs when the backend splits it across
// several fields. adapters serialize it into Statement.StatementID; the pipeline never
// interprets the string except to round-trip it.
type StatementRef struct {
	DocumentID string `json:"documentId"`
	Sequence   string `json:"sequence,omitempty"`
	Code       string `json:"code,omitempty"`
	FromDate   string `json:"fromDate,omitempty"`
	ToDate     string `json:"toDate,omitempty"`
}

func (r StatementRef) String() string {
	b, err := json.Marshal(r)
	if err != nil {
		// all fields are plain strings, this cannot fail.
		panic(err)
	}
	return string(b)
}

func ParseStatementRef(statementID string) (StatementRef, error) {
	var ref StatementRef
	if err := json.Unmarshal([]byte(statementID), &ref); err != nil {
		return ref, fmt.Errorf("parse statement ref %q: %w", statementID, err)
	}
	if ref.DocumentID == "" {
		return ref, &MalformedResponseError{Field: "documentId", Detail: "statement ref is missing a document id"}
	}
	return ref, nil
}
