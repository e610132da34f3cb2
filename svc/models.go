package svc

import (
	"time"

	"bankops/bank"
)

// RetrievalEvent is one audit record in the retrieval flow, emitted to kafka keyed
// by bank id. events never carry session credentials or document bytes.
type RetrievalEvent struct {
	TraceID     string    `json:"traceId"`
	BankID      string    `json:"bankId"`
	Stage       string    `json:"stage"`
	ProfileID   string    `json:"profileId,omitempty"`
	AccountID   string    `json:"accountId,omitempty"`
	StatementID string    `json:"statementId,omitempty"`
	Bytes       int       `json:"bytes,omitempty"`
	ErrMsg      string    `json:"errMsg,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

// AccountStatements pairs one account with its full statement listing.
type AccountStatements struct {
	Account    bank.Account     `json:"account"`
	Statements []bank.Statement `json:"statements"`
}

// RetrievalResult is the outcome of one full adapter run. Skipped records
// per-statement download failures that did not abort the run.
type RetrievalResult struct {
	Profile    bank.Profile        `json:"profile"`
	Accounts   []AccountStatements `json:"accounts"`
	Downloaded int                 `json:"downloaded"`
	Skipped    []SkippedStatement  `json:"skipped,omitempty"`
}

type SkippedStatement struct {
	Statement bank.Statement `json:"statement"`
	ErrMsg    string         `json:"errMsg"`
}

// Sink receives each validated document. callers decide what to do with the bytes;
// the core never persists them.
type Sink func(statement bank.Statement, doc bank.Document) error
