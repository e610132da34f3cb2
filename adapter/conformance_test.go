package adapter

import (
	"context"
	"testing"

	"bankops/bank"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubAdapter struct {
	bankID   string
	bankName string
}

func (a stubAdapter) BankID() string   { return a.bankID }
func (a stubAdapter) BankName() string { return a.bankName }

func (a stubAdapter) SessionID() (string, error) { return "sess-1", nil }

func (a stubAdapter) Profile(ctx context.Context, sessionID string) (bank.Profile, error) {
	return bank.Profile{SessionID: sessionID, ProfileID: "1"}, nil
}

func (a stubAdapter) Accounts(ctx context.Context, profile bank.Profile) ([]bank.Account, error) {
	return nil, nil
}

func (a stubAdapter) Statements(ctx context.Context, account bank.Account) ([]bank.Statement, error) {
	return nil, nil
}

func (a stubAdapter) Download(ctx context.Context, statement bank.Statement) (bank.Document, error) {
	return bank.Document{}, nil
}

func TestCheckAdapter(t *testing.T) {
	assert.NoError(t, CheckAdapter(stubAdapter{bankID: "northbank", bankName: "North Bank"}))

	err := CheckAdapter(stubAdapter{bankID: "", bankName: "North Bank"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bank id is empty")

	err = CheckAdapter(stubAdapter{bankID: "northbank", bankName: ""})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bank name is empty")

	assert.Error(t, CheckAdapter(nil))
}

func TestRegistry_Register(t *testing.T) {
	var registry Registry

	err := registry.Register(
		stubAdapter{bankID: "northbank", bankName: "North Bank"},
		stubAdapter{bankID: "southcu", bankName: "South Credit Union"},
	)
	require.NoError(t, err)
	require.NoError(t, CheckRegistry(&registry))

	all := registry.All()
	require.Len(t, all, 2)
	assert.Equal(t, "northbank", all[0].BankID())

	found, ok := registry.Lookup("southcu")
	require.True(t, ok)
	assert.Equal(t, "South Credit Union", found.BankName())

	_, ok = registry.Lookup("nowhere")
	assert.False(t, ok)
}

func TestRegistry_RejectsDuplicateIdentity(t *testing.T) {
	for _, test := range []struct {
		name string
		dup  stubAdapter
	}{
		{name: "duplicate bank id", dup: stubAdapter{bankID: "northbank", bankName: "Other Name"}},
		{name: "duplicate bank name", dup: stubAdapter{bankID: "other-id", bankName: "North Bank"}},
	} {
		t.Run(test.name, func(t *testing.T) {
			var registry Registry
			require.NoError(t, registry.Register(stubAdapter{bankID: "northbank", bankName: "North Bank"}))

			err := registry.Register(test.dup)
			require.Error(t, err)
			assert.Contains(t, err.Error(), "duplicate")
		})
	}
}

func TestContract_CoversEveryAdapterMethod(t *testing.T) {
	// arity drift in the contract itself should fail loudly: each declared method
	// must exist on the interface with the declared shape.
	names := make(map[string]bool, len(Contract))
	for _, spec := range Contract {
		assert.False(t, names[spec.Name], "method %s declared twice", spec.Name)
		names[spec.Name] = true
	}
	assert.Len(t, Contract, 7)
}
