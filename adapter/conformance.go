package adapter

import (
	"fmt"
	"reflect"
)

// the conformance contract: required method names with exact parameter and return
// counts. the Go compiler already enforces the Adapter interface, but plugins are
// registered as values at runtime, so this declarative spec is kept as the single
// source of truth the checker (and the contract test suite) asserts against. it
// catches drift such as an adapter embedding another and shadowing its identity.
type MethodSpec struct {
	Name   string
	NumIn  int
	NumOut int
}

var Contract = []MethodSpec{
	{Name: "BankID", NumIn: 0, NumOut: 1},
	{Name: "BankName", NumIn: 0, NumOut: 1},
	{Name: "SessionID", NumIn: 0, NumOut: 2},
	{Name: "Profile", NumIn: 2, NumOut: 2},
	{Name: "Accounts", NumIn: 2, NumOut: 2},
	{Name: "Statements", NumIn: 2, NumOut: 2},
	{Name: "Download", NumIn: 2, NumOut: 2},
}

// CheckAdapter asserts one adapter value satisfies the contract: every required
// method present with the declared arity, and non-empty identity constants.
func CheckAdapter(a Adapter) error {
	if a == nil {
		return fmt.Errorf("adapter is nil")
	}

	value := reflect.ValueOf(a)
	for _, spec := range Contract {
		method := value.MethodByName(spec.Name)
		if !method.IsValid() {
			return fmt.Errorf("adapter %T: missing required method %s", a, spec.Name)
		}
		methodType := method.Type()
		if methodType.NumIn() != spec.NumIn {
			return fmt.Errorf("adapter %T: method %s takes %d params, contract requires %d", a, spec.Name, methodType.NumIn(), spec.NumIn)
		}
		if methodType.NumOut() != spec.NumOut {
			return fmt.Errorf("adapter %T: method %s returns %d values, contract requires %d", a, spec.Name, methodType.NumOut(), spec.NumOut)
		}
	}

	if a.BankID() == "" {
		return fmt.Errorf("adapter %T: bank id is empty", a)
	}
	if a.BankName() == "" {
		return fmt.Errorf("adapter %T: bank name is empty", a)
	}
	return nil
}

// CheckRegistry re-asserts the whole loaded set: per-adapter conformance plus global
// identity uniqueness. the contract test suite runs this against every registered
// plugin so the contract cannot drift as adapters are added.
func CheckRegistry(registry *Registry) error {
	adapters := registry.All()

	ids := make(map[string]string, len(adapters))
	names := make(map[string]string, len(adapters))

	for _, a := range adapters {
		if err := CheckAdapter(a); err != nil {
			return err
		}

		kind := fmt.Sprintf("%T", a)
		if prev, ok := ids[a.BankID()]; ok {
			return fmt.Errorf("bank id %q is claimed by both %s and %s", a.BankID(), prev, kind)
		}
		if prev, ok := names[a.BankName()]; ok {
			return fmt.Errorf("bank name %q is claimed by both %s and %s", a.BankName(), prev, kind)
		}
		ids[a.BankID()] = kind
		names[a.BankName()] = kind
	}
	return nil
}
