package normalize

import (
	"bankops/bank"
	"fmt"

	"github.com/go-faster/jx"
)

// tolerant decoding for the envelope shapes institutions wrap their payloads in.
// backends disagree about everything else, so the pipeline only ever sees fields
// pulled through here, with the offending field named on any mismatch.

// Object is one decoded JSON object with raw field values.
type Object map[string]jx.Raw

func ParseObject(body []byte) (Object, error) {
	obj := Object{}
	d := jx.DecodeBytes(body)
	if err := d.Obj(func(d *jx.Decoder, key string) error {
		raw, err := d.Raw()
		if err != nil {
			return fmt.Errorf("field %q: %w", key, err)
		}
		obj[key] = raw
		return nil
	}); err != nil {
		return nil, &bank.MalformedResponseError{Field: "(root)", Detail: "payload is not a json object: " + err.Error()}
	}
	return obj, nil
}

func (o Object) Raw(field string) (jx.Raw, error) {
	raw, ok := o[field]
	if !ok || jx.DecodeBytes(raw).Next() == jx.Null {
		return nil, &bank.MalformedResponseError{Field: field}
	}
	return raw, nil
}

func (o Object) Str(field string) (string, error) {
	raw, err := o.Raw(field)
	if err != nil {
		return "", err
	}
	value, err := jx.DecodeBytes(raw).Str()
	if err != nil {
		return "", &bank.MalformedResponseError{Field: field, Detail: "expected a string"}
	}
	return value, nil
}

// StrOr reads an optional string field, tolerating absence, null and non-string
// scalars (some backends flip between numbers and strings for the same field).
func (o Object) StrOr(field string, fallback string) string {
	raw, ok := o[field]
	if !ok {
		return fallback
	}
	d := jx.DecodeBytes(raw)
	switch d.Next() {
	case jx.String:
		if value, err := d.Str(); err == nil {
			return value
		}
	case jx.Number:
		if num, err := d.Num(); err == nil {
			return num.String()
		}
	}
	return fallback
}

func (o Object) Obj(field string) (Object, error) {
	raw, err := o.Raw(field)
	if err != nil {
		return nil, err
	}
	inner, err := ParseObject(raw)
	if err != nil {
		return nil, &bank.MalformedResponseError{Field: field, Detail: "expected an object"}
	}
	return inner, nil
}

func (o Object) Arr(field string) ([]Object, error) {
	raw, err := o.Raw(field)
	if err != nil {
		return nil, err
	}
	var items []Object
	d := jx.DecodeBytes(raw)
	if err := d.Arr(func(d *jx.Decoder) error {
		itemRaw, err := d.Raw()
		if err != nil {
			return err
		}
		item, err := ParseObject(itemRaw)
		if err != nil {
			return err
		}
		items = append(items, item)
		return nil
	}); err != nil {
		return nil, &bank.MalformedResponseError{Field: field, Detail: "expected an array of objects"}
	}
	return items, nil
}

// Unwrap peels a single wrapper envelope, e.g. {"data": {...}} or {"result": {...}}.
func Unwrap(body []byte, field string) (Object, error) {
	outer, err := ParseObject(body)
	if err != nil {
		return nil, err
	}
	return outer.Obj(field)
}

// GraphQLData unwraps a GraphQL response body, surfacing the first error message
// when the errors array is non-empty.
func GraphQLData(body []byte) (Object, error) {
	outer, err := ParseObject(body)
	if err != nil {
		return nil, err
	}

	if errsRaw, ok := outer["errors"]; ok {
		var messages []Object
		d := jx.DecodeBytes(errsRaw)
		if err := d.Arr(func(d *jx.Decoder) error {
			raw, err := d.Raw()
			if err != nil {
				return err
			}
			msg, err := ParseObject(raw)
			if err != nil {
				return err
			}
			messages = append(messages, msg)
			return nil
		}); err == nil && len(messages) > 0 {
			return nil, &bank.MalformedResponseError{Field: "errors", Detail: messages[0].StrOr("message", "graphql error")}
		}
	}

	return outer.Obj("data")
}
