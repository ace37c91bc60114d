package orders

import (
	"encoding/json"
	"strings"

	"github.com/google/go-cmp/cmp"

	"github.com/openacq/orderline/pkg/errors"
)

// ProtectedFields lists the line fields that may not change once the parent
// order has progressed past the pending workflow state. Paths are dotted
// JSON field names on the line record.
var ProtectedFields = []string{
	"acquisitionMethod",
	"checkinItems",
	"cost.currency",
	"details.productIds",
	"eresource.createInventory",
	"eresource.trial",
	"eresource.userLimit",
	"isPackage",
	"orderFormat",
	"physical.createInventory",
	"poLineNumber",
	"rush",
	"source",
	"titleOrPackage",
}

// VerifyProtectedFields compares every protected field of the stored and
// desired line and returns a ProtectedFieldsError naming each field whose
// value differs. The comparison happens on the JSON representation so nested
// values are compared structurally.
func VerifyProtectedFields(stored, desired *Line) error {
	storedFields, err := lineFields(stored)
	if err != nil {
		return err
	}
	desiredFields, err := lineFields(desired)
	if err != nil {
		return err
	}

	var changed []string
	for _, field := range ProtectedFields {
		if !cmp.Equal(fieldAt(storedFields, field), fieldAt(desiredFields, field)) {
			changed = append(changed, field)
		}
	}

	if len(changed) > 0 {
		return &errors.ProtectedFieldsError{LineID: stored.ID, Fields: changed}
	}
	return nil
}

// lineFields converts a line into its generic JSON representation.
func lineFields(l *Line) (map[string]any, error) {
	raw, err := json.Marshal(l)
	if err != nil {
		return nil, errors.WrapResource("encode", "line", l.ID, err)
	}
	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, errors.WrapResource("decode", "line", l.ID, err)
	}
	return fields, nil
}

// fieldAt resolves a dotted path inside a generic JSON object.
func fieldAt(fields map[string]any, path string) any {
	parts := strings.Split(path, ".")
	var current any = fields
	for _, part := range parts {
		obj, ok := current.(map[string]any)
		if !ok {
			return nil
		}
		current = obj[part]
	}
	return current
}
