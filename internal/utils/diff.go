// internal/utils/diff.go
package utils

import (
	"fmt"
	"reflect"
	"strings"
)

// FieldChange is one attribute whose incoming value differs from the stored one.
type FieldChange struct {
	Field string // struct field name
	Key   string // json name
	Old   interface{}
	New   interface{}
}

type ChangeSet []FieldChange

func (c ChangeSet) Empty() bool {
	return len(c) == 0
}

func (c ChangeSet) Fields() []string {
	fields := make([]string, len(c))
	for i, change := range c {
		fields[i] = change.Field
	}
	return fields
}

// Values maps json names to the new values.
func (c ChangeSet) Values() map[string]interface{} {
	values := make(map[string]interface{}, len(c))
	for _, change := range c {
		values[change.Key] = change.New
	}
	return values
}

// Diff compares a patch against a stored struct field by field. Every
// exported patch field must be a pointer to the type of the same-named stored
// field; nil pointers are absent and never produce a change.
func Diff(stored, patch interface{}) (ChangeSet, error) {
	sv := indirect(reflect.ValueOf(stored))
	pv := indirect(reflect.ValueOf(patch))
	if sv.Kind() != reflect.Struct || pv.Kind() != reflect.Struct {
		return nil, fmt.Errorf("diff: expected structs, got %s and %s", sv.Kind(), pv.Kind())
	}

	var changes ChangeSet
	pt := pv.Type()
	for i := 0; i < pt.NumField(); i++ {
		field := pt.Field(i)
		if !field.IsExported() {
			continue
		}

		pf := pv.Field(i)
		if pf.Kind() != reflect.Ptr {
			return nil, fmt.Errorf("diff: patch field %s is not a pointer", field.Name)
		}
		if pf.IsNil() {
			continue
		}

		sf := sv.FieldByName(field.Name)
		if !sf.IsValid() {
			return nil, fmt.Errorf("diff: %s has no field %s", sv.Type(), field.Name)
		}

		incoming := pf.Elem()
		if incoming.Type() != sf.Type() {
			return nil, fmt.Errorf("diff: field %s is %s in patch but %s in %s", field.Name, incoming.Type(), sf.Type(), sv.Type())
		}

		if reflect.DeepEqual(sf.Interface(), incoming.Interface()) {
			continue
		}

		changes = append(changes, FieldChange{
			Field: field.Name,
			Key:   jsonKey(field),
			Old:   sf.Interface(),
			New:   incoming.Interface(),
		})
	}

	return changes, nil
}

// Apply writes the new value of every change into stored, a pointer to struct.
func Apply(stored interface{}, changes ChangeSet) error {
	v := reflect.ValueOf(stored)
	if v.Kind() != reflect.Ptr || v.IsNil() {
		return fmt.Errorf("apply: expected a non-nil pointer, got %T", stored)
	}

	v = indirect(v)
	if v.Kind() != reflect.Struct {
		return fmt.Errorf("apply: expected a pointer to struct, got %T", stored)
	}

	for _, change := range changes {
		f := v.FieldByName(change.Field)
		if !f.IsValid() || !f.CanSet() {
			return fmt.Errorf("apply: cannot set field %s on %s", change.Field, v.Type())
		}
		f.Set(reflect.ValueOf(change.New))
	}

	return nil
}

func indirect(v reflect.Value) reflect.Value {
	for v.Kind() == reflect.Ptr {
		if v.IsNil() {
			return v
		}
		v = v.Elem()
	}
	return v
}

func jsonKey(field reflect.StructField) string {
	name := strings.Split(field.Tag.Get("json"), ",")[0]
	if name == "" || name == "-" {
		return field.Name
	}
	return name
}
