// Package entity defines the storefront domain objects whose rendering and
// persistence drive output cache tagging and invalidation.
//
// Every type here implements Entity through pointer receivers, so the runtime
// type used for handler dispatch is always the pointer type (e.g. *Product).
package entity

import "reflect"

// Entity is the base contract for persisted domain objects.
type Entity interface {
	// GetID returns the durable identifier. Zero means the entity is transient.
	GetID() int64
	// EntityName returns the logical type name, e.g. "Product". It matches the
	// LocaleKeyGroup used by localized properties.
	EntityName() string
}

// Key identifies an entity by logical type name and id.
type Key struct {
	Name string
	ID   int64
}

// KeyOf returns the identity key for e.
func KeyOf(e Entity) Key {
	return Key{Name: e.EntityName(), ID: e.GetID()}
}

// IsNil reports whether e is a nil interface or an interface holding a nil pointer.
func IsNil(e Entity) bool {
	if e == nil {
		return true
	}
	v := reflect.ValueOf(e)
	switch v.Kind() {
	case reflect.Ptr, reflect.Map, reflect.Slice, reflect.Interface:
		return v.IsNil()
	}
	return false
}

// IsTransient reports whether e has not been persisted yet.
func IsTransient(e Entity) bool {
	return IsNil(e) || e.GetID() == 0
}
