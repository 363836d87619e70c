package entity

import "github.com/uptrace/bun"

// LocalizedProperty stores a translated value for a property of another
// entity. LocaleKeyGroup names the owner type ("Product", "MenuItem", ...) and
// EntityID its id.
type LocalizedProperty struct {
	bun.BaseModel `bun:"table:localized_properties,alias:lp"`

	ID             int64  `bun:"id,pk,autoincrement" json:"id"`
	EntityID       int64  `bun:"entity_id,notnull" json:"entity_id"`
	LanguageID     int64  `bun:"language_id,notnull" json:"language_id"`
	LocaleKeyGroup string `bun:"locale_key_group,notnull" json:"locale_key_group"`
	LocaleKey      string `bun:"locale_key,notnull" json:"locale_key"`
	LocaleValue    string `bun:"locale_value" json:"locale_value"`
}

func (lp *LocalizedProperty) GetID() int64       { return lp.ID }
func (lp *LocalizedProperty) EntityName() string { return "LocalizedProperty" }

// Setting is a named configuration value, optionally scoped to a store.
type Setting struct {
	bun.BaseModel `bun:"table:settings,alias:s"`

	ID      int64  `bun:"id,pk,autoincrement" json:"id"`
	Name    string `bun:"name,notnull" json:"name"`
	Value   string `bun:"value" json:"value"`
	StoreID int64  `bun:"store_id,notnull,default:0" json:"store_id"`
}

func (s *Setting) GetID() int64       { return s.ID }
func (s *Setting) EntityName() string { return "Setting" }
