package model

// NamedEntity references a channel, user or guild.
// Either part may be absent; both absent means "not applicable",
// e.g. the guild of a direct-message context.
type NamedEntity struct {
	ID   *Snowflake `json:"id"`
	Name *string    `json:"name"`
}

// NewNamedEntity builds a fully populated entity.
func NewNamedEntity(id Snowflake, name string) NamedEntity {
	return NamedEntity{ID: &id, Name: &name}
}

// IsUnknown reports whether neither the identifier nor the name is known.
func (e NamedEntity) IsUnknown() bool {
	return e.ID == nil && e.Name == nil
}

// Activity is what a user is currently doing. Every field is optional.
type Activity struct {
	Name    *string `json:"name"`
	Type    *string `json:"type"`
	Details *string `json:"details"`
}

// StringPtr returns nil for an empty string.
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
