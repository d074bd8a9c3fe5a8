// internal/catalog/model.go
//
// Tool catalog types.
//
// Context
// -------
// A ToolType describes one kind of subscribable add-on (embedded web app,
// calendar, CRM, or time tracking).  Subscription records reference a
// ToolType by slug and keep their own name snapshot, so deleting a catalog
// entry never touches existing subscriptions.
//
// Notes
// -----
//   - Oxford commas, two spaces after periods.
package catalog

import "time"

// IconCategory selects the icon family a tool is rendered with.
type IconCategory string

const (
	IconIframe       IconCategory = "iframe"
	IconCalendar     IconCategory = "calendar"
	IconCRM          IconCategory = "crm"
	IconTimeTracking IconCategory = "timetracking"
)

// Status of a catalog entry.  Inactive entries stay listed but cannot be
// requested.
type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
)

// ToolType mirrors one row in the `tool_type` table.
type ToolType struct {
	ID           string       `db:"id"            json:"id"`
	Name         string       `db:"name"          json:"name"`
	Description  string       `db:"description"   json:"description"`
	Slug         string       `db:"slug"          json:"slug"`
	IconCategory IconCategory `db:"icon_category" json:"icon_category"`
	Status       Status       `db:"status"        json:"status"`
	CreatedAt    time.Time    `db:"created_at"    json:"created_at"`
	UpdatedAt    time.Time    `db:"updated_at"    json:"updated_at"`
}

// CreateInput is the payload of createType.
type CreateInput struct {
	Name         string       `json:"name"          validate:"required,max=120"`
	Description  string       `json:"description"   validate:"required"`
	Slug         string       `json:"slug"          validate:"required,max=100,slug"`
	IconCategory IconCategory `json:"icon_category" validate:"required,oneof=iframe calendar crm timetracking"`
}

// Patch is a partial update; nil fields are left alone.  A set field is
// held to the same rules as on create, so min=1 (checked against the
// dereferenced value) rejects an empty name, description, or slug.
type Patch struct {
	Name         *string       `json:"name,omitempty"          validate:"omitempty,min=1,max=120"`
	Description  *string       `json:"description,omitempty"   validate:"omitempty,min=1"`
	Slug         *string       `json:"slug,omitempty"          validate:"omitempty,min=1,max=100,slug"`
	IconCategory *IconCategory `json:"icon_category,omitempty" validate:"omitempty,oneof=iframe calendar crm timetracking"`
	Status       *Status       `json:"status,omitempty"        validate:"omitempty,oneof=active inactive"`
}

// Empty reports whether p changes nothing.
func (p Patch) Empty() bool {
	return p.Name == nil && p.Description == nil && p.Slug == nil &&
		p.IconCategory == nil && p.Status == nil
}

// apply copies the set fields of p onto t.
func (p Patch) apply(t *ToolType) {
	if p.Name != nil {
		t.Name = *p.Name
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.Slug != nil {
		t.Slug = *p.Slug
	}
	if p.IconCategory != nil {
		t.IconCategory = *p.IconCategory
	}
	if p.Status != nil {
		t.Status = *p.Status
	}
}

// Filter narrows listTypes.  The zero value matches everything.
type Filter struct {
	Status Status
}

func (f Filter) match(t ToolType) bool {
	return f.Status == "" || t.Status == f.Status
}
