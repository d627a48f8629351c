// Package model provides role-based model selection for pipeline agents.
// Instead of hardcoding model names, callers specify the agent role
// (planner, writer, editor) and the registry resolves it to a configured
// endpoint with a fallback chain.
package model

// Role represents a semantic agent role for model selection.
type Role string

const (
	// RolePlanner proposes visualization intents and stage plans.
	RolePlanner Role = "planner"

	// RoleBuilder turns a plan item plus data into a structured payload.
	RoleBuilder Role = "builder"

	// RoleSummarizer condenses stage output into checkpoint summaries.
	RoleSummarizer Role = "summarizer"

	// RoleWriter produces section prose for publication assembly.
	RoleWriter Role = "writer"

	// RoleEditor merges sections into one cohesive document.
	RoleEditor Role = "editor"

	// RoleCaptioner generates figure captions for chart artifacts.
	RoleCaptioner Role = "captioner"

	// RoleReviewer simulates peer review over prior stages.
	RoleReviewer Role = "reviewer"

	// RoleBibliographer reformats references into a citation style.
	RoleBibliographer Role = "bibliographer"

	// RoleFast is for quick responses and simple single-call stages.
	RoleFast Role = "fast"
)

// AllRoles lists every role the registry can resolve.
var AllRoles = []Role{
	RolePlanner, RoleBuilder, RoleSummarizer, RoleWriter, RoleEditor,
	RoleCaptioner, RoleReviewer, RoleBibliographer, RoleFast,
}

// IsValid checks if a role string is a known role.
func (r Role) IsValid() bool {
	switch r {
	case RolePlanner, RoleBuilder, RoleSummarizer, RoleWriter, RoleEditor,
		RoleCaptioner, RoleReviewer, RoleBibliographer, RoleFast:
		return true
	}
	return false
}

// String returns the string representation of the role.
func (r Role) String() string {
	return string(r)
}

// ParseRole converts a string to a Role, returning empty for invalid values.
func ParseRole(s string) Role {
	role := Role(s)
	if role.IsValid() {
		return role
	}
	return ""
}
