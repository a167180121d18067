package rbac

// PolicyPrefix prefixes every generated policy name.
const PolicyPrefix = "Permission"

// Requirement is a named authorization rule demanding a single permission.
type Requirement struct {
	Permission Permission
}

// Satisfied reports whether the principal meets the requirement.
func (r Requirement) Satisfied(p Principal) bool {
	return Evaluate(p, r.Permission)
}

// PolicyName returns the registry key for a permission.
func PolicyName(p Permission) string {
	return PolicyPrefix + "." + string(p)
}

// Registry maps policy names to requirements, one policy per catalog
// permission. It is built once during process initialization, before the
// first request is served, and is read-only afterwards. Policies are
// derived from the catalog and never persisted; a catalog change between
// restarts simply rebuilds them.
type Registry struct {
	policies map[string]Requirement
}

// NewRegistry derives the full policy set from the permission catalog.
func NewRegistry() *Registry {
	all := All()
	policies := make(map[string]Requirement, len(all))
	for _, perm := range all {
		policies[PolicyName(perm)] = Requirement{Permission: perm}
	}
	return &Registry{policies: policies}
}

// Policy looks up a requirement by policy name.
func (r *Registry) Policy(name string) (Requirement, bool) {
	req, ok := r.policies[name]
	return req, ok
}

// Names returns every policy name in catalog order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.policies))
	for _, perm := range All() {
		names = append(names, PolicyName(perm))
	}
	return names
}

// Len reports the number of registered policies.
func (r *Registry) Len() int {
	return len(r.policies)
}
