package clients

// HasScope reports whether the identity's grants cover resource:action,
// optionally narrowed to a single resource id. The wildcard "*" grants
// everything; "topics:read" covers all topics; "topics:read:orders" covers
// only the topic "orders".
func (id *Identity) HasScope(resource, action, resourceID string) bool {
	if _, ok := id.Scopes["*"]; ok {
		return true
	}

	base := resource + ":" + action
	if _, ok := id.Scopes[base]; ok {
		return true
	}
	if resourceID != "" {
		if _, ok := id.Scopes[base+":"+resourceID]; ok {
			return true
		}
	}
	return false
}
