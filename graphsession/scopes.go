package graphsession

import "strings"

// verifyScopes records the granted scope string and compares the scopes
// actually granted against the scopes requested. The offline_access scope is
// excluded from the comparison: it drives refresh-token issuance and is not
// a Graph-facing permission. A mismatch is a warning only; the session stays
// logged in with whatever was granted.
func (s *Session) verifyScopes(grantedScope string) {
	s.state.tokenScope = grantedScope

	granted := map[string]struct{}{}
	for _, scope := range strings.Fields(grantedScope) {
		granted[strings.ToLower(scope)] = struct{}{}
	}

	requested := map[string]struct{}{}
	for _, scope := range s.cfg.Scopes {
		lowered := strings.ToLower(scope)
		if lowered == OfflineAccessScope {
			continue
		}
		requested[lowered] = struct{}{}
	}

	if scopeSetsEqual(granted, requested) {
		return
	}

	s.logger.Warn().
		Strs("requested", setToSlice(requested)).
		Strs("granted", setToSlice(granted)).
		Msg("granted scopes differ from requested scopes")
}

func scopeSetsEqual(a, b map[string]struct{}) bool {
	if len(a) != len(b) {
		return false
	}
	for scope := range a {
		if _, ok := b[scope]; !ok {
			return false
		}
	}
	return true
}

func setToSlice(set map[string]struct{}) []string {
	scopes := make([]string, 0, len(set))
	for scope := range set {
		scopes = append(scopes, scope)
	}
	return scopes
}
