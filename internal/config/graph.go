package config

import "strings"

// GraphConfig carries the app registration settings for the Graph session.
// CLIENT_ID and CLIENT_SECRET come from the Microsoft app registration
// portal; REDIRECT_URI must match the value registered there.
type GraphConfig interface {
	GetClientID() string
	GetClientSecret() string
	GetRedirectURI() string
	GetScopes() []string
	GetCacheState() bool
}

type Graph struct{}

var _ GraphConfig = Graph{}

func (Graph) GetClientID() string {
	return GetEnv("CLIENT_ID", "")
}

func (Graph) GetClientSecret() string {
	return GetEnv("CLIENT_SECRET", "")
}

func (Graph) GetRedirectURI() string {
	return GetEnv("REDIRECT_URI", "http://localhost:8080/callback")
}

func (Graph) GetScopes() []string {
	scopes := GetEnv("SCOPES", "User.Read")
	return strings.Fields(scopes)
}

func (Graph) GetCacheState() bool {
	return GetEnv("CACHE_STATE", "false") == "true"
}
