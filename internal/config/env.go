package config

import (
	"fmt"
	"strconv"
	"strings"
)

// Environment variable names read by FromEnv.
const (
	EnvStrict      = "XPOST_STRICT"
	EnvTitle       = "XPOST_TITLE"
	EnvBody        = "XPOST_BODY"
	EnvKind        = "XPOST_KIND"
	EnvUserName    = "XPOST_USERNAME"
	EnvPassword    = "XPOST_PASSWORD"
	EnvCommunities = "XPOST_COMMUNITIES"
)

// FromEnv builds a fragment from the environment. lookup is usually os.LookupEnv.
// Unset variables stay absent; set-but-empty strings are kept as present.
func FromEnv(lookup func(string) (string, bool)) (PartialConfig, error) {
	var p PartialConfig
	if v, ok := lookup(EnvStrict); ok && strings.TrimSpace(v) != "" {
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return p, fmt.Errorf("%s: invalid boolean %q", EnvStrict, v)
		}
		p.Strict = Some(b)
	}
	str := func(name string) Opt[string] {
		if v, ok := lookup(name); ok {
			return Some(v)
		}
		return None[string]()
	}
	p.Title = str(EnvTitle)
	p.Body = str(EnvBody)
	p.Kind = str(EnvKind)
	p.UserName = str(EnvUserName)
	p.Password = str(EnvPassword)
	if v, ok := lookup(EnvCommunities); ok {
		p.Destinations = Some(SplitList(v))
	}
	return p, nil
}

// Defaults is the compiled-in, lowest priority fragment.
func Defaults() PartialConfig {
	return PartialConfig{Strict: Some(true)}
}
