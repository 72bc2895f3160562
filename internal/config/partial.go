package config

// Field names, as used in validation errors, provenance and config files.
const (
	FieldStrict       = "strict"
	FieldTitle        = "title"
	FieldBody         = "body"
	FieldKind         = "kind"
	FieldUserName     = "username"
	FieldPassword     = "password"
	FieldDestinations = "destinations"
)

// Fields lists every post field in prompt order.
var Fields = []string{FieldUserName, FieldPassword, FieldKind, FieldTitle, FieldBody, FieldDestinations, FieldStrict}

// PartialConfig is one configuration fragment. Every field may be absent.
//
// Fragments are values; Merge never mutates its inputs.
type PartialConfig struct {
	Strict       Opt[bool]
	Title        Opt[string]
	Body         Opt[string]
	Kind         Opt[string]
	UserName     Opt[string]
	Password     Opt[string]
	Destinations Opt[[]string]
}

// Merge combines fragments field by field. For each field the first fragment
// holding a value wins, so fragments must be passed highest priority first.
func Merge(fragments ...PartialConfig) PartialConfig {
	var out PartialConfig
	for _, f := range fragments {
		out.Strict = First(out.Strict, f.Strict)
		out.Title = First(out.Title, f.Title)
		out.Body = First(out.Body, f.Body)
		out.Kind = First(out.Kind, f.Kind)
		out.UserName = First(out.UserName, f.UserName)
		out.Password = First(out.Password, f.Password)
		out.Destinations = First(out.Destinations, f.Destinations)
	}
	if v, ok := out.Destinations.Get(); ok {
		out.Destinations = someList(v)
	}
	return out
}

// present reports which fields hold a value.
func (p PartialConfig) present() map[string]bool {
	return map[string]bool{
		FieldStrict:       p.Strict.Present(),
		FieldTitle:        p.Title.Present(),
		FieldBody:         p.Body.Present(),
		FieldKind:         p.Kind.Present(),
		FieldUserName:     p.UserName.Present(),
		FieldPassword:     p.Password.Present(),
		FieldDestinations: p.Destinations.Present(),
	}
}

// Source is a named fragment, e.g. "flags" or "file:/etc/xpost.yaml".
type Source struct {
	Name   string
	Config PartialConfig
}

// Provenance maps a field name to the source that supplied it.
type Provenance map[string]string

// MergeSources merges sources like Merge and records which source won each field.
func MergeSources(sources ...Source) (PartialConfig, Provenance) {
	frags := make([]PartialConfig, 0, len(sources))
	prov := Provenance{}
	for _, s := range sources {
		frags = append(frags, s.Config)
		for field, ok := range s.Config.present() {
			if _, seen := prov[field]; ok && !seen {
				prov[field] = s.Name
			}
		}
	}
	return Merge(frags...), prov
}
