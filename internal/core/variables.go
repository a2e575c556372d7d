package core

// Variables holds template values used to render a booking request.
type Variables interface {
	Get(key string) (any, bool)
	Set(key string, value any)
}

// MapVariables is a map-backed Variables. Not safe for concurrent use;
// each attempt renders with its own instance.
type MapVariables map[string]any

func NewVariables() MapVariables {
	return make(MapVariables)
}

func (v MapVariables) Get(key string) (any, bool) {
	val, ok := v[key]
	return val, ok
}

func (v MapVariables) Set(key string, value any) {
	v[key] = value
}

// AttemptVariables returns the variables exposed to request templates
// for one attempt: ${ticket} and ${actor}.
func AttemptVariables(target Target, actor ActorID) MapVariables {
	return MapVariables{
		"ticket": int64(target),
		"actor":  int64(actor),
	}
}
