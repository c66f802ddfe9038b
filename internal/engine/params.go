package engine

// Params is a transform's configuration at one point in time. Submit
// snapshots it, so a job always runs with the configuration that was
// current when it was queued, not whatever the node holds when the
// worker finally executes.
type Params map[string]any

// Clone returns a shallow copy. Values are plain scalars by
// convention, so a shallow copy is a full snapshot.
func (p Params) Clone() Params {
	if p == nil {
		return Params{}
	}
	out := make(Params, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// Float reads a numeric parameter, accepting the int/float64 values
// that YAML and hand-written maps produce.
func (p Params) Float(key string, def float64) float64 {
	switch v := p[key].(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	default:
		return def
	}
}

func (p Params) Int(key string, def int) int {
	switch v := p[key].(type) {
	case int:
		return v
	case float64:
		return int(v)
	default:
		return def
	}
}

func (p Params) String(key, def string) string {
	if v, ok := p[key].(string); ok {
		return v
	}
	return def
}
