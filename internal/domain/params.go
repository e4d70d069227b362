package domain

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Params holds a strategy's hyperparameters. Values are numeric; integer
// parameters (periods, lookbacks) are carried as whole floats.
type Params map[string]float64

// Canonical serializes the parameter set as a JSON object with sorted keys
// and shortest-form numbers, so semantically identical configurations always
// produce byte-identical encodings. Canonical(Canonical(p)) == Canonical(p).
func (p Params) Canonical() string {
	if len(p) == 0 {
		return "{}"
	}

	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	sb.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(strconv.Quote(k))
		sb.WriteByte(':')
		sb.WriteString(strconv.FormatFloat(p[k], 'g', -1, 64))
	}
	sb.WriteByte('}')
	return sb.String()
}

// ParamsFromCanonical decodes a canonical (or any JSON object) encoding.
func ParamsFromCanonical(s string) (Params, error) {
	var p Params
	if err := json.Unmarshal([]byte(s), &p); err != nil {
		return nil, fmt.Errorf("decode params %q: %w", s, err)
	}
	return p, nil
}

// Get returns the named parameter, or def when absent.
func (p Params) Get(key string, def float64) float64 {
	if v, ok := p[key]; ok {
		return v
	}
	return def
}

// Clone returns an independent copy.
func (p Params) Clone() Params {
	out := make(Params, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}
