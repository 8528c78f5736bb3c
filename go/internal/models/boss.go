package models

import (
	"fmt"
	"sort"
	"time"
)

// Resource identifies the field boss whose timers are tracked.
type Resource string

const (
	ResourceJiangshi   Resource = "Jiangshi"
	ResourceGigantura  Resource = "Gigantura"
	ResourceWuFu       Resource = "WuFu"
	ResourcePinchy     Resource = "Pinchy"
	ResourceGoldenDeva Resource = "GoldenDeva"
	ResourceBulbari    Resource = "Bulbari"
)

// DefaultResource is selected when no preference has been stored yet.
const DefaultResource = ResourceJiangshi

// Kind is a timer phase. Its duration depends on the resource.
type Kind string

const (
	KindBossDead        Kind = "Boss Dead"
	KindVariantSpawning Kind = "Variant Spawning"
	KindVariantDead     Kind = "Variant Dead"
)

// Channel bounds.
const (
	MinChannel = 1
	MaxChannel = 50
)

// kindOrder is the display order of kinds; map iteration is random.
var kindOrder = []Kind{KindBossDead, KindVariantSpawning, KindVariantDead}

// resourceOrder is the display order of resources.
var resourceOrder = []Resource{
	ResourceJiangshi,
	ResourceGigantura,
	ResourceWuFu,
	ResourcePinchy,
	ResourceGoldenDeva,
	ResourceBulbari,
}

func standardPhases() map[Kind]time.Duration {
	return map[Kind]time.Duration{
		KindBossDead:        300 * time.Second,
		KindVariantSpawning: 120 * time.Second,
		KindVariantDead:     480 * time.Second,
	}
}

// bossTimers is the static per-resource, per-kind duration table.
var bossTimers = map[Resource]map[Kind]time.Duration{
	ResourceJiangshi:   standardPhases(),
	ResourceGigantura:  standardPhases(),
	ResourceWuFu:       standardPhases(),
	ResourcePinchy:     standardPhases(),
	ResourceGoldenDeva: standardPhases(),
	ResourceBulbari:    standardPhases(),
}

// Resources returns every known resource in display order.
func Resources() []Resource {
	out := make([]Resource, len(resourceOrder))
	copy(out, resourceOrder)
	return out
}

// ParseResource validates a resource name.
func ParseResource(s string) (Resource, error) {
	r := Resource(s)
	if _, ok := bossTimers[r]; !ok {
		return "", fmt.Errorf("unknown resource %q", s)
	}
	return r, nil
}

// Valid reports whether r is one of the known resources.
func (r Resource) Valid() bool {
	_, ok := bossTimers[r]
	return ok
}

// Kinds returns the phases configured for r in display order.
func (r Resource) Kinds() []Kind {
	phases := bossTimers[r]
	kinds := make([]Kind, 0, len(phases))
	for _, k := range kindOrder {
		if _, ok := phases[k]; ok {
			kinds = append(kinds, k)
		}
	}
	// Phases outside kindOrder go last, alphabetically.
	var extra []Kind
	for k := range phases {
		if !containsKind(kindOrder, k) {
			extra = append(extra, k)
		}
	}
	sort.Slice(extra, func(i, j int) bool { return extra[i] < extra[j] })
	return append(kinds, extra...)
}

// Duration returns how long a timer of kind k lasts for resource r.
func (r Resource) Duration(k Kind) (time.Duration, bool) {
	d, ok := bossTimers[r][k]
	return d, ok
}

func containsKind(kinds []Kind, k Kind) bool {
	for _, candidate := range kinds {
		if candidate == k {
			return true
		}
	}
	return false
}
