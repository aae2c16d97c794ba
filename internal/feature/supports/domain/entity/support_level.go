// Package entity defines the domain models for the supports feature.
package entity

import "time"

// SupportLevel is a price at which downward movement has repeatedly stalled.
//
// Levels are produced by the detector and treated as immutable afterwards.
// Distance is only set on copies annotated against a current price.
type SupportLevel struct {
	Price    float64    `json:"price"`
	Strength float64    `json:"strength"` // 0-100 in normal cases
	Touches  int        `json:"touches"`
	LastTest *time.Time `json:"last_test"`
	Distance *float64   `json:"distance,omitempty"` // percent, positive when price is above the level
}

// Clone returns a copy that shares no pointers with l.
func (l SupportLevel) Clone() SupportLevel {
	out := l
	if l.LastTest != nil {
		t := *l.LastTest
		out.LastTest = &t
	}
	if l.Distance != nil {
		d := *l.Distance
		out.Distance = &d
	}
	return out
}

// CloneLevels deep-copies a level slice. A nil input yields nil.
func CloneLevels(levels []SupportLevel) []SupportLevel {
	if levels == nil {
		return nil
	}
	out := make([]SupportLevel, len(levels))
	for i, l := range levels {
		out[i] = l.Clone()
	}
	return out
}
