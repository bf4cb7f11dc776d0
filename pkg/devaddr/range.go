// Package devaddr models inclusive DevAddr ranges and decomposes them into
// power-of-two-aligned subnet blocks.
package devaddr

import (
	"encoding/json"
	"fmt"

	"github.com/iotconfig/iotconfig-go/pkg/hexfield"
)

// InvalidRangeError is returned when a range ends before it starts.
type InvalidRangeError struct {
	Start hexfield.DevAddr
	End   hexfield.DevAddr
}

func (e *InvalidRangeError) Error() string {
	return fmt.Sprintf("invalid devaddr range %s-%s: start_addr cannot be greater than end_addr", e.Start, e.End)
}

// Constraint is an inclusive DevAddr range with no owning route.
// Organizations are allocated constraints; routes carry Ranges inside them.
type Constraint struct {
	Start hexfield.DevAddr `json:"start_addr"`
	End   hexfield.DevAddr `json:"end_addr"`
}

// NewConstraint validates start <= end.
func NewConstraint(start, end hexfield.DevAddr) (Constraint, error) {
	if end < start {
		return Constraint{}, &InvalidRangeError{Start: start, End: end}
	}
	return Constraint{Start: start, End: end}, nil
}

// Length returns the number of addresses covered, end-start+1.
// The full 32-bit space has length 1<<32.
func (c Constraint) Length() uint64 {
	return uint64(c.End) - uint64(c.Start) + 1
}

// Contains reports whether addr lies inside the constraint.
func (c Constraint) Contains(addr hexfield.DevAddr) bool {
	return addr >= c.Start && addr <= c.End
}

// Subnets decomposes the constraint into aligned blocks.
func (c Constraint) Subnets() []Block {
	return Decompose(c)
}

func (c Constraint) String() string {
	return c.Start.String() + "-" + c.End.String()
}

// UnmarshalJSON decodes and validates ordering.
func (c *Constraint) UnmarshalJSON(data []byte) error {
	type raw Constraint
	var r raw
	if err := json.Unmarshal(data, &r); err != nil {
		return err
	}
	v, err := NewConstraint(r.Start, r.End)
	if err != nil {
		return err
	}
	*c = v
	return nil
}

// Range is a DevAddr range owned by a route.
type Range struct {
	RouteID string           `json:"route_id"`
	Start   hexfield.DevAddr `json:"start_addr"`
	End     hexfield.DevAddr `json:"end_addr"`
}

// NewRange validates start <= end.
func NewRange(routeID string, start, end hexfield.DevAddr) (Range, error) {
	if end < start {
		return Range{}, &InvalidRangeError{Start: start, End: end}
	}
	return Range{RouteID: routeID, Start: start, End: end}, nil
}

// Constraint drops the owning route.
func (r Range) Constraint() Constraint {
	return Constraint{Start: r.Start, End: r.End}
}

// Length returns the number of addresses covered.
func (r Range) Length() uint64 {
	return r.Constraint().Length()
}

// Subnets decomposes the range into aligned blocks.
func (r Range) Subnets() []Block {
	return Decompose(r.Constraint())
}

func (r Range) String() string {
	return fmt.Sprintf("%s:%s-%s", r.RouteID, r.Start, r.End)
}

// UnmarshalJSON decodes and validates ordering.
func (r *Range) UnmarshalJSON(data []byte) error {
	type raw Range
	var v raw
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	rng, err := NewRange(v.RouteID, v.Start, v.End)
	if err != nil {
		return err
	}
	*r = rng
	return nil
}
