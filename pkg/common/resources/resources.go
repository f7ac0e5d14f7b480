/*
Copyright 2019 The Unity Scheduler Authors

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package resources

import (
	"fmt"
)

// const keys
const (
	MEMORY = "memory"
	VCORE  = "vcore"
)

type Resource struct {
	Resources map[string]Quantity
}

// No unit defined here for better performance
type Quantity int64

var zeroResource = NewResource()

func NewResource() *Resource {
	return &Resource{Resources: make(map[string]Quantity)}
}

func NewResourceFromMap(m map[string]Quantity) *Resource {
	if m == nil {
		return NewResource()
	}
	return &Resource{Resources: m}
}

// NewResourceFromConf builds a resource from a string-keyed config map, such
// as a queue-partition entity loaded from yaml. Values may carry an SI or
// binary-SI suffix (see ParseQuantity); a bare integer is interpreted as-is.
// The config map must have been checked before being applied. The check here is just for safety so we do not crash.
func NewResourceFromConf(configMap map[string]string) (*Resource, error) {
	res := NewResource()
	for key, strVal := range configMap {
		var quantity Quantity
		var err error
		if key == VCORE {
			quantity, err = ParseVCore(strVal)
		} else {
			quantity, err = ParseQuantity(strVal)
		}
		if err != nil {
			return nil, err
		}
		res.Resources[key] = quantity
	}
	return res, nil
}

func (m *Resource) String() string {
	if m == nil {
		return "<nil>"
	}
	return fmt.Sprintf("%v", m.Resources)
}

// Return a clone (copy) of the resource
func (m *Resource) Clone() *Resource {
	ret := NewResource()
	if m == nil {
		return ret
	}
	for k, v := range m.Resources {
		if v != 0 {
			ret.Resources[k] = v
		}
	}
	return ret
}

// IsEmpty reports whether every dimension is exactly zero. A nil resource is empty.
func (m *Resource) IsEmpty() bool {
	if m == nil {
		return true
	}
	for _, v := range m.Resources {
		if v != 0 {
			return false
		}
	}
	return true
}

// Operations
// All operations must be nil safe

// Add resources returning a new resource with the result
// A nil resource is considered an empty resource
func Add(left *Resource, right *Resource) *Resource {
	if left == nil {
		left = zeroResource
	}
	if right == nil {
		right = zeroResource
	}

	out := NewResource()
	for k, v := range right.Resources {
		out.Resources[k] = v
	}
	for k, v := range left.Resources {
		out.Resources[k] += v
	}
	return out
}

// Subtract resource returning a new resource with the result
// A nil resource is considered an empty resource
// This might return negative values for specific quantities
func Sub(left *Resource, right *Resource) *Resource {
	if left == nil {
		left = zeroResource
	}
	if right == nil {
		right = zeroResource
	}

	out := NewResource()
	for k, v := range left.Resources {
		out.Resources[k] = v
	}
	for k, v := range right.Resources {
		out.Resources[k] -= v
	}
	return out
}

// Negate returns a new resource with every dimension's sign flipped.
// This is used to turn a creditor's headroom input into the maxPreemptable
// it may reclaim from others (see EntityMeasure).
func Negate(res *Resource) *Resource {
	out := NewResource()
	if res == nil {
		return out
	}
	for k, v := range res.Resources {
		out.Resources[k] = -v
	}
	return out
}

// Add additional resource to the base updating the base resource
// Should be used by temporary computation only
// A nil base resource is considered an empty resource
// A nil addition is treated as a zero valued resource and leaves base unchanged
func AddTo(base *Resource, additional *Resource) {
	if additional == nil {
		return
	}
	if base == nil {
		base = NewResource()
	}
	for k, v := range additional.Resources {
		base.Resources[k] += v
	}
}

// Subtract from the base resource the subtract resource by updating the base resource
// Should be used by temporary computation only
// A nil base resource is considered an empty resource
// A nil subtract is treated as a zero valued resource and leaves base unchanged
func SubFrom(base *Resource, subtract *Resource) {
	if subtract == nil {
		return
	}
	if base == nil {
		base = NewResource()
	}
	for k, v := range subtract.Resources {
		base.Resources[k] -= v
	}
}

// FitsIn checks if smaller fits in larger, negative values will be treated as 0
// A nil resource is treated as an empty resource (zero)
func FitsIn(larger *Resource, smaller *Resource) bool {
	if larger == nil {
		larger = zeroResource
	}
	if smaller == nil {
		smaller = zeroResource
	}

	for k, v := range smaller.Resources {
		largerValue := larger.Resources[k]
		if largerValue < 0 {
			largerValue = 0
		}
		if v > largerValue {
			return false
		}
	}
	return true
}

// Compare the resources equal returns the specific values for following cases:
// left  right  return
// nil   nil    true
// nil   <set>  false
// <set> nil    false
// <set> <set>  true/false  *based on the individual Quantity values
func Equals(left *Resource, right *Resource) bool {
	if left == right {
		return true
	}

	if left == nil || right == nil {
		return false
	}

	for k, v := range left.Resources {
		if right.Resources[k] != v {
			return false
		}
	}

	for k, v := range right.Resources {
		if left.Resources[k] != v {
			return false
		}
	}

	return true
}

// Does all vector of larger > smaller
func StrictlyGreaterThan(larger *Resource, smaller *Resource) bool {
	if larger == nil {
		larger = zeroResource
	}
	if smaller == nil {
		smaller = zeroResource
	}

	for k, v := range larger.Resources {
		if smaller.Resources[k] >= v {
			return false
		}
	}

	for k, v := range smaller.Resources {
		if larger.Resources[k] <= v {
			return false
		}
	}

	return true
}

// Have at least one type > 0, and no type < 0
// A nil resource is not strictly greater than zero.
func StrictlyGreaterThanZero(larger *Resource) bool {
	var greater = false
	if larger != nil {
		for _, v := range larger.Resources {
			if v < 0 {
				greater = false
				break
			} else if v > 0 {
				greater = true
			}
		}
	}
	return greater
}

// HasPositive reports whether at least one dimension of res is strictly
// positive. This is the predicate updatePartition uses to decide whether a
// queue-partition update makes the entity a debtor.
func HasPositive(res *Resource) bool {
	if res == nil {
		return false
	}
	for _, v := range res.Resources {
		if v > 0 {
			return true
		}
	}
	return false
}

// Check that the whole resource is zero (componentwise <= 0)
// A nil resource is zero
func IsZero(zero *Resource) bool {
	if zero != nil {
		for _, v := range zero.Resources {
			if v > 0 {
				return false
			}
		}
	}
	return true
}
