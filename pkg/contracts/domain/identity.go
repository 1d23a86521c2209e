package domain

import (
	"fmt"
	"strings"
)

// LabelSeparator joins identity parts into column labels.
const LabelSeparator = "_"

// OrganoidLabelPrefix precedes the organoid index in labels.
const OrganoidLabelPrefix = "org"

// ColumnKey is the contract shared by every wide-table column identifier.
// Organoid-level columns carry an organoid index; group-level columns
// report zero.
type ColumnKey interface {
	comparable
	fmt.Stringer
	Key() GroupKey
	Index() int
}

// GroupKey identifies one experimental condition at one timepoint,
// optionally within a batch. The zero value of Batch and Timepoint means
// the dimension is absent.
type GroupKey struct {
	Batch     string `json:"batch,omitempty" yaml:"batch,omitempty"`
	Group     string `json:"group" yaml:"group" validate:"required"`
	Timepoint string `json:"timepoint,omitempty" yaml:"timepoint,omitempty"`
}

// String returns the label used for group-level columns.
func (k GroupKey) String() string {
	parts := make([]string, 0, 3)
	if k.Batch != "" {
		parts = append(parts, k.Batch)
	}
	parts = append(parts, k.Group)
	if k.Timepoint != "" {
		parts = append(parts, k.Timepoint)
	}
	return strings.Join(parts, LabelSeparator)
}

// Key returns the key itself so GroupKey satisfies ColumnKey.
func (k GroupKey) Key() GroupKey { return k }

// Index is always zero for group-level columns.
func (k GroupKey) Index() int { return 0 }

// Condition drops the timepoint, leaving the batch and group.
func (k GroupKey) Condition() GroupKey {
	return GroupKey{Batch: k.Batch, Group: k.Group}
}

// Identity names one organoid. It is decoded once from a filename and is
// never re-derived from labels downstream.
type Identity struct {
	Batch     string `json:"batch,omitempty"`
	Group     string `json:"group"`
	Timepoint string `json:"timepoint,omitempty"`
	Organoid  int    `json:"organoid"`
}

// Key returns the group key the organoid belongs to.
func (id Identity) Key() GroupKey {
	return GroupKey{Batch: id.Batch, Group: id.Group, Timepoint: id.Timepoint}
}

// Index returns the organoid index.
func (id Identity) Index() int { return id.Organoid }

// String returns the organoid column label, e.g. "ctrl_3days_org2".
func (id Identity) String() string {
	return fmt.Sprintf("%s%s%s%d", id.Key().String(), LabelSeparator, OrganoidLabelPrefix, id.Organoid)
}

// WithOrganoid returns a copy with a different organoid index.
func (id Identity) WithOrganoid(n int) Identity {
	id.Organoid = n
	return id
}

// Axis is one spatial coordinate of a position export.
type Axis string

const (
	AxisX Axis = "X"
	AxisY Axis = "Y"
	AxisZ Axis = "Z"
)

// Axes lists the coordinates in column order.
var Axes = []Axis{AxisX, AxisY, AxisZ}

// PositionKey namespaces a coordinate column by organoid so position
// tables from different organoids can be concatenated without collisions.
type PositionKey struct {
	Axis Axis
	ID   Identity
}

// String returns the column label, e.g. "X_ctrl_org1".
func (k PositionKey) String() string {
	return string(k.Axis) + LabelSeparator + k.ID.String()
}

// Key returns the organoid's group key.
func (k PositionKey) Key() GroupKey { return k.ID.Key() }

// Index returns the organoid index.
func (k PositionKey) Index() int { return k.ID.Organoid }
