// Package counting reconciles physical count sheets against the derived
// inventory snapshot and turns the differences into adjustment transactions.
package counting

import (
	"fmt"
	"time"

	"github.com/meridian-wms/meridian/internal/shared"
)

// CountRecord is one physically observed quantity. Records live only inside
// a counting session; they are discarded once an adjustment is committed or
// the session is abandoned.
type CountRecord struct {
	ItemName string `json:"item_name"`
	Quantity int64  `json:"quantity"`
	Notes    string `json:"notes,omitempty"`
}

// Session describes an in-progress counting session.
type Session struct {
	ID        string
	Warehouse string
	StartedAt time.Time
}

// Variance compares a physical count against the calculated on-hand figure.
type Variance struct {
	ItemName      string
	PhysicalCount int64
	OnHand        int64
	Variance      int64
}

// Comments attached to adjustment lines generated from a count.
const (
	CommentOverage  = "Count overage"
	CommentShortage = "Count shortage"
)

// Comment returns the adjustment-line comment for the variance sign. Zero
// variances never reach an adjustment line.
func (v Variance) Comment() string {
	if v.Variance > 0 {
		return CommentOverage
	}
	return CommentShortage
}

// ErrSessionNotFound indicates an expired or unknown counting session.
var ErrSessionNotFound = fmt.Errorf("counting: session not found: %w", shared.ErrNotFound)
