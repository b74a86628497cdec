package domain

import (
	"fmt"
	"math"
)

// BoundingBox is an axis-aligned latitude/longitude rectangle. Boxes that cross the
// antimeridian (MinLng > MaxLng) are not supported and match nothing.
type BoundingBox struct {
	MinLat float64
	MaxLat float64
	MinLng float64
	MaxLng float64
}

// Validate checks coordinate ranges.
func (b BoundingBox) Validate() error {
	for _, v := range []float64{b.MinLat, b.MaxLat, b.MinLng, b.MaxLng} {
		if math.IsNaN(v) {
			return fmt.Errorf("%w: NaN coordinate", ErrInvalidBoundingBox)
		}
	}
	if b.MinLat < -90 || b.MaxLat > 90 || b.MinLat > b.MaxLat {
		return fmt.Errorf("%w: latitude range [%v, %v]", ErrInvalidBoundingBox, b.MinLat, b.MaxLat)
	}
	if b.MinLng < -180 || b.MaxLng > 180 || b.MinLng > 180 || b.MaxLng < -180 {
		return fmt.Errorf("%w: longitude range [%v, %v]", ErrInvalidBoundingBox, b.MinLng, b.MaxLng)
	}
	return nil
}

// ContainsPoint reports whether p lies inside box, edges inclusive. A nil box
// matches everything; a nil point never matches an active box.
func ContainsPoint(box *BoundingBox, p *Point) bool {
	if box == nil {
		return true
	}
	if p == nil {
		return false
	}
	return box.MinLat <= p.Lat && p.Lat <= box.MaxLat &&
		box.MinLng <= p.Lng && p.Lng <= box.MaxLng
}
