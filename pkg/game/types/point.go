package types

import (
	"fmt"
	"strconv"
)

// Point is a position in level coordinates.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

func (p Point) String() string {
	return fmt.Sprintf("(%g, %g, %g)", p.X, p.Y, p.Z)
}

// Format renders the point as "x,y,z", the form used in replicated properties.
func (p Point) Format() string {
	return strconv.FormatFloat(p.X, 'g', -1, 64) + "," +
		strconv.FormatFloat(p.Y, 'g', -1, 64) + "," +
		strconv.FormatFloat(p.Z, 'g', -1, 64)
}
