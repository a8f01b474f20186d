package domain

import (
	"fmt"
	"strings"
)

// Color is the color outcome of a round.
type Color string

const (
	ColorRed    Color = "RED"
	ColorGreen  Color = "GREEN"
	ColorViolet Color = "VIOLET"
)

// Colors lists every valid color.
var Colors = []Color{ColorRed, ColorGreen, ColorViolet}

// numberColors is the fixed 10-way partition of result numbers:
// 0,5 -> VIOLET; 1,3,7,9 -> GREEN; 2,4,6,8 -> RED.
var numberColors = [10]Color{
	ColorViolet, // 0
	ColorGreen,  // 1
	ColorRed,    // 2
	ColorGreen,  // 3
	ColorRed,    // 4
	ColorViolet, // 5
	ColorRed,    // 6
	ColorGreen,  // 7
	ColorRed,    // 8
	ColorGreen,  // 9
}

// ColorForNumber maps a result number to its color.
func ColorForNumber(n int) (Color, error) {
	if n < 0 || n > 9 {
		return "", fmt.Errorf("%w: number %d out of range 0-9", ErrInvalidResult, n)
	}
	return numberColors[n], nil
}

// ParseColor accepts a color name in any case.
func ParseColor(s string) (Color, bool) {
	c := Color(strings.ToUpper(strings.TrimSpace(s)))
	switch c {
	case ColorRed, ColorGreen, ColorViolet:
		return c, true
	}
	return "", false
}

func (c Color) String() string {
	return string(c)
}
