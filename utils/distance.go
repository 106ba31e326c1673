package utils

import (
	"fmt"
	"math"
)

// PresentableDistance formats a distance in km for display: metres rounded
// to 10 m below one kilometre, tenths of a kilometre above.
func PresentableDistance(km float64) string {
	if km < 0 || math.IsNaN(km) {
		return ""
	}
	if km < 1 {
		m := int(math.Round(km*100)) * 10
		if m < 10 {
			return "at stop"
		}
		return fmt.Sprintf("%d m", m)
	}
	return fmt.Sprintf("%.1f km", km)
}
