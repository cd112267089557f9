package service

import "math"

const goldenRatio = 0.618033988749895

// GenerateDistinctColor 基于黄金比例生成视觉上易区分的颜色
func GenerateDistinctColor(index int) []int {
	hue := math.Mod(float64(index)*goldenRatio, 1.0)
	r, g, b := hsvToRGB(hue, 0.7, 0.9)
	return []int{int(r * 255), int(g * 255), int(b * 255)}
}

// hsvToRGB HSV转RGB，各分量取值[0,1]
func hsvToRGB(h, s, v float64) (float64, float64, float64) {
	i := int(h * 6)
	f := h*6 - float64(i)
	p := v * (1 - s)
	q := v * (1 - f*s)
	t := v * (1 - (1-f)*s)

	switch i % 6 {
	case 0:
		return v, t, p
	case 1:
		return q, v, p
	case 2:
		return p, v, t
	case 3:
		return p, q, v
	case 4:
		return t, p, v
	default:
		return v, p, q
	}
}
