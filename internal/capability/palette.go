package capability

import (
	"github.com/lucasb-eyer/go-colorful"

	"github.com/dshills/tuicore/internal/cell"
)

// ansi16Palette is the standard 16-color ANSI palette in RGB, indices 0-15
// (black, red, green, yellow, blue, magenta, cyan, white, then their
// bright counterparts).
var ansi16Palette = [16][3]uint8{
	{0, 0, 0}, {205, 0, 0}, {0, 205, 0}, {205, 205, 0},
	{0, 0, 238}, {205, 0, 205}, {0, 205, 205}, {229, 229, 229},
	{127, 127, 127}, {255, 0, 0}, {0, 255, 0}, {255, 255, 0},
	{92, 92, 255}, {255, 0, 255}, {0, 255, 255}, {255, 255, 255},
}

// Downgrade converts c to the nearest representable color at level,
// per spec §5.2's "color downgrade preserves perceptual ordering as
// closely as the target depth allows." True color and no-downgrade cases
// pass through unchanged; indexed downgrades use CIE L*a*b* distance via
// go-colorful rather than naive RGB Euclidean distance, since Lab spacing
// tracks human color perception much more closely — the same rationale
// vindauga's platform scoring gives truecolor and 256-color terminals a
// higher score than a raw channel count would suggest.
func Downgrade(c cell.Color, level ColorLevel) cell.Color {
	if c.IsDefault() {
		return c
	}

	switch level {
	case ColorTrueColor:
		return c
	case Color256:
		if c.Kind == cell.KindIndexed256 || c.Kind == cell.KindIndexed16 {
			return c
		}
		r, g, b := c.RGBComponents()
		return cell.Indexed256(nearest256(r, g, b))
	case Color16:
		if c.Kind == cell.KindIndexed16 {
			return c
		}
		r, g, b := rgbOf(c)
		return cell.Indexed16(nearest16(r, g, b))
	default: // ColorNone
		return cell.Default
	}
}

func rgbOf(c cell.Color) (r, g, b uint8) {
	switch c.Kind {
	case cell.KindRGB24:
		return c.RGBComponents()
	case cell.KindIndexed256:
		return indexed256ToRGB(c.Index())
	case cell.KindIndexed16:
		p := ansi16Palette[c.Index()%16]
		return p[0], p[1], p[2]
	default:
		return 0, 0, 0
	}
}

func nearest16(r, g, b uint8) uint8 {
	target := colorful.Color{R: float64(r) / 255, G: float64(g) / 255, B: float64(b) / 255}
	best := 0
	bestDist := -1.0
	for i, p := range ansi16Palette {
		cand := colorful.Color{R: float64(p[0]) / 255, G: float64(p[1]) / 255, B: float64(p[2]) / 255}
		d := target.DistanceLab(cand)
		if bestDist < 0 || d < bestDist {
			bestDist = d
			best = i
		}
	}
	return uint8(best)
}

func nearest256(r, g, b uint8) uint8 {
	target := colorful.Color{R: float64(r) / 255, G: float64(g) / 255, B: float64(b) / 255}
	best := 0
	bestDist := -1.0
	for i := 0; i < 256; i++ {
		pr, pg, pb := indexed256ToRGB(uint8(i))
		cand := colorful.Color{R: float64(pr) / 255, G: float64(pg) / 255, B: float64(pb) / 255}
		d := target.DistanceLab(cand)
		if bestDist < 0 || d < bestDist {
			bestDist = d
			best = i
		}
	}
	return uint8(best)
}

// indexed256ToRGB implements the standard xterm 256-color cube: 0-15 are
// the ANSI 16 colors, 16-231 are a 6x6x6 RGB cube, 232-255 are a
// grayscale ramp.
func indexed256ToRGB(idx uint8) (r, g, b uint8) {
	switch {
	case idx < 16:
		p := ansi16Palette[idx]
		return p[0], p[1], p[2]
	case idx < 232:
		i := int(idx) - 16
		levels := [6]uint8{0, 95, 135, 175, 215, 255}
		ri := (i / 36) % 6
		gi := (i / 6) % 6
		bi := i % 6
		return levels[ri], levels[gi], levels[bi]
	default:
		v := uint8(8 + (int(idx)-232)*10)
		return v, v, v
	}
}
