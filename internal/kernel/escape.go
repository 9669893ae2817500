package kernel

import "math"

// Bailout is the squared escape radius.
const Bailout = 64.0

// Palette rates per coloring, in palette turns per escape step.
const (
	smoothRate = 0.01
	bandedRate = 0.05
)

// Escape iterates z = z^2 + c from z0 until |z|^2 reaches Bailout or maxIter
// steps have run. It returns the step count and the final |z|^2.
// A count equal to maxIter means the point did not escape.
func Escape(zx, zy, cx, cy float64, maxIter uint32) (n uint32, r2 float64) {
	r2 = zx*zx + zy*zy
	for n < maxIter && r2 < Bailout {
		zx, zy = zx*zx-zy*zy+cx, 2*zx*zy+cy
		r2 = zx*zx + zy*zy
		n++
	}
	return n, r2
}

// Smooth returns the fractional escape count n + 2 - log2(ln r2).
func Smooth(n uint32, r2 float64) float64 {
	return float64(n) + 2 - math.Log2(math.Log(r2))
}

// Shade maps an escape result to 8-bit channel values.
// Points that never escaped are black.
func Shade(n uint32, r2 float64, maxIter uint32, c Coloring) (r, g, b uint32) {
	if n >= maxIter {
		return 0, 0, 0
	}
	mu, rate := Smooth(n, r2), smoothRate
	if c == ColoringBanded {
		mu, rate = float64(n), bandedRate
	}
	return Palette(mu, rate, 0), Palette(mu, rate, 1), Palette(mu, rate, 2)
}

// Palette evaluates one channel of the sine palette. Channels are offset by a
// third of a turn each.
func Palette(mu, rate float64, channel int) uint32 {
	phase := float64(channel) * 2 * math.Pi / 3
	v := math.Round(127.5*math.Sin(rate*2*math.Pi*mu+phase+1) + 127.5)
	return uint32(v)
}

// Plane maps a flat pixel index to its point in the complex plane.
// The image is centered on (p.CenterX, p.CenterY) and spans p.Zoom units
// vertically.
func Plane(p Params, pixel uint32) (re, im float64) {
	w, h := float64(p.Width), float64(p.Height)
	x := float64(pixel % p.Width)
	y := float64(pixel / p.Width)
	re = (x/w-0.5)*p.Zoom*(w/h) + p.CenterX
	im = (y/h-0.5)*p.Zoom + p.CenterY
	return re, im
}

// Pixel computes one pixel and stores its channels into the planar buffer out,
// which holds 3*Width*Height words.
func Pixel(p Params, pixel uint32, out []uint32) {
	re, im := Plane(p, pixel)

	var n uint32
	var r2 float64
	if p.Variant == Julia {
		n, r2 = Escape(re, im, p.SeedX, p.SeedY, p.MaxIterations)
	} else {
		n, r2 = Escape(0, 0, re, im, p.MaxIterations)
	}

	total := p.Width * p.Height
	r, g, b := Shade(n, r2, p.MaxIterations, p.Coloring)
	out[pixel] = r
	out[total+pixel] = g
	out[2*total+pixel] = b
}
