// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package surface provides presenters for fractal renderers.
//
// A Surface receives every composited window image of a renderer. The
// package ships three of them:
//
//   - Null discards frames (benchmarks, headless profiling)
//   - Capture keeps a copy of the last frame
//   - WebPRecorder keeps the most recent frames and writes them as an
//     animated WebP when closed
//
// The browser viewer lives in surface/wsview and registers itself under
// the name "ws" when imported.
//
// # Registry
//
// Surfaces are created through a registry of factories ordered by priority,
// the same way devices are selected. NewSurface and NewSurfaceByName call
// Open and OpenNamed on the Default registry:
//
//	s, err := surface.NewSurfaceByName("webp", surface.Options{Path: "out.webp"})
//	// or the best surface whose options are satisfied:
//	s, err := surface.NewSurface(surface.Options{})
//
// Open tries factories from the highest priority down and returns the first
// that succeeds, so a surface missing a required option falls through to the
// next one.
package surface
