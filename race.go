// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

//go:build race

package rtcore

// RaceEnabled is true when the race detector is active.
// Used by tests to skip concurrent stress tests of the queue ring and the
// sampler handoff, whose ordering the detector cannot see through atomix.
const RaceEnabled = true
