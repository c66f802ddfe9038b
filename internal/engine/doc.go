// Package engine implements the asynchronous per-node processing
// core: a ProcessingUnit that offloads one transform invocation at a
// time to a background goroutine, coalesces arrivals while busy into
// a single pending slot (last writer wins), and publishes results
// alongside a boolean readiness signal.
//
// Philosophy, borrowed from live-video practice: drop intermediate
// frames, never queue them. A node's expensive computation should
// always run on the freshest data; memory stays O(1) per node no
// matter how fast frames arrive.
package engine
