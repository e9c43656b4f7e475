// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
//
// Package pkggraph discovers the packages of a project on disk and answers the
// resolution questions the macros ask about them.
//
// # Core Concepts
//
//   - Package: identified by its name AND its resolved root directory. Two
//     installs of "addon" at different roots are two packages, which is how a
//     project carries several versions of the same dependency.
//
//   - Manifest: the package.hcl file at every package root. It names the
//     package, its version, its declared dependencies, the merge strategy for
//     configuration aimed at it, and the configuration it contributes.
//
//   - Graph: every package reachable from the project root through declared
//     dependencies, in a deterministic discovery order.
//
// # Resolution
//
// Nested installs live under <root>/packages/<name>. Resolving a name from a
// package probes <dir>/packages/<name> starting at that package's root and
// walking up through its ancestors until the project root, so the closest
// install wins. Probe results are memoized because every macro call site of a
// build asks the same few questions.
package pkggraph
