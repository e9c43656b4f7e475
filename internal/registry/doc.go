// Package registry is the configuration registry of a build.
//
// Packages contribute configuration payloads about themselves or about other
// packages. The Registry accumulates those contributions while it is Open.
// Sealing it runs every target's contributions through its merge strategy,
// caches the results and freezes the registry: from then on contributions are
// rejected and lookups are pure functions of the target package.
//
// Sealing is the build barrier. Lookups on an open registry fail with
// NotSealedError rather than returning a result later contributions could
// change, and contributions after sealing fail with SealedRegistryError. Both
// indicate a broken host pipeline and must abort the build.
//
// After sealing the registry is read without locks, so any number of rewrite
// workers may share it.
package registry
