// Package app contains the build pipeline. It defines the App struct, its
// configuration, and the phases of a build, decoupled from any specific
// entrypoint like the CLI.
//
// A build runs in strict phases:
//
//  1. Discover the package graph from the project root.
//  2. Load every manifest contribution into the config registry.
//  3. Seal the registry. This is the build barrier: nothing below runs before it.
//  4. Transform files in parallel: HCL sources through the plugin pipeline,
//     templates through the template loader.
//  5. Write outputs and the report.
//
// failBuild() and registry lifecycle errors abort the build. Template compiler
// errors are isolated per file and only mark the build failed.
package app
