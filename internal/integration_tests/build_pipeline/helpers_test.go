package integration_tests

// appManifest is the root package of most fixtures: it configures itself and
// the addon installed below it.
const appManifest = `
	name    = "app"
	version = "1.0.0"
	dependencies = { addon = "^2.0.0" }

	own_config {
		value = { mode = "amazing" }
	}

	config "addon" {
		value = { name = "addon-config", count = 42 }
	}
`

const addonManifest = `
	name    = "addon"
	version = "2.3.0"
`
