// Package tasks holds the built-in jobs and named hook providers.
//
// Every job is declared into the default job table when the package is
// imported; each carries an embedded JSON schema for its slice of the task
// configuration. Providers are registered under stable names so projects can
// reference them from packhooks.yaml.
package tasks
