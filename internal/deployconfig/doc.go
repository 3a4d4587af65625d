// Package deployconfig resolves the settings of a single deployment.
//
// Three layers feed a deployment: explicit command-line values, the
// declarative deploy file (pcc-deploy.toml), and built-in defaults. Each
// layer is a Partial whose pointer fields mean "explicitly set". Resolve
// merges them field by field, nested scaling and Krisp VIVA fields included,
// then validates the merged result into an immutable DeployConfig.
package deployconfig
