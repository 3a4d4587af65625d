// Package deploy supervises one agent deployment from submission to
// readiness.
//
// A Deployer checks whether the agent already exists, verifies the secret
// set and image credentials it references, submits a create or update, and
// then polls the service a bounded number of times until the deployment
// reports ready, reports an error, or the budget runs out. Cancelling the
// context interrupts the run at the next check; nothing already submitted is
// rolled back.
package deploy
