// Package fleetevents provides a small pub/sub broker the Fleet Controller
// uses to announce group lifecycle transitions (planned, provisioning,
// running, succeeded, failed, timed out, removed) to any interested
// listener. No package in this module subscribes to it: the CLI builds
// a broker for the controller, but neither the CLI nor the Remote Request
// Handler reads its events.
package fleetevents
