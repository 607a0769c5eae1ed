// Package onewire defines the contract with the 1-Wire bus driver: device
// handles, the backend event stream, and the hex address conventions shared
// with the store namespace. The real owserver driver is an external
// collaborator; the package ships a scripted Simulator for tests and
// hardware-less runs.
package onewire
