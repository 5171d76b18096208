// Package command wires the kvmesh-cli commands with urfave/cli/v2.
//
// Every command talks to a kvmesh server over its HTTP API and prints the
// result in the format chosen by --output.
package command
