// Command kvmesh-cli reads and writes keys on a kvmesh server over HTTP.
package main
