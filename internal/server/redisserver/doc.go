// Package redisserver provides a Redis protocol (RESP2) server for kvmesh.
//
// Supported commands:
//   - PING, ECHO, QUIT, COMMAND
//   - GET, SET, SETNX, DEL, EXISTS, KEYS, DBSIZE
//   - KVMETA, which returns a key's value with its timestamps
//
// Domain errors are rendered as "-ERR <code> <message>".
package redisserver
