// Package metric provides Prometheus metrics for kvmesh.
//
// A Registry owns a private prometheus.Registry holding:
//
//   - kvmesh_requests_total{transport,route,code}
//   - kvmesh_request_duration_seconds{transport,route}
//   - kvmesh_store_operations_total{op,result}
//   - kvmesh_keys, registered once a key counter is available
//   - Go runtime and process collectors
//
// Metrics are exposed at /metrics in Prometheus text format.
package metric
