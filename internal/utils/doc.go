// Package utils holds small helpers shared by redline's packages: an
// elapsed-time [Timer] for operation latencies, [Ptr] for optional SDK
// fields, and [JSONToString] for printing stored values.
package utils
