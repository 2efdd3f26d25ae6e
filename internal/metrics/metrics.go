// Package metrics holds the Prometheus collectors of the hydroponics service.
package metrics

const HydroponicsNamespace = "hydroponics"
