// Package api provides the HTTP trigger for DR failover runs. A POST starts
// DRFailoverWorkflow on Temporal and relays its result.
package api
