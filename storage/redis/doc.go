// Package redis implements the draft store on Redis for deployments
// where several processes share draft state. Functionally equivalent to
// the BadgerDB draft store; unit coverage lives there, this backend is
// exercised against a real Redis in integration environments.
package redis
