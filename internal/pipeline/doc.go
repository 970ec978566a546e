// Package pipeline runs normalized events through configured processing
// pipelines and persists the survivors.
//
// Each integration declares an ordered list of pipelines; each pipeline is
// an ordered chain of processors (filters and mappers) followed by an
// ordered list of sinks. The executor fans a normalized event out to every
// pipeline of its integration and runs each invocation independently on a
// bounded worker pool, detached from the HTTP response.
//
// # Processing Flow
//
//  1. Webhook handler dispatches one job per (event, pipeline)
//  2. Workers pull jobs from a bounded queue
//  3. Filters evaluate against the working body; false or error drops the
//     invocation (fail-closed)
//  4. Mappers replace the working body with the rendered template
//  5. Sinks write sequentially in declared order; a sink failure is logged
//     and does not block later sinks
//
// # Isolation
//
// Pipelines for the same event are independent and unordered relative to
// each other. A filter drop, mapper error, or sink failure affects only
// its own pipeline invocation. Duplicate deliveries are made safe by
// id-keyed upsert in the store, not by ordering guarantees.
package pipeline
