// Package cycle implements the poll cycle engine.
//
// One cycle covers one subscription: the rate-budget gate, the lastPolled
// commit, a concurrent incremental fetch per endpoint, new-vs-modified
// classification of every returned entity, and dispatch of the resulting
// events. Endpoint and entity failures are settled individually; a cycle
// always runs to completion once gating passes, and only gating denials are
// surfaced to the caller as errors.
package cycle
