// Package arbiter is a concurrent policy engine: it evaluates a tree of
// logical and comparison rules against facts resolved asynchronously
// from external sources, producing a structured pass/fail verdict with
// full traceability of which sub-rule produced which result.
//
// Typical use:
//
//  1. Build a Rule tree from composite rules (And, Or, Not) and leaf
//     rules comparing facts against configured values.
//  2. Provide a FactsResolver that maps fact keys to values.
//  3. Call Eval for a one-shot verdict, or Evaluate to obtain a Session
//     which can be started, polled with Snapshot while in flight, and
//     awaited.
//  4. Inspect the RuleResult tree, or flatten it with Reduce.
//
// Composite rules fan out their sub-rules concurrently and short-circuit:
// And decides as soon as one unignored sub-rule is not Valid, Or decides
// as soon as one sub-rule is Valid. Sub-rules marked Ignore are still
// evaluated and reported, but cannot fail their parent's decision. After
// a decision is locked in, in-flight siblings keep running to completion
// and their outcomes remain visible in snapshots; only the decision
// itself is committed early, exactly once per session.
//
// Rules are stateless blueprints. The same rule may be evaluated any
// number of times, concurrently, by multiple callers; every evaluation
// gets its own Session.
//
// Leaf rule kinds are pluggable: RegisterKind installs an Evaluator for
// a user-defined kind. The cel subpackage registers an expression-backed
// kind built on Google's CEL, and the facts subpackage provides resolver
// implementations with caching, coalescing, timeouts and logging.
package arbiter
