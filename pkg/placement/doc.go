// Package placement implements the Placement Planner: it buckets shards
// into container groups of at most 10 and assigns each group a region drawn
// independently and uniformly at random (with replacement) from the
// caller's region list. Random assignment, rather than round-robin, avoids
// a thundering herd against the first region when many small fleets start
// concurrently.
package placement
