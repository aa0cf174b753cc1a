// Package eager batch-loads the associations of GraphQL node types level by
// level, so a query touching N parents costs one loader call per selected
// relation instead of N.
//
// A node type is described by a Type, which owns the registry of relations
// its nodes can load. EagerLoadAll walks a Trail (the fields a request
// selected), and for each selected relation calls its loader once for the
// whole batch, materializes the child nodes, loads their own selected
// relations before pairing, and finally installs the children into each
// parent's association field. Field resolvers read associations through
// TryUnwrap and never hit the data source themselves.
package eager
