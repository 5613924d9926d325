// synapsesuggestor - Synapse detection bookkeeping for CATMAID
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/clbarnes/CATMAID-synapsesuggestor

/*
Package agglomerate merges 2D synapse slices into 3D synapse objects.

A run starts from a set of seed slices (usually the slices a detector just
inserted) and:

 1. deduplicates the seeds and checks that they exist;
 2. builds the adjacency graph of the seeds: an edge joins a seed to any
    slice of the same workflow whose tile is within one index step on every
    axis and whose hull lies within the adjacency distance;
 3. adds the full membership of every existing object that owns a node, so
    an object is always reconsidered as a whole;
 4. takes connected components: a component without an existing object gets
    a new one, otherwise the smallest existing object id survives;
 5. writes the changed slice→object mappings with a keyed upsert;
 6. deletes every object left without slices, anywhere in the store.

Everything happens inside one store transaction supplied through Store.
Run is the algorithm over an open transaction; Engine adds the transaction,
logging and metrics around it.

An empty seed set is legal and performs only step 6.
*/
package agglomerate
