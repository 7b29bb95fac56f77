// Package balsa implements a random forest training and classification
// engine for tabular data.
//
// Training builds an ensemble of axis-aligned decision trees from a
// row-major numeric feature matrix and an integer label vector. Each tree
// is grown over a per-feature sorted search index; building the index is
// the expensive part of training, so one template tree pays the sort cost
// and the remaining trees start from cheap clones of it. Finished trees
// are converted to a compact read-only form and appended to a classifier
// stream, which can be backed by memory or by a model file.
//
// Classification reads trees back from a stream and lets every tree vote
// on every point, optionally fanning the trees out over a worker pool.
// The label of a point is the (weighted) majority vote over all trees.
package balsa
