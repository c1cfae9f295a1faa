package arbor

import "errors"

// ErrReadOnlyView is returned when writing through an index view produced
// by MatchingTrees. Views share their relations with the index they came
// from and only carry their own root list.
var ErrReadOnlyView = errors.New("index view is read-only")

// ErrIndexNotEmpty is returned by Corpus.ToIndex when path already holds
// trees.
var ErrIndexNotEmpty = errors.New("index already holds trees")
