// Package labelmatch associates unfiled items with manifest rows by the text
// recognized on their label images. Matching is word-based over the
// configured association columns; only a unique best match refiles an item,
// ties are left for manual review.
package labelmatch
