// Package textutil provides the small text helpers shared by the metadata,
// storage, and pipeline packages.
//
//   - Slugify folds a label into a lowercase ASCII token for fingerprints and
//     storage keys.
//   - SanitizeFileName strips filesystem-unsafe characters from upload names.
//   - Fingerprint and CosineSimilarity compare catalogue titles when looking
//     for likely duplicate uploads.
//
// Tokenization lowercases text, folds diacritics, splits on non-alphanumeric
// characters, and drops tokens shorter than 3 characters.
package textutil
