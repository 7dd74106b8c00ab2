// Package settings manages runtime settings persisted in the store,
// including secrets that are only ever reported through masking sentinels.
//
// Readers see "__SET__" or "__UNSET__" in place of a secret. Writers may
// echo a mask back ("***", "******", "__SET__") to keep the stored value,
// send "__CLEAR__" to remove it, or send any other non-blank value to
// replace it. Blank input changes nothing.
package settings
