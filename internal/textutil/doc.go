// Package textutil provides the transcript text helpers shared by the
// analyzers, analytics, calendar, and export packages.
//
// The primary use cases are:
//   - Splitting transcripts into lowercase words and sentences
//   - Matching whole-word phrases against a token list
//   - Creating term-frequency fingerprints and comparing them by cosine similarity
//   - Sanitizing filenames for exported reports
//
// Tokenization lowercases text and splits on anything that is not a letter,
// digit, or apostrophe. Fingerprints additionally drop stopwords and tokens
// shorter than 3 characters.
package textutil
