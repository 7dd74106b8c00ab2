// Package pdfprobe inspects uploaded PDFs before they enter the pipeline.
//
// Probe reports the page count and the fraction of pages that already carry
// a text layer. Routing compares that fraction with min_text_coverage to
// decide whether OCR is needed. Files that are not PDFs, are encrypted, or
// cannot be parsed are rejected with the matching UPLOAD_* failure code.
package pdfprobe
