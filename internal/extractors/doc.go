// Package extractors provides implementations of driven.TextExtractor for
// the upload formats ragline accepts, and the Registry that picks one per
// upload. Each extractor knows how to turn one family of MIME types into
// plain text; chunking happens later in the post-processor pipeline.
package extractors
