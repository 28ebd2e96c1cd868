// Package extractors converts uploaded file bytes to plain text.
//
// Each sub-package implements driven.TextExtractor for one family of file
// types. Registry maps a file extension to its extractor and is what the
// ingestion pipeline consults during the extract stage.
package extractors
