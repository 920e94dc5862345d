package observability

// Span attribute keys set by the compiler pipeline. The attribute filter
// exports exactly these keys.
const (
	AttrFileName       = "file.name"
	AttrFileSize       = "file.size"
	AttrDialect        = "esm.dialect"
	AttrStatements     = "esm.statements"
	AttrStrategy       = "rewrite.strategy"
	AttrImports        = "rewrite.imports"
	AttrExports        = "rewrite.exports"
	AttrExcluded       = "rewrite.excluded"
	AttrDiagnostics    = "rewrite.diagnostics"
	AttrCacheHit       = "cache.hit"
	AttrBatchFiles     = "batch.files"
	AttrBatchWorkers   = "batch.workers"
	AttrBatchDelivered = "batch.delivered"
	AttrErrorType      = "error.type"
	AttrErrorSource    = "error.source"
)

var exportedAttrs = map[string]bool{
	AttrFileName:       true,
	AttrFileSize:       true,
	AttrDialect:        true,
	AttrStatements:     true,
	AttrStrategy:       true,
	AttrImports:        true,
	AttrExports:        true,
	AttrExcluded:       true,
	AttrDiagnostics:    true,
	AttrCacheHit:       true,
	AttrBatchFiles:     true,
	AttrBatchWorkers:   true,
	AttrBatchDelivered: true,
	AttrErrorType:      true,
	AttrErrorSource:    true,
}
