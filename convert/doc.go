// Package convert rewrites HTML documents to carry Subresource Integrity
// attributes. The engine scans the document for script and link tags,
// resolves each referenced resource to bytes, computes its sha384 integrity
// value, and either injects integrity/crossorigin attributes or, in verify
// mode, checks existing values before normalizing them. Import-map script
// bodies get a rebuilt integrity section keyed by resource reference.
//
// Tags are processed sequentially in document order and rewrites are
// applied by scan offsets. The first failure aborts the whole conversion:
// no partial output is ever returned.
package convert
