// Package rawabi is the cgo bridge to the external raw-decoder library's
// C ABI: initialize_env/terminate_env bracket every operation, read_raw
// decodes one file, write_raw replaces a template's image strip.
//
// The ABI is strictly return-code based (see Decode/Write); any
// exception thrown by the underlying C++ implementation must be trapped
// at the C++ boundary by the library itself and reported to Go as a
// non-zero return code, never propagated as a Go panic.
//
// This package requires the real decoder library and its headers at
// build time and therefore only compiles with the hdrplus_rawcgo build
// tag set; the rest of this module depends on the rawio.Decoder
// interface, not on this package directly, so it builds and tests
// without the external library present.
package rawabi
