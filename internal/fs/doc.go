// Package fs abstracts the file operations of atomic snapshot writes so
// that failures can be injected in tests.
//
//   - [LocalFS]: the os-backed implementation, available as Default
//   - [FaultyFS]: wraps a FileSystem and fails writes, syncs or closes of
//     matching files
//
// Tests inject a FaultyFS to check that an interrupted write leaves the
// previous snapshot in place:
//
//	ffs := fs.NewFaultyFS(nil)
//	ffs.AddRule(".tmp-", fs.Fault{FailAfterBytes: 1024})
//
// Operations take no context; local file calls are not interruptible.
package fs
