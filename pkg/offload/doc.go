// Package offload implements the SMB2 copy-offload token registry.
//
// A client that wants the server to copy data between two open files first
// asks for a token identifying the source handle (FSCTL_SRV_REQUEST_RESUME_KEY
// or, for block cloning, FSCTL_DUPLICATE_EXTENTS_TO_FILE). The token is later
// presented in a separate request and must resolve back to the same open.
//
// The registry binds each token to exactly one live handle:
//
//   - CreateToken builds the fixed-layout token for a handle and operation.
//   - Context.Store binds a token to a handle. Rebinding the same token to the
//     same handle is a no-op, binding it to another handle is an error.
//   - Context.Fetch resolves a token to the handle reference it is bound to.
//
// Each successful new binding attaches a Link to the handle's LinkSet. The
// handle lifecycle owner must call LinkSet.Close when the handle is closed;
// that removes every binding the handle owns, so no token ever resolves to a
// closed handle.
//
// A Context is created explicitly by the owning scope (typically one per
// SMB connection handler) with InitContext and passed to every call.
package offload
