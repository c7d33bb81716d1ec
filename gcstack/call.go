package gcstack

import (
	"context"

	"github.com/wippyai/gc-runtime/native"
)

// Call invokes an exported guest function and roots the result through
// target. Arguments must be live handles; their pointers are read at call
// time.
//
// If the guest throws, the exception value is rooted through the same
// target and returned as *Exception, so it cannot be collected before the
// caller inspects it. A frame_full error while rooting either value is
// returned as-is; the raw result is dropped and the collector may reclaim
// it.
func Call(ctx context.Context, rt native.Runtime, target Target, name string, args ...Handle) (Handle, error) {
	ptrs := make([]native.Ptr, len(args))
	for i, a := range args {
		ptrs[i] = a.Ptr()
	}

	res, err := rt.Call(ctx, name, ptrs...)
	if err != nil {
		return Handle{}, err
	}

	if res.Threw() {
		exc, rootErr := target.Root(res.Exception)
		if rootErr != nil {
			return Handle{}, rootErr
		}
		return Handle{}, &Exception{Value: exc}
	}

	return target.Root(res.Value)
}
