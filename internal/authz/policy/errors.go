// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 LibGate Contributors

package policy

import "github.com/samber/oops"

// IsStoreUnavailable returns true if the error is a STORE_UNAVAILABLE error
// from a policy store adapter.
func IsStoreUnavailable(err error) bool {
	if err == nil {
		return false
	}
	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return false
	}
	return oopsErr.Code() == "STORE_UNAVAILABLE"
}
