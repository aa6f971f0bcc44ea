// Copyright 2026 The FleetWorks Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package http

import (
	"context"

	"github.com/fleetworks/fleetworks/internal/auth"
)

type contextKey string

const identityKey contextKey = "identity"

// WithIdentity stores the verified caller identity in the context.
func WithIdentity(ctx context.Context, ident *auth.Identity) context.Context {
	return context.WithValue(ctx, identityKey, ident)
}

// IdentityFrom retrieves the verified caller identity, or nil when the
// request never passed the auth middleware.
func IdentityFrom(ctx context.Context) *auth.Identity {
	if val, ok := ctx.Value(identityKey).(*auth.Identity); ok {
		return val
	}
	return nil
}
