// Copyright 2023-2024
// SPDX-License-Identifier: Apache-2.0
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package valuation

import "errors"

var (
	// configuration errors abort the valuation cycle
	ErrRateUnavailable = errors.New("no FX rate available and no persisted fallback")
	ErrNoSnapshot      = errors.New("no account snapshot available")
	ErrNoPrincipal     = errors.New("principal could not be resolved from any source")

	// partial-data conditions are recovered locally and never abort
	ErrQuoteUnavailable = errors.New("quote unavailable for symbol")

	// invariant violations indicate a defect; they are logged and the
	// best-effort result is still returned
	ErrConservation = errors.New("conservation invariant violated")
	ErrNaNTotal     = errors.New("NaN propagated into a total")
)
